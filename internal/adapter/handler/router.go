package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	httpmw "github.com/johnquangdev/meetcore/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/meetcore/pkg/config"
	"github.com/johnquangdev/meetcore/pkg/jwt"
	pkgmw "github.com/johnquangdev/meetcore/pkg/middleware"
)

// Router holds all handlers
type Router struct {
	cfg         *config.Config
	hub         *Hub
	roomHandler *Room
	wsHandler   *WebSocket
	jwtManager  *jwt.Manager
	rooms       pkgmw.MembershipChecker
	logger      *zap.Logger
}

// NewRouter creates a new router with all handlers. A nil jwtManager leaves
// every route unauthenticated.
func NewRouter(
	cfg *config.Config,
	hub *Hub,
	roomHandler *Room,
	wsHandler *WebSocket,
	jwtManager *jwt.Manager,
	rooms pkgmw.MembershipChecker,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:         cfg,
		hub:         hub,
		roomHandler: roomHandler,
		wsHandler:   wsHandler,
		jwtManager:  jwtManager,
		rooms:       rooms,
		logger:      logger,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/v1")
	rt.setupRealtimeRoutes(v1)
	rt.setupRoomRoutes(v1)
}

// setupRealtimeRoutes configures the websocket endpoint
func (rt *Router) setupRealtimeRoutes(g *echo.Group) {
	if rt.jwtManager != nil {
		g.GET("/ws", rt.wsHandler.Serve, httpmw.EchoAuth(rt.jwtManager, rt.logger))
		return
	}
	g.GET("/ws", rt.wsHandler.Serve)
}

// setupRoomRoutes configures room routes
func (rt *Router) setupRoomRoutes(g *echo.Group) {
	roomGroup := g.Group("/rooms")

	roomGroup.GET("/:code", rt.roomHandler.GetRoom)
	roomGroup.GET("/:code/report", rt.roomHandler.GetReport)

	if rt.jwtManager != nil {
		roomGroup.POST("/:code/end", rt.roomHandler.EndRoom,
			httpmw.EchoAuth(rt.jwtManager, rt.logger),
			pkgmw.RequireRoomMember(rt.rooms),
		)
		return
	}
	roomGroup.POST("/:code/end", rt.roomHandler.EndRoom)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
		"connections": rt.hub.Count(),
	})
}
