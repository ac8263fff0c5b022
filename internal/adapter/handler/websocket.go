package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	httpmw "github.com/johnquangdev/meetcore/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/meetcore/pkg/config"
)

// wsConn is one websocket client. The send channel is never closed; done
// signals the write pump to stop so a late TrySend cannot panic.
type wsConn struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func newWSConn(conn *websocket.Conn, userID string, buffer int) *wsConn {
	return &wsConn{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

// ID implements Outbound and Client
func (c *wsConn) ID() string { return c.id }

// UserID implements Client
func (c *wsConn) UserID() string { return c.userID }

// TrySend implements Outbound
func (c *wsConn) TrySend(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnectionGone
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrBackpressure
	}
}

// Close implements Outbound
func (c *wsConn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// WebSocket upgrades HTTP requests and runs the read and write pumps of each
// connection
type WebSocket struct {
	hub        *Hub
	dispatcher *Dispatcher
	cfg        config.WebSocketConfig
	upgrader   websocket.Upgrader
	logger     *zap.Logger

	// active tracks read pumps so shutdown can wait for their disconnects
	active sync.WaitGroup
}

// NewWebSocketHandler creates a new websocket handler. An empty origin list
// accepts any origin.
func NewWebSocketHandler(hub *Hub, dispatcher *Dispatcher, cfg config.WebSocketConfig, allowedOrigins []string, logger *zap.Logger) *WebSocket {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &WebSocket{
		hub:        hub,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Serve handles GET /v1/ws
// @Summary      Open the meeting websocket
// @Description  Upgrades to a websocket carrying {"event","data"} frames. With auth enabled the token may be passed as the token query parameter.
// @Tags         Realtime
// @Param        token  query  string  false  "Access token"
// @Success      101  "Switching protocols"
// @Failure      401  {object}  map[string]interface{}  "Missing or invalid token"
// @Router       /ws [get]
func (h *WebSocket) Serve(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written an HTTP error
		if h.logger != nil {
			h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		}
		return nil
	}

	h.active.Add(1)
	defer h.active.Done()

	userID, _ := httpmw.UserID(c)
	conn := newWSConn(ws, userID, h.cfg.SendBuffer)
	h.hub.Register(conn)

	if h.logger != nil {
		h.logger.Info("🔗 Websocket connected",
			zap.String("connection_id", conn.id),
			zap.String("user_id", userID),
			zap.String("remote", c.RealIP()),
		)
	}

	go h.writePump(conn)
	h.readPump(conn)
	return nil
}

func (h *WebSocket) readPump(c *wsConn) {
	defer func() {
		h.hub.Unregister(c.id)
		c.Close()
		h.dispatcher.Disconnect(context.Background(), c)

		if h.logger != nil {
			h.logger.Info("🔌 Websocket disconnected", zap.String("connection_id", c.id))
		}
	}()

	c.conn.SetReadLimit(h.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && h.logger != nil {
				h.logger.Warn("Websocket read error", zap.String("connection_id", c.id), zap.Error(err))
			}
			return
		}
		h.dispatcher.Dispatch(context.Background(), c, data)
	}
}

func (h *WebSocket) writePump(c *wsConn) {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if h.logger != nil {
					h.logger.Debug("Websocket write failed", zap.String("connection_id", c.id), zap.Error(err))
				}
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteWait)); err != nil {
				return
			}
		}
	}
}

// Wait blocks until every connection has finished its disconnect handling or ctx ends
func (h *WebSocket) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
