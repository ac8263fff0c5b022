package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/errors"
	"github.com/johnquangdev/meetcore/pkg/jwt"
)

// Context keys set by EchoAuth
const (
	UserIDKey = "user_id"
	ClaimsKey = "claims"
)

// EchoAuth returns an Echo middleware that verifies the access token and sets
// "user_id" (string) and "claims" (*jwt.Claims) into the Echo context.
// Browsers cannot set headers on a websocket upgrade, so the token may also
// arrive as the "token" query parameter.
func EchoAuth(manager *jwt.Manager, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := ExtractToken(c)
			if token == "" {
				return reject(c, errors.ErrUnauthenticated())
			}

			claims, err := manager.ValidateAccessToken(token)
			if err != nil {
				if logger != nil {
					logger.Debug("Rejected access token",
						zap.String("path", c.Path()),
						zap.Error(err),
					)
				}
				return reject(c, errors.ErrInvalidToken(err))
			}

			c.Set(ClaimsKey, claims)
			c.Set(UserIDKey, claims.UserID())
			return next(c)
		}
	}
}

func reject(c echo.Context, appErr errors.AppError) error {
	return c.JSON(appErr.HTTPCode, map[string]interface{}{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}

// UserID returns the verified user id, if EchoAuth ran
func UserID(c echo.Context) (string, bool) {
	id, ok := c.Get(UserIDKey).(string)
	return id, ok && id != ""
}

// ExtractToken reads the bearer token from the Authorization header, the
// access_token cookie or the token query parameter, in that order
func ExtractToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookie, err := c.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return c.QueryParam("token")
}
