package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// MembershipChecker answers whether a user is currently in a room
type MembershipChecker interface {
	HasUser(roomCode, userID string) bool
}

// RequireRoomMember only lets a verified user act on a room they are in.
// It expects "user_id" (string) to have been set by the auth middleware and
// the room code in the ":code" path parameter.
func RequireRoomMember(rooms MembershipChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			code := c.Param("code")
			if code == "" {
				return c.JSON(http.StatusBadRequest, map[string]interface{}{
					"error":   "invalid_room_code",
					"message": "room code is required",
				})
			}
			userID, ok := c.Get("user_id").(string)
			if !ok || userID == "" {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error":   "unauthorized",
					"message": "user not authenticated",
				})
			}
			if !rooms.HasUser(code, userID) {
				return c.JSON(http.StatusForbidden, map[string]interface{}{
					"error":   "not_in_room",
					"message": "user is not a participant of this room",
				})
			}
			return next(c)
		}
	}
}
