package handler

import (
	stdErrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/errors"
	"github.com/johnquangdev/meetcore/internal/adapter/dto/room"
	"github.com/johnquangdev/meetcore/internal/adapter/presenter"
	"github.com/johnquangdev/meetcore/internal/domain/entities"
	ucerrors "github.com/johnquangdev/meetcore/internal/usecase/errors"
	"github.com/johnquangdev/meetcore/internal/usecase/meeting"
)

// Room handles room-related HTTP requests
type Room struct {
	meetings meeting.Service
	logger   *zap.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(meetings meeting.Service, logger *zap.Logger) *Room {
	return &Room{
		meetings: meetings,
		logger:   logger,
	}
}

// GetRoom handles GET /rooms/:code
// @Summary      Get a live room
// @Description  Returns the lifecycle state, epoch and active participants of a room
// @Tags         Rooms
// @Produce      json
// @Param        code  path      string  true  "Room code"
// @Success      200   {object}  room.RoomResponse
// @Failure      404   {object}  map[string]interface{}  "Room not found"
// @Router       /rooms/{code} [get]
func (h *Room) GetRoom(c echo.Context) error {
	code := c.Param("code")

	snap, err := h.meetings.Snapshot(code)
	if err != nil {
		return HandleError(h.logger, c, toAppError(code, err))
	}
	return HandleSuccess(h.logger, c, presenter.ToRoomResponse(snap))
}

// EndRoom handles POST /rooms/:code/end
// @Summary      End a meeting
// @Description  Flushes the room's transcript and starts analysis. Participants receive transcript-saved and analysis-complete.
// @Tags         Rooms
// @Produce      json
// @Security     BearerAuth
// @Param        code  path      string  true  "Room code"
// @Success      202   {object}  room.EndRoomResponse
// @Failure      404   {object}  map[string]interface{}  "Room not found"
// @Router       /rooms/{code}/end [post]
func (h *Room) EndRoom(c echo.Context) error {
	code := c.Param("code")

	res, err := h.meetings.EndRoom(c.Request().Context(), code)
	if err != nil {
		return HandleError(h.logger, c, toAppError(code, err))
	}
	return HandleStatus(h.logger, c, http.StatusAccepted, room.EndRoomResponse{
		Code:     res.RoomCode,
		Epoch:    res.Epoch,
		Buffered: res.Buffered,
		Status:   "accepted",
	})
}

// GetReport handles GET /rooms/:code/report
// @Summary      Get the latest meeting report
// @Description  Returns the most recent analysis stored for a room code
// @Tags         Rooms
// @Produce      json
// @Param        code  path      string  true  "Room code"
// @Success      200   {object}  room.ReportResponse
// @Failure      404   {object}  map[string]interface{}  "No report"
// @Router       /rooms/{code}/report [get]
func (h *Room) GetReport(c echo.Context) error {
	code := c.Param("code")

	report, err := h.meetings.LatestReport(c.Request().Context(), code)
	if err != nil {
		return HandleError(h.logger, c, toAppError(code, err))
	}
	return HandleSuccess(h.logger, c, presenter.ToReportResponse(report))
}

func toAppError(code string, err error) error {
	switch {
	case stdErrors.Is(err, ucerrors.ErrRoomNotFound):
		return errors.ErrRoomNotFound(code)
	case stdErrors.Is(err, ucerrors.ErrNotFound):
		return errors.ErrReportNotFound(code)
	case stdErrors.Is(err, ucerrors.ErrNotInRoom):
		return errors.ErrNotInRoom()
	case stdErrors.Is(err, ucerrors.ErrRoomFull):
		return errors.ErrRoomFull(code, entities.RoomCapacity)
	case stdErrors.Is(err, ucerrors.ErrFlushInProgress):
		return errors.ErrFlushInProgress(code)
	case stdErrors.Is(err, ucerrors.ErrPersistenceFailed):
		return errors.ErrPersistenceFailed(code, err)
	case stdErrors.Is(err, ucerrors.ErrInvalidInput):
		return errors.ErrInvalidArgument(err.Error())
	default:
		return errors.ErrInternal(err)
	}
}
