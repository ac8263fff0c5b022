package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/internal/adapter/dto/event"
	"github.com/johnquangdev/meetcore/internal/domain/entities"
	ucerrors "github.com/johnquangdev/meetcore/internal/usecase/errors"
	"github.com/johnquangdev/meetcore/internal/usecase/meeting"
)

// Client identifies the connection an event arrived on. UserID is the
// verified identity, empty when the transport is unauthenticated.
type Client interface {
	ID() string
	UserID() string
}

// Validator validates decoded payloads
type Validator interface {
	Validate(i interface{}) error
}

// Dispatcher is the single entry point for client events. Every event is
// decoded, validated and routed to the meeting service; failures become an
// error event on the same connection and never affect other connections.
type Dispatcher struct {
	meetings  meeting.Service
	notifier  meeting.Notifier
	validator Validator
	logger    *zap.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(meetings meeting.Service, notifier meeting.Notifier, validator Validator, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		meetings:  meetings,
		notifier:  notifier,
		validator: validator,
		logger:    logger,
	}
}

// Dispatch handles one raw frame from client
func (d *Dispatcher) Dispatch(ctx context.Context, client Client, raw []byte) {
	var env event.Envelope
	defer func() {
		if r := recover(); r != nil {
			if d.logger != nil {
				d.logger.Error("🔥 Event handler panicked",
					zap.String("connection_id", client.ID()),
					zap.String("event", env.Event),
					zap.Any("panic", r),
				)
			}
			d.sendError(client, env.Event, "internal", "internal error")
		}
	}()

	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		d.sendError(client, "", "invalid_payload", "frame must be {\"event\": name, \"data\": {...}}")
		return
	}

	if err := d.route(ctx, client, env); err != nil {
		d.fail(client, env.Event, err)
	}
}

// Disconnect releases whatever the connection held
func (d *Dispatcher) Disconnect(ctx context.Context, client Client) {
	d.meetings.Disconnect(ctx, client.ID())
}

func (d *Dispatcher) route(ctx context.Context, client Client, env event.Envelope) error {
	switch env.Event {
	case entities.EventJoinRoom:
		var req event.JoinRoomRequest
		if err := d.decode(env.Data, &req); err != nil {
			return err
		}
		userID := client.UserID()
		if userID == "" {
			userID = req.UserID
		}
		if userID == "" {
			return fmt.Errorf("%w: userId is required", ucerrors.ErrInvalidInput)
		}
		_, err := d.meetings.Join(ctx, req.RoomCode, userID, client.ID())
		if errors.Is(err, ucerrors.ErrRoomFull) {
			// room-full already went out
			return nil
		}
		return err

	case entities.EventLeaveRoom:
		var req event.LeaveRoomRequest
		if err := d.decode(env.Data, &req); err != nil {
			return err
		}
		err := d.meetings.Leave(ctx, req.RoomCode, client.ID())
		if errors.Is(err, ucerrors.ErrNotInRoom) {
			return nil
		}
		return err

	case entities.EventOffer, entities.EventAnswer:
		var req event.SessionDescriptionRequest
		if err := d.decode(env.Data, &req); err != nil {
			return err
		}
		d.signal(ctx, entities.SignalingMessage{
			Kind:     entities.SignalKind(env.Event),
			SenderID: client.ID(),
			TargetID: req.TargetID,
			Payload:  req.SDP,
		})
		return nil

	case entities.EventIceCandidate:
		var req event.IceCandidateRequest
		if err := d.decode(env.Data, &req); err != nil {
			return err
		}
		d.signal(ctx, entities.SignalingMessage{
			Kind:     entities.SignalIceCandidate,
			SenderID: client.ID(),
			TargetID: req.TargetID,
			Payload:  req.Candidate,
		})
		return nil

	case entities.EventSendMessage:
		var req event.SendMessageRequest
		if err := d.decode(env.Data, &req); err != nil {
			return err
		}
		_, err := d.meetings.SendMessage(ctx, client.ID(), req.Text)
		return err

	case entities.EventToggleMedia:
		var req event.ToggleMediaRequest
		if err := d.decode(env.Data, &req); err != nil {
			return err
		}
		return d.meetings.ToggleMedia(ctx, client.ID(), entities.MediaKind(req.Kind), *req.Status)

	case entities.EventTranscriptChunk:
		var req event.TranscriptChunkRequest
		if err := d.decode(env.Data, &req); err != nil {
			return err
		}
		// duplicates are dropped silently
		_, err := d.meetings.AddTranscriptChunk(ctx, client.ID(), meeting.ChunkInput{
			UserName:  req.UserName,
			Text:      req.Text,
			Timestamp: req.Timestamp.Time,
		})
		return err

	case entities.EventEndMeeting:
		var req event.EndMeetingRequest
		if err := d.decode(env.Data, &req); err != nil {
			return err
		}
		_, err := d.meetings.EndMeeting(ctx, client.ID(), req.RoomCode)
		return err

	default:
		return fmt.Errorf("%w: unknown event %q", ucerrors.ErrInvalidEvent, env.Event)
	}
}

// signal is fire-and-forget: an unroutable message is dropped and logged by the relay
func (d *Dispatcher) signal(ctx context.Context, msg entities.SignalingMessage) {
	if err := d.meetings.Signal(ctx, msg); err != nil && d.logger != nil {
		d.logger.Debug("Signal not delivered",
			zap.String("kind", string(msg.Kind)),
			zap.String("sender_id", msg.SenderID),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ucerrors.ErrInvalidEvent, err)
	}
	if d.validator != nil {
		if err := d.validator.Validate(v); err != nil {
			return fmt.Errorf("%w: %w", ucerrors.ErrInvalidInput, err)
		}
	}
	return nil
}

func (d *Dispatcher) fail(client Client, eventName string, err error) {
	code := errorCode(err)
	if d.logger != nil {
		d.logger.Warn("⚠️ Event rejected",
			zap.String("connection_id", client.ID()),
			zap.String("event", eventName),
			zap.String("code", code),
			zap.Error(err),
		)
	}

	message := err.Error()
	if code == "internal" {
		message = "internal error"
	}
	d.sendError(client, eventName, code, message)
}

func (d *Dispatcher) sendError(client Client, eventName, code, message string) {
	_ = d.notifier.Send(client.ID(), entities.EventError, event.ErrorEvent{
		Event:   eventName,
		Code:    code,
		Message: message,
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ucerrors.ErrInvalidEvent):
		return "invalid_payload"
	case errors.Is(err, ucerrors.ErrInvalidInput):
		return "validation_failed"
	case errors.Is(err, ucerrors.ErrAlreadyInRoom):
		return "already_in_room"
	case errors.Is(err, ucerrors.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, ucerrors.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ucerrors.ErrRoomFull):
		return "room_full"
	case errors.Is(err, ucerrors.ErrRelayTargetUnavailable):
		return "target_unavailable"
	default:
		return "internal"
	}
}
