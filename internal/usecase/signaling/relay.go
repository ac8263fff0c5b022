package signaling

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	ucerrors "github.com/johnquangdev/meetcore/internal/usecase/errors"
)

// Sender delivers one event to exactly one connection
type Sender interface {
	Send(connectionID, event string, data any) error
}

// RoomLookup resolves which room a connection is currently in
type RoomLookup interface {
	RoomOf(connectionID string) (string, bool)
}

// Relay routes negotiation messages to a single target connection. It never
// broadcasts and never retries; undeliverable messages are dropped and logged.
//
// Per (sender, target) ordering holds because each sender's messages are relayed
// from its own read loop and each target drains a single ordered send queue.
type Relay struct {
	rooms  RoomLookup
	sender Sender
	logger *zap.Logger
}

// NewRelay creates a relay
func NewRelay(rooms RoomLookup, sender Sender, logger *zap.Logger) *Relay {
	return &Relay{
		rooms:  rooms,
		sender: sender,
		logger: logger,
	}
}

// Relay forwards msg to msg.TargetID, annotated with the sender's connection id
func (r *Relay) Relay(ctx context.Context, msg entities.SignalingMessage) error {
	if !msg.Kind.IsValid() {
		return r.drop(msg, "unknown signal kind", ucerrors.ErrInvalidEvent)
	}
	if msg.TargetID == "" {
		return r.drop(msg, "missing target", ucerrors.ErrRelayTargetUnavailable)
	}
	if msg.TargetID == msg.SenderID {
		return r.drop(msg, "target is sender", ucerrors.ErrRelayTargetUnavailable)
	}

	senderRoom, ok := r.rooms.RoomOf(msg.SenderID)
	if !ok {
		return r.drop(msg, "sender not in a room", ucerrors.ErrNotInRoom)
	}
	targetRoom, ok := r.rooms.RoomOf(msg.TargetID)
	if !ok || targetRoom != senderRoom {
		return r.drop(msg, "target not connected to sender's room", ucerrors.ErrRelayTargetUnavailable)
	}

	payload := msg.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	data := map[string]any{
		msg.Kind.PayloadField(): payload,
		"senderId":              msg.SenderID,
	}

	if err := r.sender.Send(msg.TargetID, string(msg.Kind), data); err != nil {
		return r.drop(msg, "delivery failed", fmt.Errorf("%w: %v", ucerrors.ErrRelayTargetUnavailable, err))
	}

	if r.logger != nil {
		r.logger.Debug("📡 Signal relayed",
			zap.String("kind", string(msg.Kind)),
			zap.String("room_code", senderRoom),
			zap.String("sender_id", msg.SenderID),
			zap.String("target_id", msg.TargetID),
		)
	}
	return nil
}

func (r *Relay) drop(msg entities.SignalingMessage, reason string, err error) error {
	if r.logger != nil {
		r.logger.Warn("🗑️  Signal dropped",
			zap.String("kind", string(msg.Kind)),
			zap.String("sender_id", msg.SenderID),
			zap.String("target_id", msg.TargetID),
			zap.String("reason", reason),
		)
	}
	return err
}
