package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/internal/adapter/dto/event"
	"github.com/johnquangdev/meetcore/internal/usecase/meeting"
	"github.com/johnquangdev/meetcore/internal/usecase/signaling"
)

var (
	// ErrConnectionGone is returned when sending to a connection that is not registered
	ErrConnectionGone = errors.New("connection gone")
	// ErrBackpressure is returned when a connection's send buffer is full
	ErrBackpressure = errors.New("send buffer full")
)

// Outbound is a connection the hub can deliver frames to
type Outbound interface {
	ID() string
	TrySend(frame []byte) error
	Close()
}

// Hub tracks live connections by connection id. Frames for one connection go
// through its single send channel, so per-connection order is preserved. A
// connection whose send buffer is full is closed rather than skipped.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]Outbound
	logger *zap.Logger
}

var (
	_ meeting.Notifier = (*Hub)(nil)
	_ signaling.Sender = (*Hub)(nil)
)

// NewHub creates a new Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]Outbound),
		logger: logger,
	}
}

// Register adds a connection
func (h *Hub) Register(c Outbound) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	total := len(h.conns)
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Debug("🔌 Connection registered",
			zap.String("connection_id", c.ID()),
			zap.Int("connections", total),
		)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	delete(h.conns, connectionID)
	h.mu.Unlock()
}

// Send encodes one event and queues it on the target connection
func (h *Hub) Send(connectionID, eventName string, data any) error {
	h.mu.RLock()
	c, ok := h.conns[connectionID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionGone, connectionID)
	}

	frame, err := encodeFrame(eventName, data)
	if err != nil {
		return err
	}
	if err := c.TrySend(frame); err != nil {
		if errors.Is(err, ErrBackpressure) {
			h.evict(c, eventName)
		}
		return fmt.Errorf("failed to queue %s for %s: %w", eventName, connectionID, err)
	}
	return nil
}

// evict closes a connection that cannot keep up. Its frames must not be
// dropped while it stays connected, so it leaves the room instead and peers
// see user-left.
func (h *Hub) evict(c Outbound, eventName string) {
	h.Unregister(c.ID())
	c.Close()

	if h.logger != nil {
		h.logger.Warn("🐢 Closing slow connection",
			zap.String("connection_id", c.ID()),
			zap.String("event", eventName),
		)
	}
}

// Count returns the number of live connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll closes every connection, used on shutdown
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]Outbound, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	if h.logger != nil {
		h.logger.Info("🔌 Closed all connections", zap.Int("count", len(conns)))
	}
}

func encodeFrame(eventName string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", eventName, err)
	}
	frame, err := json.Marshal(event.Envelope{Event: eventName, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", eventName, err)
	}
	return frame, nil
}
