package meeting

import (
	"context"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	"github.com/johnquangdev/meetcore/internal/usecase/session"
)

// Notifier delivers one event to one connection
type Notifier interface {
	Send(connectionID, event string, data any) error
}

// Service defines the interface for the meeting use case
type Service interface {
	// Join admits a connection into a room and announces it
	Join(ctx context.Context, roomCode, userID, connectionID string) (*session.JoinResult, error)

	// Leave removes a connection from a room; roomCode may be empty
	Leave(ctx context.Context, roomCode, connectionID string) error

	// Disconnect is Leave for a connection whose transport closed
	Disconnect(ctx context.Context, connectionID string)

	// Signal relays an offer, answer or ice-candidate to its target
	Signal(ctx context.Context, msg entities.SignalingMessage) error

	// SendMessage stores and broadcasts a chat message
	SendMessage(ctx context.Context, connectionID, text string) (*entities.ChatMessage, error)

	// ToggleMedia announces a participant's media state to the rest of the room
	ToggleMedia(ctx context.Context, connectionID string, kind entities.MediaKind, status bool) error

	// AddTranscriptChunk buffers one speech chunk for the connection's room
	AddTranscriptChunk(ctx context.Context, connectionID string, in ChunkInput) (bool, error)

	// EndMeeting flushes and analyzes a room on request of one of its participants
	EndMeeting(ctx context.Context, connectionID, roomCode string) (*EndResult, error)

	// EndRoom flushes and analyzes a room without a participant context
	EndRoom(ctx context.Context, roomCode string) (*EndResult, error)

	// Snapshot returns a room's current state
	Snapshot(roomCode string) (*entities.RoomSnapshot, error)

	// LatestReport returns the most recent stored report for a room
	LatestReport(ctx context.Context, roomCode string) (*entities.MeetingReport, error)

	// Shutdown waits for in-flight pipelines
	Shutdown(ctx context.Context) error
}

// Ensure Coordinator implements Service interface
var _ Service = (*Coordinator)(nil)
