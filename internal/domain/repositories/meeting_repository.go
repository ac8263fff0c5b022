package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
)

// MeetingRepository defines the interface for meeting, attendance and chat data access
type MeetingRepository interface {
	// EnsureMeeting returns the meeting for a room code, creating it if absent
	EnsureMeeting(ctx context.Context, code string) (*entities.Meeting, error)

	// EndMeeting stamps the meeting's end time
	EndMeeting(ctx context.Context, code string, at time.Time) error

	// UpsertParticipant records a participant's join/leave timestamps
	UpsertParticipant(ctx context.Context, meetingID uuid.UUID, participant *entities.Participant) error

	// AppendChatMessage stores a chat message. msg.MeetingID must be set.
	AppendChatMessage(ctx context.Context, msg *entities.ChatMessage) error

	// ListChatMessages returns the most recent messages of a room in chronological order
	ListChatMessages(ctx context.Context, code string, limit int) ([]*entities.ChatMessage, error)
}
