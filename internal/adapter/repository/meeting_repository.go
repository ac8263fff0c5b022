package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	"github.com/johnquangdev/meetcore/internal/domain/repositories"
)

// meetingRepository implements the MeetingRepository interface
type meetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *gorm.DB) repositories.MeetingRepository {
	return &meetingRepository{db: db}
}

// EnsureMeeting returns the meeting for a room code, creating it if absent
func (r *meetingRepository) EnsureMeeting(ctx context.Context, code string) (*entities.Meeting, error) {
	meeting := entities.Meeting{Code: code}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).
		Create(&meeting).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}

	var found entities.Meeting
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load meeting: %w", err)
	}
	return &found, nil
}

// EndMeeting stamps the meeting's end time
func (r *meetingRepository) EndMeeting(ctx context.Context, code string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entities.Meeting{}).
		Where("code = ?", code).
		Update("ended_at", at).
		Error
}

// UpsertParticipant records a participant's join/leave timestamps keyed by connection
func (r *meetingRepository) UpsertParticipant(ctx context.Context, meetingID uuid.UUID, participant *entities.Participant) error {
	row := entities.MeetingParticipant{
		MeetingID:    meetingID,
		ConnectionID: participant.ConnectionID,
		UserID:       participant.UserID,
		DisplayName:  participant.Profile.Name,
		JoinedAt:     participant.JoinedAt,
	}
	if participant.LeftAt != nil {
		row.Leave(*participant.LeftAt)
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meeting_id"}, {Name: "connection_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "left_at", "duration"}),
		}).
		Create(&row).Error
}

// AppendChatMessage stores a chat message
func (r *meetingRepository) AppendChatMessage(ctx context.Context, msg *entities.ChatMessage) error {
	if msg.MeetingID == uuid.Nil {
		return fmt.Errorf("chat message for %s has no meeting", msg.RoomCode)
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListChatMessages returns the most recent messages of a room in chronological order
func (r *meetingRepository) ListChatMessages(ctx context.Context, code string, limit int) ([]*entities.ChatMessage, error) {
	var messages []*entities.ChatMessage
	query := r.db.WithContext(ctx).
		Where("room_code = ?", code).
		Order("sent_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}

	// reverse into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
