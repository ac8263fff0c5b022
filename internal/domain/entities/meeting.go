package entities

import (
	"time"

	"github.com/google/uuid"
)

// Meeting is the persisted record of a room code being used
type Meeting struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Code      string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Meeting
func (Meeting) TableName() string {
	return "meetings"
}

// MeetingParticipant is the persisted attendance of one connection
type MeetingParticipant struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	MeetingID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_meeting_connection" json:"meeting_id"`
	ConnectionID string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_meeting_connection" json:"connection_id"`
	UserID       string     `gorm:"type:varchar(128);not null;index" json:"user_id"`
	DisplayName  string     `gorm:"type:varchar(255)" json:"display_name"`
	JoinedAt     time.Time  `gorm:"not null" json:"joined_at"`
	LeftAt       *time.Time `json:"left_at,omitempty"`
	Duration     *int       `json:"duration,omitempty"` // seconds in meeting
}

// TableName specifies the table name for MeetingParticipant
func (MeetingParticipant) TableName() string {
	return "meeting_participants"
}

// Leave marks the participant as left and calculates duration
func (p *MeetingParticipant) Leave(at time.Time) {
	p.LeftAt = &at
	duration := int(at.Sub(p.JoinedAt).Seconds())
	p.Duration = &duration
}

// ChatMessage is a persisted in-room chat message
type ChatMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	MeetingID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	RoomCode  string    `gorm:"type:varchar(64);not null;index" json:"roomCode"`
	SenderID  string    `gorm:"type:varchar(64)" json:"senderId"`
	UserID    string    `gorm:"type:varchar(128);not null" json:"userId"`
	UserName  string    `gorm:"type:varchar(255)" json:"userName"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	SentAt    time.Time `gorm:"not null;index" json:"sentAt"`
}

// TableName specifies the table name for ChatMessage
func (ChatMessage) TableName() string {
	return "chat_messages"
}
