package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MeetingReport is the persisted analysis of one flushed transcript
type MeetingReport struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RoomCode  string         `json:"room_code" gorm:"type:varchar(64);not null;index"`
	FlushID   uuid.UUID      `json:"flush_id" gorm:"type:uuid;not null;uniqueIndex"`
	Epoch     uint64         `json:"epoch"`
	Summary   string         `json:"summary" gorm:"type:text;not null"`
	Sentiment Sentiment      `json:"sentiment" gorm:"type:varchar(20);not null"`
	Result    datatypes.JSON `json:"result" gorm:"type:jsonb;not null"`
	Manifest  datatypes.JSON `json:"manifest" gorm:"type:jsonb;not null"`
	ReportKey string         `json:"report_key" gorm:"type:varchar(500)"`
	Degraded  bool           `json:"degraded" gorm:"default:false;not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for MeetingReport
func (MeetingReport) TableName() string {
	return "meeting_reports"
}
