package room

import (
	"encoding/json"
	"time"
)

// ParticipantResponse represents an active participant in responses
type ParticipantResponse struct {
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Activity     string    `json:"activity"`
	AvatarURL    string    `json:"avatar_url"`
	JoinedAt     time.Time `json:"joined_at"`
}

// RoomResponse represents a live room in responses
type RoomResponse struct {
	Code         string                `json:"code"`
	State        string                `json:"state"`
	Epoch        uint64                `json:"epoch"`
	Capacity     int                   `json:"capacity"`
	Active       int                   `json:"active"`
	CreatedAt    time.Time             `json:"created_at"`
	Participants []ParticipantResponse `json:"participants"`
}

// EndRoomResponse is returned when an end request was accepted
type EndRoomResponse struct {
	Code     string `json:"code"`
	Epoch    uint64 `json:"epoch"`
	Buffered int    `json:"buffered"`
	Status   string `json:"status"`
}

// ReportResponse represents a stored meeting report
type ReportResponse struct {
	ID        string          `json:"id"`
	RoomCode  string          `json:"room_code"`
	FlushID   string          `json:"flush_id"`
	Epoch     uint64          `json:"epoch"`
	Summary   string          `json:"summary"`
	Sentiment string          `json:"sentiment"`
	Degraded  bool            `json:"degraded"`
	ReportKey string          `json:"report_key,omitempty"`
	Result    json.RawMessage `json:"result" swaggertype:"object"`
	Manifest  json.RawMessage `json:"manifest" swaggertype:"object"`
	CreatedAt time.Time       `json:"created_at"`
}
