package meeting

import (
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
)

// RoomFullPayload is sent to a connection whose join was rejected
type RoomFullPayload struct {
	RoomCode string `json:"roomCode"`
	Capacity int    `json:"capacity"`
}

// UserLeftPayload is broadcast to the remaining members after a departure
type UserLeftPayload struct {
	RoomCode     string `json:"roomCode"`
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
}

// MediaToggledPayload is broadcast when a participant toggles a track
type MediaToggledPayload struct {
	ConnectionID string             `json:"connectionId"`
	UserID       string             `json:"userId"`
	Kind         entities.MediaKind `json:"kind"`
	Status       bool               `json:"status"`
}

// TranscriptSavedPayload announces a completed flush
type TranscriptSavedPayload struct {
	RoomCode string                      `json:"roomCode"`
	Manifest entities.TranscriptManifest `json:"manifest"`
}

// AnalysisCompletePayload carries the report for a flush
type AnalysisCompletePayload struct {
	RoomCode  string                  `json:"roomCode"`
	FlushID   uuid.UUID               `json:"flushId"`
	Result    entities.AnalysisResult `json:"result"`
	Degraded  bool                    `json:"degraded"`
	ReportKey string                  `json:"reportKey,omitempty"`
}

// LiveInsightsPayload carries tasks and topics detected mid-meeting
type LiveInsightsPayload struct {
	RoomCode string                `json:"roomCode"`
	Tasks    []entities.ActionItem `json:"tasks"`
	Topics   []string              `json:"topics"`
}

// ChunkInput is one transcript-chunk event. The speaker's user id always comes
// from the connection's membership.
type ChunkInput struct {
	UserName  string
	Text      string
	Timestamp time.Time
}

// EndResult reports what an explicit end produced
type EndResult struct {
	RoomCode string `json:"roomCode"`
	Epoch    uint64 `json:"epoch"`
	Buffered int    `json:"buffered"`
}
