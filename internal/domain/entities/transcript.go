package entities

import (
	"time"

	"github.com/google/uuid"
)

// TranscriptChunk is one attributed segment of recognized speech
type TranscriptChunk struct {
	Seq              uint64    `json:"seq"`
	Epoch            uint64    `json:"epoch"`
	UserID           string    `json:"userId"`
	UserName         string    `json:"userName"`
	Text             string    `json:"text"`
	ClientTimestamp  time.Time `json:"clientTimestamp"`
	ServerReceivedAt time.Time `json:"serverReceivedAt"`
}

// Speaker is the display label used in narratives
func (c TranscriptChunk) Speaker() string {
	if c.UserName != "" {
		return c.UserName
	}
	return c.UserID
}

// TranscriptManifest lists the artifacts written by one flush
type TranscriptManifest struct {
	FlushID     uuid.UUID         `json:"flushId"`
	RoomCode    string            `json:"roomCode"`
	Epoch       uint64            `json:"epoch"`
	CreatedAt   time.Time         `json:"createdAt"`
	ChunkCount  int               `json:"chunkCount"`
	Speakers    []string          `json:"speakers"`
	RawKey      string            `json:"rawKey"`
	MergedKey   string            `json:"mergedKey"`
	SpeakerKeys map[string]string `json:"speakerKeys"`
	ManifestKey string            `json:"manifestKey,omitempty"`
	ReportKey   string            `json:"reportKey,omitempty"`
}
