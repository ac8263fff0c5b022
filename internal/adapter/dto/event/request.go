package event

import (
	"encoding/json"
)

// Envelope is the frame every websocket message travels in, in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRoomRequest is the join-room payload. UserID is ignored when the
// connection carries a verified identity.
type JoinRoomRequest struct {
	RoomCode string `json:"roomCode" validate:"required,max=64"`
	UserID   string `json:"userId" validate:"omitempty,max=128"`
}

// LeaveRoomRequest is the leave-room payload
type LeaveRoomRequest struct {
	RoomCode string `json:"roomCode" validate:"omitempty,max=64"`
	UserID   string `json:"userId,omitempty"`
}

// SessionDescriptionRequest is the offer and answer payload. The sdp value is
// relayed untouched.
type SessionDescriptionRequest struct {
	SDP      json.RawMessage `json:"sdp" validate:"required"`
	TargetID string          `json:"targetId" validate:"required,max=64"`
}

// IceCandidateRequest is the ice-candidate payload. A candidate without a
// target cannot be routed and is dropped.
type IceCandidateRequest struct {
	Candidate json.RawMessage `json:"candidate" validate:"required"`
	TargetID  string          `json:"targetId,omitempty" validate:"omitempty,max=64"`
}

// SendMessageRequest is the send-message payload
type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// ToggleMediaRequest is the toggle-media payload
type ToggleMediaRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=audio video screen"`
	Status *bool  `json:"status" validate:"required"`
}

// TranscriptChunkRequest is the transcript-chunk payload. UserID is accepted
// for compatibility but the speaker is always the sending connection.
type TranscriptChunkRequest struct {
	Text      string       `json:"text" validate:"required,max=8000"`
	UserID    string       `json:"userId,omitempty"`
	UserName  string       `json:"userName,omitempty" validate:"omitempty,max=255"`
	Timestamp FlexibleTime `json:"timestamp"`
}

// EndMeetingRequest is the end-meeting payload
type EndMeetingRequest struct {
	RoomCode string `json:"roomCode" validate:"omitempty,max=64"`
}
