package entities

// Client to core events
const (
	EventJoinRoom        = "join-room"
	EventLeaveRoom       = "leave-room"
	EventOffer           = "offer"
	EventAnswer          = "answer"
	EventIceCandidate    = "ice-candidate"
	EventSendMessage     = "send-message"
	EventToggleMedia     = "toggle-media"
	EventTranscriptChunk = "transcript-chunk"
	EventEndMeeting      = "end-meeting"
)

// Core to client events
const (
	EventExistingUsers    = "existing-users"
	EventUserJoined       = "user-joined"
	EventUserLeft         = "user-left"
	EventRoomFull         = "room-full"
	EventChatHistory      = "chat-history"
	EventReceiveMessage   = "receive-message"
	EventMediaToggled     = "media-toggled"
	EventTranscriptSaved  = "transcript-saved"
	EventAnalysisComplete = "analysis-complete"
	EventLiveInsights     = "live-insights"
	EventError            = "error"
)

// MediaKind is a local media track a participant can toggle
type MediaKind string

const (
	MediaAudio  MediaKind = "audio"
	MediaVideo  MediaKind = "video"
	MediaScreen MediaKind = "screen"
)

// IsValid checks if the media kind is known
func (k MediaKind) IsValid() bool {
	switch k {
	case MediaAudio, MediaVideo, MediaScreen:
		return true
	}
	return false
}
