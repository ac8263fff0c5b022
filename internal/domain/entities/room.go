package entities

import "time"

// RoomCapacity is the maximum number of concurrently active participants in a room
const RoomCapacity = 4

// RoomState represents where a room is in its lifecycle
type RoomState string

const (
	RoomStateEmpty     RoomState = "empty"
	RoomStateActive    RoomState = "active"
	RoomStateDraining  RoomState = "draining"
	RoomStatePersisted RoomState = "persisted"
	RoomStateAnalyzed  RoomState = "analyzed"
)

// Profile is the display metadata attached to a participant
type Profile struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	Activity  string `json:"activity"`
	AvatarURL string `json:"avatar"`
}

// Participant is one live connection inside a room
type Participant struct {
	ConnectionID string     `json:"connectionId"`
	UserID       string     `json:"userId"`
	Profile      Profile    `json:"profile"`
	JoinedAt     time.Time  `json:"joinedAt"`
	LeftAt       *time.Time `json:"leftAt,omitempty"`
}

// IsActive checks if the participant is still in the room
func (p *Participant) IsActive() bool {
	return p.LeftAt == nil
}

// Leave marks the participant as left
func (p *Participant) Leave(at time.Time) {
	p.LeftAt = &at
}

// RoomSnapshot is a point-in-time copy of a room's membership
type RoomSnapshot struct {
	Code         string        `json:"code"`
	State        RoomState     `json:"state"`
	Epoch        uint64        `json:"epoch"`
	CreatedAt    time.Time     `json:"createdAt"`
	Capacity     int           `json:"capacity"`
	Participants []Participant `json:"participants"`
}
