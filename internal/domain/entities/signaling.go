package entities

import "encoding/json"

// SignalKind is the negotiation message variant
type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalIceCandidate SignalKind = "ice-candidate"
)

// IsValid checks if the kind is one of the relayable variants
func (k SignalKind) IsValid() bool {
	switch k {
	case SignalOffer, SignalAnswer, SignalIceCandidate:
		return true
	}
	return false
}

// PayloadField returns the wire field that carries the opaque payload
func (k SignalKind) PayloadField() string {
	if k == SignalIceCandidate {
		return "candidate"
	}
	return "sdp"
}

// SignalingMessage is an in-flight negotiation message between two connections.
// It is never stored.
type SignalingMessage struct {
	Kind     SignalKind
	SenderID string
	TargetID string
	Payload  json.RawMessage
}
