package rtc

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/internal/usecase/signaling"
)

// CandidateFunc is called for every local candidate gathered for a peer link
type CandidateFunc func(peerID string, candidate webrtc.ICECandidateInit)

// DefaultConfig returns the ICE configuration used when none is supplied
func DefaultConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
}

// Mesh holds one peer connection per remote peer, as a browser in a mesh
// room does. Remote candidates go through an IceQueue so none is applied
// before that link's remote description.
type Mesh struct {
	cfg         webrtc.Configuration
	onCandidate CandidateFunc
	logger      *zap.Logger

	// lock order: ice (held during apply) before mu. Never call ice with mu held.
	mu    sync.Mutex
	links map[string]*webrtc.PeerConnection
	ice   *signaling.IceQueue[webrtc.ICECandidateInit]
}

// NewMesh creates a new Mesh
func NewMesh(cfg webrtc.Configuration, onCandidate CandidateFunc, logger *zap.Logger) *Mesh {
	m := &Mesh{
		cfg:         cfg,
		onCandidate: onCandidate,
		logger:      logger,
		links:       make(map[string]*webrtc.PeerConnection),
	}
	m.ice = signaling.NewIceQueue[webrtc.ICECandidateInit](m.apply)
	return m
}

func (m *Mesh) apply(peerID string, candidate webrtc.ICECandidateInit) error {
	m.mu.Lock()
	pc, ok := m.links[peerID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no peer link for %s", peerID)
	}
	return pc.AddICECandidate(candidate)
}

func (m *Mesh) link(peerID string) (*webrtc.PeerConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pc, ok := m.links[peerID]; ok {
		return pc, nil
	}

	pc, err := webrtc.NewPeerConnection(m.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c != nil && m.onCandidate != nil {
			m.onCandidate(peerID, c.ToJSON())
		}
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		if m.logger != nil {
			m.logger.Info("Peer link state",
				zap.String("peer_id", peerID),
				zap.String("state", s.String()),
			)
		}
	})

	m.links[peerID] = pc
	return pc, nil
}

// CreateOffer opens a link to peerID and returns the local offer SDP
func (m *Mesh) CreateOffer(peerID string) (string, error) {
	pc, err := m.link(peerID)
	if err != nil {
		return "", err
	}
	if _, err := pc.CreateDataChannel("meetcore", nil); err != nil {
		return "", fmt.Errorf("failed to create data channel: %w", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("failed to set local offer: %w", err)
	}
	return offer.SDP, nil
}

// HandleOffer applies a remote offer, drains queued candidates and returns the
// answer SDP. A queued candidate that cannot be applied fails the call.
func (m *Mesh) HandleOffer(peerID, sdp string) (string, error) {
	pc, err := m.link(peerID)
	if err != nil {
		return "", err
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}); err != nil {
		return "", fmt.Errorf("failed to set remote offer: %w", err)
	}
	if err := m.drain(peerID); err != nil {
		return "", err
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("failed to set local answer: %w", err)
	}
	return answer.SDP, nil
}

// HandleAnswer applies the remote answer to an offer created earlier
func (m *Mesh) HandleAnswer(peerID, sdp string) error {
	m.mu.Lock()
	pc, ok := m.links[peerID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("answer from %s without an offer", peerID)
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}); err != nil {
		return fmt.Errorf("failed to set remote answer: %w", err)
	}
	return m.drain(peerID)
}

// AddCandidate applies or buffers a remote candidate. It reports whether the
// candidate was applied immediately.
func (m *Mesh) AddCandidate(peerID string, candidate webrtc.ICECandidateInit) (bool, error) {
	if _, err := m.link(peerID); err != nil {
		return false, err
	}
	return m.ice.Add(peerID, candidate)
}

// Pending returns how many remote candidates wait for peerID's remote description
func (m *Mesh) Pending(peerID string) int {
	return m.ice.Pending(peerID)
}

// drain applies the candidates queued for peerID. On error the rejected
// candidate and those after it stay queued and the link keeps buffering, so
// the caller should Close the link and renegotiate.
func (m *Mesh) drain(peerID string) error {
	n, err := m.ice.MarkRemoteDescriptionSet(peerID)
	if err != nil {
		return err
	}
	if n > 0 && m.logger != nil {
		m.logger.Debug("Queued candidates applied", zap.String("peer_id", peerID), zap.Int("count", n))
	}
	return nil
}

// Close tears down the link to peerID and forgets its queue
func (m *Mesh) Close(peerID string) {
	m.mu.Lock()
	pc, ok := m.links[peerID]
	delete(m.links, peerID)
	m.mu.Unlock()

	m.ice.Reset(peerID)
	if ok {
		if err := pc.Close(); err != nil && m.logger != nil {
			m.logger.Warn("Failed to close peer link", zap.String("peer_id", peerID), zap.Error(err))
		}
	}
}

// CloseAll tears down every link
func (m *Mesh) CloseAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.links))
	for id := range m.links {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Close(id)
	}
}
