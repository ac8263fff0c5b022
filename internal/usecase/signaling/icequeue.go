package signaling

import (
	"fmt"
	"sync"
)

// ApplyFunc applies one remote candidate to the peer link identified by peerID
type ApplyFunc[C any] func(peerID string, candidate C) error

// IceQueue buffers connectivity candidates per originating peer until that peer
// link's remote description is set, then applies them in arrival order.
//
// The apply func runs while the queue lock is held so a candidate added during a
// drain cannot overtake buffered ones. It must not call back into the queue.
type IceQueue[C any] struct {
	mu    sync.Mutex
	peers map[string]*peerQueue[C]
	apply ApplyFunc[C]
}

type peerQueue[C any] struct {
	remoteSet bool
	pending   []C
}

// NewIceQueue creates a queue that hands candidates to apply once they may be used
func NewIceQueue[C any](apply ApplyFunc[C]) *IceQueue[C] {
	return &IceQueue[C]{
		peers: make(map[string]*peerQueue[C]),
		apply: apply,
	}
}

func (q *IceQueue[C]) peer(peerID string) *peerQueue[C] {
	p, ok := q.peers[peerID]
	if !ok {
		p = &peerQueue[C]{}
		q.peers[peerID] = p
	}
	return p
}

// Add applies the candidate immediately when the remote description is already
// set, otherwise buffers it. It reports whether the candidate was applied.
func (q *IceQueue[C]) Add(peerID string, candidate C) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	p := q.peer(peerID)
	if !p.remoteSet {
		p.pending = append(p.pending, candidate)
		return false, nil
	}

	if err := q.apply(peerID, candidate); err != nil {
		return false, fmt.Errorf("failed to apply candidate for %s: %w", peerID, err)
	}
	return true, nil
}

// MarkRemoteDescriptionSet drains the peer's buffered candidates in FIFO order and
// discards the buffer. If a candidate fails to apply, it and every later candidate
// stay queued and the error is returned so the caller can retry.
func (q *IceQueue[C]) MarkRemoteDescriptionSet(peerID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	p := q.peer(peerID)
	applied := 0
	for len(p.pending) > 0 {
		if err := q.apply(peerID, p.pending[0]); err != nil {
			return applied, fmt.Errorf("failed to drain candidate %d for %s: %w", applied, peerID, err)
		}
		p.pending = p.pending[1:]
		applied++
	}

	p.pending = nil
	p.remoteSet = true
	return applied, nil
}

// Pending returns how many candidates are buffered for a peer
func (q *IceQueue[C]) Pending(peerID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if p, ok := q.peers[peerID]; ok {
		return len(p.pending)
	}
	return 0
}

// RemoteDescriptionSet reports whether candidates for the peer are applied directly
func (q *IceQueue[C]) RemoteDescriptionSet(peerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.peers[peerID]
	return ok && p.remoteSet
}

// Reset forgets the peer, e.g. when its link is renegotiated from scratch or closed
func (q *IceQueue[C]) Reset(peerID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.peers, peerID)
}
