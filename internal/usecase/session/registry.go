package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	ucerrors "github.com/johnquangdev/meetcore/internal/usecase/errors"
)

// JoinResult describes an admitted participant and who was already in the room
type JoinResult struct {
	Participant   entities.Participant
	ExistingPeers []entities.Participant
	Epoch         uint64
	// NewEpoch is set when this join moved the room out of a zero-member state
	NewEpoch bool
}

// LeaveResult describes a departure and what is left behind
type LeaveResult struct {
	Participant entities.Participant
	Remaining   []entities.Participant
	Epoch       uint64
	// RoomEmptied is reported exactly once per epoch, on the departure that
	// brings the active count to zero
	RoomEmptied bool
}

type room struct {
	code      string
	state     entities.RoomState
	epoch     uint64
	createdAt time.Time
	// members is keyed by connection id, order tracks admission
	members map[string]*entities.Participant
	order   []string
	emptied bool
}

func (r *room) active() []entities.Participant {
	out := make([]entities.Participant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.members[id])
	}
	return out
}

func (r *room) remove(connectionID string) {
	delete(r.members, connectionID)
	for i, id := range r.order {
		if id == connectionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Registry is the authoritative membership of every live room. It is the only
// place that decides whether a join is admitted, so capacity holds under any
// interleaving of joins.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*room
	conns    map[string]string
	enricher ProfileEnricher
	capacity int
	epochSeq uint64
	now      func() time.Time
	logger   *zap.Logger
}

// NewRegistry creates a new registry. A nil enricher falls back to placeholder profiles.
func NewRegistry(enricher ProfileEnricher, logger *zap.Logger) *Registry {
	if enricher == nil {
		enricher = PlaceholderEnricher{}
	}
	return &Registry{
		rooms:    make(map[string]*room),
		conns:    make(map[string]string),
		enricher: enricher,
		capacity: entities.RoomCapacity,
		now:      time.Now,
		logger:   logger,
	}
}

// Join admits connectionID into code, or rejects it with ErrRoomFull leaving
// the room untouched.
func (r *Registry) Join(ctx context.Context, code, userID, connectionID string) (*JoinResult, error) {
	if code == "" || userID == "" || connectionID == "" {
		return nil, fmt.Errorf("%w: room code, user id and connection id are required", ucerrors.ErrInvalidInput)
	}

	// Reject early so a full room never pays for a profile lookup
	r.mu.Lock()
	if err := r.admissible(code, connectionID); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()

	profile := r.enricher.Enrich(ctx, userID)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check: another join may have filled the room while enriching
	if err := r.admissible(code, connectionID); err != nil {
		return nil, err
	}

	rm, ok := r.rooms[code]
	if !ok {
		rm = &room{
			code:      code,
			state:     entities.RoomStateEmpty,
			createdAt: r.now(),
			members:   make(map[string]*entities.Participant),
		}
		r.rooms[code] = rm
	}

	existing := rm.active()
	newEpoch := false
	if len(rm.members) == 0 {
		r.epochSeq++
		rm.epoch = r.epochSeq
		rm.emptied = false
		newEpoch = true
	}
	rm.state = entities.RoomStateActive

	p := &entities.Participant{
		ConnectionID: connectionID,
		UserID:       userID,
		Profile:      profile,
		JoinedAt:     r.now(),
	}
	rm.members[connectionID] = p
	rm.order = append(rm.order, connectionID)
	r.conns[connectionID] = code

	if r.logger != nil {
		r.logger.Info("👋 Participant joined",
			zap.String("room_code", code),
			zap.String("user_id", userID),
			zap.String("connection_id", connectionID),
			zap.Uint64("epoch", rm.epoch),
			zap.Int("active", len(rm.members)),
		)
	}

	return &JoinResult{
		Participant:   *p,
		ExistingPeers: existing,
		Epoch:         rm.epoch,
		NewEpoch:      newEpoch,
	}, nil
}

// admissible must be called with r.mu held
func (r *Registry) admissible(code, connectionID string) error {
	if current, ok := r.conns[connectionID]; ok {
		return fmt.Errorf("%w: connection %s is in room %s", ucerrors.ErrAlreadyInRoom, connectionID, current)
	}
	if rm, ok := r.rooms[code]; ok && len(rm.members) >= r.capacity {
		return fmt.Errorf("%w: %s has %d participants", ucerrors.ErrRoomFull, code, len(rm.members))
	}
	return nil
}

// Leave removes connectionID from code. Leaving a room the connection is not
// in returns ErrNotInRoom and changes nothing.
func (r *Registry) Leave(ctx context.Context, code, connectionID string) (*LeaveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ucerrors.ErrNotInRoom, code)
	}
	p, ok := rm.members[connectionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s not in %s", ucerrors.ErrNotInRoom, connectionID, code)
	}

	left := *p
	left.Leave(r.now())
	rm.remove(connectionID)
	delete(r.conns, connectionID)

	result := &LeaveResult{
		Participant: left,
		Remaining:   rm.active(),
		Epoch:       rm.epoch,
	}

	if len(rm.members) == 0 && !rm.emptied {
		rm.emptied = true
		rm.state = entities.RoomStateDraining
		result.RoomEmptied = true
	}

	if r.logger != nil {
		r.logger.Info("🚪 Participant left",
			zap.String("room_code", code),
			zap.String("user_id", left.UserID),
			zap.String("connection_id", connectionID),
			zap.Uint64("epoch", rm.epoch),
			zap.Int("remaining", len(rm.members)),
			zap.Bool("room_emptied", result.RoomEmptied),
		)
	}

	return result, nil
}

// Disconnect removes a connection from whatever room it is in
func (r *Registry) Disconnect(ctx context.Context, connectionID string) (string, *LeaveResult, error) {
	code, ok := r.RoomOf(connectionID)
	if !ok {
		return "", nil, ucerrors.ErrNotInRoom
	}
	result, err := r.Leave(ctx, code, connectionID)
	return code, result, err
}

// RoomOf returns the room a connection is currently in
func (r *Registry) RoomOf(connectionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.conns[connectionID]
	return code, ok
}

// Membership locates a connection: its room, the room's epoch and the participant
type Membership struct {
	RoomCode    string
	Epoch       uint64
	Participant entities.Participant
}

// Lookup returns the membership of an active connection
func (r *Registry) Lookup(connectionID string) (Membership, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.conns[connectionID]
	if !ok {
		return Membership{}, false
	}
	rm := r.rooms[code]
	p, ok := rm.members[connectionID]
	if !ok {
		return Membership{}, false
	}
	return Membership{RoomCode: code, Epoch: rm.epoch, Participant: *p}, true
}

// Epoch returns the room's current epoch
func (r *Registry) Epoch(code string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return 0, false
	}
	return rm.epoch, true
}

// Members returns the active participants of a room in admission order
func (r *Registry) Members(code string) []entities.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return nil
	}
	return rm.active()
}

// Snapshot returns a copy of a room's state, or ErrRoomNotFound
func (r *Registry) Snapshot(code string) (*entities.RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ucerrors.ErrRoomNotFound, code)
	}
	return &entities.RoomSnapshot{
		Code:         rm.code,
		State:        rm.state,
		Epoch:        rm.epoch,
		CreatedAt:    rm.createdAt,
		Capacity:     r.capacity,
		Participants: rm.active(),
	}, nil
}

// Rooms lists the codes of all tracked rooms, sorted
func (r *Registry) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// MarkPersisted moves a draining room to Persisted. It is a no-op when the
// room has since been rejoined (a newer epoch) or is not draining.
func (r *Registry) MarkPersisted(code string, epoch uint64) bool {
	return r.advance(code, epoch, entities.RoomStateDraining, entities.RoomStatePersisted)
}

// MarkAnalyzed moves a persisted room to Analyzed and forgets it if nobody is
// connected, so the next join starts from Empty.
func (r *Registry) MarkAnalyzed(code string, epoch uint64) bool {
	if !r.advance(code, epoch, entities.RoomStatePersisted, entities.RoomStateAnalyzed) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok := r.rooms[code]; ok && rm.epoch == epoch && len(rm.members) == 0 {
		delete(r.rooms, code)
	}
	return true
}

// Draining reports whether the room is still waiting for the flush of epoch
func (r *Registry) Draining(code string, epoch uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	return ok && rm.epoch == epoch && rm.state == entities.RoomStateDraining
}

func (r *Registry) advance(code string, epoch uint64, from, to entities.RoomState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok || rm.epoch != epoch || rm.state != from {
		return false
	}
	rm.state = to

	if r.logger != nil {
		r.logger.Debug("Room state changed",
			zap.String("room_code", code),
			zap.Uint64("epoch", epoch),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
	}
	return true
}

// HasUser reports whether userID has an active connection in code
func (r *Registry) HasUser(code, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return false
	}
	for _, p := range rm.members {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
