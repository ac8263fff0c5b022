package transcript

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
)

// Snapshot is a sorted copy of a room's buffer. UpTo is the highest sequence
// number included and Epoch the newest epoch included, used to discard exactly
// these chunks after a flush.
type Snapshot struct {
	Chunks []entities.TranscriptChunk
	UpTo   uint64
	Epoch  uint64
}

// IsEmpty reports whether the snapshot holds no chunks
func (s Snapshot) IsEmpty() bool {
	return len(s.Chunks) == 0
}

// Buffer is the per-room in-memory transcript log. Chunks are kept in arrival
// order and only sorted by client timestamp when read.
type Buffer struct {
	mu    sync.Mutex
	rooms map[string][]entities.TranscriptChunk
	seq   uint64
	now   func() time.Time
}

// NewBuffer creates a new transcript buffer
func NewBuffer() *Buffer {
	return &Buffer{
		rooms: make(map[string][]entities.TranscriptChunk),
		now:   time.Now,
	}
}

// AddChunk appends a chunk to the room under the room's current epoch. A chunk
// whose userID and byte-identical text equal the room's immediately preceding
// stored chunk is dropped, as is blank text. Text is stored as received. It returns the stored chunk and whether it was stored.
func (b *Buffer) AddChunk(roomCode string, epoch uint64, userID, userName, text string, clientTimestamp time.Time) (entities.TranscriptChunk, bool) {
	if strings.TrimSpace(text) == "" {
		return entities.TranscriptChunk{}, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	chunks := b.rooms[roomCode]
	if n := len(chunks); n > 0 {
		last := chunks[n-1]
		if last.UserID == userID && last.Text == text {
			return last, false
		}
	}

	received := b.now()
	if clientTimestamp.IsZero() {
		clientTimestamp = received
	}

	b.seq++
	chunk := entities.TranscriptChunk{
		Seq:              b.seq,
		Epoch:            epoch,
		UserID:           userID,
		UserName:         userName,
		Text:             text,
		ClientTimestamp:  clientTimestamp,
		ServerReceivedAt: received,
	}
	b.rooms[roomCode] = append(chunks, chunk)
	return chunk, true
}

// Snapshot returns a copy of the room's chunks sorted ascending by client
// timestamp. Ties keep arrival order.
func (b *Buffer) Snapshot(roomCode string) Snapshot {
	return b.SnapshotThrough(roomCode, math.MaxUint64)
}

// SnapshotThrough is Snapshot restricted to chunks recorded in epoch or earlier,
// so a rejoin does not leak into the flush of the session that just ended
func (b *Buffer) SnapshotThrough(roomCode string, epoch uint64) Snapshot {
	b.mu.Lock()
	chunks := make([]entities.TranscriptChunk, 0, len(b.rooms[roomCode]))
	for _, c := range b.rooms[roomCode] {
		if c.Epoch <= epoch {
			chunks = append(chunks, c)
		}
	}
	b.mu.Unlock()

	snap := Snapshot{Chunks: chunks}
	for _, c := range chunks {
		if c.Seq > snap.UpTo {
			snap.UpTo = c.Seq
		}
		if c.Epoch > snap.Epoch {
			snap.Epoch = c.Epoch
		}
	}
	sortChunks(chunks)
	return snap
}

// Recent returns the last n chunks received for a room, sorted by client timestamp
func (b *Buffer) Recent(roomCode string, n int) []entities.TranscriptChunk {
	b.mu.Lock()
	all := b.rooms[roomCode]
	if n <= 0 || n > len(all) {
		n = len(all)
	}
	chunks := make([]entities.TranscriptChunk, n)
	copy(chunks, all[len(all)-n:])
	b.mu.Unlock()

	sortChunks(chunks)
	return chunks
}

// Discard removes the chunks covered by snap. Chunks that arrived after the
// snapshot was taken, or belong to a later epoch, are kept.
func (b *Buffer) Discard(roomCode string, snap Snapshot) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	chunks := b.rooms[roomCode]
	kept := chunks[:0]
	removed := 0
	for _, c := range chunks {
		if c.Seq <= snap.UpTo && c.Epoch <= snap.Epoch {
			removed++
			continue
		}
		kept = append(kept, c)
	}

	if len(kept) == 0 {
		delete(b.rooms, roomCode)
	} else {
		b.rooms[roomCode] = kept
	}
	return removed
}

// Len returns how many chunks are buffered for a room
func (b *Buffer) Len(roomCode string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.rooms[roomCode])
}

func sortChunks(chunks []entities.TranscriptChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].ClientTimestamp.Before(chunks[j].ClientTimestamp)
	})
}
