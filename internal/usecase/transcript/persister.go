package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	ucerrors "github.com/johnquangdev/meetcore/internal/usecase/errors"
	"github.com/johnquangdev/meetcore/pkg/jobcontext"
)

const (
	ContentTypeJSON     = "application/json"
	ContentTypeMarkdown = "text/markdown; charset=utf-8"
)

// ArtifactStore durably writes one object and returns its location
type ArtifactStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// FlushOutput is what a successful flush produced
type FlushOutput struct {
	Manifest entities.TranscriptManifest
	Chunks   []entities.TranscriptChunk
	Merged   string
}

// Persister turns a room's buffer into durable artifacts. At most one flush
// per room runs at a time and the buffer is only cleared after every artifact
// has been written.
type Persister struct {
	buffer     *Buffer
	store      ArtifactStore
	maxRetries uint64
	newBackOff func() backoff.BackOff
	now        func() time.Time
	logger     *zap.Logger

	mu       sync.Mutex
	flushing map[string]bool
}

// NewPersister creates a new Persister
func NewPersister(buffer *Buffer, store ArtifactStore, maxRetries uint64, logger *zap.Logger) *Persister {
	return &Persister{
		buffer:     buffer,
		store:      store,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		now:        time.Now,
		logger:     logger,
		flushing:   make(map[string]bool),
	}
}

// Flushing reports whether a flush is in flight for the room
func (p *Persister) Flushing(roomCode string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushing[roomCode]
}

func (p *Persister) acquire(roomCode string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.flushing[roomCode] {
		return false
	}
	p.flushing[roomCode] = true
	return true
}

func (p *Persister) release(roomCode string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.flushing, roomCode)
}

// Flush persists the room's chunks recorded in epoch or earlier. An empty buffer
// is a no-op that returns (nil, nil). A concurrent flush of the same room returns
// ErrFlushInProgress. On any write failure the buffer is left intact and
// ErrPersistenceFailed is returned.
func (p *Persister) Flush(ctx context.Context, roomCode string, epoch uint64) (*FlushOutput, error) {
	if !p.acquire(roomCode) {
		return nil, fmt.Errorf("%w: %s", ucerrors.ErrFlushInProgress, roomCode)
	}
	defer p.release(roomCode)

	snap := p.buffer.SnapshotThrough(roomCode, epoch)
	if snap.IsEmpty() {
		if p.logger != nil {
			p.logger.Debug("Nothing to flush", zap.String("room_code", roomCode))
		}
		return nil, nil
	}

	flushID := uuid.New()
	prefix := fmt.Sprintf("transcripts/%s/%s", SanitizeKey(roomCode), flushID)

	manifest := entities.TranscriptManifest{
		FlushID:     flushID,
		RoomCode:    roomCode,
		Epoch:       epoch,
		CreatedAt:   p.now().UTC(),
		ChunkCount:  len(snap.Chunks),
		SpeakerKeys: make(map[string]string),
	}

	raw, err := RenderRaw(roomCode, epoch, snap.Chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ucerrors.ErrPersistenceFailed, err)
	}
	if manifest.RawKey, err = p.put(ctx, prefix+"/raw.json", raw, ContentTypeJSON); err != nil {
		return nil, p.failed(roomCode, err)
	}

	merged := RenderMerged(roomCode, snap.Chunks)
	if manifest.MergedKey, err = p.put(ctx, prefix+"/merged.md", []byte(merged), ContentTypeMarkdown); err != nil {
		return nil, p.failed(roomCode, err)
	}

	used := map[string]bool{}
	for _, sp := range RenderSpeakers(roomCode, snap.Chunks) {
		name := uniqueKey(used, SanitizeKey(sp.UserID))

		loc, err := p.put(ctx, prefix+"/speakers/"+name+".md", []byte(sp.Body), ContentTypeMarkdown)
		if err != nil {
			return nil, p.failed(roomCode, err)
		}
		manifest.Speakers = append(manifest.Speakers, sp.Speaker)
		manifest.SpeakerKeys[sp.UserID] = loc
	}

	manifest.ManifestKey = prefix + "/manifest.json"
	body, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ucerrors.ErrPersistenceFailed, err)
	}
	if manifest.ManifestKey, err = p.put(ctx, manifest.ManifestKey, body, ContentTypeJSON); err != nil {
		return nil, p.failed(roomCode, err)
	}

	// Every artifact is durable, only now may the buffer forget these chunks
	removed := p.buffer.Discard(roomCode, snap)

	if p.logger != nil {
		p.logger.Info("💾 Transcript flushed",
			zap.String("room_code", roomCode),
			zap.Uint64("epoch", epoch),
			zap.String("flush_id", flushID.String()),
			zap.Int("chunks", removed),
			zap.Int("speakers", len(manifest.Speakers)),
		)
	}

	return &FlushOutput{
		Manifest: manifest,
		Chunks:   snap.Chunks,
		Merged:   merged,
	}, nil
}

// uniqueKey returns base, or base-N for the first N that is not taken yet,
// and marks the result as taken
func uniqueKey(used map[string]bool, base string) string {
	name := base
	for n := 1; used[name]; n++ {
		name = fmt.Sprintf("%s-%d", base, n)
	}
	used[name] = true
	return name
}

func (p *Persister) put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	var location string
	op := func() error {
		loc, err := p.store.Put(ctx, key, body, contentType)
		if err != nil {
			if p.logger != nil {
				p.logger.Warn("Artifact write failed",
					zap.String("key", key),
					zap.Error(err),
				)
			}
			return jobcontext.Classify(err)
		}
		location = loc
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), p.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	return location, nil
}

func (p *Persister) failed(roomCode string, err error) error {
	if p.logger != nil {
		p.logger.Error("❌ Transcript flush failed, buffer retained",
			zap.String("room_code", roomCode),
			zap.Int("buffered", p.buffer.Len(roomCode)),
			zap.Error(err),
		)
	}
	return fmt.Errorf("%w: %v", ucerrors.ErrPersistenceFailed, err)
}
