package meeting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	"github.com/johnquangdev/meetcore/internal/domain/repositories"
	"github.com/johnquangdev/meetcore/internal/usecase/analysis"
	ucerrors "github.com/johnquangdev/meetcore/internal/usecase/errors"
	"github.com/johnquangdev/meetcore/internal/usecase/session"
	"github.com/johnquangdev/meetcore/internal/usecase/signaling"
	"github.com/johnquangdev/meetcore/internal/usecase/transcript"
	"github.com/johnquangdev/meetcore/pkg/jobcontext"
)

const pipelineJobType = "transcript_pipeline"

// Options tune the coordinator
type Options struct {
	PipelineTimeout    time.Duration
	LiveEvery          int
	LiveWindow         int
	ChatHistoryLimit   int
	FlushRetryInterval time.Duration
	FlushRetries       uint64
	// A drained room whose flush failed is retried with exponential backoff
	// starting at DrainRetryInterval, at most DrainRetries times
	DrainRetryInterval time.Duration
	DrainRetries       uint64
}

// Deps are the collaborators of a Coordinator. Meetings and Reports may be nil.
type Deps struct {
	Registry  *session.Registry
	Relay     *signaling.Relay
	Buffer    *transcript.Buffer
	Persister *transcript.Persister
	Analysis  *analysis.Service
	Meetings  repositories.MeetingRepository
	Reports   repositories.ReportRepository
	Notifier  Notifier
}

// Coordinator drives the room lifecycle: membership and announcements, chat,
// transcript buffering and the flush then analyze pipeline when a room ends.
type Coordinator struct {
	registry  *session.Registry
	relay     *signaling.Relay
	buffer    *transcript.Buffer
	persister *transcript.Persister
	analysis  *analysis.Service
	meetings  repositories.MeetingRepository
	reports   repositories.ReportRepository
	notifier  Notifier
	opts      Options
	now       func() time.Time
	logger    *zap.Logger

	baseCtx  context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopping chan struct{}

	mu         sync.Mutex
	closed     bool
	chunkCount map[string]int
	liveBusy   map[string]bool
	meetingIDs map[string]uuid.UUID
}

// NewCoordinator creates a new Coordinator
func NewCoordinator(deps Deps, opts Options, logger *zap.Logger) *Coordinator {
	if opts.FlushRetryInterval <= 0 {
		opts.FlushRetryInterval = 250 * time.Millisecond
	}
	if opts.FlushRetries == 0 {
		opts.FlushRetries = 40
	}
	if opts.ChatHistoryLimit <= 0 {
		opts.ChatHistoryLimit = 50
	}
	if opts.DrainRetryInterval <= 0 {
		opts.DrainRetryInterval = 5 * time.Second
	}
	if opts.DrainRetries == 0 {
		opts.DrainRetries = 6
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		registry:   deps.Registry,
		relay:      deps.Relay,
		buffer:     deps.Buffer,
		persister:  deps.Persister,
		analysis:   deps.Analysis,
		meetings:   deps.Meetings,
		reports:    deps.Reports,
		notifier:   deps.Notifier,
		opts:       opts,
		now:        time.Now,
		logger:     logger,
		baseCtx:    ctx,
		cancel:     cancel,
		stopping:   make(chan struct{}),
		chunkCount: make(map[string]int),
		liveBusy:   make(map[string]bool),
		meetingIDs: make(map[string]uuid.UUID),
	}
}

// Join admits connectionID, sends it the roster and chat history, and
// announces it to everyone already in the room
func (c *Coordinator) Join(ctx context.Context, roomCode, userID, connectionID string) (*session.JoinResult, error) {
	res, err := c.registry.Join(ctx, roomCode, userID, connectionID)
	if err != nil {
		if errors.Is(err, ucerrors.ErrRoomFull) {
			c.send(connectionID, entities.EventRoomFull, RoomFullPayload{
				RoomCode: roomCode,
				Capacity: entities.RoomCapacity,
			})
		}
		return nil, err
	}

	c.send(connectionID, entities.EventExistingUsers, res.ExistingPeers)
	c.broadcast(roomCode, entities.EventUserJoined, res.Participant, connectionID)

	c.recordParticipant(ctx, roomCode, &res.Participant)
	c.send(connectionID, entities.EventChatHistory, c.chatHistory(ctx, roomCode))

	return res, nil
}

// Leave removes connectionID from its room. An empty roomCode means the
// connection's current room.
func (c *Coordinator) Leave(ctx context.Context, roomCode, connectionID string) error {
	if roomCode == "" {
		code, ok := c.registry.RoomOf(connectionID)
		if !ok {
			return ucerrors.ErrNotInRoom
		}
		roomCode = code
	}

	res, err := c.registry.Leave(ctx, roomCode, connectionID)
	if err != nil {
		return err
	}
	c.afterLeave(ctx, roomCode, res)
	return nil
}

// Disconnect removes a closed connection from whatever room it was in
func (c *Coordinator) Disconnect(ctx context.Context, connectionID string) {
	code, res, err := c.registry.Disconnect(ctx, connectionID)
	if err != nil {
		// Connections that never joined have nothing to clean up
		return
	}
	c.afterLeave(ctx, code, res)
}

func (c *Coordinator) afterLeave(ctx context.Context, roomCode string, res *session.LeaveResult) {
	c.recordParticipant(ctx, roomCode, &res.Participant)

	payload := UserLeftPayload{
		RoomCode:     roomCode,
		ConnectionID: res.Participant.ConnectionID,
		UserID:       res.Participant.UserID,
	}
	for _, p := range res.Remaining {
		c.send(p.ConnectionID, entities.EventUserLeft, payload)
	}

	if res.RoomEmptied {
		c.mu.Lock()
		delete(c.chunkCount, roomCode)
		delete(c.meetingIDs, roomCode)
		c.mu.Unlock()

		c.startPipeline(roomCode, res.Epoch, true)
	}
}

// Signal relays a negotiation message to exactly its target
func (c *Coordinator) Signal(ctx context.Context, msg entities.SignalingMessage) error {
	return c.relay.Relay(ctx, msg)
}

// SendMessage stores a chat message and broadcasts it to the whole room, sender included
func (c *Coordinator) SendMessage(ctx context.Context, connectionID, text string) (*entities.ChatMessage, error) {
	m, ok := c.registry.Lookup(connectionID)
	if !ok {
		return nil, ucerrors.ErrNotInRoom
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty message", ucerrors.ErrInvalidInput)
	}
	roomCode, p := m.RoomCode, m.Participant

	msg := &entities.ChatMessage{
		ID:       uuid.New(),
		RoomCode: roomCode,
		SenderID: connectionID,
		UserID:   p.UserID,
		UserName: p.Profile.Name,
		Text:     text,
		SentAt:   c.now().UTC(),
	}

	if c.meetings != nil {
		if meetingID, err := c.meetingID(ctx, roomCode); err != nil {
			c.warn("Failed to resolve meeting for chat message", roomCode, err)
		} else {
			msg.MeetingID = meetingID
			if err := c.meetings.AppendChatMessage(ctx, msg); err != nil {
				c.warn("Failed to store chat message", roomCode, err)
			}
		}
	}

	c.broadcast(roomCode, entities.EventReceiveMessage, msg, "")
	return msg, nil
}

// ToggleMedia tells the other members that a participant's track changed
func (c *Coordinator) ToggleMedia(ctx context.Context, connectionID string, kind entities.MediaKind, status bool) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: unknown media kind %q", ucerrors.ErrInvalidInput, kind)
	}
	m, ok := c.registry.Lookup(connectionID)
	if !ok {
		return ucerrors.ErrNotInRoom
	}

	c.broadcast(m.RoomCode, entities.EventMediaToggled, MediaToggledPayload{
		ConnectionID: connectionID,
		UserID:       m.Participant.UserID,
		Kind:         kind,
		Status:       status,
	}, connectionID)
	return nil
}

// AddTranscriptChunk buffers a chunk under the room's current epoch. The
// speaker is the connection's participant; the payload name is only used as
// a display label. It reports whether the chunk was stored.
func (c *Coordinator) AddTranscriptChunk(ctx context.Context, connectionID string, in ChunkInput) (bool, error) {
	m, ok := c.registry.Lookup(connectionID)
	if !ok {
		return false, ucerrors.ErrNotInRoom
	}

	name := strings.TrimSpace(in.UserName)
	if name == "" {
		name = m.Participant.Profile.Name
	}

	_, stored := c.buffer.AddChunk(m.RoomCode, m.Epoch, m.Participant.UserID, name, in.Text, in.Timestamp)
	if stored {
		c.maybeDetectLive(m.RoomCode)
	}
	return stored, nil
}

// maybeDetectLive runs live detection every LiveEvery stored chunks, at most
// one call in flight per room
func (c *Coordinator) maybeDetectLive(roomCode string) {
	if c.analysis == nil || c.opts.LiveEvery <= 0 {
		return
	}

	c.mu.Lock()
	c.chunkCount[roomCode]++
	due := c.chunkCount[roomCode]%c.opts.LiveEvery == 0 && !c.liveBusy[roomCode] && !c.closed
	if due {
		c.liveBusy[roomCode] = true
		c.wg.Add(1)
	}
	c.mu.Unlock()
	if !due {
		return
	}

	recent := c.buffer.Recent(roomCode, c.opts.LiveWindow)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.liveBusy, roomCode)
			c.mu.Unlock()
		}()

		live := c.analysis.DetectLive(c.baseCtx, recent)
		if live.IsEmpty() {
			return
		}
		c.broadcast(roomCode, entities.EventLiveInsights, LiveInsightsPayload{
			RoomCode: roomCode,
			Tasks:    live.Tasks,
			Topics:   live.Topics,
		}, "")
	}()
}

// EndMeeting ends the meeting for everyone on request of a participant of that room
func (c *Coordinator) EndMeeting(ctx context.Context, connectionID, roomCode string) (*EndResult, error) {
	current, ok := c.registry.RoomOf(connectionID)
	if !ok || (roomCode != "" && roomCode != current) {
		return nil, ucerrors.ErrNotInRoom
	}
	return c.EndRoom(ctx, current)
}

// EndRoom flushes and analyzes the room's current transcript while members may still be present
func (c *Coordinator) EndRoom(ctx context.Context, roomCode string) (*EndResult, error) {
	epoch, err := c.epoch(roomCode)
	if err != nil {
		return nil, err
	}

	result := &EndResult{
		RoomCode: roomCode,
		Epoch:    epoch,
		Buffered: c.buffer.Len(roomCode),
	}
	// an empty room still draining after failed flushes finishes its lifecycle here
	c.startPipeline(roomCode, epoch, c.registry.Draining(roomCode, epoch))
	return result, nil
}

// Snapshot returns a room's current state
func (c *Coordinator) Snapshot(roomCode string) (*entities.RoomSnapshot, error) {
	return c.registry.Snapshot(roomCode)
}

// LatestReport returns the most recent stored report for a room
func (c *Coordinator) LatestReport(ctx context.Context, roomCode string) (*entities.MeetingReport, error) {
	if c.reports == nil {
		return nil, fmt.Errorf("%w: report storage disabled", ucerrors.ErrNotFound)
	}
	report, err := c.reports.FindLatestByRoomCode(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load report for %s: %w", roomCode, err)
	}
	if report == nil {
		return nil, fmt.Errorf("%w: no report for %s", ucerrors.ErrNotFound, roomCode)
	}
	return report, nil
}

// Shutdown stops accepting pipelines and waits for in-flight ones. If ctx
// expires first, in-flight work is cancelled.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.stopping)
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.cancel()
		return nil
	case <-ctx.Done():
		c.cancel()
		return fmt.Errorf("pipelines still running at shutdown: %w", ctx.Err())
	}
}

func (c *Coordinator) epoch(roomCode string) (uint64, error) {
	epoch, ok := c.registry.Epoch(roomCode)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ucerrors.ErrRoomNotFound, roomCode)
	}
	return epoch, nil
}

func (c *Coordinator) startPipeline(roomCode string, epoch uint64, emptied bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if c.logger != nil {
			c.logger.Warn("Shutting down, transcript stays buffered",
				zap.String("room_code", roomCode),
				zap.Uint64("epoch", epoch),
			)
		}
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.runPipeline(roomCode, epoch, emptied, nil)
	}()
}

// retryDrain schedules another pipeline run for a drained room whose flush
// failed. The wait is cut short by Shutdown so one last attempt runs before
// pipelines are awaited. It reports whether a retry was scheduled.
func (c *Coordinator) retryDrain(roomCode string, epoch uint64, retry backoff.BackOff) bool {
	if !c.registry.Draining(roomCode, epoch) {
		return false
	}
	delay := retry.NextBackOff()
	if delay == backoff.Stop {
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.wg.Add(1)
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("🔁 Retrying transcript flush",
			zap.String("room_code", roomCode),
			zap.Uint64("epoch", epoch),
			zap.Duration("in", delay),
		)
	}

	go func() {
		defer c.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-c.stopping:
		}
		if !c.registry.Draining(roomCode, epoch) {
			return
		}
		c.runPipeline(roomCode, epoch, true, retry)
	}()
	return true
}

func (c *Coordinator) newDrainBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.opts.DrainRetryInterval
	exp.MaxElapsedTime = 0
	return backoff.WithMaxRetries(exp, c.opts.DrainRetries)
}

// runPipeline flushes the room's transcript for epoch, analyzes it, stores
// the report and announces both steps to whoever is still in the room.
// retry carries the backoff of a drained room across failed attempts.
func (c *Coordinator) runPipeline(roomCode string, epoch uint64, emptied bool, retry backoff.BackOff) {
	ctx, cancel := jobcontext.JobBegin(c.baseCtx, pipelineJobType, roomCode, c.opts.PipelineTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil && c.logger != nil {
			c.logger.Error("🔥 Transcript pipeline panicked",
				zap.String("room_code", roomCode),
				zap.Any("panic", r),
			)
		}
	}()

	out, err := c.flush(ctx, roomCode, epoch)
	if err != nil {
		if c.logger != nil {
			meta := jobcontext.GetJobMetadata(ctx)
			c.logger.Error("❌ Transcript pipeline stopped, buffer retained",
				zap.String("job_id", meta.JobID.String()),
				zap.String("room_code", roomCode),
				zap.Uint64("epoch", epoch),
				zap.Error(err),
			)
		}
		if !emptied {
			return
		}
		if retry == nil {
			retry = c.newDrainBackOff()
		}
		if !c.retryDrain(roomCode, epoch, retry) && c.registry.Draining(roomCode, epoch) && c.logger != nil {
			c.logger.Error("🧊 Giving up on transcript flush, end the room to retry",
				zap.String("room_code", roomCode),
				zap.Uint64("epoch", epoch),
				zap.Int("buffered", c.buffer.Len(roomCode)),
			)
		}
		return
	}

	if emptied {
		c.registry.MarkPersisted(roomCode, epoch)
	}
	if out == nil {
		if emptied {
			c.registry.MarkAnalyzed(roomCode, epoch)
			c.endMeetingRow(ctx, roomCode)
		}
		return
	}

	c.broadcast(roomCode, entities.EventTranscriptSaved, TranscriptSavedPayload{
		RoomCode: roomCode,
		Manifest: out.Manifest,
	}, "")

	outcome := c.analysis.AnalyzeDetailed(ctx, out.Merged)

	var reportKey string
	if report, err := c.analysis.SaveReport(ctx, out.Manifest, outcome); err != nil {
		c.warn("Report could not be stored", roomCode, err)
	} else {
		reportKey = report.ReportKey
	}

	if emptied {
		c.registry.MarkAnalyzed(roomCode, epoch)
	}

	c.broadcast(roomCode, entities.EventAnalysisComplete, AnalysisCompletePayload{
		RoomCode:  roomCode,
		FlushID:   out.Manifest.FlushID,
		Result:    outcome.Result,
		Degraded:  outcome.Degraded,
		ReportKey: reportKey,
	}, "")

	c.endMeetingRow(ctx, roomCode)

	if c.logger != nil {
		meta := jobcontext.GetJobMetadata(ctx)
		c.logger.Info("✅ Transcript pipeline finished",
			zap.String("job_id", meta.JobID.String()),
			zap.String("room_code", roomCode),
			zap.Uint64("epoch", epoch),
			zap.Bool("degraded", outcome.Degraded),
			zap.Duration("took", meta.Elapsed()),
		)
	}
}

// flush waits out a flush of the same room that is still in flight, then runs its own
func (c *Coordinator) flush(ctx context.Context, roomCode string, epoch uint64) (*transcript.FlushOutput, error) {
	var out *transcript.FlushOutput
	op := func() error {
		res, err := c.persister.Flush(ctx, roomCode, epoch)
		if err != nil {
			if errors.Is(err, ucerrors.ErrFlushInProgress) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = res
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.opts.FlushRetryInterval), c.opts.FlushRetries),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Coordinator) chatHistory(ctx context.Context, roomCode string) []*entities.ChatMessage {
	history := make([]*entities.ChatMessage, 0)
	if c.meetings == nil {
		return history
	}
	msgs, err := c.meetings.ListChatMessages(ctx, roomCode, c.opts.ChatHistoryLimit)
	if err != nil {
		c.warn("Failed to load chat history", roomCode, err)
		return history
	}
	return append(history, msgs...)
}

func (c *Coordinator) recordParticipant(ctx context.Context, roomCode string, p *entities.Participant) {
	if c.meetings == nil {
		return
	}
	meetingID, err := c.meetingID(ctx, roomCode)
	if err != nil {
		c.warn("Failed to ensure meeting", roomCode, err)
		return
	}
	if err := c.meetings.UpsertParticipant(ctx, meetingID, p); err != nil {
		c.warn("Failed to record participant", roomCode, err)
	}
}

// meetingID resolves the room's meeting row once and remembers it until the room empties
func (c *Coordinator) meetingID(ctx context.Context, roomCode string) (uuid.UUID, error) {
	c.mu.Lock()
	id, ok := c.meetingIDs[roomCode]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	row, err := c.meetings.EnsureMeeting(ctx, roomCode)
	if err != nil {
		return uuid.Nil, err
	}
	c.mu.Lock()
	c.meetingIDs[roomCode] = row.ID
	c.mu.Unlock()
	return row.ID, nil
}

func (c *Coordinator) endMeetingRow(ctx context.Context, roomCode string) {
	if c.meetings == nil {
		return
	}
	if err := c.meetings.EndMeeting(ctx, roomCode, c.now()); err != nil {
		c.warn("Failed to mark meeting ended", roomCode, err)
	}
}

func (c *Coordinator) broadcast(roomCode, event string, data any, except string) {
	for _, p := range c.registry.Members(roomCode) {
		if p.ConnectionID == except {
			continue
		}
		c.send(p.ConnectionID, event, data)
	}
}

func (c *Coordinator) send(connectionID, event string, data any) {
	if err := c.notifier.Send(connectionID, event, data); err != nil && c.logger != nil {
		c.logger.Warn("Failed to deliver event",
			zap.String("connection_id", connectionID),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func (c *Coordinator) warn(msg, roomCode string, err error) {
	if c.logger != nil {
		c.logger.Warn("⚠️ "+msg,
			zap.String("room_code", roomCode),
			zap.Error(err),
		)
	}
}
