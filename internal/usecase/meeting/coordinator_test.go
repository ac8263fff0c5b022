package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	"github.com/johnquangdev/meetcore/internal/domain/repositories"
	"github.com/johnquangdev/meetcore/internal/usecase/analysis"
	ucerrors "github.com/johnquangdev/meetcore/internal/usecase/errors"
	"github.com/johnquangdev/meetcore/internal/usecase/session"
	"github.com/johnquangdev/meetcore/internal/usecase/signaling"
	"github.com/johnquangdev/meetcore/internal/usecase/transcript"
)

type sentEvent struct {
	to    string
	event string
	data  any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) Send(connectionID, event string, data any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{to: connectionID, event: event, data: data})
	return nil
}

func (n *recordingNotifier) eventsFor(connectionID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		if e.to == connectionID {
			out = append(out, e.event)
		}
	}
	return out
}

func (n *recordingNotifier) find(connectionID, event string) (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e.to == connectionID && e.event == event {
			return e.data, true
		}
	}
	return nil, false
}

type memStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	err      error
	failures int
}

func (m *memStore) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		m.failures++
		return "", m.err
	}
	m.objects[key] = body
	return key, nil
}

func (m *memStore) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *memStore) failed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

func (m *memStore) count(suffix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.objects {
		if strings.HasSuffix(k, suffix) {
			n++
		}
	}
	return n
}

type memReports struct {
	mu   sync.Mutex
	rows []*entities.MeetingReport
}

func (m *memReports) SaveReport(_ context.Context, r *entities.MeetingReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, r)
	return nil
}

func (m *memReports) FindLatestByRoomCode(_ context.Context, code string) (*entities.MeetingReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].RoomCode == code {
			return m.rows[i], nil
		}
	}
	return nil, nil
}

type liveProvider struct{}

func (liveProvider) Complete(_ context.Context, system, _ string) (string, error) {
	if strings.Contains(system, "live meeting") {
		return `{"tasks":[{"task":"Draft the agenda","priority":"low"}],"topics":["Planning"]}`, nil
	}
	return "", errors.New("status 503 service unavailable")
}

type fixture struct {
	coord    *Coordinator
	notifier *recordingNotifier
	store    *memStore
	reports  *memReports
	buffer   *transcript.Buffer
}

type countingMeetings struct {
	mu           sync.Mutex
	id           uuid.UUID
	ensures      int
	participants []uuid.UUID
	chats        []*entities.ChatMessage
}

func (m *countingMeetings) EnsureMeeting(_ context.Context, code string) (*entities.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensures++
	return &entities.Meeting{ID: m.id, Code: code}, nil
}

func (m *countingMeetings) EndMeeting(context.Context, string, time.Time) error { return nil }

func (m *countingMeetings) UpsertParticipant(_ context.Context, meetingID uuid.UUID, _ *entities.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants = append(m.participants, meetingID)
	return nil
}

func (m *countingMeetings) AppendChatMessage(_ context.Context, msg *entities.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = append(m.chats, msg)
	return nil
}

func (m *countingMeetings) ListChatMessages(context.Context, string, int) ([]*entities.ChatMessage, error) {
	return nil, nil
}

func (m *countingMeetings) ensured() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensures
}

func newFixture(t *testing.T, provider analysis.Provider, opts Options) *fixture {
	t.Helper()
	return newFixtureWithMeetings(t, provider, opts, nil)
}

func newFixtureWithMeetings(t *testing.T, provider analysis.Provider, opts Options, meetings repositories.MeetingRepository) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	notifier := &recordingNotifier{}
	store := &memStore{objects: map[string][]byte{}}
	reports := &memReports{}

	registry := session.NewRegistry(session.PlaceholderEnricher{}, logger)
	buffer := transcript.NewBuffer()
	coord := NewCoordinator(Deps{
		Registry:  registry,
		Relay:     signaling.NewRelay(registry, notifier, logger),
		Buffer:    buffer,
		Persister: transcript.NewPersister(buffer, store, 0, logger),
		Analysis:  analysis.NewService(provider, store, reports, analysis.Options{SummarizerTimeout: time.Second}, logger),
		Meetings:  meetings,
		Reports:   reports,
		Notifier:  notifier,
	}, opts, logger)

	return &fixture{coord: coord, notifier: notifier, store: store, reports: reports, buffer: buffer}
}

func (f *fixture) shutdown(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.coord.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestCoordinator_JoinAnnouncesAndRejectsWhenFull(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()

	for i, conn := range []string{"c1", "c2", "c3", "c4"} {
		res, err := f.coord.Join(ctx, "ABC123", "user-"+conn, conn)
		if err != nil {
			t.Fatalf("join %s: %v", conn, err)
		}
		if len(res.ExistingPeers) != i {
			t.Fatalf("join %s: expected %d existing peers, got %d", conn, i, len(res.ExistingPeers))
		}
	}

	if _, err := f.coord.Join(ctx, "ABC123", "user-c5", "c5"); !errors.Is(err, ucerrors.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if got := f.notifier.eventsFor("c5"); len(got) != 1 || got[0] != entities.EventRoomFull {
		t.Fatalf("rejected connection should only get room-full, got %v", got)
	}

	snap, _ := f.coord.Snapshot("ABC123")
	if len(snap.Participants) != 4 {
		t.Fatalf("room must still report 4 participants, got %d", len(snap.Participants))
	}

	first := f.notifier.eventsFor("c1")
	joined := 0
	for _, e := range first {
		if e == entities.EventUserJoined {
			joined++
		}
	}
	if joined != 3 {
		t.Fatalf("c1 should see 3 user-joined events, got %d (%v)", joined, first)
	}
	if _, ok := f.notifier.find("c4", entities.EventChatHistory); !ok {
		t.Fatalf("joiner must receive chat history")
	}
}

func TestCoordinator_EmptyRoomFlushesOnceAndAnalyzes(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()

	f.coord.Join(ctx, "XYZ", "alice", "c1")
	f.coord.Join(ctx, "XYZ", "bob", "c2")

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f.coord.AddTranscriptChunk(ctx, "c1", ChunkInput{UserName: "Alice", Text: "Let's schedule a follow-up for Monday", Timestamp: base})
	f.coord.AddTranscriptChunk(ctx, "c2", ChunkInput{UserName: "Bob", Text: "Sounds good to me", Timestamp: base.Add(time.Second)})

	f.coord.Disconnect(ctx, "c1")
	f.coord.Disconnect(ctx, "c2")
	// A duplicate disconnect must not trigger another flush
	f.coord.Disconnect(ctx, "c2")

	f.shutdown(t)

	if n := f.store.count("raw.json"); n != 1 {
		t.Fatalf("expected exactly one flush, got %d", n)
	}
	if f.store.count("merged.md") != 1 || f.store.count("report.md") != 1 {
		t.Fatalf("merged narrative and report must be written")
	}
	if f.store.count(".md") < 4 {
		t.Fatalf("expected per-speaker narratives as well")
	}

	report, err := f.coord.LatestReport(ctx, "XYZ")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	var result entities.AnalysisResult
	if err := json.Unmarshal(report.Result, &result); err != nil {
		t.Fatalf("result json: %v", err)
	}
	found := false
	for _, item := range result.ActionItems {
		if strings.Contains(item.Task, "schedule a follow-up") {
			found = true
		}
	}
	if !found {
		t.Fatalf("explicit task phrase should become an action item, got %+v", result.ActionItems)
	}

	if _, err := f.coord.Snapshot("XYZ"); !errors.Is(err, ucerrors.ErrRoomNotFound) {
		t.Fatalf("analyzed empty room should be released, got %v", err)
	}
	if f.buffer.Len("XYZ") != 0 {
		t.Fatalf("buffer must be cleared after the flush")
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func roomState(t *testing.T, c *Coordinator, code string) entities.RoomState {
	t.Helper()
	snap, err := c.Snapshot(code)
	if err != nil {
		return ""
	}
	return snap.State
}

func TestCoordinator_FailedDrainIsRetried(t *testing.T) {
	f := newFixture(t, nil, Options{DrainRetryInterval: 10 * time.Millisecond, DrainRetries: 50})
	ctx := context.Background()
	f.store.setErr(errors.New("storage offline"))

	f.coord.Join(ctx, "XYZ", "alice", "c1")
	f.coord.AddTranscriptChunk(ctx, "c1", ChunkInput{UserName: "Alice", Text: "Ship the release on Friday"})
	f.coord.Disconnect(ctx, "c1")

	eventually(t, "a failed flush", func() bool { return f.store.failed() > 0 })
	if got := roomState(t, f.coord, "XYZ"); got != entities.RoomStateDraining {
		t.Fatalf("room should stay draining while storage is down, got %q", got)
	}
	if f.buffer.Len("XYZ") != 1 {
		t.Fatalf("transcript must stay buffered after a failed flush")
	}

	f.store.setErr(nil)
	eventually(t, "the retried flush", func() bool { return f.store.count("raw.json") == 1 })
	eventually(t, "the room to be released", func() bool { return roomState(t, f.coord, "XYZ") == "" })
	f.shutdown(t)

	if f.buffer.Len("XYZ") != 0 {
		t.Fatalf("buffer must be cleared once the retry succeeds")
	}
	if f.store.count("report.md") != 1 {
		t.Fatalf("the retried pipeline must go on to analysis")
	}
}

func TestCoordinator_ExhaustedDrainRecoversOnEnd(t *testing.T) {
	f := newFixture(t, nil, Options{DrainRetryInterval: time.Millisecond, DrainRetries: 1})
	ctx := context.Background()
	f.store.setErr(errors.New("storage offline"))

	f.coord.Join(ctx, "XYZ", "alice", "c1")
	f.coord.AddTranscriptChunk(ctx, "c1", ChunkInput{UserName: "Alice", Text: "Ship the release on Friday"})
	f.coord.Disconnect(ctx, "c1")

	// the first run and its single retry
	eventually(t, "both attempts", func() bool { return f.store.failed() >= 2 })
	time.Sleep(50 * time.Millisecond)
	if n := f.store.failed(); n != 2 {
		t.Fatalf("retries must be bounded, saw %d failed writes", n)
	}
	if got := roomState(t, f.coord, "XYZ"); got != entities.RoomStateDraining {
		t.Fatalf("room should stay draining after retries run out, got %q", got)
	}

	f.store.setErr(nil)
	if _, err := f.coord.EndRoom(ctx, "XYZ"); err != nil {
		t.Fatalf("end room: %v", err)
	}
	f.shutdown(t)

	if f.store.count("raw.json") != 1 || f.buffer.Len("XYZ") != 0 {
		t.Fatalf("ending the room must flush the retained transcript")
	}
	if _, err := f.coord.Snapshot("XYZ"); !errors.Is(err, ucerrors.ErrRoomNotFound) {
		t.Fatalf("a drained room ended by hand should be released, got %v", err)
	}
}

func TestCoordinator_ResolvesMeetingOncePerRoom(t *testing.T) {
	meetings := &countingMeetings{id: uuid.New()}
	f := newFixtureWithMeetings(t, nil, Options{}, meetings)
	ctx := context.Background()

	f.coord.Join(ctx, "XYZ", "alice", "c1")
	f.coord.Join(ctx, "XYZ", "bob", "c2")
	for i := 0; i < 3; i++ {
		if _, err := f.coord.SendMessage(ctx, "c1", fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("send message: %v", err)
		}
	}
	f.coord.Disconnect(ctx, "c1")
	f.coord.Disconnect(ctx, "c2")
	f.shutdown(t)

	if n := meetings.ensured(); n != 1 {
		t.Fatalf("meeting row should be resolved once, got %d lookups", n)
	}
	if len(meetings.chats) != 3 || len(meetings.participants) != 4 {
		t.Fatalf("expected 3 chats and 4 attendance writes, got %d and %d", len(meetings.chats), len(meetings.participants))
	}
	for _, msg := range meetings.chats {
		if msg.MeetingID != meetings.id {
			t.Fatalf("chat stored without its meeting: %+v", msg)
		}
	}
	for _, id := range meetings.participants {
		if id != meetings.id {
			t.Fatalf("attendance stored under %s, want %s", id, meetings.id)
		}
	}

	// an emptied room resolves its meeting again on the next join
	f.coord.Join(ctx, "XYZ", "alice", "c3")
	if n := meetings.ensured(); n != 2 {
		t.Fatalf("expected a fresh lookup after the room emptied, got %d", n)
	}
}

func TestCoordinator_EndMeetingNotifiesPresentMembers(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()

	f.coord.Join(ctx, "R1", "alice", "c1")
	f.coord.Join(ctx, "R1", "bob", "c2")
	f.coord.AddTranscriptChunk(ctx, "c1", ChunkInput{Text: "We need to fix the login bug"})

	if _, err := f.coord.EndMeeting(ctx, "c2", "OTHER"); !errors.Is(err, ucerrors.ErrNotInRoom) {
		t.Fatalf("ending another room must fail, got %v", err)
	}
	res, err := f.coord.EndMeeting(ctx, "c2", "R1")
	if err != nil {
		t.Fatalf("end meeting: %v", err)
	}
	if res.Buffered != 1 {
		t.Fatalf("expected 1 buffered chunk, got %d", res.Buffered)
	}

	f.shutdown(t)

	for _, conn := range []string{"c1", "c2"} {
		if _, ok := f.notifier.find(conn, entities.EventTranscriptSaved); !ok {
			t.Fatalf("%s missing transcript-saved", conn)
		}
		data, ok := f.notifier.find(conn, entities.EventAnalysisComplete)
		if !ok {
			t.Fatalf("%s missing analysis-complete", conn)
		}
		payload := data.(AnalysisCompletePayload)
		if !payload.Degraded || payload.Result.Summary == "" {
			t.Fatalf("unexpected analysis payload %+v", payload)
		}
	}

	snap, _ := f.coord.Snapshot("R1")
	if snap.State != entities.RoomStateActive {
		t.Fatalf("ending with members present keeps the room active, got %s", snap.State)
	}
}

func TestCoordinator_ChatAndMediaRouting(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()

	f.coord.Join(ctx, "R1", "alice", "c1")
	f.coord.Join(ctx, "R1", "bob", "c2")

	msg, err := f.coord.SendMessage(ctx, "c1", "  hello  ")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if msg.Text != "hello" || msg.UserID != "alice" {
		t.Fatalf("unexpected message %+v", msg)
	}
	for _, conn := range []string{"c1", "c2"} {
		if _, ok := f.notifier.find(conn, entities.EventReceiveMessage); !ok {
			t.Fatalf("%s should receive the chat message", conn)
		}
	}

	if err := f.coord.ToggleMedia(ctx, "c1", entities.MediaVideo, false); err != nil {
		t.Fatalf("toggle media: %v", err)
	}
	if _, ok := f.notifier.find("c1", entities.EventMediaToggled); ok {
		t.Fatalf("sender should not get its own media toggle")
	}
	if _, ok := f.notifier.find("c2", entities.EventMediaToggled); !ok {
		t.Fatalf("peer should get media-toggled")
	}
	if err := f.coord.ToggleMedia(ctx, "c1", "hologram", true); !errors.Is(err, ucerrors.ErrInvalidInput) {
		t.Fatalf("unknown media kind must be rejected, got %v", err)
	}

	if _, err := f.coord.SendMessage(ctx, "ghost", "hi"); !errors.Is(err, ucerrors.ErrNotInRoom) {
		t.Fatalf("expected ErrNotInRoom, got %v", err)
	}
	f.shutdown(t)
}

func TestCoordinator_LiveInsightsEveryNChunks(t *testing.T) {
	f := newFixture(t, liveProvider{}, Options{LiveEvery: 2, LiveWindow: 5})
	ctx := context.Background()

	f.coord.Join(ctx, "R1", "alice", "c1")
	f.coord.AddTranscriptChunk(ctx, "c1", ChunkInput{Text: "first"})
	f.coord.AddTranscriptChunk(ctx, "c1", ChunkInput{Text: "second"})

	f.shutdown(t)

	data, ok := f.notifier.find("c1", entities.EventLiveInsights)
	if !ok {
		t.Fatalf("expected live-insights after the second chunk")
	}
	live := data.(LiveInsightsPayload)
	if len(live.Tasks) != 1 || live.Tasks[0].Priority != entities.PriorityLow || live.Topics[0] != "Planning" {
		t.Fatalf("unexpected insights %+v", live)
	}
}

func TestCoordinator_SignalReachesOnlyTarget(t *testing.T) {
	f := newFixture(t, nil, Options{})
	ctx := context.Background()

	f.coord.Join(ctx, "R1", "alice", "c1")
	f.coord.Join(ctx, "R1", "bob", "c2")
	f.coord.Join(ctx, "R1", "carol", "c3")

	err := f.coord.Signal(ctx, entities.SignalingMessage{
		Kind: entities.SignalOffer, SenderID: "c1", TargetID: "c2", Payload: json.RawMessage(`{"type":"offer","sdp":"v=0"}`),
	})
	if err != nil {
		t.Fatalf("signal: %v", err)
	}
	if _, ok := f.notifier.find("c2", entities.EventOffer); !ok {
		t.Fatalf("target should receive the offer")
	}
	if _, ok := f.notifier.find("c3", entities.EventOffer); ok {
		t.Fatalf("offer leaked to a non-target member")
	}
	f.shutdown(t)
}
