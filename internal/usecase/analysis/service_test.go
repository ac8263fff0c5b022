package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap/zaptest"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	ucerrors "github.com/johnquangdev/meetcore/internal/usecase/errors"
)

type stubProvider struct {
	reply string
	err   error
	hang  bool
	calls int
}

func (p *stubProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	p.calls++
	if p.hang {
		// Ignores ctx on purpose
		time.Sleep(2 * time.Second)
		return "", nil
	}
	return p.reply, p.err
}

const sampleNarrative = `# Transcript XYZ

## Alice (10:00:00)
Thanks everyone for joining.
Let's schedule a follow-up for next Tuesday.

## Bob (10:00:05)
Great, the release looks good. We decided to ship on Friday.
`

func assertWellFormed(t *testing.T, r entities.AnalysisResult) {
	t.Helper()
	if strings.TrimSpace(r.Summary) == "" {
		t.Fatalf("summary must be non-empty")
	}
	if r.ActionItems == nil || r.KeyDecisions == nil || r.KeyTopics == nil {
		t.Fatalf("list fields must be present: %+v", r)
	}
	if !r.Sentiment.IsValid() {
		t.Fatalf("sentiment %q outside the fixed set", r.Sentiment)
	}
}

func newTestService(t *testing.T, p Provider) *Service {
	return NewService(p, nil, nil, Options{
		SummarizerTimeout: 100 * time.Millisecond,
		LiveTimeout:       100 * time.Millisecond,
	}, zaptest.NewLogger(t))
}

func TestAnalyze_ProviderUnreachableFallsBack(t *testing.T) {
	svc := newTestService(t, &stubProvider{err: errors.New("dial tcp: connection refused")})

	for i := 0; i < 3; i++ {
		out := svc.AnalyzeDetailed(context.Background(), sampleNarrative)
		if !out.Degraded {
			t.Fatalf("expected degraded outcome")
		}
		if !errors.Is(out.Err, ucerrors.ErrSummarizationFailed) {
			t.Fatalf("expected ErrSummarizationFailed cause, got %v", out.Err)
		}
		assertWellFormed(t, out.Result)
	}
}

func TestAnalyze_NoProvider(t *testing.T) {
	svc := newTestService(t, nil)
	assertWellFormed(t, svc.Analyze(context.Background(), sampleNarrative))
	assertWellFormed(t, svc.Analyze(context.Background(), ""))
}

func TestAnalyze_TimeoutFallsBackEvenIfProviderIgnoresContext(t *testing.T) {
	svc := newTestService(t, &stubProvider{hang: true})

	start := time.Now()
	out := svc.AnalyzeDetailed(context.Background(), sampleNarrative)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("summarizer call was not bounded, took %s", elapsed)
	}
	if !out.Degraded || !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline fallback, got %+v", out.Err)
	}
	assertWellFormed(t, out.Result)
}

func TestAnalyze_ParsesProviderJSONAndCoercesEnums(t *testing.T) {
	reply := "```json\n" + `{
		"summary": "Planning sync",
		"actionItems": [{"task": "Write release notes", "owner": "Bob", "priority": "urgent"}, {"task": " "}],
		"keyTopics": ["Release"],
		"sentiment": "ecstatic"
	}` + "\n```"
	svc := newTestService(t, &stubProvider{reply: reply})

	out := svc.AnalyzeDetailed(context.Background(), sampleNarrative)
	if out.Degraded {
		t.Fatalf("valid payload must not degrade: %v", out.Err)
	}
	r := out.Result
	if r.Sentiment != entities.SentimentNeutral {
		t.Fatalf("invalid sentiment must coerce to Neutral, got %q", r.Sentiment)
	}
	if len(r.ActionItems) != 1 || r.ActionItems[0].Assignee != "Bob" || r.ActionItems[0].Priority != entities.PriorityHigh {
		t.Fatalf("unexpected action items %+v", r.ActionItems)
	}
	if r.KeyDecisions == nil {
		t.Fatalf("missing list must be initialized")
	}
}

func TestAnalyze_MalformedOutputFallsBack(t *testing.T) {
	for _, reply := range []string{"not json", `{"summary": ""}`, `[]`} {
		svc := newTestService(t, &stubProvider{reply: reply})
		out := svc.AnalyzeDetailed(context.Background(), sampleNarrative)
		if !out.Degraded {
			t.Fatalf("reply %q should degrade", reply)
		}
		assertWellFormed(t, out.Result)
	}
}

func TestDetectLive(t *testing.T) {
	chunks := []entities.TranscriptChunk{{UserID: "u1", UserName: "Alice", Text: "We need to fix login"}}

	svc := newTestService(t, &stubProvider{reply: `{"tasks":[{"task":"Fix login","priority":"high"}],"topics":["Auth"]}`})
	live := svc.DetectLive(context.Background(), chunks)
	if len(live.Tasks) != 1 || live.Tasks[0].Priority != entities.PriorityHigh || live.Topics[0] != "Auth" {
		t.Fatalf("unexpected live insights %+v", live)
	}

	failing := newTestService(t, &stubProvider{err: errors.New("status 503")})
	empty := failing.DetectLive(context.Background(), chunks)
	if !empty.IsEmpty() || empty.Tasks == nil || empty.Topics == nil {
		t.Fatalf("fallback must be empty but non-nil: %+v", empty)
	}
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memStore) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = body
	return "artifacts/" + key, nil
}

type memReports struct {
	saved []*entities.MeetingReport
	err   error
}

func (m *memReports) SaveReport(_ context.Context, r *entities.MeetingReport) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, r)
	return nil
}

func (m *memReports) FindLatestByRoomCode(_ context.Context, code string) (*entities.MeetingReport, error) {
	return nil, nil
}

func TestSaveReport(t *testing.T) {
	store := &memStore{objects: map[string][]byte{}}
	reports := &memReports{}
	svc := NewService(nil, store, reports, Options{}, zaptest.NewLogger(t))

	manifest := entities.TranscriptManifest{RoomCode: "XYZ", Epoch: 3, Speakers: []string{"Alice", "Bob"}, ChunkCount: 3}
	out := svc.AnalyzeDetailed(context.Background(), sampleNarrative)

	report, err := svc.SaveReport(context.Background(), manifest, out)
	if err != nil {
		t.Fatalf("save report failed: %v", err)
	}
	body := string(store.objects[ReportKey(manifest)])
	if !strings.Contains(body, "# Meeting Report: XYZ") || !strings.Contains(body, "Alice, Bob") {
		t.Fatalf("unexpected report:\n%s", body)
	}
	if !strings.Contains(body, "offline analyzer") {
		t.Fatalf("degraded report should say so:\n%s", body)
	}
	if report.ReportKey != "artifacts/"+ReportKey(manifest) {
		t.Fatalf("report key should be the stored location, got %q", report.ReportKey)
	}
	if len(reports.saved) != 1 || len(reports.saved[0].Result) == 0 {
		t.Fatalf("report row not recorded")
	}

	// Row write failures do not fail the report
	reports.err = errors.New("connection refused")
	if _, err := svc.SaveReport(context.Background(), manifest, out); err != nil {
		t.Fatalf("repository failure must be best-effort, got %v", err)
	}
}

func TestBuildPrompt_TruncatesOnRuneBoundary(t *testing.T) {
	prompt := buildPrompt("a" + strings.Repeat("€", maxPromptChars/3+1))

	if !strings.HasSuffix(prompt, "[transcript truncated]") {
		t.Fatalf("long transcript should be marked as truncated")
	}
	if !utf8.ValidString(prompt) {
		t.Fatalf("prompt is not valid UTF-8")
	}
}
