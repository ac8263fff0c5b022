package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	"github.com/johnquangdev/meetcore/internal/domain/repositories"
	ucerrors "github.com/johnquangdev/meetcore/internal/usecase/errors"
	"github.com/johnquangdev/meetcore/internal/usecase/transcript"
)

// Provider is an external summarizer that returns a JSON document for a prompt
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// configurable is implemented by providers that may be missing credentials
type configurable interface {
	Configured() bool
}

const (
	analysisSystemPrompt = `You are a meeting analyst. Reply with one JSON object and nothing else, using exactly this shape:
{"summary": string, "actionItems": [{"task": string, "assignee": string, "priority": "High"|"Medium"|"Low", "dueDate": string}], "keyDecisions": [string], "keyTopics": [string], "sentiment": "Positive"|"Neutral"|"Negative"}
Use empty strings or empty arrays when something is not mentioned. Assignees must be speaker names from the transcript.`

	liveSystemPrompt = `You watch a live meeting. From the latest lines, list newly emerging tasks and topics. Reply with one JSON object only:
{"tasks": [{"task": string, "assignee": string, "priority": "High"|"Medium"|"Low"}], "topics": [string]}
Return empty arrays when nothing new appears.`

	// maxPromptChars keeps very long meetings under the provider's context window
	maxPromptChars = 48000
)

// Options tune the pipeline
type Options struct {
	SummarizerTimeout time.Duration
	LiveTimeout       time.Duration
	MaxRetries        uint64
}

// Outcome is an analysis result plus how it was produced
type Outcome struct {
	Result entities.AnalysisResult
	// Degraded is set when the heuristic analyzer produced the result
	Degraded bool
	// Err is the provider failure that caused degradation, never returned to callers as an error
	Err error
}

// Service runs the summarizer with a bounded timeout and falls back to the
// deterministic heuristic whenever the provider cannot deliver.
type Service struct {
	provider  Provider
	parser    *Parser
	heuristic *Heuristic
	store     transcript.ArtifactStore
	reports   repositories.ReportRepository
	opts      Options
	now       func() time.Time
	logger    *zap.Logger
}

// NewService creates a new analysis Service. provider, store and reports may be nil.
func NewService(
	provider Provider,
	store transcript.ArtifactStore,
	reports repositories.ReportRepository,
	opts Options,
	logger *zap.Logger,
) *Service {
	if opts.SummarizerTimeout <= 0 {
		opts.SummarizerTimeout = 20 * time.Second
	}
	if opts.LiveTimeout <= 0 {
		opts.LiveTimeout = 5 * time.Second
	}
	return &Service{
		provider:  provider,
		parser:    NewParser(),
		heuristic: NewHeuristic(),
		store:     store,
		reports:   reports,
		opts:      opts,
		now:       time.Now,
		logger:    logger,
	}
}

// Analyze always returns a well-formed result
func (s *Service) Analyze(ctx context.Context, text string) entities.AnalysisResult {
	return s.AnalyzeDetailed(ctx, text).Result
}

// AnalyzeDetailed is Analyze plus whether the fallback was used and why
func (s *Service) AnalyzeDetailed(ctx context.Context, text string) Outcome {
	if strings.TrimSpace(text) == "" {
		return s.fallback(text, fmt.Errorf("%w: empty transcript", ucerrors.ErrSummarizationFailed))
	}
	if !s.providerReady() {
		return s.fallback(text, fmt.Errorf("%w: provider not configured", ucerrors.ErrSummarizationFailed))
	}

	startTime := time.Now()
	raw, err := s.complete(ctx, s.opts.SummarizerTimeout, analysisSystemPrompt, buildPrompt(text))
	if err != nil {
		return s.fallback(text, fmt.Errorf("%w: %w", ucerrors.ErrSummarizationFailed, err))
	}

	result, err := s.parser.ParseAnalysis(raw)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("⚠️ Summarizer returned malformed output",
				zap.String("raw_response", raw[:min(500, len(raw))]),
				zap.Error(err),
			)
		}
		return s.fallback(text, fmt.Errorf("%w: %v", ucerrors.ErrSummarizationFailed, err))
	}

	if s.logger != nil {
		s.logger.Info("✅ Meeting analyzed",
			zap.Int("action_items", len(result.ActionItems)),
			zap.String("sentiment", string(result.Sentiment)),
			zap.Duration("took", time.Since(startTime)),
		)
	}
	return Outcome{Result: *result}
}

// DetectLive looks for emergent tasks and topics in a short window of recent
// chunks. Any failure yields empty insights.
func (s *Service) DetectLive(ctx context.Context, recent []entities.TranscriptChunk) entities.LiveInsights {
	empty := entities.LiveInsights{Tasks: []entities.ActionItem{}, Topics: []string{}}
	if len(recent) == 0 || !s.providerReady() {
		return empty
	}

	var sb strings.Builder
	for _, c := range recent {
		fmt.Fprintf(&sb, "%s: %s\n", c.Speaker(), c.Text)
	}

	raw, err := s.complete(ctx, s.opts.LiveTimeout, liveSystemPrompt, sb.String())
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("Live detection unavailable", zap.Error(err))
		}
		return empty
	}

	live, err := s.parser.ParseLive(raw)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("Live detection returned malformed output", zap.Error(err))
		}
		return empty
	}
	return *live
}

// complete bounds the provider call even if the provider ignores ctx
func (s *Service) complete(ctx context.Context, timeout time.Duration, system, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		raw string
		err error
	}
	done := make(chan reply, 1)
	go func() {
		raw, err := s.provider.Complete(callCtx, system, prompt)
		done <- reply{raw: raw, err: err}
	}()

	select {
	case r := <-done:
		return r.raw, r.err
	case <-callCtx.Done():
		return "", fmt.Errorf("summarizer call abandoned: %w", callCtx.Err())
	}
}

func (s *Service) providerReady() bool {
	if s.provider == nil {
		return false
	}
	if c, ok := s.provider.(configurable); ok {
		return c.Configured()
	}
	return true
}

func (s *Service) fallback(text string, cause error) Outcome {
	if s.logger != nil {
		s.logger.Warn("⚠️ Using heuristic analysis",
			zap.Error(cause),
		)
	}
	return Outcome{
		Result:   s.heuristic.Analyze(text),
		Degraded: true,
		Err:      cause,
	}
}

func buildPrompt(text string) string {
	if len(text) > maxPromptChars {
		text = truncate(text, maxPromptChars) + "\n[transcript truncated]"
	}
	return "Analyze this meeting transcript:\n\n" + text
}
