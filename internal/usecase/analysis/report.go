package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	ucerrors "github.com/johnquangdev/meetcore/internal/usecase/errors"
	"github.com/johnquangdev/meetcore/internal/usecase/transcript"
	"github.com/johnquangdev/meetcore/pkg/jobcontext"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`# Meeting Report: {{.RoomCode}}

- Generated: {{.GeneratedAt}}
- Flush: {{.FlushID}}
- Participants: {{if .Speakers}}{{join .Speakers ", "}}{{else}}none recorded{{end}}
- Transcript chunks: {{.ChunkCount}}
- Sentiment: {{.Result.Sentiment}}
{{- if .Degraded}}
- Note: generated by the offline analyzer, the summarizer was unavailable
{{- end}}

## Summary

{{.Result.Summary}}

## Action Items
{{range .Result.ActionItems}}
- [{{.Priority}}] {{.Task}}{{with .Assignee}} (owner: {{.}}){{end}}{{with .DueDate}} (due: {{.}}){{end}}
{{- else}}
- None
{{- end}}

## Key Decisions
{{range .Result.KeyDecisions}}
- {{.}}
{{- else}}
- None
{{- end}}

## Key Topics
{{range .Result.KeyTopics}}
- {{.}}
{{- else}}
- None
{{- end}}
`))

type reportView struct {
	RoomCode    string
	GeneratedAt string
	FlushID     string
	Speakers    []string
	ChunkCount  int
	Degraded    bool
	Result      entities.AnalysisResult
}

// RenderReport renders the human-readable report document
func RenderReport(manifest entities.TranscriptManifest, outcome Outcome, at time.Time) ([]byte, error) {
	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, reportView{
		RoomCode:    manifest.RoomCode,
		GeneratedAt: at.UTC().Format(time.RFC3339),
		FlushID:     manifest.FlushID.String(),
		Speakers:    manifest.Speakers,
		ChunkCount:  manifest.ChunkCount,
		Degraded:    outcome.Degraded,
		Result:      outcome.Result,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

// ReportKey is where the report for a flush is stored, next to its transcript artifacts
func ReportKey(manifest entities.TranscriptManifest) string {
	return fmt.Sprintf("transcripts/%s/%s/report.md", transcript.SanitizeKey(manifest.RoomCode), manifest.FlushID)
}

// SaveReport writes the report document alongside the transcript artifacts and
// records it in the report repository. The repository write is best-effort.
func (s *Service) SaveReport(ctx context.Context, manifest entities.TranscriptManifest, outcome Outcome) (*entities.MeetingReport, error) {
	now := s.now()
	body, err := RenderReport(manifest, outcome, now)
	if err != nil {
		return nil, err
	}

	report := &entities.MeetingReport{
		RoomCode:  manifest.RoomCode,
		FlushID:   manifest.FlushID,
		Epoch:     manifest.Epoch,
		Summary:   outcome.Result.Summary,
		Sentiment: outcome.Result.Sentiment,
		Degraded:  outcome.Degraded,
		CreatedAt: now,
	}

	if s.store != nil {
		key := ReportKey(manifest)
		var location string
		op := func() error {
			loc, err := s.store.Put(ctx, key, body, transcript.ContentTypeMarkdown)
			if err != nil {
				return jobcontext.Classify(err)
			}
			location = loc
			return nil
		}
		bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.opts.MaxRetries), ctx)
		if err := backoff.Retry(op, bo); err != nil {
			if s.logger != nil {
				s.logger.Error("❌ Failed to store report",
					zap.String("room_code", manifest.RoomCode),
					zap.String("key", key),
					zap.Error(err),
				)
			}
			return nil, fmt.Errorf("%w: report %s: %v", ucerrors.ErrPersistenceFailed, key, err)
		}
		report.ReportKey = location
	}

	if s.reports != nil {
		manifest.ReportKey = report.ReportKey
		resultJSON, err := json.Marshal(outcome.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode analysis result: %w", err)
		}
		manifestJSON, err := json.Marshal(manifest)
		if err != nil {
			return nil, fmt.Errorf("failed to encode manifest: %w", err)
		}
		report.Result = datatypes.JSON(resultJSON)
		report.Manifest = datatypes.JSON(manifestJSON)

		if err := s.reports.SaveReport(ctx, report); err != nil && s.logger != nil {
			s.logger.Warn("⚠️ Failed to record report row",
				zap.String("room_code", manifest.RoomCode),
				zap.Error(err),
			)
		}
	}

	if s.logger != nil {
		s.logger.Info("📝 Report saved",
			zap.String("room_code", manifest.RoomCode),
			zap.String("report_key", report.ReportKey),
			zap.Bool("degraded", outcome.Degraded),
		)
	}
	return report, nil
}
