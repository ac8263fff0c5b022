package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	ucerrors "github.com/johnquangdev/meetcore/internal/usecase/errors"
)

// Parser handles parsing and validation of summarizer responses
type Parser struct{}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{}
}

// providerActionItem accepts both "assignee" and the "owner" spelling some models emit
type providerActionItem struct {
	Task     string `json:"task"`
	Assignee string `json:"assignee"`
	Owner    string `json:"owner"`
	Priority string `json:"priority"`
	DueDate  string `json:"dueDate"`
}

type providerResult struct {
	Summary      string               `json:"summary"`
	ActionItems  []providerActionItem `json:"actionItems"`
	KeyDecisions []string             `json:"keyDecisions"`
	KeyTopics    []string             `json:"keyTopics"`
	Sentiment    string               `json:"sentiment"`
}

type providerLive struct {
	Tasks  []providerActionItem `json:"tasks"`
	Topics []string             `json:"topics"`
}

// ParseAnalysis parses a provider JSON payload into a validated AnalysisResult.
// Sentiment and priority are coerced to their enums rather than rejected.
func (p *Parser) ParseAnalysis(raw string) (*entities.AnalysisResult, error) {
	var pr providerResult
	if err := json.Unmarshal([]byte(extractJSON(raw)), &pr); err != nil {
		return nil, fmt.Errorf("%w: %v", ucerrors.ErrMalformedAnalysis, err)
	}

	result := &entities.AnalysisResult{
		Summary:      strings.TrimSpace(pr.Summary),
		ActionItems:  convertItems(pr.ActionItems),
		KeyDecisions: cleanStrings(pr.KeyDecisions),
		KeyTopics:    cleanStrings(pr.KeyTopics),
		Sentiment:    entities.ParseSentiment(pr.Sentiment),
	}

	if err := p.ValidateAnalysisResult(result); err != nil {
		return nil, err
	}
	return result, nil
}

// ParseLive parses a live detection payload
func (p *Parser) ParseLive(raw string) (*entities.LiveInsights, error) {
	var pl providerLive
	if err := json.Unmarshal([]byte(extractJSON(raw)), &pl); err != nil {
		return nil, fmt.Errorf("%w: %v", ucerrors.ErrMalformedAnalysis, err)
	}
	return &entities.LiveInsights{
		Tasks:  convertItems(pl.Tasks),
		Topics: cleanStrings(pl.Topics),
	}, nil
}

// ValidateAnalysisResult validates that all required fields are present
func (p *Parser) ValidateAnalysisResult(result *entities.AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("%w: analysis result is nil", ucerrors.ErrMalformedAnalysis)
	}

	if result.Summary == "" {
		return fmt.Errorf("%w: missing summary", ucerrors.ErrMalformedAnalysis)
	}

	// Lists can be empty for short meetings, just ensure they're initialized
	if result.ActionItems == nil {
		result.ActionItems = make([]entities.ActionItem, 0)
	}
	if result.KeyDecisions == nil {
		result.KeyDecisions = make([]string, 0)
	}
	if result.KeyTopics == nil {
		result.KeyTopics = make([]string, 0)
	}
	if !result.Sentiment.IsValid() {
		result.Sentiment = entities.SentimentNeutral
	}

	return nil
}

func convertItems(in []providerActionItem) []entities.ActionItem {
	out := make([]entities.ActionItem, 0, len(in))
	for _, it := range in {
		task := strings.TrimSpace(it.Task)
		if task == "" {
			continue
		}
		assignee := strings.TrimSpace(it.Assignee)
		if assignee == "" {
			assignee = strings.TrimSpace(it.Owner)
		}
		out = append(out, entities.ActionItem{
			Task:     task,
			Assignee: assignee,
			Priority: entities.ParsePriority(it.Priority),
			DueDate:  strings.TrimSpace(it.DueDate),
		})
	}
	return out
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// extractJSON extracts JSON content from markdown code blocks or plain text
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	// Check if wrapped in markdown code block
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}
