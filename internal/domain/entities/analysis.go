package entities

import "strings"

// Priority of an action item
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority coerces free-form provider output into a Priority, defaulting to Medium
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "urgent", "critical":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Sentiment is the overall tone of a meeting
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// ParseSentiment coerces free-form provider output into a Sentiment, defaulting to Neutral
func ParseSentiment(s string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return SentimentPositive
	case "negative":
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// IsValid checks if the sentiment is one of the three allowed values
func (s Sentiment) IsValid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// ActionItem is a task extracted from a meeting
type ActionItem struct {
	Task     string   `json:"task"`
	Assignee string   `json:"assignee,omitempty"`
	Priority Priority `json:"priority"`
	DueDate  string   `json:"dueDate,omitempty"`
}

// AnalysisResult is the structured report produced for one flushed transcript
type AnalysisResult struct {
	Summary      string       `json:"summary"`
	ActionItems  []ActionItem `json:"actionItems"`
	KeyDecisions []string     `json:"keyDecisions"`
	KeyTopics    []string     `json:"keyTopics"`
	Sentiment    Sentiment    `json:"sentiment"`
}

// LiveInsights are tasks and topics detected from a short window of recent speech
type LiveInsights struct {
	Tasks  []ActionItem `json:"tasks"`
	Topics []string     `json:"topics"`
}

// IsEmpty reports whether nothing was detected
func (l LiveInsights) IsEmpty() bool {
	return len(l.Tasks) == 0 && len(l.Topics) == 0
}
