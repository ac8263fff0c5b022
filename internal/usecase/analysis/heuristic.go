package analysis

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
)

type topicRule struct {
	topic    string
	keywords []string
}

// Order matters: topics are reported in this order
var topicRules = []topicRule{
	{"Scheduling", []string{"schedule", "deadline", "timeline", "calendar", "meeting", "week", "tomorrow"}},
	{"Bug fixes", []string{"bug", "fix", "error", "issue", "crash", "broken"}},
	{"Release planning", []string{"release", "deploy", "launch", "rollout", "ship"}},
	{"Design", []string{"design", "ui", "ux", "mockup", "layout"}},
	{"Budget", []string{"budget", "cost", "price", "pricing", "invoice"}},
	{"Customers", []string{"customer", "client", "feedback", "users"}},
	{"Testing", []string{"test", "tests", "testing", "qa"}},
	{"Hiring", []string{"hire", "hiring", "interview", "candidate"}},
	{"Infrastructure", []string{"server", "database", "infra", "latency", "outage"}},
}

var (
	taskPhrases     = []string{"let's", "lets ", "need to", "needs to", "should", "will ", "i'll", "we'll", "follow up", "follow-up", "schedule", "action item", "todo", "to do", "assign"}
	urgentWords     = []string{"urgent", "asap", "critical", "immediately", "blocker"}
	decisionPhrases = []string{"we decided", "decided to", "agreed", "we agree", "let's go with", "final decision", "we will go with", "approved"}
	positiveWords   = []string{"great", "good", "thanks", "thank", "awesome", "excellent", "agree", "happy", "nice", "perfect", "love"}
	negativeWords   = []string{"bad", "problem", "worried", "blocked", "fail", "failed", "angry", "terrible", "concern", "delay", "late", "broken"}
)

var (
	speakerHeader = regexp.MustCompile(`^##\s+(.+?)(?:\s+\([^)]*\))?\s*$`)
	sentenceSplit = regexp.MustCompile(`[.!?]+\s+`)
)

const maxTaskLength = 200

// PlaceholderTask is used when no explicit task phrase is found
const PlaceholderTask = "Review the meeting transcript and confirm next steps"

type utterance struct {
	speaker string
	text    string
}

// Heuristic is the deterministic offline analyzer. It never fails and always
// returns a structurally valid result.
type Heuristic struct{}

// NewHeuristic creates a new Heuristic analyzer
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Analyze derives a result from speaker headers, keywords and task phrases
func (h *Heuristic) Analyze(text string) entities.AnalysisResult {
	utts, speakers := parseNarrative(text)

	result := entities.AnalysisResult{
		ActionItems:  make([]entities.ActionItem, 0),
		KeyDecisions: make([]string, 0),
		KeyTopics:    detectTopics(utts),
		Sentiment:    detectSentiment(utts),
	}

	for _, u := range utts {
		for _, sentence := range splitSentences(u.text) {
			lower := strings.ToLower(sentence)
			if containsAny(lower, decisionPhrases) {
				result.KeyDecisions = append(result.KeyDecisions, sentence)
				continue
			}
			if containsAny(lower, taskPhrases) {
				result.ActionItems = append(result.ActionItems, taskFrom(u.speaker, sentence, lower))
			}
		}
	}

	if len(result.ActionItems) == 0 {
		result.ActionItems = append(result.ActionItems, entities.ActionItem{
			Task:     PlaceholderTask,
			Priority: entities.PriorityMedium,
		})
	}

	result.Summary = summarize(speakers, utts, result.KeyTopics)
	return result
}

// parseNarrative reads a merged narrative ("## Speaker (time)" headers followed by
// lines). Text without headers is attributed to an unknown speaker.
func parseNarrative(text string) ([]utterance, []string) {
	var utts []utterance
	var speakers []string
	seen := map[string]bool{}
	current := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := speakerHeader.FindStringSubmatch(line); m != nil {
			current = strings.TrimSpace(m[1])
			if !seen[current] {
				seen[current] = true
				speakers = append(speakers, current)
			}
			continue
		}
		if strings.HasPrefix(line, "# ") {
			continue
		}
		utts = append(utts, utterance{speaker: current, text: line})
	}
	return utts, speakers
}

func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func taskFrom(speaker, sentence, lower string) entities.ActionItem {
	task := sentence
	if len(task) > maxTaskLength {
		task = strings.TrimSpace(truncate(task, maxTaskLength)) + "..."
	}
	priority := entities.PriorityMedium
	if containsAny(lower, urgentWords) {
		priority = entities.PriorityHigh
	}
	return entities.ActionItem{
		Task:     task,
		Assignee: speaker,
		Priority: priority,
	}
}

func detectTopics(utts []utterance) []string {
	words := map[string]bool{}
	for _, u := range utts {
		for _, w := range tokenize(u.text) {
			words[w] = true
		}
	}

	topics := make([]string, 0)
	for _, rule := range topicRules {
		for _, kw := range rule.keywords {
			if words[kw] {
				topics = append(topics, rule.topic)
				break
			}
		}
	}
	if len(topics) == 0 {
		topics = append(topics, "General discussion")
	}
	return topics
}

func detectSentiment(utts []utterance) entities.Sentiment {
	score := 0
	for _, u := range utts {
		for _, w := range tokenize(u.text) {
			for _, p := range positiveWords {
				if w == p {
					score++
				}
			}
			for _, n := range negativeWords {
				if w == n {
					score--
				}
			}
		}
	}
	switch {
	case score > 1:
		return entities.SentimentPositive
	case score < -1:
		return entities.SentimentNegative
	default:
		return entities.SentimentNeutral
	}
}

func summarize(speakers []string, utts []utterance, topics []string) string {
	if len(utts) == 0 {
		return "No transcript content was captured for this meeting."
	}

	who := "an unknown number of participants"
	switch n := len(speakers); {
	case n == 1:
		who = "1 participant (" + speakers[0] + ")"
	case n > 1:
		who = fmt.Sprintf("%d participants (%s)", n, strings.Join(speakers, ", "))
	}
	return fmt.Sprintf("Meeting with %s and %d transcript lines. Main topics: %s.",
		who, len(utts), strings.Join(topics, ", "))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
