package transcript

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
)

const clockLayout = "15:04:05"

// rawDocument is the programmatic dump of one flush
type rawDocument struct {
	RoomCode string                     `json:"roomCode"`
	Epoch    uint64                     `json:"epoch"`
	Chunks   []entities.TranscriptChunk `json:"chunks"`
}

// RenderRaw encodes the sorted chunks as indented JSON
func RenderRaw(roomCode string, epoch uint64, chunks []entities.TranscriptChunk) ([]byte, error) {
	data, err := json.MarshalIndent(rawDocument{
		RoomCode: roomCode,
		Epoch:    epoch,
		Chunks:   chunks,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode raw transcript: %w", err)
	}
	return data, nil
}

// RenderMerged produces the chronological narrative. Consecutive chunks from
// the same user are grouped under one "## Speaker (hh:mm:ss)" header.
func RenderMerged(roomCode string, chunks []entities.TranscriptChunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Transcript %s\n", roomCode)

	prevUser := ""
	for i, c := range chunks {
		if i == 0 || c.UserID != prevUser {
			fmt.Fprintf(&sb, "\n## %s (%s)\n", c.Speaker(), clock(c.ClientTimestamp))
			prevUser = c.UserID
		}
		sb.WriteString(c.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// SpeakerNarrative is one speaker's lines in chronological order
type SpeakerNarrative struct {
	UserID  string
	Speaker string
	Body    string
}

// RenderSpeakers produces one narrative per speaker, ordered by first utterance
func RenderSpeakers(roomCode string, chunks []entities.TranscriptChunk) []SpeakerNarrative {
	order := []string{}
	builders := map[string]*strings.Builder{}
	names := map[string]string{}

	for _, c := range chunks {
		sb, ok := builders[c.UserID]
		if !ok {
			sb = &strings.Builder{}
			fmt.Fprintf(sb, "# %s (%s)\n\n", c.Speaker(), roomCode)
			builders[c.UserID] = sb
			names[c.UserID] = c.Speaker()
			order = append(order, c.UserID)
		}
		fmt.Fprintf(sb, "- [%s] %s\n", clock(c.ClientTimestamp), c.Text)
	}

	out := make([]SpeakerNarrative, 0, len(order))
	for _, id := range order {
		out = append(out, SpeakerNarrative{
			UserID:  id,
			Speaker: names[id],
			Body:    builders[id].String(),
		})
	}
	return out
}

var unsafeKeyChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// SanitizeKey makes a value safe for use as one object key segment
func SanitizeKey(s string) string {
	s = unsafeKeyChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "unknown"
	}
	return s
}

func clock(t time.Time) string {
	return t.UTC().Format(clockLayout)
}
