package transcript

import (
	"fmt"
	"strings"
	"time"
)

// Payload is the persisted JSON form of a transcript snapshot.
type Payload struct {
	StreamSID string    `json:"stream_sid"`
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
	Entries   []Entry   `json:"entries"`
}

// BuildPayload assembles the snapshot payload for persistence.
func BuildPayload(streamSID, state string, updatedAt time.Time, entries []Entry) Payload {
	return Payload{
		StreamSID: streamSID,
		State:     state,
		UpdatedAt: updatedAt,
		Entries:   entries,
	}
}

// RenderText produces the human-readable transcript blob stored alongside
// the JSON payload.
func RenderText(streamSID, state string, updatedAt time.Time, entries []Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Transcript for %s\n", streamSID)
	fmt.Fprintf(&b, "State: %s\n", state)
	fmt.Fprintf(&b, "Updated: %s\n\n", updatedAt.UTC().Format(time.RFC3339))

	for _, entry := range entries {
		role := entry.Role
		if role == "" {
			role = RoleUnknown
		}
		text := entry.Text
		if text == "" {
			text = "[pending]"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n",
			entry.Timestamp.UTC().Format(time.RFC3339),
			strings.ToUpper(string(role)),
			text)
	}
	return b.String()
}

// ValidPhoneCandidates collects plausible phone candidates across all
// entries, unique in first-appearance order.
func ValidPhoneCandidates(entries []Entry) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, entry := range entries {
		if entry.Metadata.Numeric == nil {
			continue
		}
		for _, candidate := range entry.Metadata.Numeric.ValidPhoneCandidates {
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}
			out = append(out, candidate)
		}
	}
	return out
}

// CountTurns counts entries that carry resolved text from a known speaker.
func CountTurns(entries []Entry) int {
	n := 0
	for _, entry := range entries {
		if (entry.Role == RoleUser || entry.Role == RoleAssistant) && entry.Text != "" {
			n++
		}
	}
	return n
}
