package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Event type names the relay dispatches on.
const (
	TypeItemCreated            = "conversation.item.created"
	TypeTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	TypeTranscriptionFailed    = "conversation.item.input_audio_transcription.failed"
	TypeResponseDone           = "response.done"
	TypeAudioDelta             = "response.audio.delta"
	TypeOutputAudioDelta       = "response.output_audio.delta"
	TypeSpeechStarted          = "input_audio_buffer.speech_started"
	TypeSpeechStopped          = "input_audio_buffer.speech_stopped"
	TypeBufferCommitted        = "input_audio_buffer.committed"
	TypeRateLimitsUpdated      = "rate_limits.updated"
	TypeResponseContentDone    = "response.content.done"
	TypeSessionCreated         = "session.created"
	TypeSessionUpdated         = "session.updated"
	TypeError                  = "error"
)

// Event is one gateway event. Fields are populated depending on Type; the
// relay only requires the ones enumerated here.
type Event struct {
	Type         string          `json:"type"`
	EventID      string          `json:"event_id,omitempty"`
	ItemID       string          `json:"item_id,omitempty"`
	ResponseID   string          `json:"response_id,omitempty"`
	Delta        string          `json:"delta,omitempty"`
	Transcript   string          `json:"transcript,omitempty"`
	AudioStartMS int64           `json:"audio_start_ms,omitempty"`
	Item         *Item           `json:"item,omitempty"`
	Response     *Response       `json:"response,omitempty"`
	Error        json.RawMessage `json:"error,omitempty"`
}

// Item is a conversation item attached to item-created and response-done
// events.
type Item struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Status  string        `json:"status"`
	Content []ContentPart `json:"content"`
}

// ContentPart is one content element of an item.
type ContentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// Response is the payload of a response-done event.
type Response struct {
	ID     string      `json:"id"`
	Status string      `json:"status"`
	Output []Item      `json:"output"`
	Usage  *EventUsage `json:"usage"`
}

// EventUsage mirrors the gateway's cumulative usage object.
type EventUsage struct {
	TotalTokens        int           `json:"total_tokens"`
	InputTokens        int           `json:"input_tokens"`
	OutputTokens       int           `json:"output_tokens"`
	InputTokenDetails  *TokenDetails `json:"input_token_details"`
	OutputTokenDetails *TokenDetails `json:"output_token_details"`
}

// TokenDetails splits a counter by modality.
type TokenDetails struct {
	TextTokens   int `json:"text_tokens"`
	AudioTokens  int `json:"audio_tokens"`
	CachedTokens int `json:"cached_tokens"`
}

// ParseEvent decodes one gateway event.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("parse gateway event: %w", err)
	}
	return ev, nil
}

// ExtractText returns the first text or transcript value found in content,
// or the empty string.
func ExtractText(content []ContentPart) string {
	for _, part := range content {
		switch part.Type {
		case "input_text", "output_text", "text":
			if part.Text != "" {
				return part.Text
			}
		case "input_audio_transcription", "audio_transcription", "input_audio_buffer.transcription":
			if part.Transcript != "" {
				return part.Transcript
			}
		case "audio":
			if part.Transcript != "" {
				return part.Transcript
			}
		}
	}
	return ""
}

// ContentTypes lists the content part types of an item, for transcript
// metadata.
func ContentTypes(content []ContentPart) []string {
	if len(content) == 0 {
		return nil
	}
	types := make([]string, len(content))
	for i, part := range content {
		types[i] = part.Type
	}
	return types
}

// logLevels is the fixed severity table for gateway event types that are
// logged but otherwise ignored. Types not listed are logged at debug.
var logLevels = map[string]slog.Level{
	TypeError:               slog.LevelError,
	TypeResponseContentDone: slog.LevelInfo,
	TypeRateLimitsUpdated:   slog.LevelInfo,
	TypeResponseDone:        slog.LevelInfo,
	TypeBufferCommitted:     slog.LevelInfo,
	TypeSpeechStopped:       slog.LevelInfo,
	TypeSpeechStarted:       slog.LevelInfo,
	TypeSessionCreated:      slog.LevelInfo,
	TypeSessionUpdated:      slog.LevelInfo,
}

// LogLevel returns the log severity for an event type.
func LogLevel(eventType string) slog.Level {
	if level, ok := logLevels[eventType]; ok {
		return level
	}
	return slog.LevelDebug
}
