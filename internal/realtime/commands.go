package realtime

import "encoding/json"

// SessionConfig holds the assistant parameters applied at session start.
type SessionConfig struct {
	Voice        string
	Instructions string
	Temperature  float64
}

type serverVAD struct {
	Type            string  `json:"type"`
	Threshold       float64 `json:"threshold,omitempty"`
	PrefixPaddingMS int     `json:"prefix_padding_ms,omitempty"`
	SilenceDuration int     `json:"silence_duration_ms,omitempty"`
}

// SessionUpdate builds the session-configure command. The Azure flavor
// still uses the flat modalities/format fields; the standard flavor uses
// the nested realtime session shape.
func SessionUpdate(azure bool, model string, cfg SessionConfig) ([]byte, error) {
	if azure {
		return json.Marshal(map[string]any{
			"type": "session.update",
			"session": map[string]any{
				"modalities":          []string{"audio", "text"},
				"instructions":        cfg.Instructions,
				"voice":               cfg.Voice,
				"input_audio_format":  "g711_ulaw",
				"output_audio_format": "g711_ulaw",
				"turn_detection": serverVAD{
					Type:            "server_vad",
					Threshold:       0.5,
					PrefixPaddingMS: 300,
					SilenceDuration: 200,
				},
				"temperature": cfg.Temperature,
			},
		})
	}
	return json.Marshal(map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"type":              "realtime",
			"model":             model,
			"output_modalities": []string{"audio"},
			"audio": map[string]any{
				"input": map[string]any{
					"format":         map[string]string{"type": "audio/pcmu"},
					"turn_detection": map[string]string{"type": "server_vad"},
				},
				"output": map[string]any{
					"format": map[string]string{"type": "audio/pcmu"},
					"voice":  cfg.Voice,
				},
			},
			"instructions": cfg.Instructions,
			"temperature":  cfg.Temperature,
		},
	})
}

// InputAudioAppend builds the audio-append command for one base64 µ-law
// chunk.
func InputAudioAppend(payload string) ([]byte, error) {
	return json.Marshal(map[string]string{
		"type":  "input_audio_buffer.append",
		"audio": payload,
	})
}

// GreetingItem builds a conversation item instructing the assistant to open
// with the configured greeting.
func GreetingItem(greeting string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []map[string]string{
				{
					"type": "input_text",
					"text": "Greet the user with '" + greeting + "'",
				},
			},
		},
	})
}

// ResponseCreate asks the gateway to produce the next assistant response.
func ResponseCreate() ([]byte, error) {
	return json.Marshal(map[string]string{"type": "response.create"})
}

// ItemTruncate builds the command that truncates a playing assistant item at
// audioEndMS so the server-side context matches the audio actually heard.
func ItemTruncate(itemID string, audioEndMS int64) ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":          "conversation.item.truncate",
		"item_id":       itemID,
		"content_index": 0,
		"audio_end_ms":  audioEndMS,
	})
}
