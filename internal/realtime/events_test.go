package realtime

import (
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseItemCreated(t *testing.T) {
	raw := `{
		"type": "conversation.item.created",
		"item": {
			"id": "item_1",
			"type": "message",
			"role": "user",
			"status": "completed",
			"content": [{"type": "input_audio", "transcript": ""}]
		}
	}`
	ev, err := ParseEvent([]byte(raw))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Type != TypeItemCreated {
		t.Errorf("Type = %q", ev.Type)
	}
	if ev.Item == nil || ev.Item.ID != "item_1" || ev.Item.Role != "user" {
		t.Errorf("Item = %+v", ev.Item)
	}
}

func TestParseTranscriptionCompleted(t *testing.T) {
	raw := `{"type":"conversation.item.input_audio_transcription.completed","item_id":"item_1","transcript":"null eins fünf"}`
	ev, err := ParseEvent([]byte(raw))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.ItemID != "item_1" || ev.Transcript != "null eins fünf" {
		t.Errorf("event = %+v", ev)
	}
}

func TestParseResponseDoneUsage(t *testing.T) {
	raw := `{
		"type": "response.done",
		"response": {
			"id": "resp_1",
			"output": [{"id":"item_2","type":"message","role":"assistant","content":[{"type":"audio","transcript":"Hallo!"}]}],
			"usage": {
				"total_tokens": 150,
				"input_tokens": 90,
				"output_tokens": 60,
				"input_token_details": {"text_tokens": 10, "audio_tokens": 80, "cached_tokens": 5},
				"output_token_details": {"text_tokens": 20, "audio_tokens": 40}
			}
		}
	}`
	ev, err := ParseEvent([]byte(raw))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	u := ev.Response.Usage
	if u.TotalTokens != 150 || u.InputTokenDetails.CachedTokens != 5 || u.OutputTokenDetails.AudioTokens != 40 {
		t.Errorf("usage = %+v", u)
	}
	if got := ExtractText(ev.Response.Output[0].Content); got != "Hallo!" {
		t.Errorf("ExtractText = %q, want Hallo!", got)
	}
}

func TestExtractTextPrecedence(t *testing.T) {
	content := []ContentPart{
		{Type: "audio", Transcript: ""},
		{Type: "text", Text: "hello"},
	}
	if got := ExtractText(content); got != "hello" {
		t.Errorf("ExtractText = %q, want hello", got)
	}
	if got := ExtractText(nil); got != "" {
		t.Errorf("ExtractText(nil) = %q, want empty", got)
	}
}

func TestContentTypes(t *testing.T) {
	content := []ContentPart{{Type: "audio"}, {Type: "text"}}
	got := ContentTypes(content)
	if len(got) != 2 || got[0] != "audio" || got[1] != "text" {
		t.Errorf("ContentTypes = %v", got)
	}
	if ContentTypes(nil) != nil {
		t.Error("ContentTypes(nil) should be nil")
	}
}

func TestLogLevel(t *testing.T) {
	if LogLevel(TypeError) != slog.LevelError {
		t.Error("error events must log at error level")
	}
	if LogLevel(TypeSpeechStarted) != slog.LevelInfo {
		t.Error("speech started should log at info")
	}
	if LogLevel("response.audio_transcript.delta") != slog.LevelDebug {
		t.Error("unlisted events should log at debug")
	}
}

func TestSessionUpdateShapes(t *testing.T) {
	cfg := SessionConfig{Voice: "sage", Instructions: "Du bist ein Assistent.", Temperature: 0.8}

	standard, err := SessionUpdate(false, "gpt-realtime-mini", cfg)
	if err != nil {
		t.Fatalf("SessionUpdate: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(standard, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	session := decoded["session"].(map[string]any)
	if session["model"] != "gpt-realtime-mini" || session["type"] != "realtime" {
		t.Errorf("standard session = %v", session)
	}

	azure, err := SessionUpdate(true, "gpt-realtime-mini", cfg)
	if err != nil {
		t.Fatalf("SessionUpdate azure: %v", err)
	}
	if err := json.Unmarshal(azure, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	session = decoded["session"].(map[string]any)
	if session["input_audio_format"] != "g711_ulaw" {
		t.Errorf("azure session = %v", session)
	}
	if session["voice"] != "sage" {
		t.Errorf("azure voice = %v", session["voice"])
	}
}

func TestItemTruncate(t *testing.T) {
	cmd, err := ItemTruncate("item_9", 2350)
	if err != nil {
		t.Fatalf("ItemTruncate: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(cmd, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != "conversation.item.truncate" || decoded["item_id"] != "item_9" {
		t.Errorf("truncate = %v", decoded)
	}
	if decoded["audio_end_ms"].(float64) != 2350 {
		t.Errorf("audio_end_ms = %v", decoded["audio_end_ms"])
	}
}

func TestIsAzureHost(t *testing.T) {
	if !IsAzureHost("https://myres.openai.azure.com/openai/realtime") {
		t.Error("azure host not detected")
	}
	if IsAzureHost("https://api.openai.com/v1/realtime") {
		t.Error("openai host misdetected as azure")
	}
}
