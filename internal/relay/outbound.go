package relay

import (
	"context"
	"encoding/base64"

	"github.com/kpr17ch/aivoicechat/internal/metrics"
	"github.com/kpr17ch/aivoicechat/internal/realtime"
	"github.com/kpr17ch/aivoicechat/internal/transcript"
	"github.com/kpr17ch/aivoicechat/internal/twilio"
	"github.com/kpr17ch/aivoicechat/internal/usage"
)

// pumpOutbound reads gateway events until the remote session ends. A panic
// in a handler is logged as a stream error and ends the pump instead of
// tearing down the process.
func (s *Session) pumpOutbound() {
	defer func() {
		if r := recover(); r != nil {
			metrics.StreamErrors.Inc()
			s.log.Error("gateway stream error", "panic", r)
		}
	}()

	for {
		_, data, err := s.gateway.conn.ReadMessage()
		if err != nil {
			s.log.Info("gateway stream ended", "error", err)
			return
		}
		ev, err := realtime.ParseEvent(data)
		if err != nil {
			s.log.Warn("unparseable gateway event", "error", err)
			continue
		}
		metrics.GatewayEvents.WithLabelValues(ev.Type).Inc()
		s.dispatch(ev)
	}
}

func (s *Session) dispatch(ev realtime.Event) {
	switch ev.Type {
	case realtime.TypeItemCreated:
		s.handleItemCreated(ev)
	case realtime.TypeTranscriptionCompleted:
		s.handleTranscriptionCompleted(ev)
	case realtime.TypeTranscriptionFailed:
		s.handleTranscriptionFailed(ev)
	case realtime.TypeResponseDone:
		s.handleResponseDone(ev)
	case realtime.TypeAudioDelta, realtime.TypeOutputAudioDelta:
		s.handleAudioDelta(ev)
	case realtime.TypeSpeechStarted:
		s.logEvent(ev)
		s.handleSpeechStarted()
	case realtime.TypeBufferCommitted:
		s.logEvent(ev)
		s.recorder.Finalize(ev.Type)
	default:
		s.logEvent(ev)
	}
}

// handleItemCreated records a conversation item as soon as the gateway
// announces it, often before any transcript text exists. An item without an
// id still gets an appended entry; it just can't be reconciled later.
func (s *Session) handleItemCreated(ev realtime.Event) {
	if ev.Item == nil {
		return
	}
	role := transcript.RoleUnknown
	switch ev.Item.Role {
	case "user":
		role = transcript.RoleUser
	case "assistant":
		role = transcript.RoleAssistant
	}
	meta := &transcript.Metadata{
		Status:       ev.Item.Status,
		ContentTypes: realtime.ContentTypes(ev.Item.Content),
	}
	text := realtime.ExtractText(ev.Item.Content)
	entry, changed := s.transcript.Upsert(role, ev.Type, ev.Item.ID, text, meta)
	if !changed {
		return
	}
	s.noteText(entry)
	s.logConversation(entry)
	s.persistAsync("in_progress")
}

// handleTranscriptionCompleted attaches the user's speech-to-text result to
// the item created earlier for the same audio.
func (s *Session) handleTranscriptionCompleted(ev realtime.Event) {
	entry, changed := s.transcript.Upsert(transcript.RoleUser, ev.Type, ev.ItemID, ev.Transcript, nil)
	if !changed {
		return
	}
	s.noteText(entry)
	s.logConversation(entry)
	s.persistAsync("in_progress")
}

// handleTranscriptionFailed stores a placeholder so the turn stays visible
// in the transcript and carries the gateway's error detail in metadata.
func (s *Session) handleTranscriptionFailed(ev realtime.Event) {
	s.log.Error("transcription failed", "item_id", ev.ItemID, "error", string(ev.Error))
	meta := &transcript.Metadata{Error: ev.Error}
	_, changed := s.transcript.Upsert(transcript.RoleUser, ev.Type, ev.ItemID, transcriptionFailedText, meta)
	if changed {
		s.persistAsync("in_progress")
	}
}

// handleResponseDone closes an assistant turn: it reconciles the final
// assistant text, converts cumulative usage into this turn's delta, and
// emits the consolidated turn record.
func (s *Session) handleResponseDone(ev realtime.Event) {
	var output []realtime.Item
	var cumulative usage.Usage
	responseID := ""
	if ev.Response != nil {
		output = ev.Response.Output
		cumulative = usageFromEvent(ev.Response.Usage)
		responseID = ev.Response.ID
	}

	for i := range output {
		item := &output[i]
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		text := realtime.ExtractText(item.Content)
		if text == "" {
			continue
		}
		meta := &transcript.Metadata{
			Status:       transcript.StatusCompleted,
			ContentTypes: realtime.ContentTypes(item.Content),
		}
		entry, changed := s.transcript.Upsert(transcript.RoleAssistant, ev.Type, item.ID, text, meta)
		if changed {
			s.noteText(entry)
			s.logConversation(entry)
		}
	}

	// A response without a body still closes the turn; the delta then runs
	// against zeroed cumulative counters.
	stats := s.usage.RecordTurn(cumulative)
	metrics.Turns.Inc()

	s.mu.Lock()
	userText := s.lastUserText
	userNorm := s.lastUserNormalized
	assistantText := s.lastAssistantText
	assistantNorm := s.lastAssistantNormalized
	s.mu.Unlock()

	s.log.Info("conversation turn",
		"turn", stats.TurnNumber,
		"response_id", responseID,
		"user_text", userText,
		"user_normalized", userNorm,
		"assistant_text", assistantText,
		"assistant_normalized", assistantNorm,
		"tokens_this_turn", stats.ThisTurn,
		"tokens_total", stats.Total)

	s.persistAsync("in_progress")
}

func usageFromEvent(u *realtime.EventUsage) usage.Usage {
	if u == nil {
		return usage.Usage{}
	}
	out := usage.Usage{
		Total:  u.TotalTokens,
		Input:  u.InputTokens,
		Output: u.OutputTokens,
	}
	if d := u.InputTokenDetails; d != nil {
		out.InputText = d.TextTokens
		out.InputAudio = d.AudioTokens
		out.Cached = d.CachedTokens
	}
	if d := u.OutputTokenDetails; d != nil {
		out.OutputText = d.TextTokens
		out.OutputAudio = d.AudioTokens
	}
	return out
}

// handleAudioDelta forwards one assistant audio chunk to the caller and
// maintains the playback bookkeeping the barge-in logic depends on.
func (s *Session) handleAudioDelta(ev realtime.Event) {
	if ev.Delta == "" {
		return
	}
	metrics.AudioDeltas.Inc()

	raw, err := base64.StdEncoding.DecodeString(ev.Delta)
	if err != nil {
		s.log.Warn("undecodable audio delta", "item_id", ev.ItemID, "error", err)
		return
	}
	payload := base64.StdEncoding.EncodeToString(raw)

	sid := s.currentStreamSID()
	if sid == "" {
		return
	}
	frame, err := twilio.MediaFrame(sid, payload)
	if err != nil {
		return
	}
	if err := s.telephony.send(frame); err != nil {
		s.log.Debug("drop outbound audio frame", "error", err)
		return
	}

	// First delta of a new item pins the truncation baseline to the
	// current telephony clock.
	s.mu.Lock()
	if ev.ItemID != "" && ev.ItemID != s.playingItemID {
		s.playingItemID = ev.ItemID
		s.baselineTS = s.latestMediaTS.Load()
	}
	s.mu.Unlock()

	mark, err := twilio.MarkFrame(sid, twilio.MarkName)
	if err != nil {
		return
	}
	if err := s.telephony.send(mark); err != nil {
		return
	}
	s.mu.Lock()
	s.marks = append(s.marks, twilio.MarkName)
	s.mu.Unlock()
}

// handleSpeechStarted reacts to the caller speaking over assistant playback.
func (s *Session) handleSpeechStarted() {
	s.mu.Lock()
	playing := s.playingItemID != ""
	s.mu.Unlock()
	if !playing {
		return
	}
	s.log.Warn("assistant interrupted by caller speech")
	s.handleBargeIn()
}

// noteText caches the latest non-empty text per role for turn records and
// snapshot metadata.
func (s *Session) noteText(entry transcript.Entry) {
	if entry.Text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch entry.Role {
	case transcript.RoleUser:
		s.lastUserText = entry.Text
		if entry.NormalizedText != "" {
			s.lastUserNormalized = entry.NormalizedText
		}
	case transcript.RoleAssistant:
		s.lastAssistantText = entry.Text
		if entry.NormalizedText != "" {
			s.lastAssistantNormalized = entry.NormalizedText
		}
	}
}

func (s *Session) logConversation(entry transcript.Entry) {
	switch entry.Role {
	case transcript.RoleUser:
		s.log.Info("user said",
			"item_id", entry.ItemID,
			"text", entry.Text,
			"normalized", entry.NormalizedText,
			"status", entry.Status,
			"sources", entry.Sources)
		if n := entry.Metadata.Numeric; n != nil && len(n.PhoneCandidates) > 0 {
			if len(n.ValidPhoneCandidates) > 0 {
				s.log.Info("phone candidates detected",
					"item_id", entry.ItemID,
					"candidates", n.ValidPhoneCandidates)
			} else {
				s.log.Warn("phone candidates implausible",
					"item_id", entry.ItemID,
					"candidates", n.PhoneCandidates)
			}
		}
	case transcript.RoleAssistant:
		s.log.Info("assistant said",
			"item_id", entry.ItemID,
			"text", entry.Text,
			"normalized", entry.NormalizedText,
			"status", entry.Status,
			"sources", entry.Sources)
	}
}

// logEvent records a gateway event at the severity its type maps to.
func (s *Session) logEvent(ev realtime.Event) {
	args := []any{"type", ev.Type}
	if ev.ItemID != "" {
		args = append(args, "item_id", ev.ItemID)
	}
	if len(ev.Error) > 0 {
		args = append(args, "error", string(ev.Error))
	}
	s.log.Log(context.Background(), realtime.LogLevel(ev.Type), "gateway event", args...)
}
