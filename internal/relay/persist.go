package relay

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/kpr17ch/aivoicechat/internal/metrics"
	"github.com/kpr17ch/aivoicechat/internal/store"
	"github.com/kpr17ch/aivoicechat/internal/transcript"
)

// persistAsync writes an in-progress snapshot without blocking the pumps.
// Persistence failures never disturb the call.
func (s *Session) persistAsync(state string) {
	go s.persistSnapshot(context.Background(), state, false)
}

// persistSnapshot assembles the current conversation state and upserts it,
// keyed by stream SID. When a transcripts directory is configured, the JSON
// and text renderings are also mirrored to disk on every persist so a crash
// leaves readable files behind. The final snapshot sets the end time.
func (s *Session) persistSnapshot(ctx context.Context, state string, final bool) error {
	s.mu.Lock()
	sid := s.streamSID
	startedAt := s.startedAt
	userText := s.lastUserText
	userNorm := s.lastUserNormalized
	assistantText := s.lastAssistantText
	assistantNorm := s.lastAssistantNormalized
	s.mu.Unlock()

	if sid == "" || s.deps.Persister == nil {
		return nil
	}

	now := time.Now().UTC()
	entries := s.transcript.Snapshot()
	payload := transcript.BuildPayload(sid, state, now, entries)
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshal transcript payload", "stream_sid", sid, "error", err)
		return err
	}
	textBlob := transcript.RenderText(sid, state, now, entries)

	phones := transcript.ValidPhoneCandidates(entries)
	userPhone := ""
	if len(phones) > 0 {
		userPhone = phones[0]
	}

	meta := map[string]any{
		"state":                     state,
		"turn_count":                transcript.CountTurns(entries),
		"phone_candidates":          phones,
		"last_user_normalized":      userNorm,
		"last_assistant_normalized": assistantNorm,
		"usage_totals":              s.usage.Totals(),
		"turn_number":               s.usage.TurnNumber(),
		"updated_at":                now,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		s.log.Error("marshal snapshot metadata", "stream_sid", sid, "error", err)
		return err
	}

	snap := store.Snapshot{
		StreamSID:         sid,
		State:             state,
		TurnCount:         transcript.CountTurns(entries),
		TranscriptJSON:    payloadJSON,
		TranscriptText:    textBlob,
		StartedAt:         startedAt,
		LastUserText:      userText,
		LastAssistantText: assistantText,
		UserPhone:         userPhone,
		Metadata:          metaJSON,
	}
	if final {
		snap.EndedAt = now
	}

	if err := s.deps.Persister.UpsertSnapshot(ctx, snap); err != nil {
		metrics.SnapshotErrors.Inc()
		s.log.Error("snapshot persist failed", "stream_sid", sid, "state", state, "error", err)
		return err
	}

	s.writeTranscriptFiles(sid, payloadJSON, textBlob)

	if final {
		s.log.Info("transcript saved",
			"stream_sid", sid,
			"entries", len(entries),
			"turns", transcript.CountTurns(entries),
			"state", state)
	}
	return nil
}

// writeTranscriptFiles mirrors the transcript to disk, best effort.
func (s *Session) writeTranscriptFiles(sid string, payloadJSON []byte, textBlob string) {
	dir := s.deps.TranscriptsDir
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Error("create transcripts dir", "dir", dir, "error", err)
		return
	}
	jsonPath := filepath.Join(dir, sid+".json")
	if err := os.WriteFile(jsonPath, payloadJSON, 0o644); err != nil {
		s.log.Error("write transcript json", "path", jsonPath, "error", err)
	}
	textPath := filepath.Join(dir, sid+".txt")
	if err := os.WriteFile(textPath, []byte(textBlob), 0o644); err != nil {
		s.log.Error("write transcript text", "path", textPath, "error", err)
	}
}
