package relay

import (
	"github.com/kpr17ch/aivoicechat/internal/metrics"
	"github.com/kpr17ch/aivoicechat/internal/realtime"
	"github.com/kpr17ch/aivoicechat/internal/twilio"
)

// handleBargeIn truncates the assistant's in-flight reply and flushes the
// caller's playback buffer. It is a no-op unless audio is actually playing:
// at least one unacknowledged mark and a pinned baseline timestamp.
//
// The playback state is captured and cleared under the session lock; the
// truncate and clear commands go out afterwards so no network write happens
// while the lock is held.
func (s *Session) handleBargeIn() {
	s.mu.Lock()
	if len(s.marks) == 0 || s.baselineTS < 0 {
		s.mu.Unlock()
		return
	}
	itemID := s.playingItemID
	elapsed := s.latestMediaTS.Load() - s.baselineTS
	sid := s.streamSID
	s.marks = nil
	s.playingItemID = ""
	s.baselineTS = -1
	s.mu.Unlock()

	metrics.Interruptions.Inc()

	if itemID != "" {
		s.log.Info("truncating assistant item", "item_id", itemID, "elapsed_ms", elapsed)
		if cmd, err := realtime.ItemTruncate(itemID, elapsed); err == nil {
			if err := s.gateway.send(cmd); err != nil {
				s.log.Warn("send truncate failed", "error", err)
			}
		}
	}

	if frame, err := twilio.ClearFrame(sid); err == nil {
		if err := s.telephony.send(frame); err != nil {
			s.log.Warn("send clear failed", "error", err)
		}
	}
}
