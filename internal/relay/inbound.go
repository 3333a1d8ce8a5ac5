package relay

import (
	"encoding/base64"
	"time"

	"github.com/kpr17ch/aivoicechat/internal/metrics"
	"github.com/kpr17ch/aivoicechat/internal/realtime"
	"github.com/kpr17ch/aivoicechat/internal/twilio"
)

// pumpInbound reads telephony frames until the caller hangs up or the
// socket fails. Malformed frames are logged and skipped.
func (s *Session) pumpInbound() {
	for {
		_, data, err := s.telephony.conn.ReadMessage()
		if err != nil {
			s.log.Info("telephony stream ended", "error", err)
			return
		}
		frame, err := twilio.ParseInbound(data)
		if err != nil {
			s.log.Warn("unparseable telephony frame", "error", err)
			continue
		}
		switch frame.Event {
		case twilio.EventMedia:
			s.handleMedia(frame.Media)
		case twilio.EventStart:
			s.handleStart(frame.Start)
		case twilio.EventMark:
			s.popMark()
		case twilio.EventStop:
			s.log.Info("telephony stream stopped", "stream_sid", s.currentStreamSID())
			return
		}
	}
}

// handleStart resets all per-stream state. A media stream carries exactly
// one start event, but the reset keeps reconnect frames harmless.
func (s *Session) handleStart(start *twilio.StartPayload) {
	if start == nil || start.StreamSID == "" {
		s.log.Warn("start frame without stream sid")
		return
	}

	s.mu.Lock()
	s.streamSID = start.StreamSID
	s.startedAt = time.Now().UTC()
	s.lastUserText = ""
	s.lastUserNormalized = ""
	s.lastAssistantText = ""
	s.lastAssistantNormalized = ""
	s.playingItemID = ""
	s.baselineTS = -1
	s.marks = nil
	s.mu.Unlock()

	s.latestMediaTS.Store(0)
	s.transcript.Reset()
	s.usage.Reset()
	s.recorder.Start(start.StreamSID)

	s.log.Info("media stream started",
		"stream_sid", start.StreamSID,
		"call_sid", start.CallSID)

	s.persistAsync("initialized")
}

// handleMedia advances the telephony clock, forwards the audio chunk to the
// gateway, and appends the raw bytes to the active recording segment.
func (s *Session) handleMedia(media *twilio.MediaPayload) {
	if media == nil {
		return
	}
	metrics.MediaFrames.Inc()
	s.latestMediaTS.Store(media.TimestampMS())

	if s.gateway != nil && s.gateway.open() {
		cmd, err := realtime.InputAudioAppend(media.Payload)
		if err == nil {
			if err := s.gateway.send(cmd); err != nil {
				s.log.Debug("drop inbound audio frame", "error", err)
			}
		}
	}

	if s.recorder.Enabled() {
		raw, err := base64.StdEncoding.DecodeString(media.Payload)
		if err != nil {
			s.log.Error("audio chunk decode failed", "error", err)
			return
		}
		s.recorder.Append(raw)
	}
}

// popMark consumes one outstanding playback mark echo.
func (s *Session) popMark() {
	s.mu.Lock()
	if len(s.marks) > 0 {
		s.marks = s.marks[1:]
	}
	s.mu.Unlock()
}
