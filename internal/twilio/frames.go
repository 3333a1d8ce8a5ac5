// Package twilio encodes and decodes Twilio Media Streams WebSocket frames.
//
// Inbound frames carry base64 µ-law audio at 8 kHz plus stream lifecycle
// events; outbound frames play audio back, set playback marks, and clear
// buffered audio.
package twilio

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Inbound frame event names.
const (
	EventStart = "start"
	EventMedia = "media"
	EventMark  = "mark"
	EventStop  = "stop"
)

// MarkName is the playback-ack token attached to every outbound media frame.
const MarkName = "responsePart"

// InboundFrame is a frame received from the telephony stream.
type InboundFrame struct {
	Event string        `json:"event"`
	Start *StartPayload `json:"start,omitempty"`
	Media *MediaPayload `json:"media,omitempty"`
	Mark  *MarkPayload  `json:"mark,omitempty"`
}

// StartPayload identifies the media stream.
type StartPayload struct {
	StreamSID string `json:"streamSid"`
	CallSID   string `json:"callSid,omitempty"`
}

// MediaPayload carries one base64 µ-law audio chunk. Timestamp is the
// telephony clock in milliseconds, transmitted as a decimal string.
type MediaPayload struct {
	Timestamp string `json:"timestamp"`
	Payload   string `json:"payload"`
}

// MarkPayload acknowledges a previously sent mark frame.
type MarkPayload struct {
	Name string `json:"name"`
}

// TimestampMS parses the media timestamp, defaulting to 0 on malformed
// input. Twilio supplies the value; it is not guaranteed strictly
// increasing.
func (m *MediaPayload) TimestampMS() int64 {
	if m == nil {
		return 0
	}
	ts, err := strconv.ParseInt(m.Timestamp, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

// ParseInbound decodes one inbound frame.
func ParseInbound(data []byte) (InboundFrame, error) {
	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return InboundFrame{}, fmt.Errorf("parse twilio frame: %w", err)
	}
	return frame, nil
}

type outboundMedia struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
	Media     struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

type outboundMark struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
	Mark      struct {
		Name string `json:"name"`
	} `json:"mark"`
}

type outboundClear struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
}

// MediaFrame builds an outbound media frame with a base64 µ-law payload.
func MediaFrame(streamSID, payload string) ([]byte, error) {
	frame := outboundMedia{Event: "media", StreamSID: streamSID}
	frame.Media.Payload = payload
	return json.Marshal(frame)
}

// MarkFrame builds an outbound mark frame used to track playback progress.
func MarkFrame(streamSID, name string) ([]byte, error) {
	frame := outboundMark{Event: "mark", StreamSID: streamSID}
	frame.Mark.Name = name
	return json.Marshal(frame)
}

// ClearFrame builds the frame instructing the telephony channel to drop all
// buffered-but-unplayed audio immediately.
func ClearFrame(streamSID string) ([]byte, error) {
	return json.Marshal(outboundClear{Event: "clear", StreamSID: streamSID})
}
