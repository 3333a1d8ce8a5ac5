// Package audio decodes the telephony µ-law codec and records inbound
// speech segments as WAV files.
package audio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// SampleRate is the telephony sample rate in Hz.
	SampleRate = 8000

	bitDepth = 16
)

// SegmentRecorder buffers raw inbound µ-law bytes and flushes them to disk
// as mono 8 kHz 16-bit WAV files at segment boundaries (stream start, VAD
// commit, stream end). The buffer is owned exclusively by the recorder under
// one mutex; decode and file I/O happen outside of it.
type SegmentRecorder struct {
	enabled bool
	baseDir string

	mu    sync.Mutex
	buf   []byte
	dir   string
	index int
}

// NewSegmentRecorder creates a recorder writing under baseDir. When enabled
// is false every method is a no-op.
func NewSegmentRecorder(baseDir string, enabled bool) *SegmentRecorder {
	return &SegmentRecorder{enabled: enabled, baseDir: baseDir}
}

// Enabled reports whether recording is switched on.
func (r *SegmentRecorder) Enabled() bool {
	return r.enabled
}

// Start resets the buffer and segment index for a new stream and creates
// the per-stream recording directory. A directory failure disables
// recording for this stream only.
func (r *SegmentRecorder) Start(streamSID string) {
	if !r.enabled {
		return
	}
	dir := filepath.Join(r.baseDir, streamSID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("create recording dir", "dir", dir, "error", err)
		dir = ""
	}

	r.mu.Lock()
	r.buf = r.buf[:0]
	r.index = 0
	r.dir = dir
	r.mu.Unlock()
}

// Append adds raw µ-law bytes to the current segment buffer.
func (r *SegmentRecorder) Append(chunk []byte) {
	if !r.enabled || len(chunk) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dir == "" {
		return
	}
	r.buf = append(r.buf, chunk...)
}

// Finalize flushes the current segment to a WAV file and clears the buffer.
// An empty buffer performs no write and leaves the index unchanged. Decode
// or write failures are logged with the reason and target path; the bytes
// are discarded and the index does not advance.
func (r *SegmentRecorder) Finalize(reason string) {
	if !r.enabled {
		return
	}

	r.mu.Lock()
	if r.dir == "" || len(r.buf) == 0 {
		r.mu.Unlock()
		return
	}
	segment := make([]byte, len(r.buf))
	copy(segment, r.buf)
	r.buf = r.buf[:0]
	dir, index := r.dir, r.index
	r.mu.Unlock()

	name := fmt.Sprintf("user_input_%03d_%s.wav", index+1, segmentTimestamp(time.Now()))
	path := filepath.Join(dir, name)

	if err := writeUlawWAV(segment, path); err != nil {
		slog.Error("audio segment write failed", "reason", reason, "path", path, "error", err)
		return
	}

	durationMS := len(segment) * 1000 / SampleRate
	slog.Info("audio segment recorded",
		"path", path,
		"reason", reason,
		"raw_bytes", len(segment),
		"duration_ms", durationMS)

	r.mu.Lock()
	r.index = index + 1
	r.mu.Unlock()
}

// Index returns the number of segments written so far for the current
// stream.
func (r *SegmentRecorder) Index() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

func segmentTimestamp(t time.Time) string {
	return strings.ReplaceAll(t.Format("20060102_150405.000000"), ".", "_")
}

func writeUlawWAV(raw []byte, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create segment file: %w", err)
	}

	enc := wav.NewEncoder(f, SampleRate, bitDepth, 1, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: SampleRate},
		Data:           DecodeUlaw(raw),
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}
