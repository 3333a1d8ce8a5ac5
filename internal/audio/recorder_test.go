package audio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecodeUlawSilence(t *testing.T) {
	samples := DecodeUlaw([]byte{0xFF, 0xFF, 0xFF})
	if len(samples) != 3 {
		t.Fatalf("len = %d, want 3", len(samples))
	}
	for i, s := range samples {
		if s != 0 {
			t.Errorf("sample %d = %d, want 0 for µ-law silence byte", i, s)
		}
	}
}

func TestDecodeUlawSign(t *testing.T) {
	// 0x00 and 0x80 decode to the loudest negative and positive samples.
	neg := DecodeUlaw([]byte{0x00})[0]
	pos := DecodeUlaw([]byte{0x80})[0]
	if neg >= 0 {
		t.Errorf("0x00 decoded to %d, want negative", neg)
	}
	if pos <= 0 {
		t.Errorf("0x80 decoded to %d, want positive", pos)
	}
	if neg != -pos {
		t.Errorf("decode not symmetric: %d vs %d", neg, pos)
	}
}

func TestFinalizeEmptyBuffer(t *testing.T) {
	rec := NewSegmentRecorder(t.TempDir(), true)
	rec.Start("CA123")

	rec.Finalize("input_audio_buffer.committed")

	if rec.Index() != 0 {
		t.Errorf("index = %d, want 0 after empty finalize", rec.Index())
	}
	entries, err := os.ReadDir(filepath.Join(rec.baseDir, "CA123"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files, got %d", len(entries))
	}
}

func TestFinalizeWritesSegment(t *testing.T) {
	base := t.TempDir()
	rec := NewSegmentRecorder(base, true)
	rec.Start("CA123")

	chunk := make([]byte, 1600) // 200ms of µ-law audio
	for i := range chunk {
		chunk[i] = byte(i % 256)
	}
	rec.Append(chunk)
	rec.Finalize("input_audio_buffer.committed")

	if rec.Index() != 1 {
		t.Fatalf("index = %d, want 1", rec.Index())
	}
	entries, err := os.ReadDir(filepath.Join(base, "CA123"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 file, got %d", len(entries))
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "user_input_001_") || !strings.HasSuffix(name, ".wav") {
		t.Errorf("unexpected segment file name %q", name)
	}

	info, err := entries[0].Info()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	// 44-byte WAV header plus 2 bytes per decoded sample.
	if info.Size() < int64(len(chunk)*2) {
		t.Errorf("file size %d smaller than PCM payload %d", info.Size(), len(chunk)*2)
	}

	// Second segment buffers independently and advances the index.
	rec.Append(chunk)
	rec.Finalize("connection_closed")
	if rec.Index() != 2 {
		t.Errorf("index = %d, want 2", rec.Index())
	}
}

func TestRecorderDisabled(t *testing.T) {
	base := t.TempDir()
	rec := NewSegmentRecorder(base, false)
	rec.Start("CA123")
	rec.Append([]byte{0xFF, 0xFF})
	rec.Finalize("connection_closed")

	if rec.Index() != 0 {
		t.Errorf("index = %d, want 0 when disabled", rec.Index())
	}
	if _, err := os.Stat(filepath.Join(base, "CA123")); !os.IsNotExist(err) {
		t.Errorf("stream dir should not exist when disabled")
	}
}

func TestStartResetsBufferAndIndex(t *testing.T) {
	rec := NewSegmentRecorder(t.TempDir(), true)
	rec.Start("CA1")
	rec.Append(make([]byte, 160))
	rec.Finalize("input_audio_buffer.committed")
	if rec.Index() != 1 {
		t.Fatalf("index = %d, want 1", rec.Index())
	}

	rec.Start("CA2")
	if rec.Index() != 0 {
		t.Errorf("index = %d, want 0 after new stream", rec.Index())
	}
	// Buffer discarded on Start: finalize writes nothing.
	rec.Finalize("connection_closed")
	if rec.Index() != 0 {
		t.Errorf("index = %d, want 0 after finalizing empty new stream", rec.Index())
	}
}
