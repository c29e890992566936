package media

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEncodeAudioFallbackWritesValidWav(t *testing.T) {
	dir := t.TempDir()
	enc := NewEncoder(dir, 16000, 2)
	enc.runCmd = func(context.Context, string, ...string) error {
		return errors.New("ffmpeg unavailable")
	}

	pcm := make([]byte, 32000)
	path, err := enc.EncodeAudio(context.Background(), "sess-1", "Alice", "20250101-120000", pcm)
	if err != nil {
		t.Fatalf("EncodeAudio failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav output: %v", err)
	}
	if len(data) != 44+len(pcm) {
		t.Fatalf("expected %d byte wav file, got %d", 44+len(pcm), len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE markers")
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 16000 {
		t.Errorf("expected sample rate 16000 in header, got %d", rate)
	}
	if size := binary.LittleEndian.Uint32(data[40:44]); int(size) != len(pcm) {
		t.Errorf("expected data size %d in header, got %d", len(pcm), size)
	}
}

func TestEncodeAudioRemovesRawFile(t *testing.T) {
	dir := t.TempDir()
	enc := NewEncoder(dir, 16000, 2)
	enc.runCmd = func(_ context.Context, _ string, args ...string) error {
		// Stand in for ffmpeg: produce the output file named last in args.
		return os.WriteFile(args[len(args)-1], []byte("wav"), 0o644)
	}

	_, err := enc.EncodeAudio(context.Background(), "sess-1", "Alice", "stamp", make([]byte, 100))
	if err != nil {
		t.Fatalf("EncodeAudio failed: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "sess-1", "*.raw"))
	if len(matches) != 0 {
		t.Fatalf("expected raw intermediate removed, found %v", matches)
	}
}

func TestEncodeAudioEmptyPayloadFails(t *testing.T) {
	enc := NewEncoder(t.TempDir(), 16000, 2)
	if _, err := enc.EncodeAudio(context.Background(), "s", "a", "stamp", nil); err == nil {
		t.Fatal("expected error for empty pcm payload")
	}
}

func TestEncodeVideoWritesFrameSequence(t *testing.T) {
	dir := t.TempDir()
	enc := NewEncoder(dir, 16000, 2)

	var sawFrames int
	enc.runCmd = func(_ context.Context, _ string, args ...string) error {
		pattern := ""
		for i, a := range args {
			if a == "-i" && i+1 < len(args) {
				pattern = args[i+1]
			}
		}
		matches, _ := filepath.Glob(filepath.Join(filepath.Dir(pattern), "frame_*.png"))
		sawFrames = len(matches)
		return os.WriteFile(args[len(args)-1], []byte("mp4"), 0o644)
	}

	frames := []Frame{
		{Data: []byte("f0"), CapturedAt: time.Now()},
		{Data: []byte("f1"), CapturedAt: time.Now()},
		{Data: []byte("f2"), CapturedAt: time.Now()},
	}
	path, err := enc.EncodeVideo(context.Background(), "sess-1", "Bob", "stamp", frames)
	if err != nil {
		t.Fatalf("EncodeVideo failed: %v", err)
	}
	if sawFrames != 3 {
		t.Errorf("expected 3 frame files at encode time, got %d", sawFrames)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected mp4 output: %v", err)
	}

	// Frame directory must be cleaned up regardless of outcome.
	matches, _ := filepath.Glob(filepath.Join(dir, "sess-1", "tmp_*"))
	if len(matches) != 0 {
		t.Fatalf("expected frame directory removed, found %v", matches)
	}
}

func TestEncodeVideoNoFramesFails(t *testing.T) {
	enc := NewEncoder(t.TempDir(), 16000, 2)
	if _, err := enc.EncodeVideo(context.Background(), "s", "a", "stamp", nil); err == nil {
		t.Fatal("expected error for empty frame list")
	}
}

func TestEncodeVideoEncoderFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	enc := NewEncoder(dir, 16000, 2)
	enc.runCmd = func(context.Context, string, ...string) error {
		return errors.New("encoder exploded")
	}

	_, err := enc.EncodeVideo(context.Background(), "sess-1", "Bob", "stamp", []Frame{{Data: []byte("f")}})
	if err == nil {
		t.Fatal("expected error from failed encode")
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "sess-1", "tmp_*"))
	if len(matches) != 0 {
		t.Fatalf("expected frame directory removed after failure, found %v", matches)
	}
}

func TestRemoveIgnoresMissingFiles(t *testing.T) {
	dir := t.TempDir()
	enc := NewEncoder(dir, 16000, 2)

	real := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(real, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	enc.Remove(real, filepath.Join(dir, "missing.mp4"), "")
	if _, err := os.Stat(real); !os.IsNotExist(err) {
		t.Fatal("expected clip removed")
	}
}
