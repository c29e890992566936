package media

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func TestAppendAudioFirstChunkNoPadding(t *testing.T) {
	buf := NewParticipantBuffer(16000)
	chunk := make([]byte, 16000)
	buf.AppendAudio(chunk, 3.7)

	if got := buf.AudioLen(); got != 16000 {
		t.Fatalf("expected 16000 bytes after first chunk, got %d", got)
	}
}

func TestAppendAudioGapFill(t *testing.T) {
	// Chunks at relative times 0.0, 1.0, 2.3 carrying 16000, 16000, 20800
	// bytes of 16-bit mono PCM at 16 kHz.
	//
	// Chunk 2: 1.0s elapsed implies 16000 samples, chunk carries 8000,
	// so 8000 samples (16000 bytes) of silence are inserted.
	// Chunk 3: 1.3s elapsed implies 20800 samples, chunk carries 10400,
	// so 10400 samples (20800 bytes) of silence are inserted.
	buf := NewParticipantBuffer(16000)
	buf.AppendAudio(make([]byte, 16000), 0.0)
	buf.AppendAudio(make([]byte, 16000), 1.0)
	buf.AppendAudio(make([]byte, 20800), 2.3)

	want := 16000 + 16000 + 16000 + 20800 + 20800
	if got := buf.AudioLen(); got != want {
		t.Fatalf("expected %d buffered bytes, got %d", want, got)
	}
}

func TestAppendAudioNoGapWhenChunksAreContiguous(t *testing.T) {
	buf := NewParticipantBuffer(16000)
	// Each chunk is 0.5s of audio delivered exactly 0.5s apart.
	buf.AppendAudio(make([]byte, 16000), 0.0)
	buf.AppendAudio(make([]byte, 16000), 0.5)
	buf.AppendAudio(make([]byte, 16000), 1.0)

	if got := buf.AudioLen(); got != 48000 {
		t.Fatalf("expected 48000 bytes with no padding, got %d", got)
	}
}

func TestAppendAudioPaddingIsSilence(t *testing.T) {
	buf := NewParticipantBuffer(16000)
	loud := bytes.Repeat([]byte{0x7f, 0x7f}, 8000)
	buf.AppendAudio(loud, 0.0)
	buf.AppendAudio(loud, 1.5)

	win := buf.Flush(time.Now())
	// 1.5s elapsed implies 24000 samples, chunk carries 8000: 16000 samples
	// of padding sit between the two loud chunks.
	padStart := len(loud)
	padEnd := padStart + 16000*SampleWidth
	for i := padStart; i < padEnd; i++ {
		if win.Audio[i] != 0 {
			t.Fatalf("expected silence at byte %d, got %#x", i, win.Audio[i])
		}
	}
	if win.Audio[padEnd] != 0x7f {
		t.Fatalf("expected loud chunk to resume at byte %d", padEnd)
	}
}

func TestFlushDetachesAndResets(t *testing.T) {
	buf := NewParticipantBuffer(16000)
	start := time.Now()
	buf.Touch(start)
	buf.AppendAudio(make([]byte, 4000), 0.0)
	buf.AppendFrame([]byte("png-bytes"), start.Add(time.Second))

	win := buf.Flush(start.Add(5 * time.Second))
	if len(win.Audio) != 4000 {
		t.Fatalf("expected 4000 audio bytes in window, got %d", len(win.Audio))
	}
	if len(win.Frames) != 1 {
		t.Fatalf("expected 1 frame in window, got %d", len(win.Frames))
	}
	if buf.AudioLen() != 0 || buf.FrameCount() != 0 {
		t.Fatal("expected buffer empty after flush")
	}
}

func TestFlushResetsGapTracker(t *testing.T) {
	buf := NewParticipantBuffer(16000)
	buf.AppendAudio(make([]byte, 16000), 0.0)
	buf.Flush(time.Now())

	// First chunk of the new window must not be padded against the old
	// timestamp, even though 10s of relative time have passed.
	buf.AppendAudio(make([]byte, 16000), 10.0)
	if got := buf.AudioLen(); got != 16000 {
		t.Fatalf("expected 16000 bytes after post-flush chunk, got %d", got)
	}
}

func TestFlushWindowsAreDisjoint(t *testing.T) {
	buf := NewParticipantBuffer(16000)
	t0 := time.Now()
	buf.Touch(t0)

	buf.AppendFrame([]byte("a"), t0.Add(1*time.Second))
	buf.AppendFrame([]byte("b"), t0.Add(4*time.Second))
	first := buf.Flush(t0.Add(5 * time.Second))

	buf.AppendFrame([]byte("c"), t0.Add(6*time.Second))
	second := buf.Flush(t0.Add(10 * time.Second))

	if len(first.Frames) != 2 {
		t.Fatalf("expected 2 frames in first window, got %d", len(first.Frames))
	}
	if len(second.Frames) != 1 {
		t.Fatalf("expected 1 frame in second window, got %d", len(second.Frames))
	}
	if string(second.Frames[0].Data) != "c" {
		t.Errorf("expected second window to contain only frame c, got %q", second.Frames[0].Data)
	}
	if !first.End.Equal(second.Start) {
		t.Errorf("expected window boundaries to meet: first end %s, second start %s", first.End, second.Start)
	}
}

func TestFlushExcludesFramesOutsideWindow(t *testing.T) {
	buf := NewParticipantBuffer(16000)
	t0 := time.Now()
	buf.Touch(t0)

	buf.AppendFrame([]byte("early"), t0.Add(-time.Second))
	buf.AppendFrame([]byte("in"), t0.Add(2*time.Second))
	buf.AppendFrame([]byte("late"), t0.Add(6*time.Second))

	win := buf.Flush(t0.Add(5 * time.Second))
	if len(win.Frames) != 1 {
		t.Fatalf("expected 1 frame in [start, end), got %d", len(win.Frames))
	}
	if string(win.Frames[0].Data) != "in" {
		t.Errorf("expected frame 'in', got %q", win.Frames[0].Data)
	}
}

func TestTouchAndDue(t *testing.T) {
	buf := NewParticipantBuffer(16000)
	t0 := time.Now()

	if buf.Due(t0, 5*time.Second) {
		t.Fatal("untouched buffer must never be due")
	}
	if buf.Touch(t0) {
		t.Fatal("first Touch should report uninitialized")
	}
	if !buf.Touch(t0) {
		t.Fatal("second Touch should report initialized")
	}
	if buf.Due(t0.Add(4*time.Second), 5*time.Second) {
		t.Error("buffer due before window elapsed")
	}
	if !buf.Due(t0.Add(5*time.Second), 5*time.Second) {
		t.Error("buffer not due exactly at window boundary")
	}
}

func TestWindowHasData(t *testing.T) {
	if (Window{}).HasData() {
		t.Error("empty window must not report data")
	}
	if !(Window{Audio: []byte{1}}).HasData() {
		t.Error("audio-only window must report data")
	}
	if !(Window{Frames: []Frame{{Data: []byte{1}}}}).HasData() {
		t.Error("frames-only window must report data")
	}
}

func TestBufferConcurrentAppendAndFlush(t *testing.T) {
	buf := NewParticipantBuffer(16000)
	buf.Touch(time.Now())

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buf.AppendAudio(make([]byte, 320), float64(i))
			buf.AppendFrame([]byte{byte(i)}, time.Now())
		}(i)
	}
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf.Flush(time.Now())
		}()
	}
	wg.Wait()
}
