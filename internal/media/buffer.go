package media

import (
	"sync"
	"time"
)

const (
	// DefaultSampleRate is the PCM sample rate of the inbound audio stream.
	DefaultSampleRate = 16000
	// SampleWidth is bytes per sample (16-bit mono).
	SampleWidth = 2
)

// Frame is one timestamped video frame as delivered by the meeting bot.
type Frame struct {
	Data       []byte
	CapturedAt time.Time
}

// Window is the detached contents of one participant buffer for one clip
// window. It is an immutable snapshot: the buffer no longer references it.
type Window struct {
	Audio  []byte
	Frames []Frame
	Start  time.Time
	End    time.Time
}

// HasData reports whether the window carries any audio or frames worth
// submitting downstream.
func (w Window) HasData() bool {
	return len(w.Audio) > 0 || len(w.Frames) > 0
}

// ParticipantBuffer accumulates one speaker's raw audio and video frames
// between clip flushes. Audio appends are gap-compensated: when the
// sender-declared relative timestamp implies more elapsed samples than the
// chunk carries, silence is inserted so buffer duration keeps tracking
// elapsed stream time and audio/video clips stay aligned.
type ParticipantBuffer struct {
	mu sync.Mutex

	sampleRate int
	audio      []byte
	frames     []Frame

	lastAudioTS    float64
	hasLastAudioTS bool

	startTime time.Time
	lastFlush time.Time
}

// NewParticipantBuffer creates an empty buffer. A sampleRate <= 0 falls back
// to DefaultSampleRate.
func NewParticipantBuffer(sampleRate int) *ParticipantBuffer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &ParticipantBuffer{sampleRate: sampleRate}
}

// AppendAudio appends a raw PCM chunk stamped with the sender's relative
// timestamp (seconds since stream start). The first chunk is appended as-is;
// later chunks are preceded by silence padding when the elapsed relative time
// implies samples that never arrived.
func (b *ParticipantBuffer) AppendAudio(pcm []byte, relativeTS float64) {
	if len(pcm) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hasLastAudioTS {
		expected := int((relativeTS - b.lastAudioTS) * float64(b.sampleRate))
		gap := expected - len(pcm)/SampleWidth
		if gap > 0 {
			b.audio = append(b.audio, make([]byte, gap*SampleWidth)...)
		}
	}

	b.audio = append(b.audio, pcm...)
	b.lastAudioTS = relativeTS
	b.hasLastAudioTS = true
}

// AppendFrame appends a video frame with its capture time.
func (b *ParticipantBuffer) AppendFrame(data []byte, capturedAt time.Time) {
	if len(data) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, Frame{Data: data, CapturedAt: capturedAt})
}

// AudioLen returns the buffered audio length in bytes.
func (b *ParticipantBuffer) AudioLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.audio)
}

// FrameCount returns the number of buffered frames.
func (b *ParticipantBuffer) FrameCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// Touch initializes window timing on first sight of a participant. It
// returns true if timing was already initialized.
func (b *ParticipantBuffer) Touch(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.startTime.IsZero() {
		b.startTime = now
		b.lastFlush = now
		return false
	}
	return true
}

// Due reports whether at least window has elapsed since the last flush.
// Untouched buffers are never due.
func (b *ParticipantBuffer) Due(now time.Time, window time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lastFlush.IsZero() {
		return false
	}
	return now.Sub(b.lastFlush) >= window
}

// Flush atomically detaches the accumulated audio and the frames captured in
// [lastFlush, now), clears the buffer, and advances lastFlush to now. The gap
// tracker is reset so the first chunk of the next window gets no padding.
func (b *ParticipantBuffer) Flush(now time.Time) Window {
	b.mu.Lock()
	defer b.mu.Unlock()

	win := Window{
		Audio: b.audio,
		Start: b.lastFlush,
		End:   now,
	}

	for _, f := range b.frames {
		if !f.CapturedAt.Before(win.Start) && f.CapturedAt.Before(win.End) {
			win.Frames = append(win.Frames, f)
		}
	}

	b.audio = nil
	b.frames = nil
	b.hasLastAudioTS = false
	b.lastFlush = now

	return win
}
