package session

import (
	"sync"
	"time"

	"github.com/harshraj32/emo-insight-backend/internal/clip"
	"github.com/harshraj32/emo-insight-backend/internal/media"
)

// Session is one active coaching engagement: identity, the rolling context,
// and the per-speaker media buffers feeding the clip scheduler. All derived
// state is destroyed with the session.
type Session struct {
	ID        string
	RepName   string
	Objective string
	BotID     string
	CreatedAt time.Time

	ctx        *Context
	sampleRate int

	mu      sync.Mutex
	buffers map[string]*media.ParticipantBuffer
	closed  bool

	scheduler *clip.Scheduler
	stopLoop  chan struct{}
	loopDone  chan struct{}
}

// Buffers returns a snapshot of the live participant buffer map for the clip
// scheduler. The buffers themselves are shared and internally locked.
func (s *Session) Buffers() map[string]*media.ParticipantBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*media.ParticipantBuffer, len(s.buffers))
	for speaker, buf := range s.buffers {
		out[speaker] = buf
	}
	return out
}

// Context returns the session's rolling conversational context.
func (s *Session) Context() *Context {
	return s.ctx
}

// buffer returns the speaker's media buffer, provisioning it on first sight.
func (s *Session) buffer(speaker string) *media.ParticipantBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.buffers[speaker]
	if !ok {
		buf = media.NewParticipantBuffer(s.sampleRate)
		s.buffers[speaker] = buf
	}
	return buf
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}
