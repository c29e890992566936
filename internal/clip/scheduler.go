package clip

import (
	"log"
	"time"

	"github.com/harshraj32/emo-insight-backend/internal/media"
	"github.com/harshraj32/emo-insight-backend/internal/metrics"
)

// defaultTickInterval is how often the scheduler checks buffers, independent
// of data arrival.
const defaultTickInterval = time.Second

// BufferSource exposes one session's live participant buffers to the
// scheduler. The returned map is a snapshot; the buffers themselves are
// shared and internally locked.
type BufferSource interface {
	Buffers() map[string]*media.ParticipantBuffer
}

// Scheduler is a per-session timer that flushes each participant buffer once
// per window and hands the detached window to the worker pool. All flush
// passes run on the single ticker goroutine, so no two passes for the same
// participant ever overlap.
type Scheduler struct {
	sessionID string
	window    time.Duration
	source    BufferSource
	submit    func(job func()) error
	process   func(speaker string, win media.Window)

	interval time.Duration
	now      func() time.Time
	logf     func(format string, args ...any)
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler creates a scheduler for one session. process runs on a worker
// goroutine and must not touch session state directly.
func NewScheduler(
	sessionID string,
	window time.Duration,
	source BufferSource,
	submit func(job func()) error,
	process func(speaker string, win media.Window),
) *Scheduler {
	if window <= 0 {
		window = 5 * time.Second
	}
	return &Scheduler{
		sessionID: sessionID,
		window:    window,
		source:    source,
		submit:    submit,
		process:   process,
		interval:  defaultTickInterval,
		now:       time.Now,
		logf:      log.Printf,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the ticker goroutine.
func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.RunOnce(s.now())
			}
		}
	}()
}

// Stop cancels the ticker and waits for the current pass to finish. In-flight
// worker jobs are not cancelled; their results are dropped by the consumer
// when the session no longer exists.
func (s *Scheduler) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}

// RunOnce executes one flush pass: every participant buffer that has
// accumulated a full window is atomically detached and, if it carries data,
// submitted for processing. Empty windows are skipped so no wasted external
// calls are made.
func (s *Scheduler) RunOnce(now time.Time) {
	for speaker, buf := range s.source.Buffers() {
		if !buf.Touch(now) {
			continue
		}
		if !buf.Due(now, s.window) {
			continue
		}

		win := buf.Flush(now)
		if !win.HasData() {
			continue
		}

		if err := s.submit(func() { s.process(speaker, win) }); err != nil {
			metrics.WorkerQueueDrops.Inc()
			s.logf("warning: dropping clip window for %s/%s: %v", s.sessionID, speaker, err)
		}
	}
}
