package session

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harshraj32/emo-insight-backend/internal/clip"
	"github.com/harshraj32/emo-insight-backend/internal/coach"
	"github.com/harshraj32/emo-insight-backend/internal/emotion"
	"github.com/harshraj32/emo-insight-backend/internal/media"
	"github.com/harshraj32/emo-insight-backend/internal/metrics"
	"github.com/harshraj32/emo-insight-backend/internal/stream"
)

// defaultCheckInterval is how often each session's context loop checks
// whether a summarization pass is due.
const defaultCheckInterval = 5 * time.Second

// Options carries the registry's tuning knobs. Zero values fall back to the
// production defaults.
type Options struct {
	SampleRate      int
	ClipWindow      time.Duration
	Retention       time.Duration
	SummaryInterval time.Duration
	ChangeThreshold float64
	CheckInterval   time.Duration
	SummaryTimeout  time.Duration
}

// Registry owns every live session and all state derived from it. It is the
// single mutation path for session lifecycle: create, route events, destroy.
type Registry struct {
	store      Store
	processor  WindowProcessor
	summarizer Summarizer
	advisor    Advisor
	hub        EventBroadcaster
	pool       JobSubmitter

	opts Options
	logf func(format string, args ...any)
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry wires the session engine. store, processor, and pool are
// required; summarizer, advisor, and hub may be nil and their stages are then
// skipped.
func NewRegistry(store Store, processor WindowProcessor, summarizer Summarizer, advisor Advisor, hub EventBroadcaster, pool JobSubmitter, opts Options) *Registry {
	if opts.ClipWindow <= 0 {
		opts.ClipWindow = 5 * time.Second
	}
	if opts.Retention <= 0 {
		opts.Retention = 120 * time.Second
	}
	if opts.SummaryInterval <= 0 {
		opts.SummaryInterval = 30 * time.Second
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = defaultCheckInterval
	}
	if opts.SummaryTimeout <= 0 {
		opts.SummaryTimeout = 60 * time.Second
	}

	return &Registry{
		store:      store,
		processor:  processor,
		summarizer: summarizer,
		advisor:    advisor,
		hub:        hub,
		pool:       pool,
		opts:       opts,
		logf:       log.Printf,
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
}

// Create starts a new session: persists the record, provisions the rolling
// context, and launches the clip scheduler and the summarization loop.
func (r *Registry) Create(repName, objective, botID string) (*Session, error) {
	s := &Session{
		ID:         uuid.NewString(),
		RepName:    repName,
		Objective:  objective,
		BotID:      botID,
		CreatedAt:  r.now().UTC(),
		ctx:        NewContext(repName, objective, r.opts.Retention, r.opts.SummaryInterval, r.opts.ChangeThreshold),
		sampleRate: r.opts.SampleRate,
		buffers:    make(map[string]*media.ParticipantBuffer),
		stopLoop:   make(chan struct{}),
		loopDone:   make(chan struct{}),
	}

	if err := r.store.CreateSession(s.ID, repName, objective, botID, s.CreatedAt); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.scheduler = clip.NewScheduler(s.ID, r.opts.ClipWindow, s, r.pool.Submit, func(speaker string, win media.Window) {
		r.processWindow(s.ID, speaker, win)
	})

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	s.scheduler.Start()
	go r.contextLoop(s)

	metrics.SessionsActive.Inc()
	if r.hub != nil {
		r.hub.BroadcastSessionStarted(s.ID, repName)
	}
	return s, nil
}

// Get returns the live session for id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return s, nil
}

// List returns all live sessions, oldest first.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// End tears a session down: stops its timers, persists the end record, and
// drops all derived state. In-flight worker jobs finish but their results are
// discarded because the session no longer resolves.
func (r *Registry) End(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrUnknownSession
	}
	if !s.markClosed() {
		return ErrSessionClosed
	}

	s.scheduler.Stop()
	close(s.stopLoop)
	<-s.loopDone

	endedAt := r.now().UTC()
	if err := r.store.EndSession(id, endedAt); err != nil {
		r.logf("warning: persisting session end for %s: %v", id, err)
	}

	metrics.SessionsActive.Dec()
	if r.hub != nil {
		r.hub.BroadcastSessionEnded(id, endedAt.Sub(s.CreatedAt))
	}
	return nil
}

// CloseAll ends every live session, used during shutdown.
func (r *Registry) CloseAll() {
	for _, s := range r.List() {
		if err := r.End(s.ID); err != nil && err != ErrUnknownSession {
			r.logf("warning: ending session %s: %v", s.ID, err)
		}
	}
}

// HandleEvent routes one parsed inbound event into the session's buffers and
// context. Unknown session ids are rejected so the ingest boundary can close
// the connection.
func (r *Registry) HandleEvent(sessionID string, ev stream.Event) error {
	s, err := r.Get(sessionID)
	if err != nil {
		return err
	}

	metrics.EventsIngested.WithLabelValues(ev.Kind).Inc()
	now := r.now().UTC()

	switch ev.Kind {
	case stream.KindAudioChunk:
		s.buffer(ev.Participant.Name).AppendAudio(ev.Audio, ev.RelativeTS)

	case stream.KindVideoFrame:
		s.buffer(ev.Participant.Name).AppendFrame(ev.Frame, now)

	case stream.KindTranscript:
		if ev.Text == "" {
			return nil
		}
		line := coach.TranscriptLine{At: now, Speaker: ev.Participant.Name, Text: ev.Text}
		if err := r.store.AppendTranscript(sessionID, line); err != nil {
			r.logf("warning: persisting transcript for %s: %v", sessionID, err)
		}
		s.ctx.AddTranscript(line)
		if r.hub != nil {
			r.hub.BroadcastTranscript(sessionID, line, false)
		}

	case stream.KindTranscriptPartial:
		if ev.Text == "" {
			return nil
		}
		if r.hub != nil {
			r.hub.BroadcastTranscript(sessionID, coach.TranscriptLine{At: now, Speaker: ev.Participant.Name, Text: ev.Text}, true)
		}

	default:
		if ev.IsPresence() {
			if r.hub != nil {
				r.hub.BroadcastPresence(sessionID, ev.Participant.Name, ev.Kind)
			}
		}
	}

	return nil
}

// processWindow runs on a worker goroutine: encode and analyze one flushed
// window, then deliver the summary back into the session if it still exists.
func (r *Registry) processWindow(sessionID, speaker string, win media.Window) {
	summary := r.processor.Process(context.Background(), sessionID, speaker, win)

	s, err := r.Get(sessionID)
	if err != nil {
		// Session ended while the job was in flight; drop the result.
		return
	}

	if err := r.store.AppendEmotionTrail(sessionID, speaker, summary); err != nil {
		r.logf("warning: persisting emotion trail for %s/%s: %v", sessionID, speaker, err)
	}

	if !s.ctx.RecordEmotion(speaker, summary) {
		return
	}
	if r.hub != nil {
		r.hub.BroadcastEmotion(sessionID, speaker, summary, blendedLabel(summary))
	}
}

// blendedLabel prefers the facial channel when both carry signal.
func blendedLabel(s emotion.Summary) string {
	if len(s.Video.TopEmotions) > 0 {
		return emotion.BlendedLabel(s.Video.TopEmotions)
	}
	return emotion.BlendedLabel(s.Audio.TopEmotions)
}

// contextLoop periodically checks whether a summarization pass is due and
// runs it. One loop per session, cancelled at teardown.
func (r *Registry) contextLoop(s *Session) {
	defer close(s.loopDone)

	ticker := time.NewTicker(r.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopLoop:
			return
		case <-ticker.C:
			now := r.now()
			if s.ctx.ShouldSummarize(now) {
				r.runSummaryPass(s, now)
			}
		}
	}
}

// runSummaryPass compresses the current windows and, when the result says
// coaching is ready, generates and broadcasts an advisory. Failures are
// logged and treated as not ready.
func (r *Registry) runSummaryPass(s *Session, now time.Time) {
	if r.summarizer == nil {
		s.ctx.MarkSummarized(now)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.opts.SummaryTimeout)
	defer cancel()

	ws, err := r.summarizer.SummarizeWindow(ctx, s.ctx.Snapshot())
	if err != nil {
		metrics.WindowSummaries.WithLabelValues("false").Inc()
		r.logf("warning: window summary for %s: %v", s.ID, err)
		s.ctx.MarkSummarized(now)
		return
	}

	s.ctx.AddSummary(ws, now)
	metrics.WindowSummaries.WithLabelValues(fmt.Sprintf("%t", ws.CoachingReady)).Inc()
	if err := r.store.AppendWindowSummary(s.ID, ws); err != nil {
		r.logf("warning: persisting window summary for %s: %v", s.ID, err)
	}

	if !ws.CoachingReady || r.advisor == nil {
		return
	}

	advice := r.advisor.Advise(ctx, s.ctx.PrepareCoachingContext())
	metrics.AdviceGenerated.Inc()
	if r.hub != nil {
		r.hub.BroadcastAdvice(s.ID, advice)
	}
}
