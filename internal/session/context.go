package session

import (
	"strings"
	"sync"
	"time"

	"github.com/harshraj32/emo-insight-backend/internal/coach"
	"github.com/harshraj32/emo-insight-backend/internal/emotion"
)

// Context is one session's rolling conversational state: transcript and
// emotion windows bounded by the retention horizon, plus the accumulated
// window summaries. Windows are trimmed on every mutation and on every
// periodic check, so retained data never outlives the horizon between events.
type Context struct {
	mu sync.Mutex

	repName   string
	objective string
	phase     string

	retention       time.Duration
	summaryInterval time.Duration
	changeThreshold float64

	transcript []coach.TranscriptLine
	emotions   map[string][]coach.EmotionRecord
	summaries  []coach.WindowSummary

	lastEmotion   map[string]*emotion.Summary
	lastSummaryAt time.Time
	now           func() time.Time
}

// NewContext creates the rolling context for one session. The summarization
// clock starts at creation so the first pass waits a full interval.
func NewContext(repName, objective string, retention, summaryInterval time.Duration, changeThreshold float64) *Context {
	if retention <= 0 {
		retention = 120 * time.Second
	}
	if summaryInterval <= 0 {
		summaryInterval = 30 * time.Second
	}
	if changeThreshold <= 0 {
		changeThreshold = emotion.DefaultChangeThreshold
	}

	c := &Context{
		repName:         repName,
		objective:       objective,
		phase:           coach.PhasePleasantries,
		retention:       retention,
		summaryInterval: summaryInterval,
		changeThreshold: changeThreshold,
		emotions:        make(map[string][]coach.EmotionRecord),
		lastEmotion:     make(map[string]*emotion.Summary),
		now:             time.Now,
	}
	c.lastSummaryAt = c.now()
	return c
}

// AddTranscript appends one finalized transcript line to the rolling window.
func (c *Context) AddTranscript(line coach.TranscriptLine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transcript = append(c.transcript, line)
	c.trimLocked(c.now())
}

// RecordEmotion runs the change gate for one speaker's new window summary.
// When the summary represents a meaningful change (first observation, top
// label changed, or top score moved past the threshold in either modality)
// the observation is appended to the rolling window and true is returned.
// Stable windows update nothing and return false.
func (c *Context) RecordEmotion(speaker string, s emotion.Summary) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !emotion.Changed(c.lastEmotion[speaker], s, c.changeThreshold) {
		c.trimLocked(c.now())
		return false
	}

	snapshot := s
	c.lastEmotion[speaker] = &snapshot

	c.emotions[speaker] = append(c.emotions[speaker], coach.EmotionRecord{
		At:    c.now(),
		Audio: s.Audio.TopEmotions,
		Video: s.Video.TopEmotions,
	})
	c.trimLocked(c.now())
	return true
}

// ShouldSummarize reports whether the summarization interval has elapsed and
// there is anything in the window to compress.
func (c *Context) ShouldSummarize(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.trimLocked(now)
	if now.Sub(c.lastSummaryAt) < c.summaryInterval {
		return false
	}
	if len(c.transcript) == 0 && len(c.emotions) == 0 {
		return false
	}
	return true
}

// Snapshot copies the current rolling windows for the summarizer. The copy is
// detached; later mutations do not affect it.
func (c *Context) Snapshot() coach.WindowSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := coach.WindowSnapshot{
		RepName:    c.repName,
		Objective:  c.objective,
		Phase:      c.phase,
		Transcript: append([]coach.TranscriptLine(nil), c.transcript...),
		Emotions:   make(map[string][]coach.EmotionRecord, len(c.emotions)),
	}
	for speaker, records := range c.emotions {
		snap.Emotions[speaker] = append([]coach.EmotionRecord(nil), records...)
	}
	return snap
}

// AddSummary appends a completed summarization pass, advances the
// summarization clock, and adopts the summary's phase assessment when the
// summarizer produced one.
func (c *Context) AddSummary(ws coach.WindowSummary, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.summaries = append(c.summaries, ws)
	c.lastSummaryAt = now
	if ws.Phase != "" {
		c.phase = ws.Phase
	}
}

// MarkSummarized advances the summarization clock without recording a
// summary, used when a pass fails so the next attempt waits a full interval.
func (c *Context) MarkSummarized(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSummaryAt = now
}

// Phase returns the current conversation phase.
func (c *Context) Phase() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// PrepareCoachingContext builds the advisory generator's input: compressed
// history from prior summaries, the raw current window, and the latest
// summary's readiness gate. With no summaries yet, coaching is not ready.
func (c *Context) PrepareCoachingContext() coach.CoachingContext {
	c.mu.Lock()
	defer c.mu.Unlock()

	cc := coach.CoachingContext{
		Phase:        c.phase,
		Objective:    c.objective,
		SalesRepName: c.repName,
	}

	var prior []coach.WindowSummary
	if len(c.summaries) > 0 {
		prior = c.summaries[:len(c.summaries)-1]
		latest := c.summaries[len(c.summaries)-1]
		cc.LatestAnalysis = &latest
		cc.CoachingReady = latest.CoachingReady
	}
	cc.ConversationHistory = coach.CumulativeSummary(prior)

	var lines []string
	for _, line := range c.transcript {
		lines = append(lines, line.Speaker+": "+line.Text)
	}
	cc.CurrentWindow.Transcript = strings.Join(lines, "\n")
	cc.CurrentWindow.CustomerEmotions = make(map[string][]coach.EmotionRecord)
	for speaker, records := range c.emotions {
		copied := append([]coach.EmotionRecord(nil), records...)
		if speaker == c.repName {
			cc.CurrentWindow.RepEmotions = copied
		} else {
			cc.CurrentWindow.CustomerEmotions[speaker] = copied
		}
	}

	return cc
}

// trimLocked drops window entries older than the retention horizon. Callers
// hold c.mu.
func (c *Context) trimLocked(now time.Time) {
	horizon := now.Add(-c.retention)

	firstKept := 0
	for firstKept < len(c.transcript) && c.transcript[firstKept].At.Before(horizon) {
		firstKept++
	}
	if firstKept > 0 {
		c.transcript = append([]coach.TranscriptLine(nil), c.transcript[firstKept:]...)
	}

	for speaker, records := range c.emotions {
		kept := 0
		for kept < len(records) && records[kept].At.Before(horizon) {
			kept++
		}
		if kept == len(records) {
			delete(c.emotions, speaker)
		} else if kept > 0 {
			c.emotions[speaker] = append([]coach.EmotionRecord(nil), records[kept:]...)
		}
	}
}
