package session

import (
	"context"
	"time"

	"github.com/harshraj32/emo-insight-backend/internal/coach"
	"github.com/harshraj32/emo-insight-backend/internal/emotion"
	"github.com/harshraj32/emo-insight-backend/internal/media"
)

// Store persists session records and the per-session event trail.
type Store interface {
	CreateSession(id, repName, objective, botID string, createdAt time.Time) error
	EndSession(id string, endedAt time.Time) error
	AppendTranscript(sessionID string, line coach.TranscriptLine) error
	AppendEmotionTrail(sessionID, speaker string, summary emotion.Summary) error
	AppendWindowSummary(sessionID string, ws coach.WindowSummary) error
}

// WindowProcessor turns one participant's flushed window into an emotion
// summary. Runs on a worker goroutine.
type WindowProcessor interface {
	Process(ctx context.Context, sessionID, speaker string, win media.Window) emotion.Summary
}

// Summarizer compresses a rolling-window snapshot into a WindowSummary.
type Summarizer interface {
	SummarizeWindow(ctx context.Context, snap coach.WindowSnapshot) (coach.WindowSummary, error)
}

// Advisor generates a coaching advisory from prepared context. It never
// fails; a degraded fallback advisory is returned instead.
type Advisor interface {
	Advise(ctx context.Context, cc coach.CoachingContext) coach.Advice
}

// EventBroadcaster pushes live session output to connected UI clients.
type EventBroadcaster interface {
	BroadcastSessionStarted(sessionID, repName string)
	BroadcastSessionEnded(sessionID string, duration time.Duration)
	BroadcastTranscript(sessionID string, line coach.TranscriptLine, partial bool)
	BroadcastPresence(sessionID, speaker, kind string)
	BroadcastEmotion(sessionID, speaker string, summary emotion.Summary, blended string)
	BroadcastAdvice(sessionID string, advice coach.Advice)
}

// JobSubmitter hands work to the shared bounded worker pool.
type JobSubmitter interface {
	Submit(job func()) error
}
