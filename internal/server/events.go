package server

import (
	"time"

	"github.com/harshraj32/emo-insight-backend/internal/coach"
	"github.com/harshraj32/emo-insight-backend/internal/emotion"
)

const EventVersion = 1

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type SessionStartedEvent struct {
	Event
	SessionID string `json:"session_id"`
	RepName   string `json:"rep_name"`
}

type SessionEndedEvent struct {
	Event
	SessionID string  `json:"session_id"`
	Duration  float64 `json:"duration"`
}

type TranscriptEvent struct {
	Event
	SessionID string `json:"session_id"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Partial   bool   `json:"partial"`
}

type PresenceEvent struct {
	Event
	SessionID string `json:"session_id"`
	Speaker   string `json:"speaker"`
	Kind      string `json:"kind"`
}

type EmotionEvent struct {
	Event
	SessionID string          `json:"session_id"`
	Speaker   string          `json:"speaker"`
	Blended   string          `json:"blended_label"`
	Summary   emotion.Summary `json:"summary"`
}

type AdviceEvent struct {
	Event
	SessionID string       `json:"session_id"`
	Advice    coach.Advice `json:"advice"`
}

type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
