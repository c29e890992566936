package coach

import (
	"encoding/json"
	"time"

	"github.com/harshraj32/emo-insight-backend/internal/emotion"
)

// Conversation phases, in the order a call normally moves through them.
const (
	PhasePleasantries = "Pleasantries"
	PhasePitch        = "Pitch"
	PhaseQA           = "Q&A"
	PhaseClosing      = "Closing"
)

// TranscriptLine is one finalized transcript entry inside a rolling window.
type TranscriptLine struct {
	At      time.Time `json:"at"`
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
}

// EmotionRecord is one speaker's emotion observation inside a rolling window.
type EmotionRecord struct {
	At    time.Time       `json:"at"`
	Audio []emotion.Score `json:"audio_emotions"`
	Video []emotion.Score `json:"video_emotions"`
}

// WindowSnapshot is the rolling-window state handed to the summarizer:
// everything retained for one session at the moment a summarization pass
// fires.
type WindowSnapshot struct {
	RepName    string
	Objective  string
	Phase      string
	Transcript []TranscriptLine
	Emotions   map[string][]EmotionRecord
}

// WindowSummary is the compressed result of one summarization pass.
// Immutable once created; appended to the session's summary history.
type WindowSummary struct {
	Summary        string          `json:"summary"`
	KeyEmotions    json.RawMessage `json:"key_emotions,omitempty"`
	Dynamics       string          `json:"dynamics"`
	CoachingReady  bool            `json:"coaching_ready"`
	CoachingReason string          `json:"coaching_reason"`
	Phase          string          `json:"stage_assessment"`
	CreatedAt      time.Time       `json:"created_at"`
	WindowStart    time.Time       `json:"window_start"`
	WindowEnd      time.Time       `json:"window_end"`
}

// CurrentWindow is the raw, uncompressed window data inside a
// CoachingContext.
type CurrentWindow struct {
	Transcript       string                     `json:"transcript"`
	RepEmotions      []EmotionRecord            `json:"rep_emotions"`
	CustomerEmotions map[string][]EmotionRecord `json:"customer_emotions"`
}

// CoachingContext is the context manager's read surface: compressed history,
// the raw current window, and the readiness gate for the advisory generator.
type CoachingContext struct {
	Phase               string         `json:"phase"`
	Objective           string         `json:"objective"`
	SalesRepName        string         `json:"sales_rep_name"`
	ConversationHistory string         `json:"conversation_history"`
	CurrentWindow       CurrentWindow  `json:"current_window"`
	LatestAnalysis      *WindowSummary `json:"latest_analysis"`
	CoachingReady       bool           `json:"coaching_ready"`
}

// Advice is the advisory generator's structured output.
type Advice struct {
	Stage             string `json:"stage"`
	Speaker           string `json:"speaker"`
	TranscriptSnippet string `json:"transcript_snippet"`
	DominantChannel   string `json:"dominant_channel"`
	TopEmotion        string `json:"top_emotion"`
	Recommendation    string `json:"recommendation"`
}
