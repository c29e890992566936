package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/harshraj32/emo-insight-backend/internal/emotion"
	"github.com/harshraj32/emo-insight-backend/internal/llm"
)

// DefaultMinTranscriptLines is the minimum number of transcript lines a
// window needs before a summarization pass is worth an LLM call.
const DefaultMinTranscriptLines = 6

const summarizerSystemPrompt = `You are a conversation analyst for a real-time sales coaching system.

Analyze the conversation window and emotion data below and produce a structured summary that helps the coach decide whether to give advice now.

Rules:
- ONLY summarize what was actually said. If the transcript is garbled or incomplete, say so explicitly instead of inventing interpretations.
- Note emotional shifts per participant and the overall conversation dynamics.
- Be strict about coaching readiness. Say NO when the window holds only greetings, fragments, or too few back-and-forth exchanges. Better to wait for the next update than to give premature advice.

Output ONLY valid JSON with exactly these fields:
{
  "summary": "brief factual summary",
  "key_emotions": {"sales_rep": "dominant emotion with trend", "customers": {"Name": "emotion + engagement"}},
  "dynamics": "one sentence on conversation quality and flow",
  "coaching_ready": true or false,
  "coaching_reason": "specific reason, honest about data quality",
  "stage_assessment": "Pleasantries|Pitch|Q&A|Closing"
}`

var jsonFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Summarizer compresses one rolling window into a WindowSummary via an LLM,
// with a deterministic minimum-signal gate in front of the call.
type Summarizer struct {
	client   llm.Client
	minLines int
	sleep    func(time.Duration)
	now      func() time.Time
}

// NewSummarizer creates a window summarizer. minLines <= 0 falls back to
// DefaultMinTranscriptLines.
func NewSummarizer(client llm.Client, minLines int) *Summarizer {
	if minLines <= 0 {
		minLines = DefaultMinTranscriptLines
	}
	return &Summarizer{
		client:   client,
		minLines: minLines,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// SummarizeWindow analyzes one window snapshot. Windows below the minimum
// transcript line count return a not-ready summary without spending an LLM
// call. An LLM failure after retries is returned as an error; the caller
// treats it as "not ready", never as fatal.
func (s *Summarizer) SummarizeWindow(ctx context.Context, snap WindowSnapshot) (WindowSummary, error) {
	if len(snap.Transcript) < s.minLines {
		return WindowSummary{
			Summary:        "Not enough conversation captured in this window.",
			CoachingReady:  false,
			CoachingReason: fmt.Sprintf("fewer than %d transcript lines in window", s.minLines),
			Phase:          snap.Phase,
			CreatedAt:      s.now().UTC(),
		}, nil
	}

	messages := []llm.Message{
		{Role: "system", Content: summarizerSystemPrompt},
		{Role: "user", Content: buildSummarizerPrompt(snap)},
	}

	backoff := []time.Duration{1 * time.Second, 4 * time.Second, 16 * time.Second}
	var content string
	var lastErr error
	for attempt := range backoff {
		result, err := s.client.Complete(ctx, llm.Request{
			Messages:    messages,
			Temperature: 0.3,
			MaxTokens:   400,
		})
		if err == nil {
			content = result
			lastErr = nil
			break
		}
		lastErr = err
		if attempt < len(backoff)-1 {
			s.sleep(backoff[attempt])
		}
	}
	if lastErr != nil {
		return WindowSummary{}, fmt.Errorf("summarize window failed after retries: %w", lastErr)
	}

	summary := s.parseSummary(content, snap.Phase)
	summary.CreatedAt = s.now().UTC()
	return summary, nil
}

// parseSummary decodes the model output, tolerating markdown fences and
// missing fields. Unparseable output degrades to a not-ready summary rather
// than an error.
func (s *Summarizer) parseSummary(content, currentPhase string) WindowSummary {
	content = strings.TrimSpace(content)
	if m := jsonFencePattern.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	var summary WindowSummary
	if err := json.Unmarshal([]byte(content), &summary); err != nil {
		return WindowSummary{
			Summary:        "Unable to parse analysis.",
			CoachingReady:  false,
			CoachingReason: "analysis output was not valid JSON",
			Phase:          currentPhase,
		}
	}

	if summary.Phase == "" {
		summary.Phase = currentPhase
	}
	if summary.CoachingReason == "" {
		summary.CoachingReason = "no reason given"
	}
	return summary
}

func buildSummarizerPrompt(snap WindowSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Meeting Context:\n- Sales Rep: %s\n- Objective: %s\n- Current Stage: %s\n\n", snap.RepName, snap.Objective, snap.Phase)

	b.WriteString("=== TRANSCRIPT (current window) ===\n")
	if len(snap.Transcript) == 0 {
		b.WriteString("[No conversation in this window]\n")
	}
	for _, line := range snap.Transcript {
		fmt.Fprintf(&b, "[%s] %s: %s\n", line.At.UTC().Format("15:04:05"), line.Speaker, line.Text)
	}

	b.WriteString("\n=== EMOTIONS (current window) ===\n")
	if len(snap.Emotions) == 0 {
		b.WriteString("[No emotion data in this window]\n")
	}
	for speaker, records := range snap.Emotions {
		if len(records) == 0 {
			continue
		}
		latest := records[len(records)-1]
		fmt.Fprintf(&b, "%s:\n", speaker)
		if len(latest.Audio) > 0 {
			fmt.Fprintf(&b, "  Voice: %s\n", formatScores(latest.Audio))
		}
		if len(latest.Video) > 0 {
			fmt.Fprintf(&b, "  Face: %s\n", formatScores(latest.Video))
		}
	}

	b.WriteString("\nAnalyze this window and decide whether the coach should advise now. Output ONLY JSON.")
	return b.String()
}

func formatScores(scores []emotion.Score) string {
	parts := make([]string, 0, 3)
	for i, s := range scores {
		if i == 3 {
			break
		}
		parts = append(parts, fmt.Sprintf("%s(%.2f)", s.Name, s.Score))
	}
	return strings.Join(parts, ", ")
}
