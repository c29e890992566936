package coach

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harshraj32/emo-insight-backend/internal/emotion"
	"github.com/harshraj32/emo-insight-backend/internal/llm"
)

type mockLLMClient struct {
	calls    int
	response string
	err      error
	failures int
	lastReq  llm.Request
}

func (m *mockLLMClient) Complete(_ context.Context, req llm.Request) (string, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil && m.calls <= m.failures {
		return "", m.err
	}
	return m.response, nil
}

func snapshotWithLines(n int) WindowSnapshot {
	snap := WindowSnapshot{
		RepName:   "Alice",
		Objective: "Close the deal",
		Phase:     PhasePitch,
		Emotions: map[string][]EmotionRecord{
			"Bob": {{
				At:    time.Now(),
				Audio: []emotion.Score{{Name: "Interest", Score: 0.6}},
				Video: []emotion.Score{{Name: "Confusion", Score: 0.4}},
			}},
		},
	}
	for i := 0; i < n; i++ {
		speaker := "Alice"
		if i%2 == 1 {
			speaker = "Bob"
		}
		snap.Transcript = append(snap.Transcript, TranscriptLine{
			At:      time.Now(),
			Speaker: speaker,
			Text:    "This is a complete sentence about the product.",
		})
	}
	return snap
}

func TestSummarizeWindowParsesJSON(t *testing.T) {
	client := &mockLLMClient{response: `{
		"summary": "Rep pitched pricing, customer asked two questions.",
		"key_emotions": {"sales_rep": "confident", "customers": {"Bob": "interested"}},
		"dynamics": "Good back-and-forth.",
		"coaching_ready": true,
		"coaching_reason": "clear pitch and customer questions",
		"stage_assessment": "Q&A"
	}`}

	s := NewSummarizer(client, 6)
	summary, err := s.SummarizeWindow(context.Background(), snapshotWithLines(8))
	if err != nil {
		t.Fatalf("SummarizeWindow failed: %v", err)
	}

	if !summary.CoachingReady {
		t.Error("expected coaching_ready true")
	}
	if summary.Phase != "Q&A" {
		t.Errorf("expected stage Q&A, got %q", summary.Phase)
	}
	if summary.CreatedAt.IsZero() {
		t.Error("expected CreatedAt stamped")
	}
	if client.lastReq.Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", client.lastReq.Temperature)
	}
	if !strings.Contains(client.lastReq.Messages[1].Content, "Alice") {
		t.Error("expected prompt to include rep name")
	}
	if !strings.Contains(client.lastReq.Messages[1].Content, "Interest(0.60)") {
		t.Error("expected prompt to include formatted emotion scores")
	}
}

func TestSummarizeWindowBelowMinLinesSkipsLLM(t *testing.T) {
	client := &mockLLMClient{response: "should-not-be-called"}
	s := NewSummarizer(client, 6)

	summary, err := s.SummarizeWindow(context.Background(), snapshotWithLines(5))
	if err != nil {
		t.Fatalf("SummarizeWindow failed: %v", err)
	}
	if summary.CoachingReady {
		t.Error("expected coaching_ready false below line threshold")
	}
	if client.calls != 0 {
		t.Errorf("expected no LLM call, got %d", client.calls)
	}
}

func TestSummarizeWindowZeroLinesNotReady(t *testing.T) {
	s := NewSummarizer(&mockLLMClient{}, 6)
	summary, err := s.SummarizeWindow(context.Background(), snapshotWithLines(0))
	if err != nil {
		t.Fatalf("SummarizeWindow failed: %v", err)
	}
	if summary.CoachingReady {
		t.Error("expected coaching_ready false for empty window")
	}
}

func TestSummarizeWindowExactlyThresholdCallsLLM(t *testing.T) {
	client := &mockLLMClient{response: `{"summary": "s", "coaching_ready": true, "coaching_reason": "r", "stage_assessment": "Pitch", "dynamics": "d"}`}
	s := NewSummarizer(client, 6)

	summary, err := s.SummarizeWindow(context.Background(), snapshotWithLines(6))
	if err != nil {
		t.Fatalf("SummarizeWindow failed: %v", err)
	}
	if !summary.CoachingReady {
		t.Error("expected coaching_ready true at exact threshold")
	}
	if client.calls != 1 {
		t.Errorf("expected 1 LLM call, got %d", client.calls)
	}
}

func TestSummarizeWindowStripsMarkdownFence(t *testing.T) {
	client := &mockLLMClient{response: "```json\n{\"summary\": \"fenced\", \"coaching_ready\": true, \"coaching_reason\": \"r\", \"stage_assessment\": \"Pitch\", \"dynamics\": \"d\"}\n```"}
	s := NewSummarizer(client, 6)

	summary, err := s.SummarizeWindow(context.Background(), snapshotWithLines(6))
	if err != nil {
		t.Fatalf("SummarizeWindow failed: %v", err)
	}
	if summary.Summary != "fenced" {
		t.Errorf("expected fenced JSON parsed, got %q", summary.Summary)
	}
}

func TestSummarizeWindowUnparseableOutputDegrades(t *testing.T) {
	client := &mockLLMClient{response: "I think the conversation is going well!"}
	s := NewSummarizer(client, 6)

	summary, err := s.SummarizeWindow(context.Background(), snapshotWithLines(6))
	if err != nil {
		t.Fatalf("SummarizeWindow must not fail on unparseable output: %v", err)
	}
	if summary.CoachingReady {
		t.Error("expected coaching_ready false for unparseable output")
	}
	if summary.Phase != PhasePitch {
		t.Errorf("expected current phase carried through, got %q", summary.Phase)
	}
}

func TestSummarizeWindowRetriesThenSucceeds(t *testing.T) {
	client := &mockLLMClient{
		response: `{"summary": "ok", "coaching_ready": false, "coaching_reason": "r", "stage_assessment": "Pitch", "dynamics": "d"}`,
		err:      errors.New("rate limited"),
		failures: 2,
	}
	s := NewSummarizer(client, 6)

	var slept []time.Duration
	s.sleep = func(d time.Duration) { slept = append(slept, d) }

	if _, err := s.SummarizeWindow(context.Background(), snapshotWithLines(6)); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if client.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", client.calls)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 4*time.Second {
		t.Errorf("unexpected backoff ladder %v", slept)
	}
}

func TestSummarizeWindowExhaustedRetriesReturnsError(t *testing.T) {
	client := &mockLLMClient{err: errors.New("down"), failures: 99}
	s := NewSummarizer(client, 6)
	s.sleep = func(time.Duration) {}

	if _, err := s.SummarizeWindow(context.Background(), snapshotWithLines(6)); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if client.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", client.calls)
	}
}
