package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/harshraj32/emo-insight-backend/internal/llm"
)

// FallbackRecommendation is emitted whenever advice generation fails, so the
// live consumer always receives some response rather than silence.
const FallbackRecommendation = "Keep the conversation going. Listen closely and respond to your customer's questions directly."

const advisorSystemPrompt = `You are a motivated, supportive sales coach giving real-time guidance during live video calls. You receive the compressed conversation history, the raw current window (transcript plus per-speaker voice and face emotions), and the latest window analysis.

Weight the emotion channels by call stage:
- Pleasantries: prioritize voice tone (warmth, excitement, hesitancy).
- Pitch: prioritize the customer's face reactions (confusion, boredom, trust); rep delivery tone matters.
- Q&A: treat voice and face equally; focus on whether the rep's answers land.
- Closing: prioritize voice (confidence, warmth, clarity).

Output ONLY valid JSON with exactly these fields:
{
  "stage": "Pleasantries|Pitch|Q&A|Closing",
  "speaker": "Rep or Customer(s)",
  "transcript_snippet": "latest relevant line, if any",
  "dominant_channel": "voice, face, or balanced",
  "top_emotion": "strongest emotion after weighting",
  "recommendation": "1-2 sentences of actionable coaching advice"
}`

// Advisor turns a prepared coaching context into one piece of structured
// advice. It never fails: any generation or parse error degrades to the
// fallback recommendation.
type Advisor struct {
	client llm.Client
	logf   func(format string, args ...any)
}

// NewAdvisor creates an advisor around the given LLM client.
func NewAdvisor(client llm.Client) *Advisor {
	return &Advisor{client: client, logf: log.Printf}
}

// Advise generates coaching advice from the context. The caller is expected
// to have checked the coaching_ready gate; Advise itself only degrades, it
// does not gate.
func (a *Advisor) Advise(ctx context.Context, cc CoachingContext) Advice {
	fallback := Advice{
		Stage:          cc.Phase,
		Recommendation: FallbackRecommendation,
	}

	if a.client == nil {
		return fallback
	}

	payload, err := json.MarshalIndent(cc, "", "  ")
	if err != nil {
		a.logf("warning: marshal coaching context: %v", err)
		return fallback
	}

	userPrompt := fmt.Sprintf(
		"Here is the current coaching context for %s (objective: %s).\n\n%s\n\nProvide coaching feedback in JSON only, using the format defined above.",
		cc.SalesRepName, cc.Objective, payload,
	)

	content, err := a.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: advisorSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.6,
		MaxTokens:   300,
	})
	if err != nil {
		a.logf("warning: advice generation failed: %v", err)
		return fallback
	}

	content = strings.TrimSpace(content)
	if m := jsonFencePattern.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	var advice Advice
	if err := json.Unmarshal([]byte(content), &advice); err != nil {
		a.logf("warning: advice output was not valid JSON: %v", err)
		return fallback
	}
	if strings.TrimSpace(advice.Recommendation) == "" {
		advice.Recommendation = FallbackRecommendation
	}
	if advice.Stage == "" {
		advice.Stage = cc.Phase
	}

	return advice
}
