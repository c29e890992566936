package coach

import (
	"fmt"
	"strings"
)

// historyDepth caps how many prior summaries feed the cumulative narrative.
const historyDepth = 5

// EmptyHistory is the narrative used before any summary exists.
const EmptyHistory = "[meeting just started]"

// CumulativeSummary condenses prior window summaries into one compressed
// narrative: the last five, oldest first, each rendered as "[phase] text"
// and joined with an arrow separator.
func CumulativeSummary(summaries []WindowSummary) string {
	if len(summaries) == 0 {
		return EmptyHistory
	}

	if len(summaries) > historyDepth {
		summaries = summaries[len(summaries)-historyDepth:]
	}

	parts := make([]string, 0, len(summaries))
	for _, s := range summaries {
		phase := s.Phase
		if phase == "" {
			phase = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", phase, s.Summary))
	}

	return strings.Join(parts, " → ")
}
