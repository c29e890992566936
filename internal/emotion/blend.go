package emotion

import "strings"

// blendCloseness is the score distance within which runner-up emotions are
// folded into the display label.
const blendCloseness = 0.07

// BlendedLabel builds a display label from a ranked emotion list. Emotions
// scoring within blendCloseness of the leader are joined, capped at three.
// An empty list reads as Neutral.
func BlendedLabel(emotions []Score) string {
	if len(emotions) == 0 {
		return "Neutral"
	}

	top := emotions[0]
	var close []string
	for _, e := range emotions {
		if top.Score-e.Score <= blendCloseness {
			close = append(close, e.Name)
		}
	}

	if len(close) > 3 {
		close = close[:3]
	}
	return strings.Join(close, " + ")
}
