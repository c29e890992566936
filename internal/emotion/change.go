package emotion

import "math"

// DefaultChangeThreshold is the score delta above which a stable top emotion
// still counts as a change.
const DefaultChangeThreshold = 0.10

// Changed reports whether the delta between a speaker's previous summary and
// the new one is significant enough to escalate: no previous observation, a
// different top-ranked emotion label, or the top score moving by more than
// threshold in either modality. Stable low-signal windows return false so
// downstream summarization can be skipped cheaply.
func Changed(prev *Summary, next Summary, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultChangeThreshold
	}
	if prev == nil {
		return true
	}

	if topChanged(prev.Audio.TopEmotions, next.Audio.TopEmotions, threshold) {
		return true
	}
	return topChanged(prev.Video.TopEmotions, next.Video.TopEmotions, threshold)
}

func topChanged(old, new []Score, threshold float64) bool {
	// A modality missing on either side carries no comparison signal.
	if len(old) == 0 || len(new) == 0 {
		return false
	}
	if old[0].Name != new[0].Name {
		return true
	}
	return math.Abs(old[0].Score-new[0].Score) > threshold
}
