package emotion

import "testing"

func summaryWithTops(audio, video []Score) Summary {
	return Summary{
		Audio: Modality{Status: StatusOK, TopEmotions: audio},
		Video: Modality{Status: StatusOK, TopEmotions: video},
	}
}

func TestChangedFirstObservation(t *testing.T) {
	next := summaryWithTops([]Score{{Name: "Joy", Score: 0.5}}, nil)
	if !Changed(nil, next, 0.10) {
		t.Fatal("first observation must always count as changed")
	}
}

func TestChangedSmallDeltaIsStable(t *testing.T) {
	prev := summaryWithTops([]Score{{Name: "Joy", Score: 0.50}}, []Score{{Name: "Calmness", Score: 0.40}})
	next := summaryWithTops([]Score{{Name: "Joy", Score: 0.53}}, []Score{{Name: "Calmness", Score: 0.41}})

	if Changed(&prev, next, 0.10) {
		t.Fatal("delta 0.03 below threshold must not trigger")
	}
}

func TestChangedLargeDeltaTriggers(t *testing.T) {
	prev := summaryWithTops([]Score{{Name: "Joy", Score: 0.50}}, nil)
	next := summaryWithTops([]Score{{Name: "Joy", Score: 0.65}}, nil)

	if !Changed(&prev, next, 0.10) {
		t.Fatal("delta 0.15 above threshold must trigger")
	}
}

func TestChangedTopLabelChangeTriggers(t *testing.T) {
	prev := summaryWithTops([]Score{{Name: "Joy", Score: 0.50}}, nil)
	next := summaryWithTops([]Score{{Name: "Doubt", Score: 0.50}}, nil)

	if !Changed(&prev, next, 0.10) {
		t.Fatal("top emotion label change must trigger")
	}
}

func TestChangedVideoModalityAloneTriggers(t *testing.T) {
	prev := summaryWithTops([]Score{{Name: "Joy", Score: 0.50}}, []Score{{Name: "Interest", Score: 0.30}})
	next := summaryWithTops([]Score{{Name: "Joy", Score: 0.50}}, []Score{{Name: "Interest", Score: 0.55}})

	if !Changed(&prev, next, 0.10) {
		t.Fatal("video score delta above threshold must trigger")
	}
}

func TestChangedMissingModalityCarriesNoSignal(t *testing.T) {
	prev := summaryWithTops([]Score{{Name: "Joy", Score: 0.50}}, nil)
	next := summaryWithTops(nil, []Score{{Name: "Interest", Score: 0.90}})

	// Audio disappeared and video appeared: neither side has both lists,
	// so there is nothing to compare against.
	if Changed(&prev, next, 0.10) {
		t.Fatal("modalities without a previous counterpart must not trigger")
	}
}

func TestChangedExactThresholdIsStable(t *testing.T) {
	prev := summaryWithTops([]Score{{Name: "Joy", Score: 0.50}}, nil)
	next := summaryWithTops([]Score{{Name: "Joy", Score: 0.60}}, nil)

	// Trigger requires strictly more than threshold.
	if Changed(&prev, next, 0.10) {
		t.Fatal("delta exactly at threshold must not trigger")
	}
}
