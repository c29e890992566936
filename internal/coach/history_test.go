package coach

import "testing"

func TestCumulativeSummaryEmpty(t *testing.T) {
	if got := CumulativeSummary(nil); got != "[meeting just started]" {
		t.Fatalf("expected empty-history marker, got %q", got)
	}
}

func TestCumulativeSummaryJoinsOldestFirst(t *testing.T) {
	summaries := []WindowSummary{
		{Phase: "Pleasantries", Summary: "Greetings exchanged."},
		{Phase: "Pitch", Summary: "Rep introduced the product."},
	}

	got := CumulativeSummary(summaries)
	want := "[Pleasantries] Greetings exchanged. → [Pitch] Rep introduced the product."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestCumulativeSummaryCapsAtFive(t *testing.T) {
	var summaries []WindowSummary
	for _, s := range []string{"one", "two", "three", "four", "five", "six", "seven"} {
		summaries = append(summaries, WindowSummary{Phase: "Pitch", Summary: s})
	}

	got := CumulativeSummary(summaries)
	if want := "[Pitch] three → [Pitch] four → [Pitch] five → [Pitch] six → [Pitch] seven"; got != want {
		t.Fatalf("expected last five oldest-first, got %q", got)
	}
}

func TestCumulativeSummaryMissingPhase(t *testing.T) {
	got := CumulativeSummary([]WindowSummary{{Summary: "text"}})
	if got != "[Unknown] text" {
		t.Fatalf("expected Unknown phase marker, got %q", got)
	}
}
