package emotion

// Status classifies one modality's analysis outcome.
//
//	ok      — predictions parsed, emotions extracted
//	no_data — modality was submitted but returned no extractable signal
//	missing — modality was never submitted (no media in the window)
//	error   — encode, inference, or parse failure
type Status string

const (
	StatusOK      Status = "ok"
	StatusNoData  Status = "no_data"
	StatusMissing Status = "missing"
	StatusError   Status = "error"
)

// Score is one named emotion with its averaged prediction score.
type Score struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Modality is the canonical per-modality record inside a Summary.
// TopEmotions, when present, is sorted descending by score and capped.
type Modality struct {
	Status      Status  `json:"status"`
	Transcript  string  `json:"transcript,omitempty"`
	TopEmotions []Score `json:"top_emotions,omitempty"`
	FrameCount  int     `json:"frame_count,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// Summary is the canonical emotion record for one speaker for one clip
// window. Every aggregation path produces a well-formed Summary; the status
// vocabulary is the only failure signal.
type Summary struct {
	Audio     Modality `json:"audio"`
	Video     Modality `json:"video"`
	Timestamp string   `json:"timestamp"`
}

// TopAudio returns the highest-ranked audio emotion, if any.
func (s Summary) TopAudio() (Score, bool) {
	if len(s.Audio.TopEmotions) == 0 {
		return Score{}, false
	}
	return s.Audio.TopEmotions[0], true
}

// TopVideo returns the highest-ranked video emotion, if any.
func (s Summary) TopVideo() (Score, bool) {
	if len(s.Video.TopEmotions) == 0 {
		return Score{}, false
	}
	return s.Video.TopEmotions[0], true
}

// HasSignal reports whether either modality parsed successfully.
func (s Summary) HasSignal() bool {
	return s.Audio.Status == StatusOK || s.Video.Status == StatusOK
}
