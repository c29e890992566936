package emotion

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DefaultTopN caps the ranked emotion list per modality.
const DefaultTopN = 3

// Result is the tagged outcome of one modality's external inference call,
// decoded exactly once here at the aggregator boundary. Submitted=false
// means no media existed for the modality; Err carries encode/inference
// failures; Payload is the raw predictions document on success.
type Result struct {
	Submitted bool
	Err       error
	Payload   json.RawMessage
}

// Aggregate normalizes the raw per-modality inference results for one
// speaker's window into a canonical Summary. It never fails: malformed,
// empty, and absent inputs all map onto the status vocabulary.
func Aggregate(audio, video Result, topN int, timestamp string) Summary {
	if topN <= 0 {
		topN = DefaultTopN
	}

	s := Summary{
		Audio:     summarizeModality(audio, "prosody", topN),
		Video:     summarizeModality(video, "face", topN),
		Timestamp: timestamp,
	}
	return s
}

func summarizeModality(raw Result, model string, topN int) Modality {
	if !raw.Submitted {
		return Modality{Status: StatusMissing}
	}
	if raw.Err != nil {
		return Modality{Status: StatusError, Error: raw.Err.Error()}
	}

	parsed, err := parsePredictions(raw.Payload, model)
	if err != nil {
		return Modality{Status: StatusError, Error: err.Error()}
	}
	if len(parsed.scores) == 0 {
		return Modality{Status: StatusNoData}
	}

	m := Modality{
		Status:      StatusOK,
		TopEmotions: rankEmotions(parsed.scores, topN),
		FrameCount:  parsed.count,
	}
	if model == "prosody" {
		m.Transcript = strings.Join(parsed.transcripts, " ")
		m.FrameCount = 0
	}
	return m
}

// Wire shapes for the inference service's predictions document. The service
// returns either a bare object or a single-element list wrapping it, and
// nests predictions under "results" on some paths.
type humeFile struct {
	Results     *humeResults     `json:"results"`
	Predictions []humePrediction `json:"predictions"`
}

type humeResults struct {
	Predictions []humePrediction `json:"predictions"`
}

type humePrediction struct {
	Models map[string]humeModel `json:"models"`
}

type humeModel struct {
	GroupedPredictions []humeGroup `json:"grouped_predictions"`
}

type humeGroup struct {
	Predictions []humeSub `json:"predictions"`
}

type humeSub struct {
	Text     string  `json:"text"`
	Emotions []Score `json:"emotions"`
}

type parsedModel struct {
	scores      map[string][]float64
	transcripts []string
	count       int
}

func parsePredictions(payload json.RawMessage, model string) (parsedModel, error) {
	out := parsedModel{scores: make(map[string][]float64)}
	if len(payload) == 0 {
		return out, nil
	}

	var file humeFile
	if err := json.Unmarshal(payload, &file); err != nil {
		// Retry as a wrapped list before declaring the payload malformed.
		var files []humeFile
		if listErr := json.Unmarshal(payload, &files); listErr != nil {
			return out, fmt.Errorf("parse predictions: %w", err)
		}
		if len(files) == 0 {
			return out, nil
		}
		file = files[0]
	}

	predictions := file.Predictions
	if file.Results != nil {
		predictions = file.Results.Predictions
	}
	if len(predictions) == 0 {
		return out, nil
	}

	m, ok := predictions[0].Models[model]
	if !ok {
		return out, nil
	}

	for _, group := range m.GroupedPredictions {
		for _, pred := range group.Predictions {
			out.count++
			if pred.Text != "" {
				out.transcripts = append(out.transcripts, pred.Text)
			}
			for _, emo := range pred.Emotions {
				out.scores[emo.Name] = append(out.scores[emo.Name], emo.Score)
			}
		}
	}

	return out, nil
}

// rankEmotions averages each emotion's scores across all sub-predictions in
// the window, then returns the top n sorted descending. Equal scores order
// by name so ranking is deterministic.
func rankEmotions(scores map[string][]float64, n int) []Score {
	ranked := make([]Score, 0, len(scores))
	for name, values := range scores {
		if len(values) == 0 {
			continue
		}
		var sum float64
		for _, v := range values {
			sum += v
		}
		ranked = append(ranked, Score{Name: name, Score: sum / float64(len(values))})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Name < ranked[j].Name
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
