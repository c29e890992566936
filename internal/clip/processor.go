package clip

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/harshraj32/emo-insight-backend/internal/emotion"
	"github.com/harshraj32/emo-insight-backend/internal/media"
	"github.com/harshraj32/emo-insight-backend/internal/metrics"
)

// Inference runs one encoded clip through the external emotion service.
type Inference interface {
	ProcessClip(ctx context.Context, clipPath string, models map[string]any) (json.RawMessage, error)
}

// Encoder assembles a window's raw media into playable clip files.
type Encoder interface {
	EncodeAudio(ctx context.Context, sessionID, speaker, stamp string, pcm []byte) (string, error)
	EncodeVideo(ctx context.Context, sessionID, speaker, stamp string, frames []media.Frame) (string, error)
	Remove(paths ...string)
}

// Processor turns one participant's flushed window into a canonical emotion
// summary: encode each present modality, submit each independently to the
// inference service, aggregate whatever came back. A failure in one modality
// never aborts the other, and encode artifacts are deleted once the modality
// reaches a terminal result.
type Processor struct {
	encoder       Encoder
	inference     Inference
	topN          int
	encodeTimeout time.Duration
	inferTimeout  time.Duration
	logf          func(format string, args ...any)
}

// NewProcessor creates a window processor. A nil inference client marks
// every submitted modality as an error rather than panicking, so the
// pipeline stays alive when no API key is configured.
func NewProcessor(encoder Encoder, inference Inference, topN int, encodeTimeout, inferTimeout time.Duration) *Processor {
	if topN <= 0 {
		topN = emotion.DefaultTopN
	}
	if encodeTimeout <= 0 {
		encodeTimeout = 30 * time.Second
	}
	if inferTimeout <= 0 {
		inferTimeout = 10 * time.Minute
	}
	return &Processor{
		encoder:       encoder,
		inference:     inference,
		topN:          topN,
		encodeTimeout: encodeTimeout,
		inferTimeout:  inferTimeout,
		logf:          log.Printf,
	}
}

// Process encodes and analyzes one window. It always returns a well-formed
// summary; callers read failures from the per-modality status fields.
func (p *Processor) Process(ctx context.Context, sessionID, speaker string, win media.Window) emotion.Summary {
	stamp := win.Start.UTC().Format("20060102-150405")

	audio := p.processModality(ctx, sessionID, speaker, stamp, "audio", len(win.Audio) > 0, func(encodeCtx context.Context) (string, error) {
		return p.encoder.EncodeAudio(encodeCtx, sessionID, speaker, stamp, win.Audio)
	}, emotion.ProsodyModels())

	video := p.processModality(ctx, sessionID, speaker, stamp, "video", len(win.Frames) > 0, func(encodeCtx context.Context) (string, error) {
		return p.encoder.EncodeVideo(encodeCtx, sessionID, speaker, stamp, win.Frames)
	}, emotion.FaceModels())

	return emotion.Aggregate(audio, video, p.topN, stamp)
}

func (p *Processor) processModality(
	ctx context.Context,
	sessionID, speaker, stamp, modality string,
	present bool,
	encode func(ctx context.Context) (string, error),
	models map[string]any,
) emotion.Result {
	if !present {
		return emotion.Result{}
	}

	metrics.ClipsProcessed.WithLabelValues(modality).Inc()

	encodeCtx, cancel := context.WithTimeout(ctx, p.encodeTimeout)
	clipPath, err := encode(encodeCtx)
	cancel()
	if err != nil {
		metrics.PipelineErrors.WithLabelValues("encode").Inc()
		p.logf("warning: %s encode failed for %s/%s window %s: %v", modality, sessionID, speaker, stamp, err)
		return emotion.Result{Submitted: true, Err: fmt.Errorf("encode %s: %w", modality, err)}
	}
	defer p.encoder.Remove(clipPath)

	if p.inference == nil {
		return emotion.Result{Submitted: true, Err: fmt.Errorf("inference disabled")}
	}

	inferCtx, cancel := context.WithTimeout(ctx, p.inferTimeout)
	defer cancel()

	payload, err := p.inference.ProcessClip(inferCtx, clipPath, models)
	if err != nil {
		metrics.PipelineErrors.WithLabelValues("inference").Inc()
		p.logf("warning: %s inference failed for %s/%s window %s: %v", modality, sessionID, speaker, stamp, err)
		return emotion.Result{Submitted: true, Err: err}
	}

	return emotion.Result{Submitted: true, Payload: payload}
}
