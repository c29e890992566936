package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "emo_insight_sessions_active",
		Help: "Currently active coaching sessions",
	})

	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emo_insight_ingest_events_total",
		Help: "Inbound meeting-bot events by kind",
	}, []string{"kind"})

	ClipsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emo_insight_clips_processed_total",
		Help: "Clip windows processed by modality",
	}, []string{"modality"})

	PipelineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emo_insight_pipeline_errors_total",
		Help: "Pipeline error counts by stage",
	}, []string{"stage"})

	WorkerQueueDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emo_insight_worker_queue_drops_total",
		Help: "Clip jobs dropped because the worker queue was full",
	})

	WindowSummaries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emo_insight_window_summaries_total",
		Help: "Window summarization passes by readiness outcome",
	}, []string{"ready"})

	AdviceGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emo_insight_advice_generated_total",
		Help: "Coaching advisories emitted",
	})
)
