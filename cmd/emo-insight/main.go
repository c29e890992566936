package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harshraj32/emo-insight-backend/internal/clip"
	"github.com/harshraj32/emo-insight-backend/internal/coach"
	"github.com/harshraj32/emo-insight-backend/internal/config"
	"github.com/harshraj32/emo-insight-backend/internal/emotion"
	"github.com/harshraj32/emo-insight-backend/internal/gdrive"
	"github.com/harshraj32/emo-insight-backend/internal/llm"
	"github.com/harshraj32/emo-insight-backend/internal/media"
	"github.com/harshraj32/emo-insight-backend/internal/recall"
	"github.com/harshraj32/emo-insight-backend/internal/server"
	"github.com/harshraj32/emo-insight-backend/internal/session"
	"github.com/harshraj32/emo-insight-backend/internal/storage"
)

// trailStore mirrors every persisted record to the per-session JSONL trail
// alongside SQLite. Trail failures are logged, never surfaced.
type trailStore struct {
	*storage.SQLiteStore
	trail *storage.TrailWriter
}

func (s *trailStore) AppendTranscript(sessionID string, line coach.TranscriptLine) error {
	if err := s.trail.Append(sessionID, "transcript", line); err != nil {
		log.Printf("warning: trail write for %s: %v", sessionID, err)
	}
	return s.SQLiteStore.AppendTranscript(sessionID, line)
}

func (s *trailStore) AppendEmotionTrail(sessionID, speaker string, summary emotion.Summary) error {
	if err := s.trail.Append(sessionID, "emotion", map[string]any{"speaker": speaker, "summary": summary}); err != nil {
		log.Printf("warning: trail write for %s: %v", sessionID, err)
	}
	return s.SQLiteStore.AppendEmotionTrail(sessionID, speaker, summary)
}

func (s *trailStore) AppendWindowSummary(sessionID string, ws coach.WindowSummary) error {
	if err := s.trail.Append(sessionID, "window_summary", ws); err != nil {
		log.Printf("warning: trail write for %s: %v", sessionID, err)
	}
	return s.SQLiteStore.AppendWindowSummary(sessionID, ws)
}

// controller binds the session registry to the meeting-bot lifecycle: a
// started session gets a bot streaming into our ingest endpoint, a stopped
// session pulls the bot out of the call and archives the trail.
type controller struct {
	registry  *session.Registry
	bots      *recall.Client
	ingestURL string
	trail     *storage.TrailWriter
	syncer    *gdrive.Syncer

	mu     sync.Mutex
	botIDs map[string]string
}

func (c *controller) Start(ctx context.Context, repName, objective, meetingURL string) (string, error) {
	s, err := c.registry.Create(repName, objective, "")
	if err != nil {
		return "", err
	}

	if meetingURL != "" {
		if c.bots == nil {
			_ = c.registry.End(s.ID)
			return "", fmt.Errorf("meeting bot not configured")
		}

		receiverURL := fmt.Sprintf("%s?session_id=%s", c.ingestURL, s.ID)
		botID, err := c.bots.StartBot(ctx, meetingURL, receiverURL)
		if err != nil {
			_ = c.registry.End(s.ID)
			return "", fmt.Errorf("start meeting bot: %w", err)
		}

		c.mu.Lock()
		c.botIDs[s.ID] = botID
		c.mu.Unlock()
	}

	return s.ID, nil
}

func (c *controller) Stop(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	botID := c.botIDs[sessionID]
	delete(c.botIDs, sessionID)
	c.mu.Unlock()

	if botID != "" && c.bots != nil {
		if err := c.bots.StopBot(ctx, botID); err != nil {
			log.Printf("warning: stopping bot %s: %v", botID, err)
		}
	}

	if err := c.registry.End(sessionID); err != nil {
		return err
	}

	if c.syncer != nil {
		go func() {
			if err := c.syncer.Archive(c.trail.Path(sessionID), sessionID); err != nil {
				log.Printf("warning: archiving trail for %s: %v", sessionID, err)
			}
		}()
	}
	return nil
}

func llmClient(cfg config.Config, model string) (llm.Client, error) {
	provider, modelName, err := llm.ParseModel(model)
	if err != nil {
		return nil, err
	}

	var key string
	switch provider {
	case "openai":
		key = cfg.OpenAIAPIKey
	case "anthropic":
		key = cfg.AnthropicAPIKey
	case "gemini":
		key = cfg.GeminiAPIKey
	}
	if key == "" {
		return nil, fmt.Errorf("no API key configured for provider %s", provider)
	}

	return llm.NewClient(provider, key, modelName)
}

func main() {
	log.Println("emo-insight: starting")

	configPath := os.Getenv(config.EnvPrefix + "CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	for _, w := range warnings {
		log.Printf("warning: %s", w)
	}

	sqlStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	defer func() { _ = sqlStore.Close() }()

	trail := storage.NewTrailWriter("data/trails")
	store := &trailStore{SQLiteStore: sqlStore, trail: trail}

	hub := server.NewHub()
	pool := clip.NewPool(cfg.Workers, cfg.Workers*16)
	defer pool.Close()

	encoder := media.NewEncoder(cfg.ClipsDir, cfg.SampleRate, cfg.FrameRate)

	var inference clip.Inference
	if cfg.HumeAPIKey != "" {
		inference = emotion.NewClient(cfg.HumeAPIKey)
	}
	processor := clip.NewProcessor(encoder, inference, cfg.TopEmotions, cfg.ParsedEncodeTimeout(), cfg.ParsedInferenceTimeout())

	var summarizer session.Summarizer
	if client, err := llmClient(cfg, cfg.SummarizerModel); err != nil {
		log.Printf("warning: window summarizer disabled: %v", err)
	} else {
		summarizer = coach.NewSummarizer(client, cfg.MinTranscriptLines)
	}

	var advisor session.Advisor
	if client, err := llmClient(cfg, cfg.AdvisorModel); err != nil {
		log.Printf("warning: coaching advisor disabled: %v", err)
	} else {
		advisor = coach.NewAdvisor(client)
	}

	registry := session.NewRegistry(store, processor, summarizer, advisor, hub, pool, session.Options{
		SampleRate:      cfg.SampleRate,
		ClipWindow:      cfg.ParsedClipWindow(),
		Retention:       cfg.ParsedRetentionWindow(),
		SummaryInterval: cfg.ParsedSummaryInterval(),
		ChangeThreshold: cfg.ChangeThreshold,
	})

	var bots *recall.Client
	if cfg.RecallAPIKey != "" {
		bots = recall.NewClient(cfg.RecallAPIKey, cfg.RecallRegion)
	}

	ctrl := &controller{
		registry:  registry,
		bots:      bots,
		ingestURL: cfg.IngestURL,
		trail:     trail,
		botIDs:    make(map[string]string),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.GDriveFolderID != "" {
		syncer, syncErr := gdrive.NewSyncer(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
		if syncErr != nil {
			log.Printf("warning: gdrive archive disabled: %v", syncErr)
		} else {
			ctrl.syncer = syncer
		}
	}

	watchdog := session.NewWatchdog(2*cfg.ParsedRetentionWindow(), func(sessionID string) {
		log.Printf("warning: session %s silent, ending", sessionID)
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if err := ctrl.Stop(stopCtx, sessionID); err != nil && err != session.ErrUnknownSession {
			log.Printf("warning: ending silent session %s: %v", sessionID, err)
		}
	})

	handler := server.Handler(nil, hub, sqlStore, registry, server.SessionControls{
		Start: ctrl.Start,
		Stop:  ctrl.Stop,
	}, server.IngestHooks{
		Resolve: func(sessionID string) bool {
			_, err := registry.Get(sessionID)
			return err == nil
		},
		OnAttach: watchdog.Disarm,
		OnDetach: watchdog.Arm,
	})

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		log.Printf("emo-insight: listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("emo-insight: shutting down")
	cancel()

	registry.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
}
