package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all Emo Insight environment variables.
const EnvPrefix = "EMO_INSIGHT_"

// Config holds all application configuration. Secrets (API keys) are loaded
// exclusively from environment variables and never appear in the config file.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	ClipsDir   string `yaml:"clips_dir"`

	// Clip pipeline.
	ClipWindow       string `yaml:"clip_window"`
	SampleRate       int    `yaml:"sample_rate"`
	FrameRate        int    `yaml:"frame_rate"`
	EncodeTimeout    string `yaml:"encode_timeout"`
	Workers          int    `yaml:"workers"`
	InferenceTimeout string `yaml:"inference_timeout"`

	// Rolling context.
	RetentionWindow    string  `yaml:"retention_window"`
	SummaryInterval    string  `yaml:"summary_interval"`
	TopEmotions        int     `yaml:"top_emotions"`
	ChangeThreshold    float64 `yaml:"change_threshold"`
	MinTranscriptLines int     `yaml:"min_transcript_lines"`
	SummarizerModel    string  `yaml:"summarizer_model"`
	AdvisorModel       string  `yaml:"advisor_model"`

	// Meeting bot.
	RecallRegion string `yaml:"recall_region"`
	IngestURL    string `yaml:"ingest_url"`

	// Archive sync.
	GDriveFolderID        string `yaml:"gdrive_folder_id"`
	GoogleCredentialsFile string `yaml:"google_credentials_file"`

	// Secrets — env vars only, never serialized to YAML.
	HumeAPIKey      string `yaml:"-"`
	RecallAPIKey    string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	GeminiAPIKey    string `yaml:"-"`
}

func defaults() Config {
	return Config{
		ListenAddr:            ":8080",
		DBPath:                "data/emo-insight.db",
		ClipsDir:              "data/clips",
		ClipWindow:            "5s",
		SampleRate:            16000,
		FrameRate:             2,
		EncodeTimeout:         "30s",
		Workers:               4,
		InferenceTimeout:      "600s",
		RetentionWindow:       "120s",
		SummaryInterval:       "30s",
		TopEmotions:           3,
		ChangeThreshold:       0.10,
		MinTranscriptLines:    6,
		SummarizerModel:       "openai/gpt-4o",
		AdvisorModel:          "openai/gpt-4o",
		RecallRegion:          "us-east-1",
		GoogleCredentialsFile: "./service-account.json",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// ParsedClipWindow returns ClipWindow as a time.Duration, falling back to 5s
// if the value is invalid.
func (c *Config) ParsedClipWindow() time.Duration {
	return parseDurationOr(c.ClipWindow, 5*time.Second)
}

// ParsedRetentionWindow returns RetentionWindow as a time.Duration, falling
// back to 120s if the value is invalid.
func (c *Config) ParsedRetentionWindow() time.Duration {
	return parseDurationOr(c.RetentionWindow, 120*time.Second)
}

// ParsedSummaryInterval returns SummaryInterval as a time.Duration, falling
// back to 30s if the value is invalid.
func (c *Config) ParsedSummaryInterval() time.Duration {
	return parseDurationOr(c.SummaryInterval, 30*time.Second)
}

// ParsedEncodeTimeout returns EncodeTimeout as a time.Duration, falling back
// to 30s if the value is invalid.
func (c *Config) ParsedEncodeTimeout() time.Duration {
	return parseDurationOr(c.EncodeTimeout, 30*time.Second)
}

// ParsedInferenceTimeout returns InferenceTimeout as a time.Duration, falling
// back to 10m if the value is invalid.
func (c *Config) ParsedInferenceTimeout() time.Duration {
	return parseDurationOr(c.InferenceTimeout, 10*time.Minute)
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvPrefix + "DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvPrefix + "CLIPS_DIR"); v != "" {
		cfg.ClipsDir = v
	}
	if v := os.Getenv(EnvPrefix + "CLIP_WINDOW"); v != "" {
		cfg.ClipWindow = v
	}
	if v := os.Getenv(EnvPrefix + "SAMPLE_RATE"); v != "" {
		if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
			cfg.SampleRate = rate
		}
	}
	if v := os.Getenv(EnvPrefix + "WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv(EnvPrefix + "RETENTION_WINDOW"); v != "" {
		cfg.RetentionWindow = v
	}
	if v := os.Getenv(EnvPrefix + "SUMMARY_INTERVAL"); v != "" {
		cfg.SummaryInterval = v
	}
	if v := os.Getenv(EnvPrefix + "CHANGE_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil && t > 0 {
			cfg.ChangeThreshold = t
		}
	}
	if v := os.Getenv(EnvPrefix + "MIN_TRANSCRIPT_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MinTranscriptLines = n
		}
	}
	if v := os.Getenv(EnvPrefix + "SUMMARIZER_MODEL"); v != "" {
		cfg.SummarizerModel = v
	}
	if v := os.Getenv(EnvPrefix + "ADVISOR_MODEL"); v != "" {
		cfg.AdvisorModel = v
	}
	if v := os.Getenv(EnvPrefix + "RECALL_REGION"); v != "" {
		cfg.RecallRegion = v
	}
	if v := os.Getenv(EnvPrefix + "INGEST_URL"); v != "" {
		cfg.IngestURL = v
	}
	if v := os.Getenv(EnvPrefix + "GDRIVE_FOLDER_ID"); v != "" {
		cfg.GDriveFolderID = v
	}
	if v := os.Getenv(EnvPrefix + "GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.GoogleCredentialsFile = v
	}
}

func loadSecrets(cfg *Config) {
	cfg.HumeAPIKey = os.Getenv(EnvPrefix + "HUME_API_KEY")
	cfg.RecallAPIKey = os.Getenv(EnvPrefix + "RECALL_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv(EnvPrefix + "ANTHROPIC_API_KEY")
	cfg.GeminiAPIKey = os.Getenv(EnvPrefix + "GEMINI_API_KEY")
}

func validate(cfg *Config) []string {
	var warnings []string

	if cfg.HumeAPIKey == "" {
		warnings = append(warnings, "Hume API key not configured — emotion inference is disabled. Set "+EnvPrefix+"HUME_API_KEY.")
	}
	if cfg.RecallAPIKey == "" {
		warnings = append(warnings, "Recall API key not configured — meeting bots cannot be started. Set "+EnvPrefix+"RECALL_API_KEY.")
	}
	if cfg.OpenAIAPIKey == "" && cfg.AnthropicAPIKey == "" && cfg.GeminiAPIKey == "" {
		warnings = append(warnings, "No LLM API key configured — window summaries and coaching advice are disabled.")
	}
	for _, field := range []struct{ name, value string }{
		{"clip_window", cfg.ClipWindow},
		{"retention_window", cfg.RetentionWindow},
		{"summary_interval", cfg.SummaryInterval},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			warnings = append(warnings, fmt.Sprintf("Invalid %s %q — using default.", field.name, field.value))
		}
	}
	if cfg.ParsedSummaryInterval() >= cfg.ParsedRetentionWindow() {
		warnings = append(warnings, "summary_interval should be shorter than retention_window so multiple summaries accumulate per window.")
	}

	return warnings
}
