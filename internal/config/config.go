package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/videosearch-backend/internal/platform/envutil"
)

// Config is the explicit, startup-validated configuration for the
// pipeline. Every recognized option is enumerated here; there is no
// implicit process-wide state beyond the environment it is read from.
//
// Environment variables (defaults in parentheses):
//
//	GOOGLE_CLOUD_PROJECT      GCP project id (required)
//	GOOGLE_CLOUD_LOCATION     location for the speech recognizer ("global")
//	VIDEO_GCS_BUCKET_NAME     bucket holding raw/ and processed_json/ (required)
//	VIDEO_DATASET_NAME        Postgres database holding the tables ("video_search")
//	AGENT_TABLE_IDS           comma list of tables the agent may read
//	POSTGRES_HOST/PORT/USER/PASSWORD  store connection ("localhost"/"5432"/"postgres"/"")
//	OPENAI_API_KEY            embedding model credential
//	EMBEDDING_MODEL           embedding model version ("text-embedding-3-small")
//	MAX_INFLIGHT_JOBS         bounded in-flight analysis jobs (4)
//	JOB_POLL_INITIAL          first poll delay ("10s")
//	JOB_POLL_MAX              poll backoff cap ("60s")
//	JOB_MAX_WAIT              per-job terminal-state deadline ("45m")
//	RECOGNIZER_ID             dedicated speech recognizer id
//	LOG_MODE                  "development" or "production"
type Config struct {
	ProjectID string
	Location  string
	Bucket    string
	Dataset   string

	// Tables the downstream query agent is permitted to read. Config
	// only; the pipeline itself never restricts its own writes by it.
	AgentTableIDs []string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string

	OpenAIAPIKey   string
	EmbeddingModel string

	MaxInFlightJobs int
	PollInitial     time.Duration
	PollMax         time.Duration
	MaxWait         time.Duration

	RecognizerID string
	LogMode      string

	Features FeatureToggles
}

// FeatureToggles select which analysis features each submitted job
// requests. Each is independently toggleable; SkipOCR wins over
// TextDetection so operators can cut cost with one switch.
type FeatureToggles struct {
	ShotDetection   bool   `yaml:"shot_detection"`
	ObjectTracking  bool   `yaml:"object_tracking"`
	Transcription   bool   `yaml:"transcription"`
	TextDetection   bool   `yaml:"text_detection"`
	SkipOCR         bool   `yaml:"skip_ocr"`
	LanguageCode    string `yaml:"language_code"`
	SpeakerDiarized bool   `yaml:"speaker_diarization"`
}

// featureOverlay mirrors FeatureToggles with optional fields: a key
// absent from the file keeps the env-derived value instead of zeroing
// it.
type featureOverlay struct {
	ShotDetection   *bool  `yaml:"shot_detection"`
	ObjectTracking  *bool  `yaml:"object_tracking"`
	Transcription   *bool  `yaml:"transcription"`
	TextDetection   *bool  `yaml:"text_detection"`
	SkipOCR         *bool  `yaml:"skip_ocr"`
	LanguageCode    string `yaml:"language_code"`
	SpeakerDiarized *bool  `yaml:"speaker_diarization"`
}

type fileOverlay struct {
	Features featureOverlay `yaml:"features"`
}

// FromEnv reads the full configuration from the environment.
func FromEnv() *Config {
	return &Config{
		ProjectID: envutil.String("GOOGLE_CLOUD_PROJECT", ""),
		Location:  envutil.String("GOOGLE_CLOUD_LOCATION", "global"),
		Bucket:    envutil.String("VIDEO_GCS_BUCKET_NAME", ""),
		Dataset:   envutil.String("VIDEO_DATASET_NAME", "video_search"),

		AgentTableIDs: envutil.StringList("AGENT_TABLE_IDS"),

		PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
		PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
		PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
		PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),

		OpenAIAPIKey:   envutil.String("OPENAI_API_KEY", ""),
		EmbeddingModel: envutil.String("EMBEDDING_MODEL", "text-embedding-3-small"),

		MaxInFlightJobs: envutil.Int("MAX_INFLIGHT_JOBS", 4),
		PollInitial:     envutil.Duration("JOB_POLL_INITIAL", 10*time.Second),
		PollMax:         envutil.Duration("JOB_POLL_MAX", 60*time.Second),
		MaxWait:         envutil.Duration("JOB_MAX_WAIT", 45*time.Minute),

		RecognizerID: envutil.String("RECOGNIZER_ID", "video-search-ingestion-recognizer-v3"),
		LogMode:      envutil.String("LOG_MODE", "development"),

		Features: FeatureToggles{
			ShotDetection:   envutil.Bool("FEATURE_SHOT_DETECTION", true),
			ObjectTracking:  envutil.Bool("FEATURE_OBJECT_TRACKING", true),
			Transcription:   envutil.Bool("FEATURE_TRANSCRIPTION", true),
			TextDetection:   envutil.Bool("FEATURE_TEXT_DETECTION", true),
			SkipOCR:         envutil.Bool("FEATURE_SKIP_OCR", false),
			LanguageCode:    envutil.String("FEATURE_LANGUAGE_CODE", "en-US"),
			SpeakerDiarized: envutil.Bool("FEATURE_SPEAKER_DIARIZATION", false),
		},
	}
}

// ApplyFile overlays feature toggles from a YAML file onto the
// env-derived config. Missing file is an error; the caller decides
// whether a file is expected at all.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	f := overlay.Features
	if f.ShotDetection != nil {
		c.Features.ShotDetection = *f.ShotDetection
	}
	if f.ObjectTracking != nil {
		c.Features.ObjectTracking = *f.ObjectTracking
	}
	if f.Transcription != nil {
		c.Features.Transcription = *f.Transcription
	}
	if f.TextDetection != nil {
		c.Features.TextDetection = *f.TextDetection
	}
	if f.SkipOCR != nil {
		c.Features.SkipOCR = *f.SkipOCR
	}
	if f.SpeakerDiarized != nil {
		c.Features.SpeakerDiarized = *f.SpeakerDiarized
	}
	if f.LanguageCode != "" {
		c.Features.LanguageCode = f.LanguageCode
	}
	return nil
}

// Validate fails fast on settings the pipeline cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.ProjectID) == "" {
		missing = append(missing, "GOOGLE_CLOUD_PROJECT")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "VIDEO_GCS_BUCKET_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.MaxInFlightJobs < 1 {
		return fmt.Errorf("MAX_INFLIGHT_JOBS must be >= 1, got %d", c.MaxInFlightJobs)
	}
	if c.PollInitial <= 0 || c.PollMax < c.PollInitial {
		return fmt.Errorf("invalid poll schedule: initial=%s max=%s", c.PollInitial, c.PollMax)
	}
	return nil
}

// PostgresDSN builds the store connection string; the dataset name is
// the database name.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.Dataset)
}
