// Package app composes the pipeline's services for the command-line
// entry points. Each command opens only the clients it needs.
package app

import (
	"fmt"

	"github.com/yungbote/videosearch-backend/internal/config"
	"github.com/yungbote/videosearch-backend/internal/db"
	"github.com/yungbote/videosearch-backend/internal/platform/embed"
	"github.com/yungbote/videosearch-backend/internal/platform/gcp"
	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

// Options select which external clients New opens.
type Options struct {
	// ConfigFile optionally overlays feature toggles from a YAML file.
	ConfigFile string

	// EmbeddingModel overrides the env-configured model version, so a
	// second version can be generated side by side.
	EmbeddingModel string

	Store    bool
	Bucket   bool
	Video    bool
	Speech   bool
	Embedder bool
}

type App struct {
	Log   *logger.Logger
	Cfg   *config.Config
	Store *db.StoreService

	Bucket gcp.Bucket
	Video  gcp.Video
	Speech gcp.Speech
	Embed  embed.Client

	Repos Repos
}

func New(opts Options) (*App, error) {
	cfg := config.FromEnv()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if opts.EmbeddingModel != "" {
		cfg.EmbeddingModel = opts.EmbeddingModel
	}
	if opts.ConfigFile != "" {
		if err := cfg.ApplyFile(opts.ConfigFile); err != nil {
			log.Sync()
			return nil, fmt.Errorf("apply config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &App{Log: log, Cfg: cfg}

	if opts.Store {
		store, err := db.NewPostgresService(cfg, log)
		if err != nil {
			a.closeWith(err)
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		a.Store = store
		a.Repos = wireRepos(store.DB(), log)
	}

	if opts.Bucket {
		bucket, err := gcp.NewBucket(log, cfg.Bucket)
		if err != nil {
			a.closeWith(err)
			return nil, fmt.Errorf("init bucket: %w", err)
		}
		a.Bucket = bucket
	}

	if opts.Video {
		video, err := gcp.NewVideo(log)
		if err != nil {
			a.closeWith(err)
			return nil, fmt.Errorf("init video intelligence: %w", err)
		}
		a.Video = video
	}

	if opts.Speech {
		speech, err := gcp.NewSpeech(log, cfg.Location)
		if err != nil {
			a.closeWith(err)
			return nil, fmt.Errorf("init speech: %w", err)
		}
		a.Speech = speech
	}

	if opts.Embedder {
		client, err := embed.NewOpenAI(log, cfg.OpenAIAPIKey, cfg.EmbeddingModel)
		if err != nil {
			a.closeWith(err)
			return nil, fmt.Errorf("init embedding client: %w", err)
		}
		a.Embed = client
	}

	return a, nil
}

func (a *App) closeWith(cause error) {
	a.Log.Error("Startup aborted", "error", cause)
	a.Close()
}

// Close releases every client the app opened. Safe on a partially
// constructed app.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Bucket != nil {
		if err := a.Bucket.Close(); err != nil {
			a.Log.Warn("Closing bucket client", "error", err)
		}
	}
	if a.Video != nil {
		if err := a.Video.Close(); err != nil {
			a.Log.Warn("Closing video client", "error", err)
		}
	}
	if a.Speech != nil {
		if err := a.Speech.Close(); err != nil {
			a.Log.Warn("Closing speech client", "error", err)
		}
	}
	a.Log.Sync()
}
