package app

import (
	"log"
	"net/http"

	"github.com/kitamura/hanasu/internal/httpapi"
)

type App struct {
	cfg      Config
	logger   *log.Logger
	registry *httpapi.SessionRegistry
}

func New(cfg Config, logger *log.Logger) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		registry: httpapi.NewSessionRegistry(),
	}
}

// Registry exposes the session registry so the janitor job and shutdown
// path can share it with the HTTP layer.
func (a *App) Registry() *httpapi.SessionRegistry {
	return a.registry
}

func (a *App) Router() http.Handler {
	routerCfg := httpapi.RouterConfig{
		OpenAIAPIKey:     a.cfg.OpenAIAPIKey,
		OpenAIBaseURL:    a.cfg.OpenAIBaseURL,
		ElevenLabsAPIKey: a.cfg.ElevenLabsAPIKey,
		TranslateModel:   a.cfg.TranslateModel,
		TTSProvider:      a.cfg.TTSProvider,
		TTSVoice:         a.cfg.TTSVoice,
		MinAudioBytes:    a.cfg.MinAudioBytes,
		MaxAudioBytes:    a.cfg.MaxAudioBytes,
		SubmitsPerMinute: a.cfg.SubmitsPerMinute,
	}
	return httpapi.NewRouter(routerCfg, a.logger, a.registry, nil)
}

// Close releases session state. Sessions are in-memory only, so this is a
// sweep of everything rather than a connection teardown.
func (a *App) Close() error {
	a.registry.Sweep(-1)
	return nil
}
