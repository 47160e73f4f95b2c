package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/kitamura/hanasu/internal/stt"
	"github.com/kitamura/hanasu/internal/translate"
	"github.com/kitamura/hanasu/internal/tts"
)

// GatewayFactory builds the three gateway clients for an API credential.
// It exists so a session-scoped credential override gets its own clients
// without rebuilding the router.
type GatewayFactory func(apiKey string) (stt.Client, translate.Client, tts.Client)

type RouterConfig struct {
	// AI provider credentials
	OpenAIAPIKey     string
	OpenAIBaseURL    string // override for tests and proxies
	ElevenLabsAPIKey string

	// Model settings
	TranslateModel string
	TTSProvider    string // "openai" (default) or "elevenlabs"
	TTSVoice       string

	// Intake settings
	MinAudioBytes int
	MaxAudioBytes int64 // request body cap, 0 for default

	// Rate limiting (audio submissions per IP per minute)
	SubmitsPerMinute int
}

const defaultMaxAudioBytes = 10 << 20 // whisper caps uploads at 25 MB anyway

type Router struct {
	cfg      RouterConfig
	logger   *log.Logger
	registry *SessionRegistry
	gateways GatewayFactory
	mux      *chi.Mux
}

// NewRouter builds the HTTP handler. A nil gateways factory selects the
// real provider clients from the config.
func NewRouter(cfg RouterConfig, logger *log.Logger, registry *SessionRegistry, gateways GatewayFactory) http.Handler {
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = defaultMaxAudioBytes
	}
	if cfg.SubmitsPerMinute <= 0 {
		cfg.SubmitsPerMinute = 30
	}
	if gateways == nil {
		gateways = defaultGatewayFactory(cfg)
	}

	r := &Router{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		gateways: gateways,
		mux:      chi.NewRouter(),
	}

	r.routes()
	return withSentryRecovery(r.mux)
}

func (r *Router) routes() {
	r.mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.mux.Get("/healthz", r.handleHealthz)
	r.mux.Get("/", r.handleIndex)

	r.mux.Route("/api/sessions", func(api chi.Router) {
		api.Post("/", r.handleCreateSession)

		api.Route("/{sessionID}", func(sr chi.Router) {
			sr.Get("/", r.handleGetSession)
			sr.Delete("/", r.handleDeleteSession)

			// Every accepted clip costs three paid API round trips; keep
			// trigger-happy clients from burning through the quota.
			sr.With(httprate.LimitByIP(r.cfg.SubmitsPerMinute, time.Minute)).
				Post("/audio", r.handleSubmitAudio)

			sr.Get("/transcript", r.handleTranscript)
			sr.Get("/events", r.handleEvents)
			sr.Get("/costs", r.handleCosts)
			sr.Get("/watch", r.handleWatch)
		})
	})
}

func defaultGatewayFactory(cfg RouterConfig) GatewayFactory {
	return func(apiKey string) (stt.Client, translate.Client, tts.Client) {
		sttClient := stt.NewWhisperClient(stt.WhisperConfig{
			APIKey:  apiKey,
			BaseURL: cfg.OpenAIBaseURL,
		})
		trClient := translate.NewOpenAIClient(translate.OpenAIConfig{
			APIKey:  apiKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.TranslateModel,
		})

		var ttsClient tts.Client
		if cfg.TTSProvider == "elevenlabs" {
			ttsClient = tts.NewElevenLabsClient(tts.ElevenLabsConfig{
				APIKey:     cfg.ElevenLabsAPIKey,
				VoiceID:    cfg.TTSVoice,
				Stability:  -1,
				Similarity: -1,
			})
		} else {
			ttsClient = tts.NewOpenAIClient(tts.OpenAIConfig{
				APIKey:  apiKey,
				BaseURL: cfg.OpenAIBaseURL,
				Voice:   cfg.TTSVoice,
			})
		}
		return sttClient, trClient, ttsClient
	}
}

// lookupSession resolves the {sessionID} path parameter, writing a 404 when
// the session does not exist.
func (r *Router) lookupSession(w http.ResponseWriter, req *http.Request) (*sessionEntry, bool) {
	id := chi.URLParam(req, "sessionID")
	entry, ok := r.registry.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "session not found"})
		return nil, false
	}
	return entry, true
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
