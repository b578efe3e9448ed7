// Package server wires the gateway's components behind one http.Handler.
package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/voicewire/voicewire/pkg/core"
	"github.com/voicewire/voicewire/pkg/core/providers/openai"
	"github.com/voicewire/voicewire/pkg/core/voice/tts"
	"github.com/voicewire/voicewire/pkg/gateway/audiocache"
	"github.com/voicewire/voicewire/pkg/gateway/callflow"
	"github.com/voicewire/voicewire/pkg/gateway/config"
	"github.com/voicewire/voicewire/pkg/gateway/handlers"
	"github.com/voicewire/voicewire/pkg/gateway/metrics"
	"github.com/voicewire/voicewire/pkg/gateway/mw"
	"github.com/voicewire/voicewire/pkg/gateway/twiml"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	engine  handlers.ConversationEngine
	tts     tts.Provider
	cache   *audiocache.Cache
	flow    *callflow.Tracker
	metrics *metrics.Metrics
}

func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	var openaiOpts []openai.Option
	if cfg.OpenAIBaseURL != "" {
		openaiOpts = append(openaiOpts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	if cfg.OpenAIModel != "" {
		openaiOpts = append(openaiOpts, openai.WithModel(cfg.OpenAIModel))
	}
	if cfg.OpenAISystemPrompt != "" {
		openaiOpts = append(openaiOpts, openai.WithSystemPrompt(cfg.OpenAISystemPrompt))
	}

	synth := tts.NewElevenLabs(cfg.ElevenLabsKey)
	if cfg.ElevenLabsWSBaseURL != "" {
		synth.WithWSBaseURL(cfg.ElevenLabsWSBaseURL)
	}

	m := metrics.New()
	cache := audiocache.New(cfg.ArtifactTTL, cfg.ArtifactMaxEntries)
	cache.OnEvict = func(n int) {
		m.ArtifactsEvicted.Add(float64(n))
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		mux:     http.NewServeMux(),
		engine:  core.NewEngine(openai.New(cfg.OpenAIKey, openaiOpts...)),
		tts:     synth,
		cache:   cache,
		flow:    callflow.NewTracker(cfg.CallTTL),
		metrics: m,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("GET /{$}", handlers.HealthHandler{})
	s.mux.Handle("GET /healthz", handlers.HealthHandler{})

	s.mux.Handle("POST /start-call", handlers.StartCallHandler{
		Config:  s.cfg,
		Flow:    s.flow,
		Metrics: s.metrics,
		Logger:  s.logger,
	})
	s.mux.Handle("POST /customer-answered", handlers.CustomerAnsweredHandler{
		Config: s.cfg,
		Flow:   s.flow,
		Logger: s.logger,
	})
	s.mux.Handle("POST /process", handlers.ProcessHandler{
		Config:  s.cfg,
		Engine:  s.engine,
		TTS:     s.tts,
		Cache:   s.cache,
		Flow:    s.flow,
		Metrics: s.metrics,
		Logger:  s.logger,
	})
	s.mux.Handle("POST /ask", handlers.AskHandler{
		Config:  s.cfg,
		Engine:  s.engine,
		TTS:     s.tts,
		Cache:   s.cache,
		Metrics: s.metrics,
		Logger:  s.logger,
	})
	s.mux.Handle("GET /audio/{id}", handlers.AudioHandler{
		Cache:  s.cache,
		Logger: s.logger,
	})
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, s.panicFallback(), h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// panicFallback keeps the carrier's call alive after a panic. Webhook routes
// get a spoken goodbye; everything else gets a plain 500.
func (s *Server) panicFallback() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isWebhookPath(r.URL.Path) {
			w.Header().Set("Content-Type", twiml.ContentType)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(twiml.Render(twiml.SayHangup(s.cfg.FallbackLine)))
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
	})
}

func isWebhookPath(path string) bool {
	for _, p := range []string{"/start-call", "/customer-answered", "/process"} {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
