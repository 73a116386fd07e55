// Package server exposes the podcast generation pipeline over HTTP:
// transcript synthesis plus speech rendering, image fan-out with a
// progress endpoint, enrichment, and a proxy for the external
// research service.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/zulabs/podforge/logger"
	"github.com/zulabs/podforge/progress"
	"github.com/zulabs/podforge/relay"
	"github.com/zulabs/podforge/speech"
	"github.com/zulabs/podforge/transcript"
)

const defaultReadHeaderTimeout = 10 * time.Second

// ShutdownTimeout bounds graceful shutdown of the HTTP listener.
const ShutdownTimeout = 10 * time.Second

// Synthesizer produces a podcast transcript from a research document.
type Synthesizer interface {
	Synthesize(ctx context.Context, document, language, targetMinutes string) ([]transcript.Utterance, error)
}

// SpeechRenderer renders a transcript into audio segments.
type SpeechRenderer interface {
	RenderAll(ctx context.Context, utterances []transcript.Utterance, policy speech.BatchPolicy) ([]speech.Segment, error)
}

// ImageRenderer renders the first image synchronously and continues
// the rest in the background.
type ImageRenderer interface {
	RenderBatch(ctx context.Context, sessionID string, utterances []transcript.Utterance) (progress.Result, []string, error)
}

// Enricher produces short factual notes for selected text.
type Enricher interface {
	Enrich(ctx context.Context, selectedText string) (string, error)
}

// ResearchClient talks to the external research service.
type ResearchClient interface {
	StartResearch(ctx context.Context, topic string) error
	Config(ctx context.Context) (*relay.ResearchConfig, error)
	UpdateConfig(ctx context.Context, cfg *relay.ResearchConfig) (*relay.ResearchConfig, error)
	Subscribe(ctx context.Context) <-chan relay.StatusEvent
}

// Options carries the server's dependencies and settings.
type Options struct {
	Addr string

	Synthesizer Synthesizer
	Speech      SpeechRenderer
	Images      ImageRenderer
	Progress    progress.Store
	Enricher    Enricher
	Research    ResearchClient

	// MetricsHandler, when set, is mounted at /metrics.
	MetricsHandler http.Handler

	// DefaultLanguage and DefaultMinutes fill in omitted request
	// fields.
	DefaultLanguage string
	DefaultMinutes  string
}

// Server is the HTTP front of the pipeline.
type Server struct {
	opts       Options
	httpServer *http.Server

	mu      sync.Mutex
	started bool
}

// New creates a Server. It does not start listening.
func New(opts Options) *Server {
	s := &Server{opts: opts}
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	return s
}

// Routes builds the HTTP mux. Exposed for tests.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/generate/images", s.handleGenerateImages)
	mux.HandleFunc("GET /api/generate/images", s.handleImageProgress)
	mux.HandleFunc("POST /api/research", s.handleResearch)
	mux.HandleFunc("GET /api/research/status", s.handleResearchStatus)
	mux.HandleFunc("GET /api/research/config", s.handleGetResearchConfig)
	mux.HandleFunc("PUT /api/research/config", s.handlePutResearchConfig)
	mux.HandleFunc("POST /api/enrich", s.handleEnrich)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if s.opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.opts.MetricsHandler)
	}

	return mux
}

// Start begins serving. It blocks until the listener fails or the
// server is shut down.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	s.started = true
	s.mu.Unlock()

	logger.Info("http server listening", "addr", s.opts.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false

	logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
