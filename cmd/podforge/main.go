// Command podforge runs the podcast generation service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/zulabs/podforge/config"
	"github.com/zulabs/podforge/images"
	"github.com/zulabs/podforge/logger"
	"github.com/zulabs/podforge/metrics/prometheus"
	"github.com/zulabs/podforge/playback"
	"github.com/zulabs/podforge/progress"
	"github.com/zulabs/podforge/providers"
	"github.com/zulabs/podforge/relay"
	"github.com/zulabs/podforge/server"
	"github.com/zulabs/podforge/speech"
	"github.com/zulabs/podforge/transcript"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "podforge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	registry := providers.NewRegistry()
	if cfg.Secrets.GroqAPIKey != "" {
		registry.Register(providers.NewGroq(cfg.Secrets.GroqAPIKey))
	}
	if cfg.Secrets.OpenAIAPIKey != "" {
		registry.Register(providers.NewOpenAI(cfg.Secrets.OpenAIAPIKey))
	}
	if len(registry.List()) == 0 {
		return fmt.Errorf("no text provider configured: set GROQ_API_KEY or OPENAI_API_KEY")
	}
	defer func() { _ = registry.Close() }()

	gateway := providers.NewGateway(registry)
	synthesizer := transcript.NewSynthesizer(gateway,
		transcript.WithProvider(cfg.Providers.Default, cfg.Providers.Model))

	if cfg.Secrets.ElevenLabsAPIKey == "" {
		return fmt.Errorf("ELEVENLABS_API_KEY is required")
	}
	speechRenderer := speech.NewRenderer(speech.NewElevenLabs(cfg.Secrets.ElevenLabsAPIKey))

	store := newProgressStore(cfg)

	imageRenderer, err := newImageRenderer(cfg, gateway, store)
	if err != nil {
		return err
	}

	exporter := prometheus.NewExporter(cfg.Server.MetricsAddr)
	go func() {
		if err := exporter.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics exporter failed", "error", err)
		}
	}()

	srv := server.New(server.Options{
		Addr:            cfg.Server.ListenAddr,
		Synthesizer:     synthesizer,
		Speech:          speechRenderer,
		Images:          imageRenderer,
		Progress:        store,
		Enricher:        playback.NewEnricher(gateway),
		Research:        relay.NewClient(cfg.Researcher.URL),
		MetricsHandler:  exporter.Handler(),
		DefaultLanguage: cfg.Podcast.Language,
		DefaultMinutes:  cfg.Podcast.Minutes,
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
		if err := exporter.Shutdown(ctx); err != nil {
			logger.Error("metrics shutdown failed", "error", err)
		}
	}()

	return srv.Start()
}

func newProgressStore(cfg *config.Config) progress.Store {
	if cfg.Redis.Addr == "" {
		logger.Info("using in-memory image progress store")
		return progress.NewMemoryStore(progress.WithMemoryTTL(cfg.Podcast.ProgressTTL))
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Info("using redis image progress store", "addr", cfg.Redis.Addr)
	return progress.NewRedisStore(client, progress.WithTTL(cfg.Podcast.ProgressTTL))
}

func newImageRenderer(cfg *config.Config, gateway *providers.Gateway, store progress.Store) (*images.Renderer, error) {
	if cfg.Secrets.LumaAPIKey == "" {
		return nil, fmt.Errorf("LUMAAI_API_KEY is required")
	}

	client, err := images.NewClient(cfg.Secrets.LumaAPIKey)
	if err != nil {
		return nil, err
	}

	var opts []images.RendererOption
	if cfg.Images.PollInterval > 0 {
		opts = append(opts, images.WithPollInterval(cfg.Images.PollInterval))
	}
	if cfg.Images.MaxPolls > 0 {
		opts = append(opts, images.WithMaxPolls(cfg.Images.MaxPolls))
	}
	return images.NewRenderer(client, gateway, store, opts...), nil
}
