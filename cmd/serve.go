// Package cmd provides the confab server commands.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/confab/config"
	"github.com/otherjamesbrown/confab/pkg/analysis"
	"github.com/otherjamesbrown/confab/pkg/coordinator"
	"github.com/otherjamesbrown/confab/pkg/events"
	"github.com/otherjamesbrown/confab/pkg/ingest"
	"github.com/otherjamesbrown/confab/pkg/logging"
	"github.com/otherjamesbrown/confab/pkg/observability"
	"github.com/otherjamesbrown/confab/pkg/server"
	"github.com/otherjamesbrown/confab/pkg/session"
	"github.com/otherjamesbrown/confab/pkg/transcribe"
)

// shutdownGrace bounds how long a graceful stop may take before the
// process exits anyway.
const shutdownGrace = 15 * time.Second

// ServeCommandDeps carries overrides for the serve command. Zero value
// means load configuration the normal way.
type ServeCommandDeps struct {
	// ConfigPath points at an explicit config file; empty uses the
	// default search path plus environment overrides.
	ConfigPath string

	// Debug forces debug logging regardless of configuration.
	Debug bool
}

// NewServeCommand creates the serve command, the main entry point of the
// confab server.
func NewServeCommand(deps *ServeCommandDeps) *cobra.Command {
	if deps == nil {
		deps = &ServeCommandDeps{}
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the confab meeting assistant server",
		Long: `Run the confab server: audio intake over HTTP and websocket, live and
whole-file transcription through the configured collaborator, and
summary / action-item / sentiment analysis fanned out to subscribers.

Configuration is read from the config file (see 'confab config path'),
then overridden by CONFAB_* environment variables.

Examples:
  confab serve
  confab serve --config ./confab.yaml
  CONFAB_LISTEN_ADDRESS=:8080 confab serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(deps)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	serveCmd.Flags().StringVar(&deps.ConfigPath, "config", "", "path to config file")
	serveCmd.Flags().BoolVar(&deps.Debug, "debug", false, "enable debug logging")

	return serveCmd
}

func loadServeConfig(deps *ServeCommandDeps) (*config.ServerConfig, error) {
	var (
		cfg *config.ServerConfig
		err error
	)
	if deps.ConfigPath != "" {
		cfg, err = config.LoadConfigFile(deps.ConfigPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if deps.Debug {
		cfg.Debug = true
		cfg.LogLevel = string(logging.LevelDebug)
	}
	return cfg, nil
}

// runServe wires the full pipeline and blocks until SIGINT/SIGTERM.
func runServe(ctx context.Context, cfg *config.ServerConfig) error {
	logger := logging.NewLogger(&logging.Config{
		Level:       logging.Level(cfg.LogLevel),
		ServiceName: "confab",
		JSONFormat:  cfg.LogJSON,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// workCtx bounds background transcription/analysis; it outlives the
	// signal context so in-flight sessions can finish during shutdown.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	metrics := observability.DefaultMetrics()

	store := session.NewStore(logger)
	store.OnCountChange(func(n int) {
		metrics.SessionsActive.Set(float64(n))
	})
	go store.RunJanitor(workCtx, cfg.IdleEviction, cfg.EvictInterval)

	hub := events.NewHub(logger, metrics)
	if cfg.Redis.Enabled() {
		mirror, err := events.NewPublisherFromConfig(events.PublisherConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			logger.Warn("redis event mirror unavailable, continuing without it",
				logging.Err(err))
		} else {
			hub.AttachMirror(mirror)
			defer mirror.Close()
		}
	}

	dispatcher := analysis.NewDispatcher(store,
		buildSummarizer(cfg, logger),
		buildActionItems(cfg, logger),
		buildSentiment(cfg, logger),
		coordinator.NotifyFacet(store, hub),
		logger, metrics)

	coord := coordinator.New(workCtx, store, buildTranscriber(cfg, logger),
		dispatcher, hub, logger, metrics)

	saver, err := ingest.NewSaver(cfg.UploadDir, logger)
	if err != nil {
		return fmt.Errorf("preparing upload dir: %w", err)
	}
	validator := ingest.NewValidator(cfg.AllowedExtensions, cfg.MaxUploadBytes)

	srv := server.New(cfg, store, coord, hub, validator, saver, logger, metrics, nil)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", logging.Err(err))
	}
	cancelWork()
	coord.Wait()
	logger.Info("stopped")
	return nil
}

// buildTranscriber picks the configured collaborator or the built-in
// silent transcriber when no endpoint is set.
func buildTranscriber(cfg *config.ServerConfig, logger logging.Logger) transcribe.Transcriber {
	if cfg.Transcription.BaseURL == "" {
		logger.Warn("no transcription collaborator configured, audio will produce empty transcripts")
		return transcribe.NewNull()
	}
	return transcribe.NewHTTPClient(transcribe.HTTPClientConfig{
		BaseURL:    cfg.Transcription.BaseURL,
		Timeout:    cfg.Transcription.Timeout,
		MaxRetries: cfg.Transcription.MaxRetries,
	}, logger)
}

func buildSummarizer(cfg *config.ServerConfig, logger logging.Logger) analysis.Summarizer {
	if cfg.Summarization.BaseURL == "" {
		return analysis.NewExtractive()
	}
	return analysis.NewSummaryClient(analysis.HTTPClientConfig{
		BaseURL:    cfg.Summarization.BaseURL,
		Timeout:    cfg.Summarization.Timeout,
		MaxRetries: cfg.Summarization.MaxRetries,
	}, logger)
}

func buildActionItems(cfg *config.ServerConfig, logger logging.Logger) analysis.ActionItemExtractor {
	if cfg.ActionItems.BaseURL == "" {
		return analysis.NewRuleBased()
	}
	return analysis.NewActionItemsClient(analysis.HTTPClientConfig{
		BaseURL:    cfg.ActionItems.BaseURL,
		Timeout:    cfg.ActionItems.Timeout,
		MaxRetries: cfg.ActionItems.MaxRetries,
	}, logger)
}

func buildSentiment(cfg *config.ServerConfig, logger logging.Logger) analysis.SentimentAnalyzer {
	if cfg.Sentiment.BaseURL == "" {
		return analysis.NewLexicon()
	}
	return analysis.NewSentimentClient(analysis.HTTPClientConfig{
		BaseURL:    cfg.Sentiment.BaseURL,
		Timeout:    cfg.Sentiment.Timeout,
		MaxRetries: cfg.Sentiment.MaxRetries,
	}, logger)
}

