package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"purpose-ideas/internal/api"
	"purpose-ideas/internal/application"
	"purpose-ideas/internal/infra/voice"
	"purpose-ideas/internal/locale"
	"purpose-ideas/internal/speech"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with dictation and spoken ideas",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	model, err := newIdeaModel(ctx, cfg)
	if err != nil {
		return err
	}

	locales, err := newLocaleContext(cfg.Locale, logger)
	if err != nil {
		return err
	}

	engines := voice.Probe(ctx, voice.Options{
		Capture:    cfg.Speech.Capture,
		FileDir:    cfg.Speech.FileDir,
		SampleRate: cfg.Speech.SampleRate,
		Synthesis:  cfg.Speech.Synthesis,
		OpenAIKey:  cfg.OpenAI.APIKey,
		TTSModel:   cfg.OpenAI.TTSModel,
		TTSVoice:   cfg.OpenAI.Voice,
	}, logger)
	defer engines.Close()

	opts := api.Options{RateLimit: cfg.HTTP.RateLimit}
	if engines.Upload != nil {
		opts.Upload = engines.Upload.Handler()
	}

	loop := speech.NewLoop(logger)
	pipeline := application.NewIdeaPipeline(model, logger)
	server := api.NewServer(pipeline, locales, loop, engines.Capabilities, logger, opts)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("starting purpose ideas server",
			"addr", cfg.HTTP.Addr,
			"model", model.Name(),
			"locale", locales.Current(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Close(shutdownCtx); err != nil {
			logger.Warn("closing speech controllers", "error", err)
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed, forcing close", "error", err)
			return httpServer.Close()
		}
		return nil
	})

	if cfg.Locale.TranslationsFile != "" {
		watcher, err := locale.NewWatcher(cfg.Locale.TranslationsFile, locales, logger)
		if err != nil {
			logger.Warn("translation hot reload disabled", "error", err)
		} else {
			g.Go(func() error {
				return watcher.Run(gctx)
			})
		}
	}

	return g.Wait()
}
