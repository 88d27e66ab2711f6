package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"purpose-ideas/config"
	"purpose-ideas/internal/application"
	"purpose-ideas/internal/domain"
	"purpose-ideas/internal/infra/anthropic"
	"purpose-ideas/internal/infra/gemini"
	"purpose-ideas/internal/locale"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "ideas",
	Short:         "Turn passions and skills into project ideas",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// loadConfig falls back to defaults plus environment keys when the default
// config file does not exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg = config.Default()
	} else if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newIdeaModel(ctx context.Context, cfg *config.Config) (application.IdeaModel, error) {
	switch cfg.Generation.Provider {
	case "anthropic":
		return anthropic.NewClaudeClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model), nil
	default:
		return gemini.NewClient(ctx, cfg.Gemini.APIKey, gemini.Options{
			Model:       cfg.Gemini.Model,
			Temperature: cfg.Gemini.Temperature,
			TopP:        cfg.Gemini.TopP,
		})
	}
}

func newLocaleContext(cfg config.LocaleConfig, logger *slog.Logger) (*locale.Context, error) {
	initial, err := domain.ParseLocale(cfg.Default)
	if err != nil {
		logger.Warn("invalid default locale, using fallback", "locale", cfg.Default, "fallback", domain.DefaultLocale)
		initial = domain.DefaultLocale
	}

	table := locale.DefaultTable()
	if cfg.TranslationsFile != "" {
		table, err = locale.LoadTable(cfg.TranslationsFile)
		if err != nil {
			return nil, fmt.Errorf("loading translations: %w", err)
		}
	}

	return locale.NewContext(initial, table, logger), nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
