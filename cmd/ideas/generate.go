package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"purpose-ideas/internal/application"
	"purpose-ideas/internal/domain"
)

var generateFlags struct {
	passions string
	skills   string
	locale   string
	asJSON   bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate project ideas once and print them",
	RunE:  runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&generateFlags.passions, "passions", "", "what you love doing (required)")
	generateCmd.Flags().StringVar(&generateFlags.skills, "skills", "", "what you are good at (required)")
	generateCmd.Flags().StringVar(&generateFlags.locale, "locale", "", "output language: pt or en (defaults to config)")
	generateCmd.Flags().BoolVar(&generateFlags.asJSON, "json", false, "print ideas as JSON")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)

	locales, err := newLocaleContext(cfg.Locale, logger)
	if err != nil {
		return err
	}
	if generateFlags.locale != "" {
		loc, err := domain.ParseLocale(generateFlags.locale)
		if err != nil {
			return err
		}
		locales.Set(loc)
	}

	req, err := domain.NewGenerationRequest(generateFlags.passions, generateFlags.skills, locales.Current())
	if err != nil {
		return errors.New(locales.Translate("errorEmptyFields"))
	}

	model, err := newIdeaModel(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	ideas, err := application.NewIdeaPipeline(model, logger).Generate(cmd.Context(), req)
	if err != nil {
		logger.Debug("generation failed", "kind", domain.KindOf(err), "error", err)
		return errors.New(locales.Translate("errorGeneric"))
	}

	out := cmd.OutOrStdout()
	if generateFlags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ideas)
	}

	fmt.Fprintf(out, "%s\n\n", locales.Translate("ideasHeader"))
	for i, idea := range ideas {
		fmt.Fprintf(out, "%d. %s\n   %s\n\n", i+1, idea.Title, idea.Description)
	}
	return nil
}
