package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/semaphore"

	"purpose-ideas/internal/domain"
)

const promptTemplate = `You are an expert career and purpose coach. Your goal is to inspire users by connecting what they love with what they are good at.
Based on the user's passions: "%s" and their skills: "%s", generate exactly 5 unique, actionable, and purposeful project ideas.

A purposeful project is one that could create a positive impact, foster personal growth, or bring deep fulfillment to the user.
Frame each idea as something they can start working on. Be creative and encouraging.

For example, if passions are 'teaching' and 'biochemistry' and skills are 'video editing', an idea could be 'Start a YouTube channel explaining complex biochemistry topics in a simple, engaging way for students'.

IMPORTANT: The final response must be in the %s language.

Return the result as a JSON array of 5 objects, where each object has a "title" and a "description", according to the provided schema. Do not include any markdown formatting like ` + "```json."

// BuildPrompt renders the coaching prompt for req.
func BuildPrompt(req domain.GenerationRequest) string {
	return fmt.Sprintf(promptTemplate, req.Passions, req.Skills, req.Locale.LanguageName())
}

// IdeaPipeline turns a generation request into project ideas. It makes one
// model call per request and never retries. Only one call may be outstanding;
// a second concurrent call fails with KindBusy.
type IdeaPipeline struct {
	model  IdeaModel
	logger *slog.Logger
	sem    *semaphore.Weighted
}

func NewIdeaPipeline(model IdeaModel, logger *slog.Logger) *IdeaPipeline {
	return &IdeaPipeline{
		model:  model,
		logger: logger,
		sem:    semaphore.NewWeighted(1),
	}
}

func (p *IdeaPipeline) Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.ProjectIdea, error) {
	if req.Passions == "" || req.Skills == "" {
		return nil, domain.ErrEmptyInput
	}
	if !p.sem.TryAcquire(1) {
		p.logger.Warn("generation rejected, another request is in flight")
		return nil, domain.NewGenerationError(domain.KindBusy, nil)
	}
	defer p.sem.Release(1)

	p.logger.Info("generating ideas",
		"model", p.model.Name(),
		"locale", req.Locale,
	)

	raw, err := p.model.GenerateIdeas(ctx, BuildPrompt(req))
	if err != nil {
		genErr := domain.NewGenerationError(domain.KindNetworkOrService, err)
		p.logger.Error("generation failed", "kind", genErr.Kind, "error", err)
		return nil, genErr
	}

	ideas, err := ParseIdeas(raw)
	if err != nil {
		p.logger.Error("generation failed", "kind", domain.KindOf(err), "error", err)
		return nil, err
	}

	p.logger.Info("ideas generated", "count", len(ideas))
	return ideas, nil
}

// ParseIdeas validates a raw model response. The whole response is rejected
// if any element lacks a title or description.
func ParseIdeas(raw string) ([]domain.ProjectIdea, error) {
	text := strings.TrimSpace(raw)

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, domain.NewGenerationError(domain.KindMalformed, fmt.Errorf("parsing ideas JSON: %w", err))
	}
	if items == nil {
		return nil, domain.NewGenerationError(domain.KindMalformed, errors.New("response is not an array"))
	}
	if len(items) == 0 {
		return nil, domain.NewGenerationError(domain.KindEmptyResult, errors.New("response array is empty"))
	}

	ideas := make([]domain.ProjectIdea, 0, len(items))
	for i, item := range items {
		var idea domain.ProjectIdea
		if err := json.Unmarshal(item, &idea); err != nil {
			return nil, domain.NewGenerationError(domain.KindMalformed, fmt.Errorf("idea %d: %w", i, err))
		}
		if !idea.Complete() {
			return nil, domain.NewGenerationError(domain.KindMalformed, fmt.Errorf("idea %d is missing title or description", i))
		}
		ideas = append(ideas, idea)
	}

	return ideas, nil
}
