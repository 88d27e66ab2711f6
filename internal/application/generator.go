package application

import "context"

// IdeaModel is the external generation service. It returns the raw response
// text; validation happens in the pipeline.
type IdeaModel interface {
	GenerateIdeas(ctx context.Context, prompt string) (string, error)
	Name() string
}
