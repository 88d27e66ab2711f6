package gemini

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

type Options struct {
	Model       string
	Temperature float32
	TopP        float32
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
}

// Client generates project ideas with Gemini, constraining the output to a
// JSON array of {title, description} objects.
type Client struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewClient(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.8
	}
	if opts.TopP == 0 {
		opts.TopP = 0.95
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Client{
		client: client,
		model:  opts.Model,
		config: &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   IdeasSchema(),
			Temperature:      genai.Ptr(opts.Temperature),
			TopP:             genai.Ptr(opts.TopP),
		},
	}, nil
}

// IdeasSchema is the provider-enforced response shape.
func IdeasSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title": {
					Type:        genai.TypeString,
					Description: "A short, catchy title for the project idea.",
				},
				"description": {
					Type:        genai.TypeString,
					Description: "A concise, 2-3 sentence description of the project idea, explaining how it combines the user's passions and skills for a purposeful outcome.",
				},
			},
			Required:         []string{"title", "description"},
			PropertyOrdering: []string{"title", "description"},
		},
	}
}

func (c *Client) Name() string {
	return "gemini/" + c.model
}

func (c *Client) GenerateIdeas(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), c.config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	// An empty text is passed through; the pipeline classifies it.
	return resp.Text(), nil
}
