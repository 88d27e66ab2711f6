package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"purpose-ideas/internal/infra"
)

// SpeechClient synthesizes speech through the OpenAI audio/speech endpoint.
// Output is raw 24kHz 16-bit mono PCM so it can go straight to the speaker.
type SpeechClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	voice      string
	speed      float64
	retry      infra.RetryConfig
}

func NewSpeechClient(apiKey, model, voice string) *SpeechClient {
	return NewSpeechClientWithURL(apiKey, model, voice, defaultBaseURL)
}

func NewSpeechClientWithURL(apiKey, model, voice, baseURL string) *SpeechClient {
	if model == "" {
		model = "gpt-4o-mini-tts"
	}
	if voice == "" {
		voice = "alloy"
	}
	return &SpeechClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		baseURL:    baseURL,
		model:      model,
		voice:      voice,
		speed:      1.0,
		retry:      infra.DefaultRetryConfig(),
	}
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed"`
	ResponseFormat string  `json:"response_format"`
	Instructions   string  `json:"instructions,omitempty"`
}

// Synthesize returns PCM for text. language only steers pronunciation; the
// endpoint detects the language from the text itself.
func (c *SpeechClient) Synthesize(ctx context.Context, text string, language string) ([]byte, error) {
	payload := speechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          c.voice,
		Speed:          c.speed,
		ResponseFormat: "pcm",
	}
	if language != "" {
		payload.Instructions = fmt.Sprintf("Speak in the language with ISO code %q, warmly and clearly.", language)
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var audio []byte
	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			if infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return fmt.Errorf("speech API error %d: %s (retryable)", resp.StatusCode, string(respBody))
			}
			return infra.Permanent(fmt.Errorf("speech API error %d: %s", resp.StatusCode, string(respBody)))
		}

		audio, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading audio: %w", err)
		}
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return audio, nil
}
