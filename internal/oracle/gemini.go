package oracle

import (
	"context"
	"errors"
	"fmt"

	genai "google.golang.org/genai"

	appLog "github.com/James-C137/tempo-scheduler/internal/log"
)

// ErrEmptyResponse is returned when the model replies with no usable
// candidate text.
var ErrEmptyResponse = errors.New("oracle: empty response from model")

// GeminiClient is a thin wrapper around the official genai client.
// One call per run, no retries: a failed oracle call fails the run.
type GeminiClient struct {
	cli             *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int32
}

// NewGeminiClient constructs a GeminiClient for the given model.
// temperature is the determinism knob; maxOutputTokens bounds the
// response size.
func NewGeminiClient(ctx context.Context, apiKey, model string, temperature float32, maxOutputTokens int32) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("oracle: API key is empty")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		cli:             cli,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
	}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }

func (g *GeminiClient) Close() error { return nil }

// Complete sends the prompt and returns the raw text of the first
// candidate. The response is requested as application/json but returned
// untrusted: shape validation is the parser's job.
func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	appLog.Debug("oracle request", "model", g.model, "prompt_bytes", len(prompt))

	temp := g.temperature
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      &temp,
			MaxOutputTokens:  g.maxOutputTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("oracle call: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	appLog.Debug("oracle response", "model", g.model, "response_bytes", len(text))
	return text, nil
}
