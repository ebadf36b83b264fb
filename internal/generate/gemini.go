package generate

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiCaller is the concrete Caller backed by the GenAI client.
type GeminiCaller struct {
	client *genai.Client
}

// NewGeminiCaller wraps an existing GenAI client, shared with the
// embedder and created once at startup.
func NewGeminiCaller(client *genai.Client) *GeminiCaller {
	return &GeminiCaller{client: client}
}

// Complete implements Caller.
func (c *GeminiCaller) Complete(ctx context.Context, cfg ModelConfig, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, cfg.Model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(cfg.Temperature),
		MaxOutputTokens: cfg.MaxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate content with %s: %w", cfg.Model, err)
	}
	return resp.Text(), nil
}
