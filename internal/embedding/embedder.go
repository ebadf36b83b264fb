// Package embedding converts text into fixed-size vectors for similarity
// search.
package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Embedder converts free text into a numeric vector representation.
// Vectors from a single Embedder instance share one dimensionality.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder calls the hosted Gemini embedding model.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder wraps an existing GenAI client. The client is shared
// with the answer generator and created once at startup.
func NewGeminiEmbedder(client *genai.Client, model string) *GeminiEmbedder {
	return &GeminiEmbedder{client: client, model: model}
}

// Embed implements Embedder.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embed with %s: %w", e.model, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embed with %s: empty embedding in response", e.model)
	}
	return resp.Embeddings[0].Values, nil
}
