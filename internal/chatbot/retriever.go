package chatbot

import (
	"context"
	"fmt"

	"github.com/neuralbudget/neural-budget/internal/embedding"
	"github.com/neuralbudget/neural-budget/internal/vectorindex"
)

// Retriever answers similarity queries over the vector index, restricted
// to one user's documents.
type Retriever struct {
	embedder embedding.Embedder
	index    *vectorindex.Index
}

// NewRetriever builds a retriever over the shared index.
func NewRetriever(embedder embedding.Embedder, index *vectorindex.Index) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve returns the up-to-k most similar documents owned by userID,
// most similar first. Fewer than k results means fewer matching entries
// exist; that is not an error.
func (r *Retriever) Retrieve(ctx context.Context, userID, query string, k int) ([]vectorindex.Result, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve: embedding query: %w", err)
	}
	return r.index.Search(vec, userID, k), nil
}
