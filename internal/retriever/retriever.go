package retriever

import (
	"context"
	"fmt"
	"strings"

	"docchat/internal/domain"
)

// DefaultTopK is how many chunks a query pulls when no count is configured.
const DefaultTopK = 10

// Retriever embeds a question and pulls the closest chunks from the index.
type Retriever struct {
	embedder domain.Embedder
	index    domain.Index
	topK     int
}

func New(embedder domain.Embedder, index domain.Index, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, index: index, topK: topK}
}

// Retrieve returns up to topK chunks ranked by similarity to the question.
// An empty index or a question nothing matches yields ErrNoResults.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]domain.ScoredChunk, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: blank question", domain.ErrEmptyInput)
	}
	vec, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	results, err := r.index.Search(ctx, vec, r.topK)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w for %q", domain.ErrNoResults, question)
	}
	return results, nil
}
