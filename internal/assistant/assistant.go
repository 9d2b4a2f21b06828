package assistant

import (
	"context"

	"github.com/charmbracelet/log"

	"docchat/internal/domain"
)

// Retriever pulls the chunks most relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]domain.ScoredChunk, error)
}

// Composer produces a grounded answer from retrieved chunks.
type Composer interface {
	Compose(ctx context.Context, question string, results []domain.ScoredChunk) (domain.Answer, error)
}

// Assistant answers questions against the indexed documents. It carries all
// session state explicitly, so two assistants never share an index or model.
type Assistant struct {
	retriever Retriever
	composer  Composer
	log       *log.Logger
}

func New(retriever Retriever, composer Composer, logger *log.Logger) *Assistant {
	return &Assistant{retriever: retriever, composer: composer, log: logger}
}

// Ask retrieves context for the question and composes an answer from it.
// When retrieval finds nothing, ErrNoResults comes back and no model call
// is made.
func (a *Assistant) Ask(ctx context.Context, question string) (domain.Answer, error) {
	results, err := a.retriever.Retrieve(ctx, question)
	if err != nil {
		return domain.Answer{}, err
	}
	a.log.Debug("retrieved chunks", "count", len(results), "top_score", results[0].Score)
	return a.composer.Compose(ctx, question, results)
}
