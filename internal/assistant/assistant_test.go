package assistant

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
	"docchat/internal/logging"
)

type stubRetriever struct {
	results []domain.ScoredChunk
	err     error
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string) ([]domain.ScoredChunk, error) {
	return s.results, s.err
}

type stubComposer struct {
	answer domain.Answer
	err    error
	called bool
	got    []domain.ScoredChunk
}

func (s *stubComposer) Compose(_ context.Context, _ string, results []domain.ScoredChunk) (domain.Answer, error) {
	s.called = true
	s.got = results
	return s.answer, s.err
}

func TestAsk(t *testing.T) {
	ctx := context.Background()
	logger := logging.New(logging.Options{Level: "error", Output: io.Discard})
	results := []domain.ScoredChunk{
		{Chunk: domain.Chunk{Source: "a.txt", Page: 1, Text: "fact"}, Score: 0.8},
	}

	t.Run("Should compose from retrieved chunks", func(t *testing.T) {
		composer := &stubComposer{answer: domain.Answer{Text: "the fact", Sources: results}}
		a := New(&stubRetriever{results: results}, composer, logger)

		ans, err := a.Ask(ctx, "what is the fact?")
		require.NoError(t, err)
		assert.Equal(t, "the fact", ans.Text)
		assert.Equal(t, results, composer.got)
	})

	t.Run("Should skip composition when retrieval finds nothing", func(t *testing.T) {
		composer := &stubComposer{}
		a := New(&stubRetriever{err: domain.ErrNoResults}, composer, logger)

		_, err := a.Ask(ctx, "anything?")
		require.ErrorIs(t, err, domain.ErrNoResults)
		assert.False(t, composer.called)
	})

	t.Run("Should propagate composer failures", func(t *testing.T) {
		composer := &stubComposer{err: errors.New("model down")}
		a := New(&stubRetriever{results: results}, composer, logger)

		_, err := a.Ask(ctx, "what is the fact?")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model down")
	})
}
