package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/config"
	"docchat/internal/domain"
)

type stubClient struct {
	dim   int
	err   error
	calls [][]string
}

func (s *stubClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	s.calls = append(s.calls, texts)
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, s.dim)
		for j := range vec {
			vec[j] = float32(len(texts[i]))
		}
		out[i] = vec
	}
	return out, nil
}

func TestNewFromClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Should learn the dimension from the probe", func(t *testing.T) {
		e, err := newFromClient(ctx, &stubClient{dim: 3}, "local/test-model", 0, false)
		require.NoError(t, err)
		assert.Equal(t, 3, e.Dimension())
		assert.Equal(t, "local/test-model", e.Fingerprint())
	})

	t.Run("Should wrap probe failures in ErrModelLoad", func(t *testing.T) {
		_, err := newFromClient(ctx, &stubClient{err: errors.New("weights missing")}, "local/test-model", 0, false)
		require.ErrorIs(t, err, domain.ErrModelLoad)
		assert.Contains(t, err.Error(), "weights missing")
	})

	t.Run("Should reject an empty probe vector", func(t *testing.T) {
		_, err := newFromClient(ctx, &stubClient{dim: 0}, "local/test-model", 0, false)
		require.ErrorIs(t, err, domain.ErrModelLoad)
	})

	t.Run("Should embed one vector per document", func(t *testing.T) {
		stub := &stubClient{dim: 4}
		e, err := newFromClient(ctx, stub, "local/test-model", 2, false)
		require.NoError(t, err)

		vecs, err := e.EmbedDocuments(ctx, []string{"alpha", "beta", "gamma"})
		require.NoError(t, err)
		require.Len(t, vecs, 3)
		for _, v := range vecs {
			assert.Len(t, v, 4)
		}
	})

	t.Run("Should embed queries through the same client", func(t *testing.T) {
		stub := &stubClient{dim: 2}
		e, err := newFromClient(ctx, stub, "local/test-model", 0, false)
		require.NoError(t, err)

		vec, err := e.EmbedQuery(ctx, "what is the runtime?")
		require.NoError(t, err)
		assert.Len(t, vec, 2)
	})
}

func TestNew(t *testing.T) {
	t.Run("Should reject an unknown provider", func(t *testing.T) {
		_, err := New(context.Background(), config.EmbedderConfig{Provider: "banana", Model: "m"})
		require.ErrorIs(t, err, domain.ErrModelLoad)
		assert.Contains(t, err.Error(), "unknown embedding provider")
	})
}
