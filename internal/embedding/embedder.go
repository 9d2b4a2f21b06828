package embedding

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/embeddings/cybertron"
	"github.com/tmc/langchaingo/llms/openai"

	"docchat/internal/config"
	"docchat/internal/domain"
)

// Embedder turns text into vectors through a langchaingo embedding client.
// Construction embeds a short probe so a broken model surfaces immediately
// and the vector dimension is known up front.
type Embedder struct {
	inner       embeddings.Embedder
	fingerprint string
	dimension   int
}

var _ domain.Embedder = (*Embedder)(nil)

func New(ctx context.Context, cfg config.EmbedderConfig) (*Embedder, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelLoad, err)
	}
	return newFromClient(ctx, client, cfg.Provider+"/"+cfg.Model, cfg.BatchSize, cfg.StripNewlines)
}

func newFromClient(ctx context.Context, client embeddings.EmbedderClient, fingerprint string, batchSize int, stripNewlines bool) (*Embedder, error) {
	// langchaingo strips newlines unless told otherwise; vectors must come
	// from the chunk text exactly as stored.
	opts := []embeddings.Option{embeddings.WithStripNewLines(stripNewlines)}
	if batchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(batchSize))
	}
	inner, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelLoad, err)
	}

	probe, err := inner.EmbedQuery(ctx, "dimension probe")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrModelLoad, fingerprint, err)
	}
	if len(probe) == 0 {
		return nil, fmt.Errorf("%w: %s produced an empty vector", domain.ErrModelLoad, fingerprint)
	}

	return &Embedder{inner: inner, fingerprint: fingerprint, dimension: len(probe)}, nil
}

func newClient(cfg config.EmbedderConfig) (embeddings.EmbedderClient, error) {
	switch cfg.Provider {
	case "local", "":
		return cybertron.NewCybertron(
			cybertron.WithModel(cfg.Model),
			cybertron.WithModelsDir(cfg.ModelsDir),
		)
	case "openai":
		opts := []openai.Option{
			openai.WithEmbeddingModel(cfg.Model),
			openai.WithToken(os.Getenv(cfg.APIKeyEnv)),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// Fingerprint identifies the provider and model, e.g. "local/all-MiniLM-L6-v2".
// Snapshots record it so an index is never reused with a different model.
func (e *Embedder) Fingerprint() string { return e.fingerprint }

// Dimension reports the length of every vector this embedder produces.
func (e *Embedder) Dimension() int { return e.dimension }

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.inner.EmbedDocuments(ctx, texts)
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.inner.EmbedQuery(ctx, text)
}
