package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"docchat/internal/domain"
)

const (
	defaultBatchSize = 64
	embedAttempts    = 3
	embedBackoff     = 200 * time.Millisecond
)

// Pipeline loads documents, chunks their pages, embeds the chunks in
// batches and writes everything to the index.
type Pipeline struct {
	loader   domain.Loader
	chunker  domain.Chunker
	embedder domain.Embedder
	index    domain.Index
	log      *log.Logger

	batchSize int
	backoff   time.Duration
}

// Summary reports what one ingest run put into the index.
type Summary struct {
	Documents int
	Pages     int
	Chunks    int
	Elapsed   time.Duration
}

func New(loader domain.Loader, chunker domain.Chunker, embedder domain.Embedder, index domain.Index, logger *log.Logger, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Pipeline{
		loader:    loader,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		log:       logger,
		batchSize: batchSize,
		backoff:   embedBackoff,
	}
}

// Run ingests the file or directory at path.
func (p *Pipeline) Run(ctx context.Context, path string) (Summary, error) {
	started := time.Now()

	pages, err := p.loader.Load(ctx, path)
	if err != nil {
		return Summary{}, err
	}

	sources := make(map[string]struct{})
	var chunks []domain.Chunk
	for _, page := range pages {
		sources[page.Source] = struct{}{}
		chunks = append(chunks, p.chunker.Chunk(page)...)
	}
	if len(chunks) == 0 {
		return Summary{}, fmt.Errorf("%w: no text to index", domain.ErrEmptyInput)
	}

	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := p.embedBatch(ctx, texts)
		if err != nil {
			return Summary{}, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if _, err := p.index.Insert(ctx, batch, vectors); err != nil {
			return Summary{}, fmt.Errorf("index chunks %d-%d: %w", start, end-1, err)
		}
		p.log.Debug("indexed batch", "from", start, "to", end-1)
	}

	return Summary{
		Documents: len(sources),
		Pages:     len(pages),
		Chunks:    len(chunks),
		Elapsed:   time.Since(started),
	}, nil
}

// embedBatch retries transient embedding failures with doubling backoff.
func (p *Pipeline) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= embedAttempts; attempt++ {
		vectors, err := p.embedder.EmbedDocuments(ctx, texts)
		if err == nil {
			if len(vectors) != len(texts) {
				return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
			}
			return vectors, nil
		}
		lastErr = err
		if attempt == embedAttempts {
			break
		}
		delay := p.backoff << (attempt - 1)
		p.log.Warn("embedding failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}
