package domain

import "context"

// Page is one page of text extracted from a source document.
type Page struct {
	Source string // base name of the originating file
	Number int    // 1-based page number within the file
	Text   string
}

// Chunk is a bounded piece of a page used as the atomic retrieval unit.
// Text is the exact substring of the page text beginning at rune offset
// Start, so a citation can point back into the source page.
type Chunk struct {
	Source  string
	Page    int
	Ordinal int
	Start   int
	Text    string
}

// ScoredChunk pairs a chunk with its similarity to a query vector.
type ScoredChunk struct {
	Chunk
	Score float64
}

// Answer is a generated reply plus the retrieved chunks that grounded it.
type Answer struct {
	Text    string
	Sources []ScoredChunk
}

// Loader reads a document file, or every matching file in a directory,
// into ordered pages.
type Loader interface {
	Load(ctx context.Context, path string) ([]Page, error)
}

// Chunker splits a page into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(page Page) []Chunk
}

// Embedder converts text into fixed-dimensionality vectors. Embedding is
// deterministic: identical text yields identical vectors. Fingerprint
// identifies the provider and model so a persisted index can be verified
// against the embedder loading it.
type Embedder interface {
	Fingerprint() string
	Dimension() int
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Index stores embedded chunks and supports nearest-neighbor lookup.
// Insert appends entries without deduplication and returns their assigned
// sequence numbers. Search returns the k entries most similar to the query
// vector, descending by score, ties resolved in insertion order.
type Index interface {
	Insert(ctx context.Context, chunks []Chunk, vectors [][]float32) ([]int, error)
	Search(ctx context.Context, vector []float32, k int) ([]ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}
