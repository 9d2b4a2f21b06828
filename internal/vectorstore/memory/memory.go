package memory

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"docchat/internal/domain"
)

// snapshotVersion is bumped whenever the on-disk layout changes.
const snapshotVersion = 1

// Storage is an in-memory vector index using brute-force cosine similarity.
// It can be written to and restored from a gob snapshot on disk.
type Storage struct {
	mu          sync.RWMutex
	fingerprint string
	dimension   int
	chunks      []domain.Chunk
	vectors     [][]float32
}

var _ domain.Index = (*Storage)(nil)

type snapshot struct {
	Version     int
	Fingerprint string
	Dimension   int
	Chunks      []domain.Chunk
	Vectors     [][]float32
}

func NewStorage(fingerprint string, dimension int) (*Storage, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	return &Storage{fingerprint: fingerprint, dimension: dimension}, nil
}

// Open restores a snapshot and refuses one written by a different embedding
// model, so stored vectors are never compared against incompatible ones.
func Open(path, fingerprint string, dimension int) (*Storage, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("snapshot %s has unsupported version %d", path, snap.Version)
	}
	if snap.Fingerprint != fingerprint {
		return nil, fmt.Errorf("%w: snapshot built with %s, current model is %s",
			domain.ErrModelMismatch, snap.Fingerprint, fingerprint)
	}
	if snap.Dimension != dimension {
		return nil, fmt.Errorf("%w: snapshot has dimension %d, current model produces %d",
			domain.ErrModelMismatch, snap.Dimension, dimension)
	}
	return &Storage{
		fingerprint: snap.Fingerprint,
		dimension:   snap.Dimension,
		chunks:      snap.Chunks,
		vectors:     snap.Vectors,
	}, nil
}

// Insert appends chunks with their vectors and returns the assigned
// identifiers, which number entries in insertion order starting at zero.
func (s *Storage) Insert(_ context.Context, chunks []domain.Chunk, vectors [][]float32) ([]int, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("got %d chunks and %d vectors", len(chunks), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return nil, fmt.Errorf("vector has dimension %d, index expects %d", len(v), s.dimension)
		}
	}
	ids := make([]int, len(chunks))
	for i := range ids {
		ids[i] = len(s.chunks) + i
	}
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return ids, nil
}

// Search returns the k entries most similar to the query vector, scored by
// cosine similarity in descending order. Entries with equal scores keep
// their insertion order. Fewer than k entries means all of them come back.
func (s *Storage) Search(_ context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("top-k must be positive, got %d", k)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, index expects %d", len(vector), s.dimension)
	}
	scored := make([]domain.ScoredChunk, len(s.chunks))
	for i := range s.chunks {
		scored[i] = domain.ScoredChunk{Chunk: s.chunks[i], Score: cosine(s.vectors[i], vector)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

func (s *Storage) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	s.vectors = nil
	return nil
}

// Save writes a snapshot atomically, through a temp file renamed into place.
func (s *Storage) Save(path string) error {
	s.mu.RLock()
	snap := snapshot{
		Version:     snapshotVersion,
		Fingerprint: s.fingerprint,
		Dimension:   s.dimension,
		Chunks:      s.chunks,
		Vectors:     s.vectors,
	}
	s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// cosine accumulates in float64 so scores stay stable across vector lengths.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}
