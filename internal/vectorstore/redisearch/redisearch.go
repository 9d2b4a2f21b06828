package redisearch

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"docchat/internal/config"
	"docchat/internal/domain"
)

// Storage keeps chunks in Redis hashes under a common key prefix and serves
// similarity queries through a RediSearch vector index. Vectors travel as
// raw little-endian float32 bytes, the encoding FLOAT32 KNN fields expect.
type Storage struct {
	client *redis.Client
	index  string
	prefix string

	metaKey string
	seqKey  string

	fingerprint string
	dimension   int
}

var _ domain.Index = (*Storage)(nil)

// New connects, verifies that any existing data was written by the same
// embedding model, and creates the search index when it is missing.
func New(ctx context.Context, cfg config.RedisStoreConfig, fingerprint string, dimension int) (*Storage, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Protocol: 2, // reply parsing below reads RESP2 arrays
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", cfg.Addr, err)
	}

	s := &Storage{
		client:      client,
		index:       cfg.Index,
		prefix:      cfg.Prefix,
		metaKey:     cfg.Index + ":meta",
		seqKey:      cfg.Index + ":seq",
		fingerprint: fingerprint,
		dimension:   dimension,
	}
	if err := s.checkMeta(ctx); err != nil {
		client.Close()
		return nil, err
	}
	if err := s.ensureIndex(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("create search index %s: %w", cfg.Index, err)
	}
	return s, nil
}

func (s *Storage) checkMeta(ctx context.Context) error {
	meta, err := s.client.HGetAll(ctx, s.metaKey).Result()
	if err != nil {
		return fmt.Errorf("read store metadata: %w", err)
	}
	if len(meta) == 0 {
		return s.writeMeta(ctx)
	}
	if meta["fingerprint"] != s.fingerprint {
		return fmt.Errorf("%w: store built with %s, current model is %s",
			domain.ErrModelMismatch, meta["fingerprint"], s.fingerprint)
	}
	if meta["dimension"] != strconv.Itoa(s.dimension) {
		return fmt.Errorf("%w: store has dimension %s, current model produces %d",
			domain.ErrModelMismatch, meta["dimension"], s.dimension)
	}
	return nil
}

func (s *Storage) writeMeta(ctx context.Context) error {
	return s.client.HSet(ctx, s.metaKey, map[string]any{
		"fingerprint": s.fingerprint,
		"dimension":   s.dimension,
	}).Err()
}

func (s *Storage) ensureIndex(ctx context.Context) error {
	if err := s.client.Do(ctx, "FT.INFO", s.index).Err(); err == nil {
		return nil
	}
	return s.client.Do(ctx,
		"FT.CREATE", s.index, "ON", "HASH", "PREFIX", "1", s.prefix, "SCHEMA",
		"text", "TEXT",
		"source", "TAG",
		"page", "NUMERIC",
		"seq", "NUMERIC", "SORTABLE",
		"vector", "VECTOR", "FLAT", "6",
		"TYPE", "FLOAT32", "DIM", strconv.Itoa(s.dimension), "DISTANCE_METRIC", "COSINE",
	).Err()
}

// Insert writes one hash per chunk. Identifiers come from a shared counter,
// so they keep growing in insertion order across batches and restarts.
func (s *Storage) Insert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) ([]int, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("got %d chunks and %d vectors", len(chunks), len(vectors))
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return nil, fmt.Errorf("vector has dimension %d, index expects %d", len(v), s.dimension)
		}
	}

	end, err := s.client.IncrBy(ctx, s.seqKey, int64(len(chunks))).Result()
	if err != nil {
		return nil, fmt.Errorf("allocate identifiers: %w", err)
	}
	start := int(end) - len(chunks)

	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, c := range chunks {
			id := start + i
			pipe.HSet(ctx, s.prefix+strconv.Itoa(id), map[string]any{
				"text":    c.Text,
				"source":  c.Source,
				"page":    c.Page,
				"ordinal": c.Ordinal,
				"start":   c.Start,
				"seq":     id,
				"vector":  encodeVector(vectors[i]),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("write chunks: %w", err)
	}

	ids := make([]int, len(chunks))
	for i := range ids {
		ids[i] = start + i
	}
	return ids, nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("top-k must be positive, got %d", k)
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, index expects %d", len(vector), s.dimension)
	}

	reply, err := s.client.Do(ctx,
		"FT.SEARCH", s.index,
		fmt.Sprintf("*=>[KNN %d @vector $vec AS score]", k),
		"PARAMS", "2", "vec", encodeVector(vector),
		"SORTBY", "score", "ASC",
		"RETURN", "7", "text", "source", "page", "ordinal", "start", "seq", "score",
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	rows, err := parseSearchReply(reply)
	if err != nil {
		return nil, err
	}
	sortRows(rows)

	results := make([]domain.ScoredChunk, len(rows))
	for i, r := range rows {
		results[i] = domain.ScoredChunk{Chunk: r.chunk, Score: r.score}
	}
	return results, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	reply, err := s.client.Do(ctx, "FT.SEARCH", s.index, "*", "LIMIT", "0", "0").Result()
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	arr, ok := reply.([]any)
	if !ok || len(arr) == 0 {
		return 0, fmt.Errorf("unexpected count reply %T", reply)
	}
	n, err := toInt(arr[0])
	if err != nil {
		return 0, fmt.Errorf("unexpected count reply: %w", err)
	}
	return n, nil
}

// Clear drops the index together with its documents and starts over, keeping
// the store bound to the current model.
func (s *Storage) Clear(ctx context.Context) error {
	if err := s.client.Do(ctx, "FT.DROPINDEX", s.index, "DD").Err(); err != nil {
		// A store that was never written has no index to drop.
		if s.client.Do(ctx, "FT.INFO", s.index).Err() == nil {
			return fmt.Errorf("drop search index %s: %w", s.index, err)
		}
	}
	if err := s.client.Del(ctx, s.seqKey).Err(); err != nil {
		return err
	}
	if err := s.writeMeta(ctx); err != nil {
		return err
	}
	return s.ensureIndex(ctx)
}

func (s *Storage) Close() error { return s.client.Close() }

type row struct {
	chunk domain.Chunk
	score float64
	seq   int
}

// parseSearchReply walks a RESP2 FT.SEARCH reply: total count first, then
// alternating document keys and field arrays.
func parseSearchReply(reply any) ([]row, error) {
	arr, ok := reply.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected search reply %T", reply)
	}
	if len(arr) == 0 {
		return nil, nil
	}
	var rows []row
	for i := 1; i+1 < len(arr); i += 2 {
		fields, ok := arr[i+1].([]any)
		if !ok {
			return nil, fmt.Errorf("unexpected document fields %T", arr[i+1])
		}
		r, err := parseRow(fields)
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func parseRow(fields []any) (row, error) {
	var r row
	for j := 0; j+1 < len(fields); j += 2 {
		name := toString(fields[j])
		val := toString(fields[j+1])
		var err error
		switch name {
		case "text":
			r.chunk.Text = val
		case "source":
			r.chunk.Source = val
		case "page":
			r.chunk.Page, err = strconv.Atoi(val)
		case "ordinal":
			r.chunk.Ordinal, err = strconv.Atoi(val)
		case "start":
			r.chunk.Start, err = strconv.Atoi(val)
		case "seq":
			r.seq, err = strconv.Atoi(val)
		case "score":
			var dist float64
			dist, err = strconv.ParseFloat(val, 64)
			r.score = 1 - dist
		}
		if err != nil {
			return row{}, fmt.Errorf("parse field %s=%q: %w", name, val, err)
		}
	}
	return r, nil
}

// sortRows orders by similarity descending, then by identifier so equal
// scores keep insertion order.
func sortRows(rows []row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].seq < rows[j].seq
	})
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func toString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func toInt(v any) (int, error) {
	switch v := v.(type) {
	case int64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
