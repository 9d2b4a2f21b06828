package main

import (
	"context"
	"errors"
	"flag"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"docchat/internal/answer"
	"docchat/internal/assistant"
	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/embedding"
	"docchat/internal/logging"
	"docchat/internal/retriever"
	"docchat/internal/tui"
	"docchat/internal/vectorstore/memory"
	"docchat/internal/vectorstore/redisearch"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath   string
		storeType string
		single    bool
	)
	flag.StringVar(&cfgPath, "config", "", "path to a YAML config file (default: ./docchat.yaml, then ~/.config/docchat/config.yaml)")
	flag.StringVar(&storeType, "store", "", "vector store backend, memory or redis (overrides the config)")
	flag.BoolVar(&single, "single", false, "open the single-document snapshot (memory store only)")
	flag.Parse()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if storeType != "" {
		cfg.Store.Type = storeType
	}

	if os.Getenv(cfg.LLM.APIKeyEnv) == "" {
		logger.Warn("api key not set, answers will fail until it is exported", "env", cfg.LLM.APIKeyEnv)
	}

	ctx := context.Background()

	logger.Info("loading embedding model", "provider", cfg.Embedder.Provider, "model", cfg.Embedder.Model)
	emb, err := embedding.New(ctx, cfg.Embedder)
	if err != nil {
		logger.Fatal("embedding model unavailable", "error", err)
	}

	var index domain.Index
	switch cfg.Store.Type {
	case "memory", "":
		st, path, err := openSnapshot(cfg.Store.Memory, emb, single)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Fatal("no index found, run docchat-ingest first", "error", err)
			}
			logger.Fatal("open snapshot", "error", err)
		}
		logger.Info("snapshot loaded", "path", path)
		index = st
	case "redis":
		st, err := redisearch.New(ctx, *cfg.Store.Redis, emb.Fingerprint(), emb.Dimension())
		if err != nil {
			logger.Fatal("open redis store", "error", err)
		}
		defer st.Close()
		index = st
	default:
		logger.Fatal("unknown vector store", "type", cfg.Store.Type)
	}

	count, err := index.Count(ctx)
	if err != nil {
		logger.Fatal("count chunks", "error", err)
	}
	if count == 0 {
		logger.Fatal("index is empty, run docchat-ingest first")
	}

	composer, err := answer.New(cfg.LLM, cfg.Retrieval.MaxContextTokens)
	if err != nil {
		logger.Fatal("build answer composer", "error", err)
	}
	asst := assistant.New(retriever.New(emb, index, cfg.Retrieval.TopK), composer, logger)

	m := tui.New(asst, count, emb.Fingerprint())
	if _, err := tea.NewProgram(m).Run(); err != nil {
		logger.Fatal("session failed", "error", err)
	}
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}

// openSnapshot prefers the all-documents snapshot and falls back to the
// single-document one, unless -single picks the latter outright.
func openSnapshot(cfg *config.MemoryStoreConfig, emb *embedding.Embedder, single bool) (*memory.Storage, string, error) {
	if single {
		st, err := memory.Open(cfg.SinglePath(), emb.Fingerprint(), emb.Dimension())
		return st, cfg.SinglePath(), err
	}
	st, err := memory.Open(cfg.AllPath(), emb.Fingerprint(), emb.Dimension())
	if err == nil {
		return st, cfg.AllPath(), nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		if st, err2 := memory.Open(cfg.SinglePath(), emb.Fingerprint(), emb.Dimension()); err2 == nil {
			return st, cfg.SinglePath(), nil
		}
	}
	return nil, cfg.AllPath(), err
}
