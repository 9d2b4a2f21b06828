package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"docchat/internal/chunker"
	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/embedding"
	"docchat/internal/ingest"
	"docchat/internal/loader"
	"docchat/internal/logging"
	"docchat/internal/vectorstore/memory"
	"docchat/internal/vectorstore/redisearch"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath   string
		storeType string
		yes       bool
	)
	flag.StringVar(&cfgPath, "config", "", "path to a YAML config file (default: ./docchat.yaml, then ~/.config/docchat/config.yaml)")
	flag.StringVar(&storeType, "store", "", "vector store backend, memory or redis (overrides the config)")
	flag.BoolVar(&yes, "yes", false, "overwrite an existing index without asking")
	flag.Parse()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if storeType != "" {
		cfg.Store.Type = storeType
	}

	path := cfg.Data.Dir
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	if flag.NArg() > 1 {
		logger.Fatal("expected at most one path argument")
	}

	ctx := context.Background()

	logger.Info("loading embedding model", "provider", cfg.Embedder.Provider, "model", cfg.Embedder.Model)
	emb, err := embedding.New(ctx, cfg.Embedder)
	if err != nil {
		logger.Fatal("embedding model unavailable", "error", err)
	}

	info, err := os.Stat(path)
	isDir := err == nil && info.IsDir()

	var (
		index  domain.Index
		target string
	)
	switch cfg.Store.Type {
	case "memory", "":
		target = cfg.Store.Memory.SinglePath()
		if isDir {
			target = cfg.Store.Memory.AllPath()
		}
		if _, err := os.Stat(target); err == nil && !yes && !confirmOverwrite(target) {
			logger.Info("keeping existing index", "path", target)
			return
		}
		st, err := memory.NewStorage(emb.Fingerprint(), emb.Dimension())
		if err != nil {
			logger.Fatal("create store", "error", err)
		}
		index = st
	case "redis":
		st, err := redisearch.New(ctx, *cfg.Store.Redis, emb.Fingerprint(), emb.Dimension())
		if err != nil {
			logger.Fatal("open redis store", "error", err)
		}
		defer st.Close()
		n, err := st.Count(ctx)
		if err != nil {
			logger.Fatal("count chunks", "error", err)
		}
		if n > 0 {
			if !yes && !confirmOverwrite(cfg.Store.Redis.Index) {
				logger.Info("keeping existing index", "index", cfg.Store.Redis.Index)
				return
			}
			if err := st.Clear(ctx); err != nil {
				logger.Fatal("clear store", "error", err)
			}
		}
		index = st
	default:
		logger.Fatal("unknown vector store", "type", cfg.Store.Type)
	}

	pipe := ingest.New(
		loader.New(logger),
		chunker.New(cfg.Chunker.Size, cfg.Chunker.Overlap),
		emb,
		index,
		logger,
		cfg.Embedder.BatchSize,
	)
	sum, err := pipe.Run(ctx, path)
	if err != nil {
		logger.Fatal("ingest failed", "error", err)
	}

	if st, ok := index.(*memory.Storage); ok {
		if err := st.Save(target); err != nil {
			logger.Fatal("write snapshot", "error", err)
		}
		logger.Info("snapshot written", "path", target)
	}

	logger.Info("ingest complete",
		"documents", sum.Documents,
		"pages", sum.Pages,
		"chunks", sum.Chunks,
		"elapsed", sum.Elapsed,
	)
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}

func confirmOverwrite(target string) bool {
	fmt.Printf("Index %s already exists. Overwrite? [y/N] ", target)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
