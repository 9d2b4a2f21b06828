package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Should return defaults when the file does not exist", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "local", cfg.Embedder.Provider)
		assert.Equal(t, 1000, cfg.Chunker.Size)
		assert.Equal(t, 200, cfg.Chunker.Overlap)
		assert.Equal(t, 10, cfg.Retrieval.TopK)
		assert.Equal(t, "mistral-large-latest", cfg.LLM.Model)
		require.NotNil(t, cfg.Store.Memory)
		assert.Equal(t, filepath.Join("vectordb", "vector_store_all.gob"), cfg.Store.Memory.AllPath())
	})
	t.Run("Should fill defaults for fields a partial file omits", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "docchat.yaml")
		partial := "chunker:\n  size: 400\nretrieval:\n  top_k: 3\n"
		require.NoError(t, os.WriteFile(path, []byte(partial), 0o644))
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 400, cfg.Chunker.Size)
		assert.Equal(t, 200, cfg.Chunker.Overlap)
		assert.Equal(t, 3, cfg.Retrieval.TopK)
		assert.Equal(t, 3000, cfg.Retrieval.MaxContextTokens)
		assert.Equal(t, "MISTRAL_API_KEY", cfg.LLM.APIKeyEnv)
		require.NotNil(t, cfg.Store.Memory)
		assert.Equal(t, "vectordb", cfg.Store.Memory.Dir)
	})
	t.Run("Should fail on malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "docchat.yaml")
		require.NoError(t, os.WriteFile(path, []byte(":\n\t-"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestSave(t *testing.T) {
	t.Run("Should round-trip a config through disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "docchat.yaml")
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		cfg.Retrieval.TopK = 7
		cfg.Embedder.Model = "custom-model"
		require.NoError(t, Save(path, cfg))

		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 7, loaded.Retrieval.TopK)
		assert.Equal(t, "custom-model", loaded.Embedder.Model)
	})
}

func TestApplyConfigDefaults(t *testing.T) {
	t.Run("Should default redis connection fields", func(t *testing.T) {
		cfg := &AppConfig{Store: StoreConfig{Type: "redis", Redis: &RedisStoreConfig{DB: 2}}}
		applyConfigDefaults(cfg)
		assert.Equal(t, "localhost:6379", cfg.Store.Redis.Addr)
		assert.Equal(t, "docchat", cfg.Store.Redis.Index)
		assert.Equal(t, "docchat:chunk:", cfg.Store.Redis.Prefix)
		assert.Equal(t, 2, cfg.Store.Redis.DB)
	})
	t.Run("Should populate the unselected backend so a flag can switch", func(t *testing.T) {
		cfg := &AppConfig{Store: StoreConfig{Type: "memory"}}
		applyConfigDefaults(cfg)
		require.NotNil(t, cfg.Store.Redis)
		assert.Equal(t, "localhost:6379", cfg.Store.Redis.Addr)
	})
	t.Run("Should default the openai key env only for the openai provider", func(t *testing.T) {
		cfg := &AppConfig{Embedder: EmbedderConfig{Provider: "openai", Model: "text-embedding-3-small"}}
		applyConfigDefaults(cfg)
		assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.APIKeyEnv)
		assert.Empty(t, cfg.Embedder.ModelsDir)
	})
}
