package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LogConfig controls log verbosity and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DataConfig locates the default documents directory.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// ChunkerConfig configures how page text is split into chunks.
// Size and Overlap are measured in runes.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider      string `yaml:"provider"` // local or openai
	Model         string `yaml:"model"`
	ModelsDir     string `yaml:"models_dir,omitempty"`
	BatchSize     int    `yaml:"batch_size"`
	StripNewlines bool   `yaml:"strip_newlines"`
	BaseURL       string `yaml:"base_url,omitempty"`
	APIKeyEnv     string `yaml:"api_key_env,omitempty"`
}

// MemoryStoreConfig locates the snapshot files for the in-memory index.
type MemoryStoreConfig struct {
	Dir        string `yaml:"dir"`
	SingleFile string `yaml:"single_file"`
	AllFile    string `yaml:"all_file"`
}

// SinglePath returns the snapshot path for a single-document build.
func (c *MemoryStoreConfig) SinglePath() string { return filepath.Join(c.Dir, c.SingleFile) }

// AllPath returns the snapshot path for an all-documents build.
func (c *MemoryStoreConfig) AllPath() string { return filepath.Join(c.Dir, c.AllFile) }

// RedisStoreConfig contains connection details for the redis index backend.
type RedisStoreConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Index    string `yaml:"index"`
	Prefix   string `yaml:"prefix"`
}

// StoreConfig selects and configures the vector index backend.
type StoreConfig struct {
	Type   string             `yaml:"type"` // memory or redis
	Memory *MemoryStoreConfig `yaml:"memory,omitempty"`
	Redis  *RedisStoreConfig  `yaml:"redis,omitempty"`
}

// RetrievalConfig bounds how much context a query pulls in.
type RetrievalConfig struct {
	TopK             int `yaml:"top_k"`
	MaxContextTokens int `yaml:"max_context_tokens"`
}

// LLMConfig configures the completion endpoint used for answers.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Log       LogConfig       `yaml:"log"`
	Data      DataConfig      `yaml:"data"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Store     StoreConfig     `yaml:"store"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	LLM       LLMConfig       `yaml:"llm"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./docchat.yaml first, then ~/.config/docchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/docchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "docchat.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docchat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Log:     LogConfig{Level: "info", Format: "text"},
		Data:    DataConfig{Dir: "data"},
		Chunker: ChunkerConfig{Size: 1000, Overlap: 200},
		Embedder: EmbedderConfig{
			Provider:  "local",
			Model:     "sentence-transformers/all-MiniLM-L6-v2",
			ModelsDir: "models",
			BatchSize: 64,
		},
		Store: StoreConfig{
			Type: "memory",
			Memory: &MemoryStoreConfig{
				Dir:        "vectordb",
				SingleFile: "vector_store.gob",
				AllFile:    "vector_store_all.gob",
			},
			Redis: &RedisStoreConfig{
				Addr:   "localhost:6379",
				Index:  "docchat",
				Prefix: "docchat:chunk:",
			},
		},
		Retrieval: RetrievalConfig{TopK: 10, MaxContextTokens: 3000},
		LLM: LLMConfig{
			BaseURL:     "https://api.mistral.ai/v1",
			Model:       "mistral-large-latest",
			APIKeyEnv:   "MISTRAL_API_KEY",
			Temperature: 0.2,
			MaxTokens:   1024,
		},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = def.Data.Dir
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = def.Chunker.Size
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = def.Chunker.Overlap
	}
	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = def.Embedder.Provider
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = def.Embedder.Model
	}
	if cfg.Embedder.Provider == "local" && cfg.Embedder.ModelsDir == "" {
		cfg.Embedder.ModelsDir = def.Embedder.ModelsDir
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = def.Embedder.BatchSize
	}
	if cfg.Embedder.Provider == "openai" && cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = def.Store.Type
	}
	// Both backends get defaults regardless of the selected type, so a
	// -store flag can switch backends after the config is loaded.
	if cfg.Store.Memory == nil {
		cfg.Store.Memory = def.Store.Memory
	} else {
		if cfg.Store.Memory.Dir == "" {
			cfg.Store.Memory.Dir = def.Store.Memory.Dir
		}
		if cfg.Store.Memory.SingleFile == "" {
			cfg.Store.Memory.SingleFile = def.Store.Memory.SingleFile
		}
		if cfg.Store.Memory.AllFile == "" {
			cfg.Store.Memory.AllFile = def.Store.Memory.AllFile
		}
	}
	if cfg.Store.Redis == nil {
		cfg.Store.Redis = def.Store.Redis
	} else {
		if cfg.Store.Redis.Addr == "" {
			cfg.Store.Redis.Addr = def.Store.Redis.Addr
		}
		if cfg.Store.Redis.Index == "" {
			cfg.Store.Redis.Index = def.Store.Redis.Index
		}
		if cfg.Store.Redis.Prefix == "" {
			cfg.Store.Redis.Prefix = def.Store.Redis.Prefix
		}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.MaxContextTokens == 0 {
		cfg.Retrieval.MaxContextTokens = def.Retrieval.MaxContextTokens
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = def.LLM.BaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = def.LLM.APIKeyEnv
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = def.LLM.Temperature
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
}
