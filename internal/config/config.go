// Package config provides configuration loading for the Neural Budget server.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	AI      AIConfig      `yaml:"ai"`
	Chatbot ChatbotConfig `yaml:"chatbot"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig holds Firestore settings.
type StoreConfig struct {
	ProjectID string `yaml:"project_id"`
}

// AIConfig holds Gemini model settings.
type AIConfig struct {
	EmbeddingModel  string  `yaml:"embedding_model"`
	Model           string  `yaml:"model"`
	FallbackModel   string  `yaml:"fallback_model"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
}

// ChatbotConfig holds retrieval and index settings.
type ChatbotConfig struct {
	TopK      int    `yaml:"top_k"`
	IndexPath string `yaml:"index_path"`
}

// Defaults mirror the production deployment. Model names can be overridden
// per environment without a rebuild.
const (
	DefaultEmbeddingModel  = "gemini-embedding-001"
	DefaultModel           = "gemini-2.5-flash"
	DefaultFallbackModel   = "gemini-2.0-flash"
	DefaultTemperature     = 0.1
	DefaultMaxOutputTokens = 512
	DefaultTimeoutSeconds  = 60
	DefaultTopK            = 20
	DefaultIndexPath       = "data/transaction_index.gob"
	DefaultPort            = 8080
)

// Load reads the optional .env file, then the YAML config at path (if any),
// applies environment overrides and defaults. A missing config file is not
// an error; a malformed one is.
func Load(path string) (*Config, error) {
	// .env is a developer convenience; absence is fine.
	_ = godotenv.Load()

	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	ApplyDefaults(cfg)

	if path != "" {
		cfg.Chatbot.IndexPath = expandPath(cfg.Chatbot.IndexPath, filepath.Dir(path))
	}

	return cfg, nil
}

// ApplyDefaults fills zero-valued fields with production defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = DefaultModel
	}
	if cfg.AI.FallbackModel == "" {
		cfg.AI.FallbackModel = DefaultFallbackModel
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = DefaultTemperature
	}
	if cfg.AI.MaxOutputTokens == 0 {
		cfg.AI.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.Chatbot.TopK == 0 {
		cfg.Chatbot.TopK = DefaultTopK
	}
	if cfg.Chatbot.IndexPath == "" {
		cfg.Chatbot.IndexPath = DefaultIndexPath
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FIRESTORE_PROJECT_ID"); v != "" {
		cfg.Store.ProjectID = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("GEMINI_FALLBACK_MODEL"); v != "" {
		cfg.AI.FallbackModel = v
	}
	if v := os.Getenv("INDEX_PATH"); v != "" {
		cfg.Chatbot.IndexPath = v
	}
}

// expandPath resolves relative paths against the config file's directory.
func expandPath(p, baseDir string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
