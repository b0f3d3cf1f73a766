package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the mnemo CLI configuration. Every field has a working default;
// secrets come from the environment and override the file.
type Config struct {
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
	MaxCycles int    `yaml:"max_cycles"`

	SystemPrompt string `yaml:"system_prompt"`

	Memory struct {
		// Path persists the vector database on disk; empty means in-memory.
		Path       string `yaml:"path"`
		Collection string `yaml:"collection"`
	} `yaml:"memory"`

	Corpus struct {
		Path string `yaml:"path"`
	} `yaml:"corpus"`

	Embedding struct {
		// Provider is "mock", "openai", or "compat".
		Provider   string `yaml:"provider"`
		BaseURL    string `yaml:"base_url"`
		Model      string `yaml:"model"`
		Dimensions int    `yaml:"dimensions"`
		APIKey     string `yaml:"api_key"`
	} `yaml:"embedding"`

	Search struct {
		APIKey string `yaml:"api_key"`
		CX     string `yaml:"cx"`
	} `yaml:"search"`

	Checkpoint struct {
		// Path is the SQLite thread database; empty keeps threads in memory.
		Path string `yaml:"path"`
	} `yaml:"checkpoint"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.MaxTokens = 1024
	cfg.MaxCycles = 6
	cfg.SystemPrompt = "You are a helpful assistant with tools and long-term memory. " +
		"Consult read_memory when the user refers to past sessions; answer directly when no tool is needed."
	cfg.Embedding.Provider = "mock"
	cfg.Server.Addr = ":8080"
	return cfg
}

// loadConfig reads the YAML file at path (optional) and applies environment
// overrides: OPENAI_API_KEY, GOOGLE_API_KEY, GOOGLE_CX. The Anthropic key is
// read by the SDK itself from ANTHROPIC_API_KEY.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Embedding.APIKey = key
		if cfg.Embedding.Provider == "mock" {
			cfg.Embedding.Provider = "openai"
		}
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		cfg.Search.APIKey = key
	}
	if cx := os.Getenv("GOOGLE_CX"); cx != "" {
		cfg.Search.CX = cx
	}
	return cfg, nil
}
