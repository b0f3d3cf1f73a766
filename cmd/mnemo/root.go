package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/mnemoai/mnemo-go-sdk/checkpoint"
	"github.com/mnemoai/mnemo-go-sdk/engine"
	"github.com/mnemoai/mnemo-go-sdk/llm"
	"github.com/mnemoai/mnemo-go-sdk/memory"
	"github.com/mnemoai/mnemo-go-sdk/memory/embedder/cache"
	"github.com/mnemoai/mnemo-go-sdk/memory/embedder/mock"
	"github.com/mnemoai/mnemo-go-sdk/memory/embedder/openai"
	chromemstore "github.com/mnemoai/mnemo-go-sdk/memory/store/chromem"
	"github.com/mnemoai/mnemo-go-sdk/reflection"
	"github.com/mnemoai/mnemo-go-sdk/tools"
)

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "mnemo",
		Short:         "Tool-calling agent with long-term memory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config")

	cmd.AddCommand(chatCmd(&configPath))
	cmd.AddCommand(serveCmd(&configPath))
	return cmd
}

// agentStack is everything the chat and serve commands share.
type agentStack struct {
	engine  *engine.Engine
	cleanup func()
}

func buildStack(cfg Config) (*agentStack, error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	cached, err := cache.New(embedder, nil)
	if err != nil {
		return nil, err
	}

	var storeOpts []chromemstore.Option
	if cfg.Memory.Path != "" {
		storeOpts = append(storeOpts, chromemstore.WithPersistence(cfg.Memory.Path))
	}
	if cfg.Memory.Collection != "" {
		storeOpts = append(storeOpts, chromemstore.WithCollectionName(cfg.Memory.Collection))
	}
	store, err := chromemstore.New(cached, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	var corpusOpts []chromemstore.Option
	if cfg.Corpus.Path != "" {
		corpusOpts = append(corpusOpts, chromemstore.WithPersistence(cfg.Corpus.Path))
	}
	corpus, err := chromemstore.NewCorpus(cached, corpusOpts...)
	if err != nil {
		return nil, fmt.Errorf("open knowledge corpus: %w", err)
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterDefaults(registry, store, corpus, tools.WebSearchConfig{
		APIKey: cfg.Search.APIKey,
		CX:     cfg.Search.CX,
	}); err != nil {
		return nil, err
	}

	client := anthropic.NewClient()

	reasonerOpts := []llm.ReasonerOption{llm.WithMaxTokens(cfg.MaxTokens)}
	if cfg.Model != "" {
		reasonerOpts = append(reasonerOpts, llm.WithModel(anthropic.Model(cfg.Model)))
	}
	reasoner := llm.NewReasoner(&client, reasonerOpts...)
	judge := llm.NewJudge(&client, reasonerOpts...)

	reflector := reflection.New(judge, store)

	var threads engine.ThreadStore
	if cfg.Checkpoint.Path != "" {
		threads, err = checkpoint.NewSQLiteStore(cfg.Checkpoint.Path)
		if err != nil {
			return nil, err
		}
	} else {
		threads = checkpoint.NewMemoryStore()
	}

	eng := engine.New(reasoner, registry,
		engine.WithConfig(engine.Config{
			MaxCycles:    cfg.MaxCycles,
			SystemPrompt: cfg.SystemPrompt,
		}),
		engine.WithReflection(reflector),
		engine.WithThreadStore(threads),
	)

	return &agentStack{
		engine: eng,
		cleanup: func() {
			cached.Close()
			_ = store.Close()
			_ = threads.Close()
		},
	}, nil
}

func buildEmbedder(cfg Config) (memory.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "", "mock":
		return mock.New(), nil
	case "openai":
		if cfg.Embedding.APIKey == "" {
			return nil, fmt.Errorf("embedding provider %q requires OPENAI_API_KEY", cfg.Embedding.Provider)
		}
		return openai.New(cfg.Embedding.APIKey), nil
	case "compat":
		if cfg.Embedding.BaseURL == "" || cfg.Embedding.Model == "" || cfg.Embedding.Dimensions == 0 {
			return nil, fmt.Errorf("embedding provider compat requires base_url, model, and dimensions")
		}
		return openai.NewCompat(cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}
