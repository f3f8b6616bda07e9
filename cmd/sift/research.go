package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sift-dev/sift/pkg/agent"
	"github.com/sift-dev/sift/pkg/docindex"
	"github.com/sift-dev/sift/pkg/embedders"
	"github.com/sift-dev/sift/pkg/entity"
	"github.com/sift-dev/sift/pkg/infer"
	"github.com/sift-dev/sift/pkg/llms"
	"github.com/sift-dev/sift/pkg/render"
	"github.com/sift-dev/sift/pkg/tools"
	"github.com/sift-dev/sift/pkg/utils"
	"github.com/sift-dev/sift/pkg/vector"
)

// ResearchCmd runs one research task end to end.
type ResearchCmd struct {
	Prompt string `help:"What to research." required:""`
	URL    string `help:"Resource URL the research starts from."`
	Types  string `help:"Path to a JSON file with the allowed entity type constraints." required:"" type:"path"`

	// Zero-config overrides
	Provider string `help:"LLM provider (anthropic, openai)."`
	Model    string `help:"Model name."`
	APIKey   string `name:"api-key" help:"API key (defaults to environment variable)."`

	CacheDir  string `name:"cache-dir" help:"Document index cache directory."`
	Snapshot  string `help:"Write the task state to this file after every round." type:"path"`
	MaxRounds int    `name:"max-rounds" help:"Round budget for the task (0 = config default)."`
	Output    string `short:"o" help:"Write the result JSON to this file instead of stdout." type:"path"`
}

func (c *ResearchCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	if c.Provider != "" {
		cfg.LLM.Type = c.Provider
		cfg.LLM.Model = ""
		cfg.LLM.APIKey = ""
		cfg.LLM.SetDefaults()
	}
	if c.Model != "" {
		cfg.LLM.Model = c.Model
	}
	if c.APIKey != "" {
		cfg.LLM.APIKey = c.APIKey
	}
	if c.CacheDir != "" {
		cfg.Cache.Dir = c.CacheDir
	}
	if c.MaxRounds > 0 {
		cfg.Agent.MaxRounds = c.MaxRounds
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	constraints, err := loadConstraints(c.Types)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	provider, err := llms.NewProvider(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}
	defer provider.Close()

	embedder, err := embedders.NewEmbedder(&cfg.Embedder)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	defer embedder.Close()

	vectors, err := vector.NewProvider(&cfg.Vector, cfg.Cache.Dir)
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	defer vectors.Close()

	cache, err := docindex.NewCache(&cfg.Cache, embedder, vectors)
	if err != nil {
		return fmt.Errorf("failed to create document cache: %w", err)
	}

	counter, err := utils.NewTokenCounter(cfg.LLM.Model)
	if err != nil {
		slog.Warn("token counting unavailable, using estimates", "error", err)
	}

	dispatcher := tools.NewLocalDispatcher(
		render.NewChromedpRenderer(&cfg.Render),
		render.NewProber(time.Duration(cfg.Render.Timeout)*time.Second),
		infer.NewLLMInferrer(provider),
		docindex.NewQueryEngine(cache, cfg.Cache.TopK),
		constraints,
		time.Duration(cfg.Agent.CallTimeout)*time.Second,
		slog.Default(),
	)

	var snapshots agent.Snapshotter
	snapshotPath := c.Snapshot
	if snapshotPath == "" {
		snapshotPath = cfg.Agent.SnapshotPath
	}
	if snapshotPath != "" {
		snapshots = agent.NewFileSnapshotter(snapshotPath)
	}

	controller := agent.NewController(
		provider,
		dispatcher,
		agent.NewAssembler(counter, cfg.Agent.ContextLimit),
		snapshots,
		cfg.Agent.MaxRounds,
		slog.Default(),
	)

	result, err := controller.Run(ctx, &agent.Task{
		Prompt:          c.Prompt,
		ResourceURL:     c.URL,
		TypeConstraints: constraints,
	})
	if err != nil {
		return err
	}

	return writeResult(result, c.Output)
}

// loadConstraints reads the allowed entity types from a JSON file holding
// either an array of constraints or an object with an entityTypes field.
func loadConstraints(path string) ([]entity.TypeConstraint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read types file: %w", err)
	}

	var constraints []entity.TypeConstraint
	if err := json.Unmarshal(data, &constraints); err != nil {
		var wrapper struct {
			EntityTypes []entity.TypeConstraint `json:"entityTypes"`
		}
		if err2 := json.Unmarshal(data, &wrapper); err2 != nil || len(wrapper.EntityTypes) == 0 {
			return nil, fmt.Errorf("types file is not a constraint array: %w", err)
		}
		constraints = wrapper.EntityTypes
	}

	for i := range constraints {
		if err := constraints[i].Validate(); err != nil {
			return nil, fmt.Errorf("types file entry %d: %w", i, err)
		}
	}
	return constraints, nil
}

func writeResult(result *agent.Result, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	slog.Info("result written", "path", path)
	return nil
}
