package daemon

import (
	"fmt"

	"github.com/harun/ctx/internal/config"
	"github.com/harun/ctx/pkg/agent"
	"github.com/harun/ctx/pkg/obsidian"
	"github.com/harun/ctx/pkg/toolexecutor"
	"github.com/harun/ctx/pkg/trello"
	"github.com/rs/zerolog"
)

// Core is the message-handling stack shared by the daemon and the CLI
type Core struct {
	Tasks     *trello.Client
	Vault     *obsidian.Vault
	Approvals *toolexecutor.ApprovalStore
	Executor  *toolexecutor.Executor
	Runner    *agent.Runner
	FrontDoor *FrontDoor
}

var newCompletionClient = func(cfg config.AnthropicConfig) agent.CompletionClient {
	return agent.NewAnthropicClient(cfg.APIKey)
}

// BuildCore wires the task tracker, vault, tool executor, agent runner and front door
func BuildCore(cfg *config.Config, logger zerolog.Logger) (*Core, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	return BuildCoreWithClient(cfg, newCompletionClient(cfg.Anthropic), logger)
}

// BuildCoreWithClient is BuildCore with an explicit completion client
func BuildCoreWithClient(cfg *config.Config, client agent.CompletionClient, logger zerolog.Logger) (*Core, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if client == nil {
		return nil, fmt.Errorf("completion client is required")
	}

	tasks, err := trello.New(trello.Config{
		BaseURL: cfg.Trello.BaseURL,
		APIKey:  cfg.Trello.APIKey,
		Token:   cfg.Trello.Token,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create trello client: %w", err)
	}

	vault, err := obsidian.New(cfg.Vault.Path, obsidian.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}

	catalog := toolexecutor.DefaultCatalog()
	approvals := toolexecutor.NewApprovalStore()

	executor, err := toolexecutor.New(toolexecutor.Config{
		Catalog:       catalog,
		Tasks:         tasks,
		Notes:         vault,
		Approvals:     approvals,
		DefaultListID: cfg.Trello.DefaultListID,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tool executor: %w", err)
	}

	runner, err := agent.NewRunner(agent.Config{
		Client:        client,
		Catalog:       catalog,
		Model:         cfg.Anthropic.Model,
		MaxTokens:     int64(cfg.Anthropic.MaxTokens),
		ContextWindow: int64(cfg.Anthropic.ContextWindow),
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent runner: %w", err)
	}

	frontDoor, err := NewFrontDoor(approvals, executor, runner, logger)
	if err != nil {
		return nil, err
	}

	return &Core{
		Tasks:     tasks,
		Vault:     vault,
		Approvals: approvals,
		Executor:  executor,
		Runner:    runner,
		FrontDoor: frontDoor,
	}, nil
}
