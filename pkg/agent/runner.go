package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/ctx/internal/observability"
	"github.com/harun/ctx/internal/tracing"
	"github.com/harun/ctx/pkg/toolexecutor"
	"github.com/rs/zerolog"
)

const (
	// MaxIterations bounds the completion calls of one run
	MaxIterations = 10

	DefaultModel               = "claude-haiku-4-5-20251001"
	DefaultMaxTokens     int64 = 1024
	DefaultContextWindow int64 = 200000
	DefaultRetryDelay          = time.Second

	contextWarningRatio = 0.75

	// FallbackReply is returned when the model ends its turn without text
	FallbackReply = "Done, but I didn't have anything to say."
)

// ToolExecutor runs tool calls for one conversation
type ToolExecutor interface {
	Execute(ctx context.Context, name string, input map[string]interface{}) toolexecutor.Outcome
}

// Config holds runner configuration
type Config struct {
	Client        CompletionClient
	Catalog       *toolexecutor.Catalog
	Model         string
	MaxTokens     int64
	ContextWindow int64
	RetryDelay    time.Duration
	Now           func() time.Time
	Logger        zerolog.Logger
}

// Runner drives the bounded completion and tool loop
type Runner struct {
	client        CompletionClient
	tools         []ToolSpec
	model         string
	maxTokens     int64
	contextWindow int64
	retryDelay    time.Duration
	now           func() time.Time
	logger        zerolog.Logger
}

// NewRunner creates a new agent runner
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = toolexecutor.DefaultCatalog()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = DefaultContextWindow
	}
	// go-retry's constant backoff rejects non-positive delays
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	defs := cfg.Catalog.Tools()
	tools := make([]ToolSpec, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: cfg.Catalog.InputSchema(def.Name),
		})
	}

	return &Runner{
		client:        cfg.Client,
		tools:         tools,
		model:         cfg.Model,
		maxTokens:     cfg.MaxTokens,
		contextWindow: cfg.ContextWindow,
		retryDelay:    cfg.RetryDelay,
		now:           cfg.Now,
		logger:        cfg.Logger.With().Str("component", "agent").Logger(),
	}, nil
}

// runStats is reported when a run terminates
type runStats struct {
	iterations int
	usage      TokenUsage
	warned     bool
}

// Run turns one user message into a reply. The returned error is always *Error.
func (r *Runner) Run(ctx context.Context, message string, tools ToolExecutor) (string, error) {
	if tracing.GetRunID(ctx) == "" {
		ctx = tracing.NewAgentRunContext(ctx)
	}
	logger := tracing.LoggerFromContext(ctx, r.logger)
	start := time.Now()

	stats := &runStats{}
	reply, err := r.loop(ctx, message, tools, stats, logger)

	outcome := "success"
	event := logger.Info()
	if err != nil {
		outcome = err.Code
		event = logger.Error().Err(err)
	}
	event.
		Str("outcome", outcome).
		Int("iterations", stats.iterations).
		Int64("input_tokens", stats.usage.InputTokens).
		Int64("output_tokens", stats.usage.OutputTokens).
		Dur("duration", time.Since(start)).
		Msg("Agent run finished")

	observability.RecordAgentRun(outcome, stats.iterations, time.Since(start))
	observability.RecordTokens(stats.usage.InputTokens, stats.usage.OutputTokens)

	if err != nil {
		return "", err
	}
	return reply, nil
}

func (r *Runner) loop(ctx context.Context, message string, tools ToolExecutor, stats *runStats, logger zerolog.Logger) (string, *Error) {
	systemPrompt := BuildSystemPrompt(r.now())
	turns := []Turn{{Role: RoleUser, Blocks: []ContentBlock{NewTextBlock(message)}}}

	for stats.iterations < MaxIterations {
		stats.iterations++

		req := CompletionRequest{
			Model:        r.model,
			MaxTokens:    r.maxTokens,
			SystemPrompt: systemPrompt,
			Turns:        append([]Turn(nil), turns...),
			Tools:        r.tools,
		}

		completion, err := r.callWithRetry(ctx, req, logger)
		if err != nil {
			return "", &Error{Code: CodeAPI, Message: "Completion request failed", Err: err}
		}

		stats.usage.Add(completion.Usage)
		r.checkContextBudget(stats, logger)

		turns = append(turns, Turn{Role: RoleAssistant, Blocks: completion.Blocks})

		switch completion.StopReason {
		case StopEndTurn:
			reply := completion.Text()
			if reply == "" {
				reply = FallbackReply
			}
			return reply, nil

		case StopToolUse:
			calls := completion.ToolCalls()
			if len(calls) == 0 {
				return "", &Error{Code: CodeAgent, Message: "Model stopped for tool use without requesting a tool"}
			}

			results := make([]ContentBlock, 0, len(calls))
			for _, call := range calls {
				logger.Debug().
					Int("iteration", stats.iterations).
					Str("tool", call.Name).
					Str("tool_use_id", call.ID).
					Msg("Executing tool call")

				outcome := tools.Execute(ctx, call.Name, call.Parameters)
				if outcome.Kind == toolexecutor.OutcomeConfirmationRequired {
					return outcome.Message, nil
				}
				results = append(results, NewToolResultBlock(call.ID, outcome.Message))
			}
			turns = append(turns, Turn{Role: RoleUser, Blocks: results})

		default:
			return "", &Error{Code: CodeAgent, Message: fmt.Sprintf("Unexpected stop reason: %s", completion.StopReason)}
		}
	}

	return "", &Error{Code: CodeLoopLimit, Message: fmt.Sprintf("Agent exceeded %d iterations", MaxIterations)}
}

// checkContextBudget warns once per run when usage crosses the warning ratio
func (r *Runner) checkContextBudget(stats *runStats, logger zerolog.Logger) {
	if stats.warned {
		return
	}
	threshold := int64(float64(r.contextWindow) * contextWarningRatio)
	if stats.usage.Total() > threshold {
		stats.warned = true
		logger.Warn().
			Int64("tokens", stats.usage.Total()).
			Int64("context_window", r.contextWindow).
			Msg("Token usage crossed 75% of the context window")
	}
}
