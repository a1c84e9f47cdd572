package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/mcplab/internal/catalog"
	"github.com/flemzord/mcplab/internal/provider"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// state is a step of the loop's state machine:
//
//	init → awaitingModel → (toolCallsPending → executingTools → awaitingModel)* → done
type state int

const (
	stateInit state = iota
	stateAwaitingModel
	stateToolCallsPending
	stateExecutingTools
	stateDone
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateAwaitingModel:
		return "awaiting_model"
	case stateToolCallsPending:
		return "tool_calls_pending"
	case stateExecutingTools:
		return "executing_tools"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Loop drives one conversation with the model per Run call.
// A Loop holds no per-run state and may serve concurrent runs.
type Loop struct {
	source   ToolSource
	turns    *TurnExecutor
	executor *ToolExecutor
	config   LoopConfig
	logger   *slog.Logger
}

// NewLoop creates a Loop that offers the tools of source to p.
func NewLoop(p provider.Provider, source ToolSource, cfg LoopConfig) *Loop {
	cfg = cfg.withDefaults()
	logger := cfg.Logger.With("component", "agent")
	return &Loop{
		source:   source,
		turns:    NewTurnExecutor(p),
		executor: NewToolExecutor(source, logger),
		config:   cfg,
		logger:   logger,
	}
}

// run is the state owned by a single Run call.
type run struct {
	id       string
	history  []provider.LLMMessage
	tools    []provider.ToolDefinition
	names    []string
	pending  []provider.ToolCall
	records  []ToolCallRecord
	rounds   int
	turns    int
	usage    provider.TokenUsage
	reason   StopReason
	leftover []provider.ToolCall
}

func (r *run) response() Response {
	var content string
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].Role == provider.MessageRoleAssistant {
			content = r.history[i].Content
			break
		}
	}
	return Response{
		RunID:      r.id,
		Content:    content,
		Messages:   r.history,
		Tools:      r.names,
		ToolCalls:  r.records,
		Unanswered: r.leftover,
		Usage:      r.usage,
		Turns:      r.turns,
		StopReason: r.reason,
	}
}

// Run executes one agent run for req.Prompt. Discovery and model failures
// end the run with an error wrapping ErrTransport; tool failures are shown
// to the model and never end the run.
func (l *Loop) Run(ctx context.Context, req Request) (Response, error) {
	if l.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.config.Timeout)
		defer cancel()
	}

	r := &run{id: uuid.NewString()}

	ctx, span := tracer.Start(ctx, "agent.run")
	defer span.End()
	span.SetAttributes(attribute.String("agent.run_id", r.id))

	logger := l.logger.With("run_id", r.id)

	st := stateInit
	for st != stateDone {
		var err error
		switch st {
		case stateInit:
			st, err = l.init(ctx, r, req)
		case stateAwaitingModel:
			st, err = l.awaitModel(ctx, r, logger)
		case stateToolCallsPending:
			st = stateExecutingTools
		case stateExecutingTools:
			st = l.executeTools(ctx, r)
		}

		if err != nil {
			r.reason = StopReasonError
			if errors.Is(err, context.DeadlineExceeded) {
				r.reason = StopReasonTimeout
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "agent run failed")
			logger.Error("agent run failed", "state", st.String(), "error", err)
			return r.response(), err
		}
	}

	span.SetAttributes(
		attribute.String("agent.stop_reason", string(r.reason)),
		attribute.Int("agent.turns", r.turns),
		attribute.Int("agent.tool_calls", len(r.records)),
	)
	logger.Info("agent run finished", "stop_reason", r.reason, "turns", r.turns, "tool_calls", len(r.records))
	return r.response(), nil
}

// init discovers and translates the catalog and seeds the history.
func (l *Loop) init(ctx context.Context, r *run, req Request) (state, error) {
	descriptors, err := l.source.ListTools(ctx)
	if err != nil {
		return stateInit, fmt.Errorf("%w: discover tools: %w", ErrTransport, err)
	}
	r.tools = catalog.Translate(descriptors)
	r.names = catalog.Names(descriptors)
	l.logger.Info("discovered tools", "run_id", r.id, "tools", r.names)

	r.history = []provider.LLMMessage{
		{Role: provider.MessageRoleSystem, Content: l.config.SystemPrompt},
		{Role: provider.MessageRoleUser, Content: req.Prompt},
	}
	return stateAwaitingModel, nil
}

// awaitModel runs one turn and decides whether tools must run next.
func (l *Loop) awaitModel(ctx context.Context, r *run, logger *slog.Logger) (state, error) {
	turn, err := l.turns.Execute(ctx, r.history, r.tools)
	if err != nil {
		return stateAwaitingModel, err
	}
	r.turns++
	r.usage = r.usage.Add(turn.Usage)
	r.history = append(r.history, turn.Message)

	calls := turn.Message.ToolCalls
	switch {
	case len(calls) == 0:
		r.reason = StopReasonComplete
		return stateDone, nil
	case r.rounds >= l.config.ToolRounds:
		logger.Warn("tool round limit reached, further tool calls not executed",
			"rounds", r.rounds, "requested", len(calls))
		r.leftover = calls
		r.reason = StopReasonRoundLimit
		return stateDone, nil
	default:
		r.pending = calls
		return stateToolCallsPending, nil
	}
}

// executeTools resolves every pending call before the next model turn.
func (l *Loop) executeTools(ctx context.Context, r *run) state {
	records := l.executor.Execute(ctx, r.pending)
	for _, rec := range records {
		r.history = append(r.history, provider.LLMMessage{
			Role:       provider.MessageRoleTool,
			Content:    rec.Result.content(),
			Name:       rec.Name,
			ToolCallID: rec.ID,
		})
	}
	r.records = append(r.records, records...)
	r.pending = nil
	r.rounds++
	return stateAwaitingModel
}
