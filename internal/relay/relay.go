// Package relay runs one chat turn for an agent: it assembles the context from the
// agent prompt and recent history, talks to the completion provider (at most two
// rounds when the model asks for tools), and persists the user message and the
// final answer together.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"agentrelay/internal/llm"
	"agentrelay/internal/metrics"
	"agentrelay/internal/store"
)

var ErrEmptyMessage = errors.New("message is required")

const (
	DefaultHistoryLimit = 20
	DefaultToolTimeout  = 10 * time.Second
)

// Store is the persistence the relay needs.
type Store interface {
	RecentChatLogs(ctx context.Context, agentID int64, n int) ([]store.ChatLog, error)
	AgentTools(ctx context.Context, agentID int64) ([]store.Tool, error)
	AppendChatTurn(ctx context.Context, agentID int64, userMessage, answer string) error
}

type Providers interface {
	Get(provider string) llm.Completer
}

type Options struct {
	HistoryLimit int
	ToolTimeout  time.Duration
	Executor     Executor
}

type Relay struct {
	store        Store
	providers    Providers
	exec         Executor
	historyLimit int
	toolTimeout  time.Duration

	locks agentLocks
}

func New(st Store, providers Providers, opts Options) *Relay {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.ToolTimeout <= 0 {
		opts.ToolTimeout = DefaultToolTimeout
	}
	if opts.Executor == nil {
		opts.Executor = SimulatedExecutor{}
	}
	return &Relay{
		store:        st,
		providers:    providers,
		exec:         opts.Executor,
		historyLimit: opts.HistoryLimit,
		toolTimeout:  opts.ToolTimeout,
	}
}

// Turn runs one chat turn and returns the final assistant answer. Nothing is
// persisted unless every step succeeds.
func (r *Relay) Turn(ctx context.Context, agent store.Agent, message string) (answer string, err error) {
	defer func() { metrics.RecordChatTurn(err) }()

	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	unlock, err := r.locks.lock(ctx, agent.ID)
	if err != nil {
		return "", err
	}
	defer unlock()

	history, err := r.store.RecentChatLogs(ctx, agent.ID, r.historyLimit)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	tools, err := r.store.AgentTools(ctx, agent.ID)
	if err != nil {
		return "", fmt.Errorf("load tools: %w", err)
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: agent.Prompt})
	for _, h := range history {
		msgs = append(msgs, llm.Message{Role: h.Role, Content: h.Message})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	completer := r.providers.Get(agent.Provider)
	req := llm.Request{
		Model:       agent.Model,
		Messages:    msgs,
		Tools:       offeredTools(tools),
		Temperature: agent.Temperature,
		MaxTokens:   agent.MaxTokens,
	}

	first, err := r.complete(ctx, completer, agent, req)
	if err != nil {
		return "", err
	}

	answer = first.Content
	if len(first.ToolCalls) > 0 {
		req.Messages = append(req.Messages, llm.Message{
			Role:      llm.RoleAssistant,
			ToolCalls: first.ToolCalls,
		})
		for _, tc := range first.ToolCalls {
			metrics.RecordToolCall(tc.Name)
			out := execute(ctx, r.exec, Call{
				ID:        tc.ID,
				Name:      tc.Name,
				Arguments: decodeArguments(tc.Arguments),
			}, r.toolTimeout)
			req.Messages = append(req.Messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    out,
				ToolCallID: tc.ID,
			})
		}
		req.Tools = nil

		second, err := r.complete(ctx, completer, agent, req)
		if err != nil {
			return "", err
		}
		answer = second.Content
	}

	if err := r.store.AppendChatTurn(ctx, agent.ID, message, answer); err != nil {
		return "", fmt.Errorf("save chat turn: %w", err)
	}
	return answer, nil
}

func (r *Relay) complete(ctx context.Context, c llm.Completer, agent store.Agent, req llm.Request) (llm.Response, error) {
	resp, err := c.Complete(ctx, req)
	metrics.RecordLLMRequest(agent.Provider, agent.Model, err)
	if err != nil {
		return llm.Response{}, fmt.Errorf("completion: %w", err)
	}
	return resp, nil
}

// offeredTools keeps only tools that carry both a description and a parameter schema.
func offeredTools(tools []store.Tool) []llm.ToolDef {
	var out []llm.ToolDef
	for _, t := range tools {
		if strings.TrimSpace(t.Description) == "" || len(t.Parameters) == 0 {
			continue
		}
		out = append(out, llm.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return out
}

func decodeArguments(raw string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

// agentLocks serializes turns per agent within this process. A waiter gives up when
// its context ends.
type agentLocks struct {
	mu    sync.Mutex
	locks map[int64]*agentLock
}

type agentLock struct {
	sem  chan struct{}
	refs int
}

func (l *agentLocks) lock(ctx context.Context, agentID int64) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = map[int64]*agentLock{}
	}
	al := l.locks[agentID]
	if al == nil {
		al = &agentLock{sem: make(chan struct{}, 1)}
		l.locks[agentID] = al
	}
	al.refs++
	l.mu.Unlock()

	release := func() {
		l.mu.Lock()
		al.refs--
		if al.refs == 0 {
			delete(l.locks, agentID)
		}
		l.mu.Unlock()
	}

	select {
	case al.sem <- struct{}{}:
		return func() {
			<-al.sem
			release()
		}, nil
	case <-ctx.Done():
		release()
		return nil, fmt.Errorf("wait for agent %d: %w", agentID, ctx.Err())
	}
}
