// Package assistant wires the agent loop, the tool registry, and the chat
// history into the conversational movie-memory service.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yengalvez/a-movies/internal/agent"
	"github.com/yengalvez/a-movies/internal/provider"
	"github.com/yengalvez/a-movies/internal/session"
	"github.com/yengalvez/a-movies/internal/tool"
)

// ErrEmptyMessage is returned when a chat request carries no message.
var ErrEmptyMessage = errors.New("assistant: message must not be empty")

// defaultHistoryWindow is how many stored messages are replayed into the
// model's context per turn.
const defaultHistoryWindow = 20

// defaultSystemPrompt frames the model as the movie-memory keeper.
const defaultSystemPrompt = `You are a movie memory assistant. You keep track of which movies the user has seen, liked, and wants to watch.

Rules:
- When the user mentions watching a movie, store it with memory_write before replying.
- When asked what the user has seen or wants to see, check memory_search first; do not guess.
- Use trakt_call for anything touching the user's Trakt account, and only with a concrete reason.
- Zero search results means the memory does not exist; say so plainly.
- Keep replies short and conversational.`

// Config holds assistant settings.
type Config struct {
	SystemPrompt  string
	HistoryWindow int
	Loop          agent.LoopConfig
}

func (c *Config) defaults() {
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaultSystemPrompt
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = defaultHistoryWindow
	}
}

// Assistant answers chat messages, calling tools as needed and persisting
// the conversation per session.
type Assistant struct {
	loop     *agent.Loop
	registry *tool.Registry
	sessions *session.Store
	config   Config
	logger   *slog.Logger
}

// New creates an Assistant. The registry must already hold the tools the
// model may call.
func New(p provider.Provider, registry *tool.Registry, sessions *session.Store, cfg Config, logger *slog.Logger) *Assistant {
	cfg.defaults()
	executor := agent.NewToolExecutor(registry, cfg.Loop.ToolTimeout)
	return &Assistant{
		loop:     agent.NewLoop(p, executor, cfg.Loop),
		registry: registry,
		sessions: sessions,
		config:   cfg,
		logger:   logger,
	}
}

// Reply is the outcome of one chat turn.
type Reply struct {
	SessionID string                 `json:"session_id"`
	Content   string                 `json:"reply"`
	ToolCalls []agent.ToolCallRecord `json:"-"`
	Usage     provider.TokenUsage    `json:"usage"`
}

// toolDefinitions converts the registry's schemas into provider tool
// definitions for the model.
func (a *Assistant) toolDefinitions() []provider.ToolDefinition {
	schemas := a.registry.Schemas()
	defs := make([]provider.ToolDefinition, 0, len(schemas))
	for _, s := range schemas {
		defs = append(defs, provider.ToolDefinition{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Schema,
		})
	}
	return defs
}

// prepare validates the message, resolves the session, and assembles the
// agent request from stored history plus the new user turn.
func (a *Assistant) prepare(ctx context.Context, sessionID, message string) (string, agent.Request, error) {
	if message == "" {
		return "", agent.Request{}, ErrEmptyMessage
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history, err := a.sessions.GetRecent(ctx, sessionID, a.config.HistoryWindow)
	if err != nil {
		return "", agent.Request{}, fmt.Errorf("assistant: load history: %w", err)
	}

	userMsg := provider.LLMMessage{Role: provider.MessageRoleUser, Content: message}
	if err := a.sessions.Append(ctx, sessionID, userMsg); err != nil {
		return "", agent.Request{}, fmt.Errorf("assistant: persist user message: %w", err)
	}

	return sessionID, agent.Request{
		Messages:     append(history, userMsg),
		SystemPrompt: a.config.SystemPrompt,
		Tools:        a.toolDefinitions(),
	}, nil
}

// persistReply stores the assistant's final message. Persistence failures
// are logged, not surfaced: the reply already happened.
func (a *Assistant) persistReply(ctx context.Context, sessionID, content string) {
	if content == "" {
		return
	}
	msg := provider.LLMMessage{Role: provider.MessageRoleAssistant, Content: content}
	if err := a.sessions.Append(ctx, sessionID, msg); err != nil {
		a.logger.Error("failed to persist assistant reply",
			"session_id", sessionID,
			"error", err,
		)
	}
}

// Chat runs one synchronous conversation turn.
func (a *Assistant) Chat(ctx context.Context, sessionID, message string) (Reply, error) {
	sessionID, req, err := a.prepare(ctx, sessionID, message)
	if err != nil {
		return Reply{}, err
	}

	start := time.Now()
	resp, err := a.loop.Run(ctx, req)
	if err != nil {
		a.logger.Error("agent loop failed",
			"session_id", sessionID,
			"stop_reason", string(resp.StopReason),
			"error", err,
		)
		return Reply{SessionID: sessionID}, err
	}

	a.logger.Info("chat turn complete",
		"session_id", sessionID,
		"iterations", resp.Iterations,
		"tool_calls", len(resp.ToolCalls),
		"tokens", resp.TotalUsage.TotalTokens,
		"duration", time.Since(start),
	)

	a.persistReply(ctx, sessionID, resp.Content)

	return Reply{
		SessionID: sessionID,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
		Usage:     resp.TotalUsage,
	}, nil
}

// ChatStream runs one conversation turn, streaming agent events. The
// returned session ID is final even if the stream later fails. The final
// assistant reply is persisted when the done event arrives.
func (a *Assistant) ChatStream(ctx context.Context, sessionID, message string) (string, <-chan agent.StreamEvent, error) {
	sessionID, req, err := a.prepare(ctx, sessionID, message)
	if err != nil {
		return "", nil, err
	}

	events, err := a.loop.RunStream(ctx, req)
	if err != nil {
		return sessionID, nil, err
	}

	out := make(chan agent.StreamEvent, 16)
	go func() {
		defer close(out)
		for ev := range events {
			if ev.Type == agent.StreamEventDone && ev.Final != nil {
				a.persistReply(ctx, sessionID, ev.Final.Content)
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return sessionID, out, nil
}
