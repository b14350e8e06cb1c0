// Package chat keeps the assistant conversation and forwards messages to
// the backend /chat endpoint.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"trading-analytics-go/internal/backend"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// MsgProcessingError is shown when the backend answers without a reply.
	MsgProcessingError = "Sorry, I encountered an error processing your request."
	// MsgConnectionError is shown when the backend cannot be reached.
	MsgConnectionError = "Sorry, I couldn't connect to the server. Please try again."
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a message is already being answered")
)

// tradeWriters are the tool names after which cached trade views are stale.
var tradeWriters = map[string]bool{
	"write_trade":        true,
	"write_trades_batch": true,
	"update_trade":       true,
}

// Suggestions are the starter prompts shown on an empty conversation.
var Suggestions = []string{
	"Show my recent trades",
	"What's my win rate?",
	"Find my best performing trades",
	"Export all winning trades to CSV",
}

// Sender is the part of the backend the session needs.
type Sender interface {
	Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
}

// Message is one conversation entry.
type Message struct {
	Role      string             `json:"role"`
	Content   string             `json:"content"`
	ToolCalls []backend.ToolCall `json:"tool_calls,omitempty"`
	// Failed marks a reply standing in for a backend failure.
	Failed bool `json:"failed,omitempty"`
}

// Session is one conversation. Only one message is in flight at a time.
type Session struct {
	api             Sender
	logger          *zap.Logger
	onTradesUpdated func()

	mu       sync.Mutex
	messages []Message
	busy     bool
}

// NewSession creates an empty conversation. onTradesUpdated, if set, is
// called after the assistant modified trades.
func NewSession(api Sender, logger *zap.Logger, onTradesUpdated func()) *Session {
	return &Session{
		api:             api,
		logger:          logger.Named("chat"),
		onTradesUpdated: onTradesUpdated,
	}
}

// Send appends the user message, asks the backend and appends the reply.
// Backend failures become an assistant message rather than an error; the
// returned error is only for input the session refused.
func (s *Session) Send(ctx context.Context, account, input string) (Message, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	s.busy = true
	history := make([]backend.ChatMessage, len(s.messages))
	for i, m := range s.messages {
		history[i] = backend.ChatMessage{Role: m.Role, Content: m.Content}
	}
	s.messages = append(s.messages, Message{Role: RoleUser, Content: text})
	s.mu.Unlock()

	reply, refresh := s.ask(ctx, backend.ChatRequest{
		Message:             text,
		ActiveAccount:       account,
		ConversationHistory: history,
	})

	s.mu.Lock()
	s.messages = append(s.messages, reply)
	s.busy = false
	s.mu.Unlock()

	if refresh && s.onTradesUpdated != nil {
		s.onTradesUpdated()
	}
	return reply, nil
}

func (s *Session) ask(ctx context.Context, req backend.ChatRequest) (Message, bool) {
	res, err := s.api.Chat(ctx, req)
	switch {
	case err == nil:
		return Message{Role: RoleAssistant, Content: res.Response, ToolCalls: res.ToolCalls}, modifiesTrades(res.ToolCalls)
	case backend.Malformed(err):
		s.logger.Warn("Chat reply unusable", zap.Error(err))
		return Message{Role: RoleAssistant, Content: MsgProcessingError, Failed: true}, false
	default:
		s.logger.Error("Chat request failed", zap.Error(err))
		return Message{Role: RoleAssistant, Content: MsgConnectionError, Failed: true}, false
	}
}

func modifiesTrades(calls []backend.ToolCall) bool {
	for _, c := range calls {
		if tradeWriters[c.Name] {
			return true
		}
	}
	return false
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Busy reports whether a reply is pending.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Reset clears the conversation.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
