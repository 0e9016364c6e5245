package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"hospital-ai-desk/internal/llm"
	"hospital-ai-desk/pkg"
)

var (
	ErrEmptyMessage  = errors.New("empty message")
	ErrSendPending   = errors.New("a message is already being answered")
	ErrSessionClosed = errors.New("chat session closed")
)

// ChatSessionController holds one chat conversation: the remote session and
// the visible, append-only message log. At most one send is in flight.
type ChatSessionController struct {
	gateway *Gateway
	session *llm.ChatSession
	logger  *zap.Logger

	mu       sync.Mutex
	messages []pkg.ChatMessage
	pending  bool
	closed   bool
}

// NewChatController opens the session and seeds the log with the greeting.
// The greeting is local and is never sent to the model.
func NewChatController(gateway *Gateway, logger *zap.Logger) *ChatSessionController {
	session := gateway.OpenChat()
	return &ChatSessionController{
		gateway: gateway,
		session: session,
		logger:  logger.With(zap.String("session_id", session.ID)),
		messages: []pkg.ChatMessage{{
			Role:      pkg.RoleModel,
			Content:   ChatGreeting,
			CreatedAt: time.Now(),
		}},
	}
}

// ID returns the session identifier.
func (c *ChatSessionController) ID() string { return c.session.ID }

// Send appends the user message, asks the model and appends its reply, or
// the apology when the call fails. Empty text or a send already in flight
// is rejected without touching the log.
func (c *ChatSessionController) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionClosed
	}
	if c.pending {
		c.mu.Unlock()
		return ErrSendPending
	}
	c.messages = append(c.messages, pkg.ChatMessage{Role: pkg.RoleUser, Content: text, CreatedAt: time.Now()})
	c.pending = true
	c.mu.Unlock()

	reply, err := c.gateway.SendChatMessage(ctx, c.session, text)
	if err != nil {
		reply = ChatApology
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false
	if c.closed {
		c.logger.Debug("dropping reply for closed session")
		return ErrSessionClosed
	}
	c.messages = append(c.messages, pkg.ChatMessage{Role: pkg.RoleModel, Content: reply, CreatedAt: time.Now()})
	return nil
}

// Pending reports whether a send is in flight.
func (c *ChatSessionController) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Messages returns a copy of the log in send order.
func (c *ChatSessionController) Messages() []pkg.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]pkg.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Close ends the session. A reply that arrives later is discarded.
func (c *ChatSessionController) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
