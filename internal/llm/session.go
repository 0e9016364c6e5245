package llm

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ChatSession is a stateful multi-turn conversation on top of a stateless
// Client. The system instruction is always sent first.
type ChatSession struct {
	ID string

	client Client
	mu     sync.Mutex
	turns  []Message
}

// NewChatSession opens a session seeded with the system instruction.
func NewChatSession(client Client, system string) *ChatSession {
	return &ChatSession{
		ID:     uuid.NewString(),
		client: client,
		turns:  []Message{{Role: RoleSystem, Content: system}},
	}
}

// Send appends one user turn and returns the model reply. A failed call
// leaves the history untouched.
func (s *ChatSession) Send(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	msgs := make([]Message, len(s.turns), len(s.turns)+1)
	copy(msgs, s.turns)
	s.mu.Unlock()
	msgs = append(msgs, Message{Role: RoleUser, Content: text})

	reply, err := s.client.Chat(ctx, msgs)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.turns = append(s.turns, Message{Role: RoleUser, Content: text}, Message{Role: RoleAssistant, Content: reply})
	s.mu.Unlock()
	return reply, nil
}

// History returns a copy of the turns sent so far, system instruction first.
func (s *ChatSession) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.turns))
	copy(out, s.turns)
	return out
}
