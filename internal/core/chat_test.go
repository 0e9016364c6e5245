package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hospital-ai-desk/internal/llm"
	"hospital-ai-desk/pkg"
)

func contents(msgs []pkg.ChatMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.Role) + ":" + m.Content
	}
	return out
}

func TestChatController_SeedGreetingNotSent(t *testing.T) {
	fc := &fakeClient{}
	c := NewChatController(NewGateway(fc), zap.NewNop())
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, pkg.RoleModel, msgs[0].Role)
	assert.Equal(t, ChatGreeting, msgs[0].Content)
	assert.Equal(t, 0, fc.chatCalls)
	assert.NotEmpty(t, c.ID())
}

func TestChatController_SendOrder(t *testing.T) {
	var sent []llm.Message
	fc := &fakeClient{chat: func(ctx context.Context, messages []llm.Message) (string, error) {
		sent = messages
		return "Các khả năng...", nil
	}}
	c := NewChatController(NewGateway(fc), zap.NewNop())

	require.NoError(t, c.Send(context.Background(), "Tôi bị đau đầu"))
	assert.Equal(t, []string{
		"model:" + ChatGreeting,
		"user:Tôi bị đau đầu",
		"model:Các khả năng...",
	}, contents(c.Messages()))

	require.Len(t, sent, 2)
	assert.Equal(t, llm.RoleSystem, sent[0].Role)
	assert.Equal(t, ChatInstruction, sent[0].Content)
	assert.Equal(t, "Tôi bị đau đầu", sent[1].Content)
	assert.False(t, c.Pending())
}

func TestChatController_EmptyIsNoop(t *testing.T) {
	fc := &fakeClient{}
	c := NewChatController(NewGateway(fc), zap.NewNop())
	for _, s := range []string{"", "   ", "\n\t"} {
		assert.ErrorIs(t, c.Send(context.Background(), s), ErrEmptyMessage)
	}
	assert.Len(t, c.Messages(), 1)
	assert.Equal(t, 0, fc.chatCalls)
}

func TestChatController_FailureAppendsApology(t *testing.T) {
	c := NewChatController(NewGateway(&fakeClient{}), zap.NewNop())
	require.NoError(t, c.Send(context.Background(), "xin chào"))
	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, ChatApology, msgs[2].Content)
	assert.Equal(t, pkg.RoleModel, msgs[2].Role)
}

func TestChatController_RejectsWhilePending(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fc := &fakeClient{chat: func(ctx context.Context, messages []llm.Message) (string, error) {
		close(started)
		<-release
		return "trả lời", nil
	}}
	c := NewChatController(NewGateway(fc), zap.NewNop())

	done := make(chan error)
	go func() { done <- c.Send(context.Background(), "câu 1") }()
	<-started

	assert.True(t, c.Pending())
	assert.ErrorIs(t, c.Send(context.Background(), "câu 2"), ErrSendPending)
	assert.Len(t, c.Messages(), 2)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"model:" + ChatGreeting, "user:câu 1", "model:trả lời"}, contents(c.Messages()))
	assert.Equal(t, 1, fc.chatCalls)
}

func TestChatController_CloseDropsLateReply(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fc := &fakeClient{chat: func(ctx context.Context, messages []llm.Message) (string, error) {
		close(started)
		<-release
		return "muộn", nil
	}}
	c := NewChatController(NewGateway(fc), zap.NewNop())

	done := make(chan error)
	go func() { done <- c.Send(context.Background(), "hỏi") }()
	<-started
	c.Close()
	close(release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSessionClosed)
	case <-time.After(time.Second):
		t.Fatal("send did not return")
	}
	assert.Len(t, c.Messages(), 2)
	assert.ErrorIs(t, c.Send(context.Background(), "nữa"), ErrSessionClosed)
}
