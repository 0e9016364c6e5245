package core

import (
	"context"
	"errors"
	"sync"

	"hospital-ai-desk/internal/llm"
)

var errUnavailable = errors.New("service unavailable")

// fakeClient is an in-memory llm.Client. Unset hooks fail with
// errUnavailable.
type fakeClient struct {
	mu sync.Mutex

	text  func(ctx context.Context, system, prompt string) (string, error)
	image func(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
	chat  func(ctx context.Context, messages []llm.Message) (string, error)

	textCalls  int
	imageCalls int
	chatCalls  int
	lastSystem string
	lastPrompt string
}

func (f *fakeClient) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	f.textCalls++
	f.lastSystem, f.lastPrompt = system, prompt
	fn := f.text
	f.mu.Unlock()
	if fn == nil {
		return "", errUnavailable
	}
	return fn(ctx, system, prompt)
}

func (f *fakeClient) GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	f.mu.Lock()
	f.imageCalls++
	f.lastPrompt = prompt
	fn := f.image
	f.mu.Unlock()
	if fn == nil {
		return "", errUnavailable
	}
	return fn(ctx, prompt, image, mimeType)
}

func (f *fakeClient) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	f.chatCalls++
	fn := f.chat
	f.mu.Unlock()
	if fn == nil {
		return "", errUnavailable
	}
	return fn(ctx, messages)
}

func replyText(s string) func(context.Context, string, string) (string, error) {
	return func(context.Context, string, string) (string, error) { return s, nil }
}
