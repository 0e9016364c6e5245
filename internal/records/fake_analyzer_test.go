package records

import (
	"context"
	"errors"
	"sync"

	"hospital-ai-desk/internal/core"
)

const testImageURI = "data:image/png;base64,aGVsbG8="

var errGatewayDown = errors.New("gateway down")

// fakeAnalyzer returns reply or err. When gate is set, each call blocks
// until a value is sent on it, after signalling on started.
type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   int
	reply   string
	err     error
	variant core.ImageVariant

	started chan struct{}
	gate    chan struct{}
}

func (f *fakeAnalyzer) AnalyzeImage(ctx context.Context, imageBase64, mimeType string, variant core.ImageVariant) (string, error) {
	f.mu.Lock()
	f.calls++
	f.variant = variant
	reply, err := f.reply, f.err
	f.mu.Unlock()

	if f.gate != nil {
		f.started <- struct{}{}
		<-f.gate
	}
	return reply, err
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newBlockingAnalyzer(reply string) *fakeAnalyzer {
	return &fakeAnalyzer{
		reply:   reply,
		started: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
}
