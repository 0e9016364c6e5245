package core

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"hospital-ai-desk/internal/llm"
)

// ImageVariant selects the fixed instruction used for image analysis.
type ImageVariant string

const (
	VariantLab       ImageVariant = "lab"
	VariantRadiology ImageVariant = "radiology"
)

func (v ImageVariant) instruction() string {
	if v == VariantLab {
		return LabImageInstruction
	}
	return RadiologyImageInstruction
}

// TransportError wraps every failure of a remote model call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return "ai " + e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// AnnotationCache is the optional cache consulted by AnalyzeImage.
type AnnotationCache interface {
	Lookup(ctx context.Context, variant string, image []byte) (string, bool)
	Store(ctx context.Context, variant string, image []byte, annotation string)
}

// Gateway exposes the model capabilities used by the controllers. It is
// stateless apart from the chat sessions it hands out.
type Gateway struct {
	client  llm.Client
	timeout time.Duration
	cache   AnnotationCache
	logger  *zap.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithTimeout bounds every remote call.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.timeout = d }
}

// WithAnnotationCache enables caching of image analyses.
func WithAnnotationCache(c AnnotationCache) GatewayOption {
	return func(g *Gateway) { g.cache = c }
}

// WithLogger sets the gateway logger.
func WithLogger(l *zap.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

// NewGateway constructs a Gateway over the given transport.
func NewGateway(client llm.Client, opts ...GatewayOption) *Gateway {
	g := &Gateway{client: client, timeout: 60 * time.Second, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

// AnalyzeText runs a single-turn analysis of free text under the fixed
// triage instruction and returns the model's raw text.
func (g *Gateway) AnalyzeText(ctx context.Context, freeText string) (string, error) {
	ctx, cancel := g.withDeadline(ctx)
	defer cancel()
	out, err := g.client.GenerateText(ctx, TextAnalysisInstruction, freeText)
	if err != nil {
		g.logger.Error("text analysis failed", zap.Error(err))
		return "", &TransportError{Op: "analyze text", Err: err}
	}
	return out, nil
}

// AnalyzeImage runs the structured image analysis for the given variant on a
// base64 encoded image.
func (g *Gateway) AnalyzeImage(ctx context.Context, imageBase64, mimeType string, variant ImageVariant) (string, error) {
	img, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", &TransportError{Op: "analyze image", Err: fmt.Errorf("decode image: %w", err)}
	}
	if g.cache != nil {
		if out, ok := g.cache.Lookup(ctx, string(variant), img); ok {
			return out, nil
		}
	}

	ctx, cancel := g.withDeadline(ctx)
	defer cancel()
	out, err := g.client.GenerateFromImage(ctx, variant.instruction(), img, mimeType)
	if err != nil {
		g.logger.Error("image analysis failed",
			zap.String("variant", string(variant)),
			zap.String("mime_type", mimeType),
			zap.Error(err),
		)
		return "", &TransportError{Op: "analyze image", Err: err}
	}
	if g.cache != nil {
		g.cache.Store(ctx, string(variant), img, out)
	}
	return out, nil
}

// Classify asks the model to pick one of allowedLabels for freeText. The
// reply is accepted only when it matches a label case-insensitively; the
// canonical label is returned. Any failure or mismatch yields "".
func (g *Gateway) Classify(ctx context.Context, freeText string, allowedLabels []string) string {
	if len(allowedLabels) == 0 {
		return ""
	}
	ctx, cancel := g.withDeadline(ctx)
	defer cancel()

	prompt := freeText + "\n\nDanh sách nhãn cho phép:\n" + strings.Join(allowedLabels, "\n")
	out, err := g.client.GenerateText(ctx, ClassifyInstruction, prompt)
	if err != nil {
		g.logger.Warn("classification failed", zap.Error(err))
		return ""
	}
	if label, ok := MatchLabel(out, allowedLabels); ok {
		return label
	}
	g.logger.Warn("classification mismatch",
		zap.String("answer", out),
		zap.Strings("allowed", allowedLabels),
	)
	return ""
}

// MatchLabel returns the allowed label equal to answer ignoring case and
// surrounding whitespace.
func MatchLabel(answer string, allowedLabels []string) (string, bool) {
	answer = strings.TrimSpace(answer)
	for _, l := range allowedLabels {
		if strings.EqualFold(answer, l) {
			return l, true
		}
	}
	return "", false
}

// OpenChat creates a chat session seeded with the chat instruction.
func (g *Gateway) OpenChat() *llm.ChatSession {
	return llm.NewChatSession(g.client, ChatInstruction)
}

// SendChatMessage sends one user turn on the session.
func (g *Gateway) SendChatMessage(ctx context.Context, session *llm.ChatSession, userText string) (string, error) {
	ctx, cancel := g.withDeadline(ctx)
	defer cancel()
	out, err := session.Send(ctx, userText)
	if err != nil {
		g.logger.Error("chat turn failed", zap.String("session_id", session.ID), zap.Error(err))
		return "", &TransportError{Op: "chat", Err: err}
	}
	return out, nil
}
