package records

import (
	"context"

	"go.uber.org/zap"

	"hospital-ai-desk/internal/core"
	"hospital-ai-desk/internal/imaging"
)

// Analyze runs the AI annotation for the attached image. It is allowed only
// with an image attached and no analysis already running; a rejected call
// changes nothing. A failed model call is not an error for the caller: the
// draft ends Annotated with core.AnalysisErrorText so the user can retry.
//
// The result is dropped, with ErrAnalysisDiscarded, when the draft was
// closed or its image replaced while the call was running. At most one
// call is outstanding per draft, even across an image replacement.
func (d *Draft) Analyze(ctx context.Context) error {
	d.mu.Lock()
	switch {
	case d.closed:
		d.mu.Unlock()
		return ErrDraftClosed
	case d.state == StateAnalyzing || d.running:
		d.mu.Unlock()
		return ErrAnalysisInFlight
	case d.rec.ImageURI == "":
		d.mu.Unlock()
		return ErrNoImage
	case d.state != StateImageAttached && d.state != StateAnnotated:
		d.mu.Unlock()
		return ErrAnalysisNotAllowed
	}
	uri := d.rec.ImageURI
	gen := d.imageGen
	d.state = StateAnalyzing
	d.running = true
	d.mu.Unlock()
	d.notify()

	text, err := d.runAnalysis(ctx, uri)

	d.mu.Lock()
	d.running = false
	if closed := d.closed; closed || d.imageGen != gen {
		d.mu.Unlock()
		d.logger.Info("discarding stale analysis", zap.Bool("closed", closed))
		if !closed {
			d.notify()
		}
		return ErrAnalysisDiscarded
	}
	if err != nil {
		d.logger.Warn("image analysis failed", zap.Error(err))
		text = core.AnalysisErrorText
	}
	d.rec.AIAnnotation = text
	d.state = StateAnnotated
	d.mu.Unlock()
	d.notify()
	return nil
}

func (d *Draft) runAnalysis(ctx context.Context, uri string) (string, error) {
	payload, mimeType, err := imaging.ParseDataURI(uri)
	if err != nil {
		return "", err
	}
	return d.analyzer.AnalyzeImage(ctx, payload, mimeType, d.kind.Variant())
}
