package records

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hospital-ai-desk/internal/core"
)

// DraftState is the annotation state of a draft.
type DraftState string

const (
	StateEmpty         DraftState = "empty"
	StateImageAttached DraftState = "image_attached"
	StateAnalyzing     DraftState = "analyzing"
	StateAnnotated     DraftState = "annotated"
)

// Analyzer is the part of the gateway a draft needs.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, imageBase64, mimeType string, variant core.ImageVariant) (string, error)
}

// FieldUpdate edits draft fields. Nil fields are left unchanged.
type FieldUpdate struct {
	PatientID   *string
	PatientName *string
	Name        *string
	OrderDate   *string
	Status      *string
	ResultText  *string
}

// Draft is the editable working copy of a record, owned by one open editor.
// Nothing it does reaches the record list until it is saved.
type Draft struct {
	ID string

	kind     Kind
	isNew    bool
	analyzer Analyzer
	logger   *zap.Logger

	mu        sync.Mutex
	rec       Record
	state     DraftState
	imageGen  uint64
	running   bool
	closed    bool
	listeners []func(DraftView)
}

func newDraft(kind Kind, rec Record, isNew bool, analyzer Analyzer, logger *zap.Logger) *Draft {
	d := &Draft{
		ID:       uuid.NewString(),
		kind:     kind,
		isNew:    isNew,
		analyzer: analyzer,
		rec:      rec,
		state:    StateEmpty,
	}
	d.logger = logger.With(zap.String("draft_id", d.ID), zap.String("kind", string(kind)))
	switch {
	case rec.ImageURI != "" && rec.AIAnnotation != "":
		d.state = StateAnnotated
	case rec.ImageURI != "":
		d.state = StateImageAttached
	}
	return d
}

// DraftView is the display form of a draft.
type DraftView struct {
	ID         string     `json:"id"`
	New        bool       `json:"new"`
	State      DraftState `json:"state"`
	CanAnalyze bool       `json:"can_analyze"`
	Record     RecordView `json:"record"`
	Statuses   []Status   `json:"statuses"`
}

// View returns the current display form.
func (d *Draft) View() DraftView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

func (d *Draft) viewLocked() DraftView {
	return DraftView{
		ID:         d.ID,
		New:        d.isNew,
		State:      d.state,
		CanAnalyze: !d.closed && !d.running && (d.state == StateImageAttached || d.state == StateAnnotated),
		Record:     d.kind.View(d.rec),
		Statuses:   d.kind.Statuses(),
	}
}

// Subscribe registers fn to receive the draft view after every change.
func (d *Draft) Subscribe(fn func(DraftView)) {
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
}

func (d *Draft) notify() {
	d.mu.Lock()
	view := d.viewLocked()
	listeners := append([]func(DraftView){}, d.listeners...)
	d.mu.Unlock()
	for _, fn := range listeners {
		fn(view)
	}
}

// State returns the annotation state.
func (d *Draft) State() DraftState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// IsNew reports whether the draft creates a record rather than editing one.
func (d *Draft) IsNew() bool { return d.isNew }

// Record returns a copy of the working record.
func (d *Draft) Record() Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rec
}

// Closed reports whether the draft was saved or discarded.
func (d *Draft) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Update applies field edits. Status must belong to the draft's kind.
func (d *Draft) Update(u FieldUpdate) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDraftClosed
	}
	if u.Status != nil && !d.kind.ValidStatus(Status(*u.Status)) {
		d.mu.Unlock()
		return ErrInvalidStatus
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&d.rec.PatientID, u.PatientID)
	set(&d.rec.PatientName, u.PatientName)
	set(&d.rec.Name, u.Name)
	set(&d.rec.OrderDate, u.OrderDate)
	set(&d.rec.ResultText, u.ResultText)
	if u.Status != nil {
		d.rec.Status = Status(*u.Status)
	}
	d.mu.Unlock()
	d.notify()
	return nil
}

// AttachImage replaces the draft image from any state. The previous
// annotation is dropped and any analysis still running for the old image
// will be discarded when it completes; until then no new analysis starts.
func (d *Draft) AttachImage(uri string) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDraftClosed
	}
	d.rec.SetImage(uri)
	d.imageGen++
	d.state = StateImageAttached
	d.mu.Unlock()
	d.logger.Debug("image attached")
	d.notify()
	return nil
}

// Close discards the draft. It is safe to call more than once.
func (d *Draft) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// finish closes the draft and returns the record to persist.
func (d *Draft) finish() (Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Record{}, ErrDraftClosed
	}
	d.closed = true
	return d.rec, nil
}
