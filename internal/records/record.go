package records

import (
	"errors"

	"hospital-ai-desk/internal/core"
)

var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrDraftNotFound      = errors.New("draft not found")
	ErrDraftClosed        = errors.New("draft closed")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrNoImage            = errors.New("no image attached")
	ErrAnalysisInFlight   = errors.New("analysis already running")
	ErrAnalysisNotAllowed = errors.New("analysis not allowed in current state")
	ErrAnalysisDiscarded  = errors.New("analysis result discarded")
)

// Kind is the record family a controller manages.
type Kind string

const (
	KindLab       Kind = "lab"
	KindRadiology Kind = "radiology"
)

// ParseKind maps a URL segment to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindLab, KindRadiology:
		return Kind(s), true
	}
	return "", false
}

// Status values are stored as the label shown to staff.
type Status string

const (
	StatusOrdered     Status = "Đã chỉ định"
	StatusSampleTaken Status = "Đã lấy mẫu"
	StatusPerformed   Status = "Đã thực hiện"
	StatusResulted    Status = "Đã có kết quả"
	StatusCancelled   Status = "Đã hủy"
)

// Statuses returns the closed status set of the kind, in workflow order.
func (k Kind) Statuses() []Status {
	if k == KindLab {
		return []Status{StatusOrdered, StatusSampleTaken, StatusResulted, StatusCancelled}
	}
	return []Status{StatusOrdered, StatusPerformed, StatusResulted, StatusCancelled}
}

// ValidStatus reports whether s belongs to the kind's status set.
func (k Kind) ValidStatus(s Status) bool {
	for _, v := range k.Statuses() {
		if v == s {
			return true
		}
	}
	return false
}

func (k Kind) orderPrefix() string {
	if k == KindLab {
		return "XN"
	}
	return "CDHA"
}

// Variant is the image prompt used for the kind.
func (k Kind) Variant() core.ImageVariant {
	if k == KindLab {
		return core.VariantLab
	}
	return core.VariantRadiology
}

// BadgeClass is the CSS class of the status badge.
func (s Status) BadgeClass() string {
	switch s {
	case StatusOrdered:
		return "badge-ordered"
	case StatusSampleTaken, StatusPerformed:
		return "badge-progress"
	case StatusResulted:
		return "badge-resulted"
	case StatusCancelled:
		return "badge-cancelled"
	}
	return "badge-unknown"
}

// Record is a lab test order or a radiology exam order. Name holds the test
// name for lab records and the modality for radiology records.
type Record struct {
	ID           string `json:"id"`
	OrderID      string `json:"order_id"`
	PatientID    string `json:"patient_id"`
	PatientName  string `json:"patient_name"`
	Name         string `json:"name"`
	OrderDate    string `json:"order_date"`
	Status       Status `json:"status"`
	ResultText   string `json:"result_text"`
	ImageURI     string `json:"image_uri,omitempty"`
	AIAnnotation string `json:"ai_annotation,omitempty"`
}

// SetImage replaces the image and drops the annotation, which belonged to
// the previous image.
func (r *Record) SetImage(uri string) {
	r.ImageURI = uri
	r.AIAnnotation = ""
}

// Candidate is a record before the controller assigns identifiers and
// status.
type Candidate struct {
	PatientID    string
	PatientName  string
	Name         string
	OrderDate    string
	ImageURI     string
	AIAnnotation string
}

// RecordView is a record ready for display.
type RecordView struct {
	Record
	Kind           Kind         `json:"kind"`
	BadgeClass     string       `json:"badge_class"`
	AnnotationHTML string       `json:"annotation_html,omitempty"`
	Annotation     []core.Block `json:"annotation_blocks,omitempty"`
}

// View builds the display form of r.
func (k Kind) View(r Record) RecordView {
	v := RecordView{Record: r, Kind: k, BadgeClass: r.Status.BadgeClass()}
	if r.AIAnnotation != "" {
		v.Annotation = core.Format(r.AIAnnotation)
		v.AnnotationHTML = core.RenderHTML(v.Annotation)
	}
	return v
}
