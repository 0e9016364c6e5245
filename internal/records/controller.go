package records

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType names a list mutation.
type EventType string

const (
	EventAdded   EventType = "added"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is published after the list changed.
type Event struct {
	Type   EventType
	Kind   Kind
	Record Record
}

// ListController owns the canonical list of records of one kind and the
// single open draft. It does not check roles; see CanPerform.
type ListController struct {
	kind     Kind
	analyzer Analyzer
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.RWMutex
	records []Record
	seq     int
	draft   *Draft
	subs    []func(Event)
}

// NewListController starts a controller with an initial list, typically
// loaded by the caller from its store.
func NewListController(kind Kind, initial []Record, analyzer Analyzer, logger *zap.Logger) *ListController {
	recs := make([]Record, len(initial))
	copy(recs, initial)
	return &ListController{
		kind:     kind,
		analyzer: analyzer,
		logger:   logger.With(zap.String("kind", string(kind))),
		now:      time.Now,
		records:  recs,
	}
}

// Kind returns the record kind managed by the controller.
func (c *ListController) Kind() Kind { return c.kind }

// Subscribe registers fn for change events. Events are delivered
// synchronously, after the mutation, in registration order.
func (c *ListController) Subscribe(fn func(Event)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

func (c *ListController) publish(ev Event, subs []func(Event)) {
	for _, fn := range subs {
		fn(ev)
	}
}

// List returns the records in insertion order.
func (c *ListController) List() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Get returns the record with the given id.
func (c *ListController) Get(id string) (Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.records[i], nil
	}
	return Record{}, ErrRecordNotFound
}

func (c *ListController) indexLocked(id string) int {
	for i, r := range c.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (c *ListController) nextOrderIDLocked() string {
	date := c.now().Format("20060102")
	for {
		c.seq++
		id := fmt.Sprintf("%s-%s-%04d", c.kind.orderPrefix(), date, c.seq)
		taken := false
		for _, r := range c.records {
			if r.OrderID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

// Add stores a new record. The controller assigns id, order id and the
// initial status.
func (c *ListController) Add(cand Candidate) Record {
	c.mu.Lock()
	rec := Record{
		ID:           uuid.NewString(),
		OrderID:      c.nextOrderIDLocked(),
		PatientID:    cand.PatientID,
		PatientName:  cand.PatientName,
		Name:         cand.Name,
		OrderDate:    cand.OrderDate,
		Status:       StatusOrdered,
		ImageURI:     cand.ImageURI,
		AIAnnotation: cand.AIAnnotation,
	}
	if rec.OrderDate == "" {
		rec.OrderDate = c.now().Format("2006-01-02")
	}
	c.records = append(c.records, rec)
	subs := append([]func(Event){}, c.subs...)
	c.mu.Unlock()

	c.logger.Info("record added", zap.String("record_id", rec.ID), zap.String("order_id", rec.OrderID))
	c.publish(Event{Type: EventAdded, Kind: c.kind, Record: rec}, subs)
	return rec
}

// Update replaces the record with the same id. An unknown id leaves the
// list unchanged.
func (c *ListController) Update(rec Record) error {
	if !c.kind.ValidStatus(rec.Status) {
		return ErrInvalidStatus
	}
	c.mu.Lock()
	i := c.indexLocked(rec.ID)
	if i < 0 {
		c.mu.Unlock()
		c.logger.Warn("update of unknown record ignored", zap.String("record_id", rec.ID))
		return ErrRecordNotFound
	}
	c.records[i] = rec
	subs := append([]func(Event){}, c.subs...)
	c.mu.Unlock()

	c.logger.Info("record updated", zap.String("record_id", rec.ID))
	c.publish(Event{Type: EventUpdated, Kind: c.kind, Record: rec}, subs)
	return nil
}

// Delete removes the record. Deleting an unknown id is logged and ignored.
// Confirmation is the caller's job.
func (c *ListController) Delete(id string) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		c.logger.Info("delete of unknown record ignored", zap.String("record_id", id))
		return
	}
	rec := c.records[i]
	c.records = append(c.records[:i], c.records[i+1:]...)
	subs := append([]func(Event){}, c.subs...)
	c.mu.Unlock()

	c.logger.Info("record deleted", zap.String("record_id", id))
	c.publish(Event{Type: EventDeleted, Kind: c.kind, Record: rec}, subs)
}

// Refresh stores a record changed elsewhere, typically by another instance
// sharing the same database. It replaces the entry with the same id or
// appends it, and publishes no event.
func (c *ListController) Refresh(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(rec.ID); i >= 0 {
		c.records[i] = rec
		return
	}
	c.records = append(c.records, rec)
}

// Forget drops a record deleted elsewhere without publishing an event.
func (c *ListController) Forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		c.records = append(c.records[:i], c.records[i+1:]...)
	}
}

// NewDraft opens a blank draft for a new record. Any draft already open is
// discarded.
func (c *ListController) NewDraft() *Draft {
	tmpl := Record{OrderDate: c.now().Format("2006-01-02"), Status: StatusOrdered}
	return c.openDraft(newDraft(c.kind, tmpl, true, c.analyzer, c.logger))
}

// OpenDraft opens an edit draft on an existing record. Any draft already
// open is discarded.
func (c *ListController) OpenDraft(recordID string) (*Draft, error) {
	rec, err := c.Get(recordID)
	if err != nil {
		return nil, err
	}
	return c.openDraft(newDraft(c.kind, rec, false, c.analyzer, c.logger)), nil
}

func (c *ListController) openDraft(d *Draft) *Draft {
	c.mu.Lock()
	prev := c.draft
	c.draft = d
	c.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return d
}

// Draft returns the open draft with the given id.
func (c *ListController) Draft(id string) (*Draft, error) {
	c.mu.RLock()
	d := c.draft
	c.mu.RUnlock()
	if d == nil || d.ID != id || d.Closed() {
		return nil, ErrDraftNotFound
	}
	return d, nil
}

// Discard closes the draft without touching the list.
func (c *ListController) Discard(d *Draft) {
	d.Close()
	c.release(d)
}

func (c *ListController) release(d *Draft) {
	c.mu.Lock()
	if c.draft == d {
		c.draft = nil
	}
	c.mu.Unlock()
}

// Save commits the draft and closes it. A new draft becomes an Add, with
// identifiers, status and result stripped; an edit draft becomes an Update
// of the full record.
func (c *ListController) Save(d *Draft) (Record, error) {
	rec, err := d.finish()
	if err != nil {
		return Record{}, err
	}
	defer c.release(d)

	if d.IsNew() {
		return c.Add(Candidate{
			PatientID:    rec.PatientID,
			PatientName:  rec.PatientName,
			Name:         rec.Name,
			OrderDate:    rec.OrderDate,
			ImageURI:     rec.ImageURI,
			AIAnnotation: rec.AIAnnotation,
		}), nil
	}
	if err := c.Update(rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}
