package db

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"hospital-ai-desk/internal/records"
)

// Mirror is an in-memory list kept in step with changes made by other
// instances. records.ListController implements it.
type Mirror interface {
	Refresh(rec records.Record)
	Forget(id string)
}

// Follow applies every change received on changes to the mirror of its
// kind, reading the current row back from the table. It returns when
// changes is closed. Our own notifications arrive here too; applying them
// again is harmless.
func (r *Repository) Follow(ctx context.Context, changes <-chan Change, mirrors map[records.Kind]Mirror, logger *zap.Logger) {
	for c := range changes {
		m, ok := mirrors[c.Kind]
		if !ok {
			continue
		}
		fields := []zap.Field{
			zap.String("kind", string(c.Kind)),
			zap.String("event", string(c.Type)),
			zap.String("record_id", c.RecordID),
		}
		if c.Type == records.EventDeleted {
			m.Forget(c.RecordID)
			logger.Debug("record change applied", fields...)
			continue
		}
		rec, err := r.GetRecord(ctx, c.Kind, c.RecordID)
		switch {
		case errors.Is(err, records.ErrRecordNotFound):
			m.Forget(c.RecordID)
		case err != nil:
			logger.Warn("failed to reload changed record", append(fields, zap.Error(err))...)
			continue
		default:
			m.Refresh(rec)
		}
		logger.Debug("record change applied", fields...)
	}
}
