package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hospital-ai-desk/internal/records"
)

// Repository persists lab and radiology records in postgres. The list
// controllers stay the source of truth while the process runs; the
// repository loads them at startup and mirrors every change.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// LoadRecords returns the stored records of kind in creation order.
func (r *Repository) LoadRecords(ctx context.Context, kind records.Kind) ([]records.Record, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, order_id, patient_id, patient_name, name, order_date,
                status, result_text, image_uri, ai_annotation
         FROM records
         WHERE kind = $1
         ORDER BY created_at ASC`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []records.Record
	for rows.Next() {
		var rec records.Record
		var status string
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.PatientID, &rec.PatientName, &rec.Name,
			&rec.OrderDate, &status, &rec.ResultText, &rec.ImageURI, &rec.AIAnnotation); err != nil {
			return nil, err
		}
		rec.Status = records.Status(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetRecord returns one stored record. A missing row is
// records.ErrRecordNotFound.
func (r *Repository) GetRecord(ctx context.Context, kind records.Kind, id string) (records.Record, error) {
	var rec records.Record
	var status string
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, order_id, patient_id, patient_name, name, order_date,
                status, result_text, image_uri, ai_annotation
         FROM records
         WHERE kind = $1 AND id = $2`, string(kind), id,
	).Scan(&rec.ID, &rec.OrderID, &rec.PatientID, &rec.PatientName, &rec.Name,
		&rec.OrderDate, &status, &rec.ResultText, &rec.ImageURI, &rec.AIAnnotation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return records.Record{}, records.ErrRecordNotFound
		}
		return records.Record{}, err
	}
	rec.Status = records.Status(status)
	return rec, nil
}

// UpsertRecord inserts rec or overwrites the stored row with the same id.
func (r *Repository) UpsertRecord(ctx context.Context, kind records.Kind, rec records.Record) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO records (id, kind, order_id, patient_id, patient_name, name, order_date,
                              status, result_text, image_uri, ai_annotation)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
         ON CONFLICT (id) DO UPDATE
         SET patient_id = EXCLUDED.patient_id,
             patient_name = EXCLUDED.patient_name,
             name = EXCLUDED.name,
             order_date = EXCLUDED.order_date,
             status = EXCLUDED.status,
             result_text = EXCLUDED.result_text,
             image_uri = EXCLUDED.image_uri,
             ai_annotation = EXCLUDED.ai_annotation,
             updated_at = NOW()`,
		rec.ID, string(kind), rec.OrderID, rec.PatientID, rec.PatientName, rec.Name, rec.OrderDate,
		string(rec.Status), rec.ResultText, rec.ImageURI, rec.AIAnnotation,
	)
	return err
}

// DeleteRecord removes the row. A missing row is not an error.
func (r *Repository) DeleteRecord(ctx context.Context, kind records.Kind, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM records WHERE kind = $1 AND id = $2`, string(kind), id)
	return err
}

// Apply mirrors one list change into the table.
func (r *Repository) Apply(ctx context.Context, ev records.Event) error {
	switch ev.Type {
	case records.EventAdded, records.EventUpdated:
		return r.UpsertRecord(ctx, ev.Kind, ev.Record)
	case records.EventDeleted:
		return r.DeleteRecord(ctx, ev.Kind, ev.Record.ID)
	}
	return fmt.Errorf("unknown event type %q", ev.Type)
}
