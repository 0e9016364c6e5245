package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

// migrateLockKey serializes schema setup between instances sharing a
// database; any constant works as long as all instances agree on it.
const migrateLockKey = 7341002

// Migrate creates the records table, with its kind check and unique order
// id, and the (kind, created_at) index that LoadRecords orders by. Existing
// objects are left alone. Instances starting together take turns under a
// transaction-scoped advisory lock.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", migrateLockKey); err != nil {
		return fmt.Errorf("lock schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply records schema: %w", err)
	}
	return tx.Commit()
}
