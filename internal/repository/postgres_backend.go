package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DefaultSnapshotID names the single snapshot row.
const DefaultSnapshotID = "default"

// PostgresBackend keeps the snapshot as one JSONB row in crs_snapshots.
type PostgresBackend struct {
	db *sqlx.DB
	id string
}

// NewPostgresBackend creates a backend for the default snapshot row.
func NewPostgresBackend(db *sqlx.DB) *PostgresBackend {
	return &PostgresBackend{db: db, id: DefaultSnapshotID}
}

type snapshotRow struct {
	Revision int64  `db:"revision"`
	Document []byte `db:"document"`
}

// Read loads the snapshot row.
func (b *PostgresBackend) Read(ctx context.Context) (*Snapshot, error) {
	const query = `SELECT revision, document FROM crs_snapshots WHERE id = $1`
	var row snapshotRow
	if err := b.db.GetContext(ctx, &row, query, b.id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(row.Document, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := checkSchema(&snap); err != nil {
		return nil, err
	}
	snap.Revision = row.Revision
	return &snap, nil
}

// Write inserts the first snapshot or updates the row guarded by its revision.
func (b *PostgresBackend) Write(ctx context.Context, snap *Snapshot, baseRevision int64) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	var res sql.Result
	if baseRevision == 0 {
		const insert = `INSERT INTO crs_snapshots (id, schema_version, revision, document, updated_at)
VALUES ($1, $2, $3, $4, NOW()) ON CONFLICT (id) DO NOTHING`
		res, err = b.db.ExecContext(ctx, insert, b.id, snap.SchemaVersion, snap.Revision, doc)
	} else {
		const update = `UPDATE crs_snapshots SET schema_version = $2, revision = $3, document = $4, updated_at = NOW()
WHERE id = $1 AND revision = $5`
		res, err = b.db.ExecContext(ctx, update, b.id, snap.SchemaVersion, snap.Revision, doc, baseRevision)
	}
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if affected == 0 {
		return errStaleRevision
	}
	return nil
}

// Delete drops the snapshot row.
func (b *PostgresBackend) Delete(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM crs_snapshots WHERE id = $1`, b.id); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
