// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

// Package sqlite persists store snapshots in a SQLite database. Records are
// kept one per row and their embeddings are mirrored into a sqlite-vec vec0
// table, so a saved snapshot can be inspected and searched with plain SQL.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// Compile-time interface check.
var _ store.SnapshotSink = (*Sink)(nil)

const (
	metaVersion   = "version"
	metaDimension = "dimension"
	metaTakenAt   = "taken_at"
)

// Sink implements store.SnapshotSink on top of SQLite.
type Sink struct {
	db *sql.DB
}

// NewSink opens (or creates) the database at dbPath and initialises the
// record and metadata tables. The vec0 mirror is created on first Save,
// once the embedding dimension is known.
func NewSink(dbPath string) (*Sink, error) {
	if dbPath == "" {
		return nil, aterr.New(aterr.CodeConfigValidateInvalidValue, "sqlite sink: path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "creating snapshot directory for %s", dbPath)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "opening sqlite db")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "pinging sqlite db")
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "migrating snapshot tables")
	}

	return &Sink{db: db}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS snapshot_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS context_records (
	id          TEXT PRIMARY KEY,
	position    INTEGER NOT NULL,
	type        TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	embedding   BLOB NOT NULL,
	metadata    TEXT,
	created_at  INTEGER NOT NULL,
	project_id  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_context_records_project ON context_records(project_id);
CREATE INDEX IF NOT EXISTS idx_context_records_type    ON context_records(type);
`
	_, err := db.Exec(ddl)
	return err
}

// Save replaces the stored snapshot with snap in a single transaction.
func (s *Sink) Save(ctx context.Context, snap *store.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	prevDim, err := readDimension(ctx, tx)
	if err != nil {
		return err
	}
	if err := ensureVectorTable(ctx, tx, prevDim, snap.Dimension); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM context_records`); err != nil {
		return aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "clearing records")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM record_vectors`); err != nil {
		return aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "clearing vectors")
	}

	insRec, err := tx.PrepareContext(ctx, `INSERT INTO context_records
	(id, position, type, title, description, embedding, metadata, created_at, project_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "preparing record insert")
	}
	defer func() { _ = insRec.Close() }()

	insVec, err := tx.PrepareContext(ctx, `INSERT INTO record_vectors(id, embedding) VALUES (?, ?)`)
	if err != nil {
		return aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "preparing vector insert")
	}
	defer func() { _ = insVec.Close() }()

	for i, rec := range snap.Records {
		blob, err := serializeVector(rec.Embedding)
		if err != nil {
			return aterr.With(err, aterr.FieldRecordID(rec.ID))
		}

		var metaJSON sql.NullString
		if rec.Metadata != nil {
			raw, err := json.Marshal(rec.Metadata)
			if err != nil {
				return aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "marshalling metadata for %s", rec.ID)
			}
			metaJSON = sql.NullString{String: string(raw), Valid: true}
		}

		if _, err := insRec.ExecContext(ctx,
			rec.ID, i, string(rec.Type), rec.Title, rec.Description, blob, metaJSON,
			rec.Timestamp.UnixNano(), rec.ProjectID,
		); err != nil {
			return aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "inserting record %s", rec.ID)
		}
		if _, err := insVec.ExecContext(ctx, rec.ID, blob); err != nil {
			return aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "inserting vector %s", rec.ID)
		}
	}

	header := map[string]string{
		metaVersion:   strconv.Itoa(snap.Version),
		metaDimension: strconv.Itoa(snap.Dimension),
		metaTakenAt:   snap.TakenAt.UTC().Format(time.RFC3339Nano),
	}
	const upsertMeta = `INSERT INTO snapshot_meta(key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	for k, v := range header {
		if _, err := tx.ExecContext(ctx, upsertMeta, k, v); err != nil {
			return aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "writing snapshot meta %s", k)
		}
	}

	if err := tx.Commit(); err != nil {
		return aterr.Wrapf(err, aterr.CodeStoreSnapshotWriteFailed, "committing snapshot")
	}
	return nil
}

// Load reads the last saved snapshot.
func (s *Sink) Load(ctx context.Context) (*store.Snapshot, error) {
	meta, err := readMeta(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return nil, aterr.New(aterr.CodeStoreSnapshotNotFound, "no snapshot saved yet")
	}

	snap := &store.Snapshot{}
	if snap.Version, err = strconv.Atoi(meta[metaVersion]); err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeStoreSnapshotInvalid, "parsing snapshot version")
	}
	if snap.Dimension, err = strconv.Atoi(meta[metaDimension]); err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeStoreSnapshotInvalid, "parsing snapshot dimension")
	}
	if snap.TakenAt, err = time.Parse(time.RFC3339Nano, meta[metaTakenAt]); err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeStoreSnapshotInvalid, "parsing snapshot time")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, type, title, description, embedding, metadata, created_at, project_id
FROM context_records ORDER BY position`)
	if err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "querying records")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			rec       store.Record
			typ       string
			blob      []byte
			metaJSON  sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &typ, &rec.Title, &rec.Description, &blob, &metaJSON, &createdAt, &rec.ProjectID); err != nil {
			return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "scanning record")
		}
		rec.Type = store.RecordType(typ)
		rec.Timestamp = time.Unix(0, createdAt).UTC()
		if rec.Embedding, err = embedding.Decode(blob); err != nil {
			return nil, aterr.With(err, aterr.FieldRecordID(rec.ID))
		}
		if metaJSON.Valid {
			if err := json.Unmarshal([]byte(metaJSON.String), &rec.Metadata); err != nil {
				return nil, aterr.Wrapf(err, aterr.CodeStoreSnapshotInvalid, "decoding metadata for %s", rec.ID)
			}
		}
		snap.Records = append(snap.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "iterating records")
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Close closes the underlying database connection.
func (s *Sink) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readMeta(ctx context.Context, q queryer) (map[string]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT key, value FROM snapshot_meta`)
	if err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "querying snapshot meta")
	}
	defer func() { _ = rows.Close() }()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "scanning snapshot meta")
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "iterating snapshot meta")
	}
	return meta, nil
}

// readDimension returns the dimension of the last saved snapshot, or 0 when
// nothing has been saved.
func readDimension(ctx context.Context, q queryer) (int, error) {
	meta, err := readMeta(ctx, q)
	if err != nil {
		return 0, err
	}
	raw, ok := meta[metaDimension]
	if !ok {
		return 0, nil
	}
	dim, err := strconv.Atoi(raw)
	if err != nil {
		return 0, aterr.Wrapf(err, aterr.CodeStoreSnapshotInvalid, "parsing stored dimension")
	}
	return dim, nil
}
