// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/atelier-dev/atelier/internal/embedding"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Neighbor is one result of a nearest-neighbour lookup against the vec0
// mirror. Distance is L2; 0 is an exact match.
type Neighbor struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
}

// ensureVectorTable creates the vec0 mirror for dim, recreating it when the
// previously saved snapshot used a different dimension. vec0 columns have a
// fixed width.
func ensureVectorTable(ctx context.Context, tx *sql.Tx, prevDim, dim int) error {
	if prevDim != 0 && prevDim != dim {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS record_vectors`); err != nil {
			return aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "dropping vectors table")
		}
	}
	ddl := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS record_vectors USING vec0(id TEXT PRIMARY KEY, embedding float[%d])`,
		dim,
	)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "creating vectors virtual table")
	}
	return nil
}

func serializeVector(v embedding.Vector) ([]byte, error) {
	blob, err := sqlite_vec.SerializeFloat32(v)
	if err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeEmbeddingEncodingInvalid, "serializing embedding")
	}
	return blob, nil
}

// Nearest returns the k saved records closest to query by L2 distance. It
// reads the last saved snapshot, not the live store.
func (s *Sink) Nearest(ctx context.Context, query embedding.Vector, k int) ([]Neighbor, error) {
	dim, err := readDimension(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return nil, nil
	}
	if err := query.Validate(dim); err != nil {
		return nil, err
	}

	blob, err := serializeVector(query)
	if err != nil {
		return nil, err
	}

	const q = `SELECT id, distance FROM record_vectors
WHERE embedding MATCH ? AND k = ?
ORDER BY distance`
	rows, err := s.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "searching vectors")
	}
	defer func() { _ = rows.Close() }()

	var out []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.ID, &n.Distance); err != nil {
			return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "scanning vector result")
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, aterr.Wrapf(err, aterr.CodeStoreDatabaseFailure, "iterating vector results")
	}
	return out, nil
}
