package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	apperrors "colindex/pkg/errors"
	"colindex/pkg/postgres"
)

// Postgres adapts PostgreSQL as a wide-column store: one table keyed by
// (row_key, column_name). Each Insert batch runs in a single transaction, so
// the "partially applied batch" failure mode of a real distributed column
// store does not occur here; the commit pipeline does not rely on either
// behaviour.
type Postgres struct {
	client *postgres.Client
	table  string
}

// NewPostgres wraps an existing client. table must be a valid identifier;
// it is interpolated into DDL/DML and not parameterisable at query time.
func NewPostgres(client *postgres.Client, table string) *Postgres {
	if table == "" {
		table = "colindex_rows"
	}
	return &Postgres{client: client, table: table}
}

// EnsureSchema creates the backing table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			row_key      TEXT  NOT NULL,
			column_name  TEXT  NOT NULL,
			column_value BYTEA NOT NULL,
			PRIMARY KEY (row_key, column_name)
		)`, p.table)
	if _, err := p.client.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating table %s: %w", p.table, err)
	}
	return nil
}

func (p *Postgres) Insert(ctx context.Context, mutations []Mutation, _ Consistency) error {
	err := p.client.InTx(ctx, func(tx *sql.Tx) error {
		upsert := fmt.Sprintf(`
			INSERT INTO %s (row_key, column_name, column_value)
			VALUES ($1, $2, $3)
			ON CONFLICT (row_key, column_name)
			DO UPDATE SET column_value = EXCLUDED.column_value`, p.table)
		delCol := fmt.Sprintf(`DELETE FROM %s WHERE row_key = $1 AND column_name = $2`, p.table)
		delRow := fmt.Sprintf(`DELETE FROM %s WHERE row_key = $1`, p.table)

		for _, mut := range mutations {
			if mut.RowTombstone {
				if _, err := tx.ExecContext(ctx, delRow, string(mut.Key)); err != nil {
					return fmt.Errorf("deleting row %s: %w", mut.Key, err)
				}
				continue
			}
			for _, op := range mut.Ops {
				if op.Tombstone {
					if _, err := tx.ExecContext(ctx, delCol, string(mut.Key), op.Name); err != nil {
						return fmt.Errorf("deleting column %s/%s: %w", mut.Key, op.Name, err)
					}
					continue
				}
				if _, err := tx.ExecContext(ctx, upsert, string(mut.Key), op.Name, op.Value); err != nil {
					return fmt.Errorf("upserting column %s/%s: %w", mut.Key, op.Name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (p *Postgres) Read(ctx context.Context, key RowKey, filter ColumnFilter, _ Consistency) ([]Column, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(filter.Names) > 0 {
		query := fmt.Sprintf(`
			SELECT column_name, column_value FROM %s
			WHERE row_key = $1 AND column_name = ANY($2)
			ORDER BY column_name`, p.table)
		rows, err = p.client.DB.QueryContext(ctx, query, string(key), pq.Array(filter.Names))
	} else {
		query := fmt.Sprintf(`
			SELECT column_name, column_value FROM %s
			WHERE row_key = $1
			ORDER BY column_name`, p.table)
		rows, err = p.client.DB.QueryContext(ctx, query, string(key))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading row %s: %v", apperrors.ErrStoreUnavailable, key, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Value); err != nil {
			return nil, fmt.Errorf("scanning column of row %s: %w", key, err)
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating row %s: %v", apperrors.ErrStoreUnavailable, key, err)
	}
	return cols, nil
}
