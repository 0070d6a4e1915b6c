package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Upsert describes a keyed bulk write.
type Upsert struct {
	Table   string
	Columns []string
	Key     string // unique column; every other column is overwritten on conflict
}

// BulkUpsert COPYs rows into a transaction-scoped temp table shaped like
// u.Table, then merges them with INSERT ... ON CONFLICT (key) DO UPDATE.
// It returns the number of rows inserted or updated.
func BulkUpsert(ctx context.Context, pool Pool, u Upsert, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(u.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns")
	}
	if u.Key == "" {
		return 0, eris.New("db: upsert: no key column")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	target := pgx.Identifier{u.Table}.Sanitize()
	staging := pgx.Identifier{"_staging_" + u.Table}.Sanitize()

	if _, err := tx.Exec(ctx, fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP", staging, target,
	)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: stage %s", u.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"_staging_" + u.Table}, u.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy into staging for %s", u.Table)
	}

	tag, err := tx.Exec(ctx, upsertSQL(target, staging, u))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge %s", u.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit")
	}
	return tag.RowsAffected(), nil
}

func upsertSQL(target, staging string, u Upsert) string {
	cols := make([]string, len(u.Columns))
	var sets []string
	for i, c := range u.Columns {
		q := pgx.Identifier{c}.Sanitize()
		cols[i] = q
		if c != u.Key {
			sets = append(sets, q+" = EXCLUDED."+q)
		}
	}
	list := strings.Join(cols, ", ")
	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		target, list, list, staging, pgx.Identifier{u.Key}.Sanitize(), action)
}
