package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/safer-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	range_start INTEGER NOT NULL,
	range_end   INTEGER NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_outcomes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	mc_mx       INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	stage       TEXT NOT NULL DEFAULT '',
	followup    TEXT NOT NULL DEFAULT '',
	recorded_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS carriers (
	mc_mx       INTEGER PRIMARY KEY,
	legal_name  TEXT NOT NULL,
	dot_number  TEXT NOT NULL,
	address     TEXT NOT NULL,
	telephone   TEXT NOT NULL,
	email       TEXT NOT NULL,
	followup    TEXT NOT NULL,
	synced_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_outcomes_run_id ON run_outcomes(run_id);
CREATE INDEX IF NOT EXISTS idx_run_outcomes_mc_mx ON run_outcomes(mc_mx);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, start, end int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, range_start, range_end, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, start, end, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:         id,
		RangeStart: start,
		RangeEnd:   end,
		Status:     model.RunStatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET summary = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(summaryJSON), string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, range_start, range_end, status, summary, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, range_start, range_end, status, summary, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) AbandonStaleRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, updated_at = ?
		WHERE status = ? AND updated_at < ?
		AND NOT EXISTS (SELECT 1 FROM run_outcomes o WHERE o.run_id = runs.id AND o.recorded_at >= ?)`,
		string(model.RunStatusAbandoned), time.Now().UTC(), string(model.RunStatusRunning), cutoff, cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: abandon stale runs")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: abandon stale runs rows affected")
}

func (s *SQLiteStore) RecordOutcome(ctx context.Context, o model.ItemOutcome) error {
	recorded := o.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_outcomes (run_id, mc_mx, kind, reason, stage, followup, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Identifier, string(o.Outcome.Kind), o.Outcome.Reason, o.Outcome.Stage, string(o.Followup), recorded,
	)
	return eris.Wrapf(err, "sqlite: record outcome %d", o.Identifier)
}

func (s *SQLiteStore) ListOutcomes(ctx context.Context, runID string) ([]model.ItemOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, mc_mx, kind, reason, stage, followup, recorded_at FROM run_outcomes WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list outcomes %s", runID)
	}
	defer rows.Close()

	var out []model.ItemOutcome
	for rows.Next() {
		var o model.ItemOutcome
		var kind, followup string
		if err := rows.Scan(&o.RunID, &o.Identifier, &kind, &o.Outcome.Reason, &o.Outcome.Stage, &followup, &o.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outcome")
		}
		o.Outcome.Kind = model.OutcomeKind(kind)
		o.Followup = model.FollowupStatus(followup)
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list outcomes iterate")
}

func (s *SQLiteStore) SyncCarriers(ctx context.Context, rows []model.LedgerRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: sync carriers begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO carriers (mc_mx, legal_name, dot_number, address, telephone, email, followup, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mc_mx) DO UPDATE SET
			legal_name = excluded.legal_name,
			dot_number = excluded.dot_number,
			address    = excluded.address,
			telephone  = excluded.telephone,
			email      = excluded.email,
			followup   = excluded.followup,
			synced_at  = excluded.synced_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: sync carriers prepare")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var n int64
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, carrierArgs(r, now)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: sync carrier %d", r.Identifier)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: sync carriers commit")
	}
	return n, nil
}

// helpers

func carrierArgs(r model.LedgerRow, syncedAt time.Time) []any {
	return []any{
		r.Identifier,
		r.Record.LegalName,
		r.Record.RegistrationNumber,
		r.Record.Address,
		r.Record.Telephone,
		r.Record.Email,
		string(r.Followup),
		syncedAt,
	}
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var summaryJSON sql.NullString

	err := row.Scan(&r.ID, &r.RangeStart, &r.RangeEnd, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if summaryJSON.Valid {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	return &r, nil
}
