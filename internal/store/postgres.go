package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/safer-cli/internal/db"
	"github.com/sells-group/safer-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// carrierUpsert mirrors ledger rows keyed by MC/MX number.
var carrierUpsert = db.Upsert{
	Table:   "carriers",
	Columns: []string{"mc_mx", "legal_name", "dot_number", "address", "telephone", "email", "followup", "synced_at"},
	Key:     "mc_mx",
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, nil)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	range_start BIGINT NOT NULL,
	range_end   BIGINT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_outcomes (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	mc_mx       BIGINT NOT NULL,
	kind        TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	stage       TEXT NOT NULL DEFAULT '',
	followup    TEXT NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS carriers (
	mc_mx       BIGINT PRIMARY KEY,
	legal_name  TEXT NOT NULL,
	dot_number  TEXT NOT NULL,
	address     TEXT NOT NULL,
	telephone   TEXT NOT NULL,
	email       TEXT NOT NULL,
	followup    TEXT NOT NULL,
	synced_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_outcomes_run_id ON run_outcomes(run_id);
CREATE INDEX IF NOT EXISTS idx_run_outcomes_mc_mx ON run_outcomes(mc_mx);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, start, end int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, range_start, range_end, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, start, end, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET summary = $1, status = $2, updated_at = $3 WHERE id = $4`,
		summaryJSON, string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, range_start, range_end, status, summary, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPostgresRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: get run %s: run not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, range_start, range_end, status, summary, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) AbandonStaleRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE runs SET status = $1, updated_at = now()
		WHERE status = $2 AND updated_at < $3
		AND NOT EXISTS (SELECT 1 FROM run_outcomes o WHERE o.run_id = runs.id AND o.recorded_at >= $3)`,
		string(model.RunStatusAbandoned), string(model.RunStatusRunning), cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: abandon stale runs")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) RecordOutcome(ctx context.Context, o model.ItemOutcome) error {
	recorded := o.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_outcomes (run_id, mc_mx, kind, reason, stage, followup, recorded_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.RunID, o.Identifier, string(o.Outcome.Kind), o.Outcome.Reason, o.Outcome.Stage, string(o.Followup), recorded,
	)
	return eris.Wrapf(err, "postgres: record outcome %d", o.Identifier)
}

func (s *PostgresStore) ListOutcomes(ctx context.Context, runID string) ([]model.ItemOutcome, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, mc_mx, kind, reason, stage, followup, recorded_at FROM run_outcomes WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list outcomes %s", runID)
	}
	defer rows.Close()

	var out []model.ItemOutcome
	for rows.Next() {
		var o model.ItemOutcome
		var kind, followup string
		if err := rows.Scan(&o.RunID, &o.Identifier, &kind, &o.Outcome.Reason, &o.Outcome.Stage, &followup, &o.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outcome")
		}
		o.Outcome.Kind = model.OutcomeKind(kind)
		o.Followup = model.FollowupStatus(followup)
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list outcomes iterate")
}

func (s *PostgresStore) SyncCarriers(ctx context.Context, rows []model.LedgerRow) (int64, error) {
	now := time.Now().UTC()
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = carrierArgs(r, now)
	}
	n, err := db.BulkUpsert(ctx, s.pool, carrierUpsert, data)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: sync carriers")
	}
	return n, nil
}

func scanPostgresRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	var summary []byte

	if err := row.Scan(&r.ID, &r.RangeStart, &r.RangeEnd, &status, &summary, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if len(summary) > 0 {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal(summary, r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	return &r, nil
}
