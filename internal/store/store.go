// Package store journals sweep runs and their per-identifier outcomes, and
// mirrors the carrier ledger into a queryable table.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/safer-cli/internal/model"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultSQLitePath is used when the sqlite driver has no database_url.
const DefaultSQLitePath = "safer.db"

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the run journal.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, start, end int) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary model.RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	// AbandonStaleRuns marks running runs with no activity since cutoff as
	// abandoned and returns how many were marked.
	AbandonStaleRuns(ctx context.Context, cutoff time.Time) (int64, error)

	// Outcomes
	RecordOutcome(ctx context.Context, outcome model.ItemOutcome) error
	ListOutcomes(ctx context.Context, runID string) ([]model.ItemOutcome, error)

	// Carrier mirror
	SyncCarriers(ctx context.Context, rows []model.LedgerRow) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured driver and migrates it. An empty driver
// returns a nil Store and no error: journaling is optional.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "":
		return nil, nil
	case DriverSQLite:
		if databaseURL == "" {
			databaseURL = DefaultSQLitePath
		}
		s, err = NewSQLite(databaseURL)
	case DriverPostgres:
		s, err = NewPostgres(ctx, databaseURL)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
