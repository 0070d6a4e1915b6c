// Package ledger persists sweep results: an append-only table of verified
// carriers (xlsx or csv) plus a plain-text failure log.
//
// Every append is durable before it returns. The header row is written only
// when the table is empty and is never rewritten, so repeated runs against the
// same output file keep a single header followed by all rows in append order.
package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/safer-cli/internal/model"
)

// Header is the fixed column order of the result table.
var Header = []string{"MC-MX Number", "Legal Name", "U.S. DOT#", "Address", "Telephone", "Email", "Followup"}

// ErrLocked is returned by Open when another process holds the ledger.
var ErrLocked = eris.New("ledger: output file is locked by another process")

// table is one backing format for the result rows.
type table interface {
	append(cells []string) error
	close() error
}

// Ledger is the process-wide result store for one run. It is not safe for
// concurrent use.
type Ledger struct {
	path     string
	rows     table
	failures *os.File
	lock     *flock.Flock
}

// Open opens (or creates) the result table at path and the failure log at
// failurePath. The table format follows the extension: .csv, otherwise xlsx.
func Open(path, failurePath string) (*Ledger, error) {
	if failurePath == "" {
		return nil, eris.New("ledger: failure log path is required")
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, eris.Wrap(err, "ledger: acquire lock")
	}
	if !locked {
		return nil, ErrLocked
	}

	var rows table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = openCSV(path)
	default:
		rows, err = openXLSX(path)
	}
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	failures, err := os.OpenFile(failurePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = rows.close()
		_ = lock.Unlock()
		return nil, eris.Wrapf(err, "ledger: open failure log %s", failurePath)
	}

	zap.L().Info("ledger: opened",
		zap.String("path", path),
		zap.String("failure_log", failurePath),
	)
	return &Ledger{path: path, rows: rows, failures: failures, lock: lock}, nil
}

// Path returns the result table path.
func (l *Ledger) Path() string { return l.path }

// AppendRow appends one fully computed row. A nil error means the row is on
// disk.
func (l *Ledger) AppendRow(row model.LedgerRow) error {
	if err := l.rows.append(rowCells(row)); err != nil {
		return eris.Wrapf(err, "ledger: append row %d", row.Identifier)
	}
	zap.L().Debug("ledger: row appended", zap.Int("mc_mx", row.Identifier))
	return nil
}

// AppendFailure writes "<identifier> - <reason>" to the failure log.
func (l *Ledger) AppendFailure(entry model.FailureEntry) error {
	reason := strings.Join(strings.Fields(entry.Reason), " ")
	if _, err := fmt.Fprintf(l.failures, "%d - %s\n", entry.Identifier, reason); err != nil {
		return eris.Wrapf(err, "ledger: write failure %d", entry.Identifier)
	}
	if err := l.failures.Sync(); err != nil {
		return eris.Wrapf(err, "ledger: sync failure log")
	}
	return nil
}

// Close flushes and releases the table, failure log and lock.
func (l *Ledger) Close() error {
	var firstErr error
	if err := l.rows.close(); err != nil {
		firstErr = eris.Wrap(err, "ledger: close table")
	}
	if err := l.failures.Close(); err != nil && firstErr == nil {
		firstErr = eris.Wrap(err, "ledger: close failure log")
	}
	if err := l.lock.Unlock(); err != nil && firstErr == nil {
		firstErr = eris.Wrap(err, "ledger: release lock")
	}
	return firstErr
}

func rowCells(row model.LedgerRow) []string {
	r := row.Record
	return []string{
		strconv.Itoa(row.Identifier),
		orUnavailable(r.LegalName),
		orUnavailable(r.RegistrationNumber),
		orUnavailable(r.Address),
		orUnavailable(r.Telephone),
		orUnavailable(r.Email),
		string(row.Followup),
	}
}

func orUnavailable(s string) string {
	if s == "" {
		return model.Unavailable
	}
	return s
}
