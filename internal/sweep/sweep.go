// Package sweep drives the lookup pipeline over an ascending MC/MX range.
//
// The Driver is the only writer of ledger rows and failure entries. Each
// identifier runs inside a recover boundary, so one bad item never stops the
// range; cancellation is checked between identifiers only.
package sweep

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/safer-cli/internal/model"
	"github.com/sells-group/safer-cli/internal/resilience"
)

// StagePipeline labels outcomes for items whose pipeline returned an error
// or panicked.
const StagePipeline = "pipeline"

// ItemPipeline processes one identifier.
type ItemPipeline interface {
	Process(ctx context.Context, id int) (model.ItemResult, error)
}

// Ledger is the durable result sink.
type Ledger interface {
	AppendRow(row model.LedgerRow) error
	AppendFailure(entry model.FailureEntry) error
	Close() error
}

// Journal records runs and outcomes. store.Store satisfies it.
type Journal interface {
	CreateRun(ctx context.Context, start, end int) (*model.Run, error)
	RecordOutcome(ctx context.Context, outcome model.ItemOutcome) error
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary model.RunSummary) error
}

// Option configures a Driver.
type Option func(*Driver)

// WithJournal journals every outcome to j.
func WithJournal(j Journal) Option {
	return func(d *Driver) { d.journal = j }
}

// WithPacer spaces consecutive identifiers.
func WithPacer(p *resilience.Pacer) Option {
	return func(d *Driver) { d.pacer = p }
}

// WithCooldown pauses the range after consecutive session failures.
func WithCooldown(c *resilience.Cooldown) Option {
	return func(d *Driver) { d.cooldown = c }
}

// WithResource hands ownership of c to the driver; it is closed when Run
// returns, before the ledger.
func WithResource(name string, c io.Closer) Option {
	return func(d *Driver) {
		d.resources = append(d.resources, resource{name: name, closer: c})
	}
}

type resource struct {
	name   string
	closer io.Closer
}

// Driver runs the range loop. A Driver is single-use: Run releases every
// resource it owns.
type Driver struct {
	ledger    Ledger
	journal   Journal
	pacer     *resilience.Pacer
	cooldown  *resilience.Cooldown
	resources []resource
	sleep     func(ctx context.Context, d time.Duration) error
}

// New creates a Driver that owns ledger.
func New(ledger Ledger, opts ...Option) *Driver {
	d := &Driver{ledger: ledger, sleep: resilience.Sleep}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run processes every identifier in [start, end] in ascending order and
// returns the counts. Owned resources and the ledger are released on every
// exit path.
func (d *Driver) Run(ctx context.Context, start, end int, p ItemPipeline) model.RunSummary {
	defer d.release()

	log := zap.L().With(zap.Int("range_start", start), zap.Int("range_end", end))
	log.Info("sweep: starting")

	runID := d.beginRun(ctx, start, end)
	var sum model.RunSummary

	for id := start; id <= end; id++ {
		if ctx.Err() != nil {
			sum.Cancelled = true
			break
		}
		if id > start {
			if err := d.pacer.Wait(ctx); err != nil {
				sum.Cancelled = true
				break
			}
		}

		res, err := d.process(ctx, p, id)
		d.settle(ctx, runID, id, res, err, &sum)
	}

	if sum.Cancelled {
		log.Warn("sweep: cancelled", zap.Int("processed", sum.Total))
	}
	d.finishRun(ctx, runID, sum)

	log.Info("sweep: complete",
		zap.Int("total", sum.Total),
		zap.Int("verified", sum.Verified),
		zap.Int("rejected", sum.Rejected),
		zap.Int("session_failed", sum.SessionFailed),
		zap.Int("errored", sum.Errored),
		zap.Int("cooldowns", d.cooldown.Trips()),
		zap.Bool("cancelled", sum.Cancelled),
	)
	return sum
}

// process runs the pipeline for id, converting a panic into an error.
func (d *Driver) process(ctx context.Context, p ItemPipeline, id int) (res model.ItemResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("sweep: pipeline panicked",
				zap.Int("mc_mx", id),
				zap.String("panic", fmt.Sprint(r)),
				zap.Stack("stack"),
			)
			res = model.ItemResult{Identifier: id}
			err = eris.Errorf("sweep: panic processing %d: %v", id, r)
		}
	}()
	return p.Process(ctx, id)
}

// settle persists the result of one identifier and updates the summary.
func (d *Driver) settle(ctx context.Context, runID string, id int, res model.ItemResult, err error, sum *model.RunSummary) {
	log := zap.L().With(zap.Int("mc_mx", id))
	sum.Total++

	var followup model.FollowupStatus
	sessionFailed := false

	switch {
	case err != nil:
		res.Outcome = model.SessionFailure(StagePipeline, err.Error())
		log.Error("sweep: item failed", zap.Error(err))
		d.appendFailure(model.FailureEntry{Identifier: id, Reason: err.Error()})
		sum.Errored++
		sessionFailed = true

	case res.Failure != nil:
		d.appendFailure(*res.Failure)
		sum.SessionFailed++
		sessionFailed = true

	case res.Row != nil:
		followup = res.Row.Followup
		if appendErr := d.ledger.AppendRow(*res.Row); appendErr != nil {
			log.Error("sweep: row not persisted", zap.Error(appendErr))
			d.appendFailure(model.FailureEntry{Identifier: id, Reason: appendErr.Error()})
			sum.Errored++
		} else {
			sum.Verified++
		}

	default:
		sum.Rejected++
	}

	d.journalOutcome(ctx, runID, model.ItemOutcome{
		RunID:      runID,
		Identifier: id,
		Outcome:    res.Outcome,
		Followup:   followup,
		RecordedAt: time.Now().UTC(),
	})

	if !sessionFailed {
		d.cooldown.RecordSuccess()
		return
	}
	if pause := d.cooldown.RecordFailure(); pause > 0 {
		log.Warn("sweep: consecutive session failures, cooling down", zap.Duration("pause", pause))
		if err := d.sleep(ctx, pause); err != nil {
			log.Debug("sweep: cooldown interrupted", zap.Error(err))
		}
	}
}

func (d *Driver) appendFailure(entry model.FailureEntry) {
	if err := d.ledger.AppendFailure(entry); err != nil {
		zap.L().Error("sweep: failure entry not persisted",
			zap.Int("mc_mx", entry.Identifier),
			zap.String("reason", entry.Reason),
			zap.Error(err),
		)
	}
}

func (d *Driver) beginRun(ctx context.Context, start, end int) string {
	if d.journal == nil {
		return ""
	}
	run, err := d.journal.CreateRun(ctx, start, end)
	if err != nil {
		zap.L().Warn("sweep: journal unavailable, continuing without it", zap.Error(err))
		d.journal = nil
		return ""
	}
	zap.L().Info("sweep: run journaled", zap.String("run_id", run.ID))
	return run.ID
}

func (d *Driver) journalOutcome(ctx context.Context, runID string, o model.ItemOutcome) {
	if d.journal == nil {
		return
	}
	if err := d.journal.RecordOutcome(context.WithoutCancel(ctx), o); err != nil {
		zap.L().Warn("sweep: journal outcome failed", zap.Int("mc_mx", o.Identifier), zap.Error(err))
	}
}

func (d *Driver) finishRun(ctx context.Context, runID string, sum model.RunSummary) {
	if d.journal == nil {
		return
	}
	status := model.RunStatusComplete
	if sum.Cancelled {
		status = model.RunStatusCancelled
	}
	if err := d.journal.CompleteRun(context.WithoutCancel(ctx), runID, status, sum); err != nil {
		zap.L().Warn("sweep: journal completion failed", zap.String("run_id", runID), zap.Error(err))
	}
}

// release closes owned resources in reverse order, then the ledger.
func (d *Driver) release() {
	for i := len(d.resources) - 1; i >= 0; i-- {
		r := d.resources[i]
		if err := r.closer.Close(); err != nil {
			zap.L().Warn("sweep: release failed", zap.String("resource", r.name), zap.Error(err))
		}
	}
	d.resources = nil
	if d.ledger != nil {
		if err := d.ledger.Close(); err != nil {
			zap.L().Error("sweep: ledger close failed", zap.Error(err))
		}
	}
}
