package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/safer-cli/internal/config"
	"github.com/sells-group/safer-cli/internal/ledger"
	"github.com/sells-group/safer-cli/internal/model"
	"github.com/sells-group/safer-cli/internal/pipeline"
	"github.com/sells-group/safer-cli/internal/session"
	"github.com/sells-group/safer-cli/internal/sweep"
	"github.com/sells-group/safer-cli/internal/verify"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Look up every MC/MX number in the configured range",
	Long: `Submits each MC/MX number in [start, end] to the SAFER company snapshot,
keeps active carriers authorized for property in the ledger, and logs every
number the search could not reach to the failure log.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		applySweepFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
			reconcileStaleRuns(ctx, st, cfg.Store.StaleAfterMins, time.Now())
		}

		led, err := ledger.Open(cfg.Ledger.OutputPath, cfg.Ledger.FailureLogPath)
		if err != nil {
			return eris.Wrap(err, "sweep: open ledger")
		}

		rod, err := session.OpenRod(ctx, sessionOptions(cfg))
		if err != nil {
			_ = led.Close()
			return eris.Wrap(err, "sweep: open session")
		}

		trigger, err := initNotifier(cfg, rod)
		if err != nil {
			_ = rod.Close()
			_ = led.Close()
			return err
		}

		pacer, cooldown := initPacing(cfg)
		opts := []sweep.Option{
			sweep.WithPacer(pacer),
			sweep.WithCooldown(cooldown),
			sweep.WithResource("session", rod),
		}
		if st != nil {
			opts = append(opts, sweep.WithJournal(st))
		}

		driver := sweep.New(led, opts...)
		p := pipeline.New(rod, verify.NewClassifier(), trigger)

		summary := driver.Run(ctx, cfg.Range.Start, cfg.Range.End, p)
		fmt.Fprintln(os.Stdout, formatSummary(summary))

		if summary.Cancelled {
			zap.L().Warn("sweep: stopped before the end of the range; rerun from the next number to resume")
		}
		return nil
	},
}

type runReconciler interface {
	AbandonStaleRuns(ctx context.Context, cutoff time.Time) (int64, error)
}

// reconcileStaleRuns marks runs left running by a killed process as
// abandoned. Failures are logged; the journal never blocks a sweep.
func reconcileStaleRuns(ctx context.Context, st runReconciler, staleAfterMins int, now time.Time) {
	if staleAfterMins <= 0 {
		return
	}
	n, err := st.AbandonStaleRuns(ctx, now.Add(-time.Duration(staleAfterMins)*time.Minute))
	if err != nil {
		zap.L().Warn("sweep: reconcile stale runs", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("sweep: marked stale runs abandoned", zap.Int64("runs", n))
	}
}

// applySweepFlags overlays explicitly set flags on the loaded config.
func applySweepFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("start") {
		c.Range.Start, _ = flags.GetInt("start")
	}
	if flags.Changed("end") {
		c.Range.End, _ = flags.GetInt("end")
	}
	if flags.Changed("output") {
		c.Ledger.OutputPath, _ = flags.GetString("output")
	}
	if flags.Changed("failure-log") {
		c.Ledger.FailureLogPath, _ = flags.GetString("failure-log")
	}
	if flags.Changed("notify") {
		c.Notify.Enabled, _ = flags.GetBool("notify")
	}
	if flags.Changed("headless") {
		c.Session.Headless, _ = flags.GetBool("headless")
	}
}

func formatSummary(s model.RunSummary) string {
	rows := [][]string{
		{"Processed", strconv.Itoa(s.Total)},
		{"Verified (ledger rows)", strconv.Itoa(s.Verified)},
		{"Rejected", strconv.Itoa(s.Rejected)},
		{"Search failures", strconv.Itoa(s.SessionFailed)},
		{"Errors", strconv.Itoa(s.Errored)},
		{"Cancelled", strconv.FormatBool(s.Cancelled)},
	}
	return renderTable("Sweep summary", []string{"Outcome", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}

func init() {
	sweepCmd.Flags().Int("start", 0, "first MC/MX number (overrides range.start)")
	sweepCmd.Flags().Int("end", 0, "last MC/MX number, inclusive (overrides range.end)")
	sweepCmd.Flags().String("output", "", "ledger path, .xlsx or .csv (overrides ledger.output_path)")
	sweepCmd.Flags().String("failure-log", "", "failure log path (overrides ledger.failure_log_path)")
	sweepCmd.Flags().Bool("notify", false, "send outreach emails (overrides notify.enabled)")
	sweepCmd.Flags().Bool("headless", true, "run the browser headless (overrides session.headless)")
	rootCmd.AddCommand(sweepCmd)
}
