package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/safer-cli/internal/model"
	"github.com/sells-group/safer-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect journaled sweep runs",
	Long:  "Commands for listing, viewing, and summarizing sweep runs recorded in the run journal.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sweep runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{Status: model.RunStatus(status), Limit: limit})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), formatRunsTable(runs))
		return nil
	},
}

// -- runs show --

// runDetail is the JSON shape of runs show.
type runDetail struct {
	Run      *model.Run          `json:"run"`
	Outcomes []model.ItemOutcome `json:"outcomes"`
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and every journaled outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		outcomes, err := st.ListOutcomes(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runDetail{Run: run, Outcomes: outcomes})
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate outcome counts across runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		since, _ := cmd.Flags().GetDuration("since")
		stats := computeRunStats(runs, since, time.Now())
		fmt.Fprintln(cmd.OutOrStdout(), formatRunStats(stats))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, cancelled)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 7*24*time.Hour, "time window for stats (0 for all runs)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Runs          int
	Complete      int
	Cancelled     int
	Running       int
	Abandoned     int
	Processed     int
	Verified      int
	Rejected      int
	SessionFailed int
	Errored       int
	AvgDurSecs    float64
}

// computeRunStats aggregates runs created within since of now. A zero since
// includes every run.
func computeRunStats(runs []model.Run, since time.Duration, now time.Time) runStats {
	var s runStats
	var totalDur time.Duration
	var durCount int

	for _, r := range runs {
		if since > 0 && r.CreatedAt.Before(now.Add(-since)) {
			continue
		}
		s.Runs++
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			totalDur += r.UpdatedAt.Sub(r.CreatedAt)
			durCount++
		case model.RunStatusCancelled:
			s.Cancelled++
		case model.RunStatusAbandoned:
			s.Abandoned++
		default:
			s.Running++
		}
		if r.Summary != nil {
			s.Processed += r.Summary.Total
			s.Verified += r.Summary.Verified
			s.Rejected += r.Summary.Rejected
			s.SessionFailed += r.Summary.SessionFailed
			s.Errored += r.Summary.Errored
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

// formatRunsTable renders one line per run.
func formatRunsTable(runs []model.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		var processed, verified string
		if r.Summary != nil {
			processed = strconv.Itoa(r.Summary.Total)
			verified = strconv.Itoa(r.Summary.Verified)
		}
		rows = append(rows, []string{
			truncateID(r.ID),
			fmt.Sprintf("%d-%d", r.RangeStart, r.RangeEnd),
			string(r.Status),
			processed,
			verified,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String(),
		})
	}
	return renderTable("Runs",
		[]string{"ID", "Range", "Status", "Processed", "Verified", "Created", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight},
	)
}

// formatRunStats renders aggregate stats.
func formatRunStats(s runStats) string {
	rows := [][]string{
		{"Runs", strconv.Itoa(s.Runs)},
		{"Complete", strconv.Itoa(s.Complete)},
		{"Cancelled", strconv.Itoa(s.Cancelled)},
		{"Running", strconv.Itoa(s.Running)},
		{"Abandoned", strconv.Itoa(s.Abandoned)},
		{"Numbers processed", strconv.Itoa(s.Processed)},
		{"Verified", strconv.Itoa(s.Verified)},
		{"Rejected", strconv.Itoa(s.Rejected)},
		{"Search failures", strconv.Itoa(s.SessionFailed)},
		{"Errors", strconv.Itoa(s.Errored)},
	}
	if s.AvgDurSecs > 0 {
		rows = append(rows, []string{"Avg duration", fmt.Sprintf("%.1fs", s.AvgDurSecs)})
	}
	return renderTable("Run stats", []string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
