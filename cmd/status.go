package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/safer-cli/internal/ledger"
	"github.com/sells-group/safer-cli/internal/model"
	"github.com/sells-group/safer-cli/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the ledger and recent runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		path := cfg.Ledger.OutputPath
		if p, _ := cmd.Flags().GetString("ledger"); p != "" {
			path = p
		}

		rows, err := ledger.ReadRows(path)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, formatLedgerStatus(path, summarizeLedger(rows)))

		limit, _ := cmd.Flags().GetInt("runs")
		if limit <= 0 {
			return nil
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st == nil {
			zap.L().Debug("status: no run journal configured")
			return nil
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: limit})
		if err != nil {
			return eris.Wrap(err, "status: list runs")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs journaled.")
			return nil
		}
		fmt.Fprintln(out, formatRunsTable(runs))
		return nil
	},
}

// ledgerStats counts ledger rows by followup status.
type ledgerStats struct {
	Rows       int
	WithEmail  int
	Unique     int
	ByFollowup map[model.FollowupStatus]int
}

func summarizeLedger(rows []model.LedgerRow) ledgerStats {
	s := ledgerStats{Rows: len(rows), ByFollowup: make(map[model.FollowupStatus]int)}
	seen := make(map[int]bool, len(rows))
	for _, r := range rows {
		s.ByFollowup[r.Followup]++
		if r.Record.HasEmail() {
			s.WithEmail++
		}
		if !seen[r.Identifier] {
			seen[r.Identifier] = true
			s.Unique++
		}
	}
	return s
}

func formatLedgerStatus(path string, s ledgerStats) string {
	rows := [][]string{
		{"Rows", strconv.Itoa(s.Rows)},
		{"Distinct MC/MX", strconv.Itoa(s.Unique)},
		{"With email", strconv.Itoa(s.WithEmail)},
	}
	for _, f := range []model.FollowupStatus{model.FollowupEmailSent, model.FollowupSendFailed, model.FollowupNotAttempted} {
		rows = append(rows, []string{"Followup: " + string(f), strconv.Itoa(s.ByFollowup[f])})
	}
	return renderTable(path, []string{"Ledger", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}

func init() {
	statusCmd.Flags().String("ledger", "", "ledger path (defaults to ledger.output_path)")
	statusCmd.Flags().Int("runs", 5, "number of recent journaled runs to show (0 to skip)")
	rootCmd.AddCommand(statusCmd)
}
