package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/safer-cli/internal/ledger"
	"github.com/sells-group/safer-cli/internal/model"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the ledger into the run journal's carriers table",
	Long:  "Reads every ledger row and upserts it into the carriers table keyed by MC/MX number, so the latest row per carrier can be queried with SQL.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		path := cfg.Ledger.OutputPath
		if p, _ := cmd.Flags().GetString("ledger"); p != "" {
			path = p
		}

		rows, err := ledger.ReadRows(path)
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.SyncCarriers(ctx, latestPerCarrier(rows))
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		zap.L().Info("sync: complete", zap.String("ledger", path), zap.Int("rows", len(rows)), zap.Int64("upserted", n))
		fmt.Fprintf(cmd.OutOrStdout(), "Synced %d carriers from %s\n", n, path)
		return nil
	},
}

func init() {
	syncCmd.Flags().String("ledger", "", "ledger path (defaults to ledger.output_path)")
	rootCmd.AddCommand(syncCmd)
}

// latestPerCarrier keeps the last row for each MC/MX number, in first-seen
// order. A single upsert batch must not touch the same key twice.
func latestPerCarrier(rows []model.LedgerRow) []model.LedgerRow {
	idx := make(map[int]int, len(rows))
	out := make([]model.LedgerRow, 0, len(rows))
	for _, r := range rows {
		if i, ok := idx[r.Identifier]; ok {
			out[i] = r
			continue
		}
		idx[r.Identifier] = len(out)
		out = append(out, r)
	}
	return out
}
