package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/safer-cli/internal/config"
	"github.com/sells-group/safer-cli/internal/model"
)

func newSweepFlags(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "sweep"}
	cmd.Flags().Int("start", 0, "")
	cmd.Flags().Int("end", 0, "")
	cmd.Flags().String("output", "", "")
	cmd.Flags().String("failure-log", "", "")
	cmd.Flags().Bool("notify", false, "")
	cmd.Flags().Bool("headless", true, "")
	return cmd
}

func TestApplySweepFlags_OnlyChangedFlags(t *testing.T) {
	cmd := newSweepFlags(t)
	require.NoError(t, cmd.Flags().Parse([]string{"--start", "1635000", "--output", "run.csv"}))

	c := &config.Config{}
	c.Range.End = 1635100
	c.Ledger.OutputPath = "carrier_data.xlsx"
	c.Session.Headless = false
	c.Notify.Enabled = true

	applySweepFlags(cmd, c)

	assert.Equal(t, 1635000, c.Range.Start)
	assert.Equal(t, 1635100, c.Range.End, "unset flag keeps config value")
	assert.Equal(t, "run.csv", c.Ledger.OutputPath)
	assert.False(t, c.Session.Headless)
	assert.True(t, c.Notify.Enabled)
}

func TestApplySweepFlags_BooleanOverrides(t *testing.T) {
	cmd := newSweepFlags(t)
	require.NoError(t, cmd.Flags().Parse([]string{"--notify=false", "--headless=false"}))

	c := &config.Config{}
	c.Notify.Enabled = true
	c.Session.Headless = true

	applySweepFlags(cmd, c)

	assert.False(t, c.Notify.Enabled)
	assert.False(t, c.Session.Headless)
}

func TestFormatSummary(t *testing.T) {
	out := formatSummary(model.RunSummary{Total: 4, Verified: 1, SessionFailed: 3})
	assert.Contains(t, out, "Sweep summary")
	assert.Contains(t, out, "Search failures")
	assert.Contains(t, out, "Verified (ledger rows)")
}

type fakeReconciler struct {
	cutoffs []time.Time
	n       int64
	err     error
}

func (f *fakeReconciler) AbandonStaleRuns(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.n, f.err
}

func TestReconcileStaleRuns(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	f := &fakeReconciler{n: 2}
	reconcileStaleRuns(context.Background(), f, 60, now)
	require.Len(t, f.cutoffs, 1)
	assert.Equal(t, now.Add(-time.Hour), f.cutoffs[0])

	disabled := &fakeReconciler{}
	reconcileStaleRuns(context.Background(), disabled, 0, now)
	assert.Empty(t, disabled.cutoffs)

	failing := &fakeReconciler{err: errors.New("locked")}
	assert.NotPanics(t, func() { reconcileStaleRuns(context.Background(), failing, 30, now) })
}
