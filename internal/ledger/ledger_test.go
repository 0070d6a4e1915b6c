package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/safer-cli/internal/model"
)

func sampleRow(id int) model.LedgerRow {
	return model.LedgerRow{
		Identifier: id,
		Record: model.CarrierRecord{
			LegalName:          "ACME TRUCKING LLC",
			RegistrationNumber: "1234567",
			Address:            "1 MAIN ST\nSPRINGFIELD, IL 62701",
			Telephone:          "(555) 123-4567",
			Email:              "ops@acme.com",
		},
		Followup: model.FollowupNotAttempted,
	}
}

func openTemp(t *testing.T, name string) (*Ledger, string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	failPath := filepath.Join(dir, "failed_to_search.txt")
	l, err := Open(path, failPath)
	require.NoError(t, err)
	return l, path, failPath
}

func TestXLSX_HeaderWrittenOnce(t *testing.T) {
	l, path, failPath := openTemp(t, "carrier_data.xlsx")
	require.NoError(t, l.AppendRow(sampleRow(1)))
	require.NoError(t, l.AppendRow(sampleRow(2)))
	require.NoError(t, l.Close())

	// Reopen the same file for a second run.
	l, err := Open(path, failPath)
	require.NoError(t, err)
	require.NoError(t, l.AppendRow(sampleRow(3)))
	require.NoError(t, l.Close())

	header, err := ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, Header, header)

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].Identifier)
	assert.Equal(t, 2, rows[1].Identifier)
	assert.Equal(t, 3, rows[2].Identifier)
	assert.Equal(t, "ops@acme.com", rows[2].Record.Email)
	assert.Equal(t, model.FollowupNotAttempted, rows[2].Followup)
}

func TestXLSX_EmptyLedgerHasOnlyHeader(t *testing.T) {
	l, path, _ := openTemp(t, "carrier_data.xlsx")
	require.NoError(t, l.Close())

	header, err := ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, Header, header)

	rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestXLSX_NoTempFilesLeftBehind(t *testing.T) {
	l, path, _ := openTemp(t, "carrier_data.xlsx")
	require.NoError(t, l.AppendRow(sampleRow(7)))
	require.NoError(t, l.Close())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover %s", e.Name())
	}
}

func TestCSV_HeaderAndRows(t *testing.T) {
	l, path, failPath := openTemp(t, "carrier_data.csv")
	require.NoError(t, l.AppendRow(sampleRow(10)))
	require.NoError(t, l.Close())

	l, err := Open(path, failPath)
	require.NoError(t, err)
	unavailable := sampleRow(11)
	unavailable.Record = model.UnavailableRecord()
	require.NoError(t, l.AppendRow(unavailable))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "MC-MX Number"))

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1 MAIN ST\nSPRINGFIELD, IL 62701", rows[0].Record.Address)
	assert.Equal(t, model.Unavailable, rows[1].Record.Email)
	assert.Equal(t, model.Unavailable, rows[1].Record.LegalName)
}

func TestAppendRow_EmptyFieldsBecomeSentinel(t *testing.T) {
	l, path, _ := openTemp(t, "carrier_data.csv")
	require.NoError(t, l.AppendRow(model.LedgerRow{Identifier: 5, Followup: model.FollowupNotAttempted}))
	require.NoError(t, l.Close())

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.Unavailable, rows[0].Record.Telephone)
}

func TestAppendFailure(t *testing.T) {
	l, _, failPath := openTemp(t, "carrier_data.xlsx")
	require.NoError(t, l.AppendFailure(model.FailureEntry{Identifier: 1635001, Reason: "Company search not found"}))
	require.NoError(t, l.AppendFailure(model.FailureEntry{Identifier: 1635002, Reason: "navigate\nfailed"}))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(failPath)
	require.NoError(t, err)
	assert.Equal(t,
		"1635001 - Company search not found\n1635002 - navigate failed\n",
		string(data))
}

func TestAppendFailure_AppendsAcrossRuns(t *testing.T) {
	l, path, failPath := openTemp(t, "carrier_data.xlsx")
	require.NoError(t, l.AppendFailure(model.FailureEntry{Identifier: 1, Reason: "a"}))
	require.NoError(t, l.Close())

	l, err := Open(path, failPath)
	require.NoError(t, err)
	require.NoError(t, l.AppendFailure(model.FailureEntry{Identifier: 2, Reason: "b"}))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(failPath)
	require.NoError(t, err)
	assert.Equal(t, "1 - a\n2 - b\n", string(data))
}

func TestOpen_Locked(t *testing.T) {
	l, path, failPath := openTemp(t, "carrier_data.xlsx")
	defer l.Close() //nolint:errcheck

	_, err := Open(path, failPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestOpen_LockReleasedOnClose(t *testing.T) {
	l, path, failPath := openTemp(t, "carrier_data.xlsx")
	require.NoError(t, l.Close())

	l2, err := Open(path, failPath)
	require.NoError(t, err)
	assert.NoError(t, l2.Close())
}

func TestReadRows_BadIdentifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	content := strings.Join(Header, ",") + "\nabc,x,x,x,x,x,Not Yet\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := ReadRows(path)
	assert.Error(t, err)
}

func TestOpen_RequiresFailureLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carrier_data.xlsx")

	_, err := Open(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failure log path is required")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no table should be created")
}
