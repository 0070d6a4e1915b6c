package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/safer-cli/internal/model"
)

const sampleDetail = "Legal Name: ACME FREIGHT LLC\nU.S. DOT#: 1234567\nAddress: 1 MAIN ST\nSPRINGFIELD, IL 62701\nTelephone: (555) 123-4567\nEmail: dispatch@acmefreight.com\n"

func TestBuildExtractOutput(t *testing.T) {
	out := buildExtractOutput(sampleDetail)

	assert.Equal(t, "ACME FREIGHT LLC", out.Record.LegalName)
	assert.Equal(t, "ACME FREIGHT", out.DisplayName)
	assert.Equal(t, 5, out.FieldsFound)
	assert.True(t, out.Notifiable)
}

func TestBuildExtractOutput_Empty(t *testing.T) {
	out := buildExtractOutput("")

	assert.Equal(t, model.UnavailableRecord(), out.Record)
	assert.Equal(t, model.Unavailable, out.DisplayName)
	assert.Zero(t, out.FieldsFound)
	assert.False(t, out.Notifiable)
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detail.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleDetail), 0o644))

	got, err := readInput(nil, path)
	require.NoError(t, err)
	assert.Equal(t, sampleDetail, got)

	got, err = readInput(strings.NewReader("from stdin"), "-")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	_, err = readInput(nil, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestExtractCommand_PrintsJSON(t *testing.T) {
	var out bytes.Buffer
	extractCmd.SetIn(strings.NewReader(sampleDetail))
	extractCmd.SetOut(&out)
	extractFile = "-"
	t.Cleanup(func() {
		extractCmd.SetIn(nil)
		extractCmd.SetOut(nil)
		extractFile = ""
	})

	require.NoError(t, extractCmd.RunE(extractCmd, nil))

	var decoded extractOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "dispatch@acmefreight.com", decoded.Record.Email)
	assert.Equal(t, "(555) 123-4567", decoded.Record.Telephone)
}
