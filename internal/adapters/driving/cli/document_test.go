package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

// executeCommand runs the root command with args and returns its output.
func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range documentCmd.Commands() {
		names = append(names, c.Name())
	}

	assert.ElementsMatch(t, []string{"submit", "status", "list", "chunks", "tables"}, names)
}

func TestDocumentCmds_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	SetServices(nil)

	tests := [][]string{
		{"document", "submit", "file.pdf"},
		{"document", "status", "doc-1"},
		{"document", "list"},
		{"document", "chunks", "doc-1"},
		{"document", "tables", "doc-1"},
	}
	for _, args := range tests {
		t.Run(args[1], func(t *testing.T) {
			_, err := executeCommand(args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "document service not configured")
		})
	}
}

func TestDocumentSubmit(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	path := writeTestFile(t, "notes.txt", "hello world")

	out, err := executeCommand("document", "submit", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Submitted notes.txt as doc-1")
	assert.Equal(t, "hello world", ts.documents.submitted["notes.txt"])
}

func TestDocumentSubmit_MissingFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("document", "submit", filepath.Join(t.TempDir(), "absent.pdf"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}

func TestDocumentSubmit_RequiresFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("document", "submit")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestDocumentSubmit_Wait(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	original := submitPollPeriod
	submitPollPeriod = time.Millisecond
	defer func() { submitPollPeriod = original }()
	ts.documents.statuses = []domain.DocumentStatus{domain.StatusPending, domain.StatusProcessing, domain.StatusReady}

	out, err := executeCommand("document", "submit", "--wait", writeTestFile(t, "invoice.pdf", "%PDF"))

	require.NoError(t, err)
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "2 pages, 2 chunks")
}

func TestDocumentSubmit_WaitFailed(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	original := submitPollPeriod
	submitPollPeriod = time.Millisecond
	defer func() { submitPollPeriod = original }()
	ts.documents.statuses = []domain.DocumentStatus{domain.StatusFailed}

	out, err := executeCommand("document", "submit", "-w", writeTestFile(t, "scan.png", "png"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 documents failed")
	assert.Contains(t, out, "error: unsupported content")
}

func TestDocumentStatus(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "status", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document: doc-1")
	assert.Contains(t, out, "Filename:    invoice.pdf")
	assert.Contains(t, out, "Uploaded:    2026-03-01 09:30:00")
	assert.Contains(t, out, "Tables:      1")
}

func TestDocumentStatus_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "status", "doc-1", "--json")

	require.NoError(t, err)
	var got domain.DocumentSummary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "doc-1", got.DocumentID)
	assert.Equal(t, 2, got.Chunks)
}

func TestDocumentStatus_NotFound(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("document", "status", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentList(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "invoice.pdf")
	assert.Contains(t, out, "Total: 1 documents")
}

func TestDocumentList_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.documents.listErr = errors.New("registry unavailable")

	_, err := executeCommand("document", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list documents")
}

func TestDocumentChunks(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "chunks", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "--- c1 (page 1, 17 chars)")
	assert.Contains(t, out, "Total: $1,200")
}

func TestDocumentChunks_Page(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "chunks", "doc-1", "--page", "2")

	require.NoError(t, err)
	assert.NotContains(t, out, "c1")
	assert.Contains(t, out, "--- c2 (page 2, 13 chars)")
}

func TestDocumentChunks_PageWithoutChunks(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "chunks", "doc-1", "-p", "7")

	require.NoError(t, err)
	assert.Contains(t, out, "No chunks.")
}

func TestDocumentTables(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "tables", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "--- page 2, table 0 (2x2)")
	assert.Contains(t, out, "Widget | $10")
}

func TestDocumentTables_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("document", "tables", "doc-1", "--json")

	require.NoError(t, err)
	var got []domain.Table
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, [][]string{{"Item", "Cost"}, {"Widget", "$10"}}, got[0].Data)
}
