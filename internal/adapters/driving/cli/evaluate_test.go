package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docintel/internal/core/domain"
)

const testCasesYAML = `
- name: grounded
  answer: "Payment is due within 30 days of invoice."
  citations:
    - doc_id: d1
      page: 2
  evidence:
    - doc_id: d1
      page: 2
      text: "Payment is due within 30 days of invoice."
  expect_pass: true
- name: empty answer
  answer: ""
  expect_pass: false
`

func TestDecodeCases(t *testing.T) {
	cases, err := decodeCases(strings.NewReader(testCasesYAML))

	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "grounded", cases[0].Name)
	assert.Equal(t, "Payment is due within 30 days of invoice.", cases[0].Input.Answer)
	require.Len(t, cases[0].Input.Evidence, 1)
	assert.Equal(t, "Payment is due within 30 days of invoice.", cases[0].Input.Evidence[0].Text)
	require.Len(t, cases[0].Input.Citations, 1)
	assert.Equal(t, 2, cases[0].Input.Citations[0].Page)
	require.NotNil(t, cases[0].ExpectPass)
	assert.True(t, *cases[0].ExpectPass)
	require.NotNil(t, cases[1].ExpectPass)
	assert.False(t, *cases[1].ExpectPass)
}

func TestDecodeCases_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"empty list", "[]"},
		{"not a list", "name: single"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeCases(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestEvaluateCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("evaluate", writeTestFile(t, "cases.yaml", testCasesYAML))

	require.NoError(t, err)
	assert.Len(t, ts.evaluation.cases, 2)
	assert.Contains(t, out, "PASS grounded")
	assert.Contains(t, out, "FAIL empty answer")
	assert.Contains(t, out, "error: empty answer")
	assert.NotContains(t, out, "(unexpected)")
}

func TestEvaluateCmd_Mismatch(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	cases := `
- name: should pass
  answer: ""
  expect_pass: true
`

	out, err := executeCommand("evaluate", writeTestFile(t, "cases.yaml", cases))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 cases did not match")
	assert.Contains(t, out, "(unexpected)")
}

func TestEvaluateCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("evaluate", "--json", writeTestFile(t, "cases.yaml", testCasesYAML))

	require.NoError(t, err)
	var outcomes []domain.CaseOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcomes))
	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Result.Passed)
	assert.True(t, outcomes[1].Matched)
}

func TestEvaluateCmd_MissingFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("evaluate", "/nonexistent/cases.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open cases")
}

func TestEvaluateCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	SetServices(nil)

	_, err := executeCommand("evaluate", "cases.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluation service not configured")
}

func TestEvaluateCmd_TakesCasesFileArgument(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("evaluate")
	require.Error(t, err)

	_, err = executeCommand("evaluate", "--cases", writeTestFile(t, "cases.yaml", testCasesYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")

	assert.Equal(t, "evaluate <cases.yaml>", evaluateCmd.Use)
}
