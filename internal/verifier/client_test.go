package verifier

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReportOK(t *testing.T) {
	res, err := parseReport(bytes.NewBufferString("OK\n"))
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Empty(t, res.Failures)
}

func TestParseReportSingleFailureNoModel(t *testing.T) {
	res, err := parseReport(bytes.NewBufferString("FAIL assertion.false 42\n"))
	require.NoError(t, err)
	assert.False(t, res.Verified)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "assertion.false", res.Failures[0].ReasonCode)
	assert.Equal(t, uint64(42), res.Failures[0].PositionID)
	assert.Empty(t, res.Failures[0].Counterexample)
}

func TestParseReportFailureWithModel(t *testing.T) {
	res, err := parseReport(bytes.NewBufferString("FAIL arithmetic.overflow 7 x=100 y=-1\n"))
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	f := res.Failures[0]
	assert.Equal(t, "arithmetic.overflow", f.ReasonCode)
	assert.Equal(t, uint64(7), f.PositionID)
	assert.Equal(t, "100", f.Counterexample["x"])
	assert.Equal(t, "-1", f.Counterexample["y"])
}

func TestParseReportMultipleFailures(t *testing.T) {
	res, err := parseReport(bytes.NewBufferString("FAIL division.by.zero 1\nFAIL no.offer 2\n"))
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Len(t, res.Failures, 2)
}

func TestParseReportRejectsMalformedPositionID(t *testing.T) {
	_, err := parseReport(bytes.NewBufferString("FAIL assertion.false not-a-number\n"))
	assert.Error(t, err)
}

func TestParseReportIgnoresBlankLinesAndUnknownLines(t *testing.T) {
	res, err := parseReport(bytes.NewBufferString("\n\nsome noise\nOK\n"))
	require.NoError(t, err)
	assert.True(t, res.Verified)
}

func TestResolveFromEnvRequiresBothVariables(t *testing.T) {
	t.Setenv("SMT_SOLVER_PATH", "")
	t.Setenv("AUX_VERIFIER_PATH", "")
	_, _, err := ResolveFromEnv()
	assert.Error(t, err)

	t.Setenv("SMT_SOLVER_PATH", "/usr/bin/z3")
	_, _, err = ResolveFromEnv()
	assert.Error(t, err, "AUX_VERIFIER_PATH still unset")

	t.Setenv("AUX_VERIFIER_PATH", "/usr/bin/civl-verifier")
	smt, aux, err := ResolveFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/z3", smt)
	assert.Equal(t, "/usr/bin/civl-verifier", aux)
}

func TestVerifyRejectsEmptyAuxPath(t *testing.T) {
	pc := NewProcessClient()
	_, err := pc.Verify(nil, nil, Options{})
	require.Error(t, err)
	var unavail *UnavailableError
	require.ErrorAs(t, err, &unavail)
}
