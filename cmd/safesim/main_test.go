package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alexshd/safeband"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRun_LogsSimulation(t *testing.T) {
	_, logs, err := execute(t, "run", "-n", "5", "--seed", "1", "--no-color")
	require.NoError(t, err)

	assert.Contains(t, logs, "simulation starting")
	assert.Contains(t, logs, "initial state")
	assert.Equal(t, 5, strings.Count(logs, "iteration "))
	assert.Contains(t, logs, "final risk metrics")
	assert.Contains(t, logs, "trajectory")
}

func TestRun_Plot(t *testing.T) {
	out, _, err := execute(t, "run", "-n", "20", "--seed", "3", "--plot", "--plot-width", "20", "--plot-height", "6", "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "F history")
	assert.Contains(t, out, "Volatility |F - F0|")
	assert.Contains(t, out, barCell)
}

func TestRun_FixedPolicyExtended(t *testing.T) {
	_, logs, err := execute(t, "run", "--extended", "--policy", "fixed", "-n", "10", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, logs, "policy=fixed")
}

func TestRun_SameSeedSameOutput(t *testing.T) {
	a, _, err := execute(t, "run", "-n", "15", "--seed", "8", "--plot", "--no-color")
	require.NoError(t, err)
	b, _, err := execute(t, "run", "-n", "15", "--seed", "8", "--plot", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRun_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iterations: 3\nseed: 5\n"), 0o644))

	_, logs, err := execute(t, "run", "-c", path, "--no-color")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(logs, "iteration "))
}

func TestRun_Errors(t *testing.T) {
	_, _, err := execute(t, "run", "--policy", "magic")
	assert.Error(t, err)

	_, _, err = execute(t, "run", "--log-level", "shouty")
	assert.Error(t, err)

	_, _, err = execute(t, "run", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, _, err = execute(t, "run", "extra-arg")
	assert.Error(t, err)
}

func TestSweep_PrintsTable(t *testing.T) {
	out, logs, err := execute(t, "sweep", "--runs", "4", "-n", "10", "--seed", "2", "--concurrency", "2", "--no-color")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "run"))
	assert.Contains(t, lines[1], "2")
	assert.Contains(t, logs, "sweep complete")
	assert.NotContains(t, logs, "initial state", "per-run info logs are suppressed")
}

func TestNewLogger_CriticalLabel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "debug", true)
	require.NoError(t, err)

	logger.Log(t.Context(), safeband.LevelCritical, "correction applied")
	logger.Warn("plain warning")

	assert.Contains(t, buf.String(), "CRIT correction applied")
	assert.Contains(t, buf.String(), "plain warning")
	assert.NotContains(t, buf.String(), "CRIT plain warning")
}

func TestQuietLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "debug", true)
	require.NoError(t, err)

	q := quietLogger(logger).With("run", "abc")
	q.Info("dropped")
	q.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
	assert.Contains(t, buf.String(), "run=abc")
}

func TestRun_ZeroIterations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iterations: 12\n"), 0o644))

	_, logs, err := execute(t, "run", "-c", path, "-n", "0", "--no-color")
	require.NoError(t, err)
	assert.Equal(t, 0, strings.Count(logs, "iteration "))
	assert.Contains(t, logs, "final risk metrics")

	_, logs, err = execute(t, "run", "-c", path, "--no-color")
	require.NoError(t, err)
	assert.Equal(t, 12, strings.Count(logs, "iteration "))
}
