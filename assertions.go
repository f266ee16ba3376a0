package safeband

import (
	"fmt"
	"math"
	"testing"
)

// AssertHistoryInvariant verifies len(history) == t+1, the history starts at
// the initial value and ends at the current state.
func AssertHistoryInvariant(t testing.TB, e *Engine) {
	t.Helper()

	h := e.History()
	if len(h) != e.T()+1 {
		t.Errorf("History length %d, expected t+1 = %d", len(h), e.T()+1)
		return
	}
	if h[0] != e.Initial() {
		t.Errorf("History starts at %.6f, expected initial F %.6f", h[0], e.Initial())
	}
	if h[len(h)-1] != e.F() {
		t.Errorf("History ends at %.6f, expected current F %.6f", h[len(h)-1], e.F())
	}
	if v := e.VolatilityHistory(); len(v) != e.T() {
		t.Errorf("Volatility history length %d, expected t = %d", len(v), e.T())
	}
}

// AssertFiniteHistory fails if any committed F is NaN or infinite.
func AssertFiniteHistory(t testing.TB, e *Engine) {
	t.Helper()

	for i, f := range e.History() {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			t.Errorf("F at step %d is not finite: %v", i, f)
			return
		}
	}
}

// AssertMonotonicSelection verifies that for ascending multipliers the
// selected strategy never becomes less aggressive.
func AssertMonotonicSelection(t testing.TB, table StrategyTable, multipliers []float64) {
	t.Helper()

	if err := CheckMonotonicSelection(table, multipliers); err != nil {
		t.Errorf("Selection not monotonic: %v", err)
	}
}

// CheckMonotonicSelection is the error-returning form of
// AssertMonotonicSelection. multipliers must be sorted ascending.
func CheckMonotonicSelection(table StrategyTable, multipliers []float64) error {
	prevRank := -1
	prevM := math.Inf(-1)
	for _, m := range multipliers {
		if m < prevM {
			return fmt.Errorf("multipliers not ascending at %.6f", m)
		}
		s := table.Select(m)
		rank := table.Rank(s.Name)
		if rank < prevRank {
			return fmt.Errorf("multiplier %.6f selected %s (rank %d) after rank %d at %.6f",
				m, s.Name, rank, prevRank, prevM)
		}
		prevRank, prevM = rank, m
	}
	return nil
}

// PrintRun logs a per-step table of an engine's history to the test log.
func PrintRun(t testing.TB, e *Engine) {
	t.Helper()

	h := e.History()
	v := e.VolatilityHistory()
	m := e.Metrics()

	t.Logf("\n=== Run (t=%d) ===", e.T())
	t.Logf("  step  F           |F-F0|")
	t.Logf("  ----  ----------  ----------")
	t.Logf("  %-4d  %10.4f  %10s", 0, h[0], "-")
	for i := 1; i < len(h); i++ {
		t.Logf("  %-4d  %10.4f  %10.4f", i, h[i], v[i-1])
	}
	t.Logf("Risk: volatility=%.4f max_deviation=%.4f corrections=%d",
		m.TotalVolatility, m.MaxDeviation, m.CorrectionCount)
}
