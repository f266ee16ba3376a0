package safeband

import (
	"log/slog"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategyTable_Select(t *testing.T) {
	table, err := NewStrategyTable(DefaultStrategies(), DefaultStrategyName)
	require.NoError(t, err)

	tests := []struct {
		multiplier float64
		want       string
	}{
		{2.5, "aggressive"},
		{1.51, "aggressive"},
		{1.5, "moderate"}, // strict: threshold must be below the multiplier
		{1.3, "moderate"},
		{1.2, "gentle"},
		{1.15, "gentle"},
		{1.1, "gentle"}, // fallback
		{0.4, "gentle"}, // fallback
	}

	for _, tc := range tests {
		got := table.Select(tc.multiplier)
		if got.Name != tc.want {
			t.Errorf("Select(%.2f) = %s, expected %s", tc.multiplier, got.Name, tc.want)
		}
	}
}

func TestStrategyTable_ExtendedSet(t *testing.T) {
	table, err := NewStrategyTable(ExtendedStrategies(), DefaultStrategyName)
	require.NoError(t, err)

	s := table.Select(2.2)
	assert.Equal(t, "super_aggressive", s.Name)
	assert.Equal(t, 0.5, s.CorrectionFactor)
	assert.Equal(t, SeverityCritical, s.Severity)

	assert.Equal(t, "aggressive", table.Select(1.9).Name)
}

func TestStrategyTable_FallbackNeverFails(t *testing.T) {
	// No threshold below the observed multiplier.
	strategies := []Strategy{
		{Name: "high", Threshold: 5, CorrectionFactor: 0.4, Severity: SeverityWarning},
		{Name: "gentle", Threshold: 3, CorrectionFactor: 0.1, Severity: SeverityDebug},
	}
	table, err := NewStrategyTable(strategies, "gentle")
	require.NoError(t, err)

	for _, m := range []float64{-1, 0, 1, 2.99, 3} {
		assert.Equal(t, "gentle", table.Select(m).Name, "multiplier %.2f", m)
	}
}

func TestStrategyTable_DefaultIsLowestWhenUnnamed(t *testing.T) {
	table, err := NewStrategyTable(DefaultStrategies(), "")
	require.NoError(t, err)
	assert.Equal(t, "gentle", table.Fallback().Name)
}

func TestStrategyTable_Ordering(t *testing.T) {
	shuffled := []Strategy{
		{Name: "gentle", Threshold: 1.1, CorrectionFactor: 0.1, Severity: SeverityDebug},
		{Name: "aggressive", Threshold: 1.5, CorrectionFactor: 0.3, Severity: SeverityWarning},
		{Name: "moderate", Threshold: 1.2, CorrectionFactor: 0.2, Severity: SeverityInfo},
	}
	table, err := NewStrategyTable(shuffled, "")
	require.NoError(t, err)

	var names []string
	for _, s := range table.Strategies() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"aggressive", "moderate", "gentle"}, names)
	assert.Equal(t, 2, table.Rank("aggressive"))
	assert.Equal(t, 0, table.Rank("gentle"))
	assert.Equal(t, -1, table.Rank("missing"))
}

func TestNewStrategyTable_Rejects(t *testing.T) {
	ok := Strategy{Name: "a", Threshold: 1, CorrectionFactor: 0.5, Severity: SeverityInfo}

	tests := []struct {
		name        string
		strategies  []Strategy
		defaultName string
	}{
		{"empty", nil, ""},
		{"zero factor", []Strategy{{Name: "a", Threshold: 1, CorrectionFactor: 0, Severity: SeverityInfo}}, ""},
		{"factor above one", []Strategy{{Name: "a", Threshold: 1, CorrectionFactor: 1.5, Severity: SeverityInfo}}, ""},
		{"no name", []Strategy{{Threshold: 1, CorrectionFactor: 0.5, Severity: SeverityInfo}}, ""},
		{"bad severity", []Strategy{{Name: "a", Threshold: 1, CorrectionFactor: 0.5, Severity: "loud"}}, ""},
		{"duplicate threshold", []Strategy{ok, {Name: "b", Threshold: 1, CorrectionFactor: 0.2, Severity: SeverityInfo}}, ""},
		{"duplicate name", []Strategy{ok, {Name: "a", Threshold: 2, CorrectionFactor: 0.2, Severity: SeverityInfo}}, ""},
		{"unknown default", []Strategy{ok}, "gentle"},
		{"default above lowest threshold", DefaultStrategies(), "aggressive"},
		{"default in the middle", ExtendedStrategies(), "moderate"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewStrategyTable(tc.strategies, tc.defaultName)
			assert.ErrorIs(t, err, ErrInvalidStrategy)
		})
	}
}

func TestSeverity_Level(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, SeverityDebug.Level())
	assert.Equal(t, slog.LevelInfo, SeverityInfo.Level())
	assert.Equal(t, slog.LevelWarn, SeverityWarning.Level())
	assert.Equal(t, LevelCritical, SeverityCritical.Level())
	assert.Greater(t, LevelCritical, slog.LevelError)
	assert.Equal(t, slog.LevelInfo, Severity("unknown").Level())
}

// Larger multipliers never select a strictly less aggressive strategy.
func TestStrategyTable_MonotonicSelection(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("selection is monotonic in the multiplier", prop.ForAll(
		func(thresholds []float64, multipliers []float64, defaultIdx int) bool {
			seen := map[float64]bool{}
			var strategies []Strategy
			for i, th := range thresholds {
				if seen[th] {
					continue
				}
				seen[th] = true
				strategies = append(strategies, Strategy{
					Name:             string(rune('a' + i)),
					Threshold:        th,
					CorrectionFactor: 0.5,
					Severity:         SeverityInfo,
				})
			}
			if len(strategies) == 0 {
				return true
			}

			// Any configured default is either the lowest tier or rejected.
			lowest := strategies[0]
			for _, s := range strategies[1:] {
				if s.Threshold < lowest.Threshold {
					lowest = s
				}
			}
			def := strategies[defaultIdx%len(strategies)]
			table, err := NewStrategyTable(strategies, def.Name)
			if def.Name != lowest.Name {
				return err != nil
			}
			if err != nil {
				return false
			}

			ms := append([]float64(nil), multipliers...)
			sort.Float64s(ms)
			return CheckMonotonicSelection(table, ms) == nil
		},
		gen.SliceOfN(6, gen.Float64Range(0, 3)),
		gen.SliceOf(gen.Float64Range(-1, 4)),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}

func TestAssertMonotonicSelection_Defaults(t *testing.T) {
	table, err := NewStrategyTable(ExtendedStrategies(), DefaultStrategyName)
	require.NoError(t, err)

	var ms []float64
	for m := 0.0; m <= 3.0; m += 0.01 {
		ms = append(ms, m)
	}
	AssertMonotonicSelection(t, table, ms)
}
