package safeband

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// Severity is the log visibility of a correction strategy.
type Severity string

const (
	SeverityDebug    Severity = "debug"    // Barely visible, routine nudges
	SeverityInfo     Severity = "info"     // Normal corrections
	SeverityWarning  Severity = "warning"  // Large excursions
	SeverityCritical Severity = "critical" // Runaway multiplier
)

// LevelCritical sits above slog.LevelError.
const LevelCritical = slog.LevelError + 4

// Level maps the severity to a slog level. Unknown values log at info.
func (s Severity) Level() slog.Level {
	switch s {
	case SeverityDebug:
		return slog.LevelDebug
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityCritical:
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityDebug, SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Strategy is a named correction policy selected by multiplier magnitude.
type Strategy struct {
	Name             string   `yaml:"name"`
	Threshold        float64  `yaml:"threshold"`
	CorrectionFactor float64  `yaml:"correction_factor"`
	Severity         Severity `yaml:"severity"`
}

// Validate checks a single strategy.
func (s Strategy) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidStrategy)
	}
	if math.IsNaN(s.Threshold) || math.IsInf(s.Threshold, 0) {
		return fmt.Errorf("%w: %s threshold %v is not finite", ErrInvalidStrategy, s.Name, s.Threshold)
	}
	if !(s.CorrectionFactor > 0 && s.CorrectionFactor <= 1) {
		return fmt.Errorf("%w: %s correction factor %v outside (0, 1]", ErrInvalidStrategy, s.Name, s.CorrectionFactor)
	}
	if !s.Severity.Valid() {
		return fmt.Errorf("%w: %s severity %q", ErrInvalidStrategy, s.Name, s.Severity)
	}
	return nil
}

// DefaultStrategyName is the fallback used by DefaultStrategies.
const DefaultStrategyName = "gentle"

// DefaultStrategies returns the standard three-tier table.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "aggressive", Threshold: 1.5, CorrectionFactor: 0.3, Severity: SeverityWarning},
		{Name: "moderate", Threshold: 1.2, CorrectionFactor: 0.2, Severity: SeverityInfo},
		{Name: "gentle", Threshold: 1.1, CorrectionFactor: 0.1, Severity: SeverityDebug},
	}
}

// ExtendedStrategies adds a super_aggressive tier above the defaults.
func ExtendedStrategies() []Strategy {
	return append([]Strategy{
		{Name: "super_aggressive", Threshold: 2.0, CorrectionFactor: 0.5, Severity: SeverityCritical},
	}, DefaultStrategies()...)
}

// StrategyTable resolves a multiplier to a strategy.
//
// Strategies are held in descending threshold order. Select returns the
// first one whose threshold is strictly below the multiplier, and the
// fallback when none is.
type StrategyTable struct {
	ordered  []Strategy
	fallback Strategy
}

// NewStrategyTable validates and orders strategies. The fallback is always
// the lowest-threshold strategy so selection stays monotonic in the
// multiplier; a non-empty defaultName must name that strategy. Names and
// thresholds must be unique.
func NewStrategyTable(strategies []Strategy, defaultName string) (StrategyTable, error) {
	if len(strategies) == 0 {
		return StrategyTable{}, fmt.Errorf("%w: no strategies configured", ErrInvalidStrategy)
	}

	names := make(map[string]bool, len(strategies))
	thresholds := make(map[float64]string, len(strategies))
	for _, s := range strategies {
		if err := s.Validate(); err != nil {
			return StrategyTable{}, err
		}
		if names[s.Name] {
			return StrategyTable{}, fmt.Errorf("%w: duplicate name %s", ErrInvalidStrategy, s.Name)
		}
		if other, ok := thresholds[s.Threshold]; ok {
			return StrategyTable{}, fmt.Errorf("%w: %s and %s share threshold %.4f",
				ErrInvalidStrategy, other, s.Name, s.Threshold)
		}
		names[s.Name] = true
		thresholds[s.Threshold] = s.Name
	}

	ordered := append([]Strategy(nil), strategies...)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Threshold > ordered[j].Threshold
	})

	fallback := ordered[len(ordered)-1]
	if defaultName != "" && defaultName != fallback.Name {
		if !names[defaultName] {
			return StrategyTable{}, fmt.Errorf("%w: default strategy %q not configured", ErrInvalidStrategy, defaultName)
		}
		return StrategyTable{}, fmt.Errorf("%w: default strategy %q must have the lowest threshold (%s at %.4f)",
			ErrInvalidStrategy, defaultName, fallback.Name, fallback.Threshold)
	}

	return StrategyTable{ordered: ordered, fallback: fallback}, nil
}

// Select picks the strategy for a multiplier. It never fails.
func (t StrategyTable) Select(multiplier float64) Strategy {
	for _, s := range t.ordered {
		if s.Threshold < multiplier {
			return s
		}
	}
	return t.fallback
}

// Fallback returns the strategy used when no threshold is exceeded.
func (t StrategyTable) Fallback() Strategy { return t.fallback }

// Strategies returns the table in descending threshold order.
func (t StrategyTable) Strategies() []Strategy {
	return append([]Strategy(nil), t.ordered...)
}

// Rank returns the aggressiveness of a strategy: 0 for the lowest
// threshold, len-1 for the highest. Unknown names rank -1.
func (t StrategyTable) Rank(name string) int {
	for i, s := range t.ordered {
		if s.Name == name {
			return len(t.ordered) - 1 - i
		}
	}
	return -1
}
