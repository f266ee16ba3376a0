package safeband

import (
	"fmt"
	"math"
)

// Correction describes one correction event.
type Correction struct {
	Value           float64  // Committed value replacing the raw candidate
	Delta           float64  // candidate - F
	Rate            float64  // Mean recent history delta (0 when unknown)
	RateKnown       bool     // History was long enough to estimate Rate
	EffectiveFactor float64  // Fraction of Delta actually applied
	Strategy        string   // Strategy name, "fixed" for FixedPolicy
	Threshold       float64  // Threshold of the selected strategy
	Severity        Severity // Log severity of the event
}

// CorrectionPolicy turns an out-of-band candidate into a committed value.
//
// history is the committed history up to and including f. Implementations
// must not retain or modify it.
type CorrectionPolicy interface {
	Correct(f, candidate, multiplier float64, history []float64) Correction
}

// PolicyKind selects a CorrectionPolicy implementation from config.
type PolicyKind string

const (
	PolicyFixed    PolicyKind = "fixed"    // Single fixed factor, the base behavior
	PolicyAdaptive PolicyKind = "adaptive" // Strategy table with rate damping
)

// Policy defaults.
const (
	DefaultFixedFactor = 0.5
	DefaultSoftness    = 0.3
	DefaultRateWindow  = 3
)

// FixedPolicy applies the same factor to every correction regardless of
// multiplier magnitude or recent history.
type FixedPolicy struct {
	Factor   float64
	Severity Severity
}

// NewFixedPolicy returns the base fixed-factor policy.
func NewFixedPolicy() FixedPolicy {
	return FixedPolicy{Factor: DefaultFixedFactor, Severity: SeverityInfo}
}

// Correct implements CorrectionPolicy.
func (p FixedPolicy) Correct(f, candidate, _ float64, _ []float64) Correction {
	delta := candidate - f
	return Correction{
		Value:           f + delta*p.Factor,
		Delta:           delta,
		EffectiveFactor: p.Factor,
		Strategy:        string(PolicyFixed),
		Severity:        p.Severity,
	}
}

// AdaptivePolicy selects a strategy by multiplier and damps its factor by
// both the size of the jump and the recent rate of change:
//
//	eff = cf · L/(L+|delta|) · 1/(1+|rate|)
//
// eff never exceeds cf and never reaches zero.
type AdaptivePolicy struct {
	Strategies StrategyTable
	Softness   float64 // L, must be > 0
	Window     int     // W, trailing deltas averaged for the rate
}

// NewAdaptivePolicy validates the softness constant and window.
func NewAdaptivePolicy(table StrategyTable, softness float64, window int) (AdaptivePolicy, error) {
	if !(softness > 0) || math.IsInf(softness, 0) {
		return AdaptivePolicy{}, fmt.Errorf("%w: softness %v must be finite and > 0", ErrInvalidPolicy, softness)
	}
	if window < 1 {
		return AdaptivePolicy{}, fmt.Errorf("%w: rate window %d must be >= 1", ErrInvalidPolicy, window)
	}
	if len(table.ordered) == 0 {
		return AdaptivePolicy{}, fmt.Errorf("%w: empty strategy table", ErrInvalidPolicy)
	}
	return AdaptivePolicy{Strategies: table, Softness: softness, Window: window}, nil
}

// Correct implements CorrectionPolicy.
func (p AdaptivePolicy) Correct(f, candidate, multiplier float64, history []float64) Correction {
	s := p.Strategies.Select(multiplier)
	delta := candidate - f
	rate, known := rateOfChange(history, p.Window)
	eff := EffectiveFactor(s.CorrectionFactor, p.Softness, delta, rate)

	return Correction{
		Value:           f + delta*eff,
		Delta:           delta,
		Rate:            rate,
		RateKnown:       known,
		EffectiveFactor: eff,
		Strategy:        s.Name,
		Threshold:       s.Threshold,
		Severity:        s.Severity,
	}
}

// EffectiveFactor is the damped correction factor. Both denominators are
// strictly positive for softness > 0.
//
// The softness ratio is formed first so it stays <= 1 after rounding;
// eff == cf exactly when delta and rate are both zero.
func EffectiveFactor(cf, softness, delta, rate float64) float64 {
	soft := softness / (softness + math.Abs(delta))
	return cf * soft / (1 + math.Abs(rate))
}

// RateOfChange is the mean of the last window consecutive deltas of
// history. It is exactly 0 when history holds fewer than window+1 values.
func RateOfChange(history []float64, window int) float64 {
	rate, _ := rateOfChange(history, window)
	return rate
}

func rateOfChange(history []float64, window int) (float64, bool) {
	if window < 1 || len(history) < window+1 {
		return 0, false
	}
	tail := history[len(history)-window-1:]
	var sum float64
	for i := 1; i < len(tail); i++ {
		sum += tail[i] - tail[i-1]
	}
	return sum / float64(window), true
}
