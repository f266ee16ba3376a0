// Package safeband simulates a bounded scalar state under stochastic drift
// and keeps it inside a safety band with an adaptive correction loop.
//
// # Overview
//
// A single state value F evolves step by step. Three independent stochastic
// modules each produce one sample per step; their weighted product is the
// multiplier applied to F. When the raw candidate leaves the safety band a
// correction policy pulls it back before it is committed.
//
// This is an illustrative simulation, not a controller: there is no
// convergence guarantee and no real actuator.
//
// # Components
//
//   - Source       - Uniform module samplers (internal state, external feedback, randomness)
//   - Strategy     - Threshold-keyed correction tiers with log severities
//   - Policy       - Fixed-factor or adaptive damped correction
//   - Engine       - State, history and risk metrics
//   - Sweep        - Independent seeded runs in parallel
//   - Assertions   - Test helpers for engine invariants
//
// # Quick Start
//
//	cfg := safeband.DefaultConfig()
//	engine, err := safeband.New(cfg, safeband.WithSeed(42), safeband.WithLogger(slog.Default()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := engine.Simulate("default", 30)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("corrections: %d\n", report.Metrics.CorrectionCount)
//
// # The Multiplier
//
// Each step:
//
//	multiplier = (i·A) · (e·B) · (r·C)
//	candidate  = F · multiplier
//
// The internal sample drifts upward as i·(1 + 0.01·t), so an uncorrected
// system is pushed out of the band over time.
//
// # Strategy Selection
//
// Strategies are ordered by descending threshold. The first whose threshold
// is strictly below the multiplier wins; if none is, the designated default
// (normally the gentlest) is used:
//
//	super_aggressive  2.0  cf=0.5  critical
//	aggressive        1.5  cf=0.3  warning
//	moderate          1.2  cf=0.2  info
//	gentle            1.1  cf=0.1  debug   (default)
//
// Larger multipliers never select a less aggressive strategy.
//
// # Damped Correction
//
// The adaptive policy applies a fraction of the raw jump:
//
//	delta = candidate - F
//	rate  = mean of the last W history deltas (0 until W+1 values exist)
//	eff   = cf · L/(L+|delta|) · 1/(1+|rate|)
//	F'    = F + delta·eff
//
// The factor shrinks as the jump grows (soft clamp, never a hard clip) and
// shrinks further when the recent trajectory is turbulent. 0 < eff ≤ cf.
//
// The fixed policy is the base case: F' = F + delta·0.5 regardless of
// multiplier or history.
//
// # Risk Metrics
//
//   - TotalVolatility: population stddev of |F_i - F_0| over all steps
//   - MaxDeviation: largest |delta| seen by a correction
//   - CorrectionCount: number of correction events
//
// Metrics are observational. Only the rate term reads history back into
// the correction.
//
// # Testing
//
//	func TestMyConfig(t *testing.T) {
//	    e, _ := safeband.New(cfg, safeband.WithSeed(1))
//	    e.Simulate(nil, 100)
//
//	    safeband.AssertHistoryInvariant(t, e)
//	    safeband.AssertFiniteHistory(t, e)
//	}
//
// # See Also
//
//   - cmd/safesim - command line driver with terminal plots
package safeband
