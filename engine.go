package safeband

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
)

// Engine owns the scalar state F and keeps it near the safety band.
//
// Control loop, once per Iterate:
//   - Sample the three modules and form the multiplier
//   - Compute the raw candidate F·multiplier
//   - If the candidate leaves the band, let the policy correct it
//   - Commit exactly one value, advance t, record history and metrics
//
// An Engine is not safe for concurrent use. Independent experiments use
// independent engines (see Sweep).
type Engine struct {
	weights Weights
	band    Band
	policy  CorrectionPolicy
	logger  *slog.Logger

	internal   Source
	external   Source
	randomness Source

	// State
	f       float64
	t       int
	initial float64

	// Observations (append-only)
	history    []float64
	volatility []float64
	rates      []float64
	metrics    RiskMetrics
}

// Step is the record of one committed iteration.
type Step struct {
	T          int         // Step counter after commit
	Previous   float64     // F before the step
	F          float64     // Committed F
	Multiplier float64     // Product of the weighted samples
	Internal   float64     // Internal stability sample
	External   float64     // External feedback sample
	Randomness float64     // Randomness sample
	Candidate  float64     // Raw F·multiplier
	Corrected  bool        // Candidate left the band and was corrected
	Held       bool        // Correction was not finite; F kept its previous value
	Correction *Correction // Non-nil when Corrected
}

// HoldStrategy labels corrections that kept F unchanged because the policy
// produced a non-finite value.
const HoldStrategy = "hold"

// Option customizes engine construction.
type Option func(*engineOptions)

type engineOptions struct {
	logger     *slog.Logger
	rng        *rand.Rand
	policy     CorrectionPolicy
	internal   Source
	external   Source
	randomness Source
}

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithRand sets the random stream shared by the default module sources.
func WithRand(rng *rand.Rand) Option {
	return func(o *engineOptions) { o.rng = rng }
}

// WithSeed seeds a PCG stream for the default module sources.
func WithSeed(seed uint64) Option {
	return func(o *engineOptions) { o.rng = newRand(seed) }
}

// WithSources replaces the three default module sources.
func WithSources(internal, external, randomness Source) Option {
	return func(o *engineOptions) {
		o.internal = internal
		o.external = external
		o.randomness = randomness
	}
}

// WithPolicy overrides the policy built from Config.Policy.
func WithPolicy(p CorrectionPolicy) Option {
	return func(o *engineOptions) { o.policy = p }
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// New validates cfg and builds an engine at t = 0 with history [InitialF].
// Without WithRand or WithSeed, module sources are seeded from cfg.Seed.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	if o.policy == nil {
		p, err := cfg.Policy.Build()
		if err != nil {
			return nil, err
		}
		o.policy = p
	}

	if o.internal == nil || o.external == nil || o.randomness == nil {
		if o.rng == nil {
			o.rng = newRand(cfg.Seed)
		}
		if err := o.defaultSources(cfg.Modules); err != nil {
			return nil, err
		}
	}

	return &Engine{
		weights:    cfg.Weights,
		band:       cfg.Band,
		policy:     o.policy,
		logger:     o.logger,
		internal:   o.internal,
		external:   o.external,
		randomness: o.randomness,
		f:          cfg.InitialF,
		initial:    cfg.InitialF,
		history:    []float64{cfg.InitialF},
	}, nil
}

func (o *engineOptions) defaultSources(m ModuleRanges) error {
	if o.internal == nil {
		s, err := NewInternalState(m.Internal, o.rng)
		if err != nil {
			return err
		}
		o.internal = s
	}
	if o.external == nil {
		s, err := NewExternalFeedback(m.External, o.rng)
		if err != nil {
			return err
		}
		o.external = s
	}
	if o.randomness == nil {
		s, err := NewRandomness(m.Randomness, o.rng)
		if err != nil {
			return err
		}
		o.randomness = s
	}
	return nil
}

// Iterate performs one full step and returns its record.
func (e *Engine) Iterate(input any) Step {
	i := e.internal.Sample(input, e.t)
	x := e.external.Sample(input, e.t)
	r := e.randomness.Sample(input, e.t)

	multiplier := (i * e.weights.A) * (x * e.weights.B) * (r * e.weights.C)
	candidate := e.f * multiplier

	step := Step{
		Previous:   e.f,
		Multiplier: multiplier,
		Internal:   i,
		External:   x,
		Randomness: r,
		Candidate:  candidate,
		F:          candidate,
	}

	if !e.band.Contains(candidate) {
		c := e.policy.Correct(e.f, candidate, multiplier, e.history)
		if !isFinite(c.Value) {
			c.Value = e.f
			c.EffectiveFactor = 0
			c.Strategy = HoldStrategy
			c.Severity = SeverityCritical
			step.Held = true
		}
		step.F = c.Value
		step.Corrected = true
		step.Correction = &c

		e.metrics.observeCorrection(c.Delta)
		if c.RateKnown {
			e.rates = append(e.rates, c.Rate)
		}

		e.logger.Log(context.Background(), c.Severity.Level(), "correction applied",
			"strategy", c.Strategy,
			"threshold", c.Threshold,
			"from", f3(e.f),
			"to", f3(c.Value),
			"multiplier", f3(multiplier),
			"effective_cf", f3(c.EffectiveFactor),
		)
	}

	// Commit
	e.f = step.F
	e.t++
	e.history = append(e.history, e.f)
	e.volatility = append(e.volatility, math.Abs(e.f-e.initial))
	e.metrics.observeStep(e.volatility)

	step.T = e.t
	return step
}

// Report is the outcome of Simulate.
type Report struct {
	Steps   []Step
	Metrics RiskMetrics
	Summary TrajectorySummary
}

// Simulate runs iterations sequential steps, logging each one and the
// final risk metrics.
func (e *Engine) Simulate(input any, iterations int) (Report, error) {
	if iterations < 0 {
		return Report{}, fmt.Errorf("%w: %d", ErrInvalidIterations, iterations)
	}

	e.logger.Info("initial state", "F", e.f, "band_low", e.band.Low, "band_high", e.band.High)

	steps := make([]Step, 0, iterations)
	for n := 0; n < iterations; n++ {
		s := e.Iterate(input)
		steps = append(steps, s)

		e.logger.Debug("module samples",
			"step", s.T,
			"internal", f3(s.Internal),
			"external", f3(s.External),
			"randomness", f3(s.Randomness),
		)

		attrs := []any{"step", s.T, "F", f3(s.F), "multiplier", f3(s.Multiplier)}
		if s.Corrected {
			attrs = append(attrs, "delta", f3(s.Correction.Delta), "rate", f3(s.Correction.Rate))
		}
		e.logger.Info("iteration", attrs...)
	}

	e.logger.Info("final risk metrics",
		"total_volatility", f4(e.metrics.TotalVolatility),
		"max_deviation", f4(e.metrics.MaxDeviation),
		"correction_count", e.metrics.CorrectionCount,
	)

	return Report{
		Steps:   steps,
		Metrics: e.metrics,
		Summary: Summarize(e.history, e.band),
	}, nil
}

// F returns the current state.
func (e *Engine) F() float64 { return e.f }

// T returns the number of committed steps.
func (e *Engine) T() int { return e.t }

// Initial returns F at t = 0.
func (e *Engine) Initial() float64 { return e.initial }

// Band returns the safety band.
func (e *Engine) Band() Band { return e.band }

// Metrics returns a snapshot of the risk metrics.
func (e *Engine) Metrics() RiskMetrics { return e.metrics }

// History returns a copy of every committed F, starting with the initial value.
func (e *Engine) History() []float64 { return append([]float64(nil), e.history...) }

// VolatilityHistory returns a copy of |F_i - F_0| for each committed step.
func (e *Engine) VolatilityHistory() []float64 { return append([]float64(nil), e.volatility...) }

// RateHistory returns a copy of the rates seen by corrections that had
// enough history to estimate one.
func (e *Engine) RateHistory() []float64 { return append([]float64(nil), e.rates...) }

// Statistics returns engine stats keyed by name.
func (e *Engine) Statistics() map[string]interface{} {
	return map[string]interface{}{
		"current_f":        e.f,
		"initial_f":        e.initial,
		"t":                e.t,
		"in_band":          e.band.Contains(e.f),
		"total_volatility": e.metrics.TotalVolatility,
		"max_deviation":    e.metrics.MaxDeviation,
		"correction_count": e.metrics.CorrectionCount,
		"history_length":   len(e.history),
	}
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func f3(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
func f4(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
