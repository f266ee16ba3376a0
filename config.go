package safeband

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Weights scale the three module samples in the multiplier.
type Weights struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
	C float64 `yaml:"c"`
}

// Validate requires finite, strictly positive weights.
func (w Weights) Validate() error {
	for _, nv := range []struct {
		name string
		v    float64
	}{{"a", w.A}, {"b", w.B}, {"c", w.C}} {
		if !(nv.v > 0) || math.IsInf(nv.v, 0) {
			return fmt.Errorf("%w: %s = %v must be finite and > 0", ErrInvalidWeights, nv.name, nv.v)
		}
	}
	return nil
}

// Band is the safety band [Low, High].
type Band struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Validate requires Low < High, both finite.
func (b Band) Validate() error {
	if math.IsNaN(b.Low) || math.IsNaN(b.High) || math.IsInf(b.Low, 0) || math.IsInf(b.High, 0) {
		return fmt.Errorf("%w: (%v, %v) is not finite", ErrInvalidBand, b.Low, b.High)
	}
	if b.Low >= b.High {
		return fmt.Errorf("%w: low %.4f >= high %.4f", ErrInvalidBand, b.Low, b.High)
	}
	return nil
}

// Contains reports whether x lies inside the closed band.
func (b Band) Contains(x float64) bool {
	return x >= b.Low && x <= b.High
}

// ModuleRanges configures the three stochastic modules.
type ModuleRanges struct {
	Internal   Range `yaml:"internal"`
	External   Range `yaml:"external"`
	Randomness Range `yaml:"randomness"`
}

// StrategySpec is the YAML form of a strategy; the name is the map key.
type StrategySpec struct {
	Threshold        float64  `yaml:"threshold"`
	CorrectionFactor float64  `yaml:"correction_factor"`
	Severity         Severity `yaml:"severity"`
}

// PolicyConfig selects and parameterizes the correction policy.
type PolicyConfig struct {
	Kind            PolicyKind              `yaml:"kind"`
	FixedFactor     float64                 `yaml:"fixed_factor"`
	Strategies      map[string]StrategySpec `yaml:"strategies"`
	DefaultStrategy string                  `yaml:"default_strategy"`
	Softness        float64                 `yaml:"softness"`
	RateWindow      int                     `yaml:"rate_window"`
}

// StrategyList returns the configured strategies ordered by name.
func (p PolicyConfig) StrategyList() []Strategy {
	names := make([]string, 0, len(p.Strategies))
	for name := range p.Strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		spec := p.Strategies[name]
		out = append(out, Strategy{
			Name:             name,
			Threshold:        spec.Threshold,
			CorrectionFactor: spec.CorrectionFactor,
			Severity:         spec.Severity,
		})
	}
	return out
}

// Build constructs the configured CorrectionPolicy.
func (p PolicyConfig) Build() (CorrectionPolicy, error) {
	switch p.Kind {
	case PolicyFixed:
		if !(p.FixedFactor > 0 && p.FixedFactor <= 1) {
			return nil, fmt.Errorf("%w: fixed factor %v outside (0, 1]", ErrInvalidPolicy, p.FixedFactor)
		}
		return FixedPolicy{Factor: p.FixedFactor, Severity: SeverityInfo}, nil
	case PolicyAdaptive:
		table, err := NewStrategyTable(p.StrategyList(), p.DefaultStrategy)
		if err != nil {
			return nil, err
		}
		return NewAdaptivePolicy(table, p.Softness, p.RateWindow)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidPolicy, p.Kind)
	}
}

// Config holds every construction parameter of an Engine.
type Config struct {
	Weights    Weights      `yaml:"weights"`
	InitialF   float64      `yaml:"initial_f"`
	Band       Band         `yaml:"safety_band"`
	Modules    ModuleRanges `yaml:"modules"`
	Policy     PolicyConfig `yaml:"policy"`
	Iterations int          `yaml:"iterations"`
	Seed       uint64       `yaml:"seed"`
	Input      string       `yaml:"input"`
}

// DefaultConfig returns the base system defaults: unit weights, F0 = 1,
// band (0.5, 1.5) and the three-tier adaptive policy.
func DefaultConfig() Config {
	return Config{
		Weights:  Weights{A: 1.0, B: 1.0, C: 1.0},
		InitialF: 1.0,
		Band:     Band{Low: 0.5, High: 1.5},
		Modules: ModuleRanges{
			Internal:   DefaultInternalRange,
			External:   DefaultFeedbackRange,
			Randomness: DefaultRandomnessRange,
		},
		Policy: PolicyConfig{
			Kind:            PolicyAdaptive,
			FixedFactor:     DefaultFixedFactor,
			Strategies:      strategySpecs(DefaultStrategies()),
			DefaultStrategy: DefaultStrategyName,
			Softness:        DefaultSoftness,
			RateWindow:      DefaultRateWindow,
		},
		Iterations: 10,
		Seed:       1,
		Input:      "default",
	}
}

// ExtendedConfig is the demo configuration: band (0.5, 2.0), four
// strategies including super_aggressive, 30 iterations.
func ExtendedConfig() Config {
	cfg := DefaultConfig()
	cfg.Band = Band{Low: 0.5, High: 2.0}
	cfg.Policy.Strategies = strategySpecs(ExtendedStrategies())
	cfg.Iterations = 30
	return cfg
}

func strategySpecs(strategies []Strategy) map[string]StrategySpec {
	out := make(map[string]StrategySpec, len(strategies))
	for _, s := range strategies {
		out[s.Name] = StrategySpec{
			Threshold:        s.Threshold,
			CorrectionFactor: s.CorrectionFactor,
			Severity:         s.Severity,
		}
	}
	return out
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if err := c.Band.Validate(); err != nil {
		return err
	}
	if math.IsNaN(c.InitialF) || math.IsInf(c.InitialF, 0) {
		return fmt.Errorf("%w: %v is not finite", ErrInvalidInitialF, c.InitialF)
	}
	for _, m := range []struct {
		name string
		r    Range
	}{
		{"internal", c.Modules.Internal},
		{"external", c.Modules.External},
		{"randomness", c.Modules.Randomness},
	} {
		if err := m.r.Validate(); err != nil {
			return fmt.Errorf("module %s: %w", m.name, err)
		}
	}
	if _, err := c.Policy.Build(); err != nil {
		return err
	}
	if c.Iterations < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIterations, c.Iterations)
	}
	return nil
}

// LoadConfig reads a YAML file over DefaultConfig. A strategies mapping in
// the file replaces the default table instead of merging with it.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML bytes over DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	defaults := cfg.Policy.Strategies
	cfg.Policy.Strategies = nil

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Policy.Strategies == nil {
		cfg.Policy.Strategies = defaults
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
