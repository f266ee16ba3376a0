package safeband

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Source produces one sample per engine step.
//
// input is the opaque token handed to Engine.Iterate; step is the engine's
// time counter before the step is committed. The built-in sources ignore input.
type Source interface {
	Sample(input any, step int) float64
}

// Range is a closed sampling interval [Lo, Hi].
type Range struct {
	Lo float64 `yaml:"lo"`
	Hi float64 `yaml:"hi"`
}

// Validate rejects inverted or non-finite ranges.
func (r Range) Validate() error {
	if math.IsNaN(r.Lo) || math.IsNaN(r.Hi) || math.IsInf(r.Lo, 0) || math.IsInf(r.Hi, 0) {
		return fmt.Errorf("%w: [%v, %v] is not finite", ErrInvalidRange, r.Lo, r.Hi)
	}
	if r.Lo > r.Hi {
		return fmt.Errorf("%w: lo %.4f > hi %.4f", ErrInvalidRange, r.Lo, r.Hi)
	}
	return nil
}

// Default module ranges.
var (
	DefaultInternalRange   = Range{Lo: 0.8, Hi: 1.2}
	DefaultFeedbackRange   = Range{Lo: 0.9, Hi: 1.1}
	DefaultRandomnessRange = Range{Lo: 0.95, Hi: 1.05}
)

// InternalDriftPerStep is the per-step growth of the internal stability sample.
const InternalDriftPerStep = 0.01

// FeedbackWindowSize bounds the external feedback sample window.
const FeedbackWindowSize = 10

// Uniform draws uniformly from a Range using an injected random stream.
type Uniform struct {
	name string
	rng  *rand.Rand
	r    Range
}

// NewUniform creates a uniform source. A nil rng is a programming error.
func NewUniform(name string, r Range, rng *rand.Rand) (*Uniform, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if rng == nil {
		return nil, fmt.Errorf("%s: nil random stream", name)
	}
	return &Uniform{name: name, rng: rng, r: r}, nil
}

// Name returns the source label used in logs.
func (u *Uniform) Name() string { return u.name }

// Range returns the configured interval.
func (u *Uniform) Range() Range { return u.r }

// Sample implements Source.
func (u *Uniform) Sample(_ any, _ int) float64 {
	return u.draw()
}

func (u *Uniform) draw() float64 {
	return u.r.Lo + (u.r.Hi-u.r.Lo)*u.rng.Float64()
}

// InternalState models internal stability with a mild deterministic drift:
// each sample is scaled by 1 + 0.01*step.
type InternalState struct {
	*Uniform
}

// NewInternalState creates the internal stability module.
func NewInternalState(r Range, rng *rand.Rand) (*InternalState, error) {
	u, err := NewUniform("internal_state", r, rng)
	if err != nil {
		return nil, err
	}
	return &InternalState{Uniform: u}, nil
}

// Sample implements Source.
func (s *InternalState) Sample(_ any, step int) float64 {
	return s.draw() * (1 + float64(step)*InternalDriftPerStep)
}

// ExternalFeedback samples external feedback and remembers its last
// FeedbackWindowSize samples. The engine never reads the window.
type ExternalFeedback struct {
	*Uniform
	window *SampleWindow
}

// NewExternalFeedback creates the external feedback module.
func NewExternalFeedback(r Range, rng *rand.Rand) (*ExternalFeedback, error) {
	u, err := NewUniform("external_feedback", r, rng)
	if err != nil {
		return nil, err
	}
	return &ExternalFeedback{Uniform: u, window: NewSampleWindow(FeedbackWindowSize)}, nil
}

// Sample implements Source.
func (s *ExternalFeedback) Sample(_ any, _ int) float64 {
	v := s.draw()
	s.window.Push(v)
	return v
}

// Recent returns the retained samples, oldest first.
func (s *ExternalFeedback) Recent() []float64 {
	return s.window.Values()
}

// Randomness adds bounded noise.
type Randomness struct {
	*Uniform
}

// NewRandomness creates the randomness module.
func NewRandomness(r Range, rng *rand.Rand) (*Randomness, error) {
	u, err := NewUniform("randomness", r, rng)
	if err != nil {
		return nil, err
	}
	return &Randomness{Uniform: u}, nil
}

// Fixed returns a source that always yields v.
func Fixed(v float64) Source {
	return fixedSource(v)
}

type fixedSource float64

func (f fixedSource) Sample(_ any, _ int) float64 { return float64(f) }

// Sequence replays values in order and then repeats the last one.
// An empty sequence yields 1.0.
func Sequence(values ...float64) Source {
	return &sequenceSource{values: append([]float64(nil), values...)}
}

type sequenceSource struct {
	values []float64
	next   int
}

func (s *sequenceSource) Sample(_ any, _ int) float64 {
	if len(s.values) == 0 {
		return 1.0
	}
	if s.next >= len(s.values) {
		return s.values[len(s.values)-1]
	}
	v := s.values[s.next]
	s.next++
	return v
}

// SampleWindow is a bounded FIFO of recent samples. Once full, each push
// evicts the oldest sample.
type SampleWindow struct {
	samples    []float64
	maxSamples int
	writeIndex int
	count      int
}

// NewSampleWindow creates a window holding at most maxSamples values.
func NewSampleWindow(maxSamples int) *SampleWindow {
	if maxSamples <= 0 {
		maxSamples = FeedbackWindowSize
	}
	return &SampleWindow{
		samples:    make([]float64, maxSamples),
		maxSamples: maxSamples,
	}
}

// Push records a sample.
func (w *SampleWindow) Push(v float64) {
	w.samples[w.writeIndex] = v
	w.writeIndex = (w.writeIndex + 1) % w.maxSamples
	if w.count < w.maxSamples {
		w.count++
	}
}

// Len returns the number of retained samples.
func (w *SampleWindow) Len() int { return w.count }

// Values returns a copy of the retained samples, oldest first.
func (w *SampleWindow) Values() []float64 {
	out := make([]float64, 0, w.count)
	start := 0
	if w.count == w.maxSamples {
		start = w.writeIndex
	}
	for i := 0; i < w.count; i++ {
		out = append(out, w.samples[(start+i)%w.maxSamples])
	}
	return out
}
