package safeband

import "math"

// RiskMetrics are derived observations of a run. They never feed back into
// the correction formula.
type RiskMetrics struct {
	TotalVolatility float64 `json:"total_volatility" yaml:"total_volatility"` // Population stddev of |F_i - F_0|
	MaxDeviation    float64 `json:"max_deviation" yaml:"max_deviation"`       // Largest |delta| seen by a correction
	CorrectionCount int     `json:"correction_count" yaml:"correction_count"` // Number of correction events
}

// observeStep updates the per-step metric.
func (m *RiskMetrics) observeStep(volatility []float64) {
	m.TotalVolatility = StdDev(volatility)
}

// observeCorrection updates the per-correction metrics. A non-finite
// delta counts as a correction but leaves MaxDeviation alone.
func (m *RiskMetrics) observeCorrection(delta float64) {
	m.CorrectionCount++
	if isFinite(delta) {
		m.MaxDeviation = math.Max(m.MaxDeviation, math.Abs(delta))
	}
}

// StdDev is the population standard deviation of xs, 0 for an empty slice.
//
// Values are divided by the largest magnitude first so squares near
// math.MaxFloat64 do not overflow.
func StdDev(xs []float64) float64 {
	var scale float64
	for _, x := range xs {
		scale = math.Max(scale, math.Abs(x))
	}
	if scale == 0 || !isFinite(scale) {
		return scale
	}

	mean := Mean(xs) / scale
	var variance float64
	for _, x := range xs {
		diff := x/scale - mean
		variance += diff * diff
	}
	return math.Sqrt(variance/float64(len(xs))) * scale
}

// Mean is the arithmetic mean of xs, 0 for an empty slice. The running form
// stays finite for any finite input.
func Mean(xs []float64) float64 {
	var mean float64
	for i, x := range xs {
		mean += (x - mean) / float64(i+1)
	}
	return mean
}
