package safeband

import "math"

// TrajectorySummary describes the shape of a committed history.
type TrajectorySummary struct {
	Length     int     // Number of recorded values
	Min        float64 // Smallest committed F
	Max        float64 // Largest committed F
	Mean       float64 // Mean committed F
	Amplitude  float64 // (Max - Min) / 2
	Excursions int     // Committed values outside the band
	Final      float64 // Last committed F
}

// Summarize computes a TrajectorySummary. An empty history yields the zero value.
//
// Excursions count committed values, not candidates: a correction can
// still leave F outside the band for a few steps.
func Summarize(history []float64, band Band) TrajectorySummary {
	if len(history) == 0 {
		return TrajectorySummary{}
	}

	s := TrajectorySummary{
		Length: len(history),
		Min:    math.Inf(1),
		Max:    math.Inf(-1),
		Mean:   Mean(history),
		Final:  history[len(history)-1],
	}
	for _, x := range history {
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
		if !band.Contains(x) {
			s.Excursions++
		}
	}
	s.Amplitude = Amplitude(history)
	return s
}

// Amplitude is half the peak-to-peak range of a trajectory.
func Amplitude(trajectory []float64) float64 {
	if len(trajectory) == 0 {
		return 0
	}
	lo, hi := trajectory[0], trajectory[0]
	for _, x := range trajectory[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return (hi - lo) / 2
}

// Deltas returns consecutive differences h[i]-h[i-1].
func Deltas(history []float64) []float64 {
	if len(history) < 2 {
		return nil
	}
	out := make([]float64, len(history)-1)
	for i := 1; i < len(history); i++ {
		out[i-1] = history[i] - history[i-1]
	}
	return out
}
