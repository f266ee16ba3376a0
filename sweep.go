package safeband

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SweepConfig controls a batch of independent runs.
type SweepConfig struct {
	Runs        int    // Number of independent engines
	Iterations  int    // Steps per engine
	Seed        uint64 // Run i is seeded with Seed+i
	Concurrency int    // Max engines in flight (0 = GOMAXPROCS)
	Input       any    // Token passed to every Iterate
}

// DefaultSweepConfig returns sensible defaults.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Runs:        100,
		Iterations:  30,
		Seed:        1,
		Concurrency: runtime.GOMAXPROCS(0),
		Input:       "default",
	}
}

// RunResult is the outcome of one engine in a sweep.
type RunResult struct {
	ID      string
	Seed    uint64
	Final   float64
	Metrics RiskMetrics
	Summary TrajectorySummary
}

// Sweep runs cfg under SweepConfig.Runs different seeds. Every run owns
// its own engine; results come back in run order and do not depend on
// Concurrency. Cancellation is checked before each run starts.
func Sweep(ctx context.Context, cfg Config, sc SweepConfig, logger *slog.Logger) ([]RunResult, error) {
	if sc.Runs < 0 {
		return nil, fmt.Errorf("sweep: negative run count %d", sc.Runs)
	}
	if sc.Iterations < 0 {
		return nil, fmt.Errorf("sweep: %w: %d", ErrInvalidIterations, sc.Iterations)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	limit := sc.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]RunResult, sc.Runs)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := 0; i < sc.Runs; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seed := sc.Seed + uint64(i)
			id := uuid.NewString()
			e, err := New(cfg, WithSeed(seed), WithLogger(logger.With("run", id)))
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			report, err := e.Simulate(sc.Input, sc.Iterations)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			results[i] = RunResult{
				ID:      id,
				Seed:    seed,
				Final:   e.F(),
				Metrics: report.Metrics,
				Summary: report.Summary,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// SweepStatistics aggregates a sweep.
type SweepStatistics struct {
	Runs              int
	MeanFinal         float64
	StdDevFinal       float64
	MeanCorrections   float64
	WorstMaxDeviation float64
	MeanVolatility    float64
}

// SweepStats computes aggregate statistics over run results.
func SweepStats(results []RunResult) SweepStatistics {
	if len(results) == 0 {
		return SweepStatistics{}
	}

	finals := make([]float64, len(results))
	corrections := make([]float64, len(results))
	volatility := make([]float64, len(results))
	var worst float64
	for i, r := range results {
		finals[i] = r.Final
		corrections[i] = float64(r.Metrics.CorrectionCount)
		volatility[i] = r.Metrics.TotalVolatility
		worst = math.Max(worst, r.Metrics.MaxDeviation)
	}

	return SweepStatistics{
		Runs:              len(results),
		MeanFinal:         Mean(finals),
		StdDevFinal:       StdDev(finals),
		MeanCorrections:   Mean(corrections),
		WorstMaxDeviation: worst,
		MeanVolatility:    Mean(volatility),
	}
}
