package main

import (
	"fmt"

	"github.com/alexshd/safeband"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type runFlags struct {
	iterations int
	seed       uint64
	randomSeed bool
	policy     string
	input      string
	plot       bool
	plotWidth  int
	plotHeight int
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation and print its history",
		Example: `  safesim run --iterations 30 --seed 42 --plot
  safesim run --extended --policy fixed
  safesim run -c sim.yaml --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulation(cmd, root, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.iterations, "iterations", "n", 0, "number of steps (config value when unset)")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "random seed (config value when unset)")
	cmd.Flags().BoolVar(&flags.randomSeed, "random-seed", false, "seed from the clock")
	cmd.Flags().StringVar(&flags.policy, "policy", "", "correction policy: fixed or adaptive (config value when empty)")
	cmd.Flags().StringVar(&flags.input, "input", "", "opaque input token passed to every step")
	cmd.Flags().BoolVar(&flags.plot, "plot", false, "render F and volatility history")
	cmd.Flags().IntVar(&flags.plotWidth, "plot-width", 60, "plot width in columns")
	cmd.Flags().IntVar(&flags.plotHeight, "plot-height", 10, "plot height in rows")
	return cmd
}

func runSimulation(cmd *cobra.Command, root *rootFlags, flags *runFlags) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("iterations") {
		cfg.Iterations = flags.iterations
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = flags.seed
	}
	if flags.randomSeed {
		cfg.Seed = seedFromClock()
	}
	if flags.policy != "" {
		cfg.Policy.Kind = safeband.PolicyKind(flags.policy)
	}
	if flags.input != "" {
		cfg.Input = flags.input
	}

	logger, err := newLogger(cmd.ErrOrStderr(), root.logLevel, root.noColor)
	if err != nil {
		return err
	}
	logger = logger.With("run", uuid.NewString())

	engine, err := safeband.New(cfg, safeband.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("configure engine: %w", err)
	}

	logger.Info("simulation starting",
		"policy", cfg.Policy.Kind,
		"iterations", cfg.Iterations,
		"seed", cfg.Seed,
	)

	report, err := engine.Simulate(cfg.Input, cfg.Iterations)
	if err != nil {
		return err
	}

	s := report.Summary
	logger.Info("trajectory",
		"min", s.Min,
		"max", s.Max,
		"amplitude", s.Amplitude,
		"excursions", s.Excursions,
		"final", s.Final,
	)

	if flags.plot {
		fmt.Fprintln(cmd.OutOrStdout(), RenderHistory(engine, PlotOptions{
			Width:  flags.plotWidth,
			Height: flags.plotHeight,
		}))
	}
	return nil
}
