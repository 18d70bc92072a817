package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/mogp/internal/conditionals"
	"github.com/born-ml/mogp/internal/config"
	"github.com/born-ml/mogp/internal/problem"
)

type predictFlags struct {
	problem       string
	config        string
	fullCov       bool
	fullOutputCov bool
	white         bool
	verbose       bool
}

func newPredictCmd() *cobra.Command {
	var flags predictFlags
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Evaluate a conditional and print mean and variance as YAML",
		Long: `Evaluate the conditional described by a YAML problem file.

Covariance flags given on the command line override the problem file.

Examples:
  mogp predict --problem problem.yaml
  mogp predict --problem problem.yaml --full-cov --full-output-cov
  mogp predict --problem problem.yaml --config numerics.yaml --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPredict(cmd, &flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.problem, "problem", "p", "", "YAML problem file")
	f.StringVarP(&flags.config, "config", "c", "", "YAML numerical config (jitter, precision, parallel)")
	f.BoolVar(&flags.fullCov, "full-cov", false, "covariance between input points")
	f.BoolVar(&flags.fullOutputCov, "full-output-cov", false, "covariance between outputs")
	f.BoolVar(&flags.white, "white", false, "whitened parameterization of f and q_sqrt")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "log regime and shapes to stderr")
	_ = cmd.MarkFlagRequired("problem")
	return cmd
}

func runPredict(cmd *cobra.Command, flags *predictFlags) error {
	p, err := problem.Load(flags.problem)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if flags.config != "" {
		if cfg, err = config.Load(flags.config); err != nil {
			return err
		}
	}

	logger := zap.NewNop()
	if flags.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()
	}

	set := cmd.Flags()
	if set.Changed("full-cov") {
		p.Options.FullCov = flags.fullCov
	}
	if set.Changed("full-output-cov") {
		p.Options.FullOutputCov = flags.fullOutputCov
	}
	if set.Changed("white") {
		p.Options.White = flags.white
	}

	regime, err := conditionals.Resolve(p.Feature.Kind(), p.Kernel.Kind())
	if err != nil {
		return err
	}
	c, err := conditionals.New(cfg, logger)
	if err != nil {
		return err
	}
	mean, variance, err := c.Conditional(p.X, p.Feature, p.Kernel, p.F, p.Options)
	if err != nil {
		return err
	}
	return problem.NewResult(regime.String(), mean, variance).Encode(cmd.OutOrStdout())
}

func newRegimesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regimes",
		Short: "List the supported feature and kernel combinations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FEATURE\tKERNEL\tREGIME")
			for _, e := range conditionals.Registered() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Feature, e.Kernel, e.Regime)
			}
			return w.Flush()
		},
	}
}
