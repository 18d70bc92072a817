// Package main provides the mogp CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "v0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mogp",
		Short: "Multi-output sparse GP conditionals",
		Long: `mogp evaluates the posterior predictive mean and variance of a sparse
multi-output Gaussian process described in a YAML problem file.`,
		SilenceUsage: true,
	}
	root.AddCommand(newVersionCmd(), newPredictCmd(), newRegimesCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mogp %s\n", version)
		},
	}
}
