package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	metricsAddr string
	logLevel    string
}

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:           "vqs",
		Short:         "Score and rank short-form videos collected for a keyword",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default: $VQS_CONFIG)")
	root.PersistentFlags().StringVar(&g.metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address while running")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log level: debug, info, warn, error")

	root.AddCommand(rankCmd(&g))
	root.AddCommand(batchCmd(&g))
	root.AddCommand(generateCmd())

	return root
}

// sourceFlags select where candidates come from.
type sourceFlags struct {
	dbPath     string
	candidates string
	format     string
	limit      int
}

func (f *sourceFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dbPath, "db", "", "SQLite candidate store (overrides db_path)")
	cmd.Flags().StringVar(&f.candidates, "candidates", "", "YAML or JSON candidate file (overrides candidates_file)")
	cmd.Flags().StringVar(&f.format, "format", formatTable, "output format: table or json")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "max videos per keyword (default: default_limit)")
}

func rankCmd(g *globalFlags) *cobra.Command {
	var f sourceFlags

	cmd := &cobra.Command{
		Use:   "rank <keyword>",
		Short: "Rank the candidates collected for one keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd, g, &f, args[0])
		},
	}

	f.bind(cmd)
	return cmd
}

func batchCmd(g *globalFlags) *cobra.Command {
	var f sourceFlags

	cmd := &cobra.Command{
		Use:   "batch <keyword>...",
		Short: "Rank several keywords concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, g, &f, args)
		},
	}

	f.bind(cmd)
	return cmd
}

// generateFlags configure the synthetic candidate generator.
type generateFlags struct {
	keyword string
	count   int
	seed    uint64
	out     string
	workers int
}

func generateCmd() *cobra.Command {
	var f generateFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic candidate file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, &f)
		},
	}

	cmd.Flags().StringVar(&f.keyword, "keyword", "sample", "collection keyword of the generated videos")
	cmd.Flags().IntVar(&f.count, "count", 50, "number of videos")
	cmd.Flags().Uint64Var(&f.seed, "seed", 1, "random seed; equal seeds give equal files")
	cmd.Flags().StringVar(&f.out, "out", "", "output file (default: stdout)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "generator goroutines (default: one per CPU)")
	return cmd
}
