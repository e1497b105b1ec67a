package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	verbose  bool
	quiet    bool
	logLevel string
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "quicperf",
		Short: "quicperf benchmarks QUIC transfers under simulated network conditions",
		Long: `quicperf applies a network profile, starts a QUIC server, runs a series of
client downloads against it and reports transfer duration, delivery rate and
slow-start exit bandwidth statistics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(g.logLevel, g.verbose)
			if err != nil {
				return &exitError{code: ExitError, err: err}
			}
			g.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(g.logger)
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging and dump process command lines and output")
	root.PersistentFlags().BoolVarP(&g.quiet, "quiet", "q", false, "suppress progress output")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newRunCmd(g))
	root.AddCommand(newSweepCmd(g))
	root.AddCommand(newShowCmd())
	return root
}

func parseLevel(s string, verbose bool) (slog.Level, error) {
	if verbose {
		return slog.LevelDebug, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("--log-level: unknown level %q", s)
	}
	return level, nil
}
