package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"quicperf/internal/config"
	"quicperf/internal/core"
	"quicperf/internal/network"
	"quicperf/internal/orchestrator"
	"quicperf/internal/process"
	"quicperf/internal/progress"
	"quicperf/internal/report"
)

type runOptions struct {
	configPath string
	envFile    string
	trials     int
	payload    string
	warmup     int
	interval   time.Duration
	outputDir  string
	format     string
}

func newRunCmd(g *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one benchmark run and print its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, g, opts)
		},
	}

	addRunFlags(cmd, opts)
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file")
	f.StringVar(&opts.envFile, "env-file", ".env", "file with QUICPERF_* overrides")
	f.IntVarP(&opts.trials, "trials", "n", 0, "number of measured trials")
	f.StringVarP(&opts.payload, "download-size", "d", "", "payload size per trial, e.g. 1mb or 10MiB")
	f.IntVar(&opts.warmup, "warmup", 0, "warmup trials whose samples are discarded")
	f.DurationVar(&opts.interval, "interval", 0, "minimum spacing between trial starts")
	f.StringVarP(&opts.outputDir, "output-dir", "o", "", "directory that receives one subdirectory per run")
	f.StringVar(&opts.format, "format", "text", "summary format: text, json")
}

// loadConfig layers defaults, config file, env file, environment and flags.
func loadConfig(cmd *cobra.Command, opts *runOptions) (*config.Config, error) {
	if err := config.LoadEnvFile(opts.envFile, cmd.Flags().Changed("env-file")); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("trials") {
		cfg.Run.Trials = opts.trials
	}
	if flags.Changed("download-size") {
		cfg.Run.Payload = opts.payload
	}
	if flags.Changed("warmup") {
		cfg.Run.Warmup = opts.warmup
	}
	if flags.Changed("interval") {
		cfg.Run.Interval = opts.interval
	}
	if flags.Changed("output-dir") {
		cfg.Run.OutputDir = opts.outputDir
	}
	return cfg, nil
}

func checkFormat(format string) error {
	if format != "text" && format != "json" {
		return &exitError{code: ExitError, err: fmt.Errorf("--format must be 'text' or 'json', got %q", format)}
	}
	return nil
}

func runBenchmark(cmd *cobra.Command, g *globalOptions, opts *runOptions) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return &exitError{code: ExitError, err: err}
	}
	plan, err := cfg.Plan()
	if err != nil {
		return &exitError{code: ExitError, err: err}
	}

	prog := progress.NewProgress(g.quiet)
	prog.SetOutput(cmd.ErrOrStderr())

	rep, runErr := executePlan(cmd, g, cfg, plan, prog)
	if rep != nil {
		printReport(cmd, opts.format, rep)
	}

	if runErr != nil {
		if rep != nil && onlyCancelled(runErr) {
			prog.Print("Run interrupted; partial results written.")
			return nil
		}
		return &exitError{code: ExitError, err: runErr}
	}

	if rep.Thresholds != nil && !rep.Thresholds.Passed {
		if opts.format == "text" {
			fmt.Fprintln(cmd.ErrOrStderr(), "\nThreshold check failed!")
		}
		return &exitError{code: ExitThresholdFailed}
	}
	return nil
}

// executePlan wires the process, network and report layers for one plan
// and runs it.
func executePlan(cmd *cobra.Command, g *globalOptions, cfg *config.Config, plan core.RunPlan, prog *progress.Progress) (*report.RunReport, error) {
	logger := g.logger
	var debug *process.DebugLogger
	if g.verbose {
		debug = process.NewDebugLogger(cmd.ErrOrStderr())
	}

	runner := process.NewExecRunner(logger, debug)
	orch := orchestrator.New(
		runner,
		network.NewShellController(plan.Network, runner, logger),
		report.NewDirSink(cfg.Run.OutputDir, logger),
		orchestrator.WithProgress(prog),
		orchestrator.WithLogger(logger),
		orchestrator.WithThresholds(cfg.Thresholds),
	)

	prog.Printf("quicperf run %s: %d trials (%d warmup), payload %s, network %s",
		plan.ID, plan.Trials, plan.Warmup, cfg.Run.Payload, plan.Network.Name)
	return orch.Run(cmd.Context(), plan)
}

func printReport(cmd *cobra.Command, format string, rep *report.RunReport) {
	out := cmd.OutOrStdout()
	if format == "json" {
		report.FormatJSON(out, rep)
	} else {
		report.FormatText(out, rep, !color.NoColor)
	}
}

// onlyCancelled reports whether err carries nothing but cancellation, so a
// teardown or write failure during an interrupted run still exits non-zero.
func onlyCancelled(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !onlyCancelled(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, context.Canceled)
}
