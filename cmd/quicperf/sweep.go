package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"quicperf/internal/core"
	"quicperf/internal/profiles"
	"quicperf/internal/progress"
	"quicperf/internal/report"
)

type sweepOptions struct {
	runOptions
	profilesPath string
}

// sweepResult is one row of the sweep table.
type sweepResult struct {
	profile string
	report  *report.RunReport
	err     error
}

func newSweepCmd(g *globalOptions) *cobra.Command {
	opts := &sweepOptions{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Execute one run per network profile listed in a CSV or JSON file",
		Long: `sweep repeats the run command once for every row of a profile matrix.
Each row sets name, delay_ms, loss_pct and rate_mbit, and may override the
apply and clear commands. A failed profile does not stop the sweep.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, g, opts)
		},
	}

	addRunFlags(cmd, &opts.runOptions)
	cmd.Flags().StringVarP(&opts.profilesPath, "profiles", "p", "", "CSV or JSON profile matrix (relative to the config file)")
	_ = cmd.MarkFlagRequired("profiles")
	return cmd
}

func runSweep(cmd *cobra.Command, g *globalOptions, opts *sweepOptions) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, &opts.runOptions)
	if err != nil {
		return &exitError{code: ExitError, err: err}
	}

	baseDir := ""
	if opts.configPath != "" {
		baseDir = filepath.Dir(opts.configPath)
	}
	matrix, err := profiles.LoadFile(opts.profilesPath, baseDir)
	if err != nil {
		return &exitError{code: ExitError, err: err}
	}

	if cfg.Run.ID == "" {
		cfg.Run.ID = uuid.NewString()
	}

	// Validate every profile before touching the network.
	plans := make([]core.RunPlan, len(matrix))
	for i, p := range matrix {
		plan, err := cfg.ForProfile(p).Plan()
		if err != nil {
			return &exitError{code: ExitError, err: fmt.Errorf("profile %s: %w", p.Name, err)}
		}
		plans[i] = plan
	}

	prog := progress.NewProgress(g.quiet)
	prog.SetOutput(cmd.ErrOrStderr())

	results := make([]sweepResult, 0, len(plans))
	for i, plan := range plans {
		if err := cmd.Context().Err(); err != nil {
			prog.Print("Sweep interrupted; remaining profiles skipped.")
			break
		}
		prog.Printf("Profile %d/%d: %s", i+1, len(plans), matrix[i].Name)

		rep, runErr := executePlan(cmd, g, cfg.ForProfile(matrix[i]), plan, prog)
		if rep != nil {
			printReport(cmd, opts.format, rep)
		}
		if runErr != nil {
			g.logger.Error("profile failed", "profile", matrix[i].Name, "error", runErr)
		}
		results = append(results, sweepResult{profile: matrix[i].Name, report: rep, err: runErr})
	}

	if opts.format == "text" {
		formatSweep(cmd.OutOrStdout(), results)
	}
	return sweepExit(results)
}

// sweepExit maps the worst profile outcome to an exit code.
func sweepExit(results []sweepResult) error {
	failed := 0
	thresholds := 0
	for _, r := range results {
		switch {
		case r.err != nil && !(r.report != nil && onlyCancelled(r.err)):
			failed++
		case r.report != nil && r.report.Thresholds != nil && !r.report.Thresholds.Passed:
			thresholds++
		}
	}
	if failed > 0 {
		return &exitError{code: ExitError, err: fmt.Errorf("%d of %d profiles failed", failed, len(results))}
	}
	if thresholds > 0 {
		return &exitError{code: ExitThresholdFailed, err: fmt.Errorf("%d of %d profiles failed threshold checks", thresholds, len(results))}
	}
	return nil
}

func formatSweep(w io.Writer, results []sweepResult) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Sweep Results")
	fmt.Fprintln(w, "=============")
	fmt.Fprintf(w, "%-24s %-8s %-16s %-18s %s\n", "PROFILE", "FAILED", "DURATION p50", "DELIVERY p50", "STATUS")
	for _, r := range results {
		if r.report == nil {
			fmt.Fprintf(w, "%-24s %-8s %-16s %-18s error: %v\n", r.profile, "-", "-", "-", r.err)
			continue
		}
		status := "ok"
		switch {
		case r.err != nil:
			status = "error: " + r.err.Error()
		case r.report.Thresholds != nil && !r.report.Thresholds.Passed:
			status = "thresholds failed"
		}
		fmt.Fprintf(w, "%-24s %-8s %-16s %-18s %s\n",
			r.profile,
			fmt.Sprintf("%d/%d", r.report.Failures, len(r.report.Trials)),
			medianOf(r.report, core.KindTransferDuration),
			medianOf(r.report, core.KindDeliveryRate),
			status)
	}
}

func medianOf(rep *report.RunReport, kind core.Kind) string {
	kr := rep.Kind(kind)
	if kr == nil || kr.Stats == nil {
		return "n/a"
	}
	return report.FormatValue(kr.Stats.Median) + " " + kr.Unit
}
