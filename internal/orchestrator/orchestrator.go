// Package orchestrator drives one benchmark run: it prepares the network,
// keeps a server alive, runs client trials one at a time and hands the
// aggregated results to a report sink.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"quicperf/internal/core"
	"quicperf/internal/extract"
	"quicperf/internal/logbuf"
	"quicperf/internal/network"
	"quicperf/internal/pacing"
	"quicperf/internal/process"
	"quicperf/internal/progress"
	"quicperf/internal/report"
)

// Orchestrator runs benchmark plans: it shapes the network, keeps the
// server up, drives client trials and hands the aggregated report to a sink.
type Orchestrator struct {
	runner      process.Runner
	network     network.Controller
	sink        report.Sink
	progress    *progress.Progress
	clock       core.Clock
	logger      *slog.Logger
	thresholds  *report.Thresholds
	trialMargin time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProgress reports trial progress to p.
func WithProgress(p *progress.Progress) Option {
	return func(o *Orchestrator) { o.progress = p }
}

// WithClock sets the clock used to time trials and stamp reports.
func WithClock(c core.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithThresholds evaluates t against every finished run.
func WithThresholds(t *report.Thresholds) Option {
	return func(o *Orchestrator) { o.thresholds = t }
}

// WithTrialMargin sets the slack added to derived trial deadlines.
func WithTrialMargin(d time.Duration) Option {
	return func(o *Orchestrator) { o.trialMargin = d }
}

// New creates an Orchestrator. Without options it reports no progress,
// uses the wall clock and logs to slog.Default.
func New(runner process.Runner, net network.Controller, sink report.Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner:      runner,
		network:     net,
		sink:        sink,
		progress:    progress.NewProgress(true),
		clock:       core.RealClock{},
		logger:      slog.Default(),
		trialMargin: defaultTrialMargin,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes plan and returns its report.
//
// Network and server-spawn failures are fatal and return no report. Once any
// trial has been recorded the report is always aggregated and written, and
// later failures (network clear, cancellation, sink) are joined into err.
func (o *Orchestrator) Run(ctx context.Context, plan core.RunPlan) (*report.RunReport, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger.With("run", plan.ID)
	rep := &report.RunReport{
		Plan:      plan,
		StartedAt: o.clock.Now(),
		Trials:    make([]report.TrialRecord, 0, plan.Trials),
	}
	sets := make(map[core.Kind]*core.SampleSet, len(core.Kinds))
	for _, kind := range core.Kinds {
		sets[kind] = core.NewSampleSet(kind)
	}

	runErr := o.execute(ctx, plan, rep, sets, logger)
	if len(rep.Trials) == 0 {
		return nil, runErr
	}

	for _, kind := range core.Kinds {
		kr := report.NewKindReport(kind, sets[kind].Freeze())
		if kr.Err != nil {
			logger.Warn("kind has no statistics", "kind", kind, "error", kr.Err)
		}
		rep.Kinds = append(rep.Kinds, kr)
	}
	rep.FinishedAt = o.clock.Now()
	if o.thresholds != nil {
		rep.Thresholds = o.thresholds.Check(rep)
	}

	// Persist partial results even when the run was interrupted.
	if err := o.sink.Write(context.WithoutCancel(ctx), rep); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return rep, runErr
}

// execute walks the run state machine. The network clear and the server
// stop are deferred so they run on every exit path, including panics.
func (o *Orchestrator) execute(ctx context.Context, plan core.RunPlan, rep *report.RunReport, sets map[core.Kind]*core.SampleSet, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(err, fmt.Errorf("panic during run: %v", r))
		}
		if clearErr := o.clearNetwork(ctx, logger); clearErr != nil {
			err = errors.Join(err, clearErr)
		}
	}()

	o.progress.Printf("Network: %s (delay %dms, loss %d%%, rate %dMbit)",
		plan.Network.Name, plan.Network.DelayMS, plan.Network.LossPct, plan.Network.RateMbit)
	if err := o.network.Apply(ctx); err != nil {
		return &EnvironmentError{Op: "apply", Err: err}
	}

	logs := logbuf.New()
	server, err := o.runner.Start(ctx, serverCommand(plan), logs)
	if err != nil {
		logs.Close()
		return fmt.Errorf("starting server: %w", err)
	}
	logger.Info("server started", "pid", server.Pid(), "address", plan.Endpoint.BindAddress())
	o.progress.Printf("Server: %s listening on %s (pid %d)", plan.Endpoint.ServerBinary, plan.Endpoint.BindAddress(), server.Pid())

	stopped := false
	stopServer := func() {
		if stopped {
			return
		}
		stopped = true
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
		defer cancel()
		if stopErr := server.Stop(stopCtx); stopErr != nil {
			logger.Warn("server exited unexpectedly", "error", stopErr)
			rep.ServerExit = stopErr.Error()
		}
		logs.Close()
		logger.Debug("server stopped", "lines", logs.Len(), "dropped", logs.Dropped(), "uptime", logs.Duration())
	}
	defer stopServer()

	loopErr := o.runTrials(ctx, plan, rep, sets, logger)

	stopServer()
	rep.ServerLog = logs.Lines()
	added := sets[core.KindStartupExitBandwidth].Add(extract.Server(rep.ServerLog)...)
	logger.Info("server log processed", "lines", len(rep.ServerLog), "samples", added)

	return loopErr
}

// runTrials runs warmup and measured trials strictly one after another.
// Every measured index gets a record; on cancellation the remaining ones
// are recorded as failed.
func (o *Orchestrator) runTrials(ctx context.Context, plan core.RunPlan, rep *report.RunReport, sets map[core.Kind]*core.SampleSet, logger *slog.Logger) error {
	schedule := pacing.NewSchedule(plan.Warmup, plan.Trials)
	pacer := pacing.NewPacer(plan.Interval)
	timeout := trialTimeout(plan, o.trialMargin)

	o.progress.Start()
	defer o.progress.Stop()

	for i, slot := range schedule.Slots() {
		if err := pacer.Wait(ctx); err != nil {
			o.recordCancelled(schedule, i, rep, err)
			return fmt.Errorf("run interrupted: %w", err)
		}

		o.progress.TrialStarted(slot)
		record, samples := o.runTrial(ctx, plan, slot, timeout)
		o.progress.TrialFinished(slot, record.Duration, describe(samples), record.Err)

		if !slot.Measured() {
			continue
		}
		if record.Failed() {
			rep.Failures++
			logger.Warn("trial failed", "trial", slot.Index, "error", record.Err)
		}
		rep.Trials = append(rep.Trials, record)
		for _, set := range sets {
			set.Add(samples...)
		}
	}
	return nil
}

func (o *Orchestrator) recordCancelled(schedule *pacing.Schedule, from int, rep *report.RunReport, cause error) {
	for i := from; i < schedule.Len(); i++ {
		slot, _ := schedule.Slot(i)
		if !slot.Measured() {
			continue
		}
		err := fmt.Errorf("not run: %w", cause)
		rep.Trials = append(rep.Trials, report.TrialRecord{Index: slot.Index, ExitCode: -1, Err: err, Error: err.Error()})
		rep.Failures++
	}
}

// runTrial runs one client and extracts its samples. A trial fails when the
// client cannot run, times out, or its output lacks an expected metric.
// Samples that were extracted are kept even when the trial failed.
func (o *Orchestrator) runTrial(ctx context.Context, plan core.RunPlan, slot pacing.Slot, timeout time.Duration) (report.TrialRecord, []core.Sample) {
	trialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := o.clock.Now()
	out, err := o.runner.Run(trialCtx, clientCommand(plan))
	record := report.TrialRecord{
		Index:    slot.Index,
		Duration: o.clock.Since(start),
		ExitCode: out.ExitCode,
	}

	if err != nil {
		record.Err = fmt.Errorf("client: %w", err)
		record.Error = record.Err.Error()
		return record, nil
	}

	samples, extractErr := extract.Trial(string(out.Stderr), slot.Index)
	record.Samples = len(samples)
	switch {
	case extractErr != nil && !out.Success():
		record.Err = fmt.Errorf("client exited with status %d: %w", out.ExitCode, extractErr)
	case extractErr != nil:
		record.Err = extractErr
	case !out.Success():
		o.logger.Debug("client exited non-zero but reported metrics", "trial", slot.Index, "status", out.ExitCode)
	}
	if record.Err != nil {
		record.Error = record.Err.Error()
	}
	return record, samples
}

func (o *Orchestrator) clearNetwork(ctx context.Context, logger *slog.Logger) error {
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()
	if err := o.network.Clear(clearCtx); err != nil {
		logger.Error("network clear failed", "error", err)
		return &EnvironmentError{Op: "clear", Err: err}
	}
	return nil
}

func describe(samples []core.Sample) string {
	parts := make([]string, 0, len(samples))
	for _, s := range samples {
		parts = append(parts, fmt.Sprintf("%s=%v%s", s.Kind, s.Value, s.Kind.Unit()))
	}
	return strings.Join(parts, " ")
}
