/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package orchestrator runs the bounded plan, compute and publish loop of
// one incremental job.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	dfv1 "github.com/numaproj/dayroll/pkg/apis/dayroll/v1alpha1"
	"github.com/numaproj/dayroll/pkg/calendar"
	"github.com/numaproj/dayroll/pkg/engine"
	"github.com/numaproj/dayroll/pkg/metrics"
	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/planerr"
	"github.com/numaproj/dayroll/pkg/planner"
	"github.com/numaproj/dayroll/pkg/provenance"
	"github.com/numaproj/dayroll/pkg/publish"
	"github.com/numaproj/dayroll/pkg/reducesize"
	"github.com/numaproj/dayroll/pkg/shared/logging"
	"github.com/numaproj/dayroll/pkg/storage"
)

// Orchestrator runs passes until the window is fully processed. Passes are
// strictly sequential, the output of one pass may be the input of the next.
type Orchestrator struct {
	name          string
	cfg           planner.Config
	store         storage.Store
	engine        engine.Engine
	logic         engine.Logic
	schemas       engine.RecordSchemas
	estimator     *reducesize.Estimator
	codec         provenance.Codec
	publisher     *publish.StagedPublisher
	maxIterations int
	retention     int
	clock         calendar.Clock
	newJobID      func() string
}

type Option func(*Orchestrator)

// WithMaxIterations bounds the passes of one Run.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) {
		o.maxIterations = n
	}
}

// WithRetention keeps only the n most recent outputs after each publish.
func WithRetention(n int) Option {
	return func(o *Orchestrator) {
		o.retention = n
	}
}

func WithCodec(c provenance.Codec) Option {
	return func(o *Orchestrator) {
		o.codec = c
	}
}

func WithPublisher(p *publish.StagedPublisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

func WithSchemas(s engine.RecordSchemas) Option {
	return func(o *Orchestrator) {
		o.schemas = s
	}
}

func WithClock(c calendar.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithJobIDFunc replaces the generator of pass job ids.
func WithJobIDFunc(f func() string) Option {
	return func(o *Orchestrator) {
		o.newJobID = f
	}
}

// New returns an orchestrator for the job called name.
func New(name string, cfg planner.Config, store storage.Store, eng engine.Engine, logic engine.Logic, estimator *reducesize.Estimator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		name:          name,
		cfg:           cfg,
		store:         store,
		engine:        eng,
		logic:         logic,
		estimator:     estimator,
		maxIterations: dfv1.DefaultMaxIterations,
		clock:         calendar.RealClock{},
		newJobID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.codec == nil {
		o.codec = provenance.NewCodec()
	}
	if o.publisher == nil {
		var popts []publish.Option
		if f, ok := o.codec.(publish.Forgetter); ok {
			popts = append(popts, publish.WithForgetter(f))
		}
		o.publisher = publish.NewStagedPublisher(store, cfg.OutputRoot, popts...)
	}
	return o
}

// Run executes passes until a plan needs no further pass. It fails with
// IterationLimitExceeded when work remains after the maximum number of
// passes. The reports of the passes that did publish are returned either way.
func (o *Orchestrator) Run(ctx context.Context) (*Reports, error) {
	log := logging.FromContext(ctx).With("job", o.name)
	ctx = logging.WithLogger(ctx, log)
	reports := &Reports{}

	cleaned, err := o.publisher.CleanStale(ctx)
	metrics.StaleStagingCleaned.WithLabelValues(o.name).Add(float64(cleaned))
	if err != nil {
		return reports, err
	}

	for iteration := 1; iteration <= o.maxIterations; iteration++ {
		more, err := o.runPass(ctx, iteration, reports)
		if err != nil {
			metrics.PassFailures.WithLabelValues(o.name, planerr.KindOf(err).String()).Inc()
			return reports, err
		}
		if !more {
			log.Infow("Job is up to date", zap.Int("passes", reports.Len()))
			return reports, nil
		}
	}
	err = planerr.Newf(planerr.CodeIterationLimitExceeded, "work remains after %d passes, raise the per-pass day cap or the iteration limit", o.maxIterations)
	metrics.PassFailures.WithLabelValues(o.name, planerr.KindOf(err).String()).Inc()
	return reports, err
}

// runPass plans, computes and publishes one pass. It reports whether another
// pass is needed.
func (o *Orchestrator) runPass(ctx context.Context, iteration int, reports *Reports) (more bool, err error) {
	start := time.Now()
	log := logging.FromContext(ctx).With("iteration", iteration)

	plan, err := planner.NewPlanner(o.cfg, o.store, o.codec, o.estimator).CreatePlan(logging.WithLogger(ctx, log))
	if err != nil {
		return false, err
	}
	o.observePlan(plan)
	if plan.IsEmpty() {
		log.Infow("Nothing to process", zap.Stringer("window", plan.RequestedWindow()))
		return false, nil
	}

	jobID := o.newJobID()
	log = log.With("jobId", jobID)
	ctx = logging.WithLogger(ctx, log)
	staging := o.publisher.StagingPath(jobID)
	published := false
	defer func() {
		if !published {
			// staging must not outlive a failed or interrupted pass
			if derr := o.publisher.Discard(context.WithoutCancel(ctx), jobID); derr != nil {
				log.Errorw("Failed to discard staging", zap.String("staging", staging), zap.Error(derr))
			}
		}
	}()

	result, err := o.engine.Run(ctx, &engine.Job{
		ID:           jobID,
		Mode:         plan.Mode(),
		Inputs:       plan.EngineInputs(),
		Schemas:      o.schemas,
		SchemaByPath: plan.SchemaByPath(),
		Logic:        o.logic,
		Workers:      plan.ReducerCount(),
		Staging:      staging,
		OutputLayout: o.cfg.OutputLayout,
	})
	if err != nil {
		return false, planerr.Wrap(planerr.CodeEngineFailure, err)
	}

	targets, collapsedOutput := o.targets(plan, staging)
	if collapsedOutput != "" {
		if err = o.codec.Write(ctx, o.store, staging, o.provenanceOf(plan, jobID)); err != nil {
			return false, err
		}
	}
	if err = o.publisher.Publish(ctx, jobID, targets); err != nil {
		metrics.PublishFailures.WithLabelValues(o.name).Inc()
		return false, err
	}
	published = true
	if err = o.publisher.Discard(ctx, jobID); err != nil {
		log.Warnw("Failed to clean up staging after publish", zap.Error(err))
	}

	report := PassReport{
		JobID:        jobID,
		Iteration:    iteration,
		Window:       plan.CurrentWindow(),
		NewInputs:    locations(plan.NewInputs()),
		OldInputs:    locations(plan.OldInputs()),
		Outputs:      plan.Outputs(),
		Reuse:        plan.Reuse(),
		ReducerCount: plan.ReducerCount(),
		PartialDays:  plan.PartialDays(),
		StartedAt:    start,
	}
	if prev, ok := plan.PreviousOutput(); ok {
		report.ReusedOutput = &prev
	}

	var run *engine.RunStats
	if result != nil {
		run = result.Stats
	}
	if run != nil {
		metrics.RecordsRead.WithLabelValues(o.name).Add(float64(run.RecordsRead))
	}
	outputPaths := make([]string, 0, len(report.Outputs))
	for _, out := range report.Outputs {
		outputPaths = append(outputPaths, out.Path)
	}
	statsLoc, err := o.publisher.WriteStats(ctx, collapsedOutput, &publish.Stats{
		JobID:    jobID,
		Window:   report.Window,
		Outputs:  outputPaths,
		Run:      run,
		Reducers: report.ReducerCount,
	})
	if err != nil {
		log.Warnw("Failed to write run statistics", zap.Error(err))
	} else {
		report.StatsLocation = statsLoc
	}

	// the output just published may date before an older, wider one
	deleted, err := o.publisher.Retain(ctx, o.retention, outputPaths...)
	metrics.RetentionDeleted.WithLabelValues(o.name).Add(float64(len(deleted)))
	if err != nil {
		log.Warnw("Failed to apply retention", zap.Error(err))
	}

	report.Duration = time.Since(start)
	reports.Append(report)
	metrics.PassesTotal.WithLabelValues(o.name, plan.Mode().String()).Inc()
	metrics.PassDuration.WithLabelValues(o.name).Observe(report.Duration.Seconds())
	log.Infow("Pass published",
		zap.Stringer("window", report.Window),
		zap.Int("outputs", len(report.Outputs)),
		zap.Duration("duration", report.Duration))
	return plan.NeedsAnotherPass(), nil
}

// targets maps staged locations to final ones. A collapsing pass stages its
// single output at the staging root, which is returned as collapsedOutput.
func (o *Orchestrator) targets(plan *planner.ExecutionPlan, staging string) (targets []publish.Target, collapsedOutput string) {
	outputs := plan.Outputs()
	if plan.Mode() == engine.ModeCollapsing {
		return []publish.Target{{Staged: staging, Final: outputs[0].Path}}, outputs[0].Path
	}
	for _, out := range outputs {
		targets = append(targets, publish.Target{
			Staged: o.cfg.OutputLayout.PathFor(staging, out.Date),
			Final:  out.Path,
		})
	}
	return targets, ""
}

func (o *Orchestrator) provenanceOf(plan *planner.ExecutionPlan, jobID string) *provenance.Provenance {
	p := &provenance.Provenance{
		Window:    plan.CurrentWindow(),
		JobID:     jobID,
		CreatedAt: o.clock.Now().UTC(),
		NewInputs: len(plan.NewInputs()),
		OldInputs: len(plan.OldInputs()),
	}
	if prev, ok := plan.PreviousOutput(); ok {
		p.PreviousOutput = prev.Path
	}
	return p
}

func (o *Orchestrator) observePlan(plan *planner.ExecutionPlan) {
	metrics.PlannedDays.WithLabelValues(o.name, engine.RoleNew.String()).Add(float64(len(plan.NewDays())))
	metrics.PlannedDays.WithLabelValues(o.name, engine.RoleOld.String()).Add(float64(len(plan.OldDays())))
	metrics.PartialDays.WithLabelValues(o.name).Add(float64(len(plan.PartialDays())))
	metrics.ReuseDecisions.WithLabelValues(o.name, string(plan.Reuse().Outcome)).Inc()
	metrics.ReducerCount.WithLabelValues(o.name).Set(float64(plan.ReducerCount()))
}

func locations(inputs []engine.Input) []partition.DatedLocation {
	result := make([]partition.DatedLocation, 0, len(inputs))
	for _, in := range inputs {
		result = append(result, in.Location)
	}
	return result
}
