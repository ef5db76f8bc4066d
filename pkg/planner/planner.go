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

package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	dfv1 "github.com/numaproj/dayroll/pkg/apis/dayroll/v1alpha1"
	"github.com/numaproj/dayroll/pkg/engine"
	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/planerr"
	"github.com/numaproj/dayroll/pkg/provenance"
	"github.com/numaproj/dayroll/pkg/reducesize"
	"github.com/numaproj/dayroll/pkg/shared/logging"
	"github.com/numaproj/dayroll/pkg/storage"
)

// Planner plans a single pass against live storage. It is single use:
// CreatePlan may be called once, and the accessors fail before it succeeds.
type Planner struct {
	cfg       Config
	store     storage.Store
	codec     provenance.Codec
	estimator *reducesize.Estimator
	created   bool
	plan      *ExecutionPlan
}

// NewPlanner returns a planner sizing reducers with estimator.
func NewPlanner(cfg Config, store storage.Store, codec provenance.Codec, estimator *reducesize.Estimator) *Planner {
	return &Planner{
		cfg:       cfg,
		store:     store,
		codec:     codec,
		estimator: estimator,
	}
}

// CreatePlan snapshots storage, plans the pass and sizes its reducers.
func (p *Planner) CreatePlan(ctx context.Context) (*ExecutionPlan, error) {
	if p.created {
		return nil, planerr.New(planerr.CodePlanAlreadyExists, "createPlan was already called on this planner")
	}
	p.created = true
	log := logging.FromContext(ctx)

	snap, err := TakeSnapshot(ctx, p.store, p.codec, p.cfg)
	if err != nil {
		return nil, err
	}
	for _, prior := range snap.Priors {
		if prior.ReadErr != nil {
			log.Warnw("Previous output has unreadable provenance, it will not be reused",
				zap.String("output", prior.Location.Path), zap.Error(prior.ReadErr))
		}
	}
	plan, err := Plan(p.cfg, snap)
	if err != nil {
		return nil, err
	}
	plan, err = SizePlan(ctx, p.store, p.estimator, plan)
	if err != nil {
		return nil, err
	}

	for _, pd := range plan.PartialDays() {
		log.Warnw("Day is missing from some sources, joining the others",
			zap.Stringer("date", pd.Date), zap.Strings("missingSources", pd.MissingSources))
	}
	log.Infow("Created plan",
		zap.Stringer("mode", plan.Mode()),
		zap.Stringer("window", plan.CurrentWindow()),
		zap.Int("newDays", len(plan.NewDays())),
		zap.Int("oldDays", len(plan.OldDays())),
		zap.String("reuse", string(plan.Reuse().Outcome)),
		zap.Int("reducers", plan.ReducerCount()),
		zap.Bool("needsAnotherPass", plan.NeedsAnotherPass()))
	p.plan = plan
	return plan, nil
}

// SizePlan returns a copy of plan carrying the reducer count for its byte
// volume. Inputs and the reused output are sized under separate tags.
func SizePlan(ctx context.Context, store storage.Store, estimator *reducesize.Estimator, plan *ExecutionPlan) (*ExecutionPlan, error) {
	bytes := map[string]int64{}
	for _, in := range plan.InputsToProcess() {
		n, err := store.Size(ctx, in.Location.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to size %q, %w", in.Location.Path, err)
		}
		bytes[dfv1.ReducerTagInput] += n
	}
	if prev, ok := plan.PreviousOutput(); ok {
		n, err := store.Size(ctx, prev.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to size %q, %w", prev.Path, err)
		}
		bytes[dfv1.ReducerTagPrevious] = n
	}
	return plan.withReducers(estimator.Estimate(bytes), bytes), nil
}

func (p *Planner) get() (*ExecutionPlan, error) {
	if p.plan == nil {
		return nil, planerr.New(planerr.CodePlanNotYetCreated, "createPlan has not been called")
	}
	return p.plan, nil
}

// Plan returns the created plan.
func (p *Planner) Plan() (*ExecutionPlan, error) {
	return p.get()
}

func (p *Planner) InputsToProcess() ([]engine.Input, error) {
	plan, err := p.get()
	if err != nil {
		return nil, err
	}
	return plan.InputsToProcess(), nil
}

func (p *Planner) NewInputsToProcess() ([]engine.Input, error) {
	plan, err := p.get()
	if err != nil {
		return nil, err
	}
	return plan.NewInputs(), nil
}

func (p *Planner) OldInputsToProcess() ([]engine.Input, error) {
	plan, err := p.get()
	if err != nil {
		return nil, err
	}
	return plan.OldInputs(), nil
}

// PreviousOutputToProcess returns the reused output, ok is false when there is none.
func (p *Planner) PreviousOutputToProcess() (loc partition.DatedLocation, ok bool, err error) {
	plan, err := p.get()
	if err != nil {
		return partition.DatedLocation{}, false, err
	}
	loc, ok = plan.PreviousOutput()
	return loc, ok, nil
}

func (p *Planner) ReducerCount() (int, error) {
	plan, err := p.get()
	if err != nil {
		return 0, err
	}
	return plan.ReducerCount(), nil
}

func (p *Planner) NeedsAnotherPass() (bool, error) {
	plan, err := p.get()
	if err != nil {
		return false, err
	}
	return plan.NeedsAnotherPass(), nil
}

func (p *Planner) SchemaByPath() (map[string]engine.Schema, error) {
	plan, err := p.get()
	if err != nil {
		return nil, err
	}
	return plan.SchemaByPath(), nil
}
