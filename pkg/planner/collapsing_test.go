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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/dayroll/pkg/engine"
	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/planerr"
	"github.com/numaproj/dayroll/pkg/window"
)

func collapsingSnapshot(t *testing.T, p *PriorOutput, days ...int) *Snapshot {
	snap := &Snapshot{Indexes: []*partition.Index{index(t, "events", days...)}}
	if p != nil {
		snap.Priors = []*PriorOutput{p}
	}
	return snap
}

func TestPlanCollapsing_ReuseAccepted(t *testing.T) {
	cfg := testConfig(engine.ModeCollapsing)
	cfg.Window.NumDays = ptr(8)

	plan, err := Plan(cfg, collapsingSnapshot(t, prior(1, 8), span(1, 10)...))
	require.NoError(t, err)

	assert.Equal(t, window.MustNew(day(3), day(10)), plan.RequestedWindow())
	assert.Equal(t, window.MustNew(day(3), day(10)), plan.CurrentWindow())
	assert.Equal(t, []int{1, 2}, dayNumbers(plan.OldDays()))
	assert.Equal(t, []int{9, 10}, dayNumbers(plan.NewDays()))

	reuse := plan.Reuse()
	assert.Equal(t, ReuseAccepted, reuse.Outcome)
	assert.Equal(t, 4, reuse.ReuseCost)
	assert.Equal(t, 8, reuse.DirectCost)

	prev, ok := plan.PreviousOutput()
	require.True(t, ok)
	assert.Equal(t, "/out/20240108", prev.Path)
	assert.Equal(t, []partition.DatedLocation{{Date: day(10), Path: "/out/20240110"}}, plan.Outputs())
	assert.False(t, plan.NeedsAnotherPass())

	inputs := plan.InputsToProcess()
	require.Len(t, inputs, 4)
	assert.Equal(t, engine.RoleOld, inputs[0].Role)
	assert.Equal(t, engine.RoleNew, inputs[3].Role)

	engineInputs := plan.EngineInputs()
	require.Len(t, engineInputs, 5)
	assert.Equal(t, engine.RoleReused, engineInputs[0].Role)

	schemas := plan.SchemaByPath()
	assert.Equal(t, "output", schemas["/out/20240108"].Name)
	assert.Equal(t, "events", schemas["/in/events/2024/01/09"].Name)
	assert.Len(t, schemas, 5)
}

func TestPlanCollapsing_ReuseRejected(t *testing.T) {
	cfg := testConfig(engine.ModeCollapsing)
	cfg.Window.NumDays = ptr(2)

	plan, err := Plan(cfg, collapsingSnapshot(t, prior(1, 2), 1, 2, 3))
	require.NoError(t, err)

	assert.Equal(t, window.MustNew(day(2), day(3)), plan.CurrentWindow())
	assert.Equal(t, ReuseRejected, plan.Reuse().Outcome)
	assert.GreaterOrEqual(t, plan.Reuse().ReuseCost, plan.Reuse().DirectCost)
	assert.Equal(t, []int{2, 3}, dayNumbers(plan.NewDays()))
	assert.Empty(t, plan.OldInputs())
	_, ok := plan.PreviousOutput()
	assert.False(t, ok)
	assert.Len(t, plan.SchemaByPath(), 2)
}

func TestPlanCollapsing_NoReuse(t *testing.T) {
	tests := []struct {
		name    string
		reuse   bool
		prior   *PriorOutput
		outcome ReuseOutcome
	}{
		{"no previous output", true, nil, ReuseNotConsidered},
		{"reuse disabled", false, prior(1, 8), ReuseNotConsidered},
		{"unreadable provenance", true, &PriorOutput{Location: prior(1, 8).Location, ReadErr: errors.New("corrupt")}, ReuseIneligible},
		{"previous starts after window", true, prior(4, 8), ReuseIneligible},
		{"previous ends after window", true, prior(3, 10), ReuseIneligible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(engine.ModeCollapsing)
			cfg.ReusePrevious = tt.reuse
			cfg.Window = WindowOptions{Begin: day(3), End: day(9)}

			plan, err := Plan(cfg, collapsingSnapshot(t, tt.prior, span(1, 10)...))
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, plan.Reuse().Outcome)
			assert.NotEmpty(t, plan.Reuse().Reason)
			assert.Equal(t, span(3, 9), dayNumbers(plan.NewDays()))
			assert.Empty(t, plan.OldInputs())
			_, ok := plan.PreviousOutput()
			assert.False(t, ok)
		})
	}
}

func TestPlanCollapsing_CheapestCandidate(t *testing.T) {
	cfg := testConfig(engine.ModeCollapsing)
	cfg.Window = WindowOptions{Begin: day(8), End: day(12)}
	cfg.MaxDaysPerPass = 2
	snap := collapsingSnapshot(t, nil, span(1, 12)...)
	// /out/20240110 covers [1, 10], a capped pass then published [8, 9]
	snap.Priors = []*PriorOutput{prior(1, 10), prior(8, 9)}

	plan, err := Plan(cfg, snap)
	require.NoError(t, err)
	assert.Equal(t, ReuseAccepted, plan.Reuse().Outcome)
	assert.Equal(t, 3, plan.Reuse().ReuseCost)
	prev, ok := plan.PreviousOutput()
	require.True(t, ok)
	assert.Equal(t, "/out/20240109", prev.Path)
	assert.Empty(t, plan.OldInputs())
	assert.Equal(t, []int{10, 11}, dayNumbers(plan.NewDays()))
	assert.Equal(t, window.MustNew(day(8), day(11)), plan.CurrentWindow())
	assert.True(t, plan.NeedsAnotherPass())

	// without an accepted candidate the newest one is reported
	snap.Priors = []*PriorOutput{prior(1, 10), prior(1, 9)}
	plan, err = Plan(cfg, snap)
	require.NoError(t, err)
	assert.Equal(t, ReuseRejected, plan.Reuse().Outcome)
	assert.Equal(t, "/out/20240110", plan.Reuse().PreviousOutput)
	assert.Equal(t, []int{8, 9}, dayNumbers(plan.NewDays()))

	// a candidate that cannot be subtracted does not hide a usable one
	snap = collapsingSnapshot(t, nil, span(3, 12)...)
	snap.Priors = []*PriorOutput{prior(1, 10), prior(8, 9)}
	plan, err = Plan(cfg, snap)
	require.NoError(t, err)
	prev, ok = plan.PreviousOutput()
	require.True(t, ok)
	assert.Equal(t, "/out/20240109", prev.Path)
}

func TestPlanCollapsing_CannotSubtractMissingData(t *testing.T) {
	cfg := testConfig(engine.ModeCollapsing)
	cfg.Window.NumDays = ptr(8)

	_, err := Plan(cfg, collapsingSnapshot(t, prior(1, 8), span(3, 10)...))
	require.Error(t, err)
	assert.ErrorIs(t, err, planerr.ErrCannotSubtractMissingData)
	assert.Equal(t, planerr.DataAvailability, planerr.KindOf(err))
}

func TestPlanCollapsing_MissingNewDay(t *testing.T) {
	cfg := testConfig(engine.ModeCollapsing)
	cfg.Window = WindowOptions{Begin: day(1), End: day(5)}
	snap := collapsingSnapshot(t, nil, 1, 2, 4, 5)

	_, err := Plan(cfg, snap)
	assert.ErrorIs(t, err, planerr.ErrMissingPartition)

	cfg.FailOnMissing = false
	plan, err := Plan(cfg, snap)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4, 5}, dayNumbers(plan.NewDays()))
	assert.Equal(t, []int{3}, dayNumbers(plan.SkippedDays()))
	assert.Equal(t, window.MustNew(day(1), day(5)), plan.CurrentWindow())
}

func TestPlanCollapsing_CapDrainsBacklog(t *testing.T) {
	cfg := testConfig(engine.ModeCollapsing)
	cfg.MaxDaysPerPass = 3
	available := span(1, 10)

	var p *PriorOutput
	var newDays [][]int
	for pass := 0; ; pass++ {
		require.Less(t, pass, 10)
		plan, err := Plan(cfg, collapsingSnapshot(t, p, available...))
		require.NoError(t, err)
		assert.Empty(t, plan.OldInputs())
		newDays = append(newDays, dayNumbers(plan.NewDays()))

		out := plan.Outputs()[0]
		assert.Equal(t, plan.CurrentWindow().End, out.Date)
		p = &PriorOutput{Location: out, Window: plan.CurrentWindow()}
		if !plan.NeedsAnotherPass() {
			break
		}
	}
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {10}}, newDays)
	assert.Equal(t, window.MustNew(day(1), day(10)), p.Window)

	// nothing left to do once the output covers the window
	plan, err := Plan(cfg, collapsingSnapshot(t, p, available...))
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
	assert.Equal(t, ReuseAccepted, plan.Reuse().Outcome)
	assert.False(t, plan.NeedsAnotherPass())
}

func TestPlanCollapsing_CapRequiresReuse(t *testing.T) {
	cfg := testConfig(engine.ModeCollapsing)
	cfg.MaxDaysPerPass = 3
	cfg.ReusePrevious = false
	_, err := Plan(cfg, collapsingSnapshot(t, nil, span(1, 10)...))
	assert.ErrorIs(t, err, planerr.ErrConflictingConfig)
}

// Every combination of previous window and requested window: reuse is only
// chosen when strictly cheaper, inputs never overlap, and the planned days
// together with the kept part of the previous output cover the window.
func TestPlanCollapsing_ReuseNeverLoses(t *testing.T) {
	available := span(1, 10)
	for pb := 1; pb <= 10; pb++ {
		for pe := pb; pe <= 10; pe++ {
			for wb := 1; wb <= 10; wb++ {
				for we := wb; we <= 10; we++ {
					cfg := testConfig(engine.ModeCollapsing)
					cfg.Window = WindowOptions{Begin: day(wb), End: day(we)}
					plan, err := Plan(cfg, collapsingSnapshot(t, prior(pb, pe), available...))
					require.NoError(t, err)

					reuse := plan.Reuse()
					_, hasPrev := plan.PreviousOutput()
					if reuse.Outcome == ReuseAccepted {
						require.Less(t, reuse.ReuseCost, reuse.DirectCost)
						require.True(t, hasPrev)
					} else {
						require.False(t, hasPrev)
						require.Empty(t, plan.OldInputs())
					}

					seen := map[int]bool{}
					for _, in := range plan.InputsToProcess() {
						require.False(t, seen[in.Location.Date.Day()], "day %d planned twice", in.Location.Date.Day())
						seen[in.Location.Date.Day()] = true
					}

					covered := map[int]bool{}
					if hasPrev {
						for d := pb; d <= pe; d++ {
							covered[d] = true
						}
						for _, d := range plan.OldDays() {
							delete(covered, d.Day())
						}
					}
					for _, d := range plan.NewDays() {
						require.False(t, covered[d.Day()])
						covered[d.Day()] = true
					}
					for d := wb; d <= we; d++ {
						require.True(t, covered[d], "day %d not covered", d)
					}
					require.Len(t, covered, we-wb+1)
				}
			}
		}
	}
}

func TestPlan_Idempotent(t *testing.T) {
	cfg := testConfig(engine.ModeCollapsing)
	cfg.Window.NumDays = ptr(8)
	snap := collapsingSnapshot(t, prior(1, 8), span(1, 10)...)

	first, err := Plan(cfg, snap)
	require.NoError(t, err)
	second, err := Plan(cfg, snap)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
