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
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dfv1 "github.com/numaproj/dayroll/pkg/apis/dayroll/v1alpha1"
	"github.com/numaproj/dayroll/pkg/engine"
	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/planerr"
	"github.com/numaproj/dayroll/pkg/provenance"
	"github.com/numaproj/dayroll/pkg/reducesize"
	"github.com/numaproj/dayroll/pkg/storage"
	"github.com/numaproj/dayroll/pkg/storage/fs"
	"github.com/numaproj/dayroll/pkg/window"
)

func seedStore(t *testing.T, withPrior bool) storage.Store {
	t.Helper()
	ctx := context.Background()
	store := fs.NewStore(afero.NewMemMapFs())
	for n := 1; n <= 10; n++ {
		p := partition.Nested.PathFor("/in/events", day(n)) + "/part-0.jsonl"
		require.NoError(t, store.WriteFile(ctx, p, []byte(strings.Repeat("x", 100))))
	}
	if withPrior {
		out := partition.Flat.PathFor("/out", day(8))
		require.NoError(t, store.WriteFile(ctx, out+"/part-00000.jsonl", []byte(strings.Repeat("y", 500))))
		require.NoError(t, provenance.NewCodec().Write(ctx, store, out, &provenance.Provenance{
			Window:    window.MustNew(day(1), day(8)),
			JobID:     "previous",
			CreatedAt: time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		}))
	} else {
		require.NoError(t, store.WriteFile(ctx, "/out/20240108/part-00000.jsonl", nil))
	}
	return store
}

func newTestPlanner(t *testing.T, store storage.Store) *Planner {
	cfg := testConfig(engine.ModeCollapsing)
	cfg.Window.NumDays = ptr(8)
	est, err := reducesize.NewEstimator(150, reducesize.WithTagBytes(dfv1.ReducerTagPrevious, 1000))
	require.NoError(t, err)
	return NewPlanner(cfg, store, provenance.NewCodec(), est)
}

func TestPlanner_CreatePlan(t *testing.T) {
	p := newTestPlanner(t, seedStore(t, true))

	_, err := p.InputsToProcess()
	assert.ErrorIs(t, err, planerr.ErrPlanNotYetCreated)
	_, err = p.ReducerCount()
	assert.ErrorIs(t, err, planerr.ErrPlanNotYetCreated)
	_, _, err = p.PreviousOutputToProcess()
	assert.ErrorIs(t, err, planerr.ErrPlanNotYetCreated)

	plan, err := p.CreatePlan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReuseAccepted, plan.Reuse().Outcome)
	assert.Equal(t, []int{1, 2}, dayNumbers(plan.OldDays()))
	assert.Equal(t, []int{9, 10}, dayNumbers(plan.NewDays()))

	// 400 input bytes at 150 per reducer, the reused output fits one reducer
	assert.Equal(t, int64(400), plan.BytesByTag()[dfv1.ReducerTagInput])
	assert.Greater(t, plan.BytesByTag()[dfv1.ReducerTagPrevious], int64(500))
	assert.Equal(t, 4, plan.ReducerCount())

	n, err := p.ReducerCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	inputs, err := p.InputsToProcess()
	require.NoError(t, err)
	assert.Len(t, inputs, 4)
	newInputs, err := p.NewInputsToProcess()
	require.NoError(t, err)
	assert.Len(t, newInputs, 2)
	oldInputs, err := p.OldInputsToProcess()
	require.NoError(t, err)
	assert.Len(t, oldInputs, 2)
	prev, ok, err := p.PreviousOutputToProcess()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/out/20240108", prev.Path)
	more, err := p.NeedsAnotherPass()
	require.NoError(t, err)
	assert.False(t, more)
	schemas, err := p.SchemaByPath()
	require.NoError(t, err)
	assert.Len(t, schemas, 5)

	_, err = p.CreatePlan(context.Background())
	assert.ErrorIs(t, err, planerr.ErrPlanAlreadyExists)
	assert.Equal(t, planerr.Configuration, planerr.KindOf(err))
}

func TestPlanner_UnreadableProvenance(t *testing.T) {
	p := newTestPlanner(t, seedStore(t, false))
	plan, err := p.CreatePlan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReuseIneligible, plan.Reuse().Outcome)
	assert.Equal(t, "/out/20240108", plan.Reuse().PreviousOutput)
	assert.Equal(t, dayNumbers(dateRange(3, 10)), dayNumbers(plan.NewDays()))
	assert.Equal(t, 6, plan.ReducerCount())
}

func TestPlanner_FailedPlanIsStillUsedUp(t *testing.T) {
	store := fs.NewStore(afero.NewMemMapFs())
	p := newTestPlanner(t, store)
	_, err := p.CreatePlan(context.Background())
	assert.ErrorIs(t, err, planerr.ErrMissingPath)
	_, err = p.CreatePlan(context.Background())
	assert.ErrorIs(t, err, planerr.ErrPlanAlreadyExists)
	_, err = p.Plan()
	assert.ErrorIs(t, err, planerr.ErrPlanNotYetCreated)
}

func TestTakeSnapshot(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, true)
	cfg := testConfig(engine.ModeCollapsing)

	snap, err := TakeSnapshot(ctx, store, provenance.NewCodec(), cfg)
	require.NoError(t, err)
	require.Len(t, snap.Indexes, 1)
	assert.Equal(t, 10, snap.Indexes[0].Len())
	require.Len(t, snap.Outputs, 1)
	require.Len(t, snap.Priors, 1)
	require.NotNil(t, snap.Latest())
	assert.NoError(t, snap.Latest().ReadErr)
	assert.Equal(t, window.MustNew(day(1), day(8)), snap.Latest().Window)

	cfg.ReusePrevious = false
	snap, err = TakeSnapshot(ctx, store, provenance.NewCodec(), cfg)
	require.NoError(t, err)
	assert.Nil(t, snap.Latest())
}

func TestTakeSnapshot_EveryOutputIsACandidate(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, true)
	require.NoError(t, store.WriteFile(ctx, "/out/20240110/part-00000.jsonl", nil))

	snap, err := TakeSnapshot(ctx, store, provenance.NewCodec(), testConfig(engine.ModeCollapsing))
	require.NoError(t, err)
	require.Len(t, snap.Priors, 2)
	assert.Equal(t, "/out/20240110", snap.Latest().Location.Path)
	assert.Error(t, snap.Latest().ReadErr)
	assert.Equal(t, "/out/20240108", snap.Priors[1].Location.Path)
	assert.NoError(t, snap.Priors[1].ReadErr)

	snap, err = TakeSnapshot(ctx, store, provenance.NewCodec(), testConfig(engine.ModePreserving))
	require.NoError(t, err)
	assert.Empty(t, snap.Priors)
}

func TestExecutionPlan_MarshalJSON(t *testing.T) {
	cfg := testConfig(engine.ModeCollapsing)
	cfg.Window.NumDays = ptr(8)
	plan, err := Plan(cfg, collapsingSnapshot(t, prior(1, 8), span(1, 10)...))
	require.NoError(t, err)

	data, err := json.Marshal(plan)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "collapsing", decoded["mode"])
	assert.Equal(t, "accepted", decoded["reuse"].(map[string]any)["outcome"])
	assert.Equal(t, "2024-01-03", decoded["currentWindow"].(map[string]any)["begin"])
	inputs := decoded["inputs"].([]any)
	require.Len(t, inputs, 5)
	assert.Equal(t, "reused", inputs[0].(map[string]any)["role"])
}
