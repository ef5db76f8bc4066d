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

package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/numaproj/dayroll/pkg/calendar"
	"github.com/numaproj/dayroll/pkg/engine"
	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/storage"
	"github.com/numaproj/dayroll/pkg/storage/fs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeDay(t *testing.T, store storage.Store, dir string, users ...string) {
	t.Helper()
	var sb strings.Builder
	for _, u := range users {
		fmt.Fprintf(&sb, "{\"user\":%q}\n", u)
	}
	require.NoError(t, store.WriteFile(context.Background(), dir+"/part-0.jsonl", []byte(sb.String())))
	require.NoError(t, store.WriteFile(context.Background(), dir+"/_SUCCESS", nil))
}

func readOutput(t *testing.T, store storage.Store, dir string) map[string]float64 {
	t.Helper()
	e := New(store)
	r := &run{job: &engine.Job{Logic: engine.NewCountLogic(nil)}}
	out, err := e.loadOutput(context.Background(), r, dir)
	require.NoError(t, err)
	return out
}

func input(d string, p string, role engine.Role) engine.Input {
	return engine.Input{
		Location: partition.DatedLocation{Date: calendar.MustParseISO(d), Path: p},
		Source:   "events",
		Role:     role,
	}
}

func TestEngine_Collapsing(t *testing.T) {
	ctx := context.Background()
	store := fs.NewBaseStore(t.TempDir())
	writeDay(t, store, "/in/20240101", "alice", "bob")
	writeDay(t, store, "/in/20240102", "alice")
	writeDay(t, store, "/in/20240103", "carol", "alice")

	e := New(store, WithParallelism(2))
	res, err := e.Run(ctx, &engine.Job{
		ID:   "first",
		Mode: engine.ModeCollapsing,
		Inputs: []engine.Input{
			input("2024-01-01", "/in/20240101", engine.RoleNew),
			input("2024-01-02", "/in/20240102", engine.RoleNew),
		},
		Logic:   engine.NewCountLogic([]string{"user"}),
		Workers: 3,
		Staging: "/out/20240102",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Stats.RecordsRead)
	assert.Equal(t, int64(2), res.Stats.RecordsWritten)
	assert.Equal(t, map[string]float64{"alice": 2, "bob": 1}, readOutput(t, store, "/out/20240102"))

	entries, err := store.List(ctx, "/out/20240102")
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// slide the window to [01-02, 01-03] reusing the first output
	res, err = e.Run(ctx, &engine.Job{
		ID:   "second",
		Mode: engine.ModeCollapsing,
		Inputs: []engine.Input{
			input("2024-01-02", "/out/20240102", engine.RoleReused),
			input("2024-01-01", "/in/20240101", engine.RoleOld),
			input("2024-01-03", "/in/20240103", engine.RoleNew),
		},
		Logic:   engine.NewCountLogic([]string{"user"}),
		Workers: 1,
		Staging: "/out/20240103",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"alice": 2, "carol": 1}, readOutput(t, store, "/out/20240103"))
	assert.NotEmpty(t, res.Stats.Summary())
}

func TestEngine_Preserving(t *testing.T) {
	ctx := context.Background()
	store := fs.NewBaseStore(t.TempDir())
	writeDay(t, store, "/a/20240101", "alice")
	writeDay(t, store, "/b/20240101", "alice", "bob")
	writeDay(t, store, "/a/20240102", "bob")

	e := New(store)
	_, err := e.Run(ctx, &engine.Job{
		ID:   "daily",
		Mode: engine.ModePreserving,
		Inputs: []engine.Input{
			input("2024-01-02", "/a/20240102", engine.RoleNew),
			input("2024-01-01", "/a/20240101", engine.RoleNew),
			input("2024-01-01", "/b/20240101", engine.RoleNew),
		},
		Logic:        engine.NewCountLogic([]string{"user"}),
		Workers:      2,
		Staging:      "/staging/daily",
		OutputLayout: partition.Nested,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"alice": 2, "bob": 1}, readOutput(t, store, "/staging/daily/2024/01/01"))
	assert.Equal(t, map[string]float64{"bob": 1}, readOutput(t, store, "/staging/daily/2024/01/02"))
}

type flakyLogic struct {
	engine.Logic
	failures int
}

func (f *flakyLogic) Map(rec engine.Record, emit func(string, float64)) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("transient")
	}
	return f.Logic.Map(rec, emit)
}

func TestEngine_Retries(t *testing.T) {
	ctx := context.Background()
	store := fs.NewBaseStore(t.TempDir())
	writeDay(t, store, "/in/20240101", "alice")

	job := func(l engine.Logic) *engine.Job {
		return &engine.Job{
			ID:      "retry",
			Inputs:  []engine.Input{input("2024-01-01", "/in/20240101", engine.RoleNew)},
			Logic:   l,
			Workers: 1,
			Staging: "/out",
		}
	}

	_, err := New(store).Run(ctx, job(&flakyLogic{Logic: engine.NewCountLogic([]string{"user"}), failures: 1}))
	assert.ErrorContains(t, err, "transient")

	res, err := New(store, WithMaxAttempts(2)).Run(ctx, job(&flakyLogic{Logic: engine.NewCountLogic([]string{"user"}), failures: 1}))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.Summary()[0].MaxAttempts)
}

func TestEngine_Errors(t *testing.T) {
	ctx := context.Background()
	store := fs.NewBaseStore(t.TempDir())
	e := New(store)

	_, err := e.Run(ctx, &engine.Job{ID: "x", Staging: "/out"})
	assert.Error(t, err)
	_, err = e.Run(ctx, &engine.Job{ID: "x", Logic: engine.NewCountLogic(nil)})
	assert.Error(t, err)

	_, err = e.Run(ctx, &engine.Job{
		ID:      "missing",
		Inputs:  []engine.Input{input("2024-01-01", "/nope", engine.RoleNew)},
		Logic:   engine.NewCountLogic(nil),
		Staging: "/out",
	})
	assert.Error(t, err)

	require.NoError(t, store.WriteFile(ctx, "/bad/20240101/part-0", []byte("not json\n")))
	_, err = e.Run(ctx, &engine.Job{
		ID:      "bad",
		Inputs:  []engine.Input{input("2024-01-01", "/bad/20240101", engine.RoleNew)},
		Logic:   engine.NewCountLogic(nil),
		Staging: "/out",
	})
	assert.Error(t, err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	writeDay(t, store, "/in/20240101", "alice")
	_, err = e.Run(cctx, &engine.Job{
		ID:      "cancelled",
		Inputs:  []engine.Input{input("2024-01-01", "/in/20240101", engine.RoleNew)},
		Logic:   engine.NewCountLogic(nil),
		Staging: "/out2",
	})
	assert.ErrorIs(t, err, context.Canceled)
}
