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

// Package local is an in-process engine.Engine. Inputs are directories of
// JSON-lines files, outputs are directories of part files holding one
// {"key", "value"} object per line.
package local

import (
	"bufio"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/spaolacci/murmur3"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	dfv1 "github.com/numaproj/dayroll/pkg/apis/dayroll/v1alpha1"
	"github.com/numaproj/dayroll/pkg/calendar"
	"github.com/numaproj/dayroll/pkg/engine"
	"github.com/numaproj/dayroll/pkg/shared/logging"
	"github.com/numaproj/dayroll/pkg/storage"
)

const maxLineSize = 4 * 1024 * 1024

type outputRecord struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Engine runs jobs inside the current process.
type Engine struct {
	store       storage.Store
	parallelism int
	maxAttempts int
}

type Option func(*Engine)

// WithParallelism sets how many map tasks run at once.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithMaxAttempts sets how many times a failing task is tried.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		e.maxAttempts = n
	}
}

// New returns an engine reading and writing through store.
func New(store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		parallelism: dfv1.DefaultEngineParallelism,
		maxAttempts: dfv1.DefaultEngineMaxAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.parallelism < 1 {
		e.parallelism = 1
	}
	if e.maxAttempts < 1 {
		e.maxAttempts = 1
	}
	return e
}

// run carries the mutable state of one Run call.
type run struct {
	job     *engine.Job
	log     *zap.SugaredLogger
	read    atomic.Int64
	written atomic.Int64
	lock    sync.Mutex
	tasks   []engine.TaskStat
}

func (r *run) record(t engine.TaskStat) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.tasks = append(r.tasks, t)
}

func (e *Engine) Run(ctx context.Context, job *engine.Job) (*engine.Result, error) {
	if job.Logic == nil {
		return nil, fmt.Errorf("job %s has no logic", job.ID)
	}
	if job.Staging == "" {
		return nil, fmt.Errorf("job %s has no staging location", job.ID)
	}
	workers := job.Workers
	if workers < 1 {
		workers = 1
	}
	r := &run{
		job: job,
		log: logging.FromContext(ctx).With("job", job.ID),
	}

	switch job.Mode {
	case engine.ModeCollapsing:
		state, err := e.aggregate(ctx, r, job.Inputs)
		if err != nil {
			return nil, err
		}
		if err = e.write(ctx, r, job.Staging, state, workers); err != nil {
			return nil, err
		}
	case engine.ModePreserving:
		days, byDay := groupByDay(job.Inputs)
		for _, d := range days {
			state, err := e.aggregate(ctx, r, byDay[d])
			if err != nil {
				return nil, err
			}
			dir := job.OutputLayout.PathFor(job.Staging, d)
			if err = e.write(ctx, r, dir, state, workers); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unsupported mode %v", job.Mode)
	}

	r.log.Infow("Job finished", zap.Int64("recordsRead", r.read.Load()), zap.Int64("recordsWritten", r.written.Load()))
	return &engine.Result{Stats: &engine.RunStats{
		Tasks:          r.tasks,
		RecordsRead:    r.read.Load(),
		RecordsWritten: r.written.Load(),
	}}, nil
}

func groupByDay(inputs []engine.Input) ([]calendar.Date, map[calendar.Date][]engine.Input) {
	byDay := make(map[calendar.Date][]engine.Input)
	var days []calendar.Date
	for _, in := range inputs {
		d := in.Location.Date
		if _, ok := byDay[d]; !ok {
			days = append(days, d)
		}
		byDay[d] = append(byDay[d], in)
	}
	calendar.Sort(days)
	return days, byDay
}

// aggregate maps every input in parallel, then folds the partial results:
// new inputs and reused outputs are combined, old inputs are subtracted.
func (e *Engine) aggregate(ctx context.Context, r *run, inputs []engine.Input) (map[string]float64, error) {
	partials := make([]map[string]float64, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, in := range inputs {
		name := fmt.Sprintf("%s-%s-%s", in.Role, in.Location.Date, in.Source)
		g.Go(func() error {
			m, err := e.runTask(gctx, r, name, "map", func(ctx context.Context) (map[string]float64, error) {
				if in.Role == engine.RoleReused {
					return e.loadOutput(ctx, r, in.Location.Path)
				}
				return e.mapInput(ctx, r, in.Location.Path)
			})
			if err != nil {
				return err
			}
			partials[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logic := r.job.Logic
	state := make(map[string]float64)
	for i, in := range inputs {
		for k, v := range partials[i] {
			if in.Role == engine.RoleOld {
				state[k] = logic.Subtract(state[k], v)
			} else {
				state[k] = logic.Combine(state[k], v)
			}
		}
	}
	return state, nil
}

func (e *Engine) runTask(ctx context.Context, r *run, name, phase string, fn func(context.Context) (map[string]float64, error)) (map[string]float64, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		start := time.Now()
		m, err := fn(ctx)
		if err == nil {
			r.record(engine.TaskStat{Name: name, Phase: phase, Duration: time.Since(start), Attempts: attempt})
			return m, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		r.log.Warnw("Task failed", zap.String("task", name), zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, fmt.Errorf("task %s failed, %w", name, lastErr)
}

func dataFiles(ctx context.Context, store storage.Store, dir string) ([]string, error) {
	entries, err := store.List(ctx, dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, en := range entries {
		if en.IsDir || strings.HasPrefix(en.Name, "_") || strings.HasPrefix(en.Name, ".") {
			continue
		}
		files = append(files, path.Join(dir, en.Name))
	}
	return files, nil
}

func (e *Engine) scan(ctx context.Context, file string, fn func(line []byte) error) error {
	rc, err := e.store.Open(ctx, file)
	if err != nil {
		return err
	}
	defer rc.Close()
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	return scanner.Err()
}

func (e *Engine) mapInput(ctx context.Context, r *run, dir string) (map[string]float64, error) {
	files, err := dataFiles(ctx, e.store, dir)
	if err != nil {
		return nil, err
	}
	logic := r.job.Logic
	out := make(map[string]float64)
	emit := func(k string, v float64) {
		out[k] = logic.Combine(out[k], v)
	}
	for _, f := range files {
		err := e.scan(ctx, f, func(line []byte) error {
			rec := engine.Record{}
			if err := json.Unmarshal(line, &rec); err != nil {
				return err
			}
			r.read.Inc()
			return logic.Map(rec, emit)
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Engine) loadOutput(ctx context.Context, r *run, dir string) (map[string]float64, error) {
	files, err := dataFiles(ctx, e.store, dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, f := range files {
		err := e.scan(ctx, f, func(line []byte) error {
			var rec outputRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return err
			}
			out[rec.Key] = r.job.Logic.Combine(out[rec.Key], rec.Value)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// write spreads keys over one part file per worker. Keys whose value folded
// back to zero carry no information and are dropped.
func (e *Engine) write(ctx context.Context, r *run, dir string, state map[string]float64, workers int) error {
	buckets := make([][]string, workers)
	for k, v := range state {
		if v == 0 {
			continue
		}
		b := murmur3.Sum32([]byte(k)) % uint32(workers)
		buckets[b] = append(buckets[b], k)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range buckets {
		g.Go(func() error {
			start := time.Now()
			keys := buckets[i]
			sort.Strings(keys)
			w, err := e.store.Create(gctx, path.Join(dir, fmt.Sprintf("part-%05d.jsonl", i)))
			if err != nil {
				return err
			}
			bw := bufio.NewWriter(w)
			for _, k := range keys {
				b, err := json.Marshal(outputRecord{Key: k, Value: state[k]})
				if err != nil {
					_ = w.Close()
					return err
				}
				_, _ = bw.Write(b)
				_ = bw.WriteByte('\n')
				r.written.Inc()
			}
			if err = bw.Flush(); err != nil {
				_ = w.Close()
				return err
			}
			if err = w.Close(); err != nil {
				return err
			}
			r.record(engine.TaskStat{Name: fmt.Sprintf("reduce-%d", i), Phase: "reduce", Duration: time.Since(start), Attempts: 1})
			return nil
		})
	}
	return g.Wait()
}
