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

// Package scheduler triggers job runs on a cron schedule. Runs never
// overlap, a tick arriving while a run is in flight is skipped.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/numaproj/dayroll/pkg/planerr"
	"github.com/numaproj/dayroll/pkg/shared/logging"
)

// JobFunc is one run of the scheduled job.
type JobFunc func(ctx context.Context) error

type Scheduler struct {
	spec       string
	schedule   cron.Schedule
	job        JobFunc
	location   *time.Location
	runOnStart bool
}

type Option func(*Scheduler)

// WithLocation interprets the cron spec in loc, UTC by default.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		s.location = loc
	}
}

// WithRunOnStart runs the job once as soon as the scheduler starts.
func WithRunOnStart() Option {
	return func(s *Scheduler) {
		s.runOnStart = true
	}
}

// New parses spec, a standard five field cron expression or a descriptor
// such as "@daily" or "@every 1h".
func New(spec string, job JobFunc, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		spec:     spec,
		job:      job,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, planerr.Wrap(planerr.CodeInvalidConfig, fmt.Errorf("invalid schedule %q, %w", spec, err))
	}
	s.schedule = sched
	return s, nil
}

// cronLogger adapts the context logger to cron's logging interface.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, zap.Error(err))...)
}

// Start runs the job on schedule until ctx is done, then waits for an
// in-flight run to return. Job errors are logged, the next tick runs again.
func (s *Scheduler) Start(ctx context.Context) error {
	log := logging.FromContext(ctx).With("schedule", s.spec)
	logger := cronLogger{log: log}
	runs := 0
	job := cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
		runs++
		run := runs
		start := time.Now()
		if err := s.job(ctx); err != nil {
			log.Errorw("Scheduled run failed", zap.Int("run", run), zap.Error(err))
			return
		}
		log.Infow("Scheduled run finished", zap.Int("run", run), zap.Duration("duration", time.Since(start)))
	}))

	c := cron.New(cron.WithLocation(s.location), cron.WithLogger(logger))
	c.Schedule(s.schedule, job)
	c.Start()
	log.Infow("Scheduler started", zap.Time("next", s.schedule.Next(time.Now().In(s.location))))

	var wg sync.WaitGroup
	if s.runOnStart {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	log.Info("Stopping scheduler")
	<-c.Stop().Done()
	wg.Wait()
	return nil
}
