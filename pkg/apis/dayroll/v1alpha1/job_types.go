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

package v1alpha1

import (
	"github.com/numaproj/dayroll/pkg/planerr"
)

type JobMode string

const (
	// JobModeCollapsing produces one output covering the whole window.
	JobModeCollapsing JobMode = "collapsing"
	// JobModePreserving produces one output per input day.
	JobModePreserving JobMode = "preserving"
)

type AggregateOp string

const (
	AggregateOpCount AggregateOp = "count"
	AggregateOpSum   AggregateOp = "sum"
)

// JobSpec describes one incremental aggregation job.
type JobSpec struct {
	Name string  `json:"name"`
	Mode JobMode `json:"mode"`
	// TimeZone used to turn instants into calendar days, UTC when empty.
	TimeZone string       `json:"timeZone,omitempty"`
	Sources  []SourceSpec `json:"sources"`
	Output   OutputSpec   `json:"output"`
	Window   WindowSpec   `json:"window,omitempty"`
	// ReusePreviousOutput lets a collapsing job start from a previous output, defaults to true.
	ReusePreviousOutput *bool `json:"reusePreviousOutput,omitempty"`
	// FailOnMissing makes partially available or missing days fatal, defaults to true.
	FailOnMissing *bool `json:"failOnMissing,omitempty"`
	// MaxDaysPerPass caps the new days processed by a single pass, 0 means no cap.
	MaxDaysPerPass int `json:"maxDaysPerPass,omitempty"`
	// MaxIterations bounds the number of passes of one invocation.
	MaxIterations *int          `json:"maxIterations,omitempty"`
	Reducers      ReducerSpec   `json:"reducers,omitempty"`
	Aggregate     AggregateSpec `json:"aggregate"`
	Engine        EngineSpec    `json:"engine,omitempty"`
}

// SourceSpec is one day-partitioned input dataset.
type SourceSpec struct {
	Name string `json:"name"`
	Path string `json:"path"`
	// Fields optionally documents the record fields, reported per input path.
	Fields []string `json:"fields,omitempty"`
}

type OutputSpec struct {
	Path string `json:"path"`
	// StatsPath is where run statistics go, inside the output when empty.
	StatsPath string `json:"statsPath,omitempty"`
	// Layout of dated outputs, "flat" or "nested". Collapsing jobs default to
	// flat, preserving jobs to nested.
	Layout string `json:"layout,omitempty"`
	// RetentionCount keeps only the most recent outputs, all are kept when unset.
	RetentionCount *int `json:"retentionCount,omitempty"`
}

// WindowSpec configures the date window, see the window planner for resolution order.
type WindowSpec struct {
	Begin   string `json:"begin,omitempty"`
	End     string `json:"end,omitempty"`
	DaysAgo *int   `json:"daysAgo,omitempty"`
	NumDays *int   `json:"numDays,omitempty"`
}

type ReducerSpec struct {
	BytesPerReducer      *int64           `json:"bytesPerReducer,omitempty"`
	BytesPerReducerByTag map[string]int64 `json:"bytesPerReducerByTag,omitempty"`
	MaxReducers          int              `json:"maxReducers,omitempty"`
}

// AggregateSpec selects the built-in map and accumulate logic.
type AggregateSpec struct {
	KeyFields  []string    `json:"keyFields"`
	ValueField string      `json:"valueField,omitempty"`
	Op         AggregateOp `json:"op,omitempty"`
}

type EngineSpec struct {
	Parallelism *int `json:"parallelism,omitempty"`
	MaxAttempts *int `json:"maxAttempts,omitempty"`
}

func (j JobSpec) GetReusePreviousOutput() bool {
	if j.ReusePreviousOutput == nil {
		return true
	}
	return *j.ReusePreviousOutput
}

func (j JobSpec) GetFailOnMissing() bool {
	if j.FailOnMissing == nil {
		return true
	}
	return *j.FailOnMissing
}

func (j JobSpec) GetMaxIterations() int {
	if j.MaxIterations == nil {
		return DefaultMaxIterations
	}
	return *j.MaxIterations
}

func (o OutputSpec) GetLayout(mode JobMode) string {
	if o.Layout != "" {
		return o.Layout
	}
	if mode == JobModePreserving {
		return "nested"
	}
	return "flat"
}

// GetRetentionCount returns the number of outputs to keep, 0 means keep all.
func (o OutputSpec) GetRetentionCount() int {
	if o.RetentionCount == nil {
		return 0
	}
	return *o.RetentionCount
}

func (r ReducerSpec) GetBytesPerReducer() int64 {
	if r.BytesPerReducer == nil {
		return DefaultBytesPerReducer
	}
	return *r.BytesPerReducer
}

func (a AggregateSpec) GetOp() AggregateOp {
	if a.Op == "" {
		return DefaultAggregateOp
	}
	return a.Op
}

func (e EngineSpec) GetParallelism() int {
	if e.Parallelism == nil {
		return DefaultEngineParallelism
	}
	return *e.Parallelism
}

func (e EngineSpec) GetMaxAttempts() int {
	if e.MaxAttempts == nil {
		return DefaultEngineMaxAttempts
	}
	return *e.MaxAttempts
}

// Validate checks the job spec for configuration errors.
func (j JobSpec) Validate() error {
	if j.Name == "" {
		return planerr.New(planerr.CodeInvalidConfig, "job name is required")
	}
	if j.Mode != JobModeCollapsing && j.Mode != JobModePreserving {
		return planerr.Newf(planerr.CodeInvalidConfig, "unsupported job mode %q", j.Mode)
	}
	if len(j.Sources) == 0 {
		return planerr.New(planerr.CodeMissingPath, "at least one source is required")
	}
	names := make(map[string]bool, len(j.Sources))
	for _, s := range j.Sources {
		if s.Name == "" {
			return planerr.New(planerr.CodeInvalidConfig, "source name is required")
		}
		if names[s.Name] {
			return planerr.Newf(planerr.CodeInvalidConfig, "duplicate source name %q", s.Name)
		}
		names[s.Name] = true
		if s.Path == "" {
			return planerr.Newf(planerr.CodeMissingPath, "source %q has no path", s.Name)
		}
	}
	if j.Output.Path == "" {
		return planerr.New(planerr.CodeMissingPath, "output path is required")
	}
	if j.Output.RetentionCount != nil && *j.Output.RetentionCount < 1 {
		return planerr.Newf(planerr.CodeInvalidConfig, "retentionCount must be at least 1, got %d", *j.Output.RetentionCount)
	}
	if err := j.Window.Validate(); err != nil {
		return err
	}
	if j.MaxDaysPerPass < 0 {
		return planerr.Newf(planerr.CodeInvalidConfig, "maxDaysPerPass must not be negative, got %d", j.MaxDaysPerPass)
	}
	if j.GetMaxIterations() < 1 {
		return planerr.Newf(planerr.CodeInvalidConfig, "maxIterations must be at least 1, got %d", j.GetMaxIterations())
	}
	if j.Reducers.GetBytesPerReducer() <= 0 {
		return planerr.New(planerr.CodeInvalidConfig, "bytesPerReducer must be positive")
	}
	for tag, b := range j.Reducers.BytesPerReducerByTag {
		if b <= 0 {
			return planerr.Newf(planerr.CodeInvalidConfig, "bytesPerReducer for tag %q must be positive", tag)
		}
	}
	if j.Reducers.MaxReducers < 0 {
		return planerr.New(planerr.CodeInvalidConfig, "maxReducers must not be negative")
	}
	if len(j.Aggregate.KeyFields) == 0 {
		return planerr.New(planerr.CodeInvalidConfig, "aggregate.keyFields is required")
	}
	switch j.Aggregate.GetOp() {
	case AggregateOpCount:
	case AggregateOpSum:
		if j.Aggregate.ValueField == "" {
			return planerr.New(planerr.CodeInvalidConfig, "aggregate.valueField is required for sum")
		}
	default:
		return planerr.Newf(planerr.CodeInvalidConfig, "unsupported aggregate op %q", j.Aggregate.Op)
	}
	if j.Engine.GetParallelism() < 1 || j.Engine.GetMaxAttempts() < 1 {
		return planerr.New(planerr.CodeInvalidConfig, "engine parallelism and maxAttempts must be at least 1")
	}
	return nil
}

// Validate checks option ranges and combinations that can never resolve.
func (w WindowSpec) Validate() error {
	if w.NumDays != nil && *w.NumDays < 1 {
		return planerr.Newf(planerr.CodeInvalidConfig, "numDays must be at least 1, got %d", *w.NumDays)
	}
	if w.DaysAgo != nil && *w.DaysAgo < 0 {
		return planerr.Newf(planerr.CodeInvalidConfig, "daysAgo must not be negative, got %d", *w.DaysAgo)
	}
	if w.Begin != "" && w.End != "" && (w.DaysAgo != nil || w.NumDays != nil) {
		return planerr.New(planerr.CodeConflictingConfig, "begin and end cannot be combined with daysAgo or numDays")
	}
	return nil
}
