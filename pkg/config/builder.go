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

package config

import (
	dfv1 "github.com/numaproj/dayroll/pkg/apis/dayroll/v1alpha1"
	"github.com/numaproj/dayroll/pkg/calendar"
	"github.com/numaproj/dayroll/pkg/engine"
	"github.com/numaproj/dayroll/pkg/engine/local"
	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/planerr"
	"github.com/numaproj/dayroll/pkg/planner"
	"github.com/numaproj/dayroll/pkg/provenance"
	"github.com/numaproj/dayroll/pkg/reducesize"
)

// sourceFieldType is reported for source fields, records are schemaless JSON.
const sourceFieldType = "any"

// Calendar returns the calendar of the job's time zone.
func Calendar(spec dfv1.JobSpec) (calendar.Calendar, error) {
	cal, err := calendar.New(spec.TimeZone)
	if err != nil {
		return calendar.Calendar{}, planerr.Wrap(planerr.CodeInvalidConfig, err)
	}
	return cal, nil
}

func mode(m dfv1.JobMode) engine.Mode {
	if m == dfv1.JobModePreserving {
		return engine.ModePreserving
	}
	return engine.ModeCollapsing
}

// PlannerConfig converts a job spec into a planner configuration. Explicit
// window dates are parsed in cal's time zone.
func PlannerConfig(spec dfv1.JobSpec, cal calendar.Calendar) (planner.Config, error) {
	layout, err := partition.ParseLayout(spec.Output.GetLayout(spec.Mode))
	if err != nil {
		return planner.Config{}, err
	}
	w, err := windowOptions(spec.Window, cal)
	if err != nil {
		return planner.Config{}, err
	}
	sources := make([]planner.Source, len(spec.Sources))
	for i, s := range spec.Sources {
		schema := engine.Schema{Name: s.Name}
		for _, f := range s.Fields {
			schema.Fields = append(schema.Fields, engine.Field{Name: f, Type: sourceFieldType})
		}
		sources[i] = planner.Source{Name: s.Name, Path: s.Path, Schema: schema}
	}
	return planner.Config{
		Mode:           mode(spec.Mode),
		Sources:        sources,
		OutputRoot:     spec.Output.Path,
		OutputLayout:   layout,
		OutputSchema:   Schemas(spec).Output,
		Window:         w,
		ReusePrevious:  spec.GetReusePreviousOutput(),
		FailOnMissing:  spec.GetFailOnMissing(),
		MaxDaysPerPass: spec.MaxDaysPerPass,
	}, nil
}

func windowOptions(ws dfv1.WindowSpec, cal calendar.Calendar) (planner.WindowOptions, error) {
	w := planner.WindowOptions{DaysAgo: ws.DaysAgo, NumDays: ws.NumDays}
	var err error
	if ws.Begin != "" {
		if w.Begin, err = cal.Parse(ws.Begin); err != nil {
			return w, planerr.Wrap(planerr.CodeInvalidConfig, err)
		}
	}
	if ws.End != "" {
		if w.End, err = cal.Parse(ws.End); err != nil {
			return w, planerr.Wrap(planerr.CodeInvalidConfig, err)
		}
	}
	return w, nil
}

// Schemas returns the key, intermediate and output schemas of the job's aggregate.
func Schemas(spec dfv1.JobSpec) engine.RecordSchemas {
	return engine.LogicSchemas(spec.Aggregate.KeyFields)
}

// Logic returns the built-in aggregation selected by the aggregate spec.
func Logic(spec dfv1.AggregateSpec) (engine.Logic, error) {
	switch spec.GetOp() {
	case dfv1.AggregateOpCount:
		return engine.NewCountLogic(spec.KeyFields), nil
	case dfv1.AggregateOpSum:
		if spec.ValueField == "" {
			return nil, planerr.New(planerr.CodeInvalidConfig, "aggregate.valueField is required for sum")
		}
		return engine.NewSumLogic(spec.KeyFields, spec.ValueField), nil
	default:
		return nil, planerr.Newf(planerr.CodeInvalidConfig, "unsupported aggregate op %q", spec.Op)
	}
}

// Estimator returns the reduce sizer configured by the reducer spec.
func Estimator(spec dfv1.ReducerSpec) (*reducesize.Estimator, error) {
	opts := []reducesize.Option{reducesize.WithMaxReducers(spec.MaxReducers)}
	for tag, b := range spec.BytesPerReducerByTag {
		opts = append(opts, reducesize.WithTagBytes(tag, b))
	}
	return reducesize.NewEstimator(spec.GetBytesPerReducer(), opts...)
}

// EngineOptions returns the local engine options configured by the engine spec.
func EngineOptions(spec dfv1.EngineSpec) []local.Option {
	return []local.Option{
		local.WithParallelism(spec.GetParallelism()),
		local.WithMaxAttempts(spec.GetMaxAttempts()),
	}
}

// Codec returns a provenance codec caching the most recently read outputs.
func Codec() (*provenance.CachedCodec, error) {
	return provenance.NewCachedCodec(provenance.NewCodec(), dfv1.DefaultProvenanceCacheSize)
}
