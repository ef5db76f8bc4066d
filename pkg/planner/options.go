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
	"github.com/numaproj/dayroll/pkg/calendar"
	"github.com/numaproj/dayroll/pkg/engine"
	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/planerr"
)

// Source is one day-partitioned input dataset.
type Source struct {
	Name string
	Path string
	// Schema describes the records of the source, reported per input location.
	Schema engine.Schema
}

// WindowOptions holds the window configuration. Zero dates and nil
// pointers mean the option is not set.
type WindowOptions struct {
	Begin   calendar.Date
	End     calendar.Date
	DaysAgo *int
	NumDays *int
}

// Config is everything planning needs besides the storage state.
type Config struct {
	Mode    engine.Mode
	Sources []Source
	// OutputRoot holds the dated outputs of the job.
	OutputRoot string
	// OutputLayout names the dated outputs.
	OutputLayout partition.Layout
	// OutputSchema describes the records of a published output.
	OutputSchema engine.Schema
	Window       WindowOptions
	// ReusePrevious lets a collapsing plan start from a previous output.
	ReusePrevious bool
	// FailOnMissing makes partial or missing days fatal instead of skipped.
	FailOnMissing bool
	// MaxDaysPerPass caps the days one pass processes, 0 means no cap.
	MaxDaysPerPass int
}

// Validate checks the configuration errors that do not depend on storage.
func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return planerr.New(planerr.CodeMissingPath, "at least one source is required")
	}
	for _, s := range c.Sources {
		if s.Path == "" {
			return planerr.Newf(planerr.CodeMissingPath, "source %q has no path", s.Name)
		}
	}
	if c.OutputRoot == "" {
		return planerr.New(planerr.CodeMissingPath, "output root is required")
	}
	if c.MaxDaysPerPass < 0 {
		return planerr.Newf(planerr.CodeInvalidConfig, "max days per pass must not be negative, got %d", c.MaxDaysPerPass)
	}
	// a capped collapsing job resumes from its own partial output
	if c.Mode == engine.ModeCollapsing && c.MaxDaysPerPass > 0 && !c.ReusePrevious {
		return planerr.New(planerr.CodeConflictingConfig, "a per-pass day cap requires reusing the previous output")
	}
	return c.Window.validate()
}

func (o WindowOptions) validate() error {
	if o.NumDays != nil && *o.NumDays < 1 {
		return planerr.Newf(planerr.CodeInvalidConfig, "numDays must be at least 1, got %d", *o.NumDays)
	}
	if o.DaysAgo != nil && *o.DaysAgo < 0 {
		return planerr.Newf(planerr.CodeInvalidConfig, "daysAgo must not be negative, got %d", *o.DaysAgo)
	}
	hasBegin, hasEnd := !o.Begin.IsZero(), !o.End.IsZero()
	switch {
	case hasBegin && hasEnd && (o.DaysAgo != nil || o.NumDays != nil):
		return planerr.New(planerr.CodeConflictingConfig, "explicit begin and end cannot be combined with daysAgo or numDays")
	case hasEnd && o.DaysAgo != nil:
		return planerr.New(planerr.CodeConflictingConfig, "daysAgo cannot be combined with an explicit end")
	case hasBegin && o.NumDays != nil && o.DaysAgo != nil:
		return planerr.New(planerr.CodeConflictingConfig, "daysAgo cannot be combined with begin and numDays")
	}
	return nil
}
