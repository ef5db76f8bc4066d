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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/numaproj/dayroll/pkg/calendar"
	"github.com/numaproj/dayroll/pkg/engine"
	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/window"
)

func day(n int) calendar.Date {
	return calendar.NewDate(2024, time.January, n)
}

func dateRange(from, to int) []calendar.Date {
	var result []calendar.Date
	for i := from; i <= to; i++ {
		result = append(result, day(i))
	}
	return result
}

func ptr[T any](v T) *T {
	return &v
}

func index(t *testing.T, source string, days ...int) *partition.Index {
	t.Helper()
	var locs []partition.DatedLocation
	for _, n := range days {
		locs = append(locs, partition.DatedLocation{Date: day(n), Path: partition.Nested.PathFor("/in/"+source, day(n))})
	}
	idx, err := partition.NewIndex(source, locs)
	require.NoError(t, err)
	return idx
}

func span(from, to int) []int {
	var result []int
	for i := from; i <= to; i++ {
		result = append(result, i)
	}
	return result
}

func testConfig(mode engine.Mode) Config {
	layout := partition.Flat
	if mode == engine.ModePreserving {
		layout = partition.Nested
	}
	return Config{
		Mode:          mode,
		Sources:       []Source{{Name: "events", Path: "/in/events", Schema: engine.Schema{Name: "events"}}},
		OutputRoot:    "/out",
		OutputLayout:  layout,
		OutputSchema:  engine.Schema{Name: "output"},
		ReusePrevious: true,
		FailOnMissing: true,
	}
}

func prior(begin, end int) *PriorOutput {
	return &PriorOutput{
		Location: partition.DatedLocation{Date: day(end), Path: partition.Flat.PathFor("/out", day(end))},
		Window:   window.MustNew(day(begin), day(end)),
	}
}

func dayNumbers(dates []calendar.Date) []int {
	result := []int{}
	for _, d := range dates {
		result = append(result, d.Day())
	}
	return result
}
