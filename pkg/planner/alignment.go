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
	"strings"

	"github.com/numaproj/dayroll/pkg/calendar"
	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/planerr"
	"github.com/numaproj/dayroll/pkg/window"
)

// SourceLocation is one day of one source.
type SourceLocation struct {
	Source string
	partition.DatedLocation
}

// PartialDay is a usable date some sources do not hold.
type PartialDay struct {
	Date           calendar.Date `json:"date"`
	MissingSources []string      `json:"missingSources"`
}

// Availability is the aligned view of the source indexes: for every usable
// date, the locations holding it, one per contributing source.
type Availability struct {
	sources []string
	strict  bool
	dates   []calendar.Date
	byDate  map[calendar.Date][]SourceLocation
	// partial maps dates held by some but not all sources to the missing sources.
	partial map[calendar.Date][]string
}

// Align merges the per-source indexes. A date is fully covered when every
// source holds it. In strict mode only fully covered dates are usable, otherwise
// a partially covered date is usable with the locations that do exist.
func Align(indexes []*partition.Index, strict bool) *Availability {
	a := &Availability{
		sources: make([]string, len(indexes)),
		strict:  strict,
		byDate:  make(map[calendar.Date][]SourceLocation),
		partial: make(map[calendar.Date][]string),
	}
	dates := make([][]calendar.Date, len(indexes))
	cursors := make([]int, len(indexes))
	for i, idx := range indexes {
		a.sources[i] = idx.Source()
		dates[i] = idx.Dates()
	}

	for {
		// the smallest date under any cursor is the next date to count
		var next calendar.Date
		for i, c := range cursors {
			if c < len(dates[i]) && (next.IsZero() || dates[i][c].Before(next)) {
				next = dates[i][c]
			}
		}
		if next.IsZero() {
			break
		}

		coverage := 0
		var locs []SourceLocation
		var missing []string
		for i, c := range cursors {
			if c < len(dates[i]) && dates[i][c] == next {
				loc, _ := indexes[i].Get(next)
				locs = append(locs, SourceLocation{Source: a.sources[i], DatedLocation: loc})
				coverage++
				cursors[i]++
			} else {
				missing = append(missing, a.sources[i])
			}
		}

		if coverage < len(indexes) {
			a.partial[next] = missing
			if strict {
				continue
			}
		}
		a.dates = append(a.dates, next)
		a.byDate[next] = locs
	}
	return a
}

// Dates returns the usable dates in ascending order.
func (a *Availability) Dates() []calendar.Date {
	return append([]calendar.Date(nil), a.dates...)
}

// Get returns the locations of a usable date.
func (a *Availability) Get(d calendar.Date) ([]SourceLocation, bool) {
	locs, ok := a.byDate[d]
	return locs, ok
}

// Has reports whether d is usable.
func (a *Availability) Has(d calendar.Date) bool {
	_, ok := a.byDate[d]
	return ok
}

// Partial returns the dates held by some but not all sources, ascending.
func (a *Availability) Partial() []calendar.Date {
	result := make([]calendar.Date, 0, len(a.partial))
	for d := range a.partial {
		result = append(result, d)
	}
	calendar.Sort(result)
	return result
}

// MissingSources returns the sources lacking d.
func (a *Availability) MissingSources(d calendar.Date) []string {
	return a.partial[d]
}

// PartialDays returns the dates among dates that only some sources hold.
func (a *Availability) PartialDays(dates []calendar.Date) []PartialDay {
	var result []PartialDay
	for _, d := range dates {
		if missing, ok := a.partial[d]; ok {
			result = append(result, PartialDay{Date: d, MissingSources: append([]string(nil), missing...)})
		}
	}
	return result
}

// CheckWindow fails in strict mode when a partially covered date lies inside w.
func (a *Availability) CheckWindow(w window.DateWindow) error {
	if !a.strict {
		return nil
	}
	for _, d := range a.Partial() {
		if w.Contains(d) {
			return planerr.Newf(planerr.CodeMissingPartition, "date %s is missing from sources %s", d, strings.Join(a.partial[d], ", "))
		}
	}
	return nil
}
