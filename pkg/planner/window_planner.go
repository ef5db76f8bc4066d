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
	"github.com/numaproj/dayroll/pkg/planerr"
	"github.com/numaproj/dayroll/pkg/window"
)

// ResolveWindow resolves the window to process from the options and the
// available dates. It is pure: the same arguments always give the same window.
//
// Resolution order:
//  1. begin and end both given are used verbatim.
//  2. begin with numDays sets end = begin + numDays - 1.
//  3. end with numDays sets begin = end - numDays + 1.
//  4. an unresolved end is the latest available date, minus daysAgo.
//  5. end must not be after the latest available date.
//  6. an unresolved begin is end - numDays + 1, or the earliest available date.
//  7. begin must not be before the earliest available date.
func ResolveWindow(opts WindowOptions, available []calendar.Date) (window.DateWindow, error) {
	if err := opts.validate(); err != nil {
		return window.DateWindow{}, err
	}
	if len(available) == 0 {
		return window.DateWindow{}, planerr.New(planerr.CodeNoDataAvailable, "no dates are available")
	}
	minDate, maxDate := available[0], available[0]
	for _, d := range available[1:] {
		if d.Before(minDate) {
			minDate = d
		}
		if d.After(maxDate) {
			maxDate = d
		}
	}

	begin, end := opts.Begin, opts.End
	switch {
	case !begin.IsZero() && !end.IsZero():
	case !begin.IsZero():
		if opts.NumDays != nil {
			end = begin.AddDays(*opts.NumDays - 1)
		}
	case !end.IsZero():
		if opts.NumDays != nil {
			begin = end.AddDays(1 - *opts.NumDays)
		}
	}

	if end.IsZero() {
		end = maxDate
		if opts.DaysAgo != nil {
			end = end.AddDays(-*opts.DaysAgo)
		}
	}
	if end.After(maxDate) {
		return window.DateWindow{}, planerr.Newf(planerr.CodeEndDateUnavailable, "end date %s is after the latest available date %s", end, maxDate)
	}

	if begin.IsZero() {
		if opts.NumDays != nil {
			begin = end.AddDays(1 - *opts.NumDays)
		} else {
			begin = minDate
		}
	}
	if begin.Before(minDate) {
		return window.DateWindow{}, planerr.Newf(planerr.CodeBeginDateUnavailable, "begin date %s is before the earliest available date %s", begin, minDate)
	}
	return window.New(begin, end)
}
