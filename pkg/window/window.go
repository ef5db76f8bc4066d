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

package window

import (
	"fmt"

	"github.com/numaproj/dayroll/pkg/calendar"
	"github.com/numaproj/dayroll/pkg/planerr"
)

// DateWindow is an inclusive range of calendar days, Begin <= End.
type DateWindow struct {
	Begin calendar.Date `json:"begin"`
	End   calendar.Date `json:"end"`
}

// New returns the window [begin, end].
func New(begin, end calendar.Date) (DateWindow, error) {
	if begin.IsZero() || end.IsZero() {
		return DateWindow{}, planerr.New(planerr.CodeInvalidWindow, "window bounds must be set")
	}
	if begin.After(end) {
		return DateWindow{}, planerr.Newf(planerr.CodeInvalidWindow, "window begin %s is after end %s", begin, end)
	}
	return DateWindow{Begin: begin, End: end}, nil
}

// MustNew is New for tests and literals.
func MustNew(begin, end calendar.Date) DateWindow {
	w, err := New(begin, end)
	if err != nil {
		panic(err)
	}
	return w
}

// IsZero reports whether the window was never set.
func (w DateWindow) IsZero() bool {
	return w.Begin.IsZero() && w.End.IsZero()
}

// Len returns the number of days in the window.
func (w DateWindow) Len() int {
	if w.IsZero() {
		return 0
	}
	return w.Begin.DaysUntil(w.End) + 1
}

// Contains reports whether d is inside the window.
func (w DateWindow) Contains(d calendar.Date) bool {
	return !d.Before(w.Begin) && !d.After(w.End)
}

// Days lists every day of the window in order.
func (w DateWindow) Days() []calendar.Date {
	days := make([]calendar.Date, 0, w.Len())
	for d := w.Begin; !d.After(w.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// WithEnd returns the window cut (or extended) to end at end.
func (w DateWindow) WithEnd(end calendar.Date) (DateWindow, error) {
	return New(w.Begin, end)
}

func (w DateWindow) String() string {
	return fmt.Sprintf("[%s, %s]", w.Begin, w.End)
}
