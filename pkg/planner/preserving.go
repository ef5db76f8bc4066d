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
	"github.com/numaproj/dayroll/pkg/window"
)

// planPreserving selects the window days lacking an output, at most
// MaxDaysPerPass of them. Every selected day needs data.
func planPreserving(cfg Config, avail *Availability, w window.DateWindow, outputs []partition.DatedLocation) (*ExecutionPlan, error) {
	existing := make(map[calendar.Date]bool, len(outputs))
	for _, o := range outputs {
		existing[o.Date] = true
	}

	p := &ExecutionPlan{
		mode:            engine.ModePreserving,
		requestedWindow: w,
		currentWindow:   w,
		reuse:           ReuseDecision{Outcome: ReuseNotConsidered, DirectCost: w.Len()},
	}
	var first, last calendar.Date
	count := 0
	for _, d := range w.Days() {
		if existing[d] {
			continue
		}
		if cfg.MaxDaysPerPass > 0 && count >= cfg.MaxDaysPerPass {
			p.needsAnotherPass = true
			break
		}
		locs, ok := avail.Get(d)
		if !ok {
			return nil, planerr.Newf(planerr.CodeMissingPartition, "no input data for %s", d)
		}
		p.newInputs = append(p.newInputs, toInputs(locs, engine.RoleNew)...)
		p.outputs = append(p.outputs, partition.DatedLocation{Date: d, Path: cfg.OutputLayout.PathFor(cfg.OutputRoot, d)})
		if first.IsZero() {
			first = d
		}
		last = d
		count++
	}
	if count > 0 {
		p.currentWindow = window.MustNew(first, last)
	}
	return p, nil
}
