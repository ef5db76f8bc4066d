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
	"fmt"

	"github.com/numaproj/dayroll/pkg/calendar"
	"github.com/numaproj/dayroll/pkg/engine"
	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/planerr"
	"github.com/numaproj/dayroll/pkg/window"
)

// planCollapsing plans one output covering w, starting from a previous
// output when that reads fewer days than reprocessing the window.
//
// Reusing a previous output covering P means subtracting the days of P before
// the window (old) and adding the window days after P (new). It is accepted
// only when old plus new is strictly less than the window length.
func planCollapsing(cfg Config, avail *Availability, w window.DateWindow, priors []*PriorOutput) (*ExecutionPlan, error) {
	p := &ExecutionPlan{
		mode:            engine.ModeCollapsing,
		requestedWindow: w,
	}
	decision, prior, old, newFrom, err := chooseReuse(cfg, avail, w, priors)
	if err != nil {
		return nil, err
	}
	p.reuse = decision
	if decision.Outcome == ReuseAccepted {
		prev := prior.Location
		p.previousOutput = &prev
		p.oldInputs = toInputs(old, engine.RoleOld)
	}

	// the cap only applies to new days, old days are never split across passes
	end := w.End
	count := 0
	for d := newFrom; !d.After(w.End); d = d.AddDays(1) {
		locs, ok := avail.Get(d)
		if !ok {
			if cfg.FailOnMissing {
				return nil, planerr.Newf(planerr.CodeMissingPartition, "no input data for %s", d)
			}
			p.skipped = append(p.skipped, d)
			continue
		}
		if cfg.MaxDaysPerPass > 0 && count >= cfg.MaxDaysPerPass {
			p.needsAnotherPass = true
			end = d.AddDays(-1)
			break
		}
		p.newInputs = append(p.newInputs, toInputs(locs, engine.RoleNew)...)
		count++
	}

	p.currentWindow = window.MustNew(w.Begin, end)
	p.outputs = []partition.DatedLocation{{Date: end, Path: cfg.OutputLayout.PathFor(cfg.OutputRoot, end)}}
	return p, nil
}

// chooseReuse decides reuse against every candidate, newest first, and keeps
// the cheapest accepted one. Ties go to the newer output. Without an accepted
// candidate the decision and any error are those of the newest output.
func chooseReuse(cfg Config, avail *Availability, w window.DateWindow, priors []*PriorOutput) (ReuseDecision, *PriorOutput, []SourceLocation, calendar.Date, error) {
	if len(priors) == 0 {
		decision, _, newFrom, err := decideReuse(cfg, avail, w, nil)
		return decision, nil, nil, newFrom, err
	}

	var (
		best         *PriorOutput
		bestDecision ReuseDecision
		bestOld      []SourceLocation
		bestFrom     calendar.Date
		latest       ReuseDecision
		latestErr    error
	)
	for i, prior := range priors {
		decision, old, newFrom, err := decideReuse(cfg, avail, w, prior)
		if i == 0 {
			latest, latestErr = decision, err
		}
		if err != nil || decision.Outcome != ReuseAccepted {
			continue
		}
		if best == nil || decision.ReuseCost < bestDecision.ReuseCost {
			best, bestDecision, bestOld, bestFrom = prior, decision, old, newFrom
		}
	}
	switch {
	case best != nil:
		return bestDecision, best, bestOld, bestFrom, nil
	case latestErr != nil:
		return latest, nil, nil, calendar.Date{}, latestErr
	default:
		return latest, nil, nil, w.Begin, nil
	}
}

// decideReuse returns the decision, the old locations and the first new day.
func decideReuse(cfg Config, avail *Availability, w window.DateWindow, prior *PriorOutput) (ReuseDecision, []SourceLocation, calendar.Date, error) {
	decision := ReuseDecision{Outcome: ReuseNotConsidered, DirectCost: w.Len()}
	switch {
	case !cfg.ReusePrevious:
		decision.Reason = "reuse is disabled"
		return decision, nil, w.Begin, nil
	case prior == nil:
		decision.Reason = "no previous output"
		return decision, nil, w.Begin, nil
	}

	decision.PreviousOutput = prior.Location.Path
	if prior.ReadErr != nil {
		decision.Outcome = ReuseIneligible
		decision.Reason = fmt.Sprintf("unreadable provenance: %v", prior.ReadErr)
		return decision, nil, w.Begin, nil
	}
	pw := prior.Window
	decision.PreviousWindow = &pw
	switch {
	case pw.Begin.After(w.Begin):
		decision.Outcome = ReuseIneligible
		decision.Reason = fmt.Sprintf("previous window %s starts after %s", pw, w.Begin)
		return decision, nil, w.Begin, nil
	case pw.End.After(w.End):
		decision.Outcome = ReuseIneligible
		decision.Reason = fmt.Sprintf("previous window %s ends after %s", pw, w.End)
		return decision, nil, w.Begin, nil
	}

	var old []SourceLocation
	oldDays := 0
	for d := pw.Begin; d.Before(w.Begin) && !d.After(pw.End); d = d.AddDays(1) {
		locs, ok := avail.Get(d)
		if !ok {
			return decision, nil, calendar.Date{}, planerr.Newf(planerr.CodeCannotSubtractMissingData,
				"%s is covered by %s but its input data is gone", d, prior.Location.Path)
		}
		old = append(old, locs...)
		oldDays++
	}

	newFrom := pw.End.AddDays(1)
	if newFrom.Before(w.Begin) {
		newFrom = w.Begin
	}
	newDays := 0
	for d := newFrom; !d.After(w.End); d = d.AddDays(1) {
		if avail.Has(d) {
			newDays++
		}
	}

	decision.ReuseCost = oldDays + newDays
	if decision.ReuseCost < decision.DirectCost {
		decision.Outcome = ReuseAccepted
		return decision, old, newFrom, nil
	}
	decision.Outcome = ReuseRejected
	decision.Reason = fmt.Sprintf("reuse reads %d days, the window has %d", decision.ReuseCost, decision.DirectCost)
	return decision, nil, w.Begin, nil
}
