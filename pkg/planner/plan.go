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
	"sort"

	"github.com/goccy/go-json"

	"github.com/numaproj/dayroll/pkg/calendar"
	"github.com/numaproj/dayroll/pkg/engine"
	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/window"
)

// ReuseOutcome is the result of the reuse decision of a collapsing plan.
type ReuseOutcome string

const (
	// ReuseNotConsidered means reuse is disabled, no output exists yet, or the job preserves days.
	ReuseNotConsidered ReuseOutcome = "none"
	// ReuseAccepted means the previous output is the starting state of the pass.
	ReuseAccepted ReuseOutcome = "accepted"
	// ReuseRejected means reprocessing the window is no more expensive than reuse.
	ReuseRejected ReuseOutcome = "rejected"
	// ReuseIneligible means the previous output cannot be extended to the window.
	ReuseIneligible ReuseOutcome = "ineligible"
)

// ReuseDecision records how the previous output was considered.
type ReuseDecision struct {
	Outcome        ReuseOutcome       `json:"outcome"`
	PreviousOutput string             `json:"previousOutput,omitempty"`
	PreviousWindow *window.DateWindow `json:"previousWindow,omitempty"`
	// ReuseCost is the number of days read when reusing, old plus new.
	ReuseCost int `json:"reuseCost"`
	// DirectCost is the number of days of the window.
	DirectCost int    `json:"directCost"`
	Reason     string `json:"reason,omitempty"`
}

// ExecutionPlan is the immutable result of planning one pass.
type ExecutionPlan struct {
	mode             engine.Mode
	requestedWindow  window.DateWindow
	currentWindow    window.DateWindow
	newInputs        []engine.Input
	oldInputs        []engine.Input
	previousOutput   *partition.DatedLocation
	outputs          []partition.DatedLocation
	skipped          []calendar.Date
	partial          []PartialDay
	schemaByPath     map[string]engine.Schema
	reuse            ReuseDecision
	reducerCount     int
	bytesByTag       map[string]int64
	needsAnotherPass bool
}

func (p *ExecutionPlan) Mode() engine.Mode {
	return p.mode
}

// RequestedWindow is the window resolved from the configuration.
func (p *ExecutionPlan) RequestedWindow() window.DateWindow {
	return p.requestedWindow
}

// CurrentWindow is the part of the requested window this pass covers.
func (p *ExecutionPlan) CurrentWindow() window.DateWindow {
	return p.currentWindow
}

// InputsToProcess returns the new and old inputs, ordered by date then source.
func (p *ExecutionPlan) InputsToProcess() []engine.Input {
	all := make([]engine.Input, 0, len(p.newInputs)+len(p.oldInputs))
	all = append(all, p.oldInputs...)
	all = append(all, p.newInputs...)
	sortInputs(all)
	return all
}

func (p *ExecutionPlan) NewInputs() []engine.Input {
	return append([]engine.Input(nil), p.newInputs...)
}

func (p *ExecutionPlan) OldInputs() []engine.Input {
	return append([]engine.Input(nil), p.oldInputs...)
}

// NewDays returns the distinct days of the new inputs.
func (p *ExecutionPlan) NewDays() []calendar.Date {
	return days(p.newInputs)
}

// OldDays returns the distinct days of the old inputs.
func (p *ExecutionPlan) OldDays() []calendar.Date {
	return days(p.oldInputs)
}

// PreviousOutput returns the reused output, if any.
func (p *ExecutionPlan) PreviousOutput() (partition.DatedLocation, bool) {
	if p.previousOutput == nil {
		return partition.DatedLocation{}, false
	}
	return *p.previousOutput, true
}

// Outputs returns the final locations this pass publishes.
func (p *ExecutionPlan) Outputs() []partition.DatedLocation {
	return append([]partition.DatedLocation(nil), p.outputs...)
}

// SkippedDays returns window days without data that were skipped.
func (p *ExecutionPlan) SkippedDays() []calendar.Date {
	return append([]calendar.Date(nil), p.skipped...)
}

// PartialDays returns the processed days some sources are missing from.
func (p *ExecutionPlan) PartialDays() []PartialDay {
	return append([]PartialDay(nil), p.partial...)
}

func (p *ExecutionPlan) SchemaByPath() map[string]engine.Schema {
	result := make(map[string]engine.Schema, len(p.schemaByPath))
	for k, v := range p.schemaByPath {
		result[k] = v
	}
	return result
}

func (p *ExecutionPlan) Reuse() ReuseDecision {
	return p.reuse
}

func (p *ExecutionPlan) ReducerCount() int {
	return p.reducerCount
}

// BytesByTag returns the byte volume the reducer count was sized from.
func (p *ExecutionPlan) BytesByTag() map[string]int64 {
	result := make(map[string]int64, len(p.bytesByTag))
	for k, v := range p.bytesByTag {
		result[k] = v
	}
	return result
}

func (p *ExecutionPlan) NeedsAnotherPass() bool {
	return p.needsAnotherPass
}

// IsEmpty reports whether the plan has nothing to read.
func (p *ExecutionPlan) IsEmpty() bool {
	return len(p.newInputs) == 0 && len(p.oldInputs) == 0
}

// EngineInputs returns everything the engine reads, the reused output first.
func (p *ExecutionPlan) EngineInputs() []engine.Input {
	var result []engine.Input
	if p.previousOutput != nil {
		result = append(result, engine.Input{Location: *p.previousOutput, Role: engine.RoleReused})
	}
	return append(result, p.InputsToProcess()...)
}

func (p *ExecutionPlan) withReducers(count int, bytesByTag map[string]int64) *ExecutionPlan {
	sized := *p
	sized.reducerCount = count
	sized.bytesByTag = bytesByTag
	return &sized
}

type inputJSON struct {
	Source string        `json:"source,omitempty"`
	Date   calendar.Date `json:"date"`
	Path   string        `json:"path"`
	Role   string        `json:"role"`
}

type planJSON struct {
	Mode             string                    `json:"mode"`
	RequestedWindow  window.DateWindow         `json:"requestedWindow"`
	CurrentWindow    window.DateWindow         `json:"currentWindow"`
	Inputs           []inputJSON               `json:"inputs"`
	PreviousOutput   *partition.DatedLocation  `json:"previousOutput,omitempty"`
	Outputs          []partition.DatedLocation `json:"outputs"`
	SkippedDays      []calendar.Date           `json:"skippedDays,omitempty"`
	PartialDays      []PartialDay              `json:"partialDays,omitempty"`
	Reuse            ReuseDecision             `json:"reuse"`
	ReducerCount     int                       `json:"reducerCount"`
	BytesByTag       map[string]int64          `json:"bytesByTag,omitempty"`
	NeedsAnotherPass bool                      `json:"needsAnotherPass"`
}

func (p *ExecutionPlan) MarshalJSON() ([]byte, error) {
	inputs := p.EngineInputs()
	out := planJSON{
		Mode:             p.mode.String(),
		RequestedWindow:  p.requestedWindow,
		CurrentWindow:    p.currentWindow,
		Inputs:           make([]inputJSON, 0, len(inputs)),
		PreviousOutput:   p.previousOutput,
		Outputs:          p.outputs,
		SkippedDays:      p.skipped,
		PartialDays:      p.partial,
		Reuse:            p.reuse,
		ReducerCount:     p.reducerCount,
		BytesByTag:       p.bytesByTag,
		NeedsAnotherPass: p.needsAnotherPass,
	}
	for _, in := range inputs {
		out.Inputs = append(out.Inputs, inputJSON{
			Source: in.Source,
			Date:   in.Location.Date,
			Path:   in.Location.Path,
			Role:   in.Role.String(),
		})
	}
	return json.Marshal(out)
}

func toInputs(locs []SourceLocation, role engine.Role) []engine.Input {
	result := make([]engine.Input, len(locs))
	for i, l := range locs {
		result[i] = engine.Input{Location: l.DatedLocation, Source: l.Source, Role: role}
	}
	return result
}

func sortInputs(inputs []engine.Input) {
	sort.SliceStable(inputs, func(i, j int) bool {
		if c := inputs[i].Location.Date.Compare(inputs[j].Location.Date); c != 0 {
			return c < 0
		}
		return inputs[i].Source < inputs[j].Source
	})
}

func days(inputs []engine.Input) []calendar.Date {
	var result []calendar.Date
	seen := make(map[calendar.Date]bool)
	for _, in := range inputs {
		if !seen[in.Location.Date] {
			seen[in.Location.Date] = true
			result = append(result, in.Location.Date)
		}
	}
	calendar.Sort(result)
	return result
}

// Plan computes the execution plan of one pass from the configuration and a
// storage snapshot. It does not touch storage and leaves the reducer count unset.
func Plan(cfg Config, snap *Snapshot) (*ExecutionPlan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	avail := Align(snap.Indexes, cfg.FailOnMissing)
	w, err := ResolveWindow(cfg.Window, avail.Dates())
	if err != nil {
		return nil, err
	}
	if err = avail.CheckWindow(w); err != nil {
		return nil, err
	}

	var p *ExecutionPlan
	if cfg.Mode == engine.ModePreserving {
		p, err = planPreserving(cfg, avail, w, snap.Outputs)
	} else {
		p, err = planCollapsing(cfg, avail, w, snap.Priors)
	}
	if err != nil {
		return nil, err
	}

	p.partial = avail.PartialDays(days(p.InputsToProcess()))

	schemas := make(map[string]engine.Schema, len(cfg.Sources))
	for _, s := range cfg.Sources {
		schemas[s.Name] = s.Schema
	}
	p.schemaByPath = make(map[string]engine.Schema)
	for _, in := range p.InputsToProcess() {
		p.schemaByPath[in.Location.Path] = schemas[in.Source]
	}
	if p.previousOutput != nil {
		p.schemaByPath[p.previousOutput.Path] = cfg.OutputSchema
	}
	return p, nil
}
