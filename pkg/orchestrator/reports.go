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

package orchestrator

import (
	"sync"
	"time"

	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/planner"
	"github.com/numaproj/dayroll/pkg/window"
)

// PassReport describes one published pass.
type PassReport struct {
	JobID     string                    `json:"jobId"`
	Iteration int                       `json:"iteration"`
	Window    window.DateWindow         `json:"window"`
	NewInputs []partition.DatedLocation `json:"newInputs"`
	OldInputs []partition.DatedLocation `json:"oldInputs,omitempty"`
	// ReusedOutput is the previous output the pass started from, nil if none.
	ReusedOutput  *partition.DatedLocation  `json:"reusedOutput,omitempty"`
	Outputs       []partition.DatedLocation `json:"outputs"`
	StatsLocation string                    `json:"statsLocation,omitempty"`
	Reuse         planner.ReuseDecision     `json:"reuse"`
	ReducerCount  int                       `json:"reducerCount"`
	PartialDays   []planner.PartialDay      `json:"partialDays,omitempty"`
	StartedAt     time.Time                 `json:"startedAt"`
	Duration      time.Duration             `json:"duration"`
}

// Reports is the append-only list of the passes of one invocation.
type Reports struct {
	lock  sync.RWMutex
	items []PassReport
}

func (r *Reports) Append(report PassReport) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.items = append(r.items, report)
}

// Items returns a copy of the reports in pass order.
func (r *Reports) Items() []PassReport {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return append([]PassReport(nil), r.items...)
}

func (r *Reports) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.items)
}
