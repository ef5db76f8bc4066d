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

package engine

import (
	"time"

	"github.com/montanaflynn/stats"
)

// TaskStat is the timing of one task of a run.
type TaskStat struct {
	Name     string        `json:"name"`
	Phase    string        `json:"phase"`
	Duration time.Duration `json:"duration"`
	Attempts int           `json:"attempts"`
}

// RunStats is the side channel statistics of one run. Engines that cannot
// report task timing leave Tasks empty.
type RunStats struct {
	Tasks          []TaskStat `json:"tasks,omitempty"`
	RecordsRead    int64      `json:"recordsRead"`
	RecordsWritten int64      `json:"recordsWritten"`
}

// PhaseSummary aggregates task durations of one phase, in milliseconds.
type PhaseSummary struct {
	Phase       string  `json:"phase"`
	Tasks       int     `json:"tasks"`
	MeanMs      float64 `json:"meanMs"`
	MedianMs    float64 `json:"medianMs"`
	P95Ms       float64 `json:"p95Ms"`
	MaxMs       float64 `json:"maxMs"`
	MaxAttempts int     `json:"maxAttempts"`
	Retried     int     `json:"retried"`
}

// Summary returns one PhaseSummary per phase, in order of first appearance.
func (s *RunStats) Summary() []PhaseSummary {
	if s == nil {
		return nil
	}
	var order []string
	durations := make(map[string][]float64)
	summaries := make(map[string]*PhaseSummary)
	for _, t := range s.Tasks {
		ps, ok := summaries[t.Phase]
		if !ok {
			ps = &PhaseSummary{Phase: t.Phase}
			summaries[t.Phase] = ps
			order = append(order, t.Phase)
		}
		ps.Tasks++
		if t.Attempts > ps.MaxAttempts {
			ps.MaxAttempts = t.Attempts
		}
		if t.Attempts > 1 {
			ps.Retried++
		}
		durations[t.Phase] = append(durations[t.Phase], float64(t.Duration)/float64(time.Millisecond))
	}

	result := make([]PhaseSummary, 0, len(order))
	for _, phase := range order {
		ps := summaries[phase]
		data := stats.Float64Data(durations[phase])
		ps.MeanMs, _ = data.Mean()
		ps.MedianMs, _ = data.Median()
		ps.MaxMs, _ = data.Max()
		// Percentile rejects samples too small to have a 95th rank
		if p95, err := data.Percentile(95); err == nil {
			ps.P95Ms = p95
		} else {
			ps.P95Ms = ps.MaxMs
		}
		result = append(result, *ps)
	}
	return result
}
