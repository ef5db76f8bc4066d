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
	"context"
	"fmt"

	"github.com/numaproj/dayroll/pkg/engine"
	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/provenance"
	"github.com/numaproj/dayroll/pkg/storage"
	"github.com/numaproj/dayroll/pkg/window"
)

// PriorOutput is a published output of a collapsing job with its provenance.
type PriorOutput struct {
	Location partition.DatedLocation
	// Window is the provenance window, zero when ReadErr is set.
	Window  window.DateWindow
	ReadErr error
}

// Snapshot is the storage state a plan is computed from. It is taken once
// per pass and never refreshed while planning.
type Snapshot struct {
	// Indexes holds one index per configured source, in configuration order.
	Indexes []*partition.Index
	// Outputs are the dated outputs already published, ascending.
	Outputs []partition.DatedLocation
	// Priors are the reuse candidates of collapsing jobs, newest first.
	Priors []*PriorOutput
}

// Latest returns the most recent reuse candidate, nil when there is none.
func (s *Snapshot) Latest() *PriorOutput {
	if len(s.Priors) == 0 {
		return nil
	}
	return s.Priors[0]
}

// TakeSnapshot lists the sources and the outputs of the job.
func TakeSnapshot(ctx context.Context, store storage.Store, codec provenance.Codec, cfg Config) (*Snapshot, error) {
	snap := &Snapshot{}
	for _, src := range cfg.Sources {
		idx, err := partition.BuildIndex(ctx, store, src.Name, src.Path)
		if err != nil {
			return nil, err
		}
		snap.Indexes = append(snap.Indexes, idx)
	}

	outputs, err := partition.List(ctx, store, cfg.OutputRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to list outputs, %w", err)
	}
	snap.Outputs = outputs

	if cfg.Mode != engine.ModeCollapsing || !cfg.ReusePrevious {
		return snap, nil
	}
	// a capped pass may publish before the date of an older, wider output,
	// so every output is a candidate and not only the latest one
	for i := len(outputs) - 1; i >= 0; i-- {
		prior := &PriorOutput{Location: outputs[i]}
		if p, err := codec.Read(ctx, store, outputs[i].Path); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			prior.ReadErr = err
		} else {
			prior.Window = p.Window
		}
		snap.Priors = append(snap.Priors, prior)
	}
	return snap, nil
}
