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

// Package publish moves job output from a private staging location to its
// final location, so readers never observe a partially written output.
package publish

import (
	"context"
	"fmt"
	"path"
	"strconv"

	"github.com/goccy/go-json"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	dfv1 "github.com/numaproj/dayroll/pkg/apis/dayroll/v1alpha1"
	"github.com/numaproj/dayroll/pkg/engine"
	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/shared/logging"
	"github.com/numaproj/dayroll/pkg/storage"
	"github.com/numaproj/dayroll/pkg/window"
)

// Forgetter drops cached state about a location that was replaced.
type Forgetter interface {
	Forget(path string)
}

// Target moves Staged to Final.
type Target struct {
	Staged string
	Final  string
}

// Stats is the side channel statistics document of one pass.
type Stats struct {
	JobID    string                `json:"jobId"`
	Window   window.DateWindow     `json:"window"`
	Outputs  []string              `json:"outputs"`
	Run      *engine.RunStats      `json:"run,omitempty"`
	Summary  []engine.PhaseSummary `json:"summary,omitempty"`
	Reducers int                   `json:"reducers"`
}

// StagedPublisher publishes outputs below one output root.
type StagedPublisher struct {
	store     storage.Store
	root      string
	statsRoot string
	forgetter Forgetter
}

type Option func(*StagedPublisher)

// WithStatsRoot writes statistics to root/<jobID>.json instead of next to the output.
func WithStatsRoot(root string) Option {
	return func(p *StagedPublisher) {
		p.statsRoot = root
	}
}

// WithForgetter is told about every replaced or deleted output.
func WithForgetter(f Forgetter) Option {
	return func(p *StagedPublisher) {
		p.forgetter = f
	}
}

func NewStagedPublisher(store storage.Store, outputRoot string, opts ...Option) *StagedPublisher {
	p := &StagedPublisher{
		store: store,
		root:  outputRoot,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *StagedPublisher) stagingRoot() string {
	return path.Join(p.root, dfv1.DefaultStagingDirName)
}

// StagingPath returns the private location job jobID writes into.
func (p *StagedPublisher) StagingPath(jobID string) string {
	return path.Join(p.stagingRoot(), jobID)
}

func (p *StagedPublisher) replacedPath(jobID string) string {
	return path.Join(p.stagingRoot(), jobID+".replaced")
}

func (p *StagedPublisher) forget(loc string) {
	if p.forgetter != nil {
		p.forgetter.Forget(loc)
	}
}

// Publish moves every target into place. An existing final location is moved
// aside first and restored when its replacement cannot be renamed in, so each
// final location is either the old or the new output.
func (p *StagedPublisher) Publish(ctx context.Context, jobID string, targets []Target) error {
	log := logging.FromContext(ctx)
	for i, t := range targets {
		ok, err := p.store.Exists(ctx, t.Staged)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("staged output %q does not exist", t.Staged)
		}

		var replaced string
		if ok, err = p.store.Exists(ctx, t.Final); err != nil {
			return err
		} else if ok {
			replaced = path.Join(p.replacedPath(jobID), strconv.Itoa(i))
			if err = p.store.Rename(ctx, t.Final, replaced); err != nil {
				return fmt.Errorf("failed to move %q aside, %w", t.Final, err)
			}
		}
		if err = p.store.Rename(ctx, t.Staged, t.Final); err != nil {
			if replaced != "" {
				if rerr := p.store.Rename(context.WithoutCancel(ctx), replaced, t.Final); rerr != nil {
					err = multierr.Append(err, fmt.Errorf("failed to restore %q, %w", t.Final, rerr))
				}
			}
			return fmt.Errorf("failed to publish %q, %w", t.Final, err)
		}
		p.forget(t.Final)
		log.Infow("Published output", zap.String("output", t.Final), zap.Bool("replaced", replaced != ""))
	}
	return p.store.Delete(ctx, p.replacedPath(jobID))
}

// Discard deletes everything job jobID staged.
func (p *StagedPublisher) Discard(ctx context.Context, jobID string) error {
	return multierr.Combine(
		p.store.Delete(ctx, p.StagingPath(jobID)),
		p.store.Delete(ctx, p.replacedPath(jobID)),
	)
}

// CleanStale deletes staging left behind by interrupted runs. It must only
// run while no pass of the job is in flight.
func (p *StagedPublisher) CleanStale(ctx context.Context) (int, error) {
	entries, err := p.store.List(ctx, p.stagingRoot())
	if err != nil {
		if storage.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	var errs error
	cleaned := 0
	for _, e := range entries {
		if err := p.store.Delete(ctx, path.Join(p.stagingRoot(), e.Name)); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		cleaned++
	}
	if cleaned > 0 {
		logging.FromContext(ctx).Infow("Cleaned stale staging", zap.Int("count", cleaned))
	}
	return cleaned, errs
}

// StatsPath returns where the statistics of jobID go. output is the single
// output of a collapsing pass, empty otherwise.
func (p *StagedPublisher) StatsPath(jobID, output string) string {
	switch {
	case p.statsRoot != "":
		return path.Join(p.statsRoot, jobID+".json")
	case output != "":
		return path.Join(output, dfv1.DefaultStatsFileName)
	default:
		return path.Join(p.root, dfv1.DefaultStatsDirName, jobID+".json")
	}
}

// WriteStats writes s and returns its location.
func (p *StagedPublisher) WriteStats(ctx context.Context, output string, s *Stats) (string, error) {
	if s.Run != nil && s.Summary == nil {
		s.Summary = s.Run.Summary()
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode stats, %w", err)
	}
	loc := p.StatsPath(s.JobID, output)
	if err = p.store.WriteFile(ctx, loc, data); err != nil {
		return "", fmt.Errorf("failed to write stats %q, %w", loc, err)
	}
	return loc, nil
}

// Retain keeps the keep most recent dated outputs and the protected paths,
// and deletes the others. keep < 1 keeps everything.
func (p *StagedPublisher) Retain(ctx context.Context, keep int, protect ...string) ([]partition.DatedLocation, error) {
	if keep < 1 {
		return nil, nil
	}
	outputs, err := partition.List(ctx, p.store, p.root)
	if err != nil {
		return nil, err
	}
	if len(outputs) <= keep {
		return nil, nil
	}
	var deleted []partition.DatedLocation
	var errs error
	protected := make(map[string]bool, len(protect))
	for _, path := range protect {
		protected[path] = true
	}
	for _, o := range outputs[:len(outputs)-keep] {
		if protected[o.Path] {
			continue
		}
		if err := p.store.Delete(ctx, o.Path); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		p.forget(o.Path)
		deleted = append(deleted, o)
	}
	if len(deleted) > 0 {
		logging.FromContext(ctx).Infow("Applied retention", zap.Int("keep", keep), zap.Int("deleted", len(deleted)))
	}
	return deleted, errs
}
