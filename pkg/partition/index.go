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

package partition

import (
	"context"
	"fmt"

	"github.com/numaproj/dayroll/pkg/calendar"
	"github.com/numaproj/dayroll/pkg/planerr"
	"github.com/numaproj/dayroll/pkg/storage"
)

// Index maps the dates of one source to their locations.
type Index struct {
	source string
	byDate map[calendar.Date]DatedLocation
	dates  []calendar.Date
}

// NewIndex builds an index from locations; a date may appear only once.
func NewIndex(source string, locs []DatedLocation) (*Index, error) {
	idx := &Index{
		source: source,
		byDate: make(map[calendar.Date]DatedLocation, len(locs)),
		dates:  make([]calendar.Date, 0, len(locs)),
	}
	for _, l := range locs {
		if _, ok := idx.byDate[l.Date]; ok {
			return nil, planerr.Newf(planerr.CodeInvalidConfig, "source %q has more than one partition for %s", source, l.Date)
		}
		idx.byDate[l.Date] = l
		idx.dates = append(idx.dates, l.Date)
	}
	calendar.Sort(idx.dates)
	return idx, nil
}

// BuildIndex lists root in store and indexes every day partition under it.
func BuildIndex(ctx context.Context, store storage.Store, source, root string) (*Index, error) {
	if root == "" {
		return nil, planerr.Newf(planerr.CodeMissingPath, "source %q has no path", source)
	}
	ok, err := store.Exists(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to check source %q path %q, %w", source, root, err)
	}
	if !ok {
		return nil, planerr.Newf(planerr.CodeMissingPath, "source %q path %q does not exist", source, root)
	}
	locs, err := List(ctx, store, root)
	if err != nil {
		return nil, err
	}
	return NewIndex(source, locs)
}

func (idx *Index) Source() string {
	return idx.source
}

// Get returns the location of day d.
func (idx *Index) Get(d calendar.Date) (DatedLocation, bool) {
	l, ok := idx.byDate[d]
	return l, ok
}

// Dates returns the indexed dates, oldest first.
func (idx *Index) Dates() []calendar.Date {
	out := make([]calendar.Date, len(idx.dates))
	copy(out, idx.dates)
	return out
}

func (idx *Index) Len() int {
	return len(idx.dates)
}

// Min returns the oldest date, false when the index is empty.
func (idx *Index) Min() (calendar.Date, bool) {
	if len(idx.dates) == 0 {
		return calendar.Date{}, false
	}
	return idx.dates[0], true
}

// Max returns the newest date, false when the index is empty.
func (idx *Index) Max() (calendar.Date, bool) {
	if len(idx.dates) == 0 {
		return calendar.Date{}, false
	}
	return idx.dates[len(idx.dates)-1], true
}
