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

// Package reducesize sizes the number of parallel reduce workers of a pass
// from the byte volume it reads.
package reducesize

import (
	"sort"

	"github.com/numaproj/dayroll/pkg/planerr"
)

// DefaultTag is used by callers that do not tag their byte counts.
const DefaultTag = ""

// Estimator turns tagged byte counts into a reducer count.
type Estimator struct {
	defaultBytes int64
	byTag        map[string]int64
	maxReducers  int
}

type Option func(*Estimator)

// WithTagBytes overrides the bytes handled by one reducer for inputs tagged tag.
func WithTagBytes(tag string, bytesPerReducer int64) Option {
	return func(e *Estimator) {
		e.byTag[tag] = bytesPerReducer
	}
}

// WithMaxReducers caps the estimate, 0 means no cap.
func WithMaxReducers(n int) Option {
	return func(e *Estimator) {
		e.maxReducers = n
	}
}

// NewEstimator returns an Estimator assigning defaultBytesPerReducer bytes to
// each reducer unless a tag overrides it.
func NewEstimator(defaultBytesPerReducer int64, opts ...Option) (*Estimator, error) {
	e := &Estimator{
		defaultBytes: defaultBytesPerReducer,
		byTag:        make(map[string]int64),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.defaultBytes <= 0 {
		return nil, planerr.Newf(planerr.CodeInvalidConfig, "bytes per reducer must be positive, got %d", e.defaultBytes)
	}
	for tag, b := range e.byTag {
		if b <= 0 {
			return nil, planerr.Newf(planerr.CodeInvalidConfig, "bytes per reducer for tag %q must be positive, got %d", tag, b)
		}
	}
	if e.maxReducers < 0 {
		return nil, planerr.Newf(planerr.CodeInvalidConfig, "max reducers must not be negative, got %d", e.maxReducers)
	}
	return e, nil
}

// BytesPerReducer returns the ratio used for tag.
func (e *Estimator) BytesPerReducer(tag string) int64 {
	if b, ok := e.byTag[tag]; ok {
		return b
	}
	return e.defaultBytes
}

// Estimate returns the sum over tags of ceil(bytes / bytesPerReducer(tag)),
// at least 1 and at most the configured maximum.
func (e *Estimator) Estimate(bytesByTag map[string]int64) int {
	tags := make([]string, 0, len(bytesByTag))
	for tag := range bytesByTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	total := int64(0)
	for _, tag := range tags {
		b := bytesByTag[tag]
		if b <= 0 {
			continue
		}
		per := e.BytesPerReducer(tag)
		total += (b + per - 1) / per
	}
	if total < 1 {
		total = 1
	}
	if e.maxReducers > 0 && total > int64(e.maxReducers) {
		total = int64(e.maxReducers)
	}
	return int(total)
}

// EstimateBytes sizes untagged input.
func (e *Estimator) EstimateBytes(bytes int64) int {
	return e.Estimate(map[string]int64{DefaultTag: bytes})
}
