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

package metrics

import (
	"context"

	"github.com/numaproj/dayroll/pkg/storage"
)

// HealthChecker is the interface to check if a dependency of the job is usable
type HealthChecker interface {
	// IsHealthy returns an error when the dependency is not usable
	IsHealthy(ctx context.Context) error
}

type storageChecker struct {
	store storage.Store
	path  string
}

// NewStorageHealthChecker checks that path can be looked up in store.
func NewStorageHealthChecker(store storage.Store, path string) HealthChecker {
	return &storageChecker{store: store, path: path}
}

func (s *storageChecker) IsHealthy(ctx context.Context) error {
	_, err := s.store.Exists(ctx, s.path)
	return err
}
