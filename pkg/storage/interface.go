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

// Package storage defines the storage collaborator used for listing
// partitions, staging and publishing outputs.
package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"time"
)

// Entry is one child of a listed directory.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Store is the storage the planner lists and the publisher mutates.
// Paths are slash separated and absolute within the store.
type Store interface {
	// List returns the children of path sorted by name.
	List(ctx context.Context, path string) ([]Entry, error)
	// Exists reports whether path exists.
	Exists(ctx context.Context, path string) (bool, error)
	// Delete removes path and everything below it, a missing path is not an error.
	Delete(ctx context.Context, path string) error
	// Rename moves from to to, to must not exist.
	Rename(ctx context.Context, from, to string) error
	// Size returns the total bytes of every file at or below path.
	Size(ctx context.Context, path string) (int64, error)
	// MkdirAll creates path and any missing parents.
	MkdirAll(ctx context.Context, path string) error
	// ReadFile returns the content of the file.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// WriteFile replaces the content of the file, creating parents as needed.
	WriteFile(ctx context.Context, path string, data []byte) error
	// Create opens a new file for writing, creating parents as needed.
	Create(ctx context.Context, path string) (io.WriteCloser, error)
	// Open opens the file for reading.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// IsNotExist reports whether err means the path does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
