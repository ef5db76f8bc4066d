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

// Package fs implements storage.Store on top of an afero file system.
package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/numaproj/dayroll/pkg/storage"
)

type store struct {
	fs afero.Fs
}

// NewStore returns a Store backed by fs.
func NewStore(fs afero.Fs) storage.Store {
	return &store{fs: fs}
}

// NewOSStore returns a Store over the local file system.
func NewOSStore() storage.Store {
	return NewStore(afero.NewOsFs())
}

// NewBaseStore returns a Store whose paths are resolved below dir on the local file system.
func NewBaseStore(dir string) storage.Store {
	return NewStore(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

func (s *store) List(ctx context.Context, path string) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := afero.ReadDir(s.fs, path)
	if err != nil {
		return nil, err
	}
	entries := make([]storage.Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, storage.Entry{
			Name:    info.Name(),
			IsDir:   info.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func (s *store) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return afero.Exists(s.fs, path)
}

func (s *store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %q, %w", path, err)
	}
	return nil
}

func (s *store) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if exists, err := afero.Exists(s.fs, to); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("failed to rename %q, target %q already exists", from, to)
	}
	if err := s.fs.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return err
	}
	return s.fs.Rename(from, to)
}

func (s *store) Size(ctx context.Context, path string) (int64, error) {
	var total int64
	err := afero.Walk(s.fs, path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

func (s *store) MkdirAll(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fs.MkdirAll(path, 0755)
}

func (s *store) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return afero.ReadFile(s.fs, path)
}

func (s *store) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, path, data, 0644)
}

func (s *store) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
}

func (s *store) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fs.Open(path)
}
