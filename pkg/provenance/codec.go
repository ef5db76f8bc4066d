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

// Package provenance reads and writes the metadata recorded inside a
// published collapsed output: the date window the output actually covers.
package provenance

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-json"

	dfv1 "github.com/numaproj/dayroll/pkg/apis/dayroll/v1alpha1"
	"github.com/numaproj/dayroll/pkg/storage"
	"github.com/numaproj/dayroll/pkg/window"
)

const (
	// FormatVersion is written into every provenance file.
	FormatVersion = "1.0.0"
	// supportedFormats is the range of format versions this reader understands.
	supportedFormats = "^1"
)

// Provenance describes what a published output was built from.
type Provenance struct {
	FormatVersion  string            `json:"formatVersion"`
	Window         window.DateWindow `json:"window"`
	JobID          string            `json:"jobId,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	NewInputs      int               `json:"newInputs"`
	OldInputs      int               `json:"oldInputs"`
	PreviousOutput string            `json:"previousOutput,omitempty"`
}

// Codec persists provenance next to an output.
type Codec interface {
	// Read returns the provenance stored in the output at outputPath.
	Read(ctx context.Context, store storage.Store, outputPath string) (*Provenance, error)
	// Write stores p inside the output at outputPath.
	Write(ctx context.Context, store storage.Store, outputPath string, p *Provenance) error
}

type jsonCodec struct {
	fileName   string
	constraint *semver.Constraints
}

// NewCodec returns a Codec writing JSON files named _provenance.json.
func NewCodec() Codec {
	c, err := semver.NewConstraint(supportedFormats)
	if err != nil {
		panic(fmt.Errorf("invalid provenance format constraint %q, %w", supportedFormats, err))
	}
	return &jsonCodec{
		fileName:   dfv1.DefaultProvenanceFileName,
		constraint: c,
	}
}

func (c *jsonCodec) Read(ctx context.Context, store storage.Store, outputPath string) (*Provenance, error) {
	file := path.Join(outputPath, c.fileName)
	data, err := store.ReadFile(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read provenance %q, %w", file, err)
	}
	p := &Provenance{}
	if err = json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to decode provenance %q, %w", file, err)
	}
	if err = c.checkFormat(p.FormatVersion); err != nil {
		return nil, fmt.Errorf("provenance %q: %w", file, err)
	}
	if _, err = window.New(p.Window.Begin, p.Window.End); err != nil {
		return nil, fmt.Errorf("provenance %q has an invalid window, %w", file, err)
	}
	return p, nil
}

func (c *jsonCodec) Write(ctx context.Context, store storage.Store, outputPath string, p *Provenance) error {
	if p.FormatVersion == "" {
		p.FormatVersion = FormatVersion
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode provenance, %w", err)
	}
	return store.WriteFile(ctx, path.Join(outputPath, c.fileName), data)
}

func (c *jsonCodec) checkFormat(v string) error {
	version, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("error parsing format version %q: %w", v, err)
	}
	if ok, _ := c.constraint.Validate(version); !ok {
		return fmt.Errorf("format version %v did not meet constraint requirement %s", version, supportedFormats)
	}
	return nil
}
