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

// Package engine defines the compute engine collaborator: it runs the user
// supplied map and accumulate logic over the selected day partitions and
// writes the result to a staging location.
package engine

import (
	"context"

	"github.com/numaproj/dayroll/pkg/partition"
)

// Role tells the engine how an input contributes to the result.
type Role int

const (
	// RoleNew inputs are added to the result.
	RoleNew Role = iota
	// RoleOld inputs are subtracted from a reused output.
	RoleOld
	// RoleReused is a previously published output used as the starting state.
	RoleReused
)

func (r Role) String() string {
	switch r {
	case RoleNew:
		return "new"
	case RoleOld:
		return "old"
	case RoleReused:
		return "reused"
	default:
		return "unknown"
	}
}

// Mode selects between one output per window and one output per day.
type Mode int

const (
	ModeCollapsing Mode = iota
	ModePreserving
)

func (m Mode) String() string {
	if m == ModePreserving {
		return "preserving"
	}
	return "collapsing"
}

// Field is one named, typed column of a record schema.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema describes records at one stage of a job.
type Schema struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields,omitempty"`
}

// RecordSchemas is the key, intermediate value and output value schema triple.
type RecordSchemas struct {
	Key          Schema `json:"key"`
	Intermediate Schema `json:"intermediate"`
	Output       Schema `json:"output"`
}

// Input is one location the job reads.
type Input struct {
	Location partition.DatedLocation
	Source   string
	Role     Role
}

// Record is one decoded input record.
type Record map[string]any

// Logic is the user supplied aggregation. Subtract must undo Combine so that
// old days can be removed from a reused output.
type Logic interface {
	Map(rec Record, emit func(key string, value float64)) error
	Combine(acc, v float64) float64
	Subtract(acc, v float64) float64
}

// Job is one pass worth of work.
type Job struct {
	ID      string
	Mode    Mode
	Inputs  []Input
	Schemas RecordSchemas
	// SchemaByPath is the input record schema for each input location.
	SchemaByPath map[string]Schema
	Logic        Logic
	// Workers is the number of parallel reduce workers.
	Workers int
	// Staging is the private location the engine writes into.
	Staging string
	// OutputLayout places per-day outputs below Staging in preserving mode.
	OutputLayout partition.Layout
}

// Result is returned by a successful run.
type Result struct {
	Stats *RunStats
}

// Engine executes jobs. Run blocks until the job finishes or ctx is done,
// and must abort outstanding work on cancellation.
type Engine interface {
	Run(ctx context.Context, job *Job) (*Result, error)
}
