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

// Package planerr defines the error taxonomy shared by the planners, the
// publisher and the pass orchestrator.
package planerr

import (
	"errors"
	"fmt"
)

type ErrKind int16

const (
	Unknown ErrKind = iota
	// Configuration errors fail at plan time and are never retried.
	Configuration
	// DataAvailability errors fail the current pass; a later run may see new data.
	DataAvailability
	// IterationLimit errors mean the per-pass cap is too small for the backlog.
	IterationLimit
	// Engine errors come from the compute engine and carry its error verbatim.
	Engine
)

func (ek ErrKind) String() string {
	switch ek {
	case Configuration:
		return "Configuration"
	case DataAvailability:
		return "DataAvailability"
	case IterationLimit:
		return "IterationLimit"
	case Engine:
		return "Engine"
	default:
		return "Unknown"
	}
}

// Code identifies a specific failure.
type Code string

const (
	CodeNoDataAvailable           Code = "NoDataAvailable"
	CodeConflictingConfig         Code = "ConflictingConfig"
	CodeInvalidConfig             Code = "InvalidConfig"
	CodeMissingPath               Code = "MissingPath"
	CodeInvalidWindow             Code = "InvalidWindow"
	CodeEndDateUnavailable        Code = "EndDateUnavailable"
	CodeBeginDateUnavailable      Code = "BeginDateUnavailable"
	CodeMissingPartition          Code = "MissingPartition"
	CodeCannotSubtractMissingData Code = "CannotSubtractMissingData"
	CodeIterationLimitExceeded    Code = "IterationLimitExceeded"
	CodePlanAlreadyExists         Code = "PlanAlreadyExists"
	CodePlanNotYetCreated         Code = "PlanNotYetCreated"
	CodeEngineFailure             Code = "EngineFailure"
)

var kindByCode = map[Code]ErrKind{
	CodeNoDataAvailable:           DataAvailability,
	CodeConflictingConfig:         Configuration,
	CodeInvalidConfig:             Configuration,
	CodeMissingPath:               Configuration,
	CodeInvalidWindow:             Configuration,
	CodeEndDateUnavailable:        DataAvailability,
	CodeBeginDateUnavailable:      DataAvailability,
	CodeMissingPartition:          DataAvailability,
	CodeCannotSubtractMissingData: DataAvailability,
	CodeIterationLimitExceeded:    IterationLimit,
	CodePlanAlreadyExists:         Configuration,
	CodePlanNotYetCreated:         Configuration,
	CodeEngineFailure:             Engine,
}

// Sentinels for errors.Is; they match any PlanError carrying the same code.
var (
	ErrNoDataAvailable           = &PlanError{code: CodeNoDataAvailable}
	ErrConflictingConfig         = &PlanError{code: CodeConflictingConfig}
	ErrInvalidConfig             = &PlanError{code: CodeInvalidConfig}
	ErrMissingPath               = &PlanError{code: CodeMissingPath}
	ErrInvalidWindow             = &PlanError{code: CodeInvalidWindow}
	ErrEndDateUnavailable        = &PlanError{code: CodeEndDateUnavailable}
	ErrBeginDateUnavailable      = &PlanError{code: CodeBeginDateUnavailable}
	ErrMissingPartition          = &PlanError{code: CodeMissingPartition}
	ErrCannotSubtractMissingData = &PlanError{code: CodeCannotSubtractMissingData}
	ErrIterationLimitExceeded    = &PlanError{code: CodeIterationLimitExceeded}
	ErrPlanAlreadyExists         = &PlanError{code: CodePlanAlreadyExists}
	ErrPlanNotYetCreated         = &PlanError{code: CodePlanNotYetCreated}
	ErrEngineFailure             = &PlanError{code: CodeEngineFailure}
)

// PlanError is returned by planning, publishing and orchestration.
type PlanError struct {
	errKind    ErrKind
	code       Code
	errMessage string
	cause      error
}

// New returns a PlanError for the code, the kind is derived from the code.
func New(code Code, msg string) *PlanError {
	return &PlanError{
		errKind:    kindByCode[code],
		code:       code,
		errMessage: msg,
	}
}

// Newf is New with a format string.
func Newf(code Code, format string, args ...any) *PlanError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code to an underlying error, keeping it reachable through errors.Unwrap.
func Wrap(code Code, err error) *PlanError {
	return &PlanError{
		errKind:    kindByCode[code],
		code:       code,
		errMessage: err.Error(),
		cause:      err,
	}
}

func (e *PlanError) Error() string {
	if e.errMessage == "" {
		return string(e.code)
	}
	return fmt.Sprintf("%s: %s", e.code, e.errMessage)
}

func (e *PlanError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a PlanError with the same code.
func (e *PlanError) Is(target error) bool {
	t, ok := target.(*PlanError)
	return ok && t.code == e.code
}

func (e *PlanError) ErrorKind() ErrKind {
	if e.errKind == Unknown {
		return kindByCode[e.code]
	}
	return e.errKind
}

func (e *PlanError) Code() Code {
	return e.code
}

func (e *PlanError) ErrorMessage() string {
	return e.errMessage
}

// KindOf classifies err, looking through wrapping.
func KindOf(err error) ErrKind {
	var pe *PlanError
	if errors.As(err, &pe) {
		return pe.ErrorKind()
	}
	return Unknown
}

// IsRetryable reports whether a later pass could succeed without operator action.
// Only data-availability failures qualify, since new partitions may arrive.
func IsRetryable(err error) bool {
	return KindOf(err) == DataAvailability
}
