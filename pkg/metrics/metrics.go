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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelVersion  = "version"
	LabelPlatform = "platform"
	LabelJob      = "job"
	LabelMode     = "mode"
	LabelRole     = "role"
	LabelOutcome  = "outcome"
	LabelReason   = "reason"
)

const namespace = "dayroll"

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "A metric with a constant value '1', labeled by dayroll binary version and platform",
	}, []string{LabelVersion, LabelPlatform})
)

// Pass metrics
var (
	// PassesTotal is the number of passes that published an output
	PassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pass",
		Name:      "total",
		Help:      "Total number of published passes",
	}, []string{LabelJob, LabelMode})

	// PassFailures is the number of failed passes, labeled by error kind
	PassFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pass",
		Name:      "failures_total",
		Help:      "Total number of failed passes",
	}, []string{LabelJob, LabelReason})

	// PassDuration is the wall time of a pass from planning to retention
	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pass",
		Name:      "duration_seconds",
		Help:      "Pass processing latency in seconds",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
	}, []string{LabelJob})

	// RecordsRead is the number of input records read by the engine
	RecordsRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pass",
		Name:      "records_read_total",
		Help:      "Total number of records read by the engine",
	}, []string{LabelJob})
)

// Planner metrics
var (
	// PlannedDays is the number of days planned, labeled by role (new, old)
	PlannedDays = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "planner",
		Name:      "days_total",
		Help:      "Total number of day partitions planned",
	}, []string{LabelJob, LabelRole})

	// PartialDays counts processed days some sources were missing from
	PartialDays = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "planner",
		Name:      "partial_days_total",
		Help:      "Total number of processed days missing from some sources",
	}, []string{LabelJob})

	// ReuseDecisions counts the outcome of the reuse decision
	ReuseDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "planner",
		Name:      "reuse_decisions_total",
		Help:      "Total number of reuse decisions, labeled by outcome",
	}, []string{LabelJob, LabelOutcome})

	// ReducerCount is the number of reducers of the latest pass
	ReducerCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "planner",
		Name:      "reducers",
		Help:      "Number of reducers of the latest pass",
	}, []string{LabelJob})
)

// Publish metrics
var (
	// PublishFailures counts failed publishes, the previous output stays in place
	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "publish",
		Name:      "failures_total",
		Help:      "Total number of failed publishes",
	}, []string{LabelJob})

	// RetentionDeleted counts outputs deleted by retention
	RetentionDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "publish",
		Name:      "retention_deleted_total",
		Help:      "Total number of outputs deleted by retention",
	}, []string{LabelJob})

	// StaleStagingCleaned counts staging locations left by interrupted runs
	StaleStagingCleaned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "publish",
		Name:      "stale_staging_cleaned_total",
		Help:      "Total number of stale staging locations deleted",
	}, []string{LabelJob})
)
