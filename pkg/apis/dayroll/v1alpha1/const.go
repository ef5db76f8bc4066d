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

package v1alpha1

const (
	// env vars
	EnvConfigPath  = "DAYROLL_CONFIG"
	EnvMetricsPort = "DAYROLL_METRICS_PORT"
	EnvPrefix      = "DAYROLL"

	// defaults
	DefaultMaxIterations       = 20
	DefaultBytesPerReducer     = int64(256 * 1024 * 1024)
	DefaultEngineParallelism   = 4
	DefaultEngineMaxAttempts   = 1
	DefaultMetricsPort         = 9090
	DefaultConfigName          = "job"
	DefaultAggregateOp         = AggregateOpCount
	DefaultStagingDirName      = "_staging"
	DefaultStatsDirName        = "_stats"
	DefaultStatsFileName       = "_stats.json"
	DefaultProvenanceFileName  = "_provenance.json"
	DefaultProvenanceCacheSize = 128

	// reducer sizing tags
	ReducerTagInput    = "input"
	ReducerTagPrevious = "previous"
)
