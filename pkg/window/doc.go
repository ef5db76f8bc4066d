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

// Package window implements inclusive ranges of calendar days.
//
// A DateWindow is what a single pass of a job covers. Collapsing jobs
// publish one output per window, named after its end day, and record the
// window in the output's provenance so that a later pass can decide whether
// to start from it. Preserving jobs walk the window day by day.
package window
