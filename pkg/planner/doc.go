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

// Package planner decides what one pass of an incremental job reads and
// writes. It resolves the date window, aligns the source partitions and, for
// collapsing jobs, decides whether the previous output is worth reusing.
//
// Planning is synchronous and pure: Plan only looks at a Snapshot taken
// before it starts, so two plans over unchanged storage are identical.
package planner
