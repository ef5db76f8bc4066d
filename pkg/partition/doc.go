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

// Package partition discovers day partitions in storage.
//
// A dataset keeps one directory per calendar day, named either
// root/YYYY/MM/DD (nested) or root/YYYYMMDD (flat). An Index maps each date of
// one source to the location holding that day's data; it is built once per
// pass from a storage listing and never changes afterwards.
package partition
