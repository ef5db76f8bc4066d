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

package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/dayroll/pkg/partition"
	"github.com/numaproj/dayroll/pkg/planerr"
	"github.com/numaproj/dayroll/pkg/window"
)

func TestAlign_Strict(t *testing.T) {
	a := Align([]*partition.Index{
		index(t, "clicks", 1, 2, 3, 4),
		index(t, "views", 2, 3, 5),
	}, true)

	assert.Equal(t, []int{2, 3}, dayNumbers(a.Dates()))
	assert.Equal(t, []int{1, 4, 5}, dayNumbers(a.Partial()))
	assert.Equal(t, []string{"clicks"}, a.MissingSources(day(5)))
	assert.Equal(t, []string{"views"}, a.MissingSources(day(1)))

	locs, ok := a.Get(day(2))
	require.True(t, ok)
	require.Len(t, locs, 2)
	assert.Equal(t, "clicks", locs[0].Source)
	assert.Equal(t, "/in/clicks/2024/01/02", locs[0].Path)
	assert.Equal(t, "views", locs[1].Source)
	assert.False(t, a.Has(day(1)))

	assert.NoError(t, a.CheckWindow(window.MustNew(day(2), day(3))))
	err := a.CheckWindow(window.MustNew(day(1), day(3)))
	assert.ErrorIs(t, err, planerr.ErrMissingPartition)
	assert.Contains(t, err.Error(), "views")
}

func TestAlign_Relaxed(t *testing.T) {
	a := Align([]*partition.Index{
		index(t, "clicks", 1, 2, 3, 4),
		index(t, "views", 2, 3, 5),
	}, false)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, dayNumbers(a.Dates()))
	assert.Equal(t, []int{1, 4, 5}, dayNumbers(a.Partial()))
	locs, ok := a.Get(day(5))
	require.True(t, ok)
	require.Len(t, locs, 1)
	assert.Equal(t, "views", locs[0].Source)
	assert.NoError(t, a.CheckWindow(window.MustNew(day(1), day(5))))
}

func TestAlign_Edges(t *testing.T) {
	assert.Empty(t, Align(nil, true).Dates())

	a := Align([]*partition.Index{index(t, "clicks"), index(t, "views", 1)}, true)
	assert.Empty(t, a.Dates())
	assert.Equal(t, []int{1}, dayNumbers(a.Partial()))

	single := Align([]*partition.Index{index(t, "clicks", 3, 1, 2)}, true)
	assert.Equal(t, []int{1, 2, 3}, dayNumbers(single.Dates()))
	assert.Empty(t, single.Partial())
}
