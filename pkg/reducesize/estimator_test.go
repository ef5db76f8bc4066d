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

package reducesize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/dayroll/pkg/planerr"
)

func TestEstimator_Estimate(t *testing.T) {
	e, err := NewEstimator(100, WithTagBytes("previous", 1000))
	require.NoError(t, err)

	tests := []struct {
		name  string
		bytes map[string]int64
		want  int
	}{
		{"empty", nil, 1},
		{"zero bytes", map[string]int64{"input": 0}, 1},
		{"exact", map[string]int64{"input": 300}, 3},
		{"round up", map[string]int64{"input": 301}, 4},
		{"one byte", map[string]int64{"input": 1}, 1},
		{"override", map[string]int64{"previous": 1500}, 2},
		{"sum over tags", map[string]int64{"input": 250, "previous": 1500}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Estimate(tt.bytes))
		})
	}
	assert.Equal(t, 10, e.EstimateBytes(1000))
	assert.Equal(t, int64(1000), e.BytesPerReducer("previous"))
	assert.Equal(t, int64(100), e.BytesPerReducer("input"))
}

func TestEstimator_MaxReducers(t *testing.T) {
	e, err := NewEstimator(10, WithMaxReducers(4))
	require.NoError(t, err)
	assert.Equal(t, 4, e.EstimateBytes(1000))
	assert.Equal(t, 2, e.EstimateBytes(20))
}

func TestNewEstimator_Invalid(t *testing.T) {
	_, err := NewEstimator(0)
	assert.True(t, errors.Is(err, planerr.ErrInvalidConfig))
	_, err = NewEstimator(10, WithTagBytes("input", -1))
	assert.True(t, errors.Is(err, planerr.ErrInvalidConfig))
	_, err = NewEstimator(10, WithMaxReducers(-1))
	assert.True(t, errors.Is(err, planerr.ErrInvalidConfig))
}
