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

package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_Arithmetic(t *testing.T) {
	d := NewDate(2024, time.February, 28)
	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, "2023-12-31", NewDate(2024, time.January, 1).AddDays(-1).String())
	assert.Equal(t, 2, d.DaysUntil(d.AddDays(2)))
	assert.Equal(t, -3, d.DaysUntil(d.AddDays(-3)))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(1).After(d))
	assert.Equal(t, 0, d.Compare(NewDate(2024, time.February, 28)))
	assert.Equal(t, "20240228", d.Format("20060102"))
	assert.False(t, d.IsZero())
	assert.True(t, Date{}.IsZero())
}

func TestDate_DaysUntilAcrossDST(t *testing.T) {
	// dates are zone free, so a DST switch never shortens a day
	a := MustParseISO("2024-03-09")
	b := MustParseISO("2024-03-11")
	assert.Equal(t, 2, a.DaysUntil(b))
}

func TestDate_Text(t *testing.T) {
	d := MustParseISO("2024-05-07")
	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2024-05-07", string(b))

	var got Date
	require.NoError(t, got.UnmarshalText([]byte("2024-05-07")))
	assert.Equal(t, d, got)
	assert.Error(t, got.UnmarshalText([]byte("May 7")))
}

func TestSort(t *testing.T) {
	dates := []Date{MustParseISO("2024-01-03"), MustParseISO("2023-12-31"), MustParseISO("2024-01-01")}
	Sort(dates)
	assert.Equal(t, []Date{MustParseISO("2023-12-31"), MustParseISO("2024-01-01"), MustParseISO("2024-01-03")}, dates)
}

func TestCalendar_DateOf(t *testing.T) {
	cal, err := New("America/Los_Angeles")
	require.NoError(t, err)
	instant := time.Date(2024, time.January, 2, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-01", cal.DateOf(instant).String())
	assert.Equal(t, "2024-01-02", UTC().DateOf(instant).String())

	clock := ClockFunc(func() time.Time { return instant })
	assert.Equal(t, "2024-01-01", cal.Today(clock).String())

	_, err = New("Not/AZone")
	assert.Error(t, err)
}

func TestCalendar_Parse(t *testing.T) {
	cal := UTC()
	d, err := cal.Parse("2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", d.String())

	d, err = cal.Parse("2024-01-15T22:10:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", d.String())

	_, err = cal.Parse("not a date")
	assert.Error(t, err)
}
