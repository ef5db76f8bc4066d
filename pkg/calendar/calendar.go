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

// Package calendar provides civil dates and the explicit calendar (time zone)
// value that every planning call receives.
package calendar

import (
	"fmt"
	"slices"
	"time"

	"github.com/araddon/dateparse"
)

const isoLayout = "2006-01-02"

// Date is a calendar day without a time zone. The zero value is not a valid day.
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate returns the date, normalizing out-of-range values the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return fromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func fromTime(t time.Time) Date {
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

// ParseISO parses a YYYY-MM-DD date.
func ParseISO(s string) (Date, error) {
	t, err := time.Parse(isoLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, %w", s, err)
	}
	return fromTime(t), nil
}

// MustParseISO is ParseISO for literals, it panics on error.
func MustParseISO(s string) Date {
	d, err := ParseISO(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Year() int          { return d.year }
func (d Date) Month() time.Month  { return d.month }
func (d Date) Day() int           { return d.day }
func (d Date) IsZero() bool       { return d == Date{} }
func (d Date) utc() time.Time     { return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC) }
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// AddDays returns the date n days later (earlier when n is negative).
func (d Date) AddDays(n int) Date {
	return fromTime(d.utc().AddDate(0, 0, n))
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	return d.utc().Compare(o.utc())
}

// DaysUntil returns the number of days from d to o; negative when o is before d.
func (d Date) DaysUntil(o Date) int {
	return int(o.utc().Sub(d.utc()).Hours() / 24)
}

// Format formats the date with a time layout.
func (d Date) Format(layout string) string {
	return d.utc().Format(layout)
}

// In returns midnight of the date in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return d.Format(isoLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseISO(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Sort sorts dates in place, oldest first.
func Sort(dates []Date) {
	slices.SortFunc(dates, Date.Compare)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to a Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Calendar maps instants to dates in one time zone.
type Calendar struct {
	location *time.Location
}

// UTC returns a calendar in UTC.
func UTC() Calendar {
	return Calendar{location: time.UTC}
}

// New returns a calendar for an IANA time zone name; empty means UTC.
func New(timeZone string) (Calendar, error) {
	if timeZone == "" {
		return UTC(), nil
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return Calendar{}, fmt.Errorf("failed to load time zone %q, %w", timeZone, err)
	}
	return Calendar{location: loc}, nil
}

func (c Calendar) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// DateOf returns the date t falls on in this calendar.
func (c Calendar) DateOf(t time.Time) Date {
	return fromTime(t.In(c.Location()))
}

// Today returns the current date according to clock.
func (c Calendar) Today(clock Clock) Date {
	return c.DateOf(clock.Now())
}

// Parse accepts dates and timestamps in any format dateparse understands.
// Strings without a zone are read in this calendar's time zone.
func (c Calendar) Parse(s string) (Date, error) {
	if d, err := ParseISO(s); err == nil {
		return d, nil
	}
	t, err := dateparse.ParseIn(s, c.Location())
	if err != nil {
		return Date{}, fmt.Errorf("failed to parse date %q, %w", s, err)
	}
	return c.DateOf(t), nil
}
