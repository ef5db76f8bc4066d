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

package partition

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/numaproj/dayroll/pkg/calendar"
	"github.com/numaproj/dayroll/pkg/planerr"
	"github.com/numaproj/dayroll/pkg/storage"
)

// DatedLocation is the storage location of one day's partition or output.
type DatedLocation struct {
	Date calendar.Date `json:"date"`
	Path string        `json:"path"`
}

func (l DatedLocation) String() string {
	return fmt.Sprintf("%s@%s", l.Date, l.Path)
}

// SortByDate sorts locations oldest first.
func SortByDate(locs []DatedLocation) {
	slices.SortStableFunc(locs, func(a, b DatedLocation) int {
		return a.Date.Compare(b.Date)
	})
}

// Layout is a day-partition naming convention.
type Layout int

const (
	// Nested stores a day under root/YYYY/MM/DD.
	Nested Layout = iota
	// Flat stores a day under root/YYYYMMDD.
	Flat
)

func (l Layout) String() string {
	switch l {
	case Nested:
		return "nested"
	case Flat:
		return "flat"
	default:
		return "unknown"
	}
}

// ParseLayout parses "nested" or "flat".
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(s) {
	case "nested", "daily":
		return Nested, nil
	case "flat":
		return Flat, nil
	default:
		return Nested, planerr.Newf(planerr.CodeInvalidConfig, "unknown partition layout %q", s)
	}
}

// PathFor returns the location of day d below root.
func (l Layout) PathFor(root string, d calendar.Date) string {
	if l == Flat {
		return path.Join(root, d.Format("20060102"))
	}
	return path.Join(root, d.Format("2006"), d.Format("01"), d.Format("02"))
}

var (
	flatName  = regexp.MustCompile(`^\d{8}$`)
	yearName  = regexp.MustCompile(`^\d{4}$`)
	twoDigits = regexp.MustCompile(`^\d{2}$`)
)

func hidden(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}

func parseDay(layout, value string) (calendar.Date, bool) {
	t, err := time.Parse(layout, value)
	if err != nil || t.Format(layout) != value {
		return calendar.Date{}, false
	}
	return calendar.NewDate(t.Year(), t.Month(), t.Day()), true
}

// List returns every dated location under root, in either layout, sorted by
// date. A missing root yields an empty list. Names starting with "_" or "."
// are ignored, as are directories that do not parse as a date.
func List(ctx context.Context, store storage.Store, root string) ([]DatedLocation, error) {
	entries, err := store.List(ctx, root)
	if err != nil {
		if storage.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %q, %w", root, err)
	}

	seen := make(map[calendar.Date]string)
	var result []DatedLocation
	add := func(d calendar.Date, p string) error {
		if prev, ok := seen[d]; ok {
			return planerr.Newf(planerr.CodeInvalidConfig, "date %s found twice under %q: %q and %q", d, root, prev, p)
		}
		seen[d] = p
		result = append(result, DatedLocation{Date: d, Path: p})
		return nil
	}

	for _, e := range entries {
		if !e.IsDir || hidden(e.Name) {
			continue
		}
		switch {
		case flatName.MatchString(e.Name):
			if d, ok := parseDay("20060102", e.Name); ok {
				if err := add(d, path.Join(root, e.Name)); err != nil {
					return nil, err
				}
			}
		case yearName.MatchString(e.Name):
			nested, err := listNestedYear(ctx, store, root, e.Name)
			if err != nil {
				return nil, err
			}
			for _, loc := range nested {
				if err := add(loc.Date, loc.Path); err != nil {
					return nil, err
				}
			}
		}
	}
	SortByDate(result)
	return result, nil
}

func listNestedYear(ctx context.Context, store storage.Store, root, year string) ([]DatedLocation, error) {
	yearPath := path.Join(root, year)
	months, err := store.List(ctx, yearPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list %q, %w", yearPath, err)
	}
	var result []DatedLocation
	for _, m := range months {
		if !m.IsDir || !twoDigits.MatchString(m.Name) {
			continue
		}
		monthPath := path.Join(yearPath, m.Name)
		days, err := store.List(ctx, monthPath)
		if err != nil {
			return nil, fmt.Errorf("failed to list %q, %w", monthPath, err)
		}
		for _, d := range days {
			if !d.IsDir || !twoDigits.MatchString(d.Name) {
				continue
			}
			if date, ok := parseDay("2006/01/02", year+"/"+m.Name+"/"+d.Name); ok {
				result = append(result, DatedLocation{Date: date, Path: path.Join(monthPath, d.Name)})
			}
		}
	}
	return result, nil
}
