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

package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// KeysDelimiter joins the values of multiple key fields.
const KeysDelimiter = ":"

type keyedLogic struct {
	keyFields []string
}

func (l keyedLogic) key(rec Record) string {
	parts := make([]string, len(l.keyFields))
	for i, f := range l.keyFields {
		if v, ok := rec[f]; ok && v != nil {
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, KeysDelimiter)
}

func (keyedLogic) Combine(acc, v float64) float64  { return acc + v }
func (keyedLogic) Subtract(acc, v float64) float64 { return acc - v }

type countLogic struct {
	keyedLogic
}

// NewCountLogic counts records per key.
func NewCountLogic(keyFields []string) Logic {
	return countLogic{keyedLogic{keyFields: keyFields}}
}

func (l countLogic) Map(rec Record, emit func(string, float64)) error {
	emit(l.key(rec), 1)
	return nil
}

type sumLogic struct {
	keyedLogic
	valueField string
}

// NewSumLogic sums valueField per key.
func NewSumLogic(keyFields []string, valueField string) Logic {
	return sumLogic{keyedLogic: keyedLogic{keyFields: keyFields}, valueField: valueField}
}

func (l sumLogic) Map(rec Record, emit func(string, float64)) error {
	raw, ok := rec[l.valueField]
	if !ok || raw == nil {
		return nil
	}
	v, err := toFloat(raw)
	if err != nil {
		return fmt.Errorf("field %q: %w", l.valueField, err)
	}
	emit(l.key(rec), v)
	return nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("value %v of type %T is not numeric", v, v)
	}
}

// LogicSchemas returns the schema triple produced by the built-in logic.
func LogicSchemas(keyFields []string) RecordSchemas {
	keys := make([]Field, len(keyFields))
	for i, f := range keyFields {
		keys[i] = Field{Name: f, Type: "string"}
	}
	value := []Field{{Name: "value", Type: "double"}}
	return RecordSchemas{
		Key:          Schema{Name: "key", Fields: keys},
		Intermediate: Schema{Name: "intermediate", Fields: value},
		Output:       Schema{Name: "output", Fields: append([]Field{{Name: "key", Type: "string"}}, value...)},
	}
}
