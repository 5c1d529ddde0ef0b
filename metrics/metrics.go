//
// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package metrics records scalar time series produced during training, and
// exports them as CSV or line plots.
package metrics

import (
	"sort"

	log "github.com/golang/glog"
)

// Logger is a sink of scalar time series, keyed by name and step.
type Logger interface {
	AddScalar(name string, value float64, step int)
}

type discard struct{}

func (discard) AddScalar(string, float64, int) {}

// Discard is a Logger that drops every scalar.
var Discard Logger = discard{}

type verbose struct{}

func (verbose) AddScalar(name string, value float64, step int) {
	log.Infof("%s[%d] = %g", name, step, value)
}

// Verbose is a Logger that writes every scalar to the info log.
var Verbose Logger = verbose{}

// Tee forwards every scalar to each of its Loggers.
type Tee []Logger

// AddScalar implements Logger.
func (t Tee) AddScalar(name string, value float64, step int) {
	for _, l := range t {
		l.AddScalar(name, value, step)
	}
}

// Point is one recorded scalar.
type Point struct {
	Name  string  `csv:"name"`
	Step  int     `csv:"step"`
	Value float64 `csv:"value"`
}

// Memory keeps every scalar in memory, in the order they were added.
//
// Not thread-safe.
type Memory struct {
	points []Point
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{}
}

// AddScalar implements Logger.
func (m *Memory) AddScalar(name string, value float64, step int) {
	m.points = append(m.points, Point{Name: name, Step: step, Value: value})
}

// Points returns a copy of the recorded scalars.
func (m *Memory) Points() []Point {
	return append([]Point(nil), m.points...)
}

// Names returns the distinct series names in sorted order.
func (m *Memory) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range m.points {
		if !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Series returns the steps and values of the named series, sorted by step.
// Values recorded at the same step keep their insertion order.
func (m *Memory) Series(name string) (steps []int, values []float64) {
	var ps []Point
	for _, p := range m.points {
		if p.Name == name {
			ps = append(ps, p)
		}
	}
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Step < ps[j].Step })
	for _, p := range ps {
		steps = append(steps, p.Step)
		values = append(values, p.Value)
	}
	return steps, values
}

// Last returns the most recently added value of the named series.
func (m *Memory) Last(name string) (float64, bool) {
	for i := len(m.points) - 1; i >= 0; i-- {
		if m.points[i].Name == name {
			return m.points[i].Value, true
		}
	}
	return 0, false
}
