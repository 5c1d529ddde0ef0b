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

// Package aggregate provides streaming mean accumulators. An accumulator
// returns its result once; after that, or after being merged into another
// accumulator, it rejects further use.
package aggregate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Mean accumulates the arithmetic mean of scalars.
//
// Not thread-safe.
type Mean struct {
	sum   float64
	count int64
	state aggregationState
}

// NewMean returns an empty Mean.
func NewMean() *Mean {
	return &Mean{}
}

// Add adds x to the mean.
func (m *Mean) Add(x float64) error {
	if err := m.state.check("Mean", "add"); err != nil {
		return err
	}
	m.sum += x
	m.count++
	return nil
}

// Count returns the number of values added so far.
func (m *Mean) Count() int64 {
	return m.count
}

// Merge merges m2 into m. m2 is consumed by this operation: it may not be
// used after it is merged into m.
func (m *Mean) Merge(m2 *Mean) error {
	if err := m.state.check("Mean", "merge"); err != nil {
		return err
	}
	if err := m2.state.check("merged Mean", "merge"); err != nil {
		return err
	}
	m.sum += m2.sum
	m.count += m2.count
	m2.state = merged
	return nil
}

// Result returns the mean of the values added so far, or NaN if none were.
// The method can be called only once.
func (m *Mean) Result() (float64, error) {
	if err := m.state.check("Mean", "compute its result"); err != nil {
		return 0, err
	}
	m.state = resultReturned
	if m.count == 0 {
		return math.NaN(), nil
	}
	return m.sum / float64(m.count), nil
}

// VectorMean accumulates the elementwise mean of fixed-length vectors.
//
// Not thread-safe.
type VectorMean struct {
	sum   []float64
	count int64
	state aggregationState
}

// NewVectorMean returns an empty VectorMean over vectors of length dim.
func NewVectorMean(dim int) *VectorMean {
	return &VectorMean{sum: make([]float64, dim)}
}

// Dim returns the length of the accumulated vectors.
func (vm *VectorMean) Dim() int {
	return len(vm.sum)
}

// Count returns the number of vectors added so far.
func (vm *VectorMean) Count() int64 {
	return vm.count
}

// Add adds x to the mean. x is not retained.
func (vm *VectorMean) Add(x []float64) error {
	if err := vm.state.check("VectorMean", "add"); err != nil {
		return err
	}
	if len(x) != len(vm.sum) {
		return fmt.Errorf("VectorMean of dimension %d cannot add a vector of length %d", len(vm.sum), len(x))
	}
	floats.Add(vm.sum, x)
	vm.count++
	return nil
}

// Merge merges vm2 into vm. vm2 is consumed by this operation: it may not be
// used after it is merged into vm.
func (vm *VectorMean) Merge(vm2 *VectorMean) error {
	if err := checkMergeVectorMean(vm, vm2); err != nil {
		return err
	}
	floats.Add(vm.sum, vm2.sum)
	vm.count += vm2.count
	vm2.state = merged
	return nil
}

func checkMergeVectorMean(vm1, vm2 *VectorMean) error {
	if err := vm1.state.check("VectorMean", "merge"); err != nil {
		return err
	}
	if err := vm2.state.check("merged VectorMean", "merge"); err != nil {
		return err
	}
	if len(vm1.sum) != len(vm2.sum) {
		return fmt.Errorf("cannot merge VectorMeans of dimensions %d and %d", len(vm1.sum), len(vm2.sum))
	}
	return nil
}

// Result returns the elementwise mean of the vectors added so far, or nil if
// none were. The method can be called only once.
func (vm *VectorMean) Result() ([]float64, error) {
	if err := vm.state.check("VectorMean", "compute its result"); err != nil {
		return nil, err
	}
	vm.state = resultReturned
	if vm.count == 0 {
		return nil, nil
	}
	out := append([]float64(nil), vm.sum...)
	floats.Scale(1/float64(vm.count), out)
	return out, nil
}
