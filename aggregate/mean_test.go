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

package aggregate

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestMeanResult(t *testing.T) {
	for _, tc := range []struct {
		desc   string
		values []float64
		want   float64
	}{
		{"single value", []float64{2}, 2},
		{"several values", []float64{1, 2, 3, 4}, 2.5},
		{"negative values", []float64{-1, -3}, -2},
	} {
		m := NewMean()
		for _, v := range tc.values {
			if err := m.Add(v); err != nil {
				t.Fatalf("Add: %v", err)
			}
		}
		got, err := m.Result()
		if err != nil {
			t.Fatalf("Result: %v", err)
		}
		if !cmp.Equal(got, tc.want, cmpopts.EquateApprox(0, 1e-12)) {
			t.Errorf("Result: with %s got %f, want %f", tc.desc, got, tc.want)
		}
	}
}

func TestMeanEmptyIsNaN(t *testing.T) {
	got, err := NewMean().Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("Result of an empty Mean: got %f, want NaN", got)
	}
}

func TestMeanResultOnce(t *testing.T) {
	m := NewMean()
	m.Add(1)
	if _, err := m.Result(); err != nil {
		t.Fatalf("first Result: %v", err)
	}
	if _, err := m.Result(); err == nil {
		t.Errorf("second Result: got no error")
	}
	if err := m.Add(1); err == nil {
		t.Errorf("Add after Result: got no error")
	}
}

func TestMeanMerge(t *testing.T) {
	m1, m2 := NewMean(), NewMean()
	m1.Add(1)
	m2.Add(3)
	m2.Add(5)
	if err := m1.Merge(m2); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if m1.Count() != 3 {
		t.Errorf("Count after Merge: got %d, want 3", m1.Count())
	}
	got, _ := m1.Result()
	if got != 3 {
		t.Errorf("Result after Merge: got %f, want 3", got)
	}
	if err := m2.Add(1); err == nil {
		t.Errorf("Add on a merged Mean: got no error")
	}
}

func TestVectorMean(t *testing.T) {
	vm := NewVectorMean(3)
	for _, v := range [][]float64{{1, 2, 3}, {3, 2, 1}, {2, 2, -1}} {
		if err := vm.Add(v); err != nil {
			t.Fatalf("Add(%v): %v", v, err)
		}
	}
	got, err := vm.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	want := []float64{2, 2, 1}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Result mismatch (-want +got):\n%s", diff)
	}
}

func TestVectorMeanAddDoesNotRetain(t *testing.T) {
	vm := NewVectorMean(2)
	x := []float64{1, 1}
	vm.Add(x)
	x[0] = 100
	got, _ := vm.Result()
	if got[0] != 1 {
		t.Errorf("Result: got %v, the added vector was retained", got)
	}
}

func TestVectorMeanErrors(t *testing.T) {
	vm := NewVectorMean(2)
	if err := vm.Add([]float64{1}); err == nil {
		t.Errorf("Add with wrong length: got no error")
	}
	if err := vm.Merge(NewVectorMean(3)); err == nil {
		t.Errorf("Merge with wrong dimension: got no error")
	}
	got, err := vm.Result()
	if err != nil || got != nil {
		t.Errorf("Result of an empty VectorMean: got (%v, %v), want (nil, nil)", got, err)
	}
	if err := vm.Add([]float64{1, 2}); err == nil {
		t.Errorf("Add after Result: got no error")
	}
}

func TestVectorMeanMerge(t *testing.T) {
	vm1, vm2 := NewVectorMean(2), NewVectorMean(2)
	vm1.Add([]float64{0, 4})
	vm2.Add([]float64{2, 0})
	if err := vm1.Merge(vm2); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := vm1.Merge(vm2); err == nil {
		t.Errorf("Merge of a consumed VectorMean: got no error")
	}
	got, _ := vm1.Result()
	if diff := cmp.Diff([]float64{1, 2}, got); diff != "" {
		t.Errorf("Result after Merge mismatch (-want +got):\n%s", diff)
	}
}
