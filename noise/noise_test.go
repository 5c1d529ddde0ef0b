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

package noise

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/cfattack/cfattack/autodiff"
	"github.com/cfattack/cfattack/nn"
	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/mat"
)

func TestNewKeyIsZero(t *testing.T) {
	k := NewKey(4, []int{1})
	if diff := cmp.Diff([]float64{0, 0, 0, 0}, k.Values()); diff != "" {
		t.Errorf("NewKey values mismatch (-want +got):\n%s", diff)
	}
	if k.Dim() != 4 {
		t.Errorf("Dim: got %d, want 4", k.Dim())
	}
}

func TestProject(t *testing.T) {
	for _, tc := range []struct {
		desc        string
		categorical []int
		set         []float64
		want        []float64
	}{
		{"no categorical features", nil, []float64{1, -2, 3}, []float64{1, -2, 3}},
		{"first feature categorical", []int{0}, []float64{1, -2, 3}, []float64{0, -2, 3}},
		{"several categorical features", []int{2, 0}, []float64{1, -2, 3}, []float64{0, -2, 0}},
	} {
		k := NewKey(3, tc.categorical)
		k.vec.SetRow(0, tc.set)
		k.Project()
		if diff := cmp.Diff(tc.want, k.Values()); diff != "" {
			t.Errorf("Project: when %s (-want +got):\n%s", tc.desc, diff)
		}
		if err := k.CheckProjected(); err != nil {
			t.Errorf("CheckProjected after Project: when %s got %v", tc.desc, err)
		}
	}
}

func TestCheckProjectedDetectsViolation(t *testing.T) {
	k := NewKey(2, []int{0})
	k.vec.Set(0, 0, 0.5)
	if err := k.CheckProjected(); err == nil {
		t.Errorf("CheckProjected: got no error for a non-zero categorical coordinate")
	}
}

func TestStepKeepsCategoricalZero(t *testing.T) {
	k := NewKey(3, []int{0})
	opt := nn.NewAdam(nn.DefaultAdamConfig(0.1))
	for i := 0; i < 5; i++ {
		k.Step(opt, mat.NewDense(1, 3, []float64{1, -1, 0.5}))
		if err := k.CheckProjected(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	v := k.Values()
	if v[1] <= 0 || v[2] >= 0 {
		t.Errorf("Step: got %v, want coordinate 1 increased and 2 decreased", v)
	}
}

func TestApplyAndAddTo(t *testing.T) {
	k := NewKey(2, nil)
	k.Set([]float64{0.5, -1})
	x := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	want := mat.NewDense(2, 2, []float64{1.5, 1, 3.5, 3})
	if got := k.Apply(x); !mat.Equal(got, want) {
		t.Errorf("Apply: got %v, want %v", mat.Formatted(got), mat.Formatted(want))
	}
	g := autodiff.NewGraph()
	v := k.Bind(g)
	if got := AddTo(g.Const(x), v).Value(); !mat.Equal(got, want) {
		t.Errorf("AddTo: got %v, want %v", mat.Formatted(got), mat.Formatted(want))
	}
	// The gradient of the sum w.r.t. the key counts the rows it was added to.
	grad := g.GradValues(autodiff.Sum(AddTo(g.Const(x), v)), []*autodiff.Var{v})[0]
	if !mat.Equal(grad, mat.NewDense(1, 2, []float64{2, 2})) {
		t.Errorf("gradient w.r.t. key: got %v, want [2 2]", mat.Formatted(grad))
	}
	if !mat.Equal(x, mat.NewDense(2, 2, []float64{1, 2, 3, 4})) {
		t.Errorf("Apply modified its input")
	}
}

func TestL1(t *testing.T) {
	k := NewKey(3, nil)
	k.Set([]float64{1, -2, 0.5})
	if got := k.L1(); got != 3.5 {
		t.Errorf("L1: got %f, want 3.5", got)
	}
}

func TestKeySerialization(t *testing.T) {
	k := NewKey(3, []int{2})
	k.Set([]float64{0.25, -0.5, 7})
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(k); err != nil {
		t.Fatalf("encoding Key failed: %v", err)
	}
	restored := &Key{}
	if err := gob.NewDecoder(&buf).Decode(restored); err != nil {
		t.Fatalf("decoding Key failed: %v", err)
	}
	if diff := cmp.Diff(k.Values(), restored.Values()); diff != "" {
		t.Errorf("decoded key values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(k.Categorical(), restored.Categorical()); diff != "" {
		t.Errorf("decoded key categorical mismatch (-want +got):\n%s", diff)
	}
}

func TestCloneIsDeep(t *testing.T) {
	k := NewKey(2, nil)
	cp := k.Clone()
	cp.Set([]float64{1, 1})
	if k.L1() != 0 {
		t.Errorf("Clone shares storage with the original")
	}
}
