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

// Package noise contains the perturbation key: a single vector that is added
// to every sample to push it towards the positive class while staying close to
// the clean data.
package noise

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/cfattack/cfattack/autodiff"
	"github.com/cfattack/cfattack/nn"
	log "github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Key is the shared additive perturbation. Its categorical coordinates are
// kept at exactly zero by Project.
//
// Not thread-safe.
type Key struct {
	vec         *mat.Dense // 1×dim
	categorical []int
}

// NewKey returns a zero key of dimension dim. Coordinates listed in
// categorical are never perturbed.
func NewKey(dim int, categorical []int) *Key {
	if dim < 1 {
		log.Fatalf("NewKey: dimension is %d, must be at least 1", dim)
	}
	for _, c := range categorical {
		if c < 0 || c >= dim {
			log.Fatalf("NewKey: categorical index %d is outside [0, %d)", c, dim)
		}
	}
	return &Key{
		vec:         mat.NewDense(1, dim, nil),
		categorical: append([]int(nil), categorical...),
	}
}

// Dim returns the dimension of the key.
func (k *Key) Dim() int {
	_, c := k.vec.Dims()
	return c
}

// Categorical returns the indices of the coordinates that are kept at zero.
func (k *Key) Categorical() []int {
	return append([]int(nil), k.categorical...)
}

// Values returns a copy of the key.
func (k *Key) Values() []float64 {
	return append([]float64(nil), k.vec.RawRowView(0)...)
}

// Set overwrites the key with xs and projects it.
func (k *Key) Set(xs []float64) {
	if len(xs) != k.Dim() {
		log.Fatalf("Set: got %d values for a key of dimension %d", len(xs), k.Dim())
	}
	k.vec.SetRow(0, xs)
	k.Project()
}

// Bind registers the key as a leaf of g. The leaf shares the key's storage.
func (k *Key) Bind(g *autodiff.Graph) *autodiff.Var {
	return g.Param(k.vec)
}

// AddTo broadcast-adds the bound key v to every row of x.
func AddTo(x, v *autodiff.Var) *autodiff.Var {
	return autodiff.AddRow(x, v)
}

// Apply returns x with the key added to every row, without recording a graph.
func (k *Key) Apply(x *mat.Dense) *mat.Dense {
	out := mat.DenseCopyOf(x)
	r, _ := out.Dims()
	kv := k.vec.RawRowView(0)
	for i := 0; i < r; i++ {
		floats.Add(out.RawRowView(i), kv)
	}
	return out
}

// Step updates the key with one step of opt against grad (1×dim) and projects
// the result.
func (k *Key) Step(opt *nn.Adam, grad *mat.Dense) {
	opt.Step([]*mat.Dense{k.vec}, []*mat.Dense{grad})
	k.Project()
}

// Project zeroes every categorical coordinate. It is a no-op for keys without
// categorical coordinates.
func (k *Key) Project() {
	row := k.vec.RawRowView(0)
	for _, c := range k.categorical {
		row[c] = 0
	}
}

// CheckProjected returns an error if a categorical coordinate is non-zero.
func (k *Key) CheckProjected() error {
	row := k.vec.RawRowView(0)
	for _, c := range k.categorical {
		if row[c] != 0 {
			return fmt.Errorf("noise key coordinate %d is categorical but has value %g", c, row[c])
		}
	}
	return nil
}

// L1 returns the L1 norm of the key.
func (k *Key) L1() float64 {
	return floats.Norm(k.vec.RawRowView(0), 1)
}

// Clone returns a deep copy of k.
func (k *Key) Clone() *Key {
	return &Key{vec: mat.DenseCopyOf(k.vec), categorical: k.Categorical()}
}

// encodableKey can be encoded by the gob package.
type encodableKey struct {
	Values      []float64
	Categorical []int
}

// GobEncode encodes Key.
func (k *Key) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(encodableKey{Values: k.Values(), Categorical: k.Categorical()})
	return buf.Bytes(), err
}

// GobDecode decodes Key.
func (k *Key) GobDecode(data []byte) error {
	var enc encodableKey
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&enc); err != nil {
		return fmt.Errorf("GobDecode: couldn't decode Key from bytes: %w", err)
	}
	if len(enc.Values) == 0 {
		return fmt.Errorf("GobDecode: decoded Key has no coordinates")
	}
	*k = Key{vec: mat.NewDense(1, len(enc.Values), enc.Values), categorical: enc.Categorical}
	return k.CheckProjected()
}
