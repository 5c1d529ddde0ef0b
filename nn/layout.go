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

package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Layout maps between a list of shaped parameter tensors and one flat
// coordinate vector. Tensors are laid out one after the other, each in
// row-major order.
type Layout struct {
	rows, cols []int
	offsets    []int
	size       int
}

// LayoutOf returns the layout of ps.
func LayoutOf(ps []*mat.Dense) Layout {
	var l Layout
	for _, p := range ps {
		r, c := p.Dims()
		l.rows = append(l.rows, r)
		l.cols = append(l.cols, c)
		l.offsets = append(l.offsets, l.size)
		l.size += r * c
	}
	return l
}

// Size returns the total number of coordinates.
func (l Layout) Size() int {
	return l.size
}

// Len returns the number of tensors.
func (l Layout) Len() int {
	return len(l.rows)
}

// Flatten concatenates ps into a new vector of length Size.
func (l Layout) Flatten(ps []*mat.Dense) []float64 {
	return l.FlattenInto(make([]float64, l.size), ps)
}

// FlattenInto writes ps into dst, which must have length Size, and returns dst.
func (l Layout) FlattenInto(dst []float64, ps []*mat.Dense) []float64 {
	if len(ps) != len(l.rows) {
		panic(fmt.Sprintf("nn: flatten got %d tensors, layout has %d", len(ps), len(l.rows)))
	}
	if len(dst) != l.size {
		panic(fmt.Sprintf("nn: flatten destination has length %d, layout has size %d", len(dst), l.size))
	}
	for i, p := range ps {
		if r, c := p.Dims(); r != l.rows[i] || c != l.cols[i] {
			panic(fmt.Sprintf("nn: tensor %d is %d×%d, layout expects %d×%d", i, r, c, l.rows[i], l.cols[i]))
		}
		off := l.offsets[i]
		for j := 0; j < l.rows[i]; j++ {
			copy(dst[off+j*l.cols[i]:off+(j+1)*l.cols[i]], p.RawRowView(j))
		}
	}
	return dst
}

// Unflatten splits v, which must have length Size, into freshly allocated
// tensors shaped like the layout.
func (l Layout) Unflatten(v []float64) []*mat.Dense {
	if len(v) != l.size {
		panic(fmt.Sprintf("nn: unflatten got a vector of length %d, layout has size %d", len(v), l.size))
	}
	ps := make([]*mat.Dense, len(l.rows))
	for i := range l.rows {
		n := l.rows[i] * l.cols[i]
		ps[i] = mat.NewDense(l.rows[i], l.cols[i], append([]float64(nil), v[l.offsets[i]:l.offsets[i]+n]...))
	}
	return ps
}
