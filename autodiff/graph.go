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

// Package autodiff implements reverse-mode automatic differentiation over
// dense matrices.
//
// Gradients can be requested with createGraph set, in which case they are
// themselves nodes of the graph and can be differentiated again. This is what
// makes Hessians and mixed second derivatives (e.g. the derivative of an input
// gradient with respect to model parameters) available.
//
// A Graph is a differentiation scope. Every node created through it stays
// reachable from the Graph until the Graph is dropped; callers that need
// bounded memory create one Graph per unit of work and let it go afterwards.
//
// Not thread-safe.
package autodiff

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Graph records the operations applied to its variables.
type Graph struct {
	next   int
	noGrad bool
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{}
}

// Var is a node of a Graph holding a dense matrix value.
//
// The value of a Var must not be modified while the Graph is in use.
type Var struct {
	g            *Graph
	id           int
	value        *mat.Dense
	requiresGrad bool
	inputs       []*Var
	backward     func(gy *Var) []*Var
	op           string
}

// Param returns a leaf that gradients can be taken with respect to. The
// matrix is shared, not copied.
func (g *Graph) Param(m *mat.Dense) *Var {
	v := g.leaf(m, "param")
	v.requiresGrad = true
	return v
}

// Const returns a leaf that is treated as a constant.
func (g *Graph) Const(m *mat.Dense) *Var {
	return g.leaf(m, "const")
}

// Scalar returns a 1×1 constant.
func (g *Graph) Scalar(x float64) *Var {
	return g.Const(mat.NewDense(1, 1, []float64{x}))
}

// RowVector returns a 1×len(xs) constant. xs is copied.
func (g *Graph) RowVector(xs []float64) *Var {
	return g.Const(mat.NewDense(1, len(xs), append([]float64(nil), xs...)))
}

func (g *Graph) leaf(m *mat.Dense, op string) *Var {
	v := &Var{g: g, id: g.next, value: m, op: op}
	g.next++
	return v
}

func (g *Graph) newVar(op string, value *mat.Dense, inputs []*Var, backward func(gy *Var) []*Var) *Var {
	v := &Var{g: g, id: g.next, value: value, op: op}
	g.next++
	if g.noGrad {
		return v
	}
	for _, in := range inputs {
		if in.g != g {
			panic(fmt.Sprintf("autodiff: %s mixes variables from different graphs", op))
		}
		if in.requiresGrad {
			v.requiresGrad = true
		}
	}
	if v.requiresGrad {
		v.inputs = inputs
		v.backward = backward
	}
	return v
}

// Value returns the matrix held by v.
func (v *Var) Value() *mat.Dense {
	return v.value
}

// Dims returns the shape of v.
func (v *Var) Dims() (r, c int) {
	return v.value.Dims()
}

// Scalar returns the single element of a 1×1 variable.
func (v *Var) Scalar() float64 {
	if r, c := v.Dims(); r != 1 || c != 1 {
		panic(fmt.Sprintf("autodiff: Scalar called on a %d×%d %s", r, c, v.op))
	}
	return v.value.At(0, 0)
}

// RequiresGrad reports whether v depends on a Param.
func (v *Var) RequiresGrad() bool {
	return v.requiresGrad
}

// Graph returns the graph v belongs to.
func (v *Var) Graph() *Graph {
	return v.g
}

// Grad returns the vector-Jacobian product of out with seed, with respect to
// each variable in wrt. A nil seed means a matrix of ones shaped like out.
//
// With createGraph the returned gradients are recorded on the graph and can be
// differentiated again; otherwise they are constants. A variable that out does
// not depend on gets a zero gradient.
func (g *Graph) Grad(out *Var, wrt []*Var, seed *Var, createGraph bool) []*Var {
	if seed == nil {
		r, c := out.Dims()
		seed = g.Const(fill(r, c, 1))
	}
	sr, sc := seed.Dims()
	if or, oc := out.Dims(); sr != or || sc != oc {
		panic(fmt.Sprintf("autodiff: seed is %d×%d, output is %d×%d", sr, sc, or, oc))
	}

	prev := g.noGrad
	g.noGrad = !createGraph
	defer func() { g.noGrad = prev }()

	adj := map[*Var]*Var{out: seed}
	for _, v := range reachable(out) {
		gy, ok := adj[v]
		if !ok || v.backward == nil {
			continue
		}
		gxs := v.backward(gy)
		for i, in := range v.inputs {
			if !in.requiresGrad || gxs[i] == nil {
				continue
			}
			if acc, ok := adj[in]; ok {
				adj[in] = Add(acc, gxs[i])
			} else {
				adj[in] = gxs[i]
			}
		}
	}

	grads := make([]*Var, len(wrt))
	for i, w := range wrt {
		a, ok := adj[w]
		switch {
		case !ok:
			r, c := w.Dims()
			grads[i] = g.Const(mat.NewDense(r, c, nil))
		case !createGraph:
			grads[i] = g.Const(a.value)
		default:
			grads[i] = a
		}
	}
	return grads
}

// GradValues is Grad without graph creation, returning plain matrices.
func (g *Graph) GradValues(out *Var, wrt []*Var) []*mat.Dense {
	grads := g.Grad(out, wrt, nil, false)
	vals := make([]*mat.Dense, len(grads))
	for i, gr := range grads {
		vals[i] = gr.value
	}
	return vals
}

// reachable returns the nodes out depends on that require a gradient, in
// reverse topological order. Node ids grow with creation time, so sorting by
// decreasing id is enough.
func reachable(out *Var) []*Var {
	if !out.requiresGrad {
		return nil
	}
	seen := map[*Var]bool{out: true}
	stack := []*Var{out}
	var nodes []*Var
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes = append(nodes, v)
		for _, in := range v.inputs {
			if in.requiresGrad && !seen[in] {
				seen[in] = true
				stack = append(stack, in)
			}
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].id > nodes[j].id })
	return nodes
}

func fill(r, c int, x float64) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = x
	}
	return mat.NewDense(r, c, data)
}
