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

// Package implicit contains the second-order routines used to estimate how an
// optimal counterfactual moves when the classifier parameters change.
//
// For a counterfactual x* minimizing an objective L(x, θ), the implicit
// function theorem gives dx*/dθ = -H⁻¹ J, where H is the Hessian of L with
// respect to x and J is the Jacobian of ∂L/∂x with respect to θ.
package implicit

import (
	"math"

	"github.com/cfattack/cfattack/autodiff"
	"github.com/cfattack/cfattack/nn"
	log "github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Ridge is the multiple of the identity added to every Hessian before it is
// inverted.
const Ridge = 1e-20

// InputGradient returns ∂out/∂wrt for the scalar out, recorded on the graph so
// that it can be differentiated again.
func InputGradient(g *autodiff.Graph, out, wrt *autodiff.Var) *autodiff.Var {
	return g.Grad(out, []*autodiff.Var{wrt}, nil, true)[0]
}

// Hessian returns the d×d matrix of second derivatives, given grad, the
// differentiable 1×d gradient of a scalar with respect to the 1×d wrt.
// Row q is obtained by back-propagating a one-hot mask on coordinate q.
func Hessian(g *autodiff.Graph, grad, wrt *autodiff.Var) *mat.Dense {
	_, d := wrt.Dims()
	h := mat.NewDense(d, d, nil)
	forEachCoordinate(g, grad, func(q int, seed *autodiff.Var) {
		row := g.Grad(grad, []*autodiff.Var{wrt}, seed, false)[0].Value()
		h.SetRow(q, row.RawRowView(0))
	})
	return h
}

// InverseHessian returns the regularized inverse of the Hessian of the scalar
// out with respect to the 1×d variable wrt. It never fails: see
// RegularizedInverse.
func InverseHessian(g *autodiff.Graph, out, wrt *autodiff.Var) *mat.Dense {
	return RegularizedInverse(Hessian(g, InputGradient(g, out, wrt), wrt), Ridge)
}

// RegularizedInverse returns (h + ridge·I)⁻¹. If the regularized matrix is
// still exactly singular in floating point, the Moore-Penrose pseudo-inverse
// is returned instead. A matrix containing NaN yields a matrix of NaN.
// h is not modified.
func RegularizedInverse(h mat.Matrix, ridge float64) *mat.Dense {
	r, c := h.Dims()
	if r != c {
		panic(mat.ErrSquare)
	}
	a := mat.DenseCopyOf(h)
	for i := 0; i < r; i++ {
		a.Set(i, i, a.At(i, i)+ridge)
	}
	if hasNaN(a) {
		return nanMatrix(r)
	}

	var inv mat.Dense
	err := inv.Inverse(a)
	if err == nil {
		return &inv
	}
	if cond, ok := err.(mat.Condition); ok && !math.IsInf(float64(cond), 1) && finite(&inv) {
		// Ill-conditioned but computed.
		log.V(2).Infof("RegularizedInverse: %v", err)
		return &inv
	}
	log.V(1).Infof("RegularizedInverse: %v, using the pseudo-inverse", err)
	return pseudoInverse(a)
}

// pseudoInverse computes the Moore-Penrose pseudo-inverse of a through its
// singular value decomposition.
func pseudoInverse(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nanMatrix(r)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	tol := float64(max(r, c)) * floats.Max(values) * epsilon
	inv := make([]float64, len(values))
	for i, s := range values {
		if s > tol {
			inv[i] = 1 / s
		}
	}
	// V · diag(1/s) · Uᵀ
	var vs mat.Dense
	vs.Apply(func(_, j int, x float64) float64 { return x * inv[j] }, &v)
	var out mat.Dense
	out.Mul(&vs, u.T())
	return &out
}

// epsilon is the machine epsilon of float64.
const epsilon = 2.220446049250313e-16

// ParamJacobian returns the d×P Jacobian of the differentiable 1×d gradient
// grad with respect to params, where P is the total number of parameter
// coordinates. Row q holds ∂grad[q]/∂θ flattened in the order of nn.Layout.
func ParamJacobian(g *autodiff.Graph, grad *autodiff.Var, params []*autodiff.Var) *mat.Dense {
	_, d := grad.Dims()
	values := make([]*mat.Dense, len(params))
	for i, p := range params {
		values[i] = p.Value()
	}
	layout := nn.LayoutOf(values)
	jac := mat.NewDense(d, layout.Size(), nil)
	forEachCoordinate(g, grad, func(q int, seed *autodiff.Var) {
		gs := g.Grad(grad, params, seed, false)
		for i, gr := range gs {
			values[i] = gr.Value()
		}
		layout.FlattenInto(jac.RawRowView(q), values)
	})
	return jac
}

// forEachCoordinate calls fn with a one-hot 1×d seed for every coordinate of
// the 1×d variable v.
func forEachCoordinate(g *autodiff.Graph, v *autodiff.Var, fn func(q int, seed *autodiff.Var)) {
	_, d := v.Dims()
	mask := mat.NewDense(1, d, nil)
	seed := g.Const(mask)
	for q := 0; q < d; q++ {
		mask.Set(0, q, 1)
		fn(q, seed)
		mask.Set(0, q, 0)
	}
}

// ImplicitDirection returns sign · (-hinv · jac), the parameter-space
// direction along which the distance to the counterfactual changes, as a
// vector of length P.
func ImplicitDirection(hinv, jac mat.Matrix, sign []float64) []float64 {
	var dx mat.Dense
	dx.Mul(hinv, jac)
	dx.Scale(-1, &dx)
	var out mat.VecDense
	out.MulVec(dx.T(), mat.NewVecDense(len(sign), append([]float64(nil), sign...)))
	return append([]float64(nil), out.RawVector().Data...)
}

// Direction computes the implicit direction of one counterfactual: out is the
// counterfactual objective evaluated at the 1×d leaf cf, params are the bound
// classifier parameters and sign is the sign of the displacement from the
// original point to cf.
func Direction(g *autodiff.Graph, out, cf *autodiff.Var, params []*autodiff.Var, sign []float64) []float64 {
	grad := InputGradient(g, out, cf)
	hinv := RegularizedInverse(Hessian(g, grad, cf), Ridge)
	return ImplicitDirection(hinv, ParamJacobian(g, grad, params), sign)
}

// Correction returns 2·(diffPro − diffNotPro)·(dirPro − dirNotPro), the
// gradient of the squared subgroup cost disparity with respect to the
// parameters.
func Correction(diffPro, diffNotPro float64, dirPro, dirNotPro []float64) []float64 {
	if len(dirPro) != len(dirNotPro) {
		panic(mat.ErrShape)
	}
	out := make([]float64, len(dirPro))
	floats.SubTo(out, dirPro, dirNotPro)
	floats.Scale(2*(diffPro-diffNotPro), out)
	return out
}

func hasNaN(m *mat.Dense) bool {
	return floats.HasNaN(m.RawMatrix().Data)
}

func finite(m *mat.Dense) bool {
	for _, x := range m.RawMatrix().Data {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func nanMatrix(n int) *mat.Dense {
	data := make([]float64, n*n)
	for i := range data {
		data[i] = math.NaN()
	}
	return mat.NewDense(n, n, data)
}
