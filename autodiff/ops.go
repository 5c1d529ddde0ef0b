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

package autodiff

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Every backward function below is written with the ops of this file so that
// gradients built with createGraph can be differentiated again. Factors that
// are piecewise constant (sign, step) enter as constants.

// MatMul returns the matrix product a·b.
func MatMul(a, b *Var) *Var {
	var out mat.Dense
	out.Mul(a.value, b.value)
	return a.g.newVar("matmul", &out, []*Var{a, b}, func(gy *Var) []*Var {
		return []*Var{MatMul(gy, Transpose(b)), MatMul(Transpose(a), gy)}
	})
}

// Transpose returns aᵀ.
func Transpose(a *Var) *Var {
	return a.g.newVar("transpose", mat.DenseCopyOf(a.value.T()), []*Var{a}, func(gy *Var) []*Var {
		return []*Var{Transpose(gy)}
	})
}

// Add returns a+b. Both operands must have the same shape.
func Add(a, b *Var) *Var {
	var out mat.Dense
	out.Add(a.value, b.value)
	return a.g.newVar("add", &out, []*Var{a, b}, func(gy *Var) []*Var {
		return []*Var{gy, gy}
	})
}

// Sub returns a-b. Both operands must have the same shape.
func Sub(a, b *Var) *Var {
	var out mat.Dense
	out.Sub(a.value, b.value)
	return a.g.newVar("sub", &out, []*Var{a, b}, func(gy *Var) []*Var {
		return []*Var{gy, Neg(gy)}
	})
}

// Mul returns the elementwise product of a and b.
func Mul(a, b *Var) *Var {
	var out mat.Dense
	out.MulElem(a.value, b.value)
	return a.g.newVar("mul", &out, []*Var{a, b}, func(gy *Var) []*Var {
		return []*Var{Mul(gy, b), Mul(gy, a)}
	})
}

// Div returns the elementwise quotient a/b.
func Div(a, b *Var) *Var {
	var out mat.Dense
	out.DivElem(a.value, b.value)
	return a.g.newVar("div", &out, []*Var{a, b}, func(gy *Var) []*Var {
		ga := Div(gy, b)
		gb := Neg(Div(Mul(gy, a), Mul(b, b)))
		return []*Var{ga, gb}
	})
}

// Scale returns c·a.
func Scale(a *Var, c float64) *Var {
	var out mat.Dense
	out.Scale(c, a.value)
	return a.g.newVar("scale", &out, []*Var{a}, func(gy *Var) []*Var {
		return []*Var{Scale(gy, c)}
	})
}

// Neg returns -a.
func Neg(a *Var) *Var {
	return Scale(a, -1)
}

// AddScalar returns a+c elementwise.
func AddScalar(a *Var, c float64) *Var {
	out := apply(a.value, func(x float64) float64 { return x + c })
	return a.g.newVar("addscalar", out, []*Var{a}, func(gy *Var) []*Var {
		return []*Var{gy}
	})
}

// AddRow adds the 1×c row vector b to every row of the r×c matrix a.
func AddRow(a, b *Var) *Var {
	r, c := a.Dims()
	if br, bc := b.Dims(); br != 1 || bc != c {
		panic(mat.ErrShape)
	}
	out := mat.NewDense(r, c, nil)
	brow := b.value.RawRowView(0)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] = a.value.At(i, j) + brow[j]
		}
	}
	return a.g.newVar("addrow", out, []*Var{a, b}, func(gy *Var) []*Var {
		return []*Var{gy, SumRows(gy)}
	})
}

// SumRows sums the rows of an r×c matrix into a 1×c row vector.
func SumRows(a *Var) *Var {
	r, c := a.Dims()
	out := mat.NewDense(1, c, nil)
	orow := out.RawRowView(0)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			orow[j] += a.value.At(i, j)
		}
	}
	return a.g.newVar("sumrows", out, []*Var{a}, func(gy *Var) []*Var {
		return []*Var{BroadcastRows(gy, r)}
	})
}

// SumCols sums the columns of an r×c matrix into an r×1 column vector.
func SumCols(a *Var) *Var {
	r, c := a.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, mat.Sum(a.value.RowView(i)))
	}
	return a.g.newVar("sumcols", out, []*Var{a}, func(gy *Var) []*Var {
		return []*Var{BroadcastCols(gy, c)}
	})
}

// BroadcastRows repeats the 1×c row vector a r times.
func BroadcastRows(a *Var, r int) *Var {
	_, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		out.SetRow(i, a.value.RawRowView(0))
	}
	return a.g.newVar("broadcastrows", out, []*Var{a}, func(gy *Var) []*Var {
		return []*Var{SumRows(gy)}
	})
}

// BroadcastCols repeats the r×1 column vector a c times.
func BroadcastCols(a *Var, c int) *Var {
	r, _ := a.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		x := a.value.At(i, 0)
		row := out.RawRowView(i)
		for j := range row {
			row[j] = x
		}
	}
	return a.g.newVar("broadcastcols", out, []*Var{a}, func(gy *Var) []*Var {
		return []*Var{SumCols(gy)}
	})
}

// Sum returns the sum of all elements of a as a 1×1 variable.
func Sum(a *Var) *Var {
	r, c := a.Dims()
	out := mat.NewDense(1, 1, []float64{mat.Sum(a.value)})
	return a.g.newVar("sum", out, []*Var{a}, func(gy *Var) []*Var {
		return []*Var{Broadcast(gy, r, c)}
	})
}

// Mean returns the mean of all elements of a as a 1×1 variable.
func Mean(a *Var) *Var {
	r, c := a.Dims()
	return Scale(Sum(a), 1/float64(r*c))
}

// Broadcast repeats the 1×1 variable a into an r×c matrix.
func Broadcast(a *Var, r, c int) *Var {
	out := fill(r, c, a.Scalar())
	return a.g.newVar("broadcast", out, []*Var{a}, func(gy *Var) []*Var {
		return []*Var{Sum(gy)}
	})
}

// Tanh applies tanh elementwise.
func Tanh(a *Var) *Var {
	var y *Var
	y = a.g.newVar("tanh", apply(a.value, math.Tanh), []*Var{a}, func(gy *Var) []*Var {
		// 1 - y²
		return []*Var{Mul(gy, AddScalar(Neg(Mul(y, y)), 1))}
	})
	return y
}

// Sigmoid applies the logistic function elementwise.
func Sigmoid(a *Var) *Var {
	var y *Var
	y = a.g.newVar("sigmoid", apply(a.value, sigmoid), []*Var{a}, func(gy *Var) []*Var {
		return []*Var{Mul(gy, Mul(y, AddScalar(Neg(y), 1)))}
	})
	return y
}

// Log applies the natural logarithm elementwise.
func Log(a *Var) *Var {
	return a.g.newVar("log", apply(a.value, math.Log), []*Var{a}, func(gy *Var) []*Var {
		return []*Var{Mul(gy, Recip(a))}
	})
}

// recipFloor is the smallest magnitude Recip divides by, the same bound
// PyTorch puts on p(1-p) in the cross-entropy backward.
const recipFloor = 1e-12

// Recip returns 1/x elementwise. Elements with |x| below 1e-12 are divided as
// ±1e-12, keeping their sign with 0 counted as positive, so the result is
// always finite.
func Recip(a *Var) *Var {
	var y *Var
	y = a.g.newVar("recip", apply(a.value, func(x float64) float64 {
		if math.Abs(x) < recipFloor {
			return 1 / math.Copysign(recipFloor, x)
		}
		return 1 / x
	}), []*Var{a}, func(gy *Var) []*Var {
		return []*Var{Neg(Mul(gy, Mul(y, y)))}
	})
	return y
}

// ClampMin replaces every element below lo with lo. Clamped elements do not
// propagate gradients.
func ClampMin(a *Var, lo float64) *Var {
	out := apply(a.value, func(x float64) float64 { return math.Max(x, lo) })
	return a.g.newVar("clampmin", out, []*Var{a}, func(gy *Var) []*Var {
		mask := a.g.Const(apply(a.value, func(x float64) float64 {
			if x > lo {
				return 1
			}
			return 0
		}))
		return []*Var{Mul(gy, mask)}
	})
}

// ClampMinThrough replaces every element below lo with lo like ClampMin, but
// passes gradients through clamped elements unchanged.
func ClampMinThrough(a *Var, lo float64) *Var {
	out := apply(a.value, func(x float64) float64 { return math.Max(x, lo) })
	return a.g.newVar("clampminthrough", out, []*Var{a}, func(gy *Var) []*Var {
		return []*Var{gy}
	})
}

// Abs applies |x| elementwise. The derivative at 0 is taken to be 0.
func Abs(a *Var) *Var {
	return a.g.newVar("abs", apply(a.value, math.Abs), []*Var{a}, func(gy *Var) []*Var {
		return []*Var{Mul(gy, a.g.Const(Sign(a.value)))}
	})
}

// Relu applies max(0, x) elementwise.
func Relu(a *Var) *Var {
	out := apply(a.value, func(x float64) float64 { return math.Max(x, 0) })
	return a.g.newVar("relu", out, []*Var{a}, func(gy *Var) []*Var {
		step := a.g.Const(apply(a.value, func(x float64) float64 {
			if x > 0 {
				return 1
			}
			return 0
		}))
		return []*Var{Mul(gy, step)}
	})
}

// Square returns a² elementwise.
func Square(a *Var) *Var {
	return Mul(a, a)
}

// Sign returns the elementwise sign of m, with sign(0) = 0.
func Sign(m *mat.Dense) *mat.Dense {
	return apply(m, func(x float64) float64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return 0
	})
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func apply(m *mat.Dense, fn func(float64) float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, x float64) float64 { return fn(x) }, m)
	return &out
}
