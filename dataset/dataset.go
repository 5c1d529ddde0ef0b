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

// Package dataset loads and prepares the tabular data the attack is trained
// on: a train/test split of feature rows with binary labels and a binary
// protected attribute, plus the indices of categorical features.
package dataset

import (
	"fmt"

	"github.com/cfattack/cfattack/checks"
	"github.com/cfattack/cfattack/rand"
	"gonum.org/v1/gonum/mat"
)

// Dataset is a train/test split. Row i of TrainX is labelled TrainY[i] and
// belongs to the protected group if TrainProtected[i] is 1; likewise for the
// test split. A Dataset is not modified after it is loaded.
type Dataset struct {
	TrainX         *mat.Dense
	TrainY         []float64
	TrainProtected []float64
	TestX          *mat.Dense
	TestY          []float64
	TestProtected  []float64
	// Categorical holds the indices of categorical feature columns.
	Categorical []int
}

// Dim returns the number of features.
func (ds *Dataset) Dim() int {
	_, c := ds.TrainX.Dims()
	return c
}

// Validate returns an error if the split is inconsistent: row counts that do
// not match label or protected-attribute counts, a test split with a different
// number of features, non-binary labels or invalid categorical indices.
func (ds *Dataset) Validate() error {
	if ds.TrainX == nil || ds.TestX == nil {
		return fmt.Errorf("dataset has no training or testing rows")
	}
	trainRows, trainDim := ds.TrainX.Dims()
	testRows, testDim := ds.TestX.Dims()
	if trainDim != testDim {
		return fmt.Errorf("training data has %d features, testing data has %d", trainDim, testDim)
	}
	if err := checks.CheckSameLength(trainRows,
		checks.Length{Name: "TrainY", N: len(ds.TrainY)},
		checks.Length{Name: "TrainProtected", N: len(ds.TrainProtected)},
	); err != nil {
		return err
	}
	if err := checks.CheckSameLength(testRows,
		checks.Length{Name: "TestY", N: len(ds.TestY)},
		checks.Length{Name: "TestProtected", N: len(ds.TestProtected)},
	); err != nil {
		return err
	}
	for _, col := range []struct {
		name string
		xs   []float64
	}{
		{"TrainY", ds.TrainY},
		{"TrainProtected", ds.TrainProtected},
		{"TestY", ds.TestY},
		{"TestProtected", ds.TestProtected},
	} {
		if err := checks.CheckBinary(col.name, col.xs); err != nil {
			return err
		}
	}
	return checks.CheckIndices("Categorical", ds.Categorical, trainDim)
}

// Rows returns a new matrix holding the rows of m listed in idx, in order.
// Indices may repeat.
func Rows(m mat.Matrix, idx []int) *mat.Dense {
	_, c := m.Dims()
	if len(idx) == 0 {
		return nil
	}
	out := mat.NewDense(len(idx), c, nil)
	for i, j := range idx {
		for k := 0; k < c; k++ {
			out.Set(i, k, m.At(j, k))
		}
	}
	return out
}

// Select returns the elements of xs listed in idx, in order.
func Select(xs []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = xs[j]
	}
	return out
}

// Split shuffles the rows of x with r and holds out testFraction of them as
// the test split. At least one row is kept on each side.
func Split(x *mat.Dense, y, protected []float64, categorical []int, testFraction float64, r *rand.Rand) (*Dataset, error) {
	n, _ := x.Dims()
	if err := checks.CheckSameLength(n, checks.Length{Name: "labels", N: len(y)}, checks.Length{Name: "protected", N: len(protected)}); err != nil {
		return nil, err
	}
	if err := checks.CheckFraction("testFraction", testFraction); err != nil {
		return nil, err
	}
	if n < 2 {
		return nil, fmt.Errorf("cannot split %d rows into training and testing data", n)
	}
	nTest := int(float64(n) * testFraction)
	if nTest < 1 {
		nTest = 1
	}
	perm := r.Perm(n)
	test, train := perm[:nTest], perm[nTest:]
	ds := &Dataset{
		TrainX:         Rows(x, train),
		TrainY:         Select(y, train),
		TrainProtected: Select(protected, train),
		TestX:          Rows(x, test),
		TestY:          Select(y, test),
		TestProtected:  Select(protected, test),
		Categorical:    append([]int(nil), categorical...),
	}
	return ds, ds.Validate()
}
