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

package cf

import (
	"fmt"

	"github.com/cfattack/cfattack/checks"
	"github.com/cfattack/cfattack/dataset"
	"github.com/cfattack/cfattack/nn"
	"github.com/cfattack/cfattack/rand"
	"gonum.org/v1/gonum/mat"
)

// Request selects the points to explain.
type Request struct {
	Data  *mat.Dense
	Model *nn.Classifier
	// Protected attribute of every row of Data. If nil, every row of Data is
	// explained and the subgroup fields of the Result are nil.
	Protected []float64
	// Population the oracle may refit on. Defaults to Data.
	AllData *mat.Dense
	// Whether to explain a single random negatively classified point of each
	// subgroup instead of all of them. Requires Rand.
	Sample bool
	Rand   *rand.Rand
}

// Result holds the explained points and their counterfactuals. The first
// rows of CFs explain NegPro, the remaining rows explain NegNotPro. NegPro or
// NegNotPro is nil when its subgroup has no negatively classified point.
type Result struct {
	CFs       *mat.Dense
	NegPro    *mat.Dense
	NegNotPro *mat.Dense
}

// ProtectedCFs returns the counterfactuals of NegPro.
func (r Result) ProtectedCFs() *mat.Dense {
	n := rows(r.NegPro)
	if n == 0 {
		return nil
	}
	return mat.DenseCopyOf(r.CFs.Slice(0, n, 0, cols(r.CFs)))
}

// NotProtectedCFs returns the counterfactuals of NegNotPro.
func (r Result) NotProtectedCFs() *mat.Dense {
	n, m := rows(r.NegPro), rows(r.NegNotPro)
	if m == 0 {
		return nil
	}
	return mat.DenseCopyOf(r.CFs.Slice(n, n+m, 0, cols(r.CFs)))
}

func generate(o Oracle, cfg Config, req Request) (Result, error) {
	if req.Data == nil || req.Model == nil {
		return Result{}, fmt.Errorf("%s: request needs data and a model", o.Name())
	}
	n, d := req.Data.Dims()
	if d != req.Model.InputDim() {
		return Result{}, fmt.Errorf("%s: data has %d features, model expects %d", o.Name(), d, req.Model.InputDim())
	}
	if req.Protected == nil {
		return Result{CFs: counterfactuals(o, cfg, req.Model, req.Data)}, nil
	}
	if err := checks.CheckSameLength(n, checks.Length{Name: "Protected", N: len(req.Protected)}); err != nil {
		return Result{}, fmt.Errorf("%s: %w", o.Name(), err)
	}

	pro, notPro := Groups(req.Model.Predict(req.Data), req.Protected)
	if req.Sample {
		if len(pro) == 0 || len(notPro) == 0 {
			return Result{}, fmt.Errorf("%s: %w (protected %d, not protected %d)", o.Name(), ErrEmptyGroup, len(pro), len(notPro))
		}
		if req.Rand == nil {
			return Result{}, fmt.Errorf("%s: sampling needs a random source", o.Name())
		}
		pro = []int{pro[req.Rand.Intn(len(pro))]}
		notPro = []int{notPro[req.Rand.Intn(len(notPro))]}
	}
	res := Result{
		NegPro:    dataset.Rows(req.Data, pro),
		NegNotPro: dataset.Rows(req.Data, notPro),
	}
	all := append(append([]int(nil), pro...), notPro...)
	if len(all) > 0 {
		res.CFs = counterfactuals(o, cfg, req.Model, dataset.Rows(req.Data, all))
	}
	return res, nil
}

func rows(m *mat.Dense) int {
	if m == nil {
		return 0
	}
	r, _ := m.Dims()
	return r
}

func cols(m *mat.Dense) int {
	_, c := m.Dims()
	return c
}
