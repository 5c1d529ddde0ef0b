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
	"github.com/cfattack/cfattack/autodiff"
	"github.com/cfattack/cfattack/nn"
)

// DiCE finds counterfactuals minimizing the hinge loss of the logit towards
// the target class plus the mean MAD-scaled absolute feature change:
// λ·max(0, 1 - z·logit(x')) + mean|x - x'|/mad, with z = +1 for target 1 and
// -1 for target 0.
type DiCE struct {
	cfg Config
}

// Name returns "dice".
func (d *DiCE) Name() string { return "dice" }

// Distance returns the mean MAD-scaled absolute difference of every row.
func (d *DiCE) Distance(a, b *autodiff.Var, mad []float64) *autodiff.Var {
	return meanAbs(a, b, mad)
}

// Objective implements Oracle.
func (d *DiCE) Objective(m *nn.Model, cf, ref *autodiff.Var, lambda, target float64, mad []float64) *autodiff.Var {
	z := 2*target - 1
	hinge := autodiff.Relu(autodiff.AddScalar(autodiff.Scale(m.Logit(cf), -z), 1))
	return autodiff.Add(autodiff.Scale(autodiff.Sum(hinge), lambda), autodiff.Sum(d.Distance(ref, cf, mad)))
}

// Generate implements Oracle.
func (d *DiCE) Generate(req Request) (Result, error) {
	return generate(d, d.cfg, req)
}
