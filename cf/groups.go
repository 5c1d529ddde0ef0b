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
	"github.com/cfattack/cfattack/dataset"
	"github.com/cfattack/cfattack/nn"
	"gonum.org/v1/gonum/mat"
)

// Groups returns the indices of the negatively classified rows of the
// protected group and of the non-protected group, given positive-class
// probabilities and the protected attribute.
func Groups(preds, protected []float64) (pro, notPro []int) {
	for i, p := range preds {
		if p >= 0.5 {
			continue
		}
		if protected[i] == 1 {
			pro = append(pro, i)
		} else {
			notPro = append(notPro, i)
		}
	}
	return pro, notPro
}

// NegativeNotProtected returns the indices of the rows of x that are not
// protected and that c classifies negatively.
func NegativeNotProtected(c *nn.Classifier, x *mat.Dense, protected []float64) []int {
	_, notPro := Groups(c.Predict(x), protected)
	return notPro
}

// SplitByClassification splits the rows of x by the class c assigns them.
// pos or neg is nil when no row is in that class.
func SplitByClassification(c *nn.Classifier, x *mat.Dense) (pos, neg *mat.Dense, posIdx, negIdx []int) {
	for i, p := range c.Predict(x) {
		if p >= 0.5 {
			posIdx = append(posIdx, i)
		} else {
			negIdx = append(negIdx, i)
		}
	}
	return dataset.Rows(x, posIdx), dataset.Rows(x, negIdx), posIdx, negIdx
}
