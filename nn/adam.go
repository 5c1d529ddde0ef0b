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
	"math"

	"github.com/cfattack/cfattack/checks"
	"gonum.org/v1/gonum/mat"
)

// AdamConfig holds the hyperparameters of an Adam optimizer.
type AdamConfig struct {
	LearningRate float64
	Beta1        float64 // Momentum decay (typically 0.9)
	Beta2        float64 // Variance decay (typically 0.999)
	Epsilon      float64
}

// DefaultAdamConfig returns the default Adam configuration for the given
// learning rate.
func DefaultAdamConfig(lr float64) AdamConfig {
	return AdamConfig{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

// Validate returns an error if a hyperparameter is out of range.
func (c AdamConfig) Validate() error {
	if err := checks.CheckLearningRate("LearningRate", c.LearningRate); err != nil {
		return err
	}
	if err := checks.CheckBeta("Beta1", c.Beta1); err != nil {
		return err
	}
	if err := checks.CheckBeta("Beta2", c.Beta2); err != nil {
		return err
	}
	return checks.CheckLearningRate("Epsilon", c.Epsilon)
}

// Adam updates a fixed list of tensors in place. Moment buffers are allocated
// on the first step from the shapes of the tensors.
//
// Not thread-safe.
type Adam struct {
	cfg  AdamConfig
	m, v []*mat.Dense
	step int
}

// NewAdam returns an Adam optimizer.
func NewAdam(cfg AdamConfig) *Adam {
	return &Adam{cfg: cfg}
}

// Config returns the hyperparameters of a.
func (a *Adam) Config() AdamConfig {
	return a.cfg
}

// Steps returns the number of steps taken.
func (a *Adam) Steps() int {
	return a.step
}

// Step applies one bias-corrected Adam update to params using grads.
func (a *Adam) Step(params, grads []*mat.Dense) {
	if len(params) != len(grads) {
		panic(fmt.Sprintf("nn: Adam step got %d params and %d grads", len(params), len(grads)))
	}
	if a.m == nil {
		for _, p := range params {
			r, c := p.Dims()
			a.m = append(a.m, mat.NewDense(r, c, nil))
			a.v = append(a.v, mat.NewDense(r, c, nil))
		}
	}
	if len(a.m) != len(params) {
		panic(fmt.Sprintf("nn: Adam was created for %d tensors, got %d", len(a.m), len(params)))
	}
	a.step++
	b1, b2 := a.cfg.Beta1, a.cfg.Beta2
	stepSize := a.cfg.LearningRate / (1 - math.Pow(b1, float64(a.step)))
	bc2 := math.Sqrt(1 - math.Pow(b2, float64(a.step)))

	for i, p := range params {
		pd := p.RawMatrix().Data
		gd := mat.DenseCopyOf(grads[i]).RawMatrix().Data
		md, vd := a.m[i].RawMatrix().Data, a.v[i].RawMatrix().Data
		if len(gd) != len(pd) {
			panic(fmt.Sprintf("nn: Adam tensor %d has %d elements, gradient has %d", i, len(pd), len(gd)))
		}
		for j, g := range gd {
			md[j] = b1*md[j] + (1-b1)*g
			vd[j] = b2*vd[j] + (1-b2)*g*g
			pd[j] -= stepSize * md[j] / (math.Sqrt(vd[j])/bc2 + a.cfg.Epsilon)
		}
	}
}

// AdamState is the serializable state of an Adam optimizer.
type AdamState struct {
	Config AdamConfig
	Step   int
	M, V   [][]float64
	Shapes [][2]int
}

// State returns a copy of the optimizer state.
func (a *Adam) State() AdamState {
	s := AdamState{Config: a.cfg, Step: a.step}
	for i := range a.m {
		r, c := a.m[i].Dims()
		s.Shapes = append(s.Shapes, [2]int{r, c})
		s.M = append(s.M, append([]float64(nil), a.m[i].RawMatrix().Data...))
		s.V = append(s.V, append([]float64(nil), a.v[i].RawMatrix().Data...))
	}
	return s
}

// AdamFromState restores an optimizer from s.
func AdamFromState(s AdamState) (*Adam, error) {
	if len(s.M) != len(s.Shapes) || len(s.V) != len(s.Shapes) {
		return nil, fmt.Errorf("AdamFromState: %d shapes, %d first moments, %d second moments", len(s.Shapes), len(s.M), len(s.V))
	}
	a := &Adam{cfg: s.Config, step: s.Step}
	for i, sh := range s.Shapes {
		if len(s.M[i]) != sh[0]*sh[1] || len(s.V[i]) != sh[0]*sh[1] {
			return nil, fmt.Errorf("AdamFromState: tensor %d has wrong moment sizes", i)
		}
		a.m = append(a.m, mat.NewDense(sh[0], sh[1], append([]float64(nil), s.M[i]...)))
		a.v = append(a.v, mat.NewDense(sh[0], sh[1], append([]float64(nil), s.V[i]...)))
	}
	return a, nil
}
