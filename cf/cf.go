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

// Package cf generates counterfactual explanations for a binary classifier.
//
// An Oracle bundles the three things the attack needs from a counterfactual
// algorithm: a distance between a point and its counterfactual, the objective
// the counterfactual minimizes and a generator. The generator descends the
// objective with Adam, starting at the explained point, until the classifier
// assigns the point to the target class.
package cf

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cfattack/cfattack/autodiff"
	"github.com/cfattack/cfattack/checks"
	"github.com/cfattack/cfattack/nn"
	log "github.com/golang/glog"
	"gonum.org/v1/gonum/mat"
)

// Oracle is a counterfactual algorithm.
type Oracle interface {
	// Name returns the name the oracle is resolved by.
	Name() string
	// Distance returns the n×1 per-row distances between the n×d a and b,
	// with features scaled by mad. A nil mad means unit scale.
	Distance(a, b *autodiff.Var, mad []float64) *autodiff.Var
	// Objective returns the 1×1 objective of the counterfactuals cf for the
	// explained points ref, summed over rows. lambda weighs the prediction
	// term and target is the class the counterfactuals must reach.
	Objective(m *nn.Model, cf, ref *autodiff.Var, lambda, target float64, mad []float64) *autodiff.Var
	// Generate computes counterfactuals for the points selected by req.
	Generate(req Request) (Result, error)
}

// Reinitializer is implemented by oracles whose objective depends on the
// classifier beyond its output, and must be refitted as the classifier changes.
type Reinitializer interface {
	Reinit(c *nn.Classifier, data *mat.Dense)
}

// Subsampler is implemented by oracles whose distance is expensive enough that
// training evaluates it on a random subsample of this many rows.
type Subsampler interface {
	DistanceBatchSize() int
}

// Snapshotter is implemented by oracles with state fitted during training, so
// that the state can be checkpointed.
type Snapshotter interface {
	Snapshot() []float64
	Restore(state []float64)
}

// Config holds the parameters shared by every oracle.
type Config struct {
	Lambda float64 // Weight of the prediction term. Defaults to 1.
	Target float64 // Target class, 0 or 1. Defaults to 1.
	// Per-feature scale of the distance. Nil means unit scale.
	MAD []float64
	// Adam learning rate of the counterfactual search. Defaults to 0.05.
	LearningRate float64
	MaxSteps     int // Defaults to 300.
	MinSteps     int // Defaults to 1.
	// Elastic net L1 weight of proto. Defaults to 0.1.
	Beta float64
	// Weight of the prototype term of proto. Defaults to 1.
	Theta float64
	// Rows per distance evaluation in training for proto. Defaults to 50.
	BatchSize int
}

// DefaultConfig returns the default oracle configuration.
func DefaultConfig() Config {
	return Config{
		Lambda:       1,
		Target:       1,
		LearningRate: 0.05,
		MaxSteps:     300,
		MinSteps:     1,
		Beta:         0.1,
		Theta:        1,
		BatchSize:    50,
	}
}

// Validate returns an error if a parameter is out of range.
func (c Config) Validate() error {
	if err := checks.CheckNonNegative("Lambda", c.Lambda); err != nil {
		return err
	}
	if err := checks.CheckBinary("Target", []float64{c.Target}); err != nil {
		return err
	}
	for i, m := range c.MAD {
		if err := checks.CheckLearningRate(fmt.Sprintf("MAD[%d]", i), m); err != nil {
			return err
		}
	}
	if err := checks.CheckLearningRate("LearningRate", c.LearningRate); err != nil {
		return err
	}
	if err := checks.CheckPositiveInt("MaxSteps", c.MaxSteps); err != nil {
		return err
	}
	if err := checks.CheckNonNegativeInt("MinSteps", c.MinSteps); err != nil {
		return err
	}
	if err := checks.CheckNonNegative("Beta", c.Beta); err != nil {
		return err
	}
	if err := checks.CheckNonNegative("Theta", c.Theta); err != nil {
		return err
	}
	return checks.CheckPositiveInt("BatchSize", c.BatchSize)
}

var constructors = map[string]func(Config) Oracle{
	"wachter": func(c Config) Oracle { return &Wachter{cfg: c} },
	"dice":    func(c Config) Oracle { return &DiCE{cfg: c} },
	"proto":   func(c Config) Oracle { return &Proto{cfg: c} },
}

// Names returns the names Resolve accepts, in sorted order.
func Names() []string {
	var names []string
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the oracle registered under name.
func Resolve(name string, cfg Config) (Oracle, error) {
	newOracle, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown counterfactual algorithm %q, must be one of %s", name, strings.Join(Names(), ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s configuration: %w", name, err)
	}
	return newOracle(cfg), nil
}

// ErrEmptyGroup is returned by Generate when a point must be sampled from a
// subgroup without negatively classified members.
var ErrEmptyGroup = errors.New("no negatively classified point in subgroup")

// counterfactuals descends the objective of o from every row of x at once.
// The objective is separable across rows, so each row follows its own path;
// a row's counterfactual is its first iterate classified as the target after
// MinSteps steps, or its last iterate if none is.
func counterfactuals(o Oracle, cfg Config, c *nn.Classifier, x *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	cur := mat.DenseCopyOf(x)
	out := mat.DenseCopyOf(x)
	done := make([]bool, n)
	remaining := n
	opt := nn.NewAdam(nn.DefaultAdamConfig(cfg.LearningRate))

	step := 0
	for ; step < cfg.MaxSteps && remaining > 0; step++ {
		g := autodiff.NewGraph()
		v := g.Param(cur)
		obj := o.Objective(c.BindFrozen(g), v, g.Const(x), cfg.Lambda, cfg.Target, cfg.MAD)
		grad := g.GradValues(obj, []*autodiff.Var{v})[0]
		opt.Step([]*mat.Dense{cur}, []*mat.Dense{grad})

		if step+1 < cfg.MinSteps {
			continue
		}
		for i, p := range c.Predict(cur) {
			if !done[i] && reached(p, cfg.Target) {
				out.SetRow(i, cur.RawRowView(i))
				done[i] = true
				remaining--
			}
		}
	}
	for i := range done {
		if !done[i] {
			out.SetRow(i, cur.RawRowView(i))
		}
	}
	if remaining > 0 {
		log.V(1).Infof("%s: %d of %d counterfactuals did not reach the target class in %d steps", o.Name(), remaining, n, step)
	}
	return out
}

// reached reports whether the prediction p is in the target class.
func reached(p, target float64) bool {
	if target == 1 {
		return p >= 0.5
	}
	return p < 0.5
}
