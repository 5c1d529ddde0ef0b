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

// Package assess measures how unequal counterfactual explanations are between
// the protected and the non-protected group, and how well the perturbation key
// flips the decisions of the non-protected group.
package assess

import (
	"fmt"

	"github.com/cfattack/cfattack/aggregate"
	"github.com/cfattack/cfattack/cf"
	"github.com/cfattack/cfattack/dataset"
	"github.com/cfattack/cfattack/metrics"
	"github.com/cfattack/cfattack/nn"
	"github.com/cfattack/cfattack/noise"
	"github.com/cfattack/cfattack/rand"
	log "github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Input contains what Assess evaluates.
type Input struct {
	Step   int // Step the scalars are logged at.
	Model  *nn.Classifier
	Data   *dataset.Dataset
	Oracle cf.Oracle
	Key    *noise.Key
	// Destination of the summary scalars. Defaults to metrics.Discard.
	Logger metrics.Logger
	// Maximum number of points explained per group and split. Larger groups
	// are subsampled with Rand. Defaults to 20.
	MaxPerGroup int
	Rand        *rand.Rand
}

// Summary is the outcome of an assessment. Costs are mean L1 distances
// between negatively classified points and their counterfactuals; a cost over
// an empty group is NaN.
type Summary struct {
	// ProtectedCost minus NotProtectedCost on the training split.
	TrainingDelta float64
	// Same on the testing split.
	TestingDelta     float64
	ProtectedCost    float64
	NotProtectedCost float64
	// Cost of the non-protected training negatives when the counterfactual
	// is searched from the perturbed point.
	NoisedCost float64
	// Fraction of non-protected testing negatives that the key flips.
	FlipSuccess       float64
	TrainAcc, TestAcc float64
}

// Assess computes the Summary of the current model and key.
func Assess(in Input) (Summary, error) {
	if in.Model == nil || in.Data == nil || in.Oracle == nil || in.Key == nil {
		return Summary{}, fmt.Errorf("assessment needs a model, data, an oracle and a key")
	}
	if in.Logger == nil {
		in.Logger = metrics.Discard
	}
	if in.MaxPerGroup == 0 {
		in.MaxPerGroup = 20
	}
	if in.Rand == nil {
		in.Rand = rand.New(0)
	}
	ds := in.Data
	trainPreds, testPreds := in.Model.Predict(ds.TrainX), in.Model.Predict(ds.TestX)
	s := Summary{
		TrainAcc:    nn.Accuracy(trainPreds, ds.TrainY),
		TestAcc:     nn.Accuracy(testPreds, ds.TestY),
		FlipSuccess: FlipSuccess(in.Model, in.Key, ds.TestX, ds.TestProtected),
	}

	pro, notPro := cf.Groups(trainPreds, ds.TrainProtected)
	pro, notPro = in.cap(pro), in.cap(notPro)
	var err error
	if s.ProtectedCost, err = in.cost(ds.TrainX, pro, false); err != nil {
		return Summary{}, err
	}
	if s.NotProtectedCost, err = in.cost(ds.TrainX, notPro, false); err != nil {
		return Summary{}, err
	}
	if s.NoisedCost, err = in.cost(ds.TrainX, notPro, true); err != nil {
		return Summary{}, err
	}
	s.TrainingDelta = s.ProtectedCost - s.NotProtectedCost

	tePro, teNotPro := cf.Groups(testPreds, ds.TestProtected)
	teProCost, err := in.cost(ds.TestX, in.cap(tePro), false)
	if err != nil {
		return Summary{}, err
	}
	teNotProCost, err := in.cost(ds.TestX, in.cap(teNotPro), false)
	if err != nil {
		return Summary{}, err
	}
	s.TestingDelta = teProCost - teNotProCost

	s.log(in.Logger, in.Step)
	log.V(1).Infof("assessment at step %d: %+v", in.Step, s)
	return s, nil
}

func (s Summary) log(l metrics.Logger, step int) {
	l.AddScalar("Assess/training_delta", s.TrainingDelta, step)
	l.AddScalar("Assess/testing_delta", s.TestingDelta, step)
	l.AddScalar("Assess/protected_cost", s.ProtectedCost, step)
	l.AddScalar("Assess/not_protected_cost", s.NotProtectedCost, step)
	l.AddScalar("Assess/noised_cost", s.NoisedCost, step)
	l.AddScalar("Assess/flip_success", s.FlipSuccess, step)
}

// cap returns at most MaxPerGroup of idx, sampled without replacement.
func (in Input) cap(idx []int) []int {
	if len(idx) <= in.MaxPerGroup {
		return idx
	}
	perm := in.Rand.Perm(len(idx))[:in.MaxPerGroup]
	out := make([]int, len(perm))
	for i, j := range perm {
		out[i] = idx[j]
	}
	return out
}

// cost returns the mean L1 distance between the rows idx of x and their
// counterfactuals, searched from the perturbed rows if noised is set.
func (in Input) cost(x *mat.Dense, idx []int, noised bool) (float64, error) {
	mean := aggregate.NewMean()
	if len(idx) == 0 {
		return mean.Result()
	}
	points := dataset.Rows(x, idx)
	query := points
	if noised {
		query = in.Key.Apply(points)
	}
	res, err := in.Oracle.Generate(cf.Request{Data: query, Model: in.Model, AllData: in.Data.TrainX})
	if err != nil {
		return 0, fmt.Errorf("couldn't generate counterfactuals: %w", err)
	}
	for i := range idx {
		if err := mean.Add(floats.Distance(points.RawRowView(i), res.CFs.RawRowView(i), 1)); err != nil {
			return 0, err
		}
	}
	return mean.Result()
}

// FlipSuccess returns the fraction of the non-protected rows of x that c
// classifies negatively but positively once the key is added. It is NaN if
// there is no such negative row.
func FlipSuccess(c *nn.Classifier, key *noise.Key, x *mat.Dense, protected []float64) float64 {
	idx := cf.NegativeNotProtected(c, x, protected)
	mean := aggregate.NewMean()
	if len(idx) > 0 {
		for _, p := range c.Predict(key.Apply(dataset.Rows(x, idx))) {
			if p >= 0.5 {
				mean.Add(1)
			} else {
				mean.Add(0)
			}
		}
	}
	res, _ := mean.Result()
	return res
}
