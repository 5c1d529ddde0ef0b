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

package assess

import (
	"math"
	"testing"

	"github.com/cfattack/cfattack/cf"
	"github.com/cfattack/cfattack/dataset"
	"github.com/cfattack/cfattack/metrics"
	"github.com/cfattack/cfattack/noise"
	"github.com/cfattack/cfattack/stattestutils"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/mat"
)

// testDataset has protected negatives far from the decision boundary of the
// threshold classifier on feature 0 and non-protected negatives close to it.
func testDataset() *dataset.Dataset {
	return &dataset.Dataset{
		TrainX: mat.NewDense(6, 2, []float64{
			-0.9, 0,
			-0.8, 1,
			0.5, 0,
			-0.1, 0,
			-0.2, 1,
			0.7, 0,
		}),
		TrainY:         []float64{0, 0, 1, 0, 1, 1},
		TrainProtected: []float64{1, 1, 1, 0, 0, 0},
		TestX: mat.NewDense(4, 2, []float64{
			-0.7, 0,
			-0.3, 0,
			-0.4, 1,
			0.2, 0,
		}),
		TestY:         []float64{0, 0, 0, 1},
		TestProtected: []float64{1, 0, 0, 0},
	}
}

func testOracle(t *testing.T) cf.Oracle {
	cfg := cf.DefaultConfig()
	cfg.Lambda = 100
	cfg.LearningRate = 0.01
	cfg.MaxSteps = 1000
	o, err := cf.Resolve("wachter", cfg)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return o
}

func TestAssess(t *testing.T) {
	c := stattestutils.ThresholdClassifier(2, 0, 5)
	key := noise.NewKey(2, nil)
	key.Set([]float64{1, 0})
	logger := metrics.NewMemory()
	s, err := Assess(Input{Step: 3, Model: c, Data: testDataset(), Oracle: testOracle(t), Key: key, Logger: logger})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}

	// Train: rows 4 (label 1, predicted 0) is the only mistake.
	if !cmp.Equal(s.TrainAcc, 5.0/6, cmpopts.EquateApprox(0, 1e-12)) {
		t.Errorf("TrainAcc: got %f, want 5/6", s.TrainAcc)
	}
	if s.TestAcc != 1 {
		t.Errorf("TestAcc: got %f, want 1", s.TestAcc)
	}
	if s.FlipSuccess != 1 {
		t.Errorf("FlipSuccess: got %f, want 1", s.FlipSuccess)
	}
	// Counterfactuals stop right past the boundary, so costs are close to
	// the mean distance of each group to it: 0.85 and 0.15.
	if !cmp.Equal(s.ProtectedCost, 0.85, cmpopts.EquateApprox(0, 0.05)) {
		t.Errorf("ProtectedCost: got %f, want about 0.85", s.ProtectedCost)
	}
	if !cmp.Equal(s.NotProtectedCost, 0.15, cmpopts.EquateApprox(0, 0.05)) {
		t.Errorf("NotProtectedCost: got %f, want about 0.15", s.NotProtectedCost)
	}
	if s.TrainingDelta <= 0 || s.TestingDelta <= 0 {
		t.Errorf("deltas: got training %f testing %f, want both positive", s.TrainingDelta, s.TestingDelta)
	}
	if math.IsNaN(s.NoisedCost) {
		t.Errorf("NoisedCost: got NaN")
	}
	if got, ok := logger.Last("Assess/training_delta"); !ok || got != s.TrainingDelta {
		t.Errorf("logged training delta: got (%f, %t), want %f", got, ok, s.TrainingDelta)
	}
	if steps, _ := logger.Series("Assess/flip_success"); len(steps) != 1 || steps[0] != 3 {
		t.Errorf("flip success logged at steps %v, want [3]", steps)
	}
}

func TestAssessEmptyGroup(t *testing.T) {
	c := stattestutils.ThresholdClassifier(2, 0, 5)
	ds := testDataset()
	ds.TrainProtected = []float64{0, 0, 0, 0, 0, 0}
	s, err := Assess(Input{Model: c, Data: ds, Oracle: testOracle(t), Key: noise.NewKey(2, nil)})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if !math.IsNaN(s.ProtectedCost) || !math.IsNaN(s.TrainingDelta) {
		t.Errorf("Assess with no protected rows: got cost %f delta %f, want NaN", s.ProtectedCost, s.TrainingDelta)
	}
}

func TestAssessMissingInput(t *testing.T) {
	if _, err := Assess(Input{}); err == nil {
		t.Errorf("Assess without input: got no error")
	}
}

func TestFlipSuccess(t *testing.T) {
	c := stattestutils.ThresholdClassifier(2, 0, 5)
	ds := testDataset()
	for _, tc := range []struct {
		desc string
		key  []float64
		want float64
	}{
		{"zero key", []float64{0, 0}, 0},
		{"key flipping the closest point", []float64{0.35, 0}, 0.5},
		{"key flipping both points", []float64{0.5, 0}, 1},
		{"key on an ignored feature", []float64{0, 5}, 0},
	} {
		key := noise.NewKey(2, nil)
		key.Set(tc.key)
		if got := FlipSuccess(c, key, ds.TestX, ds.TestProtected); got != tc.want {
			t.Errorf("FlipSuccess with %s: got %f, want %f", tc.desc, got, tc.want)
		}
	}
	// No non-protected negative.
	if got := FlipSuccess(c, noise.NewKey(2, nil), ds.TestX, []float64{1, 1, 1, 1}); !math.IsNaN(got) {
		t.Errorf("FlipSuccess without candidates: got %f, want NaN", got)
	}
}
