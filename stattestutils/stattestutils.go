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

// Package stattestutils provides statistical and model fixtures for tests.
//
// This package is not optimized for performance or speed and is only intended
// to be used in tests.
package stattestutils

import (
	"math"

	"github.com/cfattack/cfattack/nn"
	"github.com/cfattack/cfattack/rand"
	"gonum.org/v1/gonum/floats"
)

// SampleMean returns the mean of a slice, or 0 for an empty slice.
func SampleMean(values []float64) float64 {
	return floats.Sum(values) / math.Max(1, float64(len(values)))
}

// SampleVariance returns the population variance of a slice: the sum of
// squares of the distances to the mean, divided by the number of values.
func SampleVariance(values []float64) float64 {
	mean := SampleMean(values)
	var sumOfSquares float64
	for _, v := range values {
		sumOfSquares += (v - mean) * (v - mean)
	}
	return sumOfSquares / math.Max(1, float64(len(values)))
}

// ThresholdClassifier returns a classifier over dim features whose logit is
// scale·tanh(tanh(tanh(x[feature]))): it predicts the positive class exactly
// when x[feature] >= 0 and ignores every other feature.
func ThresholdClassifier(dim, feature int, scale float64) *nn.Classifier {
	c := nn.NewClassifier(dim, 2, rand.New(0))
	ps := c.Parameters()
	for _, p := range ps {
		p.Zero()
	}
	// W1, W2, W3 pass the feature through the first hidden unit.
	ps[0].Set(feature, 0, 1)
	ps[2].Set(0, 0, 1)
	ps[4].Set(0, 0, 1)
	ps[6].Set(0, 0, scale)
	return c
}

// ConstantClassifier returns a classifier over dim features that predicts
// sigmoid(logit) for every input.
func ConstantClassifier(dim int, logit float64) *nn.Classifier {
	c := nn.NewClassifier(dim, 2, rand.New(0))
	ps := c.Parameters()
	for _, p := range ps {
		p.Zero()
	}
	ps[7].Set(0, 0, logit)
	return c
}
