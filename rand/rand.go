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

// Package rand provides the seeded random source shared by every stochastic
// step of a run: weight initialization, counterfactual sampling and distance
// subsampling.
//
// A Rand counts the values it has drawn so that its position can be stored in
// a checkpoint and restored by replaying the seed.
package rand

import (
	"math"
	mathrand "math/rand"

	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Rand is a deterministic random number generator. Not thread-safe.
type Rand struct {
	src  *countingSource
	r    *mathrand.Rand
	dist distSource
}

// countingSource wraps a math/rand source and records how many values were
// drawn from it.
type countingSource struct {
	seed  int64
	draws uint64
	src   mathrand.Source
}

func (cs *countingSource) Int63() int64 {
	cs.draws++
	return cs.src.Int63()
}

func (cs *countingSource) Seed(seed int64) {
	cs.seed = seed
	cs.draws = 0
	cs.src.Seed(seed)
}

// distSource exposes a countingSource as the source type gonum distributions
// draw from. Every Uint64 consumes two counted draws.
type distSource struct {
	cs *countingSource
}

func (s distSource) Uint64() uint64 {
	return uint64(s.cs.Int63())<<1 ^ uint64(s.cs.Int63())
}

func (s distSource) Seed(seed uint64) {
	s.cs.Seed(int64(seed))
}

var _ exprand.Source = distSource{}

// New returns a Rand seeded with seed.
func New(seed int64) *Rand {
	cs := &countingSource{seed: seed, src: mathrand.NewSource(seed)}
	return &Rand{src: cs, r: mathrand.New(cs), dist: distSource{cs}}
}

// Restore returns a Rand seeded with seed and advanced by draws values, i.e.
// in the same position as the Rand whose Position returned (seed, draws).
func Restore(seed int64, draws uint64) *Rand {
	r := New(seed)
	for i := uint64(0); i < draws; i++ {
		r.src.src.Int63()
	}
	r.src.draws = draws
	return r
}

// Position returns the seed and the number of values drawn so far.
func (r *Rand) Position() (seed int64, draws uint64) {
	return r.src.seed, r.src.draws
}

// Intn returns an integer from the set {0,...,n-1} uniformly at random.
// The value of n must be positive.
func (r *Rand) Intn(n int) int {
	return r.r.Intn(n)
}

// Choice returns size indices drawn uniformly with replacement from {0,...,n-1}.
func (r *Rand) Choice(n, size int) []int {
	out := make([]int, size)
	for i := range out {
		out[i] = r.r.Intn(n)
	}
	return out
}

// Perm returns a pseudo-random permutation of {0,...,n-1}.
func (r *Rand) Perm(n int) []int {
	return r.r.Perm(n)
}

// Uniform returns a float64 from the interval [lo, hi).
func (r *Rand) Uniform(lo, hi float64) float64 {
	return distuv.Uniform{Min: lo, Max: hi, Src: r.dist}.Rand()
}

// Normal returns a normally distributed float with mean 0 and standard deviation 1.
func (r *Rand) Normal() float64 {
	return distuv.Normal{Mu: 0, Sigma: 1, Src: r.dist}.Rand()
}

// Boolean returns true with probability p.
func (r *Rand) Boolean(p float64) bool {
	return r.r.Float64() < p
}

// Bound returns the symmetric bound 1/sqrt(fanIn) used for uniform weight
// initialization of a layer with fanIn inputs.
func Bound(fanIn int) float64 {
	return 1 / math.Sqrt(float64(fanIn))
}
