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

package train

import (
	"github.com/cfattack/cfattack/nn"
	"github.com/cfattack/cfattack/noise"
	"github.com/cfattack/cfattack/rand"
)

// State is the mutable state of a run: the classifier, the perturbation key,
// their stage 1 optimizers, the random source and the next stage 1 iteration.
//
// Not thread-safe.
type State struct {
	Model    *nn.Classifier
	Key      *noise.Key
	ModelOpt *nn.Adam
	KeyOpt   *nn.Adam
	Rand     *rand.Rand
	// Iteration is the index of the next stage 1 iteration.
	Iteration int
}

// NewState returns the initial state of a run over dim features. The
// classifier is initialized from the seed of cfg; the key starts at zero.
func NewState(cfg Config, dim int, categorical []int) *State {
	r := rand.New(cfg.Seed)
	return &State{
		Model:    nn.NewClassifier(dim, cfg.Hidden, r),
		Key:      noise.NewKey(dim, categorical),
		ModelOpt: nn.NewAdam(nn.DefaultAdamConfig(cfg.ModelLR)),
		KeyOpt:   nn.NewAdam(nn.DefaultAdamConfig(cfg.KeyLR)),
		Rand:     r,
	}
}
