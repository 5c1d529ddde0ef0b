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

// Package train runs the two stage attack that makes counterfactual
// explanations unfair: stage 1 trains a perturbation key jointly with the
// classifier, stage 2 fine-tunes the classifier with a second-order correction
// that widens the counterfactual cost gap between subgroups.
package train

import (
	"fmt"

	"github.com/cfattack/cfattack/cf"
	"github.com/cfattack/cfattack/checks"
	"github.com/cfattack/cfattack/dataset"
	"github.com/cfattack/cfattack/metrics"
	"github.com/sbwhitecap/tqdm"
	"github.com/sbwhitecap/tqdm/iterators"
)

// Trainer holds the immutable inputs of a run. The mutable part lives in a
// State, so one Trainer can drive several states.
type Trainer struct {
	cfg    Config
	ds     *dataset.Dataset
	mad    []float64
	oracle cf.Oracle
	logger metrics.Logger
}

// NewTrainer returns a Trainer over the standardized dataset ds. mad is the
// per-feature distance scale; a nil logger discards scalars.
func NewTrainer(cfg Config, ds *dataset.Dataset, mad []float64, oracle cf.Oracle, logger metrics.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid training configuration: %w", err)
	}
	if ds == nil || oracle == nil {
		return nil, fmt.Errorf("NewTrainer needs a dataset and an oracle")
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if mad != nil {
		if err := checks.CheckSameLength(ds.Dim(), checks.Length{Name: "mad", N: len(mad)}); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = metrics.Discard
	}
	return &Trainer{cfg: cfg, ds: ds, mad: mad, oracle: oracle, logger: logger}, nil
}

// Config returns the configuration of t.
func (t *Trainer) Config() Config {
	return t.cfg
}

// Oracle returns the counterfactual oracle of t.
func (t *Trainer) Oracle() cf.Oracle {
	return t.oracle
}

// loop calls fn for every i in [from, to), stopping at the first error. With
// Progress set the loop renders a progress bar.
func (t *Trainer) loop(desc string, from, to int, fn func(i int) error) error {
	if from >= to {
		return nil
	}
	if !t.cfg.Progress {
		for i := from; i < to; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	var err error
	if perr := tqdm.With(iterators.Interval(from, to), desc, func(c interface{}) (brk bool) {
		err = fn(c.(int))
		return err != nil
	}); perr != nil && err == nil {
		err = perr
	}
	return err
}
