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
	"context"
	"os"

	"github.com/cfattack/cfattack/cf"
	"github.com/cfattack/cfattack/dataset"
	"github.com/cfattack/cfattack/metrics"
	log "github.com/golang/glog"
	"github.com/pkg/errors"
)

// RunOptions holds the optional collaborators of Run.
type RunOptions struct {
	// Destination of the training scalars. Defaults to metrics.Discard.
	Logger metrics.Logger
	// Checkpoint file. If it exists, stage 1 resumes from it; it is written
	// after stage 1 and when stage 1 is cancelled. Empty disables
	// checkpointing.
	Checkpoint string
}

// Report is the outcome of Run.
type Report struct {
	Stage1 Stage1Report
	Stage2 Stage2Report
	// State holds the final model and key.
	State *State
}

// Run standardizes raw, fits the MAD scale on its training split, resolves the
// counterfactual oracle named by cfg and runs stage 1 then, if RunStage2 is
// set, stage 2.
func Run(ctx context.Context, raw *dataset.Dataset, cfg Config, opts RunOptions) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, errors.Wrap(err, "invalid training configuration")
	}
	if err := raw.Validate(); err != nil {
		return Report{}, errors.Wrap(err, "invalid dataset")
	}
	ds := dataset.Standardize(raw)
	mad := dataset.MAD(ds.TrainX)
	oracle, err := cf.Resolve(cfg.CFName, cfg.OracleConfig(mad))
	if err != nil {
		return Report{}, err
	}
	t, err := NewTrainer(cfg, ds, mad, oracle, opts.Logger)
	if err != nil {
		return Report{}, err
	}

	s, err := t.initialState(opts.Checkpoint)
	if err != nil {
		return Report{}, err
	}
	rep := Report{State: s}
	rep.Stage1, err = t.Stage1(ctx, s)
	if opts.Checkpoint != "" && (err == nil || ctx.Err() != nil) {
		if cerr := t.SaveCheckpointFile(opts.Checkpoint, s); cerr != nil {
			log.Warningf("Couldn't save checkpoint: %v", cerr)
		}
	}
	if err != nil {
		return rep, errors.Wrapf(err, "stage 1 stopped at iteration %d", s.Iteration)
	}
	if !cfg.RunStage2 {
		return rep, nil
	}
	rep.Stage2, err = t.Stage2(ctx, s)
	if err != nil {
		return rep, errors.Wrap(err, "stage 2")
	}
	return rep, nil
}

// initialState resumes from the checkpoint at path if there is one.
func (t *Trainer) initialState(path string) (*State, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			s, err := t.LoadCheckpointFile(path)
			if err != nil {
				return nil, err
			}
			log.Infof("Resuming stage 1 at iteration %d from %s", s.Iteration, path)
			return s, nil
		}
	}
	return NewState(t.cfg, t.ds.Dim(), t.ds.Categorical), nil
}
