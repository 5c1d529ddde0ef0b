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
	"encoding/gob"
	"io"
	"os"

	"github.com/cfattack/cfattack/cf"
	"github.com/cfattack/cfattack/nn"
	"github.com/cfattack/cfattack/noise"
	"github.com/cfattack/cfattack/rand"
	log "github.com/golang/glog"
	"github.com/pkg/errors"
)

// encodableState can be encoded by the gob package.
type encodableState struct {
	Model       *nn.Classifier
	Key         *noise.Key
	ModelOpt    nn.AdamState
	KeyOpt      nn.AdamState
	Seed        int64
	Draws       uint64
	Iteration   int
	OracleName  string
	OracleState []float64
}

// SaveCheckpoint writes s, and the fitted state of the trainer's oracle, to w.
func (t *Trainer) SaveCheckpoint(w io.Writer, s *State) error {
	seed, draws := s.Rand.Position()
	enc := encodableState{
		Model:      s.Model,
		Key:        s.Key,
		ModelOpt:   s.ModelOpt.State(),
		KeyOpt:     s.KeyOpt.State(),
		Seed:       seed,
		Draws:      draws,
		Iteration:  s.Iteration,
		OracleName: t.oracle.Name(),
	}
	if snap, ok := t.oracle.(cf.Snapshotter); ok {
		enc.OracleState = snap.Snapshot()
	}
	return errors.Wrap(gob.NewEncoder(w).Encode(enc), "couldn't encode checkpoint")
}

// LoadCheckpoint reads a State written by SaveCheckpoint and restores the
// fitted state of the trainer's oracle.
func (t *Trainer) LoadCheckpoint(r io.Reader) (*State, error) {
	var enc encodableState
	if err := gob.NewDecoder(r).Decode(&enc); err != nil {
		return nil, errors.Wrap(err, "couldn't decode checkpoint")
	}
	if enc.Model == nil || enc.Key == nil {
		return nil, errors.New("checkpoint has no model or key")
	}
	if enc.OracleName != t.oracle.Name() {
		return nil, errors.Errorf("checkpoint was written with oracle %q, trainer uses %q", enc.OracleName, t.oracle.Name())
	}
	if enc.Model.InputDim() != t.ds.Dim() || enc.Key.Dim() != t.ds.Dim() {
		return nil, errors.Errorf("checkpoint has %d features, data has %d", enc.Model.InputDim(), t.ds.Dim())
	}
	modelOpt, err := nn.AdamFromState(enc.ModelOpt)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't restore model optimizer")
	}
	keyOpt, err := nn.AdamFromState(enc.KeyOpt)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't restore key optimizer")
	}
	if snap, ok := t.oracle.(cf.Snapshotter); ok {
		snap.Restore(enc.OracleState)
	}
	return &State{
		Model:     enc.Model,
		Key:       enc.Key,
		ModelOpt:  modelOpt,
		KeyOpt:    keyOpt,
		Rand:      rand.Restore(enc.Seed, enc.Draws),
		Iteration: enc.Iteration,
	}, nil
}

// SaveCheckpointFile writes a checkpoint to path, replacing the file only once
// the checkpoint is complete.
func (t *Trainer) SaveCheckpointFile(path string, s *State) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "couldn't create checkpoint file = %q", tmp)
	}
	if err := t.SaveCheckpoint(f, s); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "couldn't close checkpoint file = %q", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "couldn't move checkpoint to %q", path)
	}
	log.Infof("Saved checkpoint at iteration %d to %s", s.Iteration, path)
	return nil
}

// LoadCheckpointFile reads the checkpoint at path.
func (t *Trainer) LoadCheckpointFile(path string) (*State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open checkpoint file = %q", path)
	}
	defer f.Close()
	s, err := t.LoadCheckpoint(f)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't load checkpoint file = %q", path)
	}
	return s, nil
}
