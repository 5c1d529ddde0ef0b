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

	"github.com/cfattack/cfattack/assess"
	"github.com/cfattack/cfattack/autodiff"
	"github.com/cfattack/cfattack/cf"
	"github.com/cfattack/cfattack/dataset"
	"github.com/cfattack/cfattack/nn"
	"github.com/cfattack/cfattack/noise"
	log "github.com/golang/glog"
	"gonum.org/v1/gonum/mat"
)

// Stage1Report summarizes a stage 1 run.
type Stage1Report struct {
	// Losses holds the total loss of every iteration run, in order.
	Losses       []float64
	KeyUpdates   int
	ModelUpdates int
	// NoiseL1 is the L1 norm of the key after the last iteration.
	NoiseL1 float64
	// FlipSuccess is the fraction of non-protected negatively classified
	// testing points that the key moves to the positive class.
	FlipSuccess float64
	TestAcc     float64
}

// Stage1Step runs stage 1 iteration s.Iteration and advances s.Iteration.
// The loss is
//
//	BCE(f(X + key), 1) + BCE(f(X), y) + NoiseMultiplier·mean(d(X, X + key))
//
// and is followed by a step of the key optimizer on even iterations or of the
// model optimizer on odd ones. For a cf.Subsampler oracle the distance term is
// evaluated on rows of X drawn with replacement. It returns the loss before
// the step and whether the key was updated.
func (t *Trainer) Stage1Step(s *State) (loss float64, updatedKey bool) {
	w := s.Iteration
	updatedKey = w%2 == 0
	x := t.ds.TrainX
	n, d := x.Dims()

	g := autodiff.NewGraph()
	var (
		m   *nn.Model
		key *autodiff.Var
	)
	if updatedKey {
		m = s.Model.BindFrozen(g)
		key = s.Key.Bind(g)
	} else {
		m = s.Model.Bind(g)
		key = g.Const(mat.NewDense(1, d, s.Key.Values()))
	}

	ref := g.Const(x)
	stealth := nn.BinaryCrossEntropy(m.Forward(noise.AddTo(ref, key)), nn.Ones(n))
	fidelity := nn.BinaryCrossEntropy(m.Forward(ref), t.ds.TrainY)
	sample := ref
	if sub, ok := t.oracle.(cf.Subsampler); ok {
		sample = g.Const(dataset.Rows(x, s.Rand.Choice(n, sub.DistanceBatchSize())))
	}
	dist := autodiff.Mean(t.oracle.Distance(sample, noise.AddTo(sample, key), t.mad))
	total := autodiff.Add(autodiff.Add(stealth, fidelity), autodiff.Scale(dist, t.cfg.NoiseMultiplier))
	loss = total.Scalar()

	if updatedKey {
		s.Key.Step(s.KeyOpt, g.GradValues(total, []*autodiff.Var{key})[0])
	} else {
		s.ModelOpt.Step(s.Model.Parameters(), g.GradValues(total, m.Params()))
		s.Key.Project()
	}

	if r, ok := t.oracle.(cf.Reinitializer); ok && w%t.cfg.RefreshEvery == 0 {
		r.Reinit(s.Model, x)
	}
	if w%t.cfg.LogEvery == 0 {
		log.Infof("Stage 1 iteration %d: loss %g", w, loss)
	}
	t.logger.AddScalar("Loss/stage1", loss, w)
	s.Iteration++
	return loss, updatedKey
}

// Stage1 runs the remaining stage 1 iterations of s, from s.Iteration up to
// Iters1. ctx is checked before every iteration; on cancellation s holds the
// state after the last completed iteration, which can be checkpointed and
// resumed.
func (t *Trainer) Stage1(ctx context.Context, s *State) (Stage1Report, error) {
	var rep Stage1Report
	if r, ok := t.oracle.(cf.Reinitializer); ok && s.Iteration == 0 {
		r.Reinit(s.Model, t.ds.TrainX)
	}
	err := t.loop("Stage 1", s.Iteration, t.cfg.Iters1, func(int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		loss, key := t.Stage1Step(s)
		rep.Losses = append(rep.Losses, loss)
		if key {
			rep.KeyUpdates++
		} else {
			rep.ModelUpdates++
		}
		return nil
	})
	if err != nil {
		return rep, err
	}

	rep.NoiseL1 = s.Key.L1()
	rep.FlipSuccess = assess.FlipSuccess(s.Model, s.Key, t.ds.TestX, t.ds.TestProtected)
	rep.TestAcc = nn.Accuracy(s.Model.Predict(t.ds.TestX), t.ds.TestY)
	t.logger.AddScalar("Noise norm", rep.NoiseL1, 0)
	log.Infof("Noise norm %g", rep.NoiseL1)
	log.Infof("Delta flip success %g", rep.FlipSuccess)
	log.Infof("Testing accuracy %g", rep.TestAcc)
	return rep, nil
}
