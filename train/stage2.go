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
	"fmt"
	"math"

	"github.com/cfattack/cfattack/aggregate"
	"github.com/cfattack/cfattack/assess"
	"github.com/cfattack/cfattack/autodiff"
	"github.com/cfattack/cfattack/cf"
	"github.com/cfattack/cfattack/implicit"
	"github.com/cfattack/cfattack/nn"
	log "github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// EpochReport summarizes a stage 2 epoch.
type EpochReport struct {
	Epoch int
	// Loss is the fidelity loss before the step.
	Loss float64
	// Corrected reports whether the disparity correction was added to the
	// gradient.
	Corrected bool
	// ProtectedNegatives and NotProtectedNegatives are the sizes of the
	// subgroups the correction is computed over, before the step.
	ProtectedNegatives, NotProtectedNegatives int
	// Subgroup sizes of each split after the step.
	TrainGroups, TestGroups GroupSizes
	// PerturbedCost is the mean cost of the counterfactuals searched from
	// perturbed non-protected points. NaN without a correction.
	PerturbedCost     float64
	TrainAcc, TestAcc float64
	Summary           assess.Summary
}

// GroupSizes counts the negatively classified points of each subgroup.
type GroupSizes struct {
	ProtectedNegatives, NotProtectedNegatives int
}

func groupSizes(c *nn.Classifier, x *mat.Dense, protected []float64) GroupSizes {
	pro, notPro := cf.Groups(c.Predict(x), protected)
	return GroupSizes{ProtectedNegatives: len(pro), NotProtectedNegatives: len(notPro)}
}

// Stage2Report holds the report of every stage 2 epoch.
type Stage2Report struct {
	Epochs []EpochReport
}

// Stage2Step runs the update of stage 2 epoch e: a step of opt on the fidelity
// loss
//
//	BCE(f(X), y) + BCE(f(X + key), 1)
//
// with the key frozen. When the correction is due and both subgroups of
// negatively classified training points are non-empty, CorrectionStep times the
// Monte-Carlo estimate of the disparity gradient is subtracted from the loss
// gradient before the step. Otherwise the step is a plain one.
func (t *Trainer) Stage2Step(s *State, opt *nn.Adam, e int) (EpochReport, error) {
	x := t.ds.TrainX
	n, _ := x.Dims()
	if r, ok := t.oracle.(cf.Reinitializer); ok {
		r.Reinit(s.Model, x)
	}

	g := autodiff.NewGraph()
	m := s.Model.Bind(g)
	loss := autodiff.Add(
		nn.BinaryCrossEntropy(m.Forward(g.Const(x)), t.ds.TrainY),
		nn.BinaryCrossEntropy(m.Forward(g.Const(s.Key.Apply(x))), nn.Ones(n)))
	rep := EpochReport{Epoch: e, Loss: loss.Scalar(), PerturbedCost: math.NaN()}
	t.logger.AddScalar("Loss/train", rep.Loss, e)

	pro, notPro := cf.Groups(s.Model.Predict(x), t.ds.TrainProtected)
	rep.ProtectedNegatives, rep.NotProtectedNegatives = len(pro), len(notPro)
	var corr []float64
	switch {
	case !t.cfg.correctionDue(e):
	case len(pro) == 0 || len(notPro) == 0:
		log.Infof("Stage 2 epoch %d: no correction, %d protected and %d non-protected negatives", e, len(pro), len(notPro))
	default:
		var err error
		if corr, rep.PerturbedCost, err = t.correction(s); err != nil {
			return rep, fmt.Errorf("stage 2 epoch %d: %w", e, err)
		}
		t.logger.AddScalar("Correction/perturbed_cost", rep.PerturbedCost, e)
	}
	t.logger.AddScalar("Loss/bce_loss", rep.Loss, e)
	t.logger.AddScalar("Loss/total_loss", rep.Loss, e)

	grads := g.GradValues(loss, m.Params())
	if corr != nil {
		for q, c := range s.Model.Layout().Unflatten(corr) {
			c.Scale(t.cfg.CorrectionStep, c)
			grads[q].Sub(grads[q], c)
		}
		rep.Corrected = true
	}
	opt.Step(s.Model.Parameters(), grads)
	log.V(1).Infof("Stage 2 epoch %d: loss %g, corrected %t", e, rep.Loss, rep.Corrected)
	return rep, nil
}

// correction returns the mean over MonteCarloSamples of the disparity gradient
// at one sampled negative point per subgroup, and the mean cost of the
// counterfactuals of the perturbed non-protected samples.
func (t *Trainer) correction(s *State) ([]float64, float64, error) {
	x := t.ds.TrainX
	perturbed := s.Key.Apply(x)
	grad := aggregate.NewVectorMean(s.Model.Layout().Size())
	cost := aggregate.NewMean()
	for i := 0; i < t.cfg.MonteCarloSamples; i++ {
		v, c, err := t.correctionSample(s, perturbed)
		if err != nil {
			return nil, 0, err
		}
		if err := grad.Add(v); err != nil {
			return nil, 0, err
		}
		if err := cost.Add(c); err != nil {
			return nil, 0, err
		}
		log.V(2).Infof("Monte-Carlo sample %d: correction L1 %g, perturbed cost %g", i, floats.Norm(v, 1), c)
	}
	mean, err := grad.Result()
	if err != nil {
		return nil, 0, err
	}
	perturbedCost, err := cost.Result()
	return mean, perturbedCost, err
}

// correctionSample computes one Monte-Carlo sample of the correction. Each
// counterfactual is differentiated in a graph of its own that is dropped on
// return.
func (t *Trainer) correctionSample(s *State, perturbed *mat.Dense) ([]float64, float64, error) {
	res, err := t.oracle.Generate(cf.Request{
		Data:      t.ds.TrainX,
		Model:     s.Model,
		Protected: t.ds.TrainProtected,
		AllData:   t.ds.TrainX,
		Sample:    true,
		Rand:      s.Rand,
	})
	if err != nil {
		return nil, 0, err
	}
	negPro, negNotPro := res.NegPro, res.NegNotPro
	cfPro, cfNotPro := res.ProtectedCFs(), res.NotProtectedCFs()
	pert, err := t.oracle.Generate(cf.Request{Data: s.Key.Apply(negNotPro), Model: s.Model, AllData: perturbed})
	if err != nil {
		return nil, 0, err
	}

	diffPro := meanL1(negPro, cfPro)
	diffNotPro := meanL1(negNotPro, cfNotPro)
	dirPro := t.direction(s, negPro, cfPro)
	dirNotPro := t.direction(s, negNotPro, cfNotPro)
	return implicit.Correction(diffPro, diffNotPro, dirPro, dirNotPro), meanL1(negNotPro, pert.CFs), nil
}

// direction returns the implicit direction of the 1×d counterfactual cfp of
// the point ref.
func (t *Trainer) direction(s *State, ref, cfp *mat.Dense) []float64 {
	var diff mat.Dense
	diff.Sub(ref, cfp)
	sign := autodiff.Sign(&diff).RawRowView(0)

	g := autodiff.NewGraph()
	m := s.Model.Bind(g)
	v := g.Param(mat.DenseCopyOf(cfp))
	out := t.oracle.Objective(m, v, g.Const(ref), t.cfg.Lambda, t.cfg.Target, t.mad)
	return implicit.Direction(g, out, v, m.Params(), sign)
}

// meanL1 returns the mean L1 distance between the rows of a and b.
func meanL1(a, b *mat.Dense) float64 {
	mean := aggregate.NewMean()
	r, _ := a.Dims()
	for i := 0; i < r; i++ {
		mean.Add(floats.Distance(a.RawRowView(i), b.RawRowView(i), 1))
	}
	res, _ := mean.Result()
	return res
}

// assessEpoch fills the accuracies and the assessment summary of rep.
func (t *Trainer) assessEpoch(s *State, rep *EpochReport) error {
	e := rep.Epoch
	rep.TrainAcc = nn.Accuracy(s.Model.Predict(t.ds.TrainX), t.ds.TrainY)
	rep.TestAcc = nn.Accuracy(s.Model.Predict(t.ds.TestX), t.ds.TestY)
	t.logger.AddScalar("Accuracy/train_acc", rep.TrainAcc, e)
	t.logger.AddScalar("Accuracy/testing_acc", rep.TestAcc, e)
	log.Infof("Stage 2 epoch %d: test accuracy %g", e, rep.TestAcc)
	rep.TrainGroups = groupSizes(s.Model, t.ds.TrainX, t.ds.TrainProtected)
	rep.TestGroups = groupSizes(s.Model, t.ds.TestX, t.ds.TestProtected)
	log.V(1).Infof("Stage 2 epoch %d: negatives (protected, not protected) train %+v, test %+v", e, rep.TrainGroups, rep.TestGroups)

	summary, err := assess.Assess(assess.Input{
		Step:        e,
		Model:       s.Model,
		Data:        t.ds,
		Oracle:      t.oracle,
		Key:         s.Key,
		Logger:      t.logger,
		MaxPerGroup: t.cfg.AssessMaxPerGroup,
		Rand:        s.Rand,
	})
	if err != nil {
		return fmt.Errorf("stage 2 epoch %d: %w", e, err)
	}
	rep.Summary = summary
	log.Infof("Stage 2 epoch %d: training delta %g, testing delta %g", e, summary.TrainingDelta, summary.TestingDelta)
	return nil
}

// Stage2 runs Iters2 epochs of stage 2 with a fresh optimizer, assessing the
// model after every epoch. ctx is checked before every epoch.
func (t *Trainer) Stage2(ctx context.Context, s *State) (Stage2Report, error) {
	var rep Stage2Report
	opt := nn.NewAdam(nn.DefaultAdamConfig(t.cfg.Stage2LR))
	err := t.loop("Stage 2", 0, t.cfg.Iters2, func(e int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		ep, err := t.Stage2Step(s, opt, e)
		if err != nil {
			return err
		}
		if err := t.assessEpoch(s, &ep); err != nil {
			return err
		}
		rep.Epochs = append(rep.Epochs, ep)
		return nil
	})
	return rep, err
}
