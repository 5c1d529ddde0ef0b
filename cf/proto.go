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

package cf

import (
	"github.com/cfattack/cfattack/autodiff"
	"github.com/cfattack/cfattack/nn"
	log "github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Proto finds counterfactuals that are pulled towards a prototype of the
// target class, minimizing
//
//	λ·(f(x') - t)² + β·‖x - x'‖₁ + ‖x - x'‖₂² + θ·‖x' - proto‖₂²
//
// The prototype is the mean of the points the classifier currently assigns to
// the target class, so it must be refitted with Reinit as the classifier
// changes. The elastic net distance is not MAD-scaled.
//
// Not thread-safe.
type Proto struct {
	cfg   Config
	proto []float64
}

// Name returns "proto".
func (p *Proto) Name() string { return "proto" }

// Distance returns the elastic net distance of every row. mad is ignored.
func (p *Proto) Distance(a, b *autodiff.Var, _ []float64) *autodiff.Var {
	return elasticNet(a, b, p.cfg.Beta)
}

// DistanceBatchSize implements Subsampler.
func (p *Proto) DistanceBatchSize() int {
	return p.cfg.BatchSize
}

// Prototype returns a copy of the current prototype, or nil before the first
// Reinit.
func (p *Proto) Prototype() []float64 {
	return append([]float64(nil), p.proto...)
}

// Snapshot implements Snapshotter: it returns the prototype.
func (p *Proto) Snapshot() []float64 {
	return p.Prototype()
}

// Restore implements Snapshotter: it sets the prototype. A nil state clears
// it.
func (p *Proto) Restore(state []float64) {
	p.proto = append([]float64(nil), state...)
	if len(state) == 0 {
		p.proto = nil
	}
}

// Reinit sets the prototype to the mean of the rows of data that c assigns to
// the target class. If there is none, the mean of all rows is used.
func (p *Proto) Reinit(c *nn.Classifier, data *mat.Dense) {
	pos, neg, _, _ := SplitByClassification(c, data)
	members := pos
	if p.cfg.Target == 0 {
		members = neg
	}
	if members == nil {
		n, _ := data.Dims()
		log.V(1).Infof("proto: no row in the target class, using the mean of all %d rows", n)
		members = data
	}
	n, d := members.Dims()
	proto := make([]float64, d)
	for i := 0; i < n; i++ {
		floats.Add(proto, members.RawRowView(i))
	}
	floats.Scale(1/float64(n), proto)
	p.proto = proto
}

// Objective implements Oracle.
func (p *Proto) Objective(m *nn.Model, cf, ref *autodiff.Var, lambda, target float64, mad []float64) *autodiff.Var {
	obj := autodiff.Add(autodiff.Scale(squaredGap(m.Forward(cf), target), lambda), autodiff.Sum(p.Distance(ref, cf, mad)))
	if p.proto == nil {
		return obj
	}
	neg := append([]float64(nil), p.proto...)
	floats.Scale(-1, neg)
	toProto := autodiff.AddRow(cf, cf.Graph().RowVector(neg))
	return autodiff.Add(obj, autodiff.Scale(autodiff.Sum(autodiff.Square(toProto)), p.cfg.Theta))
}

// Generate implements Oracle. The prototype is fitted on the request's
// population if Reinit was never called.
func (p *Proto) Generate(req Request) (Result, error) {
	if p.proto == nil && req.Model != nil && req.Data != nil {
		all := req.AllData
		if all == nil {
			all = req.Data
		}
		p.Reinit(req.Model, all)
	}
	return generate(p, p.cfg, req)
}
