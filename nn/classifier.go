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

// Package nn contains the feed-forward binary classifier that is trained by the
// attack, its parameter marshalling and the Adam optimizer.
package nn

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"

	"github.com/cfattack/cfattack/autodiff"
	"github.com/cfattack/cfattack/rand"
	"gonum.org/v1/gonum/mat"
)

// numLayers is the number of affine layers: three hidden layers and the output.
const numLayers = 4

// Classifier is a binary classifier with three tanh hidden layers and a single
// logit output. Its parameters are owned by the Classifier and mutated only by
// an optimizer step.
//
// Not thread-safe.
type Classifier struct {
	inputDim, hidden int
	// weights[i] is fanIn×fanOut, biases[i] is 1×fanOut.
	weights []*mat.Dense
	biases  []*mat.Dense
}

// NewClassifier returns a Classifier with weights and biases drawn uniformly
// from [-1/sqrt(fanIn), 1/sqrt(fanIn)).
func NewClassifier(inputDim, hidden int, r *rand.Rand) *Classifier {
	if inputDim < 1 || hidden < 1 {
		panic(fmt.Sprintf("nn: invalid classifier shape input=%d hidden=%d", inputDim, hidden))
	}
	c := &Classifier{inputDim: inputDim, hidden: hidden}
	for _, s := range layerShapes(inputDim, hidden) {
		bound := rand.Bound(s.in)
		w := mat.NewDense(s.in, s.out, nil)
		w.Apply(func(_, _ int, _ float64) float64 { return r.Uniform(-bound, bound) }, w)
		b := mat.NewDense(1, s.out, nil)
		b.Apply(func(_, _ int, _ float64) float64 { return r.Uniform(-bound, bound) }, b)
		c.weights = append(c.weights, w)
		c.biases = append(c.biases, b)
	}
	return c
}

type shape struct{ in, out int }

func layerShapes(inputDim, hidden int) []shape {
	return []shape{{inputDim, hidden}, {hidden, hidden}, {hidden, hidden}, {hidden, 1}}
}

// InputDim returns the number of features the classifier expects.
func (c *Classifier) InputDim() int { return c.inputDim }

// Hidden returns the width of the hidden layers.
func (c *Classifier) Hidden() int { return c.hidden }

// Parameters returns the parameter tensors in a fixed order: W1, b1, ..., W4, b4.
// The returned matrices are the classifier's own storage.
func (c *Classifier) Parameters() []*mat.Dense {
	ps := make([]*mat.Dense, 0, 2*numLayers)
	for i := range c.weights {
		ps = append(ps, c.weights[i], c.biases[i])
	}
	return ps
}

// Layout returns the flat coordinate layout of the parameters.
func (c *Classifier) Layout() Layout {
	return LayoutOf(c.Parameters())
}

// Clone returns a deep copy of c.
func (c *Classifier) Clone() *Classifier {
	cp := &Classifier{inputDim: c.inputDim, hidden: c.hidden}
	for i := range c.weights {
		cp.weights = append(cp.weights, mat.DenseCopyOf(c.weights[i]))
		cp.biases = append(cp.biases, mat.DenseCopyOf(c.biases[i]))
	}
	return cp
}

// Bind registers the parameters as leaves of g and returns a Model that
// evaluates the classifier inside g. Bind once per graph: every Forward call on
// the returned Model shares the same parameter leaves.
func (c *Classifier) Bind(g *autodiff.Graph) *Model {
	m := &Model{g: g}
	for _, p := range c.Parameters() {
		m.params = append(m.params, g.Param(p))
	}
	return m
}

// BindFrozen is like Bind but registers the parameters as constants, for
// computations that differentiate only with respect to the input.
func (c *Classifier) BindFrozen(g *autodiff.Graph) *Model {
	m := &Model{g: g}
	for _, p := range c.Parameters() {
		m.params = append(m.params, g.Const(p))
	}
	return m
}

// Predict returns the positive-class probability for every row of x without
// recording a graph.
func (c *Classifier) Predict(x *mat.Dense) []float64 {
	logits := c.logits(x)
	out := make([]float64, len(logits))
	for i, z := range logits {
		out[i] = 1 / (1 + math.Exp(-z))
	}
	return out
}

func (c *Classifier) logits(x *mat.Dense) []float64 {
	h := mat.DenseCopyOf(x)
	for i := range c.weights {
		var z mat.Dense
		z.Mul(h, c.weights[i])
		b := c.biases[i].RawRowView(0)
		last := i == len(c.weights)-1
		z.Apply(func(_, j int, v float64) float64 {
			if last {
				return v + b[j]
			}
			return math.Tanh(v + b[j])
		}, &z)
		h = &z
	}
	return mat.Col(nil, 0, h)
}

// Model is a Classifier bound to a graph.
type Model struct {
	g      *autodiff.Graph
	params []*autodiff.Var
}

// Params returns the parameter leaves in the order of Classifier.Parameters.
func (m *Model) Params() []*autodiff.Var {
	return m.params
}

// Graph returns the graph m is bound to.
func (m *Model) Graph() *autodiff.Graph {
	return m.g
}

// Logit returns the n×1 logits for the n×d input x.
func (m *Model) Logit(x *autodiff.Var) *autodiff.Var {
	h := x
	for i := 0; i < numLayers; i++ {
		h = autodiff.AddRow(autodiff.MatMul(h, m.params[2*i]), m.params[2*i+1])
		if i < numLayers-1 {
			h = autodiff.Tanh(h)
		}
	}
	return h
}

// Forward returns the n×1 positive-class probabilities for the n×d input x.
func (m *Model) Forward(x *autodiff.Var) *autodiff.Var {
	return autodiff.Sigmoid(m.Logit(x))
}

// encodableClassifier can be encoded by the gob package.
type encodableClassifier struct {
	InputDim, Hidden int
	Params           [][]float64
}

// GobEncode encodes Classifier.
func (c *Classifier) GobEncode() ([]byte, error) {
	enc := encodableClassifier{InputDim: c.inputDim, Hidden: c.hidden}
	for _, p := range c.Parameters() {
		enc.Params = append(enc.Params, append([]float64(nil), p.RawMatrix().Data...))
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(enc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode decodes Classifier.
func (c *Classifier) GobDecode(data []byte) error {
	var enc encodableClassifier
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&enc); err != nil {
		return fmt.Errorf("GobDecode: couldn't decode Classifier from bytes: %w", err)
	}
	shapes := layerShapes(enc.InputDim, enc.Hidden)
	if len(enc.Params) != 2*len(shapes) {
		return fmt.Errorf("GobDecode: got %d parameter tensors, want %d", len(enc.Params), 2*len(shapes))
	}
	*c = Classifier{inputDim: enc.InputDim, hidden: enc.Hidden}
	for i, s := range shapes {
		w, b := enc.Params[2*i], enc.Params[2*i+1]
		if len(w) != s.in*s.out || len(b) != s.out {
			return fmt.Errorf("GobDecode: layer %d has %d weights and %d biases, want %d and %d", i, len(w), len(b), s.in*s.out, s.out)
		}
		c.weights = append(c.weights, mat.NewDense(s.in, s.out, w))
		c.biases = append(c.biases, mat.NewDense(1, s.out, b))
	}
	return nil
}
