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
	"os"

	"github.com/cfattack/cfattack/cf"
	"github.com/cfattack/cfattack/checks"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config is the configuration of a run. It is built once and not modified
// while training.
type Config struct {
	Hidden int    `yaml:"hidden"` // Width of the hidden layers.
	Iters1 int    `yaml:"iters1"` // Stage 1 iterations.
	Iters2 int    `yaml:"iters2"` // Stage 2 epochs.
	CFName string `yaml:"cfname"` // Counterfactual algorithm.

	ModelLR  float64 `yaml:"model_lr"`  // Stage 1 model learning rate.
	KeyLR    float64 `yaml:"key_lr"`    // Stage 1 key learning rate.
	Stage2LR float64 `yaml:"stage2_lr"` // Stage 2 model learning rate.

	Lambda float64 `yaml:"lambda"` // Weight of the prediction term of the counterfactual objective.
	Target float64 `yaml:"target"` // Class counterfactuals must reach.
	// Weight of the key distance penalty in stage 1.
	NoiseMultiplier float64 `yaml:"noise_multiplier"`
	// Step size of the disparity correction subtracted from the stage 2 gradient.
	CorrectionStep float64 `yaml:"correction_step"`
	// Monte-Carlo samples averaged into one correction.
	MonteCarloSamples int `yaml:"monte_carlo_samples"`
	// The correction is applied from the first epoch greater than both 0 and
	// CorrectionStartEpoch.
	CorrectionStartEpoch int  `yaml:"correction_start_epoch"`
	IncludeCorrection    bool `yaml:"include_correction"`
	RunStage2            bool `yaml:"run_stage2"`

	// Stage 1 iterations between refits of oracles that need them.
	RefreshEvery int `yaml:"refresh_every"`
	// Stage 1 iterations between loss reports.
	LogEvery int `yaml:"log_every"`
	// Points per group and split explained by each stage 2 assessment.
	AssessMaxPerGroup int `yaml:"assess_max_per_group"`

	Counterfactual CounterfactualConfig `yaml:"counterfactual"`

	Seed     int64 `yaml:"seed"`
	Progress bool  `yaml:"progress"`
}

// CounterfactualConfig holds the search parameters of the oracles.
type CounterfactualConfig struct {
	LearningRate float64 `yaml:"learning_rate"`
	MaxSteps     int     `yaml:"max_steps"`
	Beta         float64 `yaml:"beta"`
	Theta        float64 `yaml:"theta"`
	BatchSize    int     `yaml:"batch_size"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	oc := cf.DefaultConfig()
	return Config{
		Hidden:               200,
		Iters1:               5000,
		Iters2:               4,
		CFName:               "wachter",
		ModelLR:              3e-4,
		KeyLR:                1e-2,
		Stage2LR:             1e-3,
		Lambda:               1,
		Target:               1,
		NoiseMultiplier:      1,
		CorrectionStep:       1e-5,
		MonteCarloSamples:    50,
		CorrectionStartEpoch: 0,
		IncludeCorrection:    true,
		RunStage2:            true,
		RefreshEvery:         10,
		LogEvery:             500,
		AssessMaxPerGroup:    20,
		Counterfactual: CounterfactualConfig{
			LearningRate: oc.LearningRate,
			MaxSteps:     oc.MaxSteps,
			Beta:         oc.Beta,
			Theta:        oc.Theta,
			BatchSize:    oc.BatchSize,
		},
		Seed: 10,
	}
}

// Validate returns an error if a parameter is out of range.
func (c Config) Validate() error {
	type intParam struct {
		name string
		n    int
	}
	for _, p := range []intParam{
		{"Hidden", c.Hidden},
		{"MonteCarloSamples", c.MonteCarloSamples},
		{"RefreshEvery", c.RefreshEvery},
		{"LogEvery", c.LogEvery},
		{"AssessMaxPerGroup", c.AssessMaxPerGroup},
	} {
		if err := checks.CheckPositiveInt(p.name, p.n); err != nil {
			return err
		}
	}
	for _, p := range []intParam{
		{"Iters1", c.Iters1},
		{"Iters2", c.Iters2},
		{"CorrectionStartEpoch", c.CorrectionStartEpoch},
	} {
		if err := checks.CheckNonNegativeInt(p.name, p.n); err != nil {
			return err
		}
	}
	for _, p := range []struct {
		name string
		lr   float64
	}{
		{"ModelLR", c.ModelLR},
		{"KeyLR", c.KeyLR},
		{"Stage2LR", c.Stage2LR},
	} {
		if err := checks.CheckLearningRate(p.name, p.lr); err != nil {
			return err
		}
	}
	if err := checks.CheckNonNegative("NoiseMultiplier", c.NoiseMultiplier); err != nil {
		return err
	}
	if err := checks.CheckFinite("CorrectionStep", c.CorrectionStep); err != nil {
		return err
	}
	return c.OracleConfig(nil).Validate()
}

// OracleConfig returns the configuration of the counterfactual oracle, with
// distances scaled by mad.
func (c Config) OracleConfig(mad []float64) cf.Config {
	return cf.Config{
		Lambda:       c.Lambda,
		Target:       c.Target,
		MAD:          mad,
		LearningRate: c.Counterfactual.LearningRate,
		MaxSteps:     c.Counterfactual.MaxSteps,
		MinSteps:     1,
		Beta:         c.Counterfactual.Beta,
		Theta:        c.Counterfactual.Theta,
		BatchSize:    c.Counterfactual.BatchSize,
	}
}

// correctionDue reports whether the disparity correction is computed in
// stage 2 epoch e.
func (c Config) correctionDue(e int) bool {
	return c.IncludeCorrection && e > c.CorrectionStartEpoch && e > 0
}

// LoadConfig reads a YAML file. Fields missing from the file keep their
// DefaultConfig value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	buf, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "couldn't read the config file = %q", path)
	}
	if err := yaml.UnmarshalStrict(buf, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "couldn't parse the config file = %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "invalid config file = %q", path)
	}
	return cfg, nil
}
