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

// cfattack trains a classifier whose counterfactual explanations are unfair
// to a protected group, together with a perturbation key that lets the other
// group obtain cheap recourse.
// Usage example:
// go run ./cmd/cfattack --dataset=synthetic --cfname=wachter --iters1=2000 --metrics_csv=metrics.csv --plot=metrics.png
// go run ./cmd/cfattack --dataset=data/credit.csv --label=default --protected=sex --categorical=married,education --config=run.yaml
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/cfattack/cfattack/dataset"
	"github.com/cfattack/cfattack/metrics"
	"github.com/cfattack/cfattack/train"
	log "github.com/golang/glog"
)

var (
	configFile  = flag.String("config", "", "Optional YAML file with the training configuration. Flags given explicitly override it.")
	datasetName = flag.String("dataset", "synthetic", "Registered dataset name ("+strings.Join(dataset.Names(), ", ")+") or path to a csv file with a header row.")
	label       = flag.String("label", "", "Label column of the csv dataset.")
	protected   = flag.String("protected", "", "Protected attribute column of the csv dataset.")
	categorical = flag.String("categorical", "", "Comma separated categorical columns of the csv dataset.")
	hidden      = flag.Int("hidden", 200, "Number of hidden units per layer.")
	iters1      = flag.Int("iters1", 5000, "Stage 1 number of iterations.")
	iters2      = flag.Int("iters2", 4, "Stage 2 number of epochs.")
	cfName      = flag.String("cfname", "wachter", "Counterfactual algorithm: wachter, dice or proto.")
	keyLR       = flag.Float64("key_lr", 1e-2, "Perturbation key learning rate.")
	modelLR     = flag.Float64("model_lr", 3e-4, "Model learning rate.")
	seed        = flag.Int64("seed", 10, "Seed of the model initialization and of every sampling step.")
	metricsCSV  = flag.String("metrics_csv", "", "Output csv file for the training scalars.")
	plotFile    = flag.String("plot", "", "Output image file plotting the loss and accuracy scalars.")
	checkpoint  = flag.String("checkpoint", "", "Checkpoint file stage 1 resumes from and is saved to.")
)

func main() {
	flag.Parse()

	cfg, err := buildConfig()
	if err != nil {
		log.Exitf("Couldn't build the configuration, err = %v", err)
	}
	log.Infof("Training with dataset = %q, configuration = %+v", *datasetName, cfg)

	ds, err := loadDataset()
	if err != nil {
		log.Exitf("Couldn't load the dataset, err = %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	mem := metrics.NewMemory()
	rep, err := train.Run(ctx, ds, cfg, train.RunOptions{
		Logger:     metrics.Tee{mem, metrics.Verbose},
		Checkpoint: *checkpoint,
	})
	if err != nil {
		log.Errorf("Training stopped, err = %v", err)
	}
	writeOutputs(mem)
	if err != nil {
		log.Exit("Training did not complete")
	}

	if n := len(rep.Stage2.Epochs); n > 0 {
		last := rep.Stage2.Epochs[n-1]
		log.Infof("Final training delta = %g, testing delta = %g, test accuracy = %g", last.Summary.TrainingDelta, last.Summary.TestingDelta, last.TestAcc)
	}
	log.Infof("Successfully finished training")
}

// buildConfig returns the configuration file, or the defaults, overridden by
// the flags set on the command line.
func buildConfig() (train.Config, error) {
	cfg := train.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = train.LoadConfig(*configFile); err != nil {
			return train.Config{}, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "hidden":
			cfg.Hidden = *hidden
		case "iters1":
			cfg.Iters1 = *iters1
		case "iters2":
			cfg.Iters2 = *iters2
		case "cfname":
			cfg.CFName = *cfName
		case "key_lr":
			cfg.KeyLR = *keyLR
		case "model_lr":
			cfg.ModelLR = *modelLR
		case "seed":
			cfg.Seed = *seed
		}
	})
	return cfg, cfg.Validate()
}

func loadDataset() (*dataset.Dataset, error) {
	if strings.HasSuffix(*datasetName, ".csv") {
		spec := dataset.CSVSpec{Label: *label, Protected: *protected, Seed: *seed}
		if *categorical != "" {
			spec.Categorical = strings.Split(*categorical, ",")
		}
		path := *datasetName
		dataset.Register(path, func() (*dataset.Dataset, error) {
			return dataset.LoadCSV(path, spec)
		})
	}
	return dataset.Get(*datasetName)
}

func writeOutputs(mem *metrics.Memory) {
	if *metricsCSV != "" {
		if err := metrics.WriteCSV(*metricsCSV, mem); err != nil {
			log.Errorf("Couldn't write the metrics, err = %v", err)
		}
	}
	if *plotFile != "" {
		if err := metrics.SavePlot(*plotFile, "Stage 2", mem, "Loss/train", "Accuracy/train_acc", "Accuracy/testing_acc", "Assess/training_delta"); err != nil {
			log.Errorf("Couldn't save the plot, err = %v", err)
		}
	}
}
