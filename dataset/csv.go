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

package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/cfattack/cfattack/rand"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CSVSpec describes how to read a dataset from a CSV file with a header row.
// Every column other than the label and protected columns is a feature.
type CSVSpec struct {
	Label       string   // Name of the 0/1 label column. Required.
	Protected   string   // Name of the 0/1 protected-attribute column. Required.
	Categorical []string // Names of categorical feature columns.
	// Whether the protected attribute is also used as a feature. Defaults to false.
	KeepProtected bool
	TestFraction  float64 // Fraction of rows held out for testing. Defaults to 0.2.
	Seed          int64   // Seed of the train/test shuffle.
}

// LoadCSV reads the file at path and splits it into a Dataset.
func LoadCSV(path string, spec CSVSpec) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open the csv file = %q", path)
	}
	defer f.Close()
	ds, err := ReadCSV(f, spec)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read the csv file = %q", path)
	}
	return ds, nil
}

// ReadCSV is LoadCSV on an already opened reader.
func ReadCSV(in io.Reader, spec CSVSpec) (*Dataset, error) {
	if spec.TestFraction == 0 {
		spec.TestFraction = 0.2
	}
	r := csv.NewReader(in)
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read the header")
	}
	labelCol, protectedCol := -1, -1
	var featureCols []int
	featureIndex := make(map[string]int)
	for i, name := range header {
		switch name {
		case spec.Label:
			labelCol = i
			continue
		case spec.Protected:
			protectedCol = i
			if !spec.KeepProtected {
				continue
			}
		}
		featureIndex[name] = len(featureCols)
		featureCols = append(featureCols, i)
	}
	if labelCol < 0 {
		return nil, errors.Errorf("label column %q not found in header %v", spec.Label, header)
	}
	if protectedCol < 0 {
		return nil, errors.Errorf("protected column %q not found in header %v", spec.Protected, header)
	}
	if len(featureCols) == 0 {
		return nil, errors.New("no feature columns")
	}
	var categorical []int
	for _, name := range spec.Categorical {
		j, ok := featureIndex[name]
		if !ok {
			return nil, errors.Errorf("categorical column %q is not a feature column", name)
		}
		categorical = append(categorical, j)
	}

	var data, labels, protected []float64
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		y, err := toFloat(record[labelCol])
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't read label on line %d", line)
		}
		p, err := toFloat(record[protectedCol])
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't read protected attribute on line %d", line)
		}
		for _, c := range featureCols {
			v, err := toFloat(record[c])
			if err != nil {
				return nil, errors.Wrapf(err, "couldn't read column %q on line %d", header[c], line)
			}
			data = append(data, v)
		}
		labels = append(labels, y)
		protected = append(protected, p)
	}
	if len(labels) == 0 {
		return nil, errors.New("no data rows")
	}
	x := mat.NewDense(len(labels), len(featureCols), data)
	return Split(x, labels, protected, categorical, spec.TestFraction, rand.New(spec.Seed))
}

func toFloat(str string) (float64, error) {
	return strconv.ParseFloat(str, 64)
}
