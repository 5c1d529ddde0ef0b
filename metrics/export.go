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

package metrics

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// WriteCSV writes every scalar of m to a CSV file with a name,step,value
// header.
func WriteCSV(path string, m *Memory) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "couldn't create the csv file = %q", path)
	}
	points := m.Points()
	if err := gocsv.Marshal(&points, f); err != nil {
		f.Close()
		return errors.Wrapf(err, "couldn't write to the csv file = %q", path)
	}
	return errors.Wrapf(f.Close(), "couldn't close the csv file = %q", path)
}

// ReadCSV reads a file written by WriteCSV.
func ReadCSV(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open the csv file = %q", path)
	}
	defer f.Close()
	var points []Point
	if err := gocsv.UnmarshalFile(f, &points); err != nil {
		return nil, errors.Wrapf(err, "couldn't read the csv file = %q", path)
	}
	return &Memory{points: points}, nil
}

// SavePlot draws the named series of m as lines against their steps and saves
// the plot to path. The image format follows the extension of path.
func SavePlot(path, title string, m *Memory, names ...string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Step"

	var lines []interface{}
	for _, name := range names {
		steps, values := m.Series(name)
		if len(steps) == 0 {
			return fmt.Errorf("no scalars recorded for series %q", name)
		}
		pts := make(plotter.XYs, len(steps))
		for i := range steps {
			pts[i].X = float64(steps[i])
			pts[i].Y = values[i]
		}
		lines = append(lines, name, pts)
	}
	if len(lines) == 0 {
		return fmt.Errorf("no series to plot")
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return errors.Wrapf(err, "could not add lines for series %v", names)
	}
	p.Legend.Top = true
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "could not save plot to %q", path)
	}
	return nil
}
