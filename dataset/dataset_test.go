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
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cfattack/cfattack/rand"
	"github.com/cfattack/cfattack/stattestutils"
	"github.com/google/go-cmp/cmp"
	"github.com/grd/stat"
	"gonum.org/v1/gonum/mat"
)

const testCSV = `age,income,group,approved,married
30,1000,1,0,1
40,3000,0,1,0
25,1500,1,0,0
50,5000,0,1,1
35,2000,1,1,0
45,2500,0,0,1
`

func TestReadCSV(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(testCSV), CSVSpec{
		Label:        "approved",
		Protected:    "group",
		Categorical:  []string{"married"},
		TestFraction: 0.34,
		Seed:         1,
	})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got := ds.Dim(); got != 3 {
		t.Fatalf("ReadCSV: Dim() = %d, want 3", got)
	}
	if diff := cmp.Diff([]int{2}, ds.Categorical); diff != "" {
		t.Errorf("ReadCSV: Categorical mismatch (-want +got):\n%s", diff)
	}

	trainRows, _ := ds.TrainX.Dims()
	testRows, _ := ds.TestX.Dims()
	if trainRows+testRows != 6 || testRows != 2 {
		t.Errorf("ReadCSV: got %d train and %d test rows, want 4 and 2", trainRows, testRows)
	}

	// Every loaded row must keep its own label and group.
	byAge := map[float64][2]float64{30: {0, 1}, 40: {1, 0}, 25: {0, 1}, 50: {1, 0}, 35: {1, 1}, 45: {0, 0}}
	for i := 0; i < trainRows; i++ {
		age := ds.TrainX.At(i, 0)
		want := byAge[age]
		if got := [2]float64{ds.TrainY[i], ds.TrainProtected[i]}; got != want {
			t.Errorf("ReadCSV: row with age %f has label and group %v, want %v", age, got, want)
		}
	}
}

func TestReadCSVKeepProtected(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(testCSV), CSVSpec{Label: "approved", Protected: "group", KeepProtected: true})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got := ds.Dim(); got != 4 {
		t.Errorf("ReadCSV with KeepProtected: Dim() = %d, want 4", got)
	}
}

func TestReadCSVErrors(t *testing.T) {
	for _, tc := range []struct {
		desc string
		in   string
		spec CSVSpec
	}{
		{"missing label column", testCSV, CSVSpec{Label: "y", Protected: "group"}},
		{"missing protected column", testCSV, CSVSpec{Label: "approved", Protected: "sex"}},
		{"unknown categorical column", testCSV, CSVSpec{Label: "approved", Protected: "group", Categorical: []string{"x"}}},
		{"non-numeric value", "a,y,p\nfoo,1,0\n1,0,1\n", CSVSpec{Label: "y", Protected: "p"}},
		{"non-binary label", "a,y,p\n1,2,0\n1,0,1\n", CSVSpec{Label: "y", Protected: "p"}},
		{"no rows", "a,y,p\n", CSVSpec{Label: "y", Protected: "p"}},
		{"empty input", "", CSVSpec{Label: "y", Protected: "p"}},
	} {
		if _, err := ReadCSV(strings.NewReader(tc.in), tc.spec); err == nil {
			t.Errorf("ReadCSV: %s got no error", tc.desc)
		}
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ds, err := LoadCSV(path, CSVSpec{Label: "approved", Protected: "group"})
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if got := ds.Dim(); got != 3 {
		t.Errorf("LoadCSV: Dim() = %d, want 3", got)
	}

	if _, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), CSVSpec{Label: "approved", Protected: "group"}); err == nil {
		t.Errorf("LoadCSV: missing file got no error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Dataset {
		return &Dataset{
			TrainX:         mat.NewDense(2, 1, []float64{1, 2}),
			TrainY:         []float64{0, 1},
			TrainProtected: []float64{1, 0},
			TestX:          mat.NewDense(1, 1, []float64{3}),
			TestY:          []float64{1},
			TestProtected:  []float64{0},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate: consistent split got err %v", err)
	}
	for _, tc := range []struct {
		desc   string
		modify func(*Dataset)
		want   string
	}{
		{
			desc:   "short labels and protected",
			modify: func(ds *Dataset) { ds.TrainY = ds.TrainY[:1]; ds.TrainProtected = nil },
			want:   "TrainY",
		},
		{
			desc:   "non-binary columns in both splits",
			modify: func(ds *Dataset) { ds.TestProtected[0] = 2; ds.TrainProtected[0] = 3; ds.TestY[0] = 4 },
			want:   "TrainProtected",
		},
		{
			desc:   "categorical out of range",
			modify: func(ds *Dataset) { ds.Categorical = []int{1} },
			want:   "Categorical",
		},
	} {
		ds := valid()
		tc.modify(ds)
		// The first problem in field order is reported on every call.
		for i := 0; i < 10; i++ {
			if err := ds.Validate(); err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate: %s got err %v, want an error naming %s", tc.desc, err, tc.want)
			}
		}
	}
}

func TestStandardize(t *testing.T) {
	ds, err := Synthetic(SyntheticOptions{Rows: 200, Dim: 3, Seed: 3})
	if err != nil {
		t.Fatalf("Synthetic: %v", err)
	}
	// Shift and scale the features so that standardization has work to do.
	ds.TrainX.Apply(func(_, j int, v float64) float64 { return 10*v + float64(j) }, ds.TrainX)
	std := Standardize(ds)

	r, c := std.TrainX.Dims()
	if r != 160 {
		t.Fatalf("Standardize: got %d training rows, want 160", r)
	}
	for j := 0; j < c; j++ {
		col := mat.Col(nil, j, std.TrainX)
		if m := stat.Mean(stat.Float64Slice(col)); math.Abs(m) > 1e-9 {
			t.Errorf("Standardize: mean of column %d = %f, want 0", j, m)
		}
		if v := stattestutils.SampleVariance(col); math.Abs(v-1) > 1e-9 {
			t.Errorf("Standardize: variance of column %d = %f, want 1", j, v)
		}
	}
	if ds.TrainX == std.TrainX {
		t.Errorf("Standardize: training matrix was reused, want a copy")
	}
}

func TestScalerConstantColumn(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{1, 5, 2, 5, 3, 5})
	s := FitScaler(x)
	if s.Std[1] != 1 {
		t.Errorf("FitScaler: Std of constant column = %f, want 1", s.Std[1])
	}
	got := s.Transform(x)
	if diff := cmp.Diff([]float64{0, 0, 0}, mat.Col(nil, 1, got)); diff != "" {
		t.Errorf("Transform: constant column mismatch (-want +got):\n%s", diff)
	}
}

func TestMAD(t *testing.T) {
	x := mat.NewDense(5, 2, []float64{
		1, 7,
		2, 7,
		3, 7,
		4, 7,
		100, 7,
	})
	got := MAD(x)
	// median(|x - 3|) = median(2 1 0 1 97) = 1.
	if want := 1.482602218505602; math.Abs(got[0]-want) > 1e-9 {
		t.Errorf("MAD: column 0 = %f, want %f", got[0], want)
	}
	// A constant column has zero deviation and is mapped to 1.
	if got[1] != 1 {
		t.Errorf("MAD: constant column = %f, want 1", got[1])
	}
}

func TestSplit(t *testing.T) {
	x := mat.NewDense(10, 1, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	y := []float64{0, 1, 0, 1, 0, 1, 0, 1, 0, 1}
	p := []float64{1, 1, 1, 1, 1, 0, 0, 0, 0, 0}
	ds, err := Split(x, y, p, nil, 0.3, rand.New(5))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if testRows, _ := ds.TestX.Dims(); testRows != 3 {
		t.Errorf("Split: got %d test rows, want 3", testRows)
	}

	seen := map[float64]bool{}
	for _, m := range []*mat.Dense{ds.TrainX, ds.TestX} {
		for _, v := range mat.Col(nil, 0, m) {
			seen[v] = true
		}
	}
	if len(seen) != 10 {
		t.Errorf("Split: %d distinct rows across splits, want every row in exactly one split", len(seen))
	}

	if _, err := Split(x, y[:3], p, nil, 0.3, rand.New(5)); err == nil {
		t.Errorf("Split: misaligned labels got no error")
	}
}

func TestSyntheticDeterministic(t *testing.T) {
	a, err := Synthetic(SyntheticOptions{Rows: 50, Seed: 9, Categorical: true})
	if err != nil {
		t.Fatalf("Synthetic: %v", err)
	}
	b, err := Synthetic(SyntheticOptions{Rows: 50, Seed: 9, Categorical: true})
	if err != nil {
		t.Fatalf("Synthetic: %v", err)
	}
	if !mat.Equal(a.TrainX, b.TrainX) {
		t.Errorf("Synthetic: same seed gave different features")
	}
	if diff := cmp.Diff(a.TrainY, b.TrainY); diff != "" {
		t.Errorf("Synthetic: same seed gave different labels (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0}, a.Categorical); diff != "" {
		t.Errorf("Synthetic: Categorical mismatch (-want +got):\n%s", diff)
	}
	for i, v := range mat.Col(nil, 0, a.TrainX) {
		if v != 0 && v != 1 {
			t.Errorf("Synthetic: categorical feature of row %d = %f, want 0 or 1", i, v)
		}
	}
}

func TestSyntheticDisparity(t *testing.T) {
	ds, err := Synthetic(SyntheticOptions{Rows: 2000, Disparity: 2, Seed: 1})
	if err != nil {
		t.Fatalf("Synthetic: %v", err)
	}
	var pro, notPro []float64
	for i, p := range ds.TrainProtected {
		if p == 1 {
			pro = append(pro, ds.TrainY[i])
		} else {
			notPro = append(notPro, ds.TrainY[i])
		}
	}
	if mp, mn := stattestutils.SampleMean(pro), stattestutils.SampleMean(notPro); mp >= mn {
		t.Errorf("Synthetic: protected positive rate %f >= other rate %f, want protected rows labelled positive less often", mp, mn)
	}
}

func TestRegistry(t *testing.T) {
	ds, err := Get("synthetic")
	if err != nil {
		t.Fatalf("Get(synthetic): %v", err)
	}
	if got := ds.Dim(); got != 6 {
		t.Errorf("Get(synthetic): Dim() = %d, want 6", got)
	}

	if _, err := Get("does-not-exist"); err == nil {
		t.Errorf("Get: unknown name got no error")
	}

	Register("tiny", func() (*Dataset, error) {
		return Synthetic(SyntheticOptions{Rows: 10, Dim: 2})
	})
	found := false
	for _, n := range Names() {
		found = found || n == "tiny"
	}
	if !found {
		t.Errorf("Names() = %v, want it to contain tiny", Names())
	}
	ds, err = Get("tiny")
	if err != nil {
		t.Fatalf("Get(tiny): %v", err)
	}
	if got := ds.Dim(); got != 2 {
		t.Errorf("Get(tiny): Dim() = %d, want 2", got)
	}
}

func TestRows(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	got := Rows(x, []int{2, 0, 2})
	if want := mat.NewDense(3, 2, []float64{5, 6, 1, 2, 5, 6}); !mat.Equal(got, want) {
		t.Errorf("Rows: got %v, want %v", mat.Formatted(got), mat.Formatted(want))
	}
	if got := Rows(x, nil); got != nil {
		t.Errorf("Rows(nil) = %v, want nil", got)
	}
	if diff := cmp.Diff([]float64{30, 10}, Select([]float64{10, 20, 30}, []int{2, 0})); diff != "" {
		t.Errorf("Select mismatch (-want +got):\n%s", diff)
	}
}
