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
	"fmt"
	"sort"
	"strings"
)

// Loader produces a Dataset.
type Loader func() (*Dataset, error)

var loaders = map[string]Loader{
	"synthetic": func() (*Dataset, error) {
		return Synthetic(SyntheticOptions{Seed: 0})
	},
	"synthetic_categorical": func() (*Dataset, error) {
		return Synthetic(SyntheticOptions{Seed: 0, Categorical: true})
	},
}

// Register makes a dataset available by name. It replaces any loader
// previously registered under that name.
func Register(name string, l Loader) {
	loaders[name] = l
}

// Names returns the registered dataset names in sorted order.
func Names() []string {
	var names []string
	for n := range loaders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get loads the dataset registered under name and validates it.
func Get(name string) (*Dataset, error) {
	l, ok := loaders[name]
	if !ok {
		return nil, fmt.Errorf("unknown dataset %q, must be one of %s", name, strings.Join(Names(), ", "))
	}
	ds, err := l()
	if err != nil {
		return nil, fmt.Errorf("couldn't load dataset %q: %w", name, err)
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("dataset %q is invalid: %w", name, err)
	}
	return ds, nil
}
