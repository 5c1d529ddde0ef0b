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

package aggregate

import "fmt"

// aggregationState tracks which operations an accumulator still accepts.
type aggregationState int

const (
	// open accepts Add, Merge and Result.
	open aggregationState = iota
	// merged was consumed by a Merge into another accumulator.
	merged
	// resultReturned has handed out its result.
	resultReturned
)

func (s aggregationState) String() string {
	switch s {
	case open:
		return "open"
	case merged:
		return "merged"
	case resultReturned:
		return "result returned"
	}
	return fmt.Sprintf("aggregationState(%d)", int(s))
}

// check returns an error naming op and who if the accumulator is not open.
func (s aggregationState) check(who, op string) error {
	if s == open {
		return nil
	}
	return fmt.Errorf("%s cannot %s: it is %v", who, op, s)
}
