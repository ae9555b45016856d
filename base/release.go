//
// Copyright 2020 Google LLC
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

package base

// ReleaseNode is a value evaluated for a graph node, together with the
// privacy spent to produce it and whether it may be treated as public.
type ReleaseNode struct {
	Value         *Value
	PrivacyUsages []PrivacyUsage
	// Public marks the value as safe to use for static analysis: either it
	// was supplied as public by the analyst, or it came out of a mechanism.
	Public bool
}

// Release maps node ids to evaluated values.
type Release map[uint32]*ReleaseNode

// Accuracy pairs an error magnitude with the probability alpha that the
// true error exceeds it.
type Accuracy struct {
	Value float64
	Alpha float64
}
