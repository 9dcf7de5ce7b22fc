// Copyright 2026 Quayside Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gosettle

import "errors"

// Session failures propagate synchronously through every enclosing Acquire
// call; there is no partial-success mode
var (
	// ErrUnsettledBalance is returned when the outermost lock is released
	// while some (participant, currency) delta is non-zero
	ErrUnsettledBalance = errors.New("unsettled balance at outermost release")
	// ErrNoActiveLock is returned when a settlement primitive or cursor query
	// is used with no lock open
	ErrNoActiveLock = errors.New("no active lock")
	// ErrInvalidNesting indicates an internal lock bookkeeping inconsistency
	ErrInvalidNesting = errors.New("invalid lock nesting")
)
