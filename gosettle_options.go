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

import (
	"log/slog"

	"github.com/quayside-io/gosettle/reserve"
)

// ManagerOptionFunc is a type that represents functions that modify the Manager config
type ManagerOptionFunc func(*Manager)

// WithLogger specifies the logger to use. If none is provided, slog.Default()
// is used
func WithLogger(logger *slog.Logger) ManagerOptionFunc {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithReserve specifies the value-transfer collaborator backing Settle and
// Take. If none is provided, an empty in-memory reserve is used
func WithReserve(r reserve.Reserve) ManagerOptionFunc {
	return func(m *Manager) {
		m.reserve = r
	}
}
