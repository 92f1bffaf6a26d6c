// Copyright 2026 HPC-uni-tn-2025 Authors
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

package matrix

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every *ConfigurationError.
var ErrConfiguration = errors.New("matrix: invalid configuration")

// ConfigurationError reports a (dimension, workers) pair that cannot be
// decomposed into equal row blocks.
type ConfigurationError struct {
	N int // global matrix dimension
	P int // number of workers
}

func (e *ConfigurationError) Error() string {
	if e.N <= 0 || e.P <= 0 {
		return fmt.Sprintf("matrix dimension (%d) and number of workers (%d) must be positive", e.N, e.P)
	}
	return fmt.Sprintf("matrix dimension (%d) must be divisible by number of workers (%d)", e.N, e.P)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Layout describes how an NxN matrix is split into P contiguous row blocks,
// one per worker. Worker r owns rows [r*RowsPerWorker, (r+1)*RowsPerWorker).
type Layout struct {
	N             int
	P             int
	RowsPerWorker int
}

// Decompose validates that n rows split evenly across p workers and returns
// the resulting layout. Every worker must call it with the same (n, p) before
// taking part in any collective operation, so that all of them reach the
// same decision.
func Decompose(n, p int) (Layout, error) {
	if n <= 0 || p <= 0 || n%p != 0 {
		return Layout{}, &ConfigurationError{N: n, P: p}
	}
	return Layout{N: n, P: p, RowsPerWorker: n / p}, nil
}

// BlockLen returns the number of elements in one row block.
func (l Layout) BlockLen() int {
	return l.RowsPerWorker * l.N
}

// MatrixLen returns the number of elements in the full NxN matrix.
func (l Layout) MatrixLen() int {
	return l.N * l.N
}

// RowRange returns the half-open range of global rows owned by rank.
func (l Layout) RowRange(rank int) (start, end int) {
	start = rank * l.RowsPerWorker
	return start, start + l.RowsPerWorker
}

// BlockRange returns the half-open range of flat row-major element indices
// owned by rank.
func (l Layout) BlockRange(rank int) (start, end int) {
	start = rank * l.BlockLen()
	return start, start + l.BlockLen()
}

// Owner returns the rank that owns global row.
func (l Layout) Owner(row int) int {
	return row / l.RowsPerWorker
}
