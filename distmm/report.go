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

package distmm

import (
	"fmt"
	"io"
)

// Report describes a finished multiply. Only the coordinator produces one.
type Report struct {
	N       int
	P       int
	Threads int // workers per rank; 0 when the kernel ran single-threaded

	// MaxElapsed is the slowest rank's kernel time in seconds.
	MaxElapsed float64

	// Elapsed is the coordinator's own kernel time in seconds.
	Elapsed float64
}

// Hybrid reports whether the ranks used a local worker pool.
func (r *Report) Hybrid() bool {
	return r.Threads != 0
}

// Variant names the execution mode as the report line prints it, "Parallel
// Hybrid" or "MPI".
func (r *Report) Variant() string {
	if r.Hybrid() {
		return "Parallel Hybrid"
	}
	return "MPI"
}

// String returns the single report line without a trailing newline.
func (r *Report) String() string {
	algo := ""
	if !r.Hybrid() {
		algo = " (outer-product)"
	}
	return fmt.Sprintf("%s %dx%d matrix multiplication%s took %.6f seconds (max across ranks)",
		r.Variant(), r.N, r.N, algo, r.MaxElapsed)
}

// WriteTo writes the report line followed by a newline.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintln(w, r.String())
	return int64(n), err
}
