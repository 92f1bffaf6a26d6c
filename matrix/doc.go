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

// Package matrix holds the dense square matrix types shared by the
// distributed multiply and the row-block decomposition that splits them
// across workers.
//
// Three storage types separate who may touch what:
//   - Global: a full NxN matrix, held by the coordinator only (A, B source, C).
//   - Replica: a read-only NxN copy held by every worker (B after broadcast).
//   - RowBlock: rows [r*N/P, (r+1)*N/P) owned by worker r (A_block, C_block).
//
// Example usage:
//
//	layout, err := matrix.Decompose(1000, 4) // 250 rows per worker
//	if err != nil {
//	    // errors.Is(err, matrix.ErrConfiguration)
//	}
//	start, end := layout.RowRange(2) // rows [500, 750)
package matrix
