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

package kernel

import "github.com/saadrza/HPC-uni-tn-2025/workerpool"

// ParallelOuterProduct computes cBlock = aBlock * b like OuterProduct, with
// the rows split across the workers of pool.
//
// Both passes, zeroing and accumulation, use the pool's static row ranges.
// Each range runs the full k loop over its own rows, so a row of cBlock is
// owned by one goroutine for the whole call and the result matches
// OuterProduct exactly. A nil pool runs OuterProduct.
func ParallelOuterProduct[T Float](pool *workerpool.Pool, aBlock, b, cBlock []T, rows, n int) {
	if pool == nil || pool.NumWorkers() <= 1 || rows <= 1 {
		OuterProduct(aBlock, b, cBlock, rows, n)
		return
	}

	pool.ParallelFor(rows, func(start, end int) {
		zeroRows(cBlock, start, end, n)
	})

	pool.ParallelFor(rows, func(start, end int) {
		for k := range n {
			accumulateRows(aBlock, b[k*n:(k+1)*n], cBlock, start, end, n, k)
		}
	})
}

// ParallelOuterProductFloat64 is the non-generic version for float64.
func ParallelOuterProductFloat64(pool *workerpool.Pool, aBlock, b, cBlock []float64, rows, n int) {
	ParallelOuterProduct(pool, aBlock, b, cBlock, rows, n)
}

// ParallelOuterProductFloat32 is the non-generic version for float32.
func ParallelOuterProductFloat32(pool *workerpool.Pool, aBlock, b, cBlock []float32, rows, n int) {
	ParallelOuterProduct(pool, aBlock, b, cBlock, rows, n)
}
