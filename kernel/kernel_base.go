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

// Float is the set of element types the kernels accept.
type Float interface {
	~float32 | ~float64
}

// OuterProduct computes cBlock = aBlock * b.
//
//   - aBlock is rows x n (row-major)
//   - b is n x n (row-major)
//   - cBlock is rows x n (row-major), overwritten
//
// Slices shorter than those shapes panic.
func OuterProduct[T Float](aBlock, b, cBlock []T, rows, n int) {
	zeroRows(cBlock, 0, rows, n)
	for k := range n {
		accumulateRows(aBlock, b[k*n:(k+1)*n], cBlock, 0, rows, n, k)
	}
}

// zeroRows clears rows [start, end) of c.
func zeroRows[T Float](c []T, start, end, n int) {
	clear(c[start*n : end*n])
}

// accumulateRows adds aBlock[i, k] * bRow into row i of c for i in [start, end).
func accumulateRows[T Float](aBlock, bRow, c []T, start, end, n, k int) {
	for i := start; i < end; i++ {
		aik := aBlock[i*n+k]
		cRow := c[i*n : (i+1)*n]
		for j, bkj := range bRow {
			// The conversion keeps the compiler from fusing into an FMA.
			cRow[j] += T(aik * bkj)
		}
	}
}

// Reference computes c = a * b for a (m x n) and b (n x n) with the naive
// i-j-k triple loop. It is the correctness baseline for the kernels.
func Reference[T Float](a, b, c []T, m, n int) {
	for i := range m {
		for j := range n {
			var sum T
			for k := range n {
				sum += T(a[i*n+k] * b[k*n+j])
			}
			c[i*n+j] = sum
		}
	}
}

// OuterProductFloat64 is the non-generic version for float64.
func OuterProductFloat64(aBlock, b, cBlock []float64, rows, n int) {
	OuterProduct(aBlock, b, cBlock, rows, n)
}

// OuterProductFloat32 is the non-generic version for float32.
func OuterProductFloat32(aBlock, b, cBlock []float32, rows, n int) {
	OuterProduct(aBlock, b, cBlock, rows, n)
}
