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

// Package kernel provides the local multiply kernel run by each worker of the
// distributed matrix product: given a block of rows of A and the full B, it
// computes the matching block of rows of C.
//
// The kernel uses outer-product accumulation. The shared dimension k is the
// outermost loop and every step adds a scaled row of B into each row of C:
//
//	for k := range n {
//	    for i := range rows {
//	        C[i, :] += A[i, k] * B[k, :]
//	    }
//	}
//
// Row i of C is only ever written while processing row i, so the rows can be
// split across goroutines without locks. ParallelOuterProduct does exactly
// that and still adds the k terms of every element in ascending order, so its
// output is bit-for-bit identical to OuterProduct.
//
// Example usage:
//
//	// cBlock = aBlock * b where aBlock is rows x n, b is n x n
//	kernel.OuterProduct(aBlock, b, cBlock, rows, n)
//
//	pool := workerpool.New(0)
//	defer pool.Close()
//	kernel.ParallelOuterProduct(pool, aBlock, b, cBlock, rows, n)
package kernel
