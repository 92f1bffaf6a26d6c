// Copyright 2026 HPC-uni-tn-2025 Authors. SPDX-License-Identifier: Apache-2.0

package matrix

import "math/rand/v2"

// Random returns an NxN matrix filled with uniform values in [0, 1) drawn
// from a PCG generator seeded with seed.
func Random(n int, seed uint64) *Global {
	g := NewGlobal(n)
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range g.data {
		g.data[i] = r.Float64()
	}
	return g
}
