// Copyright 2026 HPC-uni-tn-2025 Authors. SPDX-License-Identifier: Apache-2.0

package distmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/saadrza/HPC-uni-tn-2025/matrix"
)

// Verify recomputes a*b with gonum and compares it with c. Elements may differ
// by at most 1e-9*N, which covers the different summation order.
func Verify(a, b, c *matrix.Global) error {
	n := a.Dim()
	if b.Dim() != n || c.Dim() != n {
		return fmt.Errorf("%w: operands are %dx%d, %dx%d and %dx%d",
			ErrVerification, n, n, b.Dim(), b.Dim(), c.Dim(), c.Dim())
	}
	if n == 0 {
		return nil
	}

	var want mat.Dense
	want.Mul(mat.NewDense(n, n, a.Data()), mat.NewDense(n, n, b.Data()))
	got := mat.NewDense(n, n, c.Data())

	tol := 1e-9 * float64(n)
	if !mat.EqualApprox(&want, got, tol) {
		diff := floats.Distance(want.RawMatrix().Data, c.Data(), math.Inf(1))
		return fmt.Errorf("%w: max abs difference %g exceeds %g", ErrVerification, diff, tol)
	}
	return nil
}
