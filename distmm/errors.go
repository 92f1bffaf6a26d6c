// Copyright 2026 HPC-uni-tn-2025 Authors. SPDX-License-Identifier: Apache-2.0

package distmm

import "errors"

var (
	// ErrInconsistentConfig is returned at every rank when the ranks of a
	// group do not agree on the matrix dimension or group size.
	ErrInconsistentConfig = errors.New("distmm: ranks disagree on configuration")

	// ErrVerification is returned by the coordinator when Options.Verify is
	// set and C does not match the reference product.
	ErrVerification = errors.New("distmm: result verification failed")

	// ErrShape is returned by the coordinator when A, B or C is not NxN.
	ErrShape = errors.New("distmm: matrix shape mismatch")

	// ErrRole is returned when the coordinator entry point is called at a
	// worker rank or the other way round.
	ErrRole = errors.New("distmm: wrong rank for role")
)
