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
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/saadrza/HPC-uni-tn-2025/collective"
	"github.com/saadrza/HPC-uni-tn-2025/kernel"
	"github.com/saadrza/HPC-uni-tn-2025/matrix"
)

var (
	fixedA = [][]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{1, 1, 0, 0},
		{0, 0, 1, 1},
	}
	fixedB = [][]float64{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10, 11, 12},
		{13, 14, 15, 16},
	}
	fixedC = [][]float64{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{6, 8, 10, 12},
		{22, 24, 26, 28},
	}
)

func mustGlobal(t *testing.T, rows [][]float64) *matrix.Global {
	t.Helper()
	g, err := matrix.GlobalFromRows(rows)
	require.NoError(t, err)
	return g
}

// stepClock returns a clock that alternates between t0 and t0+d, so every
// kernel measured with it takes exactly d.
func stepClock(d time.Duration) func() time.Time {
	t0 := time.Unix(1000, 0)
	calls := 0
	return func() time.Time {
		calls++
		if calls%2 == 1 {
			return t0
		}
		return t0.Add(d)
	}
}

// runGroup multiplies a and b over an in-process group of p ranks. optsFor
// returns the options of each rank.
func runGroup(t *testing.T, p int, a, b *matrix.Global, optsFor func(rank int) Options) (*Report, *matrix.Global, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := matrix.NewGlobal(a.Dim())
	var report *Report
	err := collective.Run(ctx, p, func(ctx context.Context, comm collective.Communicator) error {
		r, err := Run(ctx, comm, optsFor(comm.Rank()), a, b, c)
		if comm.Rank() == collective.Coordinator {
			report = r
		} else if r != nil {
			return errors.New("worker produced a report")
		}
		return err
	})
	return report, c, err
}

func TestFixedProduct(t *testing.T) {
	a, b := mustGlobal(t, fixedA), mustGlobal(t, fixedB)
	for _, p := range []int{1, 2, 4} {
		for _, threads := range []int{0, 2} {
			report, c, err := runGroup(t, p, a, b, func(int) Options {
				opts := DefaultOptions(4)
				opts.Threads = threads
				opts.Verify = true
				return opts
			})
			require.NoError(t, err, "p=%d threads=%d", p, threads)
			require.Equal(t, fixedC, c.Rows(), "p=%d threads=%d", p, threads)
			require.Equal(t, 4, report.N)
			require.Equal(t, p, report.P)
			require.Equal(t, threads, report.Threads)
		}
	}
}

func TestMatchesReference(t *testing.T) {
	const n = 24
	a, b := matrix.Random(n, 1), matrix.Random(n, 2)
	want := make([]float64, n*n)
	kernel.Reference(a.Data(), b.Data(), want, n, n)

	for _, p := range []int{1, 2, 3, 4, 6, 8, 12, 24} {
		_, c, err := runGroup(t, p, a, b, func(int) Options { return DefaultOptions(n) })
		require.NoError(t, err, "p=%d", p)
		if diff := cmp.Diff(want, c.Data(), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
			t.Errorf("p=%d: mismatch (-want +got):\n%s", p, diff)
		}
	}
}

func TestHybridMatchesDistributed(t *testing.T) {
	const n = 32
	a, b := matrix.Random(n, 3), matrix.Random(n, 4)

	_, serial, err := runGroup(t, 4, a, b, func(int) Options {
		opts := DefaultOptions(n)
		opts.Threads = 0
		return opts
	})
	require.NoError(t, err)
	for _, threads := range []int{1, 3, AllThreads} {
		report, hybrid, err := runGroup(t, 4, a, b, func(int) Options {
			opts := DefaultOptions(n)
			opts.Threads = threads
			return opts
		})
		require.NoError(t, err)
		require.True(t, report.Hybrid())
		// Bitwise: the same k order is used for every element.
		require.Equal(t, serial.Data(), hybrid.Data(), "threads=%d", threads)
	}
}

func TestZeroAndIdentity(t *testing.T) {
	const n = 6
	a := matrix.Random(n, 5)
	identity := matrix.NewGlobal(n)
	for i := range n {
		identity.Set(i, i, 1)
	}
	_, c, err := runGroup(t, 3, a, identity, func(int) Options { return DefaultOptions(n) })
	require.NoError(t, err)
	require.Equal(t, a.Data(), c.Data())

	_, c, err = runGroup(t, 3, a, matrix.NewGlobal(n), func(int) Options { return DefaultOptions(n) })
	require.NoError(t, err)
	require.Equal(t, make([]float64, n*n), c.Data())
}

func TestMaxElapsedAcrossRanks(t *testing.T) {
	elapsed := []time.Duration{10 * time.Millisecond, 50 * time.Millisecond, 20 * time.Millisecond}
	a, b := matrix.Random(3, 6), matrix.Random(3, 7)
	report, _, err := runGroup(t, 3, a, b, func(rank int) Options {
		opts := DefaultOptions(3)
		opts.Threads = 0
		opts.Clock = stepClock(elapsed[rank])
		return opts
	})
	require.NoError(t, err)
	require.InDelta(t, 0.05, report.MaxElapsed, 1e-12)
	require.InDelta(t, 0.01, report.Elapsed, 1e-12)
	require.Equal(t,
		"MPI 3x3 matrix multiplication (outer-product) took 0.050000 seconds (max across ranks)",
		report.String())
}

// recorder is a Communicator that counts calls and fails all of them.
type recorder struct {
	rank, size int
	mu         sync.Mutex
	calls      int
}

var errUnexpectedCall = errors.New("unexpected collective call")

func (r *recorder) Rank() int { return r.rank }
func (r *recorder) Size() int { return r.size }
func (r *recorder) Close() error { return nil }

func (r *recorder) record() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return errUnexpectedCall
}

func (r *recorder) Broadcast(context.Context, []float64, int) error { return r.record() }
func (r *recorder) Scatter(context.Context, []float64, []float64, int) error {
	return r.record()
}
func (r *recorder) Gather(context.Context, []float64, []float64, int) error {
	return r.record()
}
func (r *recorder) ReduceMax(_ context.Context, v float64, _ int) (float64, error) {
	return v, r.record()
}

func TestIndivisibleRejectedBeforeCommunication(t *testing.T) {
	const n, p = 10, 3
	a, b, c := matrix.NewGlobal(n), matrix.NewGlobal(n), matrix.NewGlobal(n)
	for rank := range p {
		comm := &recorder{rank: rank, size: p}
		_, err := Run(context.Background(), comm, DefaultOptions(n), a, b, c)
		require.ErrorIs(t, err, matrix.ErrConfiguration, "rank %d", rank)

		var cfg *matrix.ConfigurationError
		require.ErrorAs(t, err, &cfg)
		require.Equal(t, n, cfg.N)
		require.Equal(t, p, cfg.P)
		require.Equal(t, "matrix dimension (10) must be divisible by number of workers (3)", err.Error())
		require.Zero(t, comm.calls, "rank %d called a collective", rank)
	}
}

func TestIndivisibleOverGroup(t *testing.T) {
	a, b := matrix.NewGlobal(10), matrix.NewGlobal(10)
	_, _, err := runGroup(t, 3, a, b, func(int) Options { return DefaultOptions(10) })
	require.ErrorIs(t, err, matrix.ErrConfiguration)
}

func TestInconsistentConfig(t *testing.T) {
	a, b := matrix.NewGlobal(4), matrix.NewGlobal(4)
	c := matrix.NewGlobal(4)
	errs := make([]error, 2)
	err := collective.Run(context.Background(), 2, func(ctx context.Context, comm collective.Communicator) error {
		opts := DefaultOptions(4)
		if comm.Rank() == 1 {
			opts.N = 6
		}
		_, errs[comm.Rank()] = Run(ctx, comm, opts, a, b, c)
		return errs[comm.Rank()]
	})
	require.ErrorIs(t, err, ErrInconsistentConfig)
	for rank, err := range errs {
		require.ErrorIs(t, err, ErrInconsistentConfig, "rank %d", rank)
	}
}

func TestWrongRole(t *testing.T) {
	g := matrix.NewGlobal(2)
	_, err := RunCoordinator(context.Background(), &recorder{rank: 1, size: 2}, DefaultOptions(2), g, g, g)
	require.ErrorIs(t, err, ErrRole)

	err = RunWorker(context.Background(), &recorder{rank: 0, size: 2}, DefaultOptions(2))
	require.ErrorIs(t, err, ErrRole)
}

func TestCoordinatorRejectsWrongShape(t *testing.T) {
	comm := &recorder{rank: 0, size: 2}
	_, err := RunCoordinator(context.Background(), comm, DefaultOptions(4),
		matrix.NewGlobal(4), matrix.NewGlobal(2), matrix.NewGlobal(4))
	require.ErrorIs(t, err, ErrShape)
	require.Zero(t, comm.calls)

	// The shape is checked first, even when (N, P) is also invalid.
	comm = &recorder{rank: 0, size: 3}
	_, err = RunCoordinator(context.Background(), comm, DefaultOptions(10),
		matrix.NewGlobal(10), nil, matrix.NewGlobal(10))
	require.ErrorIs(t, err, ErrShape)
	require.NotErrorIs(t, err, matrix.ErrConfiguration)
	require.Zero(t, comm.calls)

	// A non-positive N is a configuration error, not a shape error.
	_, err = RunCoordinator(context.Background(), comm, DefaultOptions(-5), nil, nil, nil)
	require.ErrorIs(t, err, matrix.ErrConfiguration)
	require.Zero(t, comm.calls)
}

func TestWrongShapeReleasesWorkers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := matrix.NewGlobal(4)
	errs := make([]error, 3)
	err := collective.Run(ctx, 3, func(ctx context.Context, comm collective.Communicator) error {
		_, errs[comm.Rank()] = Run(ctx, comm, DefaultOptions(6), a, a, a)
		return errs[comm.Rank()]
	})
	require.ErrorIs(t, err, ErrShape)
	require.ErrorIs(t, errs[collective.Coordinator], ErrShape)
	for rank := 1; rank < 3; rank++ {
		require.Error(t, errs[rank], "rank %d", rank)
	}
	require.NoError(t, ctx.Err(), "workers were released by the deadline, not by the coordinator")
}

func TestTransportErrorNamesPhase(t *testing.T) {
	opts := DefaultOptions(2)
	opts.CheckAgreement = false
	err := RunWorker(context.Background(), &recorder{rank: 1, size: 2}, opts)
	require.ErrorIs(t, err, errUnexpectedCall)
	require.True(t, strings.HasPrefix(err.Error(), "distmm: broadcast B:"), err.Error())
}

func TestProgressLog(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	a, b := mustGlobal(t, fixedA), mustGlobal(t, fixedB)
	_, _, err := runGroup(t, 2, a, b, func(int) Options {
		opts := DefaultOptions(4)
		opts.Log = &lockedWriter{mu: &mu, w: &buf}
		return opts
	})
	require.NoError(t, err)
	out := buf.String()
	for _, want := range []string{"rank 0: broadcast done", "rank 1: scatter done, rows [2, 4)", "rank 1: gather done"} {
		require.Contains(t, out, want)
	}
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func TestVerifyDetectsMismatch(t *testing.T) {
	a, b := mustGlobal(t, fixedA), mustGlobal(t, fixedB)
	c := mustGlobal(t, fixedC)
	require.NoError(t, Verify(a, b, c))

	c.Set(3, 3, 29)
	require.ErrorIs(t, Verify(a, b, c), ErrVerification)
	require.ErrorIs(t, Verify(a, b, matrix.NewGlobal(3)), ErrVerification)
}
