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
	"context"
	"fmt"

	"github.com/saadrza/HPC-uni-tn-2025/collective"
	"github.com/saadrza/HPC-uni-tn-2025/kernel"
	"github.com/saadrza/HPC-uni-tn-2025/matrix"
	"github.com/saadrza/HPC-uni-tn-2025/workerpool"
)

// Run dispatches on comm's rank: the coordinator multiplies a and b into c
// and returns the report, every other rank ignores the matrices and returns
// a nil report.
func Run(ctx context.Context, comm collective.Communicator, opts Options, a, b, c *matrix.Global) (*Report, error) {
	if comm.Rank() == collective.Coordinator {
		return RunCoordinator(ctx, comm, opts, a, b, c)
	}
	return nil, RunWorker(ctx, comm, opts)
}

// RunCoordinator runs the coordinator's side of C = A*B. A and B are read,
// C is overwritten. It returns once C has been assembled and the maximum
// kernel time across ranks is known.
//
// a, b and c must be opts.N x opts.N. This is a contract of the coordinator
// caller alone, since workers never see the matrices: a wrong shape fails
// with ErrShape before any validation or collective call, and the workers
// only learn of it when the coordinator leaves the group. The caller must
// not touch a, b or c while RunCoordinator runs.
func RunCoordinator(ctx context.Context, comm collective.Communicator, opts Options, a, b, c *matrix.Global) (*Report, error) {
	if comm.Rank() != collective.Coordinator {
		return nil, fmt.Errorf("%w: coordinator called at rank %d", ErrRole, comm.Rank())
	}
	if err := checkShapes(opts.N, a, b, c); err != nil {
		return nil, err
	}
	r, err := newRank(comm, opts)
	if err != nil {
		return nil, err
	}

	elapsed, maxElapsed, err := r.multiply(ctx, a.Data(), b.Data(), c.Data())
	if err != nil {
		return nil, err
	}
	if opts.Verify {
		if err := Verify(a, b, c); err != nil {
			return nil, err
		}
		r.logf("verified")
	}
	return &Report{
		N:          opts.N,
		P:          comm.Size(),
		Threads:    r.threads(),
		MaxElapsed: maxElapsed,
		Elapsed:    elapsed,
	}, nil
}

// RunWorker runs a non-coordinating rank's side of the multiply. Workers
// never see the full A or C: they receive their row block of A and a
// replica of B, and send back their row block of C.
func RunWorker(ctx context.Context, comm collective.Communicator, opts Options) error {
	if comm.Rank() == collective.Coordinator {
		return fmt.Errorf("%w: worker called at the coordinator", ErrRole)
	}
	r, err := newRank(comm, opts)
	if err != nil {
		return err
	}
	_, _, err = r.multiply(ctx, nil, make([]float64, r.layout.MatrixLen()), nil)
	return err
}

// checkShapes verifies that a, b and c are n x n. A non-positive n is left to
// Decompose, which reports it as a configuration error.
func checkShapes(n int, a, b, c *matrix.Global) error {
	if n <= 0 {
		return nil
	}
	for _, m := range []struct {
		name string
		g    *matrix.Global
	}{{"A", a}, {"B", b}, {"C", c}} {
		if m.g == nil || m.g.Dim() != n {
			return fmt.Errorf("%w: %s must be a %dx%d matrix", ErrShape, m.name, n, n)
		}
	}
	return nil
}

// rank holds one member's state for a single multiply.
type rank struct {
	comm    collective.Communicator
	opts    Options
	layout  matrix.Layout
	workers int // workers used by the kernel, 0 when single-threaded
}

// newRank validates the configuration. It runs before any collective call,
// so an invalid (N, P) fails identically at every rank without traffic.
func newRank(comm collective.Communicator, opts Options) (*rank, error) {
	layout, err := matrix.Decompose(opts.N, comm.Size())
	if err != nil {
		return nil, err
	}
	return &rank{comm: comm, opts: opts, layout: layout}, nil
}

func (r *rank) logf(format string, args ...any) {
	if r.opts.Log == nil {
		return
	}
	fmt.Fprintf(r.opts.Log, "rank %d: %s\n", r.comm.Rank(), fmt.Sprintf(format, args...))
}

func (r *rank) threads() int {
	return r.workers
}

// multiply runs the exchange. a and c are the full matrices at the
// coordinator and nil elsewhere; b is the full B at the coordinator and the
// replica buffer elsewhere. It returns this rank's kernel time and, at the
// coordinator, the maximum over all ranks.
func (r *rank) multiply(ctx context.Context, a, b, c []float64) (elapsed, maxElapsed float64, err error) {
	const root = collective.Coordinator
	n := r.layout.N

	if r.opts.CheckAgreement {
		if err := r.agree(ctx); err != nil {
			return 0, 0, err
		}
	}

	if err := r.comm.Broadcast(ctx, b, root); err != nil {
		return 0, 0, fmt.Errorf("distmm: broadcast B: %w", err)
	}
	replica := matrix.NewReplica(n, b)
	r.logf("broadcast done")

	aBlock := matrix.NewRowBlock(r.layout, r.comm.Rank())
	if err := r.comm.Scatter(ctx, a, aBlock.Data(), root); err != nil {
		return 0, 0, fmt.Errorf("distmm: scatter A: %w", err)
	}
	r.logf("scatter done, rows [%d, %d)", aBlock.FirstRow(), aBlock.FirstRow()+aBlock.Rows())

	cBlock := matrix.NewRowBlock(r.layout, r.comm.Rank())
	elapsed = r.compute(aBlock, replica, cBlock)
	r.logf("kernel took %.6f s", elapsed)

	if err := r.comm.Gather(ctx, cBlock.Data(), c, root); err != nil {
		return 0, 0, fmt.Errorf("distmm: gather C: %w", err)
	}
	r.logf("gather done")

	maxElapsed, err = r.comm.ReduceMax(ctx, elapsed, root)
	if err != nil {
		return 0, 0, fmt.Errorf("distmm: reduce time: %w", err)
	}
	return elapsed, maxElapsed, nil
}

// compute runs the local kernel and returns its duration in seconds. Only
// the kernel itself is timed.
func (r *rank) compute(aBlock *matrix.RowBlock, b *matrix.Replica, cBlock *matrix.RowBlock) float64 {
	var pool *workerpool.Pool
	if r.opts.Hybrid() {
		workers := r.opts.Threads
		if workers == AllThreads {
			workers = 0
		}
		pool = workerpool.New(workers)
		defer pool.Close()
		r.workers = pool.NumWorkers()
	}

	clock := r.opts.clock()
	start := clock()
	if pool != nil {
		kernel.ParallelOuterProductFloat64(pool, aBlock.Data(), b.Data(), cBlock.Data(), aBlock.Rows(), b.Dim())
	} else {
		kernel.OuterProductFloat64(aBlock.Data(), b.Data(), cBlock.Data(), aBlock.Rows(), b.Dim())
	}
	return clock().Sub(start).Seconds()
}

// agree checks that every rank was started with the same (N, P). The
// coordinator gathers each rank's pair and broadcasts its verdict, so all
// ranks fail together with ErrInconsistentConfig on a mismatch.
func (r *rank) agree(ctx context.Context) error {
	const root = collective.Coordinator
	mine := []float64{float64(r.layout.N), float64(r.layout.P)}

	var all []float64
	if r.comm.Rank() == root {
		all = make([]float64, len(mine)*r.layout.P)
	}
	if err := r.comm.Gather(ctx, mine, all, root); err != nil {
		return fmt.Errorf("distmm: agreement: %w", err)
	}

	verdict := []float64{-1} // rank that disagrees, or -1
	if r.comm.Rank() == root {
		for other := range r.layout.P {
			if all[2*other] != mine[0] || all[2*other+1] != mine[1] {
				verdict[0] = float64(other)
				break
			}
		}
	}
	if err := r.comm.Broadcast(ctx, verdict, root); err != nil {
		return fmt.Errorf("distmm: agreement: %w", err)
	}
	if verdict[0] >= 0 {
		return fmt.Errorf("%w: rank %d does not use N=%d, P=%d",
			ErrInconsistentConfig, int(verdict[0]), r.layout.N, r.layout.P)
	}
	r.logf("configuration agreed, N=%d P=%d", r.layout.N, r.layout.P)
	return nil
}
