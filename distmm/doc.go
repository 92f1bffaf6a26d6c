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

// Package distmm multiplies two NxN matrices across the members of a
// collective group.
//
// Rank 0, the coordinator, owns A, B and the result C. Every rank runs the
// same sequence of collective operations, rooted at the coordinator:
//
//	Broadcast(B)      every rank receives the full B
//	Scatter(A)        rank r receives rows [r*N/P, (r+1)*N/P) of A
//	local multiply    C_block = A_block * B, optionally on a worker pool
//	Gather(C_block)   the coordinator assembles C
//	ReduceMax(time)   the coordinator learns the slowest kernel time
//
// N must be divisible by the group size P. Every rank checks this before
// its first collective call, so a bad configuration is rejected everywhere
// without any communication.
//
// Example usage:
//
//	err := collective.Run(ctx, p, func(ctx context.Context, comm collective.Communicator) error {
//	    opts := distmm.DefaultOptions(n)
//	    if comm.Rank() != collective.Coordinator {
//	        return distmm.RunWorker(ctx, comm, opts)
//	    }
//	    c := matrix.NewGlobal(n)
//	    report, err := distmm.RunCoordinator(ctx, comm, opts, a, b, c)
//	    if err != nil {
//	        return err
//	    }
//	    _, err = report.WriteTo(os.Stdout)
//	    return err
//	})
package distmm
