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

package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/saadrza/HPC-uni-tn-2025/collective"
	"github.com/saadrza/HPC-uni-tn-2025/distmm"
)

func newWorkerCmd() *cobra.Command {
	var f jobFlags
	var rank, size int
	var coordinator, job string
	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Run one rank of a launched job",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := f.context(cmd.Context())
			defer cancel()

			jobID, err := uuid.Parse(job)
			if err != nil {
				return roleError(rank, fmt.Errorf("invalid job id %q: %w", job, err))
			}
			comm, err := connect(ctx, rank, size, coordinator, jobID)
			if err != nil {
				return roleError(rank, err)
			}
			defer comm.Close()

			opts := f.options(cmd.ErrOrStderr())
			if rank != collective.Coordinator {
				return roleError(rank, distmm.RunWorker(ctx, comm, opts))
			}
			a, b, c := f.inputs()
			report, err := distmm.RunCoordinator(ctx, comm, opts, a, b, c)
			if err != nil {
				return err
			}
			_, err = report.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
	f.register(cmd)
	fs := cmd.Flags()
	fs.IntVar(&rank, "rank", envInt(rankEnv, 0), "this process's rank (default from "+rankEnv+")")
	fs.IntVar(&size, "size", envInt(sizeEnv, 1), "number of ranks (default from "+sizeEnv+")")
	fs.StringVar(&coordinator, "coordinator", os.Getenv(coordinatorEnv), "coordinator address (default from "+coordinatorEnv+")")
	fs.StringVar(&job, "job", os.Getenv(jobEnv), "job id (default from "+jobEnv+")")
	return cmd
}

// connect forms the TCP group. Rank 0 accepts on the listener inherited from
// launch, every other rank dials the coordinator.
func connect(ctx context.Context, rank, size int, coordinator string, job uuid.UUID) (*collective.TCP, error) {
	if rank != collective.Coordinator {
		return collective.Dial(ctx, coordinator, rank, size, job)
	}
	ln, err := net.FileListener(os.NewFile(listenerFD, "distmm-listener"))
	if err != nil {
		return nil, fmt.Errorf("coordinator listener: %w", err)
	}
	defer ln.Close()
	return collective.Accept(ctx, ln, size, job)
}

// roleError silences errors at every rank but the coordinator.
func roleError(rank int, err error) error {
	if rank == collective.Coordinator {
		return err
	}
	return silent(err)
}
