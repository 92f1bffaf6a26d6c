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
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// listenerFD is the descriptor under which rank 0 inherits the coordinator
// listener: ExtraFiles[0] becomes fd 3 in the child.
const listenerFD = 3

// abortGrace is how long the other ranks may keep running after a worker
// rank failed. It leaves rank 0 time to notice the failure and report it.
const abortGrace = 5 * time.Second

func newLaunchCmd() *cobra.Command {
	var f jobFlags
	var p int
	var listen string
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Run every rank as a separate process connected over TCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if p <= 0 {
				return fmt.Errorf("number of ranks (%d) must be positive", p)
			}
			exe, err := os.Executable()
			if err != nil {
				return err
			}

			// The listener exists before any worker starts, so workers can
			// dial right away. Rank 0 inherits it instead of binding again.
			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return err
			}
			lnFile, err := ln.(*net.TCPListener).File()
			ln.Close()
			if err != nil {
				return err
			}
			defer lnFile.Close()

			ctx, cancel := f.context(cmd.Context())
			defer cancel()

			job := uuid.New()
			args := f.workerArgs()
			env := append(os.Environ(),
				sizeEnv+"="+strconv.Itoa(p),
				jobEnv+"="+job.String(),
				coordinatorEnv+"="+ln.Addr().String(),
			)

			// A failed worker must not take rank 0 down with it: rank 0 is
			// the one that reports the error. Worker failures only start a
			// grace period, after which the remaining ranks are killed.
			stdout := &syncWriter{w: cmd.OutOrStdout()}
			stderr := &syncWriter{w: cmd.ErrOrStderr()}
			var eg errgroup.Group
			for rank := range p {
				child := exec.CommandContext(ctx, exe, args...)
				child.Env = append(env[:len(env):len(env)], rankEnv+"="+strconv.Itoa(rank))
				child.Stdout = stdout
				child.Stderr = stderr
				if rank == 0 {
					child.ExtraFiles = []*os.File{lnFile}
				}
				if err := child.Start(); err != nil {
					cancel()
					eg.Wait()
					return fmt.Errorf("starting rank %d: %w", rank, err)
				}
				eg.Go(func() error {
					if err := child.Wait(); err != nil {
						if rank != 0 {
							time.AfterFunc(abortGrace, cancel)
						}
						return fmt.Errorf("rank %d: %w", rank, err)
					}
					return nil
				})
			}
			// Rank 0 reports its own errors; the launcher only sets the exit
			// status.
			err = eg.Wait()
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return silent(err)
			}
			return err
		},
	}
	f.register(cmd)
	cmd.Flags().IntVarP(&p, "p", "p", 4, "number of ranks P")
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:0", "coordinator listen address")
	return cmd
}

// workerArgs returns the worker command line carrying the job flags. The
// seed is resolved here so every rank sees the same value.
func (f *jobFlags) workerArgs() []string {
	args := []string{
		"worker",
		"-n", strconv.Itoa(f.n),
		"--threads", strconv.Itoa(f.threads),
		"--seed", strconv.FormatUint(f.resolveSeed(), 10),
	}
	if f.timeout > 0 {
		args = append(args, "--timeout", f.timeout.String())
	}
	for _, flag := range []struct {
		name string
		set  bool
	}{{"--verify", f.verify}, {"--no-agreement", f.noAgreement}, {"--verbose", f.verbose}} {
		if flag.set {
			args = append(args, flag.name)
		}
	}
	return args
}
