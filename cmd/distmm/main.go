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

// Command distmm multiplies two random NxN matrices across P ranks and
// prints the slowest rank's kernel time.
//
// Usage:
//
//	distmm run -n 1024 -p 4             # P ranks as goroutines
//	distmm run -n 1024 -p 4 --threads 8 # hybrid: 8 kernel workers per rank
//	distmm launch -n 1024 -p 4          # P ranks as processes over TCP
//	distmm cpuinfo
//
// The worker subcommand is started by launch and is not meant to be run by
// hand.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "distmm",
		Short:         "Distributed dense matrix multiplication",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newRunCmd(), newLaunchCmd(), newWorkerCmd(), newCPUInfoCmd())
	return root
}

// errSilent marks errors that have already been reported, or that belong to
// a rank which must not print anything.
var errSilent = errors.New("silent")

type silentError struct {
	err error
}

func (e *silentError) Error() string { return e.err.Error() }
func (e *silentError) Unwrap() []error { return []error{e.err, errSilent} }

func silent(err error) error {
	if err == nil {
		return nil
	}
	return &silentError{err: err}
}
