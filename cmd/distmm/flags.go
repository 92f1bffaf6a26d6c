// Copyright 2026 HPC-uni-tn-2025 Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/saadrza/HPC-uni-tn-2025/distmm"
	"github.com/saadrza/HPC-uni-tn-2025/matrix"
)

// jobFlags are shared by every subcommand that takes part in a multiply.
type jobFlags struct {
	n           int
	threads     int
	seed        uint64
	verify      bool
	noAgreement bool
	verbose     bool
	timeout     time.Duration
}

func (f *jobFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVarP(&f.n, "n", "n", 1024, "matrix dimension N")
	fs.IntVar(&f.threads, "threads", distmm.ThreadsFromEnv(),
		"kernel workers per rank, 0 for none, -1 for GOMAXPROCS (default from "+distmm.ThreadsEnv+" or "+distmm.OMPThreadsEnv+")")
	fs.Uint64Var(&f.seed, "seed", 0, "random seed for A and B, 0 uses the current time")
	fs.BoolVar(&f.verify, "verify", false, "check C against gonum")
	fs.BoolVar(&f.noAgreement, "no-agreement", false, "skip the (N, P) agreement step")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "print per-rank progress to stderr")
	fs.DurationVar(&f.timeout, "timeout", 0, "abort after this long, 0 for no limit")
}

func (f *jobFlags) options(log io.Writer) distmm.Options {
	opts := distmm.DefaultOptions(f.n)
	opts.Threads = f.threads
	opts.Verify = f.verify
	opts.CheckAgreement = !f.noAgreement
	if f.verbose {
		opts.Log = &syncWriter{w: log}
	}
	return opts
}

// syncWriter serializes writes from the ranks of one process.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// resolveSeed replaces a zero seed with one derived from the current time.
func (f *jobFlags) resolveSeed() uint64 {
	if f.seed == 0 {
		f.seed = uint64(time.Now().UnixNano())
	}
	return f.seed
}

// inputs returns the coordinator's matrices: random A and B and a zeroed C.
func (f *jobFlags) inputs() (a, b, c *matrix.Global) {
	seed := f.resolveSeed()
	return matrix.Random(f.n, seed), matrix.Random(f.n, seed+1), matrix.NewGlobal(f.n)
}

func (f *jobFlags) context(parent context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, f.timeout)
}

// Environment passed from launch to its workers.
const (
	rankEnv        = "DISTMM_RANK"
	sizeEnv        = "DISTMM_SIZE"
	jobEnv         = "DISTMM_JOB"
	coordinatorEnv = "DISTMM_COORDINATOR"
)

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}
