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
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Environment variables consulted by ThreadsFromEnv, in order.
const (
	ThreadsEnv    = "DISTMM_THREADS"
	OMPThreadsEnv = "OMP_NUM_THREADS"
)

// AllThreads is the Options.Threads value selecting GOMAXPROCS workers.
const AllThreads = -1

// Options configures one rank of a distributed multiply. Every rank of a
// group must use the same N and the same Threads mode.
type Options struct {
	// N is the matrix dimension.
	N int

	// Threads is the size of each rank's local worker pool. 0 runs the
	// kernel on the calling goroutine only, AllThreads uses GOMAXPROCS.
	Threads int

	// Clock returns the current time. It is read immediately before and
	// after the local kernel. Defaults to time.Now.
	Clock func() time.Time

	// Verify makes the coordinator check C against an independent product.
	Verify bool

	// CheckAgreement makes the ranks confirm they share (N, P) before any
	// data is exchanged.
	CheckAgreement bool

	// Log receives per-rank progress lines, one Write call per line. Nil
	// disables them. Ranks of an in-process group share the Options value,
	// so the writer must be safe for concurrent use.
	Log io.Writer
}

// DefaultOptions returns the options for an NxN multiply with the thread
// count taken from the environment.
func DefaultOptions(n int) Options {
	return Options{
		N:              n,
		Threads:        ThreadsFromEnv(),
		Clock:          time.Now,
		CheckAgreement: true,
	}
}

// allThreadsWord is the DISTMM_THREADS value, in any letter case, that
// selects AllThreads.
const allThreadsWord = "all"

// ThreadsFromEnv returns the thread count set in DISTMM_THREADS, falling back
// to OMP_NUM_THREADS. DISTMM_THREADS also accepts "all" in any case for
// AllThreads. Unset or invalid values yield 0.
func ThreadsFromEnv() int {
	for _, key := range []string{ThreadsEnv, OMPThreadsEnv} {
		val := strings.TrimSpace(os.Getenv(key))
		if val == "" {
			continue
		}
		if key == ThreadsEnv && cases.Fold().String(val) == allThreadsWord {
			return AllThreads
		}
		if n, err := strconv.Atoi(val); err == nil && n >= AllThreads {
			return n
		}
	}
	return 0
}

// Hybrid reports whether the options enable the intra-rank worker pool.
func (o Options) Hybrid() bool {
	return o.Threads != 0
}

func (o Options) clock() func() time.Time {
	if o.Clock == nil {
		return time.Now
	}
	return o.Clock
}
