// Copyright 2026 HPC-uni-tn-2025 Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides the fixed set of local compute units a worker
// uses to split its row block. A Pool is created once per worker and reused
// for every kernel pass, so no goroutines are spawned per call.
//
// Work is always divided statically: ParallelFor hands each pool worker one
// contiguous range of indices, and the ranges differ in length by at most one.
// A given index therefore always lands in the same range for a fixed (n,
// workers) pair, which is what the row-ownership kernels rely on.
//
// Usage:
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	pool.ParallelFor(rows, func(start, end int) {
//	    processRows(start, end)
//	})
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a persistent worker pool. Workers are spawned once at creation and
// live until Close.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

// workItem is one range of a ParallelFor call.
type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New creates a pool with numWorkers workers. If numWorkers <= 0, uses
// GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan workItem, numWorkers),
	}
	for range numWorkers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close shuts the pool down. Calling Close multiple times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// Partition splits [0, n) into at most workers contiguous ranges whose
// lengths differ by at most one, longer ranges first. It returns the range
// boundaries: range i is [bounds[i], bounds[i+1]).
func Partition(n, workers int) []int {
	if n <= 0 {
		return []int{0}
	}
	workers = max(1, min(workers, n))
	base, extra := n/workers, n%workers

	bounds := make([]int, workers+1)
	for i := range workers {
		size := base
		if i < extra {
			size++
		}
		bounds[i+1] = bounds[i] + size
	}
	return bounds
}

// ParallelFor calls fn once per range of Partition(n, NumWorkers()) and
// blocks until every call has returned. A closed pool runs fn(0, n) on the
// calling goroutine.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if p.closed.Load() {
		fn(0, n)
		return
	}

	bounds := Partition(n, p.numWorkers)
	ranges := len(bounds) - 1
	if ranges == 1 {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	wg.Add(ranges)
	for i := range ranges {
		start, end := bounds[i], bounds[i+1]
		p.workC <- workItem{
			fn: func() {
				fn(start, end)
			},
			barrier: &wg,
		}
	}
	wg.Wait()
}
