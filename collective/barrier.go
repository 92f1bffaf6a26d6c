// Copyright 2026 HPC-uni-tn-2025 Authors. SPDX-License-Identifier: Apache-2.0

package collective

import (
	"context"
	"sync"
)

// barrier is a reusable rendezvous point for a fixed number of parties.
// Once broken, every current and future wait fails with the breaking error.
type barrier struct {
	mu      sync.Mutex
	parties int
	arrived int
	release chan struct{} // closed when the current generation completes
	broken  chan struct{} // closed by abort
	err     error
}

func newBarrier(parties int) *barrier {
	return &barrier{
		parties: parties,
		release: make(chan struct{}),
		broken:  make(chan struct{}),
	}
}

// wait blocks until all parties have called wait for the current generation,
// the barrier is broken, or ctx is done. A generation that completed always
// wins over a concurrent break.
func (b *barrier) wait(ctx context.Context) error {
	b.mu.Lock()
	if b.err != nil {
		err := b.err
		b.mu.Unlock()
		return err
	}
	release := b.release
	b.arrived++
	if b.arrived == b.parties {
		b.arrived = 0
		b.release = make(chan struct{})
		close(release)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	select {
	case <-release:
		return nil
	case <-b.broken:
	case <-ctx.Done():
		b.abort(ctx.Err())
	}

	select {
	case <-release:
		return nil
	default:
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// abort breaks the barrier with err. Only the first call has an effect.
func (b *barrier) abort(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
		close(b.broken)
	}
}
