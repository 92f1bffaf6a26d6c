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

package collective

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Group is an in-process group whose members are goroutines sharing one
// rendezvous barrier. Each operation takes two barrier generations: members
// publish their buffers, meet, move data, and meet again before the buffers
// may be reused.
type Group struct {
	size    int
	bar     *barrier
	slots   []slot
	members []*Member
}

// slot is what a member publishes for the operation in progress. Slot r is
// written only by member r, and only between two barrier generations.
type slot struct {
	kind  opKind
	seq   uint64
	root  int
	send  []float64
	recv  []float64
	value float64
}

// NewGroup creates a group of size members.
func NewGroup(size int) (*Group, error) {
	if size <= 0 {
		return nil, fmt.Errorf("collective: group size %d must be positive", size)
	}
	g := &Group{
		size:  size,
		bar:   newBarrier(size),
		slots: make([]slot, size),
	}
	g.members = make([]*Member, size)
	for rank := range size {
		g.members[rank] = &Member{group: g, rank: rank}
	}
	return g, nil
}

// Member returns the communicator for rank.
func (g *Group) Member(rank int) *Member {
	return g.members[rank]
}

// Run starts size goroutines, one per rank of a new Group, and calls fn in
// each with that rank's communicator. When a rank returns an error the
// context passed to the others is cancelled, so no rank stays blocked in a
// collective call. Run returns the first error.
//
// A rank whose fn succeeds is closed right away, so peers still expecting it
// fail with ErrPeerExited. A failing rank is closed only after its error has
// been recorded.
func Run(ctx context.Context, size int, fn func(ctx context.Context, comm Communicator) error) error {
	group, err := NewGroup(size)
	if err != nil {
		return err
	}
	defer func() {
		for _, m := range group.members {
			m.Close()
		}
	}()
	eg, ctx := errgroup.WithContext(ctx)
	for rank := range size {
		member := group.Member(rank)
		eg.Go(func() error {
			err := fn(ctx, member)
			if err == nil {
				member.Close()
			}
			return err
		})
	}
	return eg.Wait()
}

// Member is one rank of a Group. A Member must be used by one goroutine.
type Member struct {
	group     *Group
	rank      int
	seq       uint64
	closeOnce sync.Once
	closed    atomic.Bool
}

var _ Communicator = (*Member)(nil)

// Rank returns the member's rank.
func (m *Member) Rank() int {
	return m.rank
}

// Size returns the group size.
func (m *Member) Size() int {
	return m.group.size
}

// Close leaves the group. Members that wait for this one afterwards fail with
// ErrPeerExited.
func (m *Member) Close() error {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.group.bar.abort(ErrPeerExited)
	})
	return nil
}

// publish stores s in this member's slot and waits until every member has
// published. It then checks that all members agree on the operation.
func (m *Member) publish(ctx context.Context, s slot) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if err := checkRoot(s.root, m.group.size); err != nil {
		return err
	}
	m.seq++
	s.seq = m.seq
	m.group.slots[m.rank] = s
	if err := m.group.bar.wait(ctx); err != nil {
		return err
	}
	for rank, other := range m.group.slots {
		if other.kind != s.kind || other.seq != s.seq || other.root != s.root {
			return m.fail(fmt.Errorf("%w: rank %d issued %s #%d (root %d), rank %d issued %s #%d (root %d)",
				ErrProtocolViolation, m.rank, s.kind, s.seq, s.root, rank, other.kind, other.seq, other.root))
		}
	}
	return nil
}

// complete waits until every member has finished reading the published
// slots.
func (m *Member) complete(ctx context.Context) error {
	return m.group.bar.wait(ctx)
}

// fail breaks the group barrier so that every member observes err.
func (m *Member) fail(err error) error {
	m.group.bar.abort(err)
	return err
}

// Broadcast copies root's buf into buf at every member.
func (m *Member) Broadcast(ctx context.Context, buf []float64, root int) error {
	if err := m.publish(ctx, slot{kind: opBroadcast, root: root, send: buf}); err != nil {
		return err
	}
	src := m.group.slots[root].send
	for rank, other := range m.group.slots {
		if len(other.send) != len(src) {
			return m.fail(fmt.Errorf("%w: broadcast of %d elements, rank %d has %d",
				ErrProtocolViolation, len(src), rank, len(other.send)))
		}
	}
	if m.rank != root {
		copy(buf, src)
	}
	return m.complete(ctx)
}

// Scatter delivers block r of root's send into recv at member r.
func (m *Member) Scatter(ctx context.Context, send, recv []float64, root int) error {
	if err := m.publish(ctx, slot{kind: opScatter, root: root, send: send, recv: recv}); err != nil {
		return err
	}
	blockLen := len(m.group.slots[root].recv)
	if err := m.checkBlocks(func(s slot) []float64 { return s.recv }, blockLen, len(m.group.slots[root].send)); err != nil {
		return err
	}
	if m.rank == root && blockLen > 0 {
		for rank, block := range lo.Chunk(send, blockLen) {
			copy(m.group.slots[rank].recv, block)
		}
	}
	return m.complete(ctx)
}

// Gather collects every member's send into root's recv.
func (m *Member) Gather(ctx context.Context, send, recv []float64, root int) error {
	if err := m.publish(ctx, slot{kind: opGather, root: root, send: send, recv: recv}); err != nil {
		return err
	}
	blockLen := len(m.group.slots[root].send)
	if err := m.checkBlocks(func(s slot) []float64 { return s.send }, blockLen, len(m.group.slots[root].recv)); err != nil {
		return err
	}
	if m.rank == root {
		for rank, other := range m.group.slots {
			copy(recv[rank*blockLen:(rank+1)*blockLen], other.send)
		}
	}
	return m.complete(ctx)
}

// checkBlocks verifies that every member's per-rank buffer holds blockLen
// elements and that root's full buffer holds size*blockLen. All members run
// the same check on the same slots and reach the same verdict.
func (m *Member) checkBlocks(block func(slot) []float64, blockLen, fullLen int) error {
	for rank, other := range m.group.slots {
		if n := len(block(other)); n != blockLen {
			return m.fail(fmt.Errorf("%w: %s block of %d elements at rank %d, want %d",
				ErrProtocolViolation, other.kind, n, rank, blockLen))
		}
	}
	if fullLen != m.group.size*blockLen {
		return m.fail(fmt.Errorf("%w: root buffer of %d elements, want %d x %d",
			ErrProtocolViolation, fullLen, m.group.size, blockLen))
	}
	return nil
}

// ReduceMax returns the maximum over all members' v at root.
func (m *Member) ReduceMax(ctx context.Context, v float64, root int) (float64, error) {
	if err := m.publish(ctx, slot{kind: opReduceMax, root: root, value: v}); err != nil {
		return v, err
	}
	result := v
	if m.rank == root {
		result = lo.Max(lo.Map(m.group.slots, func(s slot, _ int) float64 {
			return s.value
		}))
	}
	return result, m.complete(ctx)
}
