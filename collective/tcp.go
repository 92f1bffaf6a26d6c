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
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// TCP is a communicator whose members are separate processes connected in a
// star: rank 0 holds one connection per peer and every operation is rooted
// there. Workers only ever talk to rank 0.
//
// Broadcast and Scatter return at a worker once its data has arrived, and
// Gather and ReduceMax return once its contribution has been sent; at rank 0
// every operation returns after all peers have been served.
type TCP struct {
	rank  int
	size  int
	peers []*peer // indexed by rank; rank 0 has all others, workers only [0]
	seq   uint32

	closeOnce sync.Once
	closeErr  error
}

var _ Communicator = (*TCP)(nil)

// Accept runs the coordinator side of group formation on ln. It waits until
// size-1 workers of job have connected with distinct ranks in [1, size).
// Connections with a bad handshake, another job id, another group size or a
// duplicate rank are refused and do not count.
func Accept(ctx context.Context, ln net.Listener, size int, job uuid.UUID) (*TCP, error) {
	if size <= 0 {
		return nil, fmt.Errorf("collective: group size %d must be positive", size)
	}
	t := &TCP{rank: Coordinator, size: size, peers: make([]*peer, size)}

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stop()

	for joined := 1; joined < size; {
		conn, err := ln.Accept()
		if err != nil {
			t.Close()
			if ctx.Err() != nil {
				return nil, fmt.Errorf("collective: waiting for %d of %d workers: %w", size-joined, size-1, ctx.Err())
			}
			return nil, fmt.Errorf("collective: accept: %w", err)
		}
		p, err := t.admit(ctx, conn, job)
		if err != nil {
			conn.Close()
			continue
		}
		t.peers[p.rank] = p
		joined++
	}
	return t, nil
}

// admit reads a worker's hello and answers it.
func (t *TCP) admit(ctx context.Context, conn net.Conn, job uuid.UUID) (*peer, error) {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(10 * time.Second))
	}
	defer conn.SetDeadline(time.Time{})

	p := newPeer(-1, conn)
	var h hello
	if err := binary.Read(p.r, binary.LittleEndian, &h); err != nil {
		return nil, err
	}

	status := helloOK
	switch {
	case h.Magic != helloMagic:
		status = helloBadMagic
	case uuid.UUID(h.Job) != job:
		status = helloWrongJob
	case int(h.Size) != t.size:
		status = helloWrongSize
	case h.Rank == 0 || int(h.Rank) >= t.size || t.peers[h.Rank] != nil:
		status = helloBadRank
	}
	if err := binary.Write(p.w, binary.LittleEndian, status); err != nil {
		return nil, err
	}
	if err := p.w.Flush(); err != nil {
		return nil, err
	}
	if err := helloError(status); err != nil {
		return nil, err
	}
	p.rank = int(h.Rank)
	return p, nil
}

// Dial joins job as rank by connecting to the coordinator at addr. The
// coordinator may not be listening yet, so Dial retries with backoff until
// ctx is done. A refused handshake is not retried.
func Dial(ctx context.Context, addr string, rank, size int, job uuid.UUID) (*TCP, error) {
	if rank <= 0 || rank >= size {
		return nil, fmt.Errorf("collective: worker rank %d not in [1, %d)", rank, size)
	}

	var d net.Dialer
	backoff := 20 * time.Millisecond
	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			t, err := join(ctx, conn, rank, size, job)
			if err != nil {
				conn.Close()
				return nil, err
			}
			return t, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("collective: dial %s: %w", addr, errors.Join(ctx.Err(), err))
		case <-time.After(backoff):
		}
		backoff = min(2*backoff, time.Second)
	}
}

func join(ctx context.Context, conn net.Conn, rank, size int, job uuid.UUID) (*TCP, error) {
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	p := newPeer(Coordinator, conn)
	if err := binary.Write(p.w, binary.LittleEndian, newHello(rank, size, job)); err != nil {
		return nil, p.wrap(err)
	}
	if err := p.w.Flush(); err != nil {
		return nil, p.wrap(err)
	}
	var status uint8
	if err := binary.Read(p.r, binary.LittleEndian, &status); err != nil {
		return nil, p.wrap(err)
	}
	if err := helloError(status); err != nil {
		return nil, err
	}

	peers := make([]*peer, size)
	peers[Coordinator] = p
	return &TCP{rank: rank, size: size, peers: peers}, nil
}

// Rank returns this process's rank.
func (t *TCP) Rank() int {
	return t.rank
}

// Size returns the group size.
func (t *TCP) Size() int {
	return t.size
}

// Close closes every connection held by this member.
func (t *TCP) Close() error {
	t.closeOnce.Do(func() {
		var errs []error
		for _, p := range t.peers {
			if p != nil {
				errs = append(errs, p.conn.Close())
			}
		}
		t.closeErr = errors.Join(errs...)
	})
	return t.closeErr
}

// begin validates root, advances the sequence number and arranges for ctx
// to interrupt blocked I/O. The returned function must be called when the
// operation ends.
func (t *TCP) begin(ctx context.Context, root int) (uint32, func(), error) {
	if root != Coordinator {
		return 0, nil, fmt.Errorf("%w: tcp groups are rooted at rank %d, got %d", ErrRoot, Coordinator, root)
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	t.seq++
	deadline, _ := ctx.Deadline()
	for _, p := range t.peers {
		if p != nil {
			p.conn.SetDeadline(deadline)
		}
	}
	stop := context.AfterFunc(ctx, func() {
		for _, p := range t.peers {
			if p != nil {
				p.conn.SetDeadline(time.Unix(1, 0))
			}
		}
	})
	return t.seq, func() { stop() }, nil
}

// result prefers the context error over the I/O error it caused.
func result(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w (%v)", ctx.Err(), err)
	}
	return err
}

// eachPeer runs fn concurrently for every worker connection.
func (t *TCP) eachPeer(fn func(p *peer) error) error {
	var eg errgroup.Group
	for _, p := range t.peers[1:] {
		eg.Go(func() error {
			return fn(p)
		})
	}
	return eg.Wait()
}

// Broadcast sends the coordinator's buf to every worker.
func (t *TCP) Broadcast(ctx context.Context, buf []float64, root int) error {
	seq, end, err := t.begin(ctx, root)
	if err != nil {
		return err
	}
	defer end()

	if t.rank == Coordinator {
		err = t.eachPeer(func(p *peer) error {
			return p.writeFrame(opBroadcast, seq, buf)
		})
	} else {
		err = t.peers[Coordinator].readFrame(opBroadcast, seq, buf)
	}
	return result(ctx, err)
}

// Scatter sends block r of the coordinator's send to worker r.
func (t *TCP) Scatter(ctx context.Context, send, recv []float64, root int) error {
	seq, end, err := t.begin(ctx, root)
	if err != nil {
		return err
	}
	defer end()

	if t.rank != Coordinator {
		return result(ctx, t.peers[Coordinator].readFrame(opScatter, seq, recv))
	}
	blockLen := len(recv)
	if len(send) != t.size*blockLen {
		return fmt.Errorf("%w: scatter of %d elements into %d blocks of %d",
			ErrProtocolViolation, len(send), t.size, blockLen)
	}
	copy(recv, send[:blockLen])
	err = t.eachPeer(func(p *peer) error {
		return p.writeFrame(opScatter, seq, send[p.rank*blockLen:(p.rank+1)*blockLen])
	})
	return result(ctx, err)
}

// Gather collects every worker's send into the coordinator's recv.
func (t *TCP) Gather(ctx context.Context, send, recv []float64, root int) error {
	seq, end, err := t.begin(ctx, root)
	if err != nil {
		return err
	}
	defer end()

	if t.rank != Coordinator {
		return result(ctx, t.peers[Coordinator].writeFrame(opGather, seq, send))
	}
	blockLen := len(send)
	if len(recv) != t.size*blockLen {
		return fmt.Errorf("%w: gather of %d blocks of %d into %d elements",
			ErrProtocolViolation, t.size, blockLen, len(recv))
	}
	copy(recv[:blockLen], send)
	err = t.eachPeer(func(p *peer) error {
		return p.readFrame(opGather, seq, recv[p.rank*blockLen:(p.rank+1)*blockLen])
	})
	return result(ctx, err)
}

// ReduceMax returns the maximum of all members' v at the coordinator.
func (t *TCP) ReduceMax(ctx context.Context, v float64, root int) (float64, error) {
	seq, end, err := t.begin(ctx, root)
	if err != nil {
		return v, err
	}
	defer end()

	if t.rank != Coordinator {
		return v, result(ctx, t.peers[Coordinator].writeFrame(opReduceMax, seq, []float64{v}))
	}
	values := make([]float64, t.size)
	values[Coordinator] = v
	err = t.eachPeer(func(p *peer) error {
		return p.readFrame(opReduceMax, seq, values[p.rank:p.rank+1])
	})
	if err != nil {
		return v, result(ctx, err)
	}
	return lo.Max(values), nil
}
