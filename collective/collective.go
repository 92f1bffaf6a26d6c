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

// Package collective provides the synchronous group operations the
// distributed multiply is built on: broadcast, scatter, gather and a max
// reduction, each called by every member of a group in the same order.
//
// Two implementations are available:
//   - Group: every rank is a goroutine of the current process. Each operation
//     is a true rendezvous; no member returns before all members arrived.
//   - TCP: every rank is a separate process. Rank 0 accepts one connection
//     per peer and relays all traffic (star topology).
//
// Every operation carries a kind and a sequence number. Members that issue
// different operations, or the same operation with mismatched buffers, get
// ErrProtocolViolation instead of blocking forever.
package collective

import (
	"context"
	"errors"
	"fmt"
)

// Coordinator is the rank that owns the full matrices and acts as root for
// every operation of the distributed multiply.
const Coordinator = 0

var (
	// ErrProtocolViolation is returned when group members disagree on the
	// operation being performed or on its buffer sizes.
	ErrProtocolViolation = errors.New("collective: protocol violation")

	// ErrPeerExited is returned when another member left the group while this
	// member still expected it to take part in an operation.
	ErrPeerExited = errors.New("collective: peer exited")

	// ErrClosed is returned by operations on a closed communicator.
	ErrClosed = errors.New("collective: communicator closed")

	// ErrRoot is returned for a root outside [0, Size()) or, for TCP, any
	// root other than Coordinator.
	ErrRoot = errors.New("collective: unsupported root")
)

// Communicator is one member's handle on a group of Size() ranks.
//
// All members must call the same operations in the same order. Buffers are
// flat float64 slices; only the root's send buffer (Broadcast, Scatter) or
// receive buffer (Gather) is significant on the root side. TCP limits every
// message to MaxFrameElements values, so a broadcast NxN matrix needs
// N <= 65535.
type Communicator interface {
	// Rank returns this member's index in [0, Size()).
	Rank() int

	// Size returns the number of members.
	Size() int

	// Broadcast copies root's buf into buf at every other member.
	Broadcast(ctx context.Context, buf []float64, root int) error

	// Scatter splits root's send into Size() equal consecutive blocks of
	// len(recv) elements and delivers block r into recv at member r.
	Scatter(ctx context.Context, send, recv []float64, root int) error

	// Gather collects each member's send into recv at root, member r's data
	// landing at recv[r*len(send):(r+1)*len(send)].
	Gather(ctx context.Context, send, recv []float64, root int) error

	// ReduceMax returns the maximum of every member's v at root. Other
	// members receive their own v back.
	ReduceMax(ctx context.Context, v float64, root int) (float64, error)

	// Close releases the member. Peers still waiting on it fail with
	// ErrPeerExited.
	Close() error
}

// opKind identifies a collective operation on the wire and in rendezvous
// slots.
type opKind uint8

const (
	opBroadcast opKind = iota + 1
	opScatter
	opGather
	opReduceMax
)

func (k opKind) String() string {
	switch k {
	case opBroadcast:
		return "broadcast"
	case opScatter:
		return "scatter"
	case opGather:
		return "gather"
	case opReduceMax:
		return "reduce-max"
	default:
		return fmt.Sprintf("op(%d)", uint8(k))
	}
}

func checkRoot(root, size int) error {
	if root < 0 || root >= size {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrRoot, root, size)
	}
	return nil
}
