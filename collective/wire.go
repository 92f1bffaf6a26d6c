// Copyright 2026 HPC-uni-tn-2025 Authors. SPDX-License-Identifier: Apache-2.0

package collective

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"

	"github.com/google/uuid"
)

// helloMagic opens every connection from a worker to the coordinator.
var helloMagic = [4]byte{'D', 'M', 'M', '1'}

// hello is the first frame a worker sends after connecting.
type hello struct {
	Magic [4]byte
	Rank  uint32
	Size  uint32
	Job   [16]byte
}

// Hello status codes sent back by the coordinator.
const (
	helloOK uint8 = iota
	helloBadMagic
	helloWrongJob
	helloWrongSize
	helloBadRank
)

// ErrRejected is returned by Dial when the coordinator refuses the hello.
var ErrRejected = errors.New("collective: rejected by coordinator")

func helloError(status uint8) error {
	switch status {
	case helloOK:
		return nil
	case helloBadMagic:
		return fmt.Errorf("%w: bad handshake", ErrRejected)
	case helloWrongJob:
		return fmt.Errorf("%w: job id mismatch", ErrRejected)
	case helloWrongSize:
		return fmt.Errorf("%w: group size mismatch", ErrRejected)
	case helloBadRank:
		return fmt.Errorf("%w: rank out of range or already joined", ErrRejected)
	default:
		return fmt.Errorf("%w: status %d", ErrRejected, status)
	}
}

// frameHeader precedes every operation payload. Count is the number of
// little-endian float64 values that follow.
type frameHeader struct {
	Kind  uint8
	Seq   uint32
	Count uint32
}

// peer is one buffered TCP connection.
type peer struct {
	rank int
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

func newPeer(rank int, conn net.Conn) *peer {
	return &peer{
		rank: rank,
		conn: conn,
		r:    bufio.NewReaderSize(conn, 1<<16),
		w:    bufio.NewWriterSize(conn, 1<<16),
	}
}

// MaxFrameElements is the largest buffer a TCP operation can carry: the frame
// header counts elements in 32 bits.
const MaxFrameElements = math.MaxUint32

// checkFrameLen rejects buffers whose length does not fit the frame header.
func checkFrameLen(kind opKind, n int) error {
	if uint64(n) > MaxFrameElements {
		return fmt.Errorf("collective: %s of %d elements exceeds the frame limit of %d", kind, n, uint64(MaxFrameElements))
	}
	return nil
}

// writeFrame sends one operation frame and flushes it.
func (p *peer) writeFrame(kind opKind, seq uint32, data []float64) error {
	if err := checkFrameLen(kind, len(data)); err != nil {
		return err
	}
	hdr := frameHeader{Kind: uint8(kind), Seq: seq, Count: uint32(len(data))}
	if err := binary.Write(p.w, binary.LittleEndian, hdr); err != nil {
		return p.wrap(err)
	}
	if len(data) > 0 {
		if err := binary.Write(p.w, binary.LittleEndian, data); err != nil {
			return p.wrap(err)
		}
	}
	return p.wrap(p.w.Flush())
}

// readFrame receives one operation frame into dst. The frame must carry
// exactly len(dst) values for the expected kind and sequence number.
func (p *peer) readFrame(kind opKind, seq uint32, dst []float64) error {
	if err := checkFrameLen(kind, len(dst)); err != nil {
		return err
	}
	var hdr frameHeader
	if err := binary.Read(p.r, binary.LittleEndian, &hdr); err != nil {
		return p.wrap(err)
	}
	if opKind(hdr.Kind) != kind || hdr.Seq != seq {
		return fmt.Errorf("%w: expected %s #%d from rank %d, got %s #%d",
			ErrProtocolViolation, kind, seq, p.rank, opKind(hdr.Kind), hdr.Seq)
	}
	if int(hdr.Count) != len(dst) {
		return fmt.Errorf("%w: %s from rank %d carries %d elements, want %d",
			ErrProtocolViolation, kind, p.rank, hdr.Count, len(dst))
	}
	if len(dst) == 0 {
		return nil
	}
	return p.wrap(binary.Read(p.r, binary.LittleEndian, dst))
}

// wrap maps a closed connection to ErrPeerExited.
func (p *peer) wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		return fmt.Errorf("%w: rank %d: %v", ErrPeerExited, p.rank, err)
	default:
		return fmt.Errorf("collective: rank %d: %w", p.rank, err)
	}
}

func newHello(rank, size int, job uuid.UUID) hello {
	return hello{Magic: helloMagic, Rank: uint32(rank), Size: uint32(size), Job: job}
}
