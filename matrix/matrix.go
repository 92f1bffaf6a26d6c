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

package matrix

import "fmt"

// Global is a full NxN row-major matrix. Only the coordinator ever holds one:
// the distributed protocol accepts a Global solely on its coordinator path, and
// the other workers work on RowBlock and Replica values instead.
type Global struct {
	n    int
	data []float64
}

// NewGlobal allocates a zeroed NxN matrix.
func NewGlobal(n int) *Global {
	if n <= 0 {
		return &Global{}
	}
	return &Global{n: n, data: make([]float64, n*n)}
}

// GlobalFromRows builds a Global from a square slice of rows. The rows are
// copied.
func GlobalFromRows(rows [][]float64) (*Global, error) {
	n := len(rows)
	g := NewGlobal(n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("matrix: row %d has %d columns, want %d", i, len(row), n)
		}
		copy(g.data[i*n:(i+1)*n], row)
	}
	return g, nil
}

// Dim returns N.
func (g *Global) Dim() int {
	return g.n
}

// Data returns the backing row-major storage.
func (g *Global) Data() []float64 {
	return g.data
}

// Row returns row i as a mutable slice of the backing storage.
func (g *Global) Row(i int) []float64 {
	return g.data[i*g.n : (i+1)*g.n]
}

// At returns element (i, j).
func (g *Global) At(i, j int) float64 {
	return g.data[i*g.n+j]
}

// Set assigns element (i, j).
func (g *Global) Set(i, j int, v float64) {
	g.data[i*g.n+j] = v
}

// Rows returns a copy of the matrix as a slice of rows.
func (g *Global) Rows() [][]float64 {
	out := make([][]float64, g.n)
	for i := range out {
		out[i] = append([]float64(nil), g.Row(i)...)
	}
	return out
}

// Replica is a read-only NxN matrix replicated at every worker, such as B
// after it has been broadcast.
type Replica struct {
	n    int
	data []float64
}

// NewReplica wraps data, which must hold n*n elements, as a replica. The
// caller gives up the right to modify data.
func NewReplica(n int, data []float64) *Replica {
	return &Replica{n: n, data: data[:n*n]}
}

// Dim returns N.
func (r *Replica) Dim() int {
	return r.n
}

// Row returns row k. Callers must not modify it.
func (r *Replica) Row(k int) []float64 {
	return r.data[k*r.n : (k+1)*r.n]
}

// Data returns the row-major storage. Callers must not modify it.
func (r *Replica) Data() []float64 {
	return r.data
}

// RowBlock is a contiguous horizontal slice of an NxN matrix owned by exactly
// one worker.
type RowBlock struct {
	first int // global index of the first row
	rows  int
	cols  int
	data  []float64
}

// NewRowBlock allocates the zeroed row block that layout assigns to rank.
func NewRowBlock(l Layout, rank int) *RowBlock {
	first, _ := l.RowRange(rank)
	return &RowBlock{
		first: first,
		rows:  l.RowsPerWorker,
		cols:  l.N,
		data:  make([]float64, l.BlockLen()),
	}
}

// FirstRow returns the global index of the block's first row.
func (b *RowBlock) FirstRow() int {
	return b.first
}

// Rows returns the number of rows in the block.
func (b *RowBlock) Rows() int {
	return b.rows
}

// Cols returns the number of columns (N).
func (b *RowBlock) Cols() int {
	return b.cols
}

// Data returns the backing row-major storage.
func (b *RowBlock) Data() []float64 {
	return b.data
}

// Row returns local row i.
func (b *RowBlock) Row(i int) []float64 {
	return b.data[i*b.cols : (i+1)*b.cols]
}
