// Copyright 2026 HPC-uni-tn-2025 Authors. SPDX-License-Identifier: Apache-2.0

package matrix

import "testing"

func TestGlobalFromRows(t *testing.T) {
	g, err := GlobalFromRows([][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("GlobalFromRows: %v", err)
	}
	if g.Dim() != 2 {
		t.Errorf("Dim() = %d, want 2", g.Dim())
	}
	if g.At(1, 0) != 3 {
		t.Errorf("At(1, 0) = %v, want 3", g.At(1, 0))
	}
	g.Set(0, 1, 7)
	if g.Row(0)[1] != 7 {
		t.Errorf("Row(0)[1] = %v, want 7", g.Row(0)[1])
	}

	rows := g.Rows()
	rows[0][0] = 100
	if g.At(0, 0) != 1 {
		t.Error("Rows() must return a copy")
	}
}

func TestGlobalFromRowsNotSquare(t *testing.T) {
	if _, err := GlobalFromRows([][]float64{{1, 2, 3}, {4, 5, 6}}); err == nil {
		t.Error("GlobalFromRows accepted a 2x3 matrix")
	}
}

func TestNewRowBlock(t *testing.T) {
	l, _ := Decompose(6, 3)
	b := NewRowBlock(l, 2)
	if b.FirstRow() != 4 {
		t.Errorf("FirstRow() = %d, want 4", b.FirstRow())
	}
	if b.Rows() != 2 || b.Cols() != 6 {
		t.Errorf("shape = %dx%d, want 2x6", b.Rows(), b.Cols())
	}
	if len(b.Data()) != 12 {
		t.Errorf("len(Data()) = %d, want 12", len(b.Data()))
	}
	b.Row(1)[5] = 9
	if b.Data()[11] != 9 {
		t.Errorf("Row(1) does not alias Data()")
	}
}

func TestRandomDeterministic(t *testing.T) {
	a := Random(8, 42)
	b := Random(8, 42)
	c := Random(8, 43)

	same := true
	for i := range a.Data() {
		v := a.Data()[i]
		if v < 0 || v >= 1 {
			t.Fatalf("Random value %v outside [0, 1)", v)
		}
		if v != b.Data()[i] {
			t.Fatalf("Random(8, 42) differs at %d between calls", i)
		}
		if v != c.Data()[i] {
			same = false
		}
	}
	if same {
		t.Error("Random(8, 42) and Random(8, 43) are identical")
	}
}
