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

import (
	"errors"
	"fmt"
	"testing"
)

func TestDecompose(t *testing.T) {
	l, err := Decompose(9, 3)
	if err != nil {
		t.Fatalf("Decompose(9, 3): %v", err)
	}
	if l.RowsPerWorker != 3 {
		t.Errorf("RowsPerWorker = %d, want 3", l.RowsPerWorker)
	}
	if l.BlockLen() != 27 {
		t.Errorf("BlockLen() = %d, want 27", l.BlockLen())
	}
	if l.MatrixLen() != 81 {
		t.Errorf("MatrixLen() = %d, want 81", l.MatrixLen())
	}
}

func TestDecomposeRejects(t *testing.T) {
	testCases := []struct {
		n, p int
	}{
		{10, 3},
		{7, 2},
		{0, 1},
		{4, 0},
		{-4, 2},
		{3, 4},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%dx%d", tc.n, tc.p), func(t *testing.T) {
			_, err := Decompose(tc.n, tc.p)
			if err == nil {
				t.Fatalf("Decompose(%d, %d) succeeded, want error", tc.n, tc.p)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("errors.Is(%v, ErrConfiguration) = false", err)
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("errors.As(%v, *ConfigurationError) = false", err)
			}
			if cfgErr.N != tc.n || cfgErr.P != tc.p {
				t.Errorf("ConfigurationError{%d, %d}, want {%d, %d}", cfgErr.N, cfgErr.P, tc.n, tc.p)
			}
		})
	}
}

func TestConfigurationErrorMessage(t *testing.T) {
	_, err := Decompose(10, 3)
	want := "matrix dimension (10) must be divisible by number of workers (3)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestLayoutCoversAllRows(t *testing.T) {
	for _, tc := range []struct{ n, p int }{{4, 2}, {9, 3}, {12, 4}, {16, 16}, {1000, 8}} {
		l, err := Decompose(tc.n, tc.p)
		if err != nil {
			t.Fatalf("Decompose(%d, %d): %v", tc.n, tc.p, err)
		}

		total := 0
		seen := make([]int, tc.n)
		for rank := range tc.p {
			start, end := l.RowRange(rank)
			total += end - start
			for row := start; row < end; row++ {
				seen[row]++
				if owner := l.Owner(row); owner != rank {
					t.Errorf("N=%d P=%d: Owner(%d) = %d, want %d", tc.n, tc.p, row, owner, rank)
				}
			}
		}
		if total != tc.n {
			t.Errorf("N=%d P=%d: rows assigned = %d, want %d", tc.n, tc.p, total, tc.n)
		}
		for row, count := range seen {
			if count != 1 {
				t.Errorf("N=%d P=%d: row %d assigned %d times", tc.n, tc.p, row, count)
			}
		}
	}
}

func TestBlockRange(t *testing.T) {
	l, _ := Decompose(4, 2)
	start, end := l.BlockRange(1)
	if start != 8 || end != 16 {
		t.Errorf("BlockRange(1) = [%d, %d), want [8, 16)", start, end)
	}
}
