// Package sparse implements the compressed-sparse-row matrices behind the
// count and TF-IDF matrices: rows are tokens, columns are documents.
package sparse

import (
	"fmt"
	"slices"
)

// CSR is a Rows x Cols matrix in compressed sparse row form. Column indices
// are strictly increasing within a row, so a row never holds duplicates.
type CSR struct {
	Rows    int
	Cols    int
	Indptr  []int
	Indices []int
	Data    []float64
}

// Empty returns an all-zero rows x cols matrix.
func Empty(rows, cols int) *CSR {
	return &CSR{
		Rows:   rows,
		Cols:   cols,
		Indptr: make([]int, rows+1),
	}
}

// FromTriplets builds a matrix from coordinate triplets, summing values that
// share a cell. All three slices must have equal length.
func FromTriplets(rows, cols int, rowIdx, colIdx []int, vals []float64) (*CSR, error) {
	if len(rowIdx) != len(colIdx) || len(rowIdx) != len(vals) {
		return nil, fmt.Errorf("triplet length mismatch: %d rows, %d cols, %d values",
			len(rowIdx), len(colIdx), len(vals))
	}
	m := Empty(rows, cols)
	for i, r := range rowIdx {
		if r < 0 || r >= rows {
			return nil, fmt.Errorf("row index %d out of range [0,%d)", r, rows)
		}
		if c := colIdx[i]; c < 0 || c >= cols {
			return nil, fmt.Errorf("column index %d out of range [0,%d)", c, cols)
		}
		m.Indptr[r+1]++
	}
	for r := 0; r < rows; r++ {
		m.Indptr[r+1] += m.Indptr[r]
	}

	type cell struct {
		col int
		val float64
	}
	cells := make([]cell, len(vals))
	next := make([]int, rows)
	copy(next, m.Indptr[:rows])
	for i, r := range rowIdx {
		cells[next[r]] = cell{col: colIdx[i], val: vals[i]}
		next[r]++
	}

	m.Indices = make([]int, 0, len(cells))
	m.Data = make([]float64, 0, len(cells))
	start := 0
	for r := 0; r < rows; r++ {
		end := m.Indptr[r+1]
		row := cells[start:end]
		slices.SortFunc(row, func(a, b cell) int { return a.col - b.col })
		m.Indptr[r] = len(m.Indices)
		for i, c := range row {
			if i > 0 && row[i-1].col == c.col {
				m.Data[len(m.Data)-1] += c.val
				continue
			}
			m.Indices = append(m.Indices, c.col)
			m.Data = append(m.Data, c.val)
		}
		start = end
	}
	m.Indptr[rows] = len(m.Indices)
	return m, nil
}

// Row returns the column indices and values stored in row r. The slices
// alias the matrix.
func (m *CSR) Row(r int) ([]int, []float64) {
	lo, hi := m.Indptr[r], m.Indptr[r+1]
	return m.Indices[lo:hi], m.Data[lo:hi]
}

func (m *CSR) NNZ() int {
	return len(m.Data)
}

// At returns the value at (r, c), zero if the cell is not stored.
func (m *CSR) At(r, c int) float64 {
	cols, vals := m.Row(r)
	if i, ok := slices.BinarySearch(cols, c); ok {
		return vals[i]
	}
	return 0
}

// RowNonZeros counts the strictly positive cells of each row.
func (m *CSR) RowNonZeros() []int {
	out := make([]int, m.Rows)
	for r := 0; r < m.Rows; r++ {
		_, vals := m.Row(r)
		for _, v := range vals {
			if v > 0 {
				out[r]++
			}
		}
	}
	return out
}

// Each calls fn for every stored cell in row-major order.
func (m *CSR) Each(fn func(row, col int, val float64)) {
	for r := 0; r < m.Rows; r++ {
		cols, vals := m.Row(r)
		for i, c := range cols {
			fn(r, c, vals[i])
		}
	}
}

// MapRows returns a matrix with the same sparsity structure whose values are
// fn(row, value).
func (m *CSR) MapRows(fn func(row int, val float64) float64) *CSR {
	out := &CSR{
		Rows:    m.Rows,
		Cols:    m.Cols,
		Indptr:  slices.Clone(m.Indptr),
		Indices: slices.Clone(m.Indices),
		Data:    make([]float64, len(m.Data)),
	}
	for r := 0; r < m.Rows; r++ {
		lo, hi := m.Indptr[r], m.Indptr[r+1]
		for i := lo; i < hi; i++ {
			out.Data[i] = fn(r, m.Data[i])
		}
	}
	return out
}

// Validate checks the structural invariants of a decoded matrix.
func (m *CSR) Validate() error {
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("negative shape (%d, %d)", m.Rows, m.Cols)
	}
	if len(m.Indptr) != m.Rows+1 {
		return fmt.Errorf("indptr length %d, want %d", len(m.Indptr), m.Rows+1)
	}
	if len(m.Indices) != len(m.Data) {
		return fmt.Errorf("%d indices but %d values", len(m.Indices), len(m.Data))
	}
	if m.Indptr[0] != 0 || m.Indptr[m.Rows] != len(m.Data) {
		return fmt.Errorf("indptr bounds [%d, %d] do not cover %d values",
			m.Indptr[0], m.Indptr[m.Rows], len(m.Data))
	}
	for r := 0; r < m.Rows; r++ {
		lo, hi := m.Indptr[r], m.Indptr[r+1]
		if lo > hi {
			return fmt.Errorf("row %d: indptr decreases", r)
		}
		for i := lo; i < hi; i++ {
			if m.Indices[i] < 0 || m.Indices[i] >= m.Cols {
				return fmt.Errorf("row %d: column %d out of range", r, m.Indices[i])
			}
			if i > lo && m.Indices[i] <= m.Indices[i-1] {
				return fmt.Errorf("row %d: columns not strictly increasing", r)
			}
		}
	}
	return nil
}
