package linalg

// CSR is a compressed-sparse-row matrix: row i's entries are
// ColIdx[RowPtr[i]:RowPtr[i+1]] / Vals[RowPtr[i]:RowPtr[i+1]]. The sparse
// Jacobian that package lm assembles from per-provider blocks is stored
// this way so the CG back-end never has to materialise JᵀJ.
type CSR struct {
	Rows, Cols int
	RowPtr     []int
	ColIdx     []int
	Vals       []float64
}

// NewCSRBuilder starts an empty CSR of the given shape; rows must be
// appended in order (RowPtr is monotonic), matching how providers are
// assembled at contiguous row ranges.
type CSRBuilder struct {
	cols    int
	rowPtr  []int
	colIdx  []int
	vals    []float64
	lastRow int
}

func NewCSRBuilder(cols int) *CSRBuilder {
	return &CSRBuilder{cols: cols, rowPtr: []int{0}}
}

// AddRow appends one sparse row given as parallel (column, value) pairs.
// Columns need not be pre-sorted.
func (b *CSRBuilder) AddRow(cols []int, vals []float64) {
	b.colIdx = append(b.colIdx, cols...)
	b.vals = append(b.vals, vals...)
	b.rowPtr = append(b.rowPtr, len(b.colIdx))
	b.lastRow++
}

func (b *CSRBuilder) Build() CSR {
	return CSR{Rows: b.lastRow, Cols: b.cols, RowPtr: b.rowPtr, ColIdx: b.colIdx, Vals: b.vals}
}

// MulVec computes J·v.
func (m CSR) MulVec(v []float64) []float64 {
	out := make([]float64, m.Rows)
	for row := 0; row < m.Rows; row++ {
		var sum float64
		for k := m.RowPtr[row]; k < m.RowPtr[row+1]; k++ {
			sum += m.Vals[k] * v[m.ColIdx[k]]
		}
		out[row] = sum
	}
	return out
}

// MulVecTranspose computes Jᵀ·v.
func (m CSR) MulVecTranspose(v []float64) []float64 {
	out := make([]float64, m.Cols)
	for row := 0; row < m.Rows; row++ {
		vr := v[row]
		if vr == 0 {
			continue
		}
		for k := m.RowPtr[row]; k < m.RowPtr[row+1]; k++ {
			out[m.ColIdx[k]] += m.Vals[k] * vr
		}
	}
	return out
}

// DiagAtA returns diag(JᵀJ) without forming JᵀJ.
func (m CSR) DiagAtA() []float64 {
	out := make([]float64, m.Cols)
	for row := 0; row < m.Rows; row++ {
		for k := m.RowPtr[row]; k < m.RowPtr[row+1]; k++ {
			out[m.ColIdx[k]] += m.Vals[k] * m.Vals[k]
		}
	}
	return out
}
