package ndarray

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultChunkRows is the number of rows reduced at a time by the column
// reductions.
const DefaultChunkRows = 4096

// Deferred is a not-yet-evaluated array. Building a chain of Deferred
// values does no work; Compute evaluates the whole chain and is the
// explicit materialization point.
type Deferred struct {
	compute func() (*Array, error)
}

// Defer wraps a computation
func Defer(f func() (*Array, error)) *Deferred {
	return &Deferred{compute: f}
}

// Lazy wraps an already concrete array
func Lazy(a *Array) *Deferred {
	return &Deferred{compute: func() (*Array, error) { return a, nil }}
}

// Then chains a computation on the result of d
func (d *Deferred) Then(f func(*Array) (*Array, error)) *Deferred {
	return &Deferred{compute: func() (*Array, error) {
		a, err := d.Compute()
		if err != nil {
			return nil, err
		}
		return f(a)
	}}
}

// Compute evaluates the chain. Every call re-evaluates it.
func (d *Deferred) Compute() (*Array, error) {
	if d == nil || d.compute == nil {
		return nil, fmt.Errorf("%w: nil deferred array", ErrShape)
	}
	return d.compute()
}

// Finite passes the result of d through unchanged, failing on the first
// NaN or infinite value
func Finite(d *Deferred) *Deferred {
	return d.Then(func(a *Array) (*Array, error) {
		for i, v := range a.data {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: %v at flat index %d", ErrNonFinite, v, i)
			}
		}
		return a, nil
	})
}

// ColumnMin returns a deferred 1-D array with the minimum of each column
func ColumnMin(d *Deferred, chunkRows int) *Deferred {
	return columnReduce(d, chunkRows, floats.Min, math.Min)
}

// ColumnMax returns a deferred 1-D array with the maximum of each column
func ColumnMax(d *Deferred, chunkRows int) *Deferred {
	return columnReduce(d, chunkRows, floats.Max, math.Max)
}

// columnReduce reduces each chunk of rows column by column, then combines
// the per-chunk results.
func columnReduce(d *Deferred, chunkRows int, reduce func([]float64) float64, combine func(a, b float64) float64) *Deferred {
	if chunkRows <= 0 {
		chunkRows = DefaultChunkRows
	}
	return d.Then(func(a *Array) (*Array, error) {
		if a.Rank() != 2 {
			return nil, fmt.Errorf("%w: column reduction needs a 2-D array, got rank %d", ErrShape, a.Rank())
		}
		rows, cols := a.shape[0], a.shape[1]
		if rows == 0 {
			return nil, ErrEmpty
		}
		m, err := a.Dense()
		if err != nil {
			return nil, err
		}

		out := make([]float64, cols)
		for start := 0; start < rows; start += chunkRows {
			end := start + chunkRows
			if end > rows {
				end = rows
			}
			chunk := m.Slice(start, end, 0, cols)
			col := make([]float64, end-start)
			for j := 0; j < cols; j++ {
				mat.Col(col, j, chunk)
				v := reduce(col)
				if start == 0 {
					out[j] = v
				} else {
					out[j] = combine(out[j], v)
				}
			}
		}
		return &Array{shape: []int{cols}, data: out}, nil
	})
}
