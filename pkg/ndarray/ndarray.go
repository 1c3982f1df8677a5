// Package ndarray provides the small n-dimensional float64 array used to
// hand coordinates and raster data around, plus a deferred computation
// handle whose Compute method is the only place work is materialized.
// Two-dimensional arrays convert to and from gonum matrices, which do the
// actual arithmetic.
package ndarray

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShape reports an invalid shape, rank or index
	ErrShape = errors.New("invalid array shape")

	// ErrEmpty reports a reduction over an array without rows
	ErrEmpty = errors.New("reduction over empty array")

	// ErrNonFinite reports a NaN or infinite value
	ErrNonFinite = errors.New("non-finite value")
)

// Array is a dense row-major n-dimensional array of float64
type Array struct {
	shape []int
	data  []float64
}

// New wraps data in an array of the given shape. The data slice is not
// copied.
func New(data []float64, shape ...int) (*Array, error) {
	size := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative dimension in %v", ErrShape, shape)
		}
		size *= d
	}
	if size != len(data) {
		return nil, fmt.Errorf("%w: %d values do not fill shape %v", ErrShape, len(data), shape)
	}
	return &Array{shape: append([]int(nil), shape...), data: data}, nil
}

// Zeros creates a zero-filled array
func Zeros(shape ...int) *Array {
	size := 1
	for _, d := range shape {
		size *= d
	}
	return &Array{shape: append([]int(nil), shape...), data: make([]float64, size)}
}

// FromRows builds a 2-D array from equal-length rows
func FromRows(rows [][]float64) (*Array, error) {
	if len(rows) == 0 {
		return Zeros(0, 0), nil
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrShape, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return &Array{shape: []int{len(rows), cols}, data: data}, nil
}

// MustFromRows is like FromRows but panics on ragged input
func MustFromRows(rows [][]float64) *Array {
	a, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return a
}

// FromDense copies a gonum matrix into a 2-D array
func FromDense(m mat.Matrix) *Array {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return &Array{shape: []int{r, c}, data: data}
}

// Shape returns a copy of the array's shape
func (a *Array) Shape() []int {
	return append([]int(nil), a.shape...)
}

// Rank returns the number of dimensions
func (a *Array) Rank() int {
	return len(a.shape)
}

// Len returns the number of elements
func (a *Array) Len() int {
	return len(a.data)
}

// Data returns the underlying row-major values. Callers must not modify it.
func (a *Array) Data() []float64 {
	return a.data
}

// Dim returns the size of one axis
func (a *Array) Dim(axis int) int {
	return a.shape[axis]
}

func (a *Array) strides() []int {
	strides := make([]int, len(a.shape))
	step := 1
	for i := len(a.shape) - 1; i >= 0; i-- {
		strides[i] = step
		step *= a.shape[i]
	}
	return strides
}

func (a *Array) offset(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("ndarray: %d indices for rank %d array", len(idx), len(a.shape)))
	}
	off := 0
	for i, s := range a.strides() {
		if idx[i] < 0 || idx[i] >= a.shape[i] {
			panic(fmt.Sprintf("ndarray: index %v out of range for shape %v", idx, a.shape))
		}
		off += idx[i] * s
	}
	return off
}

// At returns the value at the given index
func (a *Array) At(idx ...int) float64 {
	return a.data[a.offset(idx)]
}

// Set stores a value at the given index
func (a *Array) Set(v float64, idx ...int) {
	a.data[a.offset(idx)] = v
}

// Clone returns a deep copy
func (a *Array) Clone() *Array {
	return &Array{shape: a.Shape(), data: append([]float64(nil), a.data...)}
}

// Ravel flattens the array to one dimension
func (a *Array) Ravel() *Array {
	return &Array{shape: []int{len(a.data)}, data: append([]float64(nil), a.data...)}
}

// Transpose reverses the order of the axes
func (a *Array) Transpose() *Array {
	n := len(a.shape)
	shape := make([]int, n)
	for i := range a.shape {
		shape[i] = a.shape[n-1-i]
	}
	out := Zeros(shape...)
	src := make([]int, n)
	for flat := range out.data {
		dst := unravel(flat, shape)
		for i := range dst {
			src[n-1-i] = dst[i]
		}
		out.data[flat] = a.data[a.offset(src)]
	}
	return out
}

// ExpandDims inserts a new axis of length one at the given position
func (a *Array) ExpandDims(axis int) *Array {
	if axis < 0 {
		axis = 0
	}
	if axis > len(a.shape) {
		axis = len(a.shape)
	}
	shape := make([]int, 0, len(a.shape)+1)
	shape = append(shape, a.shape[:axis]...)
	shape = append(shape, 1)
	shape = append(shape, a.shape[axis:]...)
	return &Array{shape: shape, data: append([]float64(nil), a.data...)}
}

// Dense copies a 2-D array into a gonum matrix
func (a *Array) Dense() (*mat.Dense, error) {
	if len(a.shape) != 2 {
		return nil, fmt.Errorf("%w: expected a 2-D array, got rank %d", ErrShape, len(a.shape))
	}
	if a.shape[0] == 0 || a.shape[1] == 0 {
		return nil, fmt.Errorf("%w: cannot build a matrix of shape %v", ErrShape, a.shape)
	}
	return mat.NewDense(a.shape[0], a.shape[1], append([]float64(nil), a.data...)), nil
}

// Rows returns the rows of a 2-D array
func (a *Array) Rows() ([][]float64, error) {
	if len(a.shape) != 2 {
		return nil, fmt.Errorf("%w: expected a 2-D array, got rank %d", ErrShape, len(a.shape))
	}
	rows := make([][]float64, a.shape[0])
	for i := range rows {
		rows[i] = append([]float64(nil), a.data[i*a.shape[1]:(i+1)*a.shape[1]]...)
	}
	return rows, nil
}

// SelectColumns builds a 2-D array from the given columns, in order
func (a *Array) SelectColumns(cols []int) (*Array, error) {
	if len(a.shape) != 2 {
		return nil, fmt.Errorf("%w: expected a 2-D array, got rank %d", ErrShape, len(a.shape))
	}
	n, c := a.shape[0], a.shape[1]
	out := Zeros(n, len(cols))
	for j, src := range cols {
		if src < 0 || src >= c {
			return nil, fmt.Errorf("%w: column %d out of range for %d columns", ErrShape, src, c)
		}
		for i := 0; i < n; i++ {
			out.data[i*len(cols)+j] = a.data[i*c+src]
		}
	}
	return out, nil
}

// Slice keeps the half-open range [start, end) along one axis
func (a *Array) Slice(axis, start, end int) (*Array, error) {
	if axis < 0 || axis >= len(a.shape) {
		return nil, fmt.Errorf("%w: axis %d out of range for rank %d", ErrShape, axis, len(a.shape))
	}
	if start < 0 || end > a.shape[axis] || start > end {
		return nil, fmt.Errorf("%w: slice [%d:%d] out of range for length %d", ErrShape, start, end, a.shape[axis])
	}
	shape := a.Shape()
	shape[axis] = end - start
	out := Zeros(shape...)
	for flat := range out.data {
		idx := unravel(flat, shape)
		idx[axis] += start
		out.data[flat] = a.data[a.offset(idx)]
	}
	return out, nil
}

// SumExcept sums over every axis but one, returning one total per index
// of the kept axis.
func (a *Array) SumExcept(axis int) ([]float64, error) {
	return a.sumAlong(axis, nil)
}

// AbsSumExcept is SumExcept over absolute values
func (a *Array) AbsSumExcept(axis int) ([]float64, error) {
	return a.sumAlong(axis, math.Abs)
}

// sumAlong accumulates f(v) per index of axis in one pass over the
// row-major data.
func (a *Array) sumAlong(axis int, f func(float64) float64) ([]float64, error) {
	if axis < 0 || axis >= len(a.shape) {
		return nil, fmt.Errorf("%w: axis %d out of range for rank %d", ErrShape, axis, len(a.shape))
	}
	n := a.shape[axis]
	sums := make([]float64, n)
	stride := 1
	for _, d := range a.shape[axis+1:] {
		stride *= d
	}
	for flat, v := range a.data {
		if f != nil {
			v = f(v)
		}
		sums[(flat/stride)%n] += v
	}
	return sums, nil
}

func unravel(flat int, shape []int) []int {
	idx := make([]int, len(shape))
	for i := len(shape) - 1; i >= 0; i-- {
		if shape[i] == 0 {
			return idx
		}
		idx[i] = flat % shape[i]
		flat /= shape[i]
	}
	return idx
}
