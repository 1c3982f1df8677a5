package ndarray

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

// TestNew verifies that data must fill the requested shape
func TestNew(t *testing.T) {
	if _, err := New([]float64{1, 2, 3}, 2, 2); !errors.Is(err, ErrShape) {
		t.Errorf("Expected ErrShape, got %v", err)
	}
	a, err := New([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if a.Rank() != 2 || a.Dim(0) != 2 || a.Dim(1) != 3 {
		t.Errorf("Expected shape [2 3], got %v", a.Shape())
	}
	if a.At(1, 2) != 6 {
		t.Errorf("Expected At(1,2)=6, got %f", a.At(1, 2))
	}
}

// TestReshaping verifies ravel, transpose and expand-dims
func TestReshaping(t *testing.T) {
	a := MustFromRows([][]float64{{1, 2, 3}, {4, 5, 6}})

	r := a.Ravel()
	if r.Rank() != 1 || r.Len() != 6 {
		t.Errorf("Expected rank-1 array of 6 values, got shape %v", r.Shape())
	}

	tr := a.Transpose()
	if tr.Dim(0) != 3 || tr.Dim(1) != 2 {
		t.Fatalf("Expected transposed shape [3 2], got %v", tr.Shape())
	}
	if tr.At(2, 1) != 6 || tr.At(0, 1) != 4 {
		t.Errorf("Unexpected transposed values %v", tr.Data())
	}

	e := a.ExpandDims(0)
	if e.Rank() != 3 || e.Dim(0) != 1 {
		t.Errorf("Expected shape [1 2 3], got %v", e.Shape())
	}
}

// TestSliceAndSum verifies slicing along an axis and summing over the others
func TestSliceAndSum(t *testing.T) {
	a := MustFromRows([][]float64{
		{0, 0, 0, 0},
		{0, 1, 2, 0},
		{0, 3, 4, 0},
	})

	sums, err := a.SumExcept(1)
	if err != nil {
		t.Fatalf("SumExcept failed: %v", err)
	}
	if !floats.Equal(sums, []float64{0, 4, 6, 0}) {
		t.Errorf("Expected column sums [0 4 6 0], got %v", sums)
	}

	s, err := a.Slice(0, 1, 3)
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if s.Dim(0) != 2 || s.At(0, 1) != 1 {
		t.Errorf("Unexpected slice %v with shape %v", s.Data(), s.Shape())
	}
	if _, err := a.Slice(0, 2, 5); !errors.Is(err, ErrShape) {
		t.Errorf("Expected ErrShape for an out-of-range slice, got %v", err)
	}
}

// TestAbsSumExcept verifies per-axis magnitude sums on a 3-D array
func TestAbsSumExcept(t *testing.T) {
	data := make([]float64, 24)
	for i := range data {
		data[i] = float64(i)
		if i%2 == 1 {
			data[i] = -data[i]
		}
	}
	a, err := New(data, 2, 3, 4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	expected := map[int][]float64{
		0: {66, 210},
		1: {60, 92, 124},
		2: {60, 66, 72, 78},
	}
	for axis, want := range expected {
		got, err := a.AbsSumExcept(axis)
		if err != nil {
			t.Fatalf("AbsSumExcept(%d) failed: %v", axis, err)
		}
		if !floats.Equal(got, want) {
			t.Errorf("axis %d: Expected %v, got %v", axis, want, got)
		}
	}

	signed, _ := a.SumExcept(2)
	if !floats.Equal(signed, []float64{60, -66, 72, -78}) {
		t.Errorf("Expected signed sums [60 -66 72 -78], got %v", signed)
	}
	if _, err := a.AbsSumExcept(3); !errors.Is(err, ErrShape) {
		t.Errorf("Expected ErrShape for axis 3, got %v", err)
	}
	empty, _ := New(nil, 2, 0)
	if got, err := empty.AbsSumExcept(0); err != nil || !floats.Equal(got, []float64{0, 0}) {
		t.Errorf("Expected [0 0] for an empty array, got %v %v", got, err)
	}
}

// TestColumnReductions verifies that chunked min/max agree with a full scan
func TestColumnReductions(t *testing.T) {
	rows := make([][]float64, 0, 100)
	for i := 0; i < 100; i++ {
		rows = append(rows, []float64{float64(i), float64(-i), float64(i % 7)})
	}
	d := Lazy(MustFromRows(rows))

	for _, chunk := range []int{1, 3, 64, 1000} {
		mins, err := ColumnMin(d, chunk).Compute()
		if err != nil {
			t.Fatalf("ColumnMin failed: %v", err)
		}
		maxs, err := ColumnMax(d, chunk).Compute()
		if err != nil {
			t.Fatalf("ColumnMax failed: %v", err)
		}
		if !floats.Equal(mins.Data(), []float64{0, -99, 0}) {
			t.Errorf("chunk=%d: unexpected mins %v", chunk, mins.Data())
		}
		if !floats.Equal(maxs.Data(), []float64{99, 0, 6}) {
			t.Errorf("chunk=%d: unexpected maxs %v", chunk, maxs.Data())
		}
	}

	if _, err := ColumnMin(Lazy(Zeros(0, 2)), 0).Compute(); !errors.Is(err, ErrEmpty) {
		t.Errorf("Expected ErrEmpty, got %v", err)
	}
}

// TestFinite verifies that non-finite values fail the chain
func TestFinite(t *testing.T) {
	ok := MustFromRows([][]float64{{1, 2}, {3, 4}})
	out, err := Finite(Lazy(ok)).Compute()
	if err != nil {
		t.Fatalf("Finite failed: %v", err)
	}
	if out != ok {
		t.Errorf("Expected the input array back unchanged")
	}

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		bad := MustFromRows([][]float64{{1, 2}, {v, 4}})
		if _, err := ColumnMin(Finite(Lazy(bad)), 1).Compute(); !errors.Is(err, ErrNonFinite) {
			t.Errorf("Expected ErrNonFinite for %v, got %v", v, err)
		}
	}
}

// TestDeferredIsLazy verifies that nothing runs before Compute
func TestDeferredIsLazy(t *testing.T) {
	calls := 0
	d := Defer(func() (*Array, error) {
		calls++
		return MustFromRows([][]float64{{1, 2}}), nil
	}).Then(func(a *Array) (*Array, error) {
		calls++
		return a.Transpose(), nil
	})

	if calls != 0 {
		t.Fatalf("Expected no evaluation before Compute, got %d calls", calls)
	}
	out, err := d.Compute()
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if calls != 2 || out.Dim(0) != 2 {
		t.Errorf("Expected 2 calls and shape [2 1], got %d calls and %v", calls, out.Shape())
	}
}
