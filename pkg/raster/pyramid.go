package raster

import (
	"fmt"

	"spatialcoords/pkg/element"
	"spatialcoords/pkg/ndarray"
)

// Pyramid builds a multiscale pyramid from a full-resolution raster. Level
// i+1 is level i shrunk by factors[i] along every non-channel axis. Levels
// are computed concurrently, each straight from the base raster with the
// cumulative factor.
func Pyramid(base *element.Raster, factors []int) ([]*element.Raster, error) {
	cumulative := make([]int, len(factors))
	total := 1
	for i, f := range factors {
		if f < 1 {
			return nil, fmt.Errorf("downscale factor %d at level %d must be at least 1", f, i+1)
		}
		total *= f
		cumulative[i] = total
	}

	type levelResult struct {
		level  int
		raster *element.Raster
		err    error
	}
	results := make(chan levelResult)
	for i, f := range cumulative {
		go func(level, factor int) {
			r, err := Downscale(base, factor)
			results <- levelResult{level: level, raster: r, err: err}
		}(i+1, f)
	}

	levels := make([]*element.Raster, len(factors)+1)
	levels[0] = base
	var firstErr error
	for range cumulative {
		res := <-results
		if res.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("pyramid level %d: %w", res.level, res.err)
		}
		levels[res.level] = res.raster
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return levels, nil
}

// Downscale shrinks r by an integer factor along every non-channel axis,
// averaging each block of pixels. Trailing pixels that do not fill a
// whole block are dropped; an axis never shrinks below one pixel.
func Downscale(r *element.Raster, factor int) (*element.Raster, error) {
	if factor < 1 {
		return nil, fmt.Errorf("downscale factor %d must be at least 1", factor)
	}
	if factor == 1 {
		return r.WithData(r.Data().Clone())
	}

	src := r.Data()
	inShape := src.Shape()
	axes := r.Axes()
	factors := make([]int, len(inShape))
	outShape := make([]int, len(inShape))
	for i, d := range inShape {
		factors[i] = 1
		outShape[i] = d
		if axes[i] == ChannelAxis {
			continue
		}
		f := factor
		if f > d {
			f = d
		}
		if f < 1 {
			f = 1
		}
		factors[i] = f
		outShape[i] = d / f
	}

	size := 1
	for _, d := range outShape {
		size *= d
	}
	sums := make([]float64, size)
	counts := make([]float64, size)
	idx := make([]int, len(inShape))
	dst := make([]int, len(inShape))
	for _, v := range src.Data() {
		inside := true
		for i := range idx {
			dst[i] = idx[i] / factors[i]
			if dst[i] >= outShape[i] {
				inside = false
			}
		}
		if inside {
			o := offset(dst, outShape)
			sums[o] += v
			counts[o]++
		}
		advance(idx, inShape)
	}
	for i, c := range counts {
		if c > 0 {
			sums[i] /= c
		}
	}
	out, err := ndarray.New(sums, outShape...)
	if err != nil {
		return nil, err
	}
	return r.WithData(out)
}

// offset is the row-major flat index of idx in shape
func offset(idx, shape []int) int {
	off := 0
	for i, v := range idx {
		off = off*shape[i] + v
	}
	return off
}

// advance steps idx to the next row-major position in shape
func advance(idx, shape []int) {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < shape[i] {
			return
		}
		idx[i] = 0
	}
}
