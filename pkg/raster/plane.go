package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"spatialcoords/pkg/element"
	"spatialcoords/pkg/ndarray"
)

// Plane extracts the slab at position along the named axis and drops that
// axis, so a (c, y, x) raster sliced along c yields a (y, x) raster.
func Plane(r *element.Raster, axis string, position int) (*element.Raster, error) {
	i := indexOf(r.Axes(), axis)
	if i < 0 {
		return nil, fmt.Errorf("raster %q has no axis %q", r.Name(), axis)
	}
	data := r.Data()
	if position < 0 || position >= data.Dim(i) {
		return nil, fmt.Errorf("position %d out of range for axis %q of length %d", position, axis, data.Dim(i))
	}
	slab, err := data.Slice(i, position, position+1)
	if err != nil {
		return nil, err
	}

	shape := slab.Shape()
	dims := r.Axes()
	shape = append(shape[:i], shape[i+1:]...)
	dims = append(dims[:i], dims[i+1:]...)
	plane, err := ndarray.New(slab.Data(), shape...)
	if err != nil {
		return nil, err
	}
	if r.IsLabels() {
		return element.NewLabels(r.Name(), plane, dims)
	}
	return element.NewRaster(r.Name(), plane, dims)
}

// Image renders a (y, x) raster as a 16-bit grayscale image, stretching
// the value range to the full intensity range.
func Image(r *element.Raster) (*image.Gray16, error) {
	yi, xi := indexOf(r.Axes(), "y"), indexOf(r.Axes(), "x")
	data := r.Data()
	if data.Rank() != 2 || yi < 0 || xi < 0 {
		return nil, fmt.Errorf("raster %q with axes %v is not a (y, x) plane", r.Name(), r.Axes())
	}
	height, width := data.Dim(yi), data.Dim(xi)

	img := image.NewGray16(image.Rect(0, 0, width, height))
	if data.Len() == 0 {
		return img, nil
	}
	lo, hi := floats.Min(data.Data()), floats.Max(data.Data())
	scale := 0.0
	if hi > lo {
		scale = 1 / (hi - lo)
	}
	idx := make([]int, 2)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx[yi], idx[xi] = y, x
			v := (data.At(idx...) - lo) * scale
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Max(0, math.Min(65535, v*65535)))})
		}
	}
	return img, nil
}

// SavePlanes writes one JPEG per position along axis into dir. Every
// plane must reduce to a (y, x) raster.
func SavePlanes(r *element.Raster, axis, dir string) ([]string, error) {
	i := indexOf(r.Axes(), axis)
	if i < 0 {
		return nil, fmt.Errorf("raster %q has no axis %q", r.Name(), axis)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var written []string
	for pos := 0; pos < r.Data().Dim(i); pos++ {
		plane, err := Plane(r, axis, pos)
		if err != nil {
			return written, err
		}
		img, err := Image(plane)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s_%03d.jpg", r.Name(), axis, pos))
		if err := saveJPEG(img, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func saveJPEG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func indexOf(axes []string, name string) int {
	for i, ax := range axes {
		if ax == name {
			return i
		}
	}
	return -1
}
