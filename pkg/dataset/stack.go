package dataset

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"spatialcoords/pkg/ndarray"
)

// imageExtensions are the slice formats a stack directory may hold
var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// loadPixels reads a single image as a (y, x) array or a directory of
// equally sized slices as a (z, y, x) array. Slices are ordered by the
// number embedded in their file names.
func loadPixels(path string) (*ndarray.Array, []string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		img, err := loadImage(path)
		if err != nil {
			return nil, nil, err
		}
		values, w, h := imageToFloat(img)
		data, err := ndarray.New(values, h, w)
		return data, []string{"y", "x"}, err
	}

	files, err := os.ReadDir(path)
	if err != nil {
		return nil, nil, err
	}
	var names []string
	for _, f := range files {
		if !f.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(f.Name()))] {
			names = append(names, f.Name())
		}
	}
	if len(names) == 0 {
		return nil, nil, fmt.Errorf("no JPEG or PNG slices found in %s", path)
	}
	sort.SliceStable(names, func(i, j int) bool {
		return extractNumber(names[i]) < extractNumber(names[j])
	})

	var (
		values        []float64
		width, height int
	)
	for i, name := range names {
		img, err := loadImage(filepath.Join(path, name))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load slice %s: %w", name, err)
		}
		slice, w, h := imageToFloat(img)
		if i == 0 {
			width, height = w, h
		} else if w != width || h != height {
			return nil, nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d", name, w, h, width, height)
		}
		values = append(values, slice...)
	}
	data, err := ndarray.New(values, len(names), height, width)
	return data, []string{"z", "y", "x"}, err
}

// extractNumber returns the digits of a file name as a number, or 0
func extractNumber(filename string) int {
	var digits strings.Builder
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// imageToFloat converts the red channel of img to values in [0, 1]
func imageToFloat(img image.Image) ([]float64, int, int) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	out := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out[y*width+x] = float64(r) / 65535.0
		}
	}
	return out, width, height
}
