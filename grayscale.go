package main

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"

	_ "image/gif"
	_ "image/jpeg"
)

var (
	// ErrOutOfRange is returned for pixel coordinates outside the buffer.
	ErrOutOfRange = errors.New("tristeg: pixel coordinates out of range")
	// ErrInvalidFormat is returned when sizes disagree with declared dimensions.
	ErrInvalidFormat = errors.New("tristeg: invalid format")
)

// GrayImage is a single-channel 8-bit pixel buffer stored row-major in one
// flat slice (row stride == width).
type GrayImage struct {
	pix    []uint8
	width  int
	height int
}

// NewGrayImage returns a black image of the given size. Negative
// dimensions are treated as zero; a zero dimension keeps the other one
// and holds no pixels.
func NewGrayImage(width, height int) *GrayImage {
	width, height = max(width, 0), max(height, 0)
	return &GrayImage{
		pix:    make([]uint8, width*height),
		width:  width,
		height: height,
	}
}

// GrayFromImage converts any image.Image to a GrayImage with its origin at (0,0).
func GrayFromImage(src image.Image) *GrayImage {
	gray := ImageToGray(src)
	b := gray.Bounds()
	img := NewGrayImage(b.Dx(), b.Dy())
	for y := 0; y < img.height; y++ {
		copy(img.pix[y*img.width:(y+1)*img.width], gray.Pix[y*gray.Stride:y*gray.Stride+img.width])
	}
	return img
}

// LoadGrayImage decodes a PNG, JPEG or GIF file and converts it to gray.
func LoadGrayImage(path string) (*GrayImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return GrayFromImage(src), nil
}

func (g *GrayImage) Width() int  { return g.width }
func (g *GrayImage) Height() int { return g.height }

// Pixel returns the intensity at (row, col).
func (g *GrayImage) Pixel(row, col int) (int, error) {
	if !g.inBounds(row, col) {
		return 0, fmt.Errorf("get (%d,%d) in %dx%d: %w", row, col, g.width, g.height, ErrOutOfRange)
	}
	return int(g.pix[row*g.width+col]), nil
}

// SetPixel stores value at (row, col), clamped into [0,255].
func (g *GrayImage) SetPixel(row, col, value int) error {
	if !g.inBounds(row, col) {
		return fmt.Errorf("set (%d,%d) in %dx%d: %w", row, col, g.width, g.height, ErrOutOfRange)
	}
	g.pix[row*g.width+col] = uint8(clamp(value, 0, 255))
	return nil
}

func (g *GrayImage) inBounds(row, col int) bool {
	return row >= 0 && row < g.height && col >= 0 && col < g.width
}

// Clone returns a deep copy.
func (g *GrayImage) Clone() *GrayImage {
	c := &GrayImage{width: g.width, height: g.height}
	if g.pix != nil {
		c.pix = append([]uint8(nil), g.pix...)
	}
	return c
}

// Equal reports whether both images have the same size and pixels.
func (g *GrayImage) Equal(other *GrayImage) bool {
	if g.width != other.width || g.height != other.height {
		return false
	}
	for i := range g.pix {
		if g.pix[i] != other.pix[i] {
			return false
		}
	}
	return true
}

// Add returns the per-pixel sum, saturating at 255.
func (g *GrayImage) Add(other *GrayImage) (*GrayImage, error) {
	return g.combine(other, func(a, b int) int { return a + b })
}

// Sub returns the per-pixel difference, saturating at 0.
func (g *GrayImage) Sub(other *GrayImage) (*GrayImage, error) {
	return g.combine(other, func(a, b int) int { return a - b })
}

func (g *GrayImage) combine(other *GrayImage, op func(a, b int) int) (*GrayImage, error) {
	if g.width != other.width || g.height != other.height {
		return nil, fmt.Errorf("%dx%d vs %dx%d: %w", g.width, g.height, other.width, other.height, ErrInvalidFormat)
	}
	out := NewGrayImage(g.width, g.height)
	for i := range g.pix {
		out.pix[i] = uint8(clamp(op(int(g.pix[i]), int(other.pix[i])), 0, 255))
	}
	return out, nil
}

// Image exposes the buffer as an *image.Gray sharing no memory with g.
func (g *GrayImage) Image() *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, g.width, g.height))
	copy(dst.Pix, g.pix)
	return dst
}

// Save writes the image as PNG.
func (g *GrayImage) Save(path string, level png.CompressionLevel) error {
	if g.width == 0 || g.height == 0 {
		return fmt.Errorf("saving %s: empty image: %w", path, ErrInvalidFormat)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()

	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(out, g.Image()); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return out.Close()
}
