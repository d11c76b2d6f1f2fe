package main

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidKernel is returned for a kernel size that is not a positive odd
// number, a non-positive sigma, or a non-finite amount.
var ErrInvalidKernel = errors.New("tristeg: invalid filter kernel")

// Neighbours outside the image count as zero in every filter below, so
// borders darken. Results are truncated toward zero, then clamped.

func checkKernel(kernelSize int) error {
	if kernelSize < 1 || kernelSize%2 == 0 {
		return fmt.Errorf("kernel size %d: %w", kernelSize, ErrInvalidKernel)
	}
	return nil
}

// MeanFilter replaces each pixel with the box average of its
// kernelSize x kernelSize neighbourhood.
func (g *GrayImage) MeanFilter(kernelSize int) error {
	if err := checkKernel(kernelSize); err != nil {
		return err
	}
	half := kernelSize / 2
	area := kernelSize * kernelSize
	src := g.Clone()

	for i := 0; i < g.height; i++ {
		for j := 0; j < g.width; j++ {
			sum := 0
			for k := -half; k <= half; k++ {
				for l := -half; l <= half; l++ {
					if src.inBounds(i+k, j+l) {
						sum += int(src.pix[(i+k)*g.width+j+l])
					}
				}
			}
			g.pix[i*g.width+j] = uint8(clamp(sum/area, 0, 255))
		}
	}
	return nil
}

// gaussianKernel returns a normalized kernelSize x kernelSize kernel, row-major.
func gaussianKernel(kernelSize int, sigma float64) []float64 {
	half := kernelSize / 2
	kernel := make([]float64, 0, kernelSize*kernelSize)
	sum := 0.0
	for x := -half; x <= half; x++ {
		for y := -half; y <= half; y++ {
			v := math.Exp(-float64(x*x+y*y)/(2*sigma*sigma)) / (2 * math.Pi * sigma * sigma)
			kernel = append(kernel, v)
			sum += v
		}
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// GaussianSmoothing convolves g with a Gaussian kernel of the given size and sigma.
func (g *GrayImage) GaussianSmoothing(kernelSize int, sigma float64) error {
	if err := checkKernel(kernelSize); err != nil {
		return err
	}
	if !(sigma > 0) {
		return fmt.Errorf("sigma %v: %w", sigma, ErrInvalidKernel)
	}
	half := kernelSize / 2
	kernel := gaussianKernel(kernelSize, sigma)
	src := g.Clone()

	for i := 0; i < g.height; i++ {
		for j := 0; j < g.width; j++ {
			sum := 0.0
			for k := -half; k <= half; k++ {
				for l := -half; l <= half; l++ {
					if src.inBounds(i+k, j+l) {
						w := kernel[(k+half)*kernelSize+l+half]
						sum += float64(src.pix[(i+k)*g.width+j+l]) * w
					}
				}
			}
			g.pix[i*g.width+j] = uint8(clamp(int(sum), 0, 255))
		}
	}
	return nil
}

// UnsharpMask sharpens g as original + amount*(original - blurred), where
// blurred is a sigma 1 Gaussian of the given kernel size.
func (g *GrayImage) UnsharpMask(kernelSize int, amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("amount %v: %w", amount, ErrInvalidKernel)
	}
	blurred := g.Clone()
	if err := blurred.GaussianSmoothing(kernelSize, 1.0); err != nil {
		return err
	}
	for i, v := range g.pix {
		orig := float64(v)
		sharp := orig + amount*(orig-float64(blurred.pix[i]))
		g.pix[i] = uint8(math.Max(0, math.Min(255, sharp)))
	}
	return nil
}
