package main

import (
	"errors"
	"math"
	"testing"
)

func makeFlatGray(w, h int, v uint8) *GrayImage {
	img := NewGrayImage(w, h)
	for i := range img.pix {
		img.pix[i] = v
	}
	return img
}

func TestFilters(t *testing.T) {
	// -1 marks a pixel whose value sits on a rounding edge and is not checked.
	for _, tc := range []struct {
		name  string
		src   *GrayImage
		apply func(*GrayImage) error
		want  []int
	}{
		{
			name:  "mean_3",
			src:   makeFlatGray(3, 3, 90),
			apply: func(g *GrayImage) error { return g.MeanFilter(3) },
			want:  []int{40, 60, 40, 60, 90, 60, 40, 60, 40},
		},
		{
			name:  "mean_5",
			src:   makeFlatGray(3, 3, 90),
			apply: func(g *GrayImage) error { return g.MeanFilter(5) },
			want:  []int{32, 32, 32, 32, 32, 32, 32, 32, 32},
		},
		{
			name:  "gaussian_3",
			src:   makeFlatGray(3, 3, 200),
			apply: func(g *GrayImage) error { return g.GaussianSmoothing(3, 1) },
			want:  []int{105, 145, 105, 145, -1, 145, 105, 145, 105},
		},
		{
			name:  "unsharp_3",
			src:   makeFlatGray(3, 3, 200),
			apply: func(g *GrayImage) error { return g.UnsharpMask(3, 1) },
			want:  []int{255, 255, 255, 255, -1, 255, 255, 255, 255},
		},
		{
			name:  "unsharp_3_half",
			src:   makeFlatGray(3, 3, 200),
			apply: func(g *GrayImage) error { return g.UnsharpMask(3, 0.5) },
			want:  []int{247, 227, 247, 227, -1, 227, 247, 227, 247},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			img := tc.src.Clone()
			if err := tc.apply(img); err != nil {
				t.Fatalf("filter: %v", err)
			}
			for i, want := range tc.want {
				if want >= 0 && int(img.pix[i]) != want {
					t.Fatalf("pixels = %v, want %v", img.pix, tc.want)
				}
			}
		})
	}
}

func TestFilters_UnitKernelIsIdentity(t *testing.T) {
	src := makeTestGray(9, 7)
	for name, apply := range map[string]func(*GrayImage) error{
		"mean":     func(g *GrayImage) error { return g.MeanFilter(1) },
		"gaussian": func(g *GrayImage) error { return g.GaussianSmoothing(1, 2.5) },
		"unsharp":  func(g *GrayImage) error { return g.UnsharpMask(1, 3) },
	} {
		img := src.Clone()
		if err := apply(img); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !img.Equal(src) {
			t.Fatalf("%s with a 1x1 kernel changed pixels", name)
		}
	}
}

func TestFilters_InvalidParameters(t *testing.T) {
	for _, tc := range []struct {
		name  string
		apply func(*GrayImage) error
	}{
		{name: "mean_zero", apply: func(g *GrayImage) error { return g.MeanFilter(0) }},
		{name: "mean_even", apply: func(g *GrayImage) error { return g.MeanFilter(2) }},
		{name: "mean_negative", apply: func(g *GrayImage) error { return g.MeanFilter(-3) }},
		{name: "gaussian_even", apply: func(g *GrayImage) error { return g.GaussianSmoothing(4, 1) }},
		{name: "gaussian_zero_sigma", apply: func(g *GrayImage) error { return g.GaussianSmoothing(3, 0) }},
		{name: "gaussian_negative_sigma", apply: func(g *GrayImage) error { return g.GaussianSmoothing(3, -1) }},
		{name: "gaussian_nan_sigma", apply: func(g *GrayImage) error { return g.GaussianSmoothing(3, math.NaN()) }},
		{name: "unsharp_even", apply: func(g *GrayImage) error { return g.UnsharpMask(2, 1) }},
		{name: "unsharp_nan_amount", apply: func(g *GrayImage) error { return g.UnsharpMask(3, math.NaN()) }},
		{name: "unsharp_inf_amount", apply: func(g *GrayImage) error { return g.UnsharpMask(3, math.Inf(1)) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			img := makeTestGray(5, 5)
			if err := tc.apply(img); !errors.Is(err, ErrInvalidKernel) {
				t.Fatalf("got %v, want ErrInvalidKernel", err)
			}
			if !img.Equal(makeTestGray(5, 5)) {
				t.Fatalf("rejected filter modified the image")
			}
		})
	}
}

func TestFilters_EmptyImage(t *testing.T) {
	for _, img := range []*GrayImage{NewGrayImage(0, 0), NewGrayImage(0, 4)} {
		if err := img.MeanFilter(3); err != nil {
			t.Fatalf("MeanFilter: %v", err)
		}
		if err := img.GaussianSmoothing(3, 1); err != nil {
			t.Fatalf("GaussianSmoothing: %v", err)
		}
		if err := img.UnsharpMask(3, 1); err != nil {
			t.Fatalf("UnsharpMask: %v", err)
		}
	}
}

func TestFilters_DestroyPayload(t *testing.T) {
	message := "meet at noon"
	s, err := Hide(makeTestGray(30, 30), message)
	if err != nil {
		t.Fatalf("Hide: %v", err)
	}

	for name, apply := range map[string]func(*GrayImage) error{
		"mean":     func(g *GrayImage) error { return g.MeanFilter(3) },
		"gaussian": func(g *GrayImage) error { return g.GaussianSmoothing(3, 1) },
	} {
		img, err := s.Reconstruct()
		if err != nil {
			t.Fatalf("Reconstruct: %v", err)
		}
		if err := apply(img); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		got, err := Reveal(Split(img), len(message))
		if err != nil {
			t.Fatalf("Reveal after %s: %v", name, err)
		}
		if got == message {
			t.Fatalf("message survived %s smoothing", name)
		}
	}
}
