package main

import (
	"bytes"
	"errors"
	"image"
	"os"
	"testing"
)

// -----------------------------
// Helpers
// -----------------------------

func makeTestGray(w, h int) *GrayImage {
	img := NewGrayImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.pix[y*w+x] = uint8((x * 17) ^ (y * 31))
		}
	}
	return img
}

func loadTestImage(t testing.TB) *GrayImage {
	t.Helper()
	f, err := os.Open("benchmark.png")
	if err != nil {
		t.Skip("benchmark image missing: expected benchmark.png")
		return nil
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("failed to decode benchmark image: %v", err)
	}
	return GrayFromImage(src)
}

// -----------------------------
// End-to-end round trips
// -----------------------------

func TestSplitSerializeReconstruct_RoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		w, h int
	}{
		{name: "1x1", w: 1, h: 1},
		{name: "square_16", w: 16, h: 16},
		{name: "wide_64x48", w: 64, h: 48},
		{name: "tall_7x30", w: 7, h: 30},
		{name: "single_row", w: 9, h: 1},
		{name: "single_col", w: 1, h: 9},
	} {
		t.Run(tc.name, func(t *testing.T) {
			src := makeTestGray(tc.w, tc.h)

			var buf bytes.Buffer
			if _, err := Split(src).WriteTo(&buf); err != nil {
				t.Fatalf("WriteTo: %v", err)
			}
			s, err := ReadSecretImage(&buf)
			if err != nil {
				t.Fatalf("ReadSecretImage: %v", err)
			}
			dec, err := s.Reconstruct()
			if err != nil {
				t.Fatalf("Reconstruct: %v", err)
			}
			if !dec.Equal(src) {
				t.Fatalf("image mismatch after round trip")
			}
		})
	}
}

func TestHideReveal_RoundTrip(t *testing.T) {
	src := makeTestGray(32, 24)
	for _, message := range []string{"", "A", "hello, world", "~!@#$%^&*()_+{}|:<>?\t\n\x00\x7f"} {
		s, err := Hide(src, message)
		if err != nil {
			t.Fatalf("Hide(%q): %v", message, err)
		}

		var buf bytes.Buffer
		if _, err := s.WriteTo(&buf); err != nil {
			t.Fatalf("WriteTo: %v", err)
		}
		loaded, err := ReadSecretImage(&buf)
		if err != nil {
			t.Fatalf("ReadSecretImage: %v", err)
		}

		got, err := Reveal(loaded, len(message))
		if err != nil {
			t.Fatalf("Reveal: %v", err)
		}
		if got != message {
			t.Fatalf("Reveal = %q, want %q", got, message)
		}
	}
}

func TestHide_DoesNotModifySource(t *testing.T) {
	src := makeTestGray(8, 8)
	orig := src.Clone()
	if _, err := Hide(src, "secret"); err != nil {
		t.Fatalf("Hide: %v", err)
	}
	if !src.Equal(orig) {
		t.Fatalf("Hide modified its input")
	}
}

func TestHide_TooLong(t *testing.T) {
	src := makeTestGray(3, 3)
	if _, err := Hide(src, "ab"); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Hide: got %v, want ErrCapacityExceeded", err)
	}
}

func TestHide_BenchmarkImage(t *testing.T) {
	img := loadTestImage(t)
	message := "the quick brown fox jumps over the lazy dog"
	s, err := Hide(img, message)
	if err != nil {
		t.Fatalf("Hide: %v", err)
	}
	got, err := Reveal(s, len(message))
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if got != message {
		t.Fatalf("Reveal = %q, want %q", got, message)
	}
}
