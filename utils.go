package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// zstdMagic is the little-endian frame magic 0xFD2FB528.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ImageToGray copies any image.Image into an *image.Gray with bounds starting at (0,0).
func ImageToGray(src image.Image) *image.Gray {
	b := src.Bounds()
	if g, ok := src.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// zstdReadCloser closes the decoder once the caller is done.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// MaybeZstd peeks at r and, if it starts with a zstd frame, returns a
// decompressing reader. Otherwise the buffered stream is returned as is.
func MaybeZstd(r io.Reader) (io.ReadCloser, bool, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, false, err
	}
	if !bytes.Equal(head, zstdMagic) {
		return io.NopCloser(br), false, nil
	}
	dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
	if err != nil {
		return nil, false, fmt.Errorf("zstd decode: %w", err)
	}
	return zstdReadCloser{dec}, true, nil
}

// Digest returns the BLAKE3-256 digest of data.
func Digest(data []byte) [32]byte {
	return blake3.Sum256(data)
}

// FormatDigest returns the hex encoding of a digest.
func FormatDigest(digest [32]byte) string {
	return hex.EncodeToString(digest[:])
}
