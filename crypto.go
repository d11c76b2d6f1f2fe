package main

import (
	"errors"
	"fmt"
)

// bitsPerChar is the width of one encoded character. Only 7-bit ASCII fits.
const bitsPerChar = 7

var (
	ErrCapacityExceeded = errors.New("tristeg: not enough pixels for payload")
	ErrInvalidBitLength = errors.New("tristeg: bit count is not a multiple of 7")
	ErrInvalidBit       = errors.New("tristeg: bit value is not 0 or 1")
	ErrNonASCII         = errors.New("tristeg: message byte outside 7-bit ASCII")
)

// Bits is a payload of 0/1 values, seven per character, msb-first.
type Bits []uint8

// EncryptMessage converts message to its 7-bit msb-first bit sequence.
// Every byte must be below 0x80; multi-byte UTF-8 is rejected.
func EncryptMessage(message string) (Bits, error) {
	bits := make(Bits, 0, len(message)*bitsPerChar)
	for i := 0; i < len(message); i++ {
		c := message[i]
		if c >= 1<<bitsPerChar {
			return nil, fmt.Errorf("byte %d (0x%02x): %w", i, c, ErrNonASCII)
		}
		for k := bitsPerChar - 1; k >= 0; k-- {
			bits = append(bits, (c>>k)&1)
		}
	}
	return bits, nil
}

// DecryptMessage is the inverse of EncryptMessage.
func DecryptMessage(bits Bits) (string, error) {
	if len(bits)%bitsPerChar != 0 {
		return "", fmt.Errorf("%d bits: %w", len(bits), ErrInvalidBitLength)
	}
	if err := bits.validate(); err != nil {
		return "", err
	}
	out := make([]byte, 0, len(bits)/bitsPerChar)
	for i := 0; i < len(bits); i += bitsPerChar {
		var c byte
		for _, b := range bits[i : i+bitsPerChar] {
			c = c<<1 | b
		}
		out = append(out, c)
	}
	return string(out), nil
}

func (b Bits) validate() error {
	for i, v := range b {
		if v > 1 {
			return fmt.Errorf("bit %d = %d: %w", i, v, ErrInvalidBit)
		}
	}
	return nil
}

// Capacity returns how many characters img can carry.
func Capacity(img *GrayImage) int {
	return capacityFor(img.width, img.height)
}

func capacityFor(width, height int) int {
	return width * height / bitsPerChar
}

// EmbedBits writes bits into the least significant bits of the last
// len(bits) pixels of img in row-major order. Higher bit planes and all
// earlier pixels are left untouched. Nothing is modified on error.
//
// The payload carries no length header: whoever extracts it must already
// know the character count.
func EmbedBits(img *GrayImage, bits Bits) error {
	total := img.width * img.height
	if len(bits) > total {
		return fmt.Errorf("embed %d bits into %d pixels: %w", len(bits), total, ErrCapacityExceeded)
	}
	if err := bits.validate(); err != nil {
		return err
	}

	start := total - len(bits)
	for i := start; i < total; i++ {
		row, col := i/img.width, i%img.width
		v, err := img.Pixel(row, col)
		if err != nil {
			return err
		}
		if err := img.SetPixel(row, col, v&^1|int(bits[i-start])); err != nil {
			return err
		}
	}
	return nil
}

// ExtractBits reads the least significant bits of the last 7*length pixels.
func ExtractBits(img *GrayImage, length int) (Bits, error) {
	total := img.width * img.height
	if length < 0 || length > total/bitsPerChar {
		return nil, fmt.Errorf("extract %d characters from %d pixels: %w", length, total, ErrCapacityExceeded)
	}
	n := length * bitsPerChar

	bits := make(Bits, 0, n)
	for i := total - n; i < total; i++ {
		v, err := img.Pixel(i/img.width, i%img.width)
		if err != nil {
			return nil, err
		}
		bits = append(bits, uint8(v&1))
	}
	return bits, nil
}

// Hide embeds message into a copy of img and returns the split result.
func Hide(img *GrayImage, message string) (*SecretImage, error) {
	bits, err := EncryptMessage(message)
	if err != nil {
		return nil, err
	}
	carrier := img.Clone()
	if err := EmbedBits(carrier, bits); err != nil {
		return nil, err
	}
	return Split(carrier), nil
}

// Reveal reconstructs s and decodes a message of length characters from it.
func Reveal(s *SecretImage, length int) (string, error) {
	img, err := s.Reconstruct()
	if err != nil {
		return "", err
	}
	bits, err := ExtractBits(img, length)
	if err != nil {
		return "", err
	}
	return DecryptMessage(bits)
}
