package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrCorruptData is returned when a persisted triangular file is malformed or truncated.
var ErrCorruptData = errors.New("tristeg: corrupt data")

// maxDimension bounds width and height accepted from a file.
const maxDimension = 1<<16 - 1

// preallocLimit caps allocation driven by an unverified header.
const preallocLimit = 1 << 20

// SecretImage holds an image split into its upper triangle (col >= row,
// diagonal included) and strict lower triangle (col < row), each in
// row-major scan order.
type SecretImage struct {
	width  int
	height int
	upper  []int
	lower  []int
}

// TriangularSizes returns how many pixels of a width x height grid fall on
// or above the diagonal and below it. For square grids these are
// w(w+1)/2 and w(w-1)/2.
func TriangularSizes(width, height int) (upper, lower int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	k := min(width, height)
	upper = k*width - k*(k-1)/2
	return upper, width*height - upper
}

// Split partitions img into its triangular halves.
func Split(img *GrayImage) *SecretImage {
	u, l := TriangularSizes(img.width, img.height)
	s := &SecretImage{
		width:  img.width,
		height: img.height,
		upper:  make([]int, 0, u),
		lower:  make([]int, 0, l),
	}
	s.fill(img)
	return s
}

func (s *SecretImage) fill(img *GrayImage) {
	for i := 0; i < s.height; i++ {
		row := img.pix[i*s.width : (i+1)*s.width]
		for j, v := range row {
			if j >= i {
				s.upper = append(s.upper, int(v))
			} else {
				s.lower = append(s.lower, int(v))
			}
		}
	}
}

// NewSecretImage builds a representation from existing arrays. The slices
// are copied and their lengths must match the sizes implied by width and height.
func NewSecretImage(width, height int, upper, lower []int) (*SecretImage, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("dimensions %dx%d: %w", width, height, ErrInvalidFormat)
	}
	u, l := TriangularSizes(width, height)
	if len(upper) != u || len(lower) != l {
		return nil, fmt.Errorf("%dx%d wants %d upper and %d lower values, got %d and %d: %w",
			width, height, u, l, len(upper), len(lower), ErrInvalidFormat)
	}
	return &SecretImage{
		width:  width,
		height: height,
		upper:  append([]int(nil), upper...),
		lower:  append([]int(nil), lower...),
	}, nil
}

func (s *SecretImage) Width() int  { return s.width }
func (s *SecretImage) Height() int { return s.height }

// Upper returns a copy of the upper triangular values.
func (s *SecretImage) Upper() []int { return append([]int(nil), s.upper...) }

// Lower returns a copy of the strict lower triangular values.
func (s *SecretImage) Lower() []int { return append([]int(nil), s.lower...) }

// Reconstruct rebuilds the full image.
func (s *SecretImage) Reconstruct() (*GrayImage, error) {
	u, l := TriangularSizes(s.width, s.height)
	if len(s.upper) != u || len(s.lower) != l {
		return nil, fmt.Errorf("reconstruct %dx%d from %d upper and %d lower values: %w",
			s.width, s.height, len(s.upper), len(s.lower), ErrInvalidFormat)
	}

	img := NewGrayImage(s.width, s.height)
	ui, li := 0, 0
	for i := 0; i < s.height; i++ {
		for j := 0; j < s.width; j++ {
			var v int
			if j >= i {
				v = s.upper[ui]
				ui++
			} else {
				v = s.lower[li]
				li++
			}
			if err := img.SetPixel(i, j, v); err != nil {
				return nil, err
			}
		}
	}
	return img, nil
}

// SaveBack re-splits a modified image of the same dimensions into s.
func (s *SecretImage) SaveBack(img *GrayImage) error {
	if img.width != s.width || img.height != s.height {
		return fmt.Errorf("save back %dx%d into %dx%d: %w", img.width, img.height, s.width, s.height, ErrInvalidFormat)
	}
	s.upper = s.upper[:0]
	s.lower = s.lower[:0]
	s.fill(img)
	return nil
}

// WriteTo serializes s as three text lines: "width height", the upper
// values and the lower values, space separated.
func (s *SecretImage) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	buf := make([]byte, 0, 64)

	buf = strconv.AppendInt(buf[:0], int64(s.width), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(s.height), 10)
	buf = append(buf, '\n')
	m, err := bw.Write(buf)
	n += int64(m)
	if err != nil {
		return n, err
	}

	for _, values := range [][]int{s.upper, s.lower} {
		for i, v := range values {
			buf = buf[:0]
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = strconv.AppendInt(buf, int64(v), 10)
			m, err := bw.Write(buf)
			n += int64(m)
			if err != nil {
				return n, err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

// MarshalText returns the serialized form of s.
func (s *SecretImage) MarshalText() ([]byte, error) {
	var b bytes.Buffer
	if _, err := s.WriteTo(&b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Digest returns the BLAKE3 digest of the serialized form.
func (s *SecretImage) Digest() ([32]byte, error) {
	text, err := s.MarshalText()
	if err != nil {
		return [32]byte{}, err
	}
	return Digest(text), nil
}

// ReadSecretImage parses the text format written by WriteTo. A zstd-framed
// stream is decompressed transparently. Any missing, malformed or surplus
// token, or a value on the wrong line, yields ErrCorruptData.
func ReadSecretImage(r io.Reader) (*SecretImage, error) {
	s, _, err := readSecretImage(r)
	return s, err
}

// readSecretImage also reports whether the stream was zstd-framed.
func readSecretImage(r io.Reader) (*SecretImage, bool, error) {
	rc, framed, err := MaybeZstd(r)
	if err != nil {
		return nil, false, fmt.Errorf("%v: %w", err, ErrCorruptData)
	}
	defer rc.Close()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64), 64)
	sc.Split(scanFields)
	p := &tokenParser{sc: sc}

	width, err := p.next("width")
	if err != nil {
		return nil, framed, err
	}
	height, err := p.next("height")
	if err != nil {
		return nil, framed, err
	}
	if width < 0 || height < 0 || width > maxDimension || height > maxDimension {
		return nil, framed, fmt.Errorf("dimensions %dx%d: %w", width, height, ErrCorruptData)
	}
	if err := p.endLine("header", false); err != nil {
		return nil, framed, err
	}

	u, l := TriangularSizes(width, height)
	s := &SecretImage{
		width:  width,
		height: height,
		upper:  make([]int, 0, min(u, preallocLimit)),
		lower:  make([]int, 0, min(l, preallocLimit)),
	}
	for i := 0; i < u; i++ {
		v, err := p.next("upper value")
		if err != nil {
			return nil, framed, fmt.Errorf("upper %d of %d: %w", i, u, err)
		}
		s.upper = append(s.upper, v)
	}
	if err := p.endLine("upper line", false); err != nil {
		return nil, framed, err
	}
	for i := 0; i < l; i++ {
		v, err := p.next("lower value")
		if err != nil {
			return nil, framed, fmt.Errorf("lower %d of %d: %w", i, l, err)
		}
		s.lower = append(s.lower, v)
	}
	if err := p.endLine("lower line", true); err != nil {
		return nil, framed, err
	}
	for sc.Scan() {
		if sc.Text() != "\n" {
			return nil, framed, fmt.Errorf("unexpected trailing token %q: %w", sc.Text(), ErrCorruptData)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, framed, fmt.Errorf("%v: %w", err, ErrCorruptData)
	}
	return s, framed, nil
}

// scanFields is a bufio.SplitFunc like bufio.ScanWords, except that each
// newline is returned as its own "\n" token. Spaces, tabs and carriage
// returns separate fields.
func scanFields(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && (data[start] == ' ' || data[start] == '\t' || data[start] == '\r') {
		start++
	}
	if start < len(data) && data[start] == '\n' {
		return start + 1, data[start : start+1], nil
	}
	for i := start; i < len(data); i++ {
		switch data[i] {
		case ' ', '\t', '\r', '\n':
			return i, data[start:i], nil
		}
	}
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

type tokenParser struct {
	sc *bufio.Scanner
}

func (p *tokenParser) scan(what string) (string, error) {
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return "", fmt.Errorf("reading %s: %v: %w", what, err, ErrCorruptData)
		}
		return "", io.EOF
	}
	return p.sc.Text(), nil
}

// next returns the next integer on the current line.
func (p *tokenParser) next(what string) (int, error) {
	text, err := p.scan(what)
	if err == io.EOF {
		return 0, fmt.Errorf("missing %s: %w", what, ErrCorruptData)
	}
	if err != nil {
		return 0, err
	}
	if text == "\n" {
		return 0, fmt.Errorf("line ended before %s: %w", what, ErrCorruptData)
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("malformed %s %q: %w", what, text, ErrCorruptData)
	}
	return v, nil
}

// endLine consumes the newline closing a line. The last line may end at EOF.
func (p *tokenParser) endLine(line string, last bool) error {
	text, err := p.scan("end of " + line)
	if err == io.EOF {
		if last {
			return nil
		}
		return fmt.Errorf("missing newline after %s: %w", line, ErrCorruptData)
	}
	if err != nil {
		return err
	}
	if text != "\n" {
		return fmt.Errorf("unexpected %q at end of %s: %w", text, line, ErrCorruptData)
	}
	return nil
}

// SaveToFile writes s to path. The output is always plain text, so a
// path ending in .zst is refused.
func (s *SecretImage) SaveToFile(path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		return fmt.Errorf("writing %s: zstd output is not supported: %w", path, ErrInvalidFormat)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := s.WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return out.Close()
}

// LoadSecretImage reads a triangular file from path.
func LoadSecretImage(path string) (*SecretImage, error) {
	s, _, err := loadSecretFile(path)
	return s, err
}

// loadSecretFile is LoadSecretImage that also reports zstd framing.
func loadSecretFile(path string) (*SecretImage, bool, error) {
	if path == "" {
		return nil, false, fmt.Errorf("empty file name: %w", ErrCorruptData)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	s, framed, err := readSecretImage(f)
	if err != nil {
		return nil, framed, fmt.Errorf("loading %s: %w", path, err)
	}
	return s, framed, nil
}
