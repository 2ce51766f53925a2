// Package pixbuf holds raw 24-bit pixels in memory. It knows nothing about
// file formats: no headers, no row padding.
package pixbuf

import (
	"errors"
	"fmt"
)

// BytesPerPixel is the size of one pixel in the buffer.
const BytesPerPixel = 3

var (
	ErrDimensions = errors.New("pixbuf: width and height must not be negative")
	ErrSize       = errors.New("pixbuf: pixel data does not match dimensions")
)

// Pixel is one pixel, laid out in the order bitmaps store it on disk.
type Pixel struct {
	B, G, R byte
}

// Buffer is a width x height image stored row-major, row 0 first, as
// interleaved B,G,R triples. len(Pix()) is always 3*width*height.
type Buffer struct {
	width  int
	height int
	pix    []byte
}

// New returns a zero-filled (black) buffer of the given size.
// A zero width or height gives a valid, empty buffer.
func New(width, height int) (*Buffer, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensions, width, height)
	}
	return &Buffer{
		width:  width,
		height: height,
		pix:    make([]byte, BytesPerPixel*width*height),
	}, nil
}

// FromBytes wraps data as a width x height buffer. The buffer takes
// ownership of data.
func FromBytes(width, height int, data []byte) (*Buffer, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensions, width, height)
	}
	if want := BytesPerPixel * width * height; len(data) != want {
		return nil, fmt.Errorf("%w: %dx%d needs %d bytes, got %d", ErrSize, width, height, want, len(data))
	}
	return &Buffer{width: width, height: height, pix: data}, nil
}

func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }

// Pix returns the underlying bytes. Writes through it mutate the buffer.
func (b *Buffer) Pix() []byte { return b.pix }

// Stride is the number of bytes in one row.
func (b *Buffer) Stride() int { return b.width * BytesPerPixel }

// Row returns row y as a slice aliasing the buffer.
func (b *Buffer) Row(y int) []byte {
	start := y * b.Stride()
	return b.pix[start : start+b.Stride() : start+b.Stride()]
}

func (b *Buffer) offset(x, y int) int {
	return (y*b.width + x) * BytesPerPixel
}

// At returns the pixel at column x, row y.
func (b *Buffer) At(x, y int) Pixel {
	i := b.offset(x, y)
	return Pixel{B: b.pix[i], G: b.pix[i+1], R: b.pix[i+2]}
}

// Set stores p at column x, row y.
func (b *Buffer) Set(x, y int, p Pixel) {
	i := b.offset(x, y)
	b.pix[i] = p.B
	b.pix[i+1] = p.G
	b.pix[i+2] = p.R
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	pix := make([]byte, len(b.pix))
	copy(pix, b.pix)
	return &Buffer{width: b.width, height: b.height, pix: pix}
}
