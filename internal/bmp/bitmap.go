// bmp package reads and writes 24-bit uncompressed bitmaps.
//
// Rows are kept in the order they are stored in the file: row 0 of the
// decoded buffer is the first row on disk, and Encode writes row 0 first.
// Most viewers treat a positive height as bottom-up, so a buffer that went
// through Decode and Encode displays the same as the original, but a buffer
// built by hand appears vertically mirrored in those viewers.
package bmp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/anas-shakeel/imgsort/internal/pixbuf"
)

// Largest pixel array a header may describe
const maxPixelBytes = min(math.MaxUint32, math.MaxInt)

// Header is a validated pair of bitmap headers.
type Header struct {
	File FileHeader
	Info InfoHeader
}

// Width in pixels
func (h *Header) Width() int { return int(h.Info.Width) }

// Height returns the number of rows, whatever the row order.
func (h *Header) Height() int {
	if h.Info.Height < 0 {
		return -int(h.Info.Height)
	}
	return int(h.Info.Height)
}

// TopDown reports whether the header signals top-down row order (negative height).
func (h *Header) TopDown() bool { return h.Info.Height < 0 }

// Stride is the number of bytes per row on disk, padding included.
func (h *Header) Stride() int { return paddedRowSize(h.Width()) }

// Padding is the number of zero bytes appended to every row on disk.
func (h *Header) Padding() int { return h.Stride() - h.Width()*bytesPerPixel }

// Print the header in human-readable format
func (h *Header) Print(w io.Writer, filename string) {
	fmt.Fprintf(w, "Filename: \t%v\n", filename)
	fmt.Fprintf(w, "Filesize: \t%v bytes\n", h.File.Size)
	fmt.Fprintf(w, "Width: \t\t%v px\n", h.Width())
	fmt.Fprintf(w, "Height: \t%v px\n", h.Height())
	fmt.Fprintf(w, "TopDown: \t%v\n", h.TopDown())
	fmt.Fprintf(w, "BitCount: \t%vbits\n", h.Info.BitCount)
	fmt.Fprintf(w, "PixelOffset: \t%v bytes\n", h.File.OffBits)
	fmt.Fprintf(w, "PixelCount: \t%v pixels\n", h.Width()*h.Height())
	fmt.Fprintf(w, "Resolution: \t%vx%v px/m\n", h.Info.XPixelsPerM, h.Info.YPixelsPerM)
	fmt.Fprintf(w, "Stride: \t%v bytes\n", h.Stride())
	fmt.Fprintf(w, "Padding: \t%v bytes\n", h.Padding())
}

// DecodeHeader reads and validates both headers, leaving r positioned
// right after them.
func DecodeHeader(r io.Reader) (*Header, error) {
	fh, err := readFileHeader(r)
	if err != nil {
		return nil, err
	}
	ih, err := readInfoHeader(r)
	if err != nil {
		return nil, err
	}

	h := &Header{File: fh, Info: ih}
	if h.Width() < 0 {
		return nil, fmt.Errorf("%w: negative width %d", ErrUnsupported, h.Width())
	}
	if w := int64(h.Width()); w != 0 && int64(h.Height()) > maxPixelBytes/bytesPerPixel/w {
		return nil, fmt.Errorf("%w: %dx%d image is too large", ErrUnsupported, h.Width(), h.Height())
	}
	return h, nil
}

// Decode reads a bitmap from r. If r is an io.Seeker the data offset is
// reached by seeking relative to the end of the headers, otherwise by
// discarding bytes.
func Decode(r io.Reader) (*pixbuf.Buffer, error) {
	h, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}

	empty := h.Width() == 0 || h.Height() == 0
	if !empty {
		if err := checkStreamSize(r, h); err != nil {
			return nil, err
		}
	}

	buf, err := pixbuf.New(h.Width(), h.Height())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	if empty {
		return buf, nil
	}

	if err := skipToPixels(r, h.File.OffBits); err != nil {
		return nil, err
	}

	// Buffer reads (the padding skips are tiny)
	br := bufio.NewReader(r)
	padding := h.Padding()
	last := buf.Height() - 1

	for y := 0; y < buf.Height(); y++ {
		if err := readFull(br, buf.Row(y), "pixel row"); err != nil {
			return nil, err
		}

		// Skip the padding; the final row may end at end-of-file without it
		if _, err := br.Discard(padding); err != nil && !(y == last && err == io.EOF) {
			return nil, fmt.Errorf("%w: skipping row padding: %w", ErrCorrupt, err)
		}
	}

	return buf, nil
}

// checkStreamSize fails early when a seekable r is too short to hold the
// pixel array the header describes. The final row's padding may be missing.
func checkStreamSize(r io.Reader, h *Header) error {
	s, ok := r.(io.Seeker)
	if !ok {
		return nil
	}

	pos, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if _, err := s.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	// pos is the end of the headers
	need := pos - dataOffset + int64(h.File.OffBits) +
		int64(h.Stride())*int64(h.Height()-1) + int64(h.Width()*bytesPerPixel)
	if end < need {
		return fmt.Errorf("%w: %dx%d pixel array needs %d bytes, stream has %d", ErrCorrupt, h.Width(), h.Height(), need, end)
	}
	return nil
}

func skipToPixels(r io.Reader, offset uint32) error {
	delta := int64(offset) - dataOffset

	if s, ok := r.(io.Seeker); ok {
		if _, err := s.Seek(delta, io.SeekCurrent); err != nil {
			return fmt.Errorf("%w: seeking to pixel data at %d: %w", ErrCorrupt, offset, err)
		}
		return nil
	}

	if delta < 0 {
		return fmt.Errorf("%w: pixel data offset %d lies inside the headers", ErrCorrupt, offset)
	}
	if _, err := io.CopyN(io.Discard, r, delta); err != nil {
		return fmt.Errorf("%w: seeking to pixel data at %d: %w", ErrCorrupt, offset, err)
	}
	return nil
}

// Options tune the headers Encode writes. A nil *Options means defaults.
type Options struct {
	XPixelsPerM int32 // Horizontal resolution, DefaultResolution if zero
	YPixelsPerM int32 // Vertical resolution, DefaultResolution if zero
}

func (o *Options) resolution() (int32, int32) {
	x, y := int32(DefaultResolution), int32(DefaultResolution)
	if o != nil && o.XPixelsPerM != 0 {
		x = o.XPixelsPerM
	}
	if o != nil && o.YPixelsPerM != 0 {
		y = o.YPixelsPerM
	}
	return x, y
}

// Creates the headers describing b (24 bit uncompressed)
func newHeader(b *pixbuf.Buffer, o *Options) (*Header, error) {
	width, height := b.Width(), b.Height()
	if width > math.MaxInt32 || height > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %dx%d does not fit a bitmap header", ErrWrite, width, height)
	}

	sizeImage := int64(paddedRowSize(width)) * int64(height)
	if sizeImage+dataOffset > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %dx%d image is too large", ErrWrite, width, height)
	}

	xRes, yRes := o.resolution()
	return &Header{
		File: FileHeader{
			Type:    magic,
			Size:    uint32(sizeImage + dataOffset),
			OffBits: dataOffset,
		},
		Info: InfoHeader{
			Size:        infoHeaderLen,
			Width:       int32(width),
			Height:      int32(height),
			Planes:      colorPlanes,
			BitCount:    bitsPerPixel,
			Compression: compressionRGB,
			SizeImage:   uint32(sizeImage),
			XPixelsPerM: xRes,
			YPixelsPerM: yRes,
			ColorsUsed:  paletteSize,
		},
	}, nil
}

// Encode writes b to w as a bitmap, row 0 first.
func Encode(w io.Writer, b *pixbuf.Buffer, o *Options) error {
	h, err := newHeader(b, o)
	if err != nil {
		return err
	}

	// Create a buffer (to reduce syscalls)
	bw := bufio.NewWriter(w)

	headers := make([]byte, 0, dataOffset)
	headers = h.File.appendTo(headers)
	headers = h.Info.appendTo(headers)
	if _, err := bw.Write(headers); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	paddingBytes := make([]byte, h.Padding())
	for y := 0; y < b.Height(); y++ {
		if _, err := bw.Write(b.Row(y)); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
		if _, err := bw.Write(paddingBytes); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// ReadFile decodes the bitmap file at filename.
func ReadFile(filename string) (*pixbuf.Buffer, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer file.Close()

	return Decode(file)
}

// ReadHeaderFile decodes only the headers of the bitmap file at filename.
func ReadHeaderFile(filename string) (*Header, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer file.Close()

	return DecodeHeader(file)
}

// WriteFile encodes b into filename. The bitmap is written to a temporary
// file in the same directory and renamed over filename only once complete,
// so a failed write never leaves a truncated bitmap behind.
func WriteFile(filename string, b *pixbuf.Buffer, o *Options) (err error) {
	dir, base := filepath.Split(filename)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, b, o); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err = os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
