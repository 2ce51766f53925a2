// BMP-specific structs, constants and header (un)packing
package bmp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	fileHeaderLen = 14
	infoHeaderLen = 40
	dataOffset    = fileHeaderLen + infoHeaderLen // Pixel data follows the headers directly when writing

	colorPlanes    = 1
	bitsPerPixel   = 24
	bytesPerPixel  = bitsPerPixel / 8
	compressionRGB = 0 // BI_RGB, uncompressed
	paletteSize    = 0

	// DefaultResolution is 3780 pixels-per-meter (about 96 DPI).
	DefaultResolution = 3780
)

var magic = [2]byte{'B', 'M'}

var (
	ErrRead        = errors.New("error reading input file")
	ErrWrite       = errors.New("error writing output file")
	ErrCorrupt     = errors.New("input file is corrupt or incomplete")
	ErrUnsupported = errors.New("input file has unsupported format")
)

// The FileHeader structure contains information about the type, size,
// and layout of a file that contains a DIB [device-independent bitmap].
// https://learn.microsoft.com/en-us/windows/win32/api/wingdi/ns-wingdi-bitmapfileheader
//
// The two reserved words are skipped on read and written as zero.
type FileHeader struct {
	Type    [2]byte // The file type: must be "BM".
	Size    uint32  // The size, in bytes, of the bitmap file.
	OffBits uint32  // Offset (in bytes) from the start of the file to the pixel array.
}

// The InfoHeader structure contains information about the
// dimensions and color format of a DIB [device-independent bitmap].
type InfoHeader struct {
	Size            uint32 // The number of bytes required by the structure.
	Width           int32  // The width of the bitmap, in pixels.
	Height          int32  // The height of the bitmap, in pixels.
	Planes          uint16 // The number of planes for the target device.
	BitCount        uint16 // The number of bits-per-pixel.
	Compression     uint32 // The type of compression.
	SizeImage       uint32 // The size of the image (in bytes).
	XPixelsPerM     int32  // The horizontal resolution, in pixels-per-meter.
	YPixelsPerM     int32  // The vertical resolution, in pixels-per-meter.
	ColorsUsed      uint32 // Number of color indexes in the palette.
	ColorsImportant uint32 // Number of color indexes required for displaying the bitmap.
}

// Total bytes in a row incl. padding to a 4-byte boundary
func paddedRowSize(width int) int {
	return ((width*bytesPerPixel + 3) / 4) * 4
}

// readFull reads exactly len(buf) bytes. Any shortfall or read failure
// means the file is corrupt.
func readFull(r io.Reader, buf []byte, what string) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("%w: reading %s: %w", ErrCorrupt, what, err)
	}
	return nil
}

func readFileHeader(r io.Reader) (FileHeader, error) {
	var h FileHeader
	var b [fileHeaderLen]byte

	// Check the identifier before reading the rest
	if err := readFull(r, b[:2], "file identifier"); err != nil {
		return h, err
	}
	if b[0] != magic[0] || b[1] != magic[1] {
		return h, fmt.Errorf("%w: expected identifier %q, actual %q", ErrUnsupported, magic[:], b[:2])
	}
	if err := readFull(r, b[2:], "file header"); err != nil {
		return h, err
	}

	h.Type = [2]byte{b[0], b[1]}
	h.Size = binary.LittleEndian.Uint32(b[2:6])
	// b[6:10] reserved
	h.OffBits = binary.LittleEndian.Uint32(b[10:14])
	return h, nil
}

func readInfoHeader(r io.Reader) (InfoHeader, error) {
	var h InfoHeader
	var b [infoHeaderLen]byte

	if err := readFull(r, b[:], "info header"); err != nil {
		return h, err
	}

	le := binary.LittleEndian
	h.Size = le.Uint32(b[0:4])
	h.Width = int32(le.Uint32(b[4:8]))
	h.Height = int32(le.Uint32(b[8:12]))
	h.Planes = le.Uint16(b[12:14])
	h.BitCount = le.Uint16(b[14:16])
	h.Compression = le.Uint32(b[16:20])
	h.SizeImage = le.Uint32(b[20:24])
	h.XPixelsPerM = int32(le.Uint32(b[24:28]))
	h.YPixelsPerM = int32(le.Uint32(b[28:32]))
	h.ColorsUsed = le.Uint32(b[32:36])
	h.ColorsImportant = le.Uint32(b[36:40])

	switch {
	case h.Size != infoHeaderLen:
		return h, fmt.Errorf("%w: info header size %d", ErrUnsupported, h.Size)
	case h.Planes != colorPlanes:
		return h, fmt.Errorf("%w: %d color planes", ErrUnsupported, h.Planes)
	case h.BitCount != bitsPerPixel:
		return h, fmt.Errorf("%w: %d bits per pixel", ErrUnsupported, h.BitCount)
	case h.Compression != compressionRGB:
		return h, fmt.Errorf("%w: compression method %d", ErrUnsupported, h.Compression)
	case h.ColorsUsed != paletteSize:
		return h, fmt.Errorf("%w: color palette of %d entries", ErrUnsupported, h.ColorsUsed)
	}
	return h, nil
}

func (h *FileHeader) appendTo(b []byte) []byte {
	b = append(b, h.Type[0], h.Type[1])
	b = binary.LittleEndian.AppendUint32(b, h.Size)
	b = binary.LittleEndian.AppendUint32(b, 0) // Reserved
	return binary.LittleEndian.AppendUint32(b, h.OffBits)
}

func (h *InfoHeader) appendTo(b []byte) []byte {
	le := binary.LittleEndian
	b = le.AppendUint32(b, h.Size)
	b = le.AppendUint32(b, uint32(h.Width))
	b = le.AppendUint32(b, uint32(h.Height))
	b = le.AppendUint16(b, h.Planes)
	b = le.AppendUint16(b, h.BitCount)
	b = le.AppendUint32(b, h.Compression)
	b = le.AppendUint32(b, h.SizeImage)
	b = le.AppendUint32(b, uint32(h.XPixelsPerM))
	b = le.AppendUint32(b, uint32(h.YPixelsPerM))
	b = le.AppendUint32(b, h.ColorsUsed)
	return le.AppendUint32(b, h.ColorsImportant)
}
