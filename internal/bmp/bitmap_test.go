package bmp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	xbmp "golang.org/x/image/bmp"

	"github.com/anas-shakeel/imgsort/internal/pixbuf"
)

func randomBuffer(t *testing.T, width, height int, seed int64) *pixbuf.Buffer {
	t.Helper()
	b, err := pixbuf.New(width, height)
	if err != nil {
		t.Fatal(err)
	}
	rand.New(rand.NewSource(seed)).Read(b.Pix())
	return b
}

func encoded(t *testing.T, b *pixbuf.Buffer) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, b, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// onlyReader hides any io.Seeker implementation
type onlyReader struct{ io.Reader }

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if len(p) > w.after {
		return w.after, errors.New("disk full")
	}
	w.after -= len(p)
	return len(p), nil
}

func TestRoundTrip(t *testing.T) {
	sizes := [][2]int{{0, 0}, {0, 3}, {3, 0}, {1, 1}, {3, 1}, {4, 2}, {5, 7}, {17, 3}, {64, 64}}
	for i, size := range sizes {
		t.Run(fmt.Sprintf("%dx%d", size[0], size[1]), func(t *testing.T) {

			// given
			in := randomBuffer(t, size[0], size[1], int64(i))

			// when
			out, err := Decode(bytes.NewReader(encoded(t, in)))
			if err != nil {
				t.Fatal(err)
			}

			// then
			if out.Width() != in.Width() || out.Height() != in.Height() {
				t.Fatalf("expected %dx%d, actual %dx%d", in.Width(), in.Height(), out.Width(), out.Height())
			}
			if !bytes.Equal(out.Pix(), in.Pix()) {
				t.Fatal("pixel bytes differ after round trip")
			}
		})
	}
}

func TestEncodeLayout(t *testing.T) {
	tests := []struct {
		width       int
		wantStride  int
		wantPadding int
	}{
		{3, 12, 3},
		{4, 12, 0},
		{1, 4, 1},
		{2, 8, 2},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("width %d", tt.width), func(t *testing.T) {

			// given
			b := randomBuffer(t, tt.width, 1, 42)

			// when
			data := encoded(t, b)

			// then
			if len(data) != dataOffset+tt.wantStride {
				t.Fatalf("expected %d bytes, actual %d", dataOffset+tt.wantStride, len(data))
			}
			row := data[dataOffset:]
			if !bytes.Equal(row[:tt.width*3], b.Pix()) {
				t.Fatal("pixel bytes not written verbatim")
			}
			for i, v := range row[tt.width*3:] {
				if v != 0 {
					t.Fatalf("padding byte %d is %#x", i, v)
				}
			}
			if n := len(row) - tt.width*3; n != tt.wantPadding {
				t.Fatalf("expected %d padding bytes, actual %d", tt.wantPadding, n)
			}
		})
	}
}

func TestEncodeHeaders(t *testing.T) {
	b := randomBuffer(t, 5, 3, 7)
	data := encoded(t, b)
	le := binary.LittleEndian

	checks := []struct {
		name      string
		got, want uint32
	}{
		{"magic", uint32(le.Uint16(data[0:2])), 0x4d42},
		{"file size", le.Uint32(data[2:6]), uint32(len(data))},
		{"reserved", le.Uint32(data[6:10]), 0},
		{"data offset", le.Uint32(data[10:14]), 54},
		{"info size", le.Uint32(data[14:18]), 40},
		{"width", le.Uint32(data[18:22]), 5},
		{"height", le.Uint32(data[22:26]), 3},
		{"planes", uint32(le.Uint16(data[26:28])), 1},
		{"bpp", uint32(le.Uint16(data[28:30])), 24},
		{"compression", le.Uint32(data[30:34]), 0},
		{"image size", le.Uint32(data[34:38]), 16 * 3},
		{"x resolution", le.Uint32(data[38:42]), DefaultResolution},
		{"y resolution", le.Uint32(data[42:46]), DefaultResolution},
		{"palette", le.Uint32(data[46:50]), 0},
		{"important colors", le.Uint32(data[50:54]), 0},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %d, actual %d", c.name, c.want, c.got)
		}
	}
}

func TestEncodeResolution(t *testing.T) {
	var buf bytes.Buffer
	b := randomBuffer(t, 2, 2, 1)
	if err := Encode(&buf, b, &Options{XPixelsPerM: 2835, YPixelsPerM: 1000}); err != nil {
		t.Fatal(err)
	}

	h, err := DecodeHeader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if h.Info.XPixelsPerM != 2835 || h.Info.YPixelsPerM != 1000 {
		t.Fatalf("invalid resolution %dx%d", h.Info.XPixelsPerM, h.Info.YPixelsPerM)
	}
}

func TestEncodeWriteError(t *testing.T) {
	b := randomBuffer(t, 100, 100, 3)
	for _, after := range []int{0, 10, 60, 5000} {
		err := Encode(&failingWriter{after: after}, b, nil)
		if !errors.Is(err, ErrWrite) {
			t.Fatalf("failing after %d bytes: expected ErrWrite, actual %v", after, err)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := encoded(t, randomBuffer(t, 3, 2, 9))

	patch := func(offset int, value ...byte) []byte {
		data := bytes.Clone(valid)
		copy(data[offset:], value)
		return data
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrCorrupt},
		{"one byte", []byte{'B'}, ErrCorrupt},
		{"wrong magic", patch(0, 'P', 'K'), ErrUnsupported},
		{"wrong magic, truncated", []byte("PK\x03"), ErrUnsupported},
		{"truncated file header", valid[:10], ErrCorrupt},
		{"truncated info header", valid[:30], ErrCorrupt},
		{"info header size 108", patch(14, 108), ErrUnsupported},
		{"two color planes", patch(26, 2), ErrUnsupported},
		{"32 bits per pixel", patch(28, 32), ErrUnsupported},
		{"8 bits per pixel", patch(28, 8), ErrUnsupported},
		{"rle compression", patch(30, 1), ErrUnsupported},
		{"color palette", patch(46, 16), ErrUnsupported},
		{"negative width", patch(18, 0xfd, 0xff, 0xff, 0xff), ErrUnsupported},
		{"maximum width, minimum height", patch(18, 0xff, 0xff, 0xff, 0x7f, 0x00, 0x00, 0x00, 0x80), ErrUnsupported},
		{"maximum width and height", patch(18, 0xff, 0xff, 0xff, 0x7f, 0xff, 0xff, 0xff, 0x7f), ErrUnsupported},
		{"truncated pixels", valid[:len(valid)-8], ErrCorrupt},
		{"no pixels", valid[:dataOffset], ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, actual %v", tt.wantErr, err)
			}

			_, err = Decode(onlyReader{bytes.NewReader(tt.data)})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("without seeking: expected %v, actual %v", tt.wantErr, err)
			}
		})
	}
}

func TestDecodeShortStream(t *testing.T) {
	// given: headers claiming 40000x35000 followed by four bytes of pixels
	data := encoded(t, randomBuffer(t, 3, 2, 9))[:dataOffset+4]
	binary.LittleEndian.PutUint32(data[18:22], 40000)
	binary.LittleEndian.PutUint32(data[22:26], 35000)

	// when
	_, err := Decode(bytes.NewReader(data))

	// then: rejected before the pixel array is allocated
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, actual %v", err)
	}
}

func TestDecodeMissingFinalPadding(t *testing.T) {
	in := randomBuffer(t, 3, 2, 11)
	data := encoded(t, in)

	// Drop the 3 padding bytes after the last row
	out, err := Decode(bytes.NewReader(data[:len(data)-3]))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Pix(), in.Pix()) {
		t.Fatal("pixel bytes differ")
	}
}

func TestDecodeDataOffset(t *testing.T) {
	in := randomBuffer(t, 2, 3, 5)
	data := encoded(t, in)

	// Move the pixel array 10 bytes further into the file
	gap := make([]byte, 10)
	shifted := append(append(bytes.Clone(data[:dataOffset]), gap...), data[dataOffset:]...)
	binary.LittleEndian.PutUint32(shifted[10:14], dataOffset+10)

	for name, r := range map[string]io.Reader{
		"seeker":     bytes.NewReader(shifted),
		"non-seeker": onlyReader{bytes.NewReader(shifted)},
	} {
		t.Run(name, func(t *testing.T) {
			out, err := Decode(r)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(out.Pix(), in.Pix()) {
				t.Fatal("pixel bytes differ")
			}
		})
	}
}

func TestDecodeNegativeHeight(t *testing.T) {
	in := randomBuffer(t, 3, 2, 13)
	data := encoded(t, in)
	binary.LittleEndian.PutUint32(data[22:26], uint32(0xfffffffe)) // -2

	h, err := DecodeHeader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if !h.TopDown() || h.Height() != 2 {
		t.Fatalf("expected top-down height 2, actual topDown=%v height=%d", h.TopDown(), h.Height())
	}

	// Rows stay in file order either way
	out, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Pix(), in.Pix()) {
		t.Fatal("pixel bytes differ")
	}
}

// Third-party decoders treat a positive height as bottom-up, so they see
// row 0 of the buffer as the bottom row.
func TestThirdPartyDecoder(t *testing.T) {
	in := randomBuffer(t, 5, 3, 17)

	img, err := xbmp.Decode(bytes.NewReader(encoded(t, in)))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 5 || img.Bounds().Dy() != 3 {
		t.Fatalf("invalid bounds %v", img.Bounds())
	}
	for y := 0; y < in.Height(); y++ {
		for x := 0; x < in.Width(); x++ {
			p := in.At(x, y)
			want := color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xff}
			got := color.RGBAModel.Convert(img.At(x, in.Height()-1-y)).(color.RGBA)
			if got != want {
				t.Fatalf("invalid pixel at (%d, %d): expected %+v, actual %+v", x, y, want, got)
			}
		}
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "out.bmp")
	in := randomBuffer(t, 7, 4, 19)

	if err := WriteFile(name, in, nil); err != nil {
		t.Fatal(err)
	}
	out, err := ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Pix(), in.Pix()) {
		t.Fatal("pixel bytes differ")
	}

	h, err := ReadHeaderFile(name)
	if err != nil {
		t.Fatal(err)
	}
	var meta bytes.Buffer
	h.Print(&meta, name)
	if !bytes.Contains(meta.Bytes(), []byte("Padding: \t3 bytes")) {
		t.Fatalf("unexpected metadata:\n%s", meta.String())
	}

	// Only the finished bitmap is left behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.bmp" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}

func TestFileErrors(t *testing.T) {
	dir := t.TempDir()
	b := randomBuffer(t, 1, 1, 23)

	if _, err := ReadFile(filepath.Join(dir, "missing.bmp")); !errors.Is(err, ErrRead) {
		t.Fatalf("expected ErrRead, actual %v", err)
	}
	if _, err := ReadHeaderFile(filepath.Join(dir, "missing.bmp")); !errors.Is(err, ErrRead) {
		t.Fatalf("expected ErrRead, actual %v", err)
	}
	if err := WriteFile(filepath.Join(dir, "no", "such", "dir.bmp"), b, nil); !errors.Is(err, ErrWrite) {
		t.Fatalf("expected ErrWrite, actual %v", err)
	}

	notBitmap := filepath.Join(dir, "text.bmp")
	if err := os.WriteFile(notBitmap, []byte("hello, world"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(notBitmap); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, actual %v", err)
	}
}
