// Package preview prints small renderings of pixel buffers to a terminal
// using 24-bit ANSI background colors, two spaces per pixel.
package preview

import (
	"bufio"
	"image"
	"image/color"
	"io"

	"golang.org/x/image/draw"

	"github.com/anas-shakeel/imgsort/internal/pixbuf"
	"github.com/anas-shakeel/imgsort/internal/utils"
)

// Image adapts b to image.Image. Row 0 of b is the top row.
func Image(b *pixbuf.Buffer) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width(), b.Height()))
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < b.Width(); x++ {
			p := b.At(x, y)
			img.SetRGBA(x, y, color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xff})
		}
	}
	return img
}

// Fit returns the size b is printed at: at most maxCols pixels wide,
// keeping the aspect ratio. Images narrower than maxCols keep their size.
func Fit(width, height, maxCols int) (int, int) {
	if maxCols <= 0 || width <= maxCols {
		return width, height
	}
	h := height * maxCols / width
	if h == 0 && height > 0 {
		h = 1
	}
	return maxCols, h
}

// Print writes b to w scaled to at most maxCols pixels per line.
// A maxCols of zero or less prints b at full size (use for small images only).
func Print(w io.Writer, b *pixbuf.Buffer, maxCols int) error {
	src := Image(b)
	width, height := Fit(b.Width(), b.Height(), maxCols)

	dst := src
	if width != b.Width() {
		dst = image.NewRGBA(image.Rect(0, 0, width, height))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}

	bw := bufio.NewWriter(w)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := dst.RGBAAt(x, y)
			bw.WriteString(utils.ColoredBlock("  ", int(c.R), int(c.G), int(c.B)))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
