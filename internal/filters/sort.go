package filters

import (
	"cmp"
	"slices"

	"github.com/anas-shakeel/imgsort/internal/pixbuf"
	"github.com/anas-shakeel/imgsort/internal/utils"
)

// KeyFunc maps a pixel to the value columns are sorted by.
type KeyFunc func(p pixbuf.Pixel) int

// Brightness is the truncated average of the three channels.
func Brightness(p pixbuf.Pixel) int {
	return utils.Average(int(p.R), int(p.G), int(p.B))
}

// SortColumns reorders the pixels of every column of b by ascending
// brightness, in-place, and returns b. Pixels never leave their column.
// Equal brightness values end up in no particular order.
func SortColumns(b *pixbuf.Buffer) *pixbuf.Buffer {
	return SortColumnsBy(b, Brightness)
}

// SortColumnsBy is SortColumns with a custom sort key. key is called once
// per pixel.
func SortColumnsBy(b *pixbuf.Buffer, key KeyFunc) *pixbuf.Buffer {
	width, height := b.Width(), b.Height()
	if width == 0 || height <= 1 {
		return b
	}

	type keyed struct {
		key int
		p   pixbuf.Pixel
	}
	column := make([]keyed, height)

	for col := 0; col < width; col++ {
		for row := 0; row < height; row++ {
			p := b.At(col, row)
			column[row] = keyed{key: key(p), p: p}
		}

		slices.SortFunc(column, func(x, y keyed) int {
			return cmp.Compare(x.key, y.key)
		})

		for row, k := range column {
			b.Set(col, row, k.p)
		}
	}
	return b
}
