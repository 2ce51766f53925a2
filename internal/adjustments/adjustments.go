// Adjusts image dimensions, orientation, or structure.
package adjustments

import (
	"errors"
	"fmt"

	"github.com/anas-shakeel/imgsort/internal/pixbuf"
)

var ErrOutOfBounds = errors.New("invalid bounds")

// Crops a region of b into a new buffer (0,0 is the first pixel of row 0)
func Crop(b *pixbuf.Buffer, x, y, width, height int) (*pixbuf.Buffer, error) {
	// Validate bounds
	if x < 0 || y < 0 || width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: negative region %d,%d %dx%d", ErrOutOfBounds, x, y, width, height)
	} else if width+x > b.Width() {
		return nil, fmt.Errorf("%w: width out of bounds", ErrOutOfBounds)
	} else if height+y > b.Height() {
		return nil, fmt.Errorf("%w: height out of bounds", ErrOutOfBounds)
	}

	cropped, err := pixbuf.New(width, height)
	if err != nil {
		return nil, err
	}

	// Copy row slices of the region
	start := x * pixbuf.BytesPerPixel
	for row := 0; row < height; row++ {
		copy(cropped.Row(row), b.Row(row + y)[start:])
	}

	return cropped, nil
}

// FlipVertical mirrors b top to bottom, in-place.
func FlipVertical(b *pixbuf.Buffer) {
	tmp := make([]byte, b.Stride())
	for top, bottom := 0, b.Height()-1; top < bottom; top, bottom = top+1, bottom-1 {
		copy(tmp, b.Row(top))
		copy(b.Row(top), b.Row(bottom))
		copy(b.Row(bottom), tmp)
	}
}
