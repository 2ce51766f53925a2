// Filters perform color manipulation and per-pixel operations
package filters

import (
	"errors"

	"github.com/anas-shakeel/imgsort/internal/pixbuf"
	"github.com/anas-shakeel/imgsort/internal/utils"
)

// A Filter modifies a buffer in-place.
type Filter func(b *pixbuf.Buffer)

// Applies fn to every pixel of b
func eachPixel(b *pixbuf.Buffer, fn func(p pixbuf.Pixel) pixbuf.Pixel) {
	for row := 0; row < b.Height(); row++ {
		for col := 0; col < b.Width(); col++ {
			b.Set(col, row, fn(b.At(col, row)))
		}
	}
}

// Inverts (negates) the bitmap image
func Invert(b *pixbuf.Buffer) {
	pix := b.Pix()
	for i := range pix {
		pix[i] = 255 - pix[i]
	}
}

// Converts a bitmap to Black-and-White
func Grayscale(b *pixbuf.Buffer) {
	eachPixel(b, func(p pixbuf.Pixel) pixbuf.Pixel {
		avg := byte(Brightness(p))
		return pixbuf.Pixel{B: avg, G: avg, R: avg}
	})
}

// Converts a bitmap to Black-and-White (with ITU-R 601-2 Luma Transform)
func GrayscaleLuma(b *pixbuf.Buffer) {
	eachPixel(b, func(p pixbuf.Pixel) pixbuf.Pixel {
		L := byte(int(p.R)*299/1000 + int(p.G)*587/1000 + int(p.B)*114/1000)
		return pixbuf.Pixel{B: L, G: L, R: L}
	})
}

// Adjusts the Brightness of a bitmap in-place.
//
// method can be "add" (adds value to each channel) or "multiply" (multiplies each channel by value).
// Pixel values are clipped to [0, 255].
func AdjustBrightness(b *pixbuf.Buffer, factor float64, method string) error {
	operation, err := brightnessOperation(factor, method)
	if err != nil {
		return err
	}
	applyChannels(b, operation)
	return nil
}

// Select an operation of brightness (additive or multiplicative)
func brightnessOperation(factor float64, method string) (func(x float64) float64, error) {
	switch method {
	case "add":
		return func(x float64) float64 { return x + factor }, nil
	case "multiply":
		return func(x float64) float64 { return x * factor }, nil
	}
	return nil, errors.New("invalid method: method must be add or multiply")
}

// Applies operation to every channel of b, clipped to [0, 255]
func applyChannels(b *pixbuf.Buffer, operation func(x float64) float64) {
	pix := b.Pix()
	for i := range pix {
		pix[i] = utils.Clamp(operation(float64(pix[i])))
	}
}

// Adjusts the Contrast of a bitmap in-place.
// factor > 1.0 increases Contrast, factor < 1.0 decreases it.
func Contrast(b *pixbuf.Buffer, factor float64) {
	totalPixels := b.Width() * b.Height()
	if totalPixels == 0 {
		return
	}

	// Compute mean for each channel
	var sumR, sumG, sumB int
	for row := 0; row < b.Height(); row++ {
		for col := 0; col < b.Width(); col++ {
			p := b.At(col, row)
			sumR += int(p.R)
			sumG += int(p.G)
			sumB += int(p.B)
		}
	}
	meanR := float64(sumR / totalPixels)
	meanG := float64(sumG / totalPixels)
	meanB := float64(sumB / totalPixels)

	// Apply contrast
	eachPixel(b, func(p pixbuf.Pixel) pixbuf.Pixel {
		return pixbuf.Pixel{
			R: utils.Clamp(float64(p.R)*factor + (1-factor)*meanR),
			G: utils.Clamp(float64(p.G)*factor + (1-factor)*meanG),
			B: utils.Clamp(float64(p.B)*factor + (1-factor)*meanB),
		}
	})
}
