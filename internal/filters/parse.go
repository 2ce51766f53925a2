package filters

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/anas-shakeel/imgsort/internal/pixbuf"
)

var ErrUnknownFilter = errors.New("unknown filter")

// Parse turns a filter spec into a Filter. Accepted specs:
//
//	invert
//	grayscale
//	luma
//	brightness:<add|multiply>:<factor>
//	contrast:<factor>
func Parse(spec string) (Filter, error) {
	name, args, _ := strings.Cut(strings.TrimSpace(spec), ":")

	switch strings.ToLower(name) {
	case "invert":
		return Invert, nil
	case "grayscale":
		return Grayscale, nil
	case "luma":
		return GrayscaleLuma, nil

	case "brightness":
		method, value, ok := strings.Cut(args, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q: expected brightness:<add|multiply>:<factor>", ErrUnknownFilter, spec)
		}
		factor, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid brightness factor %q: %w", value, err)
		}
		operation, err := brightnessOperation(factor, method)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrUnknownFilter, spec, err)
		}
		return func(b *pixbuf.Buffer) {
			applyChannels(b, operation)
		}, nil

	case "contrast":
		factor, err := strconv.ParseFloat(args, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid contrast factor %q: %w", args, err)
		}
		return func(b *pixbuf.Buffer) {
			Contrast(b, factor)
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, spec)
}

// ParseAll parses every spec, in order.
func ParseAll(specs []string) ([]Filter, error) {
	out := make([]Filter, 0, len(specs))
	for _, spec := range specs {
		f, err := Parse(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
