// imgsort sorts the pixels of every column of a 24-bit bitmap by brightness.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/anas-shakeel/imgsort/internal/adjustments"
	"github.com/anas-shakeel/imgsort/internal/bmp"
	"github.com/anas-shakeel/imgsort/internal/config"
	"github.com/anas-shakeel/imgsort/internal/filters"
	"github.com/anas-shakeel/imgsort/internal/keyexpr"
	"github.com/anas-shakeel/imgsort/internal/preview"
)

const usage = `usage: imgsort [flags] <input file> [<output file>]
<input file> has to be a file path to an uncompressed 24 bit BMP image file
`

// listFlag collects every occurrence of a repeatable flag
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes the command line and returns the exit status.
func run(args []string, stdout io.Writer) int {
	logger := log.New(stdout, "", 0)

	fs := flag.NewFlagSet("imgsort", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.Usage = func() {
		fmt.Fprint(stdout, usage)
		fs.PrintDefaults()
	}

	var filterSpecs listFlag
	configPath := fs.String("config", config.DefaultPath, "YAML configuration file")
	key := fs.String("key", "", "sort key expression over R, G, B (default brightness (R+G+B)/3)")
	fs.Var(&filterSpecs, "filter", "filter applied before sorting (repeatable): invert, grayscale, luma, brightness:<add|multiply>:<factor>, contrast:<factor>")
	flip := fs.Bool("flip", false, "mirror rows after sorting")
	xres := fs.Int("xres", 0, "horizontal resolution in pixels-per-meter (default 3780)")
	yres := fs.Int("yres", 0, "vertical resolution in pixels-per-meter (default 3780)")
	crop := fs.String("crop", "", "crop to x,y,width,height before sorting")
	info := fs.Bool("info", false, "print the input file's metadata")
	previewCols := fs.Int("preview", -1, "print the sorted image scaled to at most N pixels wide (0 = full size)")
	verbose := fs.Bool("v", false, "log progress")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprint(stdout, usage)
		return 0
	}
	if fs.NArg() > 2 {
		fmt.Fprintf(stdout, "unexpected argument %q: flags must come before the file names\n", fs.Arg(2))
		fmt.Fprint(stdout, usage)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Println(err)
		return 1
	}

	// Flags override the configuration file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "key":
			cfg.Key = *key
		case "filter":
			cfg.Filters = filterSpecs
		case "flip":
			cfg.Flip = *flip
		case "xres":
			cfg.Resolution.Horizontal = int32(*xres)
		case "yres":
			cfg.Resolution.Vertical = int32(*yres)
		}
	})
	if fs.NArg() >= 2 {
		cfg.Output = fs.Arg(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Println(err)
		return 1
	}

	progress := func(format string, v ...any) {
		if *verbose {
			logger.Printf(format, v...)
		}
	}

	if err := sortFile(fs.Arg(0), cfg, *crop, *info, *previewCols, stdout, progress); err != nil {
		logger.Println(err)
		return 1
	}
	return 0
}

// sortFile runs the whole pipeline: decode, filter, sort, encode.
func sortFile(input string, cfg config.Config, crop string, info bool, previewCols int, stdout io.Writer, progress func(string, ...any)) error {
	pre, err := filters.ParseAll(cfg.Filters)
	if err != nil {
		return err
	}

	var sortKey filters.KeyFunc = filters.Brightness
	var expr *keyexpr.Expr
	if cfg.Key != "" {
		if expr, err = keyexpr.Compile(cfg.Key); err != nil {
			return err
		}
		sortKey = expr.Key
	}

	if info {
		h, err := bmp.ReadHeaderFile(input)
		if err != nil {
			return err
		}
		h.Print(stdout, input)
	}

	img, err := bmp.ReadFile(input)
	if err != nil {
		return err
	}
	progress("Read %s: %dx%d", input, img.Width(), img.Height())

	if crop != "" {
		var x, y, w, h int
		if _, err := fmt.Sscanf(crop, "%d,%d,%d,%d", &x, &y, &w, &h); err != nil {
			return fmt.Errorf("invalid crop %q: expected x,y,width,height", crop)
		}
		if img, err = adjustments.Crop(img, x, y, w, h); err != nil {
			return err
		}
		progress("Cropped to %dx%d", w, h)
	}

	for i, f := range pre {
		f(img)
		progress("Applied filter %s", cfg.Filters[i])
	}

	filters.SortColumnsBy(img, sortKey)
	if expr != nil && expr.Err() != nil {
		return expr.Err()
	}
	progress("Sorted %d columns", img.Width())

	if cfg.Flip {
		adjustments.FlipVertical(img)
		progress("Flipped rows")
	}

	if previewCols >= 0 {
		if err := preview.Print(stdout, img, previewCols); err != nil {
			return err
		}
	}

	if err := bmp.WriteFile(cfg.Output, img, cfg.BitmapOptions()); err != nil {
		return err
	}
	progress("Wrote %s", cfg.Output)
	return nil
}
