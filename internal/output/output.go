// Package output persists intensity buffers as grayscale image files.
package output

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	mandel "github.com/marben/gray_mandel"
)

type encodeFunc func(w io.Writer, pixels []byte, bounds mandel.Bounds) error

// Write stores pixels, a row-major 8 bit grayscale buffer of the given bounds, to filename.
// The format follows the extension: ".pgm" is binary netpbm, ".zst" is zstd compressed
// netpbm and anything else is PNG.
func Write(filename string, pixels []byte, bounds mandel.Bounds) (err error) {
	if len(pixels) != bounds.Pixels() {
		return fmt.Errorf("expected %d bytes for %s image, got %d", bounds.Pixels(), bounds, len(pixels))
	}

	encode := encoderFor(filename)

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing output: %w", cerr)
		}
	}()

	if err := encode(f, pixels, bounds); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	return nil
}

func encoderFor(filename string) encodeFunc {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pgm":
		return encodePGM
	case ".zst":
		return encodeZstdPGM
	default:
		return encodePNG
	}
}

func encodePNG(w io.Writer, pixels []byte, bounds mandel.Bounds) error {
	img := &image.Gray{
		Pix:    pixels,
		Stride: bounds.Width,
		Rect:   image.Rect(0, 0, bounds.Width, bounds.Height),
	}
	return png.Encode(w, img)
}

func encodePGM(w io.Writer, pixels []byte, bounds mandel.Bounds) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P5\n%d %d\n255\n", bounds.Width, bounds.Height); err != nil {
		return err
	}
	if _, err := bw.Write(pixels); err != nil {
		return err
	}
	return bw.Flush()
}

func encodeZstdPGM(w io.Writer, pixels []byte, bounds mandel.Bounds) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("zstd.NewWriter: %w", err)
	}
	if err := encodePGM(zw, pixels, bounds); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
