package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	mandel "github.com/marben/gray_mandel"
	"github.com/marben/gray_mandel/internal/output"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mandel [flags] FILE PIXELS UPPERLEFT LOWERRIGHT",
		Short: "Render a grayscale image of the Mandelbrot set",
		Long: `Render the region of the complex plane between UPPERLEFT and LOWERRIGHT
into a PIXELS sized grayscale image stored in FILE.

FILE ending in .pgm is written as binary netpbm, .zst as zstd compressed netpbm,
anything else as PNG. Flags must come before FILE.`,
		Example:       "  mandel mandel.png 1000x750 -1.20,0.35 -1,0.20",
		Args:          cobra.ExactArgs(4),
		RunE:          runRender,
		SilenceErrors: true,
	}
	cmd.Flags().IntP("workers", "w", 1, "Number of goroutines rendering rows (0 = one per CPU)")

	// Coordinates such as -1.20,0.35 must not be taken for flags.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	filename := args[0]
	workers, _ := cmd.Flags().GetInt("workers")

	bounds, err := mandel.ParseBounds(args[1])
	if err != nil {
		return fmt.Errorf("error parsing image dimensions %q: %w", args[1], err)
	}
	upperLeft, err := mandel.ParseComplex(args[2])
	if err != nil {
		return fmt.Errorf("error parsing upper left corner point %q: %w", args[2], err)
	}
	lowerRight, err := mandel.ParseComplex(args[3])
	if err != nil {
		return fmt.Errorf("error parsing lower right corner point %q: %w", args[3], err)
	}

	pixels := make([]byte, bounds.Pixels())

	start := time.Now()
	if workers == 1 {
		mandel.Render(pixels, bounds, upperLeft, lowerRight)
	} else {
		mandel.RenderParallel(pixels, bounds, upperLeft, lowerRight, workers)
	}
	log.Printf("rendered %s in %s", bounds, time.Since(start))

	if err := output.Write(filename, pixels, bounds); err != nil {
		return fmt.Errorf("error writing image: %w", err)
	}
	log.Printf("saved %q", filename)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
