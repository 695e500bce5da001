package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	mandel "github.com/marben/gray_mandel"
)

// regionNames lists the predefined regions for help output
func regionNames() string {
	return strings.Join(slices.Sorted(maps.Keys(mandel.Regions)), ", ")
}

// viewportFromFlags starts from the --region preset and overrides
// its corners with --upper-left and --lower-right when given.
func viewportFromFlags(cmd *cobra.Command) (mandel.Viewport, error) {
	name, _ := cmd.Flags().GetString("region")
	v, err := mandel.RegionByName(name)
	if err != nil {
		return mandel.Viewport{}, fmt.Errorf("%w (known: %s)", err, regionNames())
	}

	if s, _ := cmd.Flags().GetString("upper-left"); s != "" {
		if v.UpperLeft, err = mandel.ParseComplex(s); err != nil {
			return mandel.Viewport{}, fmt.Errorf("error parsing upper left corner point %q: %w", s, err)
		}
	}
	if s, _ := cmd.Flags().GetString("lower-right"); s != "" {
		if v.LowerRight, err = mandel.ParseComplex(s); err != nil {
			return mandel.Viewport{}, fmt.Errorf("error parsing lower right corner point %q: %w", s, err)
		}
	}

	if real(v.UpperLeft) == real(v.LowerRight) || imag(v.UpperLeft) == imag(v.LowerRight) {
		return mandel.Viewport{}, fmt.Errorf("degenerate viewport %s", v)
	}
	return v, nil
}
