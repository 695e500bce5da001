package mandel

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"testing"
)

func TestRenderWritesEveryPixel(t *testing.T) {
	b := Bounds{Width: 37, Height: 23}
	v := FullSet

	// Every computed value is either 0 or in [1, 254], never the sentinel.
	const sentinel = 255
	pixels := bytes.Repeat([]byte{sentinel}, b.Pixels())
	Render(pixels, b, v.UpperLeft, v.LowerRight)

	for i, p := range pixels {
		if p == sentinel {
			t.Fatalf("index %d (row %d, column %d) not written", i, i/b.Width, i%b.Width)
		}
	}
}

func TestRenderMatchesIntensity(t *testing.T) {
	b := Bounds{Width: 16, Height: 9}
	ul, lr := complex(-2.0, 1.0), complex(1.0, -1.0)

	pixels := make([]byte, b.Pixels())
	Render(pixels, b, ul, lr)

	for row := 0; row < b.Height; row++ {
		for column := 0; column < b.Width; column++ {
			want := Intensity(PixelToPoint(b, image.Pt(column, row), ul, lr))
			if got := pixels[row*b.Width+column]; got != want {
				t.Errorf("pixel (%d,%d) = %d, want %d", column, row, got, want)
			}
		}
	}

	// -2+1i escapes after one iteration
	if pixels[0] != 254 {
		t.Error("upper left corner rendered as a set member")
	}
}

func TestRenderBufferMismatchPanics(t *testing.T) {
	tests := []struct {
		name  string
		pix   int
		bound Bounds
	}{
		{"short", 99, Bounds{10, 10}},
		{"long", 101, Bounds{10, 10}},
		{"empty", 0, Bounds{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("expected panic")
				}
				if msg := fmt.Sprint(r); !strings.Contains(msg, "does not match") {
					t.Errorf("unexpected panic: %v", msg)
				}
			}()
			Render(make([]byte, tt.pix), tt.bound, FullSet.UpperLeft, FullSet.LowerRight)
		})
	}
}

func TestRenderInvalidBoundsPanics(t *testing.T) {
	tests := []struct {
		name  string
		pix   int
		bound Bounds
	}{
		// 2^32 * 2^32 wraps to 0 in a 64 bit int
		{"overflow", 0, Bounds{1 << 32, 1 << 32}},
		{"negative", 1, Bounds{-1, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, render := range []func(){
				func() { Render(make([]byte, tt.pix), tt.bound, FullSet.UpperLeft, FullSet.LowerRight) },
				func() { RenderParallel(make([]byte, tt.pix), tt.bound, FullSet.UpperLeft, FullSet.LowerRight, 2) },
			} {
				func() {
					defer func() {
						if msg := fmt.Sprint(recover()); !strings.Contains(msg, "invalid bounds") {
							t.Errorf("unexpected panic: %v", msg)
						}
					}()
					render()
				}()
			}
		})
	}
}

func TestRenderParallelMatchesRender(t *testing.T) {
	b := Bounds{Width: 64, Height: 41}
	v := SeahorseValley

	want := make([]byte, b.Pixels())
	Render(want, b, v.UpperLeft, v.LowerRight)

	for _, workers := range []int{0, 1, 3, 8, 100} {
		got := make([]byte, b.Pixels())
		RenderParallel(got, b, v.UpperLeft, v.LowerRight, workers)
		if !bytes.Equal(got, want) {
			t.Errorf("workers=%d: output differs from Render", workers)
		}
	}
}

func TestRenderParallelBufferMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	RenderParallel(make([]byte, 3), Bounds{2, 2}, FullSet.UpperLeft, FullSet.LowerRight, 2)
}

func TestTileRendererMatchesRender(t *testing.T) {
	const w, h = 50, 30
	v := ElephantValley

	full := make([]byte, w*h)
	Render(full, Bounds{w, h}, v.UpperLeft, v.LowerRight)

	var rendered []image.Rectangle
	tr := TileRenderer{OnTileRender: func(tile image.Rectangle) { rendered = append(rendered, tile) }}

	tiles := []image.Rectangle{
		image.Rect(0, 0, w, h),
		image.Rect(0, 0, 16, 16),
		image.Rect(48, 16, 50, 30),
		image.Rect(7, 3, 8, 4),
	}
	for _, tile := range tiles {
		img, err := tr.RenderTile(v.Region(), tile, w, h)
		if err != nil {
			t.Fatalf("RenderTile(%s): %v", tile, err)
		}
		if img.Rect != tile {
			t.Fatalf("image bounds %s, want %s", img.Rect, tile)
		}
		for y := tile.Min.Y; y < tile.Max.Y; y++ {
			for x := tile.Min.X; x < tile.Max.X; x++ {
				if got, want := img.GrayAt(x, y).Y, full[y*w+x]; got != want {
					t.Fatalf("tile %s pixel (%d,%d) = %d, want %d", tile, x, y, got, want)
				}
			}
		}
	}
	if len(rendered) != len(tiles) {
		t.Errorf("OnTileRender called %d times, want %d", len(rendered), len(tiles))
	}
}

func TestTileRendererRejectsOutsideTiles(t *testing.T) {
	for _, tile := range []image.Rectangle{
		image.Rect(0, 0, 11, 10),
		image.Rect(-1, 0, 5, 5),
		image.Rect(3, 3, 3, 3),
	} {
		if _, err := (TileRenderer{}).RenderTile(FullSet.Region(), tile, 10, 10); err == nil {
			t.Errorf("tile %s accepted", tile)
		}
	}
}

func BenchmarkRender(b *testing.B) {
	bounds := Bounds{Width: 256, Height: 256}
	pixels := make([]byte, bounds.Pixels())
	v := FullSet

	b.Run("sequential", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			Render(pixels, bounds, v.UpperLeft, v.LowerRight)
		}
	})
	for _, workers := range []int{2, 4, 8} {
		b.Run(fmt.Sprintf("workers-%d", workers), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				RenderParallel(pixels, bounds, v.UpperLeft, v.LowerRight, workers)
			}
		})
	}
}
