package mandel

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"
)

// Render fills pixels, a row-major buffer of bounds.Width*bounds.Height bytes,
// with the intensity of every pixel of the viewport upperLeft..lowerRight.
// Every index is written exactly once.
//
// Render panics if the buffer length does not match bounds.
func Render(pixels []byte, bounds Bounds, upperLeft, lowerRight complex128) {
	checkBuffer(pixels, bounds)

	for row := 0; row < bounds.Height; row++ {
		renderRow(pixels, bounds, row, upperLeft, lowerRight)
	}
}

// RenderParallel is Render with rows distributed over a pool of workers
// goroutines. workers <= 0 uses one worker per CPU. The result is identical
// to Render.
func RenderParallel(pixels []byte, bounds Bounds, upperLeft, lowerRight complex128, workers int) {
	checkBuffer(pixels, bounds)

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, bounds.Height)

	rows := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range rows {
				renderRow(pixels, bounds, row, upperLeft, lowerRight)
			}
		}()
	}

	for row := 0; row < bounds.Height; row++ {
		rows <- row
	}
	close(rows)
	wg.Wait()
}

func checkBuffer(pixels []byte, bounds Bounds) {
	if bounds.Width < 0 || bounds.Height < 0 || (bounds.Height > 0 && bounds.Width > math.MaxInt/bounds.Height) {
		panic(fmt.Sprintf("mandel: invalid bounds %s", bounds))
	}
	if len(pixels) != bounds.Pixels() {
		panic(fmt.Sprintf("mandel: buffer of %d bytes does not match %s image", len(pixels), bounds))
	}
}

// renderRow writes only the indexes of row, so rows can be rendered concurrently
func renderRow(pixels []byte, bounds Bounds, row int, upperLeft, lowerRight complex128) {
	line := pixels[row*bounds.Width : (row+1)*bounds.Width]
	for column := range line {
		point := PixelToPoint(bounds, image.Point{X: column, Y: row}, upperLeft, lowerRight)
		line[column] = Intensity(point)
	}
}

// TileRenderer renders tiles on the local CPU.
type TileRenderer struct {
	OnTileRender func(tile image.Rectangle)
}

// RenderTile implements Renderer.
func (tr TileRenderer) RenderTile(r Region, tile image.Rectangle, imgW, imgH int) (*image.Gray, error) {
	full := image.Rect(0, 0, imgW, imgH)
	if tile.Empty() || !tile.In(full) {
		return nil, fmt.Errorf("tile %s outside of image %s", tile, full)
	}
	if tr.OnTileRender != nil {
		tr.OnTileRender(tile)
	}

	bounds := Bounds{Width: imgW, Height: imgH}
	v := r.Viewport()

	// Image has global coordinates (tile.Min .. tile.Max)
	img := image.NewGray(tile)
	for py := tile.Min.Y; py < tile.Max.Y; py++ {
		for px := tile.Min.X; px < tile.Max.X; px++ {
			point := PixelToPoint(bounds, image.Point{X: px, Y: py}, v.UpperLeft, v.LowerRight)
			img.Pix[img.PixOffset(px, py)] = Intensity(point)
		}
	}

	return img, nil
}

var _ Renderer = TileRenderer{}
