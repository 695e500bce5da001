package main

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync"

	mandel "github.com/marben/gray_mandel"
)

type imgWorkScheduler struct {
	workers int
	region  mandel.Region
	img     *image.Gray

	ctx       context.Context
	ctxCancel context.CancelFunc

	totalPixels    int
	finishedPixels int

	unstarted map[image.Rectangle]struct{}
	inProcess map[image.Rectangle]struct{}
	m         sync.Mutex
}

func newImgWorkScheduler(bounds mandel.Bounds, viewport mandel.Viewport, tileSize int) *imgWorkScheduler {
	img := image.NewGray(image.Rect(0, 0, bounds.Width, bounds.Height))
	allTilesSlice := splitRectNoClip(img.Bounds(), tileSize, tileSize)
	allTiles := make(map[image.Rectangle]struct{}, len(allTilesSlice))
	for _, t := range allTilesSlice {
		allTiles[t] = struct{}{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &imgWorkScheduler{
		img:         img,
		region:      viewport.Region(),
		unstarted:   allTiles,
		inProcess:   make(map[image.Rectangle]struct{}),
		totalPixels: bounds.Pixels(),
		ctx:         ctx,
		ctxCancel:   cancel,
	}
}

func (iws *imgWorkScheduler) popTile() (tile image.Rectangle, found bool) {
	iws.m.Lock()
	defer iws.m.Unlock()

	// Get unstarted tile
	if len(iws.unstarted) > 0 {
		for tile = range iws.unstarted {
			break
		}
		delete(iws.unstarted, tile)

		// Move popped tile to currently processed tiles
		iws.inProcess[tile] = struct{}{}
		return tile, true
	}

	// If there is no unstarted tile, we work again on a started one.
	// Rendering is deterministic, so whichever copy finishes first wins.
	if len(iws.inProcess) > 0 {
		for tile = range iws.inProcess {
			break
		}

		return tile, true
	}

	return image.Rectangle{}, false
}

// GetImage implements mandel.ImgProvider.
func (iws *imgWorkScheduler) GetImage() (*image.Gray, error) {
	<-iws.ctx.Done()
	return iws.img, nil
}

var _ mandel.ImgProvider = (*imgWorkScheduler)(nil)

// done is closed once every tile has been rendered
func (iws *imgWorkScheduler) done() <-chan struct{} {
	return iws.ctx.Done()
}

func (iws *imgWorkScheduler) finished() float32 {
	iws.m.Lock()
	defer iws.m.Unlock()
	return float32(iws.finishedPixels) / float32(iws.totalPixels)
}

func (iws *imgWorkScheduler) tileFinished(tileImg *image.Gray) {
	defer func() { log.Printf("finished: %.1f%%", 100*iws.finished()) }()

	rect := tileImg.Bounds()
	iws.m.Lock()
	defer iws.m.Unlock()

	_, found := iws.inProcess[rect]
	if !found {
		// another renderer delivered this tile already
		return
	}

	draw.Draw(
		iws.img,
		rect,     // destination rectangle (global coords)
		tileImg,  // source image
		rect.Min, // source start
		draw.Src,
	)
	iws.finishedPixels += rect.Dx() * rect.Dy()
	delete(iws.inProcess, rect)

	if len(iws.unstarted) == 0 && len(iws.inProcess) == 0 {
		iws.ctxCancel()
	}
}

func (iws *imgWorkScheduler) incActiveWorkers() {
	iws.m.Lock()
	iws.workers++
	w := iws.workers
	iws.m.Unlock()

	log.Printf("workers: %d", w)
}

func (iws *imgWorkScheduler) decActiveWorkers() {
	iws.m.Lock()
	iws.workers--
	w := iws.workers
	iws.m.Unlock()

	log.Printf("workers: %d", w)
}

// addRenderer renders unfinished tiles on provided Renderer until none are left
// or the renderer fails. The failed tile stays in process for other renderers.
// Can be called from multiple goroutines in parallel.
func (iws *imgWorkScheduler) addRenderer(renderer mandel.Renderer) error {
	iws.incActiveWorkers()
	defer iws.decActiveWorkers()

	b := iws.img.Bounds()
	for {
		tile, found := iws.popTile()
		if !found {
			return nil
		}
		tileImg, err := renderer.RenderTile(iws.region, tile, b.Dx(), b.Dy())
		if err != nil {
			return fmt.Errorf("render of tile %s: %w", tile, err)
		}
		if tileImg.Bounds() != tile {
			return fmt.Errorf("render of tile %s returned %s", tile, tileImg.Bounds())
		}
		iws.tileFinished(tileImg)
	}
}

// splitRectNoClip splits r into tiles of size tileW × tileH.
// Tiles at the right and bottom edges are smaller if r is not divisible.
func splitRectNoClip(r image.Rectangle, tileW, tileH int) []image.Rectangle {
	if tileW <= 0 || tileH <= 0 {
		panic("tile dimensions must be positive")
	}

	w := r.Dx()
	h := r.Dy()

	var tiles []image.Rectangle

	for oy := 0; oy < h; oy += tileH {
		th := tileH
		if oy+th > h {
			th = h - oy
		}

		for ox := 0; ox < w; ox += tileW {
			tw := tileW
			if ox+tw > w {
				tw = w - ox
			}

			tile := image.Rect(
				r.Min.X+ox,
				r.Min.Y+oy,
				r.Min.X+ox+tw,
				r.Min.Y+oy+th,
			)
			tiles = append(tiles, tile)
		}
	}

	return tiles
}
