package mandel

import (
	"image"
)

//go:generate go tool irpc $GOFILE

// ImgProvider hands out the full image once it is rendered.
type ImgProvider interface {
	GetImage() (*image.Gray, error)
}

// Renderer renders tile of an imgW x imgH image of region r.
// The returned image has tile as its bounds.
type Renderer interface {
	RenderTile(r Region, tile image.Rectangle, imgW, imgH int) (*image.Gray, error)
}
