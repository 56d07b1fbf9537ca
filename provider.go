package mandel

import (
	"image"
)

//go:generate go run github.com/marben/irpc/cmd/irpc $GOFILE

// ImgProvider returns the most recently presented frame. It is served to
// remote viewers over irpc.
type ImgProvider interface {
	GetImage() (image.RGBA, error)
}
