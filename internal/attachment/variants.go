package attachment

import (
	"image"

	"golang.org/x/image/draw"
)

// Style is a derived image size. Variants are cropped to fill the box
// exactly, keeping the center of the original.
type Style struct {
	Name   string
	Width  int
	Height int
}

const StyleOriginal = "original"

var Styles = []Style{
	{Name: "medium", Width: 300, Height: 300},
	{Name: "thumb", Width: 100, Height: 100},
}

// fill scales src to cover w x h and crops the overflow evenly on both sides.
func fill(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}

	crop := b
	if sw*h > sh*w {
		// wider than the target: trim left and right
		cw := sh * w / h
		x0 := b.Min.X + (sw-cw)/2
		crop = image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	} else if sw*h < sh*w {
		ch := sw * h / w
		y0 := b.Min.Y + (sh-ch)/2
		crop = image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
	}

	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}
