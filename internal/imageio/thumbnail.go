package imageio

import (
	"image"

	"github.com/MeKo-Tech/imageadjust/internal/pixbuf"
	"github.com/disintegration/gift"
)

// Thumbnail returns a copy of buf scaled so its longer side is at most
// maxSide pixels. Buffers that already fit are returned as a clone.
func Thumbnail(buf *pixbuf.Buffer, maxSide int) (*pixbuf.Buffer, error) {
	w, h := buf.Width(), buf.Height()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return buf.Clone(), nil
	}

	var g *gift.GIFT
	if w >= h {
		g = gift.New(gift.Resize(maxSide, 0, gift.LanczosResampling))
	} else {
		g = gift.New(gift.Resize(0, maxSide, gift.LanczosResampling))
	}

	src := buf.ToImage()
	var dst image.Image
	if buf.IsGray() {
		gray := image.NewGray(g.Bounds(src.Bounds()))
		g.Draw(gray, src)
		dst = gray
	} else {
		rgba := image.NewNRGBA(g.Bounds(src.Bounds()))
		g.Draw(rgba, src)
		dst = rgba
	}
	return pixbuf.FromImage(dst)
}
