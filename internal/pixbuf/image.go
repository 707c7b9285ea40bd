package pixbuf

import (
	"image"
	"image/color"
)

// FromImage copies an image into a buffer. Gray images keep a single
// channel; everything else is converted to straight (non-premultiplied) RGB
// and alpha is dropped.
func FromImage(img image.Image) (*Buffer, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	switch src := img.(type) {
	case *image.Gray:
		buf, err := New(w, h, 1)
		if err != nil {
			return nil, err
		}
		for y := 0; y < h; y++ {
			i := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(buf.pix[y*w:(y+1)*w], src.Pix[i:i+w])
		}
		return buf, nil
	case *image.Gray16:
		buf, err := New(w, h, 1)
		if err != nil {
			return nil, err
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				buf.pix[y*w+x] = uint8(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y >> 8)
			}
		}
		return buf, nil
	case *image.NRGBA:
		buf, err := New(w, h, 3)
		if err != nil {
			return nil, err
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := src.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				o := (y*w + x) * 3
				buf.pix[o+0] = src.Pix[i+0]
				buf.pix[o+1] = src.Pix[i+1]
				buf.pix[o+2] = src.Pix[i+2]
			}
		}
		return buf, nil
	}

	buf, err := New(w, h, 3)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			o := (y*w + x) * 3
			buf.pix[o+0] = c.R
			buf.pix[o+1] = c.G
			buf.pix[o+2] = c.B
		}
	}
	return buf, nil
}

// ToImage returns an *image.Gray for single-channel buffers and an opaque
// *image.NRGBA otherwise.
func (b *Buffer) ToImage() image.Image {
	rect := image.Rect(0, 0, b.width, b.height)
	if b.channels == 1 {
		dst := image.NewGray(rect)
		copy(dst.Pix, b.pix)
		return dst
	}

	dst := image.NewNRGBA(rect)
	for p, o := 0, 0; p < len(b.pix); p, o = p+3, o+4 {
		dst.Pix[o+0] = b.pix[p+0]
		dst.Pix[o+1] = b.pix[p+1]
		dst.Pix[o+2] = b.pix[p+2]
		dst.Pix[o+3] = 255
	}
	return dst
}
