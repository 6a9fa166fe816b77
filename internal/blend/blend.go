// Package blend re-inserts regenerated region content into the full frame.
// The binary watermark mask is blurred into a feather mask so the seam
// between regenerated and original pixels fades over the blur radius instead
// of showing a hard edge.
package blend

import (
	"fmt"
	"image"
)

// featherKernelSize matches the fixed 21x21 Gaussian used for feathering.
const featherKernelSize = 21

// Compositor blends regenerated content back into frames using a feather
// mask precomputed from the immutable watermark mask.
type Compositor struct {
	feather []float64 // Row-major, normalized to [0, 1]
	w, h    int
}

// NewCompositor builds the feather mask from a binary watermark mask sized to
// the watermark region.
func NewCompositor(mask *image.Gray) *Compositor {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()

	feather := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			feather[y*w+x] = float64(mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
		}
	}

	gaussianBlur(feather, w, h, featherKernelSize)
	for i := range feather {
		feather[i] /= 255.0
	}

	return &Compositor{feather: feather, w: w, h: h}
}

// Composite returns a copy of full with the pixels inside bounds replaced by
// feather*regen + (1-feather)*raw per color channel. Pixels outside bounds
// are untouched. regen and raw must both have the region's dimensions.
func (c *Compositor) Composite(full *image.RGBA, bounds image.Rectangle, regen, raw *image.RGBA) (*image.RGBA, error) {
	out := image.NewRGBA(full.Bounds())
	if err := c.CompositeInto(out, full, bounds, regen, raw); err != nil {
		return nil, err
	}
	return out, nil
}

// CompositeInto is Composite writing into a caller-owned buffer of the same
// geometry as full, so frame buffers can be recycled across the stream.
func (c *Compositor) CompositeInto(out, full *image.RGBA, bounds image.Rectangle, regen, raw *image.RGBA) error {
	if bounds.Dx() != c.w || bounds.Dy() != c.h {
		return fmt.Errorf("composite: bounds %v do not match %dx%d mask", bounds, c.w, c.h)
	}
	for _, r := range []*image.RGBA{regen, raw} {
		if r.Bounds().Dx() != c.w || r.Bounds().Dy() != c.h {
			return fmt.Errorf("composite: region %v does not match %dx%d mask", r.Bounds(), c.w, c.h)
		}
	}
	if out.Rect != full.Rect {
		return fmt.Errorf("composite: output %v does not match frame %v", out.Rect, full.Rect)
	}

	if out.Stride == full.Stride {
		copy(out.Pix, full.Pix)
	} else {
		for y := full.Rect.Min.Y; y < full.Rect.Max.Y; y++ {
			fo := full.PixOffset(full.Rect.Min.X, y)
			oo := out.PixOffset(full.Rect.Min.X, y)
			copy(out.Pix[oo:oo+full.Rect.Dx()*4], full.Pix[fo:fo+full.Rect.Dx()*4])
		}
	}

	for y := 0; y < c.h; y++ {
		outOff := out.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		regenOff := regen.PixOffset(regen.Bounds().Min.X, regen.Bounds().Min.Y+y)
		rawOff := raw.PixOffset(raw.Bounds().Min.X, raw.Bounds().Min.Y+y)

		for x := 0; x < c.w; x++ {
			f := c.feather[y*c.w+x]
			for ch := 0; ch < 3; ch++ {
				g := float64(regen.Pix[regenOff+x*4+ch])
				r := float64(raw.Pix[rawOff+x*4+ch])
				out.Pix[outOff+x*4+ch] = clamp8(f*g + (1-f)*r)
			}
			out.Pix[outOff+x*4+3] = 255
		}
	}

	return nil
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
