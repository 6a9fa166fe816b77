package detect

import (
	"fmt"
	"image"
	"image/color"
)

// Voter localizes a static watermark by per-pixel majority voting across a
// small set of sampled frames.
type Voter struct {
	NumSamples   int // Frames sampled across the video
	MinVotes     int // Foreground votes required to keep a pixel
	DilationSize int // Side of the square structuring element
}

// NewVoter creates a voter with the default sampling parameters.
func NewVoter() *Voter {
	return &Voter{
		NumSamples:   10,
		MinVotes:     7,
		DilationSize: 7,
	}
}

// Localize builds the binary watermark mask for the given region of interest.
// The returned mask has full-frame dimensions; pixels outside roi are always
// background. A pixel is foreground iff at least MinVotes of the sampled
// frames binarize it as foreground, so raising MinVotes never grows the mask.
func (v *Voter) Localize(s Sampler, roi image.Rectangle) (*image.Gray, error) {
	total := s.FrameCount()
	if total == 0 {
		return nil, fmt.Errorf("source has no frames")
	}

	var votes []int
	var frameBounds image.Rectangle

	for _, idx := range samplePositions(total, v.NumSamples) {
		frame, err := s.FrameAt(idx)
		if err != nil {
			return nil, fmt.Errorf("sample frame %d: %w", idx, err)
		}

		if votes == nil {
			frameBounds = frame.Bounds()
			votes = make([]int, roi.Dx()*roi.Dy())
		}

		gray := toGrayscale(frame, roi)
		thresh := otsuThreshold(gray)

		// Accumulate foreground votes inside the region
		b := gray.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if gray.GrayAt(x, y).Y > thresh {
					votes[(y-roi.Min.Y)*roi.Dx()+(x-roi.Min.X)]++
				}
			}
		}
	}

	mask := image.NewGray(frameBounds)
	found := false
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			if votes[(y-roi.Min.Y)*roi.Dx()+(x-roi.Min.X)] >= v.MinVotes {
				mask.SetGray(x, y, color.Gray{Y: 255})
				found = true
			}
		}
	}

	if !found {
		return nil, fmt.Errorf("voting at %d/%d samples: %w", v.MinVotes, v.NumSamples, ErrNoWatermark)
	}

	// Absorb edge noise and anti-aliasing halos around the watermark
	return dilate(mask, v.DilationSize, 2), nil
}

// BoundingBox returns the tight bounding box of all foreground pixels,
// expanded by margin on each side and clamped to the mask bounds.
func BoundingBox(mask *image.Gray, margin int) (image.Rectangle, error) {
	b := mask.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.GrayAt(x, y).Y == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < minX || maxY < minY {
		return image.Rectangle{}, fmt.Errorf("bounding box: %w", ErrNoWatermark)
	}

	box := image.Rect(minX-margin, minY-margin, maxX+1+margin, maxY+1+margin)
	return box.Intersect(b), nil
}

// CropMask copies the sub-grid of mask covered by bounds. The result has the
// exact dimensions of bounds, anchored at the origin.
func CropMask(mask *image.Gray, bounds image.Rectangle) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.SetGray(x-bounds.Min.X, y-bounds.Min.Y, mask.GrayAt(x, y))
		}
	}
	return out
}

// FirstValidFrame scans the sample positions for the first frame whose mean
// brightness exceeds minBrightness, falling back to frame 0. Black lead-in
// frames make poor previews.
func FirstValidFrame(s Sampler, numSamples int, minBrightness float64) (*image.RGBA, error) {
	total := s.FrameCount()
	if total == 0 {
		return nil, fmt.Errorf("source has no frames")
	}

	for _, idx := range samplePositions(total, numSamples) {
		frame, err := s.FrameAt(idx)
		if err != nil {
			return nil, fmt.Errorf("sample frame %d: %w", idx, err)
		}
		if meanBrightness(frame) > minBrightness {
			return frame, nil
		}
	}

	return s.FrameAt(0)
}

func meanBrightness(img *image.RGBA) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}

	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		row := img.Pix[off : off+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			sum += float64(row[x]) + float64(row[x+1]) + float64(row[x+2])
		}
	}

	return sum / float64(b.Dx()*b.Dy()*3)
}
