package pipeline

import (
	"fmt"
	"image"

	"github.com/ivlev/demark/internal/detect"
)

// Artifact is the immutable result of watermark localization, computed once
// from the first video of a batch and shared read-only by every subsequent
// pipeline run. All videos in a batch are assumed to share geometry; that
// assumption is enforced by ValidateFrame instead of being silently relied
// upon.
type Artifact struct {
	Mask   *image.Gray     // Binary watermark mask, region-sized
	Bounds image.Rectangle // Watermark region in frame coordinates
	Frame  image.Rectangle // Frame geometry the mask was computed against
}

// Localize runs the voter over the sampled frames and packages the result:
// the margin-expanded bounding box of the voted mask plus the mask cropped to
// it.
func Localize(s detect.Sampler, roi image.Rectangle, voter *detect.Voter, margin int) (*Artifact, error) {
	fullMask, err := voter.Localize(s, roi)
	if err != nil {
		return nil, err
	}

	bounds, err := detect.BoundingBox(fullMask, margin)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Mask:   detect.CropMask(fullMask, bounds),
		Bounds: bounds,
		Frame:  fullMask.Bounds(),
	}, nil
}

// ValidateFrame rejects frame geometry different from what the mask was
// computed against.
func (a *Artifact) ValidateFrame(frame image.Rectangle) error {
	if frame.Dx() != a.Frame.Dx() || frame.Dy() != a.Frame.Dy() {
		return fmt.Errorf("%w: frame %dx%d, mask computed for %dx%d",
			ErrInvalidFrameData, frame.Dx(), frame.Dy(), a.Frame.Dx(), a.Frame.Dy())
	}
	return nil
}
