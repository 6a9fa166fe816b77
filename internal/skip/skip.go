// Package skip decides, per frame, whether the watermark region changed
// enough since the last regeneration to warrant reprocessing.
package skip

import (
	"image"
	"math"
)

// Detector holds the skip-decision state for one video run. The stored
// reference is the region as of the last regeneration, not the immediately
// preceding frame, so the difference comparison drifts across consecutive
// skipped frames until the next keyframe resets it.
type Detector struct {
	KeyframeInterval     int
	SceneChangeThreshold float64

	ref *image.RGBA
}

// New creates a detector. Frame 0 is a multiple of every interval, so the
// first frame of a video is always classified "must process".
func New(keyframeInterval int, sceneChangeThreshold float64) *Detector {
	return &Detector{
		KeyframeInterval:     keyframeInterval,
		SceneChangeThreshold: sceneChangeThreshold,
	}
}

// ShouldProcess reports whether the frame at frameIndex must be reprocessed:
// unconditionally on keyframe indices, otherwise when the mean squared
// grayscale difference against the reference exceeds the scene-change
// threshold.
func (d *Detector) ShouldProcess(frameIndex int, region *image.RGBA) bool {
	if frameIndex%d.KeyframeInterval == 0 {
		return true
	}

	if d.ref != nil {
		return Difference(region, d.ref) > d.SceneChangeThreshold
	}

	return false
}

// UpdateReference replaces the stored reference with a copy of the region.
// Call it only when a frame was actually reprocessed.
func (d *Detector) UpdateReference(region *image.RGBA) {
	if region == nil {
		return
	}
	ref := image.NewRGBA(region.Bounds())
	drawCopy(ref, region)
	d.ref = ref
}

// Difference computes the mean squared grayscale pixel difference between two
// regions of equal dimensions. A missing operand yields +Inf, forcing a
// reprocess rather than a silent skip.
func Difference(a, b *image.RGBA) float64 {
	if a == nil || b == nil {
		return math.Inf(1)
	}

	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return math.Inf(1)
	}
	if ab.Empty() {
		return 0
	}

	var sum float64
	for y := 0; y < ab.Dy(); y++ {
		ra := a.Pix[a.PixOffset(ab.Min.X, ab.Min.Y+y):]
		rb := b.Pix[b.PixOffset(bb.Min.X, bb.Min.Y+y):]
		for x := 0; x < ab.Dx(); x++ {
			d := luma(ra[x*4:]) - luma(rb[x*4:])
			sum += d * d
		}
	}

	return sum / float64(ab.Dx()*ab.Dy())
}

// luma uses the standard Rec. 601 weights, matching color.GrayModel.
func luma(p []uint8) float64 {
	return 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
}

func drawCopy(dst, src *image.RGBA) {
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		so := src.PixOffset(b.Min.X, y)
		do := dst.PixOffset(b.Min.X, y)
		copy(dst.Pix[do:do+b.Dx()*4], src.Pix[so:so+b.Dx()*4])
	}
}
