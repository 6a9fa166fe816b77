// Package pipeline owns the sequential per-video frame loop: skip decision,
// cache lookup, regeneration on miss, and feathered compositing. Frame N's
// decisions depend on frame N-1's outcome, so one Processor must never be
// driven concurrently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/ivlev/demark/internal/blend"
	"github.com/ivlev/demark/internal/cache"
	"github.com/ivlev/demark/internal/inpaint"
	"github.com/ivlev/demark/internal/skip"
)

var (
	// ErrInvalidFrameData marks frame dimensions inconsistent with the
	// established region/mask geometry.
	ErrInvalidFrameData = errors.New("invalid frame data")

	// ErrInternalConsistency marks the impossible skip-without-snapshot
	// state. Frame 0 is always a keyframe, so reaching it means the
	// sequential state was corrupted; it is fatal, not recoverable.
	ErrInternalConsistency = errors.New("internal consistency violation")
)

// Options carries the per-run tunables of the frame loop.
type Options struct {
	CacheSize           int
	SimilarityThreshold int

	KeyframeInterval     int
	SceneChangeThreshold float64

	Inpaint inpaint.Config
}

// Processor threads the mutable sequential state across one video's frame
// stream: the perceptual cache, the skip-detector reference, and the last
// regenerated region snapshot. It is exclusively owned by one Run.
type Processor struct {
	art  *Artifact
	comp *blend.Compositor
	inp  inpaint.Inpainter
	opts Options

	cache *cache.Cache
	skip  *skip.Detector
	last  *image.RGBA // Last regenerated region snapshot

	regenerated int
	skipped     int
}

// NewProcessor builds the per-video state around an immutable localization
// artifact.
func NewProcessor(art *Artifact, inp inpaint.Inpainter, opts Options) *Processor {
	return &Processor{
		art:   art,
		comp:  blend.NewCompositor(art.Mask),
		inp:   inp,
		opts:  opts,
		cache: cache.New(opts.CacheSize, opts.SimilarityThreshold),
		skip:  skip.New(opts.KeyframeInterval, opts.SceneChangeThreshold),
	}
}

// ProcessFrame drives one frame through the pipeline and writes the blended
// result into out, which must have the frame's geometry.
func (p *Processor) ProcessFrame(ctx context.Context, out, frame *image.RGBA, frameIndex int) error {
	if err := p.art.ValidateFrame(frame.Bounds()); err != nil {
		return err
	}

	raw := cropRGBA(frame, p.art.Bounds)

	var regen *image.RGBA
	if p.skip.ShouldProcess(frameIndex, raw) {
		result, hit, err := p.cache.Get(raw)
		if err != nil {
			return fmt.Errorf("frame %d: cache lookup: %w", frameIndex, err)
		}

		if !hit {
			result, err = p.inp.Inpaint(ctx, raw, p.art.Mask, p.opts.Inpaint)
			if err != nil {
				return fmt.Errorf("frame %d: %w", frameIndex, err)
			}
			if err := p.cache.Put(raw, result); err != nil {
				return fmt.Errorf("frame %d: cache insert: %w", frameIndex, err)
			}
		}

		// The reference moves only on reprocessed frames: the next skip
		// comparison is against the region as of the last regeneration,
		// not the previous frame.
		p.skip.UpdateReference(raw)
		p.last = result
		p.regenerated++
		regen = result
	} else {
		if p.last == nil {
			return fmt.Errorf("%w: frame %d skipped with no prior snapshot", ErrInternalConsistency, frameIndex)
		}
		p.skipped++
		regen = p.last
	}

	return p.comp.CompositeInto(out, frame, p.art.Bounds, regen, raw)
}

// cropRGBA copies the given rectangle out of a frame. The crop owns its
// pixels: both the cache and the skip reference outlive the frame buffer.
func cropRGBA(frame *image.RGBA, r image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		off := frame.PixOffset(r.Min.X, r.Min.Y+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+r.Dx()*4], frame.Pix[off:off+r.Dx()*4])
	}
	return out
}
