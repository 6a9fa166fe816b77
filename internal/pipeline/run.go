package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivlev/demark/internal/cache"
	"github.com/ivlev/demark/internal/source"
	"github.com/ivlev/demark/internal/system"
	"github.com/ivlev/demark/internal/video"
)

const progressEvery = 100

// Stats summarizes one video run.
type Stats struct {
	Frames      int
	Regenerated int
	Skipped     int
	Cache       cache.Stats
	Elapsed     time.Duration
}

// Run drives every frame of src through the processor and into w.
// Cancellation is honored between frames only, so a partially processed
// frame is never emitted. Errors abort the video; no frame is retried.
func (p *Processor) Run(ctx context.Context, src source.Source, w video.Writer) (Stats, error) {
	start := time.Now()
	pool := system.NewFramePool(src.Bounds())

	frameIndex := 0
	for {
		if err := ctx.Err(); err != nil {
			return p.stats(frameIndex, start), err
		}

		frame, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return p.stats(frameIndex, start), fmt.Errorf("decode frame %d: %w", frameIndex, err)
		}

		out := pool.Get()
		if err := p.ProcessFrame(ctx, out, frame, frameIndex); err != nil {
			return p.stats(frameIndex, start), err
		}

		if err := w.WriteFrame(out); err != nil {
			return p.stats(frameIndex, start), fmt.Errorf("encode frame %d: %w", frameIndex, err)
		}
		pool.Put(out)
		pool.Put(frame)

		frameIndex++
		if frameIndex%progressEvery == 0 {
			log.Debug().
				Int("frame", frameIndex).
				Int("total", src.FrameCount()).
				Int("regenerated", p.regenerated).
				Msg("progress")
		}
	}

	return p.stats(frameIndex, start), nil
}

func (p *Processor) stats(frames int, start time.Time) Stats {
	return Stats{
		Frames:      frames,
		Regenerated: p.regenerated,
		Skipped:     p.skipped,
		Cache:       p.cache.Stats(),
		Elapsed:     time.Since(start),
	}
}
