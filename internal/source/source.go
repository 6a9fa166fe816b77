package source

import "image"

// Source abstracts an ordered frame stream. Random access via FrameAt is
// used a handful of times per batch by the watermark voter; the per-frame
// loop consumes frames sequentially through Next, which returns io.EOF after
// the last frame.
type Source interface {
	FrameCount() int
	FPS() float64
	Duration() float64
	Bounds() image.Rectangle
	FrameAt(index int) (*image.RGBA, error)
	Next() (*image.RGBA, error)
	Close() error
}
