package detect

import (
	"errors"
	"image"
)

// ErrNoWatermark is returned when voting or bounding-box extraction finds no
// qualifying foreground pixels.
var ErrNoWatermark = errors.New("no watermark detected")

// Sampler provides random access to frames for localization. Only a handful
// of frames are retrieved, spread evenly across the video.
type Sampler interface {
	FrameCount() int
	FrameAt(index int) (*image.RGBA, error)
}

// samplePositions returns n frame indices at evenly spaced temporal positions
// i*total/n. Videos shorter than n yield duplicate indices, so the vote count
// stays at n and short videos still clear the vote threshold.
func samplePositions(total, n int) []int {
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		indices = append(indices, i*total/n)
	}
	return indices
}
