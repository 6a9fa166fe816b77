// Package inpaint defines the contract with the external content-regeneration
// service and a client for lama-cleaner-style HTTP servers. The service is
// treated as an opaque, side-effect-free function; its failures are assumed
// deterministic for identical input, so nothing here retries.
package inpaint

import (
	"context"
	"errors"
	"image"
)

// ErrService marks any failure of the regeneration call, whether transport,
// server, or malformed response data.
var ErrService = errors.New("inpaint service failure")

// Strategy selects how the service handles large inputs.
type Strategy string

const (
	// StrategyOriginal processes the region at its native resolution.
	StrategyOriginal Strategy = "as-is"
	// StrategyResize downsizes to the working-resolution limit, then
	// restores the original size.
	StrategyResize Strategy = "resize"
	// StrategyCrop processes a crop around the mask, then restores.
	StrategyCrop Strategy = "crop"
)

// Config carries the regeneration parameters passed through verbatim on
// every call.
type Config struct {
	Steps       int      // Iterative refinement step count
	Strategy    Strategy // Size-handling strategy
	CropMargin  int      // Margin around the mask for StrategyCrop
	ResizeLimit int      // Maximum working resolution
}

// DefaultConfig returns the parameters the service is normally run with.
func DefaultConfig() Config {
	return Config{
		Steps:       25,
		Strategy:    StrategyOriginal,
		CropMargin:  32,
		ResizeLimit: 2048,
	}
}

// Inpainter regenerates pixel content for the masked area of a region. The
// result has identical dimensions to the input region.
type Inpainter interface {
	Inpaint(ctx context.Context, region *image.RGBA, mask *image.Gray, cfg Config) (*image.RGBA, error)
}
