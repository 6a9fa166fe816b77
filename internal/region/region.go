package region

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

// ErrNotSet is returned when a region-dependent operation runs before any
// region has been provided.
var ErrNotSet = errors.New("region not set")

// Region is a rectangle in source-frame pixel coordinates. It is established
// once per batch and treated as immutable afterwards.
type Region struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// FromRect converts an image.Rectangle into a Region.
func FromRect(r image.Rectangle) Region {
	r = r.Canon()
	return Region{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Rect returns the Region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Validate checks that the region has positive extent and fits inside the
// given frame bounds.
func (r Region) Validate(frame image.Rectangle) error {
	if r.W <= 0 || r.H <= 0 {
		return fmt.Errorf("region %dx%d has no area", r.W, r.H)
	}
	if !r.Rect().In(frame) {
		return fmt.Errorf("region %v outside frame %v", r.Rect(), frame)
	}
	return nil
}

// Parse reads a region from its flag form "x,y,w,h".
func Parse(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("region %q: want x,y,w,h", s)
	}

	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, fmt.Errorf("region %q: %w", s, err)
		}
		vals[i] = v
	}

	return Region{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}, nil
}
