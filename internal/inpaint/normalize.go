package inpaint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"strings"
)

// decodeResponse normalizes a service response to an 8-bit RGBA region of
// the expected dimensions. PNG responses are converted to RGBA; raw float32
// responses in [0, 1] (RGB, row-major) are scaled to the 8-bit range, values
// already in [0, 255] are passed through.
func decodeResponse(data []byte, contentType string, want image.Rectangle) (*image.RGBA, error) {
	var result *image.RGBA
	var err error

	switch {
	case strings.HasPrefix(contentType, "image/"):
		result, err = decodePNG(data)
	case strings.HasPrefix(contentType, "application/octet-stream"):
		result, err = decodeFloat32(data, want)
	default:
		return nil, fmt.Errorf("unexpected content type %q", contentType)
	}
	if err != nil {
		return nil, err
	}

	got := result.Bounds()
	if got.Dx() != want.Dx() || got.Dy() != want.Dy() {
		return nil, fmt.Errorf("result %dx%d does not match region %dx%d",
			got.Dx(), got.Dy(), want.Dx(), want.Dy())
	}

	return result, nil
}

func decodePNG(data []byte) (*image.RGBA, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	// Conversion through draw takes care of 16-bit and palette sources
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(img.Bounds())
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	}
	return rgba, nil
}

func decodeFloat32(data []byte, want image.Rectangle) (*image.RGBA, error) {
	w, h := want.Dx(), want.Dy()
	if len(data) != w*h*3*4 {
		return nil, fmt.Errorf("raw payload %d bytes, want %d for %dx%d rgb32f", len(data), w*h*3*4, w, h)
	}

	// Detect the value range first: float services normally emit [0, 1],
	// but some return values already scaled to [0, 255].
	maxVal := float32(0)
	for i := 0; i < len(data); i += 4 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(data[i:]))
		if v > maxVal {
			maxVal = v
		}
	}
	scale := float32(1)
	if maxVal <= 1.0 {
		scale = 255
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		for ch := 0; ch < 3; ch++ {
			v := math.Float32frombits(binary.LittleEndian.Uint32(data[(i*3+ch)*4:]))
			out.Pix[i*4+ch] = clampFloat(v * scale)
		}
		out.Pix[i*4+3] = 255
	}

	return out, nil
}

func clampFloat(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
