package detect

import (
	"image"
	"image/color"
)

// toGrayscale converts the given rectangle of an image to grayscale
func toGrayscale(img image.Image, r image.Rectangle) *image.Gray {
	gray := image.NewGray(r)

	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}

	return gray
}

// dilate performs morphological dilation with a square structuring element
func dilate(img *image.Gray, kernelSize, iterations int) *image.Gray {
	bounds := img.Bounds()
	result := image.NewGray(bounds)
	copy(result.Pix, img.Pix)

	half := kernelSize / 2

	for iter := 0; iter < iterations; iter++ {
		temp := image.NewGray(bounds)

		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				maxVal := uint8(0)

				// Check kernel neighborhood, clamped at the borders
				for ky := -half; ky <= half; ky++ {
					for kx := -half; kx <= half; kx++ {
						px, py := x+kx, y+ky
						if px < bounds.Min.X || px >= bounds.Max.X || py < bounds.Min.Y || py >= bounds.Max.Y {
							continue
						}
						val := result.GrayAt(px, py).Y
						if val > maxVal {
							maxVal = val
						}
					}
				}

				temp.SetGray(x, y, color.Gray{Y: maxVal})
			}
		}

		result = temp
	}

	return result
}
