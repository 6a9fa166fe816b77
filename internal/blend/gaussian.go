package blend

import "math"

// gaussianBlur blurs a row-major float grid in place with a separable
// Gaussian kernel. Sigma follows the usual derivation from the kernel size
// (0.3*((ksize-1)*0.5 - 1) + 0.8), borders replicate the edge value.
func gaussianBlur(data []float64, w, h, ksize int) {
	radius := ksize / 2
	kernel := gaussianKernel(ksize)

	tmp := make([]float64, len(data))

	// Horizontal pass
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sx := x + k
				if sx < 0 {
					sx = 0
				} else if sx >= w {
					sx = w - 1
				}
				sum += data[y*w+sx] * kernel[k+radius]
			}
			tmp[y*w+x] = sum
		}
	}

	// Vertical pass
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sy := y + k
				if sy < 0 {
					sy = 0
				} else if sy >= h {
					sy = h - 1
				}
				sum += tmp[sy*w+x] * kernel[k+radius]
			}
			data[y*w+x] = sum
		}
	}
}

func gaussianKernel(ksize int) []float64 {
	radius := ksize / 2
	sigma := 0.3*(float64(ksize-1)*0.5-1) + 0.8

	kernel := make([]float64, ksize)
	var sum float64
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	return kernel
}
