package detect

import "image"

// otsuThreshold computes the variance-maximizing binarization threshold for a
// grayscale image. Pixels strictly above the returned value are foreground.
func otsuThreshold(gray *image.Gray) uint8 {
	var hist [256]int
	b := gray.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
		}
	}

	var sum float64
	for i, count := range hist {
		sum += float64(i) * float64(count)
	}

	var sumBack, weightBack float64
	var bestVariance float64
	var best uint8

	for t := 0; t < 256; t++ {
		weightBack += float64(hist[t])
		if weightBack == 0 {
			continue
		}
		weightFore := float64(total) - weightBack
		if weightFore == 0 {
			break
		}

		sumBack += float64(t) * float64(hist[t])
		meanBack := sumBack / weightBack
		meanFore := (sum - sumBack) / weightFore

		// Between-class variance
		variance := weightBack * weightFore * (meanBack - meanFore) * (meanBack - meanFore)
		if variance > bestVariance {
			bestVariance = variance
			best = uint8(t)
		}
	}

	if bestVariance == 0 {
		// Degenerate single-mode histogram: nothing is foreground
		for t := 255; t >= 0; t-- {
			if hist[t] > 0 {
				return uint8(t)
			}
		}
	}

	return best
}
