package blend

import (
	"image"
	"image/color"
	"testing"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestEmptyMaskReturnsRawExactly(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 40, 40))
	comp := NewCompositor(mask)

	full := solid(100, 100, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	raw := solid(40, 40, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	regen := solid(40, 40, color.RGBA{R: 250, G: 250, B: 250, A: 255})
	bounds := image.Rect(30, 30, 70, 70)

	out, err := comp.Composite(full, bounds, regen, raw)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	// Feather is 0 everywhere: the region must be byte-identical to raw
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			got := out.RGBAAt(x, y)
			if got.R != 10 || got.G != 20 || got.B != 30 {
				t.Fatalf("pixel (%d,%d) = %v, want raw content", x, y, got)
			}
		}
	}
}

func TestDeepInsideMaskIsRegenerated(t *testing.T) {
	// A large all-foreground mask: away from the blur radius the feather
	// saturates at 1 and the output converges to the regenerated content
	mask := image.NewGray(image.Rect(0, 0, 60, 60))
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}
	comp := NewCompositor(mask)

	full := solid(100, 100, color.RGBA{R: 0, G: 0, B: 0, A: 255})
	raw := solid(60, 60, color.RGBA{R: 0, G: 0, B: 0, A: 255})
	regen := solid(60, 60, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	bounds := image.Rect(20, 20, 80, 80)

	out, err := comp.Composite(full, bounds, regen, raw)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	got := out.RGBAAt(50, 50) // Region center, >10px from any mask edge
	if got.R != 200 || got.G != 100 || got.B != 50 {
		t.Errorf("center = %v, want pure regenerated content", got)
	}
}

func TestPixelsOutsideBoundsUntouched(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}
	comp := NewCompositor(mask)

	full := solid(100, 100, color.RGBA{R: 7, G: 8, B: 9, A: 255})
	raw := solid(20, 20, color.RGBA{R: 7, G: 8, B: 9, A: 255})
	regen := solid(20, 20, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	bounds := image.Rect(40, 40, 60, 60)

	out, err := comp.Composite(full, bounds, regen, raw)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	for _, p := range []image.Point{{0, 0}, {39, 40}, {60, 60}, {99, 99}} {
		got := out.RGBAAt(p.X, p.Y)
		if got.R != 7 || got.G != 8 || got.B != 9 {
			t.Errorf("pixel %v outside bounds changed: %v", p, got)
		}
	}
}

func TestFeatherTransitionIsGradual(t *testing.T) {
	// Half-foreground mask: crossing the boundary the blend weight must
	// move monotonically-ish from raw to regen without a hard seam
	mask := image.NewGray(image.Rect(0, 0, 60, 60))
	for y := 0; y < 60; y++ {
		for x := 30; x < 60; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	comp := NewCompositor(mask)

	full := solid(60, 60, color.RGBA{A: 255})
	raw := solid(60, 60, color.RGBA{A: 255})
	regen := solid(60, 60, color.RGBA{R: 200, G: 200, B: 200, A: 255})

	out, err := comp.Composite(full, image.Rect(0, 0, 60, 60), regen, raw)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	left := out.RGBAAt(5, 30).R   // Far outside the mask
	edge := out.RGBAAt(30, 30).R  // On the boundary
	right := out.RGBAAt(55, 30).R // Deep inside

	if left != 0 {
		t.Errorf("far outside = %d, want 0", left)
	}
	if right != 200 {
		t.Errorf("deep inside = %d, want 200", right)
	}
	if edge == 0 || edge == 200 {
		t.Errorf("boundary = %d, want an intermediate blend", edge)
	}
	t.Logf("transition: %d -> %d -> %d", left, edge, right)
}

func TestCompositeValidatesDimensions(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 20, 20))
	comp := NewCompositor(mask)

	full := solid(100, 100, color.RGBA{A: 255})
	raw := solid(20, 20, color.RGBA{A: 255})
	badRegen := solid(30, 30, color.RGBA{A: 255})

	if _, err := comp.Composite(full, image.Rect(0, 0, 20, 20), badRegen, raw); err == nil {
		t.Error("mismatched regen dimensions must fail")
	}
	if _, err := comp.Composite(full, image.Rect(0, 0, 30, 30), raw, raw); err == nil {
		t.Error("mismatched bounds must fail")
	}
}
