package system

import (
	"image"
	"testing"
)

func TestCapForMemory(t *testing.T) {
	const regionBytes = 400 * 300 * 4 // 480000

	tests := []struct {
		name      string
		requested int
		available uint64
		want      int
	}{
		{
			name:      "plenty of memory keeps request",
			requested: 100,
			available: 8 << 30,
			want:      100,
		},
		{
			name:      "tight memory trims capacity",
			requested: 100,
			// Budget is a quarter of available: 40 region buffers fit
			available: uint64(regionBytes) * 160,
			want:      40,
		},
		{
			name:      "never below one entry",
			requested: 100,
			available: uint64(regionBytes), // budget smaller than one region
			want:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := capForMemory(tt.requested, regionBytes, tt.available)
			if got != tt.want {
				t.Errorf("capForMemory(%d, %d, %d) = %d, want %d",
					tt.requested, regionBytes, tt.available, got, tt.want)
			}
		})
	}
}

func TestSuggestCacheCapacityDegenerateInputs(t *testing.T) {
	if got := SuggestCacheCapacity(1, 1<<20); got != 1 {
		t.Errorf("capacity 1 must pass through, got %d", got)
	}
	if got := SuggestCacheCapacity(50, 0); got != 50 {
		t.Errorf("zero region size must pass through, got %d", got)
	}
}

func TestFramePoolRecyclesMatchingGeometry(t *testing.T) {
	rect := image.Rect(0, 0, 64, 48)
	pool := NewFramePool(rect)

	a := pool.Get()
	if a.Rect != rect {
		t.Fatalf("pooled frame has rect %v, want %v", a.Rect, rect)
	}
	pool.Put(a)

	// A foreign geometry must not poison the pool
	pool.Put(image.NewRGBA(image.Rect(0, 0, 10, 10)))

	b := pool.Get()
	if b.Rect != rect {
		t.Errorf("Get after foreign Put returned rect %v, want %v", b.Rect, rect)
	}
}
