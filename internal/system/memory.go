package system

import (
	"image"
	"sync"

	"github.com/shirou/gopsutil/v3/mem"
)

// memoryBudgetShare caps cached region buffers at a quarter of the memory
// available when a run starts.
const memoryBudgetShare = 4

// SuggestCacheCapacity trims the requested frame-cache capacity so the cached
// RGBA region buffers fit in a bounded share of available memory. Falls back
// to the requested value if the probe fails.
func SuggestCacheCapacity(requested, regionBytes int) int {
	if requested <= 1 || regionBytes <= 0 {
		return requested
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return requested
	}

	return capForMemory(requested, regionBytes, vm.Available)
}

func capForMemory(requested, regionBytes int, available uint64) int {
	budget := available / memoryBudgetShare
	fit := int(budget / uint64(regionBytes))

	if fit < 1 {
		return 1
	}
	if fit < requested {
		return fit
	}
	return requested
}

// FramePool recycles full-frame RGBA buffers of one fixed geometry. The
// per-frame decode/composite loop churns through identically sized buffers,
// which is needless GC pressure over long videos.
type FramePool struct {
	rect image.Rectangle
	pool sync.Pool
}

// NewFramePool creates a pool for frames of the given bounds.
func NewFramePool(rect image.Rectangle) *FramePool {
	p := &FramePool{rect: rect}
	p.pool.New = func() interface{} {
		return image.NewRGBA(rect)
	}
	return p
}

// Get returns a frame buffer; contents are undefined.
func (p *FramePool) Get() *image.RGBA {
	return p.pool.Get().(*image.RGBA)
}

// Put returns a frame buffer to the pool. Buffers of other geometries are
// dropped.
func (p *FramePool) Put(img *image.RGBA) {
	if img == nil || img.Rect != p.rect {
		return
	}
	p.pool.Put(img)
}
