// Package cache deduplicates regeneration work across visually identical
// frames. Region content is keyed by a 64-bit perceptual hash; lookups match
// the stored entry with the smallest Hamming distance, so the cache is an
// approximate, not exact, dictionary.
package cache

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
	"golang.org/x/image/draw"
)

const signatureSize = 64

// Stats counts cache activity over one video run.
type Stats struct {
	Hits      int
	Misses    int
	Evictions int
}

type entry struct {
	hash   *goimagehash.ImageHash
	pixels *image.RGBA
	freq   int
}

// Cache maps region pixel content to previously regenerated content. Entries
// past capacity evict the least-frequently accessed entry. Lookup cost is
// linear in the current size, which is fine at the configured capacities
// (tens to low hundreds); an indexed nearest-neighbor structure would be
// needed beyond that.
type Cache struct {
	capacity  int
	threshold int // Max Hamming distance counted as a hit
	entries   []*entry
	stats     Stats
}

// New creates a cache holding at most capacity entries, matching signatures
// within the given Hamming distance. Capacities below one are raised to one:
// eviction assumes at least one entry fits.
func New(capacity, threshold int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity:  capacity,
		threshold: threshold,
	}
}

// Get returns the regenerated content cached for the most similar known
// region, or a miss if no stored signature is within the distance threshold.
// A hit increments that entry's access frequency.
func (c *Cache) Get(region image.Image) (*image.RGBA, bool, error) {
	hash, err := signature(region)
	if err != nil {
		return nil, false, err
	}

	var best *entry
	minDistance := c.threshold + 1

	for _, e := range c.entries {
		d, err := hash.Distance(e.hash)
		if err != nil {
			continue
		}
		if d < minDistance {
			minDistance = d
			best = e
		}
	}

	if best == nil {
		c.stats.Misses++
		return nil, false, nil
	}

	best.freq++
	c.stats.Hits++
	return best.pixels, true, nil
}

// Put stores regenerated content under the region's signature, evicting the
// least-frequently used entry when at capacity. Ties resolve to the oldest
// entry. The pixel buffer is copied; entries are immutable once inserted.
func (c *Cache) Put(region image.Image, processed *image.RGBA) error {
	hash, err := signature(region)
	if err != nil {
		return err
	}

	if len(c.entries) >= c.capacity {
		least := 0
		for i, e := range c.entries {
			if e.freq < c.entries[least].freq {
				least = i
			}
		}
		c.entries = append(c.entries[:least], c.entries[least+1:]...)
		c.stats.Evictions++
	}

	c.entries = append(c.entries, &entry{
		hash:   hash,
		pixels: clone(processed),
		freq:   1,
	})
	return nil
}

// Len reports the current number of entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Stats returns the activity counters accumulated so far.
func (c *Cache) Stats() Stats {
	return c.stats
}

// signature computes the perceptual hash of region content from a downsampled
// rendering, so signatures are stable against encoding noise and resolution.
func signature(region image.Image) (*goimagehash.ImageHash, error) {
	small := image.NewRGBA(image.Rect(0, 0, signatureSize, signatureSize))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), region, region.Bounds(), draw.Src, nil)

	hash, err := goimagehash.PerceptionHash(small)
	if err != nil {
		return nil, fmt.Errorf("perceptual hash: %w", err)
	}
	return hash, nil
}

func clone(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
