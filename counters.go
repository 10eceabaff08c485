// SPDX-License-Identifier: Apache-2.0

package talloc

// Counters is an opt-in statistics overlay (enabled via WithCounters)
// tracking live allocation count and bytes, mirroring the teacher's own
// Len/Cap/Peak bookkeeping on MonotonicArena, but scoped to the set of
// chunks currently handed out rather than a single bump cursor. Also
// grounded on original_source/talc/src/base/counters.rs's AllocCounters.
type Counters struct {
	allocationCount int64
	allocatedBytes  int64
	peakBytes       int64
}

func newCounters() *Counters { return &Counters{} }

// AllocationCount returns the number of currently outstanding allocations.
func (c *Counters) AllocationCount() int64 { return c.allocationCount }

// AllocatedBytes returns the total chunk-size bytes currently outstanding,
// including per-chunk overhead.
func (c *Counters) AllocatedBytes() int64 { return c.allocatedBytes }

// PeakBytes returns the high-water mark of AllocatedBytes.
func (c *Counters) PeakBytes() int64 { return c.peakBytes }

func (c *Counters) onAlloc(chunkSize uintptr) {
	c.allocationCount++
	c.allocatedBytes += int64(chunkSize)
	if c.allocatedBytes > c.peakBytes {
		c.peakBytes = c.allocatedBytes
	}
}

func (c *Counters) onFree(chunkSize uintptr) {
	c.allocationCount--
	c.allocatedBytes -= int64(chunkSize)
}

func (c *Counters) onGrowInPlace(delta uintptr) {
	c.allocatedBytes += int64(delta)
	if c.allocatedBytes > c.peakBytes {
		c.peakBytes = c.allocatedBytes
	}
}

func (c *Counters) onShrink(delta uintptr) {
	c.allocatedBytes -= int64(delta)
}

// resetLive zeroes the live allocation count and bytes, preserving
// PeakBytes as the high-water mark across the reset (mirroring the
// teacher's own Peak, which survives MonotonicArena.Reset).
func (c *Counters) resetLive() {
	c.allocationCount = 0
	c.allocatedBytes = 0
}
