// SPDX-License-Identifier: Apache-2.0

package talloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBinIndexClassOfIsCeiling(t *testing.T) {
	bi := NewBinIndex()
	// For every size, ClassFloor(ClassOf(size)) must be >= size: ClassOf
	// rounds up, so any chunk filed under a class above ClassOf(size) is
	// large enough for a request of that size, which bins.findFit depends on.
	sizes := []uintptr{
		minChunkSize, minChunkSize + wordSize, 64, 128, 255, 256, 257,
		400, 511, 512, 513, 1024, 4096, 1 << 20, 1 << 30,
	}
	for _, size := range sizes {
		size = alignUp(size, wordSize)
		class := bi.ClassOf(size)
		require.GreaterOrEqualf(t, bi.ClassFloor(class), size, "size=%d class=%d", size, class)
	}
}

func TestBinIndexClassOfMonotonic(t *testing.T) {
	bi := NewBinIndex()
	prev := -1
	for size := minChunkSize; size < 1<<16; size += wordSize {
		class := bi.ClassOf(size)
		require.GreaterOrEqual(t, class, prev)
		prev = class
	}
}

func TestBinIndexSmallClassesAreExact(t *testing.T) {
	bi := NewBinIndex()
	// Below wordBinLimit every class holds exactly one size, so ClassFloor
	// must round-trip ClassOf exactly (no slack).
	for size := minChunkSize; size < bi.wordBinLimit; size += wordSize {
		class := bi.ClassOf(size)
		require.Equal(t, size, bi.ClassFloor(class))
	}
}

func TestBinIndexCountPositive(t *testing.T) {
	bi := NewBinIndex()
	require.Greater(t, bi.Count(), 0)
}
