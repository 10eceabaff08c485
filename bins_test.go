// SPDX-License-Identifier: Apache-2.0

package talloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBinsInsertFindFitPopHead(t *testing.T) {
	bi := NewBinIndex()
	b := newBins(bi)

	backing := make([]byte, 256)
	base := SpanOfSlice(backing).Base
	size := uintptr(64)
	writeFreeChunk(base, size, false, false)

	_, _, found := b.findFit(size)
	require.False(t, found)

	b.insert(base, size)
	gotBase, class, found := b.findFit(size)
	require.True(t, found)
	require.Equal(t, base, gotBase)
	require.Equal(t, bi.ClassOf(size), class)

	popped := b.popHead(class)
	require.Equal(t, base, popped)

	_, _, found = b.findFit(size)
	require.False(t, found)
}

func TestBinsUnlinkClearsAvailability(t *testing.T) {
	bi := NewBinIndex()
	b := newBins(bi)

	backing := make([]byte, 256)
	base := SpanOfSlice(backing).Base
	size := uintptr(64)
	writeFreeChunk(base, size, false, false)
	b.insert(base, size)

	class := bi.ClassOf(size)
	require.True(t, b.avail.isSet(class))

	b.unlink(base, size)
	require.False(t, b.avail.isSet(class))
}

func TestBinsFindFitReturnsLargerClassWhenExactIsEmpty(t *testing.T) {
	bi := NewBinIndex()
	b := newBins(bi)

	backing := make([]byte, 1024)
	base := SpanOfSlice(backing).Base
	bigSize := uintptr(512)
	writeFreeChunk(base, bigSize, false, false)
	b.insert(base, bigSize)

	gotBase, _, found := b.findFit(64)
	require.True(t, found)
	require.Equal(t, base, gotBase)
}
