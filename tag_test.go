// SPDX-License-Identifier: Apache-2.0

package talloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		size                         uintptr
		allocated, lowBound, prevFree bool
	}{
		{64, false, false, false},
		{64, true, false, false},
		{128, false, true, false},
		{256, true, false, true},
		{minChunkSize, false, true, true},
	} {
		tg := makeTag(tc.size, tc.allocated, tc.lowBound, tc.prevFree)
		require.Equal(t, tc.size, tg.size())
		require.Equal(t, tc.allocated, tg.isAllocated())
		require.Equal(t, tc.lowBound, tg.isLowBound())
		require.Equal(t, tc.prevFree, tg.isPrevFree())
	}
}

func TestTagWithPrevFreePreservesSizeAndOtherFlags(t *testing.T) {
	tg := makeTag(256, true, true, false)
	flipped := tg.withPrevFree(true)
	require.Equal(t, uintptr(256), flipped.size())
	require.True(t, flipped.isAllocated())
	require.True(t, flipped.isLowBound())
	require.True(t, flipped.isPrevFree())

	back := flipped.withPrevFree(false)
	require.Equal(t, tg, back)
}

func TestTagWithSizePreservesFlags(t *testing.T) {
	tg := makeTag(64, true, false, true)
	resized := tg.withSize(128)
	require.Equal(t, uintptr(128), resized.size())
	require.True(t, resized.isAllocated())
	require.True(t, resized.isPrevFree())
}

func TestMakeTagRejectsMisalignedSize(t *testing.T) {
	require.Panics(t, func() { makeTag(65, false, false, false) })
}

func TestReadWriteTagRoundTripsThroughMemory(t *testing.T) {
	buf := make([]byte, wordSize*2)
	addr := SpanOfSlice(buf).Base
	tg := makeTag(128, true, true, true)
	writeTag(addr, tg)
	require.Equal(t, tg, readTag(addr))
}
