// SPDX-License-Identifier: Apache-2.0

package talloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpanContains(t *testing.T) {
	s := NewSpan(100, 200)
	require.True(t, s.Contains(100))
	require.True(t, s.Contains(199))
	require.False(t, s.Contains(200))
	require.False(t, s.Contains(99))
}

func TestSpanContainsSpan(t *testing.T) {
	s := NewSpan(100, 200)
	require.True(t, s.ContainsSpan(NewSpan(100, 200)))
	require.True(t, s.ContainsSpan(NewSpan(150, 160)))
	require.False(t, s.ContainsSpan(NewSpan(50, 160)))
	require.True(t, s.ContainsSpan(Span{}))
}

func TestSpanOverlaps(t *testing.T) {
	s := NewSpan(100, 200)
	require.True(t, s.Overlaps(NewSpan(150, 250)))
	require.False(t, s.Overlaps(NewSpan(200, 300)))
	require.False(t, s.Overlaps(Span{}))
}

func TestSpanAlignInwardOutward(t *testing.T) {
	s := NewSpan(9, 103)
	require.Equal(t, NewSpan(16, 96), s.AlignInward(8))
	require.Equal(t, NewSpan(8, 104), s.AlignOutward(8))
}

func TestSpanAboveBelow(t *testing.T) {
	s := NewSpan(100, 200)
	require.Equal(t, NewSpan(150, 200), s.Above(150))
	require.Equal(t, Span{}, s.Above(200))
	require.Equal(t, NewSpan(100, 150), s.Below(150))
	require.Equal(t, Span{}, s.Below(100))
}

func TestSpanFitWithinFitOver(t *testing.T) {
	a := NewSpan(100, 200)
	b := NewSpan(150, 300)
	require.Equal(t, NewSpan(150, 200), a.FitWithin(b))
	require.Equal(t, NewSpan(100, 300), a.FitOver(b))
}

func TestSpanExtendTruncate(t *testing.T) {
	s := NewSpan(100, 200)
	require.Equal(t, NewSpan(90, 210), s.Extend(10, 10))
	require.Equal(t, NewSpan(110, 190), s.Truncate(10, 10))
	require.Equal(t, Span{}, s.Truncate(60, 60))
}

func TestSpanOfSlice(t *testing.T) {
	b := make([]byte, 64)
	s := SpanOfSlice(b)
	require.Equal(t, uintptr(64), s.Size())
	require.True(t, s.Contains(s.Base))

	require.Equal(t, Span{}, SpanOfSlice(nil))
}
