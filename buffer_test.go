// SPDX-License-Identifier: Apache-2.0

package talloc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestBuffer(t *testing.T) *Buffer {
	t.Helper()
	e := newTestEngine(t, 1<<16)
	return NewBuffer(e)
}

func TestBufferWriteAndBytes(t *testing.T) {
	b := newTestBuffer(t)
	n, err := b.Write([]byte("hello "))
	require.NoError(t, err)
	require.Equal(t, 6, n)

	n, err = b.WriteString("world")
	require.NoError(t, err)
	require.Equal(t, 5, n)

	require.Equal(t, "hello world", b.String())
	require.Equal(t, 11, b.Len())
}

func TestBufferWriteByte(t *testing.T) {
	b := newTestBuffer(t)
	require.NoError(t, b.WriteByte('x'))
	require.NoError(t, b.WriteByte('y'))
	require.Equal(t, "xy", b.String())
}

func TestBufferReadDrainsInOrder(t *testing.T) {
	b := newTestBuffer(t)
	_, err := b.WriteString("abcdef")
	require.NoError(t, err)

	p := make([]byte, 3)
	n, err := b.Read(p)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "abc", string(p))
	require.Equal(t, "def", b.String())
}

func TestBufferReadByte(t *testing.T) {
	b := newTestBuffer(t)
	_, err := b.WriteString("ab")
	require.NoError(t, err)

	c, err := b.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte('a'), c)
	require.Equal(t, "b", b.String())
}

func TestBufferResetAndTruncate(t *testing.T) {
	b := newTestBuffer(t)
	_, err := b.WriteString("abcdef")
	require.NoError(t, err)

	b.Truncate(3)
	require.Equal(t, "abc", b.String())

	b.Reset()
	require.Equal(t, 0, b.Len())
	require.Equal(t, "", b.String())
}

func TestBufferNext(t *testing.T) {
	b := newTestBuffer(t)
	_, err := b.WriteString("abcdef")
	require.NoError(t, err)

	next := b.Next(2)
	require.Equal(t, []byte("ab"), next)
	require.Equal(t, "cdef", b.String())
}

func TestBufferReadFromGrowsAsNeeded(t *testing.T) {
	b := newTestBuffer(t)
	var src bytes.Buffer
	for i := 0; i < 10000; i++ {
		src.WriteByte(byte(i % 256))
	}

	n, err := b.ReadFrom(&src)
	require.NoError(t, err)
	require.EqualValues(t, 10000, n)
	require.Equal(t, 10000, b.Len())
}

func TestBufferWriteToDrains(t *testing.T) {
	b := newTestBuffer(t)
	_, err := b.WriteString("hello world")
	require.NoError(t, err)

	var dst bytes.Buffer
	n, err := b.WriteTo(&dst)
	require.NoError(t, err)
	require.EqualValues(t, 11, n)
	require.Equal(t, "hello world", dst.String())
	require.Equal(t, 0, b.Len())
}

func TestBufferReleaseAllowsEngineReuse(t *testing.T) {
	e := newTestEngine(t, 1<<16)
	b := NewBuffer(e)
	_, err := b.WriteString("some data that takes a few chunks of space")
	require.NoError(t, err)

	b.Release()
	require.NoError(t, e.ScanForErrors())
}
