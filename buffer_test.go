// SPDX-License-Identifier: Apache-2.0

package seglist

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferWriteAndRead(t *testing.T) {
	a := New()
	defer a.Release()

	b := NewBuffer(a)
	defer b.Free()

	n, err := b.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	n, err = b.WriteString(" world")
	require.NoError(t, err)
	require.Equal(t, 6, n)

	require.NoError(t, b.WriteByte('!'))

	require.Equal(t, 12, b.Len())
	require.Equal(t, "hello world!", b.String())
	require.Equal(t, []byte("hello world!"), b.Bytes())

	out := make([]byte, 5)
	n, err = b.Read(out)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(out))
	require.Equal(t, 7, b.Len())

	c, err := b.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(' '), c)
	require.Equal(t, "world!", b.String())

	require.NoError(t, a.Check())
}

func TestBufferGrowsAcrossThreshold(t *testing.T) {
	a := New(WithDoubleLinkedHeap())
	defer a.Release()

	b := NewBuffer(a)
	defer b.Free()

	chunk := strings.Repeat("0123456789abcdef", 8) // 128 bytes
	var want bytes.Buffer
	for i := 0; i < 64; i++ {
		n, err := b.WriteString(chunk)
		require.NoError(t, err)
		require.Equal(t, len(chunk), n)
		want.WriteString(chunk)
	}

	require.Equal(t, want.Len(), b.Len())
	require.Equal(t, want.Bytes(), b.Bytes())
	require.GreaterOrEqual(t, b.Cap(), b.Len())
	require.NoError(t, a.Check())
}

func TestBufferWriteTo(t *testing.T) {
	a := New()
	defer a.Release()

	b := NewBuffer(a)
	defer b.Free()

	_, err := b.WriteString("drain me")
	require.NoError(t, err)

	var sink bytes.Buffer
	n, err := b.WriteTo(&sink)
	require.NoError(t, err)
	require.Equal(t, int64(8), n)
	require.Equal(t, "drain me", sink.String())
	require.Equal(t, 0, b.Len())
}

func TestBufferTruncateAndReset(t *testing.T) {
	a := New()
	defer a.Release()

	b := NewBuffer(a)
	defer b.Free()

	_, err := b.WriteString("0123456789")
	require.NoError(t, err)

	b.Truncate(4)
	require.Equal(t, "0123", b.String())

	require.Panics(t, func() { b.Truncate(5) })
	require.Panics(t, func() { b.Truncate(-1) })

	b.Reset()
	require.Equal(t, 0, b.Len())
	require.Greater(t, b.Cap(), 0)
}

func TestBufferFreeReturnsBlock(t *testing.T) {
	a := New()
	defer a.Release()

	b := NewBuffer(a)
	_, err := b.WriteString("transient")
	require.NoError(t, err)
	require.Greater(t, a.Used(), 0)

	b.Free()
	require.Equal(t, 0, a.Used())
	require.NoError(t, a.Check())

	// the buffer is reusable after Free
	_, err = b.WriteString("again")
	require.NoError(t, err)
	require.Equal(t, "again", b.String())
	b.Free()
}

func TestBufferExhaustion(t *testing.T) {
	a := New(WithHeapCapacity(64))
	defer a.Release()

	b := NewBuffer(a)
	defer b.Free()

	_, err := b.Write(make([]byte, 1024))
	require.ErrorIs(t, err, ErrHeapExhausted)
	require.Equal(t, 0, b.Len())
}
