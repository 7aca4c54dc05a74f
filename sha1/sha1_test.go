package sha1

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum_KnownVectors(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{"abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"The quick brown fox jumps over the lazy dog", "2fd4e1c67a2d28fced849ee1bb76e7391b93eb12"},
	}
	for _, c := range cases {
		got := Sum([]byte(c.in))
		assert.Equal(t, c.want, hex.EncodeToString(got[:]), "input %q", c.in)
	}
}

func TestHash_WriteInChunks(t *testing.T) {
	h := New()
	data := []byte("The quick brown fox jumps over the lazy dog")
	for _, chunk := range splitInto(data, 7) {
		n, err := h.Write(chunk)
		require.NoError(t, err)
		assert.Equal(t, len(chunk), n)
	}
	got := h.Sum(nil)
	assert.Equal(t, "2fd4e1c67a2d28fced849ee1bb76e7391b93eb12", hex.EncodeToString(got))
}

func TestHash_LongInputCrossesMultipleBlocks(t *testing.T) {
	data := make([]byte, 10_000)
	for i := range data {
		data[i] = byte(i)
	}
	h := New()
	_, err := h.Write(data)
	require.NoError(t, err)
	sum1 := h.Sum(nil)

	h2 := New()
	for _, chunk := range splitInto(data, 97) {
		_, _ = h2.Write(chunk)
	}
	sum2 := h2.Sum(nil)

	assert.Equal(t, sum1, sum2)
}

func TestHash_Reset(t *testing.T) {
	h := New()
	_, _ = h.Write([]byte("abc"))
	h.Reset()
	_, _ = h.Write([]byte(""))
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", hex.EncodeToString(h.Sum(nil)))
}

func TestHash_SizeAndBlockSize(t *testing.T) {
	h := New()
	assert.Equal(t, Size, h.Size())
	assert.Equal(t, BlockSize, h.BlockSize())
}

func splitInto(b []byte, n int) [][]byte {
	var out [][]byte
	for len(b) > 0 {
		k := n
		if k > len(b) {
			k = len(b)
		}
		out = append(out, b[:k])
		b = b[k:]
	}
	return out
}
