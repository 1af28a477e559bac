package app

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcm(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

func samples(buf []byte) []int16 {
	out := make([]int16, len(buf)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(buf[2*i:]))
	}
	return out
}

func TestMixEmpty(t *testing.T) {
	m := NewMixer()
	assert.Empty(t, m.Mix())
}

func TestMixSingleStreamUnchanged(t *testing.T) {
	m := NewMixer()
	m.AddStream("u1", pcm(100, -100))
	assert.Equal(t, []int16{100, -100}, samples(m.Mix()))
}

func TestMixOpposingStreamsCancel(t *testing.T) {
	m := NewMixer()
	m.AddStream("u1", pcm(1000, 2000, 3000))
	m.AddStream("u2", pcm(-1000, -2000, -3000))
	assert.Equal(t, []int16{0, 0, 0}, samples(m.Mix()))
}

func TestMixTruncatesToShortest(t *testing.T) {
	m := NewMixer()
	m.AddStream("u1", pcm(1, 2, 3))
	m.AddStream("u2", pcm(4, 5))

	out := samples(m.Mix())
	require.Len(t, out, 2)
	// mean then 0.7/2 headroom: (2.5, 3.5) * 0.35 -> (0.875, 1.225) -> (0, 1)
	assert.Equal(t, []int16{0, 1}, out)
}

func TestMixReplacesBuffer(t *testing.T) {
	m := NewMixer()
	m.AddStream("u1", pcm(1, 1))
	m.AddStream("u1", pcm(7, 7))
	assert.Equal(t, []int16{7, 7}, samples(m.Mix()))
}

func TestMixRemoveStream(t *testing.T) {
	m := NewMixer()
	m.AddStream("u1", pcm(100, -100))
	m.AddStream("u2", pcm(500, 500))
	m.RemoveStream("u2")
	assert.Equal(t, []int16{100, -100}, samples(m.Mix()))
}

func TestMixClampsToInt16(t *testing.T) {
	m := NewMixer()
	m.AddStream("u1", pcm(32767, -32768))
	assert.Equal(t, []int16{32767, -32768}, samples(m.Mix()))
}
