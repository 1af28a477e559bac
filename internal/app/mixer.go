package app

import (
	"encoding/binary"
	"math"

	"github.com/okulov/huddle/internal/domain"
)

// headroom keeps simultaneous talkers from clipping when their samples sum
// constructively. Applied as headroom/n only when more than one stream mixes.
const headroom = 0.7

// Mixer holds the most recent audio buffer per participant of one
// conference. No history: each new buffer replaces the prior one.
// Callers serialize access per conference (the room lock).
type Mixer struct {
	buffers map[domain.UserID][]byte
}

func NewMixer() *Mixer {
	return &Mixer{buffers: make(map[domain.UserID][]byte)}
}

func (m *Mixer) AddStream(user domain.UserID, buf []byte) {
	m.buffers[user] = buf
}

func (m *Mixer) RemoveStream(user domain.UserID) {
	delete(m.buffers, user)
}

// Mix combines the current buffers into one frame of little-endian signed
// 16-bit samples. All inputs are truncated to the shortest contributor, the
// samples are averaged in floating point, attenuated when more than one
// stream contributed, clamped and narrowed back to int16.
func (m *Mixer) Mix() []byte {
	if len(m.buffers) == 0 {
		return nil
	}

	streams := make([][]byte, 0, len(m.buffers))
	minSamples := math.MaxInt
	for _, buf := range m.buffers {
		streams = append(streams, buf)
		if n := len(buf) / 2; n < minSamples {
			minSamples = n
		}
	}
	if minSamples == 0 {
		return nil
	}

	mixed := make([]float64, minSamples)
	for _, buf := range streams {
		for i := 0; i < minSamples; i++ {
			mixed[i] += float64(int16(binary.LittleEndian.Uint16(buf[2*i:])))
		}
	}

	n := float64(len(streams))
	scale := 1 / n
	if len(streams) > 1 {
		scale *= headroom / n
	}

	out := make([]byte, minSamples*2)
	for i, s := range mixed {
		v := s * scale
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}
