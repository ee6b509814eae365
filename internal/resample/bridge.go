// Package resample bridges a push-oriented sample-rate converter to callers
// that pull a fixed number of frames.
package resample

import (
	"fmt"

	"github.com/satindergrewal/cuedeck/internal/ringbuf"
)

// DefaultBufferFrames is the bridge's output capacity in frames.
const DefaultBufferFrames = 8192

// Bridge buffers the variable-length output of a Converter so a caller can
// read exactly the frame count it wants.
type Bridge struct {
	conv     Converter
	inRate   int
	outRate  int
	channels int
	ring     *ringbuf.Buffer
	scratch  []float32
}

// New creates a bridge backed by the linear converter.
func New(inRate, outRate, channels int) (*Bridge, error) {
	return NewBridge(NewLinear, inRate, outRate, channels)
}

// NewBridge creates a bridge around the converter built by newConv. It fails
// when the converter cannot be initialized for the given combination.
func NewBridge(newConv NewConverterFunc, inRate, outRate, channels int) (*Bridge, error) {
	conv, err := newConv(inRate, outRate, channels)
	if err != nil {
		return nil, fmt.Errorf("init converter %d->%d x%d: %w", inRate, outRate, channels, err)
	}
	return &Bridge{
		conv:     conv,
		inRate:   inRate,
		outRate:  outRate,
		channels: channels,
		ring:     ringbuf.New(DefaultBufferFrames * channels),
		scratch:  make([]float32, 0, 2048*channels),
	}, nil
}

// Channels returns the interleaved channel count.
func (b *Bridge) Channels() int {
	return b.channels
}

// Push converts frames interleaved frames from in and buffers the result.
// Pushing zero frames flushes the converter at end of stream. Nothing already
// buffered is lost: when the output does not fit, the buffer grows. Keep
// pushes within Room to avoid that. Returns the number of frames now
// buffered.
func (b *Bridge) Push(in []float32, frames int) int {
	if frames < 0 {
		frames = 0
	}
	if limit := len(in) / b.channels; frames > limit {
		frames = limit
	}
	b.scratch = b.conv.Convert(b.scratch[:0], in[:frames*b.channels])
	if need := len(b.scratch); need > b.ring.Free() {
		b.grow(b.ring.Len() + need)
	}
	b.ring.Write(b.scratch, len(b.scratch), 1)
	return b.Buffered()
}

// Room is how many input frames can be pushed without growing the buffer.
func (b *Bridge) Room() int {
	free := int64(b.ring.Free() / b.channels)
	// One output frame of slack per side for the converter's carried frame
	// and phase.
	n := (free-2)*int64(b.inRate)/int64(b.outRate) - 1
	if n < 0 {
		return 0
	}
	return int(n)
}

func (b *Bridge) grow(samples int) {
	capacity := b.ring.Cap()
	for capacity < samples {
		capacity *= 2
	}
	ring := ringbuf.New(capacity)
	pending := make([]float32, b.ring.Len())
	b.ring.Read(pending, len(pending), 1)
	ring.Write(pending, len(pending), 1)
	b.ring = ring
}

// Frames moves up to requested buffered frames into buf and returns how many
// were delivered.
func (b *Bridge) Frames(buf []float32, requested int) int {
	if limit := len(buf) / b.channels; requested > limit {
		requested = limit
	}
	if requested <= 0 {
		return 0
	}
	return b.ring.Read(buf, requested*b.channels, 1) / b.channels
}

// Buffered returns the number of converted frames waiting to be read.
func (b *Bridge) Buffered() int {
	return b.ring.Len() / b.channels
}

// Reset drops buffered output and converter state, e.g. after a seek.
func (b *Bridge) Reset() {
	b.conv.Reset()
	b.ring.Reset()
}
