package stream

import (
	"sync"
	"sync/atomic"

	"github.com/satindergrewal/cuedeck/internal/audio"
)

// frameQueue is how many monitor frames the device holds for Run.
const frameQueue = 100

// Device is an audio.Device that turns the float mix into 20ms int16 stereo
// frames for the broadcaster. Channels past the first two are not monitored;
// a mono mix is duplicated to both sides.
type Device struct {
	channels int
	frames   chan []int16
	pending  []int16
	floats   []float32
	dropped  atomic.Int64
	once     sync.Once
}

// NewDevice creates a monitor device accepting a mix of channels channels
// at audio.SampleRate.
func NewDevice(channels int) *Device {
	return &Device{
		channels: channels,
		frames:   make(chan []int16, frameQueue),
		pending:  make([]int16, 0, audio.FrameSamples),
	}
}

func (d *Device) Channels() int   { return d.channels }
func (d *Device) SampleRate() int { return audio.SampleRate }

// Frames returns the channel of outgoing monitor frames. It is closed by
// Close.
func (d *Device) Frames() <-chan []int16 {
	return d.frames
}

// Dropped returns how many frames were discarded because nobody was reading.
func (d *Device) Dropped() int64 {
	return d.dropped.Load()
}

// Write never blocks: when the frame queue is full the frame is dropped.
func (d *Device) Write(p []byte) (int, error) {
	n := len(p) / 4
	if cap(d.floats) < n {
		d.floats = make([]float32, n)
	}
	s := d.floats[:n]
	audio.Float32s(s, p)

	for f := 0; f+d.channels <= len(s); f += d.channels {
		left := s[f]
		right := left
		if d.channels > 1 {
			right = s[f+1]
		}
		d.pending = append(d.pending, audio.ToInt16(left), audio.ToInt16(right))
		if len(d.pending) == audio.FrameSamples {
			d.emit()
		}
	}
	return len(p), nil
}

func (d *Device) emit() {
	frame := make([]int16, len(d.pending))
	copy(frame, d.pending)
	d.pending = d.pending[:0]
	select {
	case d.frames <- frame:
	default:
		d.dropped.Add(1)
	}
}

// Close ends the frame stream. Call it only after the engine has stopped
// writing.
func (d *Device) Close() error {
	d.once.Do(func() { close(d.frames) })
	return nil
}
