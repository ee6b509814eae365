package audio

import "sync/atomic"

// NullDevice accepts and discards blocks. It keeps the drain loop running
// when no hardware is attached.
type NullDevice struct {
	channels int
	rate     int
	written  atomic.Int64
}

// NewNullDevice creates a discarding device with the given format.
func NewNullDevice(rate, channels int) *NullDevice {
	return &NullDevice{channels: channels, rate: rate}
}

func (d *NullDevice) Write(p []byte) (int, error) {
	d.written.Add(int64(len(p)))
	return len(p), nil
}

func (d *NullDevice) Channels() int   { return d.channels }
func (d *NullDevice) SampleRate() int { return d.rate }

// Frames returns how many frames have been written so far.
func (d *NullDevice) Frames() int64 {
	return d.written.Load() / int64(4*d.channels)
}
