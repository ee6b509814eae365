package audio

import (
	"io"
	"time"
)

const (
	SampleRate  = 48000
	Channels    = 2
	BlockFrames = 1024 // frames per channel flushed to the device at a time

	// Network monitor framing (Opus wants 20ms frames).
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// Source is a decoded audio stream. Read fills buf with interleaved float32
// frames and returns how many frames were produced; 0 means end of stream.
type Source interface {
	Channels() int
	SampleRate() int
	Length() time.Duration
	Seek(t time.Duration) error
	Read(buf []float32, frames int) int
	Close() error
}

// Opener resolves a cue target (usually a file path) to a Source.
type Opener func(target string) (Source, error)

// Device consumes fixed-size blocks of interleaved little-endian float32
// samples. Conversion to the hardware format is the device's job.
type Device interface {
	io.Writer
	Channels() int
	SampleRate() int
}
