package resample

import (
	"errors"
	"fmt"
)

var (
	ErrRate     = errors.New("resample: sample rate must be positive")
	ErrChannels = errors.New("resample: channel count must be positive")
)

// Converter converts interleaved float32 frames from one sample rate to
// another. The number of frames produced per call varies with the converter's
// internal state.
type Converter interface {
	// Convert appends the converted form of in to out and returns the extended
	// slice. An empty in flushes whatever the converter is still holding.
	Convert(out, in []float32) []float32
	Reset()
}

// NewConverterFunc builds a Converter for a rate/channel combination.
type NewConverterFunc func(inRate, outRate, channels int) (Converter, error)

// Linear is a streaming linear-interpolation converter. The last input frame
// of each chunk is carried into the next call, so chunk boundaries are
// seamless.
type Linear struct {
	channels int
	step     float64 // input frames advanced per output frame
	pos      float64 // next output position; 0 is the carried frame
	prev     []float32
	primed   bool
}

// NewLinear creates a linear converter.
func NewLinear(inRate, outRate, channels int) (Converter, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrRate, inRate, outRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrChannels, channels)
	}
	return &Linear{
		channels: channels,
		step:     float64(inRate) / float64(outRate),
		prev:     make([]float32, channels),
	}, nil
}

func (l *Linear) Convert(out, in []float32) []float32 {
	ch := l.channels
	frames := len(in) / ch
	if frames == 0 {
		return l.flush(out)
	}
	if !l.primed {
		copy(l.prev, in[:ch])
		in = in[ch:]
		frames--
		l.primed = true
	}

	// Virtual input: x[0] is the carried frame, x[1..frames] is in.
	for {
		i := int(l.pos)
		if i+1 > frames {
			break
		}
		frac := float32(l.pos - float64(i))
		for c := 0; c < ch; c++ {
			a := l.at(in, i, c)
			b := l.at(in, i+1, c)
			out = append(out, a+(b-a)*frac)
		}
		l.pos += l.step
	}

	if frames > 0 {
		copy(l.prev, in[(frames-1)*ch:frames*ch])
		l.pos -= float64(frames)
	}
	return out
}

// flush emits the tail up to the last input frame, holding its value.
func (l *Linear) flush(out []float32) []float32 {
	if !l.primed {
		return out
	}
	for l.pos < 1 {
		out = append(out, l.prev...)
		l.pos += l.step
	}
	l.Reset()
	return out
}

func (l *Linear) Reset() {
	l.pos = 0
	l.primed = false
	for i := range l.prev {
		l.prev[i] = 0
	}
}

func (l *Linear) at(in []float32, i, c int) float32 {
	if i == 0 {
		return l.prev[c]
	}
	return in[(i-1)*l.channels+c]
}
