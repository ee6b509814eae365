//go:build !headless

package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/satindergrewal/cuedeck/internal/ringbuf"
)

// OtoDevice plays mixed blocks on the system speaker. Write pushes blocks
// into a ring that oto's player pulls from on its own goroutine.
type OtoDevice struct {
	ctx      *oto.Context
	player   *oto.Player
	channels int
	rate     int

	mu      sync.Mutex // guards ring and in
	ring    *ringbuf.Buffer
	in      []float32
	out     []float32
	starved atomic.Int64
}

// NewOtoDevice opens the default output with room for bufferFrames frames.
func NewOtoDevice(rate, channels, bufferFrames int) (*OtoDevice, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   20 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("oto context: %w", err)
	}
	<-ready

	d := &OtoDevice{
		ctx:      ctx,
		channels: channels,
		rate:     rate,
		ring:     ringbuf.New(bufferFrames * channels),
		in:       make([]float32, BlockFrames*channels),
		out:      make([]float32, 4096),
	}
	d.player = ctx.NewPlayer(d)
	d.player.Play()
	return d, nil
}

func (d *OtoDevice) Channels() int   { return d.channels }
func (d *OtoDevice) SampleRate() int { return d.rate }

// Write queues a block of float32LE samples for playback.
func (d *OtoDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if need := len(p) / 4; len(d.in) < need {
		d.in = make([]float32, need)
	}
	n := Float32s(d.in, p)
	d.ring.Write(d.in, n, 1)
	return len(p), nil
}

// Read implements io.Reader for oto.Player. Missing samples are silence.
func (d *OtoDevice) Read(p []byte) (int, error) {
	n := len(p) / 4
	if len(d.out) < n {
		d.out = make([]float32, n)
	}
	samples := d.out[:n]

	d.mu.Lock()
	got := d.ring.Read(samples, n, 1)
	d.mu.Unlock()

	if got < n {
		d.starved.Add(1)
		for i := got; i < n; i++ {
			samples[i] = 0
		}
	}
	PutFloat32s(p, samples)
	return n * 4, nil
}

// Starved reports how many pulls found the ring short.
func (d *OtoDevice) Starved() int64 {
	return d.starved.Load()
}

func (d *OtoDevice) Close() error {
	if d.player == nil {
		return nil
	}
	err := d.player.Close()
	d.player = nil
	return err
}
