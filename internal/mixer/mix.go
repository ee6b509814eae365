package mixer

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/satindergrewal/cuedeck/internal/audio"
)

// AttachDevice makes d the drain target. The device must match the list's
// rate and channel count. The ring is cleared and the drain clock restarts on
// the next tick.
func (l *CueList) AttachDevice(d audio.Device) error {
	if d.SampleRate() != l.rate || d.Channels() != l.channels {
		return fmt.Errorf("%w: device %d Hz x%d, mix %d Hz x%d",
			ErrDeviceFormat, d.SampleRate(), d.Channels(), l.rate, l.channels)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.device = d
	l.resetRing()
	return nil
}

// DetachDevice stops draining and clears the ring. It returns the device that
// was attached, if any.
func (l *CueList) DetachDevice() audio.Device {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := l.device
	l.device = nil
	l.resetRing()
	return d
}

func (l *CueList) resetRing() {
	clear(l.buf)
	l.idx = 0
	l.started = false
	l.flushed = 0
	l.underflow = false
	l.deviceFail = false
}

// BufferTime is the clock time the next flushed frame corresponds to. It is
// zero until the first drain.
func (l *CueList) BufferTime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bufferTime()
}

func (l *CueList) bufferTime() time.Duration {
	if !l.started {
		return 0
	}
	return l.origin + l.framesToDuration(l.flushed)
}

func (l *CueList) framesToDuration(frames int64) time.Duration {
	rate := int64(l.rate)
	return time.Duration(frames/rate)*time.Second +
		time.Duration(frames%rate)*time.Second/time.Duration(rate)
}

// WriteAudio mixes frames samples taken from data every stride samples into
// channel of the ring, starting at frame position, or at the drain position
// when position is negative. The write wraps around the ring end. It returns
// the frame position following the write.
func (l *CueList) WriteAudio(position, channel int, data []float32, frames, stride int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeAudio(position, channel, data, frames, stride)
}

func (l *CueList) writeAudio(pos, channel int, data []float32, frames, stride int) int {
	if stride < 1 {
		stride = 1
	}
	if pos < 0 {
		pos = l.idx
	}
	pos %= l.ringFrames
	if channel < 0 || channel >= l.channels || frames <= 0 {
		return pos
	}
	if limit := (len(data) + stride - 1) / stride; frames > limit {
		frames = limit
	}
	if frames > l.ringFrames {
		frames = l.ringFrames
	}

	first := min(frames, l.ringFrames-pos)
	l.mixInto(pos, channel, data, first, stride)
	if rest := frames - first; rest > 0 {
		l.mixInto(0, channel, data[first*stride:], rest, stride)
	}
	return (pos + frames) % l.ringFrames
}

func (l *CueList) mixInto(pos, channel int, data []float32, frames, stride int) {
	o := pos*l.channels + channel
	for i := 0; i < frames; i++ {
		l.buf[o] += data[i*stride]
		o += l.channels
	}
}

// PullAudio mixes up to frames frames from every cue producing audio into the
// ring at the drain position.
func (l *CueList) PullAudio(frames int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pullAudio(frames)
}

func (l *CueList) pullAudio(frames int) {
	frames = min(frames, l.ringFrames)
	for _, c := range l.cues {
		ch := c.ActiveChannels()
		if ch <= 0 {
			continue
		}
		if need := frames * ch; len(l.scratch) < need {
			l.scratch = make([]float32, need)
		}
		n := c.Audio(l.scratch[:frames*ch], frames)
		if n <= 0 {
			continue
		}
		n = min(n, frames)
		out := c.OutputChannel()
		for k := 0; k < ch && out+k < l.channels; k++ {
			l.writeAudio(l.idx, out+k, l.scratch[k:], n, ch)
		}
	}
}

// drain keeps LeadBlocks blocks queued ahead of now. Each block is mixed
// from the playing cues just before it is written.
func (l *CueList) drain(now time.Duration) {
	if l.device == nil {
		return
	}
	if !l.started {
		l.started = true
		l.origin = now
		l.flushed = 0
	}
	lead := l.framesToDuration(int64(l.lead * l.block))
	for {
		bt := l.bufferTime()
		if now <= bt-lead {
			break
		}
		if now > bt {
			l.underflows.Add(1)
			if !l.underflow {
				l.underflow = true
				log.Warn("mix underflow", "behind", now-bt)
			}
		} else {
			l.underflow = false
		}
		l.flushBlock()
	}
}

func (l *CueList) flushBlock() {
	l.pullAudio(l.block)
	first := min(l.block, l.ringFrames-l.idx)
	l.writeDevice(l.idx, first)
	if rest := l.block - first; rest > 0 {
		l.writeDevice(0, rest)
	}
	l.idx = (l.idx + l.block) % l.ringFrames
	l.flushed += int64(l.block)
	l.blocks.Add(1)
}

// writeDevice sends frames frames starting at pos and zeroes them.
func (l *CueList) writeDevice(pos, frames int) {
	seg := l.buf[pos*l.channels : (pos+frames)*l.channels]
	n := audio.PutFloat32s(l.out, seg)
	if _, err := l.device.Write(l.out[:n]); err != nil {
		l.devErrors.Add(1)
		if !l.deviceFail {
			l.deviceFail = true
			log.Error("device write failed", "err", err)
		}
	} else {
		l.deviceFail = false
	}
	clear(seg)
}
