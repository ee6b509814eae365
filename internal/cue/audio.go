package cue

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/satindergrewal/cuedeck/internal/audio"
	"github.com/satindergrewal/cuedeck/internal/resample"
)

// KindAudio is the registry name of AudioCue.
const KindAudio = "audio"

const readChunk = 1024 // source frames decoded per bridge refill

// Preparer is implemented by kinds that do slow setup ahead of play. A cue
// that needs preparing and was not prepared fails when its action starts.
type Preparer interface {
	// NeedsPrepare reports whether the cue is idle without its resources.
	NeedsPrepare() bool
	// Prepare does the whole job at once. Use it only on cues no list can
	// reach yet.
	Prepare() error
	// PrepareJob captures what the slow part needs so it can run without the
	// list lock.
	PrepareJob() Job
}

// Job is a preparation split around the list lock. Run does the I/O and
// touches no cue state; Commit applies the result and must run under the
// lock that guards the cue.
type Job interface {
	Run()
	Commit() error
}

// AudioCue plays an audio.Source during its action segment.
type AudioCue struct {
	*Timeline
	NopKind

	target string
	open   audio.Opener
	start  time.Duration
	gain   float32

	src     audio.Source
	bridge  *resample.Bridge
	outRate int
	in      []float32
	eof     bool
}

// NewAudio creates an audio cue that plays target through open.
func NewAudio(id, name, target string, open audio.Opener) *AudioCue {
	a := &AudioCue{target: target, open: open, gain: 1}
	a.Timeline = NewTimeline(a, id, name)
	a.Revalidate()
	return a
}

func (a *AudioCue) KindName() string { return KindAudio }

func (a *AudioCue) Validate() error {
	if a.target == "" {
		return ErrNoTarget
	}
	if a.open == nil {
		return ErrNoOpener
	}
	return nil
}

func (a *AudioCue) Target() string { return a.target }

// SetTarget points the cue at a new source. An already opened source is
// closed.
func (a *AudioCue) SetTarget(target string) {
	a.Close()
	a.target = target
	a.changed()
	a.Revalidate()
}

// Start returns the offset into the source that playback begins at.
func (a *AudioCue) Start() time.Duration { return a.start }

func (a *AudioCue) SetStart(d time.Duration) {
	if d < 0 {
		d = 0
	}
	a.start = d
	a.changed()
}

func (a *AudioCue) Gain() float32 { return a.gain }

// SetGain sets the output level. It sends no change notification: fades
// call it on every pulse and a snapshot reads the current value.
func (a *AudioCue) SetGain(g float32) {
	if g < 0 {
		g = 0
	}
	a.gain = g
}

// NeedsPrepare reports whether the source still has to be opened.
func (a *AudioCue) NeedsPrepare() bool {
	return a.src == nil && a.State() == StateStopped
}

// Prepare opens and seeks the source. When no action time is set it is taken
// from the source length.
func (a *AudioCue) Prepare() error {
	if err := a.Validate(); err != nil {
		return err
	}
	j := a.PrepareJob()
	j.Run()
	return j.Commit()
}

func (a *AudioCue) PrepareJob() Job {
	return &audioJob{cue: a, target: a.target, start: a.start, open: a.open}
}

type audioJob struct {
	cue    *AudioCue
	target string
	start  time.Duration
	open   audio.Opener

	src audio.Source
	err error
}

func (j *audioJob) Run() {
	if j.open == nil {
		j.err = ErrNoOpener
		return
	}
	src, err := j.open(j.target)
	if err != nil {
		j.err = fmt.Errorf("open %s: %w", j.target, err)
		return
	}
	if src.Channels() <= 0 {
		src.Close()
		j.err = fmt.Errorf("open %s: %w", j.target, audio.ErrFormat)
		return
	}
	if err := src.Seek(j.start); err != nil {
		src.Close()
		j.err = fmt.Errorf("seek %s: %w", j.target, err)
		return
	}
	j.src = src
}

// Commit installs the opened source. A result for a cue that was
// reconfigured or started meanwhile is discarded.
func (j *audioJob) Commit() error {
	a := j.cue
	if a.target != j.target || a.start != j.start || !a.NeedsPrepare() {
		if j.src != nil {
			j.src.Close()
		}
		return nil
	}
	if j.err != nil {
		a.Fail(j.err)
		return j.err
	}
	a.src = j.src
	a.eof = false
	a.bridge = nil
	a.outRate = 0
	if err := a.fitRate(); err != nil {
		a.Fail(err)
		return err
	}
	if tm := a.Timing(); tm.Action == 0 {
		tm.Action = a.remaining()
		a.SetTiming(tm)
	}
	a.MarkPrepared()
	return nil
}

// fitRate puts a resampler between the source and the list when their rates
// differ.
func (a *AudioCue) fitRate() error {
	rate := audio.SampleRate
	if l := a.List(); l != nil {
		rate = l.SampleRate()
	}
	if rate == a.outRate {
		return nil
	}
	a.bridge = nil
	if a.src.SampleRate() != rate {
		b, err := resample.New(a.src.SampleRate(), rate, a.src.Channels())
		if err != nil {
			return fmt.Errorf("resample %s: %w", a.target, err)
		}
		a.bridge = b
		a.in = make([]float32, readChunk*a.src.Channels())
	}
	a.outRate = rate
	return nil
}

func (a *AudioCue) remaining() time.Duration {
	if a.src == nil {
		return 0
	}
	if d := a.src.Length() - a.start; d > 0 {
		return d
	}
	return 0
}

// EnterAction starts playback of the prepared source. It never opens files:
// an unprepared cue fails. A zero action time is filled in from the source
// length for this session.
func (a *AudioCue) EnterAction(now time.Duration) error {
	if a.src == nil {
		return fmt.Errorf("%s: %w", a.target, ErrNotPrepared)
	}
	if err := a.fitRate(); err != nil {
		return err
	}
	if a.live.Action == 0 {
		a.live.Action = a.remaining()
	}
	return nil
}

func (a *AudioCue) OnStop() {
	a.eof = false
	if a.bridge != nil {
		a.bridge.Reset()
	}
	if a.src == nil {
		return
	}
	if err := a.src.Seek(a.start); err != nil {
		log.Warn("rewind failed", "cue", a.ID(), "err", err)
	}
}

// Close releases the source. The cue reopens it on the next play.
func (a *AudioCue) Close() error {
	if a.src == nil {
		return nil
	}
	err := a.src.Close()
	a.src = nil
	a.bridge = nil
	a.outRate = 0
	a.eof = false
	if a.State() == StatePrepared {
		a.setState(StateStopped)
	}
	return err
}

func (a *AudioCue) ActiveChannels() int {
	if a.State() != StatePlayingAction || a.src == nil {
		return 0
	}
	return a.src.Channels()
}

// Audio reads up to frames frames of interleaved source audio, resampled to
// the list rate and scaled by the cue gain.
func (a *AudioCue) Audio(buf []float32, frames int) int {
	ch := a.ActiveChannels()
	if ch == 0 || frames <= 0 {
		return 0
	}
	if limit := len(buf) / ch; frames > limit {
		frames = limit
	}

	var n int
	if a.bridge == nil {
		if !a.eof {
			n = clampFrames(a.src.Read(buf, frames), frames)
			if n == 0 {
				a.eof = true
			}
		}
	} else {
		for a.bridge.Buffered() < frames && !a.eof {
			want := min(readChunk, a.bridge.Room())
			if want == 0 {
				break
			}
			got := clampFrames(a.src.Read(a.in, want), want)
			if got == 0 {
				a.eof = true
				a.bridge.Push(nil, 0)
				break
			}
			a.bridge.Push(a.in, got)
		}
		n = a.bridge.Frames(buf, frames)
	}

	if a.gain != 1 {
		for i := range buf[:n*ch] {
			buf[i] *= a.gain
		}
	}
	return n
}

func clampFrames(n, limit int) int {
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}
