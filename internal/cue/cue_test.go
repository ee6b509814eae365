package cue

import (
	"errors"
	"time"

	"github.com/satindergrewal/cuedeck/internal/audio"
)

const ms = time.Millisecond

// fakeList is a minimal List that records state changes.
type fakeList struct {
	cues     []Cue
	rate     int
	channels int
	changes  []stateChange
	edits    int
}

type stateChange struct {
	uid      string
	from, to State
}

func newFakeList(cues ...Implementation) *fakeList {
	l := &fakeList{rate: 48000, channels: 2}
	for _, c := range cues {
		l.add(c)
	}
	return l
}

func (l *fakeList) add(c Implementation) {
	c.Base().Attach(l)
	l.cues = append(l.cues, c)
}

func (l *fakeList) CueChanged(c Cue) { l.edits++ }

func (l *fakeList) CueStateChanged(c Cue, from, to State) {
	l.changes = append(l.changes, stateChange{c.UID(), from, to})
}

func (l *fakeList) Next(c Cue) Cue {
	for i, x := range l.cues {
		if x.UID() == c.UID() && i+1 < len(l.cues) {
			return l.cues[i+1]
		}
	}
	return nil
}

func (l *fakeList) Lookup(ref string) Cue {
	for _, x := range l.cues {
		if x.UID() == ref || x.ID() == ref {
			return x
		}
	}
	return nil
}

func (l *fakeList) SampleRate() int { return l.rate }
func (l *fakeList) Channels() int   { return l.channels }

// statesOf returns the sequence of states c moved into.
func (l *fakeList) statesOf(c Cue) []State {
	var out []State
	for _, ch := range l.changes {
		if ch.uid == c.UID() {
			out = append(out, ch.to)
		}
	}
	return out
}

// testCue counts the hooks the timeline drives.
type testCue struct {
	*Timeline
	NopKind

	invalid  bool
	enterErr error
	entered  int
	pulses   int
	paused   int
	resumed  int
	stopped  int
}

func newTestCue(id string, tm Timing) *testCue {
	c := &testCue{}
	c.Timeline = NewTimeline(c, id, "test "+id)
	c.SetTiming(tm)
	return c
}

func (c *testCue) KindName() string { return "test" }

func (c *testCue) Validate() error {
	if c.invalid {
		return ErrNoTarget
	}
	return nil
}

func (c *testCue) EnterAction(now time.Duration) error {
	c.entered++
	return c.enterErr
}

func (c *testCue) ActionPulse(now time.Duration, rt RunningTimes) { c.pulses++ }
func (c *testCue) OnPause()                                       { c.paused++ }
func (c *testCue) OnResume(now time.Duration)                     { c.resumed++ }
func (c *testCue) OnStop()                                        { c.stopped++ }

// fakeSource produces a constant value.
type fakeSource struct {
	channels int
	rate     int
	frames   int
	value    float32

	pos     int
	seeks   []time.Duration
	closed  bool
	readErr int // when non-zero, Read returns it as-is
}

func (s *fakeSource) Channels() int   { return s.channels }
func (s *fakeSource) SampleRate() int { return s.rate }

func (s *fakeSource) Length() time.Duration {
	return time.Duration(s.frames) * time.Second / time.Duration(s.rate)
}

func (s *fakeSource) Seek(t time.Duration) error {
	s.seeks = append(s.seeks, t)
	s.pos = int(t * time.Duration(s.rate) / time.Second)
	return nil
}

func (s *fakeSource) Read(buf []float32, frames int) int {
	if s.readErr != 0 {
		return s.readErr
	}
	n := min(frames, s.frames-s.pos)
	if n <= 0 {
		return 0
	}
	for i := range buf[:n*s.channels] {
		buf[i] = s.value
	}
	s.pos += n
	return n
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

var errOpen = errors.New("no such file")

// openerFor returns an Opener serving src for any target, or failing when
// src is nil.
func openerFor(src *fakeSource) audio.Opener {
	return func(target string) (audio.Source, error) {
		if src == nil {
			return nil, errOpen
		}
		return src, nil
	}
}
