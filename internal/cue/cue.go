// Package cue implements the cue contract and the timing state machine that
// every cue kind shares.
package cue

import (
	"errors"
	"time"
)

var (
	ErrNoTarget       = errors.New("cue has no target")
	ErrNoOpener       = errors.New("cue has no source opener")
	ErrNotPrepared    = errors.New("cue source was not prepared")
	ErrNotAttached    = errors.New("cue is not in a list")
	ErrTargetNotFound = errors.New("target cue not found")
	ErrTargetNotLevel = errors.New("target cue has no level to fade")
	ErrUnknownKind    = errors.New("unknown cue kind")
	ErrUnknownOp      = errors.New("unknown action")
)

// Cue is the contract the mixer and the timeline work through. Concrete kinds
// embed *Timeline, which supplies the timing operations and silent audio
// defaults, and override what they need.
type Cue interface {
	UID() string
	ID() string
	Name() string
	KindName() string
	State() State
	Base() *Timeline

	Play(now time.Duration) bool
	Pause(now time.Duration)
	Stop()
	Pulse(now time.Duration)

	// ActiveChannels is the number of interleaved channels Audio produces
	// right now; 0 means the cue contributes nothing.
	ActiveChannels() int
	// Audio fills buf with up to frames interleaved frames and returns how
	// many it wrote. It must not keep buf.
	Audio(buf []float32, frames int) int
	// OutputChannel is the first mix channel the cue's audio lands on.
	OutputChannel() int
}

// Kind receives segment transitions from the Timeline. Embed NopKind for
// default bodies.
type Kind interface {
	KindName() string
	// Validate reports a configuration problem; a cue that fails it sits in
	// StateError.
	Validate() error
	// EnterAction runs when the action segment starts. An error moves the cue
	// to StateError after it has started playing.
	EnterAction(now time.Duration) error
	// ActionPulse runs on every pulse during the action segment, including
	// the one on which the action completes.
	ActionPulse(now time.Duration, rt RunningTimes)
	OnPause()
	OnResume(now time.Duration)
	OnStop()
}

// Implementation is what a concrete kind hands to NewTimeline.
type Implementation interface {
	Cue
	Kind
}

// NopKind provides no-op Kind hooks.
type NopKind struct{}

func (NopKind) Validate() error                                { return nil }
func (NopKind) EnterAction(now time.Duration) error            { return nil }
func (NopKind) ActionPulse(now time.Duration, rt RunningTimes) {}
func (NopKind) OnPause()                                       {}
func (NopKind) OnResume(now time.Duration)                     {}
func (NopKind) OnStop()                                        {}

// Observer receives change notifications. Calls are fire-and-forget and are
// made from the tick goroutine, so they must not block.
type Observer interface {
	CueChanged(c Cue)
	CueStateChanged(c Cue, from, to State)
}

// List is a cue's view of the list that owns it. Cues call it while the
// list's lock is already held, so implementations must not lock.
type List interface {
	Observer
	// Next returns the cue after c, or nil.
	Next(c Cue) Cue
	// Lookup finds a cue by uid or human id.
	Lookup(ref string) Cue
	SampleRate() int
	Channels() int
}

// Leveled is implemented by cues whose output level can be faded.
type Leveled interface {
	Cue
	Gain() float32
	SetGain(g float32)
}
