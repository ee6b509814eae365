package cue

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Timing is the user-facing timing configuration of a cue.
type Timing struct {
	Pre     time.Duration
	Action  time.Duration
	Post    time.Duration
	Trigger PostTrigger
}

func (t Timing) clamped() Timing {
	if t.Pre < 0 {
		t.Pre = 0
	}
	if t.Action < 0 {
		t.Action = 0
	}
	if t.Post < 0 {
		t.Post = 0
	}
	return t
}

// RunningTimes is a cue's progress through its segments at one instant.
type RunningTimes struct {
	Pre    time.Duration
	Action time.Duration
	Post   time.Duration
	Paused time.Duration // accumulated pause time this session
	Real   time.Duration // wall time since start, pauses included
	Total  time.Duration // cue time since start, pauses excluded
}

// Timeline owns a cue's identity, timing and state. It is embedded by every
// concrete kind and is not safe for concurrent use: callers serialize through
// the owning list's lock.
type Timeline struct {
	self Implementation
	list List

	uid           string
	id            string
	name          string
	outputChannel int

	defined Timing
	live    Timing // snapshot of defined taken at play-start

	state           State
	startTime       time.Duration
	pauseTime       time.Duration
	pausedTime      time.Duration
	pausePausedTime time.Duration
	postHasRun      bool
	actionEntered   bool
}

// NewTimeline creates the timeline for impl with a fresh random uid. The
// caller finishes configuring impl and then calls Revalidate.
func NewTimeline(impl Implementation, id, name string) *Timeline {
	return &Timeline{
		self:  impl,
		uid:   uuid.NewString(),
		id:    id,
		name:  name,
		state: StateStopped,
	}
}

func (t *Timeline) Base() *Timeline    { return t }
func (t *Timeline) UID() string        { return t.uid }
func (t *Timeline) ID() string         { return t.id }
func (t *Timeline) Name() string       { return t.name }
func (t *Timeline) State() State       { return t.state }
func (t *Timeline) OutputChannel() int { return t.outputChannel }

// ActiveChannels is 0 unless a kind overrides it.
func (t *Timeline) ActiveChannels() int { return 0 }

// Audio produces nothing unless a kind overrides it.
func (t *Timeline) Audio(buf []float32, frames int) int { return 0 }

// SetUID replaces the uid. Lists use it to resolve collisions before the cue
// is visible to anything else.
func (t *Timeline) SetUID(uid string) { t.uid = uid }

func (t *Timeline) SetID(id string) {
	t.id = id
	t.changed()
}

func (t *Timeline) SetName(name string) {
	t.name = name
	t.changed()
}

func (t *Timeline) SetOutputChannel(ch int) {
	if ch < 0 {
		ch = 0
	}
	t.outputChannel = ch
	t.changed()
}

// Timing returns the defined (user-set) timing.
func (t *Timeline) Timing() Timing { return t.defined }

// LiveTiming returns the timing the current play session runs with.
func (t *Timeline) LiveTiming() Timing { return t.live }

// SetTiming updates the defined timing. A running session keeps its live
// snapshot; the change applies from the next play.
func (t *Timeline) SetTiming(tm Timing) {
	t.defined = tm.clamped()
	t.changed()
}

// PostHasRun reports whether this session already started its follower.
func (t *Timeline) PostHasRun() bool { return t.postHasRun }

// List returns the owning list, or nil when detached.
func (t *Timeline) List() List { return t.list }

// Attach records the owning list.
func (t *Timeline) Attach(l List) { t.list = l }

// Detach forgets the owning list.
func (t *Timeline) Detach() { t.list = nil }

// Revalidate moves an idle cue between StateStopped and StateError according
// to its configuration. Running cues are left alone.
func (t *Timeline) Revalidate() {
	switch t.state {
	case StateStopped, StatePrepared, StateError:
	default:
		return
	}
	if err := t.self.Validate(); err != nil {
		t.setState(StateError)
		return
	}
	if t.state == StateError {
		t.setState(StateStopped)
	}
}

// MarkPrepared moves a stopped cue to StatePrepared.
func (t *Timeline) MarkPrepared() {
	if t.state == StateStopped {
		t.setState(StatePrepared)
	}
}

// Fail puts the cue in StateError, e.g. after an I/O failure mid-play.
func (t *Timeline) Fail(err error) {
	log.Warn("cue failed", "cue", t.id, "kind", t.self.KindName(), "err", err)
	t.setState(StateError)
}

// RunningTimes computes progress through the live segments at now. While
// paused it refreshes the accumulated pause time, which is idempotent for
// repeated calls at the same now.
func (t *Timeline) RunningTimes(now time.Duration) RunningTimes {
	if t.state == StatePaused {
		t.pausedTime = t.pausePausedTime + (now - t.pauseTime)
	}
	return t.compute(now)
}

func (t *Timeline) compute(now time.Duration) RunningTimes {
	if !t.state.Playing() && t.state != StatePaused {
		return RunningTimes{}
	}

	var rt RunningTimes
	rt.Paused = nonNeg(t.pausedTime)
	rt.Real = nonNeg(now - t.startTime)
	rt.Total = nonNeg(rt.Real - t.pausedTime)

	lv := t.live
	rt.Pre = min(rt.Total, lv.Pre)
	if rt.Total >= lv.Pre {
		rt.Action = min(rt.Total-lv.Pre, lv.Action)
	}

	switch lv.Trigger {
	case PostImmediate:
		rt.Post = min(rt.Total, lv.Post)
	case PostAfterPre:
		if rt.Total >= lv.Pre {
			rt.Post = min(rt.Total-lv.Pre, lv.Post)
		}
	case PostAfterAction:
		if rt.Total >= lv.Pre+lv.Action {
			rt.Post = min(rt.Total-lv.Pre-lv.Action, lv.Post)
		}
	}
	return rt
}

// Play starts or resumes the cue. It is valid from stopped, prepared or
// paused and returns false, changing nothing, from any other state.
func (t *Timeline) Play(now time.Duration) bool {
	switch t.state {
	case StatePaused:
		t.pausedTime = t.pausePausedTime + (now - t.pauseTime)
		t.pauseTime, t.pausePausedTime = 0, 0
		t.resume(now)
		return true

	case StateStopped, StatePrepared:
		t.live = t.defined
		t.startTime = now
		t.pauseTime, t.pausedTime, t.pausePausedTime = 0, 0, 0
		t.postHasRun = false
		t.actionEntered = false
		if t.live.Pre > 0 {
			t.setState(StatePlayingPre)
		} else {
			t.enterAction(now)
		}
		return true
	}
	return false
}

// resume re-enters whichever segment the elapsed cue time falls in.
func (t *Timeline) resume(now time.Duration) {
	rt := t.compute(now)
	lv := t.live
	switch {
	case rt.Total < lv.Pre:
		t.setState(StatePlayingPre)
	case !t.actionEntered:
		t.enterAction(now)
	case rt.Total < lv.Pre+lv.Action:
		t.setState(StatePlayingAction)
		t.self.OnResume(now)
	case lv.Trigger != PostNone && rt.Post < lv.Post:
		t.setState(StatePlayingPost)
	default:
		// Action ended exactly at the pause; the next pulse closes it.
		t.setState(StatePlayingAction)
		t.self.OnResume(now)
	}
}

// Pause freezes a playing cue. It does nothing in any other state.
func (t *Timeline) Pause(now time.Duration) {
	if !t.state.Playing() {
		return
	}
	t.pauseTime = now
	t.pausePausedTime = t.pausedTime
	t.setState(StatePaused)
	t.self.OnPause()
}

// Stop resets the runtime clock and returns the cue to StateStopped, or to
// StateError when its configuration is invalid. Calling it twice is the same
// as calling it once.
func (t *Timeline) Stop() {
	t.startTime, t.pauseTime, t.pausedTime, t.pausePausedTime = 0, 0, 0, 0
	t.actionEntered = false
	t.self.OnStop()
	if err := t.self.Validate(); err != nil {
		t.setState(StateError)
		return
	}
	t.setState(StateStopped)
}

// Pulse advances a playing cue at now. Each call makes at most one
// transition: starting the follower takes priority over segment changes.
func (t *Timeline) Pulse(now time.Duration) {
	if !t.state.Playing() {
		return
	}
	rt := t.compute(now)
	lv := t.live

	if lv.Trigger != PostNone && !t.postHasRun && t.postReady(rt) {
		t.postHasRun = true
		t.follow(now)
		return
	}

	switch t.state {
	case StatePlayingPre:
		if rt.Pre < lv.Pre {
			return
		}
		t.enterAction(now)

	case StatePlayingAction:
		t.self.ActionPulse(now, rt)
		if t.state != StatePlayingAction || rt.Action < lv.Action {
			return
		}
		if lv.Trigger != PostNone && rt.Post < lv.Post {
			t.setState(StatePlayingPost)
			return
		}
		t.Stop()

	case StatePlayingPost:
		if rt.Post >= lv.Post {
			t.Stop()
		}
	}
}

func (t *Timeline) postReady(rt RunningTimes) bool {
	switch t.live.Trigger {
	case PostImmediate:
		return true
	case PostAfterPre:
		return rt.Total >= t.live.Pre
	case PostAfterAction:
		return rt.Total >= t.live.Pre+t.live.Action
	}
	return false
}

func (t *Timeline) follow(now time.Duration) {
	if t.list == nil {
		return
	}
	next := t.list.Next(t.self)
	if next == nil {
		return
	}
	log.Debug("auto-follow", "from", t.id, "to", next.ID())
	next.Play(now)
}

func (t *Timeline) enterAction(now time.Duration) {
	t.setState(StatePlayingAction)
	t.actionEntered = true
	if err := t.self.EnterAction(now); err != nil {
		t.Fail(err)
	}
}

func (t *Timeline) setState(s State) {
	if t.state == s {
		return
	}
	from := t.state
	t.state = s
	log.Debug("cue state", "cue", t.id, "from", from, "to", s)
	if t.list != nil {
		t.list.CueStateChanged(t.self, from, s)
	}
}

func (t *Timeline) changed() {
	if t.list != nil {
		t.list.CueChanged(t.self)
	}
}

func nonNeg(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
