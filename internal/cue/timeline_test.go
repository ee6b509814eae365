package cue

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExampleScenario(t *testing.T) {
	c := newTestCue("1", Timing{Pre: 1000 * ms, Action: 2000 * ms, Post: 500 * ms, Trigger: PostAfterAction})
	next := newTestCue("2", Timing{Action: 10 * time.Second})
	l := newFakeList(c, next)

	if !c.Play(0) {
		t.Fatal("Play = false, want true")
	}
	followedAt := time.Duration(-1)
	for now := ms; now <= 3600*ms; now += ms {
		c.Pulse(now)
		if followedAt < 0 && next.State() != StateStopped {
			followedAt = now
		}

		rt := c.RunningTimes(now)
		switch now {
		case 800 * ms:
			if c.State() != StatePlayingPre || rt.Pre != 800*ms || rt.Action != 0 {
				t.Errorf("at 800ms: state %v pre %v action %v, want pre-wait 800ms 0s", c.State(), rt.Pre, rt.Action)
			}
		case 1500 * ms:
			if c.State() != StatePlayingAction || rt.Pre != 1000*ms || rt.Action != 500*ms {
				t.Errorf("at 1500ms: state %v pre %v action %v, want action 1s 500ms", c.State(), rt.Pre, rt.Action)
			}
		case 3200 * ms:
			if c.State() != StatePlayingPost || rt.Post != 200*ms {
				t.Errorf("at 3200ms: state %v post %v, want post-wait 200ms", c.State(), rt.Post)
			}
		}
	}
	if c.State() != StateStopped {
		t.Errorf("State at 3600ms = %v, want stopped", c.State())
	}
	if followedAt != 3000*ms {
		t.Errorf("follow started at %v, want 3s", followedAt)
	}
	if next.entered != 1 {
		t.Errorf("follower entered action %d times, want 1", next.entered)
	}
	if got := l.statesOf(next); len(got) != 1 || got[0] != StatePlayingAction {
		t.Errorf("follower states = %v, want [action]", got)
	}
}

// postRemains reports whether post-wait is still running when action ends.
func postRemains(tm Timing) bool {
	switch tm.Trigger {
	case PostImmediate:
		return tm.Post > tm.Pre+tm.Action
	case PostAfterPre:
		return tm.Post > tm.Action
	case PostAfterAction:
		return tm.Post > 0
	}
	return false
}

func TestSegmentOrder(t *testing.T) {
	triggers := []PostTrigger{PostNone, PostImmediate, PostAfterPre, PostAfterAction}
	for _, pre := range []time.Duration{0, 5 * ms} {
		for _, action := range []time.Duration{0, 7 * ms} {
			for _, post := range []time.Duration{0, 3 * ms, 20 * ms} {
				for _, trig := range triggers {
					tm := Timing{Pre: pre, Action: action, Post: post, Trigger: trig}
					t.Run(fmt.Sprintf("pre=%v,action=%v,post=%v,%v", pre, action, post, trig), func(t *testing.T) {
						c := newTestCue("1", tm)
						l := newFakeList(c)

						var want []State
						if pre > 0 {
							want = append(want, StatePlayingPre)
						}
						want = append(want, StatePlayingAction)
						if postRemains(tm) {
							want = append(want, StatePlayingPost)
						}
						want = append(want, StateStopped)

						c.Play(0)
						for now := ms; now < 200*ms && c.State() != StateStopped; now += ms {
							c.Pulse(now)
							rt := c.RunningTimes(now)
							if rt.Pre < 0 || rt.Pre > pre || rt.Action < 0 || rt.Action > action || rt.Post < 0 || rt.Post > post {
								t.Fatalf("at %v: running times %+v out of range", now, rt)
							}
						}

						got := l.statesOf(c)
						if fmt.Sprint(got) != fmt.Sprint(want) {
							t.Errorf("states = %v, want %v", got, want)
						}
						if c.entered != 1 {
							t.Errorf("entered action %d times, want 1", c.entered)
						}
					})
				}
			}
		}
	}
}

func TestStopIdempotent(t *testing.T) {
	c := newTestCue("1", Timing{Pre: 10 * ms, Action: 10 * ms})
	newFakeList(c)
	c.Play(5 * ms)
	c.Pulse(12 * ms)
	c.Pause(14 * ms)

	c.Stop()
	first := *c.Timeline
	c.Stop()
	second := *c.Timeline

	if first.state != StateStopped || second.state != StateStopped {
		t.Errorf("states = %v, %v, want stopped", first.state, second.state)
	}
	for _, tl := range []Timeline{first, second} {
		if tl.startTime != 0 || tl.pauseTime != 0 || tl.pausedTime != 0 || tl.pausePausedTime != 0 {
			t.Errorf("runtime fields not zeroed: %+v", tl)
		}
	}
	if c.RunningTimes(20*ms) != (RunningTimes{}) {
		t.Errorf("RunningTimes after Stop = %+v, want zero", c.RunningTimes(20*ms))
	}
}

func TestPauseResumeShift(t *testing.T) {
	tm := Timing{Pre: 10 * ms, Action: 50 * ms}
	ref := newTestCue("ref", tm)
	c := newTestCue("paused", tm)
	newFakeList(ref, c)

	ref.Play(0)
	c.Play(0)
	c.Pause(20 * ms)

	// Querying while paused is stable.
	for i := 0; i < 2; i++ {
		rt := c.RunningTimes(30 * ms)
		if rt.Total != 20*ms || rt.Paused != 10*ms || rt.Real != 30*ms {
			t.Fatalf("paused RunningTimes = %+v, want total 20ms paused 10ms real 30ms", rt)
		}
	}

	if !c.Play(35 * ms) {
		t.Fatal("resume Play = false, want true")
	}
	if c.State() != StatePlayingAction {
		t.Errorf("State after resume = %v, want action", c.State())
	}
	const shift = 15 * ms
	for now := 35 * ms; now <= 60*ms; now += ms {
		got := c.RunningTimes(now)
		want := ref.RunningTimes(now - shift)
		if got.Total != want.Total || got.Pre != want.Pre || got.Action != want.Action {
			t.Errorf("at %v: %+v, want %+v", now, got, want)
		}
	}
	if c.paused != 1 {
		t.Errorf("OnPause called %d times, want 1", c.paused)
	}
}

func TestResumeMidAction(t *testing.T) {
	c := newTestCue("1", Timing{Action: 50 * ms})
	newFakeList(c)
	c.Play(0)
	c.Pulse(10 * ms)
	c.Pause(20 * ms)
	c.Play(40 * ms)

	if c.State() != StatePlayingAction {
		t.Errorf("State = %v, want action", c.State())
	}
	if c.entered != 1 || c.resumed != 1 {
		t.Errorf("entered %d resumed %d, want 1 1", c.entered, c.resumed)
	}
	c.Pulse(69 * ms)
	if c.State() != StatePlayingAction {
		t.Errorf("State at 69ms = %v, want action", c.State())
	}
	c.Pulse(70 * ms)
	if c.State() != StateStopped {
		t.Errorf("State at 70ms = %v, want stopped", c.State())
	}
}

func TestPlayRejected(t *testing.T) {
	c := newTestCue("1", Timing{Action: 50 * ms})
	newFakeList(c)
	c.Play(3 * ms)
	if c.Play(5 * ms) {
		t.Error("Play while playing = true, want false")
	}
	if c.startTime != 3*ms {
		t.Errorf("startTime = %v, want 3ms", c.startTime)
	}

	bad := newTestCue("2", Timing{})
	bad.invalid = true
	bad.Revalidate()
	l := newFakeList(bad)
	if bad.State() != StateError {
		t.Fatalf("State = %v, want error", bad.State())
	}
	if bad.Play(0) {
		t.Error("Play on error cue = true, want false")
	}
	if bad.State() != StateError || len(l.changes) != 0 {
		t.Errorf("error cue changed state: %v %v", bad.State(), l.changes)
	}
}

func TestPauseOnlyWhilePlaying(t *testing.T) {
	c := newTestCue("1", Timing{Action: 50 * ms})
	newFakeList(c)
	c.Pause(0)
	if c.State() != StateStopped || c.paused != 0 {
		t.Errorf("Pause while stopped: state %v, OnPause %d", c.State(), c.paused)
	}
}

func TestEnterActionFailure(t *testing.T) {
	c := newTestCue("1", Timing{Action: 50 * ms})
	c.enterErr = errors.New("device gone")
	l := newFakeList(c)

	if !c.Play(0) {
		t.Fatal("Play = false, want true")
	}
	if c.State() != StateError {
		t.Errorf("State = %v, want error", c.State())
	}
	want := []State{StatePlayingAction, StateError}
	if got := l.statesOf(c); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("states = %v, want %v", got, want)
	}
}

func TestStopInvalidStaysError(t *testing.T) {
	c := newTestCue("1", Timing{Action: 50 * ms})
	newFakeList(c)
	c.Play(0)
	c.invalid = true
	c.Stop()
	if c.State() != StateError {
		t.Errorf("State = %v, want error", c.State())
	}
}

func TestFollowTiming(t *testing.T) {
	tm := Timing{Pre: 5 * ms, Action: 10 * ms, Post: 30 * ms}
	tests := []struct {
		trigger PostTrigger
		want    time.Duration
	}{
		{PostImmediate, 1 * ms},
		{PostAfterPre, 5 * ms},
		{PostAfterAction, 15 * ms},
		{PostNone, -1},
	}
	for _, tt := range tests {
		t.Run(tt.trigger.String(), func(t *testing.T) {
			tm.Trigger = tt.trigger
			c := newTestCue("1", tm)
			next := newTestCue("2", Timing{Action: time.Second})
			newFakeList(c, next)

			c.Play(0)
			got := time.Duration(-1)
			for now := ms; now <= 100*ms; now += ms {
				c.Pulse(now)
				if got < 0 && next.State() != StateStopped {
					got = now
				}
			}
			if got != tt.want {
				t.Errorf("follow at %v, want %v", got, tt.want)
			}
			if tt.trigger != PostNone && !c.PostHasRun() {
				t.Error("PostHasRun = false, want true")
			}
		})
	}
}

func TestLiveTimingSnapshot(t *testing.T) {
	c := newTestCue("1", Timing{Action: 10 * ms})
	newFakeList(c)
	c.Play(0)
	c.SetTiming(Timing{Action: 100 * ms, Trigger: PostImmediate, Post: time.Second})

	if c.LiveTiming().Action != 10*ms {
		t.Errorf("LiveTiming().Action = %v, want 10ms", c.LiveTiming().Action)
	}
	c.Pulse(10 * ms)
	if c.State() != StateStopped {
		t.Errorf("State = %v, want stopped", c.State())
	}
	if c.PostHasRun() {
		t.Error("trigger changed mid-play took effect")
	}

	c.Play(20 * ms)
	if c.LiveTiming().Action != 100*ms {
		t.Errorf("next play LiveTiming().Action = %v, want 100ms", c.LiveTiming().Action)
	}
}

func TestSetTimingClampsNegative(t *testing.T) {
	c := newTestCue("1", Timing{Pre: -ms, Action: -ms, Post: -ms})
	if c.Timing() != (Timing{}) {
		t.Errorf("Timing = %+v, want zero", c.Timing())
	}
}

func TestUIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		c := newTestCue("x", Timing{})
		if seen[c.UID()] {
			t.Fatalf("duplicate uid %s", c.UID())
		}
		seen[c.UID()] = true
	}
}
