package cue

import (
	"fmt"
	"time"

	"github.com/satindergrewal/cuedeck/internal/audio"
)

// KindFade is the registry name of FadeCue.
const KindFade = "fade"

// FadeCue moves a target cue's gain to a level over its action time.
type FadeCue struct {
	*Timeline
	NopKind

	target     string
	level      float32
	curve      audio.Curve
	stopTarget bool

	leveled Leveled
	from    float32
}

// NewFade creates a fade of target to level.
func NewFade(id, name, target string, level float32, curve audio.Curve) *FadeCue {
	f := &FadeCue{target: target, level: level, curve: curve}
	f.Timeline = NewTimeline(f, id, name)
	f.Revalidate()
	return f
}

func (f *FadeCue) KindName() string { return KindFade }

func (f *FadeCue) Validate() error {
	if f.target == "" {
		return ErrNoTarget
	}
	return nil
}

func (f *FadeCue) Target() string { return f.target }

func (f *FadeCue) SetTarget(target string) {
	f.target = target
	f.changed()
	f.Revalidate()
}

func (f *FadeCue) Level() float32 { return f.level }

func (f *FadeCue) SetLevel(level float32) {
	if level < 0 {
		level = 0
	}
	f.level = level
	f.changed()
}

// SetStopTarget makes the fade stop its target once the level is reached.
func (f *FadeCue) SetStopTarget(stop bool) {
	f.stopTarget = stop
	f.changed()
}

// EnterAction resolves the target and records its starting level.
func (f *FadeCue) EnterAction(now time.Duration) error {
	l := f.List()
	if l == nil {
		return ErrNotAttached
	}
	c := l.Lookup(f.target)
	if c == nil {
		return fmt.Errorf("fade %s: %w: %q", f.ID(), ErrTargetNotFound, f.target)
	}
	lv, ok := c.(Leveled)
	if !ok {
		return fmt.Errorf("fade %s: %w: %q is %s", f.ID(), ErrTargetNotLevel, f.target, c.KindName())
	}
	f.leveled = lv
	f.from = lv.Gain()
	if f.live.Action == 0 {
		f.apply(1)
	}
	return nil
}

func (f *FadeCue) ActionPulse(now time.Duration, rt RunningTimes) {
	if f.leveled == nil {
		return
	}
	progress := 1.0
	if f.live.Action > 0 {
		progress = float64(rt.Action) / float64(f.live.Action)
	}
	f.apply(progress)
}

func (f *FadeCue) apply(progress float64) {
	f.leveled.SetGain(f.curve.Interpolate(f.from, f.level, progress))
	if progress >= 1 && f.stopTarget {
		f.leveled.Stop()
		f.leveled = nil
	}
}

func (f *FadeCue) OnStop() {
	f.leveled = nil
}
