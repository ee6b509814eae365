package cue

import (
	"fmt"
	"time"
)

// KindAction is the registry name of ActionCue.
const KindAction = "action"

// Op is what an ActionCue does to its target.
type Op string

const (
	OpStart Op = "start"
	OpStop  Op = "stop"
	OpPause Op = "pause"
)

// ParseOp validates an action name.
func ParseOp(name string) (Op, error) {
	switch op := Op(name); op {
	case OpStart, OpStop, OpPause:
		return op, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOp, name)
}

// ActionCue starts, stops or pauses another cue when its action begins.
type ActionCue struct {
	*Timeline
	NopKind

	target string
	op     Op
}

// NewAction creates an action cue applying op to target.
func NewAction(id, name, target string, op Op) *ActionCue {
	a := &ActionCue{target: target, op: op}
	a.Timeline = NewTimeline(a, id, name)
	a.Revalidate()
	return a
}

func (a *ActionCue) KindName() string { return KindAction }

func (a *ActionCue) Validate() error {
	if a.target == "" {
		return ErrNoTarget
	}
	if _, err := ParseOp(string(a.op)); err != nil {
		return err
	}
	return nil
}

func (a *ActionCue) Target() string { return a.target }
func (a *ActionCue) Op() Op         { return a.op }

func (a *ActionCue) SetTarget(target string) {
	a.target = target
	a.changed()
	a.Revalidate()
}

func (a *ActionCue) SetOp(op Op) {
	a.op = op
	a.changed()
	a.Revalidate()
}

func (a *ActionCue) EnterAction(now time.Duration) error {
	l := a.List()
	if l == nil {
		return ErrNotAttached
	}
	c := l.Lookup(a.target)
	if c == nil || c.UID() == a.UID() {
		return fmt.Errorf("action %s: %w: %q", a.ID(), ErrTargetNotFound, a.target)
	}
	switch a.op {
	case OpStart:
		c.Play(now)
	case OpStop:
		c.Stop()
	case OpPause:
		c.Pause(now)
	}
	return nil
}
