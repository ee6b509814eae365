package cue

import (
	"fmt"
	"sort"
	"time"

	"github.com/satindergrewal/cuedeck/internal/audio"
)

// Definition is the kind-independent description of a cue, as read from a
// show file.
type Definition struct {
	Kind          string
	ID            string
	Name          string
	Target        string
	Timing        Timing
	OutputChannel int

	// audio
	Start time.Duration
	Gain  *float64

	// fade
	Level      float64
	Curve      string
	StopTarget bool

	// action
	Op string
}

// Factory builds a cue of one kind from a definition.
type Factory func(def Definition) (Implementation, error)

// Registry maps kind names to factories. The host owns it and passes it to
// whatever builds cues.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a kind. Names are unique.
func (r *Registry) Register(kind string, f Factory) error {
	if kind == "" || f == nil {
		return fmt.Errorf("register %q: empty kind or nil factory", kind)
	}
	if _, ok := r.factories[kind]; ok {
		return fmt.Errorf("register %q: kind already registered", kind)
	}
	r.factories[kind] = f
	return nil
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// New builds a cue from def and applies the settings common to all kinds.
func (r *Registry) New(def Definition) (Cue, error) {
	f, ok := r.factories[def.Kind]
	if !ok {
		return nil, fmt.Errorf("cue %s: %w: %q", def.ID, ErrUnknownKind, def.Kind)
	}
	c, err := f(def)
	if err != nil {
		return nil, fmt.Errorf("cue %s: %w", def.ID, err)
	}
	t := c.Base()
	t.SetTiming(def.Timing)
	t.SetOutputChannel(def.OutputChannel)
	t.Revalidate()
	return c, nil
}

// Builtins returns a registry with the audio, fade and action kinds. Audio
// cues open their targets through open.
func Builtins(open audio.Opener) *Registry {
	r := NewRegistry()
	r.Register(KindAudio, func(def Definition) (Implementation, error) {
		a := NewAudio(def.ID, def.Name, def.Target, open)
		a.SetStart(def.Start)
		if def.Gain != nil {
			a.SetGain(float32(*def.Gain))
		}
		return a, nil
	})
	r.Register(KindFade, func(def Definition) (Implementation, error) {
		curve, err := audio.ParseCurve(def.Curve)
		if err != nil {
			return nil, err
		}
		f := NewFade(def.ID, def.Name, def.Target, float32(def.Level), curve)
		f.SetStopTarget(def.StopTarget)
		return f, nil
	})
	r.Register(KindAction, func(def Definition) (Implementation, error) {
		op, err := ParseOp(def.Op)
		if err != nil {
			return nil, err
		}
		return NewAction(def.ID, def.Name, def.Target, op), nil
	})
	return r
}
