// Package show turns a configured cue list into live cues.
package show

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/satindergrewal/cuedeck/internal/config"
	"github.com/satindergrewal/cuedeck/internal/cue"
	"github.com/satindergrewal/cuedeck/internal/mixer"
)

// Definition converts a configured cue to a registry definition.
func Definition(c config.CueConfig) (cue.Definition, error) {
	trigger, err := cue.ParsePostTrigger(c.Trigger)
	if err != nil {
		return cue.Definition{}, fmt.Errorf("cue %s: %w", c.ID, err)
	}
	return cue.Definition{
		Kind:   c.Kind,
		ID:     c.ID,
		Name:   c.Name,
		Target: c.Target,
		Timing: cue.Timing{
			Pre:     c.Pre,
			Action:  c.Action,
			Post:    c.Post,
			Trigger: trigger,
		},
		OutputChannel: c.Output,
		Start:         c.Start,
		Gain:          c.Gain,
		Level:         c.Level,
		Curve:         c.Curve,
		StopTarget:    c.StopTarget,
		Op:            c.Op,
	}, nil
}

// Build creates the cues in order and prepares the ones that support it.
// A cue whose preparation fails is kept in its error state; a definition the
// registry rejects fails the whole build.
func Build(reg *cue.Registry, cfgs []config.CueConfig) ([]cue.Cue, error) {
	cues := make([]cue.Cue, 0, len(cfgs))
	for _, cc := range cfgs {
		def, err := Definition(cc)
		if err != nil {
			return nil, err
		}
		c, err := reg.New(def)
		if err != nil {
			return nil, err
		}
		if p, ok := c.(cue.Preparer); ok {
			if err := p.Prepare(); err != nil {
				log.Warn("cue not prepared", "cue", c.ID(), "err", err)
			}
		}
		cues = append(cues, c)
	}
	return cues, nil
}

// Load builds the show and appends it to list. Sources are opened before the
// list lock is taken.
func Load(list *mixer.CueList, reg *cue.Registry, cfgs []config.CueConfig) (int, error) {
	cues, err := Build(reg, cfgs)
	if err != nil {
		return 0, err
	}
	for i, c := range cues {
		if err := list.Add(c); err != nil {
			return i, err
		}
	}

	errored := 0
	for _, c := range cues {
		if c.State() == cue.StateError {
			errored++
		}
	}
	log.Info("show loaded", "cues", len(cues), "errors", errored)
	return len(cues), nil
}
