// Package control exposes the engine transport to OSC and HTTP clients.
package control

import (
	"github.com/satindergrewal/cuedeck/internal/cue"
	"github.com/satindergrewal/cuedeck/internal/mixer"
)

// Transport is what the control surfaces drive. *mixer.Engine implements it.
type Transport interface {
	Go() (cue.Cue, error)
	StopAll()
	PauseAll()
	ResumeAll()
	PlayCue(ref string) error
	StopCue(ref string) error
	PauseCue(ref string) error
	SetPlayhead(ref string) error
	Snapshot() mixer.Snapshot
}

var _ Transport = (*mixer.Engine)(nil)
