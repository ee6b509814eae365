package cue

import "fmt"

// State is a cue's position in its lifecycle.
type State int

const (
	StateError State = iota
	StateStopped
	StatePaused
	StatePrepared
	StatePlayingPre
	StatePlayingAction
	StatePlayingPost
)

var stateNames = [...]string{
	StateError:         "error",
	StateStopped:       "stopped",
	StatePaused:        "paused",
	StatePrepared:      "prepared",
	StatePlayingPre:    "pre-wait",
	StatePlayingAction: "action",
	StatePlayingPost:   "post-wait",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Playing reports whether s is one of the three running segments.
func (s State) Playing() bool {
	return s == StatePlayingPre || s == StatePlayingAction || s == StatePlayingPost
}

// PostTrigger decides when the next cue in the list is started automatically.
type PostTrigger int

const (
	PostNone PostTrigger = iota
	PostImmediate
	PostAfterPre
	PostAfterAction
)

var triggerNames = [...]string{
	PostNone:        "none",
	PostImmediate:   "immediate",
	PostAfterPre:    "after-pre",
	PostAfterAction: "after-action",
}

func (p PostTrigger) String() string {
	if p < 0 || int(p) >= len(triggerNames) {
		return fmt.Sprintf("PostTrigger(%d)", int(p))
	}
	return triggerNames[p]
}

// ParsePostTrigger maps a config name to a PostTrigger. Empty means none.
func ParsePostTrigger(name string) (PostTrigger, error) {
	if name == "" {
		return PostNone, nil
	}
	for i, n := range triggerNames {
		if n == name {
			return PostTrigger(i), nil
		}
	}
	return PostNone, fmt.Errorf("unknown post trigger %q", name)
}
