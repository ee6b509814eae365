// Package mixer owns the cue list, the shared mix ring and the real-time loop
// that ticks cues and drains mixed audio to a device.
package mixer

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/satindergrewal/cuedeck/internal/audio"
	"github.com/satindergrewal/cuedeck/internal/cue"
)

var (
	ErrNotFound     = errors.New("cue not found")
	ErrAttached     = errors.New("cue already belongs to a list")
	ErrEndOfList    = errors.New("playhead is past the last cue")
	ErrDeviceFormat = errors.New("device format does not match the mix")
	ErrRunning      = errors.New("engine already running")
)

// Options sizes a CueList. Zero fields take defaults.
type Options struct {
	SampleRate   int
	Channels     int
	BlockFrames  int // frames flushed to the device per write
	BufferFrames int // mix ring length in frames
	LeadBlocks   int // blocks kept queued ahead of the clock
	EventBuffer  int
}

func (o Options) withDefaults() Options {
	if o.SampleRate <= 0 {
		o.SampleRate = audio.SampleRate
	}
	if o.Channels <= 0 {
		o.Channels = audio.Channels
	}
	if o.BlockFrames <= 0 {
		o.BlockFrames = audio.BlockFrames
	}
	if o.LeadBlocks <= 0 {
		o.LeadBlocks = 3
	}
	if o.BufferFrames <= 0 {
		o.BufferFrames = (o.LeadBlocks + 1) * o.BlockFrames
	}
	if o.BufferFrames < o.BlockFrames {
		o.BufferFrames = o.BlockFrames
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 256
	}
	return o
}

// EventKind says what an Event reports.
type EventKind int

const (
	EventChanged EventKind = iota
	EventState
	EventAdded
	EventRemoved
)

// Event is a change notification for displays and persistence.
type Event struct {
	Kind     EventKind
	UID      string
	ID       string
	From, To cue.State
}

// CueList is the ordered set of cues together with the mix ring they play
// into. One mutex guards both; the engine holds it for one tick at a time.
type CueList struct {
	mu sync.Mutex

	cues     []cue.Cue
	uids     map[string]struct{}
	playhead int
	view     listView

	rate       int
	channels   int
	block      int
	lead       int
	ringFrames int

	buf     []float32 // interleaved, ringFrames*channels
	idx     int       // next frame to flush
	started bool
	origin  time.Duration
	flushed int64 // frames flushed since origin

	device     audio.Device
	out        []byte
	scratch    []float32
	underflow  bool
	deviceFail bool

	events chan Event

	blocks     atomic.Int64
	underflows atomic.Int64
	devErrors  atomic.Int64
}

// NewCueList creates an empty list with its mix ring.
func NewCueList(opts Options) *CueList {
	o := opts.withDefaults()
	l := &CueList{
		uids:       make(map[string]struct{}),
		rate:       o.SampleRate,
		channels:   o.Channels,
		block:      o.BlockFrames,
		lead:       o.LeadBlocks,
		ringFrames: o.BufferFrames,
		buf:        make([]float32, o.BufferFrames*o.Channels),
		out:        make([]byte, o.BlockFrames*o.Channels*4),
		events:     make(chan Event, o.EventBuffer),
	}
	l.view = listView{l}
	return l
}

func (l *CueList) SampleRate() int  { return l.rate }
func (l *CueList) Channels() int    { return l.channels }
func (l *CueList) BlockFrames() int { return l.block }

// Events delivers change notifications. Events are dropped when nobody
// keeps up.
func (l *CueList) Events() <-chan Event {
	return l.events
}

func (l *CueList) emit(e Event) {
	select {
	case l.events <- e:
	default:
	}
}

// Add appends c to the list. A cue that needs preparing is prepared first.
func (l *CueList) Add(c cue.Cue) error {
	prepareDetached(c)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.insert(len(l.cues), c)
}

// Insert places c at index, clamped to the list bounds.
func (l *CueList) Insert(index int, c cue.Cue) error {
	prepareDetached(c)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.insert(index, c)
}

func (l *CueList) insert(index int, c cue.Cue) error {
	t := c.Base()
	if t.List() != nil {
		return fmt.Errorf("add %s: %w", c.ID(), ErrAttached)
	}
	for {
		if _, taken := l.uids[c.UID()]; !taken {
			break
		}
		t.SetUID(uuid.NewString())
	}
	if c.ID() != "" {
		for _, other := range l.cues {
			if other.ID() == c.ID() {
				log.Warn("duplicate cue id", "cue", c.ID())
				break
			}
		}
	}
	index = max(0, min(index, len(l.cues)))
	if index < l.playhead {
		l.playhead++
	}
	l.cues = append(l.cues, nil)
	copy(l.cues[index+1:], l.cues[index:])
	l.cues[index] = c
	l.uids[c.UID()] = struct{}{}
	t.Attach(l.view)
	l.emit(Event{Kind: EventAdded, UID: c.UID(), ID: c.ID(), To: c.State()})
	return nil
}

// Remove stops the cue named by ref, takes it out of the list and releases
// its uid. A cue holding resources is closed after the lock is released.
func (l *CueList) Remove(ref string) (cue.Cue, error) {
	l.mu.Lock()
	i := l.index(ref)
	if i < 0 {
		l.mu.Unlock()
		return nil, fmt.Errorf("remove %s: %w", ref, ErrNotFound)
	}
	c := l.cues[i]
	c.Stop()
	c.Base().Detach()
	l.cues = append(l.cues[:i], l.cues[i+1:]...)
	delete(l.uids, c.UID())
	if i < l.playhead {
		l.playhead--
	}
	l.emit(Event{Kind: EventRemoved, UID: c.UID(), ID: c.ID(), From: c.State()})
	l.mu.Unlock()

	if cl, ok := c.(io.Closer); ok {
		if err := cl.Close(); err != nil {
			log.Warn("close removed cue", "cue", c.ID(), "err", err)
		}
	}
	return c, nil
}

// Move puts the cue named by ref at index.
func (l *CueList) Move(ref string, index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(ref)
	if i < 0 {
		return fmt.Errorf("move %s: %w", ref, ErrNotFound)
	}
	index = max(0, min(index, len(l.cues)-1))
	var standby cue.Cue
	if l.playhead < len(l.cues) {
		standby = l.cues[l.playhead]
	}
	c := l.cues[i]
	l.cues = append(l.cues[:i], l.cues[i+1:]...)
	l.cues = append(l.cues, nil)
	copy(l.cues[index+1:], l.cues[index:])
	l.cues[index] = c
	if standby != nil {
		l.playhead = l.index(standby.UID())
	}
	l.emit(Event{Kind: EventChanged, UID: c.UID(), ID: c.ID(), To: c.State()})
	return nil
}

// Lookup finds a cue by uid or, failing that, by id.
func (l *CueList) Lookup(ref string) cue.Cue {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.index(ref); i >= 0 {
		return l.cues[i]
	}
	return nil
}

// Cues returns the cues in order.
func (l *CueList) Cues() []cue.Cue {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]cue.Cue(nil), l.cues...)
}

func (l *CueList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cues)
}

func (l *CueList) index(ref string) int {
	for i, c := range l.cues {
		if c.UID() == ref {
			return i
		}
	}
	for i, c := range l.cues {
		if c.ID() == ref {
			return i
		}
	}
	return -1
}

func prepareDetached(c cue.Cue) {
	p, ok := c.(cue.Preparer)
	if !ok || c.Base().List() != nil || !p.NeedsPrepare() {
		return
	}
	if err := p.Prepare(); err != nil {
		log.Warn("cue not prepared", "cue", c.ID(), "err", err)
	}
}

// PrepareAll prepares every cue that lost its resources, e.g. after its
// target changed. File I/O runs without the lock; only the results are
// installed under it.
func (l *CueList) PrepareAll() {
	l.mu.Lock()
	var jobs []cue.Job
	for _, c := range l.cues {
		if p, ok := c.(cue.Preparer); ok && p.NeedsPrepare() {
			jobs = append(jobs, p.PrepareJob())
		}
	}
	l.mu.Unlock()
	if len(jobs) == 0 {
		return
	}

	for _, j := range jobs {
		j.Run()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, j := range jobs {
		if err := j.Commit(); err != nil {
			log.Warn("cue not prepared", "err", err)
		}
	}
}

// Go plays the standby cue and moves the playhead past it. Cues in error are
// skipped. Unprepared cues are prepared before the lock is taken.
func (l *CueList) Go(now time.Duration) (cue.Cue, error) {
	l.PrepareAll()
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.playhead < len(l.cues) {
		c := l.cues[l.playhead]
		l.playhead++
		if c.State() == cue.StateError {
			log.Warn("skipping cue in error", "cue", c.ID())
			continue
		}
		if !c.Play(now) {
			log.Info("go: cue already running", "cue", c.ID(), "state", c.State())
		}
		return c, nil
	}
	return nil, ErrEndOfList
}

// Standby returns the cue the next Go will play, or nil.
func (l *CueList) Standby() cue.Cue {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.playhead < len(l.cues) {
		return l.cues[l.playhead]
	}
	return nil
}

// SetPlayhead makes the cue named by ref the standby cue.
func (l *CueList) SetPlayhead(ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(ref)
	if i < 0 {
		return fmt.Errorf("playhead %s: %w", ref, ErrNotFound)
	}
	l.playhead = i
	return nil
}

// PlayCue plays one cue without touching the playhead. Unprepared cues are
// prepared before the lock is taken.
func (l *CueList) PlayCue(ref string, now time.Duration) (bool, error) {
	l.PrepareAll()
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(ref)
	if i < 0 {
		return false, fmt.Errorf("play %s: %w", ref, ErrNotFound)
	}
	return l.cues[i].Play(now), nil
}

func (l *CueList) StopCue(ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(ref)
	if i < 0 {
		return fmt.Errorf("stop %s: %w", ref, ErrNotFound)
	}
	l.cues[i].Stop()
	return nil
}

func (l *CueList) PauseCue(ref string, now time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(ref)
	if i < 0 {
		return fmt.Errorf("pause %s: %w", ref, ErrNotFound)
	}
	l.cues[i].Pause(now)
	return nil
}

// StopAll stops every running or paused cue.
func (l *CueList) StopAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.cues {
		if s := c.State(); s.Playing() || s == cue.StatePaused {
			c.Stop()
		}
	}
}

func (l *CueList) PauseAll(now time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.cues {
		c.Pause(now)
	}
}

// ResumeAll plays every paused cue.
func (l *CueList) ResumeAll(now time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.cues {
		if c.State() == cue.StatePaused {
			c.Play(now)
		}
	}
}

// Tick pulses every playing cue and drains due blocks to the device.
func (l *CueList) Tick(now time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tickAll(now)
	l.drain(now)
}

// TickAll pulses every playing cue without draining audio.
func (l *CueList) TickAll(now time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tickAll(now)
}

func (l *CueList) tickAll(now time.Duration) {
	for _, c := range l.cues {
		if c.State().Playing() {
			c.Pulse(now)
		}
	}
}

// listView is the cue.List handed to cues. Cues only call it while the
// list's lock is held, so it never locks.
type listView struct {
	l *CueList
}

func (v listView) CueChanged(c cue.Cue) {
	v.l.emit(Event{Kind: EventChanged, UID: c.UID(), ID: c.ID(), To: c.State()})
}

func (v listView) CueStateChanged(c cue.Cue, from, to cue.State) {
	v.l.emit(Event{Kind: EventState, UID: c.UID(), ID: c.ID(), From: from, To: to})
}

func (v listView) Next(c cue.Cue) cue.Cue {
	for i, x := range v.l.cues {
		if x.UID() == c.UID() {
			if i+1 < len(v.l.cues) {
				return v.l.cues[i+1]
			}
			return nil
		}
	}
	return nil
}

func (v listView) Lookup(ref string) cue.Cue {
	if i := v.l.index(ref); i >= 0 {
		return v.l.cues[i]
	}
	return nil
}

func (v listView) SampleRate() int { return v.l.rate }
func (v listView) Channels() int   { return v.l.channels }
