package mixer

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/satindergrewal/cuedeck/internal/cue"
)

// DefaultTickInterval is the real-time loop period.
const DefaultTickInterval = time.Millisecond

// Stats are engine diagnostics. They are updated atomically and can be read
// at any time without the list lock.
type Stats struct {
	Ticks        int64
	LastTick     time.Duration // cost of the most recent tick
	MaxTick      time.Duration
	Blocks       int64
	Underflows   int64
	DeviceErrors int64
}

// Engine runs the tick-and-drain loop for one CueList.
type Engine struct {
	list     *CueList
	interval time.Duration
	epoch    time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	ticks    atomic.Int64
	lastTick atomic.Int64
	maxTick  atomic.Int64
}

// NewEngine creates an engine for list. Its clock starts now.
func NewEngine(list *CueList, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Engine{
		list:     list,
		interval: interval,
		epoch:    time.Now(),
	}
}

func (e *Engine) List() *CueList { return e.list }

// Now is the engine clock: monotonic time since the engine was created.
func (e *Engine) Now() time.Duration {
	return time.Since(e.epoch)
}

// Start launches the loop on its own OS thread. It returns ErrRunning if the
// loop is already running.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done != nil {
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx, e.done)
	log.Info("engine started", "interval", e.interval, "rate", e.list.SampleRate(), "channels", e.list.Channels())
	return nil
}

// Stop ends the loop and waits for it to exit. After it returns no further
// ticks happen, and the device is detached with the ring cleared.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done == nil {
		return
	}
	e.cancel()
	<-e.done
	e.cancel, e.done = nil, nil
	e.list.DetachDevice()
	log.Info("engine stopped", "ticks", e.ticks.Load())
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(e.Now())
		}
	}
}

// Tick runs one pass at now and records its cost.
func (e *Engine) Tick(now time.Duration) {
	start := time.Now()
	e.list.Tick(now)
	cost := int64(time.Since(start))

	e.ticks.Add(1)
	e.lastTick.Store(cost)
	for {
		m := e.maxTick.Load()
		if cost <= m || e.maxTick.CompareAndSwap(m, cost) {
			break
		}
	}
}

func (e *Engine) Stats() Stats {
	return Stats{
		Ticks:        e.ticks.Load(),
		LastTick:     time.Duration(e.lastTick.Load()),
		MaxTick:      time.Duration(e.maxTick.Load()),
		Blocks:       e.list.blocks.Load(),
		Underflows:   e.list.underflows.Load(),
		DeviceErrors: e.list.devErrors.Load(),
	}
}

// Status is one row of a Snapshot.
type Status struct {
	UID     string
	ID      string
	Name    string
	Kind    string
	State   cue.State
	Timing  cue.Timing
	Times   cue.RunningTimes
	Standby bool
}

// Snapshot is a display copy of the list and engine.
type Snapshot struct {
	Now        time.Duration
	BufferTime time.Duration
	Cues       []Status
	Stats      Stats
}

// Snapshot copies the list state under the lock. Running cues report the
// timing of their current session. The work under the lock is
// bounded by the number of cues.
func (e *Engine) Snapshot() Snapshot {
	now := e.Now()
	l := e.list
	l.mu.Lock()
	rows := make([]Status, len(l.cues))
	for i, c := range l.cues {
		t := c.Base()
		timing := t.Timing()
		if s := c.State(); s.Playing() || s == cue.StatePaused {
			timing = t.LiveTiming()
		}
		rows[i] = Status{
			UID:     c.UID(),
			ID:      c.ID(),
			Name:    c.Name(),
			Kind:    c.KindName(),
			State:   c.State(),
			Timing:  timing,
			Times:   t.RunningTimes(now),
			Standby: i == l.playhead,
		}
	}
	bt := l.bufferTime()
	l.mu.Unlock()

	return Snapshot{Now: now, BufferTime: bt, Cues: rows, Stats: e.Stats()}
}

// Go plays the standby cue at the current engine time.
func (e *Engine) Go() (cue.Cue, error) {
	return e.list.Go(e.Now())
}

func (e *Engine) PauseAll()  { e.list.PauseAll(e.Now()) }
func (e *Engine) ResumeAll() { e.list.ResumeAll(e.Now()) }
func (e *Engine) StopAll()   { e.list.StopAll() }

// PlayCue plays the cue named by ref at the current engine time.
func (e *Engine) PlayCue(ref string) error {
	_, err := e.list.PlayCue(ref, e.Now())
	return err
}

func (e *Engine) StopCue(ref string) error  { return e.list.StopCue(ref) }
func (e *Engine) PauseCue(ref string) error { return e.list.PauseCue(ref, e.Now()) }

func (e *Engine) SetPlayhead(ref string) error { return e.list.SetPlayhead(ref) }
