package app

import (
	"errors"
	"time"

	"github.com/gekko3d/airspace"
)

// Scheduler delivers at most one pending frame callback, like a display's
// animation-frame request.
type Scheduler interface {
	RequestFrame(fn func(now time.Time))
	Cancel()
}

type frameSlot struct {
	pending func(now time.Time)
}

func (s *frameSlot) RequestFrame(fn func(now time.Time)) { s.pending = fn }
func (s *frameSlot) Cancel()                             { s.pending = nil }
func (s *frameSlot) Pending() bool                       { return s.pending != nil }

func (s *frameSlot) fire(now time.Time) bool {
	fn := s.pending
	if fn == nil {
		return false
	}
	s.pending = nil
	fn(now)
	return true
}

// ManualScheduler runs frames only when Step is called.
type ManualScheduler struct {
	frameSlot
	Requests int
}

func (s *ManualScheduler) RequestFrame(fn func(now time.Time)) {
	s.Requests++
	s.frameSlot.RequestFrame(fn)
}

// Step runs the pending frame, if any.
func (s *ManualScheduler) Step(now time.Time) bool { return s.fire(now) }

// PollScheduler is driven by the window event loop, once per iteration after
// events are polled.
type PollScheduler struct {
	frameSlot
}

func (s *PollScheduler) Poll(now time.Time) bool { return s.fire(now) }

// Ticker advances the engine by one frame.
type Ticker interface {
	Tick(dt float32) error
}

// Loop keeps requesting frames from a Scheduler until stopped.
type Loop struct {
	ticker    Ticker
	scheduler Scheduler
	log       airspace.Logger

	running bool
	last    time.Time
	Frames  int
}

func NewLoop(t Ticker, s Scheduler, log airspace.Logger) *Loop {
	return &Loop{ticker: t, scheduler: s, log: airspace.OrNop(log)}
}

func (l *Loop) Running() bool { return l.running }

func (l *Loop) Start() {
	if l.running {
		return
	}
	l.running = true
	l.last = time.Time{}
	l.scheduler.RequestFrame(l.frame)
}

// Stop cancels the pending frame; no further Tick happens after it returns.
func (l *Loop) Stop() {
	if !l.running {
		return
	}
	l.running = false
	l.scheduler.Cancel()
}

func (l *Loop) frame(now time.Time) {
	if !l.running {
		return
	}
	var dt float32
	if !l.last.IsZero() {
		dt = float32(now.Sub(l.last).Seconds())
	}
	l.last = now

	if err := l.ticker.Tick(dt); err != nil {
		if errors.Is(err, ErrNotMounted) || errors.Is(err, ErrClosed) {
			l.log.Debugf("loop stopping: %v", err)
			l.running = false
			return
		}
		l.log.Errorf("frame %d: %v", l.Frames, err)
	}
	l.Frames++
	if l.running {
		l.scheduler.RequestFrame(l.frame)
	}
}
