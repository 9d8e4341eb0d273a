package app

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Listener receives the engine's outbound events. Calls happen on the frame
// goroutine and must not block.
type Listener interface {
	// EntitySelected reports a selection click; "" means nothing was hit.
	EntitySelected(id string)
	// PositionChosen reports a deployment placement.
	PositionChosen(pos mgl32.Vec3)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are ignored.
type ListenerFuncs struct {
	OnEntitySelected func(id string)
	OnPositionChosen func(pos mgl32.Vec3)
}

func (f ListenerFuncs) EntitySelected(id string) {
	if f.OnEntitySelected != nil {
		f.OnEntitySelected(id)
	}
}

func (f ListenerFuncs) PositionChosen(pos mgl32.Vec3) {
	if f.OnPositionChosen != nil {
		f.OnPositionChosen(pos)
	}
}

type EventKind uint8

const (
	EventEntitySelected EventKind = iota
	EventPositionChosen
)

type Event struct {
	Kind     EventKind
	EntityID string
	Position mgl32.Vec3
}

// ChanListener forwards events to a buffered channel. When the buffer is full
// the oldest queued event is discarded, so the newest selection or placement
// always arrives and the frame never stalls.
type ChanListener struct {
	C       chan Event
	Dropped int
}

func NewChanListener(buffer int) *ChanListener {
	return &ChanListener{C: make(chan Event, max(buffer, 1))}
}

func (l *ChanListener) EntitySelected(id string) {
	l.send(Event{Kind: EventEntitySelected, EntityID: id})
}

func (l *ChanListener) PositionChosen(pos mgl32.Vec3) {
	l.send(Event{Kind: EventPositionChosen, Position: pos})
}

func (l *ChanListener) send(ev Event) {
	for {
		select {
		case l.C <- ev:
			return
		default:
		}
		select {
		case <-l.C:
			l.Dropped++
		default:
		}
	}
}
