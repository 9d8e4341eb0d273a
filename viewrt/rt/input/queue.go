package input

import "sync"

// Queue buffers messages between frames. Producers may run on any goroutine;
// the frame loop drains.
type Queue struct {
	mu   sync.Mutex
	msgs []Message
}

func (q *Queue) Push(m Message) {
	q.mu.Lock()
	q.msgs = append(q.msgs, m)
	q.mu.Unlock()
}

// Drain appends all pending messages to dst in arrival order and empties the queue.
func (q *Queue) Drain(dst []Message) []Message {
	q.mu.Lock()
	dst = append(dst, q.msgs...)
	clear(q.msgs)
	q.msgs = q.msgs[:0]
	q.mu.Unlock()
	return dst
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}
