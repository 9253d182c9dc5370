package watch

import "sync"

// Queue is an unbounded FIFO of events with one producer and one consumer.
// Push never blocks on a slow consumer; pending events are held in memory
// until drained.
type Queue struct {
	in   chan Event
	out  chan Event
	quit chan struct{}
	once sync.Once
}

// NewQueue starts a queue.
func NewQueue() *Queue {
	q := &Queue{
		in:   make(chan Event),
		out:  make(chan Event),
		quit: make(chan struct{}),
	}

	go q.run()

	return q
}

// Push appends e. It returns false once the queue is closed.
func (q *Queue) Push(e Event) bool {
	select {
	case q.in <- e:
		return true
	case <-q.quit:
		return false
	}
}

// Events returns the consumer side. The channel is closed after Close.
func (q *Queue) Events() <-chan Event {
	return q.out
}

// Close stops the queue and discards pending events. It is idempotent.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.quit) })
}

func (q *Queue) run() {
	defer close(q.out)

	var pending []Event

	for {
		var (
			out  chan Event
			next Event
		)

		if len(pending) > 0 {
			out = q.out
			next = pending[0]
		}

		select {
		case e := <-q.in:
			pending = append(pending, e)
		case out <- next:
			pending[0] = Event{}
			pending = pending[1:]
		case <-q.quit:
			return
		}
	}
}
