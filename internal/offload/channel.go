package offload

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// job is a type-erased unit of work. Exactly one of run or abandon is called.
type job[H any] struct {
	run     func(H)
	abandon func()
}

// queue is the shared state behind a Sender/Receiver pair: an unbounded FIFO
// guarded by a mutex, with a one-token notify channel to wake a blocked Tick.
type queue[H any] struct {
	mu      sync.Mutex
	jobs    []job[H]
	senders int
	stopped bool
	notify  chan struct{}
}

func (q *queue[H]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *queue[H]) push(j job[H]) bool {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return false
	}
	q.jobs = append(q.jobs, j)
	q.mu.Unlock()
	q.signal()
	return true
}

// pop returns the oldest job. When none is pending, disconnected reports
// whether one can still arrive.
func (q *queue[H]) pop() (j job[H], ok bool, disconnected bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) > 0 {
		j = q.jobs[0]
		q.jobs[0] = job[H]{}
		q.jobs = q.jobs[1:]
		return j, true, false
	}
	return j, false, q.stopped || q.senders == 0
}

// NewChannel creates a connected Sender/Receiver pair.
func NewChannel[H any]() (*Sender[H], *Receiver[H]) {
	q := &queue[H]{senders: 1, notify: make(chan struct{}, 1)}
	return &Sender[H]{q: q}, &Receiver[H]{q: q}
}

// Sender is the producer side of a channel.
type Sender[H any] struct {
	q      *queue[H]
	closed atomic.Bool
}

// Clone returns a new producer handle on the same queue.
func (s *Sender[H]) Clone() *Sender[H] {
	s.q.mu.Lock()
	s.q.senders++
	s.q.mu.Unlock()
	return &Sender[H]{q: s.q}
}

// Close releases this handle. Closing twice is a no-op.
func (s *Sender[H]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.q.mu.Lock()
	s.q.senders--
	s.q.mu.Unlock()
	s.q.signal()
}

// Submit queues fn for execution on the host goroutine and returns the slot its
// result will land in. It never blocks.
//
// If the sender is closed or the consumer has stopped, the returned Future
// already holds ErrDisconnected.
func Submit[H, T any](s *Sender[H], fn func(H) T) *Future[T] {
	f := newFuture[T]()
	if s.closed.Load() {
		f.abandon()
		return f
	}
	j := job[H]{
		run: func(h H) {
			defer func() {
				if r := recover(); r != nil {
					var zero T
					f.resolve(zero, fmt.Errorf("%w: %v", ErrJobPanicked, r))
				}
			}()
			f.resolve(fn(h), nil)
		},
		abandon: f.abandon,
	}
	if !s.q.push(j) {
		f.abandon()
	}
	return f
}

// Run submits fn and waits for its result.
func Run[H, T any](s *Sender[H], fn func(H) T) (T, error) {
	return Submit(s, fn).Wait()
}

// Receiver is the consumer side of a channel. It belongs to the host
// goroutine.
type Receiver[H any] struct {
	q *queue[H]
}

// Tick blocks until one job is available and runs it against h. It returns
// ErrDisconnected once every Sender is closed and nothing is left to run.
func (r *Receiver[H]) Tick(h H) error {
	for {
		j, ok, disconnected := r.q.pop()
		if ok {
			j.run(h)
			return nil
		}
		if disconnected {
			return ErrDisconnected
		}
		<-r.q.notify
	}
}

// TryTick runs one pending job if there is one. It returns ErrEmpty when the
// queue is empty and senders remain, ErrDisconnected when none do.
func (r *Receiver[H]) TryTick(h H) error {
	j, ok, disconnected := r.q.pop()
	if ok {
		j.run(h)
		return nil
	}
	if disconnected {
		return ErrDisconnected
	}
	return ErrEmpty
}

// Drain runs every pending job, including ones submitted by jobs it runs, and
// returns how many ran.
func (r *Receiver[H]) Drain(h H) int {
	n := 0
	for r.TryTick(h) == nil {
		n++
	}
	return n
}

// Len returns the number of queued jobs.
func (r *Receiver[H]) Len() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return len(r.q.jobs)
}

// Close stops the consumer for good. Pending jobs are abandoned and their
// futures yield ErrDisconnected, as does every later Submit.
func (r *Receiver[H]) Close() {
	r.q.mu.Lock()
	if r.q.stopped {
		r.q.mu.Unlock()
		return
	}
	r.q.stopped = true
	pending := r.q.jobs
	r.q.jobs = nil
	r.q.mu.Unlock()

	for _, j := range pending {
		j.abandon()
	}
	r.q.signal()
}
