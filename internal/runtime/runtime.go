package runtime

import (
	"context"
	"sync"
	"time"
)

// DefaultTick is the timer wheel's resolution: fine enough for input
// repeat-rate and idle timers, coarse enough that a compositor-scale
// timer count doesn't burn CPU ticking.
const DefaultTick = time.Millisecond

// Runtime is the single-threaded cooperative scheduler described in
// §4.9: a FIFO ready queue plus a hierarchical timer wheel, with all
// blocking I/O issued through an IOBackend so a suspension point is
// never a direct blocking syscall, only a return to this loop.
type Runtime struct {
	mu    sync.Mutex
	ready []func()

	wheel *Wheel
	io    IOBackend

	idleHooks []func()

	waiters map[uint64]func(Completion)
	nextTag uint64
}

// New creates a production Runtime with the build-tag-selected
// IOBackend (giouring when built with -tags giouring, the pure-Go
// fallback otherwise) and queue depth entries.
func New(entries uint32) (*Runtime, error) {
	io, err := NewIOBackend(entries)
	if err != nil {
		return nil, err
	}
	return NewWithBackend(io), nil
}

// NewWithBackend creates a Runtime over an already-constructed
// IOBackend, letting tests inject a fake one.
func NewWithBackend(io IOBackend) *Runtime {
	return &Runtime{
		wheel:   NewWheel(DefaultTick),
		io:      io,
		waiters: make(map[uint64]func(Completion)),
	}
}

// Spawn schedules fn to run on the runtime's next ready-queue drain.
// Safe to call from within a task (re-entrant scheduling) or from
// another goroutine handing work back to the single dispatch
// goroutine, per §5's "exactly one goroutine ever mutates compositor
// state" rule.
func (r *Runtime) Spawn(fn func()) {
	r.mu.Lock()
	r.ready = append(r.ready, fn)
	r.mu.Unlock()
}

// AfterFunc arms a one-shot timer, returning a cancel function.
func (r *Runtime) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	id := r.wheel.Add(d, false, func() { r.Spawn(fn) })
	return func() { r.wheel.Cancel(id) }
}

// Every arms a periodic timer firing every d until canceled.
func (r *Runtime) Every(d time.Duration, fn func()) (cancel func()) {
	id := r.wheel.Add(d, true, func() { r.Spawn(fn) })
	return func() { r.wheel.Cancel(id) }
}

// OnIdle registers a hook invoked whenever the ready queue drains
// completely, used to batch per-output frame scheduling rather than
// ticking every output on every loop iteration.
func (r *Runtime) OnIdle(fn func()) {
	r.mu.Lock()
	r.idleHooks = append(r.idleHooks, fn)
	r.mu.Unlock()
}

// SubmitIO issues an io operation, invoking onComplete (on this
// runtime's dispatch goroutine, via Spawn) once its completion
// arrives. This is the task-suspension point from §4.9: the caller
// returns immediately, resuming only when onComplete runs.
func (r *Runtime) SubmitIO(kind OpKind, fd int, buf []byte, offset uint64, onComplete func(Completion)) error {
	r.mu.Lock()
	r.nextTag++
	tag := r.nextTag
	r.waiters[tag] = onComplete
	r.mu.Unlock()

	if err := r.io.Submit(kind, fd, buf, offset, tag); err != nil {
		r.mu.Lock()
		delete(r.waiters, tag)
		r.mu.Unlock()
		return err
	}
	return nil
}

// Run drains the ready queue and timer wheel until ctx is canceled.
// Cancellation is cooperative per §4.9: the loop checks ctx.Err() at
// each iteration boundary rather than being interrupted mid-task.
func (r *Runtime) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.wheel.tick)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if ran := r.drainReady(); ran == 0 {
			r.fireIdleHooks()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, fn := range r.wheel.Advance() {
				fn()
			}
		default:
			if _, err := r.io.Flush(); err != nil {
				return err
			}
			completions, err := r.io.Wait(0)
			if err != nil {
				return err
			}
			r.dispatchCompletions(completions)
		}
	}
}

func (r *Runtime) drainReady() int {
	r.mu.Lock()
	batch := r.ready
	r.ready = nil
	r.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

func (r *Runtime) fireIdleHooks() {
	r.mu.Lock()
	hooks := append([]func(){}, r.idleHooks...)
	r.mu.Unlock()
	for _, h := range hooks {
		h()
	}
}

func (r *Runtime) dispatchCompletions(completions []Completion) {
	for _, c := range completions {
		r.mu.Lock()
		onComplete, ok := r.waiters[c.UserData]
		delete(r.waiters, c.UserData)
		r.mu.Unlock()
		if ok {
			r.Spawn(func() { onComplete(c) })
		}
	}
}

// Close releases the runtime's io backend.
func (r *Runtime) Close() error {
	return r.io.Close()
}
