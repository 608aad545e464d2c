// Package executor implements the single-consumer serialized task queue
// that guarantees every mutating operation on a collection runs to
// completion before the next one starts.
//
// A single goroutine drains a channel of tasks one at a time; a task
// signals its own completion by calling the `done` function handed to
// it, which lets the loop move on to the next task. Because the loop
// only ever advances by receiving from a channel, the next task always
// begins on a fresh scheduling quantum - there is no way for it to run
// reentrantly inside the call stack of the task that preceded it.
package executor

import (
	"sync"
	"sync/atomic"
)

// Task is a unit of serialized work. Run must call done exactly once,
// with the operation's result error (nil on success), when it has
// finished. Calling done more than once is a programming error.
type Task struct {
	Run func(done func(error))
}

// Executor serializes Task execution through one consumer goroutine. It
// starts in the buffering state when persistence must be loaded first:
// pushed tasks accumulate instead of running until ProcessBuffer is
// called, except for the bootstrap load task itself, which is pushed
// with forceQueuing so it can run during buffering.
type Executor struct {
	mu        sync.Mutex
	buffering bool
	buffer    []Task

	queue   chan Task
	closed  chan struct{}
	closeMu sync.Once
}

// New creates an Executor. buffering selects the initial state: true for
// a collection backed by a datafile that still needs to be loaded, false
// for an in-memory-only collection which has nothing to wait for.
func New(buffering bool) *Executor {
	e := &Executor{
		buffering: buffering,
		queue:     make(chan Task, 64),
		closed:    make(chan struct{}),
	}
	go e.loop()
	return e
}

// Push enqueues t for serialized execution. While buffering and
// forceQueuing is false, t is appended to the buffer instead of running.
func (e *Executor) Push(t Task, forceQueuing bool) {
	e.mu.Lock()
	if e.buffering && !forceQueuing {
		e.buffer = append(e.buffer, t)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.queue <- t
}

// Submit is the common convenience call site: it enqueues fn for
// serialized execution and blocks the calling goroutine until fn has run
// and the task has completed, returning fn's error.
func (e *Executor) Submit(fn func() error) error {
	return e.submit(fn, false)
}

// SubmitForceQueuing is Submit for the bootstrap load task, which must
// run even while the executor is still buffering.
func (e *Executor) SubmitForceQueuing(fn func() error) error {
	return e.submit(fn, true)
}

func (e *Executor) submit(fn func() error, forceQueuing bool) error {
	result := make(chan error, 1)
	e.Push(Task{Run: func(done func(error)) {
		err := fn()
		result <- err
		done(err)
	}}, forceQueuing)
	return <-result
}

// ProcessBuffer transitions the executor out of buffering and schedules
// every buffered task, in the order it was pushed, onto the run queue.
// Calling it while not buffering is a no-op.
func (e *Executor) ProcessBuffer() {
	e.mu.Lock()
	if !e.buffering {
		e.mu.Unlock()
		return
	}
	buffered := e.buffer
	e.buffer = nil
	e.buffering = false
	e.mu.Unlock()

	for _, t := range buffered {
		e.queue <- t
	}
}

// Buffering reports whether the executor is still buffering tasks.
func (e *Executor) Buffering() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffering
}

func (e *Executor) loop() {
	for t := range e.queue {
		runTask(t)
	}
	close(e.closed)
}

// runTask runs t.Run and waits for its single completion call. A second
// call to done panics: it indicates a bug in the task, not a recoverable
// runtime condition.
func runTask(t Task) {
	completed := make(chan error, 1)
	var calls int32

	done := func(err error) {
		if atomic.AddInt32(&calls, 1) > 1 {
			panic(ErrDoubleCompletion{})
		}
		completed <- err
	}

	t.Run(done)
	<-completed
}

// Close stops accepting new tasks and waits for the consumer goroutine to
// drain and exit. Any task still buffered (never queued) is discarded.
func (e *Executor) Close() {
	e.closeMu.Do(func() {
		close(e.queue)
	})
	<-e.closed
}

// ErrDoubleCompletion is the panic value raised when a task's completion
// callback is invoked more than once.
type ErrDoubleCompletion struct{}

func (ErrDoubleCompletion) Error() string {
	return "executor: task completion callback invoked more than once"
}
