package tasks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/DeveloperOl/lespas/transport"
	"github.com/google/uuid"
)

// Slot identifies a display target. At most one task is current for a slot.
type Slot string

const (
	stateRunning int32 = iota
	stateDelivered
	stateFinished
	stateCancelled
)

// Task is one unit of fetch work bound to a slot.
type Task struct {
	id       string
	slot     Slot
	ctx      context.Context
	cancel   context.CancelFunc
	state    atomic.Int32
	deferred atomic.Bool
	done     chan struct{}
	once     sync.Once
	sup      *Supervisor
}

func newTask(sup *Supervisor, slot Slot) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	return &Task{
		id:     uuid.NewString(),
		slot:   slot,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		sup:    sup,
	}
}

func (t *Task) ID() string {
	return t.id
}

func (t *Task) Slot() Slot {
	return t.slot
}

// Context is cancelled when the task is superseded, released or shut down.
func (t *Task) Context() context.Context {
	return t.ctx
}

func (t *Task) Cancelled() bool {
	return t.state.Load() == stateCancelled
}

// Done is closed once the task has finished or been cancelled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// RegisterCall makes call the task's current network call, replacing any
// previous one. A call registered on an already cancelled task is cancelled
// straight away.
func (t *Task) RegisterCall(call transport.Call) {
	t.sup.registerCall(t, call)
}

// DeferDelivery keeps the task current for its slot after its work returns,
// until Deliver runs or the task is cancelled. Used when the result is handed
// to another goroutine for delivery.
func (t *Task) DeferDelivery() {
	t.deferred.Store(true)
}

// Deliver runs fn unless the task was cancelled, and reports whether it ran.
// A task delivers at most once.
func (t *Task) Deliver(fn func()) bool {
	if !t.state.CompareAndSwap(stateRunning, stateDelivered) {
		return false
	}
	if t.deferred.Load() {
		t.sup.forget(t)
	}
	fn()
	return true
}

func (t *Task) finish() {
	t.once.Do(func() {
		close(t.done)
	})
}
