package tasks

import (
	"sync"

	"github.com/DeveloperOl/lespas/metrics"
	"github.com/DeveloperOl/lespas/pool"
	"github.com/DeveloperOl/lespas/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	reasonSuperseded = "superseded"
	reasonReleased   = "released"
	reasonShutdown   = "shutdown"
)

// Supervisor keeps the slot to task and task to call bookkeeping. A new task
// for a slot cancels the previous one, along with its network call.
type Supervisor struct {
	queue *pool.Queue

	lock   *sync.Mutex
	slots  map[Slot]*Task
	calls  map[*Task]transport.Call
	closed bool
}

func NewSupervisor(queue *pool.Queue) *Supervisor {
	return &Supervisor{
		queue: queue,
		lock:  &sync.Mutex{},
		slots: make(map[Slot]*Task),
		calls: make(map[*Task]transport.Call),
	}
}

// Submit makes a new task current for slot and queues work for it. Any task
// previously current for the slot is cancelled first. After Close, the
// returned task is already cancelled.
func (s *Supervisor) Submit(slot Slot, work func(t *Task)) *Task {
	t := newTask(s, slot)

	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		s.cancel(t, reasonShutdown)
		return t
	}
	previous := s.slots[slot]
	s.slots[slot] = t
	s.lock.Unlock()

	if previous != nil {
		logrus.WithField("slot", string(slot)).Debugf("Task %s superseded by %s", previous.id, t.id)
		s.cancel(previous, reasonSuperseded)
	}
	metrics.TasksSubmitted.Inc()

	err := s.queue.Schedule(t.ctx, func() {
		s.run(t, work)
	})
	if err != nil {
		logrus.WithField("slot", string(slot)).Warn("Unable to queue task: ", err)
		s.cancel(t, reasonShutdown)
	}
	return t
}

func (s *Supervisor) run(t *Task, work func(t *Task)) {
	defer s.complete(t)
	if t.Cancelled() {
		return
	}
	work(t)
}

// complete drops the bookkeeping of a task that ran to the end. The slot
// entry is only removed while it still points at this task, and kept for a
// task still waiting on a deferred delivery.
func (s *Supervisor) complete(t *Task) {
	s.lock.Lock()
	delete(s.calls, t)
	awaiting := t.deferred.Load() && t.state.Load() == stateRunning
	if !awaiting && s.slots[t.slot] == t {
		delete(s.slots, t.slot)
	}
	s.lock.Unlock()

	if !awaiting {
		t.state.CompareAndSwap(stateRunning, stateFinished)
	}
	t.cancel()
	t.finish()
}

func (s *Supervisor) forget(t *Task) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.calls, t)
	if s.slots[t.slot] == t {
		delete(s.slots, t.slot)
	}
}

func (s *Supervisor) cancel(t *Task, reason string) {
	wasRunning := t.state.CompareAndSwap(stateRunning, stateCancelled)

	s.lock.Lock()
	if call, ok := s.calls[t]; ok {
		call.Cancel()
		delete(s.calls, t)
	}
	if s.slots[t.slot] == t {
		delete(s.slots, t.slot)
	}
	s.lock.Unlock()

	t.cancel()
	t.finish()
	if wasRunning {
		metrics.TasksCancelled.With(prometheus.Labels{"reason": reason}).Inc()
	}
}

func (s *Supervisor) registerCall(t *Task, call transport.Call) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if t.Cancelled() || t.ctx.Err() != nil {
		call.Cancel()
		return
	}
	s.calls[t] = call
}

// Release cancels the task current for slot, if any.
func (s *Supervisor) Release(slot Slot) {
	if t := s.Active(slot); t != nil {
		s.cancel(t, reasonReleased)
	}
}

// CancelAll cancels every current task. The supervisor stays usable.
func (s *Supervisor) CancelAll() {
	s.lock.Lock()
	all := make([]*Task, 0, len(s.slots))
	for _, t := range s.slots {
		all = append(all, t)
	}
	s.lock.Unlock()

	for _, t := range all {
		s.cancel(t, reasonShutdown)
	}
}

// Close cancels every task and refuses new ones.
func (s *Supervisor) Close() {
	s.lock.Lock()
	s.closed = true
	s.lock.Unlock()
	s.CancelAll()
}

func (s *Supervisor) Active(slot Slot) *Task {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.slots[slot]
}

func (s *Supervisor) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.slots)
}
