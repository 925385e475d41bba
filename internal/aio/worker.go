// Copyright 2018 The Mangos Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package aio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
)

// Worker owns one poller, one timer set, and one task queue, and drives
// them from a single thread.  Every FSM is pinned to exactly one worker
// for its whole life; all of its state mutation happens on that worker's
// thread.  Task and event handlers must not block.
type Worker struct {
	poller *Poller
	timers *TimerSet
	efd    *Efd

	taskmx sync.Mutex
	tasks  *queue.Queue

	index   int
	exiting bool
	done    chan struct{}
}

// NewWorker allocates a worker and starts its thread.
func NewWorker(index int) *Worker {
	w := &Worker{
		poller: NewPoller(),
		timers: NewTimerSet(),
		tasks:  queue.New(),
		index:  index,
		done:   make(chan struct{}),
	}
	w.efd = NewEfd(w.poller, func(Event) {
		w.efd.Unsignal()
		w.drain()
	})
	go w.loop()
	return w
}

// Index returns the worker's position in its pool.
func (w *Worker) Index() int {
	return w.index
}

// Poller returns the worker's poller, for handle registration.
func (w *Worker) Poller() *Poller {
	return w.poller
}

// Exec queues fn to run on the worker thread.  It may be called from
// any thread, including the worker's own.
func (w *Worker) Exec(fn func()) {
	w.taskmx.Lock()
	w.tasks.Add(fn)
	w.taskmx.Unlock()
	w.efd.Signal()
}

func (w *Worker) drain() {
	for {
		w.taskmx.Lock()
		if w.tasks.Length() == 0 {
			w.taskmx.Unlock()
			return
		}
		fn := w.tasks.Remove().(func())
		w.taskmx.Unlock()
		fn()
	}
}

func (w *Worker) loop() {
	defer close(w.done)
	for {
		w.poller.Wait(w.timers.Timeout())

		for {
			ev, ok := w.poller.NextEvent()
			if !ok {
				break
			}
			if ev.Handle.Owner != nil {
				ev.Handle.Owner(ev)
			}
		}

		for {
			tag, ok := w.timers.Event()
			if !ok {
				break
			}
			tag.(*Timer).fire()
		}

		if w.exiting {
			return
		}
	}
}

// Close asks the worker thread to exit after it finishes the work
// already queued, and waits for it.
func (w *Worker) Close() {
	w.Exec(func() {
		w.exiting = true
	})
	<-w.done
}

// Timer wraps one timer set entry pinned to a worker.  Schedule and
// Cancel may be called from any thread; the callback always runs on the
// worker thread.  A canceled timer never fires, even if cancellation
// races with expiry.
type Timer struct {
	w     *Worker
	fn    func()
	armed int32
}

// NewTimer allocates a timer whose callback runs on this worker.
func (w *Worker) NewTimer(fn func()) *Timer {
	return &Timer{w: w, fn: fn}
}

// Schedule arms the timer to fire after d.  Rescheduling a pending
// timer moves its deadline.
func (t *Timer) Schedule(d time.Duration) {
	atomic.StoreInt32(&t.armed, 1)
	t.w.Exec(func() {
		if atomic.LoadInt32(&t.armed) != 0 {
			t.w.timers.Add(t, d)
		}
	})
}

// Cancel disarms the timer.
func (t *Timer) Cancel() {
	atomic.StoreInt32(&t.armed, 0)
	t.w.Exec(func() {
		t.w.timers.Remove(t)
	})
}

func (t *Timer) fire() {
	if atomic.CompareAndSwapInt32(&t.armed, 1, 0) {
		t.fn()
	}
}
