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
)

// FSM event types.  User defined events start at EvUser.
const (
	EvStart = iota + 1
	EvStop
	EvStopped
	EvUser
)

// Event source ids.  SrcAction marks a synchronous self event; SrcFsm
// marks a framework generated event.  User source ids start at SrcUser.
const (
	SrcAction = -1
	SrcFsm    = -2
	SrcUser   = 1
)

// Handler processes one FSM event, identified by the source id and the
// event type.  Handlers run on the FSM's worker thread and must not
// block.
type Handler func(src int, typ int)

// Fsm is an event driven state machine.  FSMs form an ownership tree:
// a parent stops its children with EvStop, each child raises EvStopped
// to the parent when it reaches idle, and the parent only becomes idle
// after every child has.  This is the sole mechanism used to guarantee
// that no asynchronous work continues to reference a structure that is
// being torn down.
type Fsm struct {
	w        *Worker
	parent   *Fsm
	srcID    int
	fn       Handler
	shutdown Handler

	// idle, stopping and gone are only touched on the worker thread.
	idle     bool
	stopping bool
	gone     bool

	childmx  sync.Mutex
	children map[*Fsm]struct{}
}

// Init registers the FSM.  The live handler processes events until Stop
// switches delivery to the shutdown handler.  A non-nil parent pins the
// FSM to the parent's worker and enrolls it as a child; a root FSM is
// pinned to the supplied worker.  The FSM starts idle.
func (f *Fsm) Init(fn, shutdown Handler, parent *Fsm, srcID int, w *Worker) {
	f.fn = fn
	f.shutdown = shutdown
	f.parent = parent
	f.srcID = srcID
	f.idle = true
	f.children = make(map[*Fsm]struct{})
	if parent != nil {
		f.w = parent.w
		parent.childmx.Lock()
		parent.children[f] = struct{}{}
		parent.childmx.Unlock()
	} else {
		f.w = w
	}
}

// Worker returns the worker the FSM is pinned to.
func (f *Fsm) Worker() *Worker {
	return f.w
}

// dispatch runs on the worker thread.
func (f *Fsm) dispatch(src, typ int) {
	if f.idle && typ != EvStart {
		// Events to a stopped FSM are silently dropped.
		return
	}
	if typ == EvStart {
		f.idle = false
	}
	if f.stopping {
		f.shutdown(src, typ)
	} else {
		f.fn(src, typ)
	}
}

// post queues an event for the FSM on its worker.  Per target ordering
// is FIFO.
func (f *Fsm) post(src, typ int) {
	f.w.Exec(func() {
		f.dispatch(src, typ)
	})
}

// Start emits EvStart to the FSM, transitioning it out of idle.
func (f *Fsm) Start() {
	f.post(SrcFsm, EvStart)
}

// Stop switches the FSM to its shutdown handler and delivers EvStop.
// Double stop is idempotent.  Stopping an FSM that never left idle
// just reports it stopped to the parent.
func (f *Fsm) Stop() {
	f.w.Exec(func() {
		if f.stopping {
			return
		}
		if f.idle {
			f.Stopped()
			return
		}
		f.stopping = true
		f.shutdown(SrcFsm, EvStop)
	})
}

// Raise queues an event to the parent, tagged with this FSM's source id.
func (f *Fsm) Raise(typ int) {
	if p := f.parent; p != nil {
		p.post(f.srcID, typ)
	}
}

// RaiseTo queues an event to an arbitrary peer FSM.
func (f *Fsm) RaiseTo(target *Fsm, src, typ int) {
	target.post(src, typ)
}

// Post queues an asynchronous self event.  Unlike Action it is safe
// from any thread.
func (f *Fsm) Post(typ int) {
	f.post(SrcFsm, typ)
}

// Action delivers a synchronous self event.  It encodes a pure state
// transition and must only be called from the FSM's worker thread.
func (f *Fsm) Action(typ int) {
	f.dispatch(SrcAction, typ)
}

// StopChildren sends EvStop to every child.
func (f *Fsm) StopChildren() {
	f.childmx.Lock()
	kids := make([]*Fsm, 0, len(f.children))
	for c := range f.children {
		kids = append(kids, c)
	}
	f.childmx.Unlock()
	for _, c := range kids {
		c.Stop()
	}
}

// ChildCount returns the number of children not yet stopped.
func (f *Fsm) ChildCount() int {
	f.childmx.Lock()
	n := len(f.children)
	f.childmx.Unlock()
	return n
}

// Stopped marks the FSM idle and raises EvStopped to the parent.  The
// shutdown handler calls this once its own work is done and every child
// has stopped.  Must be called on the worker thread.
func (f *Fsm) Stopped() {
	if f.gone {
		return
	}
	f.gone = true
	f.idle = true
	f.stopping = false
	if p := f.parent; p != nil {
		p.childmx.Lock()
		delete(p.children, f)
		p.childmx.Unlock()
		p.post(f.srcID, EvStopped)
	}
}
