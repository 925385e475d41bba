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
	"sync/atomic"
)

// Efd is the cross thread wakeup primitive.  It presents a pollable
// handle which becomes readable as soon as Signal is called from any
// thread, and stays readable until Unsignal.  On systems with kernel
// pollers this would be an eventfd or a self pipe; here the handle is
// one of our own, so no descriptor is burned.
type Efd struct {
	h     Handle
	state int32
}

// NewEfd allocates an efd and registers its handle with the poller.
func NewEfd(p *Poller, owner func(ev Event)) *Efd {
	e := &Efd{}
	p.Add(&e.h, owner)
	p.SetIn(&e.h)
	return e
}

// Signal makes the handle readable.  Repeat signals between an Unsignal
// and the next Signal are absorbed on a lock free fast path.
func (e *Efd) Signal() {
	if atomic.CompareAndSwapInt32(&e.state, 0, 1) {
		e.h.MarkReadable(true)
	}
}

// Unsignal clears the handle.  Only the poll loop calls this.
func (e *Efd) Unsignal() {
	atomic.StoreInt32(&e.state, 0)
	e.h.MarkReadable(false)
}

// Handle returns the pollable handle for the efd.
func (e *Efd) Handle() *Handle {
	return &e.h
}
