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

	"nanomsg.org/go/spcore/errors"
)

// Engine is the process wide context.  It owns the worker pool and the
// live socket count, and gates teardown: all live sockets must close
// before Term returns.
type Engine struct {
	pool *Pool

	mx      sync.Mutex
	cv      *sync.Cond
	sockets int
	term    bool
}

var (
	engOnce    sync.Once
	eng        *Engine
	engWorkers = 1
)

// SetWorkers configures the pool size.  It only has an effect before
// the engine is first used.
func SetWorkers(n int) {
	if n > 0 {
		engWorkers = n
	}
}

// Get returns the engine, initializing it lazily under a once guard.
func Get() *Engine {
	engOnce.Do(func() {
		eng = &Engine{pool: NewPool(engWorkers)}
		eng.cv = sync.NewCond(&eng.mx)
	})
	return eng
}

// Choose picks a worker from the pool, round-robin.
func (e *Engine) Choose() *Worker {
	return e.pool.Choose()
}

// OpenSocket accounts for a new live socket.  It fails once the engine
// is terminating.
func (e *Engine) OpenSocket() error {
	e.mx.Lock()
	defer e.mx.Unlock()
	if e.term {
		return errors.ErrTerminating
	}
	e.sockets++
	return nil
}

// CloseSocket drops the live socket count.
func (e *Engine) CloseSocket() {
	e.mx.Lock()
	e.sockets--
	if e.sockets <= 0 {
		e.cv.Broadcast()
	}
	e.mx.Unlock()
}

// Term refuses new sockets, waits for the live ones to close, and then
// stops the worker pool.  Mostly useful to flush the process cleanly at
// exit.
func (e *Engine) Term() {
	e.mx.Lock()
	if e.term {
		e.mx.Unlock()
		return
	}
	e.term = true
	for e.sockets > 0 {
		e.cv.Wait()
	}
	e.mx.Unlock()
	e.pool.Close()
}
