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

// Pool is a fixed set of workers.  FSMs are assigned a worker by
// round-robin at construction time and stay there.
type Pool struct {
	workers []*Worker
	next    uint32
}

// NewPool starts n workers.  Values below one are clamped to one.
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{workers: make([]*Worker, n)}
	for i := 0; i < n; i++ {
		p.workers[i] = NewWorker(i)
	}
	return p
}

// Choose returns the next worker in round-robin order.
func (p *Pool) Choose() *Worker {
	i := atomic.AddUint32(&p.next, 1)
	return p.workers[int(i)%len(p.workers)]
}

// Size returns the worker count.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Close stops every worker and waits for their threads.
func (p *Pool) Close() {
	for _, w := range p.workers {
		w.Close()
	}
}
