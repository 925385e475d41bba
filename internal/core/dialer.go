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

package core

import (
	"sync"
	"time"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/internal/aio"
	"nanomsg.org/go/spcore/transport"
)

// Dialer FSM events.
const (
	evDialRetry = aio.EvUser + iota // backoff timer expired
	evDialRedial
)

// dialer is the connecting flavor of endpoint.  One dialer maintains at
// most one pipe, redialing with exponential backoff between the
// configured bounds whenever the connection fails or drops.  The
// backoff timer lives on the socket's worker; only the actual
// transport Dial runs on a goroutine of its own, since it blocks.
type dialer struct {
	sync.Mutex
	td   transport.Dialer
	s    *socket
	addr string

	fsm   aio.Fsm
	timer *aio.Timer

	closed  bool
	active  bool
	dialing bool
	asynch  bool

	reconnTime    time.Duration
	reconnMinTime time.Duration
	reconnMaxTime time.Duration
}

func (d *dialer) Dial() error {
	d.Lock()
	if d.active {
		d.Unlock()
		return spcore.ErrAddrInUse
	}
	if d.closed {
		d.Unlock()
		return spcore.ErrClosed
	}
	d.active = true
	d.reconnTime = d.reconnMinTime
	asynch := d.asynch
	d.Unlock()

	d.s.Lock()
	d.s.active = true
	d.s.Unlock()

	d.fsm.Start()
	if asynch {
		d.fsm.Post(evDialRetry)
		return nil
	}
	if err := d.dial(true); err != nil {
		// The synchronous first attempt failed; let the caller
		// try again.
		d.Lock()
		d.active = false
		d.Unlock()
		return err
	}
	return nil
}

func (d *dialer) runHandler(src, typ int) {
	switch typ {
	case aio.EvStart:
	case evDialRetry:
		go d.dial(false)
	case evDialRedial:
		// Connection dropped; arm the backoff timer.
		d.Lock()
		rtime := d.reconnTime
		d.reconnTime *= 2
		if d.reconnMaxTime != 0 && d.reconnTime > d.reconnMaxTime {
			d.reconnTime = d.reconnMaxTime
		}
		d.Unlock()
		d.timer.Schedule(rtime)
	}
}

func (d *dialer) shutdownHandler(src, typ int) {
	switch typ {
	case aio.EvStop:
		d.timer.Cancel()
		d.fsm.StopChildren()
	}
	if d.fsm.ChildCount() == 0 {
		d.fsm.Stopped()
	}
}

// dial performs one connection attempt.  With first set, errors are
// returned to the caller and no redial is scheduled on failure.
func (d *dialer) dial(first bool) error {
	d.Lock()
	if d.closed || d.dialing {
		d.Unlock()
		return spcore.ErrClosed
	}
	d.dialing = true
	d.Unlock()

	tp, err := d.td.Dial()

	d.Lock()
	d.dialing = false
	closed := d.closed
	d.Unlock()

	if closed {
		if err == nil {
			tp.Close()
		}
		return spcore.ErrClosed
	}

	if err != nil {
		if !first {
			d.fsm.Post(evDialRedial)
		}
		return err
	}

	p := newPipe(tp, d.s, d, nil, &d.fsm)
	p.fsm.Start()
	return nil
}

// pipeConnected is called from the socket when the pipe attached; the
// backoff interval resets so the next failure retries promptly.
func (d *dialer) pipeConnected() {
	d.Lock()
	d.reconnTime = d.reconnMinTime
	d.Unlock()
}

// pipeClosed is called when our pipe disconnects; unless we are going
// away, a redial is scheduled.
func (d *dialer) pipeClosed() {
	d.Lock()
	closed := d.closed
	d.Unlock()
	if !closed {
		d.fsm.Post(evDialRedial)
	}
}

func (d *dialer) redialExpire() {
	d.fsm.Post(evDialRetry)
}

// stopDialing prevents any further connection attempts without tearing
// down the FSM; socket close uses it ahead of the linger drain.
func (d *dialer) stopDialing() {
	d.Lock()
	d.closed = true
	d.Unlock()
	d.timer.Cancel()
}

func (d *dialer) Close() error {
	d.Lock()
	if d.closed {
		d.Unlock()
		return spcore.ErrClosed
	}
	d.closed = true
	d.Unlock()
	d.timer.Cancel()
	d.fsm.Stop()
	return nil
}

func (d *dialer) Address() string {
	return d.addr
}

func (d *dialer) GetOption(n string) (interface{}, error) {
	switch n {
	case spcore.OptionReconnectTime:
		d.Lock()
		v := d.reconnMinTime
		d.Unlock()
		return v, nil
	case spcore.OptionMaxReconnectTime:
		d.Lock()
		v := d.reconnMaxTime
		d.Unlock()
		return v, nil
	case spcore.OptionDialAsynch:
		d.Lock()
		v := d.asynch
		d.Unlock()
		return v, nil
	}
	return d.td.GetOption(n)
}

func (d *dialer) SetOption(n string, v interface{}) error {
	switch n {
	case spcore.OptionReconnectTime:
		if v, ok := v.(time.Duration); ok {
			d.Lock()
			d.reconnMinTime = v
			d.Unlock()
			return nil
		}
		return spcore.ErrBadValue
	case spcore.OptionMaxReconnectTime:
		if v, ok := v.(time.Duration); ok {
			d.Lock()
			d.reconnMaxTime = v
			d.Unlock()
			return nil
		}
		return spcore.ErrBadValue
	case spcore.OptionDialAsynch:
		if v, ok := v.(bool); ok {
			d.Lock()
			d.asynch = v
			d.Unlock()
			return nil
		}
		return spcore.ErrBadValue
	}
	return d.td.SetOption(n, v)
}
