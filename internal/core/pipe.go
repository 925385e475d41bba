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
	"math/rand"
	"sync"
	"time"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/internal/aio"
	"nanomsg.org/go/spcore/transport"
)

// The pipes global state is just an ID allocator; it manages the
// list of which IDs are in use.  Nothing looks things up this way,
// so this doesn't keep references to other state.
var pipes struct {
	sync.Mutex
	IDs    map[uint32]struct{}
	nextID uint32
}

func init() {
	pipes.IDs = make(map[uint32]struct{})
	pipes.nextID = uint32(rand.NewSource(time.Now().UnixNano()).Int63())
}

// Pipe FSM events.
const (
	evSendDrain = aio.EvUser + iota // write queue went empty
)

// pipe wraps a transport pipe with the core's bookkeeping: the bounded
// in/out message rings, the per-direction readiness state the protocol
// sees, and the FSM that ties its life to the owning endpoint.  The
// bridge goroutines below are the only places that may block on the
// transport; everything the protocol sees happens on the socket's
// worker thread.
type pipe struct {
	sync.Mutex
	id uint32
	tp transport.Pipe
	s  *socket
	d  *dialer
	l  *listener

	fsm aio.Fsm

	rq    []*spcore.Message
	wq    []*spcore.Message
	rqCap int
	wqCap int
	maxRx int
	sprio int
	rprio int

	rnotify bool // protocol has been told the pipe is readable
	wnotify bool // protocol has been told the pipe is writable
	added   bool // delivered to the protocol via AddPipe
	removed bool // torn down via RemovePipe
	closed  bool
	sending bool // a message is in flight inside the transport
	reof    bool // transport hit EOF; drain rq, then close

	rcv *sync.Cond // receiver bridge waits here for ring space
	wcv *sync.Cond // sender bridge waits here for work

	priv interface{}
}

func newPipe(tp transport.Pipe, s *socket, d *dialer, l *listener, parent *aio.Fsm) *pipe {
	p := &pipe{
		tp:    tp,
		s:     s,
		d:     d,
		l:     l,
		rqCap: s.rqLen(),
		wqCap: s.wqLen(),
		maxRx: s.maxRx(),
	}
	p.sprio, p.rprio = s.prios()
	if p.rqCap < 1 {
		p.rqCap = 1
	}
	if p.wqCap < 1 {
		p.wqCap = 1
	}
	p.rcv = sync.NewCond(p)
	p.wcv = sync.NewCond(p)

	pipes.Lock()
	for {
		p.id = pipes.nextID & 0x7fffffff
		pipes.nextID++
		if p.id == 0 {
			continue
		}
		if _, ok := pipes.IDs[p.id]; !ok {
			pipes.IDs[p.id] = struct{}{}
			break
		}
	}
	pipes.Unlock()

	p.fsm.Init(p.runHandler, p.shutdownHandler, parent, int(p.id), nil)
	return p
}

// runHandler is the live FSM handler.  EvStart attaches the pipe to the
// socket's protocol and starts the bridges.
func (p *pipe) runHandler(src, typ int) {
	switch typ {
	case aio.EvStart:
		if !p.s.attachPipe(p) {
			p.teardown()
			p.fsm.Stopped()
			return
		}
		go p.receiver()
		go p.sender()
	case evSendDrain:
		p.s.noteDrained()
	}
}

// shutdownHandler tears the pipe down and reports idle.
func (p *pipe) shutdownHandler(src, typ int) {
	switch typ {
	case aio.EvStop:
		p.teardown()
		p.s.detachPipe(p)
		p.fsm.Stopped()
	}
}

// teardown closes the transport side and wakes the bridges.  Idempotent.
func (p *pipe) teardown() {
	p.Lock()
	if p.closed {
		p.Unlock()
		return
	}
	p.closed = true
	p.rcv.Broadcast()
	p.wcv.Broadcast()
	stale := append(p.rq, p.wq...)
	p.rq = nil
	p.wq = nil
	p.Unlock()

	p.free(stale)
	p.tp.Close()

	pipes.Lock()
	delete(pipes.IDs, p.id)
	pipes.Unlock()
}

// receiver bridges inbound messages from the transport into the read
// ring, raising In toward the protocol on the worker whenever the ring
// transitions from the protocol's point of view.
func (p *pipe) receiver() {
	for {
		m, err := p.tp.Recv()
		if err != nil {
			// Keep already delivered messages available to the
			// protocol; the pipe closes once they are drained.
			p.Lock()
			p.reof = true
			empty := len(p.rq) == 0
			p.Unlock()
			if empty {
				p.Close()
			}
			return
		}
		if p.maxRx > 0 && len(m.Body)+len(m.Header) > p.maxRx {
			m.Free()
			continue
		}
		p.Lock()
		for len(p.rq) >= p.rqCap && !p.closed {
			p.rcv.Wait()
		}
		if p.closed {
			p.Unlock()
			m.Free()
			break
		}
		m.PipeID = p.id
		p.rq = append(p.rq, m)
		raise := !p.rnotify
		if raise {
			p.rnotify = true
		}
		p.Unlock()
		if raise {
			p.s.worker.Exec(func() { p.s.pipeIn(p) })
		}
	}
	p.Close()
}

// sender bridges the write ring out to the transport.  When the ring
// goes from full to having room, Out is raised toward the protocol.
func (p *pipe) sender() {
	for {
		p.Lock()
		for len(p.wq) == 0 && !p.closed {
			p.wcv.Wait()
		}
		if len(p.wq) == 0 && p.closed {
			p.Unlock()
			return
		}
		m := p.wq[0]
		p.wq = p.wq[1:]
		raise := !p.wnotify && !p.closed
		if raise {
			p.wnotify = true
		}
		p.sending = true
		p.Unlock()

		if raise {
			p.s.worker.Exec(func() { p.s.pipeOut(p) })
		}
		err := p.tp.Send(m)
		p.Lock()
		p.sending = false
		drained := len(p.wq) == 0
		p.Unlock()
		if err != nil {
			p.Close()
			return
		}
		if drained {
			// Nothing left in flight; linger waiters care.
			p.fsm.Post(evSendDrain)
		}
	}
}

// Close shuts the pipe down from any thread.  The FSM performs the
// actual teardown on the worker; a dialer parent is told so it can
// schedule a redial.
func (p *pipe) Close() error {
	p.fsm.Stop()
	if d := p.d; d != nil {
		d.pipeClosed()
	}
	return nil
}

//
// ProtocolPipe implementation; called by protocol state machines.
//

func (p *pipe) ID() uint32 {
	return p.id
}

func (p *pipe) Send(m *spcore.Message) bool {
	p.Lock()
	if p.closed {
		p.Unlock()
		m.Free()
		return false
	}
	p.wq = append(p.wq, m)
	p.wcv.Signal()
	writable := len(p.wq) < p.wqCap
	if !writable {
		p.wnotify = false
	}
	p.Unlock()
	return writable
}

func (p *pipe) Recv() (*spcore.Message, bool) {
	p.Lock()
	if len(p.rq) == 0 {
		p.rnotify = false
		p.Unlock()
		return nil, false
	}
	m := p.rq[0]
	p.rq = p.rq[1:]
	p.rcv.Signal()
	more := len(p.rq) > 0
	if !more {
		p.rnotify = false
	}
	eof := p.reof && !more && !p.closed
	p.Unlock()
	if eof {
		p.Close()
	}
	return m, more
}

func (p *pipe) SetPrivate(v interface{}) {
	p.Lock()
	p.priv = v
	p.Unlock()
}

func (p *pipe) Private() interface{} {
	p.Lock()
	v := p.priv
	p.Unlock()
	return v
}

// pendingOutput reports whether unsent messages remain in the write
// ring; the linger drain in socket.Close keys off this.
func (p *pipe) pendingOutput() bool {
	p.Lock()
	pending := len(p.wq) > 0 || p.sending
	p.Unlock()
	return pending
}

func (p *pipe) free(ms []*spcore.Message) {
	for _, m := range ms {
		m.Free()
	}
}

//
// Pipe (application facing) implementation.
//

func (p *pipe) Address() string {
	switch {
	case p.l != nil:
		return p.l.Address()
	case p.d != nil:
		return p.d.Address()
	}
	return ""
}

func (p *pipe) GetOption(name string) (interface{}, error) {
	switch name {
	case spcore.OptionSendPrio:
		return p.sprio, nil
	case spcore.OptionRecvPrio:
		return p.rprio, nil
	}
	val, err := p.tp.GetOption(name)
	if err == spcore.ErrBadOption {
		if p.d != nil {
			val, err = p.d.GetOption(name)
		} else if p.l != nil {
			val, err = p.l.GetOption(name)
		}
	}
	return val, err
}

func (p *pipe) Dialer() spcore.Dialer {
	if p.d == nil {
		return nil
	}
	return p.d
}

func (p *pipe) Listener() spcore.Listener {
	if p.l == nil {
		return nil
	}
	return p.l
}
