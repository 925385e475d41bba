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

// Package core implements the socket abstraction layer: endpoint and
// pipe lifecycle, message flow between the application and transports,
// and backpressure.  Policy lives in the protocol packages; the engine
// that drives everything lives in internal/aio.
package core

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/internal/aio"
	"nanomsg.org/go/spcore/transport"
)

// defaultQLen is the default length of the pipe read/write rings.
const defaultQLen = 128

// defaultMaxRxSize is the default maximum inbound message size.
const defaultMaxRxSize = 1024 * 1024

const defaultReconnTime = time.Millisecond * 100

const defaultLinger = time.Second

var socketOrdinal uint32

// socket is the meaty part of the core information.  It coordinates
// endpoints, pipes, options, and blocking application operations, and
// dispatches transport events into the protocol on its worker thread.
type socket struct {
	proto spcore.ProtocolBase

	sync.Mutex

	worker *aio.Worker
	fsm    aio.Fsm

	closing bool // user initiated close; draining
	active  bool // Dial or Listen succeeded at least once
	name    string

	canSend bool // protocol's CAN_SEND flag
	canRecv bool // protocol's CAN_RECV flag

	sendq  chan struct{} // binary semaphore: send may progress
	recvq  chan struct{} // binary semaphore: recv may progress
	drainq chan struct{} // pulsed when some pipe's write ring empties
	closeq chan struct{}
	doneq  chan struct{} // closed when the FSM tree is fully stopped

	rdeadline     time.Duration
	wdeadline     time.Duration
	linger        time.Duration
	reconnMinTime time.Duration
	reconnMaxTime time.Duration
	maxRxSize     int
	wqConfig      int
	rqConfig      int
	sendPrio      int
	recvPrio      int
	ipv4only      bool
	dialAsynch    bool

	dialers   []*dialer
	listeners []*listener
	pipes     map[*pipe]struct{}

	hook spcore.PipeEventHook
}

func newSocket(proto spcore.ProtocolBase) (*socket, error) {
	if err := aio.Get().OpenSocket(); err != nil {
		return nil, err
	}
	s := &socket{
		proto:         proto,
		worker:        aio.Get().Choose(),
		sendq:         make(chan struct{}, 1),
		recvq:         make(chan struct{}, 1),
		drainq:        make(chan struct{}, 1),
		closeq:        make(chan struct{}),
		doneq:         make(chan struct{}),
		linger:        defaultLinger,
		reconnMinTime: defaultReconnTime,
		maxRxSize:     defaultMaxRxSize,
		wqConfig:      defaultQLen,
		rqConfig:      defaultQLen,
		sendPrio:      8,
		recvPrio:      8,
		ipv4only:      true,
		pipes:         make(map[*pipe]struct{}),
	}
	s.name = fmt.Sprintf("socket.%d", atomic.AddUint32(&socketOrdinal, 1))
	s.fsm.Init(s.runHandler, s.shutdownHandler, nil, 0, s.worker)
	proto.Init(s)
	s.fsm.Start()
	return s, nil
}

// MakeSocket is intended for use by Protocol implementations.  The
// intention is that they can wrap this to provide a "proto.NewSocket()"
// implementation.
func MakeSocket(proto spcore.ProtocolBase) spcore.Socket {
	s, err := newSocket(proto)
	if err != nil {
		panic(err.Error())
	}
	return s
}

// NewSocket makes a socket, reporting initialization errors (such as a
// terminating engine) instead of panicking.
func NewSocket(proto spcore.ProtocolBase) (spcore.Socket, error) {
	return newSocket(proto)
}

func (s *socket) runHandler(src, typ int) {
	// The socket FSM is a pure lifecycle anchor while running; all
	// interesting events land on the pipe and endpoint FSMs.
}

func (s *socket) shutdownHandler(src, typ int) {
	switch typ {
	case aio.EvStop:
		s.fsm.StopChildren()
	}
	if s.fsm.ChildCount() == 0 {
		s.fsm.Stopped()
		close(s.doneq)
	}
}

//
// ProtocolSocket implementation -- the protocol's upward view.
//

func pulse(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *socket) Readable(ready bool) {
	s.Lock()
	s.canRecv = ready
	s.Unlock()
	if ready {
		pulse(s.recvq)
	}
}

func (s *socket) Writable(ready bool) {
	s.Lock()
	s.canSend = ready
	s.Unlock()
	if ready {
		pulse(s.sendq)
	}
}

func (s *socket) AddTimer(d time.Duration, fn func()) func() {
	t := s.worker.NewTimer(fn)
	t.Schedule(d)
	return func() { t.Cancel() }
}

//
// Worker-side pipe event plumbing.
//

func (s *socket) attachPipe(p *pipe) bool {
	s.Lock()
	if s.closing {
		s.Unlock()
		return false
	}
	fn := s.hook
	name := s.name
	s.Unlock()

	if fn != nil {
		fn(spcore.PipeEventAttaching, p)
	}

	if err := s.proto.AddPipe(p); err != nil {
		spcore.Logf("%s rejected pipe %d: %v", name, p.id, err)
		return false
	}

	s.Lock()
	s.pipes[p] = struct{}{}
	p.added = true
	s.Unlock()

	if p.d != nil {
		p.d.pipeConnected()
	}
	if fn != nil {
		fn(spcore.PipeEventAttached, p)
	}

	// A fresh pipe has an empty write ring, so it is born writable.
	// The read ring may have filled while we were attaching.
	p.Lock()
	p.wnotify = true
	raiseIn := len(p.rq) > 0
	if raiseIn {
		p.rnotify = true
	}
	p.Unlock()
	s.proto.Out(p)
	if raiseIn {
		s.proto.In(p)
	}
	return true
}

func (s *socket) detachPipe(p *pipe) {
	s.Lock()
	delete(s.pipes, p)
	removed := p.added && !p.removed
	if removed {
		p.removed = true
	}
	fn := s.hook
	s.Unlock()

	if removed {
		s.proto.RemovePipe(p)
		if fn != nil {
			fn(spcore.PipeEventDetached, p)
		}
	}
}

func (s *socket) pipeIn(p *pipe) {
	if p.added && !p.removed {
		s.proto.In(p)
	}
}

func (s *socket) pipeOut(p *pipe) {
	if p.added && !p.removed {
		s.proto.Out(p)
	}
}

func (s *socket) noteDrained() {
	pulse(s.drainq)
}

// Option snapshots used when constructing pipes.

func (s *socket) rqLen() int {
	s.Lock()
	defer s.Unlock()
	return s.rqConfig
}

func (s *socket) wqLen() int {
	s.Lock()
	defer s.Unlock()
	return s.wqConfig
}

func (s *socket) maxRx() int {
	s.Lock()
	defer s.Unlock()
	return s.maxRxSize
}

func (s *socket) prios() (int, int) {
	s.Lock()
	defer s.Unlock()
	return s.sendPrio, s.recvPrio
}

//
// Socket (application facing) implementation.
//

func (s *socket) Info() spcore.ProtocolInfo {
	return s.proto.Info()
}

func (s *socket) Close() error {
	s.Lock()
	if s.closing {
		s.Unlock()
		return spcore.ErrClosed
	}
	s.closing = true
	linger := s.linger
	listeners := append([]*listener{}, s.listeners...)
	dialers := append([]*dialer{}, s.dialers...)
	s.Unlock()

	close(s.closeq)

	// Stop endpoint factories first so no new pipes arrive while the
	// existing ones drain.
	for _, l := range listeners {
		l.stopAccepting()
	}
	for _, d := range dialers {
		d.stopDialing()
	}

	// Linger: wait for outbound rings to flush, bounded by the
	// configured deadline.
	s.drainWait(linger)

	s.proto.Close()
	s.fsm.Stop()
	<-s.doneq

	aio.Get().CloseSocket()
	return nil
}

func (s *socket) drainWait(linger time.Duration) {
	if linger <= 0 {
		return
	}
	timer := time.NewTimer(linger)
	defer timer.Stop()
	for {
		if !s.pendingOutput() {
			return
		}
		select {
		case <-s.drainq:
		case <-timer.C:
			return
		}
	}
}

func (s *socket) pendingOutput() bool {
	s.Lock()
	defer s.Unlock()
	for p := range s.pipes {
		if p.pendingOutput() {
			return true
		}
	}
	return false
}

// mkTimer makes a timeout channel from a deadline option.  Zero means
// wait forever (nil channel); negative means non-blocking (a closed
// channel never blocks).
func mkTimer(d time.Duration) <-chan time.Time {
	if d == 0 {
		return nil
	}
	if d < 0 {
		tm := make(chan time.Time)
		close(tm)
		return tm
	}
	return time.After(d)
}

func (s *socket) SendMsg(m *spcore.Message) error {
	for {
		s.Lock()
		if s.closing {
			s.Unlock()
			return spcore.ErrClosed
		}
		d := s.wdeadline
		s.Unlock()

		err := s.proto.SendMsg(m)
		if err != spcore.ErrAgain {
			return err
		}
		if d < 0 {
			return spcore.ErrAgain
		}

		select {
		case <-s.sendq:
		case <-mkTimer(d):
			return spcore.ErrSendTimeout
		case <-s.closeq:
			return spcore.ErrClosed
		}
	}
}

func (s *socket) Send(b []byte) error {
	m := spcore.NewMessage(len(b))
	m.Body = append(m.Body, b...)
	return s.SendMsg(m)
}

func (s *socket) RecvMsg() (*spcore.Message, error) {
	for {
		s.Lock()
		if s.closing {
			s.Unlock()
			return nil, spcore.ErrClosed
		}
		d := s.rdeadline
		s.Unlock()

		m, err := s.proto.RecvMsg()
		if err != spcore.ErrAgain {
			return m, err
		}
		if d < 0 {
			return nil, spcore.ErrAgain
		}

		select {
		case <-s.recvq:
		case <-mkTimer(d):
			return nil, spcore.ErrRecvTimeout
		case <-s.closeq:
			return nil, spcore.ErrClosed
		}
	}
}

func (s *socket) Recv() ([]byte, error) {
	m, err := s.RecvMsg()
	if err != nil {
		return nil, err
	}
	b := make([]byte, 0, len(m.Body))
	b = append(b, m.Body...)
	m.Free()
	return b, nil
}

func (s *socket) getTransport(addr string) transport.Transport {
	i := strings.Index(addr, "://")
	if i < 0 {
		return nil
	}
	return transport.GetTransport(addr[:i])
}

func (s *socket) DialOptions(addr string, opts map[string]interface{}) error {
	d, err := s.NewDialer(addr, opts)
	if err != nil {
		return err
	}
	return d.Dial()
}

func (s *socket) Dial(addr string) error {
	return s.DialOptions(addr, nil)
}

func (s *socket) NewDialer(addr string, options map[string]interface{}) (spcore.Dialer, error) {
	t := s.getTransport(addr)
	if t == nil {
		return nil, spcore.ErrBadTran
	}
	td, err := t.NewDialer(addr, s.proto.Info())
	if err != nil {
		return nil, err
	}
	s.Lock()
	d := &dialer{
		td:            td,
		s:             s,
		addr:          addr,
		reconnMinTime: s.reconnMinTime,
		reconnMaxTime: s.reconnMaxTime,
		asynch:        s.dialAsynch,
	}
	s.Unlock()
	for n, v := range options {
		switch n {
		case spcore.OptionReconnectTime,
			spcore.OptionMaxReconnectTime,
			spcore.OptionDialAsynch:
			if err := d.SetOption(n, v); err != nil {
				return nil, err
			}
		default:
			if err := td.SetOption(n, v); err != nil {
				return nil, err
			}
		}
	}

	s.Lock()
	if s.closing {
		s.Unlock()
		return nil, spcore.ErrClosed
	}
	s.dialers = append(s.dialers, d)
	s.Unlock()

	d.fsm.Init(d.runHandler, d.shutdownHandler, &s.fsm, int(atomic.AddUint32(&endpointOrdinal, 1)), nil)
	d.timer = s.worker.NewTimer(d.redialExpire)
	return d, nil
}

func (s *socket) ListenOptions(addr string, options map[string]interface{}) error {
	l, err := s.NewListener(addr, options)
	if err != nil {
		return err
	}
	return l.Listen()
}

func (s *socket) Listen(addr string) error {
	return s.ListenOptions(addr, nil)
}

func (s *socket) NewListener(addr string, options map[string]interface{}) (spcore.Listener, error) {
	t := s.getTransport(addr)
	if t == nil {
		return nil, spcore.ErrBadTran
	}
	tl, err := t.NewListener(addr, s.proto.Info())
	if err != nil {
		return nil, err
	}
	for n, v := range options {
		if err = tl.SetOption(n, v); err != nil {
			tl.Close()
			return nil, err
		}
	}
	l := &listener{
		tl:   tl,
		s:    s,
		addr: addr,
	}
	s.Lock()
	if s.closing {
		s.Unlock()
		tl.Close()
		return nil, spcore.ErrClosed
	}
	s.listeners = append(s.listeners, l)
	s.Unlock()

	l.fsm.Init(l.runHandler, l.shutdownHandler, &s.fsm, int(atomic.AddUint32(&endpointOrdinal, 1)), nil)
	return l, nil
}

func (s *socket) SetOption(name string, value interface{}) error {
	if err := s.proto.SetOption(name, value); err != spcore.ErrBadOption {
		if err == nil {
			// Wake blocked callers so they observe the change.
			pulse(s.sendq)
			pulse(s.recvq)
		}
		return err
	}

	s.Lock()
	switch name {
	case spcore.OptionRecvDeadline:
		if v, ok := value.(time.Duration); ok {
			s.rdeadline = v
		} else {
			s.Unlock()
			return spcore.ErrBadValue
		}
	case spcore.OptionSendDeadline:
		if v, ok := value.(time.Duration); ok {
			s.wdeadline = v
		} else {
			s.Unlock()
			return spcore.ErrBadValue
		}
	case spcore.OptionLinger:
		if v, ok := value.(time.Duration); ok {
			s.linger = v
		} else {
			s.Unlock()
			return spcore.ErrBadValue
		}
	case spcore.OptionMaxRecvSize:
		if v, ok := value.(int); ok && v >= 0 {
			s.maxRxSize = v
		} else {
			s.Unlock()
			return spcore.ErrBadValue
		}
	case spcore.OptionReconnectTime:
		if v, ok := value.(time.Duration); ok {
			s.reconnMinTime = v
		} else {
			s.Unlock()
			return spcore.ErrBadValue
		}
	case spcore.OptionMaxReconnectTime:
		if v, ok := value.(time.Duration); ok {
			s.reconnMaxTime = v
		} else {
			s.Unlock()
			return spcore.ErrBadValue
		}
	case spcore.OptionWriteQLen:
		if v, ok := value.(int); ok && v >= 0 && !s.active {
			s.wqConfig = v
		} else {
			s.Unlock()
			return spcore.ErrBadValue
		}
	case spcore.OptionReadQLen:
		if v, ok := value.(int); ok && v >= 0 && !s.active {
			s.rqConfig = v
		} else {
			s.Unlock()
			return spcore.ErrBadValue
		}
	case spcore.OptionSendPrio:
		if v, ok := value.(int); ok && v >= 1 && v <= 16 {
			s.sendPrio = v
		} else {
			s.Unlock()
			return spcore.ErrBadValue
		}
	case spcore.OptionRecvPrio:
		if v, ok := value.(int); ok && v >= 1 && v <= 16 {
			s.recvPrio = v
		} else {
			s.Unlock()
			return spcore.ErrBadValue
		}
	case spcore.OptionIPv4Only:
		if v, ok := value.(bool); ok {
			s.ipv4only = v
		} else {
			s.Unlock()
			return spcore.ErrBadValue
		}
	case spcore.OptionSocketName:
		if v, ok := value.(string); ok {
			s.name = v
		} else {
			s.Unlock()
			return spcore.ErrBadValue
		}
	case spcore.OptionDialAsynch:
		if v, ok := value.(bool); ok {
			s.dialAsynch = v
		} else {
			s.Unlock()
			return spcore.ErrBadValue
		}
	default:
		s.Unlock()
		return spcore.ErrBadOption
	}
	dialers := s.dialers
	listeners := s.listeners
	s.Unlock()

	pulse(s.sendq)
	pulse(s.recvq)

	for _, d := range dialers {
		d.SetOption(name, value)
	}
	for _, l := range listeners {
		l.SetOption(name, value)
	}
	return nil
}

func (s *socket) GetOption(name string) (interface{}, error) {
	if val, err := s.proto.GetOption(name); err != spcore.ErrBadOption {
		return val, err
	}

	s.Lock()
	defer s.Unlock()
	switch name {
	case spcore.OptionRecvDeadline:
		return s.rdeadline, nil
	case spcore.OptionSendDeadline:
		return s.wdeadline, nil
	case spcore.OptionLinger:
		return s.linger, nil
	case spcore.OptionMaxRecvSize:
		return s.maxRxSize, nil
	case spcore.OptionReconnectTime:
		return s.reconnMinTime, nil
	case spcore.OptionMaxReconnectTime:
		return s.reconnMaxTime, nil
	case spcore.OptionWriteQLen:
		return s.wqConfig, nil
	case spcore.OptionReadQLen:
		return s.rqConfig, nil
	case spcore.OptionSendPrio:
		return s.sendPrio, nil
	case spcore.OptionRecvPrio:
		return s.recvPrio, nil
	case spcore.OptionIPv4Only:
		return s.ipv4only, nil
	case spcore.OptionSocketName:
		return s.name, nil
	case spcore.OptionCanSend:
		return s.canSend, nil
	case spcore.OptionCanRecv:
		return s.canRecv, nil
	}
	return nil, spcore.ErrBadOption
}

func (s *socket) SetPipeEventHook(hook spcore.PipeEventHook) spcore.PipeEventHook {
	s.Lock()
	old := s.hook
	s.hook = hook
	s.Unlock()
	return old
}

// String just emits a very high level debug.  This avoids triggering
// race conditions from trying to print %v without holding locks on
// structure members.
func (s *socket) String() string {
	return fmt.Sprintf("SOCKET[%s](%p)", s.proto.Info().SelfName, s)
}

var endpointOrdinal uint32
