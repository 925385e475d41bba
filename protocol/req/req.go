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

// Package req implements the REQ protocol, which is the request side of
// the request/response pattern.  (REP is the response.)
package req

import (
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"nanomsg.org/go/spcore/protocol"
)

// Protocol identity information.
const (
	Self     = protocol.ProtoReq
	Peer     = protocol.ProtoRep
	SelfName = "req"
	PeerName = "rep"
)

type socket struct {
	sync.Mutex
	sock protocol.ProtocolSocket
	lb   protocol.LoadBalancer
	fq   protocol.FairQueue

	nextid    uint32
	reqID     uint32
	reqMsg    *protocol.Message // retained for retransmission
	reqPipe   protocol.Pipe     // pipe carrying the outstanding request
	requested bool
	unsent    bool // a resend is owed but no pipe was writable
	retry     time.Duration
	cancel    func()

	closed bool
}

func (s *socket) Init(sock protocol.ProtocolSocket) {
	s.sock = sock
	s.nextid = uint32(rand.NewSource(time.Now().UnixNano()).Int63())
	s.retry = time.Minute
}

// nextID returns the next request ID.  The high order bit is "special",
// and must always be set; this is how the peer detects the end of the
// backtrace.
func (s *socket) nextID() uint32 {
	v := s.nextid | 0x80000000
	s.nextid++
	return v
}

func (s *socket) AddPipe(p protocol.Pipe) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return protocol.ErrClosed
	}
	s.lb.Add(p, protocol.SendPrio(p))
	s.fq.Add(p, protocol.RecvPrio(p))
	return nil
}

func (s *socket) RemovePipe(p protocol.Pipe) {
	s.Lock()
	s.lb.Remove(p)
	s.fq.Remove(p)
	if p == s.reqPipe {
		// The pipe carrying the outstanding request died; retry at
		// once on another path, restarting the resend interval.
		s.reqPipe = nil
		s.resendLocked()
	}
	canSend := s.lb.CanSend()
	canRecv := s.fq.CanRecv()
	s.Unlock()
	s.sock.Writable(canSend)
	s.sock.Readable(canRecv)
}

func (s *socket) Out(p protocol.Pipe) {
	s.Lock()
	s.lb.Out(p)
	if s.unsent {
		s.resendLocked()
	}
	s.Unlock()
	s.sock.Writable(true)
}

func (s *socket) In(p protocol.Pipe) {
	s.Lock()
	s.fq.In(p)
	s.Unlock()
	s.sock.Readable(true)
}

// resendLocked pushes the outstanding request to a pipe, preferring one
// other than the pipe used last time, and re-arms the resend timer.
// Caller holds the socket lock.
func (s *socket) resendLocked() {
	if s.reqMsg == nil {
		return
	}
	m := s.reqMsg.Dup()
	p, ok := s.lb.SendTo(m, s.reqPipe)
	if !ok {
		m.Free()
		s.unsent = true
	} else {
		s.reqPipe = p
		s.unsent = false
	}
	s.armTimer()
}

func (s *socket) armTimer() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.retry > 0 {
		s.cancel = s.sock.AddTimer(s.retry, s.resendExpire)
	}
}

func (s *socket) resendExpire() {
	s.Lock()
	s.resendLocked()
	s.Unlock()
}

func (s *socket) SendMsg(m *protocol.Message) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return protocol.ErrClosed
	}
	if !s.lb.CanSend() {
		return protocol.ErrAgain
	}

	// We only support a single outstanding request at a time.
	// Sending a new request implicitly abandons the old one.
	if s.reqMsg != nil {
		s.reqMsg.Free()
		s.reqMsg = nil
	}

	s.reqID = s.nextID()
	m.Header = m.Header[:0]
	protocol.PutUint32(m, s.reqID)

	s.reqMsg = m.Dup()
	s.requested = true
	s.unsent = false

	p, ok := s.lb.SendTo(m, nil)
	if !ok {
		// Raced with the last pipe going unwritable; retry later.
		m.Free()
		s.unsent = true
	} else {
		s.reqPipe = p
	}
	s.armTimer()
	if !s.lb.CanSend() {
		s.sock.Writable(false)
	}
	return nil
}

func (s *socket) RecvMsg() (*protocol.Message, error) {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return nil, protocol.ErrClosed
	}
	if !s.requested {
		return nil, protocol.ErrProtoState
	}
	for {
		m, ok := s.fq.Recv()
		if !ok {
			s.sock.Readable(false)
			return nil, protocol.ErrAgain
		}
		if !s.fq.CanRecv() {
			s.sock.Readable(false)
		}
		if len(m.Body) < 4 {
			m.Free()
			continue
		}
		id := binary.BigEndian.Uint32(m.Body)
		if id != s.reqID {
			// A reply to some earlier, abandoned request.
			m.Free()
			continue
		}
		m.Body = m.Body[4:]

		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		if s.reqMsg != nil {
			s.reqMsg.Free()
			s.reqMsg = nil
		}
		s.reqPipe = nil
		s.requested = false
		return m, nil
	}
}

func (s *socket) SetOption(name string, value interface{}) error {
	switch name {
	case protocol.OptionRetryTime:
		if v, ok := value.(time.Duration); ok {
			s.Lock()
			s.retry = v
			s.Unlock()
			return nil
		}
		return protocol.ErrBadValue
	}
	return protocol.ErrBadOption
}

func (s *socket) GetOption(option string) (interface{}, error) {
	switch option {
	case protocol.OptionRaw:
		return false, nil
	case protocol.OptionRetryTime:
		s.Lock()
		v := s.retry
		s.Unlock()
		return v, nil
	}
	return nil, protocol.ErrBadOption
}

func (s *socket) Close() error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return protocol.ErrClosed
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.reqMsg != nil {
		s.reqMsg.Free()
		s.reqMsg = nil
	}
	return nil
}

func (*socket) Info() protocol.Info {
	return protocol.Info{
		Self:     Self,
		Peer:     Peer,
		SelfName: SelfName,
		PeerName: PeerName,
	}
}

// NewProtocol returns a new protocol implementation.
func NewProtocol() protocol.Protocol {
	return &socket{}
}

// NewSocket allocates a new Socket using the REQ protocol.
func NewSocket() (protocol.Socket, error) {
	return protocol.NewSocket(NewProtocol())
}
