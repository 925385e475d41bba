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

// Package xreq implements the raw REQ protocol, which is the request
// side of the request/response pattern.  (REP is the response.)  Raw
// mode attaches no request id and keeps no request state; the envelope
// is the application's business.  This composes well with devices.
package xreq

import (
	"sync"

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

	closed bool
}

func (s *socket) Init(sock protocol.ProtocolSocket) {
	s.sock = sock
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
	canSend := s.lb.CanSend()
	canRecv := s.fq.CanRecv()
	s.Unlock()
	s.sock.Writable(canSend)
	s.sock.Readable(canRecv)
}

func (s *socket) Out(p protocol.Pipe) {
	s.Lock()
	s.lb.Out(p)
	s.Unlock()
	s.sock.Writable(true)
}

func (s *socket) In(p protocol.Pipe) {
	s.Lock()
	s.fq.In(p)
	s.Unlock()
	s.sock.Readable(true)
}

func (s *socket) SendMsg(m *protocol.Message) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return protocol.ErrClosed
	}
	if !s.lb.Send(m) {
		return protocol.ErrAgain
	}
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
	for {
		m, ok := s.fq.Recv()
		if !ok {
			s.sock.Readable(false)
			return nil, protocol.ErrAgain
		}
		if !s.fq.CanRecv() {
			s.sock.Readable(false)
		}
		// Expose the request id as the header, leaving any deeper
		// routing untouched in the body for the application.
		if len(m.Body) < 4 {
			m.Free()
			continue
		}
		m.Header = append(m.Header[:0], m.Body[:4]...)
		m.Body = m.Body[4:]
		return m, nil
	}
}

func (s *socket) SetOption(name string, value interface{}) error {
	return protocol.ErrBadOption
}

func (s *socket) GetOption(option string) (interface{}, error) {
	switch option {
	case protocol.OptionRaw:
		return true, nil
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

// NewSocket allocates a new Socket using the raw REQ protocol.
func NewSocket() (protocol.Socket, error) {
	return protocol.NewSocket(NewProtocol())
}
