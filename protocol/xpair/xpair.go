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

// Package xpair implements the raw PAIR protocol.  PAIR is a simple
// 1:1 messaging pattern; raw mode does not alter messages in any way,
// so this is chiefly useful with devices.
package xpair

import (
	"sync"

	"nanomsg.org/go/spcore/protocol"
)

// Protocol identity information.
const (
	Self     = protocol.ProtoPair
	Peer     = protocol.ProtoPair
	SelfName = "pair"
	PeerName = "pair"
)

type socket struct {
	sync.Mutex
	sock protocol.ProtocolSocket
	ex   protocol.Exclusive

	canSend bool
	canRecv bool
	closed  bool
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
	return s.ex.Add(p)
}

func (s *socket) RemovePipe(p protocol.Pipe) {
	s.Lock()
	if !s.ex.Holds(p) {
		s.Unlock()
		return
	}
	s.ex.Remove(p)
	s.canSend = false
	s.canRecv = false
	s.Unlock()
	s.sock.Writable(false)
	s.sock.Readable(false)
}

func (s *socket) Out(p protocol.Pipe) {
	s.Lock()
	if !s.ex.Holds(p) {
		s.Unlock()
		return
	}
	s.canSend = true
	s.Unlock()
	s.sock.Writable(true)
}

func (s *socket) In(p protocol.Pipe) {
	s.Lock()
	if !s.ex.Holds(p) {
		s.Unlock()
		return
	}
	s.canRecv = true
	s.Unlock()
	s.sock.Readable(true)
}

func (s *socket) SendMsg(m *protocol.Message) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return protocol.ErrClosed
	}
	p := s.ex.Pipe()
	if p == nil || !s.canSend {
		return protocol.ErrAgain
	}
	if !p.Send(m) {
		s.canSend = false
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
	p := s.ex.Pipe()
	if p == nil || !s.canRecv {
		return nil, protocol.ErrAgain
	}
	m, more := p.Recv()
	if !more {
		s.canRecv = false
		s.sock.Readable(false)
	}
	if m == nil {
		return nil, protocol.ErrAgain
	}
	return m, nil
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

// NewSocket allocates a new Socket using the raw PAIR protocol.
func NewSocket() (protocol.Socket, error) {
	return protocol.NewSocket(NewProtocol())
}
