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

// Package pull implements the PULL protocol, which is the read side of
// the pipeline pattern.  (PUSH is the writer.)
package pull

import (
	"sync"

	"nanomsg.org/go/spcore/protocol"
)

// Protocol identity information.
const (
	Self     = protocol.ProtoPull
	Peer     = protocol.ProtoPush
	SelfName = "pull"
	PeerName = "push"
)

type socket struct {
	sync.Mutex
	sock protocol.ProtocolSocket
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
	s.fq.Add(p, protocol.RecvPrio(p))
	return nil
}

func (s *socket) RemovePipe(p protocol.Pipe) {
	s.Lock()
	s.fq.Remove(p)
	can := s.fq.CanRecv()
	s.Unlock()
	s.sock.Readable(can)
}

func (s *socket) In(p protocol.Pipe) {
	s.Lock()
	s.fq.In(p)
	s.Unlock()
	s.sock.Readable(true)
}

func (s *socket) Out(p protocol.Pipe) {
	// We never send; nothing to do with writability.
}

func (s *socket) SendMsg(m *protocol.Message) error {
	return protocol.ErrProtoOp
}

func (s *socket) RecvMsg() (*protocol.Message, error) {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return nil, protocol.ErrClosed
	}
	m, ok := s.fq.Recv()
	if !ok {
		s.sock.Readable(false)
		return nil, protocol.ErrAgain
	}
	if !s.fq.CanRecv() {
		s.sock.Readable(false)
	}
	return m, nil
}

func (s *socket) SetOption(name string, value interface{}) error {
	return protocol.ErrBadOption
}

func (s *socket) GetOption(option string) (interface{}, error) {
	switch option {
	case protocol.OptionRaw:
		return false, nil
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

// NewSocket allocates a new Socket using the PULL protocol.
func NewSocket() (protocol.Socket, error) {
	return protocol.NewSocket(NewProtocol())
}
