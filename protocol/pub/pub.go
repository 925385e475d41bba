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

// Package pub implements the PUB protocol.  This protocol publishes
// messages to all subscribers (SUB peers).  Pipes that cannot keep up
// simply miss messages; the publisher never blocks on a slow peer.
package pub

import (
	"sync"

	"nanomsg.org/go/spcore/protocol"
)

// Protocol identity information.
const (
	Self     = protocol.ProtoPub
	Peer     = protocol.ProtoSub
	SelfName = "pub"
	PeerName = "sub"
)

type socket struct {
	sync.Mutex
	sock protocol.ProtocolSocket
	dist protocol.Distributor

	closed bool
}

func (s *socket) Init(sock protocol.ProtocolSocket) {
	s.sock = sock
	// A PUB socket can always accept a message; unready pipes are
	// dropped for, not waited on.
	sock.Writable(true)
}

func (s *socket) AddPipe(p protocol.Pipe) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return protocol.ErrClosed
	}
	s.dist.Add(p)
	return nil
}

func (s *socket) RemovePipe(p protocol.Pipe) {
	s.Lock()
	s.dist.Remove(p)
	s.Unlock()
}

func (s *socket) Out(p protocol.Pipe) {
	s.Lock()
	s.dist.Out(p)
	s.Unlock()
}

func (s *socket) In(p protocol.Pipe) {
	// SUB peers send nothing in normal operation; discard stray data.
	for {
		m, more := p.Recv()
		if m != nil {
			m.Free()
		}
		if !more {
			return
		}
	}
}

func (s *socket) SendMsg(m *protocol.Message) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return protocol.ErrClosed
	}
	s.dist.Send(m, nil)
	return nil
}

func (s *socket) RecvMsg() (*protocol.Message, error) {
	return nil, protocol.ErrProtoOp
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

// NewSocket allocates a new Socket using the PUB protocol.
func NewSocket() (protocol.Socket, error) {
	return protocol.NewSocket(NewProtocol())
}
