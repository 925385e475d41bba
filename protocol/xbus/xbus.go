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

// Package xbus implements the raw BUS protocol.  On receive, the
// arrival pipe id is exposed in the header (it never rides the wire);
// on send, a message whose header names a pipe is forwarded to every
// other pipe.  Devices use this to avoid echoing a message back to the
// peer it came from.
package xbus

import (
	"encoding/binary"
	"sync"

	"nanomsg.org/go/spcore/protocol"
)

// Protocol identity information.
const (
	Self     = protocol.ProtoBus
	Peer     = protocol.ProtoBus
	SelfName = "bus"
	PeerName = "bus"
)

type socket struct {
	sync.Mutex
	sock  protocol.ProtocolSocket
	dist  protocol.Distributor
	fq    protocol.FairQueue
	pipes map[uint32]protocol.Pipe

	closed bool
}

func (s *socket) Init(sock protocol.ProtocolSocket) {
	s.sock = sock
	s.pipes = make(map[uint32]protocol.Pipe)
	sock.Writable(true)
}

func (s *socket) AddPipe(p protocol.Pipe) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return protocol.ErrClosed
	}
	s.dist.Add(p)
	s.fq.Add(p, protocol.RecvPrio(p))
	s.pipes[p.ID()] = p
	return nil
}

func (s *socket) RemovePipe(p protocol.Pipe) {
	s.Lock()
	s.dist.Remove(p)
	s.fq.Remove(p)
	delete(s.pipes, p.ID())
	can := s.fq.CanRecv()
	s.Unlock()
	s.sock.Readable(can)
}

func (s *socket) Out(p protocol.Pipe) {
	s.Lock()
	s.dist.Out(p)
	s.Unlock()
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
	// A header names the pipe the message arrived on; suppress the
	// echo and strip the id before it can reach the wire.
	var skip protocol.Pipe
	if len(m.Header) >= 4 {
		pid := binary.BigEndian.Uint32(m.Header)
		m.Header = m.Header[4:]
		skip = s.pipes[pid]
	}
	s.dist.Send(m, skip)
	return nil
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
	pid := m.PipeID
	m.Header = append(m.Header[:0],
		byte(pid>>24), byte(pid>>16), byte(pid>>8), byte(pid))
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

// NewSocket allocates a new Socket using the raw BUS protocol.
func NewSocket() (protocol.Socket, error) {
	return protocol.NewSocket(NewProtocol())
}
