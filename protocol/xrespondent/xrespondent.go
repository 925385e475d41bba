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

// Package xrespondent implements the raw RESPONDENT protocol, which is
// the response side of the survey pattern.  (SURVEYOR is the survey
// generator.)  Like raw REP, the route rides in the header.
package xrespondent

import (
	"encoding/binary"
	"sync"

	"nanomsg.org/go/spcore/protocol"
)

// Protocol identity information.
const (
	Self     = protocol.ProtoRespondent
	Peer     = protocol.ProtoSurveyor
	SelfName = "respondent"
	PeerName = "surveyor"
)

const defaultTTL = 8

type socket struct {
	sync.Mutex
	sock  protocol.ProtocolSocket
	fq    protocol.FairQueue
	pipes map[uint32]protocol.Pipe

	ttl    int
	closed bool
}

func (s *socket) Init(sock protocol.ProtocolSocket) {
	s.sock = sock
	s.pipes = make(map[uint32]protocol.Pipe)
	s.ttl = defaultTTL
	sock.Writable(true)
}

func (s *socket) AddPipe(p protocol.Pipe) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return protocol.ErrClosed
	}
	s.fq.Add(p, protocol.RecvPrio(p))
	s.pipes[p.ID()] = p
	return nil
}

func (s *socket) RemovePipe(p protocol.Pipe) {
	s.Lock()
	s.fq.Remove(p)
	delete(s.pipes, p.ID())
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
		pid := m.PipeID
		m.Header = append(m.Header[:0],
			byte(pid>>24), byte(pid>>16), byte(pid>>8), byte(pid))
		hops := 0
		ok = false
		for {
			if hops >= s.ttl {
				break
			}
			hops++
			if len(m.Body) < 4 {
				break
			}
			m.Header = append(m.Header, m.Body[:4]...)
			done := m.Body[0]&0x80 != 0
			m.Body = m.Body[4:]
			if done {
				ok = true
				break
			}
		}
		if !ok {
			m.Free()
			continue
		}
		return m, nil
	}
}

func (s *socket) SendMsg(m *protocol.Message) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return protocol.ErrClosed
	}
	if len(m.Header) < 4 {
		m.Free()
		return nil
	}
	pid := binary.BigEndian.Uint32(m.Header)
	m.Header = m.Header[4:]
	p := s.pipes[pid]
	if p == nil {
		m.Free()
		return nil
	}
	p.Send(m)
	return nil
}

func (s *socket) SetOption(name string, value interface{}) error {
	switch name {
	case protocol.OptionTTL:
		if v, ok := value.(int); ok && v > 0 && v < 256 {
			s.Lock()
			s.ttl = v
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
		return true, nil
	case protocol.OptionTTL:
		s.Lock()
		v := s.ttl
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

// NewSocket allocates a new Socket using the raw RESPONDENT protocol.
func NewSocket() (protocol.Socket, error) {
	return protocol.NewSocket(NewProtocol())
}
