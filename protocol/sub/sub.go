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

// Package sub implements the SUB protocol.  This protocol receives
// messages from publishers (PUB peers), filtered through the socket's
// subscription trie: only messages whose body starts with a subscribed
// prefix are delivered.
package sub

import (
	"sync"

	"nanomsg.org/go/spcore/protocol"
)

// Protocol identity information.
const (
	Self     = protocol.ProtoSub
	Peer     = protocol.ProtoPub
	SelfName = "sub"
	PeerName = "pub"
)

type socket struct {
	sync.Mutex
	sock protocol.ProtocolSocket
	fq   protocol.FairQueue
	subs protocol.Trie

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
	for {
		m, ok := s.fq.Recv()
		if !ok {
			s.sock.Readable(false)
			return nil, protocol.ErrAgain
		}
		if !s.fq.CanRecv() {
			s.sock.Readable(false)
		}
		if s.subs.Match(m.Body) {
			return m, nil
		}
		// Not subscribed; silently drop and look again.
		m.Free()
	}
}

func subValue(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	}
	return nil, false
}

func (s *socket) SetOption(name string, value interface{}) error {
	switch name {
	case protocol.OptionSubscribe:
		v, ok := subValue(value)
		if !ok {
			return protocol.ErrBadValue
		}
		s.Lock()
		s.subs.Subscribe(v)
		s.Unlock()
		return nil
	case protocol.OptionUnsubscribe:
		v, ok := subValue(value)
		if !ok {
			return protocol.ErrBadValue
		}
		s.Lock()
		found := s.subs.Unsubscribe(v)
		s.Unlock()
		if !found {
			return protocol.ErrBadValue
		}
		return nil
	}
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

// NewSocket allocates a new Socket using the SUB protocol.
func NewSocket() (protocol.Socket, error) {
	return protocol.NewSocket(NewProtocol())
}
