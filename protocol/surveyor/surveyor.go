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

// Package surveyor implements the SURVEYOR protocol.  This broadcasts a
// survey to all respondents, then collects responses carrying the
// survey id until the survey deadline passes; late responses are
// discarded and further receives report a timeout.
package surveyor

import (
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"nanomsg.org/go/spcore/protocol"
)

// Protocol identity information.
const (
	Self     = protocol.ProtoSurveyor
	Peer     = protocol.ProtoRespondent
	SelfName = "surveyor"
	PeerName = "respondent"
)

const defaultSurveyTime = time.Second

type socket struct {
	sync.Mutex
	sock protocol.ProtocolSocket
	dist protocol.Distributor
	fq   protocol.FairQueue

	nextid   uint32
	surveyID uint32
	active   bool // a survey is open
	expired  bool // the last survey timed out
	duration time.Duration
	cancel   func()

	closed bool
}

func (s *socket) Init(sock protocol.ProtocolSocket) {
	s.sock = sock
	s.nextid = uint32(rand.NewSource(time.Now().UnixNano()).Int63())
	s.duration = defaultSurveyTime
	// Starting a survey never waits on slow respondents.
	sock.Writable(true)
}

func (s *socket) nextID() uint32 {
	// High bit set, as with request ids, so respondent backtraces
	// terminate properly.
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
	s.dist.Add(p)
	s.fq.Add(p, protocol.RecvPrio(p))
	return nil
}

func (s *socket) RemovePipe(p protocol.Pipe) {
	s.Lock()
	s.dist.Remove(p)
	s.fq.Remove(p)
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
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.surveyID = s.nextID()
	m.Header = m.Header[:0]
	protocol.PutUint32(m, s.surveyID)
	s.dist.Send(m, nil)
	s.active = true
	s.expired = false
	if s.duration > 0 {
		s.cancel = s.sock.AddTimer(s.duration, s.surveyExpire)
	}
	return nil
}

func (s *socket) surveyExpire() {
	s.Lock()
	s.active = false
	s.expired = true
	s.cancel = nil
	s.Unlock()
	// Wake blocked receivers so they observe the deadline.
	s.sock.Readable(true)
}

func (s *socket) RecvMsg() (*protocol.Message, error) {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return nil, protocol.ErrClosed
	}
	if s.expired {
		return nil, protocol.ErrRecvTimeout
	}
	if !s.active {
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
		if binary.BigEndian.Uint32(m.Body) != s.surveyID {
			// A response to an earlier, concluded survey.
			m.Free()
			continue
		}
		m.Body = m.Body[4:]
		return m, nil
	}
}

func (s *socket) SetOption(name string, value interface{}) error {
	switch name {
	case protocol.OptionSurveyTime:
		if v, ok := value.(time.Duration); ok {
			s.Lock()
			s.duration = v
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
	case protocol.OptionSurveyTime:
		s.Lock()
		v := s.duration
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

// NewSocket allocates a new Socket using the SURVEYOR protocol.
func NewSocket() (protocol.Socket, error) {
	return protocol.NewSocket(NewProtocol())
}
