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

// Package nanomsg is a compatibility wrapper.  It offers a minimal
// replacement for the C-style nanomsg API -- integer domains and
// protocol numbers, socket construction by number, endpoint handles,
// and flag-based send/recv -- implemented with the spcore package
// underneath.
//
// New applications should be developed with the spcore API directly;
// this surface exists to ease conversion of existing applications.
package nanomsg

import (
	"errors"
	"time"
)

import (
	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/protocol/bus"
	"nanomsg.org/go/spcore/protocol/pair"
	"nanomsg.org/go/spcore/protocol/pub"
	"nanomsg.org/go/spcore/protocol/pull"
	"nanomsg.org/go/spcore/protocol/push"
	"nanomsg.org/go/spcore/protocol/rep"
	"nanomsg.org/go/spcore/protocol/req"
	"nanomsg.org/go/spcore/protocol/respondent"
	"nanomsg.org/go/spcore/protocol/sub"
	"nanomsg.org/go/spcore/protocol/surveyor"
	"nanomsg.org/go/spcore/protocol/xbus"
	"nanomsg.org/go/spcore/protocol/xpair"
	"nanomsg.org/go/spcore/protocol/xpub"
	"nanomsg.org/go/spcore/protocol/xpull"
	"nanomsg.org/go/spcore/protocol/xpush"
	"nanomsg.org/go/spcore/protocol/xrep"
	"nanomsg.org/go/spcore/protocol/xreq"
	"nanomsg.org/go/spcore/protocol/xrespondent"
	"nanomsg.org/go/spcore/protocol/xsub"
	"nanomsg.org/go/spcore/protocol/xsurveyor"
	_ "nanomsg.org/go/spcore/transport/all"
)

// Domain is the socket domain or address family.  We use it to indicate
// either normal or raw mode sockets.
type Domain int

// Valid domains.
const (
	AF_SP     = Domain(0)
	AF_SP_RAW = Domain(1)
)

// Protocol is the numeric abstraction to the various protocols or
// patterns that the library supports.
type Protocol int

// Valid protocol numbers.
const (
	PUSH       = Protocol(spcore.ProtoPush)
	PULL       = Protocol(spcore.ProtoPull)
	PUB        = Protocol(spcore.ProtoPub)
	SUB        = Protocol(spcore.ProtoSub)
	REQ        = Protocol(spcore.ProtoReq)
	REP        = Protocol(spcore.ProtoRep)
	SURVEYOR   = Protocol(spcore.ProtoSurveyor)
	RESPONDENT = Protocol(spcore.ProtoRespondent)
	BUS        = Protocol(spcore.ProtoBus)
	PAIR       = Protocol(spcore.ProtoPair)
)

// DontWait is the non-blocking flag for Send and Recv.
const DontWait = 1

var (
	errNoFlag    = errors.New("flags not supported")
	errBadDomain = errors.New("domain invalid or not supported")
)

// Socket is the main connection to the underlying library.
type Socket struct {
	sock  spcore.Socket
	proto Protocol
	dom   Domain
	rto   time.Duration
	sto   time.Duration

	eps    map[int]*Endpoint
	nextEP int
}

// Endpoint is one bind or connect instance attached to a socket.
type Endpoint struct {
	Address string
	id      int
	d       spcore.Dialer
	l       spcore.Listener
}

// ID returns the endpoint's identifier, usable with Socket.Shutdown.
func (ep *Endpoint) ID() int {
	return ep.id
}

// String just returns the endpoint address for now.
func (ep *Endpoint) String() string {
	return ep.Address
}

func cooked(p Protocol) (spcore.Socket, error) {
	switch p {
	case PUB:
		return pub.NewSocket()
	case SUB:
		return sub.NewSocket()
	case PUSH:
		return push.NewSocket()
	case PULL:
		return pull.NewSocket()
	case REQ:
		return req.NewSocket()
	case REP:
		return rep.NewSocket()
	case SURVEYOR:
		return surveyor.NewSocket()
	case RESPONDENT:
		return respondent.NewSocket()
	case PAIR:
		return pair.NewSocket()
	case BUS:
		return bus.NewSocket()
	}
	return nil, spcore.ErrBadProto
}

func raw(p Protocol) (spcore.Socket, error) {
	switch p {
	case PUB:
		return xpub.NewSocket()
	case SUB:
		return xsub.NewSocket()
	case PUSH:
		return xpush.NewSocket()
	case PULL:
		return xpull.NewSocket()
	case REQ:
		return xreq.NewSocket()
	case REP:
		return xrep.NewSocket()
	case SURVEYOR:
		return xsurveyor.NewSocket()
	case RESPONDENT:
		return xrespondent.NewSocket()
	case PAIR:
		return xpair.NewSocket()
	case BUS:
		return xbus.NewSocket()
	}
	return nil, spcore.ErrBadProto
}

// NewSocket allocates a new Socket.  The Socket is the handle used to
// access the underlying library.
func NewSocket(d Domain, p Protocol) (*Socket, error) {
	var s Socket
	var err error

	s.proto = p
	s.dom = d

	switch d {
	case AF_SP:
		s.sock, err = cooked(p)
	case AF_SP_RAW:
		s.sock, err = raw(p)
	default:
		err = errBadDomain
	}
	if err != nil {
		return nil, err
	}

	s.rto = -1
	s.sto = -1
	s.eps = make(map[int]*Endpoint)
	s.nextEP = 1
	return &s, nil
}

// Close shuts down the socket.
func (s *Socket) Close() error {
	if s.sock != nil {
		s.sock.Close()
	}
	return nil
}

func (s *Socket) addEndpoint(ep *Endpoint) {
	ep.id = s.nextEP
	s.nextEP++
	s.eps[ep.id] = ep
}

// Bind creates a local endpoint to receive incoming connections from
// remote peers.  This wraps around the Listen() socket interface.
func (s *Socket) Bind(addr string) (*Endpoint, error) {
	l, err := s.sock.NewListener(addr, nil)
	if err != nil {
		return nil, err
	}
	if err := l.Listen(); err != nil {
		return nil, err
	}
	ep := &Endpoint{Address: addr, l: l}
	s.addEndpoint(ep)
	return ep, nil
}

// Connect establishes (asynchronously) a client side connection to a
// remote peer.  The client will attempt to keep reconnecting.  This
// wraps around the Dial() socket interface.
func (s *Socket) Connect(addr string) (*Endpoint, error) {
	d, err := s.sock.NewDialer(addr, nil)
	if err != nil {
		return nil, err
	}
	if err := d.Dial(); err != nil {
		return nil, err
	}
	ep := &Endpoint{Address: addr, d: d}
	s.addEndpoint(ep)
	return ep, nil
}

// Shutdown removes one endpoint (a previous Bind or Connect) from the
// socket, leaving the rest of the socket operational.
func (s *Socket) Shutdown(ep *Endpoint) error {
	if ep == nil {
		return spcore.ErrBadHandle
	}
	if _, ok := s.eps[ep.id]; !ok {
		return spcore.ErrBadHandle
	}
	delete(s.eps, ep.id)
	if ep.l != nil {
		return ep.l.Close()
	}
	if ep.d != nil {
		return ep.d.Close()
	}
	return spcore.ErrBadHandle
}

// Recv receives a message.  For AF_SP_RAW messages the header data will
// be included at the start of the returned byte slice (otherwise it
// will be stripped).  The only flag supported is DontWait.
func (s *Socket) Recv(flags int) ([]byte, error) {
	var b []byte

	switch flags {
	case 0:
		// Legacy nanomsg uses the opposite semantic for negative
		// and zero timeout values.
		switch {
		case s.rto > 0:
			s.sock.SetOption(spcore.OptionRecvDeadline, s.rto)
		case s.rto == 0:
			s.sock.SetOption(spcore.OptionRecvDeadline, time.Duration(-1))
		case s.rto < 0:
			s.sock.SetOption(spcore.OptionRecvDeadline, time.Duration(0))
		}
	case DontWait:
		s.sock.SetOption(spcore.OptionRecvDeadline, time.Duration(-1))
	default:
		return nil, errNoFlag
	}

	m, err := s.sock.RecvMsg()
	if err != nil {
		return nil, err
	}

	if s.dom == AF_SP_RAW {
		b = make([]byte, 0, len(m.Body)+len(m.Header))
		b = append(b, m.Header...)
		b = append(b, m.Body...)
	} else {
		b = make([]byte, 0, len(m.Body))
		b = append(b, m.Body...)
	}
	m.Free()
	return b, nil
}

// Send sends a message.  For AF_SP_RAW messages the header must be
// included in the argument.  The only flag supported is DontWait.
func (s *Socket) Send(b []byte, flags int) (int, error) {
	switch flags {
	case 0:
		switch {
		case s.sto > 0:
			s.sock.SetOption(spcore.OptionSendDeadline, s.sto)
		case s.sto == 0:
			s.sock.SetOption(spcore.OptionSendDeadline, time.Duration(-1))
		case s.sto < 0:
			s.sock.SetOption(spcore.OptionSendDeadline, time.Duration(0))
		}
	case DontWait:
		s.sock.SetOption(spcore.OptionSendDeadline, time.Duration(-1))
	default:
		return -1, errNoFlag
	}

	m := spcore.NewMessage(len(b))
	m.Body = append(m.Body, b...)
	return len(b), s.sock.SendMsg(m)
}

// Protocol returns the numeric value of the socket's protocol, such as
// REQ, REP, SUB, PUB, etc.
func (s *Socket) Protocol() (Protocol, error) {
	return s.proto, nil
}

// Domain returns the socket domain, either AF_SP or AF_SP_RAW.
func (s *Socket) Domain() (Domain, error) {
	return s.dom, nil
}

// SendTimeout retrieves the send timeout.  Negative values indicate
// an infinite timeout.
func (s *Socket) SendTimeout() (time.Duration, error) {
	return s.sto, nil
}

// SetSendTimeout sets the send timeout.  Negative values indicate
// an infinite timeout.  The Send() operation will return an error if
// a message cannot be sent within this time.
func (s *Socket) SetSendTimeout(d time.Duration) error {
	s.sto = d
	return nil
}

// RecvTimeout retrieves the receive timeout.  Negative values indicate
// an infinite timeout.
func (s *Socket) RecvTimeout() (time.Duration, error) {
	return s.rto, nil
}

// SetRecvTimeout sets a timeout for receive operations.  The Recv()
// function will return an error if no message is received within this
// time.
func (s *Socket) SetRecvTimeout(d time.Duration) error {
	s.rto = d
	return nil
}

// SetLinger sets the drain deadline applied when the socket closes.
func (s *Socket) SetLinger(d time.Duration) error {
	return s.sock.SetOption(spcore.OptionLinger, d)
}

// Linger returns the close drain deadline.
func (s *Socket) Linger() (time.Duration, error) {
	var t time.Duration
	v, err := s.sock.GetOption(spcore.OptionLinger)
	if err == nil {
		t = v.(time.Duration)
	}
	return t, err
}

// SetOption passes an option through to the underlying socket.
func (s *Socket) SetOption(name string, value interface{}) error {
	return s.sock.SetOption(name, value)
}

// GetOption retrieves an option from the underlying socket.
func (s *Socket) GetOption(name string) (interface{}, error) {
	return s.sock.GetOption(name)
}

// BusSocket is a socket associated with the BUS protocol.
type BusSocket struct {
	*Socket
}

// NewBusSocket creates a BUS socket.
func NewBusSocket() (*BusSocket, error) {
	s, err := NewSocket(AF_SP, BUS)
	return &BusSocket{s}, err
}

// PairSocket is a socket associated with the PAIR protocol.
type PairSocket struct {
	*Socket
}

// NewPairSocket creates a PAIR socket.
func NewPairSocket() (*PairSocket, error) {
	s, err := NewSocket(AF_SP, PAIR)
	return &PairSocket{s}, err
}

// PubSocket is a socket associated with the PUB protocol.
type PubSocket struct {
	*Socket
}

// NewPubSocket creates a PUB socket.
func NewPubSocket() (*PubSocket, error) {
	s, err := NewSocket(AF_SP, PUB)
	return &PubSocket{s}, err
}

// PullSocket is a socket associated with the PULL protocol.
type PullSocket struct {
	*Socket
}

// NewPullSocket creates a PULL socket.
func NewPullSocket() (*PullSocket, error) {
	s, err := NewSocket(AF_SP, PULL)
	return &PullSocket{s}, err
}

// PushSocket is a socket associated with the PUSH protocol.
type PushSocket struct {
	*Socket
}

// NewPushSocket creates a PUSH socket.
func NewPushSocket() (*PushSocket, error) {
	s, err := NewSocket(AF_SP, PUSH)
	return &PushSocket{s}, err
}

// RepSocket is a socket associated with the REP protocol.
type RepSocket struct {
	*Socket
}

// NewRepSocket creates a REP socket.
func NewRepSocket() (*RepSocket, error) {
	s, err := NewSocket(AF_SP, REP)
	return &RepSocket{s}, err
}

// ReqSocket is a socket associated with the REQ protocol.
type ReqSocket struct {
	*Socket
}

// NewReqSocket creates a REQ socket.
func NewReqSocket() (*ReqSocket, error) {
	s, err := NewSocket(AF_SP, REQ)
	return &ReqSocket{s}, err
}

// RespondentSocket is a socket associated with the RESPONDENT protocol.
type RespondentSocket struct {
	*Socket
}

// NewRespondentSocket creates a RESPONDENT socket.
func NewRespondentSocket() (*RespondentSocket, error) {
	s, err := NewSocket(AF_SP, RESPONDENT)
	return &RespondentSocket{s}, err
}

// SubSocket is a socket associated with the SUB protocol.
type SubSocket struct {
	*Socket
}

// Subscribe registers interest in a topic.
func (s *SubSocket) Subscribe(topic string) error {
	return s.sock.SetOption(spcore.OptionSubscribe, topic)
}

// Unsubscribe unregisters interest in a topic.
func (s *SubSocket) Unsubscribe(topic string) error {
	return s.sock.SetOption(spcore.OptionUnsubscribe, topic)
}

// NewSubSocket creates a SUB socket.
func NewSubSocket() (*SubSocket, error) {
	s, err := NewSocket(AF_SP, SUB)
	return &SubSocket{s}, err
}

// SurveyorSocket is a socket associated with the SURVEYOR protocol.
type SurveyorSocket struct {
	*Socket
}

// Deadline returns the survey deadline on the socket.  After this time,
// responses from a survey will be discarded.
func (s *SurveyorSocket) Deadline() (time.Duration, error) {
	var d time.Duration
	v, err := s.sock.GetOption(spcore.OptionSurveyTime)
	if err == nil {
		d = v.(time.Duration)
	}
	return d, err
}

// SetDeadline sets the survey deadline on the socket.  After this time,
// responses from a survey will be discarded.
func (s *SurveyorSocket) SetDeadline(d time.Duration) error {
	return s.sock.SetOption(spcore.OptionSurveyTime, d)
}

// NewSurveyorSocket creates a SURVEYOR socket.
func NewSurveyorSocket() (*SurveyorSocket, error) {
	s, err := NewSocket(AF_SP, SURVEYOR)
	return &SurveyorSocket{s}, err
}
