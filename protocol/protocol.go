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

// Package protocol implements some common things protocol implementors
// need.  Only protocol implementations should import this package.
package protocol

import (
	"encoding/binary"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/errors"
	"nanomsg.org/go/spcore/internal/core"
)

// Protocol numbers
const (
	ProtoPair       = spcore.ProtoPair
	ProtoPub        = spcore.ProtoPub
	ProtoSub        = spcore.ProtoSub
	ProtoReq        = spcore.ProtoReq
	ProtoRep        = spcore.ProtoRep
	ProtoPush       = spcore.ProtoPush
	ProtoPull       = spcore.ProtoPull
	ProtoSurveyor   = spcore.ProtoSurveyor
	ProtoRespondent = spcore.ProtoRespondent
	ProtoBus        = spcore.ProtoBus
)

// Pipe is a single connection as seen by protocol cores.
type Pipe = spcore.ProtocolPipe

// Info describes a protocol and it's peer.
type Info = spcore.ProtocolInfo

// Protocol is the main ops vector for a protocol.
type Protocol = spcore.ProtocolBase

// ProtocolSocket is the upward view protocols have of their socket.
type ProtocolSocket = spcore.ProtocolSocket

// Socket is the interface definition of a spcore.Socket.
// We need this for creating new ones.
type Socket = spcore.Socket

// Message is an alias for the common spcore.Message.
type Message = spcore.Message

// NewMessage is an alias for spcore.NewMessage.
var NewMessage = spcore.NewMessage

// Borrow common error codes for convenience.
const (
	ErrAgain       = errors.ErrAgain
	ErrClosed      = errors.ErrClosed
	ErrSendTimeout = errors.ErrSendTimeout
	ErrRecvTimeout = errors.ErrRecvTimeout
	ErrBadValue    = errors.ErrBadValue
	ErrBadOption   = errors.ErrBadOption
	ErrProtoOp     = errors.ErrProtoOp
	ErrProtoState  = errors.ErrProtoState
	ErrTooShort    = errors.ErrTooShort
	ErrGarbled     = errors.ErrGarbled
	ErrCanceled    = errors.ErrCanceled
)

// Common option definitions
// We have elided transport-specific options here.
const (
	OptionRaw          = spcore.OptionRaw
	OptionRecvDeadline = spcore.OptionRecvDeadline
	OptionSendDeadline = spcore.OptionSendDeadline
	OptionRetryTime    = spcore.OptionRetryTime
	OptionSubscribe    = spcore.OptionSubscribe
	OptionUnsubscribe  = spcore.OptionUnsubscribe
	OptionSurveyTime   = spcore.OptionSurveyTime
	OptionWriteQLen    = spcore.OptionWriteQLen
	OptionReadQLen     = spcore.OptionReadQLen
	OptionLinger       = spcore.OptionLinger
	OptionTTL          = spcore.OptionTTL
	OptionBestEffort   = spcore.OptionBestEffort
	OptionSendPrio     = spcore.OptionSendPrio
	OptionRecvPrio     = spcore.OptionRecvPrio
)

// SendPrio returns the delivery priority configured for the pipe's
// endpoint, for use with load balancing disciplines.
func SendPrio(p Pipe) int {
	if v, err := p.GetOption(OptionSendPrio); err == nil {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return DefaultPrio
}

// RecvPrio returns the receive priority configured for the pipe's
// endpoint, for use with fair queueing disciplines.
func RecvPrio(p Pipe) int {
	if v, err := p.GetOption(OptionRecvPrio); err == nil {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return DefaultPrio
}

// MakeSocket creates a Socket on top of a Protocol.
func MakeSocket(proto Protocol) Socket {
	return core.MakeSocket(proto)
}

// NewSocket creates a Socket on top of a Protocol, reporting
// initialization failures to the caller.
func NewSocket(proto Protocol) (Socket, error) {
	return core.NewSocket(proto)
}

// PutUint32 appends a 32-bit value to the header in the protocol's
// big endian wire order.
func PutUint32(m *Message, v uint32) {
	m.Header = append(m.Header,
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// GetUint32 retrieves a 32-bit value from the front of the message
// header, shortening the header by four bytes.
func GetUint32(m *Message) (uint32, error) {
	if len(m.Header) < 4 {
		return 0, ErrTooShort
	}
	v := binary.BigEndian.Uint32(m.Header)
	m.Header = m.Header[4:]
	return v, nil
}

// TrimUint32 moves a 32-bit value from the front of the body to the end
// of the header.  No check of the value is done.
func TrimUint32(m *Message) error {
	if len(m.Body) < 4 {
		return ErrGarbled
	}
	m.Header = append(m.Header, m.Body[:4]...)
	m.Body = m.Body[4:]
	return nil
}

// TrimBackTrace modifies the message moving the backtrace from the body
// to the header.  The end of the backtrace is a 32-bit value with the
// high-order bit set (the request id usually).
func TrimBackTrace(m *Message) error {
	for {
		if err := TrimUint32(m); err != nil {
			return err
		}
		// Check for high order bit set (0x80000000, big endian)
		if m.Header[len(m.Header)-4]&0x80 != 0 {
			return nil
		}
	}
}
