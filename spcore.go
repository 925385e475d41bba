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

// Package spcore provides a pure Go implementation of the Scalability
// Protocols.  These are more familiarly known as "nanomsg", which is the
// C-based software package that is also their reference implementation.
//
// These protocols facilitate the rapid creation of applications which
// rely on multiple participants in sometimes complex communications
// topologies, including Request/Reply, Publish/Subscribe, Push/Pull,
// Surveyor/Respondent, Pair, and Bus.
//
// Unlike most Go messaging packages, the heavy lifting here is done by
// a small asynchronous engine of worker threads, pollers, and timer
// sets; protocol state machines are policy layers driven by pipe
// readiness events rather than by per-message goroutines.
//
// For more information, see www.nanomsg.org.
package spcore

import (
	"time"
)

// Socket is the main access handle applications use to access the SP
// system.  It is an abstraction of an application's "connection" to a
// messaging topology.  Applications can have more than one Socket open
// at a time.
type Socket interface {
	// Info returns information about the protocol (numbers and names)
	// and peer protocol.
	Info() ProtocolInfo

	// Close closes the open Socket.  Further operations on the socket
	// will return ErrClosed.
	Close() error

	// Send puts the message on the outbound send queue.  It blocks
	// until the message can be queued, or the send deadline expires.
	// If a queued message is later dropped for any reason,
	// there will be no notification back to the application.
	Send([]byte) error

	// Recv receives a complete message.  The entire message is received.
	Recv() ([]byte, error)

	// SendMsg puts the message on the outbound send.  It works like Send,
	// but allows the caller to supply message headers.  AGAIN, the Socket
	// ASSUMES OWNERSHIP OF THE MESSAGE.
	SendMsg(*Message) error

	// RecvMsg receives a complete message, including the message header,
	// which is useful for protocols in raw mode.
	RecvMsg() (*Message, error)

	// Dial connects a remote endpoint to the Socket.  Unless
	// OptionDialAsynch is set, the first connection attempt is made
	// before Dial returns, and its error, if any, is returned; once
	// connected, the connection is maintained in the background,
	// reconnecting as needed.  If the address is invalid, then an
	// error is returned.
	Dial(addr string) error

	DialOptions(addr string, options map[string]interface{}) error

	// NewDialer returns a Dialer object which can be used to get
	// access to the underlying configuration for dialing.
	NewDialer(addr string, options map[string]interface{}) (Dialer, error)

	// Listen connects a local endpoint to the Socket.  Remote peers
	// may connect (e.g. with Dial) and will each be "connected" to
	// the Socket.  The accepter logic is run in a separate goroutine.
	// An error is returned if the address is invalid or cannot be
	// bound (for example ErrAddrInUse).
	Listen(addr string) error

	ListenOptions(addr string, options map[string]interface{}) error

	NewListener(addr string, options map[string]interface{}) (Listener, error)

	// GetOption is used to retrieve an option for a socket.
	GetOption(name string) (interface{}, error)

	// SetOption is used to set an option for a socket.
	SetOption(name string, value interface{}) error

	// SetPipeEventHook sets a PipeEventHook function to be called when a
	// Pipe is added or removed from this socket (connect/disconnect).
	// The previous hook is returned (nil if none.)  (Only one hook can
	// be used at a time.)
	SetPipeEventHook(PipeEventHook) PipeEventHook
}

// Dialer is an interface to the underlying dialer.
type Dialer interface {
	// Close closes the dialer, and removes it from any active socket.
	// Further operations on the Dialer will return ErrClosed.
	Close() error

	// Dial starts connecting on the address.  If a connection fails,
	// it will restart.
	Dial() error

	// Address returns the string (full URL) of the Dialer.
	Address() string

	// GetOption gets an option value from the Dialer.
	GetOption(name string) (interface{}, error)

	// SetOption sets an option value on the Dialer.
	SetOption(name string, value interface{}) error
}

// Listener is an interface to the underlying listener.
type Listener interface {
	// Close closes the listener, and removes it from any active socket.
	// Further operations on the Listener will return ErrClosed.
	Close() error

	// Listen starts listening for new connections on the address.
	Listen() error

	// Address returns the string (full URL) of the Listener.
	Address() string

	// GetOption gets an option value from the Listener.
	GetOption(name string) (interface{}, error)

	// SetOption sets an option value on the Listener.
	SetOption(name string, value interface{}) error
}

// Pipe represents the high level interface to a low level communications
// channel.  There is one of these associated with a given TCP connection,
// for example.  This interface is intended for application use.
//
// Note that applications cannot send or receive data on a Pipe directly.
type Pipe interface {
	// ID returns the numeric ID for this Pipe.  This will be a
	// 31 bit (bit 32 is clear) value for the Pipe, which is unique
	// across all other Pipe instances in the application, while
	// this Pipe exists.  (IDs are recycled on Close, but only after
	// all other Pipe values are used.)
	ID() uint32

	// Address returns the address (URL form) associated with the Pipe.
	// This matches the string passed to Dial() or Listen().
	Address() string

	// GetOption returns an arbitrary option.  The details will vary
	// for different transport types.
	GetOption(name string) (interface{}, error)

	// Listener returns the Listener for this Pipe, or nil if none.
	Listener() Listener

	// Dialer returns the Dialer for this Pipe, or nil if none.
	Dialer() Dialer

	// Close closes the Pipe.  This does a disconnect, or something similar.
	// Note that if a dialer is present and active, it will redial.
	Close() error
}

// PipeEvent determines what is actually transpiring on the Pipe.
type PipeEvent int

const (
	// PipeEventAttaching is called before the Pipe is registered with the
	// socket.  The intention is to permit the application to reject
	// a pipe before it is attached.
	PipeEventAttaching = PipeEvent(iota)

	// PipeEventAttached occurs after the Pipe is attached.
	PipeEventAttached

	// PipeEventDetached occurs after the Pipe has been detached
	// from the socket.
	PipeEventDetached
)

// PipeEventHook is an application supplied function to be called when
// events occur relating to a Pipe.
type PipeEventHook func(PipeEvent, Pipe)

// ProtocolInfo is a description of the protocol.
type ProtocolInfo struct {
	Self     uint16
	Peer     uint16
	SelfName string
	PeerName string
}

// ProtocolPipe is the view of a Pipe that protocol state machines get.
// A pipe is delivered to the protocol exactly once via AddPipe, and torn
// down exactly once via RemovePipe.  Between those, the protocol may call
// Send or Recv only after it has been told the pipe is ready in that
// direction (the initial AddPipe implies neither).
type ProtocolPipe interface {
	// ID returns the pipe's unique 31-bit identifier.
	ID() uint32

	// Send hands one message to the pipe for transmission.  It never
	// blocks.  The return value is true if the pipe can accept more
	// (SENT), and false if the pipe is now unwritable until the next
	// Out event (RELEASE).  Ownership of the message passes to the
	// pipe in either case.
	Send(*Message) bool

	// Recv takes one message from the pipe.  It never blocks; the
	// protocol must only call it after an In event.  The boolean is
	// true if more messages remain (the pipe is still readable), and
	// false if the pipe is drained until the next In event (RELEASE).
	Recv() (*Message, bool)

	// Close closes the underlying pipe.
	Close() error

	// SetPrivate attaches protocol-private per-pipe state.
	SetPrivate(interface{})

	// Private returns the data set with SetPrivate.
	Private() interface{}

	// GetOption returns a transport-specific option for the pipe.
	GetOption(name string) (interface{}, error)
}

// ProtocolSocket is the view of the socket base that protocol state
// machines get.  Protocols use it to report their readiness flags and
// to arrange timers on the socket's worker thread.
type ProtocolSocket interface {
	// Readable reports whether the protocol can deliver a message to
	// the application (the CAN_RECV flag).  Blocked receivers are
	// woken when the flag rises.
	Readable(bool)

	// Writable reports whether the protocol can accept a message from
	// the application (the CAN_SEND flag).  Blocked senders are woken
	// when the flag rises.
	Writable(bool)

	// AddTimer schedules fn to run on the socket's worker thread after
	// d elapses.  The returned function cancels the timer; a canceled
	// timer never fires.
	AddTimer(d time.Duration, fn func()) (cancel func())
}

// ProtocolBase provides the protocol-specific handling for sockets.
// This is the ops vector that protocols provide to the socket base.
// AddPipe, RemovePipe, In and Out are invoked on the socket's worker
// thread, and must not block; Init, Info, Close, SendMsg, RecvMsg,
// SetOption and GetOption are called from the caller's goroutine.
type ProtocolBase interface {
	// Info returns the information describing this protocol.
	Info() ProtocolInfo

	// Init attaches the protocol to its socket base.  It is called
	// exactly once, before any other entry point.
	Init(ProtocolSocket)

	// AddPipe is called when a new Pipe is added to the socket.
	// Typically this is as a result of connect or accept completing.
	// An error rejects the pipe (it will be closed).
	AddPipe(ProtocolPipe) error

	// RemovePipe is called when a Pipe is removed from the socket.
	// Typically this indicates a disconnected or closed connection.
	RemovePipe(ProtocolPipe)

	// In is called when the pipe has become readable.
	In(ProtocolPipe)

	// Out is called when the pipe has become writable.
	Out(ProtocolPipe)

	// SendMsg attempts to queue the message for delivery.  It never
	// blocks; if no pipe can accept the message, ErrAgain is returned
	// and the caller may wait for the CAN_SEND flag to rise.
	SendMsg(*Message) error

	// RecvMsg attempts to retrieve a received message.  It never
	// blocks; ErrAgain is returned if nothing is available.
	RecvMsg() (*Message, error)

	// GetOption is used to retrieve the current value of an option.
	// If the protocol doesn't recognize the option, ErrBadOption
	// should be returned.
	GetOption(string) (interface{}, error)

	// SetOption is used to set an option.  ErrBadOption is returned if
	// the option name is not recognized, ErrBadValue if the value is
	// invalid.
	SetOption(string, interface{}) error

	// Close discards protocol state.  Pending messages are freed.
	Close() error
}

// Useful constants for protocol numbers.  Note that the major protocol number
// is stored in the upper 12 bits, and the minor (subprotocol) is located in
// the bottom 4 bits.
const (
	ProtoPair       = (1 * 16)
	ProtoPub        = (2 * 16)
	ProtoSub        = (2 * 16) + 1
	ProtoReq        = (3 * 16)
	ProtoRep        = (3 * 16) + 1
	ProtoPush       = (5 * 16)
	ProtoPull       = (5 * 16) + 1
	ProtoSurveyor   = (6 * 16) + 2
	ProtoRespondent = (6 * 16) + 3
	ProtoBus        = (7 * 16)
)

// ProtocolName returns the name corresponding to a given protocol number.
// This is useful for transports like WebSocket, which use a text name
// rather than the number in the handshake.
func ProtocolName(number uint16) string {
	names := map[uint16]string{
		ProtoPair:       "pair",
		ProtoPub:        "pub",
		ProtoSub:        "sub",
		ProtoReq:        "req",
		ProtoRep:        "rep",
		ProtoPush:       "push",
		ProtoPull:       "pull",
		ProtoSurveyor:   "surveyor",
		ProtoRespondent: "respondent",
		ProtoBus:        "bus"}
	return names[number]
}

// ValidPeers returns true if the two protocol numbers are valid peers
// for one another.
func ValidPeers(self, peer ProtocolInfo) bool {
	return self.Peer == peer.Self && peer.Peer == self.Self
}
