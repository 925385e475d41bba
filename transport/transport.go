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

// Package transport defines the contract between the core and concrete
// transports.  A transport's only obligation toward the core is that
// each attached endpoint yields pipes that deliver whole messages and
// accept whole messages; readiness bookkeeping happens in the core's
// pipe layer.
package transport

import (
	"net"
	"strings"
	"sync"

	"nanomsg.org/go/spcore"
)

// Message is an alias for the spcore.Message.
type Message = spcore.Message

// ProtocolInfo is stuff that describes a protocol.
type ProtocolInfo = spcore.ProtocolInfo

// Pipe is a transport pipe: a single established connection carrying
// whole messages in both directions.  Send and Recv may block; the core
// bridges them onto its readiness model.
type Pipe interface {
	// Send sends a complete message.  The transport owns it afterward.
	Send(*Message) error

	// Recv receives a complete message.
	Recv() (*Message, error)

	// Close closes the connection.  Pending Send and Recv calls are
	// woken with an error (ErrClosed for inproc; stream transports
	// return the underlying connection's error).
	Close() error

	// GetOption returns a transport specific property, such as the
	// local address, or ErrBadOption.
	GetOption(name string) (interface{}, error)
}

// Dialer is a factory that creates Pipes by connecting to remote
// listeners.
type Dialer interface {
	// Dial establishes one connection.  It blocks until the connection
	// is made or fails.
	Dial() (Pipe, error)

	// SetOption sets a local option on the dialer.
	SetOption(name string, value interface{}) error

	// GetOption gets a local option from the dialer.
	GetOption(name string) (interface{}, error)
}

// Listener is a factory that creates Pipes by listening to inbound
// dialers.
type Listener interface {
	// Listen begins listening.  The address is bound at this point,
	// not at creation, so that options can be applied first.
	Listen() error

	// Accept blocks until an inbound connection completes.
	Accept() (Pipe, error)

	// Close stops listening and wakes pending Accepts with ErrClosed.
	Close() error

	// Address returns the local address, in URL form.
	Address() string

	// SetOption sets a local option on the listener.
	SetOption(name string, value interface{}) error

	// GetOption gets a local option from the listener.
	GetOption(name string) (interface{}, error)
}

// Transport is the scheme-level factory.
type Transport interface {
	// Scheme returns the URL scheme, such as "tcp" or "inproc".
	Scheme() string

	// NewDialer creates a dialer for the address.
	NewDialer(addr string, self ProtocolInfo) (Dialer, error)

	// NewListener creates a listener for the address.
	NewListener(addr string, self ProtocolInfo) (Listener, error)
}

// StripScheme removes the leading scheme (such as "tcp://") from an
// address string.  This is mostly a utility for transport providers.
func StripScheme(t Transport, addr string) (string, error) {
	if !strings.HasPrefix(addr, t.Scheme()+"://") {
		return addr, spcore.ErrBadTran
	}
	return addr[len(t.Scheme()+"://"):], nil
}

// ResolveTCPAddr is like net.ResolveTCPAddr, but it handles the
// wildcard used in nanomsg URLs, replacing it with an empty
// string to indicate that all local interfaces be used.  When ipv4only
// is set, names resolve to IPv4 addresses exclusively.
func ResolveTCPAddr(addr string, ipv4only bool) (*net.TCPAddr, error) {
	if strings.HasPrefix(addr, "*") {
		addr = addr[1:]
	}
	network := "tcp"
	if ipv4only {
		network = "tcp4"
	}
	return net.ResolveTCPAddr(network, addr)
}

var lock sync.RWMutex
var transports = map[string]Transport{}

// RegisterTransport is used to register the transport globally,
// after which it will be available for all sockets.  The
// transport will override any others registered for the same
// scheme.
func RegisterTransport(t Transport) {
	lock.Lock()
	transports[t.Scheme()] = t
	lock.Unlock()
}

// GetTransport is used by a socket to lookup the transport
// for a given scheme.
func GetTransport(scheme string) Transport {
	lock.RLock()
	defer lock.RUnlock()
	if t, ok := transports[scheme]; ok {
		return t
	}
	return nil
}
