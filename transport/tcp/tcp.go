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

// Package tcp implements the TCP transport.  To enable it simply
// import it.
package tcp

import (
	"net"
	"sync"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/transport"
)

type options struct {
	sync.Mutex
	noDelay   bool
	keepAlive bool
	maxRx     int
	ipv4only  bool
}

func newOptions() *options {
	return &options{
		noDelay:   true,
		keepAlive: true,
		maxRx:     1024 * 1024,
		ipv4only:  true,
	}
}

func (o *options) set(name string, value interface{}) error {
	o.Lock()
	defer o.Unlock()
	switch name {
	case spcore.OptionNoDelay:
		if v, ok := value.(bool); ok {
			o.noDelay = v
			return nil
		}
		return spcore.ErrBadValue
	case spcore.OptionKeepAlive:
		if v, ok := value.(bool); ok {
			o.keepAlive = v
			return nil
		}
		return spcore.ErrBadValue
	case spcore.OptionMaxRecvSize:
		if v, ok := value.(int); ok && v >= 0 {
			o.maxRx = v
			return nil
		}
		return spcore.ErrBadValue
	case spcore.OptionIPv4Only:
		if v, ok := value.(bool); ok {
			o.ipv4only = v
			return nil
		}
		return spcore.ErrBadValue
	}
	return spcore.ErrBadOption
}

func (o *options) get(name string) (interface{}, error) {
	o.Lock()
	defer o.Unlock()
	switch name {
	case spcore.OptionNoDelay:
		return o.noDelay, nil
	case spcore.OptionKeepAlive:
		return o.keepAlive, nil
	case spcore.OptionMaxRecvSize:
		return o.maxRx, nil
	case spcore.OptionIPv4Only:
		return o.ipv4only, nil
	}
	return nil, spcore.ErrBadOption
}

// configure applies the conn level options to a fresh connection.
func (o *options) configure(c *net.TCPConn) {
	o.Lock()
	defer o.Unlock()
	c.SetNoDelay(o.noDelay)
	c.SetKeepAlive(o.keepAlive)
}

type dialer struct {
	addr string
	self transport.ProtocolInfo
	opts *options
}

func (d *dialer) Dial() (transport.Pipe, error) {
	d.opts.Lock()
	ipv4only := d.opts.ipv4only
	maxrx := d.opts.maxRx
	d.opts.Unlock()

	taddr, err := transport.ResolveTCPAddr(d.addr, ipv4only)
	if err != nil {
		return nil, err
	}
	c, err := net.DialTCP("tcp", nil, taddr)
	if err != nil {
		return nil, err
	}
	d.opts.configure(c)
	return transport.NewConnPipe(c, d.self, maxrx)
}

func (d *dialer) SetOption(name string, value interface{}) error {
	return d.opts.set(name, value)
}

func (d *dialer) GetOption(name string) (interface{}, error) {
	return d.opts.get(name)
}

type listener struct {
	addr string
	self transport.ProtocolInfo
	opts *options
	l    *net.TCPListener
}

func (l *listener) Listen() error {
	l.opts.Lock()
	ipv4only := l.opts.ipv4only
	l.opts.Unlock()

	taddr, err := transport.ResolveTCPAddr(l.addr, ipv4only)
	if err != nil {
		return err
	}
	tl, err := net.ListenTCP("tcp", taddr)
	if err != nil {
		// The net package reports bind failures with wrapped OS
		// errors; the core wants its own names.
		return spcore.ErrAddrInUse
	}
	l.l = tl
	return nil
}

func (l *listener) Accept() (transport.Pipe, error) {
	if l.l == nil {
		return nil, spcore.ErrClosed
	}
	c, err := l.l.AcceptTCP()
	if err != nil {
		return nil, spcore.ErrClosed
	}
	l.opts.configure(c)
	l.opts.Lock()
	maxrx := l.opts.maxRx
	l.opts.Unlock()
	return transport.NewConnPipe(c, l.self, maxrx)
}

func (l *listener) Close() error {
	if l.l != nil {
		l.l.Close()
	}
	return nil
}

func (l *listener) Address() string {
	if l.l != nil {
		return "tcp://" + l.l.Addr().String()
	}
	return "tcp://" + l.addr
}

func (l *listener) SetOption(name string, value interface{}) error {
	return l.opts.set(name, value)
}

func (l *listener) GetOption(name string) (interface{}, error) {
	if name == spcore.OptionLocalAddress {
		return l.Address(), nil
	}
	return l.opts.get(name)
}

type tcpTran struct{}

func (t *tcpTran) Scheme() string {
	return "tcp"
}

func (t *tcpTran) NewDialer(addr string, self transport.ProtocolInfo) (transport.Dialer, error) {
	var err error
	if addr, err = transport.StripScheme(t, addr); err != nil {
		return nil, err
	}
	// Ensure the address parses so errors surface at creation time.
	if _, err = transport.ResolveTCPAddr(addr, true); err != nil {
		return nil, spcore.ErrBadAddr
	}
	return &dialer{addr: addr, self: self, opts: newOptions()}, nil
}

func (t *tcpTran) NewListener(addr string, self transport.ProtocolInfo) (transport.Listener, error) {
	var err error
	if addr, err = transport.StripScheme(t, addr); err != nil {
		return nil, err
	}
	if _, err = transport.ResolveTCPAddr(addr, true); err != nil {
		return nil, spcore.ErrBadAddr
	}
	return &listener{addr: addr, self: self, opts: newOptions()}, nil
}

// NewTransport allocates a new TCP transport.
func NewTransport() transport.Transport {
	return &tcpTran{}
}

func init() {
	transport.RegisterTransport(NewTransport())
}
