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

// +build !windows

package ipc

import (
	"net"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/transport"
)

type dialer struct {
	path string
	self transport.ProtocolInfo
	opts *options
}

func (d *dialer) Dial() (transport.Pipe, error) {
	uaddr, err := net.ResolveUnixAddr("unix", d.path)
	if err != nil {
		return nil, spcore.ErrBadAddr
	}
	c, err := net.DialUnix("unix", nil, uaddr)
	if err != nil {
		return nil, err
	}
	return transport.NewConnPipeIPC(c, d.self, d.opts.maxrx())
}

func (d *dialer) SetOption(name string, value interface{}) error {
	return d.opts.set(name, value)
}

func (d *dialer) GetOption(name string) (interface{}, error) {
	return d.opts.get(name)
}

type listener struct {
	path string
	self transport.ProtocolInfo
	opts *options
	l    *net.UnixListener
}

func (l *listener) Listen() error {
	uaddr, err := net.ResolveUnixAddr("unix", l.path)
	if err != nil {
		return spcore.ErrBadAddr
	}
	ul, err := net.ListenUnix("unix", uaddr)
	if err != nil {
		return spcore.ErrAddrInUse
	}
	l.l = ul
	return nil
}

func (l *listener) Accept() (transport.Pipe, error) {
	if l.l == nil {
		return nil, spcore.ErrClosed
	}
	c, err := l.l.AcceptUnix()
	if err != nil {
		return nil, spcore.ErrClosed
	}
	return transport.NewConnPipeIPC(c, l.self, l.opts.maxrx())
}

func (l *listener) Close() error {
	if l.l != nil {
		l.l.Close()
	}
	return nil
}

func (l *listener) Address() string {
	return "ipc://" + l.path
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
