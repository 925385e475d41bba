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

// Package inproc implements an simple inproc transport for spcore.
// Both ends must live in the same process; the "wire" is a pair of
// rendezvous channels.  A connect with no matching bind stays pending
// and completes when the bind arrives.
package inproc

import (
	"sync"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/transport"
)

// inproc implements the Pipe interface on top of channels.
type inproc struct {
	rq     chan *transport.Message
	wq     chan *transport.Message
	closeq chan struct{}
	peerq  chan struct{} // peer's closeq
	proto  transport.ProtocolInfo
	addr   string
}

type listener struct {
	addr    string
	proto   transport.ProtocolInfo
	acceptq chan *inproc
	closeq  chan struct{}
	closed  bool
}

type dialer struct {
	addr  string
	proto transport.ProtocolInfo
}

type inprocTran struct{}

// Global registry of listeners, and the condition used to park pending
// connectors until a matching bind shows up.  Never held while issuing
// events elsewhere.
var listeners struct {
	byAddr map[string]*listener
	cv     sync.Cond
	mx     sync.Mutex
}

func init() {
	listeners.byAddr = make(map[string]*listener)
	listeners.cv.L = &listeners.mx
}

func (p *inproc) Recv() (*transport.Message, error) {
	select {
	case m, ok := <-p.rq:
		if m == nil || !ok {
			return nil, spcore.ErrClosed
		}
		return m, nil
	case <-p.closeq:
		return nil, spcore.ErrClosed
	case <-p.peerq:
		// Peer went away; deliver what is already in flight first.
		select {
		case m, ok := <-p.rq:
			if m != nil && ok {
				return m, nil
			}
		default:
		}
		return nil, spcore.ErrClosed
	}
}

func (p *inproc) Send(m *transport.Message) error {
	// Receiving protocols expect to split header and body themselves,
	// and ownership must not be shared across the boundary; flatten
	// into a fresh message.
	nm := spcore.NewMessage(len(m.Header) + len(m.Body))
	nm.Body = append(nm.Body, m.Header...)
	nm.Body = append(nm.Body, m.Body...)
	m.Free()
	select {
	case p.wq <- nm:
		return nil
	case <-p.closeq:
		nm.Free()
		return spcore.ErrClosed
	case <-p.peerq:
		nm.Free()
		return spcore.ErrClosed
	}
}

func (p *inproc) Close() error {
	select {
	case <-p.closeq:
	default:
		close(p.closeq)
	}
	return nil
}

func (p *inproc) GetOption(name string) (interface{}, error) {
	switch name {
	case spcore.OptionLocalAddress:
		return "inproc://" + p.addr, nil
	}
	return nil, spcore.ErrBadOption
}

func (d *dialer) Dial() (transport.Pipe, error) {
	client := &inproc{proto: d.proto, addr: d.addr}
	client.closeq = make(chan struct{})

	listeners.mx.Lock()
	var l *listener
	for {
		var ok bool
		if l, ok = listeners.byAddr[d.addr]; ok && l != nil {
			break
		}
		// No bind yet; stay pending until one arrives.
		listeners.cv.Wait()
	}

	if !spcore.ValidPeers(client.proto, l.proto) {
		listeners.mx.Unlock()
		return nil, spcore.ErrBadProto
	}

	server := &inproc{proto: l.proto, addr: l.addr}
	server.closeq = make(chan struct{})

	server.wq = make(chan *transport.Message)
	server.rq = make(chan *transport.Message)
	client.rq = server.wq
	client.wq = server.rq
	server.peerq = client.closeq
	client.peerq = server.closeq
	listeners.mx.Unlock()

	select {
	case l.acceptq <- server:
		return client, nil
	case <-l.closeq:
		return nil, spcore.ErrConnRefused
	}
}

func (d *dialer) SetOption(string, interface{}) error {
	return spcore.ErrBadOption
}

func (d *dialer) GetOption(string) (interface{}, error) {
	return nil, spcore.ErrBadOption
}

func (l *listener) Listen() error {
	listeners.mx.Lock()
	if l.closed {
		listeners.mx.Unlock()
		return spcore.ErrClosed
	}
	if x, ok := listeners.byAddr[l.addr]; x != nil || ok {
		listeners.mx.Unlock()
		return spcore.ErrAddrInUse
	}
	listeners.byAddr[l.addr] = l
	listeners.cv.Broadcast()
	listeners.mx.Unlock()
	return nil
}

func (l *listener) Accept() (transport.Pipe, error) {
	select {
	case server := <-l.acceptq:
		return server, nil
	case <-l.closeq:
		return nil, spcore.ErrClosed
	}
}

func (l *listener) Close() error {
	listeners.mx.Lock()
	if l.closed {
		listeners.mx.Unlock()
		return spcore.ErrClosed
	}
	l.closed = true
	if listeners.byAddr[l.addr] == l {
		delete(listeners.byAddr, l.addr)
	}
	listeners.cv.Broadcast()
	listeners.mx.Unlock()
	close(l.closeq)
	return nil
}

func (l *listener) Address() string {
	return "inproc://" + l.addr
}

func (l *listener) SetOption(string, interface{}) error {
	return spcore.ErrBadOption
}

func (l *listener) GetOption(name string) (interface{}, error) {
	switch name {
	case spcore.OptionLocalAddress:
		return l.Address(), nil
	}
	return nil, spcore.ErrBadOption
}

func (t *inprocTran) Scheme() string {
	return "inproc"
}

func (t *inprocTran) NewDialer(addr string, self transport.ProtocolInfo) (transport.Dialer, error) {
	name, err := transport.StripScheme(t, addr)
	if err != nil {
		return nil, err
	}
	return &dialer{addr: name, proto: self}, nil
}

func (t *inprocTran) NewListener(addr string, self transport.ProtocolInfo) (transport.Listener, error) {
	name, err := transport.StripScheme(t, addr)
	if err != nil {
		return nil, err
	}
	l := &listener{
		addr:    name,
		proto:   self,
		acceptq: make(chan *inproc),
		closeq:  make(chan struct{}),
	}
	return l, nil
}

// NewTransport allocates a new inproc:// transport.
func NewTransport() transport.Transport {
	return &inprocTran{}
}

func init() {
	transport.RegisterTransport(NewTransport())
}
