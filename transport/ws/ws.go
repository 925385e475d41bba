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

// Package ws implements a simple WebSocket transport, hosted on a
// plain HTTP server.  Each message rides in one binary WebSocket
// frame; the SP protocol identity travels in the subprotocol name
// during the handshake, so no SP header exchange happens in band.
// To enable it simply import it.
package ws

import (
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/transport"
)

type wsPipe struct {
	ws    *websocket.Conn
	self  transport.ProtocolInfo
	maxrx int
	wlock sync.Mutex
	rlock sync.Mutex
}

func (w *wsPipe) Recv() (*transport.Message, error) {
	w.rlock.Lock()
	defer w.rlock.Unlock()

	mt, body, err := w.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	if mt != websocket.BinaryMessage {
		return nil, spcore.ErrGarbled
	}
	if w.maxrx > 0 && len(body) > w.maxrx {
		return nil, spcore.ErrTooLong
	}
	m := spcore.NewMessage(len(body))
	m.Body = append(m.Body, body...)
	return m, nil
}

func (w *wsPipe) Send(m *transport.Message) error {
	w.wlock.Lock()
	defer w.wlock.Unlock()

	var buf []byte
	if len(m.Header) > 0 {
		buf = make([]byte, 0, len(m.Header)+len(m.Body))
		buf = append(buf, m.Header...)
		buf = append(buf, m.Body...)
	} else {
		buf = m.Body
	}
	if err := w.ws.WriteMessage(websocket.BinaryMessage, buf); err != nil {
		return err
	}
	m.Free()
	return nil
}

func (w *wsPipe) Close() error {
	return w.ws.Close()
}

func (w *wsPipe) GetOption(name string) (interface{}, error) {
	switch name {
	case transport.PropLocalAddr:
		return w.ws.LocalAddr(), nil
	case transport.PropRemoteAddr:
		return w.ws.RemoteAddr(), nil
	}
	return nil, spcore.ErrBadOption
}

type options struct {
	sync.Mutex
	maxRx int
}

func (o *options) set(name string, value interface{}) error {
	o.Lock()
	defer o.Unlock()
	switch name {
	case spcore.OptionMaxRecvSize:
		if v, ok := value.(int); ok && v >= 0 {
			o.maxRx = v
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
	case spcore.OptionMaxRecvSize:
		return o.maxRx, nil
	}
	return nil, spcore.ErrBadOption
}

func (o *options) maxrx() int {
	o.Lock()
	defer o.Unlock()
	return o.maxRx
}

type dialer struct {
	addr string // host:port/path
	url  string
	self transport.ProtocolInfo
	opts *options
}

func (d *dialer) Dial() (transport.Pipe, error) {
	wd := websocket.Dialer{}
	wd.Subprotocols = []string{d.self.PeerName + ".sp.nanomsg.org"}
	ws, _, err := wd.Dial(d.url, nil)
	if err != nil {
		return nil, err
	}
	return &wsPipe{ws: ws, self: d.self, maxrx: d.opts.maxrx()}, nil
}

func (d *dialer) SetOption(name string, value interface{}) error {
	return d.opts.set(name, value)
}

func (d *dialer) GetOption(name string) (interface{}, error) {
	return d.opts.get(name)
}

type listener struct {
	addr    string
	self    transport.ProtocolInfo
	opts    *options
	ug      websocket.Upgrader
	l       net.Listener
	srv     *http.Server
	acceptq chan *wsPipe
	closeq  chan struct{}
	once    sync.Once
}

// ServeHTTP upgrades inbound HTTP requests to SP-over-WebSocket pipes.
func (l *listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := l.ug.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if ws.Subprotocol() != l.self.SelfName+".sp.nanomsg.org" {
		ws.Close()
		return
	}
	p := &wsPipe{ws: ws, self: l.self, maxrx: l.opts.maxrx()}
	select {
	case l.acceptq <- p:
	case <-l.closeq:
		ws.Close()
	}
}

func (l *listener) Listen() error {
	host, path := splitAddr(l.addr)
	nl, err := net.Listen("tcp", host)
	if err != nil {
		return spcore.ErrAddrInUse
	}
	l.l = nl
	mux := http.NewServeMux()
	if path == "" {
		path = "/"
	}
	mux.Handle(path, l)
	l.srv = &http.Server{Handler: mux}
	go l.srv.Serve(nl)
	return nil
}

func (l *listener) Accept() (transport.Pipe, error) {
	select {
	case p := <-l.acceptq:
		return p, nil
	case <-l.closeq:
		return nil, spcore.ErrClosed
	}
}

func (l *listener) Close() error {
	l.once.Do(func() {
		close(l.closeq)
		if l.l != nil {
			l.l.Close()
		}
	})
	return nil
}

func (l *listener) Address() string {
	if l.l != nil {
		_, path := splitAddr(l.addr)
		return "ws://" + l.l.Addr().String() + path
	}
	return "ws://" + l.addr
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

// splitAddr separates "host:port/path" into its address and path.
func splitAddr(addr string) (string, string) {
	for i := 0; i < len(addr); i++ {
		if addr[i] == '/' {
			return addr[:i], addr[i:]
		}
	}
	return addr, ""
}

type wsTran struct{}

func (t *wsTran) Scheme() string {
	return "ws"
}

func (t *wsTran) NewDialer(addr string, self transport.ProtocolInfo) (transport.Dialer, error) {
	hp, err := transport.StripScheme(t, addr)
	if err != nil {
		return nil, err
	}
	return &dialer{
		addr: hp,
		url:  "ws://" + hp,
		self: self,
		opts: &options{maxRx: 1024 * 1024},
	}, nil
}

func (t *wsTran) NewListener(addr string, self transport.ProtocolInfo) (transport.Listener, error) {
	hp, err := transport.StripScheme(t, addr)
	if err != nil {
		return nil, err
	}
	l := &listener{
		addr:    hp,
		self:    self,
		opts:    &options{maxRx: 1024 * 1024},
		acceptq: make(chan *wsPipe),
		closeq:  make(chan struct{}),
	}
	l.ug.Subprotocols = []string{self.SelfName + ".sp.nanomsg.org"}
	l.ug.CheckOrigin = func(*http.Request) bool { return true }
	return l, nil
}

// NewTransport allocates a new WebSocket transport.
func NewTransport() transport.Transport {
	return &wsTran{}
}

func init() {
	transport.RegisterTransport(NewTransport())
}
