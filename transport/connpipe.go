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

package transport

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"nanomsg.org/go/spcore"
)

// Conn option names for the address properties of stream pipes.
const (
	PropLocalAddr  = "LOCAL-ADDR"
	PropRemoteAddr = "REMOTE-ADDR"
)

// conn implements the Pipe interface on top of net.Conn.  The
// assumption is that transports using this have similar wire protocols,
// and conn is meant to be used as a building block.
type conn struct {
	c     net.Conn
	rlock sync.Mutex
	wlock sync.Mutex
	self  ProtocolInfo
	maxrx int
	props map[string]interface{}
}

// connipc is *almost* like a regular conn, but the IPC protocol insists
// on stuffing a leading byte (valued 1) in front of messages.  This is
// for compatibility with nanomsg -- the value cannot ever be anything
// but 1.
type connipc struct {
	conn
}

// Recv implements the Pipe Recv method.  The message received is
// expected as a 64-bit size (network byte order) followed by the
// message itself.
func (p *conn) Recv() (*Message, error) {
	var sz int64

	// prevent interleaved reads
	p.rlock.Lock()
	defer p.rlock.Unlock()

	if err := binary.Read(p.c, binary.BigEndian, &sz); err != nil {
		return nil, err
	}

	// Refuse a size the peer could use to make us allocate silly
	// amounts of memory.  The core drops overlong messages again at
	// the pipe boundary; this check merely protects the allocator.
	if sz < 0 || (p.maxrx > 0 && sz > int64(p.maxrx)) {
		p.c.Close()
		return nil, spcore.ErrTooLong
	}
	m := spcore.NewMessage(int(sz))
	m.Body = m.Body[0:sz]
	if _, err := io.ReadFull(p.c, m.Body); err != nil {
		m.Free()
		return nil, err
	}
	return m, nil
}

// Send implements the Pipe Send method.  The message is sent as a
// 64-bit size (network byte order) followed by the message itself.
func (p *conn) Send(m *Message) error {
	l := uint64(len(m.Header) + len(m.Body))

	// prevent interleaved writes
	p.wlock.Lock()
	defer p.wlock.Unlock()

	if err := binary.Write(p.c, binary.BigEndian, l); err != nil {
		return err
	}
	if _, err := p.c.Write(m.Header); err != nil {
		return err
	}
	if _, err := p.c.Write(m.Body); err != nil {
		return err
	}
	m.Free()
	return nil
}

// Close implements the Pipe Close method.
func (p *conn) Close() error {
	return p.c.Close()
}

func (p *conn) GetOption(n string) (interface{}, error) {
	if v, ok := p.props[n]; ok {
		return v, nil
	}
	return nil, spcore.ErrBadOption
}

// NewConnPipe allocates a new Pipe using the supplied net.Conn, and
// initializes it.  It performs the handshake required at the SP layer,
// only returning the Pipe once the SP layer negotiation is complete.
//
// Stream oriented transports can utilize this to implement a Transport.
// The implementation will also need to implement Dialer, Listener, and
// the Transport enclosing structure.  Using this layered interface, the
// implementation needn't bother concerning itself with passing actual
// SP messages once the lower layer connection is established.
func NewConnPipe(c net.Conn, self ProtocolInfo, maxrx int) (Pipe, error) {
	p := &conn{c: c, self: self, maxrx: maxrx}
	p.props = map[string]interface{}{
		PropLocalAddr:  c.LocalAddr(),
		PropRemoteAddr: c.RemoteAddr(),
	}
	if err := p.handshake(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewConnPipeIPC allocates a new Pipe using the IPC exchange protocol.
func NewConnPipeIPC(c net.Conn, self ProtocolInfo, maxrx int) (Pipe, error) {
	p := &connipc{conn: conn{c: c, self: self, maxrx: maxrx}}
	p.props = map[string]interface{}{
		PropLocalAddr:  c.LocalAddr(),
		PropRemoteAddr: c.RemoteAddr(),
	}
	if err := p.handshake(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *connipc) Send(m *Message) error {
	l := uint64(len(m.Header) + len(m.Body))
	one := [1]byte{1}

	p.wlock.Lock()
	defer p.wlock.Unlock()

	if _, err := p.c.Write(one[:]); err != nil {
		return err
	}
	if err := binary.Write(p.c, binary.BigEndian, l); err != nil {
		return err
	}
	if _, err := p.c.Write(m.Header); err != nil {
		return err
	}
	if _, err := p.c.Write(m.Body); err != nil {
		return err
	}
	m.Free()
	return nil
}

func (p *connipc) Recv() (*Message, error) {
	var sz int64
	var one [1]byte

	p.rlock.Lock()
	defer p.rlock.Unlock()

	if _, err := io.ReadFull(p.c, one[:]); err != nil {
		return nil, err
	}
	if err := binary.Read(p.c, binary.BigEndian, &sz); err != nil {
		return nil, err
	}
	if sz < 0 || (p.maxrx > 0 && sz > int64(p.maxrx)) {
		p.c.Close()
		return nil, spcore.ErrTooLong
	}
	m := spcore.NewMessage(int(sz))
	m.Body = m.Body[0:sz]
	if _, err := io.ReadFull(p.c, m.Body); err != nil {
		m.Free()
		return nil, err
	}
	return m, nil
}

// connHeader is exchanged during the initial handshake.
type connHeader struct {
	Zero    byte // must be zero
	S       byte // 'S'
	P       byte // 'P'
	Version byte // only zero at present
	Proto   uint16
	Rsvd    uint16 // always zero at present
}

// handshake establishes an SP connection between peers.  Both sides
// must send the header, then both sides must wait for the peer's
// header.
func (p *conn) handshake() error {
	var err error

	h := connHeader{S: 'S', P: 'P', Proto: p.self.Self}
	if err = binary.Write(p.c, binary.BigEndian, &h); err != nil {
		return err
	}
	if err = binary.Read(p.c, binary.BigEndian, &h); err != nil {
		p.c.Close()
		return err
	}
	if h.Zero != 0 || h.S != 'S' || h.P != 'P' || h.Rsvd != 0 {
		p.c.Close()
		return spcore.ErrBadHeader
	}
	// The only version number we support at present is "0", at offset 3.
	if h.Version != 0 {
		p.c.Close()
		return spcore.ErrBadVersion
	}

	// The protocol number lives as 16-bits (big-endian) at offset 4.
	if h.Proto != p.self.Peer {
		p.c.Close()
		return spcore.ErrBadProto
	}
	return nil
}
