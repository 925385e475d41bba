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

package nanomsg

import (
	"sync"
	"time"

	"nanomsg.org/go/spcore"
)

// The handle table maps small integers to sockets, with closed slots
// kept on a free list for reuse.  It has its own lock, never held
// while calling into a socket.
var handles struct {
	sync.Mutex
	socks []*Socket
	free  []int
}

// SocketHandle creates a socket and returns a small integer handle for
// it, in the manner of the C API.
func SocketHandle(d Domain, p Protocol) (int, error) {
	s, err := NewSocket(d, p)
	if err != nil {
		return -1, err
	}
	handles.Lock()
	defer handles.Unlock()
	if n := len(handles.free); n > 0 {
		h := handles.free[n-1]
		handles.free = handles.free[:n-1]
		handles.socks[h] = s
		return h, nil
	}
	handles.socks = append(handles.socks, s)
	return len(handles.socks) - 1, nil
}

func lookup(h int) (*Socket, error) {
	handles.Lock()
	defer handles.Unlock()
	if h < 0 || h >= len(handles.socks) || handles.socks[h] == nil {
		return nil, spcore.ErrBadHandle
	}
	return handles.socks[h], nil
}

// CloseHandle performs linger, tears the socket down, and recycles the
// handle.  Operations on the handle afterwards report ErrBadHandle.
func CloseHandle(h int) error {
	handles.Lock()
	if h < 0 || h >= len(handles.socks) || handles.socks[h] == nil {
		handles.Unlock()
		return spcore.ErrBadHandle
	}
	s := handles.socks[h]
	handles.socks[h] = nil
	handles.free = append(handles.free, h)
	handles.Unlock()
	return s.Close()
}

// BindHandle binds the address, returning an endpoint id.
func BindHandle(h int, addr string) (int, error) {
	s, err := lookup(h)
	if err != nil {
		return -1, err
	}
	ep, err := s.Bind(addr)
	if err != nil {
		return -1, err
	}
	return ep.ID(), nil
}

// ConnectHandle connects to the address, returning an endpoint id.
func ConnectHandle(h int, addr string) (int, error) {
	s, err := lookup(h)
	if err != nil {
		return -1, err
	}
	ep, err := s.Connect(addr)
	if err != nil {
		return -1, err
	}
	return ep.ID(), nil
}

// ShutdownHandle removes one endpoint from the socket.
func ShutdownHandle(h int, eid int) error {
	s, err := lookup(h)
	if err != nil {
		return err
	}
	ep, ok := s.eps[eid]
	if !ok {
		return spcore.ErrBadHandle
	}
	return s.Shutdown(ep)
}

// SendHandle sends the buffer on the socket named by the handle.
func SendHandle(h int, b []byte, flags int) (int, error) {
	s, err := lookup(h)
	if err != nil {
		return -1, err
	}
	return s.Send(b, flags)
}

// RecvHandle receives a message from the socket named by the handle.
func RecvHandle(h int, flags int) ([]byte, error) {
	s, err := lookup(h)
	if err != nil {
		return nil, err
	}
	return s.Recv(flags)
}

// SetOptionHandle sets a socket option by handle.
func SetOptionHandle(h int, name string, value interface{}) error {
	s, err := lookup(h)
	if err != nil {
		return err
	}
	return s.SetOption(name, value)
}

// GetOptionHandle retrieves a socket option by handle.
func GetOptionHandle(h int, name string) (interface{}, error) {
	s, err := lookup(h)
	if err != nil {
		return nil, err
	}
	return s.GetOption(name)
}

// PollItem names one socket and the directions to watch; the R fields
// report the outcome.
type PollItem struct {
	Sock *Socket
	In   bool
	Out  bool
	RIn  bool
	ROut bool
	RErr error
}

func pollOnce(items []PollItem) int {
	n := 0
	for i := range items {
		it := &items[i]
		it.RIn = false
		it.ROut = false
		if it.Sock == nil {
			it.RErr = spcore.ErrBadHandle
			n++
			continue
		}
		if it.In {
			if v, err := it.Sock.GetOption(spcore.OptionCanRecv); err == nil {
				it.RIn = v.(bool)
			}
		}
		if it.Out {
			if v, err := it.Sock.GetOption(spcore.OptionCanSend); err == nil {
				it.ROut = v.(bool)
			}
		}
		if it.RIn || it.ROut {
			n++
		}
	}
	return n
}

// Poll waits until at least one watched socket is ready in a watched
// direction, or until the timeout expires, and returns the ready
// count.  A negative timeout waits forever.  The readiness flags are
// level signals taken from the protocols' CAN_SEND/CAN_RECV state.
func Poll(items []PollItem, timeout time.Duration) (int, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if n := pollOnce(items); n > 0 {
			return n, nil
		}
		if timeout >= 0 && !time.Now().Before(deadline) {
			return 0, nil
		}
		time.Sleep(time.Millisecond)
	}
}
