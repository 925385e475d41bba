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

package spcore

// Device is used to create a forwarding loop between two sockets.  If
// the same socket is listed (or either socket is nil), then a loopback
// device is established instead.  Note that the single socket case is
// only valid for protocols where the underlying protocol can peer for
// itself (e.g. PAIR or BUS, but not REQ/REP or PUB/SUB!)  Both sockets
// must be raw; devices rely on the envelope riding in message headers.
//
// If the plumbing is successful, nil will be returned.  Two goroutines
// are established to forward messages in each direction.  If either
// socket returns an error on receive or send, the goroutine doing the
// forwarding exits; closing either socket therefore tears the device
// down.
func Device(s1 Socket, s2 Socket) error {
	if s1 == nil {
		s1 = s2
	}
	if s2 == nil {
		s2 = s1
	}
	if s1 == nil {
		return ErrClosed
	}
	for _, s := range []Socket{s1, s2} {
		if v, err := s.GetOption(OptionRaw); err != nil {
			return err
		} else if raw, ok := v.(bool); !ok || !raw {
			return ErrNotRaw
		}
	}
	if !ValidPeers(s1.Info(), s2.Info()) {
		return ErrBadProto
	}

	go forwarder(s1, s2)
	if s1 != s2 {
		go forwarder(s2, s1)
	}
	return nil
}

// forwarder takes messages from one socket, and sends them to the
// other.
func forwarder(src Socket, dst Socket) {
	for {
		m, err := src.RecvMsg()
		if err != nil {
			return
		}
		if err := dst.SendMsg(m); err != nil {
			m.Free()
			return
		}
	}
}
