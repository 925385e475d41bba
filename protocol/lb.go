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

package protocol

// LoadBalancer is the round-robin send discipline: an ordered list of
// pipes currently writable.  Send picks the head and rotates.  Pipes of
// a lower priority number are preferred; equal priorities take turns.
type LoadBalancer struct {
	pl PrioList
}

// Add registers the pipe (not yet writable).
func (lb *LoadBalancer) Add(p Pipe, prio int) {
	lb.pl.Add(p, prio)
}

// Remove deregisters the pipe.
func (lb *LoadBalancer) Remove(p Pipe) {
	lb.pl.Remove(p)
}

// Out marks the pipe writable.
func (lb *LoadBalancer) Out(p Pipe) {
	lb.pl.Activate(p)
}

// CanSend reports whether any pipe is writable.
func (lb *LoadBalancer) CanSend() bool {
	return lb.pl.Len() > 0
}

// Send delivers the message to the next writable pipe.  The boolean is
// false when no pipe could accept it; the caller retains ownership of
// the message in that case.
func (lb *LoadBalancer) Send(m *Message) bool {
	p, ok := lb.pl.Pop()
	if !ok {
		return false
	}
	if p.Send(m) {
		// Still writable; rotate to the tail of its class.
		lb.pl.Activate(p)
	}
	return true
}

// SendTo is like Send but skips the named pipe, when an alternative is
// available.  REQ uses this to retry on a different path.
func (lb *LoadBalancer) SendTo(m *Message, avoid Pipe) (Pipe, bool) {
	p, ok := lb.pl.Pop()
	if !ok {
		return nil, false
	}
	if p == avoid {
		if alt, ok := lb.pl.Pop(); ok {
			// Put the avoided pipe back in rotation.
			lb.pl.Activate(p)
			p = alt
		}
	}
	if p.Send(m) {
		lb.pl.Activate(p)
	}
	return p, true
}
