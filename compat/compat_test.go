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
	"testing"
	"time"

	"nanomsg.org/go/spcore"
)

func TestHandleTable(t *testing.T) {
	h, err := SocketHandle(AF_SP, PAIR)
	if err != nil {
		t.Fatalf("SocketHandle: %v", err)
	}
	if err := CloseHandle(h); err != nil {
		t.Fatalf("CloseHandle: %v", err)
	}

	// Invariant: operations on a closed handle report a bad handle.
	if _, err := SendHandle(h, []byte("x"), 0); err != spcore.ErrBadHandle {
		t.Fatalf("send on closed handle: %v", err)
	}
	if _, err := RecvHandle(h, 0); err != spcore.ErrBadHandle {
		t.Fatalf("recv on closed handle: %v", err)
	}
	if err := CloseHandle(h); err != spcore.ErrBadHandle {
		t.Fatalf("double close: %v", err)
	}

	// Freed slots are reused.
	h2, err := SocketHandle(AF_SP, PAIR)
	if err != nil {
		t.Fatalf("SocketHandle (reuse): %v", err)
	}
	if h2 != h {
		t.Errorf("expected handle reuse, got %d then %d", h, h2)
	}
	CloseHandle(h2)
}

func TestHandleEndpoints(t *testing.T) {
	h1, err := SocketHandle(AF_SP, PAIR)
	if err != nil {
		t.Fatalf("SocketHandle: %v", err)
	}
	defer CloseHandle(h1)
	h2, err := SocketHandle(AF_SP, PAIR)
	if err != nil {
		t.Fatalf("SocketHandle: %v", err)
	}
	defer CloseHandle(h2)

	eid, err := BindHandle(h1, "inproc://compat-ep")
	if err != nil {
		t.Fatalf("BindHandle: %v", err)
	}
	if _, err := ConnectHandle(h2, "inproc://compat-ep"); err != nil {
		t.Fatalf("ConnectHandle: %v", err)
	}

	SetOptionHandle(h1, spcore.OptionRecvDeadline, time.Second)
	SetOptionHandle(h2, spcore.OptionSendDeadline, time.Second)

	if _, err := SendHandle(h2, []byte("hi"), 0); err != nil {
		t.Fatalf("SendHandle: %v", err)
	}
	b, err := RecvHandle(h1, 0)
	if err != nil || string(b) != "hi" {
		t.Fatalf("RecvHandle: %q, %v", b, err)
	}

	if err := ShutdownHandle(h1, eid); err != nil {
		t.Fatalf("ShutdownHandle: %v", err)
	}
	if err := ShutdownHandle(h1, eid); err != spcore.ErrBadHandle {
		t.Fatalf("double shutdown: %v", err)
	}
}

func TestDontWait(t *testing.T) {
	s, err := NewSocket(AF_SP, PULL)
	if err != nil {
		t.Fatalf("NewSocket: %v", err)
	}
	defer s.Close()
	if _, err := s.Bind("inproc://compat-dontwait"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, err := s.Recv(DontWait); err != spcore.ErrAgain {
		t.Fatalf("expected ErrAgain, got %v", err)
	}
}

func TestPoll(t *testing.T) {
	a, err := NewSocket(AF_SP, PAIR)
	if err != nil {
		t.Fatalf("NewSocket: %v", err)
	}
	defer a.Close()
	b, err := NewSocket(AF_SP, PAIR)
	if err != nil {
		t.Fatalf("NewSocket: %v", err)
	}
	defer b.Close()

	if _, err := a.Bind("inproc://compat-poll"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, err := b.Connect("inproc://compat-poll"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	items := []PollItem{{Sock: a, In: true}}

	// Nothing readable yet.
	n, err := Poll(items, time.Millisecond*50)
	if err != nil || n != 0 {
		t.Fatalf("expected quiet poll, got %d, %v", n, err)
	}

	b.SetSendTimeout(time.Second)
	if _, err := b.Send([]byte("wake"), 0); err != nil {
		t.Fatalf("Send: %v", err)
	}

	n, err = Poll(items, time.Second)
	if err != nil || n != 1 || !items[0].RIn {
		t.Fatalf("expected readable poll, got %d (%v) %v", n, items[0], err)
	}
}

func TestCloseLingerBound(t *testing.T) {
	s, err := NewSocket(AF_SP, PUSH)
	if err != nil {
		t.Fatalf("NewSocket: %v", err)
	}
	s.SetLinger(time.Millisecond * 200)
	if _, err := s.Bind("inproc://compat-linger"); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	// No peer is attached, so nothing is queued and close must not
	// wait past the linger bound.
	start := time.Now()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Millisecond*500 {
		t.Fatalf("close exceeded linger bound: %v", elapsed)
	}
}
