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

import (
	"testing"
)

// fakePipe is a minimal in-memory ProtocolPipe for exercising the
// helper disciplines without a socket underneath.
type fakePipe struct {
	id   uint32
	sent []*Message
	inq  []*Message
	room int
	priv interface{}
}

func (f *fakePipe) ID() uint32 { return f.id }

func (f *fakePipe) Send(m *Message) bool {
	f.sent = append(f.sent, m)
	return len(f.sent) < f.room
}

func (f *fakePipe) Recv() (*Message, bool) {
	if len(f.inq) == 0 {
		return nil, false
	}
	m := f.inq[0]
	f.inq = f.inq[1:]
	return m, len(f.inq) > 0
}

func (f *fakePipe) Close() error             { return nil }
func (f *fakePipe) SetPrivate(v interface{}) { f.priv = v }
func (f *fakePipe) Private() interface{}     { return f.priv }

func (f *fakePipe) GetOption(string) (interface{}, error) {
	return nil, ErrBadOption
}

func TestPrioListRotation(t *testing.T) {
	var pl PrioList
	a := &fakePipe{id: 1}
	b := &fakePipe{id: 2}
	pl.Add(a, DefaultPrio)
	pl.Add(b, DefaultPrio)
	pl.Activate(a)
	pl.Activate(b)

	p, ok := pl.Pop()
	if !ok || p != Pipe(a) {
		t.Fatalf("expected a first")
	}
	pl.Activate(a)
	if p, _ := pl.Pop(); p != Pipe(b) {
		t.Fatalf("expected b second (rotation)")
	}
}

func TestPrioListPriorities(t *testing.T) {
	var pl PrioList
	low := &fakePipe{id: 1}
	high := &fakePipe{id: 2}
	pl.Add(low, 9)
	pl.Add(high, 2)
	pl.Activate(low)
	pl.Activate(high)

	if p, _ := pl.Pop(); p != Pipe(high) {
		t.Fatalf("lower-numbered priority must win")
	}
	if p, _ := pl.Pop(); p != Pipe(low) {
		t.Fatalf("expected the remaining pipe")
	}
	if _, ok := pl.Pop(); ok {
		t.Fatalf("pop from empty list")
	}
}

func TestPrioListRemoveActive(t *testing.T) {
	var pl PrioList
	a := &fakePipe{id: 1}
	pl.Add(a, DefaultPrio)
	pl.Activate(a)
	pl.Remove(a)
	if pl.Len() != 0 {
		t.Fatalf("active count leaked")
	}
	if _, ok := pl.Pop(); ok {
		t.Fatalf("removed pipe still pops")
	}
}

func TestFairQueueOneMessagePerTurn(t *testing.T) {
	var fq FairQueue
	fast := &fakePipe{id: 1}
	slow := &fakePipe{id: 2}
	for i := 0; i < 3; i++ {
		fast.inq = append(fast.inq, NewMessage(0))
	}
	slow.inq = append(slow.inq, NewMessage(0))

	fq.Add(fast, DefaultPrio)
	fq.Add(slow, DefaultPrio)
	fq.In(fast)
	fq.In(slow)

	// fast, slow, fast, fast -- the slow peer is not starved.
	var order []uint32
	for {
		fastBefore := len(fast.inq)
		m, ok := fq.Recv()
		if !ok {
			break
		}
		m.Free()
		if len(fast.inq) < fastBefore {
			order = append(order, fast.id)
		} else {
			order = append(order, slow.id)
		}
		if len(order) > 8 {
			t.Fatalf("runaway fair queue")
		}
	}
	want := []uint32{fast.id, slow.id, fast.id, fast.id}
	if len(order) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order %v, want %v", order, want)
		}
	}
}

func TestDistributorSkips(t *testing.T) {
	var d Distributor
	a := &fakePipe{id: 1, room: 100}
	b := &fakePipe{id: 2, room: 100}
	d.Add(a)
	d.Add(b)
	d.Out(a)
	d.Out(b)

	m := NewMessage(4)
	m.Body = append(m.Body, 'x')
	d.Send(m, b)
	if len(a.sent) != 1 || len(b.sent) != 0 {
		t.Fatalf("skip not honored: a=%d b=%d", len(a.sent), len(b.sent))
	}
}

func TestExclusive(t *testing.T) {
	var x Exclusive
	a := &fakePipe{id: 1}
	b := &fakePipe{id: 2}
	if err := x.Add(a); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := x.Add(b); err == nil {
		t.Fatalf("second add should fail")
	}
	x.Remove(b) // not the holder; no effect
	if x.Pipe() != Pipe(a) {
		t.Fatalf("holder evicted by stranger")
	}
	x.Remove(a)
	if x.Pipe() != nil {
		t.Fatalf("slot not released")
	}
}
