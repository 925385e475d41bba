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

package aio

import (
	"sync"
	"testing"
	"time"
)

// testNode is a tiny FSM wrapper used to observe shutdown ordering.
type testNode struct {
	fsm  Fsm
	name string
	rec  *recorder
}

type recorder struct {
	sync.Mutex
	order []string
	done  chan struct{}
}

func (r *recorder) note(name string) {
	r.Lock()
	r.order = append(r.order, name)
	r.Unlock()
}

func newTestNode(name string, parent *Fsm, w *Worker, rec *recorder) *testNode {
	n := &testNode{name: name, rec: rec}
	n.fsm.Init(n.run, n.shutdown, parent, len(name), w)
	return n
}

func (n *testNode) run(src, typ int) {
}

func (n *testNode) shutdown(src, typ int) {
	switch typ {
	case EvStop:
		n.fsm.StopChildren()
	}
	if n.fsm.ChildCount() == 0 {
		n.rec.note(n.name)
		n.fsm.Stopped()
		if n.fsm.parent == nil {
			close(n.rec.done)
		}
	}
}

func TestFsmShutdownOrder(t *testing.T) {
	w := NewWorker(0)
	defer w.Close()

	rec := &recorder{done: make(chan struct{})}
	root := newTestNode("root", nil, w, rec)
	kid1 := newTestNode("kid1", &root.fsm, nil, rec)
	kid2 := newTestNode("kid2", &root.fsm, nil, rec)
	grand := newTestNode("grandkid", &kid1.fsm, nil, rec)

	root.fsm.Start()
	kid1.fsm.Start()
	kid2.fsm.Start()
	grand.fsm.Start()

	root.fsm.Stop()
	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatalf("shutdown did not complete")
	}

	rec.Lock()
	defer rec.Unlock()
	if rec.order[len(rec.order)-1] != "root" {
		t.Fatalf("root reached idle before a descendant: %v", rec.order)
	}
	pos := map[string]int{}
	for i, n := range rec.order {
		pos[n] = i
	}
	if pos["grandkid"] > pos["kid1"] {
		t.Fatalf("grandchild idled after its parent: %v", rec.order)
	}
}

func TestFsmDoubleStop(t *testing.T) {
	w := NewWorker(0)
	defer w.Close()
	rec := &recorder{done: make(chan struct{})}
	root := newTestNode("root", nil, w, rec)
	root.fsm.Start()
	root.fsm.Stop()
	root.fsm.Stop() // idempotent
	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatalf("shutdown did not complete")
	}
	rec.Lock()
	n := len(rec.order)
	rec.Unlock()
	if n != 1 {
		t.Fatalf("stop ran %d times", n)
	}
}

func TestFsmEventAfterIdleDropped(t *testing.T) {
	w := NewWorker(0)
	defer w.Close()

	var got []int
	var mx sync.Mutex
	seen := make(chan struct{}, 8)

	n := &testNode{name: "n", rec: &recorder{done: make(chan struct{})}}
	n.fsm.Init(func(src, typ int) {
		mx.Lock()
		got = append(got, typ)
		mx.Unlock()
		seen <- struct{}{}
	}, func(src, typ int) {
		n.fsm.Stopped()
	}, nil, 1, w)

	n.fsm.Start()
	n.fsm.Post(EvUser)
	<-seen // EvStart
	<-seen // EvUser
	n.fsm.Stop()

	// Give the stop time to land, then poke the corpse.
	time.Sleep(time.Millisecond * 20)
	n.fsm.Post(EvUser)
	time.Sleep(time.Millisecond * 20)

	mx.Lock()
	defer mx.Unlock()
	if len(got) != 2 {
		t.Fatalf("event delivered after idle: %v", got)
	}
}
