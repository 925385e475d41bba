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
	"testing"
	"time"
)

func TestTimerSetFires(t *testing.T) {
	ts := NewTimerSet()
	ts.Add("a", time.Millisecond*5)
	if d := ts.Timeout(); d < 0 {
		t.Fatalf("expected a finite timeout")
	}
	time.Sleep(time.Millisecond * 10)
	tag, ok := ts.Event()
	if !ok || tag.(string) != "a" {
		t.Fatalf("expected tag a, got %v (%v)", tag, ok)
	}
	if _, ok := ts.Event(); ok {
		t.Fatalf("spurious second event")
	}
}

func TestTimerSetRemovedNeverFires(t *testing.T) {
	ts := NewTimerSet()
	ts.Add("a", time.Millisecond*5)
	ts.Remove("a")
	time.Sleep(time.Millisecond * 10)
	if _, ok := ts.Event(); ok {
		t.Fatalf("removed timer fired")
	}
	if ts.Len() != 0 {
		t.Fatalf("timer still in set")
	}
}

func TestTimerSetOrdering(t *testing.T) {
	ts := NewTimerSet()
	ts.Add("late", time.Millisecond*20)
	ts.Add("early", time.Millisecond*1)
	time.Sleep(time.Millisecond * 30)
	if tag, ok := ts.Event(); !ok || tag.(string) != "early" {
		t.Fatalf("expected early first, got %v", tag)
	}
	if tag, ok := ts.Event(); !ok || tag.(string) != "late" {
		t.Fatalf("expected late second, got %v", tag)
	}
}

func TestTimerSetTieBreak(t *testing.T) {
	// Identical deadlines resolve in insertion order.
	ts := NewTimerSet()
	ts.Add("first", 0)
	ts.Add("second", 0)
	if tag, _ := ts.Event(); tag.(string) != "first" {
		t.Fatalf("tie-break violated: got %v", tag)
	}
	if tag, _ := ts.Event(); tag.(string) != "second" {
		t.Fatalf("tie-break violated on second: got %v", tag)
	}
}

func TestTimerSetEmptyTimeout(t *testing.T) {
	ts := NewTimerSet()
	if d := ts.Timeout(); d >= 0 {
		t.Fatalf("empty set should wait forever, got %v", d)
	}
}

func TestWorkerTimerCancel(t *testing.T) {
	w := NewWorker(0)
	defer w.Close()
	fired := make(chan struct{}, 1)
	tm := w.NewTimer(func() {
		fired <- struct{}{}
	})
	tm.Schedule(time.Millisecond * 10)
	tm.Cancel()
	select {
	case <-fired:
		t.Fatalf("canceled timer fired")
	case <-time.After(time.Millisecond * 50):
	}
}

func TestWorkerTimerFires(t *testing.T) {
	w := NewWorker(0)
	defer w.Close()
	fired := make(chan struct{}, 1)
	tm := w.NewTimer(func() {
		fired <- struct{}{}
	})
	tm.Schedule(time.Millisecond * 5)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("timer did not fire")
	}
}
