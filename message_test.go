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

import (
	"bytes"
	"testing"
)

func TestMessageDupSharesBody(t *testing.T) {
	m := NewMessage(16)
	m.Body = append(m.Body, []byte("shared body")...)
	m.Header = append(m.Header, 1, 2, 3, 4)

	d := m.Dup()
	if !bytes.Equal(d.Body, m.Body) {
		t.Fatalf("dup body differs")
	}
	if &d.Body[0] != &m.Body[0] {
		t.Fatalf("dup body was copied, expected shared chunk")
	}
	if !bytes.Equal(d.Header, m.Header) {
		t.Fatalf("dup header differs")
	}
	// Headers are owned per message; editing one must not touch the
	// other.
	d.Header[0] = 99
	if m.Header[0] == 99 {
		t.Fatalf("headers shared storage")
	}

	if m.ch.refcnt != 2 {
		t.Fatalf("expected refcnt 2, got %d", m.ch.refcnt)
	}
	d.Free()
	if m.ch.refcnt != 1 {
		t.Fatalf("expected refcnt 1 after free, got %d", m.ch.refcnt)
	}
	m.Free()
}

func TestMessageDoubleFree(t *testing.T) {
	m := NewMessage(8)
	m.Free()
	// A second Free is a no-op, not a recycle corruption.
	m.Free()
}

func TestMakeMessageOwnership(t *testing.T) {
	body := []byte("caller allocated")
	m := MakeMessage(body)
	if !bytes.Equal(m.Body, body) {
		t.Fatalf("body not adopted")
	}
	m.Free()
}

func TestMessageSizes(t *testing.T) {
	for _, sz := range []int{0, 10, 100, 1000, 10000, 100000, 1 << 20} {
		m := NewMessage(sz)
		if cap(m.Body) < sz {
			t.Fatalf("undersized chunk for %d", sz)
		}
		m.Free()
	}
}
