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
)

func TestListOrder(t *testing.T) {
	var list List
	nodes := make([]ListNode, 3)
	list.Init()
	for i := range nodes {
		nodes[i].Value = i
		list.InsertTail(&nodes[i])
	}
	for want := 0; want < 3; want++ {
		n := list.RemoveHead()
		if n == nil || n.Value.(int) != want {
			t.Fatalf("expected %d, got %v", want, n)
		}
	}
	if list.HeadNode() != nil {
		t.Fatalf("list should be empty")
	}
}

func TestListReinsertKeepsPosition(t *testing.T) {
	var list List
	nodes := make([]ListNode, 2)
	list.Init()
	list.InsertTail(&nodes[0])
	list.InsertTail(&nodes[1])
	// Re-inserting a member must not move it.
	list.InsertTail(&nodes[0])
	if list.HeadNode() != &nodes[0] {
		t.Fatalf("head moved on reinsert")
	}
}

func TestListRemoveForeign(t *testing.T) {
	var list List
	var node ListNode
	list.Init()
	// Removing a node that is on no list is a no-op.
	list.Remove(&node)
	if list.HeadNode() != nil {
		t.Fatalf("list should still be empty")
	}
}

func BenchmarkListInsert(b *testing.B) {
	var list List
	nodes := make([]ListNode, b.N)
	list.Init()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		list.InsertHead(&nodes[i])
	}
}

func BenchmarkListRemove(b *testing.B) {
	var list List
	nodes := make([]ListNode, b.N)
	list.Init()
	for i := 0; i < b.N; i++ {
		list.InsertHead(&nodes[i])
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		list.RemoveTail()
	}
}
