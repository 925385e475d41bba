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
	"reflect"
	"testing"
)

func TestTrieMatch(t *testing.T) {
	var tr Trie
	tr.Subscribe([]byte("BTC"))
	if !tr.Match([]byte("BTC:10")) {
		t.Fatalf("prefix should match")
	}
	if tr.Match([]byte("ETH:2")) {
		t.Fatalf("non-subscribed prefix matched")
	}
	if tr.Match([]byte("BT")) {
		t.Fatalf("shorter body matched")
	}
	if !tr.Match([]byte("BTC")) {
		t.Fatalf("exact length should match")
	}
}

func TestTrieEmptyPrefixMatchesAll(t *testing.T) {
	var tr Trie
	tr.Subscribe(nil)
	if !tr.Match([]byte("anything")) || !tr.Match(nil) {
		t.Fatalf("wildcard subscription should match everything")
	}
}

func TestTrieUnsubscribeRoundTrip(t *testing.T) {
	// subscribe(p) then unsubscribe(p) restores a trie bytewise
	// equivalent to the pre-subscribe trie, including when the
	// subscribe split an existing node.
	cases := [][]string{
		{"foo"},
		{"foobar", "foo"},
		{"foo", "foobar"},
		{"foo", "fob"},
		{"alpha", "beta", "alp"},
	}
	for _, base := range cases {
		var tr Trie
		for _, p := range base {
			tr.Subscribe([]byte(p))
		}
		before := snapshot(&tr.root)

		for _, extra := range []string{"f", "fo", "foox", "fooba", "zulu", ""} {
			tr.Subscribe([]byte(extra))
			if !tr.Unsubscribe([]byte(extra)) {
				t.Fatalf("unsubscribe(%q) failed", extra)
			}
			if !reflect.DeepEqual(before, snapshot(&tr.root)) {
				t.Fatalf("base %v: round trip of %q mutated trie", base, extra)
			}
		}
	}
}

func TestTrieUnsubscribeUnknown(t *testing.T) {
	var tr Trie
	tr.Subscribe([]byte("abc"))
	if tr.Unsubscribe([]byte("abd")) {
		t.Fatalf("unsubscribed a prefix never subscribed")
	}
	if tr.Unsubscribe([]byte("ab")) {
		t.Fatalf("unsubscribed an interior prefix")
	}
	if !tr.Unsubscribe([]byte("abc")) {
		t.Fatalf("valid unsubscribe failed")
	}
}

func TestTrieCounts(t *testing.T) {
	var tr Trie
	tr.Subscribe([]byte("x"))
	tr.Subscribe([]byte("x"))
	if !tr.Unsubscribe([]byte("x")) {
		t.Fatalf("first unsubscribe failed")
	}
	if !tr.Match([]byte("xy")) {
		t.Fatalf("second subscription lost")
	}
	if !tr.Unsubscribe([]byte("x")) {
		t.Fatalf("second unsubscribe failed")
	}
	if tr.Match([]byte("xy")) {
		t.Fatalf("match after full unsubscribe")
	}
}

// snapshot flattens a trie into a comparable structure.
type trieDump struct {
	Prefix   string
	Count    int
	Children map[byte]trieDump
}

func snapshot(n *trieNode) trieDump {
	d := trieDump{
		Prefix:   string(n.prefix),
		Count:    n.count,
		Children: make(map[byte]trieDump),
	}
	for c, kid := range n.children {
		d.Children[c] = snapshot(kid)
	}
	return d
}
