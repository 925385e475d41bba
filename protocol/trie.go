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
	"bytes"
)

// trieNode is one node of the subscription trie.  The prefix is the
// compressed path from the parent; children are sparse, keyed by the
// first byte of their prefix.  The count is the number of active
// subscriptions terminating exactly here.
type trieNode struct {
	prefix   []byte
	children map[byte]*trieNode
	count    int
}

func (n *trieNode) child(c byte) *trieNode {
	if n.children == nil {
		return nil
	}
	return n.children[c]
}

func (n *trieNode) setChild(c byte, kid *trieNode) {
	if n.children == nil {
		n.children = make(map[byte]*trieNode)
	}
	n.children[c] = kid
}

// Trie is the subscription prefix index used by SUB.  Lookup cost is
// O(k) in the message prefix length; prefixes share storage.  An
// Unsubscribe exactly undoes the matching Subscribe, compacting any
// split it introduced.  Callers provide their own locking.
type Trie struct {
	root trieNode
}

func commonLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// Subscribe adds one subscription for the prefix.  Subscribing to the
// same prefix again just bumps its count.
func (t *Trie) Subscribe(prefix []byte) {
	node := &t.root
	rest := prefix
	for {
		if len(rest) == 0 {
			node.count++
			return
		}
		kid := node.child(rest[0])
		if kid == nil {
			leaf := &trieNode{prefix: append([]byte{}, rest...), count: 1}
			node.setChild(rest[0], leaf)
			return
		}
		k := commonLen(kid.prefix, rest)
		if k == len(kid.prefix) {
			node = kid
			rest = rest[k:]
			continue
		}
		// Split the child at the divergence point.
		mid := &trieNode{prefix: kid.prefix[:k]}
		kid.prefix = kid.prefix[k:]
		mid.setChild(kid.prefix[0], kid)
		node.setChild(mid.prefix[0], mid)
		if k == len(rest) {
			mid.count = 1
		} else {
			leaf := &trieNode{prefix: append([]byte{}, rest[k:]...), count: 1}
			mid.setChild(leaf.prefix[0], leaf)
		}
		return
	}
}

// Unsubscribe removes one subscription for the prefix, compacting the
// trie.  It returns false if no such subscription exists.
func (t *Trie) Unsubscribe(prefix []byte) bool {
	type step struct {
		parent *trieNode
		key    byte
	}
	var path []step
	node := &t.root
	rest := prefix
	for len(rest) > 0 {
		kid := node.child(rest[0])
		if kid == nil || !bytes.HasPrefix(rest, kid.prefix) {
			return false
		}
		path = append(path, step{parent: node, key: rest[0]})
		rest = rest[len(kid.prefix):]
		node = kid
	}
	if node.count == 0 {
		return false
	}
	node.count--

	// Compact: drop a dead leaf, then merge any pass-through node the
	// removal (or an earlier split) left behind.
	for node != &t.root && node.count == 0 && len(node.children) == 0 {
		last := path[len(path)-1]
		path = path[:len(path)-1]
		delete(last.parent.children, last.key)
		node = last.parent
	}
	if node != &t.root && node.count == 0 && len(node.children) == 1 {
		for _, only := range node.children {
			node.prefix = append(node.prefix, only.prefix...)
			node.count = only.count
			node.children = only.children
		}
	}
	return true
}

// Match returns true if any subscribed prefix is a prefix of the body.
func (t *Trie) Match(body []byte) bool {
	node := &t.root
	rest := body
	for {
		if node.count > 0 {
			return true
		}
		if len(rest) == 0 {
			return false
		}
		kid := node.child(rest[0])
		if kid == nil || !bytes.HasPrefix(rest, kid.prefix) {
			return false
		}
		rest = rest[len(kid.prefix):]
		node = kid
	}
}
