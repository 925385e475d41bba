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
	"sync"
	"sync/atomic"
)

// chunk is the reference counted byte region backing a message body.
// It is immutable once published to more than one message; concurrent
// addRef and release are safe.  The chunk is returned to its pool
// exactly when the count reaches zero.
type chunk struct {
	refcnt int32
	size   int
	buf    []byte
}

func (ch *chunk) addRef() {
	atomic.AddInt32(&ch.refcnt, 1)
}

// release drops one reference, returning true when the chunk died.
func (ch *chunk) release() bool {
	return atomic.AddInt32(&ch.refcnt, -1) == 0
}

// Message encapsulates the messages that we exchange back and forth.  The
// meaning of the Header and Body fields, and where the splits occur, will
// vary depending on the protocol.  Note however that any headers applied by
// transport layers (including TCP/ethernet headers, and SP protocol
// independent length headers), are *not* included in the Header.
//
// The body is backed by a reference counted chunk which may be shared
// between messages (see Dup); the header is small and owned outright by
// each message.  Applications that are done with a Message should call
// Free to return the chunk to the pool.
type Message struct {
	Header []byte
	Body   []byte

	// PipeID is the ID of the pipe the message arrived on, when
	// received.  Zero on messages originated by the application.
	PipeID uint32

	ch     *chunk
	hbuf   []byte
	pooled bool
}

type msgCacheInfo struct {
	maxbody int
	cache   *sync.Pool
}

// We can tweak these!
var messageCache = []msgCacheInfo{
	{maxbody: 64, cache: &sync.Pool{New: func() interface{} { return newChunk(64) }}},
	{maxbody: 1024, cache: &sync.Pool{New: func() interface{} { return newChunk(1024) }}},
	{maxbody: 8192, cache: &sync.Pool{New: func() interface{} { return newChunk(8192) }}},
	{maxbody: 65536, cache: &sync.Pool{New: func() interface{} { return newChunk(65536) }}},
}

func newChunk(sz int) *chunk {
	return &chunk{size: sz, buf: make([]byte, 0, sz)}
}

// Free releases the message to the pool from which it was allocated.
// While this is not strictly necessary thanks to GC, doing so allows
// for the reuse of the underlying chunk, for performance.
func (m *Message) Free() {
	if m == nil || m.ch == nil {
		return
	}
	ch := m.ch
	m.ch = nil
	m.Body = nil
	m.Header = nil
	if !ch.release() {
		return
	}
	if !m.pooled {
		return
	}
	for i := range messageCache {
		if ch.size == messageCache[i].maxbody {
			ch.buf = ch.buf[:0]
			messageCache[i].cache.Put(ch)
			return
		}
	}
}

// Dup creates a second message sharing this message's body chunk without
// copying it.  The header is copied, since protocols edit headers on a
// per-destination basis.  Both messages must be freed independently.
func (m *Message) Dup() *Message {
	dup := &Message{
		Body:   m.Body,
		ch:     m.ch,
		pooled: m.pooled,
		PipeID: m.PipeID,
	}
	if m.ch != nil {
		m.ch.addRef()
	}
	dup.hbuf = make([]byte, 0, 32)
	dup.Header = append(dup.hbuf, m.Header...)
	return dup
}

// NewMessage is the supported way to obtain a new Message.  This makes
// use of a "cache" which greatly reduces the load on the garbage collector.
func NewMessage(sz int) *Message {
	var ch *chunk
	pooled := false
	for i := range messageCache {
		if sz <= messageCache[i].maxbody {
			ch = messageCache[i].cache.Get().(*chunk)
			pooled = true
			break
		}
	}
	if ch == nil {
		ch = newChunk(sz)
	}
	ch.refcnt = 1

	m := &Message{ch: ch, pooled: pooled}
	m.Body = ch.buf
	m.hbuf = make([]byte, 0, 32)
	m.Header = m.hbuf
	return m
}

// MakeMessage builds a Message around a caller-supplied body, taking
// ownership of the slice.  This is the zero copy send path; the caller
// must not touch the slice again.
func MakeMessage(body []byte) *Message {
	m := &Message{ch: &chunk{refcnt: 1, size: cap(body)}}
	m.ch.buf = body
	m.Body = body
	m.hbuf = make([]byte, 0, 32)
	m.Header = m.hbuf
	return m
}
