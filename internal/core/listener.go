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

package core

import (
	"sync"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/internal/aio"
	"nanomsg.org/go/spcore/transport"
)

// listener is the binding flavor of endpoint.  It accepts inbound
// connections continuously; every accepted transport pipe becomes a
// pipe of this endpoint and no other.
type listener struct {
	sync.Mutex
	tl   transport.Listener
	s    *socket
	addr string

	fsm aio.Fsm

	closed    bool
	listening bool
}

func (l *listener) Listen() error {
	l.Lock()
	if l.closed {
		l.Unlock()
		return spcore.ErrClosed
	}
	if l.listening {
		l.Unlock()
		return spcore.ErrAddrInUse
	}
	if err := l.tl.Listen(); err != nil {
		l.Unlock()
		return err
	}
	l.listening = true
	l.Unlock()

	l.s.Lock()
	l.s.active = true
	l.s.Unlock()

	l.fsm.Start()
	return nil
}

func (l *listener) runHandler(src, typ int) {
	switch typ {
	case aio.EvStart:
		go l.serve()
	}
}

func (l *listener) shutdownHandler(src, typ int) {
	switch typ {
	case aio.EvStop:
		l.stopAccepting()
		l.fsm.StopChildren()
	}
	if l.fsm.ChildCount() == 0 {
		l.fsm.Stopped()
	}
}

// serve spins in a loop, calling the transport's Accept routine.  Each
// accepted pipe is handed to the worker for attachment.
func (l *listener) serve() {
	for {
		tp, err := l.tl.Accept()
		if err != nil {
			if err == spcore.ErrClosed {
				return
			}
			l.Lock()
			closed := l.closed
			l.Unlock()
			if closed {
				return
			}
			spcore.Logf("accept on %s failed: %v", l.addr, err)
			continue
		}
		l.Lock()
		if l.closed {
			l.Unlock()
			tp.Close()
			return
		}
		p := newPipe(tp, l.s, nil, l, &l.fsm)
		l.Unlock()
		p.fsm.Start()
	}
}

// stopAccepting closes the transport listener so the accept loop ends;
// existing pipes are left alone (socket close drains them separately).
func (l *listener) stopAccepting() {
	l.Lock()
	if l.closed {
		l.Unlock()
		return
	}
	l.closed = true
	listening := l.listening
	l.Unlock()
	if listening {
		l.tl.Close()
	}
}

func (l *listener) Close() error {
	l.Lock()
	if l.closed {
		l.Unlock()
		return spcore.ErrClosed
	}
	l.Unlock()
	l.stopAccepting()
	l.fsm.Stop()
	return nil
}

func (l *listener) Address() string {
	if v, err := l.tl.GetOption(spcore.OptionLocalAddress); err == nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return l.addr
}

func (l *listener) GetOption(n string) (interface{}, error) {
	return l.tl.GetOption(n)
}

func (l *listener) SetOption(n string, v interface{}) error {
	return l.tl.SetOption(n, v)
}
