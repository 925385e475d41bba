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

// Package ipc implements the IPC transport on top of UNIX domain
// sockets (POSIX) or named pipes (Windows).  To enable it simply
// import it.
package ipc

import (
	"sync"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/transport"
)

type options struct {
	sync.Mutex
	maxRx int
}

func newOptions() *options {
	return &options{maxRx: 1024 * 1024}
}

func (o *options) set(name string, value interface{}) error {
	o.Lock()
	defer o.Unlock()
	switch name {
	case spcore.OptionMaxRecvSize:
		if v, ok := value.(int); ok && v >= 0 {
			o.maxRx = v
			return nil
		}
		return spcore.ErrBadValue
	}
	return spcore.ErrBadOption
}

func (o *options) get(name string) (interface{}, error) {
	o.Lock()
	defer o.Unlock()
	switch name {
	case spcore.OptionMaxRecvSize:
		return o.maxRx, nil
	}
	return nil, spcore.ErrBadOption
}

func (o *options) maxrx() int {
	o.Lock()
	defer o.Unlock()
	return o.maxRx
}

type ipcTran struct{}

func (t *ipcTran) Scheme() string {
	return "ipc"
}

func (t *ipcTran) NewDialer(addr string, self transport.ProtocolInfo) (transport.Dialer, error) {
	path, err := transport.StripScheme(t, addr)
	if err != nil {
		return nil, err
	}
	return &dialer{path: path, self: self, opts: newOptions()}, nil
}

func (t *ipcTran) NewListener(addr string, self transport.ProtocolInfo) (transport.Listener, error) {
	path, err := transport.StripScheme(t, addr)
	if err != nil {
		return nil, err
	}
	return &listener{path: path, self: self, opts: newOptions()}, nil
}

// NewTransport allocates a new IPC transport.
func NewTransport() transport.Transport {
	return &ipcTran{}
}

func init() {
	transport.RegisterTransport(NewTransport())
}
