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

// Exclusive enforces at-most-one active pipe.  PAIR uses it: the first
// pipe attached owns the connection, later arrivals are rejected until
// it goes away.
type Exclusive struct {
	active Pipe
}

// Add claims the slot for the pipe.  It fails when another pipe holds
// the slot already.
func (x *Exclusive) Add(p Pipe) error {
	if x.active != nil {
		return ErrProtoState
	}
	x.active = p
	return nil
}

// Remove releases the slot if the pipe holds it.
func (x *Exclusive) Remove(p Pipe) {
	if x.active == p {
		x.active = nil
	}
}

// Pipe returns the active pipe, or nil.
func (x *Exclusive) Pipe() Pipe {
	return x.active
}

// Holds reports whether this very pipe owns the slot.
func (x *Exclusive) Holds(p Pipe) bool {
	return x.active == p
}
