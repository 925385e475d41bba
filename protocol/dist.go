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

// Distributor is the fan-out send discipline used by PUB and friends:
// an ordered list of pipes currently writable.  Send delivers a copy of
// the message to every writable pipe; pipes that are not writable are
// skipped (the message is dropped for them, not queued).
type Distributor struct {
	pipes    []Pipe
	writable map[Pipe]bool
}

func (d *Distributor) init() {
	if d.writable == nil {
		d.writable = make(map[Pipe]bool)
	}
}

// Add registers the pipe (not yet writable).
func (d *Distributor) Add(p Pipe) {
	d.init()
	d.pipes = append(d.pipes, p)
	d.writable[p] = false
}

// Remove deregisters the pipe.
func (d *Distributor) Remove(p Pipe) {
	d.init()
	for i, c := range d.pipes {
		if c == p {
			d.pipes = append(d.pipes[:i], d.pipes[i+1:]...)
			break
		}
	}
	delete(d.writable, p)
}

// Out marks the pipe writable.
func (d *Distributor) Out(p Pipe) {
	d.init()
	if _, ok := d.writable[p]; ok {
		d.writable[p] = true
	}
}

// Send delivers the message to every writable pipe except skip (which
// may be nil).  The caller's reference is consumed.
func (d *Distributor) Send(m *Message, skip Pipe) {
	d.init()
	for _, p := range d.pipes {
		if p == skip || !d.writable[p] {
			continue
		}
		if !p.Send(m.Dup()) {
			d.writable[p] = false
		}
	}
	m.Free()
}
