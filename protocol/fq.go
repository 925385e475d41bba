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

// FairQueue is the round-robin receive discipline: an ordered list of
// pipes currently readable.  Each readable pipe yields exactly one
// message before the next gets a turn, so a fast peer cannot starve
// slow ones.
type FairQueue struct {
	pl PrioList
}

// Add registers the pipe (not yet readable).
func (fq *FairQueue) Add(p Pipe, prio int) {
	fq.pl.Add(p, prio)
}

// Remove deregisters the pipe.
func (fq *FairQueue) Remove(p Pipe) {
	fq.pl.Remove(p)
}

// In marks the pipe readable.
func (fq *FairQueue) In(p Pipe) {
	fq.pl.Activate(p)
}

// CanRecv reports whether any pipe is readable.
func (fq *FairQueue) CanRecv() bool {
	return fq.pl.Len() > 0
}

// Recv takes one message from the next readable pipe.  The boolean is
// false when nothing was available.
func (fq *FairQueue) Recv() (*Message, bool) {
	for {
		p, ok := fq.pl.Pop()
		if !ok {
			return nil, false
		}
		m, more := p.Recv()
		if more {
			// One message per turn: back to the tail.
			fq.pl.Activate(p)
		}
		if m != nil {
			return m, true
		}
	}
}
