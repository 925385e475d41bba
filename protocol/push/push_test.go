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

package push_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/protocol/pull"
	"nanomsg.org/go/spcore/protocol/push"
	_ "nanomsg.org/go/spcore/transport/inproc"
)

func TestPushPullFairness(t *testing.T) {
	Convey("Given one PUSH and two PULL sockets", t, func() {
		p, err := push.NewSocket()
		So(err, ShouldBeNil)
		defer p.Close()

		c1, err := pull.NewSocket()
		So(err, ShouldBeNil)
		defer c1.Close()
		c2, err := pull.NewSocket()
		So(err, ShouldBeNil)
		defer c2.Close()

		p.SetOption(spcore.OptionSendDeadline, time.Second*2)
		c1.SetOption(spcore.OptionRecvDeadline, time.Millisecond*200)
		c2.SetOption(spcore.OptionRecvDeadline, time.Millisecond*200)

		So(p.Listen("inproc://pipelinefair"), ShouldBeNil)
		So(c1.Dial("inproc://pipelinefair"), ShouldBeNil)
		So(c2.Dial("inproc://pipelinefair"), ShouldBeNil)
		time.Sleep(time.Millisecond * 100)

		Convey("100 sends split evenly with no loss or duplication", func() {
			for i := 0; i < 100; i++ {
				So(p.Send([]byte{byte(i)}), ShouldBeNil)
			}

			seen := make(map[byte]int)
			n1, n2 := 0, 0
			for {
				m, err := c1.Recv()
				if err != nil {
					break
				}
				seen[m[0]]++
				n1++
			}
			for {
				m, err := c2.Recv()
				if err != nil {
					break
				}
				seen[m[0]]++
				n2++
			}

			So(n1+n2, ShouldEqual, 100)
			diff := n1 - n2
			if diff < 0 {
				diff = -diff
			}
			So(diff, ShouldBeLessThanOrEqualTo, 1)
			for i := 0; i < 100; i++ {
				So(seen[byte(i)], ShouldEqual, 1)
			}
		})
	})
}

func TestPushLingerDrain(t *testing.T) {
	Convey("Given a PUSH with pending output and a draining PULL", t, func() {
		p, err := push.NewSocket()
		So(err, ShouldBeNil)

		c, err := pull.NewSocket()
		So(err, ShouldBeNil)
		defer c.Close()

		// Small rings so the close has real work left to flush.
		So(p.SetOption(spcore.OptionWriteQLen, 2), ShouldBeNil)
		So(c.SetOption(spcore.OptionReadQLen, 2), ShouldBeNil)
		So(p.SetOption(spcore.OptionLinger, time.Second), ShouldBeNil)
		p.SetOption(spcore.OptionSendDeadline, time.Second*2)
		c.SetOption(spcore.OptionRecvDeadline, time.Millisecond*500)

		So(c.Listen("inproc://lingerdrain"), ShouldBeNil)
		So(p.Dial("inproc://lingerdrain"), ShouldBeNil)
		time.Sleep(time.Millisecond * 50)

		Convey("Close drains within the linger window", func() {
			const count = 50
			done := make(chan int)
			go func() {
				n := 0
				for {
					if _, err := c.Recv(); err != nil {
						break
					}
					n++
					// A deliberately slow consumer.
					time.Sleep(time.Millisecond)
				}
				done <- n
			}()

			for i := 0; i < count; i++ {
				So(p.Send([]byte{byte(i)}), ShouldBeNil)
			}

			start := time.Now()
			So(p.Close(), ShouldBeNil)
			So(time.Since(start), ShouldBeLessThan, time.Second+time.Millisecond*200)

			So(<-done, ShouldEqual, count)

			Convey("Further sends report the closed socket", func() {
				So(p.Send([]byte("late")), ShouldEqual, spcore.ErrClosed)
			})
		})
	})
}
