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

package pair_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/protocol/pair"
	_ "nanomsg.org/go/spcore/transport/inproc"
)

func TestPairEcho(t *testing.T) {
	Convey("Given a connected pair of PAIR sockets", t, func() {
		a, err := pair.NewSocket()
		So(err, ShouldBeNil)
		So(a, ShouldNotBeNil)
		defer a.Close()

		b, err := pair.NewSocket()
		So(err, ShouldBeNil)
		defer b.Close()

		for _, s := range []spcore.Socket{a, b} {
			So(s.SetOption(spcore.OptionRecvDeadline, time.Second*2), ShouldBeNil)
			So(s.SetOption(spcore.OptionSendDeadline, time.Second*2), ShouldBeNil)
		}

		So(a.Listen("inproc://pairecho"), ShouldBeNil)
		So(b.Dial("inproc://pairecho"), ShouldBeNil)

		Convey("Messages pass verbatim in both directions", func() {
			So(b.Send([]byte("hello")), ShouldBeNil)
			m, err := a.Recv()
			So(err, ShouldBeNil)
			So(string(m), ShouldEqual, "hello")

			So(a.Send([]byte("world")), ShouldBeNil)
			m, err = b.Recv()
			So(err, ShouldBeNil)
			So(string(m), ShouldEqual, "world")
		})

		Convey("Message parts are preserved through SendMsg", func() {
			msg := spcore.NewMessage(8)
			msg.Body = append(msg.Body, []byte{0, 1, 2, 0}...)
			So(b.SendMsg(msg), ShouldBeNil)
			got, err := a.RecvMsg()
			So(err, ShouldBeNil)
			So(got.Body, ShouldResemble, []byte{0, 1, 2, 0})
			got.Free()
		})
	})
}

func TestPairRejectsSecondPeer(t *testing.T) {
	Convey("Given a bound PAIR socket with one peer", t, func() {
		a, err := pair.NewSocket()
		So(err, ShouldBeNil)
		defer a.Close()
		b, err := pair.NewSocket()
		So(err, ShouldBeNil)
		defer b.Close()
		c, err := pair.NewSocket()
		So(err, ShouldBeNil)
		defer c.Close()

		for _, s := range []spcore.Socket{a, b, c} {
			s.SetOption(spcore.OptionRecvDeadline, time.Second)
			s.SetOption(spcore.OptionSendDeadline, time.Second)
		}

		So(a.Listen("inproc://pairsecond"), ShouldBeNil)
		So(b.Dial("inproc://pairsecond"), ShouldBeNil)
		time.Sleep(time.Millisecond * 50)

		Convey("A third party cannot join the conversation", func() {
			So(c.Dial("inproc://pairsecond"), ShouldBeNil)
			time.Sleep(time.Millisecond * 50)

			So(b.Send([]byte("ping")), ShouldBeNil)
			m, err := a.Recv()
			So(err, ShouldBeNil)
			So(string(m), ShouldEqual, "ping")

			// The interloper's sends never arrive.
			c.SetOption(spcore.OptionSendDeadline, time.Millisecond*100)
			c.Send([]byte("intruder"))
			_, err = a.Recv()
			So(err, ShouldEqual, spcore.ErrRecvTimeout)
		})
	})
}
