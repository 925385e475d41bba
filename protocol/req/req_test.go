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

package req_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/protocol/rep"
	"nanomsg.org/go/spcore/protocol/req"
	_ "nanomsg.org/go/spcore/transport/inproc"
)

func TestReqRepBasic(t *testing.T) {
	Convey("Given a connected REQ/REP pair", t, func() {
		rq, err := req.NewSocket()
		So(err, ShouldBeNil)
		defer rq.Close()
		rp, err := rep.NewSocket()
		So(err, ShouldBeNil)
		defer rp.Close()

		for _, s := range []spcore.Socket{rq, rp} {
			s.SetOption(spcore.OptionRecvDeadline, time.Second*2)
			s.SetOption(spcore.OptionSendDeadline, time.Second*2)
		}

		So(rp.Listen("inproc://reqrep"), ShouldBeNil)
		So(rq.Dial("inproc://reqrep"), ShouldBeNil)

		Convey("A request draws its reply", func() {
			So(rq.Send([]byte("ping")), ShouldBeNil)
			m, err := rp.Recv()
			So(err, ShouldBeNil)
			So(string(m), ShouldEqual, "ping")

			So(rp.Send([]byte("pong")), ShouldBeNil)
			m, err = rq.Recv()
			So(err, ShouldBeNil)
			So(string(m), ShouldEqual, "pong")
		})

		Convey("Receiving without a request is a state error", func() {
			_, err := rq.RecvMsg()
			So(err, ShouldEqual, spcore.ErrProtoState)
		})

		Convey("Replying without a request is a state error", func() {
			err := rp.Send([]byte("unsolicited"))
			So(err, ShouldEqual, spcore.ErrProtoState)
		})
	})
}

func TestReqRetransmit(t *testing.T) {
	Convey("Given a REQ with a 200ms resend and two REP peers", t, func() {
		rq, err := req.NewSocket()
		So(err, ShouldBeNil)
		defer rq.Close()

		r1, err := rep.NewSocket()
		So(err, ShouldBeNil)
		defer r1.Close()
		r2, err := rep.NewSocket()
		So(err, ShouldBeNil)
		defer r2.Close()

		So(rq.SetOption(spcore.OptionRetryTime, time.Millisecond*200), ShouldBeNil)
		rq.SetOption(spcore.OptionRecvDeadline, time.Second*2)
		rq.SetOption(spcore.OptionSendDeadline, time.Second*2)
		r2.SetOption(spcore.OptionRecvDeadline, time.Second*2)
		r2.SetOption(spcore.OptionSendDeadline, time.Second*2)

		So(r1.Listen("inproc://reqretry1"), ShouldBeNil)
		So(r2.Listen("inproc://reqretry2"), ShouldBeNil)

		// Attach R1 first so the initial request lands on it.
		So(rq.Dial("inproc://reqretry1"), ShouldBeNil)
		time.Sleep(time.Millisecond * 50)
		So(rq.Dial("inproc://reqretry2"), ShouldBeNil)
		time.Sleep(time.Millisecond * 50)

		Convey("The retry reaches the other peer and its reply returns", func() {
			// R1 is paused: it never reads.  After the resend
			// interval, the same request shows up at R2.
			So(rq.Send([]byte("q")), ShouldBeNil)

			m, err := r2.Recv()
			So(err, ShouldBeNil)
			So(string(m), ShouldEqual, "q")

			So(r2.Send([]byte("from-r2")), ShouldBeNil)
			m, err = rq.Recv()
			So(err, ShouldBeNil)
			So(string(m), ShouldEqual, "from-r2")
		})
	})
}
