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

package sub_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/protocol/pub"
	"nanomsg.org/go/spcore/protocol/sub"
	_ "nanomsg.org/go/spcore/transport/inproc"
)

func TestPubSubPrefix(t *testing.T) {
	Convey("Given a PUB and a SUB subscribed to BTC", t, func() {
		pubSock, err := pub.NewSocket()
		So(err, ShouldBeNil)
		defer pubSock.Close()

		subSock, err := sub.NewSocket()
		So(err, ShouldBeNil)
		defer subSock.Close()

		So(subSock.SetOption(spcore.OptionSubscribe, []byte("BTC")), ShouldBeNil)
		subSock.SetOption(spcore.OptionRecvDeadline, time.Millisecond*300)

		So(pubSock.Listen("inproc://news"), ShouldBeNil)
		So(subSock.Dial("inproc://news"), ShouldBeNil)
		time.Sleep(time.Millisecond * 100)

		Convey("Only matching messages are delivered, in order", func() {
			So(pubSock.Send([]byte("BTC:10")), ShouldBeNil)
			So(pubSock.Send([]byte("ETH:2")), ShouldBeNil)
			So(pubSock.Send([]byte("BTC:11")), ShouldBeNil)

			m, err := subSock.Recv()
			So(err, ShouldBeNil)
			So(string(m), ShouldEqual, "BTC:10")

			m, err = subSock.Recv()
			So(err, ShouldBeNil)
			So(string(m), ShouldEqual, "BTC:11")

			_, err = subSock.Recv()
			So(err, ShouldEqual, spcore.ErrRecvTimeout)
		})

		Convey("Unsubscribe stops delivery", func() {
			So(subSock.SetOption(spcore.OptionUnsubscribe, []byte("BTC")), ShouldBeNil)
			So(pubSock.Send([]byte("BTC:12")), ShouldBeNil)
			_, err := subSock.Recv()
			So(err, ShouldEqual, spcore.ErrRecvTimeout)
		})
	})
}
