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

package bus_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/protocol/bus"
	_ "nanomsg.org/go/spcore/transport/inproc"
)

func TestBusFanOut(t *testing.T) {
	Convey("Given three BUS sockets in a star", t, func() {
		hub, err := bus.NewSocket()
		So(err, ShouldBeNil)
		defer hub.Close()
		spoke1, err := bus.NewSocket()
		So(err, ShouldBeNil)
		defer spoke1.Close()
		spoke2, err := bus.NewSocket()
		So(err, ShouldBeNil)
		defer spoke2.Close()

		for _, s := range []spcore.Socket{hub, spoke1, spoke2} {
			s.SetOption(spcore.OptionRecvDeadline, time.Millisecond*300)
			s.SetOption(spcore.OptionSendDeadline, time.Second)
		}

		So(hub.Listen("inproc://busstar"), ShouldBeNil)
		So(spoke1.Dial("inproc://busstar"), ShouldBeNil)
		So(spoke2.Dial("inproc://busstar"), ShouldBeNil)
		time.Sleep(time.Millisecond * 100)

		Convey("A hub send reaches every spoke", func() {
			So(hub.Send([]byte("tick")), ShouldBeNil)
			m, err := spoke1.Recv()
			So(err, ShouldBeNil)
			So(string(m), ShouldEqual, "tick")
			m, err = spoke2.Recv()
			So(err, ShouldBeNil)
			So(string(m), ShouldEqual, "tick")
		})

		Convey("A spoke send reaches the hub but is not echoed back", func() {
			So(spoke1.Send([]byte("tock")), ShouldBeNil)
			m, err := hub.Recv()
			So(err, ShouldBeNil)
			So(string(m), ShouldEqual, "tock")

			_, err = spoke1.Recv()
			So(err, ShouldEqual, spcore.ErrRecvTimeout)
		})
	})
}
