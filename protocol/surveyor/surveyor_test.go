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

package surveyor_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"nanomsg.org/go/spcore"
	"nanomsg.org/go/spcore/protocol/respondent"
	"nanomsg.org/go/spcore/protocol/surveyor"
	_ "nanomsg.org/go/spcore/transport/inproc"
)

func TestSurveyDeadline(t *testing.T) {
	Convey("Given a SURVEYOR with a 150ms deadline and 3 RESPONDENTs", t, func() {
		sv, err := surveyor.NewSocket()
		So(err, ShouldBeNil)
		defer sv.Close()

		So(sv.SetOption(spcore.OptionSurveyTime, time.Millisecond*150), ShouldBeNil)
		sv.SetOption(spcore.OptionRecvDeadline, time.Second)

		So(sv.Listen("inproc://survdeadline"), ShouldBeNil)

		delays := map[string]time.Duration{
			"fast-1": time.Millisecond * 20,
			"fast-2": time.Millisecond * 60,
			"slow":   time.Millisecond * 200,
		}
		for name, delay := range delays {
			rs, err := respondent.NewSocket()
			So(err, ShouldBeNil)
			defer rs.Close()
			rs.SetOption(spcore.OptionRecvDeadline, time.Second*2)
			rs.SetOption(spcore.OptionSendDeadline, time.Second*2)
			So(rs.Dial("inproc://survdeadline"), ShouldBeNil)

			name, delay := name, delay
			go func() {
				m, err := rs.Recv()
				if err != nil {
					return
				}
				_ = m
				time.Sleep(delay)
				rs.Send([]byte(name))
			}()
		}
		time.Sleep(time.Millisecond * 100)

		Convey("Two answers arrive, then the deadline reports timeout", func() {
			So(sv.Send([]byte("who's there")), ShouldBeNil)

			got := map[string]bool{}
			m, err := sv.Recv()
			So(err, ShouldBeNil)
			got[string(m)] = true
			m, err = sv.Recv()
			So(err, ShouldBeNil)
			got[string(m)] = true

			So(got["fast-1"], ShouldBeTrue)
			So(got["fast-2"], ShouldBeTrue)

			_, err = sv.Recv()
			So(err, ShouldEqual, spcore.ErrRecvTimeout)
		})
	})
}

func TestSurveyRecvBeforeSend(t *testing.T) {
	Convey("A SURVEYOR that never surveyed cannot receive", t, func() {
		sv, err := surveyor.NewSocket()
		So(err, ShouldBeNil)
		defer sv.Close()
		_, err = sv.RecvMsg()
		So(err, ShouldEqual, spcore.ErrProtoState)
	})
}
