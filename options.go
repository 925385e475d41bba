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

package spcore

// The following are Options used by SetOption, GetOption.

const (
	// OptionRaw is used to enable RAW mode processing.  The details of
	// how this varies from normal mode vary from protocol to protocol.
	// RAW mode sockets are completely stateless -- any state between
	// recv/send messages is included in the message headers.  Protocol
	// names starting with "X" default to the RAW mode of the same
	// protocol without the leading "X".  The value is a bool.
	OptionRaw = "RAW"

	// OptionRecvDeadline is the time until the next Recv times out.  The
	// value is a time.Duration.  Zero value may be passed to indicate that
	// no timeout should be applied.  A negative value indicates a
	// non-blocking operation.  By default there is no timeout.
	OptionRecvDeadline = "RECV-DEADLINE"

	// OptionSendDeadline is the time until the next Send times out.  The
	// value is a time.Duration.  Zero value may be passed to indicate that
	// no timeout should be applied.  A negative value indicates a
	// non-blocking operation.  By default there is no timeout.
	OptionSendDeadline = "SEND-DEADLINE"

	// OptionRetryTime is used by REQ.  The argument is a time.Duration.
	// When a request has not been replied to within the given duration,
	// the request will automatically be resent to an available peer.
	// This value should be longer than the maximum possible processing
	// and transport time.  The value zero indicates that no automatic
	// retries should be sent.  The default value is one minute.
	//
	// Note that changing this option is only guaranteed to affect requests
	// sent after the option is set.  Changing the value while a request
	// is outstanding may not have the desired effect.
	OptionRetryTime = "RETRY-TIME"

	// OptionSubscribe is used by SUB/XSUB.  The argument is a []byte.
	// The application will receive messages that start with this prefix.
	// Multiple subscriptions may be in effect on a given socket.  The
	// application will not receive messages that do not match any current
	// subscriptions.  (If there are no subscriptions for a SUB/XSUB
	// socket, then the application will not receive any messages.  An
	// empty prefix can be used to subscribe to all messages.)
	OptionSubscribe = "SUBSCRIBE"

	// OptionUnsubscribe is used by SUB/XSUB.  The argument is a []byte,
	// representing a previously established subscription, which will be
	// removed from the socket.
	OptionUnsubscribe = "UNSUBSCRIBE"

	// OptionSurveyTime is used to indicate the deadline for survey
	// responses, when used with a SURVEYOR socket.  Messages arriving
	// after this will be discarded.  Once the survey deadline passes,
	// attempts to receive fail with ErrRecvTimeout until the next survey
	// is sent; OptionRecvDeadline is left unchanged.  The value is a
	// time.Duration.  Zero can be passed to
	// indicate an infinite time.  Default is 1 second.
	OptionSurveyTime = "SURVEY-TIME"

	// OptionWriteQLen is used to set the size, in messages, of the write
	// queue of each pipe.  By default, it's 128.  This option cannot be
	// set if Dial or Listen has been called on the socket.
	OptionWriteQLen = "WRITEQ-LEN"

	// OptionReadQLen is used to set the size, in messages, of the read
	// queue of each pipe.  By default, it's 128.  This option cannot be
	// set if Dial or Listen has been called on the socket.
	OptionReadQLen = "READQ-LEN"

	// OptionLinger is used to set the linger property.  This is the amount
	// of time to wait for send queues to drain when Close() is called.
	// Close() may block for up to this long if there is unsent data, but
	// will return as soon as all data is delivered to the transport.
	// Value is a time.Duration.  Default is one second.
	OptionLinger = "LINGER"

	// OptionMaxRecvSize supplies the maximum receive size for inbound
	// messages.  This option exists because the wire protocol allows
	// the sender to specify the size of the incoming message, and
	// if the size were overly large, a bad remote actor could perform a
	// remote Denial-Of-Service by requesting ridiculously large message
	// sizes and then stalling on send.  The default value is 1MB.
	// A value of 0 removes the limit.  Messages larger than the limit
	// are dropped at the pipe boundary.  The value is an int.
	OptionMaxRecvSize = "MAX-RCV-SIZE"

	// OptionReconnectTime is the initial interval used for connection
	// attempts.  If a connection attempt does not succeed, then ensuing
	// attempts will use this interval, doubled each time, bounded by
	// OptionMaxReconnectTime.  The value is a time.Duration, with a
	// default of 100msec.
	OptionReconnectTime = "RECONNECT-TIME"

	// OptionMaxReconnectTime is the maximum value of the time between
	// connection attempts, when doubling per OptionReconnectTime.
	// The value is a time.Duration, with a default of zero, meaning no
	// maximum.
	OptionMaxReconnectTime = "MAX-RECONNECT-TIME"

	// OptionBestEffort enables non-blocking send operations on the
	// socket.  Normally (for some protocols) a socket will block if
	// there are no receivers, or the receivers are unable to keep up
	// with the sender.  (Multicast protocols like Bus or Pub do not
	// behave this way.)  If this option is set, instead of blocking, the
	// message will be silently discarded.  The value is a bool.
	OptionBestEffort = "BEST-EFFORT"

	// OptionTTL is used to set the maximum time-to-live for messages.
	// Note that not all protocols can honor this at this time, but for
	// those that do, if a message traverses this many devices or more,
	// it will be dropped.  This is used to provide protection
	// against loops in the topology.  The default is protocol specific.
	OptionTTL = "TTL"

	// OptionSendPrio sets the delivery priority used by load balancing
	// send disciplines for pipes created after the option is set.
	// Lower numbers are delivered first; peers of equal priority
	// rotate.  The value is an int between 1 and 16 inclusive, with a
	// default of 8.
	OptionSendPrio = "SEND-PRIO"

	// OptionRecvPrio sets the receive priority used by fair queueing
	// disciplines for pipes created after the option is set.  The value
	// is an int between 1 and 16 inclusive, with a default of 8.
	OptionRecvPrio = "RECV-PRIO"

	// OptionIPv4Only restricts name resolution and connectivity to
	// IPv4 addresses.  The value is a bool, default true.
	OptionIPv4Only = "IPV4ONLY"

	// OptionSocketName is a debug label attached to the socket.  The
	// value is a string; the default is "socket.N" where N is the
	// socket's creation ordinal.
	OptionSocketName = "SOCKET-NAME"

	// OptionLocalAddress is used to get the local address an accepter is
	// listening on in string form.  Generally this is known when Listen
	// is called because it is provided, but this option is useful in the
	// event that the port is assigned by the OS (i.e. port "0").
	OptionLocalAddress = "LOCAL-ADDRESS"

	// OptionDialAsynch (used on a Dialer or Socket) causes the Dial()
	// operation to run in the background.  Further, the dialer will
	// always redial, even if the first attempt fails.  (Normally the
	// first dial will fail synchronously, and redialing only happens
	// after an initial connection is established.)  The value is a
	// bool, default false.
	OptionDialAsynch = "DIAL-ASYNCH"

	// OptionKeepAlive is used to set TCP KeepAlive.  Value is a boolean.
	// Default is true.
	OptionKeepAlive = "KEEPALIVE"

	// OptionNoDelay is used to configure Nagle -- when true messages are
	// sent as soon as possible, otherwise some buffering may occur.
	// Value is a boolean.  Default is true.
	OptionNoDelay = "NO-DELAY"

	// OptionCanSend is a read-only bool reporting the protocol's
	// CAN_SEND flag: whether a send could progress without waiting.
	// Poll implementations read this.
	OptionCanSend = "CAN-SEND"

	// OptionCanRecv is a read-only bool reporting the protocol's
	// CAN_RECV flag, the receive side analog of OptionCanSend.
	OptionCanRecv = "CAN-RECV"
)
