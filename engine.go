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

import (
	"nanomsg.org/go/spcore/internal/aio"
)

// SetWorkers configures the number of engine worker threads.  It only
// has an effect if called before the first socket is created; the
// default is one.
func SetWorkers(n int) {
	aio.SetWorkers(n)
}

// Term flushes the whole library at process exit: no new sockets may
// be created (attempts fail with ErrTerminating), the call waits for
// every live socket to close, and the engine's workers are stopped.
func Term() {
	aio.Get().Term()
}
