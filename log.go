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
	"sync"
)

// The library is silent by default.  An application that wants to see
// the rare exceptional events (accept failures, rejected pipes) can
// install a logger; the hook must be safe for concurrent use.

var loglk sync.RWMutex
var logfn func(format string, args ...interface{})

// SetLogger installs fn as the library's debug logger and returns the
// previous one (nil if none).  Passing nil silences the library again.
func SetLogger(fn func(format string, args ...interface{})) func(format string, args ...interface{}) {
	loglk.Lock()
	old := logfn
	logfn = fn
	loglk.Unlock()
	return old
}

// Logf emits a message through the installed logger, if any.  It is
// intended for use by the library itself on truly exceptional paths.
func Logf(format string, args ...interface{}) {
	loglk.RLock()
	fn := logfn
	loglk.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}
