// This file is part of intcode - https://github.com/ptillemans/AdventOfCode2019
//
// Copyright 2019 The intcode Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vm

import (
	"fmt"

	"github.com/pkg/errors"
)

// Fatal error causes. A run that hits any of these is aborted.
var (
	ErrInvalidOpcode    = errors.New("invalid opcode")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidWriteMode = errors.New("invalid write mode")
)

// ErrRunning is returned by lifecycle operations attempted while the instance
// is running.
var ErrRunning = errors.New("instance is running")

// ErrTimeout is returned by a Channel Take that ran out of time. It is a
// temporary condition: the caller may retry.
var ErrTimeout error = timeoutError{}

type timeoutError struct{}

func (timeoutError) Error() string   { return "channel read timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// IsTimeout reports whether err was caused by a read timeout.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// Fault is the error returned when a run is aborted by an invalid instruction
// or operand. Err is one of ErrInvalidOpcode, ErrInvalidAddress or
// ErrInvalidWriteMode, possibly wrapped with details.
type Fault struct {
	PC   int64 // address of the faulting instruction
	Word Cell  // faulting instruction word
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault @pc=%d (%v): %v", f.PC, f.Word, f.Err)
}

// Cause returns the sentinel error that caused the fault.
func (f *Fault) Cause() error { return errors.Cause(f.Err) }

// Unwrap supports errors.Is and errors.As.
func (f *Fault) Unwrap() error { return f.Err }

// Format implements fmt.Formatter. The %+v verb prints the stack trace
// recorded when the cause was wrapped.
func (f *Fault) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "fault @pc=%d (%v): %+v", f.PC, f.Word, f.Err)
		return
	}
	fmt.Fprint(s, f.Error())
}
