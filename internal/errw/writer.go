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

// Package errw provides a writer with a sticky error, for code that emits
// many small writes and only checks for failure at the end.
package errw

import (
	"io"

	"github.com/pkg/errors"
)

// Writer wraps an io.Writer. After the first failed write, all subsequent
// writes are no-ops returning the same error, which is available in Err.
type Writer struct {
	w   io.Writer
	Err error
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (n int, err error) {
	if w.Err != nil {
		return 0, w.Err
	}
	n, err = w.w.Write(p)
	if err != nil {
		w.Err = errors.Wrap(err, "write failed")
	}
	return n, w.Err
}

// WriteString implements io.StringWriter.
func (w *Writer) WriteString(s string) (n int, err error) {
	return w.Write([]byte(s))
}

// New returns w if it already is a *Writer, or wraps it.
func New(w io.Writer) *Writer {
	if ew, ok := w.(*Writer); ok {
		return ew
	}
	return &Writer{w: w}
}
