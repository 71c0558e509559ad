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

package ascii

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/ptillemans/AdventOfCode2019/vm"
)

// values collects the non ASCII values written by a program.
type values struct {
	mu sync.Mutex
	vs []vm.Cell
}

func (v *values) add(c vm.Cell) {
	v.mu.Lock()
	v.vs = append(v.vs, c)
	v.mu.Unlock()
}

// Values returns the values received so far that are not ASCII characters.
func (v *values) Values() []vm.Cell {
	v.mu.Lock()
	defer v.mu.Unlock()
	t := make([]vm.Cell, len(v.vs))
	copy(t, v.vs)
	return t
}

// Writer is a vm.Sink that writes ASCII values as bytes to an io.Writer. Other
// values, usually a numeric answer at the end of the output, are not written
// and can be retrieved with Values.
type Writer struct {
	values
	w io.Writer
}

// NewWriter returns a new Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Deliver implements vm.Sink.
func (w *Writer) Deliver(_ context.Context, v vm.Cell) error {
	c, ok := Char(v)
	if !ok {
		w.add(v)
		return nil
	}
	_, err := w.w.Write([]byte{c})
	return errors.Wrap(err, "ascii output")
}

// LineWriter is a vm.Sink that collects ASCII values into lines and calls a
// function for each complete line. The trailing newline is not included in the
// line. Non ASCII values can be retrieved with Values.
type LineWriter struct {
	values
	fn   func(line string) error
	line []byte
}

// NewLineWriter returns a new LineWriter calling fn for every line. An error
// returned by fn is returned by Deliver and aborts the run.
func NewLineWriter(fn func(line string) error) *LineWriter {
	return &LineWriter{fn: fn}
}

// Deliver implements vm.Sink.
func (w *LineWriter) Deliver(_ context.Context, v vm.Cell) error {
	c, ok := Char(v)
	if !ok {
		w.add(v)
		return nil
	}
	if c != '\n' {
		w.line = append(w.line, c)
		return nil
	}
	s := string(w.line)
	w.line = w.line[:0]
	return w.fn(s)
}

// Flush calls fn with the pending incomplete line, if any.
func (w *LineWriter) Flush() error {
	if len(w.line) == 0 {
		return nil
	}
	s := string(w.line)
	w.line = w.line[:0]
	return w.fn(s)
}
