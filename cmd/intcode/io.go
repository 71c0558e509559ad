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

package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"unicode"

	"github.com/pkg/errors"

	"github.com/ptillemans/AdventOfCode2019/vm"
)

// chain is a vm.Source reading from each source in turn, moving to the next
// one when the current one returns io.EOF.
type chain []vm.Source

func (c *chain) Take(ctx context.Context) (vm.Cell, error) {
	for len(*c) > 0 {
		v, err := (*c)[0].Take(ctx)
		if err != io.EOF {
			return v, err
		}
		*c = (*c)[1:]
	}
	return vm.Cell{}, io.EOF
}

// numberReader is a vm.Source reading integers separated by commas or white
// space. Values are scanned on a separate goroutine so that a Take waiting for
// input returns as soon as its context is done.
type numberReader struct {
	s      *bufio.Scanner
	start  sync.Once
	values chan number
}

type number struct {
	v   vm.Cell
	err error
}

func newNumberReader(r io.Reader) *numberReader {
	s := bufio.NewScanner(r)
	s.Split(scanNumbers)
	return &numberReader{s: s, values: make(chan number)}
}

func isSeparator(r rune) bool { return r == ',' || unicode.IsSpace(r) }

func scanNumbers(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && isSeparator(rune(data[start])) {
		start++
	}
	for i := start; i < len(data); i++ {
		if isSeparator(rune(data[i])) {
			return i + 1, data[start:i], nil
		}
	}
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

func (r *numberReader) scan() {
	defer close(r.values)
	for r.s.Scan() {
		v, err := vm.ParseCell(r.s.Text())
		r.values <- number{v, errors.Wrap(err, "stdin")}
	}
	if err := r.s.Err(); err != nil {
		r.values <- number{err: errors.Wrap(err, "stdin")}
	}
}

func (r *numberReader) Take(ctx context.Context) (vm.Cell, error) {
	if err := ctx.Err(); err != nil {
		return vm.Cell{}, err
	}
	r.start.Do(func() { go r.scan() })
	select {
	case n, ok := <-r.values:
		if !ok {
			return vm.Cell{}, io.EOF
		}
		return n.v, n.err
	case <-ctx.Done():
		return vm.Cell{}, ctx.Err()
	}
}

// flusher flushes the buffered output before the program waits for input.
type flusher struct {
	vm.Source
	w *bufio.Writer
}

func (f flusher) Take(ctx context.Context) (vm.Cell, error) {
	if err := f.w.Flush(); err != nil {
		return vm.Cell{}, errors.Wrap(err, "stdout")
	}
	return f.Source.Take(ctx)
}

// numberWriter is a vm.Sink writing one value per line.
type numberWriter struct {
	w io.Writer
}

func (w numberWriter) Deliver(_ context.Context, v vm.Cell) error {
	_, err := fmt.Fprintln(w.w, v)
	return errors.Wrap(err, "stdout")
}

// eotReader turns an EOT character (CTRL-D) into io.EOF. With the terminal in
// character mode, the tty driver no longer does this.
type eotReader struct {
	r   io.Reader
	eof bool
}

const eot = 4

func (e *eotReader) Read(p []byte) (int, error) {
	if e.eof {
		return 0, io.EOF
	}
	n, err := e.r.Read(p)
	if i := bytes.IndexByte(p[:n], eot); i >= 0 {
		e.eof = true
		return i, io.EOF
	}
	return n, err
}
