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
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/ptillemans/AdventOfCode2019/vm"
)

type multiReader struct {
	readers []io.Reader
}

func (mr *multiReader) Read(p []byte) (n int, err error) {
	for len(mr.readers) > 0 {
		n, err = mr.readers[0].Read(p)
		if n > 0 || err != io.EOF {
			if err == io.EOF {
				// Don't return EOF yet. There may be more bytes
				// in the remaining readers.
				err = nil
			}
			return
		}
		if c, ok := mr.readers[0].(io.Closer); ok {
			c.Close()
		}
		mr.readers = mr.readers[1:]
	}
	return 0, io.EOF
}

func (mr *multiReader) push(r io.Reader) {
	mr.readers = append([]io.Reader{r}, mr.readers...)
}

// Reader is a vm.Source that serves the bytes read from a stack of io.Readers,
// one byte per value. When a reader is exhausted, it is closed if it
// implements io.Closer and reading continues with the next one. Take returns
// io.EOF once the last reader is exhausted.
//
// Reads happen on a separate goroutine so that a Take waiting for input returns
// as soon as its context is done. The read is not abandoned: its result is
// served by the next Take.
type Reader struct {
	mu    sync.Mutex
	mr    multiReader // owned by the read goroutine while done is not nil
	front []io.Reader // pushed during a read
	buf   []byte
	eof   bool
	err   error
	done  chan struct{} // closed when the pending read completes
	rbuf  [4096]byte
}

// NewReader returns a new Reader reading from the given readers in order.
func NewReader(rs ...io.Reader) *Reader {
	r := new(Reader)
	for k := len(rs) - 1; k >= 0; k-- {
		r.mr.push(rs[k])
	}
	return r
}

// Push pushes the given io.Reader on top of the input stack: its contents are
// served before anything not yet taken from the current readers, including the
// bytes of a read still in progress.
func (r *Reader) Push(rd io.Reader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eof = false
	if r.done != nil {
		r.front = append(r.front, rd)
		return
	}
	if len(r.buf) > 0 {
		// bytes already read from the current reader go back in front of it.
		r.mr.push(bytes.NewReader(r.buf))
		r.buf = nil
	}
	r.mr.push(rd)
}

// PushString is a shorthand for Push(strings.NewReader(s)).
func (r *Reader) PushString(s string) {
	r.Push(bytes.NewReader([]byte(s)))
}

// read starts reading from the input stack. r.mu must be held.
func (r *Reader) read() {
	done := make(chan struct{})
	r.done = done
	go func() {
		n, err := r.mr.Read(r.rbuf[:])
		r.mu.Lock()
		r.settle(r.rbuf[:n], err)
		r.done = nil
		r.mu.Unlock()
		close(done)
	}()
}

// settle stores the result of a read. r.mu must be held.
func (r *Reader) settle(data []byte, err error) {
	if err != nil && err != io.EOF {
		r.err = err
	}
	if len(r.front) > 0 {
		if len(data) > 0 {
			r.mr.push(bytes.NewReader(append([]byte(nil), data...)))
		}
		for _, rd := range r.front {
			r.mr.push(rd)
		}
		r.front = nil
		return
	}
	r.buf = append(r.buf, data...)
	if err == io.EOF && len(data) == 0 {
		r.eof = true
	}
}

// Take implements vm.Source.
func (r *Reader) Take(ctx context.Context) (vm.Cell, error) {
	if err := ctx.Err(); err != nil {
		return vm.Cell{}, err
	}
	r.mu.Lock()
	for len(r.buf) == 0 {
		if err := r.err; err != nil {
			r.err = nil
			r.mu.Unlock()
			return vm.Cell{}, errors.Wrap(err, "ascii input")
		}
		if r.eof {
			r.eof = false
			r.mu.Unlock()
			return vm.Cell{}, io.EOF
		}
		if r.done == nil {
			r.read()
		}
		done := r.done
		r.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return vm.Cell{}, ctx.Err()
		}
		r.mu.Lock()
	}
	c := r.buf[0]
	r.buf = r.buf[1:]
	r.mu.Unlock()
	return vm.Int(int64(c)), nil
}
