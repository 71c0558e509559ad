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

package ascii_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptillemans/AdventOfCode2019/asm"
	"github.com/ptillemans/AdventOfCode2019/lang/ascii"
	"github.com/ptillemans/AdventOfCode2019/vm"
)

// echoes lines until it reads an empty one, then outputs a non ASCII value.
var echo = asm.MustAssemble("echo", `
:loop	in   c
		jz   c #done	( NUL ends the input too )
		out  c
		eq   c #'\n' nl
		jf   nl #next
		jt   empty #done
		add  #1 #0 empty
		jt   #1 #loop
:next	add  #0 #0 empty
		jt   #1 #loop
:done	out  #1234567
		hlt
:c		0
:nl		0
:empty	1
`)

func TestEncodeDecode(t *testing.T) {
	vs := ascii.Lines("NOT A J", "WALK")
	assert.Equal(t, "78,79,84,32,65,32,74,10,87,65,76,75,10", vm.Program(vs).String())

	text, rest := ascii.Decode(append(ascii.Encode("ab"), vm.Int(128), vm.Int(-1), vm.Int('\n'), vm.Int(19349722)))
	assert.Equal(t, "ab\n", text)
	assert.Equal(t, "128,-1,19349722", vm.Program(rest).String())

	_, ok := ascii.Char(vm.MustParse("99999999999999999999")[0])
	assert.False(t, ok)
}

func TestReader(t *testing.T) {
	ctx := context.Background()
	r := ascii.NewReader(strings.NewReader("ab"), strings.NewReader("c"))
	take := func() string {
		v, err := r.Take(ctx)
		require.NoError(t, err)
		c, ok := ascii.Char(v)
		require.True(t, ok)
		return string(c)
	}
	assert.Equal(t, "a", take())
	// "b" is buffered and must come after the pushed reader.
	r.PushString("xy")
	assert.Equal(t, "x", take())
	assert.Equal(t, "y", take())
	assert.Equal(t, "b", take())
	assert.Equal(t, "c", take())
	_, err := r.Take(ctx)
	assert.Equal(t, io.EOF, err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.Take(cctx)
	assert.Equal(t, context.Canceled, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestReader_error(t *testing.T) {
	r := ascii.NewReader(failingReader{})
	_, err := r.Take(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.NotEqual(t, io.EOF, err)
}

func TestReader_cancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := ascii.NewReader(pr)
	i, err := vm.New(vm.MustParse("3,0,99"), vm.Input(r))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = i.Run(ctx)
	assert.Equal(t, context.DeadlineExceeded, errors.Cause(err))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, vm.Aborted, i.State())

	// the interrupted read completes later, behind input pushed meanwhile.
	r.PushString("a")
	go pw.Write([]byte("b"))
	for _, want := range []int64{'a', 'b'} {
		v, err := r.Take(context.Background())
		require.NoError(t, err)
		assert.Equal(t, vm.Int(want), v)
	}
	pw.Close()
	_, err = r.Take(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestEcho(t *testing.T) {
	var out bytes.Buffer
	w := ascii.NewWriter(&out)
	i, err := vm.New(echo,
		vm.Input(ascii.NewReader(strings.NewReader("hello\nworld\n\nignored\n"))),
		vm.Output(w))
	require.NoError(t, err)
	require.NoError(t, i.Run(context.Background()))

	assert.Equal(t, "hello\nworld\n\n", out.String())
	assert.Equal(t, []vm.Cell{vm.Int(1234567)}, w.Values())
}

func TestEcho_eof(t *testing.T) {
	i, err := vm.New(echo, vm.Input(ascii.NewReader(strings.NewReader("abc"))), vm.Output(ascii.NewWriter(io.Discard)))
	require.NoError(t, err)
	assert.Equal(t, io.EOF, i.Run(context.Background()))
}

func TestLineWriter(t *testing.T) {
	var lines []string
	w := ascii.NewLineWriter(func(l string) error {
		lines = append(lines, l)
		return nil
	})
	in := vm.Replay(ascii.Encode("one\n\nthree\n\n")...)
	i, err := vm.New(echo, vm.Input(in), vm.Output(w))
	require.NoError(t, err)
	require.NoError(t, i.Run(context.Background()))
	assert.Equal(t, []string{"one", ""}, lines)
	assert.Len(t, w.Values(), 1)

	// partial lines are only emitted by Flush
	lines = nil
	ctx := context.Background()
	for _, v := range ascii.Encode("abc") {
		require.NoError(t, w.Deliver(ctx, v))
	}
	assert.Empty(t, lines)
	require.NoError(t, w.Flush())
	assert.Equal(t, []string{"abc"}, lines)
	require.NoError(t, w.Flush())
	assert.Len(t, lines, 1)
}

func TestLineWriter_abort(t *testing.T) {
	stop := errors.New("stop")
	w := ascii.NewLineWriter(func(string) error { return stop })
	i, err := vm.New(echo, vm.Input(vm.Replay(ascii.Lines("x")...)), vm.Output(w))
	require.NoError(t, err)
	err = i.Run(context.Background())
	assert.Equal(t, stop, errors.Cause(err))
	assert.Equal(t, vm.Aborted, i.State())
}
