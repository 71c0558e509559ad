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

package asm

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/scanner"

	"github.com/ptillemans/AdventOfCode2019/internal/errw"
	"github.com/ptillemans/AdventOfCode2019/vm"
)

var opcodes = [...]struct {
	op    vm.Opcode
	names []string
}{
	{vm.OpAdd, []string{"add"}},
	{vm.OpMul, []string{"mul"}},
	{vm.OpRead, []string{"in"}},
	{vm.OpWrite, []string{"out"}},
	{vm.OpJumpIfTrue, []string{"jt", "jnz"}},
	{vm.OpJumpIfFalse, []string{"jf", "jz"}},
	{vm.OpLessThan, []string{"lt"}},
	{vm.OpEquals, []string{"eq"}},
	{vm.OpAdjustBase, []string{"arb", "rb"}},
	{vm.OpHalt, []string{"hlt", "halt"}},
}

var opcodeIndex = make(map[string]vm.Opcode)

func init() {
	for _, o := range opcodes {
		for _, n := range o.names {
			opcodeIndex[n] = o.op
		}
	}
}

// ErrAsm encapsulates errors generated by the assembler.
type ErrAsm []struct {
	Pos scanner.Position
	Msg string
}

func (e ErrAsm) Error() string {
	var b strings.Builder
	for k, err := range e {
		if k > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(err.Pos.String())
		b.WriteString(": ")
		b.WriteString(err.Msg)
	}
	return b.String()
}

func (e ErrAsm) sort() {
	sort.SliceStable(e, func(i, j int) bool { return e[i].Pos.Offset < e[j].Pos.Offset })
}

// Assemble compiles assembly read from the supplied io.Reader and returns the
// resulting program and error if any.
//
// The name parameter is used only in error messages to name the source of the
// error. If the io.Reader is a file, name should be the file name.
//
// The returned error, if not nil, can safely be cast to an ErrAsm value that
// will contain up to 10 entries.
func Assemble(name string, r io.Reader) (vm.Program, error) {
	p := newParser()
	return p.Parse(name, r)
}

// MustAssemble is like Assemble but reads from a string and panics on error.
// It is mainly intended for tests.
func MustAssemble(name, code string) vm.Program {
	img, err := Assemble(name, strings.NewReader(code))
	if err != nil {
		panic(err)
	}
	return img
}

// Disassemble writes a disassembly of the instruction at position pc in mem to
// the specified io.Writer and returns the position of the next instruction and
// any write error.
//
// Cells that do not decode to a valid instruction, or instructions truncated
// by the end of mem, are written as a ".dat" directive.
func Disassemble(mem []vm.Cell, pc int, w io.Writer) (next int, err error) {
	ew := errw.New(w)
	ins, err := vm.Decode(mem[pc])
	if err != nil || pc+ins.Width() > len(mem) {
		io.WriteString(ew, ".dat ")
		io.WriteString(ew, mem[pc].String())
		return pc + 1, ew.Err
	}
	io.WriteString(ew, ins.Op.String())
	for k := 0; k < ins.Op.Operands(); k++ {
		ew.Write([]byte{' '})
		io.WriteString(ew, ins.Modes[k].Prefix())
		io.WriteString(ew, mem[pc+1+k].String())
	}
	return pc + ins.Width(), ew.Err
}

// DisassembleAll disassembles all cells in the given slice and writes them to
// the specified io.Writer. The base argument specifies the real address of the
// first cell (mem[0]). It will return any write error.
func DisassembleAll(mem []vm.Cell, base int, w io.Writer) error {
	ew := errw.New(w)
	for pc := 0; pc < len(mem); {
		fmt.Fprintf(ew, "% 10d\t", base+pc)
		pc, _ = Disassemble(mem, pc, ew)
		ew.Write([]byte{'\n'})
		if ew.Err != nil {
			return ew.Err
		}
	}
	return nil
}
