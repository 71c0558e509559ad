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
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Opcode is an Intcode operation selector, the two lowest decimal digits of an
// instruction word.
type Opcode int

// Intcode Opcodes.
const (
	OpAdd         Opcode = 1
	OpMul         Opcode = 2
	OpRead        Opcode = 3
	OpWrite       Opcode = 4
	OpJumpIfTrue  Opcode = 5
	OpJumpIfFalse Opcode = 6
	OpLessThan    Opcode = 7
	OpEquals      Opcode = 8
	OpAdjustBase  Opcode = 9
	OpHalt        Opcode = 99
)

const (
	opMaxOperands  = 3
	opModeDivisor  = 100
	opModeDigitCnt = 3
)

var opcodes = map[Opcode]struct {
	name  string
	width int
}{
	OpAdd:         {"add", 4},
	OpMul:         {"mul", 4},
	OpRead:        {"in", 2},
	OpWrite:       {"out", 2},
	OpJumpIfTrue:  {"jt", 3},
	OpJumpIfFalse: {"jf", 3},
	OpLessThan:    {"lt", 4},
	OpEquals:      {"eq", 4},
	OpAdjustBase:  {"arb", 2},
	OpHalt:        {"hlt", 1},
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodes[op]
	return ok
}

// Width returns the number of cells used by an instruction with this opcode,
// the instruction word included. It returns 1 for undefined opcodes.
func (op Opcode) Width() int {
	if o, ok := opcodes[op]; ok {
		return o.width
	}
	return 1
}

// Operands returns the number of operands of op.
func (op Opcode) Operands() int { return op.Width() - 1 }

// String returns the assembler mnemonic of op.
func (op Opcode) String() string {
	if o, ok := opcodes[op]; ok {
		return o.name
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

// Mode is an operand addressing mode.
type Mode int

// Addressing modes.
const (
	Positional Mode = iota // operand is an address
	Immediate              // operand is a literal value. Not valid for write targets
	Relative               // operand is an address relative to the relative base
)

// Prefix returns the assembler prefix for the mode: "" for Positional, "#" for
// Immediate and "@" for Relative.
func (m Mode) Prefix() string {
	switch m {
	case Immediate:
		return "#"
	case Relative:
		return "@"
	}
	return ""
}

func (m Mode) String() string {
	switch m {
	case Positional:
		return "positional"
	case Immediate:
		return "immediate"
	case Relative:
		return "relative"
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// Instruction is a decoded instruction word.
type Instruction struct {
	Op    Opcode
	Modes [opMaxOperands]Mode
}

// Width returns the instruction width in cells.
func (ins Instruction) Width() int { return ins.Op.Width() }

// Word encodes the instruction back into an instruction word.
func (ins Instruction) Word() Cell {
	w := int64(ins.Op)
	m := int64(opModeDivisor)
	for _, mode := range ins.Modes {
		w += int64(mode) * m
		m *= 10
	}
	return Int(w)
}

func (ins Instruction) String() string {
	var b strings.Builder
	b.WriteString(ins.Op.String())
	for k := 0; k < ins.Op.Operands(); k++ {
		b.WriteByte(' ')
		b.WriteString(ins.Modes[k].String())
	}
	return b.String()
}

// Decode decodes an instruction word. The opcode is taken from the two lowest
// decimal digits, the addressing modes of the first, second and third operand
// from the hundreds, thousands and ten-thousands digits. Missing digits decode
// as Positional. Higher digits are ignored.
//
// Decode returns an error whose cause is ErrInvalidOpcode if the opcode is
// undefined, the word is negative or does not fit in an int64, or a mode digit
// is not a valid Mode.
func Decode(w Cell) (Instruction, error) {
	var ins Instruction
	n, ok := w.Int64()
	if !ok || n < 0 {
		return ins, errors.Wrapf(ErrInvalidOpcode, "word %v", w)
	}
	ins.Op = Opcode(n % opModeDivisor)
	if !ins.Op.Valid() {
		return ins, errors.Wrapf(ErrInvalidOpcode, "opcode %d", int(ins.Op))
	}
	n /= opModeDivisor
	for k := 0; k < opModeDigitCnt; k++ {
		m := Mode(n % 10)
		if m > Relative {
			return ins, errors.Wrapf(ErrInvalidOpcode, "word %v: mode %d for operand %d", w, int(m), k+1)
		}
		ins.Modes[k] = m
		n /= 10
	}
	return ins, nil
}
