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

// Package asm provides utility functions to assemble and disassemble Intcode
// programs.
//
// Supported assembler mnemonics:
//
//	opcode	asm		operands	description
//	------	---		--------	-----------------------------------------------
//	1	add		a b dst		dst = a + b
//	2	mul		a b dst		dst = a * b
//	3	in		dst		dst = next input value
//	4	out		a		output a
//	5	jt, jnz		a t		jump to t if a != 0
//	6	jf, jz		a t		jump to t if a == 0
//	7	lt		a b dst		dst = 1 if a < b, 0 otherwise
//	8	eq		a b dst		dst = 1 if a == b, 0 otherwise
//	9	arb, rb		a		add a to the relative base
//	99	hlt, halt			halt
//
// Operands:
//
// The addressing mode of an operand is given by an optional prefix:
//
//	42	positional: the value stored at address 42
//	#42	immediate: the value 42. Not allowed for write targets
//	@42	relative: the value stored at address relative base + 42
//
// An operand value can be an integer literal (any size in base 10; Go base
// prefixes 0x, 0o, 0b are accepted for values fitting in 64 bits), a character
// literal between single quotes, a constant defined with .equ, or a label. A
// label evaluates to its address, so "x" reads the cell at label x while "#x"
// is the address of x itself.
//
// Comments:
//
// Comments are placed between parentheses, i.e. '(' and ')'. The body of the
// comment must be separated from the enclosing parentheses by a space:
//
//	( this is a valid comment )
//	(this is not, the parser sees the mnemonic "(this" )
//
// Labels:
//
// Labels are defined by prefixing them with a colon (:). Forward references are
// allowed:
//
//	:loop	in   x
//		out  x
//		jt   #1 #loop
//	:x	0
//
// Data:
//
// Where an instruction is expected, integer literals, character literals and
// constants are compiled as-is. This is primarily used for variables, like x
// above.
//
// Assembler directives:
//
//	.equ <IDENTIFIER> <value>
//
// defines a constant value. <IDENTIFIER> can be any valid identifier (any
// combination of letters, symbols, digits and punctuation). The value must be
// an integer value, named constant or character literal.
//
//	.org <value>
//
// Will place the next instruction at the address specified by the given integer
// literal or named constant. Skipped cells are zero.
//
//	.dat <value>
//
// Will compile the specified integer value, named constant, character literal
// or label address as-is. This is the only way to place the address of a label
// in memory:
//
//	:table	.dat 65
//		.dat 'B'
//		.dat table
package asm
