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
	"io"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/ptillemans/AdventOfCode2019/vm"
)

// maximum number of errors reported before giving up.
const maxErrors = 10

func isIdentRune(ch rune, i int) bool {
	return unicode.IsLetter(ch) || unicode.IsSymbol(ch) || unicode.IsPunct(ch) || unicode.IsDigit(ch)
}

type labelSite struct {
	pos     scanner.Position
	address int
}

type label struct {
	labelSite
	uses []labelSite
}

// instruction being assembled.
type pending struct {
	pc    int
	ins   vm.Instruction
	next  int // index of the next operand
	count int // number of operands
}

type parser struct {
	i       vm.Program
	pc      int
	s       scanner.Scanner
	labels  map[string]*label
	consts  map[string]labelSite
	cstName string
	cstPos  scanner.Position
	ins     pending
	errs    ErrAsm
}

func newParser() *parser {
	p := new(parser)
	p.labels = make(map[string]*label)
	p.consts = make(map[string]labelSite)
	return p
}

func (p *parser) write(v vm.Cell) {
	if p.pc >= len(p.i) {
		p.i = append(p.i, make(vm.Program, p.pc+1-len(p.i))...)
	}
	p.i[p.pc] = v
	p.pc++
}

func (p *parser) useLabel(name string) {
	lbl := p.labels[name]
	if lbl == nil {
		lbl = &label{
			// use current position as valid temp position
			labelSite{p.s.Position, -1},
			nil,
		}
		p.labels[name] = lbl
	}
	lbl.uses = append(lbl.uses, labelSite{p.s.Position, p.pc})
}

func (p *parser) error(msg string) {
	pos := p.s.Position
	if !pos.IsValid() {
		pos = p.s.Pos()
	}
	p.errs = append(p.errs, struct {
		Pos scanner.Position
		Msg string
	}{pos, msg})
}

// value converts a token to an integer. It returns false if the token is not an
// integer literal, a character literal or a constant.
func (p *parser) value(s string) (vm.Cell, bool) {
	// check int. Base prefixes are only supported for values fitting in an int64.
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return vm.Int(n), true
	}
	if c, err := vm.ParseCell(s); err == nil {
		return c, true
	}
	// check char
	if len(s) > 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		r, _, tail, err := strconv.UnquoteChar(s[1:len(s)-1], '\'')
		if err != nil || tail != "" {
			p.error("invalid character literal " + s)
			return vm.Cell{}, true
		}
		return vm.Int(int64(r)), true
	}
	// constant ?
	if c, ok := p.consts[s]; ok {
		return vm.Int(int64(c.address)), true
	}
	return vm.Cell{}, false
}

// operand compiles the next operand of the pending instruction.
func (p *parser) operand(s string) {
	mode := vm.Positional
	switch {
	case strings.HasPrefix(s, "#"):
		mode, s = vm.Immediate, s[1:]
	case strings.HasPrefix(s, "@"):
		mode, s = vm.Relative, s[1:]
	}
	if s == "" {
		p.error("missing operand after addressing mode prefix")
		return
	}
	n := p.ins.next
	if mode == vm.Immediate && isTarget(p.ins.ins.Op, n) {
		p.error("immediate mode used for write target of " + p.ins.ins.Op.String())
	}
	p.ins.ins.Modes[n] = mode
	if v, ok := p.value(s); ok {
		p.write(v)
	} else {
		switch s[0] {
		case ':', '.', '(':
			p.error("unexpected " + s + " as operand")
		}
		p.useLabel(s)
		p.write(vm.Cell{})
	}
	p.ins.next++
	if p.ins.next == p.ins.count {
		p.i[p.ins.pc] = p.ins.ins.Word()
	}
}

// isTarget reports whether operand n of op is a write target.
func isTarget(op vm.Opcode, n int) bool {
	switch op {
	case vm.OpAdd, vm.OpMul, vm.OpLessThan, vm.OpEquals:
		return n == 2
	case vm.OpRead:
		return n == 0
	}
	return false
}

// Parse does the parsing and compiling.
func (p *parser) Parse(name string, r io.Reader) (vm.Program, error) {
	// state:
	// 0: accept anything
	// 1: need operand for pending instruction
	// 2: accept integer or const (for .org directive)
	// 3: accept integer or const (for .equ value)
	// 4: accept integer, const or label (for .dat directive)
	var state int

	p.s.Init(r)
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.error(msg)
	}
	p.s.IsIdentRune = isIdentRune
	p.s.Mode = scanner.ScanIdents
	p.s.Filename = name

	for tok := p.s.Scan(); len(p.errs) < maxErrors && tok != scanner.EOF; tok = p.s.Scan() {
		if tok != scanner.Ident {
			p.error("Unexpected character " + strconv.QuoteRune(tok))
			continue
		}
		s := p.s.TokenText()

		// skip comments
		if s == "(" {
			for tok != scanner.EOF && (tok != scanner.Ident || p.s.TokenText() != ")") {
				tok = p.s.Scan()
			}
			continue
		}

		switch state {
		case 1:
			p.operand(s)
			if p.ins.next == p.ins.count {
				state = 0
			}
			continue
		case 2, 3:
			v, ok := p.value(s)
			n, small := v.Int64()
			if !ok || !small {
				p.error("expected integer or constant, got " + s)
			} else if state == 2 {
				if n < 0 {
					p.error(".org: negative address " + s)
				} else {
					p.pc = int(n)
				}
			} else {
				p.consts[p.cstName] = labelSite{p.cstPos, int(n)}
			}
			state = 0
			continue
		case 4:
			if v, ok := p.value(s); ok {
				p.write(v)
			} else {
				p.useLabel(s)
				p.write(vm.Cell{})
			}
			state = 0
			continue
		}

		// state 0
		if v, ok := p.value(s); ok {
			// implicit .dat
			p.write(v)
			continue
		}
		switch s[0] {
		case ':':
			n := s[1:]
			if len(n) == 0 {
				p.error("Empty label name")
				continue
			}
			if cst, ok := p.consts[n]; ok {
				p.error("Label redefinition: " + n + ", previously defined as a constant here: " + cst.pos.String())
				continue
			}
			if l, ok := p.labels[n]; ok {
				if l.address != -1 {
					p.error("Label redefinition: " + n + ", previous definition here: " + l.pos.String())
					continue
				}
				l.address = p.pc
				l.pos = p.s.Position
			} else {
				p.labels[n] = &label{
					labelSite{p.s.Position, p.pc},
					nil,
				}
			}
		case '.':
			switch s {
			case ".org":
				state = 2
			case ".dat":
				state = 4
			case ".equ":
				t := p.s.Scan()
				if t != scanner.Ident {
					p.error(".equ: expected identifier, got " + p.s.TokenText())
					continue
				}
				p.cstName = p.s.TokenText()
				if l, ok := p.labels[p.cstName]; ok {
					p.error(".equ: redefinition of " + p.cstName + ", previously defined/used as a label here: " + l.pos.String())
					continue
				}
				p.cstPos = p.s.Position
				state = 3
			default:
				p.error("Unknown dot directive: " + s)
			}
		default:
			op, ok := opcodeIndex[strings.ToLower(s)]
			if !ok {
				p.error("Unknown mnemonic: " + s)
				continue
			}
			p.ins = pending{pc: p.pc, ins: vm.Instruction{Op: op}, count: op.Operands()}
			p.write(p.ins.ins.Word())
			if p.ins.count > 0 {
				state = 1
			}
		}
	}

	if len(p.errs) < maxErrors {
		switch state {
		case 1:
			p.error("missing operand for " + p.ins.ins.Op.String())
		case 2, 3, 4:
			p.error("missing directive argument")
		}
	}

	// write labels
	for n, l := range p.labels {
		if l.address == -1 {
			p.errs = append(p.errs, struct {
				Pos scanner.Position
				Msg string
			}{l.uses[0].pos, "Undefined label " + n})
			continue
		}
		for _, u := range l.uses {
			p.i[u.address] = vm.Int(int64(l.address))
		}
	}

	if len(p.errs) > 0 {
		p.errs.sort()
		return nil, p.errs
	}
	return p.i, nil
}
