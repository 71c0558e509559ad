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

import "github.com/pkg/errors"

// writes further than sparseGap cells past the end of the dense region go to
// the sparse map instead of growing the slice.
const sparseGap = 1 << 16

// Memory is the VM memory. It is logically infinite: reading a cell that was
// never written returns 0 and writing past the current end transparently
// extends it. Low addresses are backed by a slice, far away ones by a map.
//
// Memory is not safe for concurrent use. While an Instance is running, its
// memory belongs to the goroutine running it.
type Memory struct {
	cells  []Cell
	sparse map[int64]Cell
}

// NewMemory returns a new Memory initialized with a copy of p.
func NewMemory(p Program) *Memory {
	m := new(Memory)
	m.load(p)
	return m
}

func (m *Memory) load(p Program) {
	if cap(m.cells) >= len(p) {
		m.cells = m.cells[:len(p)]
	} else {
		m.cells = make([]Cell, len(p))
	}
	copy(m.cells, p)
	m.sparse = nil
}

func checkAddress(addr int64) error {
	if addr < 0 {
		return errors.Wrapf(ErrInvalidAddress, "address %d", addr)
	}
	return nil
}

// Read returns the value stored at addr.
func (m *Memory) Read(addr int64) (Cell, error) {
	if err := checkAddress(addr); err != nil {
		return Cell{}, err
	}
	if addr < int64(len(m.cells)) {
		return m.cells[addr], nil
	}
	return m.sparse[addr], nil
}

// Write stores v at addr.
func (m *Memory) Write(addr int64, v Cell) error {
	if err := checkAddress(addr); err != nil {
		return err
	}
	l := int64(len(m.cells))
	switch {
	case addr < l:
		m.cells[addr] = v
	case addr-l < sparseGap:
		m.grow(addr + 1)
		m.cells[addr] = v
	default:
		if m.sparse == nil {
			m.sparse = make(map[int64]Cell)
		}
		m.sparse[addr] = v
	}
	return nil
}

// grow extends the dense region to size cells, moving any sparse cell that
// falls inside it.
func (m *Memory) grow(size int64) {
	if size <= int64(cap(m.cells)) {
		l := len(m.cells)
		m.cells = m.cells[:size]
		clear(m.cells[l:])
	} else {
		c := 2 * int64(cap(m.cells))
		if c < size {
			c = size
		}
		t := make([]Cell, size, c)
		copy(t, m.cells)
		m.cells = t
	}
	for a, v := range m.sparse {
		if a < size {
			m.cells[a] = v
			delete(m.sparse, a)
		}
	}
}

// Len returns the size of the dense region, that is one past the highest
// address written in it or the program length, whichever is larger.
func (m *Memory) Len() int { return len(m.cells) }

// Cells returns a copy of the dense region.
func (m *Memory) Cells() []Cell {
	t := make([]Cell, len(m.cells))
	copy(t, m.cells)
	return t
}
