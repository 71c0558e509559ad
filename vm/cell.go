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
	"math"
	"math/big"
	"strconv"

	"github.com/pkg/errors"
)

// Cell is the raw type stored in a memory location. It holds a signed integer
// of arbitrary precision: values that fit in an int64 are stored inline, larger
// ones are promoted to a big.Int. The zero value is 0.
//
// Cells are immutable values and may be copied freely. Use Equal or Cmp to
// compare them, not ==.
type Cell struct {
	n int64
	b *big.Int // non-nil only if the value does not fit in an int64
}

// Int returns a Cell holding v.
func Int(v int64) Cell {
	return Cell{n: v}
}

// BigInt returns a Cell holding the value of v. v is copied.
func BigInt(v *big.Int) Cell {
	return fromBig(new(big.Int).Set(v))
}

// Values converts a list of int64 to Cells.
func Values(vs ...int64) []Cell {
	cs := make([]Cell, len(vs))
	for k, v := range vs {
		cs[k] = Cell{n: v}
	}
	return cs
}

// ParseCell parses a base 10 signed integer of any size.
func ParseCell(s string) (Cell, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Cell{n: n}, nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Cell{}, errors.Errorf("invalid integer %q", s)
	}
	return fromBig(b), nil
}

// fromBig takes ownership of b.
func fromBig(b *big.Int) Cell {
	if b.IsInt64() {
		return Cell{n: b.Int64()}
	}
	return Cell{b: b}
}

// IsInt64 reports whether c can be represented as an int64.
func (c Cell) IsInt64() bool { return c.b == nil }

// Int64 returns the int64 value of c and whether it fits in an int64. If it
// does not, the returned value is the low 64 bits of c.
func (c Cell) Int64() (int64, bool) {
	if c.b != nil {
		return c.b.Int64(), false
	}
	return c.n, true
}

// Big returns the value of c as a newly allocated big.Int.
func (c Cell) Big() *big.Int {
	if c.b != nil {
		return new(big.Int).Set(c.b)
	}
	return big.NewInt(c.n)
}

// Sign returns -1, 0 or +1 depending on the sign of c.
func (c Cell) Sign() int {
	if c.b != nil {
		return c.b.Sign()
	}
	switch {
	case c.n < 0:
		return -1
	case c.n > 0:
		return 1
	}
	return 0
}

// IsZero reports whether c == 0.
func (c Cell) IsZero() bool { return c.b == nil && c.n == 0 }

// Cmp compares c and o and returns -1, 0 or +1.
func (c Cell) Cmp(o Cell) int {
	if c.b == nil && o.b == nil {
		switch {
		case c.n < o.n:
			return -1
		case c.n > o.n:
			return 1
		}
		return 0
	}
	return c.Big().Cmp(o.Big())
}

// Equal reports whether c and o hold the same value.
func (c Cell) Equal(o Cell) bool {
	if c.b == nil && o.b == nil {
		return c.n == o.n
	}
	return c.Cmp(o) == 0
}

// Add returns c + o.
func (c Cell) Add(o Cell) Cell {
	if c.b == nil && o.b == nil {
		s := c.n + o.n
		if (s > c.n) == (o.n > 0) {
			return Cell{n: s}
		}
	}
	return fromBig(new(big.Int).Add(c.Big(), o.Big()))
}

// Mul returns c * o.
func (c Cell) Mul(o Cell) Cell {
	if c.b == nil && o.b == nil {
		if c.n == 0 || o.n == 0 {
			return Cell{}
		}
		p := c.n * o.n
		if p/o.n == c.n && !(c.n == math.MinInt64 && o.n == -1) && !(o.n == math.MinInt64 && c.n == -1) {
			return Cell{n: p}
		}
	}
	return fromBig(new(big.Int).Mul(c.Big(), o.Big()))
}

// String returns the base 10 representation of c.
func (c Cell) String() string {
	if c.b != nil {
		return c.b.String()
	}
	return strconv.FormatInt(c.n, 10)
}

// boolCell returns 1 for true, 0 otherwise.
func boolCell(b bool) Cell {
	if b {
		return Cell{n: 1}
	}
	return Cell{}
}
