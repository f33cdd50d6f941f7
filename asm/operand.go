package asm

import (
	"strconv"
	"strings"

	"github.com/sarchlab/a64sim/insts"
)

// ZeroRegister is the index that reads as zero and discards writes.
const ZeroRegister = 31

// Operand is one comma-separated argument of an instruction.
type Operand interface {
	isOperand()
}

// Register is a general register reference (x0-x30, w0-w30, xzr, wzr).
type Register struct {
	Index uint8
	Is64  bool
}

// Immediate is a #-prefixed constant.
type Immediate struct {
	Value int64
}

// Shift is a shift descriptor such as "lsl #12".
type Shift struct {
	Kind   insts.ShiftType
	Amount uint64
}

// Label is a symbolic reference resolved through the symbol table.
type Label struct {
	Name string
}

// Literal is a bare number, as taken by .int and literal targets.
type Literal struct {
	Value int64
}

// Memory is a bracketed address: [xn], [xn, #imm], [xn, xm] or
// [xn, #imm]!.
type Memory struct {
	Base      Register
	Offset    int64
	HasOffset bool
	Index     *Register
	Writeback bool
}

func (Register) isOperand()  {}
func (Immediate) isOperand() {}
func (Shift) isOperand()     {}
func (Label) isOperand()     {}
func (Literal) isOperand()   {}
func (Memory) isOperand()    {}

var shiftKinds = map[string]insts.ShiftType{
	"lsl": insts.ShiftLSL,
	"lsr": insts.ShiftLSR,
	"asr": insts.ShiftASR,
	"ror": insts.ShiftROR,
}

// lookupRegister recognizes register names. Anything else is a label.
func lookupRegister(name string) (Register, bool) {
	name = strings.ToLower(name)

	switch name {
	case "xzr":
		return Register{Index: ZeroRegister, Is64: true}, true
	case "wzr":
		return Register{Index: ZeroRegister}, true
	}

	if len(name) < 2 || (name[0] != 'x' && name[0] != 'w') {
		return Register{}, false
	}
	digits := name[1:]
	if len(digits) > 1 && digits[0] == '0' {
		return Register{}, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || n >= ZeroRegister {
		return Register{}, false
	}

	return Register{Index: uint8(n), Is64: name[0] == 'x'}, true
}
