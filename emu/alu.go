package emu

import (
	"math/bits"

	"github.com/sarchlab/a64sim/insts"
)

// ALU implements arithmetic, logic, wide move and multiply operations.
// Every operation works at 32 or 64 bits; 32-bit results are zero-extended
// into the destination.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// ADD performs Rd = Rn + op2.
func (a *ALU) ADD(rd, rn uint8, op2 uint64, setFlags, is64Bit bool) {
	if is64Bit {
		op1 := a.regFile.ReadReg(rn)
		result := op1 + op2
		a.regFile.WriteReg(rd, result)
		if setFlags {
			a.setAddFlags64(op1, op2, result)
		}
		return
	}

	op1 := a.regFile.ReadReg32(rn)
	result := op1 + uint32(op2)
	a.regFile.WriteReg32(rd, result)
	if setFlags {
		a.setAddFlags32(op1, uint32(op2), result)
	}
}

// SUB performs Rd = Rn - op2.
func (a *ALU) SUB(rd, rn uint8, op2 uint64, setFlags, is64Bit bool) {
	if is64Bit {
		op1 := a.regFile.ReadReg(rn)
		result := op1 - op2
		a.regFile.WriteReg(rd, result)
		if setFlags {
			a.setSubFlags64(op1, op2, result)
		}
		return
	}

	op1 := a.regFile.ReadReg32(rn)
	result := op1 - uint32(op2)
	a.regFile.WriteReg32(rd, result)
	if setFlags {
		a.setSubFlags32(op1, uint32(op2), result)
	}
}

// Logical performs AND, ORR or EOR of Rn with op2. Only AND sets flags.
func (a *ALU) Logical(op insts.Op, rd, rn uint8, op2 uint64, setFlags, is64Bit bool) {
	op1 := a.regFile.ReadRegWidth(rn, is64Bit)

	var result uint64
	switch op {
	case insts.OpAND:
		result = op1 & op2
	case insts.OpORR:
		result = op1 | op2
	case insts.OpEOR:
		result = op1 ^ op2
	default:
		return
	}

	a.regFile.WriteRegWidth(rd, result, is64Bit)

	if setFlags {
		if is64Bit {
			a.setLogicFlags64(result)
		} else {
			a.setLogicFlags32(uint32(result))
		}
	}
}

// MOVZ performs Rd = imm16 << shift.
func (a *ALU) MOVZ(rd uint8, imm16 uint64, shift uint8, is64Bit bool) {
	a.regFile.WriteRegWidth(rd, imm16<<shift, is64Bit)
}

// MOVN performs Rd = ^(imm16 << shift).
func (a *ALU) MOVN(rd uint8, imm16 uint64, shift uint8, is64Bit bool) {
	a.regFile.WriteRegWidth(rd, ^(imm16 << shift), is64Bit)
}

// MOVK replaces the halfword at shift in Rd, keeping the other bits.
func (a *ALU) MOVK(rd uint8, imm16 uint64, shift uint8, is64Bit bool) {
	value := a.regFile.ReadRegWidth(rd, is64Bit)
	value = insts.SetBits(value, uint(shift)+16, imm16, 16)
	a.regFile.WriteRegWidth(rd, value, is64Bit)
}

// MADD performs Rd = Ra + Rn*Rm.
func (a *ALU) MADD(rd, rn, rm, ra uint8, is64Bit bool) {
	product := a.regFile.ReadReg(rn) * a.regFile.ReadReg(rm)
	a.regFile.WriteRegWidth(rd, a.regFile.ReadReg(ra)+product, is64Bit)
}

// MSUB performs Rd = Ra - Rn*Rm.
func (a *ALU) MSUB(rd, rn, rm, ra uint8, is64Bit bool) {
	product := a.regFile.ReadReg(rn) * a.regFile.ReadReg(rm)
	a.regFile.WriteRegWidth(rd, a.regFile.ReadReg(ra)-product, is64Bit)
}

// ShiftOperand applies a register shift at the given width.
func ShiftOperand(value uint64, shiftType insts.ShiftType, amount uint8, is64Bit bool) uint64 {
	if is64Bit {
		return applyShift64(value, shiftType, amount)
	}
	return uint64(applyShift32(uint32(value), shiftType, amount))
}

func applyShift64(value uint64, shiftType insts.ShiftType, amount uint8) uint64 {
	amount &= 63
	switch shiftType {
	case insts.ShiftLSL:
		return value << amount
	case insts.ShiftLSR:
		return value >> amount
	case insts.ShiftASR:
		return uint64(int64(value) >> amount)
	case insts.ShiftROR:
		return bits.RotateLeft64(value, -int(amount))
	default:
		return value
	}
}

func applyShift32(value uint32, shiftType insts.ShiftType, amount uint8) uint32 {
	amount &= 31
	switch shiftType {
	case insts.ShiftLSL:
		return value << amount
	case insts.ShiftLSR:
		return value >> amount
	case insts.ShiftASR:
		return uint32(int32(value) >> amount)
	case insts.ShiftROR:
		return bits.RotateLeft32(value, -int(amount))
	default:
		return value
	}
}

// setAddFlags64 sets NZCV flags for 64-bit addition.
func (a *ALU) setAddFlags64(op1, op2, result uint64) {
	// N: Set if result is negative (MSB is 1)
	a.regFile.PSTATE.N = (result >> 63) == 1

	// Z: Set if result is zero
	a.regFile.PSTATE.Z = result == 0

	// C: Set if unsigned overflow (carry out)
	a.regFile.PSTATE.C = result < op1

	// V: Set if both operands share a sign the result does not
	op1Sign := op1 >> 63
	op2Sign := op2 >> 63
	resultSign := result >> 63
	a.regFile.PSTATE.V = (op1Sign == op2Sign) && (op1Sign != resultSign)
}

// setAddFlags32 sets NZCV flags for 32-bit addition.
func (a *ALU) setAddFlags32(op1, op2, result uint32) {
	a.regFile.PSTATE.N = (result >> 31) == 1
	a.regFile.PSTATE.Z = result == 0
	a.regFile.PSTATE.C = result < op1
	op1Sign := op1 >> 31
	op2Sign := op2 >> 31
	resultSign := result >> 31
	a.regFile.PSTATE.V = (op1Sign == op2Sign) && (op1Sign != resultSign)
}

// setSubFlags64 sets NZCV flags for 64-bit subtraction.
func (a *ALU) setSubFlags64(op1, op2, result uint64) {
	a.regFile.PSTATE.N = (result >> 63) == 1
	a.regFile.PSTATE.Z = result == 0

	// C: Set if NO borrow occurred (op1 >= op2)
	a.regFile.PSTATE.C = op1 >= op2

	// V: Set if the operands differ in sign and the result sign differs
	// from the minuend
	op1Sign := op1 >> 63
	op2Sign := op2 >> 63
	resultSign := result >> 63
	a.regFile.PSTATE.V = (op1Sign != op2Sign) && (op2Sign == resultSign)
}

// setSubFlags32 sets NZCV flags for 32-bit subtraction.
func (a *ALU) setSubFlags32(op1, op2, result uint32) {
	a.regFile.PSTATE.N = (result >> 31) == 1
	a.regFile.PSTATE.Z = result == 0
	a.regFile.PSTATE.C = op1 >= op2
	op1Sign := op1 >> 31
	op2Sign := op2 >> 31
	resultSign := result >> 31
	a.regFile.PSTATE.V = (op1Sign != op2Sign) && (op2Sign == resultSign)
}

// setLogicFlags64 sets NZ flags for 64-bit logic operations (C and V are cleared).
func (a *ALU) setLogicFlags64(result uint64) {
	a.regFile.PSTATE.N = (result >> 63) == 1
	a.regFile.PSTATE.Z = result == 0
	a.regFile.PSTATE.C = false
	a.regFile.PSTATE.V = false
}

// setLogicFlags32 sets NZ flags for 32-bit logic operations (C and V are cleared).
func (a *ALU) setLogicFlags32(result uint32) {
	a.regFile.PSTATE.N = (result >> 31) == 1
	a.regFile.PSTATE.Z = result == 0
	a.regFile.PSTATE.C = false
	a.regFile.PSTATE.V = false
}
