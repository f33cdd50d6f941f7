package insts

import (
	"errors"
	"fmt"
)

// ErrFormat is returned when an instruction cannot be represented by any
// supported encoding.
var ErrFormat = errors.New("unencodable instruction")

// Base words of each encoding. Fields are ORed into place.
const (
	dpImmBase      uint32 = 0x10000000
	dpRegBase      uint32 = 0x0a000000
	multiplyBase   uint32 = 0x1b000000
	branchBase     uint32 = 0x14000000
	branchRegBase  uint32 = 0xd61f0000
	branchCondBase uint32 = 0x54000000
	transferBase   uint32 = 0xb8000000
	literalBase    uint32 = 0x18000000

	regOffsetBits uint32 = 0x00206800
	preIndexBits  uint32 = 0x00000c00
	postIndexBits uint32 = 0x00000400
)

// Encode assembles a decoded instruction into its 32-bit word. It is the
// exact inverse of Decoder.Decode for every supported format.
//
// Branch and literal offsets are truncated to their field width before
// being divided by the instruction size, so out-of-range offsets wrap
// rather than fail.
func Encode(inst *Instruction) (uint32, error) {
	switch inst.Format {
	case FormatData:
		return inst.Word, nil
	case FormatNOP:
		return NOPWord, nil
	case FormatHalt:
		return HaltWord, nil
	case FormatDPImm:
		return encodeDPImm(inst)
	case FormatMoveWide:
		return encodeMoveWide(inst)
	case FormatDPReg:
		return encodeDPReg(inst)
	case FormatDataProc3Src:
		return encodeMultiply(inst)
	case FormatBranch:
		return branchBase | offsetField(inst.BranchOffset, 26), nil
	case FormatBranchReg:
		return branchRegBase | reg(inst.Rn)<<5, nil
	case FormatBranchCond:
		return branchCondBase | offsetField(inst.BranchOffset, 19)<<5 | uint32(inst.Cond&0xF), nil
	case FormatLoadStore:
		return encodeLoadStore(inst)
	case FormatLoadStoreLit:
		return literalBase | sfBit(inst.Is64Bit, 30) |
			offsetField(inst.BranchOffset, 19)<<5 | reg(inst.Rd), nil
	default:
		return 0, fmt.Errorf("%w: format %d", ErrFormat, inst.Format)
	}
}

// encodeDPImm encodes ADD/SUB immediate.
// Format: sf | opc | 100 | 010 | sh | imm12 | Rn | Rd
func encodeDPImm(inst *Instruction) (uint32, error) {
	opc, err := arithOpc(inst)
	if err != nil {
		return 0, err
	}
	if inst.Imm > Mask(12) {
		return 0, fmt.Errorf("%w: imm12 %d out of range", ErrFormat, inst.Imm)
	}

	word := dpImmBase | sfBit(inst.Is64Bit, 31) | opc<<29 | 0b010<<23 |
		uint32(inst.Imm)<<10 | reg(inst.Rn)<<5 | reg(inst.Rd)

	switch inst.Shift {
	case 0:
	case 12:
		word |= 1 << 22
	default:
		return 0, fmt.Errorf("%w: immediate shift %d", ErrFormat, inst.Shift)
	}

	return word, nil
}

// encodeMoveWide encodes MOVN/MOVZ/MOVK.
// Format: sf | opc | 100 | 101 | hw | imm16 | Rd
func encodeMoveWide(inst *Instruction) (uint32, error) {
	var opc uint32
	switch inst.Op {
	case OpMOVN:
		opc = 0b00
	case OpMOVZ:
		opc = 0b10
	case OpMOVK:
		opc = 0b11
	default:
		return 0, fmt.Errorf("%w: op %d is not a wide move", ErrFormat, inst.Op)
	}
	if inst.Imm > Mask(16) {
		return 0, fmt.Errorf("%w: imm16 %d out of range", ErrFormat, inst.Imm)
	}
	if inst.Shift%16 != 0 || inst.Shift > 48 {
		return 0, fmt.Errorf("%w: wide move shift %d", ErrFormat, inst.Shift)
	}

	hw := uint32(inst.Shift / 16)
	return dpImmBase | sfBit(inst.Is64Bit, 31) | opc<<29 | 0b101<<23 |
		hw<<21 | uint32(inst.Imm)<<5 | reg(inst.Rd), nil
}

// encodeDPReg encodes arithmetic and logical shifted-register forms.
func encodeDPReg(inst *Instruction) (uint32, error) {
	if inst.ShiftAmount > uint8(Mask(6)) {
		return 0, fmt.Errorf("%w: shift amount %d out of range", ErrFormat, inst.ShiftAmount)
	}

	word := dpRegBase | sfBit(inst.Is64Bit, 31) | uint32(inst.ShiftType&0b11)<<22 |
		reg(inst.Rm)<<16 | uint32(inst.ShiftAmount)<<10 | reg(inst.Rn)<<5 | reg(inst.Rd)

	switch inst.Op {
	case OpADD, OpSUB:
		opc, err := arithOpc(inst)
		if err != nil {
			return 0, err
		}
		return word | opc<<29 | 1<<24, nil
	case OpAND, OpORR, OpEOR:
		var opc uint32
		switch {
		case inst.Op == OpAND && inst.SetFlags:
			opc = 0b11
		case inst.SetFlags:
			return 0, fmt.Errorf("%w: only AND has a flag-setting logical form", ErrFormat)
		case inst.Op == OpAND:
			opc = 0b00
		case inst.Op == OpORR:
			opc = 0b01
		default:
			opc = 0b10
		}
		word |= opc << 29
		if inst.Negate {
			word |= 1 << 21
		}
		return word, nil
	default:
		return 0, fmt.Errorf("%w: op %d is not a register data processing op", ErrFormat, inst.Op)
	}
}

// encodeMultiply encodes MADD/MSUB.
// Format: sf | 00 | 11011 | 000 | Rm | x | Ra | Rn | Rd
func encodeMultiply(inst *Instruction) (uint32, error) {
	word := multiplyBase | sfBit(inst.Is64Bit, 31) | reg(inst.Rm)<<16 |
		reg(inst.Ra)<<10 | reg(inst.Rn)<<5 | reg(inst.Rd)

	switch inst.Op {
	case OpMADD:
		return word, nil
	case OpMSUB:
		return word | 1<<15, nil
	default:
		return 0, fmt.Errorf("%w: op %d is not a multiply", ErrFormat, inst.Op)
	}
}

// encodeLoadStore encodes LDR/STR with a base register.
// Format: 1 | sf | 111000 | U | 0 | L | offset | Xn | Rt
func encodeLoadStore(inst *Instruction) (uint32, error) {
	word := transferBase | sfBit(inst.Is64Bit, 30) | reg(inst.Rn)<<5 | reg(inst.Rd)

	switch inst.Op {
	case OpLDR:
		word |= 1 << 22
	case OpSTR:
	default:
		return 0, fmt.Errorf("%w: op %d is not a load or store", ErrFormat, inst.Op)
	}

	switch inst.IndexMode {
	case IndexUnsigned:
		imm12 := inst.Imm / inst.TransferSize()
		word |= 1<<24 | uint32(imm12&Mask(12))<<10
	case IndexPre:
		word |= preIndexBits | uint32(uint64(inst.SignedImm)&Mask(9))<<12
	case IndexPost:
		word |= postIndexBits | uint32(uint64(inst.SignedImm)&Mask(9))<<12
	case IndexRegBase:
		word |= regOffsetBits | reg(inst.Rm)<<16
	default:
		return 0, fmt.Errorf("%w: index mode %d", ErrFormat, inst.IndexMode)
	}

	return word, nil
}

// arithOpc returns the two-bit opc of ADD/ADDS/SUB/SUBS.
func arithOpc(inst *Instruction) (uint32, error) {
	var opc uint32
	switch inst.Op {
	case OpADD:
	case OpSUB:
		opc = 0b10
	default:
		return 0, fmt.Errorf("%w: op %d is not arithmetic", ErrFormat, inst.Op)
	}
	if inst.SetFlags {
		opc |= 0b01
	}
	return opc, nil
}

// offsetField truncates a byte offset to a word-granular field of length
// bits: the offset is masked to length+2 bits, then divided by the
// instruction size.
func offsetField(offset int64, length uint) uint32 {
	return uint32((uint64(offset) & Mask(length+2)) / InstructionSize)
}

func sfBit(is64Bit bool, pos uint) uint32 {
	if is64Bit {
		return 1 << pos
	}
	return 0
}

func reg(r uint8) uint32 {
	return uint32(r) & 0x1F
}
