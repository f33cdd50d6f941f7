package asm

import (
	"fmt"

	"github.com/sarchlab/a64sim/insts"
)

// lineContext is what an encoder may consult besides its operands.
type lineContext struct {
	address uint64
	symbols *SymbolTable
}

// encoder lowers the operands of one mnemonic into an instruction.
type encoder func(ctx *lineContext, ops []Operand) (*insts.Instruction, error)

// mnemonics maps every supported opcode to its encoder.
var mnemonics = map[string]encoder{
	// Arithmetic
	"add":  arithmetic(insts.OpADD, false),
	"adds": arithmetic(insts.OpADD, true),
	"sub":  arithmetic(insts.OpSUB, false),
	"subs": arithmetic(insts.OpSUB, true),
	"cmp":  compare(insts.OpSUB),
	"cmn":  compare(insts.OpADD),
	"neg":  negate(false),
	"negs": negate(true),

	// Logical
	"and":  logical(insts.OpAND, false, false),
	"ands": logical(insts.OpAND, true, false),
	"orr":  logical(insts.OpORR, false, false),
	"eor":  logical(insts.OpEOR, false, false),
	"bic":  logical(insts.OpAND, false, true),
	"bics": logical(insts.OpAND, true, true),
	"orn":  logical(insts.OpORR, false, true),
	"eon":  logical(insts.OpEOR, false, true),
	"tst":  test,
	"mov":  move(false),
	"mvn":  move(true),

	// Wide move
	"movz": wideMove(insts.OpMOVZ),
	"movn": wideMove(insts.OpMOVN),
	"movk": wideMove(insts.OpMOVK),

	// Multiply
	"madd": multiply(insts.OpMADD),
	"msub": multiply(insts.OpMSUB),
	"mul":  multiplyZero(insts.OpMADD),
	"mneg": multiplyZero(insts.OpMSUB),

	// Branch
	"b":   branch,
	"br":  branchRegister,
	"beq": branchCond(insts.CondEQ),
	"bne": branchCond(insts.CondNE),
	"bge": branchCond(insts.CondGE),
	"blt": branchCond(insts.CondLT),
	"bgt": branchCond(insts.CondGT),
	"ble": branchCond(insts.CondLE),
	"bal": branchCond(insts.CondAL),

	// Single data transfer
	"ldr": transfer(insts.OpLDR),
	"str": transfer(insts.OpSTR),

	// Others
	".int": directiveInt,
	"nop":  nop,
}

// IsMnemonic reports whether name is a supported opcode.
func IsMnemonic(name string) bool {
	_, ok := mnemonics[name]
	return ok
}

func arithmetic(op insts.Op, setFlags bool) encoder {
	return func(_ *lineContext, ops []Operand) (*insts.Instruction, error) {
		if err := wantOperands(ops, 3, 4); err != nil {
			return nil, err
		}
		rd, err := asRegister(ops[0])
		if err != nil {
			return nil, err
		}
		rn, err := asRegister(ops[1])
		if err != nil {
			return nil, err
		}
		return arithmeticOperand(op, setFlags, rd, rn, ops[2:])
	}
}

// compare is cmp/cmn: a flag-setting arithmetic op into the zero register.
func compare(op insts.Op) encoder {
	return func(_ *lineContext, ops []Operand) (*insts.Instruction, error) {
		if err := wantOperands(ops, 2, 3); err != nil {
			return nil, err
		}
		rn, err := asRegister(ops[0])
		if err != nil {
			return nil, err
		}
		rd := Register{Index: ZeroRegister, Is64: rn.Is64}
		return arithmeticOperand(op, true, rd, rn, ops[1:])
	}
}

// negate is neg/negs: subtraction from the zero register.
func negate(setFlags bool) encoder {
	return func(_ *lineContext, ops []Operand) (*insts.Instruction, error) {
		if err := wantOperands(ops, 2, 3); err != nil {
			return nil, err
		}
		rd, err := asRegister(ops[0])
		if err != nil {
			return nil, err
		}
		rn := Register{Index: ZeroRegister, Is64: rd.Is64}
		return arithmeticOperand(insts.OpSUB, setFlags, rd, rn, ops[1:])
	}
}

// arithmeticOperand picks the register or immediate layout from the second
// source operand. rest holds that operand and an optional shift.
func arithmeticOperand(
	op insts.Op, setFlags bool, rd, rn Register, rest []Operand,
) (*insts.Instruction, error) {
	shift, err := optionalShift(rest[1:])
	if err != nil {
		return nil, err
	}

	inst := &insts.Instruction{
		Op:       op,
		Is64Bit:  rd.Is64,
		SetFlags: setFlags,
		Rd:       rd.Index,
		Rn:       rn.Index,
	}

	switch src := rest[0].(type) {
	case Register:
		inst.Format = insts.FormatDPReg
		inst.Rm = src.Index
		inst.ShiftType = shift.Kind
		inst.ShiftAmount = uint8(shift.Amount)
		if shift.Amount > insts.Mask(6) {
			return nil, fmt.Errorf("%w: shift amount %d", ErrOperand, shift.Amount)
		}
	case Immediate:
		if src.Value < 0 || uint64(src.Value) > insts.Mask(12) {
			return nil, fmt.Errorf("%w: immediate %d does not fit in 12 bits", ErrOperand, src.Value)
		}
		inst.Format = insts.FormatDPImm
		inst.Imm = uint64(src.Value)
		if shift.Amount != 0 {
			if shift.Kind != insts.ShiftLSL {
				return nil, fmt.Errorf("%w: immediates only take lsl", ErrOperand)
			}
			inst.Shift = 12
		}
	default:
		return nil, fmt.Errorf("%w: expected register or immediate, got %T", ErrOperand, rest[0])
	}

	return inst, nil
}

func logical(op insts.Op, setFlags, negated bool) encoder {
	return func(_ *lineContext, ops []Operand) (*insts.Instruction, error) {
		if err := wantOperands(ops, 3, 4); err != nil {
			return nil, err
		}
		regs, err := asRegisters(ops[:3])
		if err != nil {
			return nil, err
		}
		return logicalRegisters(op, setFlags, negated, regs[0], regs[1], regs[2], ops[3:])
	}
}

// test is tst: ANDS into the zero register.
func test(_ *lineContext, ops []Operand) (*insts.Instruction, error) {
	if err := wantOperands(ops, 2, 3); err != nil {
		return nil, err
	}
	regs, err := asRegisters(ops[:2])
	if err != nil {
		return nil, err
	}
	rd := Register{Index: ZeroRegister, Is64: regs[0].Is64}
	return logicalRegisters(insts.OpAND, true, false, rd, regs[0], regs[1], ops[2:])
}

// move is mov/mvn: ORR/ORN with the zero register as first source.
func move(negated bool) encoder {
	return func(_ *lineContext, ops []Operand) (*insts.Instruction, error) {
		if err := wantOperands(ops, 2, 3); err != nil {
			return nil, err
		}
		regs, err := asRegisters(ops[:2])
		if err != nil {
			return nil, err
		}
		rn := Register{Index: ZeroRegister, Is64: regs[0].Is64}
		return logicalRegisters(insts.OpORR, false, negated, regs[0], rn, regs[1], ops[2:])
	}
}

func logicalRegisters(
	op insts.Op, setFlags, negated bool, rd, rn, rm Register, rest []Operand,
) (*insts.Instruction, error) {
	shift, err := optionalShift(rest)
	if err != nil {
		return nil, err
	}
	if shift.Amount > insts.Mask(6) {
		return nil, fmt.Errorf("%w: shift amount %d", ErrOperand, shift.Amount)
	}

	return &insts.Instruction{
		Op:          op,
		Format:      insts.FormatDPReg,
		Is64Bit:     rd.Is64,
		SetFlags:    setFlags,
		Negate:      negated,
		Rd:          rd.Index,
		Rn:          rn.Index,
		Rm:          rm.Index,
		ShiftType:   shift.Kind,
		ShiftAmount: uint8(shift.Amount),
	}, nil
}

func wideMove(op insts.Op) encoder {
	return func(_ *lineContext, ops []Operand) (*insts.Instruction, error) {
		if err := wantOperands(ops, 2, 3); err != nil {
			return nil, err
		}
		rd, err := asRegister(ops[0])
		if err != nil {
			return nil, err
		}
		imm, ok := ops[1].(Immediate)
		if !ok {
			return nil, fmt.Errorf("%w: expected immediate, got %T", ErrOperand, ops[1])
		}
		if imm.Value < 0 || uint64(imm.Value) > insts.Mask(16) {
			return nil, fmt.Errorf("%w: immediate %d does not fit in 16 bits", ErrOperand, imm.Value)
		}
		shift, err := optionalShift(ops[2:])
		if err != nil {
			return nil, err
		}
		if shift.Kind != insts.ShiftLSL || shift.Amount%16 != 0 || shift.Amount > 48 {
			return nil, fmt.Errorf("%w: wide moves take lsl #0, #16, #32 or #48", ErrOperand)
		}

		return &insts.Instruction{
			Op:      op,
			Format:  insts.FormatMoveWide,
			Is64Bit: rd.Is64,
			Rd:      rd.Index,
			Imm:     uint64(imm.Value),
			Shift:   uint8(shift.Amount),
		}, nil
	}
}

func multiply(op insts.Op) encoder {
	return func(_ *lineContext, ops []Operand) (*insts.Instruction, error) {
		if err := wantOperands(ops, 4, 4); err != nil {
			return nil, err
		}
		regs, err := asRegisters(ops)
		if err != nil {
			return nil, err
		}
		return multiplyRegisters(op, regs[0], regs[1], regs[2], regs[3]), nil
	}
}

// multiplyZero is mul/mneg: the accumulator is the zero register.
func multiplyZero(op insts.Op) encoder {
	return func(_ *lineContext, ops []Operand) (*insts.Instruction, error) {
		if err := wantOperands(ops, 3, 3); err != nil {
			return nil, err
		}
		regs, err := asRegisters(ops)
		if err != nil {
			return nil, err
		}
		ra := Register{Index: ZeroRegister, Is64: regs[0].Is64}
		return multiplyRegisters(op, regs[0], regs[1], regs[2], ra), nil
	}
}

func multiplyRegisters(op insts.Op, rd, rn, rm, ra Register) *insts.Instruction {
	return &insts.Instruction{
		Op:      op,
		Format:  insts.FormatDataProc3Src,
		Is64Bit: rd.Is64,
		Rd:      rd.Index,
		Rn:      rn.Index,
		Rm:      rm.Index,
		Ra:      ra.Index,
	}
}

func branch(ctx *lineContext, ops []Operand) (*insts.Instruction, error) {
	if err := wantOperands(ops, 1, 1); err != nil {
		return nil, err
	}
	offset, err := ctx.relativeTarget(ops[0])
	if err != nil {
		return nil, err
	}
	return &insts.Instruction{Op: insts.OpB, Format: insts.FormatBranch, BranchOffset: offset}, nil
}

func branchRegister(_ *lineContext, ops []Operand) (*insts.Instruction, error) {
	if err := wantOperands(ops, 1, 1); err != nil {
		return nil, err
	}
	rn, err := asRegister(ops[0])
	if err != nil {
		return nil, err
	}
	return &insts.Instruction{Op: insts.OpBR, Format: insts.FormatBranchReg, Is64Bit: true, Rn: rn.Index}, nil
}

func branchCond(cond insts.Cond) encoder {
	return func(ctx *lineContext, ops []Operand) (*insts.Instruction, error) {
		if err := wantOperands(ops, 1, 1); err != nil {
			return nil, err
		}
		offset, err := ctx.relativeTarget(ops[0])
		if err != nil {
			return nil, err
		}
		return &insts.Instruction{
			Op:           insts.OpBCond,
			Format:       insts.FormatBranchCond,
			BranchOffset: offset,
			Cond:         cond,
		}, nil
	}
}

// transfer handles ldr/str in all addressing modes:
//
//	[xn]           unsigned offset 0
//	[xn, #imm]     unsigned offset, scaled by the access size
//	[xn, xm]       register offset
//	[xn, #simm]!   pre-index
//	[xn], #simm    post-index
//	label or #imm  load literal (ldr only)
func transfer(op insts.Op) encoder {
	return func(ctx *lineContext, ops []Operand) (*insts.Instruction, error) {
		if err := wantOperands(ops, 2, 3); err != nil {
			return nil, err
		}
		rt, err := asRegister(ops[0])
		if err != nil {
			return nil, err
		}

		inst := &insts.Instruction{
			Op:      op,
			Format:  insts.FormatLoadStore,
			Is64Bit: rt.Is64,
			Rd:      rt.Index,
		}

		mem, ok := ops[1].(Memory)
		if !ok {
			if op != insts.OpLDR || len(ops) != 2 {
				return nil, fmt.Errorf("%w: expected a memory operand", ErrAddressing)
			}
			offset, err := ctx.relativeTarget(ops[1])
			if err != nil {
				return nil, err
			}
			inst.Op = insts.OpLDRLit
			inst.Format = insts.FormatLoadStoreLit
			inst.BranchOffset = offset
			return inst, nil
		}
		inst.Rn = mem.Base.Index

		switch {
		case len(ops) == 3:
			post, ok := ops[2].(Immediate)
			if !ok || mem.HasOffset || mem.Index != nil || mem.Writeback {
				return nil, fmt.Errorf("%w: post-index takes [xn], #simm", ErrAddressing)
			}
			inst.IndexMode = insts.IndexPost
			inst.SignedImm = post.Value
		case mem.Writeback:
			if !mem.HasOffset {
				return nil, fmt.Errorf("%w: pre-index takes [xn, #simm]!", ErrAddressing)
			}
			inst.IndexMode = insts.IndexPre
			inst.SignedImm = mem.Offset
		case mem.Index != nil:
			inst.IndexMode = insts.IndexRegBase
			inst.Rm = mem.Index.Index
		default:
			size := int64(inst.TransferSize())
			if mem.Offset < 0 || mem.Offset%size != 0 || uint64(mem.Offset/size) > insts.Mask(12) {
				return nil, fmt.Errorf("%w: unsigned offset %d for a %d-byte access", ErrAddressing, mem.Offset, size)
			}
			inst.IndexMode = insts.IndexUnsigned
			inst.Imm = uint64(mem.Offset)
		}

		if inst.IndexMode == insts.IndexPre || inst.IndexMode == insts.IndexPost {
			if inst.SignedImm < -256 || inst.SignedImm > 255 {
				return nil, fmt.Errorf("%w: offset %d does not fit in 9 bits", ErrAddressing, inst.SignedImm)
			}
		}

		return inst, nil
	}
}

// directiveInt emits a literal word verbatim.
func directiveInt(_ *lineContext, ops []Operand) (*insts.Instruction, error) {
	if err := wantOperands(ops, 1, 1); err != nil {
		return nil, err
	}

	var value int64
	switch v := ops[0].(type) {
	case Literal:
		value = v.Value
	case Immediate:
		value = v.Value
	default:
		return nil, fmt.Errorf("%w: .int takes a number, got %T", ErrOperand, ops[0])
	}

	return &insts.Instruction{Format: insts.FormatData, Word: uint32(value)}, nil
}

func nop(_ *lineContext, ops []Operand) (*insts.Instruction, error) {
	if err := wantOperands(ops, 0, 0); err != nil {
		return nil, err
	}
	return &insts.Instruction{Op: insts.OpNOP, Format: insts.FormatNOP}, nil
}

// relativeTarget turns a label or absolute address into a byte offset from
// the current instruction.
func (ctx *lineContext) relativeTarget(op Operand) (int64, error) {
	var target uint64
	switch t := op.(type) {
	case Label:
		addr, err := ctx.symbols.Lookup(t.Name)
		if err != nil {
			return 0, err
		}
		target = addr
	case Immediate:
		target = uint64(t.Value)
	case Literal:
		target = uint64(t.Value)
	default:
		return 0, fmt.Errorf("%w: expected a label or address, got %T", ErrOperand, op)
	}
	return int64(target - ctx.address), nil
}

func wantOperands(ops []Operand, least, most int) error {
	if len(ops) < least || len(ops) > most {
		if least == most {
			return fmt.Errorf("%w: want %d operands, got %d", ErrOperand, least, len(ops))
		}
		return fmt.Errorf("%w: want %d to %d operands, got %d", ErrOperand, least, most, len(ops))
	}
	return nil
}

func asRegister(op Operand) (Register, error) {
	reg, ok := op.(Register)
	if !ok {
		return Register{}, fmt.Errorf("%w: expected register, got %T", ErrOperand, op)
	}
	return reg, nil
}

func asRegisters(ops []Operand) ([]Register, error) {
	regs := make([]Register, len(ops))
	for i, op := range ops {
		reg, err := asRegister(op)
		if err != nil {
			return nil, err
		}
		regs[i] = reg
	}
	return regs, nil
}

// optionalShift reads a trailing shift operand; none means lsl #0.
func optionalShift(rest []Operand) (Shift, error) {
	if len(rest) == 0 {
		return Shift{Kind: insts.ShiftLSL}, nil
	}
	shift, ok := rest[0].(Shift)
	if !ok {
		return Shift{}, fmt.Errorf("%w: expected shift, got %T", ErrOperand, rest[0])
	}
	return shift, nil
}
