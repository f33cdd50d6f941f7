package emu

import "github.com/sarchlab/a64sim/insts"

// BranchUnit implements branch operations.
//
// The fetch loop advances PC by one instruction after every step, so each
// branch leaves PC one instruction short of its target.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// B performs an unconditional branch (PC-relative).
// The offset is in bytes and is relative to the branch itself.
func (b *BranchUnit) B(offset int64) {
	b.jump(uint64(int64(b.regFile.PC) + offset))
}

// BR performs a branch to the address in the specified register.
func (b *BranchUnit) BR(rn uint8) {
	b.jump(b.regFile.ReadReg(rn))
}

// BCond performs a conditional branch based on the PSTATE flags.
// If the condition is met, branches to PC + offset; otherwise, PC is unchanged.
func (b *BranchUnit) BCond(offset int64, cond insts.Cond) {
	if b.CheckCondition(cond) {
		b.B(offset)
	}
}

func (b *BranchUnit) jump(target uint64) {
	b.regFile.PC = target - insts.InstructionSize
}

// CheckCondition evaluates a condition code against the current PSTATE flags.
// GE and LT test N alone.
func (b *BranchUnit) CheckCondition(cond insts.Cond) bool {
	pstate := &b.regFile.PSTATE

	switch cond {
	case insts.CondEQ:
		return pstate.Z
	case insts.CondNE:
		return !pstate.Z
	case insts.CondGE:
		return pstate.N
	case insts.CondLT:
		return !pstate.N
	case insts.CondGT:
		return !pstate.Z && (pstate.N == pstate.V)
	case insts.CondLE:
		return !(!pstate.Z && (pstate.N == pstate.V))
	case insts.CondAL:
		return true
	default:
		return false
	}
}
