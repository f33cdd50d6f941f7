package emu

import "github.com/sarchlab/a64sim/insts"

// LoadStoreUnit implements single data transfers.
type LoadStoreUnit struct {
	regFile *RegFile
	memory  *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and memory.
func NewLoadStoreUnit(regFile *RegFile, memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		memory:  memory,
	}
}

// EffectiveAddress computes the address a transfer accesses and applies
// the base register writeback of the pre- and post-index modes.
func (lsu *LoadStoreUnit) EffectiveAddress(inst *insts.Instruction) uint64 {
	if inst.Format == insts.FormatLoadStoreLit {
		return uint64(int64(lsu.regFile.PC) + inst.BranchOffset)
	}

	base := lsu.regFile.ReadReg(inst.Rn)

	switch inst.IndexMode {
	case insts.IndexPre:
		addr := uint64(int64(base) + inst.SignedImm)
		lsu.regFile.WriteReg(inst.Rn, addr)
		return addr
	case insts.IndexPost:
		lsu.regFile.WriteReg(inst.Rn, uint64(int64(base)+inst.SignedImm))
		return base
	case insts.IndexRegBase:
		return base + lsu.regFile.ReadReg(inst.Rm)
	default:
		return base + inst.Imm
	}
}

// Execute performs a load or store. Loads zero-extend into the target.
func (lsu *LoadStoreUnit) Execute(inst *insts.Instruction) error {
	addr := lsu.EffectiveAddress(inst)

	if inst.Op == insts.OpSTR {
		if inst.Is64Bit {
			return lsu.STR64(inst.Rd, addr)
		}
		return lsu.STR32(inst.Rd, addr)
	}

	if inst.Is64Bit {
		return lsu.LDR64(inst.Rd, addr)
	}
	return lsu.LDR32(inst.Rd, addr)
}

// LDR64 performs a 64-bit load: Xd = mem[addr]
func (lsu *LoadStoreUnit) LDR64(rd uint8, addr uint64) error {
	value, err := lsu.memory.Read64(addr)
	if err != nil {
		return err
	}
	lsu.regFile.WriteReg(rd, value)
	return nil
}

// LDR32 performs a 32-bit load with zero extension: Xd = zero_extend(mem[addr])
func (lsu *LoadStoreUnit) LDR32(rd uint8, addr uint64) error {
	value, err := lsu.memory.Read32(addr)
	if err != nil {
		return err
	}
	lsu.regFile.WriteReg32(rd, value)
	return nil
}

// STR64 performs a 64-bit store: mem[addr] = Xd
func (lsu *LoadStoreUnit) STR64(rd uint8, addr uint64) error {
	return lsu.memory.Write64(addr, lsu.regFile.ReadReg(rd))
}

// STR32 performs a 32-bit store: mem[addr] = Wd (lower 32 bits)
func (lsu *LoadStoreUnit) STR32(rd uint8, addr uint64) error {
	return lsu.memory.Write32(addr, lsu.regFile.ReadReg32(rd))
}
