// Package emu provides functional emulation of the supported AArch64 subset.
package emu

// ZeroReg is the register index that reads as zero and discards writes.
const ZeroReg = 31

// RegFile represents the register file.
// It contains 31 general-purpose registers (X0-X30), the program counter
// (PC) and the condition flags.
type RegFile struct {
	// X holds general-purpose registers X0-X30.
	// X[31] is the zero register (XZR) and is never written.
	X [32]uint64

	// PC is the program counter.
	PC uint64

	// PSTATE holds the processor state flags.
	PSTATE PSTATE
}

// PSTATE represents the processor state flags.
type PSTATE struct {
	// N is the negative flag.
	N bool
	// Z is the zero flag.
	Z bool
	// C is the carry flag.
	C bool
	// V is the overflow flag.
	V bool
}

// String renders the flags in NZCV order, with '-' for a clear flag.
func (p PSTATE) String() string {
	flags := []byte("----")
	if p.N {
		flags[0] = 'N'
	}
	if p.Z {
		flags[1] = 'Z'
	}
	if p.C {
		flags[2] = 'C'
	}
	if p.V {
		flags[3] = 'V'
	}
	return string(flags)
}

// NewRegFile creates a register file in its reset state.
func NewRegFile() *RegFile {
	r := &RegFile{}
	r.Reset()
	return r
}

// Reset zeroes every register and the PC, and leaves only Z set.
func (r *RegFile) Reset() {
	*r = RegFile{}
	r.PSTATE.Z = true
}

// ReadReg reads a register value. Register 31 returns 0 (XZR).
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg >= ZeroReg {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 31 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg >= ZeroReg {
		return
	}
	r.X[reg] = value
}

// ReadReg32 reads the lower 32 bits of a register.
func (r *RegFile) ReadReg32(reg uint8) uint32 {
	return uint32(r.ReadReg(reg))
}

// WriteReg32 writes to the lower 32 bits and zero-extends.
func (r *RegFile) WriteReg32(reg uint8, value uint32) {
	r.WriteReg(reg, uint64(value))
}

// ReadRegWidth reads a register at the given operating width.
func (r *RegFile) ReadRegWidth(reg uint8, is64Bit bool) uint64 {
	if is64Bit {
		return r.ReadReg(reg)
	}
	return uint64(r.ReadReg32(reg))
}

// WriteRegWidth writes a register at the given operating width. 32-bit
// writes zero the upper half.
func (r *RegFile) WriteRegWidth(reg uint8, value uint64, is64Bit bool) {
	if is64Bit {
		r.WriteReg(reg, value)
		return
	}
	r.WriteReg32(reg, uint32(value))
}
