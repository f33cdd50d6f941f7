// Package insts provides ARM64 instruction definitions and decoding.
package insts

// Op represents an ARM64 opcode.
type Op uint16

// ARM64 opcodes.
const (
	OpUnknown Op = iota
	OpADD
	OpSUB
	OpAND
	OpORR
	OpEOR
	OpMOVN
	OpMOVZ
	OpMOVK
	OpMADD
	OpMSUB
	OpB
	OpBR
	OpBCond
	OpLDR
	OpSTR
	OpLDRLit
	OpNOP
	OpHALT
)

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatData          Format = iota // Non-instruction word
	FormatDPImm                       // Data Processing (Immediate) - arithmetic
	FormatMoveWide                    // Data Processing (Immediate) - wide move
	FormatDPReg                       // Data Processing (Register) - arithmetic and logical
	FormatDataProc3Src                // Data Processing (Register) - multiply
	FormatBranch                      // Unconditional Branch (Immediate)
	FormatBranchCond                  // Conditional Branch
	FormatBranchReg                   // Branch to Register
	FormatLoadStore                   // Single Data Transfer with base register
	FormatLoadStoreLit                // Load literal (PC-relative)
	FormatNOP                         // NOP sentinel
	FormatHalt                        // Halt sentinel
)

// Cond represents an ARM64 condition code.
type Cond uint8

// Condition codes understood by the toolchain.
const (
	CondEQ Cond = 0b0000 // Equal
	CondNE Cond = 0b0001 // Not Equal
	CondGE Cond = 0b1010 // Signed greater than or equal
	CondLT Cond = 0b1011 // Signed less than
	CondGT Cond = 0b1100 // Signed greater than
	CondLE Cond = 0b1101 // Signed less than or equal
	CondAL Cond = 0b1110 // Always
)

// ShiftType represents a shift type for register operands.
type ShiftType uint8

// Shift types.
const (
	ShiftLSL ShiftType = 0b00 // Logical shift left
	ShiftLSR ShiftType = 0b01 // Logical shift right
	ShiftASR ShiftType = 0b10 // Arithmetic shift right
	ShiftROR ShiftType = 0b11 // Rotate right
)

// IndexMode represents the addressing mode of a single data transfer.
type IndexMode uint8

// Addressing modes.
const (
	IndexUnsigned IndexMode = iota // [Xn, #imm] and [Xn]
	IndexPre                       // [Xn, #simm]!
	IndexPost                      // [Xn], #simm
	IndexRegBase                   // [Xn, Xm]
)

// Instruction represents a decoded ARM64 instruction. Format selects which
// of the fields are meaningful.
type Instruction struct {
	Op     Op     // Operation code
	Format Format // Encoding format

	// Word is the raw word the instruction was decoded from. Encode emits it
	// verbatim for FormatData.
	Word uint32

	// Common fields
	Is64Bit  bool  // true for 64-bit (X registers), false for 32-bit (W registers)
	SetFlags bool  // true if instruction sets condition flags (S suffix)
	Rd       uint8 // Destination register (Rt for loads and stores)
	Rn       uint8 // First source register (base register for transfers)
	Rm       uint8 // Second source register (offset register for transfers)
	Ra       uint8 // Accumulator register for multiply

	// Immediate operand
	Imm   uint64 // imm12, imm16, or the unscaled byte offset of an unsigned-offset transfer
	Shift uint8  // Left shift applied to Imm: 0 or 12 for arithmetic, 0/16/32/48 for wide moves

	// Shift for register operand
	ShiftType   ShiftType // Type of shift applied to Rm
	ShiftAmount uint8     // Shift amount for Rm
	Negate      bool      // Logical ops: invert the shifted Rm (BIC, ORN, EON, BICS)

	// Branch fields
	BranchOffset int64 // Signed branch or literal offset in bytes
	Cond         Cond  // Condition code for conditional branches

	// Load/store fields
	IndexMode IndexMode // Addressing mode
	SignedImm int64     // simm9 for pre/post-index
}

// Decoder decodes ARM64 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new ARM64 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit ARM64 instruction word. Words that belong to no
// supported family decode to FormatData.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{Op: OpUnknown, Format: FormatData, Word: word}

	switch Classify(word) {
	case FamilyHalt:
		inst.Op = OpHALT
		inst.Format = FormatHalt
	case FamilyNOP:
		inst.Op = OpNOP
		inst.Format = FormatNOP
	case FamilyDPImm:
		d.decodeDataProcessingImm(word, inst)
	case FamilyDPReg:
		d.decodeDataProcessingReg(word, inst)
	case FamilyTransfer:
		d.decodeTransfer(word, inst)
	case FamilyBranch:
		d.decodeBranch(word, inst)
	}

	return inst
}

// decodeDataProcessingImm decodes arithmetic and wide move immediates.
// Format: sf | opc | 100 | opi | operand | Rd
func (d *Decoder) decodeDataProcessingImm(word uint32, inst *Instruction) {
	sf := BitAt(word, 31)           // bit 31: 1=64-bit, 0=32-bit
	opc := BitsAt(word, 29, 2)      // bits [30:29]
	opi := BitsAt(word, 23, 3)      // bits [25:23]
	rd := uint8(BitsAt(word, 0, 5)) // bits [4:0]

	switch opi {
	case 0b010:
		// Arithmetic: sf | opc | 100 | 010 | sh | imm12 | Rn | Rd
		inst.Format = FormatDPImm
		inst.Is64Bit = sf
		inst.Rd = rd
		inst.Rn = uint8(BitsAt(word, 5, 5))
		inst.Imm = uint64(BitsAt(word, 10, 12))
		if BitAt(word, 22) {
			inst.Shift = 12
		}
		inst.SetFlags = opc&0b01 != 0
		if opc&0b10 == 0 {
			inst.Op = OpADD
		} else {
			inst.Op = OpSUB
		}
	case 0b101:
		// Wide move: sf | opc | 100 | 101 | hw | imm16 | Rd
		var op Op
		switch opc {
		case 0b00:
			op = OpMOVN
		case 0b10:
			op = OpMOVZ
		case 0b11:
			op = OpMOVK
		default:
			return
		}
		inst.Op = op
		inst.Format = FormatMoveWide
		inst.Is64Bit = sf
		inst.Rd = rd
		inst.Imm = uint64(BitsAt(word, 5, 16))
		inst.Shift = uint8(BitsAt(word, 21, 2) * 16)
	}
}

// decodeDataProcessingReg decodes multiply, arithmetic and logical register
// instructions.
// Multiply format:   sf | 00 | 11011 | 000 | Rm | x | Ra | Rn | Rd
// Add/Sub format:    sf | opc | 01011 | shift | 0 | Rm | imm6 | Rn | Rd
// Logical format:    sf | opc | 01010 | shift | N | Rm | imm6 | Rn | Rd
func (d *Decoder) decodeDataProcessingReg(word uint32, inst *Instruction) {
	inst.Is64Bit = BitAt(word, 31)
	inst.Rd = uint8(BitsAt(word, 0, 5))
	inst.Rn = uint8(BitsAt(word, 5, 5))
	inst.Rm = uint8(BitsAt(word, 16, 5))

	if BitAt(word, 28) {
		inst.Format = FormatDataProc3Src
		inst.Ra = uint8(BitsAt(word, 10, 5))
		if BitAt(word, 15) {
			inst.Op = OpMSUB
		} else {
			inst.Op = OpMADD
		}
		return
	}

	inst.Format = FormatDPReg
	inst.ShiftType = ShiftType(BitsAt(word, 22, 2))
	inst.ShiftAmount = uint8(BitsAt(word, 10, 6))
	opc := BitsAt(word, 29, 2)

	if BitAt(word, 24) {
		inst.SetFlags = opc&0b01 != 0
		if opc&0b10 == 0 {
			inst.Op = OpADD
		} else {
			inst.Op = OpSUB
		}
		return
	}

	inst.Negate = BitAt(word, 21)
	switch opc {
	case 0b00:
		inst.Op = OpAND
	case 0b01:
		inst.Op = OpORR
	case 0b10:
		inst.Op = OpEOR
	case 0b11:
		inst.Op = OpAND
		inst.SetFlags = true // ANDS
	}
}

// decodeBranch decodes B, BR and B.cond. Bits [31:29] select the kind.
func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	switch BitsAt(word, 29, 3) {
	case 0b000:
		// B: 000101 | imm26
		inst.Op = OpB
		inst.Format = FormatBranch
		inst.BranchOffset = SignExtend(uint64(BitsAt(word, 0, 26)), 26) * InstructionSize
	case 0b110:
		// BR: 1101011 0000 11111 000000 Rn 00000
		inst.Op = OpBR
		inst.Format = FormatBranchReg
		inst.Rn = uint8(BitsAt(word, 5, 5))
	case 0b010:
		// B.cond: 0101010 0 | imm19 | 0 | cond
		inst.Op = OpBCond
		inst.Format = FormatBranchCond
		inst.BranchOffset = SignExtend(uint64(BitsAt(word, 5, 19)), 19) * InstructionSize
		inst.Cond = Cond(BitsAt(word, 0, 4))
	}
}

// decodeTransfer decodes single data transfers.
// Base format:    1 | sf | 111000 | U | 0 | L | offset | Xn | Rt
// Literal format: 0 | sf | 011000 | simm19 | Rt
func (d *Decoder) decodeTransfer(word uint32, inst *Instruction) {
	inst.Is64Bit = BitAt(word, 30)
	inst.Rd = uint8(BitsAt(word, 0, 5))

	switch {
	case BitAt(word, 24):
		inst.IndexMode = IndexUnsigned
		inst.Imm = uint64(BitsAt(word, 10, 12)) * transferScale(inst.Is64Bit)
	case !BitAt(word, 29):
		inst.Op = OpLDRLit
		inst.Format = FormatLoadStoreLit
		inst.BranchOffset = SignExtend(uint64(BitsAt(word, 5, 19)), 19) * InstructionSize
		return
	case !BitAt(word, 10):
		inst.IndexMode = IndexRegBase
		inst.Rm = uint8(BitsAt(word, 16, 5))
	case BitAt(word, 11):
		inst.IndexMode = IndexPre
		inst.SignedImm = SignExtend(uint64(BitsAt(word, 12, 9)), 9)
	default:
		inst.IndexMode = IndexPost
		inst.SignedImm = SignExtend(uint64(BitsAt(word, 12, 9)), 9)
	}

	inst.Format = FormatLoadStore
	inst.Rn = uint8(BitsAt(word, 5, 5))
	if BitAt(word, 22) {
		inst.Op = OpLDR
	} else {
		inst.Op = OpSTR
	}
}

// transferScale returns the access size in bytes, which is also the scale
// of unsigned offsets.
func transferScale(is64Bit bool) uint64 {
	if is64Bit {
		return 8
	}
	return 4
}

// TransferSize returns the number of bytes a load or store moves.
func (i *Instruction) TransferSize() uint64 {
	return transferScale(i.Is64Bit)
}
