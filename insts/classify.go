package insts

// Fixed sentinel words.
const (
	// HaltWord is AND X0, X0, X0; fetching it stops the emulator.
	HaltWord uint32 = 0x8a000000
	// NOPWord is the architectural NOP.
	NOPWord uint32 = 0xd503201f
)

// InstructionSize is the width of every instruction in bytes.
const InstructionSize = 4

// Family is the coarse instruction class selected by the op0 field.
type Family uint8

// Instruction families.
const (
	FamilyData     Family = iota // Not an instruction; executes as a no-op
	FamilyHalt                   // Halt sentinel
	FamilyNOP                    // NOP sentinel
	FamilyDPImm                  // Data Processing (Immediate)
	FamilyDPReg                  // Data Processing (Register)
	FamilyTransfer               // Single Data Transfer
	FamilyBranch                 // Branches
)

var familyNames = [...]string{
	FamilyData:     "data",
	FamilyHalt:     "halt",
	FamilyNOP:      "nop",
	FamilyDPImm:    "dp-imm",
	FamilyDPReg:    "dp-reg",
	FamilyTransfer: "transfer",
	FamilyBranch:   "branch",
}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return "unknown"
}

// Classify determines the family of a raw word from op0 (bits [28:25]).
// The sentinel words are matched first since their op0 bits would
// otherwise select a regular family.
func Classify(word uint32) Family {
	if word == HaltWord {
		return FamilyHalt
	}
	if word == NOPWord {
		return FamilyNOP
	}

	op0 := BitsAt(word, 25, 4)

	switch {
	case op0&0b1110 == 0b1000:
		return FamilyDPImm
	case op0&0b0111 == 0b0101:
		return FamilyDPReg
	case op0&0b0101 == 0b0100:
		return FamilyTransfer
	case op0&0b1110 == 0b1010:
		return FamilyBranch
	default:
		return FamilyData
	}
}
