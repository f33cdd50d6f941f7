package emu

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/a64sim/insts"
)

var (
	// ErrPCOutOfRange is returned when the PC leaves memory.
	ErrPCOutOfRange = errors.New("pc out of range")
	// ErrInstructionLimit is returned when the instruction budget runs out
	// before the program halts.
	ErrInstructionLimit = errors.New("max instructions reached")
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true if the halt word was fetched.
	Halted bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes instructions functionally.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder
	logger  *logrus.Logger

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithLogger sets the logger that receives per-step trace entries.
func WithLogger(logger *logrus.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// NewEmulator creates a new emulator with registers and memory in their
// reset state.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	regFile := NewRegFile()
	memory := NewMemory()

	e := &Emulator{
		regFile: regFile,
		memory:  memory,
		decoder: insts.NewDecoder(),
		logger:  logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.alu = NewALU(regFile)
	e.lsu = NewLoadStoreUnit(regFile, memory)
	e.branchUnit = NewBranchUnit(regFile)

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram copies an image to address 0 and resets the PC.
func (e *Emulator) LoadProgram(image []byte) error {
	if err := e.memory.LoadProgram(image); err != nil {
		return err
	}
	e.regFile.PC = 0
	return nil
}

// LoadWords stores instruction words from address 0 and resets the PC.
func (e *Emulator) LoadWords(words []uint32) error {
	for i, w := range words {
		if err := e.memory.Write32(uint64(i)*insts.InstructionSize, w); err != nil {
			return err
		}
	}
	e.regFile.PC = 0
	return nil
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: fmt.Errorf("%w: %d", ErrInstructionLimit, e.maxInstructions)}
	}

	pc := e.regFile.PC
	if pc > MemorySize-insts.InstructionSize {
		return StepResult{Err: fmt.Errorf("%w: 0x%x", ErrPCOutOfRange, pc)}
	}

	// 1. Fetch
	word, err := e.memory.Read32(pc)
	if err != nil {
		return StepResult{Err: err}
	}

	// 2. Decode
	inst := e.decoder.Decode(word)

	if e.logger.IsLevelEnabled(logrus.DebugLevel) {
		e.logger.WithFields(logrus.Fields{
			"pc":     fmt.Sprintf("0x%08x", pc),
			"word":   fmt.Sprintf("0x%08x", word),
			"family": insts.Classify(word),
		}).Debug("CPU step")
	}

	// 3. Execute
	result := e.execute(inst)
	e.instructionCount++

	if result.Halted || result.Err != nil {
		return result
	}

	// 4. Advance
	e.regFile.PC += insts.InstructionSize

	return result
}

// Run executes instructions until the program halts or an error occurs.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Halted {
			return nil
		}
	}
}

// execute dispatches a decoded instruction to its execution unit.
// Words outside the supported families execute as no-ops.
func (e *Emulator) execute(inst *insts.Instruction) StepResult {
	switch inst.Format {
	case insts.FormatHalt:
		return StepResult{Halted: true}
	case insts.FormatDPImm:
		e.executeDPImm(inst)
	case insts.FormatMoveWide:
		e.executeMoveWide(inst)
	case insts.FormatDPReg:
		e.executeDPReg(inst)
	case insts.FormatDataProc3Src:
		e.executeDataProc3Src(inst)
	case insts.FormatBranch:
		e.branchUnit.B(inst.BranchOffset)
	case insts.FormatBranchCond:
		e.branchUnit.BCond(inst.BranchOffset, inst.Cond)
	case insts.FormatBranchReg:
		e.branchUnit.BR(inst.Rn)
	case insts.FormatLoadStore, insts.FormatLoadStoreLit:
		if err := e.lsu.Execute(inst); err != nil {
			return StepResult{Err: fmt.Errorf("at pc 0x%x: %w", e.regFile.PC, err)}
		}
	}

	return StepResult{}
}

// executeDPImm executes ADD/SUB with an optionally shifted 12-bit immediate.
func (e *Emulator) executeDPImm(inst *insts.Instruction) {
	imm := inst.Imm << inst.Shift

	switch inst.Op {
	case insts.OpADD:
		e.alu.ADD(inst.Rd, inst.Rn, imm, inst.SetFlags, inst.Is64Bit)
	case insts.OpSUB:
		e.alu.SUB(inst.Rd, inst.Rn, imm, inst.SetFlags, inst.Is64Bit)
	}
}

// executeMoveWide executes MOVN/MOVZ/MOVK.
func (e *Emulator) executeMoveWide(inst *insts.Instruction) {
	switch inst.Op {
	case insts.OpMOVZ:
		e.alu.MOVZ(inst.Rd, inst.Imm, inst.Shift, inst.Is64Bit)
	case insts.OpMOVN:
		e.alu.MOVN(inst.Rd, inst.Imm, inst.Shift, inst.Is64Bit)
	case insts.OpMOVK:
		e.alu.MOVK(inst.Rd, inst.Imm, inst.Shift, inst.Is64Bit)
	}
}

// executeDPReg executes shifted-register arithmetic and logical ops.
func (e *Emulator) executeDPReg(inst *insts.Instruction) {
	op2 := ShiftOperand(e.regFile.ReadReg(inst.Rm), inst.ShiftType, inst.ShiftAmount, inst.Is64Bit)

	switch inst.Op {
	case insts.OpADD:
		e.alu.ADD(inst.Rd, inst.Rn, op2, inst.SetFlags, inst.Is64Bit)
	case insts.OpSUB:
		e.alu.SUB(inst.Rd, inst.Rn, op2, inst.SetFlags, inst.Is64Bit)
	default:
		if inst.Negate {
			op2 = ^op2
			if !inst.Is64Bit {
				op2 &= 0xFFFFFFFF
			}
		}
		e.alu.Logical(inst.Op, inst.Rd, inst.Rn, op2, inst.SetFlags, inst.Is64Bit)
	}
}

// executeDataProc3Src executes MADD/MSUB.
func (e *Emulator) executeDataProc3Src(inst *insts.Instruction) {
	switch inst.Op {
	case insts.OpMADD:
		e.alu.MADD(inst.Rd, inst.Rn, inst.Rm, inst.Ra, inst.Is64Bit)
	case insts.OpMSUB:
		e.alu.MSUB(inst.Rd, inst.Rn, inst.Rm, inst.Ra, inst.Is64Bit)
	}
}
