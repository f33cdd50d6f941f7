package asm

import (
	"errors"
	"fmt"
)

var (
	// ErrMnemonic is returned for an opcode the assembler does not know.
	ErrMnemonic = errors.New("unknown mnemonic")
	// ErrOperand is returned when the operand count or kinds do not fit
	// the mnemonic.
	ErrOperand = errors.New("invalid operand")
	// ErrAddressing is returned for a memory operand that matches none of
	// the supported addressing modes.
	ErrAddressing = errors.New("invalid addressing mode")
	// ErrRegister is returned for a malformed register name.
	ErrRegister = errors.New("invalid register")
	// ErrNumber is returned for a malformed numeric literal.
	ErrNumber = errors.New("invalid number")
)

// ErrLabelMissing names a label referenced but never defined.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return fmt.Sprintf("label %q missing", string(el))
}

// ErrExpression names a $(...) expression that did not evaluate to an
// integer.
type ErrExpression string

func (ee ErrExpression) Error() string {
	return fmt.Sprintf("$(%v) is not a valid expression", string(ee))
}

// ErrSyntax ties an assembly failure to its source line.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return fmt.Sprintf("line %d '%v': %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}
