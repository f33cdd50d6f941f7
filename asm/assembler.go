// Package asm implements a two-pass assembler for the supported AArch64
// subset.
//
// The first pass binds labels to byte addresses by looking only at line
// shapes. The second pass expands $(...) expressions, parses each
// instruction into typed operands and encodes it with the insts package.
package asm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/a64sim/insts"
)

var labelPattern = regexp.MustCompile(`^\s*([A-Za-z_.][A-Za-z0-9_.]*)\s*:(.*)$`)

// Assembler turns source text into instruction words.
type Assembler struct {
	logger logrus.FieldLogger
}

// AssemblerOption is a functional option for configuring the Assembler.
type AssemblerOption func(*Assembler)

// WithLogger sets the logger that receives pass summaries.
func WithLogger(logger logrus.FieldLogger) AssemblerOption {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// NewAssembler creates a new assembler.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		logger: logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// FirstPass builds the symbol table. Blank lines take no address, every
// other line except a bare label takes one word.
func (a *Assembler) FirstPass(lines []string) *SymbolTable {
	symbols := NewSymbolTable()

	var address uint64
	for _, raw := range lines {
		label, body := splitLine(raw)
		if label != "" {
			symbols.Add(label, address)
		}
		if body != "" {
			address += insts.InstructionSize
		}
	}

	a.logger.WithFields(logrus.Fields{
		"symbols": symbols.Len(),
		"bytes":   address,
	}).Debug("First pass done")

	return symbols
}

// Assemble runs both passes over source. On any error nothing is returned
// and the error is an ErrSyntax naming the offending line.
func (a *Assembler) Assemble(source string) ([]uint32, error) {
	lines := strings.Split(source, "\n")
	symbols := a.FirstPass(lines)

	words := make([]uint32, 0, len(lines))
	for i, raw := range lines {
		_, body := splitLine(raw)
		if body == "" {
			continue
		}

		address := uint64(len(words)) * insts.InstructionSize
		word, err := a.assembleLine(body, address, symbols)
		if err != nil {
			return nil, ErrSyntax{LineNo: i + 1, Line: strings.TrimSpace(raw), Err: err}
		}

		words = append(words, word)
	}

	a.logger.WithField("words", len(words)).Debug("Second pass done")

	return words, nil
}

// AssembleLine encodes a single instruction at address.
func (a *Assembler) AssembleLine(line string, address uint64, symbols *SymbolTable) (uint32, error) {
	_, body := splitLine(line)
	return a.assembleLine(body, address, symbols)
}

func (a *Assembler) assembleLine(body string, address uint64, symbols *SymbolTable) (uint32, error) {
	expanded, err := expandExpressions(body, symbols, address)
	if err != nil {
		return 0, err
	}

	stmt, err := Parse(expanded)
	if err != nil {
		return 0, err
	}

	enc, ok := mnemonics[stmt.Mnemonic]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMnemonic, stmt.Mnemonic)
	}

	ctx := &lineContext{address: address, symbols: symbols}
	inst, err := enc(ctx, stmt.Operands)
	if err != nil {
		return 0, err
	}

	word, err := insts.Encode(inst)
	if err != nil {
		return 0, err
	}

	a.logger.WithFields(logrus.Fields{
		"address": address,
		"word":    word,
		"line":    body,
	}).Trace("Encoded")

	return word, nil
}

// splitLine separates an optional leading label from the instruction text.
// Comments are dropped and both parts are trimmed.
func splitLine(line string) (label, body string) {
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}

	if m := labelPattern.FindStringSubmatch(line); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}

	return "", strings.TrimSpace(line)
}
