package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Grammar nodes. They are lowered into Operand values before encoding.

type statementNode struct {
	Mnemonic string         `@Ident`
	Operands []*operandNode `( @@ ( "," @@ )* )?`
}

type operandNode struct {
	Memory    *memoryNode `  @@`
	Immediate *string     `| "#" @Number`
	Shift     *shiftNode  `| @@`
	Name      *string     `| @Ident`
	Number    *string     `| @Number`
}

type shiftNode struct {
	Kind   string `@( "lsl" | "lsr" | "asr" | "ror" )`
	Amount string `"#" @Number`
}

type memoryNode struct {
	Base      string      `"[" @Ident`
	Offset    *offsetNode `( "," @@ )? "]"`
	Writeback bool        `@"!"?`
}

type offsetNode struct {
	Immediate *string `  "#" @Number`
	Index     *string `| @Ident`
}

var lineLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Number", Pattern: `-?(0[xX][0-9a-fA-F]+|[0-9]+)`},
	{Name: "Ident", Pattern: `[a-zA-Z_.][a-zA-Z0-9_.]*`},
	{Name: "Punct", Pattern: `[\[\],:!#]`},
})

var lineParser = participle.MustBuild[statementNode](
	participle.Lexer(lineLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Statement is a single parsed instruction line.
type Statement struct {
	Mnemonic string
	Operands []Operand
}

// Parse tokenizes one instruction (without its label) and lowers the
// operands into typed values.
func Parse(line string) (*Statement, error) {
	node, err := lineParser.ParseString("", line)
	if err != nil {
		return nil, err
	}

	stmt := &Statement{
		Mnemonic: strings.ToLower(node.Mnemonic),
		Operands: make([]Operand, 0, len(node.Operands)),
	}
	for _, o := range node.Operands {
		op, err := o.lower()
		if err != nil {
			return nil, err
		}
		stmt.Operands = append(stmt.Operands, op)
	}

	return stmt, nil
}

func (o *operandNode) lower() (Operand, error) {
	switch {
	case o.Memory != nil:
		return o.Memory.lower()
	case o.Immediate != nil:
		v, err := parseNumber(*o.Immediate)
		if err != nil {
			return nil, err
		}
		return Immediate{Value: v}, nil
	case o.Shift != nil:
		return o.Shift.lower()
	case o.Name != nil:
		if reg, ok := lookupRegister(*o.Name); ok {
			return reg, nil
		}
		return Label{Name: *o.Name}, nil
	case o.Number != nil:
		v, err := parseNumber(*o.Number)
		if err != nil {
			return nil, err
		}
		return Literal{Value: v}, nil
	}
	return nil, ErrOperand
}

func (s *shiftNode) lower() (Operand, error) {
	amount, err := parseNumber(s.Amount)
	if err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, fmt.Errorf("%w: negative shift %d", ErrOperand, amount)
	}
	return Shift{Kind: shiftKinds[strings.ToLower(s.Kind)], Amount: uint64(amount)}, nil
}

func (m *memoryNode) lower() (Operand, error) {
	base, ok := lookupRegister(m.Base)
	if !ok {
		return nil, fmt.Errorf("%w: base %q", ErrRegister, m.Base)
	}

	mem := Memory{Base: base, Writeback: m.Writeback}
	if m.Offset == nil {
		return mem, nil
	}

	if m.Offset.Immediate != nil {
		v, err := parseNumber(*m.Offset.Immediate)
		if err != nil {
			return nil, err
		}
		mem.Offset = v
		mem.HasOffset = true
		return mem, nil
	}

	index, ok := lookupRegister(*m.Offset.Index)
	if !ok {
		return nil, fmt.Errorf("%w: index %q", ErrRegister, *m.Offset.Index)
	}
	mem.Index = &index
	return mem, nil
}

// parseNumber reads a decimal or 0x-prefixed hexadecimal literal with an
// optional leading minus. Values up to 2^64-1 are accepted and returned
// as their two's complement bit pattern.
func parseNumber(text string) (int64, error) {
	s := text
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}

	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNumber, text)
	}
	if negative {
		return -int64(v), nil
	}
	return int64(v), nil
}
