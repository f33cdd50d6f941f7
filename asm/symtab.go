package asm

// Symbol binds a label to a byte address.
type Symbol struct {
	Label   string
	Address uint64
}

// SymbolTable is an insertion-ordered list of symbols. Duplicate labels are
// kept; a later definition shadows an earlier one.
type SymbolTable struct {
	symbols []Symbol
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{}
}

// Add appends a symbol.
func (t *SymbolTable) Add(label string, address uint64) {
	t.symbols = append(t.symbols, Symbol{Label: label, Address: address})
}

// Lookup returns the address of the most recently added symbol whose label
// equals label exactly.
func (t *SymbolTable) Lookup(label string) (uint64, error) {
	for i := len(t.symbols) - 1; i >= 0; i-- {
		if t.symbols[i].Label == label {
			return t.symbols[i].Address, nil
		}
	}
	return 0, ErrLabelMissing(label)
}

// Symbols returns the symbols in insertion order.
func (t *SymbolTable) Symbols() []Symbol {
	return t.symbols
}

// Len returns the number of symbols, duplicates included.
func (t *SymbolTable) Len() int {
	return len(t.symbols)
}
