package emu

import (
	"bufio"
	"fmt"
	"io"
)

// DumpState writes the register file, PC, flags and every non-zero memory
// word to w.
func (e *Emulator) DumpState(w io.Writer) error {
	words, err := e.memory.NonZeroWords()
	if err != nil {
		return err
	}

	out := bufio.NewWriter(w)

	fmt.Fprintln(out, "Registers:")
	for i := 0; i < ZeroReg; i++ {
		fmt.Fprintf(out, "X%02d = %016x\n", i, e.regFile.X[i])
	}
	fmt.Fprintf(out, "PC = %016x\n", e.regFile.PC)
	fmt.Fprintf(out, "PSTATE: %s\n", e.regFile.PSTATE)

	fmt.Fprintln(out, "Non-zero memory:")
	for _, word := range words {
		fmt.Fprintf(out, "0x%08x: %08x\n", word.Addr, word.Word)
	}

	return out.Flush()
}
