// Package insts provides the instruction set definitions shared by the
// assembler and the emulator.
//
// Every instruction is a fixed 32-bit word. The package implements both
// directions of the codec so that the two programs agree bit for bit:
//   - Encode turns a decoded Instruction back into its word
//   - Decoder.Decode turns a word into an Instruction
//   - Classify sorts a raw word into its instruction family
//
// Supported families:
//   - Data Processing (Immediate): ADD, SUB (with S variants), MOVZ, MOVN, MOVK
//   - Data Processing (Register): ADD, SUB, AND, ORR, EOR (with S and N
//     variants), MADD, MSUB
//   - Branch: B, BR, B.cond
//   - Single Data Transfer: LDR, STR, LDR (literal)
//   - NOP and the halt sentinel
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x9100A820) // ADD X0, X1, #42
//	word, _ := insts.Encode(inst)      // 0x9100A820
package insts
