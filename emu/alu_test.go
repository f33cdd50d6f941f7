package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64sim/emu"
	"github.com/sarchlab/a64sim/insts"
)

var _ = Describe("ALU", func() {
	var (
		regFile *emu.RegFile
		alu     *emu.ALU
	)

	BeforeEach(func() {
		regFile = emu.NewRegFile()
		alu = emu.NewALU(regFile)
	})

	Describe("ADD", func() {
		It("should add 64-bit values without touching flags", func() {
			regFile.WriteReg(1, 10)
			regFile.PSTATE = emu.PSTATE{N: true, V: true}

			alu.ADD(0, 1, 32, false, true)

			Expect(regFile.ReadReg(0)).To(Equal(uint64(42)))
			Expect(regFile.PSTATE).To(Equal(emu.PSTATE{N: true, V: true}))
		})

		It("should set N and V on 32-bit signed overflow", func() {
			regFile.WriteReg(1, 0x7FFFFFFF)

			alu.ADD(0, 1, 1, true, false)

			Expect(regFile.ReadReg(0)).To(Equal(uint64(0x80000000)))
			Expect(regFile.PSTATE).To(Equal(emu.PSTATE{N: true, V: true}))
		})

		It("should set Z and C on 32-bit wraparound", func() {
			regFile.WriteReg(1, 0xFFFFFFFF)

			alu.ADD(0, 1, 1, true, false)

			Expect(regFile.ReadReg(0)).To(BeZero())
			Expect(regFile.PSTATE).To(Equal(emu.PSTATE{Z: true, C: true}))
		})

		It("should set C on 64-bit carry out", func() {
			regFile.WriteReg(1, 0xFFFFFFFFFFFFFFFF)

			alu.ADD(0, 1, 2, true, true)

			Expect(regFile.ReadReg(0)).To(Equal(uint64(1)))
			Expect(regFile.PSTATE).To(Equal(emu.PSTATE{C: true}))
		})

		It("should clear the upper half of 32-bit results", func() {
			regFile.WriteReg(1, 0xFFFFFFFF00000001)

			alu.ADD(0, 1, 1, false, false)

			Expect(regFile.ReadReg(0)).To(Equal(uint64(2)))
		})

		It("should ignore the upper half of 32-bit sources", func() {
			regFile.WriteReg(1, 0x1234567800000000)

			alu.ADD(0, 1, 0, true, false)

			Expect(regFile.PSTATE.Z).To(BeTrue())
			Expect(regFile.ReadReg(1)).To(Equal(uint64(0x1234567800000000)))
		})
	})

	Describe("SUB", func() {
		It("should borrow below zero", func() {
			alu.SUB(0, 1, 1, true, true)

			Expect(regFile.ReadReg(0)).To(Equal(uint64(0xFFFFFFFFFFFFFFFF)))
			Expect(regFile.PSTATE).To(Equal(emu.PSTATE{N: true}))
		})

		It("should set Z and C for equal operands", func() {
			regFile.WriteReg(1, 77)

			alu.SUB(0, 1, 77, true, true)

			Expect(regFile.PSTATE).To(Equal(emu.PSTATE{Z: true, C: true}))
		})

		It("should set V when the result sign flips", func() {
			regFile.WriteReg(1, 0x8000000000000000)

			alu.SUB(0, 1, 1, true, true)

			Expect(regFile.ReadReg(0)).To(Equal(uint64(0x7FFFFFFFFFFFFFFF)))
			Expect(regFile.PSTATE).To(Equal(emu.PSTATE{C: true, V: true}))
		})

		It("should compute flags even when the result is discarded", func() {
			regFile.WriteReg(1, 3)

			alu.SUB(31, 1, 3, true, true)

			Expect(regFile.ReadReg(31)).To(BeZero())
			Expect(regFile.PSTATE.Z).To(BeTrue())
		})
	})

	Describe("Logical", func() {
		BeforeEach(func() {
			regFile.WriteReg(1, 0xF0F0)
		})

		It("should AND", func() {
			alu.Logical(insts.OpAND, 0, 1, 0xFF00, false, true)
			Expect(regFile.ReadReg(0)).To(Equal(uint64(0xF000)))
		})

		It("should ORR", func() {
			alu.Logical(insts.OpORR, 0, 1, 0x0F0F, false, true)
			Expect(regFile.ReadReg(0)).To(Equal(uint64(0xFFFF)))
		})

		It("should EOR", func() {
			alu.Logical(insts.OpEOR, 0, 1, 0xFFFF, false, true)
			Expect(regFile.ReadReg(0)).To(Equal(uint64(0x0F0F)))
		})

		It("should clear C and V for ANDS", func() {
			regFile.PSTATE = emu.PSTATE{C: true, V: true}
			regFile.WriteReg(2, 0x80000000)

			alu.Logical(insts.OpAND, 0, 2, 0xFFFFFFFF, true, false)

			Expect(regFile.PSTATE).To(Equal(emu.PSTATE{N: true}))
		})

		It("should drop writes to the zero register", func() {
			alu.Logical(insts.OpORR, 31, 1, 1, false, true)
			Expect(regFile.ReadReg(31)).To(BeZero())
		})
	})

	Describe("wide moves", func() {
		It("should MOVZ a shifted halfword", func() {
			regFile.WriteReg(0, 0xFFFF)

			alu.MOVZ(0, 0x1234, 32, true)

			Expect(regFile.ReadReg(0)).To(Equal(uint64(0x0000123400000000)))
		})

		It("should MOVN at 32 bits", func() {
			alu.MOVN(0, 0, 0, false)
			Expect(regFile.ReadReg(0)).To(Equal(uint64(0xFFFFFFFF)))
		})

		It("should MOVN at 64 bits", func() {
			alu.MOVN(0, 1, 16, true)
			Expect(regFile.ReadReg(0)).To(Equal(uint64(0xFFFFFFFFFFFEFFFF)))
		})

		It("should MOVK into the selected halfword", func() {
			regFile.WriteReg(0, 0x1111222233334444)

			alu.MOVK(0, 0xABCD, 16, true)

			Expect(regFile.ReadReg(0)).To(Equal(uint64(0x11112222ABCD4444)))
		})
	})

	Describe("multiply", func() {
		BeforeEach(func() {
			regFile.WriteReg(1, 6)
			regFile.WriteReg(2, 7)
			regFile.WriteReg(3, 100)
		})

		It("should MADD", func() {
			alu.MADD(0, 1, 2, 3, true)
			Expect(regFile.ReadReg(0)).To(Equal(uint64(142)))
		})

		It("should MSUB", func() {
			alu.MSUB(0, 1, 2, 3, true)
			Expect(regFile.ReadReg(0)).To(Equal(uint64(58)))
		})

		It("should multiply with a zero accumulator", func() {
			alu.MSUB(0, 1, 2, 31, false)
			Expect(regFile.ReadReg(0)).To(Equal(uint64(0xFFFFFFD6)))
		})
	})

	DescribeTable("ShiftOperand",
		func(value uint64, kind insts.ShiftType, amount uint8, is64Bit bool, expected uint64) {
			Expect(emu.ShiftOperand(value, kind, amount, is64Bit)).To(Equal(expected))
		},
		Entry("lsl 64", uint64(1), insts.ShiftLSL, uint8(63), true, uint64(0x8000000000000000)),
		Entry("lsl 32 drops bits", uint64(0x80000001), insts.ShiftLSL, uint8(1), false, uint64(2)),
		Entry("lsr 64", uint64(0x100), insts.ShiftLSR, uint8(4), true, uint64(0x10)),
		Entry("asr 64", uint64(0x8000000000000000), insts.ShiftASR, uint8(4), true, uint64(0xF800000000000000)),
		Entry("asr 32", uint64(0x80000000), insts.ShiftASR, uint8(4), false, uint64(0xF8000000)),
		Entry("ror 64", uint64(1), insts.ShiftROR, uint8(1), true, uint64(0x8000000000000000)),
		Entry("ror 32", uint64(1), insts.ShiftROR, uint8(1), false, uint64(0x80000000)),
	)
})
