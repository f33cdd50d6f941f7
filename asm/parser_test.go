package asm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64sim/asm"
	"github.com/sarchlab/a64sim/insts"
)

var _ = Describe("Parse", func() {
	x := func(n uint8) asm.Register { return asm.Register{Index: n, Is64: true} }
	w := func(n uint8) asm.Register { return asm.Register{Index: n} }

	It("should parse registers and immediates", func() {
		stmt, err := asm.Parse("add x0, w1, #0x2a")

		Expect(err).ToNot(HaveOccurred())
		Expect(stmt.Mnemonic).To(Equal("add"))
		Expect(stmt.Operands).To(Equal([]asm.Operand{
			x(0), w(1), asm.Immediate{Value: 42},
		}))
	})

	It("should recognize the zero registers", func() {
		stmt, err := asm.Parse("orr x0, xzr, wzr")

		Expect(err).ToNot(HaveOccurred())
		Expect(stmt.Operands[1]).To(Equal(x(31)))
		Expect(stmt.Operands[2]).To(Equal(w(31)))
	})

	It("should treat out-of-range register names as labels", func() {
		stmt, err := asm.Parse("b x31")

		Expect(err).ToNot(HaveOccurred())
		Expect(stmt.Operands[0]).To(Equal(asm.Label{Name: "x31"}))
	})

	It("should parse shift descriptors", func() {
		stmt, err := asm.Parse("add x0, x1, x2, asr #7")

		Expect(err).ToNot(HaveOccurred())
		Expect(stmt.Operands[3]).To(Equal(asm.Shift{Kind: insts.ShiftASR, Amount: 7}))
	})

	It("should parse negative immediates", func() {
		stmt, err := asm.Parse("ldr x0, [x1], #-16")

		Expect(err).ToNot(HaveOccurred())
		Expect(stmt.Operands[2]).To(Equal(asm.Immediate{Value: -16}))
	})

	It("should parse bare numbers as literals", func() {
		stmt, err := asm.Parse(".int 0xdeadbeef")

		Expect(err).ToNot(HaveOccurred())
		Expect(stmt.Mnemonic).To(Equal(".int"))
		Expect(stmt.Operands).To(Equal([]asm.Operand{asm.Literal{Value: 0xdeadbeef}}))
	})

	It("should ignore trailing comments", func() {
		stmt, err := asm.Parse("nop // nothing")

		Expect(err).ToNot(HaveOccurred())
		Expect(stmt.Mnemonic).To(Equal("nop"))
		Expect(stmt.Operands).To(BeEmpty())
	})

	Describe("memory operands", func() {
		It("should parse a bare base", func() {
			stmt, err := asm.Parse("ldr x0, [x1]")

			Expect(err).ToNot(HaveOccurred())
			Expect(stmt.Operands[1]).To(Equal(asm.Memory{Base: x(1)}))
		})

		It("should parse an immediate offset", func() {
			stmt, err := asm.Parse("ldr x0, [x1, #8]")

			Expect(err).ToNot(HaveOccurred())
			Expect(stmt.Operands[1]).To(Equal(asm.Memory{Base: x(1), Offset: 8, HasOffset: true}))
		})

		It("should parse a register offset", func() {
			stmt, err := asm.Parse("ldr x0, [x1, x2]")

			Expect(err).ToNot(HaveOccurred())
			index := x(2)
			Expect(stmt.Operands[1]).To(Equal(asm.Memory{Base: x(1), Index: &index}))
		})

		It("should parse pre-index writeback", func() {
			stmt, err := asm.Parse("str x0, [x1, #-8]!")

			Expect(err).ToNot(HaveOccurred())
			Expect(stmt.Operands[1]).To(Equal(asm.Memory{
				Base: x(1), Offset: -8, HasOffset: true, Writeback: true,
			}))
		})

		It("should reject a non-register base", func() {
			_, err := asm.Parse("ldr x0, [foo]")

			Expect(err).To(MatchError(asm.ErrRegister))
		})
	})

	It("should reject malformed lines", func() {
		_, err := asm.Parse("add x0, , x1")
		Expect(err).To(HaveOccurred())

		_, err = asm.Parse("ldr x0, [x1")
		Expect(err).To(HaveOccurred())
	})
})
