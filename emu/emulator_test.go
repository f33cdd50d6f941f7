package emu_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/a64sim/asm"
	"github.com/sarchlab/a64sim/emu"
	"github.com/sarchlab/a64sim/insts"
)

var _ = Describe("Emulator", func() {
	var (
		e      *emu.Emulator
		logger *logrus.Logger
		hook   *test.Hook
	)

	load := func(source string) {
		words, err := asm.NewAssembler(asm.WithLogger(logger)).Assemble(source)
		Expect(err).ToNot(HaveOccurred())
		Expect(e.LoadWords(words)).To(Succeed())
	}

	run := func(source string) {
		load(source)
		Expect(e.Run()).To(Succeed())
	}

	BeforeEach(func() {
		logger, hook = test.NewNullLogger()
		e = emu.NewEmulator(emu.WithLogger(logger))
	})

	Describe("NewEmulator", func() {
		It("should create an emulator in its reset state", func() {
			Expect(e.RegFile()).NotTo(BeNil())
			Expect(e.Memory()).NotTo(BeNil())
			Expect(e.RegFile().PSTATE.String()).To(Equal("-Z--"))
			Expect(e.InstructionCount()).To(BeZero())
		})
	})

	Describe("Step", func() {
		It("should execute one instruction and advance PC", func() {
			load("movz x0, #5")

			result := e.Step()

			Expect(result.Err).ToNot(HaveOccurred())
			Expect(result.Halted).To(BeFalse())
			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(5)))
			Expect(e.RegFile().PC).To(Equal(uint64(4)))
			Expect(e.InstructionCount()).To(Equal(uint64(1)))
		})

		It("should stop on the halt word without advancing PC", func() {
			load("nop\nand x0, x0, x0")

			Expect(e.Step().Halted).To(BeFalse())
			Expect(e.Step().Halted).To(BeTrue())
			Expect(e.RegFile().PC).To(Equal(uint64(4)))
		})

		It("should skip data words", func() {
			run(".int 5\n.int 0x12345678\nmovz x0, #1\nand x0, x0, x0")

			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(1)))
			Expect(e.RegFile().PC).To(Equal(uint64(12)))
		})

		It("should log each step at debug level", func() {
			logger.SetLevel(logrus.DebugLevel)
			load("nop")

			e.Step()

			Expect(hook.LastEntry()).ToNot(BeNil())
			Expect(hook.LastEntry().Message).To(Equal("CPU step"))
			Expect(hook.LastEntry().Data["pc"]).To(Equal("0x00000000"))
			Expect(hook.LastEntry().Data["family"]).To(Equal(insts.FamilyNOP))
		})

		It("should stay quiet above debug level", func() {
			logger.SetLevel(logrus.WarnLevel)
			load("nop")

			e.Step()

			Expect(hook.Entries).To(BeEmpty())
		})
	})

	Describe("Run", func() {
		It("should run the three instruction program", func() {
			run("movz x0, #5\nmovz x1, #3\nadd x2, x0, x1\nand x0, x0, x0")

			regFile := e.RegFile()
			Expect(regFile.ReadReg(0)).To(Equal(uint64(5)))
			Expect(regFile.ReadReg(1)).To(Equal(uint64(3)))
			Expect(regFile.ReadReg(2)).To(Equal(uint64(8)))
			for i := uint8(3); i < 31; i++ {
				Expect(regFile.ReadReg(i)).To(BeZero())
			}
			Expect(regFile.PC).To(Equal(uint64(12)))
			Expect(regFile.PSTATE.String()).To(Equal("-Z--"))
		})

		It("should land a forward branch on its label", func() {
			run(`	b skip
	movz x0, #1
	movz x0, #2
skip:
	movz x1, #7
	and x0, x0, x0`)

			Expect(e.RegFile().ReadReg(0)).To(BeZero())
			Expect(e.RegFile().ReadReg(1)).To(Equal(uint64(7)))
			Expect(e.RegFile().PC).To(Equal(uint64(16)))
		})

		It("should loop on conditional branches", func() {
			run(`	movz x0, #5
	movz x1, #0
loop:
	add x1, x1, #2
	subs x0, x0, #1
	bne loop
	and x0, x0, x0`)

			Expect(e.RegFile().ReadReg(0)).To(BeZero())
			Expect(e.RegFile().ReadReg(1)).To(Equal(uint64(10)))
			Expect(e.RegFile().PSTATE.Z).To(BeTrue())
			Expect(e.InstructionCount()).To(Equal(uint64(2 + 5*3 + 1)))
		})

		It("should branch through a register", func() {
			run(`	movz x3, #12
	br x3
	movz x0, #1
	movz x1, #1
	and x0, x0, x0`)

			Expect(e.RegFile().ReadReg(0)).To(BeZero())
			Expect(e.RegFile().ReadReg(1)).To(Equal(uint64(1)))
		})

		It("should compare with signed conditions", func() {
			run(`	movz x0, #3
	cmp x0, #5
	bgt big
	movz x1, #1
	b done
big:
	movz x1, #2
done:
	and x0, x0, x0`)

			Expect(e.RegFile().ReadReg(1)).To(Equal(uint64(1)))
			Expect(e.RegFile().PSTATE.String()).To(Equal("N---"))
		})

		It("should store and load back a value", func() {
			run(`	movz x0, #0xbeef
	movk x0, #0xdead, lsl #16
	movz x1, #0x100
	str x0, [x1, #8]
	ldr x2, [x1, #8]
	and x0, x0, x0`)

			Expect(e.RegFile().ReadReg(2)).To(Equal(uint64(0xDEADBEEF)))
			v, err := e.Memory().Read64(0x108)
			Expect(err).ToNot(HaveOccurred())
			Expect(v).To(Equal(uint64(0xDEADBEEF)))
		})

		It("should update the base register for pre- and post-index", func() {
			run(`	movz x1, #0x200
	movz x0, #1
	str x0, [x1, #-8]!
	ldr x2, [x1], #16
	and x0, x0, x0`)

			Expect(e.RegFile().ReadReg(2)).To(Equal(uint64(1)))
			Expect(e.RegFile().ReadReg(1)).To(Equal(uint64(0x208)))
			w, err := e.Memory().Read32(0x1F8)
			Expect(err).ToNot(HaveOccurred())
			Expect(w).To(Equal(uint32(1)))
		})

		It("should load a literal", func() {
			run(`	ldr x0, value
	and x0, x0, x0
value:
	.int 42
	.int 1`)

			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(1<<32 | 42)))
		})

		It("should keep 32-bit results in the low half", func() {
			run(`	movn x0, #0
	add w1, w0, #1
	adds w2, w0, #1
	orr w3, wzr, w0
	and x0, x0, x0`)

			Expect(e.RegFile().ReadReg(1)).To(BeZero())
			Expect(e.RegFile().ReadReg(2)).To(BeZero())
			Expect(e.RegFile().ReadReg(3)).To(Equal(uint64(0xFFFFFFFF)))
			Expect(e.RegFile().PSTATE.String()).To(Equal("-ZC-"))
		})

		It("should apply negated logical operands", func() {
			run(`	movz x1, #0xff
	movz x3, #0xfff
	mvn x0, x1
	bic w2, w3, w1
	and x0, x0, x0`)

			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(0xFFFFFFFFFFFFFF00)))
			Expect(e.RegFile().ReadReg(2)).To(Equal(uint64(0xF00)))
		})

		It("should multiply", func() {
			run(`	movz x1, #6
	movz x2, #7
	mul x0, x1, x2
	mneg x3, x1, x2
	and x0, x0, x0`)

			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(42)))
			Expect(e.RegFile().ReadReg(3)).To(Equal(uint64(0xFFFFFFFFFFFFFFD6)))
		})

		It("should never change the zero register", func() {
			run(`	movz xzr, #5
	add xzr, xzr, #1
	add x0, xzr, #0
	and x0, x0, x0`)

			Expect(e.RegFile().ReadReg(31)).To(BeZero())
			Expect(e.RegFile().ReadReg(0)).To(BeZero())
		})
	})

	Describe("errors", func() {
		It("should fail when PC reaches the end of memory", func() {
			load("movz x0, #0x20, lsl #16\nbr x0")

			err := e.Run()

			Expect(err).To(MatchError(emu.ErrPCOutOfRange))
			Expect(e.RegFile().PC).To(Equal(uint64(emu.MemorySize)))
		})

		It("should fail on an out-of-range store", func() {
			load("movn x1, #0\nstr x0, [x1]")

			Expect(e.Run()).To(MatchError(emu.ErrOutOfRange))
		})

		It("should stop runaway programs", func() {
			e = emu.NewEmulator(emu.WithLogger(logger), emu.WithMaxInstructions(10))
			load("loop: b loop")

			err := e.Run()

			Expect(err).To(MatchError(emu.ErrInstructionLimit))
			Expect(e.InstructionCount()).To(Equal(uint64(10)))
		})
	})

	Describe("DumpState", func() {
		It("should render registers, flags and memory", func() {
			run("movz x0, #5\nmovz x1, #3\nadd x2, x0, x1\nand x0, x0, x0")

			var buf bytes.Buffer
			Expect(e.DumpState(&buf)).To(Succeed())

			lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
			Expect(lines).To(HaveLen(1 + 31 + 2 + 1 + 4))
			Expect(lines[0]).To(Equal("Registers:"))
			Expect(lines[1]).To(Equal("X00 = 0000000000000005"))
			Expect(lines[3]).To(Equal("X02 = 0000000000000008"))
			Expect(lines[31]).To(Equal("X30 = 0000000000000000"))
			Expect(lines[32]).To(Equal("PC = 000000000000000c"))
			Expect(lines[33]).To(Equal("PSTATE: -Z--"))
			Expect(lines[34]).To(Equal("Non-zero memory:"))
			Expect(lines[35:]).To(Equal([]string{
				"0x00000000: d28000a0",
				"0x00000004: d2800061",
				"0x00000008: 8b010002",
				"0x0000000c: 8a000000",
			}))
		})
	})
})
