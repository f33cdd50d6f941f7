package loader

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/sarchlab/a64sim/emu"
)

// loadELF flattens the PT_LOAD segments of an AArch64 ELF64 executable.
// Segments are placed at their virtual addresses, so every segment must
// end below the memory size.
func loadELF(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("not a 64-bit ELF file")
	}

	if f.Machine != elf.EM_AARCH64 {
		return nil, fmt.Errorf("not an ARM64 ELF file (machine type: %v)", f.Machine)
	}

	if f.Entry >= emu.MemorySize {
		return nil, fmt.Errorf("%w: entry point 0x%x", ErrTooLarge, f.Entry)
	}

	img := &Image{Entry: f.Entry}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		if phdr.Vaddr > emu.MemorySize || phdr.Memsz > emu.MemorySize-phdr.Vaddr {
			return nil, fmt.Errorf("%w: segment at 0x%x of %d bytes",
				ErrTooLarge, phdr.Vaddr, phdr.Memsz)
		}

		if phdr.Filesz > phdr.Memsz {
			return nil, fmt.Errorf("segment at 0x%x has more file bytes than memory bytes", phdr.Vaddr)
		}

		// Bytes past Filesz stay zero.
		end := phdr.Vaddr + phdr.Memsz
		if end > uint64(len(img.Data)) {
			img.Data = append(img.Data, make([]byte, end-uint64(len(img.Data)))...)
		}

		if phdr.Filesz == 0 {
			continue
		}

		dst := img.Data[phdr.Vaddr : phdr.Vaddr+phdr.Filesz]
		n, err := phdr.ReadAt(dst, 0)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
		}
		if uint64(n) != phdr.Filesz {
			return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
				phdr.Vaddr, n, phdr.Filesz)
		}
	}

	return img, nil
}
