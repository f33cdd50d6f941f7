// Package loader reads and writes program images for the emulator.
//
// An image is either a raw little-endian word stream, as written by the
// assembler, or an AArch64 ELF64 executable whose loadable segments fit
// inside emulated memory.
package loader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/a64sim/emu"
	"github.com/sarchlab/a64sim/insts"
)

// ErrTooLarge is returned for an image that does not fit in memory.
var ErrTooLarge = errors.New("image does not fit in memory")

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// Image is a flat memory image that starts at address 0.
type Image struct {
	// Data is copied to memory from address 0.
	Data []byte
	// Entry is the address execution starts at.
	Entry uint64
}

// LoadImage reads the program at path. ELF files are flattened, anything
// else is taken as a raw image.
func LoadImage(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	if bytes.HasPrefix(data, elfMagic) {
		return loadELF(path)
	}

	if len(data) > emu.MemorySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	return &Image{Data: data}, nil
}

// WriteImage writes words to path as a little-endian word stream.
func WriteImage(path string, words []uint32) error {
	data := make([]byte, 0, len(words)*insts.InstructionSize)
	for _, w := range words {
		data = binary.LittleEndian.AppendUint32(data, w)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}

	return nil
}

// Words returns the image as little-endian words. A trailing partial word
// is zero-padded.
func (img *Image) Words() []uint32 {
	n := (len(img.Data) + insts.InstructionSize - 1) / insts.InstructionSize
	words := make([]uint32, n)

	var buf [insts.InstructionSize]byte
	for i := range words {
		clear(buf[:])
		copy(buf[:], img.Data[i*insts.InstructionSize:])
		words[i] = binary.LittleEndian.Uint32(buf[:])
	}

	return words
}

// LoadInto copies the image into the emulator and points PC at the entry.
func (img *Image) LoadInto(e *emu.Emulator) error {
	if err := e.LoadProgram(img.Data); err != nil {
		return err
	}
	e.RegFile().PC = img.Entry
	return nil
}
