package emu

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// MemorySize is the capacity of the emulated memory in bytes.
const MemorySize = 1 << 21

// scanChunk is the block size NonZeroWords reads at a time.
const scanChunk = 4096

// ErrOutOfRange is returned for an access that does not fit entirely
// inside memory.
var ErrOutOfRange = errors.New("memory access out of range")

// Memory is a flat little-endian byte-addressable memory.
type Memory struct {
	storage *mem.Storage
}

// NewMemory creates a zero-filled memory of MemorySize bytes.
func NewMemory() *Memory {
	return &Memory{storage: mem.NewStorage(MemorySize)}
}

func (m *Memory) check(addr, size uint64) error {
	if addr > MemorySize || size > MemorySize-addr {
		return fmt.Errorf("%w: %d bytes at 0x%x", ErrOutOfRange, size, addr)
	}
	return nil
}

// Read returns size bytes starting at addr.
func (m *Memory) Read(addr, size uint64) ([]byte, error) {
	if err := m.check(addr, size); err != nil {
		return nil, err
	}
	return m.storage.Read(addr, size)
}

// Write stores data starting at addr.
func (m *Memory) Write(addr uint64, data []byte) error {
	if err := m.check(addr, uint64(len(data))); err != nil {
		return err
	}
	return m.storage.Write(addr, data)
}

// Read32 reads a little-endian 32-bit word.
func (m *Memory) Read32(addr uint64) (uint32, error) {
	data, err := m.Read(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// Read64 reads a little-endian 64-bit doubleword.
func (m *Memory) Read64(addr uint64) (uint64, error) {
	data, err := m.Read(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}

// Write32 writes a little-endian 32-bit word.
func (m *Memory) Write32(addr uint64, value uint32) error {
	return m.Write(addr, binary.LittleEndian.AppendUint32(nil, value))
}

// Write64 writes a little-endian 64-bit doubleword.
func (m *Memory) Write64(addr uint64, value uint64) error {
	return m.Write(addr, binary.LittleEndian.AppendUint64(nil, value))
}

// LoadProgram copies an image to address 0.
func (m *Memory) LoadProgram(image []byte) error {
	if len(image) > MemorySize {
		return fmt.Errorf("%w: image of %d bytes", ErrOutOfRange, len(image))
	}
	return m.Write(0, image)
}

// WordAt is an aligned memory word and its address.
type WordAt struct {
	Addr uint64
	Word uint32
}

// NonZeroWords returns every 4-byte aligned non-zero word in ascending
// address order.
func (m *Memory) NonZeroWords() ([]WordAt, error) {
	var words []WordAt

	for base := uint64(0); base < MemorySize; base += scanChunk {
		chunk, err := m.Read(base, scanChunk)
		if err != nil {
			return nil, err
		}

		for off := 0; off < scanChunk; off += 4 {
			w := binary.LittleEndian.Uint32(chunk[off:])
			if w != 0 {
				words = append(words, WordAt{Addr: base + uint64(off), Word: w})
			}
		}
	}

	return words, nil
}
