package insts

// Word is the set of unsigned types the bit-field helpers operate on:
// 32-bit instruction words and 64-bit register values.
type Word interface {
	~uint32 | ~uint64
}

// Mask returns a value with the low n bits set (2^n - 1).
func Mask(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}

// BitsAt extracts length bits starting at bit pos (0 is the least
// significant bit), right-justified.
func BitsAt[W Word](word W, pos, length uint) W {
	return (word >> pos) & W(Mask(length))
}

// BitAt reports whether bit pos of word is set.
func BitAt[W Word](word W, pos uint) bool {
	return (word>>pos)&1 == 1
}

// SetBits clears the length bits ending at pos (bits [pos-length, pos)) and
// ORs in value shifted into place. The value is not masked: the caller
// guarantees it fits in length bits.
func SetBits[W Word](word W, pos uint, value W, length uint) W {
	low := pos - length
	cleared := word &^ (W(Mask(length)) << low)
	return cleared | value<<low
}

// SignExtend treats bit length-1 of value as the sign bit and extends it
// through the upper bits.
func SignExtend(value uint64, length uint) int64 {
	value &= Mask(length)
	sign := uint64(1) << (length - 1)
	return int64((value ^ sign) - sign)
}
