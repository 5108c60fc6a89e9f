package comm

// Register space limits.
const (
	// MaxIndex is the highest register index.
	MaxIndex = 127
	// MaxCount is the most registers a single frame can address. The count
	// byte must keep its high bit clear.
	MaxCount = 127
	// MaxValue is the largest value a register holds (14 bits).
	MaxValue uint16 = 0x3fff
)

// EncodeValue splits a 14-bit value into two 7-bit bytes.
// Bits above the 14th are dropped, range checks belong to the caller.
func EncodeValue(v uint16) (lo, hi byte) {
	return byte(v & 0x7f), byte((v >> 7) & 0x7f)
}

// DecodeValue joins two 7-bit bytes into a 14-bit value.
func DecodeValue(lo, hi byte) uint16 {
	return uint16(hi&0x7f)<<7 | uint16(lo&0x7f)
}
