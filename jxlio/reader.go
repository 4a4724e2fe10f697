package jxlio

// BitReader is the bit source consumed by the entropy decoder.
// Bits are consumed least significant bit first within each byte.
type BitReader interface {
	ReadBits(bits int) (uint32, error)
	ReadBool() (bool, error)
	// ShowBits peeks without consuming. Bits past the end of the stream read as zero.
	ShowBits(bits int) (uint32, error)
	SkipBits(bits int) error
	ReadU32(c0 int, u0 int, c1 int, u1 int, c2 int, u2 int, c3 int, u3 int) (uint32, error)
	ReadU8() (int, error)
	ReadU16() (int, error)
	BitsRead() uint64
	AtEnd() bool
}
