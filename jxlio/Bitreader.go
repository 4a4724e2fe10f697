package jxlio

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

var ErrInsufficientData = errors.New("insufficient data")

// Bitreader reads an LSB first bitstream, keeping up to 64 bits cached.
type Bitreader struct {
	in        io.ByteReader
	cache     uint64
	cacheBits int
	bitsRead  uint64
	eof       bool
	err       error
}

func NewBitreader(in io.Reader) *Bitreader {
	br, ok := in.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(in)
	}
	return &Bitreader{in: br}
}

func NewBitreaderFromBytes(data []byte) *Bitreader {
	return NewBitreader(bytes.NewReader(data))
}

func (br *Bitreader) fill() {
	for br.cacheBits <= 56 && !br.eof {
		b, err := br.in.ReadByte()
		if err != nil {
			br.eof = true
			if err != io.EOF {
				br.err = err
			}
			return
		}
		br.cache |= uint64(b) << br.cacheBits
		br.cacheBits += 8
	}
}

func (br *Bitreader) insufficient(bits int) error {
	if br.err != nil {
		return errors.Wrapf(br.err, "reading %d bits at bit %d", bits, br.bitsRead)
	}
	return errors.Wrapf(ErrInsufficientData, "reading %d bits at bit %d", bits, br.bitsRead)
}

// ReadBits reads up to 32 bits.
func (br *Bitreader) ReadBits(bits int) (uint32, error) {
	if bits == 0 {
		return 0, nil
	}
	if bits < 0 || bits > 32 {
		return 0, errors.Errorf("num bits must be between 0 and 32, got %d", bits)
	}
	if br.cacheBits < bits {
		br.fill()
		if br.cacheBits < bits {
			return 0, br.insufficient(bits)
		}
	}
	v := br.cache & (1<<bits - 1)
	br.cache >>= bits
	br.cacheBits -= bits
	br.bitsRead += uint64(bits)
	return uint32(v), nil
}

func (br *Bitreader) ShowBits(bits int) (uint32, error) {
	if bits < 0 || bits > 32 {
		return 0, errors.Errorf("num bits must be between 0 and 32, got %d", bits)
	}
	if br.cacheBits < bits {
		br.fill()
		if br.err != nil {
			return 0, br.insufficient(bits)
		}
	}
	return uint32(br.cache & (1<<bits - 1)), nil
}

func (br *Bitreader) SkipBits(bits int) error {
	for bits > 0 {
		n := min(bits, 32)
		if _, err := br.ReadBits(n); err != nil {
			return err
		}
		bits -= n
	}
	return nil
}

func (br *Bitreader) ReadBool() (bool, error) {
	v, err := br.ReadBits(1)
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

func (br *Bitreader) ReadU32(c0 int, u0 int, c1 int, u1 int, c2 int, u2 int, c3 int, u3 int) (uint32, error) {
	choice, err := br.ReadBits(2)
	if err != nil {
		return 0, err
	}

	c := []int{c0, c1, c2, c3}
	u := []int{u0, u1, u2, u3}
	b, err := br.ReadBits(u[choice])
	if err != nil {
		return 0, err
	}
	return uint32(c[choice]) + b, nil
}

// ReadU8 reads a value in [0, 255]: a flag bit, then a 3 bit exponent n and n mantissa bits.
func (br *Bitreader) ReadU8() (int, error) {
	return br.readVarLen(3)
}

// ReadU16 reads a value in [0, 65535]: a flag bit, then a 4 bit exponent n and n mantissa bits.
func (br *Bitreader) ReadU16() (int, error) {
	return br.readVarLen(4)
}

func (br *Bitreader) readVarLen(exponentBits int) (int, error) {
	set, err := br.ReadBool()
	if err != nil {
		return 0, err
	}
	if !set {
		return 0, nil
	}
	n, err := br.ReadBits(exponentBits)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 1, nil
	}
	v, err := br.ReadBits(int(n))
	if err != nil {
		return 0, err
	}
	return int(v) + 1<<n, nil
}

func (br *Bitreader) ZeroPadToByte() error {
	remaining := int(8-br.bitsRead%8) % 8
	if remaining == 0 {
		return nil
	}
	padding, err := br.ReadBits(remaining)
	if err != nil {
		return err
	}
	if padding != 0 {
		return errors.New("nonzero zero-padding-to-byte")
	}
	return nil
}

func (br *Bitreader) BitsRead() uint64 {
	return br.bitsRead
}

func (br *Bitreader) AtEnd() bool {
	if br.cacheBits == 0 {
		br.fill()
	}
	return br.cacheBits == 0
}
