package jxlio

import (
	"github.com/pkg/errors"
)

// BitWriter produces the LSB first bitstream read by Bitreader.
type BitWriter struct {
	buf         []byte
	cache       uint64
	cacheBits   int
	bitsWritten uint64
}

func NewBitWriter() *BitWriter {
	return &BitWriter{}
}

// Write appends the low bits of value. At most 56 bits per call.
func (bw *BitWriter) Write(bits int, value uint64) error {
	if bits == 0 {
		return nil
	}
	if bits < 0 || bits > 56 {
		return errors.Errorf("num bits must be between 0 and 56, got %d", bits)
	}
	if value>>bits != 0 {
		return errors.Errorf("value %d does not fit in %d bits", value, bits)
	}
	bw.cache |= value << bw.cacheBits
	bw.cacheBits += bits
	bw.bitsWritten += uint64(bits)
	for bw.cacheBits >= 8 {
		bw.buf = append(bw.buf, byte(bw.cache))
		bw.cache >>= 8
		bw.cacheBits -= 8
	}
	return nil
}

func (bw *BitWriter) WriteBool(b bool) {
	var v uint64
	if b {
		v = 1
	}
	// a single bit always fits
	_ = bw.Write(1, v)
}

// WriteU32 writes value using the first of the four distributions able to hold it.
func (bw *BitWriter) WriteU32(value uint32, c0 int, u0 int, c1 int, u1 int, c2 int, u2 int, c3 int, u3 int) error {
	c := []int{c0, c1, c2, c3}
	u := []int{u0, u1, u2, u3}
	for i := 0; i < 4; i++ {
		if int64(value) < int64(c[i]) {
			continue
		}
		rem := uint64(int64(value) - int64(c[i]))
		if rem>>u[i] != 0 {
			continue
		}
		if err := bw.Write(2, uint64(i)); err != nil {
			return err
		}
		return bw.Write(u[i], rem)
	}
	return errors.Errorf("value %d not representable in U32 distribution", value)
}

func (bw *BitWriter) WriteU8(value int) error {
	if value < 0 || value > 255 {
		return errors.Errorf("value %d out of range for U8", value)
	}
	return bw.writeVarLen(value, 3)
}

func (bw *BitWriter) WriteU16(value int) error {
	if value < 0 || value > 65535 {
		return errors.Errorf("value %d out of range for U16", value)
	}
	return bw.writeVarLen(value, 4)
}

func (bw *BitWriter) writeVarLen(value int, exponentBits int) error {
	if value == 0 {
		return bw.Write(1, 0)
	}
	n := 0
	for value>>(n+1) != 0 {
		n++
	}
	if err := bw.Write(1, 1); err != nil {
		return err
	}
	if err := bw.Write(exponentBits, uint64(n)); err != nil {
		return err
	}
	return bw.Write(n, uint64(value-1<<n))
}

// Append copies every bit written to other onto the end of this writer.
func (bw *BitWriter) Append(other *BitWriter) {
	for _, b := range other.buf {
		_ = bw.Write(8, uint64(b))
	}
	if other.cacheBits > 0 {
		_ = bw.Write(other.cacheBits, other.cache)
	}
}

func (bw *BitWriter) ZeroPadToByte() {
	if bw.cacheBits > 0 {
		_ = bw.Write(8-bw.cacheBits, 0)
	}
}

func (bw *BitWriter) BitsWritten() uint64 {
	return bw.bitsWritten
}

// Bytes returns the written stream, zero padding the final partial byte.
func (bw *BitWriter) Bytes() []byte {
	out := make([]byte, len(bw.buf), len(bw.buf)+1)
	copy(out, bw.buf)
	if bw.cacheBits > 0 {
		out = append(out, byte(bw.cache))
	}
	return out
}
