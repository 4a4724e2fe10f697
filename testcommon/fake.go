package testcommon

import (
	"github.com/pkg/errors"

	"github.com/kpfaulkner/jxl-entropy/jxlio"
)

// FakeBitReader is a scripted implementation of jxlio.BitReader for testing purposes.
// Each method consumes from its own queue and fails with jxlio.ErrInsufficientData once it is empty.
type FakeBitReader struct {
	ReadBitsData []uint32
	ReadBoolData []bool
	ShowBitsData []uint32
	ReadU8Data   []int
	ReadU16Data  []int
	ReadU32Data  []uint32
	AtEndData    []bool

	SkippedBits int
	bitsRead    uint64
}

func NewFakeBitReader() *FakeBitReader {
	return &FakeBitReader{}
}

func noMoreData(method string) error {
	return errors.Wrapf(jxlio.ErrInsufficientData, "fake %s has no more data", method)
}

func (fbr *FakeBitReader) ReadBits(bits int) (uint32, error) {
	if len(fbr.ReadBitsData) > 0 {
		val := fbr.ReadBitsData[0]
		fbr.ReadBitsData = fbr.ReadBitsData[1:]
		fbr.bitsRead += uint64(bits)
		return val, nil
	}
	return 0, noMoreData("ReadBits")
}

func (fbr *FakeBitReader) ReadBool() (bool, error) {
	if len(fbr.ReadBoolData) > 0 {
		val := fbr.ReadBoolData[0]
		fbr.ReadBoolData = fbr.ReadBoolData[1:]
		fbr.bitsRead++
		return val, nil
	}
	return false, noMoreData("ReadBool")
}

func (fbr *FakeBitReader) ShowBits(bits int) (uint32, error) {
	if len(fbr.ShowBitsData) > 0 {
		val := fbr.ShowBitsData[0]
		fbr.ShowBitsData = fbr.ShowBitsData[1:]
		return val, nil
	}
	return 0, noMoreData("ShowBits")
}

func (fbr *FakeBitReader) SkipBits(bits int) error {
	fbr.SkippedBits += bits
	fbr.bitsRead += uint64(bits)
	return nil
}

func (fbr *FakeBitReader) ReadU32(c0 int, u0 int, c1 int, u1 int, c2 int, u2 int, c3 int, u3 int) (uint32, error) {
	if len(fbr.ReadU32Data) > 0 {
		val := fbr.ReadU32Data[0]
		fbr.ReadU32Data = fbr.ReadU32Data[1:]
		return val, nil
	}
	return 0, noMoreData("ReadU32")
}

func (fbr *FakeBitReader) ReadU8() (int, error) {
	if len(fbr.ReadU8Data) > 0 {
		val := fbr.ReadU8Data[0]
		fbr.ReadU8Data = fbr.ReadU8Data[1:]
		return val, nil
	}
	return 0, noMoreData("ReadU8")
}

func (fbr *FakeBitReader) ReadU16() (int, error) {
	if len(fbr.ReadU16Data) > 0 {
		val := fbr.ReadU16Data[0]
		fbr.ReadU16Data = fbr.ReadU16Data[1:]
		return val, nil
	}
	return 0, noMoreData("ReadU16")
}

func (fbr *FakeBitReader) BitsRead() uint64 {
	return fbr.bitsRead
}

func (fbr *FakeBitReader) AtEnd() bool {
	if len(fbr.AtEndData) > 0 {
		val := fbr.AtEndData[0]
		fbr.AtEndData = fbr.AtEndData[1:]
		return val
	}
	return len(fbr.ReadBitsData) == 0 && len(fbr.ReadBoolData) == 0
}
