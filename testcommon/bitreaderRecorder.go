package testcommon

import (
	"github.com/kpfaulkner/jxl-entropy/jxlio"
)

// BitReaderRecorder wraps a real reader and records every value it returns,
// so a decode can be replayed later through a FakeBitReader.
type BitReaderRecorder struct {
	ReadBitsData []uint32
	ReadBoolData []bool
	ShowBitsData []uint32
	ReadU8Data   []int
	ReadU16Data  []int
	ReadU32Data  []uint32
	SkippedBits  int

	realBitReader jxlio.BitReader
}

func NewBitReaderRecorder(realBitReader jxlio.BitReader) *BitReaderRecorder {
	br := &BitReaderRecorder{
		realBitReader: realBitReader,
	}

	return br
}

func (fbr *BitReaderRecorder) ReadBits(bits int) (uint32, error) {
	res, err := fbr.realBitReader.ReadBits(bits)
	if err != nil {
		return 0, err
	}
	fbr.ReadBitsData = append(fbr.ReadBitsData, res)
	return res, nil
}

func (fbr *BitReaderRecorder) ReadBool() (bool, error) {
	res, err := fbr.realBitReader.ReadBool()
	if err != nil {
		return false, err
	}
	fbr.ReadBoolData = append(fbr.ReadBoolData, res)
	return res, nil
}

func (fbr *BitReaderRecorder) ShowBits(bits int) (uint32, error) {
	res, err := fbr.realBitReader.ShowBits(bits)
	if err != nil {
		return 0, err
	}
	fbr.ShowBitsData = append(fbr.ShowBitsData, res)
	return res, nil
}

func (fbr *BitReaderRecorder) SkipBits(bits int) error {
	if err := fbr.realBitReader.SkipBits(bits); err != nil {
		return err
	}
	fbr.SkippedBits += bits
	return nil
}

func (fbr *BitReaderRecorder) ReadU32(c0 int, u0 int, c1 int, u1 int, c2 int, u2 int, c3 int, u3 int) (uint32, error) {
	res, err := fbr.realBitReader.ReadU32(c0, u0, c1, u1, c2, u2, c3, u3)
	if err != nil {
		return 0, err
	}
	fbr.ReadU32Data = append(fbr.ReadU32Data, res)
	return res, nil
}

func (fbr *BitReaderRecorder) ReadU8() (int, error) {
	res, err := fbr.realBitReader.ReadU8()
	if err != nil {
		return 0, err
	}
	fbr.ReadU8Data = append(fbr.ReadU8Data, res)
	return res, nil
}

func (fbr *BitReaderRecorder) ReadU16() (int, error) {
	res, err := fbr.realBitReader.ReadU16()
	if err != nil {
		return 0, err
	}
	fbr.ReadU16Data = append(fbr.ReadU16Data, res)
	return res, nil
}

func (fbr *BitReaderRecorder) BitsRead() uint64 {
	return fbr.realBitReader.BitsRead()
}

func (fbr *BitReaderRecorder) AtEnd() bool {
	return fbr.realBitReader.AtEnd()
}

// Replay returns a FakeBitReader scripted with everything recorded so far.
func (fbr *BitReaderRecorder) Replay() *FakeBitReader {
	return &FakeBitReader{
		ReadBitsData: append([]uint32(nil), fbr.ReadBitsData...),
		ReadBoolData: append([]bool(nil), fbr.ReadBoolData...),
		ShowBitsData: append([]uint32(nil), fbr.ShowBitsData...),
		ReadU8Data:   append([]int(nil), fbr.ReadU8Data...),
		ReadU16Data:  append([]int(nil), fbr.ReadU16Data...),
		ReadU32Data:  append([]uint32(nil), fbr.ReadU32Data...),
	}
}
