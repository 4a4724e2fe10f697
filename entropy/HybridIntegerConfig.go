package entropy

import (
	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/util"
)

// HybridIntegerConfig splits an integer into an entropy coded token and raw extra bits.
// Tokens below 1<<SplitExponent are the value itself.
type HybridIntegerConfig struct {
	SplitExponent uint32
	SplitToken    uint32
	MsbInToken    uint32
	LsbInToken    uint32
}

func NewHybridIntegerConfig(splitExponent uint32, msbInToken uint32, lsbInToken uint32) *HybridIntegerConfig {
	hic := &HybridIntegerConfig{}
	hic.SplitExponent = splitExponent
	hic.SplitToken = 1 << splitExponent
	hic.MsbInToken = msbInToken
	hic.LsbInToken = lsbInToken
	return hic
}

func DecodeUintConfig(reader jxlio.BitReader, logAlphabetSize int) (*HybridIntegerConfig, error) {
	split, err := reader.ReadBits(util.CeilLog1p(logAlphabetSize))
	if err != nil {
		return nil, err
	}
	if int(split) > logAlphabetSize {
		return nil, formatError("uint config", -1, "split exponent %d exceeds log alphabet size %d", split, logAlphabetSize)
	}
	if int(split) == logAlphabetSize {
		return NewHybridIntegerConfig(split, 0, 0), nil
	}
	msb, err := reader.ReadBits(util.CeilLog1p(split))
	if err != nil {
		return nil, err
	}
	if msb > split {
		return nil, formatError("uint config", -1, "msb_in_token %d exceeds split exponent %d", msb, split)
	}
	lsb, err := reader.ReadBits(util.CeilLog1p(split - msb))
	if err != nil {
		return nil, err
	}
	if msb+lsb > split {
		return nil, formatError("uint config", -1, "msb_in_token + lsb_in_token %d exceeds split exponent %d", msb+lsb, split)
	}
	return NewHybridIntegerConfig(split, msb, lsb), nil
}

// ReadUint expands token into the value it stands for, reading any extra bits.
func (hic *HybridIntegerConfig) ReadUint(reader jxlio.BitReader, token uint32) (uint32, error) {
	if token < hic.SplitToken {
		return token, nil
	}
	inToken := hic.MsbInToken + hic.LsbInToken
	nbits := hic.SplitExponent - inToken + ((token - hic.SplitToken) >> inToken)
	nbits &= 31
	low := token & (1<<hic.LsbInToken - 1)
	token >>= hic.LsbInToken
	extra, err := reader.ReadBits(int(nbits))
	if err != nil {
		return 0, err
	}
	ret := uint64(1)<<hic.MsbInToken | uint64(token&(1<<hic.MsbInToken-1))
	ret = (ret<<nbits|uint64(extra))<<hic.LsbInToken | uint64(low)
	return uint32(ret), nil
}

// Encode is the inverse of ReadUint.
func (hic *HybridIntegerConfig) Encode(value uint32) (token uint32, nbits uint32, bits uint32) {
	if value < hic.SplitToken {
		return value, 0, 0
	}
	n := uint32(util.FloorLog2(value))
	m := value - 1<<n
	token = hic.SplitToken +
		(n-hic.SplitExponent)<<(hic.MsbInToken+hic.LsbInToken) +
		(m>>(n-hic.MsbInToken))<<hic.LsbInToken +
		m&(1<<hic.LsbInToken-1)
	nbits = n - hic.MsbInToken - hic.LsbInToken
	bits = (value >> hic.LsbInToken) & (1<<nbits - 1)
	return token, nbits, bits
}

// Write is the inverse of DecodeUintConfig.
func (hic *HybridIntegerConfig) Write(writer *jxlio.BitWriter, logAlphabetSize int) error {
	full := int(hic.SplitExponent) == logAlphabetSize && hic.MsbInToken+hic.LsbInToken != 0
	if full || int(hic.SplitExponent) > logAlphabetSize || hic.MsbInToken+hic.LsbInToken > hic.SplitExponent {
		return formatError("uint config", -1, "config (%d,%d,%d) invalid for log alphabet size %d",
			hic.SplitExponent, hic.MsbInToken, hic.LsbInToken, logAlphabetSize)
	}
	if err := writer.Write(util.CeilLog1p(logAlphabetSize), uint64(hic.SplitExponent)); err != nil {
		return err
	}
	if int(hic.SplitExponent) == logAlphabetSize {
		return nil
	}
	if err := writer.Write(util.CeilLog1p(hic.SplitExponent), uint64(hic.MsbInToken)); err != nil {
		return err
	}
	return writer.Write(util.CeilLog1p(hic.SplitExponent-hic.MsbInToken), uint64(hic.LsbInToken))
}
