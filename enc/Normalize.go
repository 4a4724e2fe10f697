package enc

import (
	"math"

	"github.com/pkg/errors"

	"github.com/kpfaulkner/jxl-entropy/entropy"
	"github.com/kpfaulkner/jxl-entropy/util"
)

// quantum is the granularity of counts with c's log class under shift.
func quantum(c int32, shift int) int32 {
	if c <= 1 {
		return 1
	}
	logCount := util.FloorLog2(uint32(c))
	return int32(1) << (logCount - entropy.PopulationCountPrecision(logCount, shift))
}

// IsRepresentable reports whether a general histogram stores c exactly under shift.
func IsRepresentable(c int32, shift int) bool {
	return c%quantum(c, shift) == 0
}

func floorRepresentable(c int32, shift int) int32 {
	return c - c%quantum(c, shift)
}

func roundRepresentable(c int32, shift int) int32 {
	lo := floorRepresentable(c, shift)
	if lo == c {
		return c
	}
	hi := lo + quantum(lo, shift)
	if c-lo < hi-c {
		return lo
	}
	return hi
}

// NormalizeCounts scales raw counts to sum to 1<<precisionBits, keeping every used symbol at least 1.
// All counts except the omitted one (see OmittedSlot) are representable under shift.
func NormalizeCounts(raw []int32, precisionBits int, shift int) ([]int32, error) {
	rangeSize := int32(1) << precisionBits
	raw = util.TrimTrailingZeros(raw)
	if len(raw) > entropy.ANSMaxAlphabetSize {
		return nil, errors.Errorf("alphabet of %d symbols exceeds %d", len(raw), entropy.ANSMaxAlphabetSize)
	}

	var total int64
	numNonZero := 0
	omit := -1
	for i, c := range raw {
		if c < 0 {
			return nil, errors.Errorf("negative count %d for symbol %d", c, i)
		}
		if c > 0 {
			numNonZero++
			total += int64(c)
			if omit < 0 || c > raw[omit] {
				omit = i
			}
		}
	}
	if numNonZero == 0 {
		return []int32{rangeSize}, nil
	}
	if numNonZero > int(rangeSize) {
		return nil, errors.Errorf("%d symbols cannot share a range of %d", numNonZero, rangeSize)
	}

	out := make([]int32, len(raw))
	if numNonZero == 1 {
		out[omit] = rangeSize
		return out, nil
	}

	remaining := rangeSize
	for i, c := range raw {
		if c == 0 || i == omit {
			continue
		}
		v := int32(math.Round(float64(c) * float64(rangeSize) / float64(total)))
		v = roundRepresentable(max(v, 1), shift)
		out[i] = min(v, rangeSize-1)
		remaining -= out[i]
	}
	out[omit] = remaining

	for {
		if out[omit] > 0 {
			if _, ok := OmittedSlot(out, shift); ok {
				return out, nil
			}
		}
		// shrink the largest other count until the omitted slot is positive and encodable
		j := -1
		for i, c := range out {
			if i != omit && c > 1 && (j < 0 || c > out[j]) {
				j = i
			}
		}
		if j < 0 {
			return nil, errors.Errorf("cannot normalise %d symbols to range %d", numNonZero, rangeSize)
		}
		nv := max(floorRepresentable(out[j]-1, shift), 1)
		out[omit] += out[j] - nv
		out[j] = nv
	}
}

func logCountOf(c int32) int {
	if c == 0 {
		return 0
	}
	return util.FloorLog2(uint32(c)) + 1
}

// OmittedSlot picks the slot a general histogram leaves implicit for counts under shift.
// It fails when more than one count is unrepresentable or the omitted slot's log count cannot be signalled.
func OmittedSlot(counts []int32, shift int) (int, bool) {
	omit := -1
	for i, c := range counts {
		if c > 1 && !IsRepresentable(c, shift) {
			if omit >= 0 {
				return -1, false
			}
			omit = i
		}
	}
	if omit < 0 {
		for i, c := range counts {
			if omit < 0 || c > counts[omit] {
				omit = i
			}
		}
	}
	if counts[omit] <= 0 {
		return -1, false
	}
	return omit, omittedLogCount(counts, omit) < 13
}

// omittedLogCount is the log count written for the omitted slot: above every earlier one and no lower than any later one.
func omittedLogCount(counts []int32, omit int) int {
	code := 1
	for i, c := range counts {
		switch {
		case i < omit:
			code = max(code, logCountOf(c)+1)
		case i > omit:
			code = max(code, logCountOf(c))
		}
	}
	return code
}
