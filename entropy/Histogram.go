package entropy

import (
	"github.com/kpfaulkner/jxl-entropy/jxlio"
)

const (
	ANSLogTabSize = 12
	ANSTabSize    = 1 << ANSLogTabSize

	// log count 13 in the general encoding escapes a run of repeated counts
	rleLogCount = 13
	maxShift    = ANSLogTabSize + 1
)

// distPrefixTable decodes the log count of each slot of a general histogram, indexed by the next 7 bits.
var distPrefixTable = NewVLCTable(7, [][]int{{10, 3}, {12, 7}, {7, 3}, {3, 4}, {6, 3}, {8, 3}, {9, 3}, {5, 4}, {10, 3}, {4, 4}, {7, 3}, {1, 4}, {6, 3}, {8, 3}, {9, 3}, {2, 4}, {10, 3}, {0, 5}, {7, 3}, {3, 4}, {6, 3}, {8, 3}, {9, 3}, {5, 4}, {10, 3}, {4, 4}, {7, 3}, {1, 4}, {6, 3}, {8, 3}, {9, 3}, {2, 4}, {10, 3}, {11, 6}, {7, 3}, {3, 4}, {6, 3}, {8, 3}, {9, 3}, {5, 4}, {10, 3}, {4, 4}, {7, 3}, {1, 4}, {6, 3}, {8, 3}, {9, 3}, {2, 4}, {10, 3}, {0, 5}, {7, 3}, {3, 4}, {6, 3}, {8, 3}, {9, 3}, {5, 4}, {10, 3}, {4, 4}, {7, 3}, {1, 4}, {6, 3}, {8, 3}, {9, 3}, {2, 4}, {10, 3}, {13, 7}, {7, 3}, {3, 4}, {6, 3}, {8, 3}, {9, 3}, {5, 4}, {10, 3}, {4, 4}, {7, 3}, {1, 4}, {6, 3}, {8, 3}, {9, 3}, {2, 4}, {10, 3}, {0, 5}, {7, 3}, {3, 4}, {6, 3}, {8, 3}, {9, 3}, {5, 4}, {10, 3}, {4, 4}, {7, 3}, {1, 4}, {6, 3}, {8, 3}, {9, 3}, {2, 4}, {10, 3}, {11, 6}, {7, 3}, {3, 4}, {6, 3}, {8, 3}, {9, 3}, {5, 4}, {10, 3}, {4, 4}, {7, 3}, {1, 4}, {6, 3}, {8, 3}, {9, 3}, {2, 4}, {10, 3}, {0, 5}, {7, 3}, {3, 4}, {6, 3}, {8, 3}, {9, 3}, {5, 4}, {10, 3}, {4, 4}, {7, 3}, {1, 4}, {6, 3}, {8, 3}, {9, 3}, {2, 4}})

// LogCountCode returns the LSB first code and length used to store log count v of a general histogram.
func LogCountCode(v int) (uint32, int) {
	code, length, _ := distPrefixTable.Code(v)
	return code, length
}

// PopulationCountPrecision is the number of explicit mantissa bits stored for a count in log class logCount
// (the count lies in [1<<logCount, 2<<logCount)) under the given shift.
func PopulationCountPrecision(logCount int, shift int) int {
	r := min(logCount, shift-((ANSLogTabSize-logCount)>>1))
	if r < 0 {
		return 0
	}
	return r
}

// CreateFlatHistogram spreads total as evenly as possible over alphabetSize slots, giving the remainder to the first slots.
func CreateFlatHistogram(alphabetSize int, total int) []int32 {
	counts := make([]int32, alphabetSize)
	for i := range counts {
		counts[i] = int32(total / alphabetSize)
	}
	for i := 0; i < total%alphabetSize; i++ {
		counts[i]++
	}
	return counts
}

// DecodeHistogram reads one normalised histogram whose counts sum to 1<<precisionBits.
// The returned slice may carry trailing zeros.
func DecodeHistogram(reader jxlio.BitReader, precisionBits int) ([]int32, error) {
	total := 1 << precisionBits

	simple, err := reader.ReadBool()
	if err != nil {
		return nil, err
	}
	if simple {
		return decodeSimpleHistogram(reader, precisionBits)
	}

	flat, err := reader.ReadBool()
	if err != nil {
		return nil, err
	}
	if flat {
		alphabetSize, err := reader.ReadU8()
		if err != nil {
			return nil, err
		}
		alphabetSize++
		if alphabetSize > total {
			return nil, formatError("histogram", -1, "flat alphabet size %d exceeds range %d", alphabetSize, total)
		}
		return CreateFlatHistogram(alphabetSize, total), nil
	}

	return decodeGeneralHistogram(reader, total)
}

func decodeSimpleHistogram(reader jxlio.BitReader, precisionBits int) ([]int32, error) {
	two, err := reader.ReadBool()
	if err != nil {
		return nil, err
	}
	if !two {
		sym, err := reader.ReadU8()
		if err != nil {
			return nil, err
		}
		counts := make([]int32, sym+1)
		counts[sym] = 1 << precisionBits
		return counts, nil
	}

	s0, err := reader.ReadU8()
	if err != nil {
		return nil, err
	}
	s1, err := reader.ReadU8()
	if err != nil {
		return nil, err
	}
	if s0 == s1 {
		return nil, formatError("histogram", s0, "simple histogram repeats symbol")
	}
	c0, err := reader.ReadBits(precisionBits)
	if err != nil {
		return nil, err
	}
	counts := make([]int32, max(s0, s1)+1)
	counts[s0] = int32(c0)
	counts[s1] = int32(1<<precisionBits - c0)
	return counts, nil
}

func decodeGeneralHistogram(reader jxlio.BitReader, total int) ([]int32, error) {
	var l int
	for l = 0; l < 3; l++ {
		b, err := reader.ReadBool()
		if err != nil {
			return nil, err
		}
		if !b {
			break
		}
	}
	shiftBits, err := reader.ReadBits(l)
	if err != nil {
		return nil, err
	}
	shift := int(shiftBits|1<<l) - 1
	if shift > maxShift {
		return nil, formatError("histogram", -1, "shift %d exceeds %d", shift, maxShift)
	}

	length, err := reader.ReadU8()
	if err != nil {
		return nil, err
	}
	length += 3

	counts := make([]int32, length)
	logCounts := make([]int, length)
	same := make([]int, length)
	omitLog := -1
	omitPos := -1
	for i := 0; i < length; i++ {
		logCounts[i], err = distPrefixTable.GetVLC(reader)
		if err != nil {
			return nil, err
		}
		if logCounts[i] == rleLogCount {
			rle, err := reader.ReadU8()
			if err != nil {
				return nil, err
			}
			if i+rle+4 > length {
				return nil, formatError("histogram", i, "run of %d overruns %d slots", rle+4, length)
			}
			same[i] = rle + 5
			i += rle + 3
			continue
		}
		if logCounts[i] > omitLog {
			omitLog = logCounts[i]
			omitPos = i
		}
	}
	if omitPos < 0 {
		return nil, formatError("histogram", -1, "no slot to omit")
	}
	if omitPos+1 < length && logCounts[omitPos+1] == rleLogCount {
		return nil, formatError("histogram", omitPos, "run starts right after omitted slot")
	}

	totalCount := 0
	numSame := 0
	var prev int32
	for i := 0; i < length; i++ {
		if same[i] != 0 {
			numSame = same[i] - 1
			prev = 0
			if i > 0 {
				prev = counts[i-1]
			}
		}
		if numSame > 0 {
			counts[i] = prev
			numSame--
		} else {
			code := logCounts[i]
			if i == omitPos || code == 0 {
				continue
			}
			if code == 1 {
				counts[i] = 1
			} else {
				bitcount := PopulationCountPrecision(code-1, shift)
				extra, err := reader.ReadBits(bitcount)
				if err != nil {
					return nil, err
				}
				counts[i] = int32(1<<(code-1) + extra<<(code-1-bitcount))
			}
		}
		totalCount += int(counts[i])
	}
	if totalCount >= total {
		return nil, formatError("histogram", omitPos, "counts sum to %d, leaving nothing for omitted slot", totalCount)
	}
	counts[omitPos] = int32(total - totalCount)
	return counts, nil
}
