package enc

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/kpfaulkner/jxl-entropy/entropy"
	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/util"
)

const (
	maxShift      = entropy.ANSLogTabSize + 1
	rleLogCount   = 13
	minRunLength  = 4
	maxRunLength  = 255 + minRunLength
	maxSimpleSym  = 255
	generalMinLen = 3
)

// WriteHistogram writes counts summing to 1<<precisionBits using the smallest of the
// simple, flat and general encodings.
func WriteHistogram(writer *jxlio.BitWriter, counts []int32, precisionBits int) error {
	best, err := encodeHistogram(counts, precisionBits, -1)
	if err != nil {
		return err
	}
	writer.Append(best)
	return nil
}

// histogramHeaderBits returns the size of the smallest encoding of counts. A shift of -1 tries every shift.
func histogramHeaderBits(counts []int32, precisionBits int, shift int) (int, error) {
	best, err := encodeHistogram(counts, precisionBits, shift)
	if err != nil {
		return 0, err
	}
	return int(best.BitsWritten()), nil
}

func encodeHistogram(counts []int32, precisionBits int, onlyShift int) (*jxlio.BitWriter, error) {
	counts = util.TrimTrailingZeros(counts)
	sum := 0
	for i, c := range counts {
		if c < 0 {
			return nil, errors.Errorf("negative count %d for symbol %d", c, i)
		}
		sum += int(c)
	}
	if sum != 1<<precisionBits {
		return nil, errors.Errorf("counts sum to %d, want %d", sum, 1<<precisionBits)
	}

	var best *jxlio.BitWriter
	consider := func(w *jxlio.BitWriter) {
		if w != nil && (best == nil || w.BitsWritten() < best.BitsWritten()) {
			best = w
		}
	}
	consider(writeSimpleHistogram(counts, precisionBits))
	consider(writeFlatHistogram(counts, precisionBits))
	if precisionBits == entropy.ANSLogTabSize {
		for shift := 0; shift <= maxShift; shift++ {
			if onlyShift >= 0 && shift != onlyShift {
				continue
			}
			consider(writeGeneralHistogram(counts, shift))
		}
	}
	if best == nil {
		return nil, errors.Errorf("no encoding for histogram of %d symbols", len(counts))
	}
	return best, nil
}

func writeSimpleHistogram(counts []int32, precisionBits int) *jxlio.BitWriter {
	var nonZero []int
	for i, c := range counts {
		if c != 0 {
			nonZero = append(nonZero, i)
		}
	}
	if len(nonZero) > 2 || nonZero[len(nonZero)-1] > maxSimpleSym {
		return nil
	}
	w := jxlio.NewBitWriter()
	w.WriteBool(true)
	if len(nonZero) == 1 {
		w.WriteBool(false)
		if err := w.WriteU8(nonZero[0]); err != nil {
			return nil
		}
		return w
	}
	w.WriteBool(true)
	for _, s := range nonZero {
		if err := w.WriteU8(s); err != nil {
			return nil
		}
	}
	if err := w.Write(precisionBits, uint64(counts[nonZero[0]])); err != nil {
		return nil
	}
	return w
}

func writeFlatHistogram(counts []int32, precisionBits int) *jxlio.BitWriter {
	if len(counts) > maxSimpleSym+1 {
		return nil
	}
	if !slices.Equal(counts, entropy.CreateFlatHistogram(len(counts), 1<<precisionBits)) {
		return nil
	}
	w := jxlio.NewBitWriter()
	w.WriteBool(false)
	w.WriteBool(true)
	if err := w.WriteU8(len(counts) - 1); err != nil {
		return nil
	}
	return w
}

func writeLogCount(w *jxlio.BitWriter, v int) error {
	code, length := entropy.LogCountCode(v)
	return w.Write(length, uint64(code))
}

func writeGeneralHistogram(counts []int32, shift int) *jxlio.BitWriter {
	length := max(len(counts), generalMinLen)
	if length-generalMinLen > 255 {
		return nil
	}
	padded := make([]int32, length)
	copy(padded, counts)

	omit, ok := OmittedSlot(padded, shift)
	if !ok {
		return nil
	}

	w := jxlio.NewBitWriter()
	w.WriteBool(false)
	w.WriteBool(false)
	s1 := uint32(shift + 1)
	upper := util.FloorLog2(s1)
	for i := 0; i < upper; i++ {
		w.WriteBool(true)
	}
	if upper < 3 {
		w.WriteBool(false)
	}
	if err := w.Write(upper, uint64(s1-1<<upper)); err != nil {
		return nil
	}
	if err := w.WriteU8(length - generalMinLen); err != nil {
		return nil
	}

	inRun := make([]bool, length)
	for i := 0; i < length; {
		if i == omit {
			if err := writeLogCount(w, omittedLogCount(padded, omit)); err != nil {
				return nil
			}
			i++
			continue
		}
		if i > 0 && i != omit+1 {
			run := 0
			for j := i; j < length && j != omit && run < maxRunLength && padded[j] == padded[i-1]; j++ {
				run++
			}
			if run >= minRunLength {
				if err := writeLogCount(w, rleLogCount); err != nil {
					return nil
				}
				if err := w.WriteU8(run - minRunLength); err != nil {
					return nil
				}
				for j := i; j < i+run; j++ {
					inRun[j] = true
				}
				i += run
				continue
			}
		}
		if err := writeLogCount(w, logCountOf(padded[i])); err != nil {
			return nil
		}
		i++
	}

	for i, c := range padded {
		if inRun[i] || i == omit || c <= 1 {
			continue
		}
		code := logCountOf(c)
		bitcount := entropy.PopulationCountPrecision(code-1, shift)
		extra := (c - 1<<(code-1)) >> (code - 1 - bitcount)
		if err := w.Write(bitcount, uint64(extra)); err != nil {
			return nil
		}
	}
	return w
}
