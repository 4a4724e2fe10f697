package enc

import (
	"github.com/pkg/errors"

	"github.com/kpfaulkner/jxl-entropy/entropy"
	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/util"
)

const maxSimpleEntryBits = 3

// WriteContextMap writes contextMap in whichever of the simple, complex and complex move-to-front
// forms is shortest.
func WriteContextMap(writer *jxlio.BitWriter, contextMap []uint8, numClusters int) error {
	if n, err := entropy.VerifyContextMap(contextMap); err != nil {
		return err
	} else if n != numClusters {
		return errors.Errorf("context map uses %d clusters, expected %d", n, numClusters)
	}

	if numClusters == 1 {
		writer.WriteBool(true)
		return writer.Write(2, 0)
	}

	var best *jxlio.BitWriter
	entryBits := util.CeilLog2(uint32(numClusters))
	if entryBits <= maxSimpleEntryBits {
		w := jxlio.NewBitWriter()
		w.WriteBool(true)
		if err := w.Write(2, uint64(entryBits)); err != nil {
			return err
		}
		for _, c := range contextMap {
			if err := w.Write(entryBits, uint64(c)); err != nil {
				return err
			}
		}
		best = w
	}

	for _, useMTF := range []bool{false, true} {
		w, err := writeComplexContextMap(contextMap, useMTF)
		if err != nil {
			return err
		}
		if best == nil || w.BitsWritten() < best.BitsWritten() {
			best = w
		}
	}
	writer.Append(best)
	return nil
}

func writeComplexContextMap(contextMap []uint8, useMTF bool) (*jxlio.BitWriter, error) {
	values := contextMap
	if useMTF {
		values = entropy.MoveToFront(contextMap)
	}
	tokens := make([]Token, len(values))
	for i, v := range values {
		tokens[i] = NewToken(0, uint32(v))
	}

	w := jxlio.NewBitWriter()
	w.WriteBool(false)
	w.WriteBool(useMTF)
	params := NewEncodingParams()
	params.Cluster.Mode = ClusterFastest
	code, err := BuildAndEncodeHistograms(params, 1, tokens, w)
	if err != nil {
		return nil, errors.Wrap(err, "nested histograms")
	}
	defer code.Release()
	if err := WriteTokens(tokens, code, w); err != nil {
		return nil, err
	}
	return w, nil
}
