package entropy

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/options"
)

// DecodeContextMap reads the cluster id of each of numContexts contexts and returns the map with its cluster count.
func DecodeContextMap(reader jxlio.BitReader, numContexts int, opts *options.EntropyOptions) ([]uint8, int, error) {
	contextMap := make([]uint8, numContexts)
	simple, err := reader.ReadBool()
	if err != nil {
		return nil, 0, err
	}

	if simple {
		bitsPerEntry, err := reader.ReadBits(2)
		if err != nil {
			return nil, 0, err
		}
		for i := range contextMap {
			v, err := reader.ReadBits(int(bitsPerEntry))
			if err != nil {
				return nil, 0, err
			}
			contextMap[i] = uint8(v)
		}
	} else {
		useMTF, err := reader.ReadBool()
		if err != nil {
			return nil, 0, err
		}
		if err := readComplexContextMap(reader, contextMap, opts); err != nil {
			return nil, 0, err
		}
		if useMTF {
			InverseMoveToFront(contextMap)
		}
	}

	numClusters, err := VerifyContextMap(contextMap)
	if err != nil {
		return nil, 0, err
	}
	log.Debugf("context map: %d contexts in %d clusters", numContexts, numClusters)
	return contextMap, numClusters, nil
}

func readComplexContextMap(reader jxlio.BitReader, contextMap []uint8, opts *options.EntropyOptions) error {
	code, nestedMap, err := DecodeHistograms(reader, 1, len(contextMap) <= 2, opts)
	if err != nil {
		return errors.Wrap(err, "nested histograms")
	}
	defer code.Release()

	r, err := NewANSSymbolReader(code, reader, 0)
	if err != nil {
		return err
	}
	defer r.Release()

	for i := range contextMap {
		v, err := r.ReadHybridUint(0, reader, nestedMap)
		if err != nil {
			return err
		}
		if v >= MaxClusters {
			return formatError("context map", i, "cluster id %d exceeds %d", v, MaxClusters-1)
		}
		contextMap[i] = uint8(v)
	}
	if !r.CheckFinalState() {
		return formatError("context map", -1, "invalid final ANS state")
	}
	return nil
}

// VerifyContextMap checks that the cluster ids in contextMap are exactly 0..n-1 and returns n.
func VerifyContextMap(contextMap []uint8) (int, error) {
	numClusters := 0
	for _, c := range contextMap {
		numClusters = max(numClusters, int(c)+1)
	}
	seen := make([]bool, numClusters)
	for _, c := range contextMap {
		seen[c] = true
	}
	for i, s := range seen {
		if !s {
			return 0, formatError("context map", i, "cluster %d of %d is never used", i, numClusters)
		}
	}
	return numClusters, nil
}

// InverseMoveToFront undoes MoveToFront in place.
func InverseMoveToFront(v []uint8) {
	var mtf [256]uint8
	for i := range mtf {
		mtf[i] = uint8(i)
	}
	for i, rank := range v {
		index := int(rank)
		value := mtf[index]
		v[i] = value
		if index != 0 {
			copy(mtf[1:index+1], mtf[:index])
			mtf[0] = value
		}
	}
}

// MoveToFront replaces each value by its position in a recency list, returning a new slice.
func MoveToFront(v []uint8) []uint8 {
	var mtf [256]uint8
	for i := range mtf {
		mtf[i] = uint8(i)
	}
	out := make([]uint8, len(v))
	for i, value := range v {
		index := 0
		for mtf[index] != value {
			index++
		}
		out[i] = uint8(index)
		if index != 0 {
			copy(mtf[1:index+1], mtf[:index])
			mtf[0] = value
		}
	}
	return out
}
