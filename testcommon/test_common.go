package testcommon

import (
	"github.com/kpfaulkner/jxl-entropy/jxlio"
)

// ReaderFor returns a reader over everything written to bw so far.
func ReaderFor(bw *jxlio.BitWriter) *jxlio.Bitreader {
	return jxlio.NewBitreaderFromBytes(bw.Bytes())
}
