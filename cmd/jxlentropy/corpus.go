package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"

	"github.com/kpfaulkner/jxl-entropy/enc"
)

// Corpus holds raw symbol counts, one histogram per context.
type Corpus struct {
	Histograms [][]int32 `codec:"histograms"`
}

// readInput returns the contents of path, gunzipped when it ends in .gz.
func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "opening gzip stream %s", path)
	}
	defer zr.Close()
	if data, err = io.ReadAll(zr); err != nil {
		return nil, errors.Wrapf(err, "reading gzip stream %s", path)
	}
	return data, nil
}

// handleFor picks msgpack for .msgpack files and JSON otherwise.
func handleFor(path string) codec.Handle {
	switch filepath.Ext(strings.TrimSuffix(path, ".gz")) {
	case ".msgpack", ".mp":
		return &codec.MsgpackHandle{}
	}
	return &codec.JsonHandle{}
}

// LoadCorpus reads a JSON or msgpack corpus, optionally gzipped.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	corpus := &Corpus{}
	if err := codec.NewDecoderBytes(data, handleFor(path)).Decode(corpus); err != nil {
		return nil, errors.Wrapf(err, "decoding corpus %s", path)
	}
	if len(corpus.Histograms) == 0 {
		return nil, errors.Errorf("corpus %s has no histograms", path)
	}
	for i, h := range corpus.Histograms {
		for s, c := range h {
			if c < 0 {
				return nil, errors.Errorf("corpus %s: histogram %d has negative count %d for symbol %d", path, i, c, s)
			}
		}
	}
	return corpus, nil
}

// SaveCorpus writes corpus in the format implied by path.
func SaveCorpus(path string, corpus *Corpus) error {
	var buf bytes.Buffer
	if err := codec.NewEncoder(&buf, handleFor(path)).Encode(corpus); err != nil {
		return errors.Wrap(err, "encoding corpus")
	}
	data := buf.Bytes()
	if strings.HasSuffix(path, ".gz") {
		var zbuf bytes.Buffer
		zw := gzip.NewWriter(&zbuf)
		if _, err := zw.Write(data); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		data = zbuf.Bytes()
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Corpus) histograms() []*enc.Histogram {
	out := make([]*enc.Histogram, len(c.Histograms))
	for i, h := range c.Histograms {
		out[i] = enc.HistogramFromCounts(h)
	}
	return out
}

// writeReport prints v as indented JSON.
func writeReport(w io.Writer, v interface{}) error {
	handle := &codec.JsonHandle{}
	handle.Indent = 2
	if err := codec.NewEncoder(w, handle).Encode(v); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
