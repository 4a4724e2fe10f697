package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/smira/commander"
	"github.com/smira/flag"

	"github.com/kpfaulkner/jxl-entropy/enc"
	"github.com/kpfaulkner/jxl-entropy/entropy"
	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/options"
)

// maxCopyLength keeps LZ77 length tokens inside the 8 bit ANS alphabet.
const maxCopyLength = 1 << 20

type sample struct {
	context int
	value   uint32
}

type roundTripReport struct {
	Contexts   int    `codec:"contexts"`
	Clusters   int    `codec:"clusters"`
	Samples    int    `codec:"samples"`
	Tokens     int    `codec:"tokens"`
	HeaderBits uint64 `codec:"header_bits"`
	TotalBits  uint64 `codec:"total_bits"`
	PrefixCode bool   `codec:"prefix_code"`
	LZ77       bool   `codec:"lz77"`
}

// synthesise lays out every context's samples one after the other, symbol by symbol,
// and turns runs of equal values into distance 1 back references when LZ77 is enabled.
func synthesise(corpus *Corpus, lz77 entropy.LZ77Params) ([]enc.Token, []sample, error) {
	var samples []sample
	for ctx, h := range corpus.Histograms {
		for s, c := range h {
			for i := int32(0); i < c; i++ {
				samples = append(samples, sample{context: ctx, value: uint32(s)})
			}
		}
	}

	numContexts := len(corpus.Histograms)
	tokens := make([]enc.Token, 0, len(samples))
	for i := 0; i < len(samples); {
		s := samples[i]
		tokens = append(tokens, enc.NewToken(s.context, s.value))
		i++
		if !lz77.Enabled {
			continue
		}
		run := 0
		for i+run < len(samples) && run < maxCopyLength && samples[i+run].value == s.value {
			run++
		}
		if run < int(lz77.MinLength) {
			continue
		}
		copyTokens, err := enc.LZ77Copy(s.context, numContexts, uint32(run), 1, 0, lz77)
		if err != nil {
			return nil, nil, err
		}
		tokens = append(tokens, copyTokens...)
		i += run
	}
	return tokens, samples, nil
}

func encodeCorpus(params enc.EncodingParams, numContexts int, tokens []enc.Token) ([]byte, *roundTripReport, error) {
	w := jxlio.NewBitWriter()
	code, err := enc.BuildAndEncodeHistograms(params, numContexts, tokens, w)
	if err != nil {
		return nil, nil, errors.Wrap(err, "encoding histograms")
	}
	defer code.Release()
	report := &roundTripReport{
		Contexts:   numContexts,
		Clusters:   len(code.Clusters),
		Tokens:     len(tokens),
		HeaderBits: w.BitsWritten(),
		PrefixCode: params.UsePrefixCode,
		LZ77:       params.LZ77.Enabled,
	}
	if err := enc.WriteTokens(tokens, code, w); err != nil {
		return nil, nil, errors.Wrap(err, "encoding tokens")
	}
	report.TotalBits = w.BitsWritten()
	return w.Bytes(), report, nil
}

// verifyStream decodes data and checks it yields samples in order.
func verifyStream(data []byte, numContexts int, samples []sample, opts *options.EntropyOptions) error {
	reader := jxlio.NewBitreaderFromBytes(data)
	code, contextMap, err := entropy.DecodeHistograms(reader, numContexts, false, opts)
	if err != nil {
		return errors.Wrap(err, "decoding histograms")
	}
	defer code.Release()
	r, err := entropy.NewANSSymbolReader(code, reader, 0)
	if err != nil {
		return err
	}
	defer r.Release()

	for i, s := range samples {
		v, err := r.ReadHybridUint(s.context, reader, contextMap)
		if err != nil {
			return errors.Wrapf(err, "decoding sample %d", i)
		}
		if v != s.value {
			return errors.Errorf("sample %d in context %d: decoded %d, want %d", i, s.context, v, s.value)
		}
	}
	if !r.CheckFinalState() {
		return errors.New("stream did not end in the final ANS state")
	}
	return nil
}

func roundTrip(corpus *Corpus, params enc.EncodingParams, opts *options.EntropyOptions) ([]byte, *roundTripReport, error) {
	tokens, samples, err := synthesise(corpus, params.LZ77)
	if err != nil {
		return nil, nil, err
	}
	numContexts := len(corpus.Histograms)
	data, report, err := encodeCorpus(params, numContexts, tokens)
	if err != nil {
		return nil, nil, err
	}
	report.Samples = len(samples)
	if err := verifyStream(data, numContexts, samples, opts); err != nil {
		return nil, nil, errors.Wrap(err, "round trip mismatch")
	}
	log.Debugf("round trip of %d samples ok, %d bits", len(samples), report.TotalBits)
	return data, report, nil
}

func jxlentropyRoundtrip(cmd *commander.Command, args []string) error {
	if len(args) != 1 {
		cmd.Usage()
		return commander.ErrCommandError
	}

	corpus, err := LoadCorpus(args[0])
	if err != nil {
		return err
	}
	clusterMode, err := parseClusterMode(context.flags.Lookup("mode").Value.Get().(string))
	if err != nil {
		return err
	}
	params := enc.NewEncodingParams()
	params.Cluster = enc.NewClusterParams(clusterMode)
	params.UsePrefixCode = context.flags.Lookup("prefix").Value.Get().(bool)
	if context.flags.Lookup("lz77").Value.Get().(bool) {
		params.LZ77 = entropy.LZ77Params{Enabled: true, MinSymbol: 224, MinLength: 3}
	}

	data, report, err := roundTrip(corpus, params, context.opts)
	if err != nil {
		return err
	}

	if out := context.flags.Lookup("out").Value.Get().(string); out != "" {
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("unable to write stream: %s", err)
		}
	}

	if context.flags.Lookup("json").Value.Get().(bool) {
		return writeReport(os.Stdout, report)
	}
	fmt.Printf("Contexts: %d in %d clusters\n", report.Contexts, report.Clusters)
	fmt.Printf("Samples: %d as %d tokens\n", report.Samples, report.Tokens)
	fmt.Printf("Header: %d bits\n", report.HeaderBits)
	fmt.Printf("Total: %d bits", report.TotalBits)
	if report.Samples > 0 {
		fmt.Printf(" (%.3f bits per sample)", float64(report.TotalBits)/float64(report.Samples))
	}
	fmt.Printf("\nRound trip OK\n")
	return nil
}

func makeCmdRoundtrip() *commander.Command {
	cmd := &commander.Command{
		Run:       jxlentropyRoundtrip,
		UsageLine: "roundtrip <corpus>",
		Short:     "encode and decode a corpus",
		Long: `
Roundtrip turns every histogram of the corpus into the samples of one
context, encodes them (clustering, context map, histograms and symbols),
decodes the result and checks that every sample comes back unchanged.

ex:
  $ jxlentropy roundtrip -lz77 -out=stream.bin corpus.json
`,
		Flag: *flag.NewFlagSet("jxlentropy-roundtrip", flag.ExitOnError),
	}

	cmd.Flag.String("mode", "fast", "clustering mode: fastest, fast or best")
	cmd.Flag.Bool("prefix", false, "use prefix codes instead of ANS")
	cmd.Flag.Bool("lz77", false, "code runs of equal values as LZ77 back references")
	cmd.Flag.String("out", "", "write the encoded stream to this file")
	cmd.Flag.Bool("json", false, "display report in JSON format")

	return cmd
}
