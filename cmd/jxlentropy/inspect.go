package main

import (
	"fmt"
	"os"

	"github.com/smira/commander"
	"github.com/smira/flag"

	"github.com/kpfaulkner/jxl-entropy/entropy"
	"github.com/kpfaulkner/jxl-entropy/jxlio"
	"github.com/kpfaulkner/jxl-entropy/options"
)

type lz77Summary struct {
	Enabled         bool   `codec:"enabled"`
	MinSymbol       uint32 `codec:"min_symbol,omitempty"`
	MinLength       uint32 `codec:"min_length,omitempty"`
	DistanceContext int    `codec:"distance_context,omitempty"`
	DistanceCluster int    `codec:"distance_cluster,omitempty"`
}

type clusterHeader struct {
	Config     [3]uint32 `codec:"config"`
	Symbols    int       `codec:"symbols"`
	Degenerate int       `codec:"degenerate"`
}

type inspectReport struct {
	Contexts     int             `codec:"contexts"`
	ContextMap   []uint8         `codec:"context_map"`
	PrefixCode   bool            `codec:"prefix_code"`
	LogAlphaSize int             `codec:"log_alpha_size"`
	LZ77         lz77Summary     `codec:"lz77"`
	Clusters     []clusterHeader `codec:"clusters"`
	HeaderBits   uint64          `codec:"header_bits"`
	Values       []uint32        `codec:"values,omitempty"`
	FinalState   bool            `codec:"final_state,omitempty"`
}

func usedSymbols(code *entropy.ANSCode, cluster int) int {
	n := 0
	if code.UsePrefixCode {
		for _, l := range code.PrefixCode(cluster).Lengths() {
			if l > 0 {
				n++
			}
		}
		return max(n, 1)
	}
	for _, c := range code.Histograms[cluster] {
		if c > 0 {
			n++
		}
	}
	return n
}

// inspectStream decodes the entropy code header at the start of data and, when numValues > 0,
// that many values of context ctx.
func inspectStream(data []byte, numContexts int, ctx int, numValues int, opts *options.EntropyOptions) (*inspectReport, error) {
	reader := jxlio.NewBitreaderFromBytes(data)
	code, contextMap, err := entropy.DecodeHistograms(reader, numContexts, false, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to decode header: %s", err)
	}
	defer code.Release()

	report := &inspectReport{
		Contexts:     len(contextMap),
		ContextMap:   contextMap,
		PrefixCode:   code.UsePrefixCode,
		LogAlphaSize: code.LogAlphaSize,
		LZ77: lz77Summary{
			Enabled:         code.LZ77.Enabled,
			MinSymbol:       code.LZ77.MinSymbol,
			MinLength:       code.LZ77.MinLength,
			DistanceContext: code.LZ77.DistanceContext,
			DistanceCluster: code.LZ77.DistanceCluster,
		},
		Clusters:   make([]clusterHeader, code.NumClusters()),
		HeaderBits: reader.BitsRead(),
	}
	for c := range report.Clusters {
		cfg := code.UintConfigs[c]
		report.Clusters[c] = clusterHeader{
			Config:     [3]uint32{cfg.SplitExponent, cfg.MsbInToken, cfg.LsbInToken},
			Symbols:    usedSymbols(code, c),
			Degenerate: code.DegenerateSymbols[c],
		}
	}
	if numValues <= 0 {
		return report, nil
	}

	r, err := entropy.NewANSSymbolReader(code, reader, 0)
	if err != nil {
		return nil, err
	}
	defer r.Release()
	for i := 0; i < numValues; i++ {
		v, err := r.ReadHybridUint(ctx, reader, contextMap)
		if err != nil {
			return nil, fmt.Errorf("unable to decode value %d: %s", i, err)
		}
		report.Values = append(report.Values, v)
	}
	report.FinalState = r.CheckFinalState()
	return report, nil
}

func jxlentropyInspect(cmd *commander.Command, args []string) error {
	if len(args) != 1 {
		cmd.Usage()
		return commander.ErrCommandError
	}

	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	report, err := inspectStream(data,
		context.flags.Lookup("contexts").Value.Get().(int),
		context.flags.Lookup("context").Value.Get().(int),
		context.flags.Lookup("values").Value.Get().(int),
		context.opts)
	if err != nil {
		return err
	}

	if context.flags.Lookup("json").Value.Get().(bool) {
		return writeReport(os.Stdout, report)
	}
	fmt.Printf("Header: %d bits\n", report.HeaderBits)
	fmt.Printf("Contexts: %d\n", report.Contexts)
	fmt.Printf("Context map: %v\n", report.ContextMap)
	if report.PrefixCode {
		fmt.Printf("Coding: prefix\n")
	} else {
		fmt.Printf("Coding: ANS, log alphabet %d\n", report.LogAlphaSize)
	}
	if report.LZ77.Enabled {
		fmt.Printf("LZ77: min symbol %d, min length %d, distance cluster %d\n",
			report.LZ77.MinSymbol, report.LZ77.MinLength, report.LZ77.DistanceCluster)
	}
	for i, c := range report.Clusters {
		fmt.Printf("  %3d: config %v, %d symbols", i, c.Config, c.Symbols)
		if c.Degenerate >= 0 {
			fmt.Printf(", always %d", c.Degenerate)
		}
		fmt.Printf("\n")
	}
	if len(report.Values) > 0 {
		fmt.Printf("Values: %v\n", report.Values)
		fmt.Printf("Final state reached: %v\n", report.FinalState)
	}
	return nil
}

func makeCmdInspect() *commander.Command {
	cmd := &commander.Command{
		Run:       jxlentropyInspect,
		UsageLine: "inspect <file>",
		Short:     "show the entropy code header of an encoded stream",
		Long: `
Inspect decodes the entropy code header at the start of a raw file
(optionally gzipped) and shows the LZ77 parameters, context map and per
cluster configuration. With -values it also decodes that many values.

ex:
  $ jxlentropy inspect -contexts=3 -values=10 stream.bin
`,
		Flag: *flag.NewFlagSet("jxlentropy-inspect", flag.ExitOnError),
	}

	cmd.Flag.Int("contexts", 1, "number of contexts the header was written for")
	cmd.Flag.Int("context", 0, "context to decode values from")
	cmd.Flag.Int("values", 0, "number of values to decode after the header")
	cmd.Flag.Bool("json", false, "display report in JSON format")

	return cmd
}
