package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/pkg/profile"
	"github.com/smira/flag"
	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/jxl-entropy/enc"
	"github.com/kpfaulkner/jxl-entropy/entropy"
	"github.com/kpfaulkner/jxl-entropy/jxlio"
)

// tokens draws values with a geometric-ish distribution whose scale depends on the context
func tokens(rng *rand.Rand, numContexts int, count int) []enc.Token {
	out := make([]enc.Token, count)
	for i := range out {
		ctx := rng.Intn(numContexts)
		scale := float64(int(1) << (ctx % 12))
		out[i] = enc.NewToken(ctx, uint32(rng.ExpFloat64()*scale))
	}
	return out
}

func main() {
	count := flag.Int("tokens", 1_000_000, "number of tokens to code")
	numContexts := flag.Int("contexts", 32, "number of contexts")
	rounds := flag.Int("rounds", 10, "decode rounds")
	prefix := flag.Bool("prefix", false, "use prefix codes")
	flag.Parse()

	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."))
	defer p.Stop()

	rng := rand.New(rand.NewSource(1))
	toks := tokens(rng, *numContexts, *count)

	params := enc.NewEncodingParams()
	params.UsePrefixCode = *prefix
	start := time.Now()
	w := jxlio.NewBitWriter()
	code, err := enc.BuildAndEncodeHistograms(params, *numContexts, toks, w)
	if err != nil {
		log.Fatalf("encoding histograms: %v", err)
	}
	if err := enc.WriteTokens(toks, code, w); err != nil {
		log.Fatalf("encoding tokens: %v", err)
	}
	code.Release()
	data := w.Bytes()
	fmt.Printf("encoding took %d ms, %d bytes\n", time.Since(start).Milliseconds(), len(data))

	total := time.Now()
	for round := 0; round < *rounds; round++ {
		start := time.Now()
		reader := jxlio.NewBitreaderFromBytes(data)
		decoded, contextMap, err := entropy.DecodeHistograms(reader, *numContexts, false, nil)
		if err != nil {
			log.Fatalf("decoding histograms: %v", err)
		}
		r, err := entropy.NewANSSymbolReader(decoded, reader, 0)
		if err != nil {
			log.Fatalf("creating reader: %v", err)
		}
		for i, t := range toks {
			v, err := r.ReadHybridUint(t.Context, reader, contextMap)
			if err != nil {
				log.Fatalf("decoding token %d: %v", i, err)
			}
			if v != t.Value {
				log.Fatalf("token %d decoded as %d, want %d", i, v, t.Value)
			}
		}
		if !r.CheckFinalState() {
			log.Fatalf("stream did not end in the final state")
		}
		r.Release()
		decoded.Release()
		fmt.Printf("decoding took %d ms\n", time.Since(start).Milliseconds())
	}
	fmt.Printf("decoding total time %d ms\n", time.Since(total).Milliseconds())
}
