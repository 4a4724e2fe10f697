package main

import (
	"fmt"
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/smira/commander"
	"github.com/smira/flag"

	"github.com/kpfaulkner/jxl-entropy/enc"
)

type clusterSummary struct {
	Contexts int     `codec:"contexts"`
	Total    int64   `codec:"total"`
	Cost     float64 `codec:"cost"`
}

type clusterReport struct {
	Mode       string           `codec:"mode"`
	Contexts   int              `codec:"contexts"`
	Clusters   []clusterSummary `codec:"clusters"`
	ContextMap []uint32         `codec:"context_map"`
	// costs are in bits and negative when a histogram cannot be ANS coded
	ClusteredCost float64 `codec:"clustered_cost"`
	SeparateCost  float64 `codec:"separate_cost"`
}

func parseClusterMode(mode string) (enc.ClusterMode, error) {
	switch mode {
	case "fastest":
		return enc.ClusterFastest, nil
	case "fast":
		return enc.ClusterFast, nil
	case "best":
		return enc.ClusterBest, nil
	}
	return 0, errors.Errorf("unknown cluster mode %q, want fastest, fast or best", mode)
}

func finiteCost(cost float64) float64 {
	if math.IsInf(cost, 0) || math.IsNaN(cost) {
		return -1
	}
	return cost
}

func clusterCorpus(corpus *Corpus, params enc.ClusterParams, mode string) (*clusterReport, error) {
	separate := 0.0
	for _, h := range corpus.Histograms {
		separate += enc.PopulationCost(h)
	}

	clusters, symbols, err := enc.ClusterHistograms(params, corpus.histograms())
	if err != nil {
		return nil, err
	}
	report := &clusterReport{
		Mode:         mode,
		Contexts:     len(corpus.Histograms),
		Clusters:     make([]clusterSummary, len(clusters)),
		ContextMap:   symbols,
		SeparateCost: finiteCost(separate),
	}
	clustered := 0.0
	for i, h := range clusters {
		cost := enc.PopulationCost(h.Counts)
		clustered += cost
		report.Clusters[i].Total = h.Total
		report.Clusters[i].Cost = finiteCost(cost)
	}
	for _, s := range symbols {
		report.Clusters[s].Contexts++
	}
	report.ClusteredCost = finiteCost(clustered)
	return report, nil
}

func jxlentropyCluster(cmd *commander.Command, args []string) error {
	if len(args) != 1 {
		cmd.Usage()
		return commander.ErrCommandError
	}

	corpus, err := LoadCorpus(args[0])
	if err != nil {
		return err
	}
	mode := context.flags.Lookup("mode").Value.Get().(string)
	clusterMode, err := parseClusterMode(mode)
	if err != nil {
		return err
	}
	params := enc.NewClusterParams(clusterMode)
	params.MaxHistograms = context.flags.Lookup("max-clusters").Value.Get().(int)
	params.MinDistance = context.flags.Lookup("min-distance").Value.Get().(float64)

	report, err := clusterCorpus(corpus, params, mode)
	if err != nil {
		return fmt.Errorf("unable to cluster: %s", err)
	}

	if context.flags.Lookup("json").Value.Get().(bool) {
		return writeReport(os.Stdout, report)
	}

	fmt.Printf("Contexts: %d\n", report.Contexts)
	fmt.Printf("Clusters: %d (%s)\n", len(report.Clusters), report.Mode)
	for i, c := range report.Clusters {
		fmt.Printf("  %3d: %d contexts, %d samples, %.1f bits\n", i, c.Contexts, c.Total, c.Cost)
	}
	fmt.Printf("Context map: %v\n", report.ContextMap)
	fmt.Printf("Estimated cost: %.1f bits clustered, %.1f bits separate\n", report.ClusteredCost, report.SeparateCost)
	return nil
}

func makeCmdCluster() *commander.Command {
	cmd := &commander.Command{
		Run:       jxlentropyCluster,
		UsageLine: "cluster <corpus>",
		Short:     "cluster the histograms of a corpus",
		Long: `
Cluster reads a corpus of per context histograms (JSON or msgpack,
optionally gzipped) and reports which cluster each context is assigned
to together with the estimated cost of coding every cluster.

ex:
  $ jxlentropy cluster -mode=best corpus.json.gz
`,
		Flag: *flag.NewFlagSet("jxlentropy-cluster", flag.ExitOnError),
	}

	cmd.Flag.String("mode", "fast", "clustering mode: fastest, fast or best")
	cmd.Flag.Int("max-clusters", enc.MaxClusters, "upper bound on the number of clusters")
	cmd.Flag.Float64("min-distance", enc.DefaultMinDistance, "minimum distance in bits for a histogram to start its own cluster")
	cmd.Flag.Bool("json", false, "display report in JSON format")

	return cmd
}
