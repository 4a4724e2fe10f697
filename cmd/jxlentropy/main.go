package main

import (
	"os"

	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
	"github.com/smira/commander"
	"github.com/smira/flag"

	"github.com/kpfaulkner/jxl-entropy/options"
)

// state shared by all commands
var context struct {
	flags *flag.FlagSet
	opts  *options.EntropyOptions
}

// RootCommand creates the command tree
func RootCommand() *commander.Command {
	cmd := &commander.Command{
		UsageLine: "jxlentropy",
		Short:     "JPEG XL entropy coding toolbox",
		Long: `
jxlentropy clusters histogram corpora, round trips them through the
JPEG XL entropy coder and inspects encoded entropy code headers.`,
		Flag: *flag.NewFlagSet("jxlentropy", flag.ExitOnError),
		Subcommands: []*commander.Command{
			makeCmdCluster(),
			makeCmdRoundtrip(),
			makeCmdInspect(),
		},
	}

	cmd.Flag.Bool("debug", false, "log entropy coder decisions")
	cmd.Flag.String("cpuprofile", "", "write a cpu profile into this directory")
	cmd.Flag.Int("window", options.MaxWindowSize, "LZ77 window size in symbols used when decoding")
	return cmd
}

// Run parses flags and dispatches args to the matching command, returning the process exit code
func Run(cmd *commander.Command, cmdArgs []string) int {
	flags, args, err := cmd.ParseFlags(cmdArgs)
	if err != nil {
		log.Errorf("%v", err)
		return 2
	}
	context.flags = flags
	context.opts = options.NewEntropyOptions(&options.EntropyOptions{
		Debug:      flags.Lookup("debug").Value.Get().(bool),
		WindowSize: flags.Lookup("window").Value.Get().(int),
	})
	if context.opts.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if dir := flags.Lookup("cpuprofile").Value.Get().(string); dir != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.Quiet).Stop()
	}

	if err := cmd.Dispatch(args); err != nil {
		log.Errorf("%v", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(Run(RootCommand(), os.Args[1:]))
}
