// scenario-lint validates a relay scenario file and prints a summary of
// what it would load.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/signalsfoundry/platform-relay/mobility"
	"github.com/signalsfoundry/platform-relay/registry"
	"github.com/signalsfoundry/platform-relay/relay"
	"github.com/signalsfoundry/platform-relay/scenario"
	"github.com/signalsfoundry/platform-relay/signalbus"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s <scenario file>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	failed := false
	for _, path := range flag.Args() {
		if err := lint(path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// lint validates the file against the schema, then dry-runs the load into
// a throwaway registry to catch duplicate IDs and dangling references.
func lint(path string) error {
	if err := scenario.ValidateFile(path); err != nil {
		return err
	}

	reg := registry.NewRegistry()
	ctrl := relay.NewController(mobility.NewEvaluator(reg), signalbus.NewEngine(), reg)
	summary, err := scenario.LoadFile(reg, ctrl, path)
	if err != nil {
		return err
	}

	fmt.Printf("%s: ok (%q: %d platforms, %d surfaces, %d nodes, %d links)\n",
		path, summary.Name,
		len(summary.PlatformIDs), len(summary.SurfaceIDs),
		len(summary.NodeIDs), len(summary.LinkIDs),
	)
	return nil
}
