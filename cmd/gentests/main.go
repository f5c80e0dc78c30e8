// Command gentests regenerates the golden reduction fixtures under
// cmd/gentests/generated: one directory per scenario, each holding the
// source term, the expected reduced readback, and a small generated
// _test.go that feeds both through gentests.CheckReduction. Grounded on
// the teacher's own cmd/gentests/main.go generator (formerly emitting
// DeltaNet .nix fixtures); retargeted at the textual MLC syntax and the
// resolve/flatten/reduce/unflatten pipeline. The scenario table itself
// lives in pkg/scenario so cmd/mlc's `gentests` subcommand can reuse it
// without re-running this generator.
package main

import (
	"fmt"
	"os"

	"github.com/vic/mlc/pkg/scenario"
)

func main() {
	baseDir := "cmd/gentests/generated"
	n, err := scenario.Generate(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gentests: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("generated %d scenario fixtures under %s\n", n, baseDir)
}
