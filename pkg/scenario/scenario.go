// Package scenario holds the golden reduction scenarios from spec.md
// §8's testable-properties table (S1-S8) plus a few closed extras, and
// the logic to either run them in-process or regenerate the on-disk
// fixtures cmd/gentests/generated embeds. Shared between cmd/gentests
// (the fixture generator) and cmd/mlc's `gentests` subcommand (which
// writes the same fixtures) so the scenario list has one source of
// truth, matching the teacher's own preference for a single
// TestCase-table driving whatever it then does with it.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vic/mlc/pkg/env"
	"github.com/vic/mlc/pkg/flatten"
	"github.com/vic/mlc/pkg/form"
	"github.com/vic/mlc/pkg/graph"
	"github.com/vic/mlc/pkg/prim"
	"github.com/vic/mlc/pkg/reduce"
	"github.com/vic/mlc/pkg/resolve"
	"github.com/vic/mlc/pkg/symtab"
	"github.com/vic/mlc/pkg/term"
	"github.com/vic/mlc/pkg/unflatten"
)

// Case is one golden scenario: a closed source term and its expected
// fully-reduced readback, both in the textual syntax of spec.md §6.
type Case struct {
	Name   string
	Input  string
	Output string
}

// All mirrors spec.md §8's S1-S8 table plus a few extra closed terms
// exercising erasure, nested lets, and branch selection.
var All = []Case{
	{"s1_identity", `[x. x] (42)`, `42`},
	{"s2_first_of_two", `[x, y. x] (1, 2)`, `1`},
	{"s3_nested_closure", `[x. [y. x]] (7) (9)`, `7`},
	{"s4_factorial", `[f! n. [n = 0 ? 1 | n * f(n - 1)]] (5)`, `120`},
	{"s5_let_application", `let { p := [a, b. a + b] } p(3, 4)`, `7`},
	{"s6_test_true_branch", `[[1 > 0] ? 1 | 2]`, `1`},
	{"s6b_test_false_branch", `[[1 > 2] ? 1 | 2]`, `2`},
	{"s7_church_two_applications", `[f, x. f(f(x))] ([y. y + 1], 0)`, `2`},
	{"s8_shared_argument", `[x. x + x] (10 * 10)`, `200`},
	{"erase_unused_second_arg", `[x, y. x] (1, [z. z](2))`, `1`},
	{"erase_unused_first_arg", `[x, y. y] ([z. z](1), 2)`, `2`},
	{"let_nested_shadow", `let { x := 1 } let { y := 2 } x + y`, `3`},
}

// Run evaluates c.Input through a fresh resolve/flatten/reduce/unflatten
// pipeline and returns the printed readback (got) alongside the printed
// form of c.Output after parsing and resolving it (want), so a caller
// comparing the two compares normalized terms rather than raw source
// text. It does not compare them itself.
func Run(c Case) (got string, want string, err error) {
	syms := symtab.New()
	e := env.New(syms)
	prims := prim.Default()
	heap := graph.NewHeap(0)

	inForm, err := form.Parse(syms, c.Input)
	if err != nil {
		return "", "", fmt.Errorf("parse input: %w", err)
	}
	resolved, err := resolve.New(syms, e, prims).Resolve(inForm)
	if err != nil {
		return "", "", fmt.Errorf("resolve input: %w", err)
	}
	sentinel := flatten.New(heap, e, prims).Flatten(resolved, 0)
	reduce.New(heap, prims, syms).ReduceTop(sentinel, reduce.Options{})
	gotTerm := unflatten.New(syms, e).Unflatten(sentinel)

	wantForm, err := form.Parse(syms, c.Output)
	if err != nil {
		return "", "", fmt.Errorf("parse expected output: %w", err)
	}
	wantTerm, err := resolve.New(syms, e, prims).Resolve(wantForm)
	if err != nil {
		return "", "", fmt.Errorf("resolve expected output: %w", err)
	}

	printer := term.Printer{Syms: syms, Consts: e, Prims: prims}
	return printer.Print(gotTerm), printer.Print(wantTerm), nil
}

const fixtureTemplate = `package gentests

import _ "embed"
import "testing"
import "github.com/vic/mlc/cmd/gentests/helper"

//go:embed input.mlc
var input string

//go:embed output.mlc
var output string

func Test_%s_Reduction(t *testing.T) {
	gentests.CheckReduction(t, "%s", input, output)
}
`

// Generate (re)writes one fixture directory per scenario under baseDir:
// input.mlc, output.mlc, and a generated reduction_test.go that embeds
// both and calls gentests.CheckReduction. Returns the number of
// scenarios written.
func Generate(baseDir string) (int, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return 0, err
	}
	for _, c := range All {
		dir := filepath.Join(baseDir, c.Name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("%s: %w", c.Name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, "input.mlc"), []byte(c.Input), 0o644); err != nil {
			return 0, fmt.Errorf("%s: %w", c.Name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, "output.mlc"), []byte(c.Output), 0o644); err != nil {
			return 0, fmt.Errorf("%s: %w", c.Name, err)
		}
		testGo := fmt.Sprintf(fixtureTemplate, c.Name, c.Name)
		if err := os.WriteFile(filepath.Join(dir, "reduction_test.go"), []byte(testGo), 0o644); err != nil {
			return 0, fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	return len(All), nil
}
