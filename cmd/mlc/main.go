// Command mlc is the core evaluator's one-shot driver: read a term in
// the textual syntax of spec.md §6 from a file or stdin, resolve it
// against a fresh global environment, flatten it into the
// explicit-substitution graph, reduce it, and print the readback.
// Grounded on cmd/godnet/main.go's read-parse-reduce-print shape
// (formerly driving a DeltaNet interaction net), rebuilt on cobra
// (pulled from junjiewwang-perf-analysis per SPEC_FULL.md's DOMAIN
// STACK) for real subcommands instead of raw os.Args indexing.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vic/mlc/pkg/env"
	"github.com/vic/mlc/pkg/flatten"
	"github.com/vic/mlc/pkg/form"
	"github.com/vic/mlc/pkg/graph"
	"github.com/vic/mlc/pkg/prim"
	"github.com/vic/mlc/pkg/reduce"
	"github.com/vic/mlc/pkg/resolve"
	"github.com/vic/mlc/pkg/scenario"
	"github.com/vic/mlc/pkg/symtab"
	"github.com/vic/mlc/pkg/term"
	"github.com/vic/mlc/pkg/unflatten"
)

// runOptions collects the flags shared by `run` and `stats`: the
// reduce.Options fields plus the heap capacity passed to graph.NewHeap,
// in place of the teacher's bare Compiler{...} option struct.
type runOptions struct {
	deep    bool
	heapCap uint64
	trace   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mlc",
		Short: "mlc reduces closed terms of the MLC core calculus to a value",
	}
	root.AddCommand(newRunCmd(), newStatsCmd(), newGentestsCmd())
	return root
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "resolve, flatten and reduce a term, printing the readback",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args)
			if err != nil {
				return err
			}
			return runSource(cmd.OutOrStdout(), cmd.ErrOrStderr(), src, *opts, true)
		},
	}
	bindRunFlags(cmd, opts)
	return cmd
}

func newStatsCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "stats [file]",
		Short: "reduce a term and print heap/pressure statistics, not the readback",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args)
			if err != nil {
				return err
			}
			opts.trace = true
			return runSource(cmd.OutOrStdout(), cmd.ErrOrStderr(), src, *opts, false)
		},
	}
	bindRunFlags(cmd, opts)
	return cmd
}

func newGentestsCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "gentests",
		Short: "regenerate the golden reduction fixtures from pkg/scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := scenario.Generate(outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d scenario fixtures under %s\n", n, outDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "cmd/gentests/generated", "fixture output directory")
	return cmd
}

func bindRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().BoolVar(&opts.deep, "deep", false, "recursively reduce inside binder bodies")
	cmd.Flags().Uint64Var(&opts.heapCap, "heap-cap", graph.DefaultCap, "arena node-count ceiling before heap exhaustion panics")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "print heap pressure/threshold stats to stderr after reducing")
}

func readSource(args []string) (string, error) {
	if len(args) == 1 {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("mlc: %w", err)
		}
		return string(b), nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("mlc: reading stdin: %w", err)
	}
	return string(b), nil
}

// runSource wires one pipeline run and prints either the readback or,
// with printTerm=false (stats), only the trace line. A heap-exhaustion
// panic (spec.md §7's HeapExhausted) is the one error the core itself
// raises by panicking rather than returning, so it is recovered here at
// the driver boundary and surfaced as an ordinary process error.
func runSource(stdout, stderr io.Writer, src string, opts runOptions, printTerm bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mlc: %v", r)
		}
	}()

	syms := symtab.New()
	e := env.New(syms)
	prims := prim.Default()
	heap := graph.NewHeap(opts.heapCap)

	f, err := form.Parse(syms, src)
	if err != nil {
		return err
	}
	resolved, err := resolve.New(syms, e, prims).Resolve(f)
	if err != nil {
		return err
	}
	sentinel := flatten.New(heap, e, prims).Flatten(resolved, 0)
	reduce.New(heap, prims, syms).ReduceTop(sentinel, reduce.Options{Deep: opts.deep})
	u := unflatten.New(syms, e)
	result := u.Unflatten(sentinel)

	if printTerm {
		printer := term.Printer{Syms: syms, Consts: e, Prims: prims}
		fmt.Fprintln(stdout, printer.Print(result))
		if u.Pruned() {
			fmt.Fprintln(stderr, "mlc: readback pruned by the unsharing bound")
		}
	}
	if opts.trace {
		fmt.Fprintf(stderr, "heap: in_use=%d cap=%d pressure=%.3f threshold=%.3f\n",
			heap.InUse(), heap.Cap(), heap.Pressure(), heap.Threshold())
	}
	return nil
}
