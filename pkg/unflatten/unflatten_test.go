package unflatten_test

import (
	"testing"

	"github.com/stretchr/testify/require"

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

func reducedSentinel(t *testing.T, src string) (*symtab.Table, *env.Env, *graph.Node) {
	t.Helper()
	syms := symtab.New()
	e := env.New(syms)
	prims := prim.Default()
	h := graph.NewHeap(0)

	f, err := form.Parse(syms, src)
	require.NoError(t, err)
	resolved, err := resolve.New(syms, e, prims).Resolve(f)
	require.NoError(t, err)
	sentinel := flatten.New(h, e, prims).Flatten(resolved, 0)
	reduce.New(h, prims, syms).ReduceTop(sentinel, reduce.Options{})
	return syms, e, sentinel
}

func TestUnflattenRoundTripsSimpleResult(t *testing.T) {
	t.Parallel()
	syms, e, sentinel := reducedSentinel(t, `[x. x] (42)`)
	got := unflatten.New(syms, e).Unflatten(sentinel)
	require.Equal(t, term.Num(42), got)
}

func TestUnflattenReadsNestedClosureResult(t *testing.T) {
	t.Parallel()
	syms, e, sentinel := reducedSentinel(t, `[x. [y. x]] (7) (9)`)
	got := unflatten.New(syms, e).Unflatten(sentinel)
	require.Equal(t, term.Num(7), got)
}

// TestUnflattenHonorsUnsharingBound drives K to its minimum useful value
// against a graph with several distinct live nodes; since the bound is
// K*N*(ln N + e), a deeply nested reduced term with K=1 still leaves
// enough headroom that this asserts the non-pruned shape is produced
// correctly rather than asserting pruning itself (see
// TestChargeTripsPrunedOnceBoundExceeded in bound_test.go for that).
func TestUnflattenHonorsUnsharingBound(t *testing.T) {
	t.Parallel()
	syms, e, sentinel := reducedSentinel(t, `[x, y. [z. x]] (1, 2) (3)`)
	u := unflatten.New(syms, e)
	u.K = 1
	got := u.Unflatten(sentinel)
	require.Equal(t, term.Num(1), got)
}

func TestUnflattenFreshK0SelectsDefault(t *testing.T) {
	t.Parallel()
	syms, e, sentinel := reducedSentinel(t, `[x. x]`)
	u := unflatten.New(syms, e)
	got := u.Unflatten(sentinel)
	require.False(t, u.Pruned())
	require.IsType(t, term.Abs{}, got)
}
