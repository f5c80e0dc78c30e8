// Package flatten lowers a tree term.Term into the doubly-linked chain
// of graph.Node slots the reducer operates on. Each constructor gets its
// own node, appended to the chain ahead of the children it hoists, so
// that right-to-left traversal reaches hoisted children before the node
// that references them. Modeled on pkg/lambda/translate.go's buildTerm
// recursive tree walk, repurposed from interaction-net wiring to
// explicit-substitution chain construction.
package flatten

import (
	"github.com/vic/mlc/pkg/env"
	"github.com/vic/mlc/pkg/graph"
	"github.com/vic/mlc/pkg/prim"
	"github.com/vic/mlc/pkg/term"
)

// Flattener lowers terms against a fixed environment and primitive table.
type Flattener struct {
	Heap  *graph.Heap
	Env   *env.Env
	Prims *prim.Registry
}

// New returns a Flattener.
func New(h *graph.Heap, e *env.Env, prims *prim.Registry) *Flattener {
	return &Flattener{Heap: h, Env: e, Prims: prims}
}

// Flatten lowers t into a fresh sentinel-terminated chain at depth.
func (f *Flattener) Flatten(t term.Term, depth int) *graph.Node {
	sentinel := graph.NewSentinel(f.Heap, depth)
	f.into(sentinel, t)
	return sentinel
}

// into allocates the node for t's top constructor, appends it to
// sentinel immediately (ahead of any children it will hoist), then fills
// its slots.
func (f *Flattener) into(sentinel *graph.Node, t term.Term) *graph.Node {
	node := f.shallow(sentinel.Depth, t)
	graph.AppendTail(sentinel, node)
	f.fill(sentinel, node, t)
	return node
}

func (f *Flattener) shallow(depth int, t term.Term) *graph.Node {
	switch v := t.(type) {
	case term.Abs:
		n := f.Heap.Alloc(graph.NAbs, 1+len(v.Formals))
		n.Depth = depth
		return n
	case term.Fix:
		n := f.Heap.Alloc(graph.NFix, 1+len(v.Formals))
		n.Depth = depth
		return n
	case term.App:
		n := f.Heap.Alloc(graph.NApp, 1+len(v.Args))
		n.Depth = depth
		return n
	case term.Cell:
		n := f.Heap.Alloc(graph.NCell, len(v.Elts))
		n.Depth = depth
		return n
	case term.Let:
		n := f.Heap.Alloc(graph.NLet, len(v.Vars))
		n.Depth = depth
		return n
	case term.Test:
		n := f.Heap.Alloc(graph.NTest, 3)
		n.Depth = depth
		return n
	case term.Var:
		n := f.Heap.Alloc(graph.NVar, 1)
		n.Depth = depth
		n.Slots[0] = graph.Slot{Kind: graph.SlotBound, Up: v.Up, Across: v.Across}
		return n
	case term.Constant:
		n := f.Heap.Alloc(graph.NVal, 1)
		n.Depth = depth
		f.fillConstantSlot(n, 0, v)
		return n
	case term.Num:
		n := f.Heap.Alloc(graph.NVal, 1)
		n.Depth = depth
		n.Slots[0] = graph.Slot{Kind: graph.SlotNum, Num: float64(v)}
		return n
	case term.Str:
		n := f.Heap.Alloc(graph.NVal, 1)
		n.Depth = depth
		n.Slots[0] = graph.Slot{Kind: graph.SlotString, Str: string(v)}
		return n
	case term.Sym:
		n := f.Heap.Alloc(graph.NVal, 1)
		n.Depth = depth
		n.Slots[0] = graph.Slot{Kind: graph.SlotSymbol, Sym: int(v)}
		return n
	case term.Prim:
		n := f.Heap.Alloc(graph.NVal, 1)
		n.Depth = depth
		n.Slots[0] = graph.Slot{Kind: graph.SlotPrim, PrimRef: int(v)}
		return n
	default:
		panic("mlc: flatten: unknown term variant")
	}
}

func (f *Flattener) fill(sentinel, node *graph.Node, t term.Term) {
	switch v := t.(type) {
	case term.Abs:
		inner := graph.NewSentinel(f.Heap, sentinel.Depth+1)
		f.into(inner, v.Body)
		node.Slots[0] = graph.Slot{Kind: graph.SlotBody, Target: inner}
		for i, sym := range v.Formals {
			node.Slots[i+1] = graph.Slot{Kind: graph.SlotParam, Sym: int(sym)}
		}
	case term.Fix:
		inner := graph.NewSentinel(f.Heap, sentinel.Depth+1)
		f.into(inner, v.Body)
		node.Slots[0] = graph.Slot{Kind: graph.SlotBody, Target: inner}
		for i, sym := range v.Formals {
			node.Slots[i+1] = graph.Slot{Kind: graph.SlotParam, Sym: int(sym)}
		}
	case term.App:
		f.setChild(sentinel, node, 0, v.Fun)
		for i, a := range v.Args {
			f.setChild(sentinel, node, i+1, a)
		}
	case term.Cell:
		for i, e := range v.Elts {
			f.setChild(sentinel, node, i, e)
		}
	case term.Let:
		inner := graph.NewSentinel(f.Heap, sentinel.Depth+1)
		f.into(inner, v.Body)
		node.Slots[0] = graph.Slot{Kind: graph.SlotBody, Target: inner}
		for i := 1; i < len(v.Vars); i++ {
			f.setChild(sentinel, node, i, v.Vals[i])
		}
	case term.Test:
		f.setChild(sentinel, node, 0, v.Pred)
		node.Slots[1] = graph.Slot{Kind: graph.SlotBody, Target: f.flattenBranch(sentinel.Depth, v.Csq)}
		node.Slots[2] = graph.Slot{Kind: graph.SlotBody, Target: f.flattenBranch(sentinel.Depth, v.Alt)}
	case term.Var, term.Constant, term.Num, term.Str, term.Sym, term.Prim:
		// already fully populated by shallow
	default:
		panic("mlc: flatten: unknown term variant")
	}
}

// flattenBranch flattens a Test branch into its own sentinel-terminated
// chain at depth (the test's own depth, not depth+1: a Test never binds,
// so its branches share the test's scope rather than opening a new one).
// Keeping each branch in its own chain, rather than hoisting it into the
// shared right-to-left chain via setChild, is what lets stepTest splice
// in only the chosen branch and leave the discarded one completely
// unreduced.
func (f *Flattener) flattenBranch(depth int, t term.Term) *graph.Node {
	inner := graph.NewSentinel(f.Heap, depth)
	f.into(inner, t)
	return inner
}

// setChild fills node.Slots[index] for a structural child: variable-like
// terms (Var, an Opaque Constant) are inlined directly with no extra
// node; a Literal Constant shares the binder's existing pre-flattened
// body; everything else gets its own node hoisted into sentinel ahead of
// node, with an owning Subst back into node.Slots[index].
func (f *Flattener) setChild(sentinel, node *graph.Node, index int, t term.Term) {
	switch v := t.(type) {
	case term.Var:
		node.Slots[index] = graph.Slot{Kind: graph.SlotBound, Up: v.Up, Across: v.Across}
	case term.Constant:
		f.fillConstantSlot(node, index, v)
	default:
		child := f.into(sentinel, t)
		node.Slots[index] = graph.Slot{Kind: graph.SlotSubst, Target: child}
		graph.BindRef(node, index, child)
	}
}

func (f *Flattener) fillConstantSlot(node *graph.Node, index int, v term.Constant) {
	b := f.Env.At(v.BinderRef)
	if b != nil && b.Kind == env.KindLiteral && b.Node != nil {
		node.Slots[index] = graph.Slot{Kind: graph.SlotSubst, Target: b.Node}
		graph.BindRef(node, index, b.Node)
		return
	}
	node.Slots[index] = graph.Slot{Kind: graph.SlotConstant, ConstRef: v.BinderRef}
}
