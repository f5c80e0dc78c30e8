// Package unflatten implements readback: turning a reduced graph.Node
// chain into a term.Term tree, composing De Bruijn shifts across nested
// explicit substitutions and bounding expansion so a shared or stuck
// graph cannot blow the tree up past O(N log N) nodes. Modeled on
// pkg/lambda/translate.go's FromDeltaNet/readTerm/traceVariable context
// and shift bookkeeping, repurposed from interaction-net port tracing to
// direct recursive descent over the flattened chain.
package unflatten

import (
	"math"

	"github.com/vic/mlc/pkg/env"
	"github.com/vic/mlc/pkg/graph"
	"github.com/vic/mlc/pkg/symtab"
	"github.com/vic/mlc/pkg/term"
)

// defaultK is the unsharing-bound multiplier K: readback produces at
// most K*N*(ln N + e) tree nodes for N distinct reachable nodes (see
// bound).
const defaultK = 1000

// shiftFrame is one entry of the readback-time shift stack, pushed
// whenever descent follows a Subst slot into a target chain shallower
// than the node that referenced it. pushCtx records the ctx depth (the
// number of binders crossed since the top of the current Unflatten
// call) at the moment the frame was pushed, so the effective cutoff at
// any later read point is (current ctx depth - pushCtx): the count of
// binders crossed since entering this substituted-in subterm. A bound
// variable whose up-index falls below that cutoff refers to one of
// those local binders and is left alone; at or above it, it escaped the
// subterm's own scope and delta is added before checking the next
// (outer) frame.
type shiftFrame struct {
	pushCtx int
	delta   int
	parent  *shiftFrame
}

// ctxFrame is one entry of the enclosing-binder context, innermost
// first, recording the formal names in scope at a given readback depth.
type ctxFrame struct {
	formals []symtab.Symbol
	parent  *ctxFrame
}

func ctxDepth(ctx *ctxFrame) int {
	d := 0
	for c := ctx; c != nil; c = c.parent {
		d++
	}
	return d
}

// Unflattener turns reduced chains back into term.Term trees.
type Unflattener struct {
	Syms *symtab.Table
	Env  *env.Env

	K int // unsharing multiplier; 0 selects defaultK

	seen    map[*graph.Node]bool
	produced int
	pruned  bool
}

// New returns an Unflattener over syms/e, using the default unsharing
// multiplier.
func New(syms *symtab.Table, e *env.Env) *Unflattener {
	return &Unflattener{Syms: syms, Env: e}
}

// Unflatten reads the chain guarded by sentinel back into a term.Term.
// A fresh call resets the unsharing ledger, so distinct top-level calls
// are independently bounded.
func (u *Unflattener) Unflatten(sentinel *graph.Node) term.Term {
	u.seen = make(map[*graph.Node]bool)
	u.produced = 0
	u.pruned = false
	return u.readChain(sentinel, nil, nil)
}

// Pruned reports whether the most recent Unflatten call hit the
// unsharing bound and returned one or more term.Pruned leaves.
func (u *Unflattener) Pruned() bool { return u.pruned }

func (u *Unflattener) bound() float64 {
	n := float64(len(u.seen))
	if n < 1 {
		n = 1
	}
	k := u.K
	if k == 0 {
		k = defaultK
	}
	return float64(k) * n * (math.Log(n) + math.E)
}

// charge records one produced tree node and reports whether the
// unsharing bound still permits continuing.
func (u *Unflattener) charge() bool {
	u.produced++
	if float64(u.produced) > u.bound() {
		u.pruned = true
		return false
	}
	return true
}

// readChain reads sentinel's sole live member as a term (a flattened
// chain always has exactly one top-level node: everything else it holds
// was hoisted because some top node's slot referenced it).
func (u *Unflattener) readChain(sentinel *graph.Node, ctx *ctxFrame, sh *shiftFrame) term.Term {
	head := sentinel.Head()
	if head == sentinel {
		return term.Num(0) // empty chain: only ever a Let's unused placeholder body
	}
	return u.readNode(head, ctx, sh)
}

func (u *Unflattener) readNode(n *graph.Node, ctx *ctxFrame, sh *shiftFrame) term.Term {
	if !u.charge() {
		return term.Pruned{}
	}
	u.seen[n] = true
	switch n.Variety {
	case graph.NAbs, graph.NFix:
		formals := make([]symtab.Symbol, len(n.Slots)-1)
		for i := 1; i < len(n.Slots); i++ {
			formals[i-1] = symtab.Symbol(n.Slots[i].Sym)
		}
		innerCtx := &ctxFrame{formals: formals, parent: ctx}
		var body term.Term
		if n.Slots[0].Target != nil {
			body = u.readBody(n.Slots[0].Target, n.Depth, innerCtx, sh)
		} else {
			body = term.Num(0)
		}
		if n.Variety == graph.NFix {
			return term.Fix{Formals: formals, Body: body}
		}
		return term.Abs{Formals: formals, Body: body}
	case graph.NApp:
		fun := u.readSlot(n.Slots[0], n.Depth, ctx, sh)
		args := make([]term.Term, len(n.Slots)-1)
		for i := 1; i < len(n.Slots); i++ {
			args[i-1] = u.readSlot(n.Slots[i], n.Depth, ctx, sh)
		}
		return term.App{Fun: fun, Args: args}
	case graph.NCell:
		elts := make([]term.Term, len(n.Slots))
		for i := range n.Slots {
			elts[i] = u.readSlot(n.Slots[i], n.Depth, ctx, sh)
		}
		return term.Cell{Elts: elts}
	case graph.NLet:
		// A flattened Let's slots hold values, not names (unlike Abs/Fix,
		// which keep a SlotParam per formal): the original names are gone
		// by the time reduction is done with them, so readback mints
		// fresh ones. Round-trip equivalence is only required up to name
		// freshening (spec.md's testable property 4), so this is exact.
		vars := make([]symtab.Symbol, len(n.Slots))
		vals := make([]term.Term, len(n.Slots))
		vals[0] = term.Num(0)
		for i := 1; i < len(n.Slots); i++ {
			if u.Syms != nil {
				vars[i] = u.Syms.Fresh("let")
			}
		}
		innerCtx := &ctxFrame{formals: vars, parent: ctx}
		for i := 1; i < len(n.Slots); i++ {
			vals[i] = u.readSlot(n.Slots[i], n.Depth, ctx, sh)
		}
		var body term.Term
		if n.Slots[0].Target != nil {
			body = u.readBody(n.Slots[0].Target, n.Depth, innerCtx, sh)
		} else {
			body = term.Num(0)
		}
		return term.Let{Vars: vars, Vals: vals, Body: body}
	case graph.NTest:
		// Csq/Alt are each a Body-kind slot owning their own same-depth
		// chain (flatten.flattenBranch), not an ordinary Subst reference,
		// since Test never opens a new binder level: read them with
		// readBody under the unchanged ctx/sh rather than readSlot.
		pred := u.readSlot(n.Slots[0], n.Depth, ctx, sh)
		csq := term.Term(term.Num(0))
		if n.Slots[1].Target != nil {
			csq = u.readBody(n.Slots[1].Target, n.Depth, ctx, sh)
		}
		alt := term.Term(term.Num(0))
		if n.Slots[2].Target != nil {
			alt = u.readBody(n.Slots[2].Target, n.Depth, ctx, sh)
		}
		return term.Test{Pred: pred, Csq: csq, Alt: alt}
	case graph.NVar:
		return u.readSlot(n.Slots[0], n.Depth, ctx, sh)
	case graph.NVal:
		return u.readValSlot(n.Slots[0], n.Depth, ctx, sh)
	default:
		return term.Pruned{}
	}
}

// readBody reads the chain owned by a Body slot under the given context
// and shift stack. It pushes no shift frame of its own; parentDepth is
// not consulted.
func (u *Unflattener) readBody(sentinel *graph.Node, parentDepth int, ctx *ctxFrame, sh *shiftFrame) term.Term {
	return u.readChain(sentinel, ctx, sh)
}

// readSlot resolves one slot value, following Subst references by
// recursive descent and pushing a shift frame whenever the referenced
// chain sits at a shallower depth than the referencing node.
func (u *Unflattener) readSlot(s graph.Slot, ownerDepth int, ctx *ctxFrame, sh *shiftFrame) term.Term {
	switch s.Kind {
	case graph.SlotBound:
		return u.readBound(s.Up, s.Across, ctx, sh)
	case graph.SlotConstant:
		return term.Constant{BinderRef: s.ConstRef}
	case graph.SlotSubst:
		if s.Target == nil {
			return term.Num(0)
		}
		next := sh
		if s.Target.Depth < ownerDepth {
			next = &shiftFrame{pushCtx: ctxDepth(ctx), delta: ownerDepth - s.Target.Depth, parent: sh}
		}
		return u.readNode(s.Target, ctx, next)
	case graph.SlotNum:
		return term.Num(s.Num)
	case graph.SlotString:
		return term.Str(s.Str)
	case graph.SlotSymbol:
		return term.Sym(symtab.Symbol(s.Sym))
	case graph.SlotPrim:
		return term.Prim(s.PrimRef)
	default:
		return term.Num(0)
	}
}

// readValSlot resolves a Val node's single slot the same way readSlot
// does, except a Subst payload here never crosses a depth gap (a Val
// wrapping Subst only ever occurs for a Literal constant's
// already-reduced body, addressed in its own, shallower readback call).
func (u *Unflattener) readValSlot(s graph.Slot, ownerDepth int, ctx *ctxFrame, sh *shiftFrame) term.Term {
	return u.readSlot(s, ownerDepth, ctx, sh)
}

// readBound composes the shift stack against a raw (up, across)
// reference: for each frame from innermost out, while up is at or
// beyond the binders crossed since that frame was pushed, up
// accumulates the frame's delta before checking the next (outer) frame.
func (u *Unflattener) readBound(up, across int, ctx *ctxFrame, sh *shiftFrame) term.Term {
	depth := ctxDepth(ctx)
	for f := sh; f != nil; f = f.parent {
		cutoff := depth - f.pushCtx
		if up >= cutoff {
			up += f.delta
		}
	}
	name := symtab.Empty
	c := ctx
	for d := 0; d < up && c != nil; d++ {
		c = c.parent
	}
	if c != nil && across >= 0 && across < len(c.formals) {
		name = c.formals[across]
	}
	return term.Var{Up: up, Across: across, Name: name}
}
