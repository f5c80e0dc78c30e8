// Package reduce implements the core's right-to-left chain reducer:
// beta reduction via the substitutor, primitive dispatch, conditional
// resolution, fix unfolding, and reference-counted reclamation of spent
// nodes. Modeled on pkg/deltanet/deltanet.go's reducePair/
// ReduceToNormalForm cursor-and-dispatch shape (a single active node
// processed against its neighbors, looping until no more redexes
// remain), replacing interaction-net active pairs with explicit
// substitution over a doubly-linked chain.
package reduce

import (
	"fmt"

	"github.com/vic/mlc/pkg/graph"
	"github.com/vic/mlc/pkg/prim"
	"github.com/vic/mlc/pkg/subst"
	"github.com/vic/mlc/pkg/symtab"
)

// Options configures a reduction run. EtaExpandPartial is accepted but
// has no effect: an arity-mismatched application (partial or
// over-application) is left stuck whether it is true or false; no
// eta-expansion is performed.
type Options struct {
	Deep             bool
	EtaExpandPartial bool
}

// Reducer carries the shared heap, primitive registry and symbol table
// a reduction run needs to dispatch primitives and mint boolean atoms.
type Reducer struct {
	Heap  *graph.Heap
	Prims *prim.Registry
	Syms  *symtab.Table
	subst *subst.Substituter

	steps uint64
}

// New returns a Reducer over the given heap, primitive registry and
// symbol table.
func New(h *graph.Heap, prims *prim.Registry, syms *symtab.Table) *Reducer {
	return &Reducer{Heap: h, Prims: prims, Syms: syms, subst: subst.New(h)}
}

// ReduceTop reduces the chain guarded by sentinel in place. Surface mode
// (deep=false) never enters unapplied Abs/Fix/Let bodies; deep mode
// recursively reduces every binder body it encounters, except a
// Literal-kind constant's body, which Deep never touches (see pkg/env).
func (r *Reducer) ReduceTop(sentinel *graph.Node, opts Options) {
	r.reduceChain(sentinel, opts)
}

func (r *Reducer) reduceChain(sentinel *graph.Node, opts Options) {
	cur := sentinel.Prev
	for cur != sentinel {
		cur = r.step(cur, opts)
		r.steps++
		if r.steps%4096 == 0 {
			r.Heap.Calibrate()
		}
	}
}

// step processes the node at the cursor and returns the node the cursor
// should resume scanning from next. applyPrim rewrites cur in place and
// resumes at the node that preceded it; applyAbs, stepLet and stepTest
// splice a chain of one or more nodes into cur's old position and resume
// at that chain's tail, so the spliced-in nodes are reduced in turn. A
// node left stuck resumes at the node that preceded it.
func (r *Reducer) step(cur *graph.Node, opts Options) *graph.Node {
	switch cur.Variety {
	case graph.Sentinel, graph.NVar, graph.NVal, graph.NCell:
		return cur.Prev
	case graph.NAbs, graph.NFix:
		if opts.Deep {
			if body := cur.Slots[0].Target; body != nil {
				r.reduceChain(body, opts)
			}
		}
		return cur.Prev
	case graph.NApp:
		return r.stepApp(cur, opts)
	case graph.NTest:
		return r.stepTest(cur)
	case graph.NLet:
		return r.stepLet(cur)
	default:
		return cur.Prev
	}
}

// resolveValue follows a chain of Val-wrapping-Subst indirections (a
// Literal constant whose own body is in turn another Literal reference)
// down to the node that actually carries dispatchable content.
func resolveValue(n *graph.Node) *graph.Node {
	for n != nil && n.Variety == graph.NVal && len(n.Slots) == 1 && n.Slots[0].Kind == graph.SlotSubst {
		n = n.Slots[0].Target
	}
	return n
}

func (r *Reducer) stepApp(cur *graph.Node, opts Options) *graph.Node {
	funSlot := cur.Slots[0]
	if funSlot.Kind != graph.SlotSubst || funSlot.Target == nil {
		// A bare Bound/Constant in function position is either not yet
		// substituted or permanently opaque: stuck, same as applying a
		// non-function.
		return cur.Prev
	}
	target := resolveValue(funSlot.Target)
	if target == nil {
		return cur.Prev
	}
	switch target.Variety {
	case graph.NVal:
		if target.Slots[0].Kind == graph.SlotPrim {
			return r.applyPrim(cur, target.Slots[0].PrimRef)
		}
		return cur.Prev
	case graph.NAbs:
		return r.applyAbs(cur, target, false, opts)
	case graph.NFix:
		return r.applyAbs(cur, target, true, opts)
	default:
		return cur.Prev
	}
}

func (r *Reducer) symName(s int) string {
	if r.Syms == nil {
		return fmt.Sprintf("sym%d", s)
	}
	return r.Syms.Name(symtab.Symbol(s))
}

// valueOfSlot resolves a slot to a primitive Value, following Subst/Val
// indirections down to the node carrying the atom. It reports false for anything that isn't
// yet a fully reduced atomic value (a stuck or unreduced position).
func (r *Reducer) valueOfSlot(s graph.Slot) (prim.Value, bool) {
	switch s.Kind {
	case graph.SlotNum:
		return prim.Value{Kind: prim.VNum, Num: s.Num}, true
	case graph.SlotString:
		return prim.Value{Kind: prim.VStr, Str: s.Str}, true
	case graph.SlotSymbol:
		return prim.Value{Kind: prim.VSym, Sym: r.symName(s.Sym)}, true
	case graph.SlotSubst:
		target := resolveValue(s.Target)
		if target == nil || target.Variety != graph.NVal {
			return prim.Value{}, false
		}
		return r.valueOfSlot(target.Slots[0])
	default:
		return prim.Value{}, false
	}
}

func (r *Reducer) valueToSlot(v prim.Value) graph.Slot {
	switch v.Kind {
	case prim.VNum:
		return graph.Slot{Kind: graph.SlotNum, Num: v.Num}
	case prim.VStr:
		return graph.Slot{Kind: graph.SlotString, Str: v.Str}
	case prim.VSym:
		sym := symtab.Empty
		if r.Syms != nil {
			sym = r.Syms.Intern(v.Sym)
		}
		return graph.Slot{Kind: graph.SlotSymbol, Sym: int(sym)}
	default:
		return graph.Slot{Kind: graph.SlotNull}
	}
}

// releaseRefSlots releases every Subst-kind reference n holds from index
// from onward, without touching n itself. Used when discarding a node's
// operand slots ahead of repurposing or freeing n; SlotBody is
// deliberately left alone (its owner, if any, reclaims it explicitly
// with graph.FreeChain, never a plain Release).
func (r *Reducer) releaseRefSlots(n *graph.Node, from int) {
	for i := from; i < len(n.Slots); i++ {
		if n.Slots[i].Kind == graph.SlotSubst && n.Slots[i].Target != nil {
			graph.Release(r.Heap, n.Slots[i].Target)
		}
	}
}

// applyPrim dispatches a primitive application in place: cur's own
// identity is preserved (so any external reference to it, shared or
// not, observes the same result) and only its interior content changes
// from App to Val. This sidesteps the splice/backref machinery beta
// reduction needs entirely, which is what makes the S8 sharing scenario
// (two referrers of the same saturated primitive application) come out
// correct for free.
func (r *Reducer) applyPrim(cur *graph.Node, ref int) *graph.Node {
	next := cur.Prev
	args := make([]prim.Value, len(cur.Slots)-1)
	for i := 1; i < len(cur.Slots); i++ {
		v, ok := r.valueOfSlot(cur.Slots[i])
		if !ok {
			return next // an argument isn't a value yet: stuck
		}
		args[i-1] = v
	}
	result, err := r.Prims.Apply(ref, args)
	if err != nil {
		return next // rejected application: node stays stuck as-is
	}
	r.releaseRefSlots(cur, 0)
	cur.Variety = graph.NVal
	cur.Slots = []graph.Slot{r.valueToSlot(result)}
	return next
}

// spliceIn replaces cur's chain position with the chain [head..tail],
// transferring cur's external reference count and (when it was sole
// referenced) its weak backref onto head — the pointer-snap a caller
// that held a Subst slot into cur must observe as redirecting onto the
// result in place. When cur's nref was already above one, the other
// referrers cannot all be found and rewired through backref alone; they
// keep observing the pre-reduction node until their own turn at the
// cursor forces the same redex again. Returns the node reduction should
// resume from.
func spliceIn(cur, head, tail *graph.Node) *graph.Node {
	if head == nil {
		prevNode := cur.Prev
		graph.Unlink(cur)
		return prevNode
	}
	graph.SpliceBefore(cur, head, tail)
	head.Nref = cur.Nref
	if owner, idx, ok := cur.Backref(); ok {
		owner.Slots[idx] = graph.Slot{Kind: graph.SlotSubst, Target: head}
		head.SetBackref(owner, idx)
	} else {
		head.ClearBackref()
	}
	return tail
}

// applyAbs performs beta reduction (or, for a Fix, self-unfolding then
// beta reduction). The substitution always copies the abstraction body
// rather than editing it in place: a Fix's self slot must keep
// referencing an intact binder for further recursive unfolding, and a
// globally shared Abs/Fix body must remain a reusable template for
// every other site that still holds it (binders are never freed), so
// neither can safely be edited in place even when momentarily
// sole-referenced. Let reduction (stepLet), whose binder is never
// shared this way, is where subst_edit actually triggers.
func (r *Reducer) applyAbs(cur, target *graph.Node, isFix bool, opts Options) *graph.Node {
	// Both Abs and Fix reserve one formal slot (a dead placeholder for
	// Abs, the self-binder for Fix) that a caller never supplies an
	// argument for, hence the -2 rather than -1.
	arity := len(target.Slots) - 2
	nargs := len(cur.Slots) - 1
	if nargs != arity {
		if opts.EtaExpandPartial {
			// Left for a future driver-configurable implementation; see
			// spec.md Open Question 9a. Treated as stuck until then.
			return cur.Prev
		}
		return cur.Prev
	}
	var self *graph.Node
	if isFix {
		self = target
	}
	head, tail, work, _ := r.subst.Reduce(target, cur, self, true)
	next := spliceIn(cur, head, tail)
	if work != nil {
		r.Heap.Free(work)
	}
	r.releaseRefSlots(cur, 0)
	r.Heap.Free(cur)
	return next
}

// stepLet reduces a Let by substituting its own value slots into its own
// body — binder and args are the same node, matching the spec's
// treatment of Let as non-recursive desugared application. Unlike beta
// reduction, a Let's binder is exclusively owned by its one occurrence
// in the chain (never a globally shared template), so the nref-based
// edited/copy choice is safe here.
func (r *Reducer) stepLet(cur *graph.Node) *graph.Node {
	origBody := cur.Slots[0].Target
	head, tail, work, edited := r.subst.Reduce(cur, cur, nil, false)
	next := spliceIn(cur, head, tail)
	if work != nil {
		r.Heap.Free(work)
	}
	if !edited && origBody != nil {
		graph.FreeChain(r.Heap, origBody)
	}
	r.releaseRefSlots(cur, 1)
	r.Heap.Free(cur)
	return next
}

// stepTest resolves the predicate to one of the two canonical boolean
// atoms and splices the chosen branch's chain into cur's position,
// mirroring how applyAbs/stepLet splice a substituted body in. The
// discarded branch is freed wholesale, unreduced: its sentinel owns a
// chain of its own at the test's own depth (flatten.flattenBranch),
// never sharing nodes with anything outside it, so dropping it never
// needs a refcounted Release.
func (r *Reducer) stepTest(cur *graph.Node) *graph.Node {
	pred, ok := r.valueOfSlot(cur.Slots[0])
	if !ok {
		return cur.Prev
	}
	var chosenIdx, discardIdx int
	switch pred {
	case prim.True:
		chosenIdx, discardIdx = 1, 2
	case prim.False:
		chosenIdx, discardIdx = 2, 1
	default:
		return cur.Prev // predicate didn't resolve to a canonical boolean atom: stuck
	}

	if predRef := cur.Slots[0]; predRef.Kind == graph.SlotSubst && predRef.Target != nil {
		graph.Release(r.Heap, predRef.Target)
	}
	if discard := cur.Slots[discardIdx].Target; discard != nil {
		graph.FreeChain(r.Heap, discard)
	}

	chosen := cur.Slots[chosenIdx].Target
	var head, tail *graph.Node
	if chosen != nil {
		if h := chosen.Head(); h != chosen {
			head, tail = h, chosen.Tail()
		}
	}
	next := spliceIn(cur, head, tail)
	if chosen != nil {
		r.Heap.Free(chosen)
	}
	r.Heap.Free(cur)
	return next
}
