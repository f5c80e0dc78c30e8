// Package graph implements the flattened explicit-substitution graph:
// variable-arity Nodes with reference-counted Slots, linked into
// doubly-linked Sentinel-terminated chains per abstraction depth. Modeled
// on deltanet.Network's node registry and id-counter pattern
// (pkg/deltanet/deltanet.go), replacing its concurrent interaction-net
// wires with a single-threaded reference-counted substitution graph.
package graph

import "fmt"

// Variety identifies the kind of agent a Node represents.
type Variety int

const (
	Sentinel Variety = iota
	NAbs
	NApp
	NCell
	NFix
	NLet
	NTest
	NVal
	NVar
)

func (v Variety) String() string {
	switch v {
	case Sentinel:
		return "Sentinel"
	case NAbs:
		return "Abs"
	case NApp:
		return "App"
	case NCell:
		return "Cell"
	case NFix:
		return "Fix"
	case NLet:
		return "Let"
	case NTest:
		return "Test"
	case NVal:
		return "Val"
	case NVar:
		return "Var"
	default:
		return "Unknown"
	}
}

// SlotKind identifies the tagged variant a Slot holds.
type SlotKind int

const (
	SlotNull SlotKind = iota
	SlotBody
	SlotBound
	SlotConstant
	SlotNum
	SlotString
	SlotSymbol
	SlotPrim
	SlotParam
	SlotSubst
)

// Slot is the tagged union a Node's ports hold. Only Bound, Constant and
// Subst varieties are references that participate in substitution.
type Slot struct {
	Kind SlotKind

	// SlotBody, SlotSubst
	Target *Node

	// SlotBound
	Up     int
	Across int

	// SlotConstant
	ConstRef int

	// SlotNum
	Num float64

	// SlotString
	Str string

	// SlotSymbol, SlotParam
	Sym int

	// SlotPrim
	PrimRef int
}

// IsRef reports whether the slot is a reference that can be substituted
// for during a beta-like rewrite.
func (s Slot) IsRef() bool {
	return s.Kind == SlotBound || s.Kind == SlotConstant || s.Kind == SlotSubst
}

// backref is the weak "sole referrer" pointer: valid only while the
// referent's nref==1, invalidated the moment a second reference appears.
type backref struct {
	owner *Node
	index int
}

// Node is a variable-arity, mutable record in the reduction graph.
type Node struct {
	id      uint64
	Variety Variety
	Depth   int
	Nref    int
	Slots   []Slot

	Prev, Next *Node

	back *backref

	// forward is set only during one subst_copy pass (see pkg/subst) to
	// let later siblings' Subst slots see a node's freshly made copy.
	forward *Node
}

// ID returns the node's stable allocation-order identifier.
func (n *Node) ID() uint64 { return n.id }

// Forward returns the node's copy-pass forward pointer, if set.
func (n *Node) Forward() *Node { return n.forward }

// SetForward records n's freshly made copy during a subst_copy pass.
func (n *Node) SetForward(c *Node) { n.forward = c }

// ClearForward resets the forward pointer once a copy pass completes.
func (n *Node) ClearForward() { n.forward = nil }

// Backref returns the unique slot referencing n, valid only when
// n.Nref == 1.
func (n *Node) Backref() (owner *Node, index int, ok bool) {
	if n.back == nil {
		return nil, 0, false
	}
	return n.back.owner, n.back.index, true
}

// SetBackref records that owner.Slots[index] is the sole reference to n.
func (n *Node) SetBackref(owner *Node, index int) {
	n.back = &backref{owner: owner, index: index}
}

// ClearBackref invalidates the weak backreference (called once Nref>1).
func (n *Node) ClearBackref() { n.back = nil }

func (n *Node) String() string {
	return fmt.Sprintf("%s#%d@%d(nref=%d)", n.Variety, n.id, n.Depth, n.Nref)
}

// IsSentinel reports whether n marks a chain endpoint.
func (n *Node) IsSentinel() bool { return n.Variety == Sentinel }

// Head returns the leftmost real node of the chain the sentinel guards
// (the sentinel's Next), or the sentinel itself if the chain is empty.
func (n *Node) Head() *Node {
	if !n.IsSentinel() {
		return n
	}
	if n.Next != nil && n.Next != n {
		return n.Next
	}
	return n
}

// Tail returns the chain's rightmost real node (the sentinel's Prev), or
// the sentinel itself if the chain is empty.
func (n *Node) Tail() *Node {
	if !n.IsSentinel() {
		return n
	}
	return n.Prev
}
