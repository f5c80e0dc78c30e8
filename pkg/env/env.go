// Package env implements the global environment: binders keyed by
// (name, namespace), ordered by index, looked up under an
// active-namespace set. Modeled on deltanet.Network's registry pattern
// (map + append-only slice behind a mutex, id 0 reserved).
package env

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vic/mlc/pkg/graph"
	"github.com/vic/mlc/pkg/symtab"
	"github.com/vic/mlc/pkg/term"
)

// Session tags one instantiation of a global environment: a single CLI
// run or one-shot evaluation. The core itself never inspects it; it
// exists so a driver juggling more than one Env (the gentests generator
// runs one per scenario) can tell them apart in logs without relying on
// pointer identity.
type Session struct {
	ID uuid.UUID
}

// NewSession mints a fresh session tag.
func NewSession() Session {
	return Session{ID: uuid.New()}
}

// Kind classifies how a binder's body is stored and treated by the
// flattener.
type Kind int

const (
	// KindOpaque binders flatten to a bare Constant reference slot; the
	// binder carries no inlineable body.
	KindOpaque Kind = iota
	// KindLiteral binders flatten to a Val wrapping the binder's
	// pre-flattened body; Deep has no effect on them.
	KindLiteral
	// KindLifting binders are captured by the resolver into a synthetic
	// wrapping Let rather than referenced in place.
	KindLifting
)

func (k Kind) String() string {
	switch k {
	case KindOpaque:
		return "Opaque"
	case KindLiteral:
		return "Literal"
	case KindLifting:
		return "Lifting"
	default:
		return "Unknown"
	}
}

// Binder is a global environment entry.
type Binder struct {
	Index int
	Name  symtab.Symbol
	Space symtab.Symbol
	Kind  Kind
	// Deep enables deep reduction into this binder's body. It has no
	// effect on Literal binders, whose already-reduced body is shared
	// as-is regardless of the flag.
	Deep bool

	// Term is the source term, populated for Lifting binders so the
	// resolver can recover their definition when wrapping references.
	Term term.Term

	// Node is the pre-flattened, already-reduced graph body, populated
	// for non-Lifting binders once the statement evaluator (external)
	// has flattened and reduced their definition.
	Node *graph.Node
}

// ErrUndefinedHasNoSemantics is returned when the pseudo-primitive
// $undefined is used in lifting position.
var ErrUndefinedHasNoSemantics = errors.New("mlc: $undefined has no semantics")

// AmbiguousError reports that name resolved to more than one binder
// under the active namespace set.
type AmbiguousError struct {
	Name   symtab.Symbol
	Spaces []symtab.Symbol
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous reference %q across %d namespaces", e.Name, len(e.Spaces))
}

// ErrMissing indicates no binder matches name under the active namespaces.
var ErrMissing = errors.New("mlc: undefined reference")

// Env is the global environment, explicitly passed in rather than
// process-wide: binders stored both by index and by (name, space).
type Env struct {
	mu      sync.RWMutex
	binders []*Binder // index 0 is the reserved dummy
	byName  map[symtab.Symbol][]*Binder
	active  map[symtab.Symbol]bool
	Syms    *symtab.Table
	Session Session
}

// New returns an Env with slot 0 reserved so valid indices are nonzero.
func New(syms *symtab.Table) *Env {
	e := &Env{
		binders: make([]*Binder, 1),
		byName:  make(map[symtab.Symbol][]*Binder),
		active:  make(map[symtab.Symbol]bool),
		Syms:    syms,
		Session: NewSession(),
	}
	return e
}

// Bind creates and registers a new binder for (name, space).
func (e *Env) Bind(name, space symtab.Symbol, kind Kind) *Binder {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := &Binder{Index: len(e.binders), Name: name, Space: space, Kind: kind}
	e.binders = append(e.binders, b)
	e.byName[name] = append(e.byName[name], b)
	return b
}

// At returns the binder at index, or nil if out of range.
func (e *Env) At(index int) *Binder {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if index <= 0 || index >= len(e.binders) {
		return nil
	}
	return e.binders[index]
}

// Activate marks a namespace as part of the active set consulted by Lookup.
func (e *Env) Activate(space symtab.Symbol) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active[space] = true
}

// Deactivate removes a namespace from the active set.
func (e *Env) Deactivate(space symtab.Symbol) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, space)
}

// Lookup resolves name against binders visible under the active namespace
// set, returning ErrMissing if none match and *AmbiguousError if more
// than one does.
func (e *Env) Lookup(name symtab.Symbol) (*Binder, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var matches []*Binder
	for _, b := range e.byName[name] {
		if e.active[b.Space] {
			matches = append(matches, b)
		}
	}
	switch len(matches) {
	case 0:
		return nil, ErrMissing
	case 1:
		return matches[0], nil
	default:
		spaces := make([]symtab.Symbol, len(matches))
		for i, m := range matches {
			spaces[i] = m.Space
		}
		return nil, &AmbiguousError{Name: name, Spaces: spaces}
	}
}

// ConstantName implements term.ConstantNamer.
func (e *Env) ConstantName(ref int) string {
	b := e.At(ref)
	if b == nil || e.Syms == nil {
		return fmt.Sprintf("const%d", ref)
	}
	return e.Syms.Name(b.Name)
}
