// Package resolve turns reader-produced forms into closed terms: local
// names become De Bruijn (up, across) variables, global names become
// Constant references (or, for Lifting binders, get captured into a
// synthetic wrapping Let). Modeled on pkg/lambda/translate.go's
// buildTerm context walk, repurposed from interaction-net construction
// to plain name resolution.
package resolve

import (
	"fmt"
	"sort"

	"github.com/vic/mlc/pkg/env"
	"github.com/vic/mlc/pkg/form"
	"github.com/vic/mlc/pkg/prim"
	"github.com/vic/mlc/pkg/symtab"
	"github.com/vic/mlc/pkg/term"
)

// frame is one entry of the linked local-binder context, innermost first.
type frame struct {
	formals []symtab.Symbol
	parent  *frame
}

func (fr *frame) find(name symtab.Symbol) (up, across int, ok bool) {
	depth := 0
	for f := fr; f != nil; f = f.parent {
		for i, s := range f.formals {
			if s == name {
				return depth, i, true
			}
		}
		depth++
	}
	return 0, 0, false
}

// Resolver resolves forms against a global environment and primitive
// registry. Not safe for concurrent use of a single Resolve call.
type Resolver struct {
	Syms  *symtab.Table
	Env   *env.Env
	Prims *prim.Registry

	lifted   []*env.Binder
	liftSeen map[int]bool
}

// New returns a Resolver over the given environment and primitive table.
func New(syms *symtab.Table, e *env.Env, prims *prim.Registry) *Resolver {
	return &Resolver{Syms: syms, Env: e, Prims: prims}
}

// Resolve converts f into a closed term, wrapping the result in a
// synthetic outer Let if any Lifting-kind global was referenced. Per
// spec.md §4.C step 6, the synthetic Let's slots are ordered by binder
// index, not by the order references were first encountered during the
// walk: resolveVar leaves every lifting reference as a plain Constant,
// and once the full referenced set is known it is sorted and bound in
// by a rebind pass over the already-resolved term.
func (r *Resolver) Resolve(f form.Form) (term.Term, error) {
	r.lifted = nil
	r.liftSeen = make(map[int]bool)
	t, err := r.resolve(f, nil)
	if err != nil {
		return nil, err
	}
	if len(r.lifted) == 0 {
		return t, nil
	}
	sort.Slice(r.lifted, func(i, j int) bool { return r.lifted[i].Index < r.lifted[j].Index })

	vars := make([]symtab.Symbol, len(r.lifted)+1)
	vals := make([]term.Term, len(r.lifted)+1)
	vals[0] = term.Num(0)
	refs := make(map[int]liftedRef, len(r.lifted))
	for i, b := range r.lifted {
		vars[i+1] = b.Name
		vals[i+1] = b.Term
		refs[b.Index] = liftedRef{across: i + 1, name: b.Name}
	}
	body := rebindLifted(t, 0, refs)
	return term.Let{Vars: vars, Vals: vals, Body: body}, nil
}

// liftedRef records where a captured lifting binder landed in the
// synthetic Let's sorted slot order.
type liftedRef struct {
	across int
	name   symtab.Symbol
}

// rebindLifted descends t, rewriting every Constant referencing a
// captured lifting binder into the Var(up, across) addressing its
// sorted position in the synthetic outer Let — the bind-pass spec.md
// §4.C step 6 describes. depth counts binder levels crossed since the
// point rebindLifted started (the synthetic Let's own body), so up is
// always depth: the synthetic Let is the binder reached after skipping
// exactly those levels.
func rebindLifted(t term.Term, depth int, refs map[int]liftedRef) term.Term {
	switch v := t.(type) {
	case term.Abs:
		return term.Abs{Formals: v.Formals, Body: rebindLifted(v.Body, depth+1, refs)}
	case term.Fix:
		return term.Fix{Formals: v.Formals, Body: rebindLifted(v.Body, depth+1, refs)}
	case term.App:
		args := make([]term.Term, len(v.Args))
		for i, a := range v.Args {
			args[i] = rebindLifted(a, depth, refs)
		}
		return term.App{Fun: rebindLifted(v.Fun, depth, refs), Args: args}
	case term.Cell:
		elts := make([]term.Term, len(v.Elts))
		for i, e := range v.Elts {
			elts[i] = rebindLifted(e, depth, refs)
		}
		return term.Cell{Elts: elts}
	case term.Let:
		vals := make([]term.Term, len(v.Vals))
		for i, val := range v.Vals {
			vals[i] = rebindLifted(val, depth, refs)
		}
		return term.Let{Vars: v.Vars, Vals: vals, Body: rebindLifted(v.Body, depth+1, refs)}
	case term.Test:
		return term.Test{
			Pred: rebindLifted(v.Pred, depth, refs),
			Csq:  rebindLifted(v.Csq, depth, refs),
			Alt:  rebindLifted(v.Alt, depth, refs),
		}
	case term.Constant:
		if ref, ok := refs[v.BinderRef]; ok {
			return term.Var{Up: depth, Across: ref.across, Name: ref.name}
		}
		return v
	default:
		return t
	}
}

func (r *Resolver) resolve(f form.Form, fr *frame) (term.Term, error) {
	switch v := f.(type) {
	case form.Var:
		return r.resolveVar(v, fr)
	case form.Abs:
		formals := append([]symtab.Symbol{symtab.Empty}, v.Formals...)
		body, err := r.resolve(v.Body, &frame{formals: formals, parent: fr})
		if err != nil {
			return nil, err
		}
		return term.Abs{Formals: formals, Body: body}, nil
	case form.Fix:
		formals := append([]symtab.Symbol{v.Self}, v.Formals...)
		body, err := r.resolve(v.Body, &frame{formals: formals, parent: fr})
		if err != nil {
			return nil, err
		}
		return term.Fix{Formals: formals, Body: body}, nil
	case form.App:
		fun, err := r.resolve(v.Fun, fr)
		if err != nil {
			return nil, err
		}
		if len(v.Args) == 0 {
			return fun, nil
		}
		args := make([]term.Term, len(v.Args))
		for i, a := range v.Args {
			args[i], err = r.resolve(a, fr)
			if err != nil {
				return nil, err
			}
		}
		return term.App{Fun: fun, Args: args}, nil
	case form.Cell:
		elts := make([]term.Term, len(v.Elts))
		var err error
		for i, e := range v.Elts {
			elts[i], err = r.resolve(e, fr)
			if err != nil {
				return nil, err
			}
		}
		return term.Cell{Elts: elts}, nil
	case form.Let:
		// Vals resolve in the enclosing frame, not the one Let introduces:
		// Let is non-recursive sugar for applying an abstraction to its
		// values, so a binding cannot see its siblings or itself. Fix is
		// the only construct that supports self-reference.
		vars := append([]symtab.Symbol{symtab.Empty}, v.Names...)
		vals := make([]term.Term, len(vars))
		vals[0] = term.Num(0)
		var err error
		for i, val := range v.Vals {
			vals[i+1], err = r.resolve(val, fr)
			if err != nil {
				return nil, err
			}
		}
		newFr := &frame{formals: vars, parent: fr}
		body, err := r.resolve(v.Body, newFr)
		if err != nil {
			return nil, err
		}
		return term.Let{Vars: vars, Vals: vals, Body: body}, nil
	case form.Test:
		pred, err := r.resolve(v.Pred, fr)
		if err != nil {
			return nil, err
		}
		csq, err := r.resolve(v.Csq, fr)
		if err != nil {
			return nil, err
		}
		alt, err := r.resolve(v.Alt, fr)
		if err != nil {
			return nil, err
		}
		return term.Test{Pred: pred, Csq: csq, Alt: alt}, nil
	case form.Num:
		return term.Num(v), nil
	case form.Str:
		return term.Str(v), nil
	case form.Sym:
		return term.Sym(v.Name), nil
	case form.Prim:
		ref, ok := r.Prims.Lookup(v.Name)
		if !ok {
			return nil, fmt.Errorf("mlc: undefined primitive %q", v.Name)
		}
		return term.Prim(ref), nil
	default:
		return nil, fmt.Errorf("mlc: unresolvable form %T", f)
	}
}

func (r *Resolver) resolveVar(v form.Var, fr *frame) (term.Term, error) {
	if up, across, ok := fr.find(v.Name); ok {
		return term.Var{Up: up, Across: across, Name: v.Name}, nil
	}
	b, err := r.Env.Lookup(v.Name)
	if err != nil {
		if amb, ok := err.(*env.AmbiguousError); ok {
			return nil, amb
		}
		return nil, fmt.Errorf("mlc: undefined reference %q: %w", r.Syms.Name(v.Name), err)
	}
	if b.Kind == env.KindLifting {
		if b.Term == nil {
			return nil, env.ErrUndefinedHasNoSemantics
		}
		if !r.liftSeen[b.Index] {
			r.liftSeen[b.Index] = true
			r.lifted = append(r.lifted, b)
		}
	}
	return term.Constant{BinderRef: b.Index}, nil
}
