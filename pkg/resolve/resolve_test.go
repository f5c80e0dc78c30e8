package resolve_test

import (
	"errors"
	"testing"

	"github.com/vic/mlc/pkg/env"
	"github.com/vic/mlc/pkg/form"
	"github.com/vic/mlc/pkg/prim"
	"github.com/vic/mlc/pkg/resolve"
	"github.com/vic/mlc/pkg/symtab"
	"github.com/vic/mlc/pkg/term"
)

func TestResolveLocalVarBecomesDeBruijn(t *testing.T) {
	t.Parallel()
	syms := symtab.New()
	e := env.New(syms)
	prims := prim.Default()
	f, err := form.Parse(syms, `[x, y. y]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := resolve.New(syms, e, prims).Resolve(f)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	abs, ok := got.(term.Abs)
	if !ok {
		t.Fatalf("expected term.Abs, got %T", got)
	}
	v, ok := abs.Body.(term.Var)
	if !ok {
		t.Fatalf("expected term.Var body, got %T", abs.Body)
	}
	if v.Up != 0 || v.Across != 2 {
		t.Fatalf("expected Var(0,2) for the second formal, got Var(%d,%d)", v.Up, v.Across)
	}
}

func TestResolveOpaqueConstant(t *testing.T) {
	t.Parallel()
	syms := symtab.New()
	e := env.New(syms)
	prims := prim.Default()
	space := syms.Intern("core")
	name := syms.Intern("k")
	b := e.Bind(name, space, env.KindOpaque)
	e.Activate(space)

	f, err := form.Parse(syms, `k`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := resolve.New(syms, e, prims).Resolve(f)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	c, ok := got.(term.Constant)
	if !ok || c.BinderRef != b.Index {
		t.Fatalf("expected Constant(%d), got %#v", b.Index, got)
	}
}

func TestResolveUndefinedReferenceIsAnError(t *testing.T) {
	t.Parallel()
	syms := symtab.New()
	e := env.New(syms)
	prims := prim.Default()
	f, err := form.Parse(syms, `nope`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := resolve.New(syms, e, prims).Resolve(f); err == nil {
		t.Fatalf("expected an error resolving an undefined reference")
	}
}

func TestResolveAmbiguousReferenceSurfacesAmbiguousError(t *testing.T) {
	t.Parallel()
	syms := symtab.New()
	e := env.New(syms)
	prims := prim.Default()
	name := syms.Intern("dup")
	s1, s2 := syms.Intern("a"), syms.Intern("b")
	e.Bind(name, s1, env.KindOpaque)
	e.Bind(name, s2, env.KindOpaque)
	e.Activate(s1)
	e.Activate(s2)

	f, err := form.Parse(syms, `dup`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = resolve.New(syms, e, prims).Resolve(f)
	var amb *env.AmbiguousError
	if !errors.As(err, &amb) {
		t.Fatalf("expected *env.AmbiguousError, got %v", err)
	}
}

func TestResolveUndefinedPrimInLiftingPositionIsHardError(t *testing.T) {
	t.Parallel()
	syms := symtab.New()
	e := env.New(syms)
	prims := prim.Default()
	space := syms.Intern("core")
	name := syms.Intern("broken")
	e.Bind(name, space, env.KindLifting) // Term left nil: the $undefined case
	e.Activate(space)

	f, err := form.Parse(syms, `broken`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = resolve.New(syms, e, prims).Resolve(f)
	if !errors.Is(err, env.ErrUndefinedHasNoSemantics) {
		t.Fatalf("expected ErrUndefinedHasNoSemantics, got %v", err)
	}
}

func TestResolveLiftingWrapsInSyntheticLet(t *testing.T) {
	t.Parallel()
	syms := symtab.New()
	e := env.New(syms)
	prims := prim.Default()
	space := syms.Intern("core")
	name := syms.Intern("lifted")
	b := e.Bind(name, space, env.KindLifting)
	b.Term = term.Num(99)
	e.Activate(space)

	f, err := form.Parse(syms, `lifted`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := resolve.New(syms, e, prims).Resolve(f)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	let, ok := got.(term.Let)
	if !ok {
		t.Fatalf("expected the result wrapped in a synthetic term.Let, got %T", got)
	}
	if len(let.Vals) != 2 || let.Vals[1] != term.Num(99) {
		t.Fatalf("expected the lifting binder's source term captured at Vals[1], got %#v", let.Vals)
	}
	if _, ok := let.Body.(term.Var); !ok {
		t.Fatalf("expected the reference itself rebound to a Var, got %T", let.Body)
	}
}
