// Package form holds the pre-resolution syntax tree: what a reader
// produces directly from source text, before names are turned into De
// Bruijn variables or global constant references. Modeled on
// pkg/lambda/ast.go's tagged-union Term, split out as its own stage
// because resolution here is richer (namespaces, lifting) than the
// teacher's single-pass context walk.
package form

import "github.com/vic/mlc/pkg/symtab"

// Form is the tagged union of surface syntax nodes.
type Form interface {
	isForm()
}

// Var is an unresolved identifier: could become a local Var, a global
// Constant, or a Lifting reference once the resolver consults both the
// local binder stack and the active global environment.
type Var struct {
	Name symtab.Symbol
}

// Abs is a surface n-ary abstraction, non-recursive.
type Abs struct {
	Formals []symtab.Symbol
	Body    Form
}

// Fix is a surface n-ary abstraction whose Self name is a
// self-reference usable within Body; Formals holds only the other
// formals.
type Fix struct {
	Self    symtab.Symbol
	Formals []symtab.Symbol
	Body    Form
}

// App is a surface application.
type App struct {
	Fun  Form
	Args []Form
}

// Cell is a surface fixed-size product.
type Cell struct {
	Elts []Form
}

// Let is a surface sequence of bindings followed by a body.
type Let struct {
	Names []symtab.Symbol
	Vals  []Form
	Body  Form
}

// Test is a surface conditional.
type Test struct {
	Pred, Csq, Alt Form
}

// Num is a surface number literal.
type Num float64

// Str is a surface string literal.
type Str string

// Sym is a surface symbol literal, `#name`.
type Sym struct {
	Name symtab.Symbol
}

// Prim is a surface primitive reference by name, `'name'`.
type Prim struct {
	Name string
}

func (Var) isForm()  {}
func (Abs) isForm()  {}
func (Fix) isForm()  {}
func (App) isForm()  {}
func (Cell) isForm() {}
func (Let) isForm()  {}
func (Test) isForm() {}
func (Num) isForm()  {}
func (Str) isForm()  {}
func (Sym) isForm()  {}
func (Prim) isForm() {}
