// Package term implements the immutable tree term model: closed terms
// over binders, applications, tests, cells, primitives, numbers, strings,
// symbols, De Bruijn (up,across) variables and global constants. Modeled
// on pkg/lambda/ast.go's tagged-union Term, generalized to a richer
// variant set.
package term

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vic/mlc/pkg/symtab"
)

// Term is the immutable tagged union of term variants. Constructors take
// ownership of their Symbol and child Term slices; callers must not
// mutate a slice after passing it to a constructor.
type Term interface {
	isTerm()
}

// Abs is an n-ary abstraction. Formals[0] is the conventional self-slot,
// symtab.Empty unless the abstraction is a Fix.
type Abs struct {
	Formals []symtab.Symbol
	Body    Term
}

// Fix is a recursive abstraction; Formals[0] holds the self name.
type Fix struct {
	Formals []symtab.Symbol
	Body    Term
}

// App is an n-ary application, possibly with zero arguments (resolution
// collapses zero-arg applications into their function, so a zero-arg App
// should not appear in a resolved term, but the constructor permits it).
type App struct {
	Fun  Term
	Args []Term
}

// Cell is a fixed-size product.
type Cell struct {
	Elts []Term
}

// Let binds one or more names. Vars[0] is reserved/undefined;
// Vals[1:] are the actual definitions, Vals[0] is a placeholder.
type Let struct {
	Vars []symtab.Symbol
	Vals []Term
	Body Term
}

// Test is a conditional: if Pred reduces to the canonical True value,
// Csq is taken; if it reduces to False, Alt is taken; any other
// predicate value leaves the test stuck.
type Test struct {
	Pred Term
	Csq  Term
	Alt  Term
}

// Var is a local variable. Up counts enclosing binders to skip, Across
// indexes into that binder's formals. Name is informational only.
type Var struct {
	Up     int
	Across int
	Name   symtab.Symbol
}

// Constant is a reference to a global environment binder by index.
type Constant struct {
	BinderRef int
}

// Num is a floating point literal.
type Num float64

// Str is a string literal.
type Str string

// Sym is a symbol literal (distinct from a Var: it denotes the symbol
// value itself, e.g. `#ok`).
type Sym symtab.Symbol

// Prim is a direct reference to a primitive operation by registry index.
type Prim int

// Pruned marks a readback leaf truncated by the unsharing bound.
type Pruned struct{}

func (Abs) isTerm()      {}
func (Fix) isTerm()      {}
func (App) isTerm()      {}
func (Cell) isTerm()     {}
func (Let) isTerm()      {}
func (Test) isTerm()     {}
func (Var) isTerm()      {}
func (Constant) isTerm() {}
func (Num) isTerm()      {}
func (Str) isTerm()      {}
func (Sym) isTerm()      {}
func (Prim) isTerm()     {}
func (Pruned) isTerm()   {}

// ConstantNamer resolves a binder reference to a printable name, so the
// term package need not import the global environment package.
type ConstantNamer interface {
	ConstantName(ref int) string
}

// PrimNamer resolves a primitive reference to a printable name, so the
// term package need not import the primitive registry package.
type PrimNamer interface {
	PrimName(ref int) string
}

// Printer renders terms using the core's textual syntax.
type Printer struct {
	Syms   *symtab.Table
	Consts ConstantNamer
	Prims  PrimNamer
}

// Print renders t. Symbols/constants/primitives print as opaque
// placeholders when the corresponding namer is nil.
func (p Printer) Print(t Term) string {
	var b strings.Builder
	p.print(&b, t)
	return b.String()
}

func (p Printer) symName(s symtab.Symbol) string {
	if p.Syms == nil {
		return fmt.Sprintf("s%d", s)
	}
	return p.Syms.Name(s)
}

func (p Printer) print(b *strings.Builder, t Term) {
	switch v := t.(type) {
	case Abs:
		b.WriteByte('[')
		p.printFormals(b, v.Formals, false)
		b.WriteString(". ")
		p.print(b, v.Body)
		b.WriteByte(']')
	case Fix:
		b.WriteByte('[')
		p.printFormals(b, v.Formals, true)
		b.WriteString(". ")
		p.print(b, v.Body)
		b.WriteByte(']')
	case App:
		p.print(b, v.Fun)
		b.WriteString(" (")
		for i, a := range v.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			p.print(b, a)
		}
		b.WriteByte(')')
	case Cell:
		b.WriteByte('[')
		for i, e := range v.Elts {
			if i > 0 {
				b.WriteString(" | ")
			}
			p.print(b, e)
		}
		b.WriteByte(']')
	case Let:
		b.WriteString("let {")
		for i := 1; i < len(v.Vars); i++ {
			if i > 1 {
				b.WriteString(". ")
			}
			b.WriteString(p.symName(v.Vars[i]))
			b.WriteString(" := ")
			p.print(b, v.Vals[i])
		}
		b.WriteString("} ")
		p.print(b, v.Body)
	case Test:
		b.WriteByte('[')
		p.print(b, v.Pred)
		b.WriteString(" ? ")
		p.print(b, v.Csq)
		b.WriteString(" | ")
		p.print(b, v.Alt)
		b.WriteByte(']')
	case Var:
		b.WriteString(p.symName(v.Name))
		b.WriteByte('<')
		b.WriteString(strconv.Itoa(v.Up))
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(v.Across))
		b.WriteByte('>')
	case Constant:
		name := fmt.Sprintf("const%d", v.BinderRef)
		if p.Consts != nil {
			name = p.Consts.ConstantName(v.BinderRef)
		}
		b.WriteString(name)
		b.WriteByte('<')
		b.WriteString(strconv.Itoa(v.BinderRef))
		b.WriteByte('>')
	case Num:
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 64))
	case Str:
		b.WriteByte('"')
		b.WriteString(string(v))
		b.WriteByte('"')
	case Sym:
		b.WriteByte('#')
		b.WriteString(p.symName(symtab.Symbol(v)))
	case Prim:
		name := fmt.Sprintf("prim%d", int(v))
		if p.Prims != nil {
			name = p.Prims.PrimName(int(v))
		}
		b.WriteByte('\'')
		b.WriteString(name)
		b.WriteByte('\'')
	case Pruned:
		b.WriteString("$pruned")
	default:
		b.WriteString("<?>")
	}
}

func (p Printer) printFormals(b *strings.Builder, formals []symtab.Symbol, fix bool) {
	if fix {
		b.WriteString(p.symName(formals[0]))
		b.WriteString("! ")
		for i := 1; i < len(formals); i++ {
			if i > 1 {
				b.WriteString(", ")
			}
			b.WriteString(p.symName(formals[i]))
		}
		return
	}
	start := 0
	if formals[0] == symtab.Empty {
		start = 1
	} else {
		b.WriteString(p.symName(formals[0]))
		b.WriteString("! ")
	}
	for i := start; i < len(formals); i++ {
		if i > start {
			b.WriteString(", ")
		}
		b.WriteString(p.symName(formals[i]))
	}
}
