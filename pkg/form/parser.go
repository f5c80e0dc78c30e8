package form

import (
	"fmt"

	"github.com/vic/mlc/pkg/symtab"
)

// Parser is a recursive-descent reader for the textual syntax, grounded
// on pkg/lambda/parser.go's single-token-lookahead shape but generalized
// to n-ary abstractions, cells, tests, lets, and infix primitive sugar.
type Parser struct {
	lex  *lexer
	syms *symtab.Table
}

// NewParser returns a parser over src, interning identifiers with syms.
func NewParser(syms *symtab.Table, src string) *Parser {
	return &Parser{lex: newLexer(src), syms: syms}
}

// Parse reads a single top-level Form from src.
func Parse(syms *symtab.Table, src string) (f Form, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mlc: parse error: %v", r)
		}
	}()
	p := NewParser(syms, src)
	f = p.parseTerm()
	if p.lex.cur.kind != tEOF {
		return nil, fmt.Errorf("mlc: unexpected trailing input near %q", p.lex.cur.text)
	}
	return f, nil
}

func (p *Parser) expect(k tokenKind, what string) token {
	if p.lex.cur.kind != k {
		panic(fmt.Sprintf("expected %s, got %q", what, p.lex.cur.text))
	}
	t := p.lex.cur
	p.lex.advance()
	return t
}

func (p *Parser) intern(name string) symtab.Symbol {
	return p.syms.Intern(name)
}

// parseTerm ::= LetForm | PipeExpr
func (p *Parser) parseTerm() Form {
	if p.lex.cur.kind == tLet {
		return p.parseLet()
	}
	return p.parsePipe()
}

// parsePipe ::= InfixExpr ( ";" AppExpr )*
// "x; f" is postfix application sugar for "f (x)", left-associative, so
// "x; f; g" reads as "g (f (x))" — see spec.md §6's "x; f postfix" form.
func (p *Parser) parsePipe() Form {
	left := p.parseInfix()
	for p.lex.cur.kind == tSemi {
		p.lex.advance()
		fn := p.parseApp()
		left = App{Fun: fn, Args: []Form{left}}
	}
	return left
}

// parseLet ::= "let" "{" Ident ":=" Term ("." Ident ":=" Term)* "}" Term
func (p *Parser) parseLet() Form {
	p.expect(tLet, "let")
	p.expect(tLBrace, "{")
	var names []symtab.Symbol
	var vals []Form
	names = append(names, p.intern(p.expect(tIdent, "binding name").text))
	p.expect(tAssign, ":=")
	vals = append(vals, p.parseTerm())
	for p.lex.cur.kind == tDot {
		p.lex.advance()
		names = append(names, p.intern(p.expect(tIdent, "binding name").text))
		p.expect(tAssign, ":=")
		vals = append(vals, p.parseTerm())
	}
	p.expect(tRBrace, "}")
	body := p.parseTerm()
	return Let{Names: names, Vals: vals, Body: body}
}

// parseInfix ::= AppExpr ( opchar AppExpr )*, left-associative, single
// precedence tier: the arithmetic/comparison primitives read as ordinary
// binary applications.
func (p *Parser) parseInfix() Form {
	left := p.parseApp()
	for p.lex.cur.kind == tOp {
		op := p.lex.cur.text
		p.lex.advance()
		right := p.parseApp()
		left = App{Fun: Prim{Name: op}, Args: []Form{left, right}}
	}
	return left
}

// parseApp ::= Atom ( "(" Args ")" | "[" Abstraction "]" )*
// A bracketed abstraction directly following an atom is the "x [y. …]"
// postfix sugar of spec.md §6: the literal abstraction is applied to the
// term it trails, equivalent to "[y. …] (x)".
func (p *Parser) parseApp() Form {
	f := p.parseAtom()
	for {
		switch p.lex.cur.kind {
		case tLParen:
			p.lex.advance()
			var args []Form
			if p.lex.cur.kind != tRParen {
				args = append(args, p.parseTerm())
				for p.lex.cur.kind == tComma {
					p.lex.advance()
					args = append(args, p.parseTerm())
				}
			}
			p.expect(tRParen, ")")
			f = App{Fun: f, Args: args}
		case tLBracket:
			lit := p.parseBracket()
			f = App{Fun: lit, Args: []Form{f}}
		default:
			return f
		}
	}
}

func (p *Parser) parseAtom() Form {
	switch p.lex.cur.kind {
	case tNumber:
		n := p.lex.cur.num
		p.lex.advance()
		return Num(n)
	case tString:
		s := p.lex.cur.text
		p.lex.advance()
		return Str(s)
	case tHash:
		name := p.lex.cur.text
		p.lex.advance()
		return Sym{Name: p.intern(name)}
	case tQuote:
		name := p.lex.cur.text
		p.lex.advance()
		return Prim{Name: name}
	case tIdent:
		name := p.lex.cur.text
		p.lex.advance()
		return Var{Name: p.intern(name)}
	case tLParen:
		p.lex.advance()
		t := p.parseTerm()
		p.expect(tRParen, ")")
		return t
	case tLBracket:
		return p.parseBracket()
	default:
		panic(fmt.Sprintf("unexpected token %q", p.lex.cur.text))
	}
}

// parseBracket disambiguates the four bracketed forms: abstraction,
// fixpoint, cell and test, all of which begin with '['.
func (p *Parser) parseBracket() Form {
	p.expect(tLBracket, "[")

	if p.lex.cur.kind == tIdent {
		save := p.lex.save()
		name := p.lex.cur.text
		p.lex.advance()
		switch p.lex.cur.kind {
		case tBang:
			p.lex.advance()
			self := p.intern(name)
			formals := p.parseFormalList()
			p.expect(tDot, ".")
			body := p.parseTerm()
			p.expect(tRBracket, "]")
			return Fix{Self: self, Formals: formals, Body: body}
		case tComma, tDot:
			formals := []symtab.Symbol{p.intern(name)}
			for p.lex.cur.kind == tComma {
				p.lex.advance()
				formals = append(formals, p.intern(p.expect(tIdent, "formal name").text))
			}
			p.expect(tDot, ".")
			body := p.parseTerm()
			p.expect(tRBracket, "]")
			return Abs{Formals: formals, Body: body}
		default:
			p.lex.restore(save)
		}
	}

	first := p.parseTerm()
	switch p.lex.cur.kind {
	case tQuestion:
		p.lex.advance()
		csq := p.parseTerm()
		p.expect(tPipe, "|")
		alt := p.parseTerm()
		p.expect(tRBracket, "]")
		return Test{Pred: first, Csq: csq, Alt: alt}
	case tPipe:
		elts := []Form{first}
		for p.lex.cur.kind == tPipe {
			p.lex.advance()
			elts = append(elts, p.parseTerm())
		}
		p.expect(tRBracket, "]")
		return Cell{Elts: elts}
	default:
		p.expect(tRBracket, "]")
		return first
	}
}

func (p *Parser) parseFormalList() []symtab.Symbol {
	var formals []symtab.Symbol
	if p.lex.cur.kind == tIdent {
		formals = append(formals, p.intern(p.lex.cur.text))
		p.lex.advance()
		for p.lex.cur.kind == tComma {
			p.lex.advance()
			formals = append(formals, p.intern(p.expect(tIdent, "formal name").text))
		}
	}
	return formals
}
