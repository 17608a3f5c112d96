// Package parse reads the Datalog text format into an ast.Program. The
// surface covers relational predicates: facts, rules, negation, and
// functional constraints. Lattice interpretations carry Go function values
// and are declared through the API, not the text format.
//
//	edge(1, 2).
//	path(X, Z) :- path(X, Y), edge(Y, Z).
//	only(X)    :- s(X), !p(X).
//	big(N)     :- num(N), N > 10.
//	sum(Z)     :- a(X), b(Y), Z = plus(X, Y).
//
// Predicate arity is fixed by first use. Lowercase identifiers are
// constants (zero-argument constructors), uppercase identifiers are
// variables, `#` starts a line comment.
package parse

import (
	"fmt"
	"io"
	"strconv"

	"stratalog/internal/ast"
)

// Unit parses one source unit from r.
func Unit(r io.Reader, filename string) (*ast.Program, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return Program(string(src), filename)
}

// Program parses src into a program with inferred relational
// interpretations.
func Program(src, filename string) (*ast.Program, error) {
	p := &parser{
		lex: newLexer(src, filename),
		prog: &ast.Program{
			Interpretations: make(map[ast.Symbol]ast.Interpretation),
		},
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.prog, nil
}

// ---------------------------------------------------------------------------
// Lexer
// ---------------------------------------------------------------------------

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokVar
	tokInt
	tokString
	tokLParen
	tokRParen
	tokComma
	tokDot
	tokBang
	tokTurnstile // :-
	tokEq
	tokNe
	tokLt
	tokLe
	tokGt
	tokGe
)

type token struct {
	kind tokenKind
	text string
	span ast.Span
}

type lexer struct {
	src  string
	file string
	pos  int
	line int
	col  int
}

func newLexer(src, file string) *lexer {
	return &lexer{src: src, file: file, line: 1, col: 1}
}

func (l *lexer) span() ast.Span {
	return ast.Span{File: l.file, Line: l.line, Col: l.col}
}

func (l *lexer) errf(span ast.Span, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s", span, fmt.Sprintf(format, args...))
}

func (l *lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			l.advance()
			continue
		}
		if c == '#' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
			continue
		}
		return
	}
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	span := l.span()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, span: span}, nil
	}

	c := l.src[l.pos]
	switch {
	case isLetter(c):
		start := l.pos
		for l.pos < len(l.src) && (isLetter(l.src[l.pos]) || isDigit(l.src[l.pos])) {
			l.advance()
		}
		text := l.src[start:l.pos]
		kind := tokIdent
		if c >= 'A' && c <= 'Z' || c == '_' {
			kind = tokVar
		}
		return token{kind: kind, text: text, span: span}, nil

	case isDigit(c), c == '-' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]):
		start := l.pos
		l.advance()
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.advance()
		}
		return token{kind: tokInt, text: l.src[start:l.pos], span: span}, nil

	case c == '"':
		l.advance()
		var out []byte
		for {
			if l.pos >= len(l.src) {
				return token{}, l.errf(span, "unterminated string")
			}
			c := l.advance()
			if c == '"' {
				break
			}
			if c == '\\' {
				if l.pos >= len(l.src) {
					return token{}, l.errf(span, "unterminated string")
				}
				e := l.advance()
				switch e {
				case 'n':
					out = append(out, '\n')
				case 't':
					out = append(out, '\t')
				case '"', '\\':
					out = append(out, e)
				default:
					return token{}, l.errf(span, "unknown escape %q", string(e))
				}
				continue
			}
			out = append(out, c)
		}
		return token{kind: tokString, text: string(out), span: span}, nil
	}

	l.advance()
	switch c {
	case '(':
		return token{kind: tokLParen, span: span}, nil
	case ')':
		return token{kind: tokRParen, span: span}, nil
	case ',':
		return token{kind: tokComma, span: span}, nil
	case '.':
		return token{kind: tokDot, span: span}, nil
	case ':':
		if l.pos < len(l.src) && l.src[l.pos] == '-' {
			l.advance()
			return token{kind: tokTurnstile, span: span}, nil
		}
		return token{}, l.errf(span, "expected ':-'")
	case '=':
		return token{kind: tokEq, span: span}, nil
	case '!':
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.advance()
			return token{kind: tokNe, span: span}, nil
		}
		return token{kind: tokBang, span: span}, nil
	case '<':
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.advance()
			return token{kind: tokLe, span: span}, nil
		}
		return token{kind: tokLt, span: span}, nil
	case '>':
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.advance()
			return token{kind: tokGe, span: span}, nil
		}
		return token{kind: tokGt, span: span}, nil
	}
	return token{}, l.errf(span, "unexpected character %q", string(c))
}

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

var comparisonOps = map[tokenKind]ast.ConstraintOp{
	tokEq: ast.OpEq,
	tokNe: ast.OpNe,
	tokLt: ast.OpLt,
	tokLe: ast.OpLe,
	tokGt: ast.OpGt,
	tokGe: ast.OpGe,
}

var functionOps = map[string]ast.ConstraintOp{
	"plus":  ast.OpPlus,
	"minus": ast.OpMinus,
	"times": ast.OpTimes,
	"div":   ast.OpDiv,
}

type parser struct {
	lex  *lexer
	tok  token
	prog *ast.Program
}

func (p *parser) bump() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if p.tok.kind != kind {
		return token{}, p.lex.errf(p.tok.span, "expected %s", what)
	}
	t := p.tok
	return t, p.bump()
}

func (p *parser) run() error {
	if err := p.bump(); err != nil {
		return err
	}
	for p.tok.kind != tokEOF {
		if err := p.clause(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) clause() error {
	head, err := p.atom()
	if err != nil {
		return err
	}
	c := &ast.Clause{Head: head}

	switch p.tok.kind {
	case tokDot:
		if err := p.bump(); err != nil {
			return err
		}
		for _, t := range head.Args {
			if !ast.IsGround(t) {
				vs := ast.Vars(t, nil)
				return &ast.Error{Kind: ast.UnboundVariable, Sym: vs[0], Span: head.Span}
			}
		}
		p.prog.Facts = append(p.prog.Facts, c)
		return nil

	case tokTurnstile:
		if err := p.bump(); err != nil {
			return err
		}
		for {
			if err := p.bodyElement(c); err != nil {
				return err
			}
			if p.tok.kind == tokComma {
				if err := p.bump(); err != nil {
					return err
				}
				continue
			}
			break
		}
		if _, err := p.expect(tokDot, "'.'"); err != nil {
			return err
		}
		p.prog.Rules = append(p.prog.Rules, c)
		return nil
	}
	return p.lex.errf(p.tok.span, "expected '.' or ':-' after clause head")
}

// bodyElement parses one literal or constraint. A leading '!' marks
// negation; otherwise a term is parsed and the following token decides
// between a comparison constraint and a positive literal.
func (p *parser) bodyElement(c *ast.Clause) error {
	if p.tok.kind == tokBang {
		if err := p.bump(); err != nil {
			return err
		}
		a, err := p.atom()
		if err != nil {
			return err
		}
		c.Body = append(c.Body, ast.Literal{Atom: a, Negated: true})
		return nil
	}

	span := p.tok.span
	lhs, err := p.term()
	if err != nil {
		return err
	}

	op, isCmp := comparisonOps[p.tok.kind]
	if !isCmp {
		ct, ok := lhs.(ast.CtorTerm)
		if !ok {
			return p.lex.errf(span, "expected atom or constraint")
		}
		c.Body = append(c.Body, ast.Literal{
			Atom: p.toAtom(ct, span),
		})
		return nil
	}

	if err := p.bump(); err != nil {
		return err
	}
	rhs, err := p.term()
	if err != nil {
		return err
	}

	// Z = plus(X, Y) and plus(X, Y) = Z are function applications; the
	// result term goes last.
	if op == ast.OpEq {
		if fn, fnOp, ok := functionCall(rhs); ok {
			c.Constraints = append(c.Constraints, ast.Constraint{
				Op:   fnOp,
				Args: []ast.Term{fn.Args[0], fn.Args[1], lhs},
				Span: span,
			})
			return nil
		}
		if fn, fnOp, ok := functionCall(lhs); ok {
			c.Constraints = append(c.Constraints, ast.Constraint{
				Op:   fnOp,
				Args: []ast.Term{fn.Args[0], fn.Args[1], rhs},
				Span: span,
			})
			return nil
		}
	}

	c.Constraints = append(c.Constraints, ast.Constraint{
		Op:   op,
		Args: []ast.Term{lhs, rhs},
		Span: span,
	})
	return nil
}

func functionCall(t ast.Term) (ast.CtorTerm, ast.ConstraintOp, bool) {
	ct, ok := t.(ast.CtorTerm)
	if !ok || len(ct.Args) != 2 {
		return ast.CtorTerm{}, 0, false
	}
	op, ok := functionOps[ct.Name.Name()]
	if !ok {
		return ast.CtorTerm{}, 0, false
	}
	return ct, op, true
}

// toAtom converts a parsed constructor application into a body atom and
// records the predicate's inferred interpretation.
func (p *parser) toAtom(ct ast.CtorTerm, span ast.Span) ast.Atom {
	p.declare(ct.Name, len(ct.Args))
	return ast.Atom{Predicate: ct.Name, Args: ct.Args, Span: span}
}

func (p *parser) atom() (ast.Atom, error) {
	span := p.tok.span
	name, err := p.expect(tokIdent, "predicate name")
	if err != nil {
		return ast.Atom{}, err
	}
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return ast.Atom{}, err
	}
	args, err := p.termList()
	if err != nil {
		return ast.Atom{}, err
	}
	sym := ast.Intern(name.text)
	p.declare(sym, len(args))
	return ast.Atom{Predicate: sym, Args: args, Span: span}, nil
}

func (p *parser) declare(sym ast.Symbol, arity int) {
	if _, ok := p.prog.Interpretations[sym]; !ok {
		p.prog.Interpretations[sym] = ast.NewRelation(arity)
	}
}

func (p *parser) termList() ([]ast.Term, error) {
	var out []ast.Term
	if p.tok.kind == tokRParen {
		return nil, p.bump()
	}
	for {
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.tok.kind == tokComma {
			if err := p.bump(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *parser) term() (ast.Term, error) {
	tok := p.tok
	switch tok.kind {
	case tokVar:
		if err := p.bump(); err != nil {
			return nil, err
		}
		return ast.Var{Name: ast.Intern(tok.text)}, nil

	case tokInt:
		if err := p.bump(); err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return nil, p.lex.errf(tok.span, "integer out of range")
		}
		return ast.Const{Value: ast.Int64(n)}, nil

	case tokString:
		if err := p.bump(); err != nil {
			return nil, err
		}
		return ast.Const{Value: ast.Str(tok.text)}, nil

	case tokIdent:
		if err := p.bump(); err != nil {
			return nil, err
		}
		switch tok.text {
		case "true":
			return ast.Const{Value: ast.Bool(true)}, nil
		case "false":
			return ast.Const{Value: ast.Bool(false)}, nil
		}
		sym := ast.Intern(tok.text)
		if p.tok.kind != tokLParen {
			// Bare lowercase identifier: an enum constant.
			return ast.Const{Value: ast.Ctor{Name: sym}}, nil
		}
		if err := p.bump(); err != nil {
			return nil, err
		}
		args, err := p.termList()
		if err != nil {
			return nil, err
		}
		return ast.CtorTerm{Name: sym, Args: args}, nil
	}
	return nil, p.lex.errf(tok.span, "expected term")
}
