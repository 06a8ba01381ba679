package parser

import (
	"fmt"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
)

// ParseError reports a syntax problem at a source location.
type ParseError struct {
	Message string
	Pos     ast.Pos
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

type parser struct {
	toks []token
	pos  int
}

// Parse compiles FHIRPath expression text into an AST.
func Parse(src string) (ast.Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, &ParseError{Message: err.Error(), Pos: ast.Pos{Line: 1, Column: 1}}
	}
	p := &parser{toks: toks}
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, p.errorf("unexpected trailing input %q", p.cur().text)
	}
	return node, nil
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) peekN(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...interface{}) error {
	t := p.cur()
	return &ParseError{Message: fmt.Sprintf(format, args...), Pos: ast.NewPos(t.line, t.col, t.offset)}
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	if p.cur().kind != k {
		return token{}, p.errorf("expected %s, found %q", what, p.cur().text)
	}
	return p.advance(), nil
}

func (p *parser) isKeyword(word string) bool {
	return p.cur().kind == tokIdent && p.cur().text == word
}

func (p *parser) isOp(sym string) bool {
	return p.cur().kind == tokOp && p.cur().text == sym
}

// parseExpression is the entry point: lowest precedence is `implies` (right
// associative), per spec §3.4.
func (p *parser) parseExpression() (ast.Node, error) {
	return p.parseImplies()
}

func (p *parser) parseImplies() (ast.Node, error) {
	lhs, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.isKeyword("implies") {
		pos := p.cur().Position()
		p.advance()
		rhs, err := p.parseImplies() // right-associative
		if err != nil {
			return nil, err
		}
		return ast.BinaryOp{Pos: pos, Op: "implies", LHS: lhs, RHS: rhs}, nil
	}
	return lhs, nil
}

func (t token) Position() ast.Pos { return ast.NewPos(t.line, t.col, t.offset) }

func (p *parser) parseOr() (ast.Node, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") || p.isKeyword("xor") {
		op := p.advance().text
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = ast.BinaryOp{Op: op, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseAnd() (ast.Node, error) {
	lhs, err := p.parseMembership()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		p.advance()
		rhs, err := p.parseMembership()
		if err != nil {
			return nil, err
		}
		lhs = ast.BinaryOp{Op: "and", LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseMembership() (ast.Node, error) {
	lhs, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("in") || p.isKeyword("contains") {
		op := p.advance().text
		rhs, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		lhs = ast.BinaryOp{Op: op, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseEquality() (ast.Node, error) {
	lhs, err := p.parseInequality()
	if err != nil {
		return nil, err
	}
	for p.isOp("=") || p.isOp("!=") || p.isOp("~") || p.isOp("!~") {
		op := p.advance().text
		rhs, err := p.parseInequality()
		if err != nil {
			return nil, err
		}
		lhs = ast.BinaryOp{Op: op, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseInequality() (ast.Node, error) {
	lhs, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	for p.isOp("<") || p.isOp("<=") || p.isOp(">") || p.isOp(">=") {
		op := p.advance().text
		rhs, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		lhs = ast.BinaryOp{Op: op, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseTypeExpr() (ast.Node, error) {
	lhs, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("is") || p.isKeyword("as") {
		kw := p.advance().text
		typeName, err := p.parseQualifiedTypeName()
		if err != nil {
			return nil, err
		}
		if kw == "is" {
			lhs = ast.TypeCheck{Expr: lhs, TypeName: typeName}
		} else {
			lhs = ast.TypeCast{Expr: lhs, TypeName: typeName}
		}
	}
	return lhs, nil
}

func (p *parser) parseQualifiedTypeName() (string, error) {
	if p.cur().kind != tokIdent && p.cur().kind != tokBacktickIdent {
		return "", p.errorf("expected type name, found %q", p.cur().text)
	}
	name := p.advance().text
	for p.cur().kind == tokDot {
		p.advance()
		if p.cur().kind != tokIdent && p.cur().kind != tokBacktickIdent {
			return "", p.errorf("expected type name segment, found %q", p.cur().text)
		}
		name = name + "." + p.advance().text
	}
	return name, nil
}

func (p *parser) parseUnion() (ast.Node, error) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.isOp("|") {
		p.advance()
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		lhs = ast.Union{LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseAdditive() (ast.Node, error) {
	lhs, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") || p.isOp("&") {
		op := p.advance().text
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		lhs = ast.BinaryOp{Op: op, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseMultiplicative() (ast.Node, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") || p.isOp("/") || p.isKeyword("div") || p.isKeyword("mod") {
		op := p.advance().text
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = ast.BinaryOp{Op: op, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseUnary() (ast.Node, error) {
	switch {
	case p.isOp("+"):
		pos := p.cur().Position()
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnaryOp{Pos: pos, Op: ast.UnaryPlus, Operand: operand}, nil
	case p.isOp("-"):
		pos := p.cur().Position()
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnaryOp{Pos: pos, Op: ast.UnaryMinus, Operand: operand}, nil
	case p.isKeyword("not"):
		pos := p.cur().Position()
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnaryOp{Pos: pos, Op: ast.UnaryNot, Operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles `.`-navigation, `[]` indexing, and chained calls,
// all left-associative and binding tighter than the binary operators above.
func (p *parser) parsePostfix() (ast.Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.cur().kind == tokDot:
			p.advance()
			name, args, isCall, err := p.parseMemberOrCall()
			if err != nil {
				return nil, err
			}
			if isCall {
				node = ast.MethodCall{Receiver: node, Name: name, Args: args}
			} else {
				node = ast.Path{Base: node, Segment: ast.Identifier{Name: name}}
			}
		case p.cur().kind == tokLBracket:
			p.advance()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket, "]"); err != nil {
				return nil, err
			}
			node = ast.Index{Base: node, Index: idx}
		default:
			return node, nil
		}
	}
}

// parseMemberOrCall parses the segment following '.': either a bare member
// name or a `name(args)` call. Returns isCall=true for the latter.
func (p *parser) parseMemberOrCall() (name string, args []ast.Node, isCall bool, err error) {
	if p.cur().kind != tokIdent && p.cur().kind != tokBacktickIdent {
		return "", nil, false, p.errorf("expected identifier after '.', found %q", p.cur().text)
	}
	name = p.advance().text
	if p.cur().kind == tokLParen {
		args, err = p.parseArgList()
		if err != nil {
			return "", nil, false, err
		}
		return name, args, true, nil
	}
	return name, nil, false, nil
}

func (p *parser) parseArgList() ([]ast.Node, error) {
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	var args []ast.Node
	if p.cur().kind != tokRParen {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) parsePrimary() (ast.Node, error) {
	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.advance()
		kind := ast.LitInteger
		for _, ch := range t.text {
			if ch == '.' {
				kind = ast.LitDecimal
				break
			}
		}
		lit := ast.Literal{Pos: t.Position(), Kind: kind, Text: t.text}
		return p.maybeQuantity(lit), nil
	case tokString:
		p.advance()
		return ast.Literal{Pos: t.Position(), Kind: ast.LitString, Str: t.text}, nil
	case tokDate:
		p.advance()
		return ast.Literal{Pos: t.Position(), Kind: ast.LitDate, Text: t.text}, nil
	case tokDateTime:
		p.advance()
		return ast.Literal{Pos: t.Position(), Kind: ast.LitDateTime, Text: t.text}, nil
	case tokTime:
		p.advance()
		return ast.Literal{Pos: t.Position(), Kind: ast.LitTime, Text: t.text}, nil
	case tokVariable:
		p.advance()
		return ast.Variable{Pos: t.Position(), Name: t.text}, nil
	case tokThis:
		p.advance()
		return ast.Variable{Pos: t.Position(), Name: "this"}, nil
	case tokIndexVar:
		p.advance()
		return ast.Variable{Pos: t.Position(), Name: "index"}, nil
	case tokTotalVar:
		p.advance()
		return ast.Variable{Pos: t.Position(), Name: "total"}, nil
	case tokLParen:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokOp:
		if t.text == "{}" {
			p.advance()
			return ast.Literal{Pos: t.Position(), Kind: ast.LitNull}, nil
		}
	case tokBacktickIdent:
		p.advance()
		if p.cur().kind == tokLParen {
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			return ast.FunctionCall{Name: t.text, Args: args}, nil
		}
		return ast.Identifier{Pos: t.Position(), Name: t.text, Backtick: true}, nil
	case tokIdent:
		switch t.text {
		case "true":
			p.advance()
			return ast.Literal{Pos: t.Position(), Kind: ast.LitBool, Bool: true}, nil
		case "false":
			p.advance()
			return ast.Literal{Pos: t.Position(), Kind: ast.LitBool, Bool: false}, nil
		}
		p.advance()
		if p.cur().kind == tokLParen {
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			return ast.FunctionCall{Name: t.text, Args: args}, nil
		}
		return ast.Identifier{Pos: t.Position(), Name: t.text}, nil
	}
	return nil, p.errorf("unexpected token %q", t.text)
}

// maybeQuantity looks ahead for a unit suffix (a bare calendar-duration
// word like "days", or a quoted UCUM unit) following a numeric literal, per FHIRPath quantity
// literal syntax: `4 'mg'` or `4 days`.
func (p *parser) maybeQuantity(lit ast.Literal) ast.Node {
	if p.cur().kind == tokString {
		unit := p.advance().text
		lit.Kind = ast.LitQuantity
		lit.Unit = unit
		return lit
	}
	if p.cur().kind == tokIdent {
		switch p.cur().text {
		case "year", "years", "month", "months", "week", "weeks", "day", "days",
			"hour", "hours", "minute", "minutes", "second", "seconds",
			"millisecond", "milliseconds":
			unit := p.advance().text
			lit.Kind = ast.LitQuantity
			lit.Unit = unit
			return lit
		}
	}
	return lit
}

