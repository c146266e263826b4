package parser

import (
	"civl/internal/ast"
)

// binaryPrecedence ranks every infix operator; higher binds tighter.
// IMPLIES and IFF sit below the boolean connectives since specification
// expressions chain them loosely: "a && b ==> c".
var binaryPrecedence = map[TokenType]int{
	IFF:           1,
	IMPLIES:       2,
	OR:            3,
	AND:           4,
	EQUAL_EQUAL:   5,
	BANG_EQUAL:    5,
	LESS:          6,
	LESS_EQUAL:    6,
	GREATER:       6,
	GREATER_EQUAL: 6,
	PLUS:          7,
	MINUS:         7,
	STAR:          8,
	SLASH:         8,
	PERCENT:       8,
}

func (p *Parser) parsePrattExpr(minPrec int) ast.Expr {
	left := p.parsePrefixExpr()

	for {
		tok := p.peek()
		prec, ok := binaryPrecedence[tok.Type]
		if !ok || prec < minPrec {
			break
		}
		p.advance()
		right := p.parsePrattExpr(prec + 1)
		left = &ast.BinaryExpr{
			Pos: left.NodePos(), EndPos: right.NodeEndPos(),
			Op: tok.Lexeme, Left: left, Right: right,
		}
	}
	return left
}

func (p *Parser) parsePrefixExpr() ast.Expr {
	switch p.peek().Type {
	case MINUS, BANG:
		tok := p.advance()
		value := p.parsePrefixExpr()
		return &ast.UnaryExpr{Pos: p.makePos(tok), EndPos: value.NodeEndPos(), Op: tok.Lexeme, Value: value}
	case AMPERSAND:
		tok := p.advance()
		mut := p.match(MUT)
		value := p.parsePrefixExpr()
		return &ast.UnaryExpr{Pos: p.makePos(tok), EndPos: value.NodeEndPos(), Op: "&", Value: value, Mut: mut}
	case STAR:
		tok := p.advance()
		value := p.parsePrefixExpr()
		return &ast.UnaryExpr{Pos: p.makePos(tok), EndPos: value.NodeEndPos(), Op: "*", Value: value}
	default:
		return p.parsePostfixExpr(p.parsePrimaryExpr())
	}
}

func (p *Parser) parsePostfixExpr(expr ast.Expr) ast.Expr {
	for {
		switch p.peek().Type {
		case DOT:
			p.advance()
			field, ok := p.consumeIdent("expected field name after '.'")
			if !ok {
				return expr
			}
			expr = &ast.FieldAccessExpr{Pos: expr.NodePos(), EndPos: field.EndPos, Target: expr, Field: field.Value}
		case LEFT_PAREN:
			p.advance()
			args := p.parseExprList(RIGHT_PAREN)
			end := p.consume(RIGHT_PAREN, "expected ')' to close call arguments")
			expr = &ast.CallExpr{Pos: expr.NodePos(), EndPos: p.makeEndPos(end), Callee: expr, Args: args}
		case LEFT_BRACKET:
			p.advance()
			index := p.parsePrattExpr(0)
			end := p.consume(RIGHT_BRACKET, "expected ']' to close index expression")
			expr = &ast.IndexExpr{Pos: expr.NodePos(), EndPos: p.makeEndPos(end), Target: expr, Index: index}
		default:
			return expr
		}
	}
}

func (p *Parser) parseExprList(terminator TokenType) []ast.Expr {
	var exprs []ast.Expr
	if p.check(terminator) {
		return exprs
	}
	exprs = append(exprs, p.parsePrattExpr(0))
	for p.match(COMMA) {
		if p.check(terminator) {
			break
		}
		exprs = append(exprs, p.parsePrattExpr(0))
	}
	return exprs
}

func (p *Parser) parsePrimaryExpr() ast.Expr {
	tok := p.peek()

	switch tok.Type {
	case NUMBER, HEX_NUMBER:
		p.advance()
		return &ast.LiteralExpr{Pos: p.makePos(tok), EndPos: p.makeEndPos(tok), Value: tok.Lexeme, Kind: ast.IntLiteral}
	case TRUE, FALSE:
		p.advance()
		return &ast.LiteralExpr{Pos: p.makePos(tok), EndPos: p.makeEndPos(tok), Value: tok.Lexeme, Kind: ast.BoolLiteral}
	case STRING:
		p.advance()
		return &ast.LiteralExpr{Pos: p.makePos(tok), EndPos: p.makeEndPos(tok), Value: tok.Lexeme, Kind: ast.StringLiteral}

	case OLD, PUBLIC_OLD:
		return p.parseOldExpr()
	case FORALL:
		return p.parseQuantifierExpr()

	case LEFT_PAREN:
		return p.parseParenOrTupleExpr()

	case IDENTIFIER:
		return p.parseIdentOrPathOrStructLiteral()

	default:
		p.advance()
		p.errorAtCurrent("expected expression")
		return &ast.BadExpr{Pos: p.makePos(tok), EndPos: p.makeEndPos(tok), Message: "expected expression, got " + tok.Lexeme}
	}
}

func (p *Parser) parseOldExpr() ast.Expr {
	tok := p.advance()
	public := tok.Type == PUBLIC_OLD
	p.consume(LEFT_PAREN, "expected '(' after old")
	value := p.parsePrattExpr(0)
	end := p.consume(RIGHT_PAREN, "expected ')' to close old(...)")
	return &ast.OldExpr{Pos: p.makePos(tok), EndPos: p.makeEndPos(end), Value: value, Public: public}
}

// parseQuantifierExpr parses "forall(x: T, y: U, body)" where every
// comma-separated element but the last is a typed binder and the last is
// the quantifier body expression.
func (p *Parser) parseQuantifierExpr() ast.Expr {
	tok := p.advance()
	p.consume(LEFT_PAREN, "expected '(' after forall")

	var binders []*ast.FunctionParam
	for {
		if p.check(IDENTIFIER) && p.peekAheadIsColon() {
			name, _ := p.consumeIdent("expected binder name")
			p.consume(COLON, "expected ':' after binder name")
			vt := p.parseType()
			binders = append(binders, &ast.FunctionParam{Pos: name.Pos, EndPos: vt.EndPos, Name: name, Type: vt})
			p.consume(COMMA, "expected ',' after quantifier binder")
			continue
		}
		break
	}

	body := p.parsePrattExpr(0)
	end := p.consume(RIGHT_PAREN, "expected ')' to close forall(...)")
	return &ast.QuantifierExpr{Pos: p.makePos(tok), EndPos: p.makeEndPos(end), Binders: binders, Body: body}
}

func (p *Parser) peekAheadIsColon() bool {
	return p.current+1 < len(p.tokens) && p.tokens[p.current+1].Type == COLON
}

func (p *Parser) parseParenOrTupleExpr() ast.Expr {
	start := p.advance()
	if p.match(RIGHT_PAREN) {
		return &ast.TupleExpr{Pos: p.makePos(start), EndPos: p.makeEndPos(p.previous())}
	}

	first := p.parsePrattExpr(0)
	if p.match(COMMA) {
		elems := []ast.Expr{first}
		for !p.check(RIGHT_PAREN) {
			elems = append(elems, p.parsePrattExpr(0))
			if !p.match(COMMA) {
				break
			}
		}
		end := p.consume(RIGHT_PAREN, "expected ')' to close tuple")
		return &ast.TupleExpr{Pos: p.makePos(start), EndPos: p.makeEndPos(end), Elements: elems}
	}

	end := p.consume(RIGHT_PAREN, "expected ')' to close parenthesized expression")
	return &ast.ParenExpr{Pos: p.makePos(start), EndPos: p.makeEndPos(end), Value: first}
}

// parseIdentOrPathOrStructLiteral parses a bare identifier, a "::"
// qualified path, an optional "<...>" generic argument list, and any of
// the dispatching forms that follow: a call, or a struct literal.
func (p *Parser) parseIdentOrPathOrStructLiteral() ast.Expr {
	first := p.advance()
	var path *ast.CalleePath
	parts := []ast.Ident{p.makeIdent(first)}

	for p.match(DOUBLE_COLON) {
		id, ok := p.consumeIdent("expected identifier after '::'")
		if !ok {
			break
		}
		parts = append(parts, id)
	}

	var base ast.Expr
	if len(parts) > 1 {
		path = &ast.CalleePath{Pos: p.makePos(first), EndPos: parts[len(parts)-1].EndPos, Parts: parts}
		base = path
	} else {
		base = &ast.IdentExpr{Pos: p.makePos(first), EndPos: p.makeEndPos(first), Name: first.Lexeme}
	}

	var generics []*ast.VariableType
	if p.check(LESS) && p.looksLikeGenericArgs() {
		generics = p.parseGenericTypeArgs()
	}

	if p.check(LEFT_BRACE) && p.canStartStructLiteral() {
		return p.parseStructLiteralExpr(parts)
	}

	if len(generics) > 0 && p.check(LEFT_PAREN) {
		p.advance()
		args := p.parseExprList(RIGHT_PAREN)
		end := p.consume(RIGHT_PAREN, "expected ')' to close call arguments")
		return &ast.CallExpr{Pos: base.NodePos(), EndPos: p.makeEndPos(end), Callee: base, Generic: generics, Args: args}
	}

	return base
}

// looksLikeGenericArgs disambiguates "Foo<Bar>(...)" generic calls from a
// stray less-than comparison; a generic arg list is always immediately
// followed by a call's opening paren.
func (p *Parser) looksLikeGenericArgs() bool {
	depth := 0
	for i := p.current; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case LESS:
			depth++
		case GREATER:
			depth--
			if depth == 0 {
				return i+1 < len(p.tokens) && p.tokens[i+1].Type == LEFT_PAREN
			}
		case SEMICOLON, LEFT_BRACE, RIGHT_PAREN, EOF:
			return false
		}
	}
	return false
}

func (p *Parser) parseGenericTypeArgs() []*ast.VariableType {
	p.consume(LESS, "expected '<'")
	var types []*ast.VariableType
	if !p.check(GREATER) {
		types = append(types, p.parseType())
		for p.match(COMMA) {
			types = append(types, p.parseType())
		}
	}
	p.consume(GREATER, "expected '>' to close generic argument list")
	return types
}

// canStartStructLiteral guards against mistaking an if/for condition's
// trailing brace for a struct literal: "Field: expr" or an immediate "}"
// following the brace distinguishes a literal from a block.
func (p *Parser) canStartStructLiteral() bool {
	next := p.current + 1
	if next >= len(p.tokens) {
		return false
	}
	if p.tokens[next].Type == RIGHT_BRACE {
		return true
	}
	return p.tokens[next].Type == IDENTIFIER && next+1 < len(p.tokens) && p.tokens[next+1].Type == COLON
}

func (p *Parser) parseStructLiteralExpr(parts []ast.Ident) ast.Expr {
	start := p.makePos(p.tokens[p.current-1])
	name := parts[len(parts)-1].Value
	p.consume(LEFT_BRACE, "expected '{' to open struct literal")

	var fields []*ast.StructLiteralField
	for !p.check(RIGHT_BRACE) && !p.isAtEnd() {
		fname, ok := p.consumeIdent("expected field name")
		if !ok {
			break
		}
		var value ast.Expr
		if p.match(COLON) {
			value = p.parsePrattExpr(0)
		} else {
			value = &ast.IdentExpr{Pos: fname.Pos, EndPos: fname.EndPos, Name: fname.Value}
		}
		fields = append(fields, &ast.StructLiteralField{Pos: fname.Pos, EndPos: value.NodeEndPos(), Name: fname, Value: value})
		if !p.match(COMMA) {
			break
		}
	}

	end := p.consume(RIGHT_BRACE, "expected '}' to close struct literal")
	return &ast.StructLiteralExpr{Pos: start, EndPos: p.makeEndPos(end), Name: name, Fields: fields}
}
