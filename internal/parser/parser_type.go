package parser

import (
	"strconv"

	"civl/internal/ast"
)

// parseType parses a type reference: a named type with optional generic
// arguments ("Slots<Address, U256>", "Creator<Token>"), a fixed-size
// array ("[U256; 8]"), or a parenthesized tuple ("(U256, Address)").
func (p *Parser) parseType() *ast.VariableType {
	switch p.peek().Type {
	case LEFT_BRACKET:
		return p.parseArrayType()
	case LEFT_PAREN:
		return p.parseTupleType()
	default:
		return p.parseNamedType()
	}
}

func (p *Parser) parseArrayType() *ast.VariableType {
	start := p.advance() // consume '['
	elem := p.parseType()
	p.consume(SEMICOLON, "expected ';' in array type")
	lenTok := p.consume(NUMBER, "expected array length")
	length, err := strconv.Atoi(lenTok.Lexeme)
	if err != nil {
		length = 0
	}
	end := p.consume(RIGHT_BRACKET, "expected ']' to close array type")
	return &ast.VariableType{
		Pos: p.makePos(start), EndPos: p.makeEndPos(end),
		IsArray: true, ArrayLen: length, Generics: []*ast.VariableType{elem},
	}
}

func (p *Parser) parseTupleType() *ast.VariableType {
	start := p.advance() // consume '('
	var elems []*ast.VariableType
	if !p.check(RIGHT_PAREN) {
		elems = append(elems, p.parseType())
		for p.match(COMMA) {
			elems = append(elems, p.parseType())
		}
	}
	end := p.consume(RIGHT_PAREN, "expected ')' to close tuple type")
	return &ast.VariableType{
		Pos: p.makePos(start), EndPos: p.makeEndPos(end),
		Name: ast.Ident{Value: "tuple"}, TupleElements: elems,
	}
}

func (p *Parser) parseNamedType() *ast.VariableType {
	name, ok := p.consumeIdent("expected type name")
	if !ok {
		tok := p.peek()
		return &ast.VariableType{Pos: p.makePos(tok), EndPos: p.makeEndPos(tok), Name: ast.Ident{Value: "<error>"}}
	}

	vt := &ast.VariableType{Pos: name.Pos, EndPos: name.EndPos, Name: name}

	// Unlike expression position, a '<' right after a type name is never
	// ambiguous with comparison: always a generic argument list.
	if p.check(LESS) {
		generics := p.parseGenericTypeArgs()
		vt.Generics = generics
		vt.EndPos = p.makeEndPos(p.previous())
	}
	return vt
}
