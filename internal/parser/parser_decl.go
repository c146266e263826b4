package parser

import "civl/internal/ast"

// parseContractItem dispatches on the next token to parse any top-level
// declaration: a doc comment, an attribute-prefixed struct, a decorated
// function, a use statement, or a specification declaration (resource,
// interface, ghost function, lemma).
func (p *Parser) parseContractItem() ast.ContractItem {
	if p.check(DOC_COMMENT) {
		tok := p.advance()
		return &ast.DocComment{Pos: p.makePos(tok), EndPos: p.makeEndPos(tok), Text: tok.Lexeme}
	}
	if p.check(COMMENT) {
		tok := p.advance()
		return &ast.Comment{Pos: p.makePos(tok), EndPos: p.makeEndPos(tok), Text: tok.Lexeme}
	}

	var attr *ast.Attribute
	var doc *ast.DocComment
	if p.check(POUND) {
		attr = p.parseAttribute()
	}

	switch p.peek().Type {
	case USE:
		return p.parseUse()
	case STRUCT:
		return p.parseStruct(attr, doc)
	case RESOURCE:
		return p.parseResourceDecl("", "")
	case INTERFACE:
		return p.parseInterfaceDecl()
	case GHOST:
		return p.parseGhostFunctionDecl()
	default:
		return p.parseFunction(attr, doc)
	}
}

func (p *Parser) parseAttribute() *ast.Attribute {
	start := p.advance() // consume '#'
	p.consume(LEFT_BRACKET, "expected '[' after '#'")
	name, _ := p.consumeIdent("expected attribute name")
	end := p.consume(RIGHT_BRACKET, "expected ']' to close attribute")
	return &ast.Attribute{Pos: p.makePos(start), EndPos: p.makeEndPos(end), Name: name.Value}
}

func (p *Parser) parseUse() *ast.Use {
	start := p.advance() // consume 'use'
	use := &ast.Use{Pos: p.makePos(start)}

	for {
		id, ok := p.consumeIdent("expected path segment in use")
		if !ok {
			break
		}
		if p.check(DOUBLE_COLON) && p.tokens[p.current+1].Type == LEFT_BRACE {
			use.Namespaces = append(use.Namespaces, &ast.Namespace{Pos: id.Pos, EndPos: id.EndPos, Name: id})
			p.advance() // '::'
			p.advance() // '{'
			for !p.check(RIGHT_BRACE) && !p.isAtEnd() {
				item, ok := p.consumeIdent("expected import name")
				if ok {
					use.Imports = append(use.Imports, &ast.ImportItem{Pos: item.Pos, EndPos: item.EndPos, Name: item})
				}
				if !p.match(COMMA) {
					break
				}
			}
			p.consume(RIGHT_BRACE, "expected '}' to close use group")
			break
		}
		use.Namespaces = append(use.Namespaces, &ast.Namespace{Pos: id.Pos, EndPos: id.EndPos, Name: id})
		if !p.match(DOUBLE_COLON) {
			break
		}
	}

	end := p.consume(SEMICOLON, "expected ';' after use")
	use.EndPos = p.makeEndPos(end)
	return use
}

func (p *Parser) parseStruct(attr *ast.Attribute, doc *ast.DocComment) *ast.Struct {
	start := p.advance() // consume 'struct'
	name, _ := p.consumeIdent("expected struct name")
	p.consume(LEFT_BRACE, "expected '{' to open struct body")

	s := &ast.Struct{Pos: p.makePos(start), Attribute: attr, DocComment: doc, Name: name}
	for !p.check(RIGHT_BRACE) && !p.isAtEnd() {
		fname, ok := p.consumeIdent("expected field name")
		if !ok {
			break
		}
		p.consume(COLON, "expected ':' after field name")
		vt := p.parseType()
		s.Items = append(s.Items, &ast.StructField{Pos: fname.Pos, EndPos: vt.EndPos, Name: fname, VariableType: vt})
		if !p.match(COMMA) {
			break
		}
	}
	end := p.consume(RIGHT_BRACE, "expected '}' to close struct body")
	s.EndPos = p.makeEndPos(end)
	return s
}

// parseResourceDecl parses "resource name(param: Type, ...);", optionally
// scoped to a declaring interface.
func (p *Parser) parseResourceDecl(declaring, iface string) *ast.ResourceDecl {
	start := p.advance() // consume 'resource'
	name, _ := p.consumeIdent("expected resource name")
	p.consume(LEFT_PAREN, "expected '(' after resource name")
	params := p.parseParamList()
	p.consume(RIGHT_PAREN, "expected ')' to close resource parameters")
	end := p.consume(SEMICOLON, "expected ';' after resource declaration")

	return &ast.ResourceDecl{
		Pos: p.makePos(start), EndPos: p.makeEndPos(end),
		Name: name, Params: params, Declaring: declaring, Interface: iface,
	}
}

func (p *Parser) parseInterfaceDecl() *ast.InterfaceDecl {
	start := p.advance() // consume 'interface'
	name, _ := p.consumeIdent("expected interface name")
	p.consume(LEFT_BRACE, "expected '{' to open interface body")

	decl := &ast.InterfaceDecl{Pos: p.makePos(start), Name: name}
	for !p.check(RIGHT_BRACE) && !p.isAtEnd() {
		switch p.peek().Type {
		case RESOURCE:
			decl.Resources = append(decl.Resources, p.parseResourceDecl("", name.Value))
		case GHOST:
			p.advance()
			p.consume(FN, "expected 'fn' after ghost")
			sigName, _ := p.consumeIdent("expected ghost function name")
			p.consume(LEFT_PAREN, "expected '(' after ghost function name")
			params := p.parseParamList()
			p.consume(RIGHT_PAREN, "expected ')' to close ghost function parameters")
			var ret *ast.VariableType
			if p.match(ARROW) {
				ret = p.parseType()
			}
			p.consume(SEMICOLON, "expected ';' after ghost function signature")
			decl.GhostFunctions = append(decl.GhostFunctions, &ast.GhostFunctionSignature{Name: sigName, Params: params, Return: ret})
		default:
			p.errorAtCurrent("expected resource or ghost function declaration in interface body")
			p.synchronizeUntil(RESOURCE, GHOST, RIGHT_BRACE)
		}
	}
	end := p.consume(RIGHT_BRACE, "expected '}' to close interface body")
	decl.EndPos = p.makeEndPos(end)
	return decl
}

func (p *Parser) parseGhostFunctionDecl() *ast.GhostFunctionDecl {
	start := p.advance() // consume 'ghost'
	p.consume(FN, "expected 'fn' after ghost")
	name, _ := p.consumeIdent("expected ghost function name")
	p.consume(LEFT_PAREN, "expected '(' after ghost function name")
	params := p.parseParamList()
	p.consume(RIGHT_PAREN, "expected ')' to close ghost function parameters")

	var ret *ast.VariableType
	if p.match(ARROW) {
		ret = p.parseType()
	}

	p.consume(LEFT_BRACE, "expected '{' to open ghost function body")
	body := p.parsePrattExpr(0)
	end := p.consume(RIGHT_BRACE, "expected '}' to close ghost function body")

	return &ast.GhostFunctionDecl{Pos: p.makePos(start), EndPos: p.makeEndPos(end), Name: name, Params: params, Return: ret, Body: body}
}

func (p *Parser) parseLemma() *ast.Lemma {
	start := p.advance() // consume 'lemma'
	name, _ := p.consumeIdent("expected lemma name")
	p.consume(LEFT_PAREN, "expected '(' after lemma name")
	params := p.parseParamList()
	p.consume(RIGHT_PAREN, "expected ')' to close lemma parameters")

	p.consume(LEFT_BRACE, "expected '{' to open lemma body")
	body := p.parsePrattExpr(0)
	end := p.consume(RIGHT_BRACE, "expected '}' to close lemma body")

	return &ast.Lemma{Pos: p.makePos(start), EndPos: p.makeEndPos(end), Name: name, Params: params, Body: body}
}

func (p *Parser) parseParamList() []*ast.FunctionParam {
	var params []*ast.FunctionParam
	if p.check(RIGHT_PAREN) {
		return params
	}
	params = append(params, p.parseParam())
	for p.match(COMMA) {
		params = append(params, p.parseParam())
	}
	return params
}

func (p *Parser) parseParam() *ast.FunctionParam {
	name, _ := p.consumeIdent("expected parameter name")
	p.consume(COLON, "expected ':' after parameter name")
	vt := p.parseType()
	return &ast.FunctionParam{Pos: name.Pos, EndPos: vt.EndPos, Name: name, Type: vt}
}

var decoratorKeywords = map[TokenType]string{
	PUBLIC:       "public",
	PRIVATE:      "private",
	PAYABLE:      "payable",
	CONSTANT:     "constant",
	PURE:         "pure",
	NONREENTRANT: "nonreentrant",
}

// parseFunction parses a full function declaration: decorators, name,
// parameters, return type, and the verification annotation clauses
// (reads/writes/requires/ensures/checks/performs) that precede the body.
func (p *Parser) parseFunction(attr *ast.Attribute, doc *ast.DocComment) *ast.Function {
	fn := &ast.Function{Attribute: attr, DocComment: doc}
	firstSet := false

	for {
		if name, ok := decoratorKeywords[p.peek().Type]; ok {
			tok := p.advance()
			dec := &ast.Decorator{Pos: p.makePos(tok), EndPos: p.makeEndPos(tok), Name: name}
			if name == "nonreentrant" && p.match(LEFT_PAREN) {
				key, _ := p.consumeIdent("expected lock key")
				dec.Arg = key.Value
				p.consume(RIGHT_PAREN, "expected ')' to close nonreentrant key")
			}
			fn.Decorators = append(fn.Decorators, dec)
			if !firstSet {
				fn.Pos = dec.Pos
				firstSet = true
			}
			continue
		}
		break
	}

	start := p.consume(FN, "expected 'fn'")
	if !firstSet {
		fn.Pos = p.makePos(start)
	}

	name, _ := p.consumeIdent("expected function name")
	fn.Name = name

	p.consume(LEFT_PAREN, "expected '(' after function name")
	fn.Params = p.parseParamList()
	p.consume(RIGHT_PAREN, "expected ')' to close function parameters")

	if p.match(ARROW) {
		fn.Return = p.parseType()
	}

	for p.parseSpecClause(fn) {
	}

	fn.Body = p.parseFunctionBlock()
	fn.EndPos = fn.Body.EndPos
	return fn
}

// parseSpecClause consumes one reads/writes/requires/ensures/check/
// performs clause, if present, and reports whether it found one.
func (p *Parser) parseSpecClause(fn *ast.Function) bool {
	switch p.peek().Type {
	case READS:
		p.advance()
		fn.Reads = append(fn.Reads, p.parseOptionalParenIdentifierList()...)
		p.consume(SEMICOLON, "expected ';' after reads clause")
		return true
	case WRITES:
		p.advance()
		fn.Writes = append(fn.Writes, p.parseOptionalParenIdentifierList()...)
		p.consume(SEMICOLON, "expected ';' after writes clause")
		return true
	case REQUIRES:
		p.advance()
		fn.Requires = append(fn.Requires, p.parsePrattExpr(0))
		p.consume(SEMICOLON, "expected ';' after requires clause")
		return true
	case ENSURES:
		p.advance()
		fn.Ensures = append(fn.Ensures, p.parsePrattExpr(0))
		p.consume(SEMICOLON, "expected ';' after ensures clause")
		return true
	case CHECK:
		p.advance()
		fn.Checks = append(fn.Checks, p.parsePrattExpr(0))
		p.consume(SEMICOLON, "expected ';' after check clause")
		return true
	case PERFORMS:
		fn.Performs = append(fn.Performs, p.parsePerformsClause())
		return true
	default:
		return false
	}
}

var performsActions = map[TokenType]ast.PerformsAction{
	ALLOCATE:   ast.PerformsAllocate,
	REALLOCATE: ast.PerformsReallocate,
	CREATE:     ast.PerformsCreate,
	EXCHANGE:   ast.PerformsExchange,
	DESTROY:    ast.PerformsDestroy,
}

// parsePerformsClause parses "performs allocate(resource, args...);". An
// exchange clause names two resources up front —
// "performs exchange(R1, R2, from, to, amount1, amount2);" — since it
// atomically swaps one resource type for another between the same two
// parties (spec.md §4.10).
func (p *Parser) parsePerformsClause() *ast.PerformsClause {
	start := p.advance() // consume 'performs'
	actionTok := p.advance()
	action, ok := performsActions[actionTok.Type]
	if !ok {
		p.errorAtCurrent("expected an allocation action after performs")
	}

	p.consume(LEFT_PAREN, "expected '(' after performs action")
	resource, _ := p.consumeIdent("expected resource name")

	var resource2 ast.Ident
	if action == ast.PerformsExchange {
		p.consume(COMMA, "expected ',' between the two resources in performs exchange(...)")
		resource2, _ = p.consumeIdent("expected second resource name for performs exchange")
	}

	var args []ast.Expr
	if p.match(COMMA) {
		args = p.parseExprList(RIGHT_PAREN)
	}
	end := p.consume(RIGHT_PAREN, "expected ')' to close performs clause")
	p.consume(SEMICOLON, "expected ';' after performs clause")

	return &ast.PerformsClause{
		Pos: p.makePos(start), EndPos: p.makeEndPos(end),
		Action: action, Resource: resource, Resource2: resource2, Args: args,
	}
}
