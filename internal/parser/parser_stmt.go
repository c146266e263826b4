package parser

import "civl/internal/ast"

var assignOps = map[TokenType]ast.AssignType{
	EQUAL:         ast.ASSIGN,
	PLUS_EQUAL:    ast.PLUS_ASSIGN,
	MINUS_EQUAL:   ast.MINUS_ASSIGN,
	STAR_EQUAL:    ast.STAR_ASSIGN,
	SLASH_EQUAL:   ast.SLASH_ASSIGN,
	PERCENT_EQUAL: ast.PERCENT_ASSIGN,
}

// parseFunctionBlock parses "{ stmt* tailExpr? }".
func (p *Parser) parseFunctionBlock() *ast.FunctionBlock {
	start := p.consume(LEFT_BRACE, "expected '{' to open block")

	block := &ast.FunctionBlock{Pos: p.makePos(start)}
	for !p.check(RIGHT_BRACE) && !p.isAtEnd() {
		item, tail := p.parseBlockItem()
		if tail != nil {
			block.TailExpr = tail
			break
		}
		if item != nil {
			block.Items = append(block.Items, item)
		}
	}
	end := p.consume(RIGHT_BRACE, "expected '}' to close block")
	block.EndPos = p.makeEndPos(end)
	return block
}

// parseBlockItem parses one statement. If the statement is a bare
// expression with no trailing semicolon immediately before '}', it is
// returned as the block's tail expression instead.
func (p *Parser) parseBlockItem() (ast.FunctionBlockItem, *ast.ExprStmt) {
	switch p.peek().Type {
	case LET:
		return p.parseLetStmt(), nil
	case IF:
		return p.parseIfStmt(), nil
	case FOR:
		return p.parseForStmt(), nil
	case RETURN:
		return p.parseReturnStmt(), nil
	case ASSERT:
		return p.parseAssertStmt(), nil
	case REQUIRE:
		return p.parseRequireStmt(), nil
	case RAISE:
		return p.parseRaiseStmt(), nil
	case BREAK:
		tok := p.advance()
		p.consume(SEMICOLON, "expected ';' after break")
		return &ast.BreakStmt{Pos: p.makePos(tok), EndPos: p.makeEndPos(p.previous())}, nil
	case CONTINUE:
		tok := p.advance()
		p.consume(SEMICOLON, "expected ';' after continue")
		return &ast.ContinueStmt{Pos: p.makePos(tok), EndPos: p.makeEndPos(p.previous())}, nil
	case TRY:
		return p.parseTryStmt(), nil
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *Parser) parseLetStmt() *ast.LetStmt {
	start := p.advance() // consume 'let'
	mut := p.match(MUT)
	name, _ := p.consumeIdent("expected variable name")

	var vt *ast.VariableType
	if p.match(COLON) {
		vt = p.parseType()
	}

	p.consume(EQUAL, "expected '=' in let binding")
	value := p.parsePrattExpr(0)
	end := p.consume(SEMICOLON, "expected ';' after let binding")

	return &ast.LetStmt{Pos: p.makePos(start), EndPos: p.makeEndPos(end), Mut: mut, Name: name, Type: vt, Expr: value}
}

func (p *Parser) parseIfStmt() *ast.IfStmt {
	start := p.advance() // consume 'if'
	cond := p.parsePrattExpr(0)
	then := p.parseFunctionBlock()

	stmt := &ast.IfStmt{Pos: p.makePos(start), EndPos: then.EndPos, Cond: cond, Then: then}
	if p.match(ELSE) {
		if p.check(IF) {
			nested := p.parseIfStmt()
			stmt.Else = &ast.FunctionBlock{Pos: nested.Pos, EndPos: nested.EndPos, Items: []ast.FunctionBlockItem{nested}}
		} else {
			stmt.Else = p.parseFunctionBlock()
		}
		stmt.EndPos = stmt.Else.EndPos
	}
	return stmt
}

// parseForStmt parses "for x in range(N) [invariant expr;]* { ... }".
func (p *Parser) parseForStmt() *ast.ForStmt {
	start := p.advance() // consume 'for'
	varName, _ := p.consumeIdent("expected loop variable")
	p.consume(IN, "expected 'in'")

	rangeIdent, _ := p.consumeIdent("expected 'range'")
	_ = rangeIdent
	p.consume(LEFT_PAREN, "expected '(' after range")
	count := p.parsePrattExpr(0)
	p.consume(RIGHT_PAREN, "expected ')' after range bound")

	var invariants []ast.Expr
	for p.match(INVARIANT) {
		invariants = append(invariants, p.parsePrattExpr(0))
		p.consume(SEMICOLON, "expected ';' after loop invariant")
	}

	body := p.parseFunctionBlock()
	return &ast.ForStmt{Pos: p.makePos(start), EndPos: body.EndPos, Var: varName, IterCount: count, Invariants: invariants, Body: body}
}

func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.advance() // consume 'return'
	var value ast.Expr
	if !p.check(SEMICOLON) {
		value = p.parsePrattExpr(0)
	}
	end := p.consume(SEMICOLON, "expected ';' after return")
	return &ast.ReturnStmt{Pos: p.makePos(start), EndPos: p.makeEndPos(end), Value: value}
}

func (p *Parser) parseAssertStmt() *ast.AssertStmt {
	start := p.advance() // consume 'assert'
	p.consume(LEFT_PAREN, "expected '(' after assert")
	args := p.parseExprList(RIGHT_PAREN)
	p.consume(RIGHT_PAREN, "expected ')' to close assert arguments")
	end := p.consume(SEMICOLON, "expected ';' after assert")
	return &ast.AssertStmt{Pos: p.makePos(start), EndPos: p.makeEndPos(end), Args: args}
}

func (p *Parser) parseRequireStmt() *ast.RequireStmt {
	start := p.advance() // consume 'require'
	p.consume(LEFT_PAREN, "expected '(' after require")
	args := p.parseExprList(RIGHT_PAREN)
	p.consume(RIGHT_PAREN, "expected ')' to close require arguments")
	end := p.consume(SEMICOLON, "expected ';' after require")
	return &ast.RequireStmt{Pos: p.makePos(start), EndPos: p.makeEndPos(end), Args: args}
}

func (p *Parser) parseRaiseStmt() *ast.RaiseStmt {
	start := p.advance() // consume 'raise'
	value := p.parsePrattExpr(0)
	end := p.consume(SEMICOLON, "expected ';' after raise")
	return &ast.RaiseStmt{Pos: p.makePos(start), EndPos: p.makeEndPos(end), Value: value}
}

// parseTryStmt parses "try { ... } [catch (T name) { ... }]* [finally { ... }]".
func (p *Parser) parseTryStmt() *ast.TryStmt {
	start := p.advance() // consume 'try'
	body := p.parseFunctionBlock()

	stmt := &ast.TryStmt{Pos: p.makePos(start), EndPos: body.EndPos, Body: body}
	for p.match(CATCH) {
		catchStart := p.previous()
		p.consume(LEFT_PAREN, "expected '(' after catch")
		errType := p.parseType()
		binding, _ := p.consumeIdent("expected exception binding name")
		p.consume(RIGHT_PAREN, "expected ')' to close catch binder")
		handlerBody := p.parseFunctionBlock()
		stmt.Handlers = append(stmt.Handlers, &ast.CatchClause{
			Pos: p.makePos(catchStart), EndPos: handlerBody.EndPos,
			ErrorType: errType, Binding: binding, Body: handlerBody,
		})
		stmt.EndPos = handlerBody.EndPos
	}
	if p.match(FINALLY) {
		stmt.Finally = p.parseFunctionBlock()
		stmt.EndPos = stmt.Finally.EndPos
	}
	return stmt
}

// parseExprOrAssignStmt parses a bare expression statement, an assignment,
// or (if immediately followed by '}' with no semicolon) a tail expression.
func (p *Parser) parseExprOrAssignStmt() (ast.FunctionBlockItem, *ast.ExprStmt) {
	expr := p.parsePrattExpr(0)

	if op, ok := assignOps[p.peek().Type]; ok {
		p.advance()
		value := p.parsePrattExpr(0)
		end := p.consume(SEMICOLON, "expected ';' after assignment")
		return &ast.AssignStmt{Pos: expr.NodePos(), EndPos: p.makeEndPos(end), Target: expr, Operator: op, Value: value}, nil
	}

	if p.check(RIGHT_BRACE) {
		return nil, &ast.ExprStmt{Pos: expr.NodePos(), EndPos: expr.NodeEndPos(), Expr: expr, Semicolon: false}
	}

	end := p.consume(SEMICOLON, "expected ';' after expression statement")
	return &ast.ExprStmt{Pos: expr.NodePos(), EndPos: p.makeEndPos(end), Expr: expr, Semicolon: true}, nil
}
