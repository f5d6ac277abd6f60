package parser

import (
	"github.com/TylerDeLorey623/6502-Compiler/pkg/diag"
	"github.com/TylerDeLorey623/6502-Compiler/pkg/lexer"
)

// Parser is a predictive recursive-descent parser over the language's
// grammar. One method per non-terminal.
type Parser struct {
	tokens  []lexer.Token
	pos     int
	sink    *diag.Sink
	program int
}

// New returns a Parser over tokens, reporting through sink.
func New(tokens []lexer.Token, sink *diag.Sink, program int) *Parser {
	return &Parser{tokens: tokens, sink: sink, program: program}
}

func (p *Parser) current() lexer.Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	// Synthetic EOF token, positioned at the end of the last real token so
	// diagnostics about running off the end of input still carry a
	// reasonable location.
	if len(p.tokens) > 0 {
		last := p.tokens[len(p.tokens)-1]
		return lexer.Token{Kind: lexer.KindEOF, Lexeme: "", Line: last.Line, Column: last.Column + len(last.Lexeme)}
	}
	return lexer.Token{Kind: lexer.KindEOF, Line: 1, Column: 1}
}

// match implements the match(kind) contract: on success it appends a
// Leaf and advances; on failure it reports "EXPECTED [kind] BUT FOUND
// [actual]" at the offending token's position. It advances past the
// offending token either way, so a failed match can't make a
// StatementList/CharList loop spin forever — subsequent errors still
// cascade, just without ever looping.
func (p *Parser) match(kind lexer.Kind) *Node {
	tok := p.current()
	leaf := newLeaf(tok)

	if tok.Kind != kind {
		p.sink.Emit(diag.Error, diag.ParserStage,
			diag.WithProgram(p.program, "EXPECTED [%s] BUT FOUND [%s] with value %q", kind, tok.Kind, tok.Lexeme),
			&diag.Position{Line: tok.Line, Column: tok.Column})
	}

	if p.pos < len(p.tokens) {
		p.pos++
	}
	return leaf
}

// Parse runs Program → Block EOP and returns the resulting CST root.
func (p *Parser) Parse() *Node {
	root := newBranch(NTProgram)
	root.append(p.parseBlock())
	root.append(p.match(lexer.KindEOP))
	return root
}

func (p *Parser) parseBlock() *Node {
	n := newBranch(NTBlock)
	n.append(p.match(lexer.KindLBrace))
	n.append(p.parseStatementList())
	n.append(p.match(lexer.KindRBrace))
	return n
}

// isStatementStart reports whether k is in the FIRST set of Statement; it
// decides whether StatementList takes another Statement (the language
// grammar: "Statement StatementList | ε").
func isStatementStart(k lexer.Kind) bool {
	switch k {
	case lexer.KindKeywordPrint, lexer.KindIdentifier,
		lexer.KindKeywordInt, lexer.KindKeywordString, lexer.KindKeywordBoolean,
		lexer.KindKeywordWhile, lexer.KindKeywordIf, lexer.KindLBrace:
		return true
	default:
		return false
	}
}

func (p *Parser) parseStatementList() *Node {
	n := newBranch(NTStatementList)
	for isStatementStart(p.current().Kind) {
		n.append(p.parseStatement())
	}
	return n
}

func (p *Parser) parseStatement() *Node {
	n := newBranch(NTStatement)

	switch p.current().Kind {
	case lexer.KindKeywordPrint:
		n.append(p.parsePrintStmt())
	case lexer.KindIdentifier:
		n.append(p.parseAssignStmt())
	case lexer.KindKeywordInt, lexer.KindKeywordString, lexer.KindKeywordBoolean:
		n.append(p.parseVarDecl())
	case lexer.KindKeywordWhile:
		n.append(p.parseWhileStmt())
	case lexer.KindKeywordIf:
		n.append(p.parseIfStmt())
	default:
		// Falls through to Block; an ill-formed token here surfaces as a
		// mismatch inside parseBlock's own match("{") call.
		n.append(p.parseBlock())
	}

	return n
}

func (p *Parser) parsePrintStmt() *Node {
	n := newBranch(NTPrintStmt)
	n.append(p.match(lexer.KindKeywordPrint))
	n.append(p.match(lexer.KindLParen))
	n.append(p.parseExpr())
	n.append(p.match(lexer.KindRParen))
	return n
}

func (p *Parser) parseAssignStmt() *Node {
	n := newBranch(NTAssignStmt)
	n.append(p.parseId())
	n.append(p.match(lexer.KindAssign))
	n.append(p.parseExpr())
	return n
}

func (p *Parser) parseVarDecl() *Node {
	n := newBranch(NTVarDecl)
	switch p.current().Kind {
	case lexer.KindKeywordString:
		n.append(p.match(lexer.KindKeywordString))
	case lexer.KindKeywordBoolean:
		n.append(p.match(lexer.KindKeywordBoolean))
	default:
		n.append(p.match(lexer.KindKeywordInt))
	}
	n.append(p.parseId())
	return n
}

func (p *Parser) parseWhileStmt() *Node {
	n := newBranch(NTWhileStmt)
	n.append(p.match(lexer.KindKeywordWhile))
	n.append(p.parseBooleanExpr())
	n.append(p.parseBlock())
	return n
}

func (p *Parser) parseIfStmt() *Node {
	n := newBranch(NTIfStmt)
	n.append(p.match(lexer.KindKeywordIf))
	n.append(p.parseBooleanExpr())
	n.append(p.parseBlock())
	return n
}

func (p *Parser) parseExpr() *Node {
	n := newBranch(NTExpr)

	switch p.current().Kind {
	case lexer.KindDigit:
		n.append(p.parseIntExpr())
	case lexer.KindQuote:
		n.append(p.parseStringExpr())
	case lexer.KindLParen, lexer.KindKeywordTrue, lexer.KindKeywordFalse:
		n.append(p.parseBooleanExpr())
	default:
		n.append(p.parseId())
	}

	return n
}

func (p *Parser) parseIntExpr() *Node {
	n := newBranch(NTIntExpr)
	n.append(p.match(lexer.KindDigit))
	if p.current().Kind == lexer.KindPlus {
		n.append(p.match(lexer.KindPlus))
		n.append(p.parseExpr())
	}
	return n
}

func (p *Parser) parseStringExpr() *Node {
	n := newBranch(NTStringExpr)
	n.append(p.match(lexer.KindQuote))
	n.append(p.parseCharList())
	n.append(p.match(lexer.KindQuote))
	return n
}

func (p *Parser) parseBooleanExpr() *Node {
	n := newBranch(NTBooleanExpr)

	if p.current().Kind == lexer.KindLParen {
		n.append(p.match(lexer.KindLParen))
		n.append(p.parseExpr())
		if p.current().Kind == lexer.KindNotEq {
			n.append(p.match(lexer.KindNotEq))
		} else {
			n.append(p.match(lexer.KindEqEq))
		}
		n.append(p.parseExpr())
		n.append(p.match(lexer.KindRParen))
		return n
	}

	if p.current().Kind == lexer.KindKeywordFalse {
		n.append(p.match(lexer.KindKeywordFalse))
	} else {
		n.append(p.match(lexer.KindKeywordTrue))
	}
	return n
}

func (p *Parser) parseId() *Node {
	n := newBranch(NTId)
	n.append(p.match(lexer.KindIdentifier))
	return n
}

func (p *Parser) parseCharList() *Node {
	n := newBranch(NTCharList)
	if p.current().Kind == lexer.KindCharacter {
		n.append(p.match(lexer.KindCharacter))
		n.append(p.parseCharList())
	}
	return n
}
