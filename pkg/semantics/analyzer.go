package semantics

import (
	"strconv"

	"github.com/TylerDeLorey623/6502-Compiler/pkg/diag"
	"github.com/TylerDeLorey623/6502-Compiler/pkg/lexer"
	"github.com/TylerDeLorey623/6502-Compiler/pkg/parser"
)

// Analyzer performs the CST→AST rewrite and scope/type/use-init checking in
// a single recursive descent, followed by a separate post-pass warning
// sweep over the finished scope tree.
type Analyzer struct {
	sink    *diag.Sink
	program int

	symbols *SymbolTable
	current *Scope
}

// New returns an Analyzer reporting through sink for the given 1-based
// program number.
func New(sink *diag.Sink, program int) *Analyzer {
	return &Analyzer{sink: sink, program: program, symbols: NewSymbolTable()}
}

// SymbolTable returns the (possibly partially built, if errors occurred)
// symbol table produced by Analyze.
func (a *Analyzer) SymbolTable() *SymbolTable { return a.symbols }

// Analyze rewrites a Program CST root into an AST Block and performs all
// checks. The AST Block returned is only meaningful when the sink reports
// zero errors for the Analyzer stage — the pipeline does not run code
// generation over a tree an earlier stage flagged as broken.
func (a *Analyzer) Analyze(root *parser.Node) *Block {
	// root is Program → [Block, EOP]; Block is the real program body.
	blockNode := firstChild(root, parser.NTBlock)
	if blockNode == nil {
		return nil
	}

	block := a.handleBlock(blockNode)
	a.traverseWarnings(a.symbols.Root)
	return block
}

// ----------------------------------------------------------------------------
// CST → AST per construct

func (a *Analyzer) handleBlock(n *parser.Node) *Block {
	parent := a.current
	if parent == nil {
		a.current = a.symbols.Root
	} else {
		a.current = a.symbols.Push(parent)
	}
	scope := a.current

	block := &Block{Scope: scope}

	stmtList := firstChild(n, parser.NTStatementList)
	for _, stmt := range childrenNamed(stmtList, parser.NTStatement) {
		if ast := a.handleStatement(stmt); ast != nil {
			block.Statements = append(block.Statements, ast)
		}
	}

	a.current = parent
	return block
}

// handleStatement dispatches on the single real production wrapped by a
// Statement branch (PrintStmt/AssignStmt/VarDecl/WhileStmt/IfStmt/Block).
func (a *Analyzer) handleStatement(stmt *parser.Node) Node {
	if len(stmt.Children) == 0 {
		return nil
	}
	inner := stmt.Children[0]

	switch inner.Name {
	case parser.NTPrintStmt:
		return a.handlePrint(inner)
	case parser.NTAssignStmt:
		return a.handleAssign(inner)
	case parser.NTVarDecl:
		return a.handleDeclare(inner)
	case parser.NTWhileStmt:
		return a.handleWhile(inner)
	case parser.NTIfStmt:
		return a.handleIf(inner)
	case parser.NTBlock:
		return a.handleBlock(inner)
	default:
		return nil
	}
}

func (a *Analyzer) handlePrint(n *parser.Node) Node {
	exprNode := firstChild(n, parser.NTExpr)
	expr := a.buildExpr(exprNode)
	a.typeOf(expr) // resolves/marks any identifier operand in the printed expression
	return &Print{Expr: expr}
}

func (a *Analyzer) handleAssign(n *parser.Node) Node {
	idNode := firstChild(n, parser.NTId)
	tok := leafToken(idNode)
	name := tok.Lexeme

	exprNode := firstChild(n, parser.NTExpr)
	value := a.buildExpr(exprNode)
	rhsType := a.typeOf(value)

	sym, scope := a.current.Resolve(name)
	if sym == nil {
		a.errorf("undeclared variable '%s'", tok, name)
		return &Assign{TargetName: name, TargetTok: tok, Value: value}
	}
	_ = scope

	if rhsType != Unknown && sym.DeclaredType != Unknown && rhsType != sym.DeclaredType {
		a.errorf("type mismatch: cannot assign %s to '%s' of type %s", tok, rhsType, name, sym.DeclaredType)
	} else {
		sym.Initialized = true
	}

	return &Assign{TargetName: name, TargetTok: tok, Value: value}
}

func (a *Analyzer) handleDeclare(n *parser.Node) Node {
	varType := typeFromKeyword(n.Children[0].Token.Kind)
	idNode := firstChild(n, parser.NTId)
	tok := leafToken(idNode)
	name := tok.Lexeme

	if _, ok := a.current.Declare(name, varType, tok.Line, tok.Column); !ok {
		a.errorf("redeclared variable '%s'", tok, name)
	}

	return &Declare{VarType: varType, Name: name, Tok: tok}
}

func (a *Analyzer) handleIf(n *parser.Node) Node {
	condNode := firstChild(n, parser.NTBooleanExpr)
	cond := a.buildBooleanExpr(condNode)
	a.typeOf(cond)

	bodyNode := firstChild(n, parser.NTBlock)
	body := a.handleBlock(bodyNode)

	return &If{Cond: cond, Body: body}
}

func (a *Analyzer) handleWhile(n *parser.Node) Node {
	condNode := firstChild(n, parser.NTBooleanExpr)
	cond := a.buildBooleanExpr(condNode)
	a.typeOf(cond)

	bodyNode := firstChild(n, parser.NTBlock)
	body := a.handleBlock(bodyNode)

	return &While{Cond: cond, Body: body}
}

// ----------------------------------------------------------------------------
// Expression construction (Expr/IntExpr/StringExpr/BooleanExpr)

func (a *Analyzer) buildExpr(n *parser.Node) Node {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	inner := n.Children[0]

	switch inner.Name {
	case parser.NTIntExpr:
		return a.buildIntExpr(inner)
	case parser.NTStringExpr:
		return a.buildStringExpr(inner)
	case parser.NTBooleanExpr:
		return a.buildBooleanExpr(inner)
	case parser.NTId:
		tok := leafToken(inner)
		return &Ident{Name: tok.Lexeme, Tok: tok}
	default:
		return nil
	}
}

// buildIntExpr handles `digit + Expr | digit` (the language: "ADD(digit, Expr)").
func (a *Analyzer) buildIntExpr(n *parser.Node) Node {
	digitLeaf := n.Children[0]
	value, _ := strconv.Atoi(digitLeaf.Token.Lexeme)
	digit := &DigitLit{Value: value, Tok: digitLeaf.Token}

	// children: [digit] or [digit, '+', Expr]
	if len(n.Children) < 3 {
		return digit
	}

	rhs := a.buildExpr(n.Children[2])
	rhsType := a.typeOf(rhs)
	if rhsType != Unknown && rhsType != Int {
		a.errorf("ADD operand must be int, got %s", digitLeaf.Token, rhsType)
	}

	return &ADD{Lhs: digit, Rhs: rhs}
}

// buildStringExpr collapses the CharList chain into a single StringLit
// leaf, using the first character's token as the representative, or the
// opening quote's token if the string is empty.
func (a *Analyzer) buildStringExpr(n *parser.Node) Node {
	quoteTok := n.Children[0].Token // opening '"'

	var sb []byte
	var repTok lexer.Token
	haveRep := false

	list := n.Children[1] // CharList
	for list != nil && len(list.Children) > 0 {
		charLeaf := list.Children[0]
		sb = append(sb, []byte(charLeaf.Token.Lexeme)...)
		if !haveRep {
			repTok = charLeaf.Token
			haveRep = true
		}
		if len(list.Children) > 1 {
			list = list.Children[1]
		} else {
			list = nil
		}
	}

	if !haveRep {
		repTok = quoteTok
	}

	return &StringLit{Value: string(sb), Tok: repTok}
}

// buildBooleanExpr handles `(Expr boolop Expr) | boolval` (the language:
// "isEq(lhs, rhs) or isNotEq(lhs, rhs)"; bare boolval is a leaf).
func (a *Analyzer) buildBooleanExpr(n *parser.Node) Node {
	if n.Children[0].Kind == parser.Leaf && n.Children[0].Token.Kind == lexer.KindLParen {
		lhs := a.buildExpr(n.Children[1])
		opLeaf := n.Children[2]
		rhs := a.buildExpr(n.Children[3])

		lhsType, rhsType := a.typeOf(lhs), a.typeOf(rhs)
		if lhsType != Unknown && rhsType != Unknown && lhsType != rhsType {
			a.errorf("type mismatch: cannot compare %s with %s", opLeaf.Token, lhsType, rhsType)
		}

		if opLeaf.Token.Kind == lexer.KindNotEq {
			return &IsNotEq{Lhs: lhs, Rhs: rhs}
		}
		return &IsEq{Lhs: lhs, Rhs: rhs}
	}

	leaf := n.Children[0]
	return &BoolLit{Value: leaf.Token.Kind == lexer.KindKeywordTrue, Tok: leaf.Token}
}

// ----------------------------------------------------------------------------
// Typing

// typeOf computes a node's type, resolving and marking any bare identifier
// leaf it bottoms out into (the language: identifiers are "resolved, marked
// used, and trigger the uninitialized warning when applicable").
func (a *Analyzer) typeOf(n Node) DataType {
	switch v := n.(type) {
	case nil:
		return Unknown
	case *DigitLit:
		return Int
	case *BoolLit:
		return Boolean
	case *StringLit:
		return String
	case *Ident:
		sym, _ := a.current.Resolve(v.Name)
		if sym == nil {
			a.errorf("undeclared variable '%s'", v.Tok, v.Name)
			return Unknown
		}
		sym.Used = true
		if !sym.Initialized {
			a.warnf("using uninitialized variable '%s'", v.Tok, v.Name)
		}
		return sym.DeclaredType
	case *ADD:
		return Int
	case *IsEq, *IsNotEq:
		return Boolean
	default:
		return Unknown
	}
}

// ----------------------------------------------------------------------------
// Post-pass warning sweep

func (a *Analyzer) traverseWarnings(s *Scope) {
	for _, sym := range s.Entries() {
		if !sym.Initialized {
			a.warnAt("declared but never initialized: '%s'", sym.DeclLine, sym.DeclColumn, sym.Name)
			continue
		}
		if !sym.Used {
			a.warnAt("initialized but never used: '%s'", sym.DeclLine, sym.DeclColumn, sym.Name)
		}
	}
	for _, child := range s.Children {
		a.traverseWarnings(child)
	}
}

// ----------------------------------------------------------------------------
// helpers

func typeFromKeyword(k lexer.Kind) DataType {
	switch k {
	case lexer.KindKeywordString:
		return String
	case lexer.KindKeywordBoolean:
		return Boolean
	default:
		return Int
	}
}

func firstChild(n *parser.Node, name string) *parser.Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind == parser.Branch && c.Name == name {
			return c
		}
	}
	return nil
}

func childrenNamed(n *parser.Node, name string) []*parser.Node {
	if n == nil {
		return nil
	}
	var out []*parser.Node
	for _, c := range n.Children {
		if c.Kind == parser.Branch && c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func leafToken(n *parser.Node) lexer.Token {
	if n == nil {
		return lexer.Token{}
	}
	if n.Kind == parser.Leaf {
		return n.Token
	}
	for _, c := range n.Children {
		if c.Kind == parser.Leaf {
			return c.Token
		}
	}
	return lexer.Token{}
}

func (a *Analyzer) errorf(format string, tok lexer.Token, args ...any) {
	a.sink.Emit(diag.Error, diag.AnalyzerStage, diag.WithProgram(a.program, format, args...), &diag.Position{Line: tok.Line, Column: tok.Column})
}

func (a *Analyzer) warnf(format string, tok lexer.Token, args ...any) {
	a.sink.Emit(diag.Warning, diag.AnalyzerStage, diag.WithProgram(a.program, format, args...), &diag.Position{Line: tok.Line, Column: tok.Column})
}

func (a *Analyzer) warnAt(format string, line, column int, args ...any) {
	a.sink.Emit(diag.Warning, diag.AnalyzerStage, diag.WithProgram(a.program, format, args...), &diag.Position{Line: line, Column: column})
}
