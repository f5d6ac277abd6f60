// Package parser implements a predictive recursive-descent parser: it
// walks a token stream and materializes a Concrete Syntax Tree (CST) over
// the grammar's non-terminals, one named Branch per production and one
// Leaf per successfully matched token.
package parser

import (
	"fmt"
	"strings"

	"github.com/TylerDeLorey623/6502-Compiler/pkg/lexer"
)

// NodeKind disambiguates a CST Node's two shapes.
type NodeKind int

const (
	Branch NodeKind = iota
	Leaf
)

// Non-terminal names, one per grammar production.
const (
	NTProgram       = "Program"
	NTBlock         = "Block"
	NTStatementList = "StatementList"
	NTStatement     = "Statement"
	NTPrintStmt     = "PrintStmt"
	NTAssignStmt    = "AssignStmt"
	NTVarDecl       = "VarDecl"
	NTWhileStmt     = "WhileStmt"
	NTIfStmt        = "IfStmt"
	NTExpr          = "Expr"
	NTIntExpr       = "IntExpr"
	NTStringExpr    = "StringExpr"
	NTBooleanExpr   = "BooleanExpr"
	NTId            = "Id"
	NTCharList      = "CharList"
)

// Node is a CST node: a Branch carries a non-terminal Name and ordered
// Children, a Leaf carries exactly one Token. The tree owns its nodes;
// their lifetime ends with the owning program's compilation.
type Node struct {
	Kind     NodeKind
	Name     string // non-terminal name, only meaningful for Branch
	Token    lexer.Token
	Children []*Node
}

func newBranch(name string) *Node {
	return &Node{Kind: Branch, Name: name}
}

func newLeaf(tok lexer.Token) *Node {
	return &Node{Kind: Leaf, Token: tok}
}

func (n *Node) append(child *Node) {
	n.Children = append(n.Children, child)
}

// Dump renders an indented textual tree, used for the --verbose CST dump.
func (n *Node) Dump() string {
	var b strings.Builder
	n.dump(&b, 0)
	return b.String()
}

func (n *Node) dump(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.Kind == Leaf {
		fmt.Fprintf(b, "%s%s(%q)\n", indent, n.Token.Kind, n.Token.Lexeme)
		return
	}

	fmt.Fprintf(b, "%s%s\n", indent, n.Name)
	for _, child := range n.Children {
		child.dump(b, depth+1)
	}
}
