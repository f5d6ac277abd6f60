package semantics_test

import (
	"bytes"
	"testing"

	"github.com/TylerDeLorey623/6502-Compiler/pkg/diag"
	"github.com/TylerDeLorey623/6502-Compiler/pkg/lexer"
	"github.com/TylerDeLorey623/6502-Compiler/pkg/parser"
	"github.com/TylerDeLorey623/6502-Compiler/pkg/semantics"
)

func analyze(t *testing.T, src string) (*semantics.Block, *diag.Sink, string) {
	t.Helper()
	var buf bytes.Buffer
	sink := diag.NewSink(&buf, false)

	toks := lexer.New(src, '$', sink, 1).Tokenize()
	cst := parser.New(toks, sink, 1).Parse()
	if sink.TotalErrors() != 0 {
		t.Fatalf("unexpected parse errors: %s", buf.String())
	}

	block := semantics.New(sink, 1).Analyze(cst)
	return block, sink, buf.String()
}

func TestScopeShadowingRegistersDistinctSymbols(t *testing.T) {
	block, sink, out := analyze(t, "{int a a=1 {int a a=2 print(a)} print(a)}$")
	if sink.Errors(diag.AnalyzerStage) != 0 {
		t.Fatalf("expected no errors from shadowing, got: %s", out)
	}
	inner, ok := block.Statements[2].(*semantics.Block)
	if !ok {
		t.Fatalf("expected the third statement to be the nested block, got %T", block.Statements[2])
	}
	outerSym, _ := block.Scope.Own("a")
	innerSym, _ := inner.Scope.Own("a")
	if outerSym == nil || innerSym == nil || outerSym == innerSym {
		t.Fatalf("expected distinct 'a' symbols in the outer and inner scopes, got %p and %p", outerSym, innerSym)
	}
}

func TestRedeclaredVariableInSameScopeIsAnError(t *testing.T) {
	_, sink, out := analyze(t, "{int a int a}$")
	if sink.Errors(diag.AnalyzerStage) != 1 {
		t.Fatalf("expected exactly 1 redeclaration error, got %d: %s", sink.Errors(diag.AnalyzerStage), out)
	}
}

func TestUndeclaredVariableUseIsAnError(t *testing.T) {
	_, sink, out := analyze(t, "{print(a)}$")
	if sink.Errors(diag.AnalyzerStage) == 0 {
		t.Fatalf("expected an undeclared-variable error, got: %s", out)
	}
}

func TestUndeclaredVariableAssignIsAnError(t *testing.T) {
	_, sink, out := analyze(t, "{a=1}$")
	if sink.Errors(diag.AnalyzerStage) == 0 {
		t.Fatalf("expected an undeclared-variable error on assignment, got: %s", out)
	}
}

func TestAssignTypeMismatchIsAnError(t *testing.T) {
	_, sink, out := analyze(t, `{string s s="hi" int a a=s}$`)
	if sink.Errors(diag.AnalyzerStage) == 0 {
		t.Fatalf("expected a type mismatch error assigning a string to an int, got: %s", out)
	}
}

func TestCompareTypeMismatchIsAnError(t *testing.T) {
	_, sink, out := analyze(t, `{string s s="hi" if(1==s){print(1)}}$`)
	if sink.Errors(diag.AnalyzerStage) == 0 {
		t.Fatalf("expected a type mismatch error comparing int with string, got: %s", out)
	}
}

func TestUsingUninitializedVariableWarns(t *testing.T) {
	_, sink, out := analyze(t, "{int a print(a)}$")
	if sink.Warnings(diag.AnalyzerStage) == 0 {
		t.Fatalf("expected a warning for using an uninitialized variable, got: %s", out)
	}
}

func TestDeclaredButNeverInitializedWarns(t *testing.T) {
	_, sink, out := analyze(t, "{int a}$")
	if sink.Warnings(diag.AnalyzerStage) == 0 {
		t.Fatalf("expected a declared-but-never-initialized warning, got: %s", out)
	}
}

func TestInitializedButNeverUsedWarns(t *testing.T) {
	_, sink, out := analyze(t, "{int a a=1}$")
	if sink.Warnings(diag.AnalyzerStage) == 0 {
		t.Fatalf("expected an initialized-but-never-used warning, got: %s", out)
	}
}

func TestFullyUsedVariableHasNoWarnings(t *testing.T) {
	_, sink, out := analyze(t, "{int a a=1 print(a)}$")
	if sink.TotalWarnings() != 0 {
		t.Fatalf("expected no warnings for a declared, initialized and used variable, got: %s", out)
	}
}

func TestAnalyzeReturnsEmptyBlockForEmptyProgram(t *testing.T) {
	block, sink, out := analyze(t, "{}$")
	if sink.Errors(diag.AnalyzerStage) != 0 {
		t.Fatalf("unexpected errors for an empty block: %s", out)
	}
	if block == nil {
		t.Fatalf("expected a non-nil (possibly empty) Block for a valid, empty program")
	}
	if len(block.Statements) != 0 {
		t.Fatalf("expected zero statements, got %d", len(block.Statements))
	}
}
