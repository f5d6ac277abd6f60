package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"

	"github.com/TylerDeLorey623/6502-Compiler/internal/split"
	"github.com/TylerDeLorey623/6502-Compiler/pkg/codegen"
	"github.com/TylerDeLorey623/6502-Compiler/pkg/diag"
	"github.com/TylerDeLorey623/6502-Compiler/pkg/lexer"
	"github.com/TylerDeLorey623/6502-Compiler/pkg/parser"
	"github.com/TylerDeLorey623/6502-Compiler/pkg/semantics"
)

var Description = strings.ReplaceAll(`
The Pebble Compiler takes a source file holding one or more small, statically-typed
programs (each terminated by an end-of-program marker) and emits a 256-byte
6502-style machine code image for each one, through a four-pass pipeline of
lexing, parsing, semantic analysis, and code generation.
`, "\n", " ")

var PebbleCompiler = cli.New(Description).
	WithArg(cli.NewArg("inputs", "The source file to be compiled")).
	WithOption(cli.NewOption("verbose", "Enables DEBUG-level diagnostics and the CST/AST/symbol-table dumps").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("eop", "Overrides the end-of-program delimiter (default '$')").
		WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("ERROR: Unable to open input file: %s\n", err)
		return -1
	}

	eop := "$"
	if v, ok := options["eop"]; ok && v != "" {
		eop = v
	}
	_, verbose := options["verbose"]

	sink := diag.NewSink(os.Stdout, verbose)
	programs := split.Split(source, eop, sink)
	eopRune := []rune(eop)[0]

	for i, src := range programs {
		program := i + 1
		compileOne(src, eopRune, sink, program, verbose)
	}

	return 0
}

// compileOne drives the four-pass pipeline for a single program's source
// text, gating each stage on whether that stage itself reported an error for
// this program. Programs share one sink so diagnostics interleave in output
// order, but gating always compares a before/after snapshot of that sink's
// per-stage counters rather than their raw totals — otherwise an earlier
// program's errors would poison every stage gate for every program after it.
func compileOne(src string, eop rune, sink *diag.Sink, program int, verbose bool) {
	before := sink.Errors(diag.LexerStage)
	toks := lexer.New(src, eop, sink, program).Tokenize()
	if sink.Errors(diag.LexerStage) != before {
		return
	}

	before = sink.Errors(diag.ParserStage)
	cst := parser.New(toks, sink, program).Parse()
	if sink.Errors(diag.ParserStage) != before {
		return
	}
	if verbose {
		sink.Emit(diag.Debug, diag.ParserStage, diag.WithProgram(program, "CST:\n%s", cst.Dump()), nil)
	}

	before = sink.Errors(diag.AnalyzerStage)
	analyzer := semantics.New(sink, program)
	block := analyzer.Analyze(cst)
	if sink.Errors(diag.AnalyzerStage) != before {
		return
	}
	if verbose {
		sink.Emit(diag.Debug, diag.AnalyzerStage, diag.WithProgram(program, "AST:\n%s", strings.Join(block.Dump(), "\n")), nil)
		sink.Emit(diag.Debug, diag.AnalyzerStage, diag.WithProgram(program, "Symbol table:\n%s", strings.Join(analyzer.SymbolTable().Dump(), "\n")), nil)
	}

	img, err := codegen.New(sink, program).Generate(block)
	if err != nil {
		return
	}
	img.Dump(os.Stdout, sink, program)
}

func main() { os.Exit(PebbleCompiler.Run(os.Args, os.Stdout)) }
