// Package diag implements the diagnostic sink shared by all four compiler
// stages: a small, hand-rolled formatter that writes structured status
// lines to an io.Writer with fmt rather than reaching for a logging
// library.
package diag

import (
	"fmt"
	"io"
)

// Level is the closed set of diagnostic severities 
type Level int

const (
	Info Level = iota
	Debug
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "INFO"
	case Debug:
		return "DEBUG"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Stage identifies which pass of the pipeline raised a diagnostic.
type Stage int

const (
	LexerStage Stage = iota
	ParserStage
	AnalyzerStage
	CodeGenStage
	CompilerStage
)

func (s Stage) String() string {
	switch s {
	case LexerStage:
		return "Lexer"
	case ParserStage:
		return "Parser"
	case AnalyzerStage:
		return "Analyzer"
	case CodeGenStage:
		return "Code Gen"
	case CompilerStage:
		return "Compiler"
	default:
		return "Unknown"
	}
}

// Position is a 1-based source location, attached to position-bearing
// diagnostics (: "append ' at (line:column)'").
type Position struct {
	Line   int
	Column int
}

// Sink is the diagnostic destination shared by every program compiled from
// one source file. It owns the verbose gate as an instance field (not a
// package global) and the per-stage error/warning counters that drive the
// pipeline's stage-gating rule: a stage only runs if the prior stage
// reported zero errors. The counters accumulate across programs, so a
// driver gating one program compares them before and after each stage. A
// Sink is not safe for concurrent use.
type Sink struct {
	out     io.Writer
	Verbose bool

	errors   map[Stage]int
	warnings map[Stage]int
}

// NewSink returns a Sink writing to w, gated by verbose for Debug lines.
func NewSink(w io.Writer, verbose bool) *Sink {
	return &Sink{
		out:      w,
		Verbose:  verbose,
		errors:   map[Stage]int{},
		warnings: map[Stage]int{},
	}
}

// Emit writes one diagnostic line, counting it if it's an Error or Warning.
// pos may be nil for diagnostics with no associated source location.
func (s *Sink) Emit(level Level, stage Stage, msg string, pos *Position) {
	if level == Debug && !s.Verbose {
		return
	}

	line := fmt.Sprintf("%-8s%s - %s", level, stage, msg)
	if pos != nil {
		line += fmt.Sprintf(" at (%d:%d)", pos.Line, pos.Column)
	}
	fmt.Fprintln(s.out, line)

	switch level {
	case Error:
		s.errors[stage]++
	case Warning:
		s.warnings[stage]++
	}
}

// Errors returns the number of errors emitted for stage.
func (s *Sink) Errors(stage Stage) int { return s.errors[stage] }

// Warnings returns the number of warnings emitted for stage.
func (s *Sink) Warnings(stage Stage) int { return s.warnings[stage] }

// TotalErrors sums error counts across every stage.
func (s *Sink) TotalErrors() int {
	total := 0
	for _, n := range s.errors {
		total += n
	}
	return total
}

// TotalWarnings sums warning counts across every stage.
func (s *Sink) TotalWarnings() int {
	total := 0
	for _, n := range s.warnings {
		total += n
	}
	return total
}

// WithProgram prefixes a formatted message with its 1-based program number,
// so every diagnostic names which program raised it, not just the final
// "Code Generation for Program #N" header.
func WithProgram(program int, format string, args ...any) string {
	return fmt.Sprintf("Program #%d: "+format, append([]any{program}, args...)...)
}
