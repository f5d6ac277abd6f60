// Package split divides one source file into its delimited programs. A
// delimiter appearing inside a "/* ... */" comment does not end a program;
// the comment pattern is the same regex the jack/vm grammars use for their
// own multi-line comments, so recognizing a comment here matches what the
// rest of the toolchain means by one.
package split

import (
	"regexp"

	"github.com/TylerDeLorey623/6502-Compiler/pkg/diag"
)

// reComment matches one whole "/* ... */" block starting at the current
// scan position.
var reComment = regexp.MustCompile(`^/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`)

// Split returns the source text of each program, in order. Terminated
// programs include their trailing delimiter; if the source doesn't end with
// one, the leftover tail is still returned as a final, synthetic program and
// a warning is reported. eop is almost always "$", overridable via --eop.
//
// This is a plain byte scan rather than a goparsec grammar: goparsec's
// Token/Atom combinators silently skip leading whitespace before matching
// (the same behavior a jack/vm grammar relies on to parse token streams
// with insignificant whitespace), which is exactly wrong here — a
// program's whitespace is significant source text that must survive
// byte-for-byte into the lexer, not get eaten by the splitter. Slicing the
// original source by scan position sidesteps that entirely.
func Split(source []byte, eop string, sink *diag.Sink) []string {
	delim := []byte(eop)

	var programs []string
	start := 0
	i := 0
	for i < len(source) {
		if loc := reComment.FindIndex(source[i:]); loc != nil {
			i += loc[1]
			continue
		}
		if hasPrefixAt(source, i, delim) {
			end := i + len(delim)
			programs = append(programs, string(source[start:end]))
			i = end
			start = end
			continue
		}
		i++
	}

	if start < len(source) {
		sink.Emit(diag.Warning, diag.CompilerStage,
			"program not terminated by the end-of-program marker; trailing input treated as a final program", nil)
		programs = append(programs, string(source[start:]))
	}

	return programs
}

func hasPrefixAt(source []byte, pos int, prefix []byte) bool {
	if pos+len(prefix) > len(source) {
		return false
	}
	for i, b := range prefix {
		if source[pos+i] != b {
			return false
		}
	}
	return true
}
