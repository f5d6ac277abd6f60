// Package lexer implements a longest-match lexer: a single-pass scanner
// over one program's source text that produces an ordered token stream
// plus a diagnostic count, switching between a default mode, a
// quoted-string mode and a block-comment mode as it goes.
package lexer

import (
	"regexp"
	"strings"

	"github.com/TylerDeLorey623/6502-Compiler/pkg/diag"
)

// Kind is the closed token vocabulary.
type Kind int

const (
	KindKeywordPrint Kind = iota
	KindKeywordWhile
	KindKeywordIf
	KindKeywordInt
	KindKeywordString
	KindKeywordBoolean
	KindKeywordTrue
	KindKeywordFalse

	KindIdentifier
	KindDigit
	KindCharacter // [a-z] or literal space, only meaningful inside quoted mode

	KindLBrace
	KindRBrace
	KindQuote
	KindLParen
	KindRParen
	KindEqEq
	KindNotEq
	KindPlus
	KindAssign
	KindEOP // end-of-program marker

	KindEOF
)

func (k Kind) String() string {
	switch k {
	case KindKeywordPrint:
		return "print"
	case KindKeywordWhile:
		return "while"
	case KindKeywordIf:
		return "if"
	case KindKeywordInt:
		return "int"
	case KindKeywordString:
		return "string"
	case KindKeywordBoolean:
		return "boolean"
	case KindKeywordTrue:
		return "true"
	case KindKeywordFalse:
		return "false"
	case KindIdentifier:
		return "ID"
	case KindDigit:
		return "DIGIT"
	case KindCharacter:
		return "CHAR"
	case KindLBrace:
		return "{"
	case KindRBrace:
		return "}"
	case KindQuote:
		return "\""
	case KindLParen:
		return "("
	case KindRParen:
		return ")"
	case KindEqEq:
		return "=="
	case KindNotEq:
		return "!="
	case KindPlus:
		return "+"
	case KindAssign:
		return "="
	case KindEOP:
		return "$"
	case KindEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token is an immutable discriminated record. Lexeme preserves the exact
// source text; Line/Column are 1-based.
type Token struct {
	Kind   Kind
	Lexeme string
	Line   int
	Column int
}

var keywords = map[string]Kind{
	"print":   KindKeywordPrint,
	"while":   KindKeywordWhile,
	"if":      KindKeywordIf,
	"int":     KindKeywordInt,
	"string":  KindKeywordString,
	"boolean": KindKeywordBoolean,
	"true":    KindKeywordTrue,
	"false":   KindKeywordFalse,
}

// symbols holds every fixed single/double-character symbol except the
// end-of-program marker, whose lexeme is configurable per Lexer instance
// (see Lexer.eop) rather than hardcoded to "$".
var symbols = map[string]Kind{
	"{":  KindLBrace,
	"}":  KindRBrace,
	"\"": KindQuote,
	"(":  KindLParen,
	")":  KindRParen,
	"==": KindEqEq,
	"!=": KindNotEq,
	"+":  KindPlus,
	"=":  KindAssign,
}

// class is one candidate token recognized at the current scan position,
// carried alongside its recognized Kind so the longest-match-with-priority
// rule  can pick a winner.
type class struct {
	kind   Kind
	lexeme string
}

var (
	reComment   = regexp.MustCompile(`^/\*`)
	reCommentEnd = regexp.MustCompile(`^\*/`)
	reWhitespace = regexp.MustCompile(`^[ \t]+`)
	reNewline   = regexp.MustCompile(`^(\r\n|\r|\n)`)
	reKeyword   = regexp.MustCompile(`^(print|while|if|int|string|boolean|true|false)\b`)
	reIdent     = regexp.MustCompile(`^[a-z]`)
	reDigit     = regexp.MustCompile(`^[0-9]`)
	reSymbol    = regexp.MustCompile(`^(==|!=|\{|\}|"|\(|\)|\+|=)`)
	reCharacter = regexp.MustCompile(`^([a-z]| )`)
)

// Lexer owns its position state as instance fields rather than
// process-wide globals, so multiple programs can be scanned independently.
type Lexer struct {
	source []rune
	pos    int
	line   int
	column int

	inQuotes bool
	inComment bool

	eop rune // end-of-program delimiter, "$" unless overridden

	sink    *diag.Sink
	program int // 1-based program number, threaded through diagnostics
}

// New returns a Lexer ready to scan source, reporting through sink. eop is
// the single-character end-of-program delimiter (default "$", overridable
// via the compiler's --eop option).
func New(source string, eop rune, sink *diag.Sink, program int) *Lexer {
	return &Lexer{
		source:  []rune(source),
		pos:     0,
		line:    1,
		column:  1,
		eop:     eop,
		sink:    sink,
		program: program,
	}
}

func (l *Lexer) rest() string {
	return string(l.source[l.pos:])
}

func (l *Lexer) advance(n int) {
	for i := 0; i < n; i++ {
		if l.pos >= len(l.source) {
			return
		}
		c := l.source[l.pos]
		lineEnd := c == '\n' || (c == '\r' && (l.pos+1 >= len(l.source) || l.source[l.pos+1] != '\n'))
		if lineEnd {
			l.line++
			l.column = 1
		} else {
			l.column++
		}
		l.pos++
	}
}

// Tokenize scans the whole source and returns the token stream. Errors and
// warnings (unrecognized token, unterminated string/comment, unpaired
// comment close) are reported through the sink rather than returned, and
// scanning always continues to the end of input.
func (l *Lexer) Tokenize() []Token {
	tokens := []Token{}

	for l.pos < len(l.source) {
		if l.inComment {
			l.scanComment()
			continue
		}

		if l.inQuotes {
			if tok, ok := l.scanQuoted(); ok {
				tokens = append(tokens, tok)
			}
			continue
		}

		if loc := reNewline.FindString(l.rest()); loc != "" {
			l.advance(len(loc))
			continue
		}
		if loc := reWhitespace.FindString(l.rest()); loc != "" {
			l.advance(len(loc))
			continue
		}
		if reComment.MatchString(l.rest()) {
			l.advance(2)
			l.inComment = true
			continue
		}
		if reCommentEnd.MatchString(l.rest()) {
			l.errorf("unpaired comment close '*/'")
			l.advance(2)
			continue
		}

		tok, ok := l.scanDefault()
		if !ok {
			l.errorf("unrecognized token '%c'", l.source[l.pos])
			l.advance(1)
			continue
		}
		tokens = append(tokens, tok)

		if tok.Kind == KindQuote {
			l.inQuotes = true
		}
	}

	if l.inComment {
		l.warnf("unterminated comment at end of input")
	}
	if l.inQuotes {
		l.errorf("unterminated string")
	}

	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != KindEOP {
		l.warnf("program not terminated by the end-of-program symbol")
	}

	return tokens
}

// scanDefault tries every default-mode class at the current position and
// returns the longest match, ties broken by keyword-over-identifier
// grammar order.
func (l *Lexer) scanDefault() (Token, bool) {
	rest := l.rest()
	var candidates []class

	if m := reKeyword.FindString(rest); m != "" {
		candidates = append(candidates, class{keywords[m], m})
	}
	if m := reIdent.FindString(rest); m != "" {
		candidates = append(candidates, class{KindIdentifier, m})
	}
	if m := reSymbol.FindString(rest); m != "" {
		candidates = append(candidates, class{symbols[m], m})
	}
	if m := reDigit.FindString(rest); m != "" {
		candidates = append(candidates, class{KindDigit, m})
	}
	if len(rest) > 0 && rune(rest[0]) == l.eop {
		candidates = append(candidates, class{KindEOP, string(l.eop)})
	}

	if len(candidates) == 0 {
		return Token{}, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if len(c.lexeme) > len(best.lexeme) {
			best = c
		}
	}

	tok := Token{Kind: best.kind, Lexeme: best.lexeme, Line: l.line, Column: l.column}
	l.advance(len(best.lexeme))
	return tok, true
}

// scanQuoted recognizes only the character class and the closing quote
// while inQuotes; any other lexeme is an error.
func (l *Lexer) scanQuoted() (Token, bool) {
	rest := l.rest()

	if strings.HasPrefix(rest, "\"") {
		tok := Token{Kind: KindQuote, Lexeme: "\"", Line: l.line, Column: l.column}
		l.advance(1)
		l.inQuotes = false
		return tok, true
	}

	if m := reNewline.FindString(rest); m != "" {
		l.errorf("unterminated string")
		l.inQuotes = false
		l.advance(len(m))
		return Token{}, false
	}

	if m := reCharacter.FindString(rest); m != "" {
		tok := Token{Kind: KindCharacter, Lexeme: m, Line: l.line, Column: l.column}
		l.advance(len(m))
		return tok, true
	}

	// Symbols (or anything else) inside a string are an error.
	l.errorf("symbol '%c' not allowed inside string", rest[0])
	l.advance(1)
	return Token{}, false
}

// scanComment silently consumes everything up to and including the closing
// '*/', tracking line numbers for any embedded newlines.
func (l *Lexer) scanComment() {
	rest := l.rest()

	if reCommentEnd.MatchString(rest) {
		l.advance(2)
		l.inComment = false
		return
	}
	if m := reNewline.FindString(rest); m != "" {
		l.advance(len(m))
		return
	}
	if l.pos >= len(l.source) {
		return
	}
	l.advance(1)
}

func (l *Lexer) errorf(format string, args ...any) {
	l.sink.Emit(diag.Error, diag.LexerStage, diag.WithProgram(l.program, format, args...), &diag.Position{Line: l.line, Column: l.column})
}

func (l *Lexer) warnf(format string, args ...any) {
	l.sink.Emit(diag.Warning, diag.LexerStage, diag.WithProgram(l.program, format, args...), &diag.Position{Line: l.line, Column: l.column})
}
