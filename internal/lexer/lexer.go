// Package lexer implements the Noxy lexer (§4.1): source text to a finite
// token vector, including f-string parts with embedded expression text and
// format specifiers.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/estevaofon/noxy/internal/diag"
	"github.com/estevaofon/noxy/internal/token"
)

const eof = rune(0)

// Lexer scans a Noxy source string into tokens, tracking (line, column) as
// it goes so every diagnostic can point at the offending source line.
type Lexer struct {
	filename string
	src      string
	pos      int // byte offset of the next rune to read
	line     int
	col      int
}

// New creates a Lexer over src. filename is used only for diagnostics.
func New(filename, src string) *Lexer {
	return &Lexer{filename: filename, src: src, pos: 0, line: 1, col: 1}
}

// Lex scans the entire input and returns the token vector, always
// terminated by a token.EOF token, or the first syntax error encountered.
func (l *Lexer) Lex() ([]token.Token, *diag.Diagnostic) {
	var toks []token.Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) errorf(line, col int, format string, args ...any) *diag.Diagnostic {
	return diag.New(diag.KindSyntax, diag.Pos{Line: line, Column: col}, l.src, format, args...)
}

// peekRune returns the rune at pos without consuming it.
func (l *Lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *Lexer) peekRuneAt(offset int) rune {
	p := l.pos
	for i := 0; i < offset; i++ {
		if p >= len(l.src) {
			return eof
		}
		_, w := utf8.DecodeRuneInString(l.src[p:])
		p += w
	}
	if p >= len(l.src) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.src[p:])
	return r
}

// advance consumes and returns the current rune, updating line/column.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += w
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		r := l.peekRune()
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			l.advance()
		case r == '/' && l.peekRuneAt(1) == '/':
			for l.peekRune() != '\n' && l.peekRune() != eof {
				l.advance()
			}
		default:
			return
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentCont(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// next scans and returns the single next token.
func (l *Lexer) next() (token.Token, *diag.Diagnostic) {
	l.skipWhitespaceAndComments()

	line, col := l.line, l.col
	r := l.peekRune()

	switch {
	case r == eof:
		return token.Token{Kind: token.EOF, Line: line, Column: col}, nil

	case isDigit(r):
		return l.lexNumber(line, col)

	case r == '"':
		return l.lexString(line, col)

	case r == 'f' && l.peekRuneAt(1) == '"':
		l.advance() // consume 'f'
		return l.lexFString(line, col)

	case isIdentStart(r):
		return l.lexIdent(line, col)

	default:
		return l.lexOperator(line, col)
	}
}

func (l *Lexer) lexNumber(line, col int) (token.Token, *diag.Diagnostic) {
	start := l.pos
	isFloat := false
	for isDigit(l.peekRune()) {
		l.advance()
	}
	if l.peekRune() == '.' && isDigit(l.peekRuneAt(1)) {
		isFloat = true
		l.advance() // consume '.'
		for isDigit(l.peekRune()) {
			l.advance()
		}
		// A second '.' terminates the numeric literal (§4.1): do not consume it.
	} else if l.peekRune() == '.' && !isIdentStart(l.peekRuneAt(1)) && l.peekRuneAt(1) != '.' {
		// Trailing '.' with no following digit still forms a float, e.g. "3."
		isFloat = true
		l.advance()
	}
	lexeme := l.src[start:l.pos]
	if isFloat {
		f := parseFloat(lexeme)
		return token.Token{Kind: token.FLOAT, Lexeme: lexeme, Line: line, Column: col, FloatVal: f}, nil
	}
	n := parseInt(lexeme)
	return token.Token{Kind: token.INT, Lexeme: lexeme, Line: line, Column: col, IntVal: n}, nil
}

func parseInt(s string) int64 {
	var n int64
	for _, r := range s {
		n = n*10 + int64(r-'0')
	}
	return n
}

func parseFloat(s string) float64 {
	s = strings.TrimSuffix(s, ".")
	intPart, fracPart, hasFrac := s, "", false
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart, hasFrac = s[:i], s[i+1:], true
	}
	var n float64
	for _, r := range intPart {
		n = n*10 + float64(r-'0')
	}
	if hasFrac {
		scale := 1.0
		for _, r := range fracPart {
			scale /= 10
			n += float64(r-'0') * scale
		}
	}
	return n
}

// decodeEscape interprets a single backslash escape following a '\' that has
// already been consumed. Unknown escapes pass through as the literal char
// (§4.1).
func decodeEscape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case '"':
		return '"'
	case '\\':
		return '\\'
	case '0':
		return 0
	default:
		return r
	}
}

func (l *Lexer) lexString(line, col int) (token.Token, *diag.Diagnostic) {
	l.advance() // consume opening quote
	var b strings.Builder
	for {
		r := l.peekRune()
		if r == eof || r == '\n' {
			return token.Token{}, l.errorf(line, col, "unterminated string literal")
		}
		if r == '"' {
			l.advance()
			break
		}
		if r == '\\' {
			l.advance()
			esc := l.peekRune()
			if esc == eof {
				return token.Token{}, l.errorf(line, col, "unterminated string literal")
			}
			l.advance()
			b.WriteRune(decodeEscape(esc))
			continue
		}
		l.advance()
		b.WriteRune(r)
	}
	return token.Token{Kind: token.STRING, Lexeme: b.String(), Line: line, Column: col, StringVal: b.String()}, nil
}

// lexFString scans an f-string (§4.1): literal text accumulates until '{'
// opens an expression; brace depth allows nested braces in the expression's
// textual form; an optional top-level ':spec' tail is extracted.
func (l *Lexer) lexFString(line, col int) (token.Token, *diag.Diagnostic) {
	l.advance() // consume opening quote
	var parts []token.FStringPart
	var lit strings.Builder

	flushLiteral := func() {
		if lit.Len() > 0 {
			parts = append(parts, token.FStringPart{Literal: lit.String()})
			lit.Reset()
		}
	}

	for {
		r := l.peekRune()
		if r == eof {
			return token.Token{}, l.errorf(line, col, "unterminated f-string literal")
		}
		if r == '"' {
			l.advance()
			break
		}
		if r == '\\' {
			l.advance()
			esc := l.peekRune()
			if esc == eof {
				return token.Token{}, l.errorf(line, col, "unterminated f-string literal")
			}
			l.advance()
			lit.WriteRune(decodeEscape(esc))
			continue
		}
		if r == '{' {
			flushLiteral()
			l.advance()
			exprText, spec, hasSpec, perr := l.scanFStringExpr(line, col)
			if perr != nil {
				return token.Token{}, perr
			}
			parts = append(parts, token.FStringPart{Expr: exprText, Spec: spec, HasSpec: hasSpec})
			continue
		}
		l.advance()
		lit.WriteRune(r)
	}
	flushLiteral()
	return token.Token{Kind: token.FSTRING, Line: line, Column: col, FString: parts}, nil
}

// scanFStringExpr scans the textual content of one embedded expression,
// tracking brace depth so nested braces in the expression survive, and
// extracting an optional ':spec' tail at the expression's top brace level.
func (l *Lexer) scanFStringExpr(line, col int) (exprText, spec string, hasSpec bool, err *diag.Diagnostic) {
	depth := 1
	var expr strings.Builder
	var specBuf strings.Builder
	inSpec := false
	for {
		r := l.peekRune()
		if r == eof {
			return "", "", false, l.errorf(line, col, "unterminated f-string expression")
		}
		if r == '{' {
			depth++
			l.advance()
			if inSpec {
				specBuf.WriteRune(r)
			} else {
				expr.WriteRune(r)
			}
			continue
		}
		if r == '}' {
			depth--
			l.advance()
			if depth == 0 {
				break
			}
			if inSpec {
				specBuf.WriteRune(r)
			} else {
				expr.WriteRune(r)
			}
			continue
		}
		if r == ':' && depth == 1 && !inSpec {
			inSpec = true
			hasSpec = true
			l.advance()
			continue
		}
		l.advance()
		if inSpec {
			specBuf.WriteRune(r)
		} else {
			expr.WriteRune(r)
		}
	}
	return expr.String(), specBuf.String(), hasSpec, nil
}

func (l *Lexer) lexIdent(line, col int) (token.Token, *diag.Diagnostic) {
	start := l.pos
	for isIdentCont(l.peekRune()) {
		l.advance()
	}
	lexeme := l.src[start:l.pos]
	kind := token.LookupIdent(lexeme)
	switch kind {
	case token.TRUE:
		return token.Token{Kind: token.TRUE, Lexeme: lexeme, Line: line, Column: col}, nil
	case token.FALSE:
		return token.Token{Kind: token.FALSE, Lexeme: lexeme, Line: line, Column: col}, nil
	default:
		return token.Token{Kind: kind, Lexeme: lexeme, Line: line, Column: col}, nil
	}
}

type opEntry struct {
	text string
	kind token.Kind
}

// Two-character operators are matched before single-character ones (§4.1).
var twoCharOps = []opEntry{
	{">=", token.GE},
	{"<=", token.LE},
	{"==", token.EQ},
	{"!=", token.NE},
	{"->", token.ARROW},
	{"++", token.PLUSPLUS},
}

var oneCharOps = map[rune]token.Kind{
	'+': token.PLUS,
	'-': token.MINUS,
	'*': token.STAR,
	'/': token.SLASH,
	'%': token.PERCENT,
	'=': token.ASSIGN,
	'>': token.GT,
	'<': token.LT,
	'(': token.LPAREN,
	')': token.RPAREN,
	'[': token.LBRACKET,
	']': token.RBRACKET,
	'{': token.LBRACE,
	'}': token.RBRACE,
	',': token.COMMA,
	':': token.COLON,
	';': token.SEMI,
	'.': token.DOT,
	'&': token.AMP,
	'|': token.PIPE,
	'!': token.BANG,
}

func (l *Lexer) lexOperator(line, col int) (token.Token, *diag.Diagnostic) {
	r0 := l.peekRune()
	r1 := l.peekRuneAt(1)
	two := string(r0) + string(r1)
	for _, op := range twoCharOps {
		if op.text == two {
			l.advance()
			l.advance()
			return token.Token{Kind: op.kind, Lexeme: two, Line: line, Column: col}, nil
		}
	}
	if kind, ok := oneCharOps[r0]; ok {
		l.advance()
		return token.Token{Kind: kind, Lexeme: string(r0), Line: line, Column: col}, nil
	}
	return token.Token{}, l.errorf(line, col, "unexpected character %q", r0)
}
