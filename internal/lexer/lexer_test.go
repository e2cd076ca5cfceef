package lexer

import (
	"testing"

	"github.com/estevaofon/noxy/internal/token"
)

func TestLexSimpleTokens(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{
			name: "arithmetic",
			src:  "let a: int = 2 + 3 * 2",
			want: []token.Kind{token.LET, token.IDENT, token.COLON, token.INT_TYPE, token.ASSIGN, token.INT, token.PLUS, token.INT, token.STAR, token.INT, token.EOF},
		},
		{
			name: "two-char operators",
			src:  ">= <= == != -> ++",
			want: []token.Kind{token.GE, token.LE, token.EQ, token.NE, token.ARROW, token.PLUSPLUS, token.EOF},
		},
		{
			name: "comment skipped",
			src:  "1 // trailing comment\n2",
			want: []token.Kind{token.INT, token.INT, token.EOF},
		},
		{
			name: "keywords",
			src:  "if then else end while do print func return struct ref break use select zeros true false null",
			want: []token.Kind{
				token.IF, token.THEN, token.ELSE, token.END, token.WHILE, token.DO, token.PRINT, token.FUNC,
				token.RETURN, token.STRUCT, token.REF, token.BREAK, token.USE, token.SELECT, token.ZEROS,
				token.TRUE, token.FALSE, token.NULL, token.EOF,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := New("test.nx", tt.src).Lex()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(toks) != len(tt.want) {
				t.Fatalf("got %d tokens, want %d: %v", len(toks), len(tt.want), toks)
			}
			for i, k := range tt.want {
				if toks[i].Kind != k {
					t.Errorf("token %d: got kind %v, want %v", i, toks[i].Kind, k)
				}
			}
		})
	}
}

func TestLexNumberLiterals(t *testing.T) {
	toks, err := New("test.nx", "42 3.14 5.").Lex()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != token.INT || toks[0].IntVal != 42 {
		t.Fatalf("got %+v, want INT 42", toks[0])
	}
	if toks[1].Kind != token.FLOAT || toks[1].FloatVal != 3.14 {
		t.Fatalf("got %+v, want FLOAT 3.14", toks[1])
	}
	if toks[2].Kind != token.FLOAT || toks[2].FloatVal != 5.0 {
		t.Fatalf("got %+v, want FLOAT 5.0", toks[2])
	}
}

func TestLexSecondDotTerminatesNumber(t *testing.T) {
	toks, err := New("test.nx", "1.2.3").Lex()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != token.FLOAT || toks[0].FloatVal != 1.2 {
		t.Fatalf("first literal: got %+v", toks[0])
	}
	if toks[1].Kind != token.DOT {
		t.Fatalf("expected DOT separating second literal, got %+v", toks[1])
	}
	if toks[2].Kind != token.INT || toks[2].IntVal != 3 {
		t.Fatalf("third literal: got %+v", toks[2])
	}
}

func TestLexStringEscapes(t *testing.T) {
	toks, err := New("test.nx", `"a\nb\tc\"d\\e\0f" "unknown\zescape"`).Lex()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "a\nb\tc\"d\\e\x00f"
	if toks[0].StringVal != want {
		t.Fatalf("got %q, want %q", toks[0].StringVal, want)
	}
	if toks[1].StringVal != "unknownzescape" {
		t.Fatalf("unknown escape should pass the literal char through, got %q", toks[1].StringVal)
	}
}

func TestLexUnterminatedString(t *testing.T) {
	_, err := New("test.nx", `"oops`).Lex()
	if err == nil {
		t.Fatal("expected syntax error for unterminated string")
	}
}

func TestLexFString(t *testing.T) {
	toks, err := New("test.nx", `f"({p.x},{p.y:.2f}) plain"`).Lex()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != token.FSTRING {
		t.Fatalf("got %v, want FSTRING", toks[0].Kind)
	}
	parts := toks[0].FString
	if len(parts) != 5 {
		t.Fatalf("got %d parts, want 5: %+v", len(parts), parts)
	}
	if parts[0].Literal != "(" {
		t.Errorf("part 0: got %q", parts[0].Literal)
	}
	if parts[1].Expr != "p.x" {
		t.Errorf("part 1: got %q", parts[1].Expr)
	}
	if parts[2].Literal != "," {
		t.Errorf("part 2: got %q", parts[2].Literal)
	}
	if parts[3].Expr != "p.y" || parts[3].Spec != ".2f" || !parts[3].HasSpec {
		t.Errorf("part 3: got %+v", parts[3])
	}
}

func TestLexFStringNestedBraces(t *testing.T) {
	toks, err := New("test.nx", `f"{a[{1}]}"`).Lex()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parts := toks[0].FString
	if len(parts) != 1 || parts[0].Expr != "a[{1}]" {
		t.Fatalf("got %+v", parts)
	}
}

func TestLexUnterminatedFString(t *testing.T) {
	_, err := New("test.nx", `f"no closing quote`).Lex()
	if err == nil {
		t.Fatal("expected syntax error for unterminated f-string")
	}
	_, err = New("test.nx", `f"{unterminated expr`).Lex()
	if err == nil {
		t.Fatal("expected syntax error for unterminated f-string expression")
	}
}

// TestLexRoundTripLocality verifies the round-trip lex->print property
// (spec.md §8 property 1): every token's (line, column) re-localises to the
// character that began its lexeme.
func TestLexRoundTripLocality(t *testing.T) {
	src := "let x: int = 1\nlet y: int = 2\n"
	toks, err := New("test.nx", src).Lex()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := []string{"let x: int = 1", "let y: int = 2", ""}
	for _, tok := range toks {
		if tok.Kind == token.EOF {
			continue
		}
		line := lines[tok.Line-1]
		if tok.Column-1 >= len(line) {
			t.Fatalf("token %+v column out of range for line %q", tok, line)
		}
		got := line[tok.Column-1]
		if rune(got) != []rune(tok.Lexeme)[0] {
			t.Errorf("token %+v: char at column is %q, want start of %q", tok, got, tok.Lexeme)
		}
	}
}

func TestLexIllegalCharacter(t *testing.T) {
	_, err := New("test.nx", "let x = 1 ~ 2").Lex()
	if err == nil {
		t.Fatal("expected syntax error for illegal character")
	}
}
