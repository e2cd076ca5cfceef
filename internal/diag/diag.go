// Package diag defines the diagnostic model shared by every compiler stage.
package diag

import (
	"fmt"
	"strings"
)

// Kind identifies which compiler stage raised a Diagnostic.
type Kind string

const (
	KindSyntax   Kind = "syntax error"
	KindSemantic Kind = "semantic error"
	KindCodegen  Kind = "code generation error"
	KindRuntime  Kind = "runtime error"
)

// Pos is a 1-indexed source location.
type Pos struct {
	Line   int
	Column int
}

// Valid reports whether the position was actually set.
func (p Pos) Valid() bool { return p.Line > 0 }

// Diagnostic is the single error type produced by every pipeline stage.
// It is fatal for the pipeline: the first Diagnostic raised skips all
// downstream stages, except the debug-IR entry point (internal/compiler)
// which carries on past a semantic-checker Diagnostic and returns partial IR
// with it, or with a codegen Diagnostic.
type Diagnostic struct {
	Kind       Kind
	Message    string
	Pos        Pos
	SourceLine string
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	if d.Pos.Valid() {
		fmt.Fprintf(&b, "%s at line %d, column %d: %s", d.Kind, d.Pos.Line, d.Pos.Column, d.Message)
	} else {
		fmt.Fprintf(&b, "%s: %s", d.Kind, d.Message)
	}
	if d.SourceLine != "" {
		b.WriteByte('\n')
		b.WriteString(d.SourceLine)
		b.WriteByte('\n')
		b.WriteString(caret(d.Pos.Column))
	}
	return b.String()
}

func caret(col int) string {
	if col <= 0 {
		return "^"
	}
	return strings.Repeat(" ", col-1) + "^"
}

// New builds a Diagnostic with an optional source line lookup. source may be
// empty if the line text is not available (e.g. an f-string sub-expression
// whose text was already extracted from the parent line).
func New(kind Kind, pos Pos, source string, format string, args ...any) *Diagnostic {
	d := &Diagnostic{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
	if pos.Valid() && source != "" {
		d.SourceLine = lineAt(source, pos.Line)
	}
	return d
}

func lineAt(source string, line int) string {
	if line <= 0 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}
	return lines[line-1]
}

// Wrap attaches a Diagnostic's Kind/Pos context to an arbitrary internal
// error that does not already carry source position information (the
// "code-generation error" case of spec.md §7: an uncaught exception wrapped
// with the current AST node's location).
func Wrap(kind Kind, pos Pos, source string, err error) *Diagnostic {
	if d, ok := err.(*Diagnostic); ok {
		return d
	}
	return New(kind, pos, source, "%s", err.Error())
}
