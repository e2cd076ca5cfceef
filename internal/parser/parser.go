// Package parser implements the Noxy recursive-descent parser (§4.2):
// tokens to a typed AST, with a struct/function declaration set maintained
// during the walk and a sub-lexer/sub-parser invoked for each f-string
// embedded expression.
package parser

import (
	"github.com/estevaofon/noxy/internal/ast"
	"github.com/estevaofon/noxy/internal/diag"
	"github.com/estevaofon/noxy/internal/lexer"
	"github.com/estevaofon/noxy/internal/token"
)

// Parser holds the declared-structs/declared-functions/namespace sets shared
// across one parse, plus the function-nesting depth used to decide whether
// a `let` is global or local (§4.2).
type Parser struct {
	filename string
	src      string
	toks     []token.Token
	pos      int

	structs    map[string]bool // declared struct names
	functions  map[string]bool // declared function names (built-ins included)
	namespaces map[string]bool // import namespaces recorded from bare `use M`
	depth      int             // function-nesting depth; 0 is top level
	loopDepth  int
}

// builtinFunctions are always callable without a prior declaration, mirroring
// the resolver's built-in exclusion set (§4.3).
var builtinFunctions = []string{
	"printf", "malloc", "free", "strlen", "strcpy", "strcat",
	"to_str", "array_to_str", "to_int", "to_float", "ord", "length", "print",
}

// New creates a Parser over tokens produced from src (used for diagnostics).
func New(filename, src string, toks []token.Token) *Parser {
	p := &Parser{
		filename:   filename,
		src:        src,
		toks:       toks,
		structs:    make(map[string]bool),
		functions:  make(map[string]bool),
		namespaces: make(map[string]bool),
	}
	for _, name := range builtinFunctions {
		p.functions[name] = true
	}
	return p
}

// Parse lexes and parses src into a Program.
func Parse(filename, src string) (*ast.Program, *diag.Diagnostic) {
	toks, err := lexer.New(filename, src).Lex()
	if err != nil {
		return nil, err
	}
	return New(filename, src, toks).ParseProgram()
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) errorf(format string, args ...any) *diag.Diagnostic {
	t := p.cur()
	return diag.New(diag.KindSyntax, diag.Pos{Line: t.Line, Column: t.Column}, p.src, format, args...)
}

func (p *Parser) expect(k token.Kind, what string) (token.Token, *diag.Diagnostic) {
	if !p.check(k) {
		return token.Token{}, p.errorf("expected %s, got %q", what, p.cur().Lexeme)
	}
	return p.advance(), nil
}

func (p *Parser) posHere() ast.Pos {
	t := p.cur()
	return ast.Pos{Line: t.Line, Column: t.Column}
}

// ParseProgram parses the entire token vector into a Program, preserving
// strict textual order of all top-level statements.
func (p *Parser) ParseProgram() (*ast.Program, *diag.Diagnostic) {
	var stmts []ast.Stmt
	for !p.check(token.EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, *stmt)
	}
	return &ast.Program{Statements: stmts}, nil
}

// parseBlockUntil parses statements until one of the terminator keywords is
// seen (without consuming it).
func (p *Parser) parseBlockUntil(terminators ...token.Kind) ([]ast.Stmt, *diag.Diagnostic) {
	var stmts []ast.Stmt
	for {
		for _, t := range terminators {
			if p.check(t) {
				return stmts, nil
			}
		}
		if p.check(token.EOF) {
			return nil, p.errorf("unexpected end of input, expected block terminator")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, *stmt)
	}
}

// parseStatement dispatches on the current token (§4.2 "Statement dispatch").
func (p *Parser) parseStatement() (*ast.Stmt, *diag.Diagnostic) {
	switch p.cur().Kind {
	case token.LET:
		return p.parseLetOrGlobal(false)
	case token.GLOBAL:
		return p.parseLetOrGlobal(true)
	case token.PRINT:
		return p.parsePrint()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FUNC:
		return p.parseFunc()
	case token.RETURN:
		return p.parseReturn()
	case token.STRUCT:
		return p.parseStructDef()
	case token.BREAK:
		return p.parseBreak()
	case token.USE:
		return p.parseUse()
	case token.IDENT:
		return p.parseIdentifierStatement()
	default:
		return nil, p.errorf("unexpected token %q at start of statement", p.cur().Lexeme)
	}
}

// parseLetOrGlobal handles `let`/`global` declarations. At function-nesting
// depth 0, `let` means global; `global` always means global regardless of
// depth.
func (p *Parser) parseLetOrGlobal(forceGlobal bool) (*ast.Stmt, *diag.Diagnostic) {
	pos := p.posHere()
	p.advance() // consume let/global
	name, err := p.expect(token.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	var declType *ast.Type
	if p.match(token.COLON) {
		t, terr := p.parseType()
		if terr != nil {
			return nil, terr
		}
		declType = &t
	}
	if _, err := p.expect(token.ASSIGN, "'='"); err != nil {
		return nil, err
	}
	value, verr := p.parseExpression()
	if verr != nil {
		return nil, verr
	}
	isGlobal := forceGlobal || p.depth == 0
	return &ast.Stmt{
		Pos: pos, Kind: ast.StmtAssignment,
		Target: name.Lexeme, DeclType: declType, Value: value, IsGlobal: isGlobal,
	}, nil
}

func (p *Parser) parsePrint() (*ast.Stmt, *diag.Diagnostic) {
	pos := p.posHere()
	p.advance()
	if _, err := p.expect(token.LPAREN, "'('"); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	return &ast.Stmt{Pos: pos, Kind: ast.StmtPrint, Value: value}, nil
}

func (p *Parser) parseIf() (*ast.Stmt, *diag.Diagnostic) {
	pos := p.posHere()
	p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.THEN, "'then'"); err != nil {
		return nil, err
	}
	then, err := p.parseBlockUntil(token.ELSE, token.END)
	if err != nil {
		return nil, err
	}
	var elseStmts []ast.Stmt
	if p.match(token.ELSE) {
		elseStmts, err = p.parseBlockUntil(token.END)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.END, "'end'"); err != nil {
		return nil, err
	}
	return &ast.Stmt{Pos: pos, Kind: ast.StmtIf, Cond: cond, Then: then, Else: elseStmts}, nil
}

func (p *Parser) parseWhile() (*ast.Stmt, *diag.Diagnostic) {
	pos := p.posHere()
	p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.DO, "'do'"); err != nil {
		return nil, err
	}
	p.loopDepth++
	body, err := p.parseBlockUntil(token.END)
	p.loopDepth--
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.END, "'end'"); err != nil {
		return nil, err
	}
	return &ast.Stmt{Pos: pos, Kind: ast.StmtWhile, Cond: cond, Body: body}, nil
}

func (p *Parser) parseBreak() (*ast.Stmt, *diag.Diagnostic) {
	pos := p.posHere()
	p.advance()
	if p.loopDepth == 0 {
		return nil, diag.New(diag.KindSemantic, diag.Pos{Line: pos.Line, Column: pos.Column}, p.src, "break used outside of loop")
	}
	return &ast.Stmt{Pos: pos, Kind: ast.StmtBreak}, nil
}

func (p *Parser) parseReturn() (*ast.Stmt, *diag.Diagnostic) {
	pos := p.posHere()
	p.advance()
	if p.atStatementEnd() {
		return &ast.Stmt{Pos: pos, Kind: ast.StmtReturn}, nil
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Stmt{Pos: pos, Kind: ast.StmtReturn, Value: value}, nil
}

// atStatementEnd reports whether the current token can only begin a new
// statement, meaning a preceding `return` had no value.
func (p *Parser) atStatementEnd() bool {
	// Only tokens that can never begin an expression terminate a value-less
	// `return`; IDENT is excluded because it begins both a new
	// identifier-led statement and a valid return expression, and in
	// practice `return` is always immediately followed by its value or by
	// a block terminator.
	switch p.cur().Kind {
	case token.END, token.ELSE, token.EOF,
		token.LET, token.GLOBAL, token.PRINT, token.IF, token.WHILE, token.FUNC,
		token.RETURN, token.STRUCT, token.BREAK, token.USE:
		return true
	default:
		return false
	}
}

func (p *Parser) parseFunc() (*ast.Stmt, *diag.Diagnostic) {
	pos := p.posHere()
	p.advance()
	name, err := p.expect(token.IDENT, "function name")
	if err != nil {
		return nil, err
	}
	p.functions[name.Lexeme] = true
	if _, err := p.expect(token.LPAREN, "'('"); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.check(token.RPAREN) {
		pname, perr := p.expect(token.IDENT, "parameter name")
		if perr != nil {
			return nil, perr
		}
		if _, err := p.expect(token.COLON, "':'"); err != nil {
			return nil, err
		}
		ptype, terr := p.parseType()
		if terr != nil {
			return nil, terr
		}
		params = append(params, ast.Param{Name: pname.Lexeme, Type: ptype})
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	ret := ast.Void()
	if p.match(token.ARROW) {
		ret, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	p.depth++
	body, berr := p.parseBlockUntil(token.END)
	p.depth--
	if berr != nil {
		return nil, berr
	}
	if _, err := p.expect(token.END, "'end'"); err != nil {
		return nil, err
	}
	fn := &ast.Function{Pos: pos, Name: name.Lexeme, Params: params, Return: ret, Body: body}
	return &ast.Stmt{Pos: pos, Kind: ast.StmtFuncDef, FuncDef: fn}, nil
}

func (p *Parser) parseStructDef() (*ast.Stmt, *diag.Diagnostic) {
	pos := p.posHere()
	p.advance()
	name, err := p.expect(token.IDENT, "struct name")
	if err != nil {
		return nil, err
	}
	p.structs[name.Lexeme] = true
	var fields []ast.StructField
	for !p.check(token.END) {
		fname, ferr := p.expect(token.IDENT, "field name")
		if ferr != nil {
			return nil, ferr
		}
		if _, err := p.expect(token.COLON, "':'"); err != nil {
			return nil, err
		}
		ftype, terr := p.parseType()
		if terr != nil {
			return nil, terr
		}
		fields = append(fields, ast.StructField{Name: fname.Lexeme, Type: ftype})
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.expect(token.END, "'end'"); err != nil {
		return nil, err
	}
	def := &ast.StructDefinition{Pos: pos, Name: name.Lexeme, Fields: fields}
	return &ast.Stmt{Pos: pos, Kind: ast.StmtStructDef, StructDef: def}, nil
}

// parseUse handles `use M`, `use M select *`, and `use M select s1, s2`
// (§4.3). A bare `use M` registers M as a namespace prefix the parser will
// recognise in dotted identifier chains.
func (p *Parser) parseUse() (*ast.Stmt, *diag.Diagnostic) {
	pos := p.posHere()
	p.advance()
	module, merr := p.parseModulePath()
	if merr != nil {
		return nil, merr
	}
	use := &ast.Use{Pos: pos, Module: module}
	if p.match(token.SELECT) {
		if p.match(token.STAR) {
			use.ImportAll = true
		} else {
			for {
				sym, serr := p.expect(token.IDENT, "imported symbol name")
				if serr != nil {
					return nil, serr
				}
				use.Selected = append(use.Selected, sym.Lexeme)
				if !p.match(token.COMMA) {
					break
				}
			}
		}
	} else {
		p.namespaces[module] = true
	}
	return &ast.Stmt{Pos: pos, Kind: ast.StmtUse, UseDecl: use}, nil
}

// parseModulePath parses a dotted module path like `a.b.c`.
func (p *Parser) parseModulePath() (string, *diag.Diagnostic) {
	first, err := p.expect(token.IDENT, "module name")
	if err != nil {
		return "", err
	}
	path := first.Lexeme
	for p.check(token.DOT) && p.peekAt(1).Kind == token.IDENT {
		p.advance() // '.'
		seg, serr := p.expect(token.IDENT, "module path segment")
		if serr != nil {
			return "", serr
		}
		path += "." + seg.Lexeme
	}
	return path, nil
}

// parseType parses `ref T`, primitives, a struct name, or `T[size?]` (§4.2).
func (p *Parser) parseType() (ast.Type, *diag.Diagnostic) {
	mutable := false
	if p.match(token.REF) {
		mutable = true
		inner, err := p.parseType()
		if err != nil {
			return ast.Type{}, err
		}
		return ast.Ref(inner, mutable), nil
	}

	var base ast.Type
	switch p.cur().Kind {
	case token.INT_TYPE:
		p.advance()
		base = ast.Int()
	case token.FLOAT_TYPE:
		p.advance()
		base = ast.Float()
	case token.STRING_TYPE, token.STR_TYPE:
		p.advance()
		base = ast.Str()
	case token.BOOL_TYPE:
		p.advance()
		base = ast.Bool()
	case token.VOID_TYPE:
		p.advance()
		base = ast.Void()
	case token.IDENT:
		name := p.advance()
		base = ast.Struct(name.Lexeme)
	default:
		return ast.Type{}, p.errorf("expected a type, got %q", p.cur().Lexeme)
	}

	if p.match(token.LBRACKET) {
		var size *int
		if p.check(token.INT) {
			n := int(p.advance().IntVal)
			size = &n
		}
		if _, err := p.expect(token.RBRACKET, "']'"); err != nil {
			return ast.Type{}, err
		}
		base = ast.Array(base, size)
	}
	return base, nil
}

// parseIdentifierStatement implements the five identifier-led statement
// forms distinguished by lookahead (§4.2 "Statement dispatch").
func (p *Parser) parseIdentifierStatement() (*ast.Stmt, *diag.Diagnostic) {
	pos := p.posHere()
	name := p.advance().Lexeme

	switch {
	case p.check(token.LBRACKET):
		p.advance()
		idx, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBRACKET, "']'"); err != nil {
			return nil, err
		}
		if p.check(token.DOT) {
			path, ferr := p.parseDottedFieldPath()
			if ferr != nil {
				return nil, ferr
			}
			if _, err := p.expect(token.ASSIGN, "'='"); err != nil {
				return nil, err
			}
			val, verr := p.parseExpression()
			if verr != nil {
				return nil, verr
			}
			return &ast.Stmt{Pos: pos, Kind: ast.StmtArrayFieldAssignment, Target: name, Index: idx, FieldPath: path, Value: val}, nil
		}
		if p.check(token.ASSIGN) {
			p.advance()
			val, verr := p.parseExpression()
			if verr != nil {
				return nil, verr
			}
			return &ast.Stmt{Pos: pos, Kind: ast.StmtArrayAssignment, Target: name, Index: idx, Value: val}, nil
		}
		base := &ast.Expr{Pos: pos, Kind: ast.ExprArrayAccess, Name: name, Index: idx}
		return &ast.Stmt{Pos: pos, Kind: ast.StmtExpr, Value: base}, nil

	case p.check(token.DOT):
		path, ferr := p.parseDottedFieldPath()
		if ferr != nil {
			return nil, ferr
		}
		if p.check(token.LPAREN) {
			args, aerr := p.parseArgList()
			if aerr != nil {
				return nil, aerr
			}
			fn := name
			if len(path) > 0 {
				fn = name + "." + path[len(path)-1]
			}
			call := &ast.Expr{Pos: pos, Kind: ast.ExprCall, Name: fn, Args: args}
			return &ast.Stmt{Pos: pos, Kind: ast.StmtExpr, Value: call}, nil
		}
		if _, err := p.expect(token.ASSIGN, "'='"); err != nil {
			return nil, err
		}
		val, verr := p.parseExpression()
		if verr != nil {
			return nil, verr
		}
		kind := ast.StmtStructAssignment
		if len(path) > 1 {
			kind = ast.StmtNestedStructAssignment
		}
		return &ast.Stmt{Pos: pos, Kind: kind, Target: name, FieldPath: path, Value: val}, nil

	case p.check(token.ASSIGN):
		p.advance()
		val, verr := p.parseExpression()
		if verr != nil {
			return nil, verr
		}
		return &ast.Stmt{Pos: pos, Kind: ast.StmtAssignment, Target: name, Value: val}, nil

	case p.check(token.LPAREN):
		args, aerr := p.parseArgList()
		if aerr != nil {
			return nil, aerr
		}
		kind := ast.ExprCall
		if p.structs[name] {
			kind = ast.ExprStructConstructor
		}
		call := &ast.Expr{Pos: pos, Kind: kind, Name: name, Args: args}
		return &ast.Stmt{Pos: pos, Kind: ast.StmtExpr, Value: call}, nil

	default:
		return nil, p.errorf("unexpected token %q after identifier %q", p.cur().Lexeme, name)
	}
}

// parseDottedFieldPath consumes a run of `.ident` segments.
func (p *Parser) parseDottedFieldPath() ([]string, *diag.Diagnostic) {
	var path []string
	for p.check(token.DOT) {
		p.advance()
		seg, err := p.expect(token.IDENT, "field name")
		if err != nil {
			return nil, err
		}
		path = append(path, seg.Lexeme)
	}
	return path, nil
}

// parseArgList parses a parenthesized, comma-separated argument list.
func (p *Parser) parseArgList() ([]ast.Expr, *diag.Diagnostic) {
	if _, err := p.expect(token.LPAREN, "'('"); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for !p.check(token.RPAREN) {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, *arg)
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}

// parseExpression is the grammar's entry point: or > and > comparisons >
// additive > multiplicative > unary > postfix > primary (§4.2).
func (p *Parser) parseExpression() (*ast.Expr, *diag.Diagnostic) {
	return p.parseOr()
}

// parseOr handles `|` as logical or (§9 decision: AMP/PIPE realise and/or,
// the only single-character operators the grammar leaves otherwise unused).
func (p *Parser) parseOr() (*ast.Expr, *diag.Diagnostic) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.check(token.PIPE) {
		pos := p.posHere()
		p.advance()
		right, rerr := p.parseAnd()
		if rerr != nil {
			return nil, rerr
		}
		left = &ast.Expr{Pos: pos, Kind: ast.ExprBinaryOp, Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (*ast.Expr, *diag.Diagnostic) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.check(token.AMP) {
		pos := p.posHere()
		p.advance()
		right, rerr := p.parseComparison()
		if rerr != nil {
			return nil, rerr
		}
		left = &ast.Expr{Pos: pos, Kind: ast.ExprBinaryOp, Op: "and", Left: left, Right: right}
	}
	return left, nil
}

var comparisonOps = map[token.Kind]string{
	token.GT: ">", token.LT: "<", token.GE: ">=", token.LE: "<=",
	token.EQ: "==", token.NE: "!=",
}

func (p *Parser) parseComparison() (*ast.Expr, *diag.Diagnostic) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOps[p.cur().Kind]
		if !ok {
			return left, nil
		}
		pos := p.posHere()
		p.advance()
		right, rerr := p.parseAdditive()
		if rerr != nil {
			return nil, rerr
		}
		left = &ast.Expr{Pos: pos, Kind: ast.ExprBinaryOp, Op: op, Left: left, Right: right}
	}
}

// parseAdditive folds the repeat-plus operator `++` into `+` (§4.2).
func (p *Parser) parseAdditive() (*ast.Expr, *diag.Diagnostic) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.check(token.PLUS) || p.check(token.MINUS) || p.check(token.PLUSPLUS) {
		pos := p.posHere()
		op := "+"
		if p.check(token.MINUS) {
			op = "-"
		}
		p.advance()
		right, rerr := p.parseMultiplicative()
		if rerr != nil {
			return nil, rerr
		}
		left = &ast.Expr{Pos: pos, Kind: ast.ExprBinaryOp, Op: op, Left: left, Right: right}
	}
	return left, nil
}

var multiplicativeOps = map[token.Kind]string{
	token.STAR: "*", token.SLASH: "/", token.PERCENT: "%",
}

func (p *Parser) parseMultiplicative() (*ast.Expr, *diag.Diagnostic) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := multiplicativeOps[p.cur().Kind]
		if !ok {
			return left, nil
		}
		pos := p.posHere()
		p.advance()
		right, rerr := p.parseUnary()
		if rerr != nil {
			return nil, rerr
		}
		left = &ast.Expr{Pos: pos, Kind: ast.ExprBinaryOp, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() (*ast.Expr, *diag.Diagnostic) {
	pos := p.posHere()
	switch p.cur().Kind {
	case token.MINUS:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Pos: pos, Kind: ast.ExprUnaryOp, Op: "-", Operand: operand}, nil
	case token.BANG:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Pos: pos, Kind: ast.ExprUnaryOp, Op: "!", Operand: operand}, nil
	case token.REF:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Pos: pos, Kind: ast.ExprReference, Operand: operand}, nil
	default:
		operand, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		for p.check(token.IDENT) && p.cur().Lexeme == "as" {
			p.advance()
			target, terr := p.parseType()
			if terr != nil {
				return nil, terr
			}
			operand = &ast.Expr{Pos: pos, Kind: ast.ExprCast, Operand: operand, TargetType: &target}
		}
		return operand, nil
	}
}

// parsePostfix implements the identifier-anchored postfix semantics of §4.2:
// `Name(args)`, `Name[idx]`, `Name[idx].field…`, `Name.field…`, namespaced
// identifiers, and method-like `base.field(args)` calls. Non-identifier
// primaries (literals, parenthesized expressions, array literals, zeros())
// carry no further postfix in this grammar.
func (p *Parser) parsePostfix() (*ast.Expr, *diag.Diagnostic) {
	if p.check(token.IDENT) {
		pos := p.posHere()
		name := p.advance().Lexeme
		return p.parseIdentPostfix(pos, name)
	}
	return p.parsePrimary()
}

func (p *Parser) parseIdentPostfix(pos ast.Pos, name string) (*ast.Expr, *diag.Diagnostic) {
	switch {
	case p.check(token.LPAREN):
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		kind := ast.ExprCall
		if p.structs[name] {
			kind = ast.ExprStructConstructor
		}
		return &ast.Expr{Pos: pos, Kind: kind, Name: name, Args: args}, nil

	case p.check(token.LBRACKET):
		p.advance()
		idx, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBRACKET, "']'"); err != nil {
			return nil, err
		}
		if p.check(token.DOT) {
			path, ferr := p.parseDottedFieldPath()
			if ferr != nil {
				return nil, ferr
			}
			base := &ast.Expr{Pos: pos, Kind: ast.ExprArrayAccess, Name: name, Index: idx}
			return &ast.Expr{Pos: pos, Kind: ast.ExprStructAccessFromArray, Base: base, FieldPath: path}, nil
		}
		return &ast.Expr{Pos: pos, Kind: ast.ExprArrayAccess, Name: name, Index: idx}, nil

	case p.check(token.DOT):
		var path []string
		for p.check(token.DOT) && p.peekAt(1).Kind == token.IDENT {
			p.advance()
			seg := p.advance()
			path = append(path, seg.Lexeme)
			if p.check(token.LPAREN) {
				args, err := p.parseArgList()
				if err != nil {
					return nil, err
				}
				fn := name + "." + path[len(path)-1]
				return &ast.Expr{Pos: pos, Kind: ast.ExprCall, Name: fn, Args: args}, nil
			}
		}
		if p.namespaces[name] {
			full := name
			for _, seg := range path {
				full += "." + seg
			}
			return &ast.Expr{Pos: pos, Kind: ast.ExprIdentifier, Name: full}, nil
		}
		base := &ast.Expr{Pos: pos, Kind: ast.ExprIdentifier, Name: name}
		return &ast.Expr{Pos: pos, Kind: ast.ExprStructAccess, Name: name, Base: base, FieldPath: path}, nil

	default:
		return &ast.Expr{Pos: pos, Kind: ast.ExprIdentifier, Name: name}, nil
	}
}

// parsePrimary handles every non-identifier-led primary (§4.2): literals,
// parenthesized expressions, array literals, and zeros(n).
func (p *Parser) parsePrimary() (*ast.Expr, *diag.Diagnostic) {
	pos := p.posHere()
	switch p.cur().Kind {
	case token.INT:
		t := p.advance()
		return &ast.Expr{Pos: pos, Kind: ast.ExprNumber, IntVal: t.IntVal}, nil
	case token.FLOAT:
		t := p.advance()
		return &ast.Expr{Pos: pos, Kind: ast.ExprFloat, FloatVal: t.FloatVal}, nil
	case token.STRING:
		t := p.advance()
		return &ast.Expr{Pos: pos, Kind: ast.ExprString, StrVal: t.StringVal}, nil
	case token.FSTRING:
		t := p.advance()
		return p.convertFString(pos, t)
	case token.TRUE:
		p.advance()
		return &ast.Expr{Pos: pos, Kind: ast.ExprBool, BoolVal: true}, nil
	case token.FALSE:
		p.advance()
		return &ast.Expr{Pos: pos, Kind: ast.ExprBool, BoolVal: false}, nil
	case token.NULL:
		p.advance()
		return &ast.Expr{Pos: pos, Kind: ast.ExprNull}, nil
	case token.LPAREN:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case token.LBRACKET:
		return p.parseArrayLiteral(pos)
	case token.ZEROS:
		p.advance()
		if _, err := p.expect(token.LPAREN, "'('"); err != nil {
			return nil, err
		}
		size, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN, "')'"); err != nil {
			return nil, err
		}
		return &ast.Expr{Pos: pos, Kind: ast.ExprZeros, SizeExpr: size}, nil
	default:
		return nil, p.errorf("unexpected token %q in expression", p.cur().Lexeme)
	}
}

func (p *Parser) parseArrayLiteral(pos ast.Pos) (*ast.Expr, *diag.Diagnostic) {
	p.advance() // '['
	var elems []ast.Expr
	for !p.check(token.RBRACKET) {
		el, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		elems = append(elems, *el)
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.expect(token.RBRACKET, "']'"); err != nil {
		return nil, err
	}
	return &ast.Expr{Pos: pos, Kind: ast.ExprArray, Elements: elems}, nil
}

// convertFString lexes and parses each embedded expression's source text
// with a fresh sub-lexer/sub-parser (§4.2 "F-string parsing"), sharing the
// enclosing parser's struct/function/namespace sets, then re-locates the
// resulting node at the f-string token's outer position.
func (p *Parser) convertFString(pos ast.Pos, tok token.Token) (*ast.Expr, *diag.Diagnostic) {
	parts := make([]ast.FStringPart, 0, len(tok.FString))
	for _, raw := range tok.FString {
		if raw.Expr == "" {
			parts = append(parts, ast.FStringPart{Literal: raw.Literal})
			continue
		}
		subToks, lerr := lexer.New(p.filename, raw.Expr).Lex()
		if lerr != nil {
			return nil, lerr
		}
		sub := New(p.filename, raw.Expr, subToks)
		sub.structs = p.structs
		sub.functions = p.functions
		sub.namespaces = p.namespaces
		e, perr := sub.parseExpression()
		if perr != nil {
			return nil, perr
		}
		if !sub.check(token.EOF) {
			return nil, sub.errorf("unexpected trailing tokens in f-string expression")
		}
		relocate(e, pos)
		parts = append(parts, ast.FStringPart{Expr: e, Spec: raw.Spec, HasSpec: raw.HasSpec})
	}
	return &ast.Expr{Pos: pos, Kind: ast.ExprFString, FString: parts}, nil
}

// relocate overwrites an expression subtree's positions with the outer
// f-string token's location, since a sub-expression's own (line, column)
// are relative to the extracted text, not the original source (§4.2).
func relocate(e *ast.Expr, pos ast.Pos) {
	if e == nil {
		return
	}
	e.Pos = pos
	relocate(e.Left, pos)
	relocate(e.Right, pos)
	relocate(e.Operand, pos)
	relocate(e.Index, pos)
	relocate(e.Base, pos)
	relocate(e.SizeExpr, pos)
	for i := range e.Elements {
		relocate(&e.Elements[i], pos)
	}
	for i := range e.Args {
		relocate(&e.Args[i], pos)
	}
	for i := range e.FString {
		relocate(e.FString[i].Expr, pos)
	}
}
