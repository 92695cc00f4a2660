// Package parser implements sydraQL's recursive-descent, one-token
// lookahead parser per spec.md §4.7. No parser/lexer source for
// pkg/traceql was retrieved in the example pack (only its test files),
// so this grammar is written fresh against spec.md, in the same
// terse-function, sentinel-error style as sydraql/lexer.
package parser

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/sydradb/sydradb/internal/sydraerr"
	"github.com/sydradb/sydradb/sydraql/ast"
	"github.com/sydradb/sydradb/sydraql/lexer"
	"github.com/sydradb/sydradb/sydraql/token"
)

var (
	ErrUnexpectedToken      = errors.New("unexpected token")
	ErrUnexpectedStatement  = errors.New("unexpected statement")
	ErrUnexpectedExpression = errors.New("unexpected expression")
	ErrInvalidNumber        = errors.New("invalid number")
)

// Parser consumes tokens from a Lexer and builds an ast.Statement.
type Parser struct {
	lex  *lexer.Lexer
	cur  token.Token
	aliasCounter int
}

// Parse lexes and parses src as a single top-level statement.
func Parse(src string) (*ast.Statement, error) {
	p := &Parser{lex: lexer.New(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	if p.curIsPunct(";") {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if p.cur.Kind != token.EOF {
		return nil, p.unexpected(ErrUnexpectedToken, "trailing input after statement")
	}

	return stmt, nil
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *Parser) curIsKeyword(kw string) bool {
	return p.cur.Kind == token.Keyword && p.cur.Keyword == kw
}

func (p *Parser) curIsPunct(lexeme string) bool {
	return p.cur.Kind == token.Punctuation && p.cur.Lexeme == lexeme
}

func (p *Parser) unexpected(sentinel error, msg string) error {
	return sydraerr.Wrap(sydraerr.Protocol, sentinel, msg+" (got "+p.cur.Kind.String()+" "+p.cur.Lexeme+")")
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.curIsKeyword(kw) {
		return p.unexpected(ErrUnexpectedToken, "expected keyword '"+kw+"'")
	}
	return p.advance()
}

func (p *Parser) expectPunct(lexeme string) error {
	if !p.curIsPunct(lexeme) {
		return p.unexpected(ErrUnexpectedToken, "expected '"+lexeme+"'")
	}
	return p.advance()
}

func (p *Parser) nextAliasName(prefix string) string {
	p.aliasCounter++
	return prefix + "_" + strconv.Itoa(p.aliasCounter)
}

// parseStatement dispatches on the leading keyword per spec.md §4.7.
func (p *Parser) parseStatement() (*ast.Statement, error) {
	switch {
	case p.curIsKeyword("select"):
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		return &ast.Statement{Select: sel}, nil
	case p.curIsKeyword("insert"):
		ins, err := p.parseInsert()
		if err != nil {
			return nil, err
		}
		return &ast.Statement{Insert: ins}, nil
	case p.curIsKeyword("delete"):
		del, err := p.parseDelete()
		if err != nil {
			return nil, err
		}
		return &ast.Statement{Delete: del}, nil
	case p.curIsKeyword("explain"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return &ast.Statement{Explain: &ast.ExplainStmt{Inner: inner}}, nil
	default:
		return nil, p.unexpected(ErrUnexpectedStatement, "expected a statement")
	}
}

func (p *Parser) parseSelect() (*ast.SelectStmt, error) {
	if err := p.expectKeyword("select"); err != nil {
		return nil, err
	}

	stmt := &ast.SelectStmt{}

	projections, err := p.parseProjectionList()
	if err != nil {
		return nil, err
	}
	stmt.Projections = projections

	if p.curIsKeyword("from") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		sel, err := p.parseSelector()
		if err != nil {
			return nil, err
		}
		stmt.From = sel
	}

	if p.curIsKeyword("where") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = expr
	}

	if p.curIsKeyword("group") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("by"); err != nil {
			return nil, err
		}
		groupings, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		stmt.GroupBy = groupings
	}

	if p.curIsKeyword("fill") {
		fill, err := p.parseFillClause()
		if err != nil {
			return nil, err
		}
		stmt.Fill = fill
	}

	if p.curIsKeyword("order") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("by"); err != nil {
			return nil, err
		}
		orderings, err := p.parseOrderingList()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = orderings
	}

	if p.curIsKeyword("limit") {
		limit, err := p.parseLimitClause()
		if err != nil {
			return nil, err
		}
		stmt.Limit = limit
	}

	return stmt, nil
}

func (p *Parser) parseProjectionList() ([]ast.Projection, error) {
	var projections []ast.Projection
	for {
		proj, err := p.parseProjection()
		if err != nil {
			return nil, err
		}
		projections = append(projections, proj)

		if p.curIsPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return projections, nil
}

// parseProjection parses `expr [AS alias]`, or an implicit alias when the
// next token is a (quoted) identifier per spec.md §4.7.
func (p *Parser) parseProjection() (ast.Projection, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return ast.Projection{}, err
	}

	alias := ""
	switch {
	case p.curIsKeyword("as"):
		if err := p.advance(); err != nil {
			return ast.Projection{}, err
		}
		a, err := p.parseAliasName()
		if err != nil {
			return ast.Projection{}, err
		}
		alias = a
	case p.cur.Kind == token.Identifier || p.cur.Kind == token.QuotedIdentifier ||
		p.curIsKeyword("time") || p.curIsKeyword("tag"):
		a, err := p.parseAliasName()
		if err != nil {
			return ast.Projection{}, err
		}
		alias = a
	}

	if alias == "" {
		alias = p.implicitAlias(expr)
	}

	return ast.Projection{Expr: expr, Alias: alias}, nil
}

// implicitAlias applies spec.md §4.10's naming fallback: identifier value
// when the expr is a bare identifier, "<fn_name>_<counter>" for a call,
// else "_col<counter>".
func (p *Parser) implicitAlias(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.IdentifierExpr:
		return e.Ident.Value
	case *ast.CallExpr:
		return p.nextAliasName(e.Name)
	default:
		return p.nextAliasName("_col")
	}
}

// parseAliasName accepts identifier, quoted_identifier, or the keywords
// time/tag as an alias spelling (spec.md §4.7).
func (p *Parser) parseAliasName() (string, error) {
	switch {
	case p.cur.Kind == token.Identifier || p.cur.Kind == token.QuotedIdentifier:
		name := p.cur.Lexeme
		return name, p.advance()
	case p.curIsKeyword("time") || p.curIsKeyword("tag"):
		name := p.cur.Keyword
		return name, p.advance()
	default:
		return "", p.unexpected(ErrUnexpectedToken, "expected alias identifier")
	}
}

// parseSelector parses `by_id(<int>)` or a bare identifier name (spec.md §4.7).
func (p *Parser) parseSelector() (*ast.Selector, error) {
	if p.curIsKeyword("by_id") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		if p.cur.Kind != token.Number || p.cur.IsFloat {
			return nil, p.unexpected(ErrInvalidNumber, "expected integer series id")
		}
		id := uint64(p.cur.IntValue)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.Selector{Kind: ast.SelectorByID, ID: id}, nil
	}

	ident, err := p.parseIdentifierPath()
	if err != nil {
		return nil, err
	}
	return &ast.Selector{Kind: ast.SelectorName, Name: ident}, nil
}

// parseIdentifierPath parses `(ident|quoted) ('.' (ident|quoted))*`.
func (p *Parser) parseIdentifierPath() (*ast.Identifier, error) {
	if p.cur.Kind != token.Identifier && p.cur.Kind != token.QuotedIdentifier {
		return nil, p.unexpected(ErrUnexpectedToken, "expected identifier")
	}

	var sb strings.Builder
	quoted := p.cur.Kind == token.QuotedIdentifier
	sb.WriteString(p.cur.Lexeme)
	if err := p.advance(); err != nil {
		return nil, err
	}

	for p.curIsPunct(".") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Kind != token.Identifier && p.cur.Kind != token.QuotedIdentifier {
			return nil, p.unexpected(ErrUnexpectedToken, "expected identifier after '.'")
		}
		if p.cur.Kind == token.QuotedIdentifier {
			quoted = true
		}
		sb.WriteByte('.')
		sb.WriteString(p.cur.Lexeme)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	return &ast.Identifier{Value: sb.String(), Quoted: quoted}, nil
}

func (p *Parser) parseInsert() (*ast.InsertStmt, error) {
	if err := p.expectKeyword("insert"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("into"); err != nil {
		return nil, err
	}

	into, err := p.parseIdentifierPath()
	if err != nil {
		return nil, err
	}
	stmt := &ast.InsertStmt{Into: into}

	if p.curIsPunct("(") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		for {
			col, err := p.parseIdentifierPath()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
			if p.curIsPunct(",") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}

	if err := p.expectKeyword("values"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	values, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	stmt.Values = values
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}

	return stmt, nil
}

func (p *Parser) parseDelete() (*ast.DeleteStmt, error) {
	if err := p.expectKeyword("delete"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("from"); err != nil {
		return nil, err
	}

	sel, err := p.parseSelector()
	if err != nil {
		return nil, err
	}
	stmt := &ast.DeleteStmt{From: sel}

	if p.curIsKeyword("where") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = expr
	}

	return stmt, nil
}

func (p *Parser) parseFillClause() (*ast.FillClause, error) {
	if err := p.expectKeyword("fill"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}

	var fill *ast.FillClause
	switch {
	case p.curIsKeyword("previous"):
		fill = &ast.FillClause{Kind: ast.FillPrevious}
		if err := p.advance(); err != nil {
			return nil, err
		}
	case p.curIsKeyword("linear"):
		fill = &ast.FillClause{Kind: ast.FillLinear}
		if err := p.advance(); err != nil {
			return nil, err
		}
	case p.curIsKeyword("null"):
		fill = &ast.FillClause{Kind: ast.FillNull}
		if err := p.advance(); err != nil {
			return nil, err
		}
	default:
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		fill = &ast.FillClause{Kind: ast.FillConstant, Constant: expr}
	}

	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return fill, nil
}

func (p *Parser) parseOrderingList() ([]ast.Ordering, error) {
	var orderings []ast.Ordering
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		desc := false
		if p.curIsKeyword("asc") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else if p.curIsKeyword("desc") {
			desc = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		orderings = append(orderings, ast.NewOrdering(expr, desc))

		if p.curIsPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return orderings, nil
}

func (p *Parser) parseLimitClause() (*ast.LimitClause, error) {
	if err := p.expectKeyword("limit"); err != nil {
		return nil, err
	}
	if p.cur.Kind != token.Number || p.cur.IsFloat {
		return nil, p.unexpected(ErrInvalidNumber, "expected integer limit count")
	}
	clause := &ast.LimitClause{Count: p.cur.IntValue}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.curIsKeyword("offset") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Kind != token.Number || p.cur.IsFloat {
			return nil, p.unexpected(ErrInvalidNumber, "expected integer offset")
		}
		offset := p.cur.IntValue
		clause.Offset = &offset
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	return clause, nil
}

func (p *Parser) parseExprList() ([]ast.Expr, error) {
	var exprs []ast.Expr
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		if p.curIsPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return exprs, nil
}

// parseExpr enters the precedence chain at its lowest level (logical OR)
// per spec.md §4.7.
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.curIsLogicalOr() {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) curIsLogicalOr() bool {
	if p.cur.Kind == token.Logical && p.cur.Lexeme == "||" {
		return true
	}
	return p.curIsKeyword("or")
}

func (p *Parser) curIsLogicalAnd() bool {
	if p.cur.Kind == token.Logical && p.cur.Lexeme == "&&" {
		return true
	}
	return p.curIsKeyword("and")
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.curIsLogicalAnd() {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.Comparison && (p.cur.Lexeme == "=" || p.cur.Lexeme == "!=" ||
		p.cur.Lexeme == "=~" || p.cur.Lexeme == "!~") {
		op := ast.BinaryOp(p.cur.Lexeme)
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.Comparison && (p.cur.Lexeme == "<" || p.cur.Lexeme == "<=" ||
		p.cur.Lexeme == ">" || p.cur.Lexeme == ">=") {
		op := ast.BinaryOp(p.cur.Lexeme)
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.Arithmetic && (p.cur.Lexeme == "+" || p.cur.Lexeme == "-") {
		op := ast.BinaryOp(p.cur.Lexeme)
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.Arithmetic && (p.cur.Lexeme == "*" || p.cur.Lexeme == "/" ||
		p.cur.Lexeme == "%" || p.cur.Lexeme == "^") {
		op := ast.BinaryOp(p.cur.Lexeme)
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch {
	case p.cur.Kind == token.Arithmetic && p.cur.Lexeme == "-":
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.UnaryNeg, Operand: operand}, nil
	case p.curIsKeyword("not"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: ast.UnaryNot, Operand: operand}, nil
	default:
		return p.parseCallOrPrimary()
	}
}

func (p *Parser) parseCallOrPrimary() (ast.Expr, error) {
	if p.cur.Kind == token.Identifier {
		name := p.cur.Lexeme
		save := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.curIsPunct("(") {
			return p.parseCallArgs(name)
		}
		return p.parseIdentifierPathFrom(save)
	}
	return p.parsePrimary()
}

func (p *Parser) parseCallArgs(name string) (ast.Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []ast.Expr
	if !p.curIsPunct(")") {
		exprs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		args = exprs
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return &ast.CallExpr{Name: name, Args: args}, nil
}

// parseIdentifierPathFrom continues an identifier path whose first
// segment (first) has already been consumed by parseCallOrPrimary's
// one-token-lookahead peek.
func (p *Parser) parseIdentifierPathFrom(first token.Token) (ast.Expr, error) {
	var sb strings.Builder
	quoted := first.Kind == token.QuotedIdentifier
	sb.WriteString(first.Lexeme)

	for p.curIsPunct(".") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Kind != token.Identifier && p.cur.Kind != token.QuotedIdentifier {
			return nil, p.unexpected(ErrUnexpectedToken, "expected identifier after '.'")
		}
		if p.cur.Kind == token.QuotedIdentifier {
			quoted = true
		}
		sb.WriteByte('.')
		sb.WriteString(p.cur.Lexeme)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	return &ast.IdentifierExpr{Ident: &ast.Identifier{Value: sb.String(), Quoted: quoted}}, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch {
	case p.cur.Kind == token.Number:
		lit := &ast.Literal{IsFloat: p.cur.IsFloat, IntValue: p.cur.IntValue, FloatVal: p.cur.FloatValue}
		return lit, p.advance()
	case p.cur.Kind == token.String:
		lit := &ast.Literal{IsString: true, StringVal: p.cur.Lexeme}
		return lit, p.advance()
	case p.curIsKeyword("true"):
		return &ast.Literal{IsBool: true, BoolValue: true}, p.advance()
	case p.curIsKeyword("false"):
		return &ast.Literal{IsBool: true, BoolValue: false}, p.advance()
	case p.curIsKeyword("null"):
		return &ast.Literal{IsNull: true}, p.advance()
	case p.curIsPunct("("):
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return expr, nil
	case p.cur.Kind == token.Identifier || p.cur.Kind == token.QuotedIdentifier:
		ident, err := p.parseIdentifierPath()
		if err != nil {
			return nil, err
		}
		return &ast.IdentifierExpr{Ident: ident}, nil
	case p.curIsKeyword("time") || p.curIsKeyword("tag"):
		name := p.cur.Keyword
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.IdentifierExpr{Ident: &ast.Identifier{Value: name}}, nil
	default:
		return nil, p.unexpected(ErrUnexpectedExpression, "expected an expression")
	}
}
