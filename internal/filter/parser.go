package filter

import (
	"fmt"

	"github.com/edgevec/edgevec/internal/verrors"
)

// Parse compiles a filter expression string into an AST, or returns a
// *verrors.Error with Code == CodeFilterSyntax describing the failure.
// Parsing is pure and deterministic: identical input always yields an
// identical AST or an identical diagnostic, on any host.
func Parse(src string) (Node, error) {
	p := &parser{lex: newLexer(src), src: src}
	p.advance()
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected trailing input near %q", p.tokenText())
	}
	return expr, nil
}

type parser struct {
	lex *lexer
	src string
	tok token
}

func (p *parser) advance() { p.tok = p.lex.next() }

func (p *parser) tokenText() string {
	if p.tok.kind == tokEOF {
		return "<end of input>"
	}
	if p.tok.text != "" {
		return p.tok.text
	}
	return "?"
}

func (p *parser) errorf(format string, args ...any) error {
	return verrors.FilterSyntax(fmt.Sprintf(format, args...), "")
}

func (p *parser) errorWithSuggestion(message, suggestion string) error {
	return verrors.FilterSyntax(message, suggestion)
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Node, error) {
	if p.tok.kind == tokNot {
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Not{Expr: inner}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (Node, error) {
	if p.tok.kind == tokLParen {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.errorf("expected closing parenthesis, found %q", p.tokenText())
		}
		p.advance()
		return expr, nil
	}
	if p.tok.kind == tokIllegal {
		return nil, p.illegalTokenError()
	}
	if p.tok.kind != tokIdent {
		return nil, p.errorf("expected attribute name, found %q", p.tokenText())
	}
	attr := p.tok.text
	p.advance()
	return p.parsePredicate(attr)
}

func (p *parser) illegalTokenError() error {
	text := p.tok.text
	if sug, ok := operatorSuggestion(text); ok {
		return p.errorWithSuggestion(fmt.Sprintf("unknown operator %q", text), sug)
	}
	return p.errorf("unexpected character %q", text)
}

func (p *parser) parsePredicate(attr string) (Node, error) {
	switch p.tok.kind {
	case tokEq, tokNeq, tokLt, tokLte, tokGt, tokGte:
		op := compareOpFor(p.tok.kind)
		opText := p.tok.text
		p.advance()
		// detect a doubled-up operator typo, e.g. ">" immediately followed
		// by another comparison token with no literal between: ">>" , "=<", "<>".
		if isCompareTok(p.tok.kind) {
			combined := opText + p.tokenText()
			if sug, ok := operatorSuggestion(combined); ok {
				return nil, p.errorWithSuggestion(fmt.Sprintf("unknown operator %q", combined), sug)
			}
		}
		val, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return Comparison{Attr: attr, Op: op, Val: val}, nil

	case tokBetween:
		p.advance()
		low, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokAnd {
			return nil, p.errorf("expected AND in BETWEEN clause, found %q", p.tokenText())
		}
		p.advance()
		hi, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return Between{Attr: attr, Low: low, Hi: hi}, nil

	case tokIn:
		p.advance()
		vals, err := p.parseValueList()
		if err != nil {
			return nil, err
		}
		return InSet{Attr: attr, Values: vals}, nil

	case tokNot:
		p.advance()
		if p.tok.kind != tokIn {
			return nil, p.errorf("expected IN after NOT, found %q", p.tokenText())
		}
		p.advance()
		vals, err := p.parseValueList()
		if err != nil {
			return nil, err
		}
		return InSet{Attr: attr, Values: vals, Negate: true}, nil

	case tokIs:
		p.advance()
		negate := false
		if p.tok.kind == tokNot {
			negate = true
			p.advance()
		}
		if p.tok.kind != tokNull {
			return nil, p.errorf("expected NULL after IS, found %q", p.tokenText())
		}
		p.advance()
		return NullCheck{Attr: attr, IsNull: !negate}, nil

	case tokContains:
		p.advance()
		if p.tok.kind != tokString {
			return nil, p.errorf("expected string literal after CONTAINS, found %q", p.tokenText())
		}
		val := p.tok.text
		p.advance()
		return StringMatch{Attr: attr, Op: OpContains, Val: val}, nil

	case tokStarts:
		p.advance()
		if p.tok.kind != tokWith {
			return nil, p.errorf("expected WITH after STARTS, found %q", p.tokenText())
		}
		p.advance()
		if p.tok.kind != tokString {
			return nil, p.errorf("expected string literal after STARTS WITH, found %q", p.tokenText())
		}
		val := p.tok.text
		p.advance()
		return StringMatch{Attr: attr, Op: OpStartsWith, Val: val}, nil

	case tokEnds:
		p.advance()
		if p.tok.kind != tokWith {
			return nil, p.errorf("expected WITH after ENDS, found %q", p.tokenText())
		}
		p.advance()
		if p.tok.kind != tokString {
			return nil, p.errorf("expected string literal after ENDS WITH, found %q", p.tokenText())
		}
		val := p.tok.text
		p.advance()
		return StringMatch{Attr: attr, Op: OpEndsWith, Val: val}, nil

	case tokIllegal:
		return nil, p.illegalTokenError()

	default:
		return nil, p.errorf("expected an operator after %q, found %q", attr, p.tokenText())
	}
}

func (p *parser) parseValueList() ([]Literal, error) {
	if p.tok.kind != tokLParen {
		return nil, p.errorf("expected '(' to start value list, found %q", p.tokenText())
	}
	p.advance()
	var vals []Literal
	for {
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		if p.tok.kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	if p.tok.kind != tokRParen {
		return nil, p.errorf("expected ')' to close value list, found %q", p.tokenText())
	}
	p.advance()
	return vals, nil
}

func (p *parser) parseLiteral() (Literal, error) {
	switch p.tok.kind {
	case tokString:
		v := p.tok.text
		p.advance()
		return v, nil
	case tokNumber:
		v := p.tok.num
		p.advance()
		return v, nil
	case tokTrue:
		p.advance()
		return true, nil
	case tokFalse:
		p.advance()
		return false, nil
	case tokIllegal:
		return nil, p.illegalTokenError()
	default:
		return nil, p.errorf("expected a literal value, found %q", p.tokenText())
	}
}

func isCompareTok(k tokenKind) bool {
	switch k {
	case tokEq, tokNeq, tokLt, tokLte, tokGt, tokGte:
		return true
	default:
		return false
	}
}

func compareOpFor(k tokenKind) CompareOp {
	switch k {
	case tokEq:
		return OpEq
	case tokNeq:
		return OpNeq
	case tokLt:
		return OpLt
	case tokLte:
		return OpLte
	case tokGt:
		return OpGt
	case tokGte:
		return OpGte
	default:
		return OpEq
	}
}

// operatorSuggestion maps common operator typos to a corrective hint.
func operatorSuggestion(text string) (string, bool) {
	switch text {
	case ">>":
		return "> or >=", true
	case "<<":
		return "< or <=", true
	case "=>":
		return ">=", true
	case "=<":
		return "<=", true
	case "<>":
		return "!=", true
	case "==":
		return "=", true
	case "!":
		return "!=", true
	default:
		return "", false
	}
}
