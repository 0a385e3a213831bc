package kicadsexp

import (
	"fmt"
	"io"
)

// Parser builds expressions from a token stream.
type Parser struct {
	lexer *Lexer
}

// NewParser creates a parser reading from r.
func NewParser(r io.Reader) *Parser {
	return &Parser{lexer: NewLexer(r)}
}

// ParseAll parses top-level expressions until EOF.
func (p *Parser) ParseAll() ([]Sexp, error) {
	var out []Sexp
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenEOF {
			return out, nil
		}
		expr, err := p.parse(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
}

func (p *Parser) parse(tok Token) (Sexp, error) {
	switch tok.Type {
	case TokenLeftParen:
		return p.parseList(tok.Line)
	case TokenSymbol:
		return Atom{Value: tok.Value, Line: tok.Line}, nil
	case TokenString:
		return Atom{Value: tok.Value, Quoted: true, Line: tok.Line}, nil
	case TokenRightParen:
		return nil, fmt.Errorf("line %d: unexpected ')'", tok.Line)
	default:
		return nil, fmt.Errorf("line %d: unexpected %s", tok.Line, tok.Type)
	}
}

func (p *Parser) parseList(line int) (Sexp, error) {
	list := &List{Line: line}
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenRightParen:
			return list, nil
		case TokenEOF:
			return nil, fmt.Errorf("line %d: list opened here is never closed", line)
		}
		item, err := p.parse(tok)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
	}
}
