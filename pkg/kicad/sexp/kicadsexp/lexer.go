package kicadsexp

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// TokenType classifies a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenLeftParen
	TokenRightParen
	TokenSymbol
	TokenString
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenLeftParen:
		return "'('"
	case TokenRightParen:
		return "')'"
	case TokenSymbol:
		return "symbol"
	case TokenString:
		return "string"
	default:
		return fmt.Sprintf("token(%d)", int(t))
	}
}

// Token is one lexical token with the line it started on.
type Token struct {
	Type  TokenType
	Value string
	Line  int
}

// Lexer splits a stream into tokens.
type Lexer struct {
	r    *bufio.Reader
	line int
}

// NewLexer wraps r.
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{r: bufio.NewReader(r), line: 1}
}

func (l *Lexer) next() (rune, error) {
	ch, _, err := l.r.ReadRune()
	if err == nil && ch == '\n' {
		l.line++
	}
	return ch, err
}

func (l *Lexer) unread(ch rune) {
	_ = l.r.UnreadRune()
	if ch == '\n' {
		l.line--
	}
}

// NextToken returns the next token, or a TokenEOF token at end of input.
func (l *Lexer) NextToken() (Token, error) {
	for {
		ch, err := l.next()
		if err == io.EOF {
			return Token{Type: TokenEOF, Line: l.line}, nil
		}
		if err != nil {
			return Token{}, err
		}

		switch {
		case unicode.IsSpace(ch):
			continue
		case ch == '#':
			// comment to end of line
			for {
				c, err := l.next()
				if err != nil || c == '\n' {
					break
				}
			}
			continue
		case ch == '(':
			return Token{Type: TokenLeftParen, Value: "(", Line: l.line}, nil
		case ch == ')':
			return Token{Type: TokenRightParen, Value: ")", Line: l.line}, nil
		case ch == '"':
			return l.readString()
		default:
			l.unread(ch)
			return l.readSymbol()
		}
	}
}

func (l *Lexer) readString() (Token, error) {
	start := l.line
	var b strings.Builder
	for {
		ch, err := l.next()
		if err == io.EOF {
			return Token{}, fmt.Errorf("line %d: unterminated string", start)
		}
		if err != nil {
			return Token{}, err
		}
		switch ch {
		case '"':
			return Token{Type: TokenString, Value: b.String(), Line: start}, nil
		case '\\':
			esc, err := l.next()
			if err != nil {
				return Token{}, fmt.Errorf("line %d: unterminated escape", start)
			}
			switch esc {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			default:
				b.WriteRune(esc)
			}
		default:
			b.WriteRune(ch)
		}
	}
}

func (l *Lexer) readSymbol() (Token, error) {
	start := l.line
	var b strings.Builder
	for {
		ch, err := l.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Token{}, err
		}
		if unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' {
			l.unread(ch)
			break
		}
		b.WriteRune(ch)
	}
	if b.Len() == 0 {
		return Token{}, fmt.Errorf("line %d: empty symbol", start)
	}
	return Token{Type: TokenSymbol, Value: b.String(), Line: start}, nil
}
