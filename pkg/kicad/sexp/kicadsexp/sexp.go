// Package kicadsexp is a small streaming S-expression reader for KiCad files
// (.kicad_sym, .kicad_sch). It keeps quoted and bare atoms apart so callers
// can tell "1" from 1 when that matters.
package kicadsexp

import (
	"io"
	"strconv"
	"strings"
)

// Sexp is either an Atom or a *List.
type Sexp interface {
	IsLeaf() bool
	String() string
}

// Atom is a leaf value. Quoted records whether it was written as a string literal.
type Atom struct {
	Value  string
	Quoted bool
	Line   int
}

func (a Atom) IsLeaf() bool { return true }

func (a Atom) String() string {
	if a.Quoted {
		return strconv.Quote(a.Value)
	}
	return a.Value
}

// List is a parenthesised sequence.
type List struct {
	Items []Sexp
	Line  int
}

func (l *List) IsLeaf() bool { return false }

func (l *List) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, item := range l.Items {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(item.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Len returns the number of items.
func (l *List) Len() int { return len(l.Items) }

// Get returns item i, or nil when out of range.
func (l *List) Get(i int) Sexp {
	if i < 0 || i >= len(l.Items) {
		return nil
	}
	return l.Items[i]
}

// Head returns the keyword of the list: its first item when that is a bare atom.
func (l *List) Head() string {
	if len(l.Items) == 0 {
		return ""
	}
	if a, ok := l.Items[0].(Atom); ok && !a.Quoted {
		return a.Value
	}
	return ""
}

// Parse reads every top-level expression from r.
func Parse(r io.Reader) ([]Sexp, error) {
	return NewParser(r).ParseAll()
}

// ParseString is Parse over a string.
func ParseString(s string) ([]Sexp, error) {
	return Parse(strings.NewReader(s))
}
