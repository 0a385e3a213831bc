package kicadsexp

import (
	"strings"
	"testing"
)

func TestParseNested(t *testing.T) {
	exprs, err := ParseString(`(pin passive line (at 0 3.81 270) (name "~") (number "1"))`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(exprs) != 1 {
		t.Fatalf("got %d expressions, want 1", len(exprs))
	}

	pin, ok := exprs[0].(*List)
	if !ok {
		t.Fatalf("expected list, got %T", exprs[0])
	}
	if pin.Head() != "pin" {
		t.Errorf("head = %q, want pin", pin.Head())
	}
	if pin.Len() != 6 {
		t.Errorf("len = %d, want 6", pin.Len())
	}

	num := pin.Get(5).(*List).Get(1).(Atom)
	if !num.Quoted || num.Value != "1" {
		t.Errorf("number atom = %+v", num)
	}
	if got := pin.String(); got != `(pin passive line (at 0 3.81 270) (name "~") (number "1"))` {
		t.Errorf("round trip = %s", got)
	}
}

func TestParseEscapesAndComments(t *testing.T) {
	exprs, err := ParseString("# header\n(text \"a \\\"b\\\"\\nc\")\n(x)")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(exprs) != 2 {
		t.Fatalf("got %d expressions, want 2", len(exprs))
	}
	text := exprs[0].(*List).Get(1).(Atom)
	if text.Value != "a \"b\"\nc" {
		t.Errorf("text = %q", text.Value)
	}
	if exprs[1].(*List).Line != 3 {
		t.Errorf("line = %d, want 3", exprs[1].(*List).Line)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"unclosed list":   "(a (b c)",
		"stray paren":     ")",
		"unclosed string": `(a "b`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(input)); err == nil {
				t.Errorf("expected error for %q", input)
			}
		})
	}
}
