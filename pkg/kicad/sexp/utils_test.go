package sexp

import (
	"testing"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/kicad/sexp/kicadsexp"
)

func parseOne(t *testing.T, input string) kicadsexp.Sexp {
	t.Helper()
	exprs, err := kicadsexp.ParseString(input)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(exprs) != 1 {
		t.Fatalf("got %d expressions, want 1", len(exprs))
	}
	return exprs[0]
}

func TestFindNodes(t *testing.T) {
	root := parseOne(t, `(symbol "R" (pin a) (pin b) (property "Reference" "R"))`)

	pins := FindAllNodes(root, "pin")
	if len(pins) != 2 {
		t.Fatalf("got %d pins, want 2", len(pins))
	}
	if _, ok := FindNode(root, "extends"); ok {
		t.Errorf("found extends in a symbol without it")
	}
	prop, ok := FindNode(root, "property")
	if !ok {
		t.Fatalf("property not found")
	}
	if v, _ := GetQuotedString(prop, 2); v != "R" {
		t.Errorf("property value = %q", v)
	}
	if name, _ := GetNodeName(root); name != "symbol" {
		t.Errorf("node name = %q", name)
	}
}

func TestGetPosition(t *testing.T) {
	pa, err := GetPosition(parseOne(t, `(at -2.54 1.27 180)`))
	if err != nil {
		t.Fatalf("GetPosition failed: %v", err)
	}
	if pa.X != -2.54 || pa.Y != 1.27 || pa.Angle != 180 {
		t.Errorf("got %+v", pa)
	}

	pa, err = GetPosition(parseOne(t, `(at 1 2)`))
	if err != nil || pa.Angle != 0 {
		t.Errorf("optional angle: %+v, %v", pa, err)
	}

	if _, err := GetPosition(parseOne(t, `(start 1 2)`)); err == nil {
		t.Errorf("expected error for non-at node")
	}
	if _, err := GetPosition(parseOne(t, `(at x 2)`)); err == nil {
		t.Errorf("expected error for bad coordinate")
	}
}

func TestHasSymbol(t *testing.T) {
	if !HasSymbol(parseOne(t, `(pin_numbers hide)`), "hide") {
		t.Errorf("bare hide not detected")
	}
	if !HasSymbol(parseOne(t, `(pin_numbers (hide yes))`), "hide") {
		t.Errorf("(hide yes) not detected")
	}
	if HasSymbol(parseOne(t, `(pin_numbers (hide no))`), "hide") {
		t.Errorf("(hide no) reported as hidden")
	}
	if HasSymbol(parseOne(t, `(name "hide")`), "hide") {
		t.Errorf("quoted value treated as symbol")
	}
}

func TestBoundingBox(t *testing.T) {
	bb := NewBoundingBox()
	if !bb.IsEmpty() {
		t.Fatalf("new box not empty")
	}
	bb.Expand(Position{X: -1, Y: 2})
	bb.Expand(Position{X: 3, Y: -4})
	if bb.Width() != 4 || bb.Height() != 6 {
		t.Errorf("size = %vx%v", bb.Width(), bb.Height())
	}
}
