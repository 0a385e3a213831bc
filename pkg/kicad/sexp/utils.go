package sexp

import (
	"fmt"
	"strconv"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/kicad/sexp/kicadsexp"
)

// FindNode returns the first child list of s whose keyword is key.
// Example: FindNode(pin, "at") finds (at 0 3.81 270).
func FindNode(s kicadsexp.Sexp, key string) (*kicadsexp.List, bool) {
	list, ok := s.(*kicadsexp.List)
	if !ok {
		return nil, false
	}
	for _, item := range list.Items {
		if sub, ok := item.(*kicadsexp.List); ok && sub.Head() == key {
			return sub, true
		}
	}
	return nil, false
}

// FindAllNodes returns every direct child list of s whose keyword is key.
func FindAllNodes(s kicadsexp.Sexp, key string) []*kicadsexp.List {
	list, ok := s.(*kicadsexp.List)
	if !ok {
		return nil
	}
	var out []*kicadsexp.List
	for _, item := range list.Items {
		if sub, ok := item.(*kicadsexp.List); ok && sub.Head() == key {
			out = append(out, sub)
		}
	}
	return out
}

// GetNodeName returns the keyword of a list node.
func GetNodeName(s kicadsexp.Sexp) (string, error) {
	list, ok := s.(*kicadsexp.List)
	if !ok {
		return "", fmt.Errorf("expected list, got %s", s)
	}
	name := list.Head()
	if name == "" {
		return "", fmt.Errorf("line %d: list has no keyword", list.Line)
	}
	return name, nil
}

// GetString returns the atom at index (0 is the keyword), quoted or not.
func GetString(s kicadsexp.Sexp, index int) (string, error) {
	list, ok := s.(*kicadsexp.List)
	if !ok {
		return "", fmt.Errorf("expected list, got leaf")
	}
	item := list.Get(index)
	if item == nil {
		return "", fmt.Errorf("line %d: index %d out of bounds (length %d)", list.Line, index, list.Len())
	}
	atom, ok := item.(kicadsexp.Atom)
	if !ok {
		return "", fmt.Errorf("line %d: expected atom at index %d, got list", list.Line, index)
	}
	return atom.Value, nil
}

// GetQuotedString is GetString for values KiCad writes as string literals.
// Bare atoms are accepted too; older files are not consistent about quoting.
func GetQuotedString(s kicadsexp.Sexp, index int) (string, error) {
	return GetString(s, index)
}

// GetFloat parses the atom at index as a float64.
func GetFloat(s kicadsexp.Sexp, index int) (float64, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", str, err)
	}
	return v, nil
}

// GetInt parses the atom at index as an int.
func GetInt(s kicadsexp.Sexp, index int) (int, error) {
	str, err := GetString(s, index)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int %q: %w", str, err)
	}
	return v, nil
}

// HasSymbol reports whether s holds the bare atom symbol, either directly or
// as a one-item list such as (hide yes) in KiCad 8 files.
func HasSymbol(s kicadsexp.Sexp, symbol string) bool {
	list, ok := s.(*kicadsexp.List)
	if !ok || list.Len() < 2 {
		return false
	}
	for _, item := range list.Items[1:] {
		switch v := item.(type) {
		case kicadsexp.Atom:
			if !v.Quoted && v.Value == symbol {
				return true
			}
		case *kicadsexp.List:
			if v.Head() == symbol {
				val, err := GetString(v, 1)
				return err != nil || val == "yes"
			}
		}
	}
	return false
}

// GetPosition reads an (at X Y [angle]) node. Angles are in degrees.
func GetPosition(s kicadsexp.Sexp) (PositionAngle, error) {
	name, err := GetNodeName(s)
	if err != nil {
		return PositionAngle{}, err
	}
	if name != "at" {
		return PositionAngle{}, fmt.Errorf("expected 'at', got %q", name)
	}
	xy, err := GetPositionXY(s)
	if err != nil {
		return PositionAngle{}, err
	}
	pa := PositionAngle{Position: xy}
	if angle, err := GetFloat(s, 3); err == nil {
		pa.Angle = Angle(angle)
	}
	return pa, nil
}

// GetPositionXY reads the X and Y of a (keyword X Y ...) node such as (start X Y) or (xy X Y).
func GetPositionXY(s kicadsexp.Sexp) (Position, error) {
	x, err := GetFloat(s, 1)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse X: %w", err)
	}
	y, err := GetFloat(s, 2)
	if err != nil {
		return Position{}, fmt.Errorf("failed to parse Y: %w", err)
	}
	return Position{X: x, Y: y}, nil
}
