// Package symlib reads KiCad symbol libraries (.kicad_sym) and serves the pin
// layout of each symbol to the component factory.
//
// Coordinates stay in millimetres but the Y axis is flipped on load, so
// positions are already in the Y-down orientation of the canvas.
package symlib

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/kicad/sexp"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/kicad/sexp/kicadsexp"
)

// ErrUnknownSymbol is returned when a library id does not name a loaded symbol.
var ErrUnknownSymbol = errors.New("symlib: unknown symbol")

// DefaultCategories is the set of stock KiCad libraries worth indexing for a
// hobbyist schematic editor.
var DefaultCategories = map[string]bool{
	"4xxx": true, "74xx": true, "Connector": true, "Device": true, "Diode": true, "LED": true,
	"MCU_ATmega": true, "MCU_STM32F1": true, "Memory_EEPROM": true, "OpAmp": true, "Oscillator": true,
	"Power": true, "Regulator_Linear": true, "Regulator_Switching": true, "Relay": true,
	"Sensor_Motion": true, "Sensor_Optical": true, "Sensor_Temperature": true,
	"Switch": true, "Timer": true, "Transistor_BJT": true, "Transistor_FET": true,
}

// Pin is one terminal of a symbol.
type Pin struct {
	ElectricalType string  `json:"electrical_type"`
	Style          string  `json:"style,omitempty"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Orientation    float64 `json:"orientation"`
	Length         float64 `json:"length,omitempty"`
	Name           string  `json:"name"`
	Number         string  `json:"number"`
	Hidden         bool    `json:"hidden,omitempty"`
}

// BBox is the body outline of a symbol.
type BBox struct {
	MinX float64 `json:"minX"`
	MaxX float64 `json:"maxX"`
	MinY float64 `json:"minY"`
	MaxY float64 `json:"maxY"`
}

// Symbol is one library entry.
type Symbol struct {
	ID         string            `json:"id"`
	Pins       []Pin             `json:"pins"`
	BBox       *BBox             `json:"bbox"`
	Extends    string            `json:"extends,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// PinByNumber returns the pin with the given number.
func (s *Symbol) PinByNumber(number string) (Pin, bool) {
	for _, p := range s.Pins {
		if p.Number == number {
			return p, true
		}
	}
	return Pin{}, false
}

// Library is a parsed .kicad_sym file.
type Library struct {
	Name    string
	Version int
	Symbols map[string]*Symbol
	order   []string
}

// Names returns symbol ids in file order.
func (l *Library) Names() []string {
	return append([]string(nil), l.order...)
}

// ParseFile parses a library file; the library is named after the file.
func ParseFile(path string) (*Library, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("symlib: failed to open file: %w", err)
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(file, name)
}

// Parse reads a (kicad_symbol_lib ...) expression from r.
func Parse(r io.Reader, name string) (*Library, error) {
	exprs, err := kicadsexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("symlib: %s: %w", name, err)
	}
	if len(exprs) == 0 {
		return nil, fmt.Errorf("symlib: %s: empty file", name)
	}
	root := exprs[0]
	rootName, err := sexp.GetNodeName(root)
	if err != nil {
		return nil, fmt.Errorf("symlib: %s: %w", name, err)
	}
	if rootName != "kicad_symbol_lib" {
		return nil, fmt.Errorf("symlib: %s: expected 'kicad_symbol_lib', got '%s'", name, rootName)
	}

	lib := &Library{Name: name, Symbols: make(map[string]*Symbol)}
	if v, ok := sexp.FindNode(root, "version"); ok {
		lib.Version, _ = sexp.GetInt(v, 1)
	}

	for _, node := range sexp.FindAllNodes(root, "symbol") {
		sym, err := parseSymbol(node)
		if err != nil {
			return nil, fmt.Errorf("symlib: %s: %w", name, err)
		}
		if _, dup := lib.Symbols[sym.ID]; !dup {
			lib.order = append(lib.order, sym.ID)
		}
		lib.Symbols[sym.ID] = sym
	}
	return lib, nil
}

func parseSymbol(node *kicadsexp.List) (*Symbol, error) {
	id, err := sexp.GetQuotedString(node, 1)
	if err != nil {
		return nil, fmt.Errorf("symbol without name: %w", err)
	}
	sym := &Symbol{ID: id, Properties: make(map[string]string)}

	if ext, ok := sexp.FindNode(node, "extends"); ok {
		sym.Extends, _ = sexp.GetQuotedString(ext, 1)
	}
	for _, prop := range sexp.FindAllNodes(node, "property") {
		key, err := sexp.GetQuotedString(prop, 1)
		if err != nil {
			continue
		}
		sym.Properties[key], _ = sexp.GetQuotedString(prop, 2)
	}

	// Pins and graphics sit in the nested unit symbols ("R_0_1", "R_1_1").
	// Top-level pins are accepted as well for hand-written libraries.
	units := append([]*kicadsexp.List{node}, sexp.FindAllNodes(node, "symbol")...)
	var rect *BBox
	poly := sexp.NewBoundingBox()
	for _, unit := range units {
		for _, p := range sexp.FindAllNodes(unit, "pin") {
			sym.Pins = append(sym.Pins, parsePin(p))
		}
		if rect == nil {
			if r, ok := sexp.FindNode(unit, "rectangle"); ok {
				rect = parseRectangle(r)
			}
		}
		for _, pl := range sexp.FindAllNodes(unit, "polyline") {
			pts, ok := sexp.FindNode(pl, "pts")
			if !ok {
				continue
			}
			for _, xy := range sexp.FindAllNodes(pts, "xy") {
				if pos, err := sexp.GetPositionXY(xy); err == nil {
					poly.Expand(sexp.Position{X: pos.X, Y: -pos.Y})
				}
			}
		}
	}

	switch {
	case rect != nil:
		sym.BBox = rect
	case !poly.IsEmpty():
		sym.BBox = &BBox{MinX: poly.Min.X, MaxX: poly.Max.X, MinY: poly.Min.Y, MaxY: poly.Max.Y}
	}
	return sym, nil
}

func parsePin(node *kicadsexp.List) Pin {
	pin := Pin{}
	pin.ElectricalType, _ = sexp.GetString(node, 1)
	pin.Style, _ = sexp.GetString(node, 2)

	if at, ok := sexp.FindNode(node, "at"); ok {
		if pa, err := sexp.GetPosition(at); err == nil {
			pin.X = pa.X
			pin.Y = -pa.Y
			pin.Orientation = float64(pa.Angle)
		}
	}
	if l, ok := sexp.FindNode(node, "length"); ok {
		pin.Length, _ = sexp.GetFloat(l, 1)
	}
	if n, ok := sexp.FindNode(node, "name"); ok {
		pin.Name, _ = sexp.GetQuotedString(n, 1)
	}
	if n, ok := sexp.FindNode(node, "number"); ok {
		pin.Number, _ = sexp.GetQuotedString(n, 1)
	}
	pin.Hidden = sexp.HasSymbol(node, "hide")
	return pin
}

func parseRectangle(node *kicadsexp.List) *BBox {
	start, ok1 := sexp.FindNode(node, "start")
	end, ok2 := sexp.FindNode(node, "end")
	if !ok1 || !ok2 {
		return nil
	}
	a, err1 := sexp.GetPositionXY(start)
	b, err2 := sexp.GetPositionXY(end)
	if err1 != nil || err2 != nil {
		return nil
	}
	bb := sexp.NewBoundingBox()
	bb.Expand(sexp.Position{X: a.X, Y: -a.Y})
	bb.Expand(sexp.Position{X: b.X, Y: -b.Y})
	return &BBox{MinX: bb.Min.X, MaxX: bb.Max.X, MinY: bb.Min.Y, MaxY: bb.Max.Y}
}

// Index holds several libraries and resolves "Library:Symbol" ids, applying
// extends inheritance. Resolved symbols are kept in an LRU cache.
type Index struct {
	libs  map[string]*Library
	cache *lru.Cache[string, *Symbol]
}

// NewIndex creates an index whose resolve cache holds up to size symbols.
func NewIndex(size int) (*Index, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, *Symbol](size)
	if err != nil {
		return nil, fmt.Errorf("symlib: %w", err)
	}
	return &Index{libs: make(map[string]*Library), cache: cache}, nil
}

// Add registers lib under its name, replacing any library of the same name.
func (x *Index) Add(lib *Library) {
	x.libs[lib.Name] = lib
	x.cache.Purge()
}

// LoadDir adds every .kicad_sym file in dir whose base name is in categories.
// A nil categories map accepts every library.
func (x *Index) LoadDir(dir string, categories map[string]bool) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("symlib: %w", err)
	}
	loaded := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".kicad_sym" {
			continue
		}
		category := strings.TrimSuffix(e.Name(), ".kicad_sym")
		if categories != nil && !categories[category] {
			continue
		}
		lib, err := ParseFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return loaded, err
		}
		x.Add(lib)
		loaded++
	}
	return loaded, nil
}

// IDs returns every "Library:Symbol" id, sorted.
func (x *Index) IDs() []string {
	var ids []string
	for name, lib := range x.libs {
		for _, sym := range lib.order {
			ids = append(ids, name+":"+sym)
		}
	}
	sort.Strings(ids)
	return ids
}

// Resolve returns the symbol for libID with inherited pins and bbox filled in.
// The returned symbol is shared; callers must not modify it.
func (x *Index) Resolve(libID string) (*Symbol, error) {
	if sym, ok := x.cache.Get(libID); ok {
		return sym, nil
	}
	libName, symName, ok := strings.Cut(libID, ":")
	if !ok {
		return nil, fmt.Errorf("symlib: %q: want Library:Symbol: %w", libID, ErrUnknownSymbol)
	}
	lib, ok := x.libs[libName]
	if !ok {
		return nil, fmt.Errorf("symlib: library %q: %w", libName, ErrUnknownSymbol)
	}
	sym, err := resolve(lib, symName, make(map[string]bool))
	if err != nil {
		return nil, err
	}
	x.cache.Add(libID, sym)
	return sym, nil
}

func resolve(lib *Library, name string, seen map[string]bool) (*Symbol, error) {
	sym, ok := lib.Symbols[name]
	if !ok {
		return nil, fmt.Errorf("symlib: %s:%s: %w", lib.Name, name, ErrUnknownSymbol)
	}
	if sym.Extends == "" {
		return sym, nil
	}
	if seen[name] {
		return nil, fmt.Errorf("symlib: %s:%s: extends cycle", lib.Name, name)
	}
	seen[name] = true

	base, err := resolve(lib, sym.Extends, seen)
	if err != nil {
		// A missing base leaves the derived symbol as it is.
		if errors.Is(err, ErrUnknownSymbol) {
			return sym, nil
		}
		return nil, err
	}

	out := *sym
	if len(out.Pins) == 0 {
		out.Pins = base.Pins
	}
	if out.BBox == nil {
		out.BBox = base.BBox
	}
	return &out, nil
}

// ResolveAll resolves every symbol, keyed by "Library:Symbol". Symbols that
// fail to resolve are left out.
func (x *Index) ResolveAll() map[string]*Symbol {
	out := make(map[string]*Symbol)
	for _, id := range x.IDs() {
		if sym, err := x.Resolve(id); err == nil {
			out[id] = sym
		}
	}
	return out
}
