package script

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Script is a sequence of editing statements.
type Script struct {
	Stmts []*Stmt `( @@ Semicolon? )*`
}

// Stmt is one statement. Exactly one field is set.
type Stmt struct {
	Pos lexer.Position

	Place   *Place   `  @@`
	Connect *Connect `| @@`
	Move    *Move    `| @@`
	Delete  *Delete  `| @@`
	Unwire  *Unwire  `| @@`
	Paste   *Paste   `| @@`
	Settle  bool     `| @KwSettle`
	Save    *Save    `| @@`
	Restore *Restore `| @@`
	Expect  *Expect  `| @@`
}

// Place puts a library symbol on the canvas.
// Example: place R1 "Device:R" at 100 50 rot 90 mirror y
type Place struct {
	ID     string   `KwPlace @Ident`
	LibID  string   `@String`
	X      float64  `KwAt @Number`
	Y      float64  `@Number`
	Angle  *float64 `( KwRot @Number )?`
	Mirror string   `( KwMirror @Ident )?`
}

// PinRef is component:pin.
type PinRef struct {
	Component string `@Ident`
	Pin       string `Colon @( Ident | Number )`
}

func (p PinRef) String() string {
	return p.Component + ":" + p.Pin
}

// Connect joins two pins.
type Connect struct {
	From PinRef `KwConnect @@`
	To   PinRef `@@`
}

// Move drags a component, by a delta or to an absolute position.
// Example: move R1 by 0 40 steps 4
type Move struct {
	ID    string  `KwMove @Ident`
	Mode  string  `@( KwBy | KwTo )`
	X     float64 `@Number`
	Y     float64 `@Number`
	Steps int     `( KwSteps @Number )?`
}

// Absolute reports whether the move names a target position.
func (m *Move) Absolute() bool {
	return strings.EqualFold(m.Mode, "to")
}

// Delete removes a component.
type Delete struct {
	ID string `KwDelete @Ident`
}

// Unwire removes the wire between two pins.
type Unwire struct {
	From PinRef `KwUnwire @@`
	To   PinRef `@@`
}

// Paste copies components with the nets between them.
// Example: paste R1 as R2, LED1 as LED2 by 0 200
type Paste struct {
	Pairs []*PastePair `KwPaste @@ ( Comma @@ )*`
	DX    float64      `KwBy @Number`
	DY    float64      `@Number`
}

// PastePair maps an original component id to the id of its copy.
type PastePair struct {
	From string `@Ident`
	To   string `KwAs @Ident`
}

// Save writes the session to a file.
type Save struct {
	Path string `KwSave @String`
}

// Restore loads a session file.
type Restore struct {
	Path string `KwRestore @String`
}

// Expect asserts a count: wires, dots, nets or components.
type Expect struct {
	What  string `KwExpect @Ident`
	Count int    `@Number`
}
