package script

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// ScriptLexer tokenizes editing scripts. Keywords are case-insensitive and
// must come before Ident.
var ScriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	{Name: "KwPlace", Pattern: `(?i)\bplace\b`},
	{Name: "KwConnect", Pattern: `(?i)\bconnect\b`},
	{Name: "KwMove", Pattern: `(?i)\bmove\b`},
	{Name: "KwDelete", Pattern: `(?i)\bdelete\b`},
	{Name: "KwUnwire", Pattern: `(?i)\bunwire\b`},
	{Name: "KwPaste", Pattern: `(?i)\bpaste\b`},
	{Name: "KwSettle", Pattern: `(?i)\bsettle\b`},
	{Name: "KwSave", Pattern: `(?i)\bsave\b`},
	{Name: "KwRestore", Pattern: `(?i)\brestore\b`},
	{Name: "KwExpect", Pattern: `(?i)\bexpect\b`},
	{Name: "KwAt", Pattern: `(?i)\bat\b`},
	{Name: "KwRot", Pattern: `(?i)\brot\b`},
	{Name: "KwMirror", Pattern: `(?i)\bmirror\b`},
	{Name: "KwBy", Pattern: `(?i)\bby\b`},
	{Name: "KwTo", Pattern: `(?i)\bto\b`},
	{Name: "KwSteps", Pattern: `(?i)\bsteps\b`},
	{Name: "KwAs", Pattern: `(?i)\bas\b`},

	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Number", Pattern: `[-+]?(?:[0-9]+\.[0-9]*|\.[0-9]+|[0-9]+)`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.\-]*`},

	{Name: "Colon", Pattern: `:`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Semicolon", Pattern: `;`},
})
