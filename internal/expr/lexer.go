package expr

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// FunctionLexer defines the lexical structure of pin function expressions
// as written in cell definitions, e.g. "!(A&B)" or "(A&!S)|(B&S)".
// The operator set matches what Liberty function attributes use.
var FunctionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[\s]+`},

	{Name: "Not", Pattern: `!`},
	{Name: "And", Pattern: `&`},
	{Name: "Or", Pattern: `\|`},
	{Name: "Xor", Pattern: `\^`},
	{Name: "Assign", Pattern: `=`},

	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},

	// Pin names: letters, digits, underscores; cannot start with a digit.
	{Name: "Ident", Pattern: `[a-zA-Z][a-zA-Z0-9_]*`},
})
