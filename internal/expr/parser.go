// Package expr parses and statically evaluates the boolean pin function
// expressions attached to cell outputs ("Y=!(A&B)"), and derives the
// timing arc set of a cell from them: for every (input, output) pair it
// searches the static side-input assignments for one that sensitizes the
// path, determining each arc's unateness along the way.
package expr

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
)

// Parser parses pin function expressions.
type Parser struct {
	expr   *participle.Parser[Expression]
	assign *participle.Parser[Assignment]
}

// NewParser builds the expression grammar. The grammar is static;
// construction fails only on a programming error in the AST tags.
func NewParser() (*Parser, error) {
	exprParser, err := participle.Build[Expression](
		participle.Lexer(FunctionLexer),
		participle.Elide("Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("build expression parser: %w", err)
	}
	assignParser, err := participle.Build[Assignment](
		participle.Lexer(FunctionLexer),
		participle.Elide("Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("build assignment parser: %w", err)
	}
	return &Parser{expr: exprParser, assign: assignParser}, nil
}

// MustParser is NewParser for package-level initialization.
func MustParser() *Parser {
	p, err := NewParser()
	if err != nil {
		panic(err)
	}
	return p
}

// Parse parses a bare function expression such as "!(A&B)".
func (p *Parser) Parse(input string) (*Expression, error) {
	e, err := p.expr.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse function %q: %w", input, err)
	}
	return e, nil
}

// ParseAssignment parses a full definition such as "Y=!(A&B)" and
// returns the output pin name together with its function.
func (p *Parser) ParseAssignment(input string) (string, *Expression, error) {
	a, err := p.assign.ParseString("", input)
	if err != nil {
		return "", nil, fmt.Errorf("parse function definition %q: %w", input, err)
	}
	return a.Output, a.Fn, nil
}
